package domain

// Stage is the position of a session in the wizard.
type Stage string

const (
	StageSearching        Stage = "searching"
	StagePickingTemplate  Stage = "picking_template"
	StagePickingAttribute Stage = "picking_attribute"
	StageAwaitingCode     Stage = "awaiting_code"
	StageAwaitingBarcode  Stage = "awaiting_barcode"
	StageReviewing        Stage = "reviewing"
	StageFinalized        Stage = "finalized" // Sink stage
)

// Flow distinguishes the top-level services that share the session record.
type Flow string

const (
	FlowConfigure    Flow = "configure"
	FlowListVariants Flow = "list_variants"
)

// AttributeState is the session-local copy of an attribute with its page cursor
// and the value chosen so far.
type AttributeState struct {
	Attribute `yaml:",inline"`
	Page      int    `json:"page" yaml:"page"`
	Selected  *int64 `json:"selected,omitempty" yaml:"selected,omitempty"`
}

// Outcome records how a configure flow ended.
type Outcome struct {
	Created bool        `json:"created" yaml:"created"`
	Variant VariantInfo `json:"variant" yaml:"variant"`
	Message string      `json:"message,omitempty" yaml:"message,omitempty"`
}

// Session is the per-user state of the wizard.
type Session struct {
	UserID string `json:"user_id" yaml:"user_id"`
	Flow   Flow   `json:"flow" yaml:"flow"`
	Stage  Stage  `json:"stage" yaml:"stage"`

	// Search step.
	Query      string            `json:"query,omitempty" yaml:"query,omitempty"`
	Matches    []TemplateSummary `json:"matches,omitempty" yaml:"matches,omitempty"`
	SearchPage int               `json:"search_page" yaml:"search_page"`

	// Template is set once a template is picked and never changes afterwards.
	Template     *TemplateSummary `json:"template,omitempty" yaml:"template,omitempty"`
	Attributes   []AttributeState `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	CurrentIndex int              `json:"current_index" yaml:"current_index"`

	DefaultCode string `json:"default_code,omitempty" yaml:"default_code,omitempty"`
	Barcode     string `json:"barcode,omitempty" yaml:"barcode,omitempty"`

	Review  *PrepareResult `json:"review,omitempty" yaml:"review,omitempty"`
	Outcome *Outcome       `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Listing *VariantList   `json:"listing,omitempty" yaml:"listing,omitempty"`

	// Notice is the message attached to the last transition, such as a re-prompt
	// or a gateway failure. It is cleared by the next input.
	Notice string `json:"notice,omitempty" yaml:"notice,omitempty"`
}

// NewSession creates a clean session waiting for search text.
func NewSession(userID string, flow Flow) *Session {
	if flow == "" {
		flow = FlowConfigure
	}
	return &Session{
		UserID: userID,
		Flow:   flow,
		Stage:  StageSearching,
	}
}

// Selections derives the chosen values in attribute order.
// Attributes without a selection are skipped, so each attribute appears at most once.
func (s *Session) Selections() []Selection {
	out := make([]Selection, 0, len(s.Attributes))
	for _, a := range s.Attributes {
		if a.Selected == nil {
			continue
		}
		out = append(out, Selection{AttributeID: a.ID, ValueID: *a.Selected})
	}
	return out
}

// Complete reports whether every attribute has a selected value.
func (s *Session) Complete() bool {
	for _, a := range s.Attributes {
		if a.Selected == nil {
			return false
		}
	}
	return true
}

// Current returns the attribute currently being asked.
func (s *Session) Current() (*AttributeState, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Attributes) {
		return nil, false
	}
	return &s.Attributes[s.CurrentIndex], true
}

// Snapshot creates a deep copy of the session.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	c := *s

	if s.Matches != nil {
		c.Matches = append([]TemplateSummary(nil), s.Matches...)
	}
	if s.Template != nil {
		t := *s.Template
		c.Template = &t
	}
	if s.Attributes != nil {
		c.Attributes = make([]AttributeState, len(s.Attributes))
		for i, a := range s.Attributes {
			cp := a
			cp.Values = append([]Value(nil), a.Values...)
			if a.Selected != nil {
				v := *a.Selected
				cp.Selected = &v
			}
			c.Attributes[i] = cp
		}
	}
	if s.Review != nil {
		r := *s.Review
		r.Selections = append([]EnrichedSelection(nil), s.Review.Selections...)
		r.CanonicalIDs = append([]int64(nil), s.Review.CanonicalIDs...)
		if s.Review.ExistingVariant != nil {
			v := *s.Review.ExistingVariant
			r.ExistingVariant = &v
		}
		c.Review = &r
	}
	if s.Outcome != nil {
		o := *s.Outcome
		c.Outcome = &o
	}
	if s.Listing != nil {
		l := *s.Listing
		l.Variants = append([]VariantRow(nil), s.Listing.Variants...)
		c.Listing = &l
	}
	return &c
}
