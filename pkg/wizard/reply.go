package wizard

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aretw0/configurator/pkg/command"
	"github.com/aretw0/configurator/pkg/domain"
	"github.com/aretw0/configurator/pkg/paginate"
)

// Prompt tells the transport what the user is being asked for.
type Prompt string

const (
	PromptMenu      Prompt = "menu"
	PromptSearch    Prompt = "search"
	PromptTemplates Prompt = "templates"
	PromptValue     Prompt = "value"
	PromptCode      Prompt = "code"
	PromptBarcode   Prompt = "barcode"
	PromptReview    Prompt = "review"
	PromptDone      Prompt = "done"
)

// Choice is a button: a label and the command it sends back.
type Choice struct {
	Label  string `json:"label" yaml:"label"`
	Action string `json:"action" yaml:"action"`
}

// Reply is the transport-neutral view of a session after a transition.
type Reply struct {
	Prompt   Prompt       `json:"prompt" yaml:"prompt"`
	Stage    domain.Stage `json:"stage,omitempty" yaml:"stage,omitempty"`
	Flow     domain.Flow  `json:"flow,omitempty" yaml:"flow,omitempty"`
	Text     string       `json:"text" yaml:"text"`
	Notice   string       `json:"notice,omitempty" yaml:"notice,omitempty"`
	Choices  []Choice     `json:"choices,omitempty" yaml:"choices,omitempty"`
	Nav      []Choice     `json:"nav,omitempty" yaml:"nav,omitempty"`
	Page     int          `json:"page" yaml:"page"`
	LastPage int          `json:"last_page" yaml:"last_page"`

	Review  *domain.PrepareResult `json:"review,omitempty" yaml:"review,omitempty"`
	Outcome *domain.Outcome       `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Listing *domain.VariantList   `json:"listing,omitempty" yaml:"listing,omitempty"`
}

// Menu actions understood by the transports to start a flow.
const (
	MenuConfigure    = "start:" + string(domain.FlowConfigure)
	MenuListVariants = "start:" + string(domain.FlowListVariants)
)

// Menu is shown when the user has no session.
func Menu(notice string) Reply {
	return Reply{
		Prompt: PromptMenu,
		Text:   "Choose a service:",
		Notice: notice,
		Choices: []Choice{
			{Label: "Create Variant", Action: MenuConfigure},
			{Label: "List Variants", Action: MenuListVariants},
		},
	}
}

const labelWidth = 40

// Render builds the view of a session. It is a pure function of the session.
func Render(s *domain.Session) Reply {
	if s == nil {
		return Menu("")
	}
	r := Reply{Stage: s.Stage, Flow: s.Flow, Notice: s.Notice}

	switch s.Stage {
	case domain.StageSearching:
		r.Prompt = PromptSearch
		if s.Flow == domain.FlowListVariants {
			r.Text = "Enter Product name:"
		} else {
			r.Text = "Type the base product name."
		}

	case domain.StagePickingTemplate:
		r.Prompt = PromptTemplates
		w := paginate.Paginate(s.Matches, s.SearchPage, paginate.TemplatePageSize)
		r.Page, r.LastPage = w.Page, w.LastPage
		r.Text = fmt.Sprintf("Found %d matches for “%s”. Pick a base product:", len(s.Matches), s.Query)
		for _, m := range w.Items {
			r.Choices = append(r.Choices, Choice{
				Label:  truncate(m.Label(), labelWidth),
				Action: command.PickTemplate{ID: m.ID}.String(),
			})
		}
		if w.HasPrev() {
			r.Nav = append(r.Nav, Choice{Label: "◀ Prev", Action: command.TemplatePage{Page: w.Page - 1}.String()})
		}
		if w.HasNext() {
			r.Nav = append(r.Nav, Choice{Label: "More ▶", Action: command.TemplatePage{Page: w.Page + 1}.String()})
		}
		r.Nav = append(r.Nav, Choice{Label: "🔎 New search", Action: command.NewSearch{}.String()})

	case domain.StagePickingAttribute:
		r.Prompt = PromptValue
		a, ok := s.Current()
		if !ok {
			break
		}
		w := paginate.Paginate(a.Values, a.Page, paginate.ValuePageSize)
		r.Page, r.LastPage = w.Page, w.LastPage
		r.Text = fmt.Sprintf("Please pick one value for:\n• %s", a.Label())
		for _, v := range w.Items {
			label := truncate(CleanValueName(a.Name, valueLabel(v)), labelWidth)
			if a.Selected != nil && *a.Selected == v.ID {
				label = "✓ " + label
			}
			r.Choices = append(r.Choices, Choice{
				Label:  label,
				Action: command.PickValue{AttributeID: a.ID, ValueID: v.ID}.String(),
			})
		}
		if w.HasPrev() {
			r.Nav = append(r.Nav, Choice{Label: "◀ Prev", Action: command.ValuePage{Delta: -1}.String()})
		}
		if w.HasNext() {
			r.Nav = append(r.Nav, Choice{Label: "More ▶", Action: command.ValuePage{Delta: 1}.String()})
		}
		if s.CurrentIndex > 0 {
			r.Nav = append(r.Nav, Choice{Label: "⬅ Back", Action: command.Back{}.String()})
		}

	case domain.StageAwaitingCode:
		r.Prompt = PromptCode
		r.Text = "Selections complete.\n\nEnter Internal Reference (required)."

	case domain.StageAwaitingBarcode:
		r.Prompt = PromptBarcode
		r.Text = "Enter Barcode (required)."

	case domain.StageReviewing:
		r.Prompt = PromptReview
		r.Review = s.Review
		r.Text = reviewText(s)
		if s.Review != nil && s.Review.ExistingVariant != nil {
			r.Text += "\nVariant already exists."
			r.Choices = append(r.Choices, Choice{
				Label:  "✅ Use existing",
				Action: command.UseExisting{VariantID: s.Review.ExistingVariant.ID}.String(),
			})
		} else {
			r.Text += "\nNo duplicate found."
			r.Choices = append(r.Choices, Choice{Label: "✨ Create Variant", Action: command.Create{}.String()})
		}
		r.Choices = append(r.Choices, Choice{Label: "🔁 Change selections", Action: command.ChangeSelections{}.String()})

	case domain.StageFinalized:
		r.Prompt = PromptDone
		r.Outcome = s.Outcome
		r.Listing = s.Listing
		switch {
		case s.Listing != nil:
			r.Text = listingText(s.Listing)
		case s.Outcome != nil:
			r.Text = outcomeText(s.Outcome)
		}
	}
	return r
}

func reviewText(s *domain.Session) string {
	var b strings.Builder
	b.WriteString("Review\n")
	if s.Template != nil {
		fmt.Fprintf(&b, "Base: %s\n", s.Template.Label())
	}
	for _, a := range s.Attributes {
		if a.Selected == nil {
			continue
		}
		name := fmt.Sprint(*a.Selected)
		if v, ok := a.FindValue(*a.Selected); ok && v.Name != "" {
			name = CleanValueName(a.Name, v.Name)
		}
		fmt.Fprintf(&b, "• %s: %s\n", a.Label(), name)
	}
	fmt.Fprintf(&b, "\nInternal Ref: %s\nBarcode: %s\n", s.DefaultCode, s.Barcode)
	return b.String()
}

func outcomeText(o *domain.Outcome) string {
	if !o.Created && o.Message == "" {
		return fmt.Sprintf("Using existing variant (ID: %d).\nDone.", o.Variant.ID)
	}
	status := "created"
	if !o.Created {
		status = "exists"
	}
	return fmt.Sprintf("Variant %s.\n\nID: %d\nName: %s\nInternal Ref: %s\nBarcode: %s\n",
		status, o.Variant.ID, o.Variant.DisplayName, orDash(o.Variant.DefaultCode), orDash(o.Variant.Barcode))
}

func listingText(l *domain.VariantList) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%d variant(s) found.\n", l.Template.Label(), l.Count)
	for _, v := range l.Variants {
		fmt.Fprintf(&b, "\nInternal Reference: %s | Barcode: %s\nName: %s\n", orDash(v.DefaultCode), orDash(v.Barcode), v.DisplayName)
		pairs := make([]string, 0, len(v.Values))
		for _, p := range v.Values {
			pairs = append(pairs, p.Attribute+": "+p.Value)
		}
		if len(pairs) > 0 {
			fmt.Fprintf(&b, "Values: %s\n", strings.Join(pairs, "; "))
		}
		fmt.Fprintf(&b, "On hand: %g\n", v.QtyOnHand)
	}
	return b.String()
}

func valueLabel(v domain.Value) string {
	if v.Name != "" {
		return v.Name
	}
	return fmt.Sprint(v.ID)
}

// CleanValueName drops a repeated attribute prefix from a value label,
// so "THICKNESS: 1 mm" under THICKNESS reads "1 mm".
func CleanValueName(attribute, value string) string {
	v := strings.TrimSpace(value)
	a := strings.TrimSpace(attribute)
	if a == "" || len(v) < len(a) || !strings.EqualFold(v[:len(a)], a) {
		return v
	}
	rest := strings.TrimLeftFunc(v[len(a):], unicode.IsSpace)
	for _, sep := range []string{":", "-", "–"} {
		if after, ok := strings.CutPrefix(rest, sep); ok {
			return strings.TrimLeftFunc(after, unicode.IsSpace)
		}
	}
	return v
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
