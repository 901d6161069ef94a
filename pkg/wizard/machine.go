package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/configurator/internal/metrics"
	"github.com/aretw0/configurator/pkg/command"
	"github.com/aretw0/configurator/pkg/domain"
	"github.com/aretw0/configurator/pkg/paginate"
	"github.com/aretw0/configurator/pkg/ports"
	"go.uber.org/zap"
)

// Notices attached to sessions.
const (
	NoticeEmptyQuery   = "Please type a product name."
	NoticeNoMatches    = "No matches. Try another name or /cancel."
	NoticeCodeRequired = "Internal Reference is required. Please enter it."
	NoticeBarcodeReq   = "Barcode is required. Please enter it."
	NoticeNoAttributes = "This product has no configurable attributes."
	NoticeCancelled    = "Cancelled. Use /start to choose a service."
)

// Machine applies user commands to sessions.
// It holds no per-user state and is safe for concurrent use.
type Machine struct {
	configurator ports.Configurator
	createdBy    string
	logger       *zap.Logger
}

// MachineOption configures the Machine.
type MachineOption func(*Machine)

// WithCreatedBy restricts every template search to templates created by the given users.
func WithCreatedBy(createdBy string) MachineOption {
	return func(m *Machine) {
		m.createdBy = createdBy
	}
}

// WithMachineLogger configures a logger for the Machine.
func WithMachineLogger(logger *zap.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = logger
	}
}

// NewMachine creates a Machine backed by the given configurator.
func NewMachine(c ports.Configurator, opts ...MachineOption) *Machine {
	m := &Machine{
		configurator: c,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle applies cmd to a copy of s and returns the next session with its view.
// A nil session means the user cancelled and the session must be discarded.
// Commands that make no sense in the current stage re-render it unchanged.
func (m *Machine) Handle(ctx context.Context, s *domain.Session, cmd command.Command) (*domain.Session, Reply) {
	if _, ok := cmd.(command.Cancel); ok {
		return nil, Menu(NoticeCancelled)
	}
	if s == nil {
		return nil, Menu("")
	}

	next := s.Snapshot()
	prevNotice := next.Notice
	next.Notice = ""

	handled := false
	switch next.Stage {
	case domain.StageSearching:
		handled = m.onSearching(ctx, next, cmd)
	case domain.StagePickingTemplate:
		handled = m.onPickingTemplate(ctx, next, cmd)
	case domain.StagePickingAttribute:
		handled = m.onPickingAttribute(next, cmd)
	case domain.StageAwaitingCode:
		handled = m.onAwaitingCode(next, cmd)
	case domain.StageAwaitingBarcode:
		handled = m.onAwaitingBarcode(ctx, next, cmd)
	case domain.StageReviewing:
		handled = m.onReviewing(ctx, next, cmd)
	}
	if !handled {
		next.Notice = prevNotice
	}
	return next, Render(next)
}

func (m *Machine) onSearching(ctx context.Context, s *domain.Session, cmd command.Command) bool {
	switch c := cmd.(type) {
	case command.NewSearch:
		return true
	case command.Text:
		q := strings.TrimSpace(c.Body)
		if q == "" {
			s.Notice = NoticeEmptyQuery
			return true
		}
		var res domain.SearchResult
		err := m.observe("search", func() (err error) {
			res, err = m.configurator.Search(ctx, q, m.createdBy)
			return err
		})
		if err != nil {
			s.Notice = failure("Server error while searching", err)
			return true
		}
		if len(res.Matches) == 0 {
			s.Notice = NoticeNoMatches
			// Explain filters that matched no users.
			if res.Message != "" && !strings.HasPrefix(res.Message, "0 matches") {
				s.Notice = res.Message + "\n" + NoticeNoMatches
			}
			return true
		}
		s.Query = q
		s.Matches = res.Matches
		s.SearchPage = 0
		s.Stage = domain.StagePickingTemplate
		return true
	}
	return false
}

func (m *Machine) onPickingTemplate(ctx context.Context, s *domain.Session, cmd command.Command) bool {
	switch c := cmd.(type) {
	case command.NewSearch:
		restart(s)
		return true
	case command.TemplatePage:
		s.SearchPage = paginate.Clamp(c.Page, len(s.Matches), paginate.TemplatePageSize)
		return true
	case command.PickTemplate:
		if s.Flow == domain.FlowListVariants {
			m.listVariants(ctx, s, c.ID)
			return true
		}
		m.pickTemplate(ctx, s, c.ID)
		return true
	}
	return false
}

func (m *Machine) pickTemplate(ctx context.Context, s *domain.Session, templateID int64) {
	var cat domain.TemplateCatalog
	err := m.observe("init", func() (err error) {
		cat, err = m.configurator.Init(ctx, templateID)
		return err
	})
	if err != nil {
		restart(s)
		s.Notice = failure("Server error while loading template", err)
		return
	}
	if len(cat.Attributes) == 0 {
		restart(s)
		s.Notice = NoticeNoAttributes
		return
	}

	tpl := cat.Template
	if tpl.ID == 0 {
		tpl.ID = templateID
	}
	if tpl.Name == "" {
		for _, match := range s.Matches {
			if match.ID == templateID {
				tpl.Name = match.Name
				break
			}
		}
	}

	s.Template = &tpl
	s.Attributes = make([]domain.AttributeState, len(cat.Attributes))
	for i, a := range cat.Attributes {
		a.Values = append([]domain.Value(nil), a.Values...)
		s.Attributes[i] = domain.AttributeState{Attribute: a}
	}
	s.CurrentIndex = 0
	s.Stage = domain.StagePickingAttribute
}

func (m *Machine) listVariants(ctx context.Context, s *domain.Session, templateID int64) {
	var list domain.VariantList
	err := m.observe("list_variants", func() (err error) {
		list, err = m.configurator.ListVariants(ctx, templateID, true)
		return err
	})
	if err != nil {
		restart(s)
		s.Notice = failure("Error reading variants", err)
		return
	}
	if list.Template.ID == 0 {
		list.Template.ID = templateID
	}
	s.Listing = &list
	s.Stage = domain.StageFinalized
}

func (m *Machine) onPickingAttribute(s *domain.Session, cmd command.Command) bool {
	a, ok := s.Current()
	if !ok {
		return false
	}
	switch c := cmd.(type) {
	case command.PickValue:
		if c.AttributeID != a.ID {
			return false
		}
		if _, ok := a.FindValue(c.ValueID); !ok {
			return false
		}
		v := c.ValueID
		a.Selected = &v
		s.CurrentIndex++
		if s.CurrentIndex == len(s.Attributes) {
			s.Stage = domain.StageAwaitingCode
		}
		return true
	case command.ValuePage:
		a.Page = paginate.Clamp(a.Page+c.Delta, len(a.Values), paginate.ValuePageSize)
		return true
	case command.Back:
		if s.CurrentIndex > 0 {
			s.CurrentIndex--
		}
		return true
	}
	return false
}

func (m *Machine) onAwaitingCode(s *domain.Session, cmd command.Command) bool {
	c, ok := cmd.(command.Text)
	if !ok {
		return false
	}
	code := strings.TrimSpace(c.Body)
	if code == "" {
		s.Notice = NoticeCodeRequired
		return true
	}
	s.DefaultCode = code
	s.Stage = domain.StageAwaitingBarcode
	return true
}

func (m *Machine) onAwaitingBarcode(ctx context.Context, s *domain.Session, cmd command.Command) bool {
	c, ok := cmd.(command.Text)
	if !ok {
		return false
	}
	barcode := strings.TrimSpace(c.Body)
	if barcode == "" {
		s.Notice = NoticeBarcodeReq
		return true
	}

	var res domain.PrepareResult
	err := m.observe("prepare", func() (err error) {
		res, err = m.configurator.Prepare(ctx, s.Template.ID, s.Selections())
		return err
	})
	if err != nil {
		restart(s)
		s.Notice = failure("Server error on duplicate check", err)
		return true
	}
	s.Barcode = barcode
	s.Review = &res
	s.Stage = domain.StageReviewing
	return true
}

func (m *Machine) onReviewing(ctx context.Context, s *domain.Session, cmd command.Command) bool {
	switch c := cmd.(type) {
	case command.UseExisting:
		if s.Review == nil || s.Review.ExistingVariant == nil || s.Review.ExistingVariant.ID != c.VariantID {
			return false
		}
		s.Outcome = &domain.Outcome{Variant: *s.Review.ExistingVariant}
		s.Stage = domain.StageFinalized
		return true

	case command.ChangeSelections:
		s.CurrentIndex = 0
		for i := range s.Attributes {
			s.Attributes[i].Page = 0
		}
		s.Review = nil
		s.Stage = domain.StagePickingAttribute
		return true

	case command.Create:
		if s.Review != nil && s.Review.ExistingVariant != nil {
			return false
		}
		var res domain.CreateResult
		err := m.observe("create", func() (err error) {
			res, err = m.configurator.Create(ctx, s.Template.ID, s.Selections(), s.DefaultCode, s.Barcode)
			return err
		})
		if err != nil {
			if isStale(err) {
				restart(s)
			}
			s.Notice = failure("Server error while creating", err)
			return true
		}
		s.Outcome = &domain.Outcome{Created: res.Created, Variant: res.Variant, Message: res.Message}
		s.Stage = domain.StageFinalized
		return true
	}
	return false
}

// observe times a configurator call.
func (m *Machine) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.logger.Warn("configurator call failed", zap.String("operation", op), zap.Error(err))
	}
	metrics.GatewayDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
	return err
}

// restart sends the user back to the search prompt of the same flow.
func restart(s *domain.Session) {
	*s = domain.Session{UserID: s.UserID, Flow: s.Flow, Stage: domain.StageSearching}
}

// isStale reports errors that mean the session no longer matches the catalog.
func isStale(err error) bool {
	return errors.Is(err, domain.ErrTemplateNotFound) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrSelectionNotOnTemplate)
}

func failure(prefix string, err error) string {
	return fmt.Sprintf("%s:\n%s", prefix, err.Error())
}
