package wizard_test

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/configurator/pkg/adapters/gateway"
	"github.com/aretw0/configurator/pkg/adapters/memory"
	"github.com/aretw0/configurator/pkg/command"
	"github.com/aretw0/configurator/pkg/domain"
	"github.com/aretw0/configurator/pkg/ports"
	"github.com/aretw0/configurator/pkg/resolution"
	"github.com/aretw0/configurator/pkg/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubConfigurator injects failures in front of a real configurator.
type stubConfigurator struct {
	ports.Configurator
	initErr    error
	prepareErr error
	createErr  error
}

func (s *stubConfigurator) Init(ctx context.Context, templateID int64) (domain.TemplateCatalog, error) {
	if s.initErr != nil {
		return domain.TemplateCatalog{}, s.initErr
	}
	return s.Configurator.Init(ctx, templateID)
}

func (s *stubConfigurator) Prepare(ctx context.Context, templateID int64, selections []domain.Selection) (domain.PrepareResult, error) {
	if s.prepareErr != nil {
		return domain.PrepareResult{}, s.prepareErr
	}
	return s.Configurator.Prepare(ctx, templateID, selections)
}

func (s *stubConfigurator) Create(ctx context.Context, templateID int64, selections []domain.Selection, defaultCode, barcode string) (domain.CreateResult, error) {
	if s.createErr != nil {
		return domain.CreateResult{}, s.createErr
	}
	return s.Configurator.Create(ctx, templateID, selections, defaultCode, barcode)
}

func text(body string) command.Command { return command.Text{Body: body} }

// drive feeds inputs in order. Strings containing ':' are parsed as actions.
func drive(t *testing.T, m *wizard.Machine, s *domain.Session, inputs ...string) (*domain.Session, wizard.Reply) {
	t.Helper()
	var r wizard.Reply
	for _, in := range inputs {
		var cmd command.Command
		if parsed, ok := command.Parse(in); ok {
			cmd = parsed
		} else {
			cmd = text(in)
		}
		s, r = m.Handle(context.Background(), s, cmd)
		require.NotNil(t, s, "session discarded after %q", in)
	}
	return s, r
}

// threeAttributeCatalog has Color{Red,Blue} x Size{S,M} x Material{Cotton,Wool}.
func threeAttributeCatalog() *memory.Catalog {
	c := memory.NewCatalog()
	c.AddTemplate(memory.TemplateSpec{ID: 7, Name: "Hoodie", Attributes: []domain.Attribute{
		{ID: 1, Name: "Color", Values: []domain.Value{{ID: 11, Name: "Red"}, {ID: 12, Name: "Blue"}}},
		{ID: 2, Name: "Size", Values: []domain.Value{{ID: 21, Name: "S"}, {ID: 22, Name: "M"}}},
		{ID: 3, Name: "Material", Values: []domain.Value{{ID: 31, Name: "Cotton"}, {ID: 32, Name: "Wool"}}},
	}})
	c.AddTemplate(memory.TemplateSpec{ID: 8, Name: "Hoodie Gift Card"})
	return c
}

func TestMachine_ConfigureCreatesVariant(t *testing.T) {
	cat := memory.NewDemoCatalog()
	m := wizard.NewMachine(resolution.NewEngine(cat), wizard.WithCreatedBy("alice"))
	s := domain.NewSession("u1", domain.FlowConfigure)

	s, r := drive(t, m, s, "shirt")
	require.Equal(t, domain.StagePickingTemplate, s.Stage)
	require.Len(t, r.Choices, 1, "created_by filter keeps only alice's templates")
	assert.Equal(t, "tpl:1", r.Choices[0].Action)

	s, r = drive(t, m, s, "tpl:1")
	require.Equal(t, domain.StagePickingAttribute, s.Stage)
	assert.Equal(t, 0, s.CurrentIndex)
	assert.Contains(t, r.Text, "Color")
	assert.Empty(t, r.Nav, "no back button on the first attribute")

	s, _ = drive(t, m, s, "val:1:12", "val:2:21")
	require.Equal(t, domain.StageAwaitingCode, s.Stage)
	assert.Equal(t, 2, s.CurrentIndex)

	s, r = drive(t, m, s, "   ")
	assert.Equal(t, domain.StageAwaitingCode, s.Stage)
	assert.Equal(t, wizard.NoticeCodeRequired, r.Notice)

	s, _ = drive(t, m, s, "TSH-BLU-S")
	require.Equal(t, domain.StageAwaitingBarcode, s.Stage)
	s, r = drive(t, m, s, "")
	assert.Equal(t, wizard.NoticeBarcodeReq, r.Notice)

	s, r = drive(t, m, s, "4000000000024")
	require.Equal(t, domain.StageReviewing, s.Stage)
	require.NotNil(t, r.Review)
	assert.Nil(t, r.Review.ExistingVariant)
	assert.Contains(t, r.Text, "Color: Blue")
	assert.Contains(t, r.Text, "Internal Ref: TSH-BLU-S")
	require.Len(t, r.Choices, 2)
	assert.Equal(t, "create:new", r.Choices[0].Action)

	s, r = drive(t, m, s, "create:new")
	require.Equal(t, domain.StageFinalized, s.Stage)
	require.NotNil(t, r.Outcome)
	assert.True(t, r.Outcome.Created)
	assert.Equal(t, "TSH-BLU-S", r.Outcome.Variant.DefaultCode)
	assert.Contains(t, r.Text, "Variant created.")
	assert.Equal(t, 2, cat.VariantCount(memory.DemoTShirt))
}

func TestMachine_ReuseExistingVariant(t *testing.T) {
	cat := memory.NewDemoCatalog()
	m := wizard.NewMachine(resolution.NewEngine(cat))

	s, r := drive(t, m, domain.NewSession("u1", domain.FlowConfigure),
		"t-shirt", "tpl:1", "val:1:11", "val:2:22", "CODE", "BARCODE")
	require.Equal(t, domain.StageReviewing, s.Stage)
	require.NotNil(t, r.Review.ExistingVariant)
	existing := r.Review.ExistingVariant.ID
	assert.Contains(t, r.Text, "Variant already exists.")

	// Creating over an exact match is not offered.
	s, _ = drive(t, m, s, "create:new")
	assert.Equal(t, domain.StageReviewing, s.Stage)

	// A stale variant id is ignored.
	s, _ = drive(t, m, s, "use:1")
	assert.Equal(t, domain.StageReviewing, s.Stage)

	s, r = m.Handle(context.Background(), s, command.UseExisting{VariantID: existing})
	require.Equal(t, domain.StageFinalized, s.Stage)
	assert.False(t, r.Outcome.Created)
	assert.Equal(t, existing, r.Outcome.Variant.ID)
	assert.Equal(t, 0, cat.CreateCalls())
}

func TestMachine_BackNavigationPreservesSelections(t *testing.T) {
	m := wizard.NewMachine(resolution.NewEngine(threeAttributeCatalog()))

	s, _ := drive(t, m, domain.NewSession("u1", domain.FlowConfigure), "hoodie", "tpl:7", "val:1:11", "val:2:21")
	require.Equal(t, 2, s.CurrentIndex)

	s, r := drive(t, m, s, "attr:back")
	assert.Equal(t, domain.StagePickingAttribute, s.Stage)
	assert.Equal(t, 1, s.CurrentIndex)
	require.NotNil(t, s.Attributes[0].Selected)
	assert.Equal(t, int64(11), *s.Attributes[0].Selected)
	require.NotNil(t, s.Attributes[1].Selected, "back does not clear the value it returns to")
	assert.Equal(t, int64(21), *s.Attributes[1].Selected)
	assert.Equal(t, "✓ S", r.Choices[0].Label)

	s, _ = drive(t, m, s, "attr:back", "attr:back")
	assert.Equal(t, 0, s.CurrentIndex, "back stops at the first attribute")

	s, _ = drive(t, m, s, "val:1:12")
	assert.Equal(t, 1, s.CurrentIndex)
	assert.Equal(t, int64(12), *s.Attributes[0].Selected)
	assert.Equal(t, int64(21), *s.Attributes[1].Selected)
}

func TestMachine_ChangeSelections(t *testing.T) {
	m := wizard.NewMachine(resolution.NewEngine(memory.NewDemoCatalog()))

	s, _ := drive(t, m, domain.NewSession("u1", domain.FlowConfigure),
		"sticker", "tpl:4", "attrpage:+1", "val:5:515", "CODE", "BAR")
	require.Equal(t, domain.StageReviewing, s.Stage)
	assert.Equal(t, 1, s.Attributes[0].Page)

	s, _ = drive(t, m, s, "change:attrs")
	assert.Equal(t, domain.StagePickingAttribute, s.Stage)
	assert.Equal(t, 0, s.CurrentIndex)
	assert.Equal(t, 0, s.Attributes[0].Page)
	require.NotNil(t, s.Attributes[0].Selected)
	assert.Equal(t, int64(515), *s.Attributes[0].Selected)
	assert.Equal(t, "CODE", s.DefaultCode)
}

func TestMachine_ValuePagesClamp(t *testing.T) {
	m := wizard.NewMachine(resolution.NewEngine(memory.NewDemoCatalog()))

	s, r := drive(t, m, domain.NewSession("u1", domain.FlowConfigure), "sticker", "tpl:4")
	assert.Equal(t, 2, r.LastPage)
	assert.Len(t, r.Choices, 10)
	assert.Equal(t, []wizard.Choice{{Label: "More ▶", Action: "attrpage:+1"}}, r.Nav)

	s, _ = drive(t, m, s, "attrpage:-1")
	assert.Equal(t, 0, s.Attributes[0].Page)

	s, r = drive(t, m, s, "attrpage:+1", "attrpage:+1", "attrpage:+1")
	assert.Equal(t, 2, s.Attributes[0].Page)
	assert.Len(t, r.Choices, 3)

	_, r = drive(t, m, s, "attrpage:-1")
	assert.Equal(t, 1, r.Page)
	assert.Len(t, r.Nav, 2)
}

func TestMachine_TemplatePagesClamp(t *testing.T) {
	m := wizard.NewMachine(resolution.NewEngine(memory.NewDemoCatalog()))

	s, r := drive(t, m, domain.NewSession("u1", domain.FlowConfigure), "cable")
	assert.Len(t, r.Choices, 8)
	assert.Equal(t, 1, r.LastPage)

	s, r = drive(t, m, s, "tplpage:5")
	assert.Equal(t, 1, s.SearchPage)
	assert.Len(t, r.Choices, 2)

	s, _ = drive(t, m, s, "tplpage:-3")
	assert.Equal(t, 0, s.SearchPage)

	s, r = drive(t, m, s, "search:new")
	assert.Equal(t, domain.StageSearching, s.Stage)
	assert.Empty(t, s.Matches)
	assert.Equal(t, wizard.PromptSearch, r.Prompt)
}

func TestMachine_SearchNotices(t *testing.T) {
	m := wizard.NewMachine(resolution.NewEngine(memory.NewDemoCatalog()), wizard.WithCreatedBy("nobody"))

	s, r := drive(t, m, domain.NewSession("u1", domain.FlowConfigure), "  ")
	assert.Equal(t, domain.StageSearching, s.Stage)
	assert.Equal(t, wizard.NoticeEmptyQuery, r.Notice)

	s, r = drive(t, m, s, "shirt")
	assert.Equal(t, domain.StageSearching, s.Stage)
	assert.Equal(t, "No users match 'nobody'\n"+wizard.NoticeNoMatches, r.Notice)

	m = wizard.NewMachine(resolution.NewEngine(memory.NewDemoCatalog()))
	_, r = drive(t, m, s, "zzz")
	assert.Equal(t, wizard.NoticeNoMatches, r.Notice)
}

func TestMachine_UnrecognisedInputReRenders(t *testing.T) {
	m := wizard.NewMachine(resolution.NewEngine(memory.NewDemoCatalog()))
	s, before := drive(t, m, domain.NewSession("u1", domain.FlowConfigure), "t-shirt", "tpl:1")

	for _, cmd := range []command.Command{
		text("hello"),
		command.PickValue{AttributeID: memory.DemoSize, ValueID: memory.DemoSmall}, // not the current attribute
		command.PickValue{AttributeID: memory.DemoColor, ValueID: 999},             // not a value of it
		command.Create{},
		command.TemplatePage{Page: 1},
	} {
		next, r := m.Handle(context.Background(), s, cmd)
		assert.Equal(t, s, next, "command %q", cmd.String())
		assert.Equal(t, before, r)
	}
}

func TestMachine_HandleDoesNotMutateInput(t *testing.T) {
	m := wizard.NewMachine(resolution.NewEngine(memory.NewDemoCatalog()))
	s, _ := drive(t, m, domain.NewSession("u1", domain.FlowConfigure), "t-shirt", "tpl:1")
	before := s.Snapshot()

	_, _ = m.Handle(context.Background(), s, command.PickValue{AttributeID: memory.DemoColor, ValueID: memory.DemoRed})
	assert.Equal(t, before, s)
}

func TestMachine_Cancel(t *testing.T) {
	m := wizard.NewMachine(resolution.NewEngine(memory.NewDemoCatalog()))
	s, _ := drive(t, m, domain.NewSession("u1", domain.FlowConfigure), "t-shirt", "tpl:1")

	next, r := m.Handle(context.Background(), s, command.Cancel{})
	assert.Nil(t, next)
	assert.Equal(t, wizard.PromptMenu, r.Prompt)
	assert.Equal(t, wizard.NoticeCancelled, r.Notice)
}

func TestMachine_TemplateWithoutAttributes(t *testing.T) {
	m := wizard.NewMachine(resolution.NewEngine(threeAttributeCatalog()))

	s, r := drive(t, m, domain.NewSession("u1", domain.FlowConfigure), "gift", "tpl:8")
	assert.Equal(t, domain.StageSearching, s.Stage)
	assert.Equal(t, wizard.NoticeNoAttributes, r.Notice)
}

func TestMachine_GatewayFailures(t *testing.T) {
	timeout := &domain.GatewayError{Kind: domain.ErrGatewayTimeout, Message: "Gateway timeout (no response in 60s)."}

	t.Run("Init Returns To Search", func(t *testing.T) {
		stub := &stubConfigurator{Configurator: resolution.NewEngine(memory.NewDemoCatalog()), initErr: timeout}
		m := wizard.NewMachine(stub)

		s, r := drive(t, m, domain.NewSession("u1", domain.FlowConfigure), "t-shirt", "tpl:1")
		assert.Equal(t, domain.StageSearching, s.Stage)
		assert.Nil(t, s.Template)
		assert.Equal(t, "Server error while loading template:\nGateway timeout (no response in 60s).", r.Notice)
	})

	t.Run("Prepare Returns To Search", func(t *testing.T) {
		stub := &stubConfigurator{Configurator: resolution.NewEngine(memory.NewDemoCatalog())}
		m := wizard.NewMachine(stub)
		s, _ := drive(t, m, domain.NewSession("u1", domain.FlowConfigure), "t-shirt", "tpl:1", "val:1:11", "val:2:21", "CODE")

		stub.prepareErr = &domain.SelectionError{TemplateID: 1, Missing: []int64{11}}
		s, r := drive(t, m, s, "BAR")
		assert.Equal(t, domain.StageSearching, s.Stage)
		assert.Contains(t, r.Notice, "Server error on duplicate check")
	})

	t.Run("Create Timeout Keeps Review", func(t *testing.T) {
		cat := memory.NewDemoCatalog()
		stub := &stubConfigurator{Configurator: resolution.NewEngine(cat)}
		m := wizard.NewMachine(stub)
		s, _ := drive(t, m, domain.NewSession("u1", domain.FlowConfigure), "t-shirt", "tpl:1", "val:1:12", "val:2:21", "CODE", "BAR")

		stub.createErr = timeout
		s, r := drive(t, m, s, "create:new")
		assert.Equal(t, domain.StageReviewing, s.Stage)
		assert.Contains(t, r.Notice, "Gateway timeout")
		assert.Len(t, s.Selections(), 2)
		require.NotNil(t, r.Review)

		// Repeating the same action retries.
		stub.createErr = nil
		s, r = drive(t, m, s, "create:new")
		assert.Equal(t, domain.StageFinalized, s.Stage)
		assert.True(t, r.Outcome.Created)
		assert.Empty(t, r.Notice)
	})

	t.Run("Create On Stale Selection Returns To Search", func(t *testing.T) {
		stub := &stubConfigurator{Configurator: resolution.NewEngine(memory.NewDemoCatalog())}
		m := wizard.NewMachine(stub)
		s, _ := drive(t, m, domain.NewSession("u1", domain.FlowConfigure), "t-shirt", "tpl:1", "val:1:12", "val:2:21", "CODE", "BAR")

		stub.createErr = &domain.SelectionError{TemplateID: 1, Missing: []int64{12}}
		s, _ = drive(t, m, s, "create:new")
		assert.Equal(t, domain.StageSearching, s.Stage)
	})

	t.Run("Create On Detail Only Gateway Error Returns To Search", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail": "Selected values not on template 1: [12]"}`))
		}))
		defer srv.Close()
		_, createErr := gateway.New(srv.URL).Create(context.Background(), 1, []domain.Selection{{AttributeID: 1, ValueID: 12}}, "CODE", "BAR")
		require.Error(t, createErr)

		stub := &stubConfigurator{Configurator: resolution.NewEngine(memory.NewDemoCatalog())}
		m := wizard.NewMachine(stub)
		s, _ := drive(t, m, domain.NewSession("u1", domain.FlowConfigure), "t-shirt", "tpl:1", "val:1:12", "val:2:21", "CODE", "BAR")

		stub.createErr = createErr
		s, r := drive(t, m, s, "create:new")
		assert.Equal(t, domain.StageSearching, s.Stage)
		assert.Nil(t, s.Template)
		assert.Contains(t, r.Notice, "Selected values not on template 1")
	})
}

func TestMachine_ListVariantsFlow(t *testing.T) {
	m := wizard.NewMachine(resolution.NewEngine(memory.NewDemoCatalog()))

	s, r := drive(t, m, domain.NewSession("u1", domain.FlowListVariants), "t-shirt")
	assert.Equal(t, "Found 1 matches for “t-shirt”. Pick a base product:", r.Text)

	s, r = drive(t, m, s, "tpl:1")
	assert.Equal(t, domain.StageFinalized, s.Stage)
	require.NotNil(t, r.Listing)
	assert.Equal(t, 1, r.Listing.Count)
	assert.Contains(t, r.Text, "1 variant(s) found.")
	assert.Contains(t, r.Text, "Internal Reference: TSH-RED-M | Barcode: 4000000000017")
	assert.Contains(t, r.Text, "On hand: 12")
}

func TestMachine_SelectionInvariant(t *testing.T) {
	m := wizard.NewMachine(resolution.NewEngine(threeAttributeCatalog()))
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		s, _ := drive(t, m, domain.NewSession("u1", domain.FlowConfigure), "hoodie", "tpl:7")
		for step := 0; step < 12 && s.Stage == domain.StagePickingAttribute; step++ {
			var cmd command.Command = command.Back{}
			if a, ok := s.Current(); ok && rng.Intn(3) > 0 {
				v := a.Values[rng.Intn(len(a.Values))]
				cmd = command.PickValue{AttributeID: a.ID, ValueID: v.ID}
			}
			s, _ = m.Handle(context.Background(), s, cmd)

			selected := 0
			for _, a := range s.Attributes {
				if a.Selected != nil {
					selected++
				}
			}
			seen := map[int64]bool{}
			for _, sel := range s.Selections() {
				assert.False(t, seen[sel.AttributeID], "attribute %d selected twice", sel.AttributeID)
				seen[sel.AttributeID] = true
			}
			assert.Len(t, s.Selections(), selected)
			assert.True(t, s.CurrentIndex >= 0 && s.CurrentIndex <= len(s.Attributes))
			if s.CurrentIndex == len(s.Attributes) {
				assert.True(t, s.Complete())
			}
		}
	}
}

func TestCleanValueName(t *testing.T) {
	tests := []struct {
		attr, value, want string
	}{
		{"THICKNESS", "THICKNESS: 1 mm", "1 mm"},
		{"Thickness", "THICKNESS - 2 mm", "2 mm"},
		{"Color", "Red", "Red"},
		{"Color", "Colorful", "Colorful"},
		{"Color", "color:Red", "Red"},
		{"Size", "Size – XL", "XL"},
		{"Size", "Size XL", "Size XL"},
		{"Grade", "Grade - -5", "-5"},
		{"", " Blue ", "Blue"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wizard.CleanValueName(tt.attr, tt.value))
	}
}
