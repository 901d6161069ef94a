/*
Package resolution decides whether a combination of selected values already exists
as a variant of a template, and creates the variant when it does not.

Combination identity is set equality of template-scoped canonical value ids, so the
order in which values were picked never matters. The engine never creates a second
variant for a combination it can see, including when a concurrent request wins the
race to create it.
*/
package resolution

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/configurator/internal/metrics"
	"github.com/aretw0/configurator/pkg/domain"
	"github.com/aretw0/configurator/pkg/ports"
	"go.uber.org/zap"
)

// Messages attached to results.
const (
	MsgExactMatch      = "Exact variant already exists."
	MsgReadyToCreate   = "No exact variant exists yet. Ready to create in the next step."
	MsgAlreadyExists   = "Exact variant already exists. You can use it or change selections."
	MsgCreated         = "Variant created."
	MsgDetectedOnWrite = "Variant already exists (detected during create)."
)

// Engine implements ports.Configurator on top of a catalog backend.
type Engine struct {
	catalog   ports.Catalog
	publisher ports.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

var _ ports.Configurator = (*Engine)(nil)

// Option configures the Engine.
type Option func(*Engine)

// WithPublisher announces committed variants through p.
func WithPublisher(p ports.EventPublisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithLogger configures a logger for the Engine.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates a resolution engine over catalog.
func NewEngine(catalog ports.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search finds templates by name.
func (e *Engine) Search(ctx context.Context, query, createdBy string) (domain.SearchResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return domain.SearchResult{}, fmt.Errorf("%w: query is required", domain.ErrValidation)
	}
	createdBy = strings.TrimSpace(createdBy)

	res, err := e.catalog.SearchTemplates(ctx, q, createdBy)
	if err != nil {
		return domain.SearchResult{}, err
	}
	if res.Matches == nil {
		res.Matches = []domain.TemplateSummary{}
	}
	if res.Message == "" {
		res.Message = matchesMessage(len(res.Matches))
		if createdBy != "" {
			res.Message += fmt.Sprintf(" (created_by=%s)", createdBy)
		}
	}
	return res, nil
}

func matchesMessage(n int) string {
	if n == 1 {
		return "1 match"
	}
	return fmt.Sprintf("%d matches", n)
}

// Init returns the template and its attribute catalog.
func (e *Engine) Init(ctx context.Context, templateID int64) (domain.TemplateCatalog, error) {
	tpl, err := e.catalog.GetTemplate(ctx, templateID)
	if err != nil {
		return domain.TemplateCatalog{}, err
	}
	attrs, err := e.catalog.GetAttributes(ctx, templateID)
	if err != nil {
		return domain.TemplateCatalog{}, err
	}
	if attrs == nil {
		attrs = []domain.Attribute{}
	}
	return domain.TemplateCatalog{Template: tpl, Attributes: attrs}, nil
}

// Prepare maps selections to canonical ids and reports the existing variant, if any.
// It has no side effects.
func (e *Engine) Prepare(ctx context.Context, templateID int64, selections []domain.Selection) (domain.PrepareResult, error) {
	if err := validateSelections(selections); err != nil {
		return domain.PrepareResult{}, err
	}
	tpl, err := e.catalog.GetTemplate(ctx, templateID)
	if err != nil {
		return domain.PrepareResult{}, err
	}
	attrs, err := e.catalog.GetAttributes(ctx, templateID)
	if err != nil {
		return domain.PrepareResult{}, err
	}

	canonical, ids, err := e.resolve(ctx, templateID, selections)
	if err != nil {
		return domain.PrepareResult{}, err
	}

	existing, err := e.catalog.FindVariantByCombination(ctx, templateID, ids)
	if err != nil {
		return domain.PrepareResult{}, err
	}

	res := domain.PrepareResult{
		Template:        tpl,
		Selections:      enrich(attrs, selections, canonical),
		CanonicalIDs:    ids,
		ExistingVariant: existing,
		Message:         MsgReadyToCreate,
	}
	if existing != nil {
		res.Message = MsgExactMatch
	}
	return res, nil
}

// Create creates the variant for selections unless one already exists.
// A variant created concurrently by another request is returned with Created=false.
func (e *Engine) Create(ctx context.Context, templateID int64, selections []domain.Selection, defaultCode, barcode string) (domain.CreateResult, error) {
	if err := validateSelections(selections); err != nil {
		return domain.CreateResult{}, err
	}
	if _, err := e.catalog.GetTemplate(ctx, templateID); err != nil {
		return domain.CreateResult{}, err
	}

	_, ids, err := e.resolve(ctx, templateID, selections)
	if err != nil {
		return domain.CreateResult{}, err
	}

	existing, err := e.catalog.FindVariantByCombination(ctx, templateID, ids)
	if err != nil {
		return domain.CreateResult{}, err
	}
	if existing != nil {
		return e.reused(ctx, templateID, ids, *existing, MsgAlreadyExists), nil
	}

	variant, err := e.catalog.CreateVariant(ctx, templateID, ids, strings.TrimSpace(defaultCode), strings.TrimSpace(barcode))
	if err != nil {
		if !errors.Is(err, domain.ErrDuplicateCombination) {
			return domain.CreateResult{}, fmt.Errorf("create variant: %w", err)
		}
		e.logger.Info("concurrent variant creation detected",
			zap.Int64("template_id", templateID),
			zap.Int64s("ptav_ids", ids),
		)
		winner, findErr := e.catalog.FindVariantByCombination(ctx, templateID, ids)
		if findErr != nil {
			return domain.CreateResult{}, fmt.Errorf("re-check after duplicate: %w", findErr)
		}
		if winner == nil {
			return domain.CreateResult{}, &domain.GatewayError{
				Kind:    domain.ErrGateway,
				Cause:   err,
				Message: "create rejected as duplicate but no matching variant found: " + err.Error(),
			}
		}
		return e.reused(ctx, templateID, ids, *winner, MsgDetectedOnWrite), nil
	}

	metrics.VariantsCommitted.WithLabelValues("created").Inc()
	e.publish(ctx, domain.EventVariantCreated, templateID, ids, variant)
	e.logger.Info("variant created",
		zap.Int64("template_id", templateID),
		zap.Int64("variant_id", variant.ID),
	)
	return domain.CreateResult{Created: true, Variant: variant, Message: MsgCreated}, nil
}

// ListVariants lists the variants of a template with their attribute values sorted by
// attribute name.
func (e *Engine) ListVariants(ctx context.Context, templateID int64, activeOnly bool) (domain.VariantList, error) {
	tpl, err := e.catalog.GetTemplate(ctx, templateID)
	if err != nil {
		return domain.VariantList{}, err
	}
	rows, err := e.catalog.ListVariants(ctx, templateID, activeOnly)
	if err != nil {
		return domain.VariantList{}, err
	}
	if rows == nil {
		rows = []domain.VariantRow{}
	}
	for i := range rows {
		values := rows[i].Values
		sort.SliceStable(values, func(a, b int) bool {
			return strings.ToLower(values[a].Attribute) < strings.ToLower(values[b].Attribute)
		})
	}
	return domain.VariantList{Template: tpl, Count: len(rows), Variants: rows}, nil
}

func (e *Engine) reused(ctx context.Context, templateID int64, ids []int64, v domain.VariantInfo, msg string) domain.CreateResult {
	metrics.VariantsCommitted.WithLabelValues("reused").Inc()
	e.publish(ctx, domain.EventVariantReused, templateID, ids, v)
	return domain.CreateResult{Created: false, Variant: v, Message: msg}
}

// resolve maps the selected raw values to canonical ids, in selection order.
func (e *Engine) resolve(ctx context.Context, templateID int64, selections []domain.Selection) (map[int64]int64, []int64, error) {
	valueIDs := make([]int64, len(selections))
	for i, s := range selections {
		valueIDs[i] = s.ValueID
	}

	canonical, err := e.catalog.ResolveCanonical(ctx, templateID, valueIDs)
	if err != nil {
		return nil, nil, err
	}

	var missing []int64
	ids := make([]int64, 0, len(valueIDs))
	for _, v := range valueIDs {
		c, ok := canonical[v]
		if !ok {
			missing = append(missing, v)
			continue
		}
		ids = append(ids, c)
	}
	if len(missing) > 0 {
		return nil, nil, &domain.SelectionError{TemplateID: templateID, Missing: missing}
	}
	return canonical, ids, nil
}

func (e *Engine) publish(ctx context.Context, typ domain.EventType, templateID int64, ids []int64, v domain.VariantInfo) {
	if e.publisher == nil {
		return
	}
	event := domain.VariantEvent{
		Timestamp:    e.now(),
		Type:         typ,
		TemplateID:   templateID,
		CanonicalIDs: ids,
		Variant:      v,
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("failed to publish variant event",
			zap.String("type", string(typ)),
			zap.Int64("variant_id", v.ID),
			zap.Error(err),
		)
	}
}

func validateSelections(selections []domain.Selection) error {
	if len(selections) == 0 {
		return fmt.Errorf("%w: at least one selection is required", domain.ErrValidation)
	}
	seen := make(map[int64]bool, len(selections))
	for _, s := range selections {
		if seen[s.AttributeID] {
			return fmt.Errorf("%w: attribute %d selected more than once", domain.ErrValidation, s.AttributeID)
		}
		seen[s.AttributeID] = true
	}
	return nil
}

func enrich(attrs []domain.Attribute, selections []domain.Selection, canonical map[int64]int64) []domain.EnrichedSelection {
	byID := make(map[int64]domain.Attribute, len(attrs))
	for _, a := range attrs {
		byID[a.ID] = a
	}
	out := make([]domain.EnrichedSelection, len(selections))
	for i, s := range selections {
		es := domain.EnrichedSelection{AttributeID: s.AttributeID, ValueID: s.ValueID}
		if a, ok := byID[s.AttributeID]; ok {
			es.AttributeName = a.Name
			if v, ok := a.FindValue(s.ValueID); ok {
				es.ValueName = v.Name
			}
		}
		if c, ok := canonical[s.ValueID]; ok {
			es.CanonicalID = &c
		}
		out[i] = es
	}
	return out
}

// Ping checks that the catalog backend is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	return e.catalog.Ping(ctx)
}
