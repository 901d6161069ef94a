package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/configurator/pkg/domain"
	"github.com/aretw0/configurator/pkg/ports"
)

const searchLimit = 20

// User is a catalog user that templates can be attributed to.
type User struct {
	ID    int64
	Name  string
	Login string
}

// TemplateSpec seeds a template with its attribute lines.
type TemplateSpec struct {
	ID          int64
	Name        string
	DefaultCode string
	CreatedBy   int64
	Attributes  []domain.Attribute
}

// CreateHook runs before a variant is created. Returning an error aborts the creation.
type CreateHook func(templateID int64, canonicalIDs []int64) error

type template struct {
	summary    domain.TemplateSummary
	createdBy  int64
	attributes []domain.Attribute
	canonical  map[int64]int64 // raw value id -> canonical id
}

type canonicalValue struct {
	attributeID int64
	valueID     int64
}

type variant struct {
	info       domain.VariantInfo
	templateID int64
	canonical  []int64
	qty        float64
}

// Catalog is an in-memory ports.Catalog. Canonical ids are assigned per template and
// value, so the same raw value yields different canonical ids on different templates.
// Safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	users     []User
	order     []int64
	templates map[int64]*template
	values    map[int64]canonicalValue // canonical id -> attribute/value
	variants  []*variant
	nextPTAV  int64
	nextVar   int64
	onCreate  CreateHook
	creates   int
}

var _ ports.Catalog = (*Catalog)(nil)

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		templates: make(map[int64]*template),
		values:    make(map[int64]canonicalValue),
		nextPTAV:  1000,
		nextVar:   5000,
	}
}

// AddUser registers a user for created_by filtering.
func (c *Catalog) AddUser(u User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = append(c.users, u)
}

// AddTemplate registers a template and assigns canonical ids to its values.
func (c *Catalog) AddTemplate(spec TemplateSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &template{
		summary:   domain.TemplateSummary{ID: spec.ID, Name: spec.Name, DefaultCode: spec.DefaultCode},
		createdBy: spec.CreatedBy,
		canonical: make(map[int64]int64),
	}
	for _, a := range spec.Attributes {
		cp := a
		cp.Values = append([]domain.Value(nil), a.Values...)
		t.attributes = append(t.attributes, cp)
		for _, v := range a.Values {
			c.nextPTAV++
			t.canonical[v.ID] = c.nextPTAV
			c.values[c.nextPTAV] = canonicalValue{attributeID: a.ID, valueID: v.ID}
		}
	}
	if _, exists := c.templates[spec.ID]; !exists {
		c.order = append(c.order, spec.ID)
	}
	c.templates[spec.ID] = t
}

// AddVariant seeds an active variant for raw value ids, bypassing the duplicate check.
func (c *Catalog) AddVariant(templateID int64, valueIDs []int64, defaultCode, barcode string) (domain.VariantInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.templates[templateID]
	if !ok {
		return domain.VariantInfo{}, domain.ErrTemplateNotFound
	}
	ids := make([]int64, 0, len(valueIDs))
	for _, v := range valueIDs {
		cid, ok := t.canonical[v]
		if !ok {
			return domain.VariantInfo{}, &domain.SelectionError{TemplateID: templateID, Missing: []int64{v}}
		}
		ids = append(ids, cid)
	}
	c.nextVar++
	info := domain.VariantInfo{
		ID:          c.nextVar,
		DisplayName: c.displayName(t, ids),
		DefaultCode: defaultCode,
		Barcode:     barcode,
		Active:      true,
	}
	c.variants = append(c.variants, &variant{info: info, templateID: templateID, canonical: ids})
	return info, nil
}

// Archive marks a variant inactive. Archived variants still count for combination lookups.
func (c *Catalog) Archive(variantID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.variants {
		if v.info.ID == variantID {
			v.info.Active = false
		}
	}
}

// SetQty sets the on-hand quantity reported for a variant.
func (c *Catalog) SetQty(variantID int64, qty float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.variants {
		if v.info.ID == variantID {
			v.qty = qty
		}
	}
}

// OnCreate installs a hook that runs before each CreateVariant.
func (c *Catalog) OnCreate(hook CreateHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCreate = hook
}

// CreateCalls returns how many times CreateVariant was invoked.
func (c *Catalog) CreateCalls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creates
}

// VariantCount returns the number of variants of a template, archived included.
func (c *Catalog) VariantCount(templateID int64) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, v := range c.variants {
		if v.templateID == templateID {
			n++
		}
	}
	return n
}

// SearchTemplates implements ports.Catalog.
func (c *Catalog) SearchTemplates(ctx context.Context, query, createdBy string) (domain.SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var owners map[int64]bool
	if createdBy != "" {
		owners = c.resolveUsers(createdBy)
		if len(owners) == 0 {
			return domain.SearchResult{
				Matches: []domain.TemplateSummary{},
				Message: fmt.Sprintf("No users match '%s'", createdBy),
			}, nil
		}
	}

	q := strings.ToLower(query)
	matches := []domain.TemplateSummary{}
	for _, id := range c.order {
		t := c.templates[id]
		if !strings.Contains(strings.ToLower(t.summary.Name), q) {
			continue
		}
		if owners != nil && !owners[t.createdBy] {
			continue
		}
		matches = append(matches, t.summary)
		if len(matches) == searchLimit {
			break
		}
	}
	return domain.SearchResult{Matches: matches}, nil
}

// resolveUsers matches by exact name or login first, then by name substring.
func (c *Catalog) resolveUsers(expr string) map[int64]bool {
	out := make(map[int64]bool)
	for _, u := range c.users {
		if u.Name == expr || u.Login == expr {
			out[u.ID] = true
		}
	}
	if len(out) > 0 {
		return out
	}
	lower := strings.ToLower(expr)
	for _, u := range c.users {
		if strings.Contains(strings.ToLower(u.Name), lower) {
			out[u.ID] = true
		}
	}
	return out
}

// GetTemplate implements ports.Catalog.
func (c *Catalog) GetTemplate(ctx context.Context, templateID int64) (domain.TemplateSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[templateID]
	if !ok {
		return domain.TemplateSummary{}, fmt.Errorf("%w: product.template %d not found", domain.ErrTemplateNotFound, templateID)
	}
	return t.summary, nil
}

// GetAttributes implements ports.Catalog.
func (c *Catalog) GetAttributes(ctx context.Context, templateID int64) ([]domain.Attribute, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[templateID]
	if !ok {
		return nil, fmt.Errorf("%w: product.template %d not found", domain.ErrTemplateNotFound, templateID)
	}
	out := make([]domain.Attribute, len(t.attributes))
	for i, a := range t.attributes {
		out[i] = a
		out[i].Values = append([]domain.Value(nil), a.Values...)
	}
	return out, nil
}

// ResolveCanonical implements ports.Catalog.
func (c *Catalog) ResolveCanonical(ctx context.Context, templateID int64, valueIDs []int64) (map[int64]int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[int64]int64)
	t, ok := c.templates[templateID]
	if !ok {
		return out, nil
	}
	for _, v := range valueIDs {
		if cid, ok := t.canonical[v]; ok {
			out[v] = cid
		}
	}
	return out, nil
}

// FindVariantByCombination implements ports.Catalog with a full scan in creation order.
func (c *Catalog) FindVariantByCombination(ctx context.Context, templateID int64, canonicalIDs []int64) (*domain.VariantInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v := c.find(templateID, canonicalIDs); v != nil {
		info := v.info
		return &info, nil
	}
	return nil, nil
}

func (c *Catalog) find(templateID int64, canonicalIDs []int64) *variant {
	if len(canonicalIDs) == 0 {
		return nil
	}
	want := toSet(canonicalIDs)
	for _, v := range c.variants {
		if v.templateID != templateID {
			continue
		}
		if sameSet(want, toSet(v.canonical)) {
			return v
		}
	}
	return nil
}

// CreateVariant implements ports.Catalog.
func (c *Catalog) CreateVariant(ctx context.Context, templateID int64, canonicalIDs []int64, defaultCode, barcode string) (domain.VariantInfo, error) {
	c.mu.Lock()
	c.creates++
	hook := c.onCreate
	c.mu.Unlock()

	if hook != nil {
		if err := hook(templateID, canonicalIDs); err != nil {
			return domain.VariantInfo{}, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.templates[templateID]
	if !ok {
		return domain.VariantInfo{}, fmt.Errorf("%w: product.template %d not found", domain.ErrTemplateNotFound, templateID)
	}
	for _, id := range canonicalIDs {
		if cv, ok := c.values[id]; !ok || t.canonical[cv.valueID] != id {
			return domain.VariantInfo{}, fmt.Errorf("canonical value %d does not belong to template %d", id, templateID)
		}
	}
	if c.find(templateID, canonicalIDs) != nil {
		return domain.VariantInfo{}, domain.ErrDuplicateCombination
	}

	c.nextVar++
	v := &variant{
		info: domain.VariantInfo{
			ID:          c.nextVar,
			DisplayName: c.displayName(t, canonicalIDs),
			DefaultCode: defaultCode,
			Barcode:     barcode,
			Active:      true,
		},
		templateID: templateID,
		canonical:  append([]int64(nil), canonicalIDs...),
	}
	c.variants = append(c.variants, v)
	return v.info, nil
}

// ListVariants implements ports.Catalog.
func (c *Catalog) ListVariants(ctx context.Context, templateID int64, activeOnly bool) ([]domain.VariantRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.templates[templateID]
	if !ok {
		return nil, fmt.Errorf("%w: product.template %d not found", domain.ErrTemplateNotFound, templateID)
	}

	rows := []domain.VariantRow{}
	for _, v := range c.variants {
		if v.templateID != templateID || (activeOnly && !v.info.Active) {
			continue
		}
		row := domain.VariantRow{
			ID:          v.info.ID,
			DisplayName: v.info.DisplayName,
			DefaultCode: v.info.DefaultCode,
			Barcode:     v.info.Barcode,
			QtyOnHand:   v.qty,
			Values:      []domain.ValuePair{},
		}
		for _, cid := range v.canonical {
			attr, val := c.names(t, cid)
			row.Values = append(row.Values, domain.ValuePair{Attribute: attr, Value: val})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Ping implements ports.Catalog.
func (c *Catalog) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (c *Catalog) names(t *template, canonicalID int64) (string, string) {
	cv, ok := c.values[canonicalID]
	if !ok {
		return "", ""
	}
	for _, a := range t.attributes {
		if a.ID != cv.attributeID {
			continue
		}
		v, _ := a.FindValue(cv.valueID)
		return a.Name, v.Name
	}
	return "", ""
}

func (c *Catalog) displayName(t *template, canonicalIDs []int64) string {
	parts := make([]string, 0, len(canonicalIDs))
	for _, cid := range canonicalIDs {
		if _, val := c.names(t, cid); val != "" {
			parts = append(parts, val)
		}
	}
	if len(parts) == 0 {
		return t.summary.Name
	}
	return fmt.Sprintf("%s (%s)", t.summary.Name, strings.Join(parts, ", "))
}

func toSet(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 0
	for i, id := range out {
		if i == 0 || id != out[n-1] {
			out[n] = id
			n++
		}
	}
	return out[:n]
}

func sameSet(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
