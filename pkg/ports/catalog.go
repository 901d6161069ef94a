package ports

import (
	"context"

	"github.com/aretw0/configurator/pkg/domain"
)

// Catalog is the boundary contract of the catalog backend.
type Catalog interface {
	// SearchTemplates matches templates whose name contains query, case-insensitively.
	// When createdBy is set, results are restricted to templates created by the users it
	// resolves to; if it resolves to nobody, the result is empty with an explanatory
	// message and no error.
	SearchTemplates(ctx context.Context, query, createdBy string) (domain.SearchResult, error)

	// GetTemplate returns the template summary.
	// Returns domain.ErrTemplateNotFound if the id is unknown.
	GetTemplate(ctx context.Context, templateID int64) (domain.TemplateSummary, error)

	// GetAttributes returns the ordered attribute catalog of a template.
	// Returns domain.ErrTemplateNotFound if the id is unknown.
	GetAttributes(ctx context.Context, templateID int64) ([]domain.Attribute, error)

	// ResolveCanonical maps raw value ids to their template-scoped canonical ids.
	// Ids that do not exist on the template are absent from the result.
	ResolveCanonical(ctx context.Context, templateID int64, valueIDs []int64) (map[int64]int64, error)

	// FindVariantByCombination returns the first variant, active or archived, whose
	// canonical id set equals canonicalIDs, or nil.
	FindVariantByCombination(ctx context.Context, templateID int64, canonicalIDs []int64) (*domain.VariantInfo, error)

	// CreateVariant creates a variant for the combination.
	// Returns domain.ErrDuplicateCombination if the combination already exists.
	CreateVariant(ctx context.Context, templateID int64, canonicalIDs []int64, defaultCode, barcode string) (domain.VariantInfo, error)

	// ListVariants returns the variants of a template, optionally including archived ones.
	ListVariants(ctx context.Context, templateID int64, activeOnly bool) ([]domain.VariantRow, error)

	// Ping verifies the backend is reachable and authenticated.
	Ping(ctx context.Context) error
}
