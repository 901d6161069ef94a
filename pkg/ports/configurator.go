package ports

import (
	"context"

	"github.com/aretw0/configurator/pkg/domain"
)

// Configurator is the set of operations the wizard needs from the catalog side.
// It is served in-process by the resolution engine or remotely through the gateway.
type Configurator interface {
	Search(ctx context.Context, query, createdBy string) (domain.SearchResult, error)
	Init(ctx context.Context, templateID int64) (domain.TemplateCatalog, error)
	Prepare(ctx context.Context, templateID int64, selections []domain.Selection) (domain.PrepareResult, error)
	Create(ctx context.Context, templateID int64, selections []domain.Selection, defaultCode, barcode string) (domain.CreateResult, error)
	ListVariants(ctx context.Context, templateID int64, activeOnly bool) (domain.VariantList, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
