package ports

import (
	"context"

	"github.com/aretw0/configurator/pkg/domain"
)

// EventPublisher announces committed variants to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.VariantEvent) error
}
