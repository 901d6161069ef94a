package ports

import (
	"context"

	"github.com/aretw0/configurator/pkg/domain"
)

// SessionStore persists the wizard session of each user.
type SessionStore interface {
	// Save persists the session for a given user, replacing any previous one.
	Save(ctx context.Context, userID string, session *domain.Session) error

	// Load retrieves the session for a given user.
	// Returns domain.ErrSessionNotFound if the user has no session.
	Load(ctx context.Context, userID string) (*domain.Session, error)

	// Delete removes the session for a given user. Deleting a missing session is not an error.
	Delete(ctx context.Context, userID string) error

	// List returns the users that currently hold a session.
	List(ctx context.Context) ([]string, error)
}
