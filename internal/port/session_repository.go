package port

import (
	"context"

	"github.com/poslane/poslane/internal/core/domain"
)

type SessionRepository interface {
	// Save persists the session before the mutation is considered complete
	Save(ctx context.Context, session domain.Session) error

	// Load returns the stored session; absent or malformed values mean logged out
	Load(ctx context.Context) (domain.Session, error)

	// Erase removes any persisted session data
	Erase(ctx context.Context) error
}
