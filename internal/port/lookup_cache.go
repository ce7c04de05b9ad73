package port

import (
	"context"

	"github.com/poslane/poslane/internal/core/domain"
)

type LookupCache interface {
	// Get returns the cached product for a code, reporting whether it was present
	Get(ctx context.Context, code string) (*domain.Product, bool, error)

	// Put stores a lookup result for later scans of the same code
	Put(ctx context.Context, product domain.Product) error
}
