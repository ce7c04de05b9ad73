package port

import (
	"context"

	"github.com/poslane/poslane/internal/core/domain"
)

type ProductGateway interface {
	// LookupByCode fetches one product by its barcode value
	LookupByCode(ctx context.Context, code string) (*domain.Product, error)
}

type EmployeeGateway interface {
	// Validate reports whether the employee code is known to the remote API
	Validate(ctx context.Context, code string) (bool, error)
}

type TransactionGateway interface {
	// Submit posts the finalized cart lines under the acting employee identity
	Submit(ctx context.Context, employeeCode string, lines []domain.CartItem) error
}
