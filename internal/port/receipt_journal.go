package port

import (
	"context"

	"github.com/poslane/poslane/internal/core/domain"
)

type ReceiptJournal interface {
	// Append records a completed submission on the lane
	Append(ctx context.Context, receipt domain.Receipt) error

	// Recent returns up to limit receipts, newest first
	Recent(ctx context.Context, limit int) ([]domain.Receipt, error)
}
