package payment

import (
	"context"

	"github.com/google/uuid"
)

// PaymentRepository defines persistence operations for payment records.
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByIntentID(ctx context.Context, paymentIntentID string) (*Payment, error)
	Save(ctx context.Context, payment *Payment) error
	Update(ctx context.Context, payment *Payment) error
}
