package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/droppit-app/service-booking/internal/domain"
	paymentDomain "github.com/droppit-app/service-booking/internal/domain/payment"
)

// PaymentModel is the GORM model for the payments table.
type PaymentModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PaymentIntentID string     `gorm:"uniqueIndex;not null;size:100"`
	BookingID       *uuid.UUID `gorm:"type:uuid;index"`
	AmountCents     int64      `gorm:"not null"`
	Currency        string     `gorm:"not null;size:3;default:'USD'"`
	Status          string     `gorm:"not null;size:20;index"`
	CreatedAt       time.Time  `gorm:"not null"`
	UpdatedAt       time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (PaymentModel) TableName() string {
	return "payments"
}

// GormPaymentRepository is the GORM-based implementation of PaymentRepository.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository.
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID retrieves a payment by its unique identifier.
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*paymentDomain.Payment, error) {
	var model PaymentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("payment", id.String())
		}
		return nil, fmt.Errorf("failed to find payment by ID: %w", err)
	}
	return toDomainPayment(&model), nil
}

// FindByIntentID retrieves a payment by its Stripe payment intent id.
func (r *GormPaymentRepository) FindByIntentID(ctx context.Context, paymentIntentID string) (*paymentDomain.Payment, error) {
	var model PaymentModel
	if err := r.db.WithContext(ctx).Where("payment_intent_id = ?", paymentIntentID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("payment", paymentIntentID)
		}
		return nil, fmt.Errorf("failed to find payment by intent ID: %w", err)
	}
	return toDomainPayment(&model), nil
}

// Save persists a new payment.
func (r *GormPaymentRepository) Save(ctx context.Context, p *paymentDomain.Payment) error {
	if err := r.db.WithContext(ctx).Create(toPaymentModel(p)).Error; err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

// Update persists changes to an existing payment.
func (r *GormPaymentRepository) Update(ctx context.Context, p *paymentDomain.Payment) error {
	model := toPaymentModel(p)
	result := r.db.WithContext(ctx).
		Model(&PaymentModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"booking_id": model.BookingID,
			"status":     model.Status,
			"updated_at": model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update payment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("payment", model.ID.String())
	}
	return nil
}

// --- Conversion Helpers ---

func toPaymentModel(p *paymentDomain.Payment) *PaymentModel {
	return &PaymentModel{
		ID:              p.ID(),
		PaymentIntentID: p.PaymentIntentID(),
		BookingID:       p.BookingID(),
		AmountCents:     p.AmountCents(),
		Currency:        p.Currency(),
		Status:          string(p.Status()),
		CreatedAt:       p.CreatedAt(),
		UpdatedAt:       p.UpdatedAt(),
	}
}

func toDomainPayment(m *PaymentModel) *paymentDomain.Payment {
	return paymentDomain.Reconstruct(
		m.ID,
		m.PaymentIntentID,
		m.BookingID,
		m.AmountCents,
		m.Currency,
		paymentDomain.Status(m.Status),
		m.CreatedAt,
		m.UpdatedAt,
	)
}
