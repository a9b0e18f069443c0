package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/droppit-app/service-booking/internal/domain"
	userDomain "github.com/droppit-app/service-booking/internal/domain/user"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name            string          `gorm:"not null;size:100"`
	Email           string          `gorm:"uniqueIndex;not null;size:255"`
	Phone           string          `gorm:"size:30"`
	PasswordHash    string          `gorm:"not null;size:255"`
	Role            string          `gorm:"not null;size:20;index"`
	ProfileImageRef string          `gorm:"size:500"`
	Address         json.RawMessage `gorm:"type:jsonb"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (UserModel) TableName() string {
	return "users"
}

// GormUserRepository is the GORM-based implementation of UserRepository.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID retrieves a user by its unique identifier.
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("user", id.String())
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return toDomainUser(&model)
}

// FindByEmail retrieves a user by email, matched case-insensitively.
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*userDomain.User, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("user", email)
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return toDomainUser(&model)
}

// Save persists a new user.
func (r *GormUserRepository) Save(ctx context.Context, u *userDomain.User) error {
	model, err := toUserModel(u)
	if err != nil {
		return fmt.Errorf("failed to convert user to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// Update persists changes to an existing user.
func (r *GormUserRepository) Update(ctx context.Context, u *userDomain.User) error {
	model, err := toUserModel(u)
	if err != nil {
		return fmt.Errorf("failed to convert user to model: %w", err)
	}

	result := r.db.WithContext(ctx).
		Model(&UserModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"name":              model.Name,
			"phone":             model.Phone,
			"password_hash":     model.PasswordHash,
			"profile_image_ref": model.ProfileImageRef,
			"address":           model.Address,
			"updated_at":        model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("user", model.ID.String())
	}
	return nil
}

// --- Conversion Helpers ---

func toUserModel(u *userDomain.User) (*UserModel, error) {
	var addressJSON json.RawMessage
	if u.Address() != nil {
		data, err := json.Marshal(u.Address())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal address: %w", err)
		}
		addressJSON = data
	}

	return &UserModel{
		ID:              u.ID(),
		Name:            u.Name(),
		Email:           u.Email(),
		Phone:           u.Phone(),
		PasswordHash:    u.PasswordHash(),
		Role:            string(u.Role()),
		ProfileImageRef: u.ProfileImageRef(),
		Address:         addressJSON,
		CreatedAt:       u.CreatedAt(),
		UpdatedAt:       u.UpdatedAt(),
	}, nil
}

func toDomainUser(m *UserModel) (*userDomain.User, error) {
	var address *userDomain.Address
	if len(m.Address) > 0 {
		var a userDomain.Address
		if err := json.Unmarshal(m.Address, &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal address: %w", err)
		}
		address = &a
	}

	return userDomain.Reconstruct(
		m.ID,
		m.Name, m.Email, m.Phone, m.PasswordHash,
		userDomain.Role(m.Role),
		m.ProfileImageRef,
		address,
		m.CreatedAt, m.UpdatedAt,
	), nil
}
