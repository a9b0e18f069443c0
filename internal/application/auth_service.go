package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/droppit-app/service-booking/internal/auth"
	"github.com/droppit-app/service-booking/internal/domain"
	userDomain "github.com/droppit-app/service-booking/internal/domain/user"
)

// SignUpRequest is the registration payload.
type SignUpRequest struct {
	Name     string              `json:"name" binding:"required"`
	Email    string              `json:"email" binding:"required,email"`
	Phone    string              `json:"phone"`
	Password string              `json:"password" binding:"required,min=8"`
	Role     string              `json:"role" binding:"required"`
	Address  *userDomain.Address `json:"address"`
}

// LoginRequest is the credentials payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest is the partial profile-update payload.
type UpdateProfileRequest struct {
	Name            string              `json:"name"`
	Phone           string              `json:"phone"`
	ProfileImageRef string              `json:"profile_image_ref"`
	Address         *userDomain.Address `json:"address"`
}

// ChangePasswordRequest carries the old and new passwords.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// UserDTO is the API representation of a user.
type UserDTO struct {
	ID              uuid.UUID           `json:"id"`
	Name            string              `json:"name"`
	Email           string              `json:"email"`
	Phone           string              `json:"phone,omitempty"`
	Role            string              `json:"role"`
	ProfileImageRef string              `json:"profile_image_ref,omitempty"`
	Address         *userDomain.Address `json:"address,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// AuthResult bundles the authenticated user with its token pair.
type AuthResult struct {
	User         UserDTO `json:"user"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
}

// AuthService implements registration, login and profile use cases.
type AuthService struct {
	repo   userDomain.UserRepository
	jwt    *auth.JWTManager
	logger *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo userDomain.UserRepository, jwt *auth.JWTManager, logger *zap.Logger) *AuthService {
	return &AuthService{repo: repo, jwt: jwt, logger: logger}
}

// SignUp registers a new user. Emails are unique case-insensitively.
func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest) (*AuthResult, error) {
	role, err := userDomain.ParseRole(req.Role)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if existing, err := s.repo.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, domain.NewConflictError("an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u, err := userDomain.NewUser(req.Name, email, req.Phone, string(hash), role)
	if err != nil {
		return nil, err
	}
	if req.Address != nil {
		if err := u.UpdateProfile(u.Name(), u.Phone(), u.ProfileImageRef(), req.Address); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Save(ctx, u); err != nil {
		s.logger.Error("failed to save user", zap.Error(err))
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	tokens, err := s.jwt.GeneratePair(u)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", u.ID().String()),
		zap.String("role", string(u.Role())),
	)

	return &AuthResult{
		User:         toUserDTO(u),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// Login authenticates by email and password. Unknown email and wrong password
// produce the same error.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, domain.NewUnauthorizedError("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash()), []byte(req.Password)); err != nil {
		return nil, domain.NewUnauthorizedError("invalid email or password")
	}

	tokens, err := s.jwt.GeneratePair(u)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	return &AuthResult{
		User:         toUserDTO(u),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.jwt.Verify(refreshToken)
	if err != nil {
		return nil, domain.NewUnauthorizedError("invalid refresh token")
	}

	userID, _, err := claims.Identity()
	if err != nil {
		return nil, domain.NewUnauthorizedError("invalid refresh token")
	}

	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, domain.NewUnauthorizedError("account no longer exists")
	}

	tokens, err := s.jwt.GeneratePair(u)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	return &AuthResult{
		User:         toUserDTO(u),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// GetUser returns the user's profile.
func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := toUserDTO(u)
	return &dto, nil
}

// UpdateProfile updates mutable profile fields. Email and role are immutable.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserDTO, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = u.Name()
	}
	phone := req.Phone
	if phone == "" {
		phone = u.Phone()
	}
	imageRef := req.ProfileImageRef
	if imageRef == "" {
		imageRef = u.ProfileImageRef()
	}
	address := req.Address
	if address == nil {
		address = u.Address()
	}

	if err := u.UpdateProfile(name, phone, imageRef, address); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, u); err != nil {
		s.logger.Error("failed to update profile", zap.Error(err))
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	dto := toUserDTO(u)
	return &dto, nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash()), []byte(req.CurrentPassword)); err != nil {
		return domain.NewUnauthorizedError("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := u.ChangePasswordHash(string(hash)); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	s.logger.Info("password changed", zap.String("user_id", userID.String()))
	return nil
}

func toUserDTO(u *userDomain.User) UserDTO {
	return UserDTO{
		ID:              u.ID(),
		Name:            u.Name(),
		Email:           u.Email(),
		Phone:           u.Phone(),
		Role:            string(u.Role()),
		ProfileImageRef: u.ProfileImageRef(),
		Address:         u.Address(),
		CreatedAt:       u.CreatedAt(),
	}
}
