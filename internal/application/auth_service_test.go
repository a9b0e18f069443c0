package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/droppit-app/service-booking/internal/auth"
	"github.com/droppit-app/service-booking/internal/domain"
	userDomain "github.com/droppit-app/service-booking/internal/domain/user"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*userDomain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*userDomain.User)}
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*userDomain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("user", id.String())
	}
	return u, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*userDomain.User, error) {
	for _, u := range r.users {
		if u.Email() == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, domain.NewNotFoundError("user", email)
}

func (r *fakeUserRepo) Save(_ context.Context, u *userDomain.User) error {
	r.users[u.ID()] = u
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *userDomain.User) error {
	if _, ok := r.users[u.ID()]; !ok {
		return domain.NewNotFoundError("user", u.ID().String())
	}
	r.users[u.ID()] = u
	return nil
}

func newAuthFixture() (*AuthService, *fakeUserRepo) {
	repo := newFakeUserRepo()
	jwt := auth.NewJWTManager("test-secret", 15*time.Minute, 7*24*time.Hour)
	return NewAuthService(repo, jwt, zap.NewNop()), repo
}

func validSignUp() SignUpRequest {
	return SignUpRequest{
		Name:     "Jordan Lee",
		Email:    "jordan@example.com",
		Phone:    "+15550100",
		Password: "correct-horse-battery",
		Role:     "customer",
	}
}

func TestSignUp_CreatesUserAndTokens(t *testing.T) {
	svc, repo := newAuthFixture()

	result, err := svc.SignUp(context.Background(), validSignUp())
	require.NoError(t, err)

	assert.Equal(t, "jordan@example.com", result.User.Email)
	assert.Equal(t, "customer", result.User.Role)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Len(t, repo.users, 1)

	// The raw password is never stored.
	for _, u := range repo.users {
		assert.NotEqual(t, "correct-horse-battery", u.PasswordHash())
	}
}

func TestSignUp_EmailUniqueCaseInsensitive(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.SignUp(context.Background(), validSignUp())
	require.NoError(t, err)

	dup := validSignUp()
	dup.Email = "JORDAN@Example.COM"
	_, err = svc.SignUp(context.Background(), dup)
	require.Error(t, err)
	assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
}

func TestSignUp_RejectsUnknownRole(t *testing.T) {
	svc, _ := newAuthFixture()

	req := validSignUp()
	req.Role = "superuser"
	_, err := svc.SignUp(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestLogin_Succeeds(t *testing.T) {
	svc, _ := newAuthFixture()
	_, err := svc.SignUp(context.Background(), validSignUp())
	require.NoError(t, err)

	result, err := svc.Login(context.Background(), LoginRequest{
		Email:    "Jordan@example.com",
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
}

func TestLogin_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture()
	_, err := svc.SignUp(context.Background(), validSignUp())
	require.NoError(t, err)

	_, errUnknown := svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	_, errWrong := svc.Login(context.Background(), LoginRequest{
		Email:    "jordan@example.com",
		Password: "wrong-password",
	})

	require.Error(t, errUnknown)
	require.Error(t, errWrong)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
	assert.Equal(t, domain.CodeUnauthorized, domain.CodeOf(errUnknown))
	assert.Equal(t, domain.CodeUnauthorized, domain.CodeOf(errWrong))
}

func TestRefresh_IssuesNewPair(t *testing.T) {
	svc, _ := newAuthFixture()
	signed, err := svc.SignUp(context.Background(), validSignUp())
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), signed.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, signed.User.ID, refreshed.User.ID)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestRefresh_RejectsGarbageToken(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Refresh(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, domain.CodeUnauthorized, domain.CodeOf(err))
}

func TestUpdateProfile_KeepsEmailAndRole(t *testing.T) {
	svc, _ := newAuthFixture()
	signed, err := svc.SignUp(context.Background(), validSignUp())
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(context.Background(), signed.User.ID, UpdateProfileRequest{
		Name:  "Jordan K. Lee",
		Phone: "+15550199",
		Address: &userDomain.Address{
			Street: "42 Elm St", City: "Austin", State: "TX", Zip: "78701",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Jordan K. Lee", updated.Name)
	assert.Equal(t, "+15550199", updated.Phone)
	assert.Equal(t, "jordan@example.com", updated.Email)
	assert.Equal(t, "customer", updated.Role)
	require.NotNil(t, updated.Address)
	assert.Equal(t, "Austin", updated.Address.City)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newAuthFixture()
	signed, err := svc.SignUp(context.Background(), validSignUp())
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), signed.User.ID, ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "new-password-123",
	})
	require.Error(t, err)
	assert.Equal(t, domain.CodeUnauthorized, domain.CodeOf(err))

	err = svc.ChangePassword(context.Background(), signed.User.ID, ChangePasswordRequest{
		CurrentPassword: "correct-horse-battery",
		NewPassword:     "new-password-123",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{
		Email:    "jordan@example.com",
		Password: "new-password-123",
	})
	require.NoError(t, err)
}
