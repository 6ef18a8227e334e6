package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/request-hub/internal/auth"
	"github.com/spec-kit/request-hub/internal/config"
	"github.com/spec-kit/request-hub/internal/domain"
)

type authFixture struct {
	svc    *AuthService
	users  *fakeUserRepo
	resets *fakeResetRepo
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:  newFakeUserRepo(),
		resets: newFakeResetRepo(),
	}
	f.svc = NewAuthService(AuthDependencies{
		UserRepo:  f.users,
		ResetRepo: f.resets,
		Tokens:    auth.NewTokenManager("test-secret", 60),
		Logger:    zap.NewNop(),
		// Low bcrypt cost keeps the tests fast.
		Config: config.AuthConfig{BcryptCost: 4, PasswordResetTTLMinutes: 30},
	})
	return f
}

func (f *authFixture) register(t *testing.T, email string) *domain.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), RegisterInput{
		Name:            "Rita Req",
		Email:           email,
		Password:        "hunter2hunter2",
		ConfirmPassword: "hunter2hunter2",
	})
	require.NoError(t, err)
	return user
}

func TestRegisterCreatesRequestor(t *testing.T) {
	f := newAuthFixture(t)

	user := f.register(t, "Rita@Example.com")
	assert.Equal(t, domain.RoleRequestor, user.Role)
	assert.Equal(t, "rita@example.com", user.Email)
	assert.True(t, user.Active)
	assert.NotEqual(t, "hunter2hunter2", user.PasswordHash)
}

func TestRegisterValidatesPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Rita", Email: "rita@example.com",
		Password: "short", ConfirmPassword: "short",
	})
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	_, err = f.svc.Register(context.Background(), RegisterInput{
		Name: "Rita", Email: "rita@example.com",
		Password: "longenough1", ConfirmPassword: "longenough2",
	})
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "rita@example.com")

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Other", Email: "RITA@example.com",
		Password: "hunter2hunter2", ConfirmPassword: "hunter2hunter2",
	})
	assert.Equal(t, "CONFLICT", errCode(t, err))
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "rita@example.com")

	result, err := f.svc.Login(context.Background(), "rita@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.NotEmpty(t, result.Token)

	_, err = f.svc.Login(context.Background(), "rita@example.com", "wrong-password")
	assert.Equal(t, "UNAUTHORIZED", errCode(t, err))

	_, err = f.svc.Login(context.Background(), "nobody@example.com", "hunter2hunter2")
	assert.Equal(t, "UNAUTHORIZED", errCode(t, err))
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "rita@example.com")
	admin := f.users.add(domain.User{Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin, Active: true})
	require.NoError(t, f.svc.SetActive(context.Background(), admin, user.ID, false))

	_, err := f.svc.Login(context.Background(), "rita@example.com", "hunter2hunter2")
	assert.Equal(t, "UNAUTHORIZED", errCode(t, err))
}

func TestChangePasswordChecksCurrent(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "rita@example.com")

	err := f.svc.ChangePassword(context.Background(), user, "wrong", "newpassword1", "newpassword1")
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	require.NoError(t, f.svc.ChangePassword(context.Background(), user, "hunter2hunter2", "newpassword1", "newpassword1"))
	_, err = f.svc.Login(context.Background(), "rita@example.com", "newpassword1")
	assert.NoError(t, err)
}

func TestAdminCreateUserRoles(t *testing.T) {
	f := newAuthFixture(t)
	admin := f.users.add(domain.User{Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin, Active: true})

	engineer, err := f.svc.AdminCreateUser(context.Background(), admin, RegisterInput{
		Name: "Eddie", Email: "eddie@example.com",
		Password: "hunter2hunter2", ConfirmPassword: "hunter2hunter2",
	}, domain.RoleEngineer)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEngineer, engineer.Role)

	_, err = f.svc.AdminCreateUser(context.Background(), admin, RegisterInput{
		Name: "Bad", Email: "bad@example.com",
		Password: "hunter2hunter2", ConfirmPassword: "hunter2hunter2",
	}, domain.Role("superuser"))
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	_, err = f.svc.AdminCreateUser(context.Background(), engineer, RegisterInput{}, domain.RoleAdmin)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "rita@example.com")

	// Unknown email must not error.
	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
	assert.Empty(t, f.resets.tokens)

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "rita@example.com"))
	require.Len(t, f.resets.tokens, 1)
	var tokenStr string
	for token := range f.resets.tokens {
		tokenStr = token
	}

	require.NoError(t, f.svc.ResetPassword(context.Background(), tokenStr, "freshpassword", "freshpassword"))
	_, err := f.svc.Login(context.Background(), "rita@example.com", "freshpassword")
	assert.NoError(t, err)

	// A consumed token cannot be reused.
	err = f.svc.ResetPassword(context.Background(), tokenStr, "anotherpass1", "anotherpass1")
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}
