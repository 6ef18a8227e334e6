package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/request-hub/internal/auth"
	"github.com/spec-kit/request-hub/internal/config"
	"github.com/spec-kit/request-hub/internal/domain"
	"github.com/spec-kit/request-hub/internal/repository"
	apperrors "github.com/spec-kit/request-hub/pkg/util"
)

const minPasswordLength = 8

// AuthService handles registration, login and password management.
type AuthService struct {
	users  repository.UserRepository
	resets repository.PasswordResetRepository
	tokens *auth.TokenManager
	logger *zap.Logger
	cfg    config.AuthConfig
}

// AuthDependencies bundles collaborators.
type AuthDependencies struct {
	UserRepo  repository.UserRepository
	ResetRepo repository.PasswordResetRepository
	Tokens    *auth.TokenManager
	Logger    *zap.Logger
	Config    config.AuthConfig
}

// NewAuthService creates the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:  deps.UserRepo,
		resets: deps.ResetRepo,
		tokens: deps.Tokens,
		logger: deps.Logger,
		cfg:    deps.Config,
	}
}

// RegisterInput carries sign-up fields. Self-registration always creates a
// requestor; admins create engineer and admin accounts separately.
type RegisterInput struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
}

// LoginResult is the issued session.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Register creates a requestor account.
func (a *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	return a.createUser(ctx, input, domain.RoleRequestor)
}

// AdminCreateUser creates an account with any role. Admin only.
func (a *AuthService) AdminCreateUser(ctx context.Context, actor *domain.User, input RegisterInput, role domain.Role) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	switch role {
	case domain.RoleRequestor, domain.RoleEngineer, domain.RoleAdmin:
	default:
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"field": "role"})
	}
	return a.createUser(ctx, input, role)
}

func (a *AuthService) createUser(ctx context.Context, input RegisterInput, role domain.Role) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" {
		return nil, apperrors.NewValidationError("Name is required.", map[string]any{"field": "name"})
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("A valid email is required.", map[string]any{"field": "email"})
	}
	if err := validateNewPassword(input.Password, input.ConfirmPassword); err != nil {
		return nil, err
	}

	if existing, err := a.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("An account with this email already exists.", map[string]any{
			"field": "email",
		})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, a.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := a.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	a.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// Login verifies credentials and issues a JWT.
func (a *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid email or password")
		}
		return nil, apperrors.MapError(err)
	}
	if !user.Active {
		return nil, apperrors.NewUnauthorized("account is disabled")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid email or password")
	}

	token, expiresAt, err := a.tokens.GenerateToken(user)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// ChangePassword rotates a signed-in user's password after verifying the
// current one.
func (a *AuthService) ChangePassword(ctx context.Context, user *domain.User, current, next, confirm string) error {
	if err := auth.ComparePassword(user.PasswordHash, current); err != nil {
		return apperrors.NewValidationError("Current password is incorrect.", map[string]any{
			"field": "current_password",
		})
	}
	if err := validateNewPassword(next, confirm); err != nil {
		return err
	}

	hash, err := auth.HashPassword(next, a.cfg.BcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}
	user.PasswordHash = hash
	if err := a.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	a.logger.Info("password changed", zap.Int64("user_id", user.ID))
	return nil
}

// RequestPasswordReset issues a reset token. The response is identical
// whether or not the email exists, so the endpoint cannot be used to probe
// for accounts.
func (a *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return apperrors.MapError(err)
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(time.Duration(a.cfg.PasswordResetTTLMinutes) * time.Minute),
	}
	if err := a.resets.Create(ctx, token); err != nil {
		return apperrors.MapError(err)
	}

	// Delivery is a stub; the token is only surfaced through logs.
	a.logger.Info("password reset token issued",
		zap.Int64("user_id", user.ID),
		zap.Time("expires_at", token.ExpiresAt))
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (a *AuthService) ResetPassword(ctx context.Context, tokenStr, next, confirm string) error {
	token, err := a.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewValidationError("Invalid or expired reset token.", nil)
		}
		return apperrors.MapError(err)
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("Invalid or expired reset token.", nil)
	}
	if err := validateNewPassword(next, confirm); err != nil {
		return err
	}

	user, err := a.users.GetByID(ctx, token.UserID)
	if err != nil {
		return apperrors.MapError(err)
	}
	hash, err := auth.HashPassword(next, a.cfg.BcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}
	user.PasswordHash = hash
	if err := a.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	if err := a.resets.MarkUsed(ctx, token.ID); err != nil {
		return apperrors.MapError(err)
	}
	a.logger.Info("password reset completed", zap.Int64("user_id", user.ID))
	return nil
}

// SetActive enables or disables an account. Admin only.
func (a *AuthService) SetActive(ctx context.Context, actor *domain.User, userID int64, active bool) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return apperrors.MapError(err)
	}
	user.Active = active
	if err := a.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func validateNewPassword(password, confirm string) error {
	if len(password) < minPasswordLength {
		return apperrors.NewValidationError("Password must be at least 8 characters.", map[string]any{
			"field": "password",
		})
	}
	if password != confirm {
		return apperrors.NewValidationError("Passwords do not match.", map[string]any{
			"field": "confirm_password",
		})
	}
	return nil
}
