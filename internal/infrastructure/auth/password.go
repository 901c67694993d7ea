package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")

// UserModel is the app_user row
type UserModel struct {
	ID           string     `gorm:"type:uuid;primaryKey"`
	Email        string     `gorm:"uniqueIndex;not null"`
	PasswordHash string     `gorm:"not null"`
	Disabled     bool       `gorm:"not null;default:false"`
	CreatedAt    time.Time  `gorm:"not null"`
	LastSignInAt *time.Time
}

// TableName implements gorm's Tabler
func (UserModel) TableName() string { return "app_user" }

// PasswordAuthenticator implements gateway.Authenticator with bcrypt
// passwords in app_user and signed session tokens.
type PasswordAuthenticator struct {
	db        *gorm.DB
	tokens    *SessionTokens
	blacklist TokenBlacklist
	logger    *zap.Logger
	cost      int
}

// NewPasswordAuthenticator creates the authenticator. A nil blacklist uses
// an in-memory one.
func NewPasswordAuthenticator(db *gorm.DB, tokens *SessionTokens, blacklist TokenBlacklist, logger *zap.Logger) *PasswordAuthenticator {
	if blacklist == nil {
		blacklist = NewInMemoryTokenBlacklist()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PasswordAuthenticator{
		db:        db,
		tokens:    tokens,
		blacklist: blacklist,
		logger:    logger,
		cost:      bcrypt.DefaultCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser stores a new user with a hashed password
func (a *PasswordAuthenticator) CreateUser(ctx context.Context, email, password string) (*UserModel, error) {
	email = normalizeEmail(email)
	if email == "" || len(password) < 8 {
		return nil, shared.InvalidInputf("email is required and password must have at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, err
	}
	user := &UserModel{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// SignIn implements gateway.Authenticator
func (a *PasswordAuthenticator) SignIn(ctx context.Context, email, password string) (*gateway.Session, error) {
	var user UserModel
	err := a.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// compare anyway so unknown emails take as long as wrong passwords
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, shared.NewAuthError("sign_in", ErrInvalidCredentials)
	case err != nil:
		return nil, shared.NewAuthError("sign_in", err)
	}

	if user.Disabled {
		return nil, shared.NewAuthError("sign_in", ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.NewAuthError("sign_in", ErrInvalidCredentials)
	}

	token, claims, err := a.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, shared.NewAuthError("sign_in", err)
	}

	now := time.Now().UTC()
	if err := a.db.WithContext(ctx).Model(&user).Update("last_sign_in_at", now).Error; err != nil {
		a.logger.Warn("failed to record sign-in time", zap.String("user_id", user.ID), zap.Error(err))
	}

	return sessionFromClaims(token, claims), nil
}

// SignOut implements gateway.Authenticator. Signing out an invalid or expired
// token is a no-op.
func (a *PasswordAuthenticator) SignOut(ctx context.Context, accessToken string) error {
	claims, err := a.tokens.Validate(accessToken)
	if err != nil {
		return nil
	}
	if err := a.blacklist.Revoke(ctx, claims.ID, a.tokens.Remaining(claims)); err != nil {
		return shared.NewAuthError("sign_out", err)
	}
	return nil
}

// GetSession implements gateway.Authenticator
func (a *PasswordAuthenticator) GetSession(ctx context.Context, accessToken string) (*gateway.Session, error) {
	if accessToken == "" {
		return nil, nil
	}
	claims, err := a.tokens.Validate(accessToken)
	if err != nil {
		a.logger.Debug("no session for token", zap.Error(err))
		return nil, nil
	}
	revoked, err := a.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, shared.NewAuthError("get_session", err)
	}
	if revoked {
		return nil, nil
	}
	return sessionFromClaims(accessToken, claims), nil
}

func sessionFromClaims(token string, c *Claims) *gateway.Session {
	s := &gateway.Session{
		AccessToken: token,
		UserID:      c.Subject,
		Email:       c.Email,
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s
}

// bcrypt hash of a random string, used to equalise sign-in timing.
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOa0WRLmEjWZ4xZ7jFvTj8vI1w5u9b1QK")

var _ gateway.Authenticator = (*PasswordAuthenticator)(nil)
