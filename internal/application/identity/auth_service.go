package identity

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/irdash/backend/internal/domain/gateway"
	"github.com/irdash/backend/internal/domain/shared"
)

// AuthService handles sign-in, sign-out and session lookup against the
// gateway's authenticator.
type AuthService struct {
	authenticator gateway.Authenticator
	logger        *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(authenticator gateway.Authenticator, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		authenticator: authenticator,
		logger:        logger,
	}
}

// SignIn authenticates a user and returns the new session
func (s *AuthService) SignIn(ctx context.Context, input SignInInput) (*SessionInfo, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, shared.NewAuthError("sign_in", shared.InvalidInputf("email and password are required"))
	}

	s.logger.Info("Sign-in attempt", zap.String("email", email))

	session, err := s.authenticator.SignIn(ctx, email, input.Password)
	if err != nil {
		s.logger.Warn("Sign-in failed", zap.String("email", email), zap.Error(err))
		return nil, asAuthError("sign_in", err)
	}
	if session == nil {
		return nil, shared.NewAuthError("sign_in", nil)
	}

	s.logger.Info("User signed in", zap.String("user_id", session.UserID))
	return newSessionInfo(session), nil
}

// SignOut ends the session identified by accessToken
func (s *AuthService) SignOut(ctx context.Context, accessToken string) error {
	if err := s.authenticator.SignOut(ctx, accessToken); err != nil {
		s.logger.Warn("Sign-out failed", zap.Error(err))
		return asAuthError("sign_out", err)
	}
	s.logger.Info("User signed out")
	return nil
}

// GetSession returns the active session, or nil when there is none.
func (s *AuthService) GetSession(ctx context.Context, accessToken string) (*SessionInfo, error) {
	if accessToken == "" {
		return nil, nil
	}
	session, err := s.authenticator.GetSession(ctx, accessToken)
	if err != nil {
		s.logger.Warn("Session lookup failed", zap.Error(err))
		return nil, asAuthError("get_session", err)
	}
	if session == nil {
		return nil, nil
	}
	return newSessionInfo(session), nil
}

// asAuthError keeps configuration errors visible and classifies everything
// else as an authentication failure.
func asAuthError(op string, err error) error {
	kind := shared.ErrorKind(err)
	if kind == shared.ErrConfiguration || kind == shared.ErrAuth {
		return err
	}
	return shared.NewAuthError(op, err)
}
