package identity

import (
	"time"

	"github.com/irdash/backend/internal/domain/gateway"
)

// SignInInput contains credentials for sign-in
type SignInInput struct {
	Email    string
	Password string
}

// SessionInfo is the session returned to clients
type SessionInfo struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        UserInfo  `json:"user"`
}

// UserInfo identifies the signed-in user
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func newSessionInfo(s *gateway.Session) *SessionInfo {
	return &SessionInfo{
		AccessToken: s.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   s.ExpiresAt,
		User: UserInfo{
			ID:    s.UserID,
			Email: s.Email,
		},
	}
}
