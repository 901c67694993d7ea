package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/irdash/backend/internal/application/identity"
	"github.com/irdash/backend/internal/infrastructure/logger"
	"github.com/irdash/backend/internal/interfaces/http/dto"
)

// Session context keys
const (
	SessionKey       = "session"
	SessionUserIDKey = "session_user_id"
	SessionTokenKey  = "session_token"
	AuthHeaderKey    = "Authorization"
	BearerPrefix     = "Bearer "
)

// SessionLookup resolves an access token to its session. A nil session with
// a nil error means the token does not identify an active session.
type SessionLookup interface {
	GetSession(ctx context.Context, accessToken string) (*identity.SessionInfo, error)
}

// SessionAuth requires an active session on every request it guards.
func SessionAuth(sessions SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			abortUnauthorized(c, "Missing or malformed authorization header")
			return
		}

		session, err := sessions.GetSession(c.Request.Context(), token)
		if err != nil {
			code, message := dto.Classify(err)
			logger.GetGinLogger(c).Warn("session lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(dto.GetHTTPStatus(code),
				dto.NewErrorResponseWithRequestID(code, message, c.GetString("request_id")))
			return
		}
		if session == nil {
			abortUnauthorized(c, "Session is not active")
			return
		}

		trace.SpanFromContext(c.Request.Context()).SetAttributes(attribute.String("enduser.id", session.User.ID))
		ctx, l := logger.WithUserID(c.Request.Context(), logger.GetGinLogger(c), session.User.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Set("logger", l)
		c.Set(SessionKey, session)
		c.Set(SessionUserIDKey, session.User.ID)
		c.Set(SessionTokenKey, token)
		c.Next()
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

// GetSession returns the session stored by SessionAuth, or nil.
func GetSession(c *gin.Context) *identity.SessionInfo {
	if v, ok := c.Get(SessionKey); ok {
		if s, ok := v.(*identity.SessionInfo); ok {
			return s
		}
	}
	return nil
}

// GetSessionUserID returns the signed-in user id, or "".
func GetSessionUserID(c *gin.Context) string {
	return c.GetString(SessionUserIDKey)
}

// GetSessionToken returns the access token of the active session, or "".
// Each token is one client session with its own page positions.
func GetSessionToken(c *gin.Context) string {
	return c.GetString(SessionTokenKey)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, message, c.GetString("request_id")))
}
