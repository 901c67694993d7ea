package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/irdash/backend/internal/application/identity"
	"github.com/irdash/backend/internal/interfaces/http/middleware"
)

// AuthHandler handles sign-in, sign-out and session lookup.
type AuthHandler struct {
	BaseHandler
	auth      *identity.AuthService
	onSignOut []func(token string)
}

// AuthHandlerOption configures an AuthHandler.
type AuthHandlerOption func(*AuthHandler)

// OnSignOut registers fn to run with the token of every successful sign-out.
func OnSignOut(fn func(token string)) AuthHandlerOption {
	return func(h *AuthHandler) {
		h.onSignOut = append(h.onSignOut, fn)
	}
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth *identity.AuthService, opts ...AuthHandlerOption) *AuthHandler {
	h := &AuthHandler{auth: auth}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SignInRequest is the sign-in body
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=256"`
}

// SignIn godoc
// POST /auth/sign-in
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if !h.bindJSON(c, &req) {
		return
	}
	session, err := h.auth.SignIn(c.Request.Context(), identity.SignInInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// SignOut ends the caller's session. A missing or unknown token is not an
// error.
// POST /auth/sign-out
func (h *AuthHandler) SignOut(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		h.NoContent(c)
		return
	}
	if err := h.auth.SignOut(c.Request.Context(), token); err != nil {
		h.HandleError(c, err)
		return
	}
	for _, fn := range h.onSignOut {
		fn(token)
	}
	h.NoContent(c)
}

// Session returns the active session, or null data when the caller has none.
// GET /auth/session
func (h *AuthHandler) Session(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		h.Success(c, nil)
		return
	}
	session, err := h.auth.GetSession(c.Request.Context(), token)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}
