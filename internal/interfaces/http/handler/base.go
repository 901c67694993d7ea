package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/irdash/backend/internal/domain/shared"
	"github.com/irdash/backend/internal/infrastructure/logger"
	"github.com/irdash/backend/internal/interfaces/http/dto"
	"github.com/irdash/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, meta dto.Meta) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, meta))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with an explicit status
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.AbortWithStatusJSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleError classifies err and sends the matching response. Server side
// failures are logged with their cause; the client only sees the kind.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code, message := dto.Classify(err)
	status := dto.GetHTTPStatus(code)

	l := logger.GetGinLogger(c)
	if status >= http.StatusInternalServerError {
		l.Error("request failed", zap.String("code", code), zap.Error(err))
	} else {
		l.Debug("request rejected", zap.String("code", code), zap.Error(err))
	}
	h.Error(c, status, code, message)
}

// bindJSON binds and validates the body, answering 400 on failure.
func (h *BaseHandler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// bindID reads and validates the :id path parameter.
func (h *BaseHandler) bindID(c *gin.Context) (string, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "id must be a UUID")
		return "", false
	}
	return req.ID, true
}

// stale reports whether err is a read failure that a snapshot records
// alongside its last good rows instead of failing the request.
func stale(err error) bool {
	switch shared.ErrorKind(err) {
	case shared.ErrDataFetch, shared.ErrConfiguration:
		return true
	}
	return false
}
