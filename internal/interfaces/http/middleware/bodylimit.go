package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irdash/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects bodies larger than maxBytes. Bodies without a declared
// length are cut off by a MaxBytesReader instead.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse(dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
