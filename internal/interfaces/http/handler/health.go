package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/irdash/backend/internal/application/dashboard"
	"github.com/irdash/backend/internal/infrastructure/logger"
)

// Pinger checks that the remote gateway is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports gateway reachability and cache states.
type HealthHandler struct {
	dash    *dashboard.Dashboard
	pinger  Pinger
	timeout time.Duration
}

// NewHealthHandler creates a new HealthHandler. A nil pinger means the
// gateway is not configured; the service is still healthy in that case.
func NewHealthHandler(dash *dashboard.Dashboard, pinger Pinger) *HealthHandler {
	return &HealthHandler{dash: dash, pinger: pinger, timeout: 2 * time.Second}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status  string                         `json:"status"`
	Time    string                         `json:"time"`
	Gateway string                         `json:"gateway"`
	Caches  map[string]dashboard.LoadState `json:"caches"`
	// Sessions is the number of clients holding page positions.
	Sessions int `json:"sessions"`
}

// Check godoc
// GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	resp := HealthResponse{
		Status:  "healthy",
		Time:    time.Now().Format(time.RFC3339),
		Gateway: "unconfigured",
		Caches: map[string]dashboard.LoadState{
			"persons":     h.dash.Persons.All.Snapshot().State,
			"items":       h.dash.Items.All.Snapshot().State,
			"commitments": h.dash.Commitments.All.Snapshot().State,
		},
		Sessions: h.dash.Sessions.Len(),
	}
	if h.pinger == nil {
		c.JSON(http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	if err := h.pinger.Ping(ctx); err != nil {
		logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
		resp.Status = "unhealthy"
		resp.Gateway = "unreachable"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	resp.Gateway = "ok"
	c.JSON(http.StatusOK, resp)
}
