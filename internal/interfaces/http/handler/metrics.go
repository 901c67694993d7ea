package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/irdash/backend/internal/application/dashboard"
	"github.com/irdash/backend/internal/domain/shared"
	"github.com/irdash/backend/internal/interfaces/http/dto"
)

// MetricsHandler serves the committed volume and key metric views.
type MetricsHandler struct {
	BaseHandler
	dash         *dashboard.Dashboard
	topInvestors int
}

// NewMetricsHandler creates a new MetricsHandler. topInvestors is the
// default length of the ranked investor list.
func NewMetricsHandler(dash *dashboard.Dashboard, topInvestors int) *MetricsHandler {
	return &MetricsHandler{dash: dash, topInvestors: topInvestors}
}

// CommittedVolume returns the latest committed volume per person. Before
// the first computation it answers with ready=false and no volumes.
func (h *MetricsHandler) CommittedVolume(c *gin.Context) {
	update, ok := h.dash.Volumes.LatestUpdate()
	if !ok {
		h.Success(c, dto.PendingVolumeResponse())
		return
	}
	h.Success(c, dto.NewVolumeResponse(update))
}

// KeyMetrics returns the dashboard summary. ?top=n overrides the length of
// the investor ranking.
func (h *MetricsHandler) KeyMetrics(c *gin.Context) {
	top := h.topInvestors
	if raw := c.Query("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.HandleError(c, shared.InvalidInputf("top must be a positive integer"))
			return
		}
		top = n
	}
	metrics, err := h.dash.KeyMetrics(top)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, metrics)
}
