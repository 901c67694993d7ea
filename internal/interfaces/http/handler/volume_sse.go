package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/irdash/backend/internal/application/dashboard"
	"github.com/irdash/backend/internal/interfaces/http/dto"
	"github.com/irdash/backend/internal/interfaces/http/middleware"
)

// VolumeSubscriber is the committed volume stream as seen by the SSE handler.
type VolumeSubscriber interface {
	Subscribe(fn func(dashboard.VolumeUpdate)) (unsubscribe func())
}

// SSEMessage is one server-sent event. A message with only a Comment is a
// comment frame, which clients ignore.
type SSEMessage struct {
	Event   string
	Data    string
	ID      string
	Comment string
}

// VolumeStreamHandler pushes committed volume updates to browsers over SSE.
type VolumeStreamHandler struct {
	BaseHandler
	stream     VolumeSubscriber
	logger     *zap.Logger
	heartbeat  time.Duration
	maxClients int64
	clients    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// VolumeStreamOption configures a VolumeStreamHandler.
type VolumeStreamOption func(*VolumeStreamHandler)

// WithSSELogger sets the logger for the handler
func WithSSELogger(logger *zap.Logger) VolumeStreamOption {
	return func(h *VolumeStreamHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithSSEHeartbeat sets the heartbeat interval
func WithSSEHeartbeat(interval time.Duration) VolumeStreamOption {
	return func(h *VolumeStreamHandler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// WithSSEMaxClients caps concurrent streams; zero means no cap.
func WithSSEMaxClients(max int) VolumeStreamOption {
	return func(h *VolumeStreamHandler) {
		h.maxClients = int64(max)
	}
}

// NewVolumeStreamHandler creates a new SSE handler over stream.
func NewVolumeStreamHandler(stream VolumeSubscriber, opts ...VolumeStreamOption) *VolumeStreamHandler {
	ctx, cancel := context.WithCancel(context.Background())
	h := &VolumeStreamHandler{
		stream:     stream,
		logger:     zap.NewNop(),
		heartbeat:  30 * time.Second,
		maxClients: 1000,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Stop disconnects every client. Used on server shutdown, where open
// streams would otherwise hold Shutdown until its deadline.
func (h *VolumeStreamHandler) Stop() {
	h.cancel()
}

// ClientCount returns the number of connected clients.
func (h *VolumeStreamHandler) ClientCount() int {
	return int(h.clients.Load())
}

// Stream serves GET /metrics/committed-volume/stream. The first event is
// the latest update, if one exists; later events follow every
// recomputation. A slow client only ever receives the newest update.
func (h *VolumeStreamHandler) Stream(c *gin.Context) {
	if n := h.clients.Add(1); h.maxClients > 0 && n > h.maxClients {
		h.clients.Add(-1)
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeMaxConnections, "Maximum number of stream connections reached")
		return
	}
	defer h.clients.Add(-1)

	clientID := uuid.NewString()
	log := h.logger.With(zap.String("client_id", clientID), zap.String("user_id", middleware.GetSessionUserID(c)))

	updates := make(chan dashboard.VolumeUpdate, 1)
	unsubscribe := h.stream.Subscribe(func(u dashboard.VolumeUpdate) {
		for {
			select {
			case updates <- u:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	log.Info("volume stream client connected")
	h.send(c, SSEMessage{Event: "connected", Data: fmt.Sprintf(`{"client_id":%q}`, clientID)})

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			log.Info("volume stream client disconnected")
			return
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.send(c, SSEMessage{Comment: "heartbeat"})
		case u := <-updates:
			data, err := json.Marshal(dto.NewVolumeResponse(u))
			if err != nil {
				log.Error("failed to marshal volume update", zap.Error(err))
				continue
			}
			h.send(c, SSEMessage{Event: "volume", Data: string(data), ID: strconv.FormatUint(u.Version, 10)})
		}
	}
}

func (h *VolumeStreamHandler) send(c *gin.Context, msg SSEMessage) {
	writeEvent(c.Writer, msg)
	c.Writer.Flush()
}

func writeEvent(w io.Writer, msg SSEMessage) {
	if msg.Comment != "" {
		fmt.Fprintf(w, ": %s\n", msg.Comment)
	}
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	if msg.Data != "" || msg.Comment == "" {
		fmt.Fprintf(w, "data: %s\n", msg.Data)
	}
	fmt.Fprint(w, "\n")
}
