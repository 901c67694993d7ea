package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/irdash/backend/internal/application/dashboard"
	"github.com/irdash/backend/internal/application/identity"
	"github.com/irdash/backend/internal/infrastructure/config"
	"github.com/irdash/backend/internal/infrastructure/logger"
	"github.com/irdash/backend/internal/infrastructure/telemetry"
	"github.com/irdash/backend/internal/interfaces/http/handler"
	"github.com/irdash/backend/internal/interfaces/http/middleware"
)

// Deps are the services the HTTP API is built on.
type Deps struct {
	HTTP      config.HTTPConfig
	Dashboard *dashboard.Dashboard
	Auth      *identity.AuthService
	// Pinger is nil when the gateway is not configured.
	Pinger       handler.Pinger
	Metrics      *telemetry.MeterProvider
	// Tracer may be nil; requests are then not traced.
	Tracer       *telemetry.TracerProvider
	ServiceName  string
	Logger       *zap.Logger
	TopInvestors int
}

// Engine is the configured gin engine plus the long-lived handlers that
// need shutting down with the server.
type Engine struct {
	*gin.Engine
	Streams *handler.VolumeStreamHandler
}

// Close disconnects open event streams.
func (e *Engine) Close() {
	e.Streams.Stop()
}

// NewEngine builds the full HTTP API.
//
// Middleware order: request id, tracing, logging, panic recovery, security
// headers, CORS, metrics, body limit. Everything under /api/v1 except /auth requires
// a session.
func NewEngine(deps Deps) *Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	serviceName := deps.ServiceName
	if serviceName == "" {
		serviceName = "irdash-backend"
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Tracing(deps.Tracer, serviceName, "/health"),
		logger.GinMiddleware(log, "/health"),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORS(middleware.CORSConfigFrom(deps.HTTP)),
		middleware.HTTPMetrics(deps.Metrics),
	)
	if deps.HTTP.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(deps.HTTP.MaxBodyBytes))
	}

	dash := deps.Dashboard
	health := handler.NewHealthHandler(dash, deps.Pinger)
	engine.GET("/health", health.Check)

	streams := handler.NewVolumeStreamHandler(dash.Volumes,
		handler.WithSSELogger(log),
		handler.WithSSEHeartbeat(deps.HTTP.SSEHeartbeat),
		handler.WithSSEMaxClients(deps.HTTP.SSEMaxClients),
	)

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Register(
		authRoutes(handler.NewAuthHandler(deps.Auth, handler.OnSignOut(dash.Sessions.Close)), deps.HTTP),
		protectedRoutes(deps, streams),
	)
	r.Setup()

	return &Engine{Engine: engine, Streams: streams}
}

func authRoutes(h *handler.AuthHandler, cfg config.HTTPConfig) *DomainGroup {
	routes := NewDomainGroup("auth", "/auth")
	signIn := []gin.HandlerFunc{h.SignIn}
	if cfg.SignInLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.SignInLimit, cfg.SignInWindow)
		signIn = append([]gin.HandlerFunc{middleware.RateLimit(limiter)}, signIn...)
	}
	routes.POST("/sign-in", signIn...)
	routes.POST("/sign-out", h.SignOut)
	routes.GET("/session", h.Session)
	return routes
}

func protectedRoutes(deps Deps, streams *handler.VolumeStreamHandler) *DomainGroup {
	dash := deps.Dashboard
	members := handler.NewMemberHandler(dash.Persons, dash.Commitments, dash.Sessions)
	items := handler.NewItemHandler(dash.Items, dash.Sessions)
	commitments := handler.NewCommitmentHandler(dash.Commitments, dash.Sessions)
	metrics := handler.NewMetricsHandler(dash, deps.TopInvestors)

	root := NewDomainGroup("dashboard", "").Use(middleware.SessionAuth(deps.Auth))

	root.Group("members", "/members").
		GET("", members.List).
		POST("/next", members.Next).
		POST("/previous", members.Previous).
		POST("/page/:page", members.GoToPage).
		GET("/:id", members.Get).
		GET("/:id/commitments", members.Commitments)

	root.Group("items", "/items").
		GET("/:type", items.List).
		POST("/:type/next", items.Next).
		POST("/:type/previous", items.Previous).
		POST("/:type/page/:page", items.GoToPage).
		GET("/id/:id", items.Get).
		POST("", items.Create).
		PATCH("/:id", items.Update).
		DELETE("/:id", items.Delete)

	root.Group("commitments", "/commitments").
		GET("", commitments.List).
		POST("/next", commitments.Next).
		POST("/previous", commitments.Previous).
		POST("/page/:page", commitments.GoToPage).
		GET("/:id", commitments.Get).
		POST("", commitments.Create).
		PATCH("/:id", commitments.Update).
		DELETE("/:id", commitments.Delete)

	root.Group("deals", "/deals").
		GET("/:id/commitments", commitments.ByDeal).
		GET("/:id/tickets", commitments.Tickets)

	root.Group("metrics", "/metrics").
		GET("/committed-volume", metrics.CommittedVolume).
		GET("/committed-volume/stream", streams.Stream).
		GET("/key", metrics.KeyMetrics)

	return root
}
