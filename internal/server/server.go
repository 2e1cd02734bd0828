package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/dukerupert/chorechart/internal/auth"
	"github.com/dukerupert/chorechart/internal/config"
	"github.com/dukerupert/chorechart/internal/handler"
	"github.com/dukerupert/chorechart/internal/metrics"
	"github.com/dukerupert/chorechart/internal/middleware"
	"github.com/dukerupert/chorechart/internal/service"
	"github.com/dukerupert/chorechart/internal/websocket"
)

const loginWindow = time.Minute

type Server struct {
	cfg         config.Config
	users       *service.UserService
	userH       *handler.UserHandler
	choreH      *handler.ChoreHandler
	adjustmentH *handler.AdjustmentHandler
	healthH     *handler.HealthHandler
	hub         *websocket.Hub
	metrics     *metrics.Metrics
	limiter     middleware.Limiter
	proxies     *middleware.ProxyTrust
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

// New wires services and handlers over db. rdb is optional; when set it
// backs the login rate limiter and the readiness check.
func New(cfg config.Config, db *sql.DB, rdb *redis.Client, clock service.Clock, logger *slog.Logger) *Server {
	hub := websocket.NewHub(logger.With("component", "websocket"))
	m := metrics.New()
	m.RegisterDB(db)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	users := service.NewUserService(db, tokens)
	allowances := service.NewAllowanceService(db)
	chores := service.NewChoreService(db, clock)

	s := &Server{
		cfg:         cfg,
		users:       users,
		userH:       handler.NewUserHandler(users, allowances, hub, logger.With("component", "user")),
		choreH:      handler.NewChoreHandler(chores, hub, m, logger.With("component", "chore")),
		adjustmentH: handler.NewAdjustmentHandler(allowances, hub, m, logger.With("component", "adjustment")),
		healthH:     handler.NewHealthHandler(db, rdb, hub, cfg.Version, logger.With("component", "health")),
		hub:         hub,
		metrics:     m,
		rateLimiter: middleware.NewRateLimiter(),
		proxies:     middleware.NewProxyTrust(cfg.TrustedProxies),
		logger:      logger,
	}
	s.limiter = s.rateLimiter
	if rdb != nil {
		s.limiter = middleware.NewRedisLimiter(rdb)
	}
	return s
}

// RateLimiter returns the in-memory rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the websocket hub.
func (s *Server) Hub() *websocket.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/v1/users/register", s.userH.Register)
	mux.Handle("POST /api/v1/users/login", s.loginRateLimit(http.HandlerFunc(s.userH.Login)))
	mux.HandleFunc("GET /health", s.healthH.Live)
	mux.HandleFunc("GET /health/ready", s.healthH.Ready)
	mux.HandleFunc("GET /health/detailed", s.healthH.Detailed)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /api/v1/ws", websocket.HandleWebSocket(s.hub, s.users, s.cfg.CORSOrigins, s.logger.With("component", "websocket")))

	s.registerProtectedRoutes(mux)

	var h http.Handler = mux
	h = cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	})(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	h = middleware.RequestID(h)
	return s.metrics.Middleware(h)
}

func (s *Server) loginRateLimit(h http.Handler) http.Handler {
	keyFunc := func(r *http.Request) string {
		return "login:" + s.proxies.ClientIP(r)
	}
	return middleware.RateLimit(s.limiter, keyFunc, s.cfg.LoginRateLimit, loginWindow, s.logger.With("component", "ratelimit"))(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	requireAuth := middleware.RequireAuth(s.users, s.logger.With("component", "auth"))
	route := func(pattern string, c auth.Capability, h http.HandlerFunc) {
		mux.Handle(pattern, requireAuth(middleware.RequireCapability(c)(h)))
	}

	// Users
	route("GET /api/v1/users/me", auth.CapAuthenticated, s.userH.Me)
	route("GET /api/v1/users/me/balance", auth.CapViewOwnBalance, s.userH.MyBalance)
	route("POST /api/v1/users/children", auth.CapManageChildren, s.userH.CreateChild)
	route("GET /api/v1/users/my-children", auth.CapManageChildren, s.userH.ListChildren)
	route("PUT /api/v1/users/children/{id}/password", auth.CapManageChildren, s.userH.ResetChildPassword)
	route("PUT /api/v1/users/children/{id}/active", auth.CapManageChildren, s.userH.SetChildActive)
	route("GET /api/v1/users/children/{id}/balance", auth.CapManageChildren, s.userH.ChildBalance)
	route("GET /api/v1/users/allowance-summary", auth.CapManageChildren, s.userH.AllowanceSummary)

	// Chores; collection routes answer with and without the trailing slash.
	route("POST /api/v1/chores", auth.CapManageChores, s.choreH.Create)
	route("POST /api/v1/chores/{$}", auth.CapManageChores, s.choreH.Create)
	route("GET /api/v1/chores", auth.CapAuthenticated, s.choreH.List)
	route("GET /api/v1/chores/{$}", auth.CapAuthenticated, s.choreH.List)
	route("GET /api/v1/chores/available", auth.CapCompleteChores, s.choreH.Available)
	route("GET /api/v1/chores/pending-approval", auth.CapReviewChores, s.choreH.PendingApproval)
	route("GET /api/v1/chores/child/{id}", auth.CapManageChores, s.choreH.ChildChores)
	route("GET /api/v1/chores/{id}", auth.CapAuthenticated, s.choreH.Get)
	route("PUT /api/v1/chores/{id}", auth.CapManageChores, s.choreH.Update)
	route("DELETE /api/v1/chores/{id}", auth.CapManageChores, s.choreH.Delete)
	route("POST /api/v1/chores/{id}/complete", auth.CapCompleteChores, s.choreH.Complete)
	route("POST /api/v1/chores/{id}/approve", auth.CapReviewChores, s.choreH.Approve)
	route("POST /api/v1/chores/{id}/reject", auth.CapReviewChores, s.choreH.Reject)
	route("POST /api/v1/chores/{id}/disable", auth.CapManageChores, s.choreH.Disable)
	route("POST /api/v1/chores/{id}/enable", auth.CapManageChores, s.choreH.Enable)

	// Adjustments
	route("POST /api/v1/adjustments", auth.CapManageAdjustments, s.adjustmentH.Create)
	route("POST /api/v1/adjustments/{$}", auth.CapManageAdjustments, s.adjustmentH.Create)
	route("GET /api/v1/adjustments/child/{id}", auth.CapAuthenticated, s.adjustmentH.ListByChild)
}
