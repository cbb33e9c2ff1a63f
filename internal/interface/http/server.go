// Package http exposes the counsellor over a JSON API built on gin.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/abroad-hub/counsellor/internal/application/command"
	"github.com/abroad-hub/counsellor/internal/application/counsellor"
	"github.com/abroad-hub/counsellor/internal/application/query"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/internal/interface/http/handlers"
	"github.com/abroad-hub/counsellor/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MetricsPath serves Prometheus metrics when Dependencies.MetricsHandler is set.
	MetricsPath string

	// Debug switches gin into debug mode.
	Debug bool
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		MetricsPath:  "/metrics",
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Counsellor is the application surface served over HTTP.
// *counsellor.Service implements it.
type Counsellor interface {
	GetStage(ctx context.Context, userID shared.UserID) (*counsellor.StageView, error)
	HandleMessage(ctx context.Context, userID shared.UserID, text string) (*counsellor.Response, error)
	Recommendations(ctx context.Context, userID shared.UserID) (*query.RecommendationsDTO, error)
	Ledger(ctx context.Context, userID shared.UserID) (*query.LedgerDTO, error)
	RequestLock(ctx context.Context, userID shared.UserID, universityName, confirmation string) (*counsellor.ActionResult, error)
	RequestUnlock(ctx context.Context, userID shared.UserID, universityName, confirmation string) (*counsellor.ActionResult, error)
	ToggleShortlist(ctx context.Context, userID shared.UserID, universityID shared.UniversityID) (*command.ToggleResult, error)
	GenerateTasks(ctx context.Context, userID shared.UserID, universityID shared.UniversityID) (*command.GenerateTasksResult, error)
	SyncShortlistDocuments(ctx context.Context, userID shared.UserID) (*command.SyncDocumentsResult, error)
	PurgeOrphanedRecords(ctx context.Context, userID shared.UserID) (*command.PurgeResult, error)
}

var _ Counsellor = (*counsellor.Service)(nil)

// RequestRecorder observes served requests.
type RequestRecorder interface {
	HTTPRequest(method, route string, status int, d time.Duration)
}

// Dependencies contains everything the handlers need.
type Dependencies struct {
	Counsellor Counsellor
	Health     handlers.HealthChecker // optional
	Metrics    RequestRecorder        // optional
	// MetricsHandler serves the Prometheus registry. Optional.
	MetricsHandler http.Handler
	Logger         *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	engine     *gin.Engine
	httpServer *http.Server
	logger     *logger.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	if config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config: config,
		deps:   deps,
		engine: gin.New(),
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))
	if s.deps.Health == nil {
		s.deps.Health = handlers.NewCompositeHealthChecker("")
	}

	s.engine.Use(s.requestID(), s.recovery(), s.accessLog(), s.metrics())
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      s.engine,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

// Handler returns the root handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/healthz", s.handleHealth)
	if s.deps.MetricsHandler != nil && s.config.MetricsPath != "" {
		s.engine.GET(s.config.MetricsPath, gin.WrapH(s.deps.MetricsHandler))
	}

	h := &apiHandlers{svc: s.deps.Counsellor, log: s.logger}
	users := s.engine.Group("/v1/users/:userID", requireUserID())
	{
		users.GET("/stage", h.getStage)
		users.POST("/messages", h.postMessage)
		users.GET("/recommendations", h.getRecommendations)
		users.GET("/ledger", h.getLedger)

		users.POST("/lock", h.postLock)
		users.POST("/unlock", h.postUnlock)
		users.POST("/shortlist/:universityID", h.toggleShortlist)
		users.POST("/tasks/generate", h.generateTasks)
		users.POST("/documents/sync", h.syncDocuments)
		users.POST("/orphans/purge", h.purgeOrphans)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	status := s.deps.Health.Check(c.Request.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
	ctxUserID       = "user_id"
)

// requestID propagates or assigns X-Request-ID and scopes a logger to it.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		c.Set(ctxRequestID, id)
		ctx := logger.WithContext(c.Request.Context(), s.logger.WithRequestID(id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// recovery turns panics into a 500 envelope.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("panic recovered",
			logger.Any("error", recovered),
			logger.String("path", c.Request.URL.Path),
			logger.String("request_id", c.GetString(ctxRequestID)),
		)
		abortError(c, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred", nil)
	})
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info("http request",
			logger.String("method", c.Request.Method),
			logger.String("route", c.FullPath()),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Latency(time.Since(start)),
			logger.String("ip", c.ClientIP()),
			logger.String("request_id", c.GetString(ctxRequestID)),
		)
	}
}

// metrics labels requests by route template to keep cardinality bounded.
func (s *Server) metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.deps.Metrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.deps.Metrics.HTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// requireUserID validates the :userID path parameter.
func requireUserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := shared.NewUserID(c.Param("userID"))
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Set(ctxUserID, id)
		c.Next()
	}
}

func userID(c *gin.Context) shared.UserID {
	id, _ := c.Get(ctxUserID)
	uid, _ := id.(shared.UserID)
	return uid
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start blocks serving until Shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}
