// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/counttalita/ScamShield-sub000/internal/callcontrol"
	"github.com/counttalita/ScamShield-sub000/internal/circuitbreaker"
	"github.com/counttalita/ScamShield-sub000/internal/config"
	"github.com/counttalita/ScamShield-sub000/internal/contacts"
	"github.com/counttalita/ScamShield-sub000/internal/decision"
	"github.com/counttalita/ScamShield-sub000/internal/health"
	"github.com/counttalita/ScamShield-sub000/internal/idgen"
	"github.com/counttalita/ScamShield-sub000/internal/logging"
	"github.com/counttalita/ScamShield-sub000/internal/metrics"
	"github.com/counttalita/ScamShield-sub000/internal/phone"
	"github.com/counttalita/ScamShield-sub000/internal/provider"
	"github.com/counttalita/ScamShield-sub000/internal/ratelimit"
	"github.com/counttalita/ScamShield-sub000/internal/realtime"
	"github.com/counttalita/ScamShield-sub000/internal/riskcache"
	"github.com/counttalita/ScamShield-sub000/internal/security"
	"github.com/counttalita/ScamShield-sub000/internal/sessions"
	"github.com/counttalita/ScamShield-sub000/internal/traces"
	"github.com/counttalita/ScamShield-sub000/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg         *config.Config
	normalizer  *phone.Normalizer
	cache       *riskcache.TieredCache
	sweeper     *riskcache.Sweeper
	registry    *provider.Registry
	aggregator  *provider.Aggregator
	breaker     *circuitbreaker.Breaker
	engine      *decision.Engine
	counters    decision.CounterStore
	tracker     *sessions.Tracker
	reaper      *sessions.Reaper
	contacts    contacts.Resolver
	controller  callcontrol.Controller
	realtimeHub *realtime.Hub
	healthReg   *health.Registry
	rateLimiter *ratelimit.Limiter
	db          *sql.DB // nil if using in-memory
	router      *gin.Engine
	httpSrv     *http.Server
	logger      *slog.Logger
	shutdownTr  func(context.Context) error
	cancelRun   context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithContacts sets a custom contact resolver (for testing)
func WithContacts(r contacts.Resolver) Option {
	return func(s *Server) {
		s.contacts = r
	}
}

// WithCallController sets a custom call controller (for testing)
func WithCallController(c callcontrol.Controller) Option {
	return func(s *Server) {
		s.controller = c
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	// Apply options first (may set contacts/logger)
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	s.normalizer = phone.NewNormalizer(cfg.DefaultCountryCode)

	cacheCfg := riskcache.Config{
		MaxEntriesPerTier: cfg.CacheMaxEntries,
		ScamTTL:           time.Duration(cfg.ScamTTLDays) * 24 * time.Hour,
		SpamTTL:           time.Duration(cfg.SpamTTLDays) * 24 * time.Hour,
	}

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		riskStore := riskcache.NewPostgresStore(db)
		if err := riskStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate risk cache store", "error", err)
		}
		s.cache = riskcache.NewTieredCache(riskStore, cacheCfg, s.logger)

		counterStore := decision.NewPostgresCounterStore(db)
		if err := counterStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate counter store", "error", err)
		}
		s.counters = counterStore
	} else {
		s.logger.Info("using in-memory storage (data will not persist)")
		s.cache = riskcache.NewTieredCache(riskcache.NewMemoryStore(), cacheCfg, s.logger)
		s.counters = decision.NewMemoryCounterStore()
	}

	s.sweeper = riskcache.NewSweeper(s.cache, s.logger)

	// Risk providers
	s.registry = provider.NewRegistry()
	s.registry.SetDefaultTimeout(cfg.ProviderTimeout)
	s.breaker = circuitbreaker.New(5, 30*time.Second)
	strategy := provider.ParseStrategy(cfg.AggregationStrategy)
	s.aggregator = provider.NewAggregator(s.registry, strategy, s.breaker, s.logger)
	s.logger.Info("provider aggregation configured", "strategy", strategy)

	// Contacts default to an empty static resolver; the real capability is
	// device-side and injected by tests or embedders.
	if s.contacts == nil {
		s.contacts = contacts.NewStaticResolver(nil)
	}
	if s.controller == nil {
		s.controller = callcontrol.NewLogController(s.logger)
	}

	// Sessions
	s.tracker = sessions.NewTracker(s.logger)
	s.reaper = sessions.NewReaper(s.tracker, s.logger)

	// Decision engine
	s.engine = decision.NewEngine(
		s.normalizer,
		s.cache,
		s.aggregator,
		s.contacts,
		s.controller,
		s.counters,
		s.tracker,
		cfg.CheckTimeout,
		cfg.SilenceUnknown,
		s.logger,
	)

	// Realtime hub for WebSocket streaming
	s.realtimeHub = realtime.NewHub(s.logger)
	s.logger.Info("realtime streaming enabled")

	// Health checks
	s.healthReg = health.NewRegistry()
	if s.db != nil {
		s.healthReg.Register("database", func(ctx context.Context) health.Status {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := s.db.PingContext(ctx); err != nil {
				return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "database", Healthy: true}
		})
	}
	s.healthReg.Register("providers", func(ctx context.Context) health.Status {
		return health.Status{
			Name:    "providers",
			Healthy: true,
			Detail:  fmt.Sprintf("%d enabled", s.registry.EnabledCount()),
		}
	})

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (callers are mobile apps, allow all origins)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	limiterCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPM > 0 {
		limiterCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	}
	s.rateLimiter = ratelimit.New(limiterCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = idgen.Hex(8)
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// adminMiddleware gates mutating management endpoints behind a shared
// secret. With no secret configured the admin surface is disabled
// entirely rather than left open.
func (s *Server) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.AdminSecret == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "admin_disabled",
				"message": "Admin endpoints require ADMIN_SECRET to be configured",
			})
			return
		}
		if c.GetHeader("X-Admin-Secret") != s.cfg.AdminSecret {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid admin secret",
			})
			return
		}
		c.Next()
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// WebSocket for real-time streaming
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// API info
	s.router.GET("/api", s.infoHandler)

	// V1 API group
	v1 := s.router.Group("/v1")
	// Validate :number URL params on all v1 routes (no-op when param absent)
	v1.Use(validation.PhoneParamMiddleware())

	decisionHandler := decision.NewHandler(s.engine, s.realtimeHub)
	decisionHandler.RegisterRoutes(v1)

	cacheHandler := riskcache.NewHandler(s.cache, s.normalizer, s.realtimeHub)
	cacheHandler.RegisterRoutes(v1)

	sessionHandler := sessions.NewHandler(s.tracker, s.realtimeHub)
	sessionHandler.RegisterRoutes(v1)

	providerHandler := provider.NewHandler(s.registry)
	providerHandler.RegisterRoutes(v1)

	v1.GET("/stats", s.statsHandler)

	// ADMIN ROUTES (require X-Admin-Secret)
	admin := v1.Group("/admin")
	admin.Use(s.adminMiddleware())
	providerHandler.RegisterAdminRoutes(admin)
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.healthReg.CheckAll(c.Request.Context())

	checks := make(map[string]string, len(statuses))
	for _, st := range statuses {
		if st.Healthy {
			checks[st.Name] = "healthy"
		} else {
			checks[st.Name] = "unhealthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "ScamShield",
		"version":     "0.1.0",
		"description": "Call risk resolution engine",
		"strategy":    s.aggregator.Strategy(),
	})
}

// statsHandler aggregates shield-wide statistics from the counters, the
// cache tiers, the session tracker, and the realtime hub.
func (s *Server) statsHandler(c *gin.Context) {
	ctx := c.Request.Context()

	counters, err := s.engine.Counters(ctx)
	if err != nil {
		s.logger.Warn("failed to read action counters", "error", err)
		counters = map[string]int64{}
	}

	tierCounts := s.cache.TierCounts(ctx)
	cache := make(map[string]int, len(tierCounts))
	for tier, n := range tierCounts {
		cache[string(tier)] = n
	}

	c.JSON(http.StatusOK, gin.H{
		"calls":     counters,
		"cache":     cache,
		"sessions":  s.tracker.Statistics(),
		"providers": s.registry.List(),
		"realtime":  s.realtimeHub.Stats(),
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRun = cancel

	// Traces are optional; without an endpoint Init installs a no-op provider.
	shutdownTraces, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.shutdownTr = shutdownTraces
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"env", s.cfg.Env,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Start cache expiry sweeper
	go s.sweeper.Start(runCtx)

	// Start session reaper
	go s.reaper.Start(runCtx)

	// Export DB pool stats while a database is attached
	if s.db != nil {
		metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, sweeper, reaper)
	if s.cancelRun != nil {
		s.cancelRun()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop cache sweeper
	if s.sweeper != nil {
		s.sweeper.Stop()
		s.logger.Info("cache sweeper stopped")
	}

	// Stop session reaper
	if s.reaper != nil {
		s.reaper.Stop()
		s.logger.Info("session reaper stopped")
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Flush traces
	if s.shutdownTr != nil {
		if err := s.shutdownTr(ctx); err != nil {
			s.logger.Warn("trace shutdown error", "error", err)
		}
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}
