// Package http serves the expense ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"

	"cinecalc/internal/cache"
	"cinecalc/internal/core"
	applog "cinecalc/internal/log"
	"cinecalc/internal/metrics"
	"cinecalc/internal/middleware/ratelimit"
	"cinecalc/internal/middleware/security"
	"cinecalc/internal/middleware/trace"
)

// ExpenseService is the application layer the handlers call.
// *services.ExpenseService implements it.
type ExpenseService interface {
	List(ctx context.Context) ([]core.Expense, error)
	Get(ctx context.Context, id int64) (core.Expense, error)
	Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	Update(ctx context.Context, id int64, in core.ExpenseInput) error
	Delete(ctx context.Context, id int64) error
	Total(ctx context.Context) (decimal.Decimal, error)
	Ready(ctx context.Context) error
}

// Config holds the server's tunables. Zero values fall back to defaults.
type Config struct {
	Addr               string
	AllowedOrigins     []string
	RateLimitPerMinute int
	IdempotencyTTL     time.Duration
	Logger             *applog.Logger
	Metrics            *metrics.Metrics
}

type Server struct {
	http.Server
	svc      ExpenseService
	logger   *applog.Logger
	metrics  *metrics.Metrics
	limiter  *ratelimit.Limiter
	detector *security.Detector

	// Completed POST responses by Idempotency-Key, and keys in progress.
	idempotent *cache.LRU[idempotentResult]
	inflight   *cache.LRU[struct{}]

	stopJanitor  context.CancelFunc
	shutdownOnce sync.Once
}

const (
	maxIdempotencyEntries = 10_000
	inflightTTL           = time.Minute
	maxBodyBytes          = 64 << 10
)

// NewServer wires middleware and routes and returns a ready-to-run server.
func NewServer(cfg Config, svc ExpenseService) *Server {
	if cfg.Logger == nil {
		cfg.Logger = applog.FromContext(context.Background())
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 10 * time.Minute
	}

	limiterCfg := ratelimit.DefaultConfig()
	if cfg.RateLimitPerMinute > 0 {
		limiterCfg.RequestsPerMinute = cfg.RateLimitPerMinute
	}

	s := &Server{
		svc:        svc,
		logger:     cfg.Logger.WithComponent(applog.ComponentHTTP),
		metrics:    cfg.Metrics,
		limiter:    ratelimit.NewLimiter(limiterCfg),
		detector:   security.NewDetector(),
		idempotent: cache.NewLRU[idempotentResult](maxIdempotencyEntries, cfg.IdempotencyTTL),
		inflight:   cache.NewLRU[struct{}](maxIdempotencyEntries, inflightTTL),
	}

	janitor := cache.NewJanitor(time.Minute)
	janitor.Register("idempotency", s.idempotent)
	janitor.Register("idempotency_inflight", s.inflight)
	ctx, cancel := context.WithCancel(context.Background())
	s.stopJanitor = cancel
	go janitor.Run(ctx)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes(cfg Config) http.Handler {
	r := chi.NewRouter()

	tracer := trace.NewMiddleware(trace.Config{
		ExtractIP: s.detector.ExtractClientIP,
		Route:     routePattern,
		Recorder:  s.metrics,
		Logger:    s.logger,
	})

	r.Use(tracer.Handler)
	r.Use(middleware.Recoverer)
	r.Use(applog.Middleware(s.logger, trace.RequestIDFromRequest))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Handler)
	r.Use(s.detector.Middleware(s.metrics.Suspicious))
	r.Use(newCORS(cfg.AllowedOrigins).Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/expenses", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited))
		r.Use(middleware.AllowContentType("application/json"))

		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Get("/total", s.handleTotal)
		r.Get("/{id}", s.handleGet)
		r.Put("/{id}", s.handleUpdate)
		r.Delete("/{id}", s.handleDelete)
	})

	return r
}

func newCORS(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", headerIdempotencyKey, trace.HeaderRequestID},
		ExposedHeaders: []string{"Location", trace.HeaderRequestID, headerIdempotentReplay},
		MaxAge:         300,
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

// Shutdown gracefully shuts down the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.stopJanitor()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
