// Package http serves the JSON API over the finance store.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"nzql/internal/cloudsync"
	"nzql/internal/core"
	"nzql/internal/log"
	"nzql/internal/middleware/ratelimit"
	"nzql/internal/middleware/security"
	"nzql/internal/middleware/trace"
	"nzql/internal/state"
)

// Syncer pushes the current snapshot on demand.
type Syncer interface {
	Sync(ctx context.Context) (cloudsync.Result, error)
}

// Adviser answers spending advice for a month. Latest returns the advice
// kept up to date in the background, if it was computed for m.
type Adviser interface {
	Advice(ctx context.Context, d core.AppData, m core.Month) string
	Latest(m core.Month) (string, bool)
}

// Config tunes the server.
type Config struct {
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server
	store    *state.Store
	syncer   Syncer
	adviser  Adviser
	validate *validator.Validate
	logger   *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. syncer and adviser may be nil.
func NewServer(addr string, store *state.Store, syncer Syncer, adviser Adviser, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		store:    store,
		syncer:   syncer,
		adviser:  adviser,
		validate: newValidator(),
		logger:   logger,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, logger),
	}

	mux := http.NewServeMux()
	limited := s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, r, ErrRateLimited)
	})

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /api/data", s.handleData)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/holidays", handleHolidays)
	mux.HandleFunc("POST /api/transactions", s.handleAddTransaction)
	mux.HandleFunc("POST /api/accounts", s.handleAddAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)
	mux.HandleFunc("PUT /api/shifts/{date}", s.handleSaveShift)
	mux.HandleFunc("POST /api/shift-types", s.handleAddShiftType)
	mux.HandleFunc("DELETE /api/shift-types/{id}", s.handleDeleteShiftType)
	mux.HandleFunc("POST /api/recurring", s.handleAddRecurring)
	mux.HandleFunc("DELETE /api/recurring/{id}", s.handleDeleteRecurring)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)
	mux.HandleFunc("POST /api/tags", s.handleAddTag)
	mux.Handle("POST /api/sync", limited(http.HandlerFunc(s.handleSync)))
	mux.Handle("GET /api/advice", limited(http.HandlerFunc(s.handleAdvice)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = headers.Middleware(handler)
	handler = detector.Middleware(logger)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops background helpers and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
