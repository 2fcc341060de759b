// Package api exposes the outcome processors, verifier, scanner and audit
// log over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/entropy-casino-engine/internal/logger"
	"github.com/MJE43/entropy-casino-engine/internal/scan"
	"github.com/MJE43/entropy-casino-engine/internal/store"
	"github.com/MJE43/entropy-casino-engine/internal/verify"
)

const maxBodyBytes = 1 << 20

// Server handles HTTP requests
type Server struct {
	db             store.DB
	scanner        *scan.Scanner
	verifier       *verify.Verifier
	errorHandler   *ErrorHandler
	logger         *slog.Logger
	requestTimeout time.Duration
	now            func() time.Time
	startTime      time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithScanner replaces the default scanner.
func WithScanner(sc *scan.Scanner) Option {
	return func(s *Server) {
		s.scanner = sc
	}
}

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithRequestTimeout bounds every request. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// WithClock sets the clock used for result metadata and audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates a new API server. db may be nil, which disables the
// verification audit log and scan persistence.
func NewServer(db store.DB, opts ...Option) *Server {
	s := &Server{
		db:             db,
		logger:         logger.L(),
		requestTimeout: 60 * time.Second,
		now:            time.Now,
		startTime:      time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.scanner == nil {
		s.scanner = scan.NewScanner(scan.WithVersion(EngineVersion))
	}

	verifyOpts := []verify.Option{verify.WithClock(s.now)}
	if db != nil {
		verifyOpts = append(verifyOpts, verify.WithRecorder(&store.AuditRecorder{DB: db, Version: EngineVersion}))
	}
	s.verifier = verify.New(verifyOpts...)
	s.errorHandler = NewErrorHandler(s.logger)

	s.logger.Info("api server initialized",
		slog.String("engine_version", EngineVersion),
		slog.Bool("audit_enabled", db != nil),
	)
	return s
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(VersionHeader)
	r.Use(s.RequestLogger)
	r.Use(s.errorHandler.RecoveryHandler)
	if s.requestTimeout > 0 {
		r.Use(middleware.Timeout(s.requestTimeout))
	}
	r.Use(CORSMiddleware)

	r.Get("/health", s.handleHealthCheck)
	r.Get("/health/ready", s.handleReadiness)
	r.Get("/health/live", s.handleLiveness)
	r.Get("/version", s.handleVersion)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/games", s.handleListGames)
		r.Get("/games/{game}/analysis", s.handleAnalysis)
		r.Post("/process", s.handleProcess)
		r.Post("/verify", s.handleVerify)
		r.Post("/verify/stored", s.handleVerifyStored)
		r.Post("/verify/batch", s.handleVerifyBatch)
		r.Post("/scan", s.handleScan)
		r.Post("/roulette/payout", s.handleRoulettePayout)

		r.Get("/verifications", s.handleListVerifications)
		r.Get("/verifications/{id}", s.handleGetVerification)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/hits", s.handleGetRunHits)
	})

	return r
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", logger.Err(err))
	}
}

// decodeJSON reads a single JSON object from the body, rejecting unknown
// fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("invalid JSON: trailing data after object")
	}
	return nil
}
