// Package http exposes the recharge tracker as a JSON API. Input validation
// lives here; the store only enforces its own invariants.
package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Badr133ne/sim-charge-guardian/internal/log"
	"github.com/Badr133ne/sim-charge-guardian/internal/metrics"
	"github.com/Badr133ne/sim-charge-guardian/internal/middleware/ratelimit"
	"github.com/Badr133ne/sim-charge-guardian/internal/middleware/security"
	"github.com/Badr133ne/sim-charge-guardian/internal/middleware/trace"
	"github.com/Badr133ne/sim-charge-guardian/internal/services"
	"github.com/Badr133ne/sim-charge-guardian/internal/sheets"
	"github.com/Badr133ne/sim-charge-guardian/internal/smsparser"
	"github.com/Badr133ne/sim-charge-guardian/internal/store"
)

// Deps lists what the handlers need. Sheets, Scheduler, Metrics and Ready
// are optional.
type Deps struct {
	Store     *store.Store
	Parser    *smsparser.Parser
	Importer  *services.RechargeImporter
	Scheduler *services.ScanScheduler
	Sheets    sheets.RechargeWriter
	Metrics   *metrics.Metrics
	Logger    *log.Logger

	// Ready reports whether the persistence backend is reachable.
	Ready func(context.Context) error

	RateLimitPerMinute int

	// Location and Now decide what "today" and "now" mean for defaults.
	Location *time.Location
	Now      func() time.Time
}

type Server struct {
	http.Server

	store     *store.Store
	parser    *smsparser.Parser
	importer  *services.RechargeImporter
	scheduler *services.ScanScheduler
	sheets    sheets.RechargeWriter
	metrics   *metrics.Metrics
	logger    *log.Logger
	ready     func(context.Context) error
	loc       *time.Location
	now       func() time.Time

	limiter      *ratelimit.Limiter
	detector     *security.Detector
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = log.Discard()
	}
	if d.Parser == nil {
		d.Parser = smsparser.New(smsparser.Options{})
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		store:     d.Store,
		parser:    d.Parser,
		importer:  d.Importer,
		scheduler: d.Scheduler,
		sheets:    d.Sheets,
		metrics:   d.Metrics,
		logger:    d.Logger.WithComponent(log.ComponentHTTP),
		ready:     d.Ready,
		loc:       d.Location,
		now:       d.Now,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: d.RateLimitPerMinute}),
		detector:  security.NewDetector(),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(mux)
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			limited.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})

	var handler http.Handler = api
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(s.detector.ExtractClientIP, s.logger, s.metrics.ObserveHTTP).Middleware(handler)
	s.Handler = handler
	s.metrics.TrackRequestGuards(s.limiter.Rejected, s.detector.SuspiciousRequests)

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /api/state", s.handleState)

	mux.HandleFunc("POST /api/sims", s.handleCreateSim)
	mux.HandleFunc("PUT /api/sims/current", s.handleSelectSim)
	mux.HandleFunc("PATCH /api/sims/{id}", s.handleUpdateSim)
	mux.HandleFunc("DELETE /api/sims/{id}", s.handleDeleteSim)
	mux.HandleFunc("GET /api/sims/{id}/recharges", s.handleListRecharges)
	mux.HandleFunc("GET /api/sims/{id}/totals", s.handleTotals)
	mux.HandleFunc("GET /api/sims/{id}/balance", s.handleGetBalance)
	mux.HandleFunc("PUT /api/sims/{id}/balance", s.handlePutBalance)

	mux.HandleFunc("GET /api/sims/{id}/export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /api/sims/{id}/export.xlsx", s.handleExportXLSX)
	mux.HandleFunc("POST /api/sims/{id}/export/sheets", s.handleExportSheets)
	mux.HandleFunc("GET /api/sims/{id}/share", s.handleShare)

	mux.HandleFunc("POST /api/recharges", s.handleCreateRecharge)
	mux.HandleFunc("PATCH /api/recharges/{id}", s.handleUpdateRecharge)
	mux.HandleFunc("DELETE /api/recharges/{id}", s.handleDeleteRecharge)

	mux.HandleFunc("GET /api/session", s.handleGetSession)
	mux.HandleFunc("POST /api/session", s.handleLogin)
	mux.HandleFunc("DELETE /api/session", s.handleLogout)

	mux.HandleFunc("POST /api/sync/sms", s.handleSyncSms)
	mux.HandleFunc("POST /api/sms/parse", s.handleParseSms)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// Shutdown stops the rate limiter and gracefully shuts the HTTP server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.State())
}
