// Package server provides the HTTP server and routing for foliotrack.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/config"
	"github.com/foliotrack/foliotrack/internal/database"
	"github.com/foliotrack/foliotrack/internal/modules/accounts"
	accountshandlers "github.com/foliotrack/foliotrack/internal/modules/accounts/handlers"
	"github.com/foliotrack/foliotrack/internal/modules/cashflows"
	cashflowshandlers "github.com/foliotrack/foliotrack/internal/modules/cashflows/handlers"
	"github.com/foliotrack/foliotrack/internal/modules/marketdata"
	marketdatahandlers "github.com/foliotrack/foliotrack/internal/modules/marketdata/handlers"
	"github.com/foliotrack/foliotrack/internal/modules/snapshots"
	snapshotshandlers "github.com/foliotrack/foliotrack/internal/modules/snapshots/handlers"
	"github.com/foliotrack/foliotrack/internal/modules/trades"
	tradeshandlers "github.com/foliotrack/foliotrack/internal/modules/trades/handlers"
	"github.com/foliotrack/foliotrack/internal/scheduler"
)

// Config holds everything the server wires together
type Config struct {
	Log       zerolog.Logger
	Cfg       *config.Config
	DB        *database.DB
	Scheduler *scheduler.Scheduler

	TradesRepo    *trades.Repository
	FlowsRepo     *cashflows.Repository
	AccountsRepo  *accounts.Repository
	SnapshotsRepo *snapshots.Repository
	SnapshotSvc   *snapshots.Service
	PriceCache    *marketdata.Cache
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            Config
	stream         *StreamHub
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
		stream: NewStreamHub(cfg.Log),
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Cfg.DataDir,
			cfg.DB,
			cfg.Scheduler,
		),
	}

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Stream returns the websocket hub so other components can publish
func (s *Server) Stream() *StreamHub {
	return s.stream
}

// SetJobs registers job instances for manual triggering via the API
func (s *Server) SetJobs(snapshot, backup, priceFlush scheduler.Job) {
	s.systemHandlers.SetJobs(snapshot, backup, priceFlush)
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	// Long-lived, so outside the /api timeout
	s.router.Get("/ws/stream", s.stream.HandleStream)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		tradeshandlers.NewHandlers(s.cfg.TradesRepo, s.cfg.PriceCache, s.log).RegisterRoutes(r)
		cashflowshandlers.NewHandlers(s.cfg.FlowsRepo, s.log).RegisterRoutes(r)
		accountshandlers.NewHandlers(s.cfg.AccountsRepo, s.log).RegisterRoutes(r)
		snapshotshandlers.NewHandlers(s.cfg.SnapshotsRepo, s.cfg.SnapshotSvc, s.stream, s.log).RegisterRoutes(r)
		marketdatahandlers.NewHandlers(s.cfg.PriceCache, s.cfg.TradesRepo, s.stream, s.log).RegisterRoutes(r)

		r.Route("/system", func(r chi.Router) {
			r.Get("/health", s.systemHandlers.HandleHealth)
			r.Route("/jobs", func(r chi.Router) {
				r.Post("/snapshot", s.systemHandlers.HandleTriggerSnapshot)
				r.Post("/backup", s.systemHandlers.HandleTriggerBackup)
				r.Post("/price-flush", s.systemHandlers.HandleTriggerPriceFlush)
			})
		})
	})
}

// loggingMiddleware logs requests at debug level, errors at warn
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		event := s.log.Debug()
		if ww.Status() >= http.StatusInternalServerError {
			event = s.log.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("Request")
	})
}

// Start begins listening. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}
