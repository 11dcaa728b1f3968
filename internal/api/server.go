// Package api exposes the scan engine over HTTP
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/dpdp-scanner/internal/config"
	"github.com/raaihank/dpdp-scanner/internal/history"
	"github.com/raaihank/dpdp-scanner/internal/logger"
	"github.com/raaihank/dpdp-scanner/internal/scan"
	"github.com/raaihank/dpdp-scanner/internal/source"
	"github.com/raaihank/dpdp-scanner/internal/websocket"
)

// Version is reported by the info endpoint
const Version = "0.1.0"

// Server represents the HTTP API server
type Server struct {
	config  *config.Config
	logger  *logger.Logger
	engine  *scan.Engine
	history history.Store
	wsHub   *websocket.Hub
	limiter *RateLimiter
	router  *mux.Router
	server  *http.Server
	cancel  context.CancelFunc

	openDatabase func(ctx context.Context, driver, dsn string) (*source.Database, error)
	openBucket   func(ctx context.Context, target source.BucketTarget) (*source.Bucket, error)
}

// New creates a new API server. hub may be nil when live events are disabled.
func New(cfg *config.Config, log *logger.Logger, engine *scan.Engine, store history.Store, hub *websocket.Hub) *Server {
	s := &Server{
		config:       cfg,
		logger:       log.WithComponent("api"),
		engine:       engine,
		history:      store,
		wsHub:        hub,
		limiter:      NewRateLimiter(cfg.RateLimit),
		router:       mux.NewRouter(),
		openDatabase: source.OpenDatabase,
		openBucket:   source.OpenBucket,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(corsMiddleware)

	s.router.HandleFunc("/", s.handleRoot).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")
	s.router.HandleFunc("/history", s.handleHistory).Methods("GET")
	s.router.HandleFunc("/history/", s.handleHistory).Methods("GET")

	scans := s.router.NewRoute().Subrouter()
	scans.Use(s.rateLimitMiddleware)
	scans.HandleFunc("/scan-file/", s.handleScanFile).Methods("POST", "OPTIONS")
	scans.HandleFunc("/scan-database/", s.handleScanDatabase).Methods("POST", "OPTIONS")
	scans.HandleFunc("/scan-s3/", s.handleScanS3).Methods("POST", "OPTIONS")

	if s.wsHub != nil {
		s.router.HandleFunc(s.config.WebSocket.Path, s.wsHub.HandleWebSocket).Methods("GET")
	}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the hub, the limiter janitor and the HTTP server. It blocks
// until the server stops.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.logger.Info("Starting DPDP scanner API server",
		zap.Int("port", s.config.Server.Port),
		zap.String("history_backend", s.config.History.Backend),
		zap.Bool("rate_limit", s.config.RateLimit.Enabled),
		zap.Bool("websocket", s.wsHub != nil),
	)

	if s.wsHub != nil {
		go s.wsHub.Run(ctx)
	}
	go s.limiter.RunJanitor(ctx, time.Minute, 10*time.Minute)

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping DPDP scanner API server")
	if s.cancel != nil {
		s.cancel()
	}
	return s.server.Shutdown(ctx)
}
