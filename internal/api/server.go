// Package api provides the HTTP read API over the burn ledger and the
// daily rollup table.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/burn-tracker/internal/logging"
	"github.com/burn-tracker/internal/models"
	"github.com/burn-tracker/internal/storage"
)

// Service interfaces for dependency injection and testing

// BurnReaderInterface defines the read operations served from the
// transaction ledger.
type BurnReaderInterface interface {
	ListRecent(ctx context.Context, limit int) ([]*models.BurnTransaction, error)
	Latest(ctx context.Context) (*models.BurnTransaction, error)
	TotalSince(ctx context.Context, start time.Time) (float64, error)
	TodayTotal(ctx context.Context) (float64, error)
	TotalUSDSince(ctx context.Context, start time.Time) (float64, error)
}

// DailyReaderInterface defines the read operations served from the daily
// rollup table.
type DailyReaderInterface interface {
	Get(ctx context.Context, date string) (*models.DailyBurn, error)
	Latest(ctx context.Context) (*models.DailyBurn, error)
	ListSince(ctx context.Context, start string) ([]*models.DailyBurn, error)
	StartDate() string
}

// CacheInterface fronts hot read paths; the server works without one.
type CacheInterface interface {
	Set(ctx context.Context, key string, value interface{}) error
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	KeyRecent(limit int) string
	KeyLatest() string
	KeyStats() string
	KeyDailySince(start string) string
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	burns      BurnReaderInterface
	daily      DailyReaderInterface
	cache      CacheInterface
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer creates a new API server instance. cache may be nil, in which
// case every read goes straight to storage.
func NewServer(config *ServerConfig, burns BurnReaderInterface, daily DailyReaderInterface, cache CacheInterface) *Server {
	s := &Server{
		router: mux.NewRouter(),
		burns:  burns,
		daily:  daily,
		cache:  cache,
		config: config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Middleware order matters: logging wraps everything, recovery before
	// any handler can panic.
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Transaction ledger endpoints
	api.HandleFunc("/burns/recent", s.handleRecentBurns).Methods("GET")
	api.HandleFunc("/burns/latest", s.handleLatestBurn).Methods("GET")
	api.HandleFunc("/burns/stats", s.handleBurnStats).Methods("GET")

	// Daily rollup endpoints. The literal segments register before the
	// {date} capture so "latest" is never parsed as a date.
	api.HandleFunc("/daily", s.handleDailySeries).Methods("GET")
	api.HandleFunc("/daily/latest", s.handleLatestDaily).Methods("GET")
	api.HandleFunc("/daily/{date}", s.handleDailyByDate).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "burn-tracker",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the configured router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// defaultRecentLimit is used when the limit query parameter is absent.
const defaultRecentLimit = storage.DefaultRecentLimit
