// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Aghostraa/oli-frontend/internal/chains"
	"github.com/Aghostraa/oli-frontend/internal/logging"
	"github.com/Aghostraa/oli-frontend/internal/oli"
	"github.com/Aghostraa/oli-frontend/internal/service"
	"github.com/Aghostraa/oli-frontend/internal/types"
)

// Service interfaces for dependency injection and testing

// SearchServiceInterface defines the tag search operations
type SearchServiceInterface interface {
	SearchByTag(ctx context.Context, input service.SearchInput) (*oli.SearchResponse, error)
	SearchGroups(ctx context.Context, input service.SearchInput) (*service.GroupedSearchResult, error)
}

// AddressServiceInterface defines the address lookup operation
type AddressServiceInterface interface {
	Lookup(ctx context.Context, input service.LookupInput) (*service.LookupResult, error)
}

// LabelServiceInterface defines the labels passthrough
type LabelServiceInterface interface {
	GetLabels(ctx context.Context, params oli.LabelsParams) (*oli.LabelsResponse, error)
}

// AttestationServiceInterface defines the attestations passthrough
type AttestationServiceInterface interface {
	GetAttestations(ctx context.Context, params oli.AttestationParams) (*oli.AttestationsResponse, error)
}

// LeaderboardServiceInterface defines the attester leaderboard
type LeaderboardServiceInterface interface {
	Attesters(ctx context.Context, limit *int, order types.LeaderboardOrder, chainToken string) (json.RawMessage, error)
}

// AnalyticsServiceInterface defines the search analytics
type AnalyticsServiceInterface interface {
	TopTags(ctx context.Context, hours, limit int) (*service.TopTagsReport, error)
}

// ChainServiceInterface defines the chain registry and CAIP helpers
type ChainServiceInterface interface {
	List() []chains.Descriptor
	Resolve(token string) (*service.Resolution, error)
	ParseCaip10(value string) (chains.Caip10, error)
	BuildCaip10(chainID, address string) (string, error)
}

// PerformanceReporter exposes read-through fetch statistics
type PerformanceReporter interface {
	Report() *service.PerformanceReport
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Services bundles the handlers' dependencies
type Services struct {
	Search       SearchServiceInterface
	Address      AddressServiceInterface
	Labels       LabelServiceInterface
	Attestations AttestationServiceInterface
	Leaderboard  LeaderboardServiceInterface
	Analytics    AnalyticsServiceInterface
	Chains       ChainServiceInterface
	Performance  PerformanceReporter
	HealthChecks map[string]HealthCheck
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	services   Services
	limiter    *RateLimiter
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestsPerSec  int // per client IP, 0 disables rate limiting
	Burst           int
	AllowedOrigins  []string
}

// DefaultServerConfig returns the timeouts used by the server binary
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            "0.0.0.0",
		Port:            "8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    75 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		RequestsPerSec:  10,
		Burst:           20,
	}
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, services Services) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}

	s := &Server{
		router:   mux.NewRouter(),
		services: services,
		config:   config,
	}
	if config.RequestsPerSec > 0 {
		s.limiter = NewRateLimiter(config.RequestsPerSec, config.Burst)
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// order matters: request id first so every later log line carries it
	s.router.Use(RequestIDMiddleware)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware(s.config.AllowedOrigins))
	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter))
	}
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()
	s.router.NotFoundHandler = http.HandlerFunc(notFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

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
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Search endpoints
	api.HandleFunc("/addresses/search", s.handleSearchAddresses).Methods("GET", "OPTIONS")
	api.HandleFunc("/addresses/search/groups", s.handleSearchGroups).Methods("GET", "OPTIONS")
	api.HandleFunc("/addresses/lookup", s.handleLookupAddress).Methods("GET", "OPTIONS")

	// OLI passthrough endpoints
	api.HandleFunc("/labels", s.handleGetLabels).Methods("GET", "OPTIONS")
	api.HandleFunc("/attestations", s.handleGetAttestations).Methods("GET", "OPTIONS")
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET", "OPTIONS")

	// Chain endpoints
	api.HandleFunc("/chains", s.handleListChains).Methods("GET", "OPTIONS")
	api.HandleFunc("/chains/resolve", s.handleResolveChain).Methods("GET", "OPTIONS")
	api.HandleFunc("/caip10/parse", s.handleParseCaip10).Methods("GET", "OPTIONS")
	api.HandleFunc("/caip10/build", s.handleBuildCaip10).Methods("GET", "OPTIONS")

	api.HandleFunc("/analytics/top-tags", s.handleTopTags).Methods("GET", "OPTIONS")
	api.HandleFunc("/stats/performance", s.handlePerformance).Methods("GET", "OPTIONS")
}

// Handler returns the root handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealth reports the status of every configured dependency. A failing
// dependency degrades the status but the gateway keeps serving.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	checks := make(map[string]string, len(s.services.HealthChecks))
	for name, check := range s.services.HealthChecks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"service": "oli-search-gateway",
		"checks":  checks,
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.Infof("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
