// Package health serves liveness, readiness and metrics endpoints, and
// optionally mounts the record API on the same listener.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/logger"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/metrics"
)

const serviceName = "hyperfleet-bigquery-vtable"

// Server provides health check endpoints
type Server struct {
	addr      string
	server    *http.Server
	logger    logger.Logger
	metrics   *metrics.Metrics
	checks    map[string]Check
	endpoints []string
	mu        sync.RWMutex
	startTime time.Time
}

// Check represents a health check function
type Check func(ctx context.Context) error

// Config holds server configuration
type Config struct {
	// Address to listen on (e.g., ":8080")
	Address string

	// ReadTimeout for HTTP requests
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses
	WriteTimeout time.Duration

	// CheckTimeout bounds a full readiness evaluation
	CheckTimeout time.Duration

	// Logger for health server
	Logger logger.Logger

	// Metrics records check durations and failures
	Metrics *metrics.Metrics

	// Gatherer backs /metrics (default: prometheus.DefaultGatherer)
	Gatherer prometheus.Gatherer

	// Records, when set, is mounted at /records
	Records http.Handler
}

// DefaultConfig returns default health server configuration
func DefaultConfig() Config {
	return Config{
		Address:      ":8080",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		CheckTimeout: 5 * time.Second,
	}
}

// NewServer creates a new health check server
func NewServer(config Config) *Server {
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	if config.CheckTimeout <= 0 {
		config.CheckTimeout = 5 * time.Second
	}

	s := &Server{
		addr:      config.Address,
		logger:    config.Logger,
		metrics:   config.Metrics,
		checks:    make(map[string]Check),
		endpoints: []string{"/healthz", "/readyz", "/livez", "/metrics"},
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleLiveness)
	mux.HandleFunc("/readyz", s.readinessHandler(config.CheckTimeout))
	mux.HandleFunc("/livez", s.handleLiveness)
	mux.Handle("/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}))
	if config.Records != nil {
		mux.Handle("/records", config.Records)
		mux.Handle("/records/", config.Records)
		s.endpoints = append(s.endpoints, "/records")
	}
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

// Handler returns the server's root handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// RegisterCheck adds a named readiness check
func (s *Server) RegisterCheck(name string, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
	s.logger.Info("Registered health check",
		logger.String("name", name),
	)
}

// Start serves in the background; listener errors are logged
func (s *Server) Start() error {
	s.logger.Info("Starting health server",
		logger.String("address", s.addr),
	)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Health server error", logger.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the health check server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping health server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	response := map[string]interface{}{
		"service":   serviceName,
		"status":    "running",
		"uptime":    time.Since(s.startTime).String(),
		"endpoints": s.endpoints,
	}
	writeJSON(w, http.StatusOK, response)
}

// handleLiveness answers as long as the process can serve requests
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Checks: map[string]string{
			"server": "running",
		},
	})
}

// readinessHandler runs every registered check within timeout
func (s *Server) readinessHandler(timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		s.mu.RLock()
		names := make([]string, 0, len(s.checks))
		checks := make(map[string]Check, len(s.checks))
		for name, check := range s.checks {
			names = append(names, name)
			checks[name] = check
		}
		s.mu.RUnlock()
		sort.Strings(names)

		if len(checks) == 0 {
			writeJSON(w, http.StatusOK, HealthResponse{
				Status: "ok",
				Checks: map[string]string{"server": "ready"},
			})
			return
		}

		results := make(map[string]string, len(checks))
		allHealthy := true

		for _, name := range names {
			start := time.Now()
			err := checks[name](ctx)
			s.metrics.RecordHealthCheck(name, time.Since(start), err)

			if err != nil {
				results[name] = "failed: " + err.Error()
				allHealthy = false
				s.logger.Warn("Health check failed",
					logger.String("check", name),
					logger.Error(err),
				)
				continue
			}
			results[name] = "ok"
		}

		status := "ok"
		statusCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		writeJSON(w, statusCode, HealthResponse{
			Status: status,
			Checks: results,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
