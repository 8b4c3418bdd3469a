package webhook

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"gitlab.com/manasline/api/wa-helpline-bot/internal/usecase"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
)

// Server is the HTTP surface of the bot: the provider webhook, the
// dashboard read API, the session lifecycle API, and the probes.
type Server struct {
	httpServer     *http.Server
	mux            *http.ServeMux
	logger         *zap.Logger
	verifyToken    string
	worker         usecase.IInboundWorker
	sessionService *usecase.SessionService
	aggregator     *usecase.Aggregator
}

// HealthResponse is the response structure for health check endpoints
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(
	port string,
	verifyToken string,
	worker usecase.IInboundWorker,
	sessionService *usecase.SessionService,
	aggregator *usecase.Aggregator,
	logger *zap.Logger,
) *Server {
	mux := http.NewServeMux()

	server := &Server{
		httpServer: &http.Server{
			Addr:    ":" + port,
			Handler: mux,
		},
		mux:            mux,
		logger:         logger,
		verifyToken:    verifyToken,
		worker:         worker,
		sessionService: sessionService,
		aggregator:     aggregator,
	}

	mux.HandleFunc("GET /webhook", server.handleVerify)
	mux.HandleFunc("POST /webhook", server.handleInbound)

	mux.HandleFunc("GET /api/analytics/active-users", server.handleActiveUsers)
	mux.HandleFunc("GET /api/analytics/event-stats", server.handleEventStats)
	mux.HandleFunc("GET /api/dashboard/user-growth", server.handleUserGrowth)
	mux.HandleFunc("GET /api/dashboard/session-trends", server.handleSessionTrends)
	mux.HandleFunc("GET /api/dashboard/hourly-activity", server.handleHourlyActivity)
	mux.HandleFunc("GET /api/dashboard/top-steps", server.handleTopSteps)
	mux.HandleFunc("GET /api/dashboard/funnel", server.handleFunnel)
	mux.HandleFunc("GET /api/dashboard/realtime", server.handleRealTime)
	mux.HandleFunc("POST /api/metrics/daily", server.handleDailyMetrics)

	mux.HandleFunc("POST /api/sessions", server.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/stats", server.handleSessionStats)
	mux.HandleFunc("POST /api/sessions/{id}/end", server.handleEndSession)

	mux.HandleFunc("/health", server.handleHealth)
	mux.HandleFunc("/ready", server.handleReady)

	return server
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// RegisterMetricsHandler adds the /metrics endpoint handler.
// Should only be called if metrics are enabled.
func (s *Server) RegisterMetricsHandler(handler http.Handler) {
	s.logger.Info("Registering /metrics endpoint")
	s.mux.Handle("/metrics", handler)
}

// Start begins the HTTP server
func (s *Server) Start() {
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealth handles the /health endpoint for liveness probes
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "UP",
		Version: "1.0.0",
	}

	utils.WriteJSONResponse(w, http.StatusOK, resp)
}

// handleReady handles the /ready endpoint for readiness probes
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "READY",
		Details: map[string]string{
			"timestamp": utils.FormatISO8601(utils.Now()),
		},
	}

	utils.WriteJSONResponse(w, http.StatusOK, resp)
}
