package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "gitlab.com/manasline/api/wa-helpline-bot/internal/apperrors"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/observer"
	"gitlab.com/manasline/api/wa-helpline-bot/internal/usecase"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/logger"
	"gitlab.com/manasline/api/wa-helpline-bot/pkg/utils"
)

type errorResponse struct {
	Error string `json:"error"`
}

// handleVerify answers the provider's subscription handshake: echo the
// challenge when mode and token match, 403 otherwise.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && token == s.verifyToken {
		s.logger.Info("Webhook verified")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
		return
	}
	s.logger.Warn("Webhook verification rejected", zap.String("mode", mode))
	w.WriteHeader(http.StatusForbidden)
}

// handleInbound acknowledges the provider immediately and hands the event
// to the worker pool. Processing failures are logged, never surfaced.
func (s *Server) handleInbound(w http.ResponseWriter, r *http.Request) {
	var payload CloudAPIPayload
	decodeErr := json.NewDecoder(r.Body).Decode(&payload)

	// Always 200, written before the event goes anywhere near the pool:
	// the provider retries non-2xx deliveries, the payload will not get
	// better on retry, and a saturated pool must not stall the ack.
	w.WriteHeader(http.StatusOK)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if decodeErr != nil {
		s.logger.Warn("Failed to decode webhook payload", zap.Error(decodeErr))
		return
	}

	event, ok := payload.Normalize()
	if !ok {
		return
	}

	kind, _ := event.Signal()
	signal := kind.String()
	observer.IncWebhookEventReceived(signal)

	// Detach from the request context so processing outlives the ack.
	taskCtx := logger.WithRequestID(context.Background(), uuid.NewString())
	if err := s.worker.SubmitTask(usecase.InboundTaskData{Ctx: taskCtx, Event: event}); err != nil {
		s.logger.Warn("Failed to submit inbound event",
			zap.String("from", event.From),
			zap.Error(err),
		)
		observer.IncWebhookEventFailed(signal)
	}
}

func (s *Server) handleActiveUsers(w http.ResponseWriter, r *http.Request) {
	minutes := queryInt(r, "minutes", 5)
	count, err := s.aggregator.ActiveUsers(r.Context(), minutes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"active_users": count,
		"minutes":      minutes,
	})
}

func (s *Server) handleEventStats(w http.ResponseWriter, r *http.Request) {
	end := utils.Now()
	start := end.AddDate(0, 0, -queryInt(r, "days", 7))
	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(w, r, apperrors.ErrInvalidRange)
			return
		}
		start = parsed
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(w, r, apperrors.ErrInvalidRange)
			return
		}
		end = parsed
	}

	stats, err := s.aggregator.EventStats(r.Context(), start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, stats)
}

func (s *Server) handleUserGrowth(w http.ResponseWriter, r *http.Request) {
	growth, err := s.aggregator.UserGrowth(r.Context(), queryInt(r, "days", 30))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, growth)
}

func (s *Server) handleSessionTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := s.aggregator.SessionTrends(r.Context(), queryInt(r, "days", 30))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, trends)
}

func (s *Server) handleHourlyActivity(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.aggregator.HourlyActivity(r.Context(), queryInt(r, "days", 7))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, buckets)
}

func (s *Server) handleTopSteps(w http.ResponseWriter, r *http.Request) {
	steps, err := s.aggregator.TopSteps(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, steps)
}

func (s *Server) handleFunnel(w http.ResponseWriter, r *http.Request) {
	stages, err := s.aggregator.Funnel(r.Context(), queryInt(r, "days", 30))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, stages)
}

func (s *Server) handleRealTime(w http.ResponseWriter, r *http.Request) {
	stats, err := s.aggregator.RealTimeStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, stats)
}

// handleDailyMetrics recomputes the dashboard metrics for a date
// (default: the previous UTC day).
func (s *Server) handleDailyMetrics(w http.ResponseWriter, r *http.Request) {
	date := utils.Now().Add(-24 * time.Hour)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			s.writeError(w, r, apperrors.ErrInvalidRange)
			return
		}
		date = parsed
	}

	if err := s.aggregator.CalculateDailyMetrics(r.Context(), date); err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"metric_date": date.UTC().Format("2006-01-02"),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req usecase.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	session, err := s.sessionService.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, session)
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.aggregator.SessionStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, stats)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionService.End(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, session)
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidRange),
		errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrInvalidIdentity),
		errors.Is(err, apperrors.ErrBadRequest):
		utils.WriteJSONResponse(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		utils.WriteJSONResponse(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		utils.WriteJSONResponse(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
