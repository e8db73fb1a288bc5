package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/RichardoC/chat-relay/internal/chat"
	"github.com/RichardoC/chat-relay/internal/models"
)

// Relay is the conversation surface the handler exposes.
type Relay interface {
	HandleTurn(ctx context.Context, sessionID, text string) (string, error)
	HandleClear(ctx context.Context, sessionID string) error
	HandleHistory(ctx context.Context, sessionID string) ([]models.Message, error)
}

type Handler struct {
	relay    Relay
	logger   *zap.Logger
	gatherer prometheus.Gatherer
	health   func(context.Context) error
}

func NewHandler(relay Relay, logger *zap.Logger, gatherer prometheus.Gatherer) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{
		relay:    relay,
		logger:   logger,
		gatherer: gatherer,
	}
}

// WithHealthCheck makes /healthz report check's failure as 503.
func (h *Handler) WithHealthCheck(check func(context.Context) error) *Handler {
	h.health = check
	return h
}

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type ChatResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type ClearRequest struct {
	SessionID string `json:"sessionId"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Routes returns the API mux wrapped in request logging and CORS.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", h.HandleChat)
	mux.HandleFunc("/api/clear", h.HandleClear)
	mux.HandleFunc("/api/history", h.HandleHistory)
	mux.HandleFunc("/healthz", h.HandleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	return h.withRequestID(withCORS(mux))
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sessionID := models.SessionIDOrDefault(req.SessionID)

	reply, err := h.relay.HandleTurn(r.Context(), sessionID, req.Message)
	if err != nil {
		h.renderError(w, r, err, "Failed to process message", zap.String("session_id", sessionID))
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Message: reply, SessionID: sessionID})
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ClearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sessionID := models.SessionIDOrDefault(req.SessionID)

	if err := h.relay.HandleClear(r.Context(), sessionID); err != nil {
		h.renderError(w, r, err, "Failed to clear conversation", zap.String("session_id", sessionID))
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sessionID := models.SessionIDOrDefault(r.URL.Query().Get("sessionId"))

	messages, err := h.relay.HandleHistory(r.Context(), sessionID)
	if err != nil {
		h.renderError(w, r, err, "Failed to get messages", zap.String("session_id", sessionID))
		return
	}

	h.logger.Debug("Retrieved history",
		zap.String("session_id", sessionID),
		zap.Int("count", len(messages)))

	writeJSON(w, http.StatusOK, messages)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.logger.Warn("Health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// renderError maps orchestrator errors to status codes. Inference failures
// get a generic message; the cause only goes to the log.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error, msg string, fields ...zap.Field) {
	fields = append(fields, zap.Error(err), zap.String("request_id", requestID(r.Context())))

	switch {
	case errors.Is(err, chat.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Message is required")
	case errors.Is(err, chat.ErrInferenceFailure):
		h.logger.Error(msg, fields...)
		writeError(w, http.StatusBadGateway, "Sorry, I could not generate a response.")
	default:
		h.logger.Error(msg, fields...)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

type ctxKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// withRequestID tags every request with an id and logs its completion.
func (h *Handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))

		h.logger.Debug("Handled request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
