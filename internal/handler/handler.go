package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"resttimer/internal/domain"
	"resttimer/internal/events"
	"resttimer/internal/sessionid"
)

// TimerService defines the service interface.
// This allows testing handlers without real service implementation.
type TimerService interface {
	Create(ctx context.Context, seconds int, variant domain.Variant, muted bool) (*domain.Session, error)
	State(ctx context.Context, id string) (domain.State, error)
	Toggle(ctx context.Context, id string) (domain.State, error)
	Reset(ctx context.Context, id string) (domain.State, error)
	Adjust(ctx context.Context, id string, delta int) (domain.State, error)
	SelectPreset(ctx context.Context, id string, seconds int) (domain.State, error)
	SetMuted(ctx context.Context, id string, muted bool) error
	Delete(ctx context.Context, id string) error
	Subscribe(ctx context.Context, id string) (<-chan events.Event, func(), error)
	Presets() domain.PresetCatalog
	Policies() domain.PolicyTable
}

// Config holds handler defaults.
type Config struct {
	DefaultSeconds int
	DefaultVariant domain.Variant
	StreamInterval time.Duration
	AllowedOrigins []string
	// SampleRate of rendered sound cues.
	SampleRate int
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	service  TimerService
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a new Handler with the given dependencies.
func New(service TimerService, cfg Config, logger *slog.Logger) *Handler {
	if cfg.DefaultSeconds < 1 {
		cfg.DefaultSeconds = 60
	}
	if !cfg.DefaultVariant.Valid() {
		cfg.DefaultVariant = domain.VariantFull
	}
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = 250 * time.Millisecond
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 22050
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		service: service,
		cfg:     cfg,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if len(cfg.AllowedOrigins) > 0 {
		h.upgrader.CheckOrigin = h.checkOrigin
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	for _, allowed := range h.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// sessionID reads the {id} path value. Malformed IDs cannot name a session,
// so they answer 404 without reaching the service.
func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if !sessionid.Valid(id) {
		h.writeError(w, http.StatusNotFound, "not_found", "timer not found")
		return "", false
	}
	return id, true
}

// writeServiceError maps service errors onto responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", "timer not found")
	case errors.Is(err, domain.ErrInvalidDuration), errors.Is(err, domain.ErrInvalidVariant):
		h.writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		h.logger.Error(fallback, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}
