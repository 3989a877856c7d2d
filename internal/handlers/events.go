package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"neuropulse/internal/logging"
	"neuropulse/internal/metrics"
	"neuropulse/internal/middleware"
	"neuropulse/internal/models"
	"neuropulse/internal/observers"
)

// Event kinds used as the metrics label.
const (
	KindUnlock       = "unlock"
	KindNotification = "notification"
	KindUsage        = "usage"
)

// EventRecorder stores a single timestamped observer event.
type EventRecorder interface {
	Record(ctx context.Context, at time.Time) error
}

// UsageRecorder stores a foreground interval reported by the device agent.
type UsageRecorder interface {
	Record(ctx context.Context, in models.UsageInterval) error
}

type EventsHandler struct {
	unlocks       EventRecorder
	notifications EventRecorder
	usage         UsageRecorder
	now           func() time.Time
	logger        *zap.Logger
}

func NewEventsHandler(unlocks, notifications EventRecorder, usage UsageRecorder, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{
		unlocks:       unlocks,
		notifications: notifications,
		usage:         usage,
		now:           time.Now,
		logger:        logging.OrNop(logger),
	}
}

type eventRequest struct {
	At *time.Time `json:"at"`
}

func (h *EventsHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	h.recordEvent(w, r, KindUnlock, h.unlocks)
}

func (h *EventsHandler) Notification(w http.ResponseWriter, r *http.Request) {
	h.recordEvent(w, r, KindNotification, h.notifications)
}

func (h *EventsHandler) recordEvent(w http.ResponseWriter, r *http.Request, kind string, rec EventRecorder) {
	var req eventRequest
	if err := decodeOptional(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	at := h.now()
	if req.At != nil {
		if req.At.IsZero() {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{"at": "must be a valid timestamp"}, r))
			return
		}
		at = *req.At
	}

	if err := rec.Record(r.Context(), at); err != nil {
		h.logger.Error("failed to record event", zap.String("kind", kind), deviceField(r), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to record event", r))
		return
	}

	metrics.EventsIngestedTotal.WithLabelValues(kind).Inc()
	h.logger.Debug("event ingested", zap.String("kind", kind), zap.Time("at", at), deviceField(r))
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"kind": kind, "at": at.UTC()})
}

func (h *EventsHandler) Usage(w http.ResponseWriter, r *http.Request) {
	var req models.UsageInterval
	if err := decodeOptional(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.EndedAt.IsZero() {
		req.EndedAt = h.now()
	}

	if err := h.usage.Record(r.Context(), req); err != nil {
		if errors.Is(err, observers.ErrInvalidInterval) {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
			return
		}
		h.logger.Error("failed to record usage interval", zap.String("app_id", req.AppID), deviceField(r), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to record usage", r))
		return
	}

	metrics.EventsIngestedTotal.WithLabelValues(KindUsage).Inc()
	h.logger.Debug("usage ingested",
		zap.String("app_id", req.AppID),
		zap.Int64("foreground_ms", req.ForegroundMillis),
		deviceField(r),
	)
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"kind": KindUsage, "app_id": req.AppID})
}

// deviceField names the authenticated device; it is skipped when auth is off.
func deviceField(r *http.Request) zap.Field {
	if id := middleware.GetDeviceID(r.Context()); id != uuid.Nil {
		return zap.Stringer("device_id", id)
	}
	return zap.Skip()
}
