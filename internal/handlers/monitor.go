package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"neuropulse/internal/logging"
	"neuropulse/internal/models"
	"neuropulse/internal/services"
)

// Monitor is the control surface of the usage monitor exposed over HTTP.
type Monitor interface {
	Start()
	Stop()
	Status() services.MonitorState
	Sessions(ctx context.Context) ([]models.SessionRecord, error)
}

type MonitorHandler struct {
	monitor Monitor
	logger  *zap.Logger
}

func NewMonitorHandler(monitor Monitor, logger *zap.Logger) *MonitorHandler {
	return &MonitorHandler{monitor: monitor, logger: logging.OrNop(logger)}
}

func (h *MonitorHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.monitor.Start()
	writeJSON(w, http.StatusOK, map[string]string{"status": string(h.monitor.Status())})
}

// Stop blocks until an in-flight cycle has finished.
func (h *MonitorHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.monitor.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": string(h.monitor.Status())})
}

func (h *MonitorHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": string(h.monitor.Status())})
}

type SessionHandler struct {
	monitor Monitor
	logger  *zap.Logger
}

func NewSessionHandler(monitor Monitor, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{monitor: monitor, logger: logging.OrNop(logger)}
}

// List returns every stored session in insertion order.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.monitor.Sessions(r.Context())
	if err != nil {
		h.logger.Error("failed to list sessions", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load sessions", r))
		return
	}
	if sessions == nil {
		sessions = []models.SessionRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}
