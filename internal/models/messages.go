package models

import "time"

// WebSocket message types
const (
	MessageStatusChanged   = "status_changed"
	MessageSessionRecorded = "session_recorded"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
}

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
