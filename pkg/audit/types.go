package audit

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthSuccess  EventType = "auth.success"
	EventTypeAuthFailed   EventType = "auth.failed"
	EventTypeAuthReplay   EventType = "auth.replay"
	EventTypeAuthStale    EventType = "auth.stale_timestamp"
	EventTypeAuthIPDenied EventType = "auth.ip_denied"

	// Authorization events
	EventTypeAuthzAccessDenied EventType = "authz.access_denied"

	// Configuration events
	EventTypeCredentialsReload EventType = "config.credentials_reload"

	// Read/access events
	EventTypeAccessActivityStream EventType = "access.activity_stream"
	EventTypeAccessDataHub        EventType = "access.data_hub"
	EventTypeAccessDataFlow       EventType = "access.data_flow"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event represents a single audit log entry
type Event struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor: the Hawk credential id, when one was presented
	CredentialID string `json:"credential_id,omitempty"`

	// Request context
	IPAddress  string `json:"ip_address,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Method     string `json:"method,omitempty"`
	Path       string `json:"path,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`

	// Additional details
	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// NewEvent creates an event with a fresh id and timestamp
func NewEvent(eventType EventType, status EventStatus) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		Metadata:  make(map[string]interface{}),
	}
}

// WithRequest copies request details onto the event
func (e *Event) WithRequest(r *http.Request) *Event {
	e.Method = r.Method
	e.Path = r.URL.Path
	e.UserAgent = r.UserAgent()
	return e
}
