package events

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// StreamEvents holds all heartvoice.events.> subjects.
const StreamEvents = "HEARTVOICE_EVENTS"

// Subject constants.
const (
	SubjectAuditEvent = "heartvoice.events.audit"
)

// Audit event types emitted by the conversation and profile layers.
const (
	EventChatTurn        = "chat_turn"
	EventMemoryCreated   = "memory_created"
	EventMemoryUpdated   = "memory_updated"
	EventMemoryDeleted   = "memory_deleted"
	EventPasswordChanged = "password_changed"
)

// AuditEvent is published for compliance/audit logging.
type AuditEvent struct {
	UserID       uuid.UUID `json:"user_id"`
	EventType    string    `json:"event_type"`
	Severity     string    `json:"severity"` // info, warn, error
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Details      string    `json:"details"`
	Timestamp    time.Time `json:"timestamp"`
}
