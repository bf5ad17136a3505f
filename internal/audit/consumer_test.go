package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartvoice/heartvoice/internal/events"
)

func TestConvertEventToLog(t *testing.T) {
	userID := uuid.New()
	memID := uuid.New()

	event := events.AuditEvent{
		UserID:       userID,
		EventType:    events.EventMemoryCreated,
		Severity:     "info",
		ResourceType: "memory",
		ResourceID:   memID.String(),
		Details:      "memory created from chat photo upload",
		Timestamp:    time.Now().UTC(),
	}

	log := convertEventToLog(event)

	assert.Equal(t, userID, log.UserID)
	assert.Equal(t, events.EventMemoryCreated, log.EventType)
	assert.Equal(t, "info", log.Severity)
	assert.Equal(t, "memory", log.ResourceType)
	require.NotNil(t, log.ResourceID)
	assert.Equal(t, memID, *log.ResourceID)

	var details map[string]string
	require.NoError(t, json.Unmarshal(log.Details, &details))
	assert.Equal(t, "memory created from chat photo upload", details["message"])
}

func TestConvertEventToLog_NonUUIDResourceID(t *testing.T) {
	event := events.AuditEvent{
		UserID:       uuid.New(),
		EventType:    events.EventChatTurn,
		Severity:     "info",
		ResourceType: "conversation",
		ResourceID:   "not-a-uuid",
		Details:      "turn resolved to chat",
		Timestamp:    time.Now().UTC(),
	}

	log := convertEventToLog(event)

	assert.Nil(t, log.ResourceID)
	assert.Equal(t, events.EventChatTurn, log.EventType)
}

func TestConvertEventToLog_EmptyResourceID(t *testing.T) {
	event := events.AuditEvent{
		UserID:    uuid.New(),
		EventType: events.EventPasswordChanged,
		Severity:  "info",
		Timestamp: time.Now().UTC(),
	}

	log := convertEventToLog(event)

	assert.Nil(t, log.ResourceID)
	assert.NotEqual(t, uuid.Nil, log.ID)
}

func TestAuditEventRoundTrip(t *testing.T) {
	event := events.AuditEvent{
		UserID:       uuid.New(),
		EventType:    events.EventMemoryDeleted,
		Severity:     "info",
		ResourceType: "memory",
		ResourceID:   uuid.New().String(),
		Details:      "memory delete requested via chat (photo)",
		Timestamp:    time.Now().UTC().Truncate(time.Second),
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded events.AuditEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event, decoded)
}
