package message

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message is one side of a conversation turn, user or assistant.
type Message struct {
	ID        uuid.UUID       `json:"-"`
	UserID    uuid.UUID       `json:"-"`
	MsgID     string          `json:"msgId"`
	Sender    string          `json:"sender"`
	Intent    string          `json:"intent"`
	Content   string          `json:"content"`
	Meta      json.RawMessage `json:"meta"`
	MemoryID  *uuid.UUID      `json:"memory_id,omitempty"`
	CreatedAt time.Time       `json:"-"`
}

// APIMessage is the wire shape of a history entry. Timestamp is unix seconds.
type APIMessage struct {
	MsgID     string          `json:"msgId"`
	Sender    string          `json:"sender"`
	Intent    string          `json:"intent"`
	Content   string          `json:"content"`
	Meta      json.RawMessage `json:"meta"`
	Timestamp int64           `json:"timestamp"`
}

// ToAPI converts a stored message to its wire shape.
func (m *Message) ToAPI() APIMessage {
	meta := m.Meta
	if len(meta) == 0 {
		meta = json.RawMessage(`{}`)
	}
	return APIMessage{
		MsgID:     m.MsgID,
		Sender:    m.Sender,
		Intent:    m.Intent,
		Content:   m.Content,
		Meta:      meta,
		Timestamp: m.CreatedAt.Unix(),
	}
}
