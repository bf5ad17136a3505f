package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/heartvoice/heartvoice/internal/message"
)

// Recorder adapts the message repository to the MessageRecorder interface.
type Recorder struct {
	repo message.Repository
}

func NewRecorder(repo message.Repository) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) RecordUser(ctx context.Context, userID uuid.UUID, msgID, content string, meta map[string]any) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding message meta: %w", err)
	}
	return r.repo.Create(ctx, &message.Message{
		UserID:    userID,
		MsgID:     msgID,
		Sender:    "user",
		Intent:    string(IntentChat),
		Content:   content,
		Meta:      metaJSON,
		CreatedAt: time.Now(),
	})
}

func (r *Recorder) RecordAssistant(ctx context.Context, userID uuid.UUID, out Outbound, memoryID *uuid.UUID) error {
	metaJSON, err := json.Marshal(out.Meta)
	if err != nil {
		return fmt.Errorf("encoding message meta: %w", err)
	}
	return r.repo.Create(ctx, &message.Message{
		UserID:    userID,
		MsgID:     out.MsgID,
		Sender:    out.Sender,
		Intent:    string(out.Intent),
		Content:   out.Content,
		Meta:      metaJSON,
		MemoryID:  memoryID,
		CreatedAt: time.Unix(out.Timestamp, 0),
	})
}
