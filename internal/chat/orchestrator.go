package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartvoice/heartvoice/internal/auth"
	"github.com/heartvoice/heartvoice/internal/events"
	"github.com/heartvoice/heartvoice/internal/memory"
	"github.com/heartvoice/heartvoice/internal/metrics"
	"github.com/heartvoice/heartvoice/internal/users"
)

// Inbound is one user message as received from the client.
type Inbound struct {
	Text     string         `json:"text" validate:"required,min=1,max=2000"`
	ImageURL string         `json:"imageUrl" validate:"omitempty,url,max=500"`
	MemoryID string         `json:"memoryId" validate:"omitempty,uuid"`
	Extra    map[string]any `json:"extra"`
}

// Sentinel errors surfaced to the transport layer. The conversation
// context is left unchanged when either is returned.
var (
	ErrMemoryNotFound = errors.New("memory not found")
	ErrInvalidInput   = errors.New("invalid input")
)

// MessageRecorder persists both sides of a conversation turn.
type MessageRecorder interface {
	RecordUser(ctx context.Context, userID uuid.UUID, msgID, content string, meta map[string]any) error
	RecordAssistant(ctx context.Context, userID uuid.UUID, out Outbound, memoryID *uuid.UUID) error
}

// MemoryService is the slice of the memory domain the orchestrator needs.
type MemoryService interface {
	Create(ctx context.Context, userID uuid.UUID, params memory.CreateMemoryParams) (*memory.Memory, error)
	GetByID(ctx context.Context, id, userID uuid.UUID) (*memory.Memory, error)
	Update(ctx context.Context, id, userID uuid.UUID, params memory.UpdateMemoryParams) (*memory.Memory, error)
	Delete(ctx context.Context, id, userID uuid.UUID, deleteType memory.DeleteType) error
	Search(ctx context.Context, userID uuid.UUID, query string, limit int) ([]memory.Memory, error)
}

// ProfileService is the slice of the user domain the orchestrator needs.
type ProfileService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// AuditPublisher emits audit events. May be absent when the event bus
// is disabled.
type AuditPublisher interface {
	PublishAuditEvent(ctx context.Context, event events.AuditEvent) error
}

const minPasswordLength = 6

// contextPatch carries handler-produced context updates. On Arm it is
// applied to the fresh continuation context; on NoChange non-empty
// fields are merged into the existing one.
type contextPatch struct {
	memoryID     string
	pendingField string
	newValue     string
}

func (p contextPatch) empty() bool {
	return p == contextPatch{}
}

// Orchestrator drives the conversation state machine: classify, dispatch,
// persist both sides of the turn, then transition the context.
type Orchestrator struct {
	classifier Classifier
	catalog    *Catalog
	contexts   ContextStore
	messages   MessageRecorder
	memories   MemoryService
	profiles   ProfileService
	audit      AuditPublisher

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewOrchestrator(
	classifier Classifier,
	catalog *Catalog,
	contexts ContextStore,
	messages MessageRecorder,
	memories MemoryService,
	profiles ProfileService,
	audit AuditPublisher,
) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		catalog:    catalog,
		contexts:   contexts,
		messages:   messages,
		memories:   memories,
		profiles:   profiles,
		audit:      audit,
		locks:      make(map[uuid.UUID]*sync.Mutex),
	}
}

// userLock returns the per-user mutex, creating it on first use. Turns
// for the same user are serialized so context read-modify-write cannot race.
func (o *Orchestrator) userLock(userID uuid.UUID) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[userID] = l
	}
	return l
}

// HandleTurn processes one inbound message and returns the assistant reply.
func (o *Orchestrator) HandleTurn(ctx context.Context, userID uuid.UUID, in Inbound) (Outbound, error) {
	lock := o.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	prior, err := o.contexts.Get(ctx, userID.String())
	if err != nil {
		return Outbound{}, err
	}

	userMeta := map[string]any{}
	if in.ImageURL != "" {
		userMeta["imageUrl"] = in.ImageURL
	}
	if err := o.messages.RecordUser(ctx, userID, NewMessageID("user"), in.Text, userMeta); err != nil {
		return Outbound{}, fmt.Errorf("recording user message: %w", err)
	}

	intent := o.classifier.Classify(in.Text, prior)

	out, patch, err := o.dispatch(ctx, userID, intent, in, prior)
	if err != nil {
		return Outbound{}, err
	}

	memoryID := parseMemoryID(patch.memoryID, prior.MemoryID, in.MemoryID)
	if err := o.messages.RecordAssistant(ctx, userID, out, memoryID); err != nil {
		return Outbound{}, fmt.Errorf("recording assistant message: %w", err)
	}

	if err := o.transition(ctx, userID, in, prior, out.Intent, patch); err != nil {
		return Outbound{}, err
	}

	metrics.ChatTurnsTotal.WithLabelValues(string(out.Intent)).Inc()
	o.publishAudit(ctx, events.AuditEvent{
		UserID:       userID,
		EventType:    events.EventChatTurn,
		Severity:     "info",
		ResourceType: "conversation",
		Details:      fmt.Sprintf("turn resolved to %s", out.Intent),
		Timestamp:    time.Now().UTC(),
	})

	return out, nil
}

// transition applies the continuation policy. It is driven by the intent
// of the produced response, not the classified intent of the inbound text.
func (o *Orchestrator) transition(ctx context.Context, userID uuid.UUID, in Inbound, prior Context, produced Intent, patch contextPatch) error {
	key := userID.String()
	switch Continuation(produced) {
	case Arm:
		next := Context{ExpectedIntent: produced}
		if in.MemoryID != "" {
			next.MemoryID = in.MemoryID
		}
		if patch.memoryID != "" {
			next.MemoryID = patch.memoryID
		}
		next.PendingField = patch.pendingField
		next.NewValue = patch.newValue
		if err := o.contexts.Set(ctx, key, next); err != nil {
			return err
		}
		metrics.ChatFlowsArmedTotal.Inc()
	case Clear:
		if err := o.contexts.Clear(ctx, key); err != nil {
			return err
		}
		metrics.ChatFlowsCompletedTotal.Inc()
	case NoChange:
		if patch.empty() {
			return nil
		}
		merged := prior
		if patch.memoryID != "" {
			merged.MemoryID = patch.memoryID
		}
		if patch.pendingField != "" {
			merged.PendingField = patch.pendingField
		}
		if patch.newValue != "" {
			merged.NewValue = patch.newValue
		}
		if err := o.contexts.Set(ctx, key, merged); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, userID uuid.UUID, intent Intent, in Inbound, prior Context) (Outbound, contextPatch, error) {
	switch intent {
	case IntentSaveMemory:
		return o.handleSaveMemory(ctx, userID, in)
	case IntentAddDescription:
		return o.handleAddDescription(ctx, userID, in, prior)
	case IntentSearchMemory:
		return o.handleSearchMemory(ctx, userID, in)
	case IntentDeleteMemory:
		return o.handleDeleteMemory(in)
	case IntentConfirmDelete:
		return o.handleConfirmDelete(ctx, userID, in, prior)
	case IntentEditMemory:
		return o.handleEditMemory(ctx, userID, in, prior)
	case IntentUpdateName:
		return o.handleUpdateName(ctx, userID)
	case IntentUpdateAvatar:
		return o.catalog.Render(IntentUpdateAvatar, RenderData{}), contextPatch{}, nil
	case IntentUpdatePassword:
		return o.handleUpdatePassword(ctx, userID, in, prior)
	default:
		return o.handleChat(ctx, userID)
	}
}

func (o *Orchestrator) handleChat(ctx context.Context, userID uuid.UUID) (Outbound, contextPatch, error) {
	data := RenderData{}
	if user, err := o.profiles.GetByID(ctx, userID); err == nil && user != nil {
		data.CurrentName = user.Name
	}
	return o.catalog.Render(IntentChat, data), contextPatch{}, nil
}

// handleSaveMemory starts (or re-prompts) the save flow. With a photo
// attached it creates the memory immediately and asks for a description.
func (o *Orchestrator) handleSaveMemory(ctx context.Context, userID uuid.UUID, in Inbound) (Outbound, contextPatch, error) {
	if in.ImageURL == "" {
		return o.catalog.Render(IntentSaveMemory, RenderData{}), contextPatch{}, nil
	}

	mem, err := o.memories.Create(ctx, userID, memory.CreateMemoryParams{ImageURL: in.ImageURL})
	if err != nil {
		return Outbound{}, contextPatch{}, fmt.Errorf("creating memory: %w", err)
	}

	out := o.catalog.Render(IntentAddDescription, RenderData{})
	out.Meta["memoryId"] = mem.ID.String()
	out.Meta["imageUrl"] = in.ImageURL

	o.publishAudit(ctx, events.AuditEvent{
		UserID:       userID,
		EventType:    events.EventMemoryCreated,
		Severity:     "info",
		ResourceType: "memory",
		ResourceID:   mem.ID.String(),
		Details:      "memory created from chat photo upload",
		Timestamp:    time.Now().UTC(),
	})

	return out, contextPatch{memoryID: mem.ID.String()}, nil
}

// handleAddDescription completes the save flow: the message text becomes
// the memory's description and labels are extracted from it.
func (o *Orchestrator) handleAddDescription(ctx context.Context, userID uuid.UUID, in Inbound, prior Context) (Outbound, contextPatch, error) {
	targetID := prior.MemoryID
	if targetID == "" {
		targetID = in.MemoryID
	}
	id, err := uuid.Parse(targetID)
	if err != nil {
		return Outbound{}, contextPatch{}, fmt.Errorf("%w: no memory awaiting a description", ErrInvalidInput)
	}

	description := strings.TrimSpace(in.Text)
	if description == "" {
		return Outbound{}, contextPatch{}, fmt.Errorf("%w: description must not be empty", ErrInvalidInput)
	}

	mem, err := o.memories.Update(ctx, id, userID, memory.UpdateMemoryParams{Description: &description})
	if err != nil {
		return Outbound{}, contextPatch{}, fmt.Errorf("updating memory: %w", err)
	}
	if mem == nil {
		return Outbound{}, contextPatch{}, ErrMemoryNotFound
	}

	out := o.catalog.Render(IntentMemorySaved, RenderData{})
	out.Meta["memoryId"] = mem.ID.String()
	out.Meta["labels"] = mem.Labels

	return out, contextPatch{}, nil
}

// handleSearchMemory treats the raw message text as the query and
// flattens the best match into the reply metadata.
func (o *Orchestrator) handleSearchMemory(ctx context.Context, userID uuid.UUID, in Inbound) (Outbound, contextPatch, error) {
	results, err := o.memories.Search(ctx, userID, strings.ToLower(in.Text), 5)
	if err != nil {
		return Outbound{}, contextPatch{}, fmt.Errorf("searching memories: %w", err)
	}

	out := o.catalog.Render(IntentSearchMemory, RenderData{})
	if len(results) > 0 {
		best := results[0]
		out.Meta["id"] = best.ID.String()
		out.Meta["image_url"] = best.ImageURL
		out.Meta["title"] = best.Title
		out.Meta["description"] = best.Description
		out.Meta["labels"] = best.Labels
		out.Meta["memory_date"] = best.MemoryDate.Format(time.RFC3339)
		out.Meta["is_favorite"] = best.IsFavorite
	}

	return out, contextPatch{}, nil
}

// handleDeleteMemory asks for confirmation. The actual deletion happens
// on the confirm_delete continuation turn.
func (o *Orchestrator) handleDeleteMemory(in Inbound) (Outbound, contextPatch, error) {
	out := o.catalog.Render(IntentConfirmDelete, RenderData{})
	if in.MemoryID != "" {
		out.Meta["memoryId"] = in.MemoryID
	}
	return out, contextPatch{memoryID: in.MemoryID}, nil
}

// handleConfirmDelete resolves the user's choice: "photo" removes just
// the image, anything else soft-deletes the whole memory.
func (o *Orchestrator) handleConfirmDelete(ctx context.Context, userID uuid.UUID, in Inbound, prior Context) (Outbound, contextPatch, error) {
	targetID := prior.MemoryID
	if targetID == "" {
		targetID = in.MemoryID
	}
	if targetID == "" {
		// No target resolved yet; ask again.
		return o.catalog.Render(IntentConfirmDelete, RenderData{}), contextPatch{}, nil
	}
	id, err := uuid.Parse(targetID)
	if err != nil {
		return Outbound{}, contextPatch{}, ErrMemoryNotFound
	}

	deleteType := memory.DeleteMemory
	if strings.Contains(strings.ToLower(in.Text), "photo") {
		deleteType = memory.DeletePhoto
	}

	if err := o.memories.Delete(ctx, id, userID, deleteType); err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			return Outbound{}, contextPatch{}, ErrMemoryNotFound
		}
		return Outbound{}, contextPatch{}, fmt.Errorf("deleting memory: %w", err)
	}

	out := o.catalog.Render(IntentMemoryDeleted, RenderData{})
	out.Meta["memoryId"] = targetID
	out.Meta["deleteType"] = string(deleteType)

	o.publishAudit(ctx, events.AuditEvent{
		UserID:       userID,
		EventType:    events.EventMemoryDeleted,
		Severity:     "info",
		ResourceType: "memory",
		ResourceID:   targetID,
		Details:      fmt.Sprintf("memory delete requested via chat (%s)", deleteType),
		Timestamp:    time.Now().UTC(),
	})

	return out, contextPatch{}, nil
}

// handleEditMemory covers the whole edit flow. The first turn picks the
// target, the second picks the field, the third supplies the new value.
func (o *Orchestrator) handleEditMemory(ctx context.Context, userID uuid.UUID, in Inbound, prior Context) (Outbound, contextPatch, error) {
	if prior.ExpectedIntent != IntentEditMemory {
		return o.startEditFlow(ctx, userID, in)
	}
	if prior.PendingField != "" {
		return o.applyEdit(ctx, userID, in, prior)
	}
	return o.pickEditField(in, prior)
}

func (o *Orchestrator) startEditFlow(ctx context.Context, userID uuid.UUID, in Inbound) (Outbound, contextPatch, error) {
	if in.MemoryID == "" {
		return o.catalog.Render(IntentEditMemory, RenderData{}), contextPatch{}, nil
	}

	id, err := uuid.Parse(in.MemoryID)
	if err != nil {
		return Outbound{}, contextPatch{}, ErrMemoryNotFound
	}
	mem, err := o.memories.GetByID(ctx, id, userID)
	if err != nil {
		return Outbound{}, contextPatch{}, fmt.Errorf("loading memory: %w", err)
	}
	if mem == nil {
		return Outbound{}, contextPatch{}, ErrMemoryNotFound
	}

	out := o.catalog.Render(IntentEditMemory, RenderData{})
	out.Meta["memoryId"] = in.MemoryID
	return out, contextPatch{memoryID: in.MemoryID}, nil
}

// editTarget resolves the memory under edit. A flow armed without a
// target can still receive one mid-flow via the inbound memoryId.
func editTarget(in Inbound, prior Context) string {
	if prior.MemoryID != "" {
		return prior.MemoryID
	}
	return in.MemoryID
}

func (o *Orchestrator) pickEditField(in Inbound, prior Context) (Outbound, contextPatch, error) {
	target := editTarget(in, prior)
	lower := strings.ToLower(in.Text)
	var field string
	switch {
	case strings.Contains(lower, "title"):
		field = "title"
	case strings.Contains(lower, "desc"):
		field = "description"
	default:
		// Unrecognized field; the edit_memory response re-arms the flow.
		out := o.catalog.Render(IntentEditMemory, RenderData{})
		if target != "" {
			out.Meta["memoryId"] = target
		}
		return out, contextPatch{memoryID: target}, nil
	}

	return o.catalog.Render(IntentAskNewValue, RenderData{}), contextPatch{memoryID: target, pendingField: field}, nil
}

func (o *Orchestrator) applyEdit(ctx context.Context, userID uuid.UUID, in Inbound, prior Context) (Outbound, contextPatch, error) {
	target := editTarget(in, prior)
	if target == "" {
		// No target was ever supplied; restart the flow.
		return o.catalog.Render(IntentEditMemory, RenderData{}), contextPatch{}, nil
	}
	id, err := uuid.Parse(target)
	if err != nil {
		return Outbound{}, contextPatch{}, ErrMemoryNotFound
	}

	value := strings.TrimSpace(in.Text)
	if value == "" {
		return Outbound{}, contextPatch{}, fmt.Errorf("%w: new value must not be empty", ErrInvalidInput)
	}

	params := memory.UpdateMemoryParams{}
	if prior.PendingField == "title" {
		params.Title = &value
	} else {
		params.Description = &value
	}

	mem, err := o.memories.Update(ctx, id, userID, params)
	if err != nil {
		return Outbound{}, contextPatch{}, fmt.Errorf("updating memory: %w", err)
	}
	if mem == nil {
		return Outbound{}, contextPatch{}, ErrMemoryNotFound
	}

	out := o.catalog.Render(IntentMemoryUpdated, RenderData{})
	out.Meta["memoryId"] = mem.ID.String()
	out.Meta["field"] = prior.PendingField

	o.publishAudit(ctx, events.AuditEvent{
		UserID:       userID,
		EventType:    events.EventMemoryUpdated,
		Severity:     "info",
		ResourceType: "memory",
		ResourceID:   mem.ID.String(),
		Details:      fmt.Sprintf("memory %s edited via chat", prior.PendingField),
		Timestamp:    time.Now().UTC(),
	})

	return out, contextPatch{}, nil
}

func (o *Orchestrator) handleUpdateName(ctx context.Context, userID uuid.UUID) (Outbound, contextPatch, error) {
	data := RenderData{CurrentName: "User"}
	if user, err := o.profiles.GetByID(ctx, userID); err == nil && user != nil {
		data.CurrentName = user.Name
	}
	return o.catalog.Render(IntentUpdateName, data), contextPatch{}, nil
}

// handleUpdatePassword runs the three-step password flow: prompt,
// capture, confirm. The plain candidate only ever lives in the context
// entry, never in message history.
func (o *Orchestrator) handleUpdatePassword(ctx context.Context, userID uuid.UUID, in Inbound, prior Context) (Outbound, contextPatch, error) {
	if prior.ExpectedIntent != IntentUpdatePassword {
		return o.catalog.Render(IntentUpdatePassword, RenderData{}), contextPatch{}, nil
	}

	if prior.NewValue == "" {
		candidate := strings.TrimSpace(in.Text)
		if len(candidate) < minPasswordLength {
			return Outbound{}, contextPatch{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
		}
		return o.catalog.Render(IntentConfirmPassword, RenderData{}), contextPatch{newValue: candidate}, nil
	}

	if strings.TrimSpace(in.Text) != prior.NewValue {
		// Mismatch restarts the flow; re-arming drops the candidate.
		return o.catalog.Render(IntentUpdatePassword, RenderData{}), contextPatch{}, nil
	}

	hash, err := auth.HashPassword(prior.NewValue)
	if err != nil {
		return Outbound{}, contextPatch{}, fmt.Errorf("hashing password: %w", err)
	}
	if err := o.profiles.UpdatePassword(ctx, userID, hash); err != nil {
		return Outbound{}, contextPatch{}, fmt.Errorf("updating password: %w", err)
	}

	o.publishAudit(ctx, events.AuditEvent{
		UserID:       userID,
		EventType:    events.EventPasswordChanged,
		Severity:     "info",
		ResourceType: "user",
		ResourceID:   userID.String(),
		Details:      "password changed via chat flow",
		Timestamp:    time.Now().UTC(),
	})

	return o.catalog.Render(IntentPasswordUpdated, RenderData{}), contextPatch{}, nil
}

func (o *Orchestrator) publishAudit(ctx context.Context, event events.AuditEvent) {
	if o.audit == nil {
		return
	}
	if err := o.audit.PublishAuditEvent(ctx, event); err != nil {
		slog.Warn("publishing audit event", "event_type", event.EventType, "error", err)
	}
}

func parseMemoryID(candidates ...string) *uuid.UUID {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if id, err := uuid.Parse(c); err == nil {
			return &id
		}
	}
	return nil
}
