package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartvoice/heartvoice/internal/auth"
	"github.com/heartvoice/heartvoice/internal/events"
	"github.com/heartvoice/heartvoice/internal/memory"
	"github.com/heartvoice/heartvoice/internal/users"
)

type recordedMessage struct {
	sender  string
	content string
	meta    map[string]any
}

type fakeRecorder struct {
	mu       sync.Mutex
	messages []recordedMessage
}

func (f *fakeRecorder) RecordUser(_ context.Context, _ uuid.UUID, _ string, content string, meta map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, recordedMessage{sender: "user", content: content, meta: meta})
	return nil
}

func (f *fakeRecorder) RecordAssistant(_ context.Context, _ uuid.UUID, out Outbound, _ *uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, recordedMessage{sender: "ai", content: out.Content, meta: out.Meta})
	return nil
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type fakeMemories struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*memory.Memory
}

func newFakeMemories() *fakeMemories {
	return &fakeMemories{entries: make(map[uuid.UUID]*memory.Memory)}
}

func (f *fakeMemories) Create(_ context.Context, userID uuid.UUID, params memory.CreateMemoryParams) (*memory.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mem := &memory.Memory{
		ID:          uuid.New(),
		UserID:      userID,
		ImageURL:    params.ImageURL,
		Title:       params.Title,
		Description: params.Description,
		Labels:      params.Labels,
	}
	if mem.Labels == nil {
		mem.Labels = []string{}
	}
	f.entries[mem.ID] = mem
	return mem, nil
}

func (f *fakeMemories) GetByID(_ context.Context, id, userID uuid.UUID) (*memory.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mem, ok := f.entries[id]
	if !ok || mem.IsDeleted || mem.UserID != userID {
		return nil, nil
	}
	return mem, nil
}

func (f *fakeMemories) Update(_ context.Context, id, userID uuid.UUID, params memory.UpdateMemoryParams) (*memory.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mem, ok := f.entries[id]
	if !ok || mem.IsDeleted || mem.UserID != userID {
		return nil, nil
	}
	if params.Title != nil {
		mem.Title = *params.Title
	}
	if params.Description != nil {
		mem.Description = *params.Description
		mem.Labels = memory.ExtractLabels(*params.Description)
	}
	if params.ImageURL != nil {
		mem.ImageURL = *params.ImageURL
	}
	return mem, nil
}

func (f *fakeMemories) Delete(_ context.Context, id, userID uuid.UUID, deleteType memory.DeleteType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	mem, ok := f.entries[id]
	if !ok || mem.IsDeleted || mem.UserID != userID {
		return memory.ErrNotFound
	}
	if deleteType == memory.DeletePhoto {
		mem.ImageURL = ""
	} else {
		mem.IsDeleted = true
	}
	return nil
}

// Search matches on any word of the query; good enough for exercising
// the orchestrator's result handling.
func (f *fakeMemories) Search(_ context.Context, userID uuid.UUID, query string, _ int) ([]memory.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []memory.Memory
	for _, mem := range f.entries {
		if mem.IsDeleted || mem.UserID != userID {
			continue
		}
		haystack := strings.ToLower(mem.Title + " " + mem.Description)
		for _, word := range strings.Fields(query) {
			if strings.Contains(haystack, word) {
				out = append(out, *mem)
				break
			}
		}
	}
	return out, nil
}

type fakeProfiles struct {
	user         *users.User
	passwordHash string
}

func (f *fakeProfiles) GetByID(_ context.Context, _ uuid.UUID) (*users.User, error) {
	return f.user, nil
}

func (f *fakeProfiles) UpdatePassword(_ context.Context, _ uuid.UUID, hash string) error {
	f.passwordHash = hash
	return nil
}

type fakeAudit struct {
	mu     sync.Mutex
	events []events.AuditEvent
}

func (f *fakeAudit) PublishAuditEvent(_ context.Context, event events.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fixture struct {
	orchestrator *Orchestrator
	contexts     *InMemoryContextStore
	recorder     *fakeRecorder
	memories     *fakeMemories
	profiles     *fakeProfiles
	audit        *fakeAudit
	userID       uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	userID := uuid.New()
	f := &fixture{
		contexts: NewInMemoryContextStore(30 * time.Minute),
		recorder: &fakeRecorder{},
		memories: newFakeMemories(),
		profiles: &fakeProfiles{user: &users.User{ID: userID, Username: "alex", Name: "Alex"}},
		audit:    &fakeAudit{},
		userID:   userID,
	}
	f.orchestrator = NewOrchestrator(
		NewRuleClassifier(), NewCatalog(), f.contexts,
		f.recorder, f.memories, f.profiles, f.audit,
	)
	return f
}

func (f *fixture) turn(t *testing.T, in Inbound) Outbound {
	t.Helper()
	out, err := f.orchestrator.HandleTurn(context.Background(), f.userID, in)
	require.NoError(t, err)
	return out
}

func (f *fixture) context(t *testing.T) Context {
	t.Helper()
	c, err := f.contexts.Get(context.Background(), f.userID.String())
	require.NoError(t, err)
	return c
}

func TestSaveMemoryWithoutImageArmsFlow(t *testing.T) {
	f := newFixture(t)

	out := f.turn(t, Inbound{Text: "I want to save a memory"})

	assert.Equal(t, IntentSaveMemory, out.Intent)
	assert.Equal(t, true, out.Meta["needImage"])

	c := f.context(t)
	assert.Equal(t, IntentSaveMemory, c.ExpectedIntent)
}

func TestSaveFlowEndToEnd(t *testing.T) {
	f := newFixture(t)

	// Turn 1: arm the flow.
	f.turn(t, Inbound{Text: "I want to save a memory"})

	// Turn 2: the armed context overrides classification; the photo
	// creates the memory and the flow moves to description capture.
	out := f.turn(t, Inbound{Text: "here", ImageURL: "https://cdn.example.com/u/1.jpg"})
	assert.Equal(t, IntentAddDescription, out.Intent)
	require.NotEmpty(t, out.Meta["memoryId"])
	assert.Equal(t, "https://cdn.example.com/u/1.jpg", out.Meta["imageUrl"])

	c := f.context(t)
	assert.Equal(t, IntentAddDescription, c.ExpectedIntent)
	assert.Equal(t, out.Meta["memoryId"], c.MemoryID)

	// Turn 3: the reply becomes the description, labels are extracted,
	// and the completed flow clears the context.
	out = f.turn(t, Inbound{Text: "Sunset picnic with family at the beach"})
	assert.Equal(t, IntentMemorySaved, out.Intent)
	assert.True(t, f.context(t).IsEmpty())

	memID, err := uuid.Parse(c.MemoryID)
	require.NoError(t, err)
	mem, err := f.memories.GetByID(context.Background(), memID, f.userID)
	require.NoError(t, err)
	require.NotNil(t, mem)
	assert.Equal(t, "Sunset picnic with family at the beach", mem.Description)
	assert.Contains(t, mem.Labels, "sunset")
	assert.Contains(t, mem.Labels, "family")
}

func TestSaveMemoryRePromptWithoutImage(t *testing.T) {
	f := newFixture(t)

	f.turn(t, Inbound{Text: "I want to save a memory"})
	out := f.turn(t, Inbound{Text: "uh what do I do"})

	// Still no photo: the save_memory response re-arms the same state.
	assert.Equal(t, IntentSaveMemory, out.Intent)
	assert.Equal(t, IntentSaveMemory, f.context(t).ExpectedIntent)
}

func TestDeleteFlowWholeMemory(t *testing.T) {
	f := newFixture(t)
	mem, err := f.memories.Create(context.Background(), f.userID, memory.CreateMemoryParams{ImageURL: "/u/1.jpg"})
	require.NoError(t, err)

	out := f.turn(t, Inbound{Text: "delete this memory", MemoryID: mem.ID.String()})
	assert.Equal(t, IntentConfirmDelete, out.Intent)
	assert.Equal(t, []string{"photo", "memory"}, out.Meta["options"])
	assert.Equal(t, mem.ID.String(), f.context(t).MemoryID)

	out = f.turn(t, Inbound{Text: "the entire memory"})
	assert.Equal(t, IntentMemoryDeleted, out.Intent)
	assert.True(t, f.context(t).IsEmpty())

	got, err := f.memories.GetByID(context.Background(), mem.ID, f.userID)
	require.NoError(t, err)
	assert.Nil(t, got, "memory must be soft-deleted")
}

func TestDeleteFlowPhotoOnly(t *testing.T) {
	f := newFixture(t)
	mem, err := f.memories.Create(context.Background(), f.userID, memory.CreateMemoryParams{ImageURL: "/u/1.jpg"})
	require.NoError(t, err)

	f.turn(t, Inbound{Text: "delete this memory", MemoryID: mem.ID.String()})
	out := f.turn(t, Inbound{Text: "just the photo please"})

	assert.Equal(t, IntentMemoryDeleted, out.Intent)
	assert.Equal(t, "photo", out.Meta["deleteType"])

	got, err := f.memories.GetByID(context.Background(), mem.ID, f.userID)
	require.NoError(t, err)
	require.NotNil(t, got, "memory itself must survive a photo delete")
	assert.Empty(t, got.ImageURL)
}

func TestConfirmDeleteWithoutTargetReprompts(t *testing.T) {
	f := newFixture(t)

	f.turn(t, Inbound{Text: "delete my photo"})
	out := f.turn(t, Inbound{Text: "yes"})

	assert.Equal(t, IntentConfirmDelete, out.Intent)
	assert.Equal(t, IntentConfirmDelete, f.context(t).ExpectedIntent)
}

func TestConfirmDeleteMissingMemoryFails(t *testing.T) {
	f := newFixture(t)
	ghost := uuid.New()

	f.turn(t, Inbound{Text: "delete this memory", MemoryID: ghost.String()})
	before := f.context(t)

	_, err := f.orchestrator.HandleTurn(context.Background(), f.userID, Inbound{Text: "memory"})
	assert.ErrorIs(t, err, ErrMemoryNotFound)

	// A failed turn must not corrupt the context.
	assert.Equal(t, before.ExpectedIntent, f.context(t).ExpectedIntent)
	assert.Equal(t, before.MemoryID, f.context(t).MemoryID)
}

func TestEditFlowEndToEnd(t *testing.T) {
	f := newFixture(t)
	mem, err := f.memories.Create(context.Background(), f.userID, memory.CreateMemoryParams{
		ImageURL: "/u/1.jpg", Title: "Old title",
	})
	require.NoError(t, err)

	out := f.turn(t, Inbound{Text: "I want to edit this memory", MemoryID: mem.ID.String()})
	assert.Equal(t, IntentEditMemory, out.Intent)
	assert.Equal(t, []string{"title", "description"}, out.Meta["fields"])

	out = f.turn(t, Inbound{Text: "the title"})
	assert.Equal(t, IntentAskNewValue, out.Intent)
	c := f.context(t)
	assert.Equal(t, IntentEditMemory, c.ExpectedIntent)
	assert.Equal(t, "title", c.PendingField)

	out = f.turn(t, Inbound{Text: "Our first trip to Lisbon"})
	assert.Equal(t, IntentMemoryUpdated, out.Intent)
	assert.True(t, f.context(t).IsEmpty())

	got, err := f.memories.GetByID(context.Background(), mem.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "Our first trip to Lisbon", got.Title)
}

func TestEditFlowUnknownFieldReprompts(t *testing.T) {
	f := newFixture(t)
	mem, err := f.memories.Create(context.Background(), f.userID, memory.CreateMemoryParams{ImageURL: "/u/1.jpg"})
	require.NoError(t, err)

	f.turn(t, Inbound{Text: "edit this memory", MemoryID: mem.ID.String()})
	out := f.turn(t, Inbound{Text: "the location maybe?"})

	assert.Equal(t, IntentEditMemory, out.Intent)
	c := f.context(t)
	assert.Equal(t, IntentEditMemory, c.ExpectedIntent)
	assert.Empty(t, c.PendingField)
	assert.Equal(t, mem.ID.String(), c.MemoryID)
}

func TestEditMissingMemoryFails(t *testing.T) {
	f := newFixture(t)

	_, err := f.orchestrator.HandleTurn(context.Background(), f.userID, Inbound{
		Text: "edit this memory", MemoryID: uuid.New().String(),
	})
	assert.ErrorIs(t, err, ErrMemoryNotFound)
	assert.True(t, f.context(t).IsEmpty())
}

func TestEditFlowTargetSuppliedMidFlow(t *testing.T) {
	f := newFixture(t)
	mem, err := f.memories.Create(context.Background(), f.userID, memory.CreateMemoryParams{
		ImageURL: "/u/1.jpg", Title: "Old title",
	})
	require.NoError(t, err)

	// Armed without a target; the id arrives with the field pick.
	out := f.turn(t, Inbound{Text: "I want to edit a memory"})
	assert.Equal(t, IntentEditMemory, out.Intent)
	assert.Empty(t, f.context(t).MemoryID)

	out = f.turn(t, Inbound{Text: "the title", MemoryID: mem.ID.String()})
	assert.Equal(t, IntentAskNewValue, out.Intent)
	c := f.context(t)
	assert.Equal(t, mem.ID.String(), c.MemoryID)
	assert.Equal(t, "title", c.PendingField)

	out = f.turn(t, Inbound{Text: "Sunset over the bay"})
	assert.Equal(t, IntentMemoryUpdated, out.Intent)

	got, err := f.memories.GetByID(context.Background(), mem.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "Sunset over the bay", got.Title)
}

func TestEditFlowWithoutTargetRestarts(t *testing.T) {
	f := newFixture(t)

	f.turn(t, Inbound{Text: "I want to edit a memory"})
	out := f.turn(t, Inbound{Text: "the title"})
	assert.Equal(t, IntentAskNewValue, out.Intent)

	// No target was ever supplied; the value turn restarts the flow.
	out = f.turn(t, Inbound{Text: "Sunset over the bay"})
	assert.Equal(t, IntentEditMemory, out.Intent)
	c := f.context(t)
	assert.Equal(t, IntentEditMemory, c.ExpectedIntent)
	assert.Empty(t, c.PendingField)
	assert.Empty(t, c.MemoryID)
}

func TestSearchMemoryFlattensBestMatch(t *testing.T) {
	f := newFixture(t)
	mem, err := f.memories.Create(context.Background(), f.userID, memory.CreateMemoryParams{
		ImageURL: "/u/2.jpg", Title: "Trip to the mountains", Description: "hiking trip photos",
	})
	require.NoError(t, err)

	out := f.turn(t, Inbound{Text: "search memory of my trip"})

	assert.Equal(t, IntentSearchMemory, out.Intent)
	assert.Equal(t, mem.ID.String(), out.Meta["id"])
	assert.Equal(t, "Trip to the mountains", out.Meta["title"])
	assert.True(t, f.context(t).IsEmpty())
}

func TestSearchMemoryNoMatches(t *testing.T) {
	f := newFixture(t)

	out := f.turn(t, Inbound{Text: "find my memory"})

	assert.Equal(t, IntentSearchMemory, out.Intent)
	assert.NotContains(t, out.Meta, "id")
}

func TestPasswordFlowEndToEnd(t *testing.T) {
	f := newFixture(t)

	out := f.turn(t, Inbound{Text: "I want to change my password"})
	assert.Equal(t, IntentUpdatePassword, out.Intent)
	assert.Equal(t, IntentUpdatePassword, f.context(t).ExpectedIntent)

	out = f.turn(t, Inbound{Text: "hunter2hunter2"})
	assert.Equal(t, IntentConfirmPassword, out.Intent)
	c := f.context(t)
	assert.Equal(t, IntentUpdatePassword, c.ExpectedIntent)
	assert.Equal(t, "hunter2hunter2", c.NewValue)

	out = f.turn(t, Inbound{Text: "hunter2hunter2"})
	assert.Equal(t, IntentPasswordUpdated, out.Intent)
	assert.True(t, f.context(t).IsEmpty())

	require.NotEmpty(t, f.profiles.passwordHash)
	assert.NoError(t, auth.ComparePassword(f.profiles.passwordHash, "hunter2hunter2"))
}

func TestPasswordFlowMismatchRestarts(t *testing.T) {
	f := newFixture(t)

	f.turn(t, Inbound{Text: "change my password"})
	f.turn(t, Inbound{Text: "hunter2hunter2"})

	out := f.turn(t, Inbound{Text: "something else"})
	assert.Equal(t, IntentUpdatePassword, out.Intent)

	c := f.context(t)
	assert.Equal(t, IntentUpdatePassword, c.ExpectedIntent)
	assert.Empty(t, c.NewValue, "mismatch must drop the candidate")
	assert.Empty(t, f.profiles.passwordHash)
}

func TestPasswordFlowRejectsShortCandidate(t *testing.T) {
	f := newFixture(t)

	f.turn(t, Inbound{Text: "change my password"})

	_, err := f.orchestrator.HandleTurn(context.Background(), f.userID, Inbound{Text: "abc"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	c := f.context(t)
	assert.Equal(t, IntentUpdatePassword, c.ExpectedIntent)
	assert.Empty(t, c.NewValue)
}

func TestUpdateNamePromptUsesCurrentName(t *testing.T) {
	f := newFixture(t)

	out := f.turn(t, Inbound{Text: "I'd like to change my name"})

	assert.Equal(t, IntentUpdateName, out.Intent)
	assert.Contains(t, out.Content, "Alex")
	assert.True(t, f.context(t).IsEmpty(), "name prompt is single-turn")
}

func TestChatFallbackPersistsBothSides(t *testing.T) {
	f := newFixture(t)

	out := f.turn(t, Inbound{Text: "how are you today?"})

	assert.Equal(t, IntentChat, out.Intent)
	assert.Equal(t, 2, f.recorder.count())
	assert.True(t, f.context(t).IsEmpty())
}

func TestTurnsPublishAuditEvents(t *testing.T) {
	f := newFixture(t)

	f.turn(t, Inbound{Text: "hello"})

	f.audit.mu.Lock()
	defer f.audit.mu.Unlock()
	require.NotEmpty(t, f.audit.events)
	assert.Equal(t, events.EventChatTurn, f.audit.events[0].EventType)
	assert.Equal(t, f.userID, f.audit.events[0].UserID)
}

func TestConcurrentTurnsSameUserSerialized(t *testing.T) {
	f := newFixture(t)

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := f.orchestrator.HandleTurn(context.Background(), f.userID, Inbound{Text: "hello there"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Every turn records exactly its two messages; none are lost to races.
	assert.Equal(t, 2*n, f.recorder.count())
}
