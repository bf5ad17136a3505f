package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDistinctMessageIDs(t *testing.T) {
	c := NewCatalog()

	a := c.Render(IntentChat, RenderData{})
	b := c.Render(IntentChat, RenderData{})
	assert.NotEqual(t, a.MsgID, b.MsgID)
}

func TestMessageIDFormat(t *testing.T) {
	id := NewMessageID("ai")

	parts := strings.SplitN(id, "-", 3)
	require.Len(t, parts, 3)
	assert.Equal(t, "ai", parts[0])
	assert.Len(t, parts[2], 8)
}

func TestRenderNameSubstitution(t *testing.T) {
	c := NewCatalog()

	out := c.Render(IntentUpdateName, RenderData{CurrentName: "Alex"})
	assert.Equal(t, "Of course. Your current name is Alex. What would you like it to be?", out.Content)
}

func TestRenderUnresolvedSlotLeftLiteral(t *testing.T) {
	c := NewCatalog()

	out := c.Render(IntentUpdateName, RenderData{})
	assert.Contains(t, out.Content, "{current_name}")
}

func TestRenderNewNameSubstitution(t *testing.T) {
	c := NewCatalog()

	out := c.Render(IntentNameChanged, RenderData{NewName: "Sam"})
	assert.Contains(t, out.Content, "updated your name to Sam")
	assert.NotContains(t, out.Content, "{new_name}")
}

func TestRenderMetaAugmentation(t *testing.T) {
	c := NewCatalog()

	assert.Equal(t, true, c.Render(IntentSaveMemory, RenderData{}).Meta["needImage"])
	assert.Equal(t, []string{"photo", "memory"}, c.Render(IntentConfirmDelete, RenderData{}).Meta["options"])
	assert.Equal(t, []string{"title", "description"}, c.Render(IntentEditMemory, RenderData{}).Meta["fields"])
	assert.Empty(t, c.Render(IntentMemorySaved, RenderData{}).Meta)
}

func TestRenderChatVariants(t *testing.T) {
	c := NewCatalog()

	out := c.Render(IntentChat, RenderData{})
	assert.Contains(t, chatVariants, out.Content)
	assert.Equal(t, "ai", out.Sender)
	assert.NotZero(t, out.Timestamp)
}

func TestRenderChatVariantSelectionInjectable(t *testing.T) {
	c := NewCatalog()
	c.variantIndex = func() int { return 1 }

	assert.Equal(t, chatVariants[1], c.Render(IntentChat, RenderData{}).Content)
}
