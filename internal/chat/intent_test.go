package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPatternTable(t *testing.T) {
	c := NewRuleClassifier()

	tests := []struct {
		text string
		want Intent
	}{
		{"I want to save a memory", IntentSaveMemory},
		{"please remember this moment", IntentSaveMemory},
		{"please search memory of my trip", IntentSearchMemory},
		{"show photos from last summer", IntentSearchMemory},
		{"delete that memory please", IntentDeleteMemory},
		{"remove this photo", IntentDeleteMemory},
		{"edit the memory title", IntentEditMemory},
		{"I'd like to change my name", IntentUpdateName},
		{"call me Sam from now on", IntentUpdateName},
		{"update my avatar please", IntentUpdateAvatar},
		{"I forgot my password", IntentUpdatePassword},
		{"tell me a joke", IntentChat},
		{"", IntentChat},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.text, Context{}), "text: %q", tt.text)
	}
}

func TestClassifyArmedContextDominates(t *testing.T) {
	c := NewRuleClassifier()
	ctx := Context{ExpectedIntent: IntentConfirmDelete}

	// Even text matching other rules must yield the expected intent.
	assert.Equal(t, IntentConfirmDelete, c.Classify("I want to save a memory", ctx))
	assert.Equal(t, IntentConfirmDelete, c.Classify("change my password", ctx))
	assert.Equal(t, IntentConfirmDelete, c.Classify("anything at all", ctx))
}

func TestClassifyMemoryInFocus(t *testing.T) {
	c := NewRuleClassifier()
	ctx := Context{MemoryID: "2b1f7c1e-53a4-4be1-a5ac-3f2d1c9f7d10"}

	// "delete" also matches the generic table; the in-focus branch must win.
	assert.Equal(t, IntentDeleteMemory, c.Classify("I want to delete this photo", ctx))
	assert.Equal(t, IntentEditMemory, c.Classify("can I change it?", ctx))
	assert.Equal(t, IntentEditMemory, c.Classify("update it please", ctx))
	assert.Equal(t, IntentDeleteMemory, c.Classify("remove it", ctx))
}

func TestClassifyTableOrderPrecedence(t *testing.T) {
	c := NewRuleClassifier()

	// "save.*memory" sits before "search.*memory" in the table.
	assert.Equal(t, IntentSaveMemory, c.Classify("save memory then search memory", Context{}))
	// "update.*memory" (edit) sits before "update.*name".
	assert.Equal(t, IntentEditMemory, c.Classify("update memory with my new name", Context{}))
}

func TestClassifyCaseInsensitive(t *testing.T) {
	c := NewRuleClassifier()

	assert.Equal(t, IntentSaveMemory, c.Classify("SAVE this MEMORY", Context{}))
	assert.Equal(t, IntentUpdatePassword, c.Classify("RESET my PASSWORD", Context{}))
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewRuleClassifier()

	for i := 0; i < 10; i++ {
		assert.Equal(t, IntentSearchMemory, c.Classify("find my memory", Context{}))
	}
}
