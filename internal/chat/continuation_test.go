package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContinuationTable(t *testing.T) {
	arm := []Intent{
		IntentSaveMemory, IntentAddDescription, IntentEditMemory,
		IntentConfirmDelete, IntentUpdatePassword,
	}
	for _, intent := range arm {
		assert.Equal(t, Arm, Continuation(intent), "intent %s", intent)
	}

	clear := []Intent{
		IntentMemorySaved, IntentMemoryDeleted, IntentMemoryUpdated,
		IntentNameChanged, IntentAvatarUpdated, IntentPasswordUpdated,
	}
	for _, intent := range clear {
		assert.Equal(t, Clear, Continuation(intent), "intent %s", intent)
	}

	noChange := []Intent{
		IntentChat, IntentSearchMemory, IntentAskNewValue,
		IntentConfirmPassword, IntentUpdateName, IntentUpdateAvatar,
		IntentDeleteMemory,
	}
	for _, intent := range noChange {
		assert.Equal(t, NoChange, Continuation(intent), "intent %s", intent)
	}
}
