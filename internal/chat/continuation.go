package chat

// ContinuationAction says what happens to the conversation context
// after a turn, decided by the intent of the produced response rather
// than the classified intent of the inbound message.
type ContinuationAction int

const (
	// NoChange leaves the context as it was (handler patches still merge).
	NoChange ContinuationAction = iota
	// Arm sets the context to expect the response's intent next turn.
	Arm
	// Clear removes the context; the flow is complete.
	Clear
)

var armIntents = map[Intent]struct{}{
	IntentSaveMemory:     {},
	IntentAddDescription: {},
	IntentEditMemory:     {},
	IntentConfirmDelete:  {},
	IntentUpdatePassword: {},
}

var clearIntents = map[Intent]struct{}{
	IntentMemorySaved:     {},
	IntentMemoryDeleted:   {},
	IntentMemoryUpdated:   {},
	IntentNameChanged:     {},
	IntentAvatarUpdated:   {},
	IntentPasswordUpdated: {},
}

// Continuation maps a produced response intent to the context action.
func Continuation(produced Intent) ContinuationAction {
	if _, ok := armIntents[produced]; ok {
		return Arm
	}
	if _, ok := clearIntents[produced]; ok {
		return Clear
	}
	return NoChange
}
