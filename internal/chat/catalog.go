package chat

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Outbound is one assistant turn as returned to the client.
type Outbound struct {
	MsgID     string         `json:"msgId"`
	Sender    string         `json:"sender"`
	Intent    Intent         `json:"intent"`
	Content   string         `json:"content"`
	Meta      map[string]any `json:"meta"`
	Timestamp int64          `json:"timestamp"`
}

// NewMessageID generates a collision-resistant, roughly time-ordered
// message id of the form {prefix}-{unix-ms}-{8 hex chars}.
func NewMessageID(prefix string) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is not recoverable here.
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), hex.EncodeToString(buf))
}

var chatVariants = []string{
	"Hello! How can I help you today?",
	"Hi there! What can I do for you?",
	"Greetings! I'm here to assist you.",
}

var intentTemplates = map[Intent]string{
	IntentSaveMemory:      "Of course. Please upload a photo you'd like to save as a memory.",
	IntentAddDescription:  "Your photo is ready. Whenever you're comfortable, you can tell me a few simple words about this memory.",
	IntentMemorySaved:     "That's a beautiful memory. I've saved it for you, and you can revisit or edit it anytime.",
	IntentSearchMemory:    "Here are the memories I found:",
	IntentConfirmDelete:   "Of course. Are you sure you want to delete this? You can delete just the photo or the entire memory.",
	IntentMemoryDeleted:   "Alright, I've deleted this photo for you. You can always add it again later if you wish.",
	IntentEditMemory:      "Absolutely-you can change anything you want. What would you like to update: the title, the description?",
	IntentAskNewValue:     "What would you like it to say instead?",
	IntentMemoryUpdated:   "That's beautiful. I've updated your memory exactly as you described it. You can edit it again anytime-you're always in control.",
	IntentUpdateName:      "Of course. Your current name is {current_name}. What would you like it to be?",
	IntentNameChanged:     "Got it-I've updated your name to {new_name}. You can change it again anytime if you wish.",
	IntentUpdateAvatar:    "Great. When you're ready, please choose a photo from your gallery. I'll only change your avatar after you confirm.",
	IntentAvatarUpdated:   "All done. Your profile photo has been updated-you can always change it again whenever you like.",
	IntentUpdatePassword:  "No problem. To keep your account safe, I'll guide you step by step. Please enter your new password.",
	IntentConfirmPassword: "Great. Just one more step-please type it again to confirm.",
	IntentPasswordUpdated: "Perfect. Your password has been updated safely. If you ever forget it, I'll help you recover it. You're doing everything correctly—no need to worry.",
}

// RenderData carries slot values for template substitution. Absent
// values leave their slots as literal text.
type RenderData struct {
	CurrentName string
	NewName     string
}

// Catalog renders intents into outbound messages with per-intent UI
// metadata.
type Catalog struct {
	variantIndex func() int
}

func NewCatalog() *Catalog {
	return &Catalog{variantIndex: randomVariant}
}

func randomVariant() int {
	i, err := rand.Int(rand.Reader, big.NewInt(int64(len(chatVariants))))
	if err != nil {
		return 0
	}
	return int(i.Int64())
}

// Render produces an outbound message for the given intent. meta always
// starts from the intent's fixed UI augmentation table; callers add
// handler-specific fields afterwards.
func (c *Catalog) Render(intent Intent, data RenderData) Outbound {
	content := ""
	if intent == IntentChat {
		content = chatVariants[c.variantIndex()]
	} else if tpl, ok := intentTemplates[intent]; ok {
		content = tpl
	}

	if data.CurrentName != "" {
		content = strings.ReplaceAll(content, "{current_name}", data.CurrentName)
	}
	if data.NewName != "" {
		content = strings.ReplaceAll(content, "{new_name}", data.NewName)
	}

	meta := map[string]any{}
	switch intent {
	case IntentSaveMemory:
		meta["needImage"] = true
	case IntentConfirmDelete:
		meta["options"] = []string{"photo", "memory"}
	case IntentEditMemory:
		meta["fields"] = []string{"title", "description"}
	}

	return Outbound{
		MsgID:     NewMessageID("ai"),
		Sender:    "ai",
		Intent:    intent,
		Content:   content,
		Meta:      meta,
		Timestamp: time.Now().Unix(),
	}
}
