package chat

import (
	"regexp"
	"strings"
)

// Intent identifies the purpose of a conversation turn. The set is closed;
// both the classifier and the template catalog operate over it.
type Intent string

const (
	IntentChat            Intent = "chat"
	IntentSaveMemory      Intent = "save_memory"
	IntentAddDescription  Intent = "add_description"
	IntentMemorySaved     Intent = "memory_saved"
	IntentSearchMemory    Intent = "search_memory"
	IntentConfirmDelete   Intent = "confirm_delete"
	IntentMemoryDeleted   Intent = "memory_deleted"
	IntentEditMemory      Intent = "edit_memory"
	IntentAskNewValue     Intent = "ask_new_value"
	IntentMemoryUpdated   Intent = "memory_updated"
	IntentUpdateName      Intent = "update_name"
	IntentNameChanged     Intent = "name_changed"
	IntentUpdateAvatar    Intent = "update_avatar"
	IntentAvatarUpdated   Intent = "avatar_updated"
	IntentUpdatePassword  Intent = "update_password"
	IntentConfirmPassword Intent = "confirm_password"
	IntentPasswordUpdated Intent = "password_updated"
	IntentDeleteMemory    Intent = "delete_memory"
)

// Classifier resolves an inbound message to an intent. Implementations
// must be pure: same text and context always yield the same intent.
type Classifier interface {
	Classify(text string, ctx Context) Intent
}

type intentRule struct {
	intent   Intent
	patterns []*regexp.Regexp
}

// RuleClassifier is a deterministic rule-based classifier. An armed
// context dominates, then the memory-in-focus heuristic, then an ordered
// pattern table, then the chat fallback.
type RuleClassifier struct {
	rules []intentRule
}

func NewRuleClassifier() *RuleClassifier {
	compile := func(patterns ...string) []*regexp.Regexp {
		out := make([]*regexp.Regexp, len(patterns))
		for i, p := range patterns {
			out[i] = regexp.MustCompile(p)
		}
		return out
	}

	// Table order is precedence order. Do not reorder.
	return &RuleClassifier{rules: []intentRule{
		{IntentSaveMemory, compile(
			`save.*memory`, `want.*save.*memory`, `keep.*memory`,
			`remember.*this`, `store.*memory`,
		)},
		{IntentSearchMemory, compile(
			`search.*memory`, `find.*memory`, `look.*for.*memory`,
			`show.*memory`, `show.*photos`, `find.*photos`,
		)},
		{IntentDeleteMemory, compile(
			`delete.*memory`, `remove.*memory`, `don't.*want.*keep`,
			`delete.*photo`, `remove.*photo`,
		)},
		{IntentEditMemory, compile(
			`edit.*memory`, `change.*memory`, `update.*memory`,
			`modify.*memory`, `change.*description`,
		)},
		{IntentUpdateName, compile(
			`change.*name`, `update.*name`, `new.*name`,
			`call.*me`, `name.*should.*be`,
		)},
		{IntentUpdateAvatar, compile(
			`change.*picture`, `update.*avatar`, `new.*profile`,
			`change.*profile.*picture`, `update.*profile`,
		)},
		{IntentUpdatePassword, compile(
			`change.*password`, `update.*password`, `new.*password`,
			`reset.*password`, `forgot.*password`,
		)},
	}}
}

func (c *RuleClassifier) Classify(text string, ctx Context) Intent {
	lower := strings.ToLower(text)

	// An armed flow bypasses pattern matching entirely.
	if ctx.ExpectedIntent != "" {
		return ctx.ExpectedIntent
	}

	// A memory in focus biases edit/delete words before the generic table.
	if ctx.MemoryID != "" {
		if strings.Contains(lower, "change") || strings.Contains(lower, "edit") || strings.Contains(lower, "update") {
			return IntentEditMemory
		}
		if strings.Contains(lower, "delete") || strings.Contains(lower, "remove") {
			return IntentDeleteMemory
		}
	}

	for _, rule := range c.rules {
		for _, pattern := range rule.patterns {
			if pattern.MatchString(lower) {
				return rule.intent
			}
		}
	}

	return IntentChat
}
