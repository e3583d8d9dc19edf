package domain

import (
	"strings"
	"time"
)

// Conversation roles.
const (
	TurnUser      = "user"
	TurnAssistant = "assistant"
)

// ConversationTurn is one caller-supplied history entry. The pipeline never mutates it.
type ConversationTurn struct {
	Role      string    `json:"role" validate:"omitempty,oneof=user assistant"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// FormatHistory serializes turns as role-prefixed lines, skipping blank ones.
func FormatHistory(turns []ConversationTurn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		prefix := "Utilisateur"
		if t.Role == TurnAssistant {
			prefix = "Assistant"
		}
		lines = append(lines, prefix+": "+content)
	}
	return strings.Join(lines, "\n")
}
