package domain

import "time"

// Chat roles.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// MaxChatHistory is how many entries a session keeps for context.
const MaxChatHistory = 20

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession is a per-subject conversation, capped at MaxChatHistory entries.
type ChatSession struct {
	SubjectID string        `json:"subject_id"`
	SessionID string        `json:"session_id"`
	Messages  []ChatMessage `json:"messages"`
}

// TrimHistory keeps the most recent limit entries.
func TrimHistory(msgs []ChatMessage, limit int) []ChatMessage {
	if limit <= 0 || len(msgs) <= limit {
		return msgs
	}
	return append([]ChatMessage(nil), msgs[len(msgs)-limit:]...)
}
