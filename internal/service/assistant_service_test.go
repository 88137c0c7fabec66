package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/arturoeanton/certify-ai/internal/adapter/store"
	"github.com/arturoeanton/certify-ai/internal/domain"
	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedAI struct {
	mu       sync.Mutex
	reply    string
	err      error
	delay    time.Duration
	system   string
	prompt   string
	history  []domain.ChatMessage
	calls    int
	deadline bool
}

func (s *scriptedAI) ModelName() string { return "scripted" }

func (s *scriptedAI) Chat(ctx context.Context, system string, history []domain.ChatMessage, prompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.system, s.prompt = system, prompt
	s.history = append([]domain.ChatMessage(nil), history...)
	_, s.deadline = ctx.Deadline()
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func TestAssistantService_ChatKeepsRollingHistory(t *testing.T) {
	ctx := context.Background()
	ai := &scriptedAI{reply: "ok"}
	chats := store.NewMemoryStore()
	svc := NewAssistantService(ai, chats, nil, time.Second)

	first, err := svc.Chat(ctx, "u-1", "", "hello", "")
	require.NoError(t, err)
	require.NotEmpty(t, first.SessionID)
	assert.Empty(t, ai.history)
	assert.True(t, ai.deadline)

	for i := 0; i < 24; i++ {
		_, err := svc.Chat(ctx, "u-1", first.SessionID, fmt.Sprintf("msg %d", i), "")
		require.NoError(t, err)
	}

	_, err = svc.Chat(ctx, "u-1", first.SessionID, "last", "")
	require.NoError(t, err)
	assert.Len(t, ai.history, domain.MaxChatHistory)

	sess, err := chats.GetSession(ctx, "u-1", first.SessionID)
	require.NoError(t, err)
	assert.Len(t, sess.Messages, domain.MaxChatHistory)
	assert.Equal(t, "ok", sess.Messages[len(sess.Messages)-1].Text)
	assert.Equal(t, "last", sess.Messages[len(sess.Messages)-2].Text)
}

func TestAssistantService_ChatSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	ai := &scriptedAI{reply: "ok"}
	svc := NewAssistantService(ai, store.NewMemoryStore(), nil, time.Second)

	_, err := svc.Chat(ctx, "u-1", "s", "from u-1", "")
	require.NoError(t, err)

	_, err = svc.Chat(ctx, "u-2", "s", "from u-2", "")
	require.NoError(t, err)
	assert.Empty(t, ai.history, "another subject's session must not leak")
}

func TestAssistantService_ChatContextAndValidation(t *testing.T) {
	ctx := context.Background()
	ai := &scriptedAI{reply: "```\nfenced\n```"}
	svc := NewAssistantService(ai, store.NewMemoryStore(), nil, time.Second)

	reply, err := svc.Chat(ctx, "u-1", "s1", "explain", "chapter 3")
	require.NoError(t, err)
	assert.Equal(t, "fenced", reply.Response)
	assert.Equal(t, "s1", reply.SessionID)
	assert.Equal(t, "Context: chapter 3\n\nexplain", ai.prompt)
	assert.Equal(t, chatPreamble, ai.system)

	_, err = svc.Chat(ctx, "u-1", "s1", "   ", "")
	var verr *port.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestAssistantService_UpstreamFailureKeepsHistory(t *testing.T) {
	ctx := context.Background()
	ai := &scriptedAI{err: errors.New("quota exceeded")}
	chats := store.NewMemoryStore()
	svc := NewAssistantService(ai, chats, nil, time.Second)

	_, err := svc.Chat(ctx, "u-1", "s1", "hi", "")
	var upstream *port.UpstreamError
	require.True(t, errors.As(err, &upstream))

	_, err = chats.GetSession(ctx, "u-1", "s1")
	assert.ErrorIs(t, err, port.ErrSessionNotFound)
	assert.Equal(t, 1, ai.calls, "no retries")
}

func TestAssistantService_Timeout(t *testing.T) {
	ai := &scriptedAI{reply: "late", delay: time.Second}
	svc := NewAssistantService(ai, store.NewMemoryStore(), nil, 20*time.Millisecond)

	_, err := svc.GenerateNotes(context.Background(), "u-1", "Go")
	var upstream *port.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAssistantService_GenerateNotes(t *testing.T) {
	audit := &recordingAudit{}
	ai := &scriptedAI{reply: "  # Go\n\n\n\n- fast  "}
	svc := NewAssistantService(ai, store.NewMemoryStore(), audit, time.Second)

	notes, err := svc.GenerateNotes(context.Background(), "u-1", " Go ")
	require.NoError(t, err)
	assert.Equal(t, "# Go\n\n- fast", notes.Notes)
	assert.Equal(t, "Go", notes.Topic)
	assert.Equal(t, "Topic: Go", ai.prompt)
	assert.True(t, audit.has(domain.AuditActionAIRequest))

	_, err = svc.GenerateNotes(context.Background(), "u-1", "")
	var verr *port.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestAssistantService_GenerateRoadmap(t *testing.T) {
	ai := &scriptedAI{reply: "Phase 1: Basics (1 week)\n- syntax\nMilestones\n- hello world"}
	svc := NewAssistantService(ai, store.NewMemoryStore(), nil, time.Second)

	rm, err := svc.GenerateRoadmap(context.Background(), "u-1", "Learn Go")
	require.NoError(t, err)
	assert.Equal(t, "Learn Go", rm.Goal)
	assert.Equal(t, domain.ConfidenceHigh, rm.Confidence)
	require.Len(t, rm.Phases, 1)
	assert.Equal(t, []string{"hello world"}, rm.Milestones)

	_, err = svc.GenerateRoadmap(context.Background(), "u-1", " ")
	var verr *port.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestCleanOutput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trim", "  hi \n", "hi"},
		{"fence with language", "```markdown\n# Title\nbody\n```", "# Title\nbody"},
		{"blank runs", "a\n\n\n\nb\n\n\nc", "a\n\nb\n\nc"},
		{"crlf", "a\r\n\r\n\r\nb", "a\n\nb"},
		{"inner fences kept", "```go\na\n```\ntext\n```go\nb\n```", "```go\na\n```\ntext\n```go\nb\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanOutput(tt.in))
		})
	}
}
