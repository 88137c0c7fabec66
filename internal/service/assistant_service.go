package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/arturoeanton/certify-ai/internal/domain"
	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/google/uuid"
)

const (
	chatPreamble = `You are Certify AI, a friendly study assistant for students working through online courses.
Answer clearly and concisely. Use short paragraphs and bullet lists where they help.
If a question is outside learning and career topics, steer the conversation back politely.`

	notesPreamble = `You are an expert teacher. Write well-structured study notes on the topic the user gives.
Use markdown headings for sections, bullet points for key facts, and finish with a short summary.
Include definitions, examples and common pitfalls where relevant.`

	roadmapPreamble = `You are a career and learning mentor. Produce a step-by-step learning roadmap for the goal the user gives.
Structure it as numbered phases, each on its own line in the form "Phase N: Title (duration)",
followed by bullet points of what to learn or build. End with a "Milestones" section listing
concrete achievements as bullet points.`
)

// ChatReply is the assistant's answer to one chat message.
type ChatReply struct {
	Response  string    `json:"response"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Notes is generated study material for a topic.
type Notes struct {
	Notes     string    `json:"notes"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

// AssistantService wraps the generative model with fixed preambles and a
// rolling per-session chat history.
type AssistantService struct {
	ai      port.AIProvider
	chats   port.ChatRepository
	audit   AuditWriter
	timeout time.Duration
	locks   *KeyedMutex
	now     func() time.Time
	newID   func() string
}

// NewAssistantService creates an assistant. timeout bounds each model call;
// audit may be nil.
func NewAssistantService(ai port.AIProvider, chats port.ChatRepository, audit AuditWriter, timeout time.Duration) *AssistantService {
	return &AssistantService{
		ai:      ai,
		chats:   chats,
		audit:   audit,
		timeout: timeout,
		locks:   NewKeyedMutex(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Chat answers message within the subject's session, creating the session
// (and its id) when needed. Both turns are stored only after a successful
// reply.
func (s *AssistantService) Chat(ctx context.Context, subjectID, sessionID, message, extra string) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, port.NewValidationError("message", "Message is required")
	}
	if sessionID == "" {
		sessionID = s.newID()
	}

	unlock := s.locks.Lock(subjectID + "/" + sessionID)
	defer unlock()

	var history []domain.ChatMessage
	sess, err := s.chats.GetSession(ctx, subjectID, sessionID)
	switch {
	case err == nil:
		history = domain.TrimHistory(sess.Messages, domain.MaxChatHistory)
	case errors.Is(err, port.ErrSessionNotFound):
	default:
		return nil, fmt.Errorf("load chat session: %w", err)
	}

	prompt := message
	if extra = strings.TrimSpace(extra); extra != "" {
		prompt = fmt.Sprintf("Context: %s\n\n%s", extra, message)
	}

	reply, err := s.generate(ctx, chatPreamble, history, prompt)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = s.chats.AppendMessages(ctx, subjectID, sessionID, domain.MaxChatHistory,
		domain.ChatMessage{Role: domain.ChatRoleUser, Text: message, Timestamp: now},
		domain.ChatMessage{Role: domain.ChatRoleAssistant, Text: reply, Timestamp: now},
	)
	if err != nil {
		return nil, fmt.Errorf("save chat session: %w", err)
	}

	s.record(subjectID, "chat", sessionID)
	return &ChatReply{Response: reply, SessionID: sessionID, Timestamp: now}, nil
}

// GenerateNotes writes study notes for topic.
func (s *AssistantService) GenerateNotes(ctx context.Context, subjectID, topic string) (*Notes, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, port.NewValidationError("topic", "Topic is required")
	}

	notes, err := s.generate(ctx, notesPreamble, nil, "Topic: "+topic)
	if err != nil {
		return nil, err
	}

	s.record(subjectID, "notes", topic)
	return &Notes{Notes: notes, Topic: topic, Timestamp: s.now().UTC()}, nil
}

// GenerateRoadmap asks for a learning plan towards goal and parses it.
func (s *AssistantService) GenerateRoadmap(ctx context.Context, subjectID, goal string) (*domain.Roadmap, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, port.NewValidationError("goal", "Goal is required")
	}

	raw, err := s.generate(ctx, roadmapPreamble, nil, "Goal: "+goal)
	if err != nil {
		return nil, err
	}

	rm := ParseRoadmap(goal, raw)
	if rm.Confidence == domain.ConfidenceLow {
		slog.Warn("roadmap had no phase markers, using fallback", "goal", goal)
	}
	s.record(subjectID, "roadmap", goal)
	return rm, nil
}

func (s *AssistantService) generate(ctx context.Context, system string, history []domain.ChatMessage, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.ai.Chat(ctx, system, history, prompt)
	if err != nil {
		slog.Error("AI request failed", "model", s.ai.ModelName(), "error", err)
		return "", &port.UpstreamError{Service: "AI service", Err: err}
	}
	slog.Debug("AI request completed", "model", s.ai.ModelName(), "duration", time.Since(start))
	return CleanOutput(raw), nil
}

func (s *AssistantService) record(subjectID, kind, resourceID string) {
	if s.audit == nil {
		return
	}
	writeAudit(s.audit, subjectID, domain.AuditActionAIRequest, "ai", resourceID,
		map[string]string{"kind": kind, "model": s.ai.ModelName()})
}

var (
	fenceRe    = regexp.MustCompile("(?s)^```[A-Za-z0-9_-]*[ \t]*\n(.*?)\n?```$")
	newlinesRe = regexp.MustCompile(`\n{3,}`)
)

// CleanOutput trims model text, unwraps a single enclosing code fence and
// collapses runs of blank lines.
func CleanOutput(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	if m := fenceRe.FindStringSubmatch(s); m != nil && !strings.Contains(m[1], "```") {
		s = strings.TrimSpace(m[1])
	}
	return newlinesRe.ReplaceAllString(s, "\n\n")
}
