// ABOUTME: Conversation state machine for composing and confirming an email
// ABOUTME: Looks up the session, classifies the input and applies the matching transition

package conversation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/2389/coven-mailer/internal/metrics"
	"github.com/2389/coven-mailer/internal/relay"
)

// Relayer delivers a confirmed draft.
type Relayer interface {
	Relay(ctx context.Context, sender, recipient, body string) relay.Outcome
}

// Event is one inbound message for a session.
type Event struct {
	SessionID string
	// Start marks the start command; Text is ignored when set.
	Start bool
	Text  string
}

// Reply is the result of handling an Event.
type Reply struct {
	// Text is sent back to the session. Empty means no reply.
	Text  string
	From  State
	To    State
	Input InputClass
}

// Machine owns all sessions and moves them through the dialogue.
type Machine struct {
	sessions *Sessions
	relay    Relayer
	sender   string
	logger   *slog.Logger
}

// NewMachine creates a Machine. sender is the From address handed to the relay.
func NewMachine(sessions *Sessions, relayer Relayer, sender string, logger *slog.Logger) *Machine {
	if sessions == nil {
		sessions = NewSessions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		sessions: sessions,
		relay:    relayer,
		sender:   sender,
		logger:   logger.With("component", "conversation"),
	}
}

// Sessions exposes the session store.
func (m *Machine) Sessions() *Sessions {
	return m.sessions
}

// Handle processes ev against its session. The whole transition, including
// any relay call, holds the session's lock.
func (m *Machine) Handle(ctx context.Context, ev Event) Reply {
	var r Reply
	m.sessions.Update(ev.SessionID, func(s *Session) {
		r = m.step(ctx, s, ev)
	})
	return r
}

func (m *Machine) step(ctx context.Context, s *Session, ev Event) Reply {
	from := s.State
	input := classify(from, ev)

	t, ok := transitions[transitionKey{from, input}]
	if !ok {
		// Every reachable (state, input) pair is in the table.
		m.logger.Error("no transition", "session", s.ID, "state", from, "input", input)
		return Reply{From: from, To: from, Input: input}
	}

	var text string
	if t.do != nil {
		text = t.do(m, ctx, s, ev.Text)
	}
	s.State = t.to

	metrics.TransitionsTotal.WithLabelValues(from.String(), t.to.String()).Inc()
	m.logger.Debug("transition",
		"session", s.ID,
		"from", from,
		"to", t.to,
		"input", input,
	)

	return Reply{Text: text, From: from, To: t.to, Input: input}
}

func (m *Machine) begin(_ context.Context, s *Session, _ string) string {
	s.clearDraft()
	return PromptWelcome
}

func (m *Machine) acceptEmail(_ context.Context, s *Session, text string) string {
	s.Recipient = strings.TrimSpace(text)
	return PromptBody
}

func (m *Machine) acceptBody(_ context.Context, s *Session, text string) string {
	s.Body = strings.TrimSpace(text)
	return SummaryPrompt(s.Recipient, s.Body)
}

func (m *Machine) confirm(ctx context.Context, s *Session, _ string) string {
	recipient, body := s.Recipient, s.Body
	s.reset()

	if recipient == "" || body == "" {
		// Unreachable through the table.
		m.logger.Error("confirm without complete draft", "session", s.ID)
		return FailedPrompt("черновик сообщения неполный")
	}

	out := m.relay.Relay(ctx, m.sender, recipient, body)
	m.logger.Info("relay finished",
		"session", s.ID,
		"to", recipient,
		"outcome", out.Status,
	)
	if out.OK() {
		return PromptDelivered
	}
	return FailedPrompt(out.Reason)
}

func (m *Machine) decline(_ context.Context, s *Session, _ string) string {
	s.clearDraft()
	return PromptRestart
}
