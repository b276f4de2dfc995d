// ABOUTME: Matrix chat transport for the mail dialogue
// ABOUTME: Turns room messages into conversation events and sends the replies back

package bot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/coven-mailer/internal/config"
	"github.com/2389/coven-mailer/internal/conversation"
	"github.com/2389/coven-mailer/internal/dedupe"
	"github.com/2389/coven-mailer/internal/metrics"
)

const (
	// typingTimeout is how long the typing indicator shows while a relay runs.
	typingTimeout = 30 * time.Second

	// networkTimeout bounds each Matrix API call made on behalf of a reply.
	networkTimeout = 10 * time.Second

	dedupeTTL  = 10 * time.Minute
	dedupeSize = 10000
)

// Messenger is the subset of *mautrix.Client the bot writes with.
type Messenger interface {
	SendText(ctx context.Context, roomID id.RoomID, text string) (*mautrix.RespSendEvent, error)
	UserTyping(ctx context.Context, roomID id.RoomID, typing bool, timeout time.Duration) (*mautrix.RespTyping, error)
	JoinRoomByID(ctx context.Context, roomID id.RoomID) (*mautrix.RespJoinRoom, error)
}

// Bot connects a Matrix account to the conversation Machine.
// Each room is one session.
type Bot struct {
	cfg     config.BotConfig
	userID  id.UserID
	matrix  *mautrix.Client
	out     Messenger
	machine *conversation.Machine
	seen    *dedupe.Cache
	queue   *dispatcher
	logger  *slog.Logger

	// ctx is the parent context for event processing
	ctx context.Context
}

// New creates a Bot logged in with the configured access token.
func New(cfg *config.Config, machine *conversation.Machine, logger *slog.Logger) (*Bot, error) {
	client, err := mautrix.NewClient(cfg.Matrix.Homeserver, id.UserID(cfg.Matrix.UserID), cfg.Matrix.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}

	b := newBot(cfg.Bot, id.UserID(cfg.Matrix.UserID), client, machine, logger)
	b.matrix = client
	return b, nil
}

func newBot(cfg config.BotConfig, userID id.UserID, out Messenger, machine *conversation.Machine, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		cfg:     cfg,
		userID:  userID,
		out:     out,
		machine: machine,
		seen:    dedupe.New(dedupeTTL, dedupeSize),
		queue:   newDispatcher(),
		logger:  logger.With("component", "bot"),
		ctx:     context.Background(),
	}
}

// Run syncs with the homeserver and blocks until ctx is cancelled.
// In-flight events finish before Run returns.
func (b *Bot) Run(ctx context.Context) error {
	if b.matrix == nil {
		return fmt.Errorf("bot has no matrix client")
	}

	b.logger.Info("starting matrix bot",
		"homeserver", b.matrix.HomeserverURL.String(),
		"user_id", b.userID.String(),
	)

	var cancel context.CancelFunc
	b.ctx, cancel = context.WithCancel(ctx)
	defer cancel()
	defer b.queue.Wait()

	syncer, ok := b.matrix.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.matrix.Syncer)
	}
	// Skip the backlog delivered by the first sync.
	syncer.OnSync(b.matrix.DontProcessOldEvents)
	syncer.OnEventType(event.EventMessage, b.handleMessageEvent)
	if b.cfg.AutoJoin {
		syncer.OnEventType(event.StateMember, b.handleMemberEvent)
	}

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.matrix.SyncWithContext(b.ctx)
	}()

	b.logger.Info("matrix bot running")

	select {
	case <-ctx.Done():
		b.logger.Info("shutting down matrix bot")
		cancel()
		return nil
	case err := <-syncErr:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

// handleMessageEvent filters an incoming room message and queues it for its session.
func (b *Bot) handleMessageEvent(_ context.Context, evt *event.Event) {
	if evt.Sender == b.userID {
		return
	}

	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok || content.MsgType != event.MsgText {
		metrics.EventsTotal.WithLabelValues("ignored").Inc()
		return
	}

	roomID := evt.RoomID
	if !b.isRoomAllowed(roomID.String()) {
		b.logger.Debug("ignoring message from non-allowed room", "room", roomID)
		metrics.EventsTotal.WithLabelValues("ignored").Inc()
		return
	}

	body, ok := b.stripPrefix(content.Body)
	if !ok {
		metrics.EventsTotal.WithLabelValues("ignored").Inc()
		return
	}

	if evt.ID != "" && b.seen.Seen(evt.ID.String()) {
		b.logger.Debug("duplicate event ignored", "room", roomID, "event_id", evt.ID)
		metrics.EventsTotal.WithLabelValues("duplicate").Inc()
		return
	}

	ev := conversation.Event{
		SessionID: roomID.String(),
		Start:     b.isStartCommand(body),
		Text:      body,
	}
	if ev.Start {
		metrics.EventsTotal.WithLabelValues("start").Inc()
	} else {
		metrics.EventsTotal.WithLabelValues("text").Inc()
	}

	b.logger.Info("received message",
		"room", roomID,
		"sender", evt.Sender,
		"start", ev.Start,
		"content", truncate(body, 50),
	)

	b.queue.Dispatch(ev.SessionID, func() {
		b.process(roomID, ev)
	})
}

// process runs one event through the machine and sends the reply.
func (b *Bot) process(roomID id.RoomID, ev conversation.Event) {
	if b.cfg.TypingIndicator && b.mayRelay(ev) {
		b.setTyping(roomID, true)
		defer b.setTyping(roomID, false)
	}

	reply := b.machine.Handle(b.ctx, ev)
	if reply.Text == "" {
		return
	}
	b.sendMessage(roomID, reply.Text)
}

// mayRelay reports whether ev could trigger a delivery.
func (b *Bot) mayRelay(ev conversation.Event) bool {
	if ev.Start {
		return false
	}
	s, ok := b.machine.Sessions().Get(ev.SessionID)
	return ok && s.State == conversation.StateAwaitingConfirm
}

// handleMemberEvent joins rooms the bot is invited to.
func (b *Bot) handleMemberEvent(_ context.Context, evt *event.Event) {
	if evt.GetStateKey() != b.userID.String() {
		return
	}
	if evt.Content.AsMember().Membership != event.MembershipInvite {
		return
	}
	if !b.isRoomAllowed(evt.RoomID.String()) {
		b.logger.Info("ignoring invite to non-allowed room", "room", evt.RoomID, "inviter", evt.Sender)
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, networkTimeout)
	defer cancel()
	if _, err := b.out.JoinRoomByID(ctx, evt.RoomID); err != nil {
		b.logger.Error("failed to join room", "room", evt.RoomID, "error", err)
		return
	}
	b.logger.Info("joined room", "room", evt.RoomID, "inviter", evt.Sender)
}

// isRoomAllowed checks if the room is in the allowed list.
func (b *Bot) isRoomAllowed(roomID string) bool {
	if len(b.cfg.AllowedRooms) == 0 {
		return true // Allow all if no filter
	}
	return slices.Contains(b.cfg.AllowedRooms, roomID)
}

// stripPrefix removes the configured command prefix. ok is false when a
// prefix is configured and the message doesn't carry it.
func (b *Bot) stripPrefix(body string) (string, bool) {
	if b.cfg.CommandPrefix == "" {
		return body, true
	}
	if !strings.HasPrefix(body, b.cfg.CommandPrefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(body, b.cfg.CommandPrefix)), true
}

func (b *Bot) isStartCommand(body string) bool {
	return strings.EqualFold(strings.TrimSpace(body), strings.TrimSpace(b.cfg.StartCommand))
}

// setTyping sends typing indicator to room.
func (b *Bot) setTyping(roomID id.RoomID, typing bool) {
	var timeout time.Duration
	if typing {
		timeout = typingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()
	if _, err := b.out.UserTyping(ctx, roomID, typing, timeout); err != nil {
		b.logger.Debug("failed to set typing indicator", "room", roomID, "error", err)
	}
}

// sendMessage sends a text message to a room. Failures are logged only.
func (b *Bot) sendMessage(roomID id.RoomID, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()
	if _, err := b.out.SendText(ctx, roomID, text); err != nil {
		b.logger.Error("failed to send message", "room", roomID, "error", err)
	}
}

// truncate shortens a string to the given max rune count, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
