// ABOUTME: Tests for the Matrix bot event handling
// ABOUTME: Drives handleMessageEvent with synthetic events against a fake messenger

package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/coven-mailer/internal/config"
	"github.com/2389/coven-mailer/internal/conversation"
	"github.com/2389/coven-mailer/internal/relay"
	"github.com/2389/coven-mailer/internal/store"
)

const (
	botUser  = id.UserID("@mailer:example.org")
	testUser = id.UserID("@alice:example.org")
	testRoom = id.RoomID("!room:example.org")
)

type sent struct {
	room id.RoomID
	text string
}

// fakeMessenger implements Messenger for testing
type fakeMessenger struct {
	mu      sync.Mutex
	sent    []sent
	typing  []bool
	joined  []id.RoomID
	sendErr error
}

func (f *fakeMessenger) SendText(ctx context.Context, roomID id.RoomID, text string) (*mautrix.RespSendEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{room: roomID, text: text})
	return &mautrix.RespSendEvent{}, f.sendErr
}

func (f *fakeMessenger) UserTyping(ctx context.Context, roomID id.RoomID, typing bool, timeout time.Duration) (*mautrix.RespTyping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing = append(f.typing, typing)
	return &mautrix.RespTyping{}, nil
}

func (f *fakeMessenger) JoinRoomByID(ctx context.Context, roomID id.RoomID) (*mautrix.RespJoinRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, roomID)
	return &mautrix.RespJoinRoom{RoomID: roomID}, nil
}

func (f *fakeMessenger) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.text)
	}
	return out
}

// stubMailer implements relay.Mailer for testing
type stubMailer struct {
	mu  sync.Mutex
	to  []string
	err error
}

func (s *stubMailer) Deliver(ctx context.Context, from, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.to = append(s.to, to)
	return s.err
}

type fixture struct {
	bot    *Bot
	out    *fakeMessenger
	mailer *stubMailer
	audit  *store.MockStore
}

func newFixture(t *testing.T, cfg config.BotConfig) *fixture {
	t.Helper()
	if cfg.StartCommand == "" {
		cfg.StartCommand = config.DefaultStartCommand
	}
	mailer := &stubMailer{}
	audit := store.NewMockStore()
	svc := relay.New(mailer, audit, config.DefaultSubject, nil)
	machine := conversation.NewMachine(conversation.NewSessions(), svc, "bot@example.com", nil)
	out := &fakeMessenger{}
	return &fixture{
		bot:    newBot(cfg, botUser, out, machine, nil),
		out:    out,
		mailer: mailer,
		audit:  audit,
	}
}

var eventSeq int

func textEvent(room id.RoomID, sender id.UserID, body string) *event.Event {
	eventSeq++
	return &event.Event{
		ID:     id.EventID(fmt.Sprintf("$evt%d", eventSeq)),
		RoomID: room,
		Sender: sender,
		Type:   event.EventMessage,
		Content: event.Content{Parsed: &event.MessageEventContent{
			MsgType: event.MsgText,
			Body:    body,
		}},
	}
}

func (f *fixture) say(body string) {
	f.bot.handleMessageEvent(context.Background(), textEvent(testRoom, testUser, body))
	f.bot.queue.Wait()
}

func TestBot_FullDialogueDelivers(t *testing.T) {
	f := newFixture(t, config.BotConfig{})

	f.say("/start")
	f.say("bob@example.com")
	f.say("Hello Bob")
	f.say("да")

	require.Equal(t, []string{
		conversation.PromptWelcome,
		conversation.PromptBody,
		conversation.SummaryPrompt("bob@example.com", "Hello Bob"),
		conversation.PromptDelivered,
	}, f.out.texts())

	assert.Equal(t, []string{"bob@example.com"}, f.mailer.to)
	count, err := f.audit.CountRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBot_DeliveryFailureIsReported(t *testing.T) {
	f := newFixture(t, config.BotConfig{})
	f.mailer.err = errors.New("535 authentication failed")

	f.say("/start")
	f.say("bob@example.com")
	f.say("Hello Bob")
	f.say("yes")

	texts := f.out.texts()
	require.Len(t, texts, 4)
	assert.Equal(t, conversation.FailedPrompt("535 authentication failed"), texts[3])
}

func TestBot_StartCommandIsCaseInsensitive(t *testing.T) {
	f := newFixture(t, config.BotConfig{})

	f.say("  /START ")

	assert.Equal(t, []string{conversation.PromptWelcome}, f.out.texts())
}

func TestBot_IdleTextGetsNoReply(t *testing.T) {
	f := newFixture(t, config.BotConfig{})

	f.say("hello")

	assert.Empty(t, f.out.texts())
}

func TestBot_IgnoresOwnMessages(t *testing.T) {
	f := newFixture(t, config.BotConfig{})

	f.bot.handleMessageEvent(context.Background(), textEvent(testRoom, botUser, "/start"))
	f.bot.queue.Wait()

	assert.Empty(t, f.out.texts())
}

func TestBot_IgnoresNonTextMessages(t *testing.T) {
	f := newFixture(t, config.BotConfig{})

	evt := textEvent(testRoom, testUser, "/start")
	evt.Content.Parsed = &event.MessageEventContent{MsgType: event.MsgImage, Body: "/start"}
	f.bot.handleMessageEvent(context.Background(), evt)
	f.bot.queue.Wait()

	assert.Empty(t, f.out.texts())
}

func TestBot_IgnoresNonAllowedRooms(t *testing.T) {
	f := newFixture(t, config.BotConfig{AllowedRooms: []string{"!other:example.org"}})

	f.say("/start")

	assert.Empty(t, f.out.texts())
}

func TestBot_DuplicateEventIsDropped(t *testing.T) {
	f := newFixture(t, config.BotConfig{})

	evt := textEvent(testRoom, testUser, "/start")
	f.bot.handleMessageEvent(context.Background(), evt)
	f.bot.handleMessageEvent(context.Background(), evt)
	f.bot.queue.Wait()

	assert.Equal(t, []string{conversation.PromptWelcome}, f.out.texts())
}

func TestBot_CommandPrefix(t *testing.T) {
	f := newFixture(t, config.BotConfig{CommandPrefix: "!mail "})

	f.say("/start")
	assert.Empty(t, f.out.texts(), "message without prefix is ignored")

	f.say("!mail /start")
	f.say("!mail bob@example.com")

	assert.Equal(t, []string{conversation.PromptWelcome, conversation.PromptBody}, f.out.texts())
}

func TestBot_RoomsAreSeparateSessions(t *testing.T) {
	f := newFixture(t, config.BotConfig{})
	other := id.RoomID("!other:example.org")

	f.say("/start")
	f.bot.handleMessageEvent(context.Background(), textEvent(other, testUser, "bob@example.com"))
	f.bot.queue.Wait()

	assert.Equal(t, []string{conversation.PromptWelcome}, f.out.texts(), "other room is still idle")
}

func TestBot_EventsInOneRoomKeepOrder(t *testing.T) {
	f := newFixture(t, config.BotConfig{})

	for _, body := range []string{"/start", "bob@example.com", "Hello", "нет"} {
		f.bot.handleMessageEvent(context.Background(), textEvent(testRoom, testUser, body))
	}
	f.bot.queue.Wait()

	assert.Equal(t, []string{
		conversation.PromptWelcome,
		conversation.PromptBody,
		conversation.SummaryPrompt("bob@example.com", "Hello"),
		conversation.PromptRestart,
	}, f.out.texts())
}

func TestBot_TypingIndicatorDuringConfirm(t *testing.T) {
	f := newFixture(t, config.BotConfig{TypingIndicator: true})

	f.say("/start")
	f.say("bob@example.com")
	f.say("Hello")
	assert.Empty(t, f.out.typing)

	f.say("да")
	assert.Equal(t, []bool{true, false}, f.out.typing)
}

func TestBot_SendFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, config.BotConfig{})
	f.out.sendErr = errors.New("M_FORBIDDEN")

	f.say("/start")
	f.say("bob@example.com")

	assert.Len(t, f.out.texts(), 2, "dialogue continues after a failed send")
}

func memberEvent(room id.RoomID, stateKey string, membership event.Membership) *event.Event {
	return &event.Event{
		RoomID:   room,
		Sender:   testUser,
		Type:     event.StateMember,
		StateKey: &stateKey,
		Content:  event.Content{Parsed: &event.MemberEventContent{Membership: membership}},
	}
}

func TestBot_JoinsOnInvite(t *testing.T) {
	f := newFixture(t, config.BotConfig{AutoJoin: true})

	f.bot.handleMemberEvent(context.Background(), memberEvent(testRoom, botUser.String(), event.MembershipInvite))

	assert.Equal(t, []id.RoomID{testRoom}, f.out.joined)
}

func TestBot_InviteFiltering(t *testing.T) {
	f := newFixture(t, config.BotConfig{AutoJoin: true, AllowedRooms: []string{testRoom.String()}})

	f.bot.handleMemberEvent(context.Background(), memberEvent(testRoom, testUser.String(), event.MembershipInvite))
	f.bot.handleMemberEvent(context.Background(), memberEvent(testRoom, botUser.String(), event.MembershipJoin))
	f.bot.handleMemberEvent(context.Background(), memberEvent("!elsewhere:example.org", botUser.String(), event.MembershipInvite))

	assert.Empty(t, f.out.joined)
}

func TestBot_RunWithoutClient(t *testing.T) {
	f := newFixture(t, config.BotConfig{})

	err := f.bot.Run(context.Background())
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "hello...", truncate("hello world", 5))
	assert.Equal(t, "прив...", truncate("привет", 4))
}
