package conversation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_UpdateCreatesIdle(t *testing.T) {
	s := NewSessions()

	var seen Session
	s.Update("room", func(sess *Session) { seen = *sess })

	assert.Equal(t, Session{ID: "room", State: StateIdle}, seen)
	assert.Equal(t, 1, s.Len())
}

func TestSessions_GetUnknown(t *testing.T) {
	_, ok := NewSessions().Get("missing")
	assert.False(t, ok)
}

func TestSessions_ResetKeepsSessionKnown(t *testing.T) {
	s := NewSessions()
	s.Update("room", func(sess *Session) {
		sess.State = StateAwaitingConfirm
		sess.Recipient = "user@example.com"
		sess.Body = "hi"
	})

	s.Reset("room")

	got, ok := s.Get("room")
	require.True(t, ok)
	assert.Equal(t, Session{ID: "room", State: StateIdle}, got)
}

func TestSessions_Forget(t *testing.T) {
	s := NewSessions()
	s.Update("room", func(*Session) {})
	s.Forget("room")

	_, ok := s.Get("room")
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestSessions_UpdateIsExclusivePerSession(t *testing.T) {
	s := NewSessions()
	const workers = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	inside, maxInside := 0, 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update("room", func(sess *Session) {
				mu.Lock()
				inside++
				maxInside = max(maxInside, inside)
				mu.Unlock()

				time.Sleep(time.Millisecond)
				sess.Body += "x"

				mu.Lock()
				inside--
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	got, _ := s.Get("room")
	assert.Len(t, got.Body, workers)
	assert.Equal(t, 1, maxInside, "two updates ran concurrently on one session")
}

func TestSessions_OtherSessionsAreNotBlocked(t *testing.T) {
	s := NewSessions()
	release := make(chan struct{})
	entered := make(chan struct{})

	go s.Update("slow", func(*Session) {
		close(entered)
		<-release
	})
	<-entered

	done := make(chan struct{})
	go func() {
		s.Update("fast", func(*Session) {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("update on another session was blocked")
	}
	close(release)
}
