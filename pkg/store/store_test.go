package store

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley/pkg/chat"
)

func TestCreateAndSelectSession(t *testing.T) {
	t.Run("should create session with fresh id and zero messages", func(t *testing.T) {
		s := New()
		sess := s.CreateSession("qwen3:latest", "first chat")

		assert.NotEmpty(t, sess.ID)
		assert.Equal(t, "qwen3:latest", sess.Model)
		assert.Equal(t, "first chat", sess.Title)
		assert.Equal(t, 0, sess.Count())

		// Creation does not select
		assert.Empty(t, s.CurrentSessionID())
	})

	t.Run("should select existing session and touch access time", func(t *testing.T) {
		s := New()
		sess := s.CreateSession("qwen3:latest", "")

		before := sess.LastAccessedAt
		require.NoError(t, s.SelectSession(sess.ID))

		assert.Equal(t, sess.ID, s.CurrentSessionID())
		got, ok := s.Session(sess.ID)
		require.True(t, ok)
		assert.False(t, got.LastAccessedAt.Before(before))
	})

	t.Run("should fail selecting absent session and leave current unchanged", func(t *testing.T) {
		s := New()
		sess := s.CreateSession("qwen3:latest", "")
		require.NoError(t, s.SelectSession(sess.ID))

		err := s.SelectSession("no-such-session")
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "no-such-session", notFound.SessionID)
		assert.Equal(t, sess.ID, s.CurrentSessionID())
	})
}

func TestLoadSessions(t *testing.T) {
	t.Run("should preserve input order", func(t *testing.T) {
		s := New()
		s.LoadSessions([]chat.Session{
			chat.NewSession("m", "c"),
			chat.NewSession("m", "a"),
			chat.NewSession("m", "b"),
		})

		sessions := s.Sessions()
		require.Len(t, sessions, 3)
		assert.Equal(t, "c", sessions[0].Title)
		assert.Equal(t, "a", sessions[1].Title)
		assert.Equal(t, "b", sessions[2].Title)
	})

	t.Run("should not touch current session id", func(t *testing.T) {
		s := New()
		sess := s.CreateSession("m", "")
		require.NoError(t, s.SelectSession(sess.ID))

		s.LoadSessions([]chat.Session{sess, chat.NewSession("m", "other")})
		assert.Equal(t, sess.ID, s.CurrentSessionID())
	})

	t.Run("should replace previous mapping", func(t *testing.T) {
		s := New()
		s.CreateSession("m", "old")
		s.LoadSessions([]chat.Session{chat.NewSession("m", "new")})

		sessions := s.Sessions()
		require.Len(t, sessions, 1)
		assert.Equal(t, "new", sessions[0].Title)
	})
}

func TestAppendMessage(t *testing.T) {
	t.Run("should keep message count equal to list length", func(t *testing.T) {
		s := New()
		sess := s.CreateSession("m", "")

		for i := 0; i < 5; i++ {
			require.NoError(t, s.AppendMessage(sess.ID, chat.NewUserMessage("hi")))
		}

		got, ok := s.Session(sess.ID)
		require.True(t, ok)
		assert.Len(t, got.Messages, 5)
		assert.Equal(t, len(got.Messages), got.MessageCount)
		assert.Equal(t, 5, got.Count())
	})

	t.Run("should fail on absent session", func(t *testing.T) {
		s := New()
		err := s.AppendMessage("missing", chat.NewUserMessage("hi"))
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("should not share message slices across reads", func(t *testing.T) {
		s := New()
		sess := s.CreateSession("m", "")
		require.NoError(t, s.AppendMessage(sess.ID, chat.NewUserMessage("one")))

		before, _ := s.Session(sess.ID)
		require.NoError(t, s.AppendMessage(sess.ID, chat.NewUserMessage("two")))

		// The earlier read still sees its own snapshot
		assert.Len(t, before.Messages, 1)
	})
}

func TestUpdateLastMessageContent(t *testing.T) {
	t.Run("should concatenate deltas onto the last message", func(t *testing.T) {
		s := New()
		sess := s.CreateSession("m", "")
		require.NoError(t, s.AppendMessage(sess.ID, chat.NewAssistantMessage("")))

		require.NoError(t, s.UpdateLastMessageContent(sess.ID, "Hel"))
		require.NoError(t, s.UpdateLastMessageContent(sess.ID, "lo"))

		got, _ := s.Session(sess.ID)
		last, ok := got.LastMessage()
		require.True(t, ok)
		assert.Equal(t, "Hello", last.Content)
	})

	t.Run("should replace the message, not mutate the old value", func(t *testing.T) {
		s := New()
		sess := s.CreateSession("m", "")
		require.NoError(t, s.AppendMessage(sess.ID, chat.NewAssistantMessage("old")))

		before, _ := s.Session(sess.ID)
		require.NoError(t, s.UpdateLastMessageContent(sess.ID, " new"))

		assert.Equal(t, "old", before.Messages[0].Content)
	})

	t.Run("should fail on empty message list", func(t *testing.T) {
		s := New()
		sess := s.CreateSession("m", "")

		err := s.UpdateLastMessageContent(sess.ID, "x")
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "no messages", notFound.Reason)
	})

	t.Run("should fail on absent session", func(t *testing.T) {
		s := New()
		err := s.UpdateLastMessageContent("missing", "x")
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestRemoveLastMessage(t *testing.T) {
	t.Run("should pop the last message and fix the count", func(t *testing.T) {
		s := New()
		sess := s.CreateSession("m", "")
		require.NoError(t, s.AppendMessage(sess.ID, chat.NewUserMessage("q")))
		require.NoError(t, s.AppendMessage(sess.ID, chat.NewAssistantMessage("a")))

		s.RemoveLastMessage(sess.ID)

		got, _ := s.Session(sess.ID)
		require.Len(t, got.Messages, 1)
		assert.Equal(t, 1, got.MessageCount)
		assert.Equal(t, chat.RoleUser, got.Messages[0].Role)
	})

	t.Run("should be a silent no-op on empty list", func(t *testing.T) {
		s := New()
		sess := s.CreateSession("m", "")
		s.RemoveLastMessage(sess.ID)

		got, _ := s.Session(sess.ID)
		assert.Equal(t, 0, got.Count())
	})

	t.Run("should be a silent no-op on absent session", func(t *testing.T) {
		s := New()
		s.RemoveLastMessage("missing")
	})
}

func TestGenerating(t *testing.T) {
	t.Run("should scope the flag per session", func(t *testing.T) {
		s := New()
		a := s.CreateSession("m", "a")
		b := s.CreateSession("m", "b")

		s.SetGenerating(a.ID, true)

		assert.True(t, s.Generating(a.ID))
		assert.False(t, s.Generating(b.ID))

		s.SetGenerating(a.ID, false)
		assert.False(t, s.Generating(a.ID))
	})

	t.Run("should claim the slot atomically", func(t *testing.T) {
		s := New()
		sess := s.CreateSession("m", "")

		assert.True(t, s.TryStartGenerating(sess.ID))
		assert.False(t, s.TryStartGenerating(sess.ID))
		assert.True(t, s.Generating(sess.ID))

		s.SetGenerating(sess.ID, false)
		assert.True(t, s.TryStartGenerating(sess.ID))
	})

	t.Run("should admit exactly one of many concurrent claimants", func(t *testing.T) {
		s := New()
		sess := s.CreateSession("m", "")

		const claimants = 16
		start := make(chan struct{})
		var wg sync.WaitGroup
		var wins int32
		for i := 0; i < claimants; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if s.TryStartGenerating(sess.ID) {
					atomic.AddInt32(&wins, 1)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), wins)
	})

	t.Run("should be idempotent", func(t *testing.T) {
		s := New()
		sess := s.CreateSession("m", "")

		s.SetGenerating(sess.ID, true)
		s.SetGenerating(sess.ID, true)
		assert.True(t, s.Generating(sess.ID))

		s.SetGenerating(sess.ID, false)
		s.SetGenerating(sess.ID, false)
		assert.False(t, s.Generating(sess.ID))
	})
}

func TestObservers(t *testing.T) {
	t.Run("should notify observers after each mutation", func(t *testing.T) {
		s := New()
		var events []EventType
		s.Subscribe(func(evt Event) {
			events = append(events, evt.Type)
		})

		sess := s.CreateSession("m", "")
		require.NoError(t, s.SelectSession(sess.ID))
		require.NoError(t, s.AppendMessage(sess.ID, chat.NewUserMessage("hi")))
		s.SetGenerating(sess.ID, true)

		assert.Equal(t, []EventType{
			EventSessionCreated,
			EventSessionSelect,
			EventMessageAppend,
			EventGenerating,
		}, events)
	})

	t.Run("should not notify on failed mutations", func(t *testing.T) {
		s := New()
		count := 0
		s.Subscribe(func(Event) { count++ })

		_ = s.SelectSession("missing")
		_ = s.AppendMessage("missing", chat.NewUserMessage("hi"))

		assert.Zero(t, count)
	})
}
