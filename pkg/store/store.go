package store

import (
	"sync"
	"time"

	"github.com/parleychat/parley/pkg/chat"
)

// Store is the single source of truth for sessions and their messages.
// All mutation goes through the named operations below; nothing outside
// this package writes Session or Message fields directly.
type Store struct {
	mu sync.RWMutex

	sessions  map[string]chat.Session
	order     []string
	currentID string
	model     string

	// generating is scoped per session so a stream in one session does
	// not block sending in another.
	generating map[string]bool

	observers []Observer
}

func New() *Store {
	return &Store{
		sessions:   make(map[string]chat.Session),
		order:      make([]string, 0),
		generating: make(map[string]bool),
	}
}

// Subscribe registers an observer for mutation events. Not safe to call
// concurrently with mutations; wire observers up at startup.
func (s *Store) Subscribe(obs Observer) {
	s.observers = append(s.observers, obs)
}

func (s *Store) notify(evt Event) {
	for _, obs := range s.observers {
		obs(evt)
	}
}

// LoadSessions replaces the session mapping. Resulting order matches the
// input order; the current session id is left untouched.
func (s *Store) LoadSessions(sessions []chat.Session) {
	s.mu.Lock()
	s.sessions = make(map[string]chat.Session, len(sessions))
	s.order = make([]string, 0, len(sessions))
	for _, sess := range sessions {
		if _, dup := s.sessions[sess.ID]; dup {
			continue
		}
		s.sessions[sess.ID] = sess
		s.order = append(s.order, sess.ID)
	}
	s.mu.Unlock()

	s.notify(Event{Type: EventSessionsLoaded})
}

// CreateSession inserts a new session and returns it. Selecting it is
// the caller's move.
func (s *Store) CreateSession(model, title string) chat.Session {
	sess := chat.NewSession(model, title)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.order = append(s.order, sess.ID)
	s.mu.Unlock()

	s.notify(Event{Type: EventSessionCreated, SessionID: sess.ID})
	return sess
}

// SelectSession makes the session current and touches its access time.
func (s *Store) SelectSession(sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return notFound(sessionID)
	}
	sess.LastAccessedAt = time.Now()
	s.sessions[sessionID] = sess
	s.currentID = sessionID
	s.mu.Unlock()

	s.notify(Event{Type: EventSessionSelect, SessionID: sessionID})
	return nil
}

// AppendMessage appends to the session's message list, keeping the
// cached count consistent with the list.
func (s *Store) AppendMessage(sessionID string, msg chat.Message) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return notFound(sessionID)
	}

	messages := make([]chat.Message, len(sess.Messages)+1)
	copy(messages, sess.Messages)
	messages[len(sess.Messages)] = msg

	sess.Messages = messages
	sess.MessageCount = len(messages)
	sess.UpdatedAt = time.Now()
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	s.notify(Event{Type: EventMessageAppend, SessionID: sessionID})
	return nil
}

// UpdateLastMessageContent concatenates delta onto the last message's
// content. The message is replaced, never mutated, so concurrent readers
// observe either the old or the fully-updated value.
func (s *Store) UpdateLastMessageContent(sessionID, delta string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return notFound(sessionID)
	}
	if len(sess.Messages) == 0 {
		s.mu.Unlock()
		return &NotFoundError{SessionID: sessionID, Reason: "no messages"}
	}

	last := len(sess.Messages) - 1
	messages := make([]chat.Message, len(sess.Messages))
	copy(messages, sess.Messages)
	messages[last] = messages[last].WithContent(messages[last].Content + delta)

	sess.Messages = messages
	sess.UpdatedAt = time.Now()
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	s.notify(Event{Type: EventMessageUpdate, SessionID: sessionID})
	return nil
}

// RemoveLastMessage pops the last message. A missing session or an empty
// list is a silent no-op; regeneration calls this without caring.
func (s *Store) RemoveLastMessage(sessionID string) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok || len(sess.Messages) == 0 {
		s.mu.Unlock()
		return
	}

	messages := make([]chat.Message, len(sess.Messages)-1)
	copy(messages, sess.Messages[:len(sess.Messages)-1])

	sess.Messages = messages
	sess.MessageCount = len(messages)
	sess.UpdatedAt = time.Now()
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	s.notify(Event{Type: EventMessageRemove, SessionID: sessionID})
}

// TryStartGenerating atomically claims the session's generation slot.
// The check and the set happen under one lock, so of any number of
// concurrent claimants exactly one wins; the rest get false.
func (s *Store) TryStartGenerating(sessionID string) bool {
	s.mu.Lock()
	if s.generating[sessionID] {
		s.mu.Unlock()
		return false
	}
	s.generating[sessionID] = true
	s.mu.Unlock()

	s.notify(Event{Type: EventGenerating, SessionID: sessionID})
	return true
}

// SetGenerating flags a session as having a generation in flight.
// Idempotent.
func (s *Store) SetGenerating(sessionID string, flag bool) {
	s.mu.Lock()
	if flag {
		s.generating[sessionID] = true
	} else {
		delete(s.generating, sessionID)
	}
	s.mu.Unlock()

	s.notify(Event{Type: EventGenerating, SessionID: sessionID})
}

func (s *Store) Generating(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generating[sessionID]
}

func (s *Store) SetCurrentModel(model string) {
	s.mu.Lock()
	s.model = model
	s.mu.Unlock()

	s.notify(Event{Type: EventModelChanged})
}

func (s *Store) CurrentModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

func (s *Store) CurrentSessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentID
}

// Session returns a session by id. The returned value shares its message
// slice with the store; callers treat it as read-only.
func (s *Store) Session(sessionID string) (chat.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	return sess, ok
}

// Sessions returns all sessions in insertion order.
func (s *Store) Sessions() []chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]chat.Session, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.sessions[id])
	}
	return result
}

// CurrentSession is a convenience for Session(CurrentSessionID()).
func (s *Store) CurrentSession() (chat.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentID == "" {
		return chat.Session{}, false
	}
	sess, ok := s.sessions[s.currentID]
	return sess, ok
}
