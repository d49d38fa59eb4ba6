package store

// EventType tags a store mutation for observers.
type EventType string

const (
	EventSessionsLoaded EventType = "sessions_loaded"
	EventSessionCreated EventType = "session_created"
	EventSessionSelect  EventType = "session_selected"
	EventMessageAppend  EventType = "message_appended"
	EventMessageUpdate  EventType = "message_updated"
	EventMessageRemove  EventType = "message_removed"
	EventModelChanged   EventType = "model_changed"
	EventGenerating     EventType = "generating_changed"
)

// Event describes one completed mutation. Observers receive it after the
// store's lock is released; they must not call back into mutating
// operations from the same goroutine expecting ordering guarantees.
type Event struct {
	Type      EventType
	SessionID string
}

// Observer receives mutation events. Registered observers replace the
// console logging the store would otherwise carry; persistence and the
// TUI both subscribe through this.
type Observer func(Event)

// persistent reports whether an event mutates state that belongs in the
// durable snapshot.
func (t EventType) persistent() bool {
	return t != EventGenerating
}
