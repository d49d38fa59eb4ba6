package store

import "fmt"

// NotFoundError reports an operation against a session that is not in
// the store, or a message-level operation against an empty session.
type NotFoundError struct {
	SessionID string
	Reason    string
}

func (e *NotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("session %s: %s", e.SessionID, e.Reason)
	}
	return fmt.Sprintf("session %s not found", e.SessionID)
}

func notFound(sessionID string) error {
	return &NotFoundError{SessionID: sessionID}
}
