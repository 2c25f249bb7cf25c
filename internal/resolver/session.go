package resolver

import (
	"sync"

	"github.com/google/uuid"
)

// SessionToken groups a burst of autocomplete requests and the details
// request that completes them into one billable provider session.
//
// A token is owned by a single Resolver. Rotation replaces the value
// atomically; there is no shared registry.
type SessionToken struct {
	mu    sync.RWMutex
	value string
}

func NewSessionToken() *SessionToken {
	return &SessionToken{value: uuid.NewString()}
}

func (t *SessionToken) Value() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.value
}

// Rotate discards the current value and returns the new one.
func (t *SessionToken) Rotate() string {
	next := uuid.NewString()
	t.mu.Lock()
	t.value = next
	t.mu.Unlock()
	return next
}

// ResumeSessionToken continues a session the client already opened. A blank
// value starts a new one.
func ResumeSessionToken(value string) *SessionToken {
	if value == "" {
		return NewSessionToken()
	}
	return &SessionToken{value: value}
}
