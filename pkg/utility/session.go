package utility

import (
	"sync"

	"github.com/google/uuid"
)

// SessionID identifies one monitoring run. Published frames carry it so a consumer can
// tell a restarted monitor from a gap in the stream.
type SessionID = uuid.UUID

var (
	sessionID     SessionID
	sessionIDOnce sync.Once
	sessionIDMu   sync.RWMutex
)

func GetSessionID() SessionID {
	sessionIDOnce.Do(func() {
		sessionIDMu.Lock()
		sessionID = uuid.Must(uuid.NewV7())
		sessionIDMu.Unlock()
	})

	sessionIDMu.RLock()
	defer sessionIDMu.RUnlock()
	return sessionID
}

// ResetSessionID starts a new session, e.g. after the detector was reset.
func ResetSessionID() SessionID {
	GetSessionID()

	sessionIDMu.Lock()
	defer sessionIDMu.Unlock()

	sessionID = uuid.Must(uuid.NewV7())
	return sessionID
}
