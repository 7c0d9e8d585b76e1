package rte

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/svincent240/scormrt/internal/cmi"
)

// IDGenerator produces session identifiers.
// Implemented by UUIDv7Generator (production) and testutil.SequentialIDs (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, making ids
// sortable by creation time, which keeps persisted attempts browsable in
// launch order.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Manager owns the id -> Session registry for live attempts.
//
// This is an explicit service passed by handle to the navigation layer,
// not a module-level singleton: independent attempts share nothing else.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ids      IDGenerator
}

// NewManager creates a session manager using the given id generator.
// A nil generator defaults to UUIDv7.
func NewManager(ids IDGenerator) *Manager {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	return &Manager{
		sessions: make(map[string]*Session),
		ids:      ids,
	}
}

// Spawn creates and registers a new session for an activity launch.
func (m *Manager) Spawn(activityID string, data *cmi.DataModel, opts ...SessionOption) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := NewSession(m.ids.Generate(), activityID, data, opts...)
	m.sessions[s.ID()] = s
	return s
}

// Get returns a registered session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("unknown session %q", id)
	}
	return s, nil
}

// Archive removes a terminated session from the registry.
// The session object stays valid for snapshot reads held by callers.
func (m *Manager) Archive(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of live sessions. Used for tests and diagnostics.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
