package editor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/learnvex/internal/reorder"
)

// Manager keeps one Session per course so that gestures against the same
// course share a single serialized queue.
type Manager struct {
	loader    Loader
	persister reorder.Persister
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty manager.
func NewManager(loader Loader, persister reorder.Persister, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		loader:    loader,
		persister: persister,
		logger:    logger,
		sessions:  make(map[string]*Session),
	}
}

// Session returns the open session for courseID, opening it on first use.
// The structure is loaded without holding the manager lock; when two callers
// race, the first session stored wins and the other is closed.
func (m *Manager) Session(ctx context.Context, courseID string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[courseID]
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	opened, err := Open(ctx, courseID, m.loader, m.persister, m.logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if s, ok := m.sessions[courseID]; ok {
		m.mu.Unlock()
		opened.Close()
		return s, nil
	}
	m.sessions[courseID] = opened
	m.mu.Unlock()
	return opened, nil
}

// Forget closes and drops the session for courseID, if any.
func (m *Manager) Forget(courseID string) {
	m.mu.Lock()
	s, ok := m.sessions[courseID]
	delete(m.sessions, courseID)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Close closes every open session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
