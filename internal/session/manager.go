// Package session holds the per-session agent handles.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/stock-analyst/internal/agent"
)

// Factory builds a new agent for a session.
type Factory func() (*agent.Agent, error)

type entry struct {
	agent    *agent.Agent
	lastSeen time.Time
}

// Manager maps session IDs to at most one agent each, created on first use.
type Manager struct {
	mu      sync.Mutex
	factory Factory
	active  map[string]*entry
	now     func() time.Time
}

// NewManager creates a manager that builds agents with factory.
func NewManager(factory Factory) *Manager {
	return &Manager{
		factory: factory,
		active:  make(map[string]*entry),
		now:     time.Now,
	}
}

// Get returns the session's agent, creating it if needed. A failed
// construction is not cached, so the next call retries.
func (m *Manager) Get(sessionID string) (*agent.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.active[sessionID]; ok {
		e.lastSeen = m.now()
		return e.agent, nil
	}

	a, err := m.factory()
	if err != nil {
		slog.Warn("Agent construction failed", "session_id", sessionID, "error", err)
		return nil, err
	}
	m.active[sessionID] = &entry{agent: a, lastSeen: m.now()}
	slog.Info("Agent session created", "session_id", sessionID, "model", a.Model(), "tools", a.ToolNames())
	return a, nil
}

// Close drops the session's agent.
func (m *Manager) Close(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[sessionID]; ok {
		delete(m.active, sessionID)
		slog.Info("Agent session closed", "session_id", sessionID)
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Sweep drops sessions idle for longer than ttl and returns how many were removed.
func (m *Manager) Sweep(ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-ttl)
	removed := 0
	for id, e := range m.active {
		if e.lastSeen.Before(cutoff) {
			delete(m.active, id)
			removed++
		}
	}
	return removed
}
