package livesession

import (
	"log/slog"
	"sync"
)

// Manager tracks the live sessions owned by this process.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*LiveSession
	log      *slog.Logger
}

func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*LiveSession),
		log:      log.With("component", "livesession_manager"),
	}
}

func (m *Manager) Create(cfg Config) (*LiveSession, error) {
	session, err := New(cfg, m.log)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[session.SessionID()] = session
	m.mu.Unlock()

	m.log.Info("live session created", "session_id", session.SessionID())
	return session, nil
}

func (m *Manager) Get(sessionID string) (*LiveSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[sessionID]
	return session, ok
}

func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if session != nil {
		session.Stop()
		m.log.Info("live session removed", "session_id", sessionID)
	}
}

type SessionInfo struct {
	SessionID     string `json:"session_id"`
	State         string `json:"state"`
	CameraEnabled bool   `json:"camera_enabled"`
	Turns         int    `json:"turns"`
}

func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) ListSessions() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, SessionInfo{
			SessionID:     s.SessionID(),
			State:         string(s.State()),
			CameraEnabled: s.CameraEnabled(),
			Turns:         len(s.Transcript()),
		})
	}
	return sessions
}

func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := make([]*LiveSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*LiveSession)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
	return nil
}
