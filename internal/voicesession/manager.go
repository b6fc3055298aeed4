package voicesession

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/sightline/internal/kv"
	"github.com/eleven-am/sightline/internal/tags"
	"github.com/google/uuid"
)

// Analyzer is the vision side a session needs: narration and questions.
type Analyzer interface {
	SceneAnalyzer
	QuestionAnswerer
}

type Manager struct {
	cfg      Config
	analyzer Analyzer
	store    kv.Store
	maxTags  int
	clock    Clock
	sessions map[string]*Session
	mu       sync.RWMutex
	log      *slog.Logger
}

type ManagerConfig struct {
	Session  Config
	Analyzer Analyzer
	Store    kv.Store
	MaxTags  int
	Clock    Clock
	Log      *slog.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}

	return &Manager{
		cfg:      cfg.Session,
		analyzer: cfg.Analyzer,
		store:    cfg.Store,
		maxTags:  cfg.MaxTags,
		clock:    cfg.Clock,
		sessions: make(map[string]*Session),
		log:      cfg.Log.With("component", "voicesession_manager"),
	}
}

// CreateSession starts a session for deviceID. A device reconnecting replaces
// its previous session.
func (m *Manager) CreateSession(ctx context.Context, deviceID string, camera Camera, device Device) *Session {
	sessionID := uuid.New().String()
	session := New(sessionID, deviceID, m.cfg, Deps{
		Camera:   camera,
		Analyzer: m.analyzer,
		Answerer: m.analyzer,
		Tags: tags.NewStore(m.store, tags.Config{
			DeviceID: deviceID,
			MaxTags:  m.maxTags,
			Logger:   m.log,
		}),
		Device: device,
		Clock:  m.clock,
		Logger: m.log,
	})

	m.mu.Lock()
	previous := m.sessions[deviceID]
	m.sessions[deviceID] = session
	m.mu.Unlock()

	if previous != nil {
		previous.Close()
		m.log.Info("replaced voice session", "device_id", deviceID, "previous_session_id", previous.ID())
	}

	go session.Run(ctx)

	m.log.Info("voice session created", "session_id", sessionID, "device_id", deviceID)
	return session
}

func (m *Manager) GetSession(deviceID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[deviceID]
	return session, ok
}

// RemoveSession closes session and forgets it unless the device has already
// been taken over by a newer session.
func (m *Manager) RemoveSession(session *Session) {
	m.mu.Lock()
	if current, ok := m.sessions[session.DeviceID()]; ok && current == session {
		delete(m.sessions, session.DeviceID())
	}
	m.mu.Unlock()

	session.Close()
	m.log.Info("voice session removed", "session_id", session.ID(), "device_id", session.DeviceID())
}

// RefreshTags makes the device's live session reload its tags after they were
// changed out of band.
func (m *Manager) RefreshTags(deviceID string) {
	if session, ok := m.GetSession(deviceID); ok {
		session.RefreshTags()
	}
}

type SessionInfo struct {
	SessionID string    `json:"session_id"`
	DeviceID  string    `json:"device_id"`
	Mode      string    `json:"mode"`
	StartedAt time.Time `json:"started_at"`
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
			SessionID: s.ID(),
			DeviceID:  s.DeviceID(),
			Mode:      string(s.Mode()),
			StartedAt: s.StartedAt(),
		})
	}
	return sessions
}

func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	for _, s := range sessions {
		<-s.Done()
	}
	return nil
}
