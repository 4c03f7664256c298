package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/location"
	"github.com/travigo/railtracker/pkg/railway"
	"golang.org/x/exp/slices"
)

// Manager keeps one live session per session ID, opening sessions on their
// first fix and closing those that stay idle for longer than the idle timeout
type Manager struct {
	ctx         context.Context
	index       railway.Index
	options     Options
	idleTimeout time.Duration

	mutex    sync.Mutex
	sessions map[string]*Session
	closed   bool

	// OnClose is called with the ID of every session the manager closes
	OnClose func(sessionID string)
}

func NewManager(ctx context.Context, index railway.Index, options Options, idleTimeout time.Duration) *Manager {
	return &Manager{
		ctx:         ctx,
		index:       index,
		options:     options,
		idleTimeout: idleTimeout,
		sessions:    map[string]*Session{},
	}
}

// Submit queues fix on the session, opening it if needed. The fix is queued
// while the manager lock is held, so CloseIdle either closes the session after
// the fix is queued or removes it before, in which case a new session is opened.
func (m *Manager) Submit(sessionID string, fix location.Fix) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, err := m.session(sessionID)
	if err != nil {
		return err
	}

	return s.Submit(fix)
}

// Reset starts a new trip for a session. A session that is not open has no
// tracker state, only its sinks are reset.
func (m *Manager) Reset(sessionID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		resetSinks(m.ctx, m.options.Sinks, sessionID)
		return nil
	}

	return s.Reset()
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, ok := m.sessions[sessionID]
	return s, ok
}

// Sessions lists the open sessions in ID order
func (m *Manager) Sessions() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

// CloseIdle closes every session without activity since before now minus the idle timeout
func (m *Manager) CloseIdle(now time.Time) int {
	m.mutex.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if now.Sub(s.LastActivity()) > m.idleTimeout {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mutex.Unlock()

	for _, s := range idle {
		m.closeSession(s)
	}

	return len(idle)
}

// Run closes idle sessions until ctx is cancelled
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if closed := m.CloseIdle(now); closed > 0 {
				log.Info().Int("sessions", closed).Msg("Closed idle tracking sessions")
			}
		}
	}
}

// Close drains and closes every session. Fixes submitted afterwards are rejected.
func (m *Manager) Close() {
	m.mutex.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = map[string]*Session{}
	m.mutex.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			m.closeSession(s)
		}(s)
	}
	wg.Wait()
}

// session must be called with m.mutex held
func (m *Manager) session(sessionID string) (*Session, error) {
	if m.closed {
		return nil, ErrManagerClosed
	}

	s, ok := m.sessions[sessionID]
	if !ok {
		s = Start(m.ctx, sessionID, m.index, m.options)
		m.sessions[sessionID] = s
		log.Info().Str("session", sessionID).Msg("Opened tracking session")
	}

	return s, nil
}

func (m *Manager) closeSession(s *Session) {
	s.Close()
	if m.OnClose != nil {
		m.OnClose(s.ID)
	}
	log.Info().Str("session", s.ID).Msg("Closed tracking session")
}
