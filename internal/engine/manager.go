package engine

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/gridironlabs/draftroom/internal/catalog"
	"github.com/gridironlabs/draftroom/internal/events"
	"github.com/gridironlabs/draftroom/internal/store"
)

// Manager owns one Session per room. Each room is an independent instance of
// the engine; there is no cross-room scheduling.
type Manager struct {
	store   store.RoomStore
	catalog *catalog.Catalog
	pub     events.Publisher
	clock   clockwork.Clock
	cfg     Config

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds a session manager.
func NewManager(st store.RoomStore, cat *catalog.Catalog, pub events.Publisher, clock clockwork.Clock, cfg Config) *Manager {
	return &Manager{
		store:    st,
		catalog:  cat,
		pub:      pub,
		clock:    clock,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Session returns the running session for roomID, starting one if needed.
func (m *Manager) Session(ctx context.Context, roomID string) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[roomID]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	s := NewSession(roomID, m.store, m.catalog, m.pub, m.clock, m.cfg)
	if err := s.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[roomID]; ok {
		// Lost a racing create; keep the first one.
		s.Stop()
		return existing, nil
	}
	m.sessions[roomID] = s
	log.Info().Str("room_id", roomID).Msg("draft session started")
	return s, nil
}

// Close stops every running session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Stop()
		delete(m.sessions, id)
	}
}
