package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gridironlabs/draftroom/internal/models"
)

// QueueAdd appends a player to identity's manual priority queue. Already
// queued players keep their position.
func (s *Session) QueueAdd(identity string, playerID uuid.UUID) error {
	player, ok := s.catalog.ByID(playerID)
	if !ok || !player.Draftable() {
		return fmt.Errorf("%w: %s", ErrPlayerUnavailable, playerID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.queues[identity] {
		if id == playerID {
			return nil
		}
	}
	s.queues[identity] = append(s.queues[identity], playerID)
	return nil
}

// QueueRemove drops a player from identity's queue.
func (s *Session) QueueRemove(identity string, playerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.queues[identity]
	for i, id := range queue {
		if id == playerID {
			s.queues[identity] = append(queue[:i:i], queue[i+1:]...)
			return
		}
	}
}

// QueueReorder replaces identity's queue with the given ordering. Entries
// that were not already queued are dropped rather than smuggled in.
func (s *Session) QueueReorder(identity string, ordered []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := make(map[uuid.UUID]bool, len(s.queues[identity]))
	for _, id := range s.queues[identity] {
		current[id] = true
	}
	next := make([]uuid.UUID, 0, len(ordered))
	for _, id := range ordered {
		if current[id] {
			next = append(next, id)
			delete(current, id)
		}
	}
	s.queues[identity] = next
}

// Queue returns identity's queued players in priority order, resolved
// against the catalog.
func (s *Session) Queue(identity string) []models.Player {
	s.mu.Lock()
	ids := append([]uuid.UUID(nil), s.queues[identity]...)
	s.mu.Unlock()

	out := make([]models.Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.catalog.ByID(id); ok {
			out = append(out, p)
		}
	}
	return out
}

// ImportRankings replaces identity's ranking list with the given names,
// resolved through the catalog's fuzzy lookup. A present ranking list wholly
// replaces ADP ordering during auto-pick. Returns how many names matched.
func (s *Session) ImportRankings(identity string, names []string) int {
	var ids []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, name := range names {
		player, ok := s.catalog.Lookup(name)
		if !ok {
			log.Warn().Str("room_id", s.roomID).Str("name", name).Msg("ranking name did not match catalog")
			continue
		}
		if seen[player.ID] {
			continue
		}
		seen[player.ID] = true
		ids = append(ids, player.ID)
	}

	s.mu.Lock()
	s.rankings[identity] = ids
	s.mu.Unlock()
	return len(ids)
}

// ClearRankings drops identity's ranking list, restoring ADP ordering.
func (s *Session) ClearRankings(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rankings, identity)
}
