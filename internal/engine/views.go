package engine

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gridironlabs/draftroom/internal/models"
	"github.com/gridironlabs/draftroom/internal/snake"
)

// availableLocked recomputes the undrafted pool from the catalog and the
// full pick list. Never patched incrementally: out-of-order snapshot
// delivery must not be able to leave a drafted player visible.
func (s *Session) availableLocked() map[uuid.UUID]models.Player {
	picked := make(map[uuid.UUID]bool, len(s.picks))
	for _, p := range s.picks {
		picked[p.PlayerID] = true
	}
	out := make(map[uuid.UUID]models.Player)
	for _, p := range s.catalog.Draftable() {
		if !picked[p.ID] {
			out[p.ID] = p
		}
	}
	return out
}

func (s *Session) rosterLocked(identity string) []models.Player {
	var out []models.Player
	for _, pick := range s.picks {
		if pick.Picker != identity {
			continue
		}
		if player, ok := s.catalog.ByID(pick.PlayerID); ok {
			out = append(out, player)
		}
	}
	return out
}

// AvailablePlayers returns the undrafted pool sorted by ADP, best first,
// players without an ADP last.
func (s *Session) AvailablePlayers() []models.Player {
	s.mu.Lock()
	available := s.availableLocked()
	s.mu.Unlock()

	out := make([]models.Player, 0, len(available))
	for _, p := range available {
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ADP, out[j].ADP
		switch {
		case a == nil && b == nil:
			return out[i].Name < out[j].Name
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a < *b
		default:
			return out[i].Name < out[j].Name
		}
	})
	return out
}

// Roster returns identity's drafted players in pick order.
func (s *Session) Roster(identity string) []models.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rosterLocked(identity)
}

// Lineup is a starting-lineup assignment: fixed slots filled greedily in
// draft order, overflow falling to FLEX and then the bench.
type Lineup struct {
	QB    []models.Player `json:"qb"`
	RB    []models.Player `json:"rb"`
	WR    []models.Player `json:"wr"`
	TE    []models.Player `json:"te"`
	Flex  []models.Player `json:"flex"`
	Bench []models.Player `json:"bench"`
}

const (
	lineupQB   = 1
	lineupRB   = 2
	lineupWR   = 3
	lineupTE   = 1
	lineupFlex = 2
)

// StartingLineup assigns identity's roster to starting slots.
func (s *Session) StartingLineup(identity string) Lineup {
	roster := s.Roster(identity)

	var l Lineup
	for _, p := range roster {
		switch p.Position {
		case models.PositionQB:
			if len(l.QB) < lineupQB {
				l.QB = append(l.QB, p)
				continue
			}
		case models.PositionRB:
			if len(l.RB) < lineupRB {
				l.RB = append(l.RB, p)
				continue
			}
		case models.PositionWR:
			if len(l.WR) < lineupWR {
				l.WR = append(l.WR, p)
				continue
			}
		case models.PositionTE:
			if len(l.TE) < lineupTE {
				l.TE = append(l.TE, p)
				continue
			}
		}
		if flexEligible(p.Position) && len(l.Flex) < lineupFlex {
			l.Flex = append(l.Flex, p)
			continue
		}
		l.Bench = append(l.Bench, p)
	}
	return l
}

func flexEligible(pos models.Position) bool {
	return pos == models.PositionRB || pos == models.PositionWR || pos == models.PositionTE
}

// UpcomingPicks previews the next count turns.
func (s *Session) UpcomingPicks(count int) []snake.UpcomingPick {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.haveRoom {
		return nil
	}
	return snake.Upcoming(s.room.DraftOrder, s.room.Settings.TotalRounds, len(s.picks)+1, count)
}

// Stats aggregates draft progress and inter-pick latency.
type Stats struct {
	TotalPicks     int           `json:"total_picks"`
	MadePicks      int           `json:"made_picks"`
	CompletionPct  float64       `json:"completion_pct"`
	MeanPickTime   time.Duration `json:"mean_pick_time"`
	MinPickTime    time.Duration `json:"min_pick_time"`
	MaxPickTime    time.Duration `json:"max_pick_time"`
}

// Stats recomputes aggregate stats from the pick sequence.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	picks := append([]models.Pick(nil), s.picks...)
	total := s.room.TotalPicks()
	s.mu.Unlock()

	st := Stats{TotalPicks: total, MadePicks: len(picks)}
	if total > 0 {
		st.CompletionPct = float64(len(picks)) / float64(total) * 100
	}
	if len(picks) < 2 {
		return st
	}

	var sum time.Duration
	for i := 1; i < len(picks); i++ {
		gap := picks[i].PickedAt.Sub(picks[i-1].PickedAt)
		sum += gap
		if i == 1 || gap < st.MinPickTime {
			st.MinPickTime = gap
		}
		if gap > st.MaxPickTime {
			st.MaxPickTime = gap
		}
	}
	st.MeanPickTime = sum / time.Duration(len(picks)-1)
	return st
}

// State is the authoritative snapshot the presentation layer renders from.
type State struct {
	Room           models.Room          `json:"room"`
	PickCount      int                  `json:"pick_count"`
	CurrentPick    int                  `json:"current_pick"`
	CurrentRound   int                  `json:"current_round"`
	CurrentPicker  string               `json:"current_picker"`
	Countdown      int                  `json:"countdown"`
	PreDraft       int                  `json:"pre_draft_countdown"`
	Picks          []models.Pick        `json:"picks"`
	Upcoming       []snake.UpcomingPick `json:"upcoming"`
	AvailableCount int                  `json:"available_count"`
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	n := len(s.room.DraftOrder)
	next := len(s.picks) + 1
	st := State{
		Room:           s.room,
		PickCount:      len(s.picks),
		Countdown:      s.countdown,
		PreDraft:       s.preDraft,
		Picks:          append([]models.Pick(nil), s.picks...),
		AvailableCount: len(s.availableLocked()),
	}
	if n > 0 && !snake.IsComplete(len(s.picks), n, s.room.Settings.TotalRounds) {
		st.CurrentPick = next
		st.CurrentRound = snake.Round(next, n)
		st.CurrentPicker = snake.Picker(s.room.DraftOrder, next)
	}
	order := append([]string(nil), s.room.DraftOrder...)
	rounds := s.room.Settings.TotalRounds
	picksLen := len(s.picks)
	s.mu.Unlock()

	st.Upcoming = snake.Upcoming(order, rounds, picksLen+1, 2*len(order))
	return st
}
