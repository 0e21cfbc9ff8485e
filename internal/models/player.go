package models

import (
	"github.com/google/uuid"
)

// Position is a player's roster position.
type Position string

const (
	PositionQB  Position = "QB"
	PositionRB  Position = "RB"
	PositionWR  Position = "WR"
	PositionTE  Position = "TE"
	PositionDST Position = "DST"
	PositionK   Position = "K"
)

// Valid reports whether p is a known position.
func (p Position) Valid() bool {
	switch p {
	case PositionQB, PositionRB, PositionWR, PositionTE, PositionDST, PositionK:
		return true
	}
	return false
}

// Player is a catalog entry. ID is the stable identifier; Name is display
// only and never used as the pick linkage.
type Player struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Position Position  `json:"position"`
	Team     string    `json:"team"`
	ByeWeek  int       `json:"bye_week"`
	ADP      *float64  `json:"adp,omitempty"` // average draft position; lower is better
}

// Draftable reports whether the player belongs in the draftable pool.
// Defensive units and kickers are catalog entries but are not drafted here.
func (p *Player) Draftable() bool {
	switch p.Position {
	case PositionQB, PositionRB, PositionWR, PositionTE:
		return true
	}
	return false
}
