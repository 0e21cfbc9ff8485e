package models

import (
	"time"

	"github.com/google/uuid"
)

// Pick represents a single completed pick in a room. Picks are immutable once
// written; PickNumber is 1-based and unique within a room.
type Pick struct {
	RoomID     string    `json:"room_id"`
	PickNumber int       `json:"pick_number"`
	Round      int       `json:"round"`
	Picker     string    `json:"picker"`
	PlayerID   uuid.UUID `json:"player_id"`
	PlayerName string    `json:"player_name"` // denormalized for display
	PickedAt   time.Time `json:"picked_at"`
}
