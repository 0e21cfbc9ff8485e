package models

import (
	"time"
)

// RoomStatus defines the lifecycle state of a draft room.
type RoomStatus string

const (
	RoomStatusWaiting   RoomStatus = "WAITING"
	RoomStatusActive    RoomStatus = "ACTIVE"
	RoomStatusCompleted RoomStatus = "COMPLETED"
)

// RoomSettings holds JSONB configuration for a draft room.
type RoomSettings struct {
	TimerSeconds int `json:"timer_seconds"`
	TotalRounds  int `json:"total_rounds"`
}

// Room represents a single draft room. Participants is an ordered set of
// display names; DraftOrder is either empty or a permutation of Participants.
type Room struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Owner        string       `json:"owner"`
	Participants []string     `json:"participants"`
	DraftOrder   []string     `json:"draft_order,omitempty"`
	Settings     RoomSettings `json:"settings"`
	Status       RoomStatus   `json:"status"`
	MockDrafters []string     `json:"mock_drafters,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// HasParticipant reports whether name has already joined the room.
func (r *Room) HasParticipant(name string) bool {
	for _, p := range r.Participants {
		if p == name {
			return true
		}
	}
	return false
}

// IsMockDrafter reports whether name is a simulated participant.
func (r *Room) IsMockDrafter(name string) bool {
	for _, m := range r.MockDrafters {
		if m == name {
			return true
		}
	}
	return false
}

// TotalPicks is the pick capacity of the room: order size times rounds.
// Zero until a draft order exists.
func (r *Room) TotalPicks() int {
	return len(r.DraftOrder) * r.Settings.TotalRounds
}
