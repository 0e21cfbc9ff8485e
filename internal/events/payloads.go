// Package events defines the domain events a draft room emits and the NATS
// publisher that carries them to gateways and other observers.
package events

import (
	"time"
)

// Event types carried on the wire.
const (
	TypeDraftStarted   = "DraftStarted"
	TypePickStarted    = "PickStarted"
	TypePickMade       = "PickMade"
	TypeDraftCompleted = "DraftCompleted"
	TypePicksPurged    = "PicksPurged"
)

// DraftStartedPayload is emitted when a room transitions waiting → active.
type DraftStartedPayload struct {
	RoomID      string    `json:"room_id"`
	StartedAt   time.Time `json:"started_at"`
	TotalRounds int       `json:"total_rounds"`
	TotalPicks  int       `json:"total_picks"`
}

// PickStartedPayload is emitted when a turn begins and its countdown starts.
type PickStartedPayload struct {
	RoomID       string    `json:"room_id"`
	PickNumber   int       `json:"pick_number"`
	Round        int       `json:"round"`
	Picker       string    `json:"picker"`
	StartedAt    time.Time `json:"started_at"`
	TimeoutAt    time.Time `json:"timeout_at"`
	TimerSeconds int       `json:"timer_seconds"`
}

// PickMadePayload is emitted after a pick is accepted by the store.
type PickMadePayload struct {
	RoomID     string    `json:"room_id"`
	PickNumber int       `json:"pick_number"`
	Round      int       `json:"round"`
	Picker     string    `json:"picker"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Auto       bool      `json:"auto"`
	MadeAt     time.Time `json:"made_at"`
}

// DraftCompletedPayload is emitted once the final pick lands.
type DraftCompletedPayload struct {
	RoomID      string    `json:"room_id"`
	CompletedAt time.Time `json:"completed_at"`
	Duration    string    `json:"duration"`
	TotalPicks  int       `json:"total_picks"`
}

// PicksPurgedPayload is emitted after a completed→waiting reset wipes the
// room's pick history.
type PicksPurgedPayload struct {
	RoomID  string    `json:"room_id"`
	Deleted int       `json:"deleted"`
	At      time.Time `json:"at"`
}
