// Package store persists draft rooms and their append-only pick sequences,
// and pushes full ordered snapshots to subscribers on every change.
package store

import (
	"context"
	"errors"

	"github.com/gridironlabs/draftroom/internal/models"
)

var (
	// ErrRoomNotFound means no room exists with the given id.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull means the room is at capacity and the joining identity is
	// not already a participant.
	ErrRoomFull = errors.New("room is full")
	// ErrStorageUnavailable wraps transient I/O failures from the backing
	// store.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Unsubscribe tears down a subscription.
type Unsubscribe func()

// RoomUpdate is a partial merge-update; nil fields are left untouched.
type RoomUpdate struct {
	DraftOrder *[]string
	Settings   *models.RoomSettings
	Status     *models.RoomStatus
}

// RoomStore is the persistence and notification layer the draft engine sits
// on. Mutual exclusion for pick submission comes from CreatePickIfAbsent:
// the store refuses a second write to an occupied pick-number slot.
type RoomStore interface {
	CreateRoom(ctx context.Context, room models.Room) error
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)
	UpdateRoom(ctx context.Context, roomID string, update RoomUpdate) (*models.Room, error)

	// JoinRoom appends name to the participant list unless the room already
	// holds capacity participants. Idempotent for an already-joined name.
	JoinRoom(ctx context.Context, roomID, name string, capacity int) (*models.Room, error)

	// SubscribeRoom pushes a full Room snapshot on every room mutation,
	// starting with the current state.
	SubscribeRoom(ctx context.Context, roomID string, onChange func(models.Room)) (Unsubscribe, error)

	// ListPicks returns all picks for the room in strictly increasing
	// pick-number order.
	ListPicks(ctx context.Context, roomID string) ([]models.Pick, error)

	// SubscribePicks pushes the full ordered pick list on every change,
	// starting with the current state.
	SubscribePicks(ctx context.Context, roomID string, onChange func([]models.Pick)) (Unsubscribe, error)

	// CreatePickIfAbsent writes the pick only when its slot is still empty,
	// reporting whether this call created it.
	CreatePickIfAbsent(ctx context.Context, pick models.Pick) (bool, error)

	// DeleteAllPicks purges every pick for the room and returns how many
	// were removed. Administrative; used on completed→waiting resets.
	DeleteAllPicks(ctx context.Context, roomID string) (int, error)
}
