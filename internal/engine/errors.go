package engine

import (
	"errors"

	"github.com/gridironlabs/draftroom/internal/autopick"
	"github.com/gridironlabs/draftroom/internal/store"
)

// Validation failures are rejected operations with no state change, safe for
// the caller to retry. ErrSubmissionInProgress is back-off guidance, not a
// user-facing error. ErrNoEligibleAutoPick must be surfaced loudly, never
// swallowed by skipping the turn.
var (
	ErrRoomFull              = store.ErrRoomFull
	ErrRoomNotFound          = store.ErrRoomNotFound
	ErrStorageUnavailable    = store.ErrStorageUnavailable
	ErrNoEligibleAutoPick    = autopick.ErrNoEligibleAutoPick
	ErrDraftNotActive        = errors.New("draft is not active")
	ErrSubmissionInProgress  = errors.New("pick submission already in flight")
	ErrNotYourTurn           = errors.New("not your turn")
	ErrPlayerUnavailable     = errors.New("player is not available")
	ErrPositionLimitExceeded = errors.New("position limit exceeded")
	ErrNotOwner              = errors.New("operation restricted to room owner")
	ErrOrderExists           = errors.New("draft order already locked in")
	ErrSettingsLocked        = errors.New("settings can only change while the room is waiting")
)
