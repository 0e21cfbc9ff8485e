package engine

import (
	"time"

	"github.com/gridironlabs/draftroom/internal/autopick"
	"github.com/gridironlabs/draftroom/internal/models"
)

// Config carries the tournament-format parameters a session runs under.
// Different formats pass a different Config; nothing here is a constant.
type Config struct {
	// Capacity is the maximum participant count per room.
	Capacity int

	// PreDraftCountdown runs between order randomization and activation.
	PreDraftCountdown time.Duration

	// ManualCaps are the generous per-position ceilings enforced on manual
	// submissions; AutoCaps are the strictly tighter ceilings the
	// auto-picker prefers so forced rosters stay balanced.
	ManualCaps autopick.Caps
	AutoCaps   autopick.Caps

	// Stall thresholds. Empirically tuned; there is no principled rationale
	// for the exact values, which is why they are configuration.
	MockStallAfter   time.Duration // simulated picker stuck this long → recover
	LiveStallAfter   time.Duration // live picker stuck this long → force auto-pick
	AutoPickDebounce time.Duration // minimum gap between auto-pick attempts
	StallSettleDelay time.Duration // wait after clearing a lost in-flight flag
}

// DefaultConfig mirrors the standard 12-seat tournament format.
func DefaultConfig() Config {
	return Config{
		Capacity:          12,
		PreDraftCountdown: 60 * time.Second,
		ManualCaps: autopick.Caps{
			models.PositionQB: 5,
			models.PositionRB: 11,
			models.PositionWR: 11,
			models.PositionTE: 6,
		},
		AutoCaps: autopick.Caps{
			models.PositionQB: 3,
			models.PositionRB: 6,
			models.PositionWR: 7,
			models.PositionTE: 3,
		},
		MockStallAfter:   10 * time.Second,
		LiveStallAfter:   15 * time.Second,
		AutoPickDebounce: time.Second,
		StallSettleDelay: 2 * time.Second,
	}
}
