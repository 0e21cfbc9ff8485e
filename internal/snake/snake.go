// Package snake implements snake-draft turn math: odd rounds walk the draft
// order forward, even rounds walk it backward, so the seat picking last in
// round one picks first in round two. All functions are pure.
package snake

// Round returns the 1-based round that pickNumber falls in for an order of
// size n.
func Round(pickNumber, n int) int {
	if n <= 0 || pickNumber <= 0 {
		return 0
	}
	return (pickNumber-1)/n + 1
}

// SlotInRound returns the 0-based slot of pickNumber within its round.
func SlotInRound(pickNumber, n int) int {
	if n <= 0 || pickNumber <= 0 {
		return 0
	}
	return (pickNumber - 1) % n
}

// IsReversedRound reports whether the given round runs backward through the
// draft order.
func IsReversedRound(round int) bool {
	return round%2 == 0
}

// PickerIndex returns the index into the draft order that owns pickNumber.
func PickerIndex(pickNumber, n int) int {
	slot := SlotInRound(pickNumber, n)
	if IsReversedRound(Round(pickNumber, n)) {
		return n - 1 - slot
	}
	return slot
}

// Picker returns the identity that owns pickNumber, or "" if the order is
// empty or pickNumber is out of range.
func Picker(order []string, pickNumber int) string {
	n := len(order)
	if n == 0 || pickNumber <= 0 {
		return ""
	}
	return order[PickerIndex(pickNumber, n)]
}

// TotalPicks is the pick capacity for an order of size n over rounds rounds.
func TotalPicks(n, rounds int) int {
	if n <= 0 || rounds <= 0 {
		return 0
	}
	return n * rounds
}

// IsComplete reports whether pickCount exhausts the room's capacity.
func IsComplete(pickCount, n, rounds int) bool {
	total := TotalPicks(n, rounds)
	return total > 0 && pickCount >= total
}

// UpcomingPick is one entry in a turn preview.
type UpcomingPick struct {
	PickNumber int    `json:"pick_number"`
	Round      int    `json:"round"`
	Picker     string `json:"picker"`
}

// Upcoming returns the next count picks starting at fromPick, clamped to the
// room's capacity.
func Upcoming(order []string, rounds, fromPick, count int) []UpcomingPick {
	n := len(order)
	total := TotalPicks(n, rounds)
	var out []UpcomingPick
	for p := fromPick; p < fromPick+count && p <= total; p++ {
		out = append(out, UpcomingPick{
			PickNumber: p,
			Round:      Round(p, n),
			Picker:     order[PickerIndex(p, n)],
		})
	}
	return out
}
