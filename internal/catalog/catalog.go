// Package catalog holds the static player reference data the draft engine
// queries but does not own.
package catalog

import (
	"strings"

	"github.com/google/uuid"

	"github.com/gridironlabs/draftroom/internal/models"
)

// Catalog is an immutable, name-indexed view over the player list. It is
// built once per process and safe for concurrent reads.
type Catalog struct {
	players []models.Player
	byID    map[uuid.UUID]*models.Player
	byLower map[string]*models.Player
}

// New builds a catalog from players. Later entries with a duplicate
// (case-insensitive) name do not displace earlier ones in the name index;
// lookups by ID are always unambiguous.
func New(players []models.Player) *Catalog {
	c := &Catalog{
		players: make([]models.Player, len(players)),
		byID:    make(map[uuid.UUID]*models.Player, len(players)),
		byLower: make(map[string]*models.Player, len(players)),
	}
	copy(c.players, players)
	for i := range c.players {
		p := &c.players[i]
		c.byID[p.ID] = p
		key := strings.ToLower(p.Name)
		if _, dup := c.byLower[key]; !dup {
			c.byLower[key] = p
		}
	}
	return c
}

// All returns every catalog entry.
func (c *Catalog) All() []models.Player {
	out := make([]models.Player, len(c.players))
	copy(out, c.players)
	return out
}

// Draftable returns the entries eligible for drafting.
func (c *Catalog) Draftable() []models.Player {
	var out []models.Player
	for _, p := range c.players {
		if p.Draftable() {
			out = append(out, p)
		}
	}
	return out
}

// ByID returns the player with the given identifier.
func (c *Catalog) ByID(id uuid.UUID) (models.Player, bool) {
	p, ok := c.byID[id]
	if !ok {
		return models.Player{}, false
	}
	return *p, true
}

// Len returns the catalog size.
func (c *Catalog) Len() int {
	return len(c.players)
}

// Lookup resolves an externally-sourced player name to a catalog entry.
// Submitted and imported names do not reliably match catalog spelling, so the
// match relaxes in stages: exact, case-insensitive, last-name substring, then
// first/last decomposition.
func (c *Catalog) Lookup(name string) (models.Player, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Player{}, false
	}

	for _, p := range c.players {
		if p.Name == name {
			return p, true
		}
	}

	if p, ok := c.byLower[strings.ToLower(name)]; ok {
		return *p, true
	}

	lower := strings.ToLower(name)
	parts := strings.Fields(lower)
	last := parts[len(parts)-1]

	for _, p := range c.players {
		catParts := strings.Fields(strings.ToLower(p.Name))
		if len(catParts) == 0 {
			continue
		}
		if catParts[len(catParts)-1] == last && strings.Contains(strings.ToLower(p.Name), last) {
			// Last names collide often; require the first name to agree when
			// the query has one.
			if len(parts) == 1 || strings.HasPrefix(catParts[0], parts[0]) || strings.HasPrefix(parts[0], catParts[0]) {
				return p, true
			}
		}
	}

	// Loosest pass: any entry whose name contains the query's last token.
	for _, p := range c.players {
		if strings.Contains(strings.ToLower(p.Name), last) {
			return p, true
		}
	}

	return models.Player{}, false
}
