package game

import "sort"

// Territory is the mutable ownership record of a board land.
type Territory struct {
	ID    string `json:"id"`
	Owner string `json:"owner,omitempty"` // Player ID, empty when unowned
	Price int    `json:"price,omitempty"` // Price paid when sold
}

// IsOwned reports whether the territory has been sold.
func (t *Territory) IsOwned() bool {
	return t.Owner != ""
}

// Sale records one land sold in an auction.
type Sale struct {
	LandID   string `json:"landId"`
	PlayerID string `json:"playerId"`
	Price    int    `json:"price"`
}

// newTerritories creates an unowned territory for every land of the board.
func (g *Game) newTerritories() {
	g.Territories = make(map[string]*Territory, g.Board.LandCount())
	for _, id := range g.Board.LandIDs() {
		g.Territories[id] = &Territory{ID: id}
	}
}

// OwnerOf returns the owner of a land, or "" if unowned.
func (g *Game) OwnerOf(landID string) string {
	if t := g.Territories[landID]; t != nil {
		return t.Owner
	}
	return ""
}

// PlayerTerritories returns the sorted IDs of all lands owned by a player.
func (g *Game) PlayerTerritories(playerID string) []string {
	lands := make([]string, 0)
	for id, t := range g.Territories {
		if t.Owner == playerID {
			lands = append(lands, id)
		}
	}
	sort.Strings(lands)
	return lands
}

// UnownedCount returns the number of lands nobody owns yet.
func (g *Game) UnownedCount() int {
	count := 0
	for _, t := range g.Territories {
		if !t.IsOwned() {
			count++
		}
	}
	return count
}

// territoryCounts returns how many lands each player owns.
func (g *Game) territoryCounts() map[string]int {
	counts := make(map[string]int, len(g.Players))
	for _, t := range g.Territories {
		if t.IsOwned() {
			counts[t.Owner]++
		}
	}
	return counts
}
