package game

import (
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// Islands returns the maximal connected groups of lands owned by a player,
// largest first. Each island is sorted by land ID; equal sized islands are
// ordered by their first land ID.
func (g *Game) Islands(playerID string) [][]string {
	owned := g.PlayerTerritories(playerID)
	if len(owned) == 0 {
		return nil
	}

	ownedSet := mapset.New[string]()
	for _, id := range owned {
		ownedSet.Put(id)
	}

	uf := newUnionFind(owned)
	for _, id := range owned {
		for _, n := range g.Board.Land(id).Neighbors {
			if ownedSet.Has(n) {
				uf.union(id, n)
			}
		}
	}

	groups := make(map[string][]string)
	for _, id := range owned {
		root := uf.find(id)
		groups[root] = append(groups[root], id)
	}

	islands := make([][]string, 0, len(groups))
	for _, island := range groups {
		sort.Strings(island)
		islands = append(islands, island)
	}
	sort.Slice(islands, func(i, j int) bool {
		if len(islands[i]) != len(islands[j]) {
			return len(islands[i]) > len(islands[j])
		}
		return islands[i][0] < islands[j][0]
	})
	return islands
}

// ConnectedLands returns the size of the player's largest island.
func (g *Game) ConnectedLands(playerID string) int {
	islands := g.Islands(playerID)
	if len(islands) == 0 {
		return 0
	}
	return len(islands[0])
}

func (g *Game) updateConnectedLands() {
	for _, p := range g.Players {
		p.ConnectedLands = g.ConnectedLands(p.ID)
	}
}

// unionFind is a disjoint-set forest over land IDs.
type unionFind struct {
	parent map[string]string
	size   map[string]int
}

func newUnionFind(ids []string) *unionFind {
	uf := &unionFind{
		parent: make(map[string]string, len(ids)),
		size:   make(map[string]int, len(ids)),
	}
	for _, id := range ids {
		uf.parent[id] = id
		uf.size[id] = 1
	}
	return uf
}

func (uf *unionFind) find(id string) string {
	for uf.parent[id] != id {
		uf.parent[id] = uf.parent[uf.parent[id]]
		id = uf.parent[id]
	}
	return id
}

func (uf *unionFind) union(a, b string) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
}
