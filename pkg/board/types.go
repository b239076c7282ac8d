// Package board handles board generation, the land adjacency graph and its
// serialized form.
package board

import "sort"

// Cell is a unit position on the board grid.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Less orders cells by column, then row.
func (c Cell) Less(o Cell) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	return c.Y < o.Y
}

// Land is a connected group of cells that is sold as one unit.
type Land struct {
	ID               string   `json:"id"`
	Cells            []Cell   `json:"cells"`     // Sorted, first cell gave the ID
	Neighbors        []string `json:"neighbors"` // Sorted IDs of bordering lands
	Color            int      `json:"color"`     // Palette index 1-5 for unowned rendering
	DistanceToEdge   int      `json:"distanceToEdge"`
	DistanceToCenter float64  `json:"distanceToCenter"`
}

// Board is the generated grid and its partition into lands.
// Topology never changes after generation.
type Board struct {
	Width  int              `json:"width"`
	Height int              `json:"height"`
	Grid   [][]string       `json:"grid"` // [y][x] -> land ID
	Lands  map[string]*Land `json:"lands"`
}

// dirs are the four orthogonal offsets; diagonals are not adjacent.
var dirs = [][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

func newBoard(width, height int) *Board {
	b := &Board{
		Width:  width,
		Height: height,
		Grid:   make([][]string, height),
		Lands:  make(map[string]*Land),
	}
	for y := range b.Grid {
		b.Grid[y] = make([]string, width)
	}
	return b
}

// InBounds reports whether the coordinates lie on the board.
func (b *Board) InBounds(x, y int) bool {
	return x >= 0 && x < b.Width && y >= 0 && y < b.Height
}

// Land returns a land by ID.
func (b *Board) Land(id string) *Land {
	return b.Lands[id]
}

// LandIDs returns all land IDs in a stable order.
func (b *Board) LandIDs() []string {
	ids := make([]string, 0, len(b.Lands))
	for id := range b.Lands {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LandCount returns the number of lands.
func (b *Board) LandCount() int {
	return len(b.Lands)
}

// CellCount returns the number of cells on the grid.
func (b *Board) CellCount() int {
	return b.Width * b.Height
}

// CellNeighbors returns the grid-adjacent cells of c (2 to 4 of them).
func (b *Board) CellNeighbors(c Cell) []Cell {
	neighbors := make([]Cell, 0, 4)
	for _, d := range dirs {
		nx, ny := c.X+d[0], c.Y+d[1]
		if b.InBounds(nx, ny) {
			neighbors = append(neighbors, Cell{X: nx, Y: ny})
		}
	}
	return neighbors
}

// Adjacent reports whether two lands share a border.
func (b *Board) Adjacent(a, c string) bool {
	land := b.Lands[a]
	if land == nil {
		return false
	}
	i := sort.SearchStrings(land.Neighbors, c)
	return i < len(land.Neighbors) && land.Neighbors[i] == c
}

// MaxX returns the easternmost column covered by the land.
func (l *Land) MaxX() int {
	maxX := 0
	for _, c := range l.Cells {
		if c.X > maxX {
			maxX = c.X
		}
	}
	return maxX
}

// Size returns the number of cells in the land.
func (l *Land) Size() int {
	return len(l.Cells)
}
