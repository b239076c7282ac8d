package board

import (
	"fmt"
	"math"
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// computeAdjacencies rebuilds the neighbor list of every land from the grid.
func computeAdjacencies(b *Board) error {
	for _, id := range b.LandIDs() {
		neighbors, err := landNeighbors(b, b.Lands[id])
		if err != nil {
			return err
		}
		b.Lands[id].Neighbors = neighbors
	}
	return nil
}

// landNeighbors derives the sorted neighbor IDs of a land.
func landNeighbors(b *Board, land *Land) ([]string, error) {
	seen := mapset.New[string]()
	for _, c := range land.Cells {
		for _, n := range b.CellNeighbors(c) {
			other := b.Grid[n.Y][n.X]
			if other != land.ID {
				seen.Put(other)
			}
		}
	}
	if seen.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrIsolatedLand, land.ID)
	}

	neighbors := make([]string, 0, seen.Size())
	seen.Each(func(id string) {
		neighbors = append(neighbors, id)
	})
	sort.Strings(neighbors)
	return neighbors, nil
}

// computeDistances fills the edge and center distances of every land.
func computeDistances(b *Board) {
	cx := float64(b.Width-1) / 2
	cy := float64(b.Height-1) / 2
	for _, land := range b.Lands {
		edge := math.MaxInt
		center := math.Inf(1)
		for _, c := range land.Cells {
			d := min(c.X, c.Y, b.Width-1-c.X, b.Height-1-c.Y)
			if d < edge {
				edge = d
			}
			if dc := math.Hypot(float64(c.X)-cx, float64(c.Y)-cy); dc < center {
				center = dc
			}
		}
		land.DistanceToEdge = edge
		land.DistanceToCenter = center
	}
}

// isContiguous reports whether the land's cells form one orthogonally
// connected component.
func isContiguous(b *Board, land *Land) bool {
	if len(land.Cells) == 0 {
		return false
	}
	visited := mapset.New[Cell]()
	queue := []Cell{land.Cells[0]}
	visited.Put(land.Cells[0])
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for _, n := range b.CellNeighbors(c) {
			if b.Grid[n.Y][n.X] == land.ID && !visited.Has(n) {
				visited.Put(n)
				queue = append(queue, n)
			}
		}
	}
	return visited.Size() == len(land.Cells)
}

func sortCells(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool {
		return cells[i].Less(cells[j])
	})
}
