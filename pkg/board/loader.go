package board

import (
	"encoding/json"
	"fmt"
	"slices"
)

// LoadFromJSON decodes a board and checks that it is well formed.
func LoadFromJSON(data []byte) (*Board, error) {
	var b Board
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse board JSON: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Validate checks the partition and adjacency invariants of a board.
func (b *Board) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidBoard, b.Width, b.Height)
	}
	if len(b.Grid) != b.Height {
		return fmt.Errorf("%w: grid height mismatch: expected %d, got %d", ErrInvalidBoard, b.Height, len(b.Grid))
	}
	for y, row := range b.Grid {
		if len(row) != b.Width {
			return fmt.Errorf("%w: row %d width mismatch: expected %d, got %d", ErrInvalidBoard, y, b.Width, len(row))
		}
	}

	// Every cell belongs to exactly one land and the grid agrees
	covered := 0
	for id, land := range b.Lands {
		if land == nil || land.ID != id {
			return fmt.Errorf("%w: land key %s does not match its ID", ErrInvalidBoard, id)
		}
		if len(land.Cells) == 0 {
			return fmt.Errorf("%w: land %s has no cells", ErrInvalidBoard, id)
		}
		for _, c := range land.Cells {
			if !b.InBounds(c.X, c.Y) {
				return fmt.Errorf("%w: land %s cell (%d,%d) out of bounds", ErrInvalidBoard, id, c.X, c.Y)
			}
			if b.Grid[c.Y][c.X] != id {
				return fmt.Errorf("%w: cell (%d,%d) claimed by %s but grid says %s", ErrInvalidBoard, c.X, c.Y, id, b.Grid[c.Y][c.X])
			}
		}
		covered += len(land.Cells)
		if !isContiguous(b, land) {
			return fmt.Errorf("%w: land %s is not contiguous", ErrInvalidBoard, id)
		}
	}
	if covered != b.CellCount() {
		return fmt.Errorf("%w: lands cover %d of %d cells", ErrInvalidBoard, covered, b.CellCount())
	}

	for _, id := range b.LandIDs() {
		land := b.Lands[id]
		expected, err := landNeighbors(b, land)
		if err != nil {
			return err
		}
		if !slices.Equal(expected, land.Neighbors) {
			return fmt.Errorf("%w: land %s neighbors %v, expected %v", ErrInvalidBoard, id, land.Neighbors, expected)
		}
	}
	return nil
}
