package board

import "fmt"

// LandID builds the identifier of the land whose lowest cell is (x, y).
func LandID(x, y int) string {
	return fmt.Sprintf("land-%d-%d", x, y)
}

// ParseLandID converts a land identifier back to its origin cell.
func ParseLandID(id string) (Cell, bool) {
	var c Cell
	if _, err := fmt.Sscanf(id, "land-%d-%d", &c.X, &c.Y); err != nil {
		return Cell{}, false
	}
	return c, true
}
