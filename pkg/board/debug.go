package board

import (
	"fmt"
	"strings"
)

// Debug returns a string visualization of the board.
func (b *Board) Debug() string {
	var sb strings.Builder

	ids := b.LandIDs()
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i + 1
	}

	sb.WriteString(fmt.Sprintf("Size: %dx%d\n", b.Width, b.Height))
	sb.WriteString(fmt.Sprintf("Lands: %d\n\n", len(ids)))

	sb.WriteString("Land Grid:\n")
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			sb.WriteString(fmt.Sprintf("%3d", index[b.Grid[y][x]]))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nLands:\n")
	for _, id := range ids {
		land := b.Lands[id]
		neighbors := make([]int, len(land.Neighbors))
		for i, n := range land.Neighbors {
			neighbors[i] = index[n]
		}
		sb.WriteString(fmt.Sprintf("  %d. %s\n", index[id], id))
		sb.WriteString(fmt.Sprintf("     Cells: %d\n", len(land.Cells)))
		sb.WriteString(fmt.Sprintf("     Edge distance: %d, center distance: %.2f\n", land.DistanceToEdge, land.DistanceToCenter))
		sb.WriteString(fmt.Sprintf("     Adjacent lands: %v\n", neighbors))
	}

	return sb.String()
}

// Render draws the grid with one rune per cell as chosen by label.
func (b *Board) Render(label func(landID string) rune) string {
	var sb strings.Builder
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			sb.WriteRune(label(b.Grid[y][x]))
			sb.WriteByte(' ')
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
