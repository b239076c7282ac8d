package board

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GeneratorOptions contains settings for board generation.
type GeneratorOptions struct {
	Width  int // Cells per row
	Height int // Cells per column
	Joins  int // Number of land merges; clamped to cells-2
}

// colorCount is the size of the unowned land palette.
const colorCount = 5

// colorFrequency scales cell coordinates before sampling the color noise.
const colorFrequency = 0.35

// Generator handles procedural board generation.
type Generator struct {
	options GeneratorOptions
	rng     *rand.Rand
}

// NewGenerator creates a generator drawing all randomness from rng.
func NewGenerator(options GeneratorOptions, rng *rand.Rand) *Generator {
	return &Generator{
		options: options,
		rng:     rng,
	}
}

// Generate builds a board: one land per cell, then repeated random merges
// of a land with one of its neighbors.
func (g *Generator) Generate() (*Board, error) {
	width, height := g.options.Width, g.options.Height
	if width < 1 || height < 1 || width*height < 2 {
		return nil, ErrBoardTooSmall
	}

	b := newBoard(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			id := LandID(x, y)
			b.Grid[y][x] = id
			b.Lands[id] = &Land{ID: id, Cells: []Cell{{X: x, Y: y}}}
		}
	}
	if err := computeAdjacencies(b); err != nil {
		return nil, err
	}

	joins := clamp(g.options.Joins, 0, width*height-2)
	for i := 0; i < joins; i++ {
		// Pick from sorted IDs so a seed always yields the same board
		ids := b.LandIDs()
		land := b.Lands[ids[g.rng.Intn(len(ids))]]
		absorbed := land.Neighbors[g.rng.Intn(len(land.Neighbors))]
		b.merge(land.ID, absorbed)
		if err := computeAdjacencies(b); err != nil {
			return nil, err
		}
	}

	computeDistances(b)
	g.assignColors(b)
	return b, nil
}

// merge moves every cell of absorbed into keep and drops absorbed.
// The surviving ID is the one of the lower origin cell so IDs stay stable.
func (b *Board) merge(keep, absorbed string) {
	a, c := b.Lands[keep], b.Lands[absorbed]
	if c.Cells[0].Less(a.Cells[0]) {
		a, c = c, a
	}
	for _, cell := range c.Cells {
		b.Grid[cell.Y][cell.X] = a.ID
	}
	a.Cells = append(a.Cells, c.Cells...)
	sortCells(a.Cells)
	delete(b.Lands, c.ID)
}

// assignColors picks a palette index per land from a noise field so that
// nearby lands tend to share hues.
func (g *Generator) assignColors(b *Board) {
	noise := opensimplex.NewNormalized(g.rng.Int63())
	for _, id := range b.LandIDs() {
		land := b.Lands[id]
		var sum float64
		for _, c := range land.Cells {
			sum += noise.Eval2(float64(c.X)*colorFrequency, float64(c.Y)*colorFrequency)
		}
		v := sum / float64(len(land.Cells))
		land.Color = clamp(1+int(v*colorCount), 1, colorCount)
	}
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
