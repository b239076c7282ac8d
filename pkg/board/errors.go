package board

import "errors"

// Board errors
var (
	ErrBoardTooSmall = errors.New("board needs at least two cells")
	ErrIsolatedLand  = errors.New("land has no neighbors")
	ErrInvalidBoard  = errors.New("invalid board")
)
