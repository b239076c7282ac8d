package game

import "errors"

// Game errors
var (
	ErrUnknownAuctionType  = errors.New("unknown auction type")
	ErrUnknownAuctionOrder = errors.New("unknown auction order")
	ErrInvalidSettings     = errors.New("invalid game settings")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrGameStarted         = errors.New("game has already started")
	ErrGameNotInProgress   = errors.New("game is not in progress")
	ErrGameFinished        = errors.New("game is over")
	ErrBidCount            = errors.New("bid count does not match auction")
	ErrPlayerWithdrawn     = errors.New("player has withdrawn")
	ErrNotFirstPlayer      = errors.New("only the first player can start the game early")
)
