package game

import (
	"fmt"
	"math"
	"time"
)

// AuctionType determines what a winning bidder pays.
type AuctionType string

const (
	FirstPrice  AuctionType = "first_price"  // Winner pays own bid
	SecondPrice AuctionType = "second_price" // Winner pays the runner-up's bid
)

// AuctionOrder is the policy used to pick lands for the next auction.
type AuctionOrder string

const (
	OrderRandom         AuctionOrder = "random"
	OrderWestward       AuctionOrder = "westward"
	OrderSmallestFirst  AuctionOrder = "smallest_first"
	OrderLargestFirst   AuctionOrder = "largest_first"
	OrderConnectedFirst AuctionOrder = "connected_first"
	OrderEdgeFirst      AuctionOrder = "edge_first"
	OrderCenterFirst    AuctionOrder = "center_first"
)

// AllAuctionOrders returns every supported ordering policy.
func AllAuctionOrders() []AuctionOrder {
	return []AuctionOrder{
		OrderRandom,
		OrderWestward,
		OrderSmallestFirst,
		OrderLargestFirst,
		OrderConnectedFirst,
		OrderEdgeFirst,
		OrderCenterFirst,
	}
}

const (
	MinPlayers = 2
	MaxPlayers = 10
)

// Settings contains the configurable game parameters.
type Settings struct {
	Players                int           `json:"players"`
	AuctionSize            int           `json:"auctionSize"`
	BoardWidth             int           `json:"boardWidth"`
	BoardHeight            int           `json:"boardHeight"`
	Joins                  int           `json:"joins"`
	StartMoney             int           `json:"startMoney"`
	NewMoney               int           `json:"newMoney"`    // Payout pool of a regular turn
	FinalPayout            int           `json:"finalPayout"` // Payout pool of the last turn
	MaxTimePerTurn         time.Duration `json:"maxTimePerTurn"`
	AuctionType            AuctionType   `json:"auctionType"`
	AuctionOrder           AuctionOrder  `json:"auctionOrder"`
	PayoutExponent         float64       `json:"payoutExponent"`
	AllowedMissedDeadlines int           `json:"allowedMissedDeadlines"`
	Public                 bool          `json:"public"`
}

// DefaultSettings returns the standard configuration for a player count.
// Board and money scale with the number of players.
func DefaultSettings(players int) Settings {
	auctionSize := 3 + (players-2)/3
	width := 9
	height := int(math.Round(float64(auctionSize) * 2.3))
	newMoney := 25 * players
	return Settings{
		Players:                players,
		AuctionSize:            auctionSize,
		BoardWidth:             width,
		BoardHeight:            height,
		Joins:                  int(float64(width*height) * 0.4),
		StartMoney:             500,
		NewMoney:               newMoney,
		FinalPayout:            newMoney * 5,
		MaxTimePerTurn:         24 * time.Hour,
		AuctionType:            FirstPrice,
		AuctionOrder:           OrderRandom,
		PayoutExponent:         2,
		AllowedMissedDeadlines: 2,
	}
}

// Validate checks the settings for values the engine cannot run with.
func (s Settings) Validate() error {
	if err := s.validateAuction(); err != nil {
		return err
	}
	if s.Players < MinPlayers || s.Players > MaxPlayers {
		return fmt.Errorf("%w: players must be between %d and %d, got %d", ErrInvalidSettings, MinPlayers, MaxPlayers, s.Players)
	}
	if s.AuctionSize <= 0 {
		return fmt.Errorf("%w: auction size must be positive", ErrInvalidSettings)
	}
	if s.BoardWidth <= 0 || s.BoardHeight <= 0 || s.BoardWidth*s.BoardHeight < 2 {
		return fmt.Errorf("%w: board %dx%d is too small", ErrInvalidSettings, s.BoardWidth, s.BoardHeight)
	}
	if s.Joins < 0 {
		return fmt.Errorf("%w: joins must not be negative", ErrInvalidSettings)
	}
	if s.StartMoney <= 0 {
		return fmt.Errorf("%w: start money must be positive", ErrInvalidSettings)
	}
	if s.NewMoney < 0 || s.FinalPayout < 0 {
		return fmt.Errorf("%w: payout pools must not be negative", ErrInvalidSettings)
	}
	if s.MaxTimePerTurn <= 0 {
		return fmt.Errorf("%w: max time per turn must be positive", ErrInvalidSettings)
	}
	if s.PayoutExponent < 0 {
		return fmt.Errorf("%w: payout exponent must not be negative", ErrInvalidSettings)
	}
	if s.AllowedMissedDeadlines < 1 {
		return fmt.Errorf("%w: allowed missed deadlines must be at least 1", ErrInvalidSettings)
	}
	return nil
}

// validateAuction checks only the auction type and order, which resolution
// depends on.
func (s Settings) validateAuction() error {
	switch s.AuctionType {
	case FirstPrice, SecondPrice:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAuctionType, s.AuctionType)
	}
	if _, err := landSortKey(s.AuctionOrder); err != nil {
		return err
	}
	return nil
}
