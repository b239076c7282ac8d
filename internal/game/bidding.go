package game

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zyedidia/generic/mapset"
)

// Bid model factors.
const (
	attachedBaseFactor = 0.5  // Bidder owns nothing yet, or land touches a largest island
	detachedBaseFactor = 0.1  // Land does not touch a largest island
	ownNeighborFactor  = 0.15 // Per neighbor owned by the bidder
	freeNeighborFactor = 0.3  // Per unowned neighbor
)

// maxBid bounds parsed bids so sums cannot overflow.
const maxBid = math.MaxInt32

// ParseBid converts a submitted bid to whole money units. Blank, invalid,
// negative and non-finite values count as zero; fractions are truncated.
func ParseBid(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	if v > maxBid {
		return maxBid
	}
	return int(v)
}

// PlaceBids records a player's bids for the active auction, in auction order.
func (g *Game) PlaceBids(secret string, raw []string) error {
	switch g.Status {
	case StatusFinished:
		return ErrGameFinished
	case StatusInProgress:
	default:
		return ErrGameNotInProgress
	}

	p, err := g.PlayerBySecret(secret)
	if err != nil {
		return err
	}
	if p.Withdrawn {
		return ErrPlayerWithdrawn
	}
	if len(raw) != len(g.Auction) {
		return fmt.Errorf("%w: got %d bids for %d lands", ErrBidCount, len(raw), len(g.Auction))
	}

	bids := make([]int, len(raw))
	for i, r := range raw {
		bids[i] = ParseBid(r)
	}
	p.Bids = bids
	return nil
}

// remainingTurns is the number of auctions needed to sell all unowned land.
func (g *Game) remainingTurns() int {
	unowned := g.UnownedCount()
	return (unowned + g.Settings.AuctionSize - 1) / g.Settings.AuctionSize
}

// remainingPayout is the money still to be paid out until the game ends.
func (g *Game) remainingPayout() int {
	turns := g.remainingTurns()
	if turns == 0 {
		return 0
	}
	return (turns-1)*g.Settings.NewMoney + g.Settings.FinalPayout
}

// CalculateBid computes the bid model's offer of a player for one land.
func (g *Game) CalculateBid(p *Player, landID string) int {
	land := g.Board.Land(landID)
	if land == nil {
		return 0
	}

	turns := g.remainingTurns()
	if turns == 0 {
		return 0
	}
	basePrice := float64(g.remainingPayout()) / float64(turns)

	baseFactor := attachedBaseFactor
	if islands := g.Islands(p.ID); len(islands) > 0 {
		// Every island tied for the largest size counts
		largest := mapset.New[string]()
		maxSize := len(islands[0])
		for _, island := range islands {
			if len(island) != maxSize {
				break
			}
			for _, id := range island {
				largest.Put(id)
			}
		}
		baseFactor = detachedBaseFactor
		for _, n := range land.Neighbors {
			if largest.Has(n) {
				baseFactor = attachedBaseFactor
				break
			}
		}
	}

	neighborFactor := 0.0
	for _, n := range land.Neighbors {
		switch g.OwnerOf(n) {
		case p.ID:
			neighborFactor += ownNeighborFactor
		case "":
			neighborFactor += freeNeighborFactor
		}
	}

	spendingFactor := float64(p.Money) / float64(g.Settings.StartMoney)
	bid := math.Round(basePrice * (baseFactor + neighborFactor) * spendingFactor)
	if bid < 0 {
		return 0
	}
	return int(bid)
}

// calculateBids produces a full bid list for the active auction.
func (g *Game) calculateBids(p *Player) []int {
	bids := make([]int, len(g.Auction))
	for i, landID := range g.Auction {
		bids[i] = g.CalculateBid(p, landID)
	}
	return bids
}
