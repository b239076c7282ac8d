package game

import (
	"fmt"
	"sort"

	"github.com/zyedidia/generic/mapset"

	"landrush/pkg/board"
)

// landKey scores a land for auction ordering; lower keys are auctioned first.
// claimed holds lands that are owned or already queued.
type landKey func(land *board.Land, claimed *mapset.Set[string]) float64

func landSortKey(order AuctionOrder) (landKey, error) {
	switch order {
	case OrderRandom:
		return func(*board.Land, *mapset.Set[string]) float64 { return 0 }, nil
	case OrderWestward:
		return func(l *board.Land, _ *mapset.Set[string]) float64 { return -float64(l.MaxX()) }, nil
	case OrderSmallestFirst:
		return func(l *board.Land, _ *mapset.Set[string]) float64 { return float64(l.Size()) }, nil
	case OrderLargestFirst:
		return func(l *board.Land, _ *mapset.Set[string]) float64 { return -float64(l.Size()) }, nil
	case OrderConnectedFirst:
		return func(l *board.Land, claimed *mapset.Set[string]) float64 {
			for _, n := range l.Neighbors {
				if claimed.Has(n) {
					return 1
				}
			}
			return 0
		}, nil
	case OrderEdgeFirst:
		return func(l *board.Land, _ *mapset.Set[string]) float64 { return float64(l.DistanceToEdge) }, nil
	case OrderCenterFirst:
		return func(l *board.Land, _ *mapset.Set[string]) float64 { return l.DistanceToCenter }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAuctionOrder, order)
	}
}

// selectAuction picks up to AuctionSize unowned lands that are in neither
// auction queue. Lands are shuffled first so equal keys are ordered randomly.
func (g *Game) selectAuction(key landKey) []string {
	claimed := mapset.New[string]()
	for id, t := range g.Territories {
		if t.IsOwned() {
			claimed.Put(id)
		}
	}
	for _, id := range g.Auction {
		claimed.Put(id)
	}
	for _, id := range g.UpcomingAuction {
		claimed.Put(id)
	}

	eligible := make([]*board.Land, 0)
	for _, id := range g.Board.LandIDs() {
		if !claimed.Has(id) {
			eligible = append(eligible, g.Board.Land(id))
		}
	}
	g.rng.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})

	keys := make(map[string]float64, len(eligible))
	for _, l := range eligible {
		keys[l.ID] = key(l, &claimed)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return keys[eligible[i].ID] < keys[eligible[j].ID]
	})

	n := min(g.Settings.AuctionSize, len(eligible))
	auction := make([]string, n)
	for i := 0; i < n; i++ {
		auction[i] = eligible[i].ID
	}
	return auction
}

// advanceAuctions moves the upcoming auction up and selects a new one.
// An empty active auction is refilled while unowned land remains.
func (g *Game) advanceAuctions(key landKey) {
	g.Auction = g.UpcomingAuction
	g.UpcomingAuction = nil
	g.UpcomingAuction = g.selectAuction(key)
	if len(g.Auction) == 0 && len(g.UpcomingAuction) > 0 {
		g.Auction = g.UpcomingAuction
		g.UpcomingAuction = nil
		g.UpcomingAuction = g.selectAuction(key)
	}
}
