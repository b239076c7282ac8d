package game

import (
	"fmt"
	"sort"
)

// Missed deadline notices.
const (
	msgMissedTerminal = "You have missed the auction deadline too often. We don't need you, anymore. Be on time during your next game!"
	msgMissedWarning  = "You have missed the auction deadline, so your nephew placed some bids for you. If you do this %s, he will go on without you."
)

// TurnResult summarizes one auction resolution for history and broadcasts.
type TurnResult struct {
	Turn       int      `json:"turn"` // Turn that was resolved
	Sales      []Sale   `json:"sales"`
	Unsold     []string `json:"unsold,omitempty"`
	Autonomous []string `json:"autonomous,omitempty"` // Players converted for missing deadlines
	Withdrawn  []string `json:"withdrawn,omitempty"`  // Players who went broke this turn
	Finished   bool     `json:"finished"`
}

// ReadyForAuction reports whether the active auction can be resolved:
// every player has bid, bids automatically or has withdrawn, or the
// deadline has passed.
func (g *Game) ReadyForAuction() bool {
	if g.Status != StatusInProgress {
		return false
	}
	if g.Now().After(g.NextDeadline) {
		return true
	}
	for _, p := range g.Players {
		if !p.HasBids() && !p.IsAutonomous() && !p.Withdrawn {
			return false
		}
	}
	return true
}

// ResolveAuction settles the active auction and advances the game by one
// turn. Configuration errors are reported before anything is changed.
func (g *Game) ResolveAuction() (*TurnResult, error) {
	switch g.Status {
	case StatusFinished:
		return nil, ErrGameFinished
	case StatusInProgress:
	default:
		return nil, ErrGameNotInProgress
	}
	if err := g.Settings.validateAuction(); err != nil {
		return nil, err
	}
	key, err := landSortKey(g.Settings.AuctionOrder)
	if err != nil {
		return nil, err
	}

	result := &TurnResult{Turn: g.Turn}
	wasWithdrawn := make(map[string]bool, len(g.Players))
	for _, p := range g.Players {
		wasWithdrawn[p.ID] = p.Withdrawn
	}

	// Escalate missed deadlines, then fill missing bids
	for _, p := range g.Players {
		if !p.HasBids() && !p.IsAutonomous() && !p.Withdrawn {
			if g.recordMissedDeadline(p) {
				result.Autonomous = append(result.Autonomous, p.ID)
			}
		}
		if p.NeedsAutoBid() || len(p.Bids) != len(g.Auction) {
			p.Bids = g.calculateBids(p)
		}
	}

	g.LastAuction = make([]Sale, 0, len(g.Auction))
	for i, landID := range g.Auction {
		sale, ok := g.sellLand(i, landID)
		if !ok {
			result.Unsold = append(result.Unsold, landID)
			continue
		}
		g.LastAuction = append(g.LastAuction, sale)
	}
	result.Sales = g.LastAuction

	for _, p := range g.Players {
		p.LastBidSum = p.bidSum()
		p.Bids = nil
	}

	g.advanceAuctions(key)
	g.NextDeadline = g.Now().Add(g.Settings.MaxTimePerTurn)
	g.updateConnectedLands()
	g.distributeMoney()
	g.Turn++

	for _, p := range g.Players {
		if p.Withdrawn && !wasWithdrawn[p.ID] {
			result.Withdrawn = append(result.Withdrawn, p.ID)
		}
	}
	result.Finished = g.IsOver()

	g.notifier.TurnCompleted(g)
	return result, nil
}

// recordMissedDeadline counts a missed deadline and warns the player.
// It returns true when the player was converted to autonomous.
func (g *Game) recordMissedDeadline(p *Player) bool {
	p.MissedDeadlines++
	left := g.Settings.AllowedMissedDeadlines - p.MissedDeadlines
	if left <= 0 {
		p.Kind = KindAutonomous
		p.AddMessage(msgMissedTerminal, SeverityDanger)
		return true
	}

	more := "one more time"
	if left > 1 {
		more = fmt.Sprintf("%d more times", left)
	}
	p.AddMessage(fmt.Sprintf(msgMissedWarning, more), SeverityDanger)
	return false
}

// sellLand awards the land at auction index i to the highest bidder.
// Bids are capped at each bidder's money first. Nothing is sold when no
// bid is above zero.
func (g *Game) sellLand(i int, landID string) (Sale, bool) {
	for _, p := range g.Players {
		p.Bids[i] = min(p.Bids[i], max(p.Money, 0))
	}

	ranked := g.rankBidders(i)
	if len(ranked) == 0 || ranked[0].Bids[i] <= 0 {
		return Sale{}, false
	}
	winner := ranked[0]

	price := winner.Bids[i]
	if g.Settings.AuctionType == SecondPrice {
		price = 0
		if len(ranked) > 1 {
			price = ranked[1].Bids[i]
		}
	}
	price = max(price, 0)

	winner.Money -= price
	t := g.Territories[landID]
	t.Owner = winner.ID
	t.Price = price
	return Sale{LandID: landID, PlayerID: winner.ID, Price: price}, true
}

// rankBidders orders players by bid on auction index i, highest first,
// breaking ties randomly.
func (g *Game) rankBidders(i int) []*Player {
	ranked := make([]*Player, len(g.Players))
	copy(ranked, g.Players)
	tieBreak := g.tieBreakKeys(ranked)
	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].Bids[i] != ranked[b].Bids[i] {
			return ranked[a].Bids[i] > ranked[b].Bids[i]
		}
		return tieBreak[ranked[a].ID] < tieBreak[ranked[b].ID]
	})
	return ranked
}

// tieBreakKeys draws one random key per player.
func (g *Game) tieBreakKeys(players []*Player) map[string]int64 {
	keys := make(map[string]int64, len(players))
	for _, p := range players {
		keys[p.ID] = g.rng.Int63()
	}
	return keys
}
