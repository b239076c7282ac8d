package game

import (
	"math"
	"sort"
)

// payoutRanking orders players best first: largest island, most lands,
// highest last bid sum, least money, then random.
func (g *Game) payoutRanking() []*Player {
	ranked := make([]*Player, len(g.Players))
	copy(ranked, g.Players)
	counts := g.territoryCounts()
	tieBreak := g.tieBreakKeys(ranked)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		switch {
		case a.ConnectedLands != b.ConnectedLands:
			return a.ConnectedLands > b.ConnectedLands
		case counts[a.ID] != counts[b.ID]:
			return counts[a.ID] > counts[b.ID]
		case a.LastBidSum != b.LastBidSum:
			return a.LastBidSum > b.LastBidSum
		case a.Money != b.Money:
			return a.Money < b.Money
		default:
			return tieBreak[a.ID] < tieBreak[b.ID]
		}
	})
	return ranked
}

// PayoutCurve scales the rank curve of n players to pool. Entry i is the
// payout of rank i (best first). The last place carries a penalty that
// grows with the player count and may be negative.
func PayoutCurve(n int, exponent float64, pool int) []int {
	if n <= 0 {
		return nil
	}
	bases := make([]float64, n)
	for i := range bases {
		bases[i] = math.Pow(float64(n-1-i), exponent)
	}
	bases[n-1] -= math.Max(float64(n-2)/2, 0)

	sum := 0.0
	for _, b := range bases {
		sum += b
	}
	payouts := make([]int, n)
	if sum <= 0 {
		return payouts
	}
	scaling := float64(pool) / sum
	for i, b := range bases {
		payouts[i] = int(math.Round(b * scaling))
	}
	return payouts
}

// distributeMoney pays the turn's pool according to the ranking. When the
// active auction is empty the game ends and the final payout is paid.
func (g *Game) distributeMoney() {
	pool := g.Settings.NewMoney
	if len(g.Auction) == 0 {
		g.Status = StatusFinished
		g.FinishedAt = g.Now()
		pool = g.Settings.FinalPayout
	}

	ranked := g.payoutRanking()
	payouts := PayoutCurve(len(ranked), g.Settings.PayoutExponent, pool)
	for i, p := range ranked {
		p.Rank = i + 1
		p.Payout = payouts[i]
		p.Money += p.Payout
		if p.Money <= 0 {
			p.Withdrawn = true
		}
	}
}
