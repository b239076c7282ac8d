package server

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"landrush/internal/game"
	"landrush/internal/protocol"
)

// runScheduler resolves auctions whose deadline has passed, so games
// advance even when nobody looks at them.
func (s *Server) runScheduler(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SchedulerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.resolveDue(time.Now())
		case <-ctx.Done():
			return
		}
	}
}

// resolveDue resolves every game whose deadline is before now.
func (s *Server) resolveDue(now time.Time) int {
	ids, err := s.db.ListDueGames(now)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list due games")
		return 0
	}

	resolved := 0
	for _, id := range ids {
		_, result, err := s.resolveIfReady(id)
		if err != nil {
			log.Error().Err(err).Str("gameId", id).Msg("Failed to resolve auction")
			continue
		}
		if result != nil {
			resolved++
		}
	}
	return resolved
}

// resolveIfReady settles the active auction of a game when it is ready.
// The result is nil when nothing was resolved.
func (s *Server) resolveIfReady(id string) (*game.Game, *game.TurnResult, error) {
	return s.update(id, nil)
}

// update applies fn to a game and then settles the active auction if it
// became ready. Both happen in one transaction, so concurrent callers
// resolve a turn at most once. Nothing is saved when fn fails.
func (s *Server) update(id string, fn func(g *game.Game) error) (*game.Game, *game.TurnResult, error) {
	var result *game.TurnResult
	g, err := s.db.UpdateGame(id, func(g *game.Game) error {
		if fn != nil {
			if err := fn(g); err != nil {
				return err
			}
		}
		if !g.ReadyForAuction() {
			return nil
		}
		r, err := g.ResolveAuction()
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if result != nil {
		s.afterTurn(g, result)
	}
	return g, result, nil
}

// afterTurn records and announces a resolved auction.
func (s *Server) afterTurn(g *game.Game, result *game.TurnResult) {
	if err := s.db.RecordTurn(g, result); err != nil {
		log.Error().Err(err).Str("gameId", g.ID).Msg("Failed to record turn history")
	}

	log.Info().
		Str("gameId", g.ID).
		Int("turn", result.Turn).
		Int("sold", len(result.Sales)).
		Int("unsold", len(result.Unsold)).
		Bool("finished", result.Finished).
		Msg("Auction resolved")

	sales := make([]protocol.SalePayload, 0, len(result.Sales))
	for _, sale := range result.Sales {
		name := sale.PlayerID
		if p, err := g.PlayerByID(sale.PlayerID); err == nil {
			name = p.Name
		}
		sales = append(sales, protocol.SalePayload{LandID: sale.LandID, Buyer: name, Price: sale.Price})
	}
	s.hub.notifyGame(g.ID, protocol.TypeTurnCompleted, protocol.TurnCompletedPayload{
		GameID:       g.ID,
		Turn:         result.Turn,
		Sales:        sales,
		Unsold:       result.Unsold,
		NextDeadline: g.NextDeadline,
	})

	if result.Finished {
		standings := make([]protocol.StandingPayload, 0, len(g.Players))
		for _, p := range g.Standings() {
			standings = append(standings, protocol.StandingPayload{Name: p.Name, Money: p.Money})
		}
		s.hub.notifyGame(g.ID, protocol.TypeGameFinished, protocol.GameFinishedPayload{
			GameID:    g.ID,
			Standings: standings,
		})
	}
}
