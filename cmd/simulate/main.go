// Command simulate plays a game between autonomous players and prints the
// final board and standings.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"landrush/internal/game"
)

func main() {
	players := flag.Int("players", 4, "Number of autonomous players")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	order := flag.String("order", string(game.OrderRandom), "Auction order")
	auctionType := flag.String("type", string(game.FirstPrice), "Auction type (first_price, second_price)")
	verbose := flag.Bool("v", false, "Print every auction")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	settings := game.DefaultSettings(*players)
	settings.AuctionOrder = game.AuctionOrder(*order)
	settings.AuctionType = game.AuctionType(*auctionType)

	g, err := game.NewGame("Simulation", settings, game.WithRand(rand.New(rand.NewSource(*seed))))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create game")
	}
	if err := g.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start game")
	}

	for !g.IsOver() {
		result, err := g.ResolveAuction()
		if err != nil {
			log.Fatal().Err(err).Int("turn", g.Turn).Msg("Auction failed")
		}
		if *verbose {
			printTurn(g, result)
		}
	}

	fmt.Printf("Seed %d, %d turns, %s / %s\n\n", *seed, g.Turn, settings.AuctionType, settings.AuctionOrder)
	fmt.Print(g.Board.Render(func(landID string) rune {
		owner, err := g.PlayerByID(g.OwnerOf(landID))
		if err != nil {
			return '.'
		}
		return rune('0' + owner.Number%10)
	}))
	fmt.Println()

	for i, p := range g.Standings() {
		fmt.Printf("%2d. %-20s %6d money  %3d lands  %3d connected\n",
			i+1, fmt.Sprintf("[%d] %s", p.Number, p.Name), p.Money, len(g.PlayerTerritories(p.ID)), p.ConnectedLands)
	}
}

func printTurn(g *game.Game, result *game.TurnResult) {
	fmt.Printf("Turn %d\n", result.Turn)
	for _, sale := range result.Sales {
		name := sale.PlayerID
		if p, err := g.PlayerByID(sale.PlayerID); err == nil {
			name = p.Name
		}
		fmt.Printf("  %-12s -> %-20s %5d\n", sale.LandID, name, sale.Price)
	}
	for _, landID := range result.Unsold {
		fmt.Printf("  %-12s unsold\n", landID)
	}
}
