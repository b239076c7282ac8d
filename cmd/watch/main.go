// Command watch follows a running game and prints its updates.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"landrush/internal/client"
	"landrush/internal/protocol"
)

func main() {
	serverAddr := flag.String("server", "localhost:8080", "Server address")
	gameID := flag.String("game", "", "Game to watch")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *gameID == "" {
		fmt.Fprintln(os.Stderr, "usage: watch -game <id> [-server host:port]")
		os.Exit(2)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	w := client.NewWatcher()
	w.OnMessage = printUpdate
	w.OnDisconnect = func(err error) {
		if err != nil {
			log.Error().Err(err).Msg("Connection lost")
		}
		done <- syscall.SIGTERM
	}

	if err := w.Connect(context.Background(), *serverAddr, *gameID); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect")
	}
	defer w.Disconnect()

	<-done
}

func printUpdate(msg *protocol.Message) {
	v, err := client.DecodeUpdate(msg)
	if err != nil {
		log.Warn().Err(err).Msg("Skipping update")
		return
	}

	switch p := v.(type) {
	case *protocol.WelcomePayload:
		fmt.Printf("[%s] game %s is %s, turn %d\n", msg.Type, p.GameID, p.Status, p.Turn)
	case *protocol.PlayerJoinedPayload:
		fmt.Printf("%s joined, %d seats open\n", p.Name, p.Open)
	case *protocol.BidsPlacedPayload:
		fmt.Printf("player %s placed bids\n", p.PlayerID)
	case *protocol.TurnCompletedPayload:
		fmt.Printf("turn %d completed, next deadline %s\n", p.Turn, p.NextDeadline.Local().Format("Mon 15:04"))
		for _, sale := range p.Sales {
			fmt.Printf("  %-12s -> %-20s %5d\n", sale.LandID, sale.Buyer, sale.Price)
		}
		for _, landID := range p.Unsold {
			fmt.Printf("  %-12s unsold\n", landID)
		}
	case *protocol.GameFinishedPayload:
		fmt.Println("game finished")
		for i, s := range p.Standings {
			fmt.Printf("%2d. %-20s %6d\n", i+1, s.Name, s.Money)
		}
	case *protocol.ErrorPayload:
		fmt.Printf("error: %s\n", p.Message)
	}
}
