package game

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"landrush/pkg/board"
)

// DefaultPlayerName is used when a player joins without a name.
const DefaultPlayerName = "Anonymous"

// NewGame generates the board and the first two auctions of a new game.
func NewGame(name string, settings Settings, opts ...Option) (*Game, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	key, err := landSortKey(settings.AuctionOrder)
	if err != nil {
		return nil, err
	}

	g := &Game{
		ID:       uuid.New().String(),
		Name:     strings.TrimSpace(name),
		Settings: settings,
		Players:  make([]*Player, 0, settings.Players),
		Status:   StatusNew,
	}
	g.Attach(opts...)
	g.CreatedAt = g.Now()

	gen := board.NewGenerator(board.GeneratorOptions{
		Width:  settings.BoardWidth,
		Height: settings.BoardHeight,
		Joins:  settings.Joins,
	}, g.rng)
	b, err := gen.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate board: %w", err)
	}
	g.Board = b
	g.newTerritories()

	g.Auction = g.selectAuction(key)
	g.UpcomingAuction = g.selectAuction(key)
	return g, nil
}

// Join adds a human player. Taking the last seat starts the game.
func (g *Game) Join(name string) (*Player, error) {
	if g.Status != StatusNew || g.OpenSeats() <= 0 {
		return nil, ErrGameStarted
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultPlayerName
	}
	secret, err := generateSecret()
	if err != nil {
		return nil, err
	}
	p := NewPlayer(uuid.New().String(), secret, name, len(g.Players)+1, g.Settings.StartMoney)
	g.Players = append(g.Players, p)

	if g.OpenSeats() == 0 {
		if err := g.Start(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Start begins the auctions. Empty seats are filled with autonomous players.
func (g *Game) Start() error {
	if g.Status != StatusNew {
		return ErrGameStarted
	}

	for len(g.Players) < g.Settings.Players {
		secret, err := generateSecret()
		if err != nil {
			return err
		}
		p := NewAutonomousPlayer(uuid.New().String(), secret, autonomousName(g.rng), len(g.Players)+1, g.Settings.StartMoney)
		g.Players = append(g.Players, p)
	}
	g.Status = StatusInProgress
	g.NextDeadline = g.Now().Add(g.Settings.MaxTimePerTurn)
	return nil
}

// StartEarly starts the game on behalf of a player. Only the first player
// may do this.
func (g *Game) StartEarly(secret string) error {
	p, err := g.PlayerBySecret(secret)
	if err != nil {
		return err
	}
	if p.Number != 1 {
		return ErrNotFirstPlayer
	}
	return g.Start()
}

// SetNotifications updates a player's mail preferences.
func (g *Game) SetNotifications(secret, email string, notify Notify) error {
	p, err := g.PlayerBySecret(secret)
	if err != nil {
		return err
	}
	switch notify {
	case NotifyTurn, NotifyNever:
	default:
		return fmt.Errorf("%w: unknown notify setting %q", ErrInvalidSettings, notify)
	}
	p.Email = strings.TrimSpace(email)
	p.Notify = notify
	return nil
}

// generateSecret returns a random hex token identifying a player privately.
func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
