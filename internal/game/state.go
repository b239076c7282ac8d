// Package game contains the Land Rush simulation engine: board setup,
// auction selection and resolution, island analysis and payouts.
// The engine is single threaded; callers serialize access to a Game.
package game

import (
	"math/rand"
	"sort"
	"time"

	"landrush/pkg/board"
)

// Status is the lifecycle state of a game.
type Status string

const (
	StatusNew        Status = "new"         // Accepting players
	StatusInProgress Status = "in_progress" // Auctions run on schedule
	StatusFinished   Status = "finished"    // Terminal
)

// Game represents the complete state of a game.
type Game struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	Settings        Settings              `json:"settings"`
	Board           *board.Board          `json:"board"`
	Territories     map[string]*Territory `json:"territories"` // Keyed by land ID
	Players         []*Player             `json:"players"`     // Join order
	Auction         []string              `json:"auction"`     // Active auction land IDs
	UpcomingAuction []string              `json:"upcomingAuction"`
	LastAuction     []Sale                `json:"lastAuction"`
	Turn            int                   `json:"turn"`
	Status          Status                `json:"status"`
	NextDeadline    time.Time             `json:"nextDeadline"`
	CreatedAt       time.Time             `json:"createdAt"`
	FinishedAt      time.Time             `json:"finishedAt"`

	clock    Clock
	rng      *rand.Rand
	notifier Notifier
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Notifier is told about every completed turn. Implementations must not
// block and must not fail the turn.
type Notifier interface {
	TurnCompleted(g *Game)
}

type nopNotifier struct{}

func (nopNotifier) TurnCompleted(*Game) {}

// Option configures the collaborators of a game.
type Option func(*Game)

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(g *Game) { g.clock = c }
}

// WithRand sets the random source used for board generation, shuffles and
// tie-breaks.
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) { g.rng = rng }
}

// WithNotifier sets the turn notifier.
func WithNotifier(n Notifier) Option {
	return func(g *Game) { g.notifier = n }
}

// Attach wires collaborators to a game, e.g. after it was loaded from
// storage. Missing collaborators fall back to the system clock, a
// time-seeded random source and a no-op notifier.
func (g *Game) Attach(opts ...Option) {
	for _, opt := range opts {
		opt(g)
	}
	if g.clock == nil {
		g.clock = systemClock{}
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if g.notifier == nil {
		g.notifier = nopNotifier{}
	}
}

// Now returns the game's current time.
func (g *Game) Now() time.Time {
	return g.clock.Now()
}

// IsOver reports whether the game has finished.
func (g *Game) IsOver() bool {
	return g.Status == StatusFinished
}

// OpenSeats returns how many players can still join.
func (g *Game) OpenSeats() int {
	if g.Status != StatusNew {
		return 0
	}
	return g.Settings.Players - len(g.Players)
}

// PlayerByID looks up a player by public ID.
func (g *Game) PlayerByID(id string) (*Player, error) {
	for _, p := range g.Players {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrPlayerNotFound
}

// PlayerBySecret looks up a player by private secret.
func (g *Game) PlayerBySecret(secret string) (*Player, error) {
	if secret == "" {
		return nil, ErrPlayerNotFound
	}
	for _, p := range g.Players {
		if p.Secret == secret {
			return p, nil
		}
	}
	return nil, ErrPlayerNotFound
}

// Standings returns the players ordered by money, richest first.
func (g *Game) Standings() []*Player {
	standings := make([]*Player, len(g.Players))
	copy(standings, g.Players)
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Money > standings[j].Money
	})
	return standings
}
