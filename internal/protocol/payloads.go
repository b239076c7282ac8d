package protocol

import (
	"fmt"
	"strings"
	"time"

	"landrush/internal/game"
)

// ==================== Lobby Payloads ====================

// CreateGamePayload is sent to create a new game. Zero values take the
// defaults for the player count.
type CreateGamePayload struct {
	Name         string  `json:"name"`
	Players      int     `json:"players"`
	StartMoney   int     `json:"start_money,omitempty"`
	MaxTimeHours float64 `json:"max_time_hours,omitempty"`
	AuctionType  string  `json:"auction_type,omitempty"`
	AuctionOrder string  `json:"auction_order,omitempty"`
	IsPublic     bool    `json:"is_public"`
}

// Settings converts the request into engine settings.
func (p CreateGamePayload) Settings() game.Settings {
	s := game.DefaultSettings(p.Players)
	if p.StartMoney > 0 {
		s.StartMoney = p.StartMoney
	}
	if p.MaxTimeHours > 0 {
		s.MaxTimePerTurn = time.Duration(p.MaxTimeHours * float64(time.Hour))
	}
	if p.AuctionType != "" {
		s.AuctionType = game.AuctionType(p.AuctionType)
	}
	if p.AuctionOrder != "" {
		s.AuctionOrder = game.AuctionOrder(p.AuctionOrder)
	}
	s.Public = p.IsPublic
	return s
}

// GameCreatedPayload is the response when a game is created.
type GameCreatedPayload struct {
	GameID string `json:"game_id"`
	URL    string `json:"url"`
}

// QuickGamePayload starts a game against autonomous players at once.
type QuickGamePayload struct {
	Name    string `json:"name"`
	Players int    `json:"players"`
}

// JoinGamePayload is sent to take a seat in a game.
type JoinGamePayload struct {
	Name string `json:"name"`
}

// JoinedGamePayload is the response when successfully joining a game.
// The secret is the only credential of the player; URL embeds it.
type JoinedGamePayload struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
	Secret   string `json:"secret"`
	URL      string `json:"url"`
}

// GameSummary is one entry of a game listing.
type GameSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	Seats        int       `json:"seats"`
	Joined       int       `json:"joined"`
	Turn         int       `json:"turn"`
	AuctionType  string    `json:"auction_type"`
	AuctionOrder string    `json:"auction_order"`
	NextDeadline time.Time `json:"next_deadline,omitempty"`
}

// GameListPayload is the response to a game listing.
type GameListPayload struct {
	Open     []GameSummary `json:"open"`
	Running  []GameSummary `json:"running"`
	Finished []GameSummary `json:"finished"`
}

// ==================== Player Payloads ====================

// PlaceBidsPayload carries one raw bid per land of the active auction.
type PlaceBidsPayload struct {
	Bids []string `json:"bids"`
}

// NotificationsPayload updates a player's mail settings.
type NotificationsPayload struct {
	Email  string `json:"email"`
	Notify string `json:"notify"`
}

// GameViewPayload is a game as seen by one viewer, plus the messages
// queued for that viewer since the last view.
type GameViewPayload struct {
	Game     game.Snapshot  `json:"game"`
	Messages []game.Message `json:"messages,omitempty"`
}

// ==================== Update Payloads ====================

// WelcomePayload is sent when a watcher connects.
type WelcomePayload struct {
	GameID string `json:"game_id"`
	Status string `json:"status"`
	Turn   int    `json:"turn"`
}

// PlayerJoinedPayload announces a new player.
type PlayerJoinedPayload struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Open     int    `json:"open_seats"`
}

// BidsPlacedPayload announces that a player has bid, without the amounts.
type BidsPlacedPayload struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
}

// SalePayload is one land sold in an auction.
type SalePayload struct {
	LandID string `json:"land_id"`
	Buyer  string `json:"buyer"`
	Price  int    `json:"price"`
}

// TurnCompletedPayload announces a resolved auction.
type TurnCompletedPayload struct {
	GameID       string        `json:"game_id"`
	Turn         int           `json:"turn"`
	Sales        []SalePayload `json:"sales"`
	Unsold       []string      `json:"unsold,omitempty"`
	NextDeadline time.Time     `json:"next_deadline"`
}

// StandingPayload is one line of the final standings.
type StandingPayload struct {
	Name  string `json:"name"`
	Money int    `json:"money"`
}

// GameFinishedPayload announces the end of a game.
type GameFinishedPayload struct {
	GameID    string            `json:"game_id"`
	Standings []StandingPayload `json:"standings"`
}

// ==================== URLs ====================

// GameURL is the public API address of a game.
func GameURL(baseURL, gameID string) string {
	return fmt.Sprintf("%s/api/games/%s", strings.TrimRight(baseURL, "/"), gameID)
}

// PlayerURL is the private API address of a player in a game.
func PlayerURL(baseURL, gameID, secret string) string {
	return fmt.Sprintf("%s/players/%s", GameURL(baseURL, gameID), secret)
}
