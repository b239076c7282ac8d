package database

import (
	"fmt"
	"time"

	"landrush/internal/game"
)

// HistoryEvent represents a single game event in the history log.
type HistoryEvent struct {
	ID         int64  `db:"id" json:"id"`
	GameID     string `db:"game_id" json:"game_id"`
	Turn       int    `db:"turn" json:"turn"`
	PlayerID   string `db:"player_id" json:"player_id,omitempty"`
	PlayerName string `db:"player_name" json:"player_name,omitempty"`
	EventType  string `db:"event_type" json:"event_type"`
	Message    string `db:"message" json:"message"`
	CreatedAt  int64  `db:"created_at" json:"created_at"` // Unix seconds
}

// Event types for game history
const (
	EventGameCreated      = "game_created"
	EventPlayerJoined     = "player_joined"
	EventGameStarted      = "game_started"
	EventLandSold         = "land_sold"
	EventLandUnsold       = "land_unsold"
	EventPlayerAutonomous = "player_autonomous"
	EventPlayerWithdrawn  = "player_withdrawn"
	EventGameEnd          = "game_end"
)

// AddHistoryEvent adds a new event to the game history.
func (db *DB) AddHistoryEvent(gameID string, turn int, playerID, playerName, eventType, message string) error {
	_, err := db.conn.Exec(`
		INSERT INTO game_history (game_id, turn, player_id, player_name, event_type, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, gameID, turn, playerID, playerName, eventType, message, time.Now().Unix())
	return err
}

// RecordTurn logs the events of one resolved auction.
func (db *DB) RecordTurn(g *game.Game, result *game.TurnResult) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`
		INSERT INTO game_history (game_id, turn, player_id, player_name, event_type, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	add := func(playerID, eventType, message string) error {
		name := ""
		if p, err := g.PlayerByID(playerID); err == nil {
			name = p.Name
		}
		_, err := stmt.Exec(g.ID, result.Turn, playerID, name, eventType, message, now)
		return err
	}

	for _, sale := range result.Sales {
		if err := add(sale.PlayerID, EventLandSold, fmt.Sprintf("bought %s for %d", sale.LandID, sale.Price)); err != nil {
			return err
		}
	}
	for _, landID := range result.Unsold {
		if err := add("", EventLandUnsold, fmt.Sprintf("%s found no buyer", landID)); err != nil {
			return err
		}
	}
	for _, id := range result.Autonomous {
		if err := add(id, EventPlayerAutonomous, "missed too many deadlines"); err != nil {
			return err
		}
	}
	for _, id := range result.Withdrawn {
		if err := add(id, EventPlayerWithdrawn, "ran out of money"); err != nil {
			return err
		}
	}
	if result.Finished {
		if err := add("", EventGameEnd, "all land has been sold"); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetGameHistory retrieves all history events for a game, ordered chronologically.
func (db *DB) GetGameHistory(gameID string) ([]*HistoryEvent, error) {
	return db.GetGameHistorySince(gameID, 0)
}

// GetGameHistorySince retrieves history events after a given ID (for incremental updates).
func (db *DB) GetGameHistorySince(gameID string, afterID int64) ([]*HistoryEvent, error) {
	var events []*HistoryEvent
	err := db.conn.Select(&events, `
		SELECT id, game_id, turn, player_id, player_name, event_type, message, created_at
		FROM game_history
		WHERE game_id = ? AND id > ?
		ORDER BY id ASC
	`, gameID, afterID)
	return events, err
}
