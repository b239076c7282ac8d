package database

import (
	"errors"

	"github.com/jmoiron/sqlx"

	"landrush/internal/game"
)

// ErrPlayerNotFound is returned when a player secret is unknown.
var ErrPlayerNotFound = errors.New("player not found")

// GamePlayer is the indexed part of a participant.
type GamePlayer struct {
	GameID       string `db:"game_id"`
	PlayerID     string `db:"player_id"`
	Secret       string `db:"secret"`
	Number       int    `db:"number"`
	Name         string `db:"name"`
	Email        string `db:"email"`
	Notify       string `db:"notify"`
	IsAutonomous bool   `db:"is_autonomous"`
}

// GetGamePlayers returns the participants of a game in seat order.
func (db *DB) GetGamePlayers(gameID string) ([]*GamePlayer, error) {
	var players []*GamePlayer
	err := db.conn.Select(&players, `
		SELECT game_id, player_id, secret, number, name, email, notify, is_autonomous
		FROM game_players
		WHERE game_id = ?
		ORDER BY number ASC
	`, gameID)
	return players, err
}

// savePlayers replaces the player index of a game.
func savePlayers(tx *sqlx.Tx, g *game.Game) error {
	if _, err := tx.Exec(`DELETE FROM game_players WHERE game_id = ?`, g.ID); err != nil {
		return err
	}
	if len(g.Players) == 0 {
		return nil
	}

	stmt, err := tx.Preparex(`
		INSERT INTO game_players (game_id, player_id, secret, number, name, email, notify, is_autonomous)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range g.Players {
		if _, err := stmt.Exec(g.ID, p.ID, p.Secret, p.Number, p.Name, p.Email, p.Notify, p.IsAutonomous()); err != nil {
			return err
		}
	}
	return nil
}
