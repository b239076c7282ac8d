package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"landrush/internal/game"
)

// ErrGameNotFound is returned when a game is not found.
var ErrGameNotFound = errors.New("game not found")

// GameInfo contains basic game information for listings.
type GameInfo struct {
	ID           string
	Name         string
	Status       game.Status
	IsPublic     bool
	Seats        int
	Joined       int
	Turn         int
	AuctionType  game.AuctionType
	AuctionOrder game.AuctionOrder
	NextDeadline time.Time
	CreatedAt    time.Time
	FinishedAt   time.Time
}

// gameRow mirrors the listing columns of the games table.
type gameRow struct {
	ID           string        `db:"id"`
	Name         string        `db:"name"`
	Status       string        `db:"status"`
	IsPublic     bool          `db:"is_public"`
	Seats        int           `db:"seats"`
	Joined       int           `db:"joined"`
	Turn         int           `db:"turn"`
	AuctionType  string        `db:"auction_type"`
	AuctionOrder string        `db:"auction_order"`
	NextDeadline sql.NullInt64 `db:"next_deadline"`
	CreatedAt    int64         `db:"created_at"`
	FinishedAt   sql.NullInt64 `db:"finished_at"`
}

const gameInfoColumns = `id, name, status, is_public, seats, joined, turn, auction_type,
	auction_order, next_deadline, created_at, finished_at`

func (r gameRow) info() *GameInfo {
	return &GameInfo{
		ID:           r.ID,
		Name:         r.Name,
		Status:       game.Status(r.Status),
		IsPublic:     r.IsPublic,
		Seats:        r.Seats,
		Joined:       r.Joined,
		Turn:         r.Turn,
		AuctionType:  game.AuctionType(r.AuctionType),
		AuctionOrder: game.AuctionOrder(r.AuctionOrder),
		NextDeadline: fromUnix(r.NextDeadline),
		CreatedAt:    time.Unix(r.CreatedAt, 0).UTC(),
		FinishedAt:   fromUnix(r.FinishedAt),
	}
}

// CreateGame stores a new game.
func (db *DB) CreateGame(g *game.Game) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveGame(tx, g, true); err != nil {
		return err
	}
	return tx.Commit()
}

// GetGame loads a game by ID.
func (db *DB) GetGame(id string) (*game.Game, error) {
	g, err := loadGame(db.conn, id)
	if err != nil {
		return nil, err
	}
	g.Attach(db.gameOpts...)
	return g, nil
}

// GetGameBySecret loads the game a participant secret belongs to.
func (db *DB) GetGameBySecret(secret string) (*game.Game, error) {
	var gameID string
	err := db.conn.Get(&gameID, `SELECT game_id FROM game_players WHERE secret = ?`, secret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return db.GetGame(gameID)
}

// UpdateGame loads a game, applies fn and saves the result in one
// transaction. Nothing is saved when fn fails.
func (db *DB) UpdateGame(id string, fn func(g *game.Game) error) (*game.Game, error) {
	tx, err := db.conn.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	g, err := loadGame(tx, id)
	if err != nil {
		return nil, err
	}
	g.Attach(db.gameOpts...)

	if err := fn(g); err != nil {
		return nil, err
	}
	if err := saveGame(tx, g, false); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return g, nil
}

// ListOpenPublicGames returns public games that still have free seats,
// oldest first.
func (db *DB) ListOpenPublicGames() ([]*GameInfo, error) {
	var rows []gameRow
	err := db.conn.Select(&rows, `
		SELECT `+gameInfoColumns+`
		FROM games
		WHERE is_public = TRUE AND status = ? AND joined < seats
		ORDER BY created_at ASC
	`, game.StatusNew)
	if err != nil {
		return nil, err
	}
	return infos(rows), nil
}

// ListGamesByStatus returns the most recently created games with a status.
func (db *DB) ListGamesByStatus(status game.Status, limit int) ([]*GameInfo, error) {
	var rows []gameRow
	err := db.conn.Select(&rows, `
		SELECT `+gameInfoColumns+`
		FROM games
		WHERE status = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, status, limit)
	if err != nil {
		return nil, err
	}
	return infos(rows), nil
}

// ListDueGames returns the IDs of running games whose deadline has passed.
func (db *DB) ListDueGames(now time.Time) ([]string, error) {
	var ids []string
	err := db.conn.Select(&ids, `
		SELECT id FROM games
		WHERE status = ? AND next_deadline IS NOT NULL AND next_deadline <= ?
		ORDER BY next_deadline ASC
	`, game.StatusInProgress, now.Unix())
	return ids, err
}

// DeleteGame permanently deletes a game and all associated data.
func (db *DB) DeleteGame(gameID string) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Delete in order of dependencies
	if _, err := tx.Exec(`DELETE FROM game_history WHERE game_id = ?`, gameID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM game_players WHERE game_id = ?`, gameID); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM games WHERE id = ?`, gameID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrGameNotFound
	}
	return tx.Commit()
}

func loadGame(q sqlx.Queryer, id string) (*game.Game, error) {
	var row struct {
		State []byte `db:"state"`
		Hash  string `db:"state_hash"`
	}
	err := sqlx.Get(q, &row, `SELECT state, state_hash FROM games WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}

	g, err := decodeState(row.State, row.Hash)
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", id, err)
	}
	return g, nil
}

// saveGame writes the game row and its player index.
func saveGame(tx *sqlx.Tx, g *game.Game, create bool) error {
	blob, hash, err := encodeState(g)
	if err != nil {
		return err
	}

	args := []interface{}{
		g.Name, g.Status, g.Settings.Public, g.Settings.Players, len(g.Players), g.Turn,
		g.Settings.AuctionType, g.Settings.AuctionOrder, toUnix(g.NextDeadline),
		toUnix(g.FinishedAt), time.Now().Unix(), blob, hash,
	}
	if create {
		_, err = tx.Exec(`
			INSERT INTO games (name, status, is_public, seats, joined, turn, auction_type,
				auction_order, next_deadline, finished_at, updated_at, state, state_hash, id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, append(args, g.ID, g.CreatedAt.Unix())...)
	} else {
		var res sql.Result
		res, err = tx.Exec(`
			UPDATE games SET name = ?, status = ?, is_public = ?, seats = ?, joined = ?, turn = ?,
				auction_type = ?, auction_order = ?, next_deadline = ?, finished_at = ?,
				updated_at = ?, state = ?, state_hash = ?
			WHERE id = ?
		`, append(args, g.ID)...)
		if err == nil {
			if n, _ := res.RowsAffected(); n == 0 {
				return ErrGameNotFound
			}
		}
	}
	if err != nil {
		return fmt.Errorf("failed to save game %s: %w", g.ID, err)
	}

	return savePlayers(tx, g)
}

func infos(rows []gameRow) []*GameInfo {
	result := make([]*GameInfo, len(rows))
	for i, r := range rows {
		result[i] = r.info()
	}
	return result
}

func toUnix(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func fromUnix(n sql.NullInt64) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return time.Unix(n.Int64, 0).UTC()
}
