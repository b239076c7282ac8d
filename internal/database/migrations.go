package database

type migration struct {
	id   int
	name string
	sql  string
}

var migrations = []migration{
	{
		id:   1,
		name: "initial_schema",
		sql: `
			-- Games table: listing metadata plus the compressed game state.
			-- Times are unix seconds.
			CREATE TABLE games (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'new',
				is_public BOOLEAN NOT NULL DEFAULT FALSE,
				seats INTEGER NOT NULL,
				joined INTEGER NOT NULL DEFAULT 0,
				turn INTEGER NOT NULL DEFAULT 0,
				auction_type TEXT NOT NULL,
				auction_order TEXT NOT NULL,
				next_deadline INTEGER,
				created_at INTEGER NOT NULL,
				finished_at INTEGER,
				updated_at INTEGER NOT NULL,
				state BLOB NOT NULL,
				state_hash TEXT NOT NULL
			);
			CREATE INDEX idx_games_status ON games(status);
			CREATE INDEX idx_games_public ON games(is_public, status);
			CREATE INDEX idx_games_deadline ON games(status, next_deadline);

			-- Game players: maps private secrets to games
			CREATE TABLE game_players (
				game_id TEXT NOT NULL,
				player_id TEXT NOT NULL,
				secret TEXT UNIQUE NOT NULL,
				number INTEGER NOT NULL,
				name TEXT NOT NULL,
				email TEXT NOT NULL DEFAULT '',
				notify TEXT NOT NULL DEFAULT 'turn',
				is_autonomous BOOLEAN NOT NULL DEFAULT FALSE,
				PRIMARY KEY (game_id, player_id),
				FOREIGN KEY (game_id) REFERENCES games(id) ON DELETE CASCADE
			);
			CREATE INDEX idx_game_players_game ON game_players(game_id);
		`,
	},
	{
		id:   2,
		name: "add_game_history",
		sql: `
			CREATE TABLE game_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				game_id TEXT NOT NULL,
				turn INTEGER NOT NULL,
				player_id TEXT NOT NULL DEFAULT '',
				player_name TEXT NOT NULL DEFAULT '',
				event_type TEXT NOT NULL,
				message TEXT NOT NULL,
				created_at INTEGER NOT NULL,
				FOREIGN KEY (game_id) REFERENCES games(id) ON DELETE CASCADE
			);
			CREATE INDEX idx_game_history_game ON game_history(game_id);
		`,
	},
}
