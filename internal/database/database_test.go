package database

import (
	"errors"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"landrush/internal/game"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestGame(t *testing.T, public bool) *game.Game {
	t.Helper()
	s := game.DefaultSettings(3)
	s.Public = public
	g, err := game.NewGame("stored", s, game.WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}
	return g
}

func TestCreateAndGetGame(t *testing.T) {
	db := newTestDB(t)
	g := newTestGame(t, false)
	p, err := g.Join("Ann")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	if err := db.CreateGame(g); err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}

	loaded, err := db.GetGame(g.ID)
	if err != nil {
		t.Fatalf("GetGame failed: %v", err)
	}
	if loaded.Name != "stored" || len(loaded.Players) != 1 || loaded.Players[0].Secret != p.Secret {
		t.Errorf("Unexpected loaded game: %+v", loaded)
	}
	if loaded.Board.Debug() != g.Board.Debug() {
		t.Error("Expected board to survive the round trip")
	}
	if len(loaded.Auction) != len(g.Auction) || loaded.Auction[0] != g.Auction[0] {
		t.Errorf("Expected auction %v, got %v", g.Auction, loaded.Auction)
	}

	bySecret, err := db.GetGameBySecret(p.Secret)
	if err != nil {
		t.Fatalf("GetGameBySecret failed: %v", err)
	}
	if bySecret.ID != g.ID {
		t.Errorf("Expected game %s, got %s", g.ID, bySecret.ID)
	}

	if _, err := db.GetGame("missing"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("Expected ErrGameNotFound, got %v", err)
	}
	if _, err := db.GetGameBySecret("missing"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("Expected ErrPlayerNotFound, got %v", err)
	}
}

func TestUpdateGame(t *testing.T) {
	db := newTestDB(t)
	g := newTestGame(t, false)
	if err := db.CreateGame(g); err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}

	updated, err := db.UpdateGame(g.ID, func(g *game.Game) error {
		if _, err := g.Join("Ann"); err != nil {
			return err
		}
		return g.Start()
	})
	if err != nil {
		t.Fatalf("UpdateGame failed: %v", err)
	}
	if updated.Status != game.StatusInProgress {
		t.Errorf("Expected in progress, got %s", updated.Status)
	}

	players, err := db.GetGamePlayers(g.ID)
	if err != nil {
		t.Fatalf("GetGamePlayers failed: %v", err)
	}
	if len(players) != 3 || players[0].Name != "Ann" || players[0].IsAutonomous || !players[2].IsAutonomous {
		t.Errorf("Unexpected player index: %+v", players)
	}

	// A failing update leaves the stored game untouched
	boom := errors.New("boom")
	_, err = db.UpdateGame(g.ID, func(g *game.Game) error {
		g.Name = "changed"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	loaded, _ := db.GetGame(g.ID)
	if loaded.Name != "stored" {
		t.Errorf("Expected name to stay, got %q", loaded.Name)
	}

	if _, err := db.UpdateGame("missing", func(*game.Game) error { return nil }); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("Expected ErrGameNotFound, got %v", err)
	}
}

func TestGetGame_CorruptState(t *testing.T) {
	db := newTestDB(t)
	g := newTestGame(t, false)
	if err := db.CreateGame(g); err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}

	if _, err := db.conn.Exec(`UPDATE games SET state_hash = 'bad' WHERE id = ?`, g.ID); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if _, err := db.GetGame(g.ID); !errors.Is(err, ErrCorruptState) {
		t.Errorf("Expected ErrCorruptState, got %v", err)
	}
}

func TestDecodeState_RejectsGarbage(t *testing.T) {
	blob := []byte("not lz4 at all")
	if _, err := decodeState(blob, hashState(blob)); !errors.Is(err, ErrCorruptState) {
		t.Errorf("Expected ErrCorruptState, got %v", err)
	}
}

func TestListGames(t *testing.T) {
	db := newTestDB(t)
	open := newTestGame(t, true)
	private := newTestGame(t, false)
	running := newTestGame(t, true)
	running.Start()
	running.NextDeadline = time.Now().Add(-time.Minute)

	for _, g := range []*game.Game{open, private, running} {
		if err := db.CreateGame(g); err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
	}

	openGames, err := db.ListOpenPublicGames()
	if err != nil {
		t.Fatalf("ListOpenPublicGames failed: %v", err)
	}
	if len(openGames) != 1 || openGames[0].ID != open.ID {
		t.Errorf("Expected only the open public game, got %+v", openGames)
	}
	if openGames[0].Seats != 3 || !openGames[0].IsPublic {
		t.Errorf("Unexpected listing: %+v", openGames[0])
	}

	inProgress, err := db.ListGamesByStatus(game.StatusInProgress, 10)
	if err != nil {
		t.Fatalf("ListGamesByStatus failed: %v", err)
	}
	if len(inProgress) != 1 || inProgress[0].ID != running.ID {
		t.Errorf("Expected the running game, got %+v", inProgress)
	}

	due, err := db.ListDueGames(time.Now())
	if err != nil {
		t.Fatalf("ListDueGames failed: %v", err)
	}
	if len(due) != 1 || due[0] != running.ID {
		t.Errorf("Expected the running game to be due, got %v", due)
	}

	if err := db.DeleteGame(running.ID); err != nil {
		t.Fatalf("DeleteGame failed: %v", err)
	}
	if err := db.DeleteGame(running.ID); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("Expected ErrGameNotFound, got %v", err)
	}
}

func TestRecordTurn(t *testing.T) {
	db := newTestDB(t)
	g := newTestGame(t, false)
	if err := g.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := db.CreateGame(g); err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}

	result, err := g.ResolveAuction()
	if err != nil {
		t.Fatalf("ResolveAuction failed: %v", err)
	}
	if err := db.RecordTurn(g, result); err != nil {
		t.Fatalf("RecordTurn failed: %v", err)
	}
	if err := db.AddHistoryEvent(g.ID, g.Turn, "", "", EventGameStarted, "started"); err != nil {
		t.Fatalf("AddHistoryEvent failed: %v", err)
	}

	events, err := db.GetGameHistory(g.ID)
	if err != nil {
		t.Fatalf("GetGameHistory failed: %v", err)
	}
	want := len(result.Sales) + len(result.Unsold) + len(result.Autonomous) + len(result.Withdrawn) + 1
	if len(events) != want {
		t.Fatalf("Expected %d events, got %d", want, len(events))
	}
	for _, e := range events[:len(result.Sales)] {
		if e.EventType != EventLandSold || e.PlayerName == "" {
			t.Errorf("Unexpected sale event: %+v", e)
		}
	}

	since, err := db.GetGameHistorySince(g.ID, events[len(events)-2].ID)
	if err != nil {
		t.Fatalf("GetGameHistorySince failed: %v", err)
	}
	if len(since) != 1 || since[0].EventType != EventGameStarted {
		t.Errorf("Expected only the last event, got %+v", since)
	}
}
