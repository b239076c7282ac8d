package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"landrush/internal/game"
	"landrush/internal/protocol"
)

const testBaseURL = "http://landrush.test"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	cfg.BaseURL = testBaseURL
	cfg.SessionKey = "test-session-key"
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1000
		cfg.RateBurst = 1000
	}

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go s.hub.Run(ctx)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		s.mailer.Wait()
		s.db.Close()
	})
	return s, ts
}

func doJSON(t *testing.T, client *http.Client, method, url string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp
}

// localPath turns a URL built with the public base URL into one on the
// test server.
func localPath(ts *httptest.Server, url string) string {
	return ts.URL + strings.TrimPrefix(url, testBaseURL)
}

func createGame(t *testing.T, ts *httptest.Server, players int) string {
	t.Helper()
	var created protocol.GameCreatedPayload
	resp := doJSON(t, nil, "POST", ts.URL+"/api/games", protocol.CreateGamePayload{Name: "Test", Players: players}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	return created.GameID
}

func joinGame(t *testing.T, ts *httptest.Server, client *http.Client, id, name string) protocol.JoinedGamePayload {
	t.Helper()
	var joined protocol.JoinedGamePayload
	resp := doJSON(t, client, "POST", ts.URL+"/api/games/"+id+"/join", protocol.JoinGamePayload{Name: name}, &joined)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("join status = %d", resp.StatusCode)
	}
	return joined
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestListGames_KeepsOneOpenGame(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	var list protocol.GameListPayload
	doJSON(t, nil, "GET", ts.URL+"/api/games", nil, &list)
	if len(list.Open) != 1 {
		t.Fatalf("open games = %d, want 1", len(list.Open))
	}
	if !strings.HasPrefix(list.Open[0].Name, "Newbies ") {
		t.Errorf("name = %q, want Newbies prefix", list.Open[0].Name)
	}
	first := list.Open[0].ID

	doJSON(t, nil, "GET", ts.URL+"/api/games", nil, &list)
	if len(list.Open) != 1 || list.Open[0].ID != first {
		t.Errorf("second listing created another game: %+v", list.Open)
	}
	if len(list.Running) != 0 || len(list.Finished) != 0 {
		t.Errorf("unexpected running/finished games: %+v", list)
	}
}

func TestCreateGame_InvalidSettings(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	var errPayload protocol.ErrorPayload
	resp := doJSON(t, nil, "POST", ts.URL+"/api/games",
		protocol.CreateGamePayload{Name: "Bad", Players: 3, AuctionType: "dutch"}, &errPayload)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if errPayload.Code != protocol.ErrCodeInvalidInput {
		t.Errorf("code = %q, want %q", errPayload.Code, protocol.ErrCodeInvalidInput)
	}

	resp = doJSON(t, nil, "POST", ts.URL+"/api/games", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty body status = %d, want 400", resp.StatusCode)
	}
}

func TestJoinGame_LastSeatStarts(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	id := createGame(t, ts, 2)

	alice := joinGame(t, ts, nil, id, "Alice")
	if alice.URL != testBaseURL+"/api/games/"+id+"/players/"+alice.Secret {
		t.Errorf("url = %q", alice.URL)
	}

	var view protocol.GameViewPayload
	doJSON(t, nil, "GET", localPath(ts, alice.URL), nil, &view)
	if view.Game.Status != game.StatusNew {
		t.Errorf("status after first join = %q, want new", view.Game.Status)
	}

	joinGame(t, ts, nil, id, "Bob")
	doJSON(t, nil, "GET", localPath(ts, alice.URL), nil, &view)
	if view.Game.Status != game.StatusInProgress {
		t.Errorf("status after last join = %q, want in_progress", view.Game.Status)
	}
	if view.Game.Me == nil || view.Game.Me.Name != "Alice" {
		t.Errorf("me = %+v, want Alice", view.Game.Me)
	}
	for _, p := range view.Game.Players {
		if !p.Me && p.Secret != "" {
			t.Errorf("secret of %s leaked", p.Name)
		}
	}

	var errPayload protocol.ErrorPayload
	resp := doJSON(t, nil, "POST", ts.URL+"/api/games/"+id+"/join", protocol.JoinGamePayload{Name: "Carol"}, &errPayload)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("join full game status = %d, want 409", resp.StatusCode)
	}
}

func TestHistory_RecordsLobbyEvents(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	id := createGame(t, ts, 2)
	joinGame(t, ts, nil, id, "Alice")
	joinGame(t, ts, nil, id, "Bob")

	var events []map[string]interface{}
	doJSON(t, nil, "GET", ts.URL+"/api/games/"+id+"/history", nil, &events)

	want := []string{"game_created", "player_joined", "player_joined", "game_started"}
	if len(events) != len(want) {
		t.Fatalf("history = %v, want %d events", events, len(want))
	}
	for i, typ := range want {
		if events[i]["event_type"] != typ {
			t.Errorf("event %d = %v, want %s", i, events[i]["event_type"], typ)
		}
	}
	if events[1]["player_name"] != "Alice" {
		t.Errorf("first join by %v, want Alice", events[1]["player_name"])
	}
}

func TestJoinGame_CookieKeepsSeat(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	id := createGame(t, ts, 3)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	first := joinGame(t, ts, client, id, "Alice")
	again := joinGame(t, ts, client, id, "Alice again")
	if again.Secret != first.Secret {
		t.Errorf("rejoin got a new seat")
	}

	resp := doJSON(t, client, "GET", ts.URL+"/api/games/"+id, nil, nil)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != first.URL {
		t.Errorf("location = %q, want %q", loc, first.URL)
	}

	// Without the cookie the public view is served
	var view protocol.GameViewPayload
	resp = doJSON(t, nil, "GET", ts.URL+"/api/games/"+id, nil, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("public status = %d", resp.StatusCode)
	}
	if view.Game.Me != nil {
		t.Errorf("public view has a viewer")
	}
}

func TestQuickGame_BidsResolveAuction(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	var joined protocol.JoinedGamePayload
	resp := doJSON(t, nil, "POST", ts.URL+"/api/games/quick", protocol.QuickGamePayload{Name: "Alice", Players: 2}, &joined)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("quick game status = %d", resp.StatusCode)
	}

	var view protocol.GameViewPayload
	doJSON(t, nil, "GET", localPath(ts, joined.URL), nil, &view)
	if view.Game.Status != game.StatusInProgress {
		t.Fatalf("status = %q, want in_progress", view.Game.Status)
	}
	if len(view.Game.Players) != 2 || !view.Game.Players[1].Autonomous {
		t.Fatalf("players = %+v, want one autonomous opponent", view.Game.Players)
	}

	bids := make([]string, len(view.Game.Auction))
	for i := range bids {
		bids[i] = "10"
	}
	resp = doJSON(t, nil, "POST", localPath(ts, joined.URL)+"/bids", protocol.PlaceBidsPayload{Bids: bids}, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bids status = %d", resp.StatusCode)
	}
	if view.Game.Turn != 1 {
		t.Errorf("turn = %d, want 1 after every player has bid", view.Game.Turn)
	}
	if view.Game.Me.BidsPlaced {
		t.Errorf("bids still pending after resolution")
	}

	var events []map[string]interface{}
	doJSON(t, nil, "GET", ts.URL+"/api/games/"+joined.GameID+"/history", nil, &events)
	if len(events) < 2 {
		t.Errorf("history has %d events, want start and auction results", len(events))
	}
}

func TestPlaceBids_Errors(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	var joined protocol.JoinedGamePayload
	doJSON(t, nil, "POST", ts.URL+"/api/games/quick", protocol.QuickGamePayload{Name: "Alice", Players: 2}, &joined)

	tests := []struct {
		name   string
		url    string
		bids   []string
		status int
		code   protocol.ErrorCode
	}{
		{"wrong count", localPath(ts, joined.URL) + "/bids", []string{"1"}, http.StatusBadRequest, protocol.ErrCodeInvalidInput},
		{"unknown secret", ts.URL + "/api/games/" + joined.GameID + "/players/nope/bids", []string{"1"}, http.StatusNotFound, protocol.ErrCodePlayerNotFound},
		{"unknown game", ts.URL + "/api/games/nope/players/nope/bids", []string{"1"}, http.StatusNotFound, protocol.ErrCodeGameNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errPayload protocol.ErrorPayload
			resp := doJSON(t, nil, "POST", tt.url, protocol.PlaceBidsPayload{Bids: tt.bids}, &errPayload)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if errPayload.Code != tt.code {
				t.Errorf("code = %q, want %q", errPayload.Code, tt.code)
			}
		})
	}
}

func TestStartEarlyAndNotifications(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	id := createGame(t, ts, 4)
	alice := joinGame(t, ts, nil, id, "Alice")
	bob := joinGame(t, ts, nil, id, "Bob")

	resp := doJSON(t, nil, "POST", localPath(ts, bob.URL)+"/start", nil, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("start by second player status = %d, want 409", resp.StatusCode)
	}

	var view protocol.GameViewPayload
	resp = doJSON(t, nil, "POST", localPath(ts, alice.URL)+"/start", nil, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	if view.Game.Status != game.StatusInProgress || len(view.Game.Players) != 4 {
		t.Errorf("status = %q with %d players, want in_progress with 4", view.Game.Status, len(view.Game.Players))
	}

	resp = doJSON(t, nil, "POST", localPath(ts, alice.URL)+"/notifications",
		protocol.NotificationsPayload{Email: "alice@example.com", Notify: "turn"}, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("notifications status = %d, want 204", resp.StatusCode)
	}
	doJSON(t, nil, "GET", localPath(ts, alice.URL), nil, &view)
	if view.Game.Me.Email != "alice@example.com" || view.Game.Me.Notify != game.NotifyTurn {
		t.Errorf("me = %+v, want updated mail settings", view.Game.Me)
	}

	resp = doJSON(t, nil, "POST", localPath(ts, alice.URL)+"/notifications",
		protocol.NotificationsPayload{Notify: "hourly"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad notify status = %d, want 400", resp.StatusCode)
	}
}

func TestQRCode(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	id := createGame(t, ts, 2)
	alice := joinGame(t, ts, nil, id, "Alice")

	resp, err := http.Get(localPath(ts, alice.URL) + "/qr.png")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	var head [4]byte
	resp.Body.Read(head[:])
	if string(head[1:]) != "PNG" {
		t.Errorf("body is not a PNG: %q", head)
	}
}

func TestRateLimit(t *testing.T) {
	_, ts := newTestServer(t, Config{RateLimit: 0.001, RateBurst: 2})

	for i := 0; i < 2; i++ {
		resp := doJSON(t, nil, "POST", ts.URL+"/api/games", protocol.CreateGamePayload{Name: "Test", Players: 2}, nil)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("request %d status = %d", i, resp.StatusCode)
		}
	}

	var errPayload protocol.ErrorPayload
	resp := doJSON(t, nil, "POST", ts.URL+"/api/games", protocol.CreateGamePayload{Name: "Test", Players: 2}, &errPayload)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
	if errPayload.Code != protocol.ErrCodeRateLimited {
		t.Errorf("code = %q", errPayload.Code)
	}

	// Reads are not limited
	resp = doJSON(t, nil, "GET", ts.URL+"/api/games", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("list status = %d, want 200", resp.StatusCode)
	}
}

func TestResolveDue(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	clock := &testClock{now: time.Now().UTC()}
	s.db.UseGameOptions(game.WithNotifier(s.mailer), game.WithClock(clock))

	var joined protocol.JoinedGamePayload
	doJSON(t, nil, "POST", ts.URL+"/api/games/quick", protocol.QuickGamePayload{Name: "Alice", Players: 2}, &joined)

	if n := s.resolveDue(time.Now()); n != 0 {
		t.Errorf("resolved %d games before the deadline", n)
	}

	clock.Advance(25 * time.Hour)
	if n := s.resolveDue(clock.Now()); n != 1 {
		t.Fatalf("resolved %d games after the deadline, want 1", n)
	}

	g, err := s.db.GetGame(joined.GameID)
	if err != nil {
		t.Fatal(err)
	}
	if g.Turn != 1 {
		t.Errorf("turn = %d, want 1", g.Turn)
	}
	p, _ := g.PlayerBySecret(joined.Secret)
	if p.MissedDeadlines != 1 || len(p.Messages) != 1 {
		t.Errorf("missed = %d, messages = %d, want one warning", p.MissedDeadlines, len(p.Messages))
	}

	var view protocol.GameViewPayload
	doJSON(t, nil, "GET", localPath(ts, joined.URL), nil, &view)
	if len(view.Messages) != 1 {
		t.Errorf("view messages = %d, want 1", len(view.Messages))
	}
	var again protocol.GameViewPayload
	doJSON(t, nil, "GET", localPath(ts, joined.URL), nil, &again)
	if len(again.Messages) != 0 {
		t.Errorf("messages shown twice: %+v", again.Messages)
	}
}

func TestWebSocketWatcher(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	id := createGame(t, ts, 2)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?game=" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	read := func() *protocol.Message {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg protocol.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		return &msg
	}

	welcome := read()
	if welcome.Type != protocol.TypeWelcome {
		t.Fatalf("first message = %q, want welcome", welcome.Type)
	}
	deadline := time.Now().Add(5 * time.Second)
	for s.hub.WatcherCount(id) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("watcher never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	joinGame(t, ts, nil, id, "Alice")
	msg := read()
	if msg.Type != protocol.TypePlayerJoined {
		t.Fatalf("message = %q, want player_joined", msg.Type)
	}
	var joined protocol.PlayerJoinedPayload
	if err := msg.ParsePayload(&joined); err != nil {
		t.Fatal(err)
	}
	if joined.Name != "Alice" || joined.Open != 1 {
		t.Errorf("payload = %+v", joined)
	}

	ping, _ := protocol.NewMessage(protocol.TypePing, struct{}{})
	if err := conn.WriteJSON(ping); err != nil {
		t.Fatal(err)
	}
	if msg := read(); msg.Type != protocol.TypePong {
		t.Errorf("reply = %q, want pong", msg.Type)
	}

	resp, err := http.Get(ts.URL + "/ws?game=nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown game status = %d, want 404", resp.StatusCode)
	}
}
