package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"landrush/internal/database"
	"landrush/internal/game"
	"landrush/internal/protocol"
)

const (
	maxBodySize  = 1 << 20
	listLimit    = 20
	quickPlayers = 4
)

// ==================== Lobby ====================

// handleListGames lists open, running and finished public games. When no
// public game is open, a fresh one is created so newcomers always have a
// table to join.
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	open, err := s.db.ListOpenPublicGames()
	if err != nil {
		writeError(w, err)
		return
	}
	if len(open) == 0 {
		settings := game.DefaultSettings(quickPlayers)
		settings.Public = true
		g, err := s.createGame(fmt.Sprintf("Newbies %d", 1000+rand.Intn(9000)), settings)
		if err != nil {
			writeError(w, err)
			return
		}
		log.Info().Str("gameId", g.ID).Str("name", g.Name).Msg("Created open public game")
		if open, err = s.db.ListOpenPublicGames(); err != nil {
			writeError(w, err)
			return
		}
	}

	running, err := s.db.ListGamesByStatus(game.StatusInProgress, listLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	finished, err := s.db.ListGamesByStatus(game.StatusFinished, listLimit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, protocol.GameListPayload{
		Open:     summaries(open),
		Running:  summaries(running),
		Finished: summaries(finished),
	})
}

// handleCreateGame creates a game with custom settings.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var payload protocol.CreateGamePayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	g, err := s.createGame(payload.Name, payload.Settings())
	if err != nil {
		writeError(w, err)
		return
	}

	log.Info().Str("gameId", g.ID).Str("name", g.Name).Int("players", g.Settings.Players).Msg("Game created")
	writeJSON(w, http.StatusCreated, protocol.GameCreatedPayload{
		GameID: g.ID,
		URL:    protocol.GameURL(s.cfg.BaseURL, g.ID),
	})
}

// handleQuickGame creates a private game, seats the caller and fills the
// remaining seats with autonomous players.
func (s *Server) handleQuickGame(w http.ResponseWriter, r *http.Request) {
	var payload protocol.QuickGamePayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	players := payload.Players
	if players == 0 {
		players = quickPlayers
	}

	g, err := game.NewGame("Quick game", game.DefaultSettings(players), game.WithNotifier(s.mailer))
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := g.Join(payload.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	if g.Status == game.StatusNew {
		if err := g.Start(); err != nil {
			writeError(w, err)
			return
		}
	}
	if err := s.db.CreateGame(g); err != nil {
		writeError(w, err)
		return
	}
	s.addHistory(g, "", "", database.EventGameStarted, "quick game")

	log.Info().Str("gameId", g.ID).Int("players", players).Msg("Quick game started")
	s.writeJoined(w, g, p)
}

// createGame builds and stores a new game.
func (s *Server) createGame(name string, settings game.Settings) (*game.Game, error) {
	g, err := game.NewGame(name, settings, game.WithNotifier(s.mailer))
	if err != nil {
		return nil, err
	}
	if err := s.db.CreateGame(g); err != nil {
		return nil, err
	}
	s.addHistory(g, "", "", database.EventGameCreated, g.Name)
	return g, nil
}

// ==================== Public Game ====================

// handleGetGame returns the public view of a game. Visitors holding a seat
// are redirected to their private view.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	g, err := s.db.GetGame(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if secret, ok := s.sessions.secret(r, id); ok {
		if _, err := g.PlayerBySecret(secret); err == nil {
			http.Redirect(w, r, protocol.PlayerURL(s.cfg.BaseURL, id, secret), http.StatusSeeOther)
			return
		}
	}
	if g.ReadyForAuction() {
		if g, _, err = s.resolveIfReady(id); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, protocol.GameViewPayload{Game: g.Snapshot("")})
}

// handleJoinGame seats a new player. A visitor who already holds a seat
// in the game gets that seat back.
func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var payload protocol.JoinGamePayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	if secret, ok := s.sessions.secret(r, id); ok {
		if g, err := s.db.GetGame(id); err == nil {
			if p, err := g.PlayerBySecret(secret); err == nil {
				s.writeJoined(w, g, p)
				return
			}
		}
	}

	var p *game.Player
	g, _, err := s.update(id, func(g *game.Game) error {
		var err error
		p, err = g.Join(payload.Name)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.addHistory(g, p.ID, p.Name, database.EventPlayerJoined, "took a seat")
	log.Info().Str("gameId", g.ID).Str("player", p.Name).Int("openSeats", g.OpenSeats()).Msg("Player joined")

	s.hub.notifyGame(g.ID, protocol.TypePlayerJoined, protocol.PlayerJoinedPayload{
		GameID:   g.ID,
		PlayerID: p.ID,
		Name:     p.Name,
		Open:     g.OpenSeats(),
	})
	if g.Status == game.StatusInProgress {
		s.gameStarted(g)
	}
	s.writeJoined(w, g, p)
}

// handleHistory returns the event log of a game. The optional since
// parameter skips events up to that ID.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.db.GetGame(id); err != nil {
		writeError(w, err)
		return
	}

	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, protocol.ErrorPayload{
				Code:    protocol.ErrCodeInvalidInput,
				Message: "since must be an event id",
			})
			return
		}
		since = n
	}

	events, err := s.db.GetGameHistorySince(id, since)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []*database.HistoryEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// ==================== Player ====================

// handlePlayerView returns the game as seen by one player, together with
// the messages queued for them. Viewing consumes the messages.
func (s *Server) handlePlayerView(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, secret := vars["id"], vars["secret"]

	var messages []game.Message
	g, _, err := s.update(id, func(g *game.Game) error {
		p, err := g.PlayerBySecret(secret)
		if err != nil {
			return err
		}
		messages = p.DrainMessages()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.sessions.issue(w, id, secret); err != nil {
		log.Warn().Err(err).Str("gameId", id).Msg("Failed to issue session")
	}
	writeJSON(w, http.StatusOK, protocol.GameViewPayload{Game: g.Snapshot(secret), Messages: messages})
}

// handlePlaceBids stores a player's bids for the active auction. The
// auction is resolved right away once every player has bid.
func (s *Server) handlePlaceBids(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, secret := vars["id"], vars["secret"]
	var payload protocol.PlaceBidsPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	var playerID string
	g, _, err := s.update(id, func(g *game.Game) error {
		if err := g.PlaceBids(secret, payload.Bids); err != nil {
			return err
		}
		p, err := g.PlayerBySecret(secret)
		if err != nil {
			return err
		}
		playerID = p.ID
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.hub.notifyGame(g.ID, protocol.TypeBidsPlaced, protocol.BidsPlacedPayload{GameID: g.ID, PlayerID: playerID})
	writeJSON(w, http.StatusOK, protocol.GameViewPayload{Game: g.Snapshot(secret)})
}

// handleNotifications updates a player's mail settings.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, secret := vars["id"], vars["secret"]
	var payload protocol.NotificationsPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	_, _, err := s.update(id, func(g *game.Game) error {
		return g.SetNotifications(secret, payload.Email, game.Notify(payload.Notify))
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStartEarly starts a game before all seats are taken.
func (s *Server) handleStartEarly(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, secret := vars["id"], vars["secret"]

	g, _, err := s.update(id, func(g *game.Game) error {
		return g.StartEarly(secret)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.gameStarted(g)
	writeJSON(w, http.StatusOK, protocol.GameViewPayload{Game: g.Snapshot(secret)})
}

// handleQR renders the private URL of a player as a QR code, so a game can
// be continued on another device.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, secret := vars["id"], vars["secret"]

	g, err := s.db.GetGame(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := g.PlayerBySecret(secret); err != nil {
		writeError(w, err)
		return
	}

	png, err := qrPNG(protocol.PlayerURL(s.cfg.BaseURL, id, secret))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Write(png)
}

// ==================== Helpers ====================

// gameStarted records and announces the start of a game.
func (s *Server) gameStarted(g *game.Game) {
	s.addHistory(g, "", "", database.EventGameStarted, fmt.Sprintf("%d players", len(g.Players)))
	log.Info().Str("gameId", g.ID).Int("players", len(g.Players)).Msg("Game started")
	s.hub.notifyGame(g.ID, protocol.TypeGameStarted, protocol.WelcomePayload{
		GameID: g.ID,
		Status: string(g.Status),
		Turn:   g.Turn,
	})
}

// addHistory logs one lobby event. Failures are logged and otherwise ignored.
func (s *Server) addHistory(g *game.Game, playerID, playerName, eventType, message string) {
	if err := s.db.AddHistoryEvent(g.ID, g.Turn, playerID, playerName, eventType, message); err != nil {
		log.Error().Err(err).Str("gameId", g.ID).Str("event", eventType).Msg("Failed to record history event")
	}
}

// writeJoined answers a successful join and remembers the seat in a cookie.
func (s *Server) writeJoined(w http.ResponseWriter, g *game.Game, p *game.Player) {
	if err := s.sessions.issue(w, g.ID, p.Secret); err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("Failed to issue session")
	}
	writeJSON(w, http.StatusCreated, protocol.JoinedGamePayload{
		GameID:   g.ID,
		PlayerID: p.ID,
		Secret:   p.Secret,
		URL:      protocol.PlayerURL(s.cfg.BaseURL, g.ID, p.Secret),
	})
}

// summaries converts listings to payloads, keeping public games only.
func summaries(infos []*database.GameInfo) []protocol.GameSummary {
	list := []protocol.GameSummary{}
	for _, info := range infos {
		if !info.IsPublic {
			continue
		}
		list = append(list, protocol.GameSummary{
			ID:           info.ID,
			Name:         info.Name,
			Status:       string(info.Status),
			Seats:        info.Seats,
			Joined:       info.Joined,
			Turn:         info.Turn,
			AuctionType:  string(info.AuctionType),
			AuctionOrder: string(info.AuctionOrder),
			NextDeadline: info.NextDeadline,
		})
	}
	return list
}

// decodeJSON reads a request body into v. On failure it answers the
// request and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.ErrorPayload{
			Code:    protocol.ErrCodeInvalidInput,
			Message: "invalid request body",
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, protocol.ErrCodeInternalError
	switch {
	case errors.Is(err, database.ErrGameNotFound):
		status, code = http.StatusNotFound, protocol.ErrCodeGameNotFound
	case errors.Is(err, database.ErrPlayerNotFound), errors.Is(err, game.ErrPlayerNotFound):
		status, code = http.StatusNotFound, protocol.ErrCodePlayerNotFound
	case errors.Is(err, game.ErrGameStarted),
		errors.Is(err, game.ErrGameNotInProgress),
		errors.Is(err, game.ErrGameFinished),
		errors.Is(err, game.ErrPlayerWithdrawn),
		errors.Is(err, game.ErrNotFirstPlayer):
		status, code = http.StatusConflict, protocol.ErrCodeConflict
	case errors.Is(err, game.ErrBidCount),
		errors.Is(err, game.ErrInvalidSettings),
		errors.Is(err, game.ErrUnknownAuctionType),
		errors.Is(err, game.ErrUnknownAuctionOrder):
		status, code = http.StatusBadRequest, protocol.ErrCodeInvalidInput
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
		msg = "internal error"
	}
	writeJSON(w, status, protocol.ErrorPayload{Code: code, Message: msg})
}
