// Package server implements the Land Rush game server.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"landrush/internal/database"
	"landrush/internal/game"
	"landrush/internal/mail"
	"landrush/internal/protocol"
)

// Server is the main game server.
type Server struct {
	db       *database.DB
	hub      *Hub
	mailer   *mail.Mailer
	sessions *sessions
	limiter  *ipLimiter
	upgrader websocket.Upgrader
	router   *mux.Router
	cfg      Config
	server   *http.Server
	cancel   context.CancelFunc
}

// Config holds server configuration.
type Config struct {
	Addr       string
	DBPath     string
	BaseURL    string // Public address used in links and mails
	SessionKey string // HMAC key for session cookies; random when empty

	// Deadline scan interval
	SchedulerInterval time.Duration

	// Per-IP limit for state-changing requests
	RateLimit float64
	RateBurst int

	Mail mail.Config
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost" + c.Addr
	}
	if c.SchedulerInterval <= 0 {
		c.SchedulerInterval = time.Minute
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 1
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 5
	}
	if c.Mail.BaseURL == "" {
		c.Mail.BaseURL = c.BaseURL
	}
}

// New creates a new server.
func New(cfg Config) (*Server, error) {
	cfg.applyDefaults()

	key := []byte(cfg.SessionKey)
	if len(key) == 0 {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
		key = []byte(hex.EncodeToString(buf))
		log.Warn().Msg("No session key configured, sessions will not survive a restart")
	}

	db, err := database.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Server{
		db:       db,
		cfg:      cfg,
		mailer:   mail.New(cfg.Mail),
		sessions: newSessions(key),
		limiter:  newIPLimiter(cfg.RateLimit, cfg.RateBurst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Watchers are read-only
			},
		},
	}
	s.db.UseGameOptions(game.WithNotifier(s.mailer))
	s.hub = NewHub()
	s.router = s.routes()

	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server and blocks until it is shut down.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.runBackground(ctx)

	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("addr", s.cfg.Addr).
		Str("baseUrl", s.cfg.BaseURL).
		Str("database", s.cfg.DBPath).
		Bool("mail", s.cfg.Mail.Enabled()).
		Msg("Land Rush server listening")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// runBackground starts the hub and the deadline scheduler.
func (s *Server) runBackground(ctx context.Context) {
	go s.hub.Run(ctx)
	go s.runScheduler(ctx)
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.mailer.Wait()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// routes builds the HTTP router.
func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")
	r.HandleFunc("/ws", s.handleWebSocket).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/games/{id}", s.handleGetGame).Methods("GET")
	api.HandleFunc("/games/{id}/history", s.handleHistory).Methods("GET")
	api.HandleFunc("/games/{id}/players/{secret}", s.handlePlayerView).Methods("GET")
	api.HandleFunc("/games/{id}/players/{secret}/qr.png", s.handleQR).Methods("GET")

	// State-changing endpoints are rate limited
	post := api.NewRoute().Subrouter()
	post.Use(s.limiter.middleware)
	post.HandleFunc("/games", s.handleCreateGame).Methods("POST")
	post.HandleFunc("/games/quick", s.handleQuickGame).Methods("POST")
	post.HandleFunc("/games/{id}/join", s.handleJoinGame).Methods("POST")
	post.HandleFunc("/games/{id}/players/{secret}/bids", s.handlePlaceBids).Methods("POST")
	post.HandleFunc("/games/{id}/players/{secret}/notifications", s.handleNotifications).Methods("POST")
	post.HandleFunc("/games/{id}/players/{secret}/start", s.handleStartEarly).Methods("POST")

	return r
}

// loggingMiddleware logs every request at debug level.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("Request")
	})
}

// handleWebSocket upgrades a watcher connection for one game.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game")
	g, err := s.db.GetGame(gameID)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := NewClient(s.hub, conn, gameID)
	welcome, err := protocol.NewMessage(protocol.TypeWelcome, protocol.WelcomePayload{
		GameID: g.ID,
		Status: string(g.Status),
		Turn:   g.Turn,
	})
	if err == nil {
		client.Send(welcome)
	}
	s.hub.Register(client)

	// Start client goroutines
	go client.WritePump()
	go client.ReadPump()
}

// Hub maintains the watchers of each game and pushes updates to them.
type Hub struct {
	// Clients watching each game
	gameClients map[string]map[*Client]bool

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	mu sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		gameClients: make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client, 16),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.gameClients[client.GameID] == nil {
				h.gameClients[client.GameID] = make(map[*Client]bool)
			}
			h.gameClients[client.GameID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.handleDisconnect(client)

		case <-ctx.Done():
			return
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	default:
		go func() { h.unregister <- client }()
	}
}

// handleDisconnect removes a client and closes its send queue.
func (h *Hub) handleDisconnect(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.gameClients[client.GameID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.gameClients, client.GameID)
	}
	close(client.send)
}

// notifyGame sends a message to all watchers of a game.
func (h *Hub) notifyGame(gameID string, msgType protocol.MessageType, payload interface{}) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		log.Error().Err(err).Str("type", string(msgType)).Msg("Failed to build update")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.gameClients[gameID] {
		client.Send(msg)
	}
}

// WatcherCount returns the number of watchers of a game.
func (h *Hub) WatcherCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.gameClients[gameID])
}

// handleMessage answers the few messages a watcher may send.
func (h *Hub) handleMessage(client *Client, msg *protocol.Message) {
	var reply *protocol.Message
	var err error
	switch msg.Type {
	case protocol.TypePing:
		reply, err = protocol.NewMessage(protocol.TypePong, struct{}{})
	default:
		reply, err = protocol.NewMessage(protocol.TypeError, protocol.ErrorPayload{
			Code:    protocol.ErrCodeInvalidInput,
			Message: "watchers cannot send " + string(msg.Type),
		})
	}
	if err != nil {
		return
	}

	// The send queue is closed once the client is unregistered
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.gameClients[client.GameID][client] {
		client.Send(reply)
	}
}

// Client is a websocket connection watching one game.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan *protocol.Message

	GameID string
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 65536
)

// NewClient creates a new client.
func NewClient(hub *Hub, conn *websocket.Conn, gameID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan *protocol.Message, 256),
		GameID: gameID,
	}
}

// Send queues a message to be sent to the client.
func (c *Client) Send(msg *protocol.Message) {
	select {
	case c.send <- msg:
	default:
		// Channel full, client too slow
		c.hub.Unregister(c)
	}
}

// ReadPump reads control messages from the websocket.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("gameId", c.GameID).Msg("WebSocket error")
			}
			break
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Msg("Invalid message")
			continue
		}

		c.hub.handleMessage(c, &msg)
	}
}

// WritePump pumps messages from the hub to the websocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				log.Error().Err(err).Msg("Failed to marshal message")
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
