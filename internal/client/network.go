// Package client implements a watcher for Land Rush games.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"landrush/internal/protocol"
)

// Watcher follows the updates of one game over a websocket.
type Watcher struct {
	conn     *websocket.Conn
	sendChan chan *protocol.Message
	done     chan struct{}
	mu       sync.Mutex

	// Callbacks
	OnMessage    func(*protocol.Message)
	OnConnect    func()
	OnDisconnect func(error)

	connected bool
}

// NewWatcher creates a new watcher.
func NewWatcher() *Watcher {
	return &Watcher{
		sendChan: make(chan *protocol.Message, 64),
		done:     make(chan struct{}),
	}
}

// WatchURL builds the websocket address for a game. The server address may
// be a bare host:port or carry an http(s) or ws(s) scheme.
func WatchURL(serverAddr, gameID string) string {
	host := strings.TrimRight(serverAddr, "/")
	scheme := "ws"
	switch {
	case strings.HasPrefix(host, "https://"):
		scheme, host = "wss", strings.TrimPrefix(host, "https://")
	case strings.HasPrefix(host, "http://"):
		host = strings.TrimPrefix(host, "http://")
	case strings.HasPrefix(host, "wss://"):
		scheme, host = "wss", strings.TrimPrefix(host, "wss://")
	case strings.HasPrefix(host, "ws://"):
		host = strings.TrimPrefix(host, "ws://")
	}
	return fmt.Sprintf("%s://%s/ws?game=%s", scheme, host, url.QueryEscape(gameID))
}

// Connect establishes a connection to the server and starts watching.
func (c *Watcher) Connect(ctx context.Context, serverAddr, gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	addr := WatchURL(serverAddr, gameID)
	log.Debug().Str("url", addr).Msg("Connecting")

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, addr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c.conn = conn
	c.connected = true
	c.done = make(chan struct{})

	go c.readPump(conn)
	go c.writePump(conn)

	if c.OnConnect != nil {
		c.OnConnect()
	}

	return nil
}

// Disconnect closes the connection.
func (c *Watcher) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return
	}

	c.connected = false
	close(c.done)

	if c.conn != nil {
		c.conn.Close(websocket.StatusNormalClosure, "")
		c.conn = nil
	}
}

// IsConnected returns true if connected to server.
func (c *Watcher) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Send queues a message to be sent to the server.
func (c *Watcher) Send(msg *protocol.Message) {
	select {
	case c.sendChan <- msg:
	default:
		log.Warn().Str("type", string(msg.Type)).Msg("Send channel full, dropping message")
	}
}

// SendPayload creates and sends a message with the given type and payload.
func (c *Watcher) SendPayload(msgType protocol.MessageType, payload interface{}) error {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	c.Send(msg)
	return nil
}

// readPump reads messages from the websocket.
func (c *Watcher) readPump(conn *websocket.Conn) {
	var readErr error
	defer func() {
		c.mu.Lock()
		wasConnected := c.connected
		c.connected = false
		c.mu.Unlock()

		if wasConnected && c.OnDisconnect != nil {
			c.OnDisconnect(readErr)
		}
	}()

	conn.SetReadLimit(65536)

	for {
		select {
		case <-c.done:
			return
		default:
		}

		// The server pings, so a dead connection ends the read
		msgType, data, err := conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				readErr = err
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Msg("Failed to unmarshal message")
			continue
		}

		if c.OnMessage != nil {
			c.OnMessage(&msg)
		}
	}
}

// writePump writes queued messages to the websocket.
func (c *Watcher) writePump(conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.sendChan:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to marshal message")
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.Warn().Err(err).Msg("WebSocket write error")
				return
			}

		case <-ticker.C:
			if err := c.SendPayload(protocol.TypePing, struct{}{}); err != nil {
				return
			}
		}
	}
}

// DecodeUpdate parses the payload of an update into its typed form.
func DecodeUpdate(msg *protocol.Message) (interface{}, error) {
	var v interface{}
	switch msg.Type {
	case protocol.TypeWelcome, protocol.TypeGameStarted:
		v = &protocol.WelcomePayload{}
	case protocol.TypePlayerJoined:
		v = &protocol.PlayerJoinedPayload{}
	case protocol.TypeBidsPlaced:
		v = &protocol.BidsPlacedPayload{}
	case protocol.TypeTurnCompleted:
		v = &protocol.TurnCompletedPayload{}
	case protocol.TypeGameFinished:
		v = &protocol.GameFinishedPayload{}
	case protocol.TypeError:
		v = &protocol.ErrorPayload{}
	case protocol.TypePong:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
	if err := msg.ParsePayload(v); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", msg.Type, err)
	}
	return v, nil
}
