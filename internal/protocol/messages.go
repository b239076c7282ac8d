// Package protocol defines the JSON payloads of the HTTP API and the
// websocket update messages.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the type of message.
type MessageType string

// Update message types pushed to watchers
const (
	TypeWelcome       MessageType = "welcome"
	TypePlayerJoined  MessageType = "player_joined"
	TypeGameStarted   MessageType = "game_started"
	TypeBidsPlaced    MessageType = "bids_placed"
	TypeTurnCompleted MessageType = "turn_completed"
	TypeGameFinished  MessageType = "game_finished"
)

// System message types
const (
	TypeError MessageType = "error"
	TypePing  MessageType = "ping"
	TypePong  MessageType = "pong"
)

// Message is the envelope for all websocket messages.
type Message struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewMessage creates a new message with the given type and payload.
func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		ID:        uuid.New().String(),
		Timestamp: time.Now().UnixMilli(),
		Payload:   data,
	}, nil
}

// ParsePayload unmarshals the payload into the given type.
func (m *Message) ParsePayload(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}

// ErrorCode represents an error type.
type ErrorCode string

const (
	ErrCodeInvalidInput   ErrorCode = "invalid_input"
	ErrCodeGameNotFound   ErrorCode = "game_not_found"
	ErrCodePlayerNotFound ErrorCode = "player_not_found"
	ErrCodeConflict       ErrorCode = "conflict"
	ErrCodeRateLimited    ErrorCode = "rate_limited"
	ErrCodeInternalError  ErrorCode = "internal_error"
)

// ErrorPayload is the body of every error response.
type ErrorPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}
