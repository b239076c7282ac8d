package database

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"

	"landrush/internal/game"
)

// ErrCorruptState is returned when a stored game fails its checksum or
// does not decode to a valid game.
var ErrCorruptState = errors.New("corrupt game state")

// encodeState serializes a game to a compressed blob and its checksum.
func encodeState(g *game.Game) ([]byte, string, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode game: %w", err)
	}

	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to compress game: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to compress game: %w", err)
	}

	blob := buf.Bytes()
	return blob, hashState(blob), nil
}

// decodeState verifies and restores a game blob.
func decodeState(blob []byte, hash string) (*game.Game, error) {
	if hashState(blob) != hash {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptState)
	}

	data, err := io.ReadAll(lz4.NewReader(bytes.NewReader(blob)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	var g game.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if g.Board == nil {
		return nil, fmt.Errorf("%w: missing board", ErrCorruptState)
	}
	if err := g.Board.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return &g, nil
}

func hashState(blob []byte) string {
	sum := blake3.Sum256(blob)
	return hex.EncodeToString(sum[:])
}
