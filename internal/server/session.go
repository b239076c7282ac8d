package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionTTL = 90 * 24 * time.Hour

// sessionClaims remembers which seat a browser holds in a game.
type sessionClaims struct {
	GameID string `json:"gid"`
	Secret string `json:"sec"`
	jwt.RegisteredClaims
}

// sessions issues and reads signed per-game cookies.
type sessions struct {
	key []byte
}

func newSessions(key []byte) *sessions {
	return &sessions{key: key}
}

func cookieName(gameID string) string {
	return "game-" + gameID
}

// issue stores the player's secret for a game in a signed cookie.
func (s *sessions) issue(w http.ResponseWriter, gameID, secret string) error {
	now := time.Now()
	claims := sessionClaims{
		GameID: gameID,
		Secret: secret,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return fmt.Errorf("failed to sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(gameID),
		Value:    token,
		Path:     "/",
		Expires:  now.Add(sessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// secret returns the player secret stored for a game, if any.
func (s *sessions) secret(r *http.Request, gameID string) (string, bool) {
	cookie, err := r.Cookie(cookieName(gameID))
	if err != nil {
		return "", false
	}

	token, err := jwt.ParseWithClaims(cookie.Value, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return "", false
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || claims.GameID != gameID {
		return "", false
	}
	return claims.Secret, true
}
