// Package mail sends turn notifications to players.
package mail

import (
	"fmt"
	"mime"
	"net"
	netmail "net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"landrush/internal/game"
	"landrush/internal/protocol"
)

// Config holds SMTP settings. Without host and user, mails are only logged.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	BaseURL  string // Prefix of the links in mails
}

// Enabled reports whether mails can actually be delivered.
func (c Config) Enabled() bool {
	return c.Host != "" && c.User != ""
}

// Mail is one composed message.
type Mail struct {
	To      string
	Subject string
	Body    string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers mails in the background.
type Mailer struct {
	cfg  Config
	send sendFunc
	wg   sync.WaitGroup
}

// New creates a mailer.
func New(cfg Config) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

// TurnCompleted composes a mail for every player who asked for turn
// notifications and sends them without blocking the caller.
func (m *Mailer) TurnCompleted(g *game.Game) {
	mails := Compose(g, m.cfg.BaseURL)
	if len(mails) == 0 {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for _, msg := range mails {
			if err := m.Deliver(msg); err != nil {
				log.Error().Err(err).Str("gameId", g.ID).Str("to", msg.To).Msg("Failed to send turn mail")
			}
		}
	}()
}

// Wait blocks until all background deliveries are done.
func (m *Mailer) Wait() {
	m.wg.Wait()
}

// Compose builds the turn mails of a game. Players without a valid address
// or with notifications off get none.
func Compose(g *game.Game, baseURL string) []Mail {
	var mails []Mail
	for _, p := range g.Players {
		if p.Notify != game.NotifyTurn || p.Email == "" {
			continue
		}
		addr, err := netmail.ParseAddress(p.Email)
		if err != nil {
			log.Debug().Str("gameId", g.ID).Str("player", p.ID).Msg("Skipping invalid mail address")
			continue
		}
		mails = append(mails, Mail{
			To:      addr.Address,
			Subject: fmt.Sprintf("Turn %d completed in game \"%s\"", g.Turn, g.Name),
			Body: fmt.Sprintf("Hey %s,\n\nan auction has been settled. See the results and place your next bids at\n%s\n\nRegards,\nthe Land Rush auctioneer",
				p.Name, protocol.PlayerURL(baseURL, g.ID, p.Secret)),
		})
	}
	return mails
}

// Deliver sends one mail, or logs it when SMTP is not configured.
func (m *Mailer) Deliver(msg Mail) error {
	if !m.cfg.Enabled() {
		log.Warn().Str("to", msg.To).Msg("SMTP not configured, mail not sent")
		log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Str("body", msg.Body).Msg("Unsent mail")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("From: " + headerValue(m.cfg.From) + "\r\n")
	sb.WriteString("To: " + headerValue(msg.To) + "\r\n")
	sb.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", headerValue(msg.Subject)) + "\r\n")
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	sb.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, m.cfg.From, []string{msg.To}, []byte(sb.String())); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// headerValue flattens control characters so a value stays on one header line.
func headerValue(v string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, v))
}
