package mail

import (
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"

	"landrush/internal/game"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeSender) send(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
	return f.err
}

func newTestGame(t *testing.T) *game.Game {
	t.Helper()
	g, err := game.NewGame("Gold Fields", game.DefaultSettings(3))
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	for _, name := range []string{"Alice", "Bob"} {
		if _, err := g.Join(name); err != nil {
			t.Fatalf("Join: %v", err)
		}
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	g.Turn = 4
	g.Players[0].Email = "alice@example.com"
	g.Players[0].Notify = game.NotifyTurn
	g.Players[1].Email = "not an address"
	g.Players[1].Notify = game.NotifyTurn
	return g
}

func TestCompose(t *testing.T) {
	g := newTestGame(t)

	mails := Compose(g, "https://landrush.example/")
	if len(mails) != 1 {
		t.Fatalf("got %d mails, want 1", len(mails))
	}
	m := mails[0]
	if m.To != "alice@example.com" {
		t.Errorf("to = %q", m.To)
	}
	if m.Subject != `Turn 4 completed in game "Gold Fields"` {
		t.Errorf("subject = %q", m.Subject)
	}
	url := "https://landrush.example/api/games/" + g.ID + "/players/" + g.Players[0].Secret
	if !strings.HasPrefix(m.Body, "Hey Alice,") || !strings.Contains(m.Body, url) {
		t.Errorf("body = %q", m.Body)
	}

	g.Players[0].Notify = game.NotifyNever
	if mails := Compose(g, ""); len(mails) != 0 {
		t.Errorf("got %d mails with notifications off", len(mails))
	}
}

func TestTurnCompleted_SendsInBackground(t *testing.T) {
	g := newTestGame(t)
	fake := &fakeSender{}
	m := New(Config{Host: "smtp.example.com", User: "auctioneer@example.com", Password: "pw"})
	m.send = fake.send

	m.TurnCompleted(g)
	m.Wait()

	if len(fake.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(fake.sent))
	}
	sent := fake.sent[0]
	if sent.addr != "smtp.example.com:587" {
		t.Errorf("addr = %q", sent.addr)
	}
	if sent.from != "auctioneer@example.com" {
		t.Errorf("from = %q, want the user as default sender", sent.from)
	}
	if len(sent.to) != 1 || sent.to[0] != "alice@example.com" {
		t.Errorf("to = %v", sent.to)
	}
	if !strings.Contains(sent.msg, "Subject: Turn 4 completed") || !strings.Contains(sent.msg, "\r\n\r\nHey Alice,") {
		t.Errorf("msg = %q", sent.msg)
	}
}

func TestDeliver(t *testing.T) {
	fake := &fakeSender{err: errors.New("connection refused")}
	msg := Mail{To: "alice@example.com", Subject: "s", Body: "b"}

	m := New(Config{Host: "smtp.example.com", User: "u"})
	m.send = fake.send
	if err := m.Deliver(msg); err == nil {
		t.Error("expected send error")
	}

	unconfigured := New(Config{})
	unconfigured.send = fake.send
	if err := unconfigured.Deliver(msg); err != nil {
		t.Errorf("unconfigured Deliver: %v", err)
	}
	if len(fake.sent) != 1 {
		t.Errorf("unconfigured mailer used SMTP")
	}
}

func TestDeliver_HeadersStayOnOneLine(t *testing.T) {
	g := newTestGame(t)
	g.Name = "x\r\nBcc: victim@example.com"
	mails := Compose(g, "https://landrush.example")
	if len(mails) != 1 {
		t.Fatalf("got %d mails, want 1", len(mails))
	}

	fake := &fakeSender{}
	m := New(Config{Host: "smtp.example.com", User: "u", From: "auctioneer@example.com\nBcc: x@example.com"})
	m.send = fake.send
	if err := m.Deliver(mails[0]); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(fake.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(fake.sent))
	}

	header, _, _ := strings.Cut(fake.sent[0].msg, "\r\n\r\n")
	lines := strings.Split(header, "\r\n")
	if len(lines) != 4 {
		t.Fatalf("header has %d lines, want 4:\n%s", len(lines), header)
	}
	for _, line := range lines {
		if strings.HasPrefix(line, "Bcc:") {
			t.Errorf("injected header line %q", line)
		}
	}
	if !strings.Contains(lines[2], "x  Bcc: victim@example.com") {
		t.Errorf("subject = %q", lines[2])
	}
}

func TestDeliver_EncodesNonASCIISubject(t *testing.T) {
	fake := &fakeSender{}
	m := New(Config{Host: "smtp.example.com", User: "u"})
	m.send = fake.send
	if err := m.Deliver(Mail{To: "alice@example.com", Subject: "Turn 1 completed in game \"Höhe\"", Body: "b"}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !strings.Contains(fake.sent[0].msg, "Subject: =?utf-8?q?") {
		t.Errorf("subject not encoded:\n%s", fake.sent[0].msg)
	}
}
