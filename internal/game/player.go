package game

// Kind tells how a player's bids are produced.
type Kind string

const (
	KindHuman      Kind = "human"      // Bids come from outside
	KindAutonomous Kind = "autonomous" // Bids come from the bid model
)

// Notify is a player's mail preference.
type Notify string

const (
	NotifyTurn  Notify = "turn"
	NotifyNever Notify = "never"
)

// Severity classifies a player message.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Message is a note queued for a player until it is shown.
type Message struct {
	Text     string   `json:"text"`
	Severity Severity `json:"severity"`
}

// Player represents a player in the game.
type Player struct {
	ID              string    `json:"id"`
	Secret          string    `json:"secret"`
	Number          int       `json:"number"`
	Name            string    `json:"name"`
	Kind            Kind      `json:"kind"`
	Money           int       `json:"money"`
	Bids            []int     `json:"bids"` // nil until placed for the active auction
	LastBidSum      int       `json:"lastBidSum"`
	Payout          int       `json:"payout"` // Received in the last turn
	Rank            int       `json:"rank"`   // 1-based payout rank of the last turn
	ConnectedLands  int       `json:"connectedLands"`
	Withdrawn       bool      `json:"withdrawn"`
	MissedDeadlines int       `json:"missedDeadlines"`
	Messages        []Message `json:"messages"`
	Email           string    `json:"email"`
	Notify          Notify    `json:"notify"`
}

// NewPlayer creates a new human player.
func NewPlayer(id, secret, name string, number, money int) *Player {
	return &Player{
		ID:     id,
		Secret: secret,
		Number: number,
		Name:   name,
		Kind:   KindHuman,
		Money:  money,
		Notify: NotifyTurn,
	}
}

// NewAutonomousPlayer creates a player that bids on its own.
func NewAutonomousPlayer(id, secret, name string, number, money int) *Player {
	p := NewPlayer(id, secret, name, number, money)
	p.Kind = KindAutonomous
	p.Notify = NotifyNever
	return p
}

// IsAutonomous reports whether the bid model acts for this player.
func (p *Player) IsAutonomous() bool {
	return p.Kind == KindAutonomous
}

// HasBids reports whether bids were placed for the active auction.
func (p *Player) HasBids() bool {
	return p.Bids != nil
}

// NeedsAutoBid reports whether the bid model must produce this player's bids.
func (p *Player) NeedsAutoBid() bool {
	return p.IsAutonomous() || !p.HasBids()
}

// AddMessage queues a message for the player.
func (p *Player) AddMessage(text string, severity Severity) {
	p.Messages = append(p.Messages, Message{Text: text, Severity: severity})
}

// DrainMessages returns all queued messages and empties the queue.
func (p *Player) DrainMessages() []Message {
	msgs := p.Messages
	p.Messages = nil
	return msgs
}

// bidSum returns the total of the current bids.
func (p *Player) bidSum() int {
	sum := 0
	for _, b := range p.Bids {
		sum += b
	}
	return sum
}
