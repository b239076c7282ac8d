package game

import (
	"time"

	"landrush/pkg/board"
)

// Snapshot is a read-only view of a game for rendering. Bids and secrets of
// other players are left out.
type Snapshot struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Status          Status       `json:"status"`
	Turn            int          `json:"turn"`
	RemainingTurns  int          `json:"remainingTurns"`
	NextDeadline    time.Time    `json:"nextDeadline"`
	Settings        Settings     `json:"settings"`
	Board           *board.Board `json:"board"`
	Lands           []LandView   `json:"lands"`
	Auction         []string     `json:"auction"`
	UpcomingAuction []string     `json:"upcomingAuction"`
	LastAuction     []Sale       `json:"lastAuction"`
	Players         []PlayerView `json:"players"`
	Standings       []string     `json:"standings,omitempty"` // Player IDs by money, once finished
	Me              *PlayerView  `json:"me,omitempty"`
}

// LandView is the ownership state of one land.
type LandView struct {
	ID          string `json:"id"`
	Owner       string `json:"owner,omitempty"`
	OwnerNumber int    `json:"ownerNumber,omitempty"`
	Price       int    `json:"price,omitempty"`
	Color       int    `json:"color"`
}

// PlayerView is the publicly visible state of a player. Private fields are
// only filled for the viewing player.
type PlayerView struct {
	ID              string `json:"id"`
	Number          int    `json:"number"`
	Name            string `json:"name"`
	Money           int    `json:"money"`
	Rank            int    `json:"rank"`
	Payout          int    `json:"payout"`
	ConnectedLands  int    `json:"connectedLands"`
	Lands           int    `json:"lands"`
	Autonomous      bool   `json:"autonomous"`
	Withdrawn       bool   `json:"withdrawn"`
	MissedDeadlines int    `json:"missedDeadlines"`
	BidsPlaced      bool   `json:"bidsPlaced"`
	Me              bool   `json:"me"`

	Bids   []int  `json:"bids,omitempty"`
	Secret string `json:"secret,omitempty"`
	Email  string `json:"email,omitempty"`
	Notify Notify `json:"notify,omitempty"`
}

// Snapshot builds the view of a game as seen by the player holding
// viewerSecret. An empty secret gives the public view.
func (g *Game) Snapshot(viewerSecret string) Snapshot {
	s := Snapshot{
		ID:              g.ID,
		Name:            g.Name,
		Status:          g.Status,
		Turn:            g.Turn,
		RemainingTurns:  g.remainingTurns(),
		NextDeadline:    g.NextDeadline,
		Settings:        g.Settings,
		Board:           g.Board,
		Auction:         append([]string(nil), g.Auction...),
		UpcomingAuction: append([]string(nil), g.UpcomingAuction...),
		LastAuction:     append([]Sale(nil), g.LastAuction...),
	}

	numbers := make(map[string]int, len(g.Players))
	for _, p := range g.Players {
		numbers[p.ID] = p.Number
	}
	for _, id := range g.Board.LandIDs() {
		t := g.Territories[id]
		s.Lands = append(s.Lands, LandView{
			ID:          id,
			Owner:       t.Owner,
			OwnerNumber: numbers[t.Owner],
			Price:       t.Price,
			Color:       g.Board.Land(id).Color,
		})
	}

	counts := g.territoryCounts()
	for _, p := range g.Players {
		v := PlayerView{
			ID:              p.ID,
			Number:          p.Number,
			Name:            p.Name,
			Money:           p.Money,
			Rank:            p.Rank,
			Payout:          p.Payout,
			ConnectedLands:  p.ConnectedLands,
			Lands:           counts[p.ID],
			Autonomous:      p.IsAutonomous(),
			Withdrawn:       p.Withdrawn,
			MissedDeadlines: p.MissedDeadlines,
			BidsPlaced:      p.HasBids(),
		}
		if viewerSecret != "" && p.Secret == viewerSecret {
			v.Me = true
			v.Bids = append([]int(nil), p.Bids...)
			v.Secret = p.Secret
			v.Email = p.Email
			v.Notify = p.Notify
			me := v
			s.Me = &me
		}
		s.Players = append(s.Players, v)
	}

	if g.IsOver() {
		for _, p := range g.Standings() {
			s.Standings = append(s.Standings, p.ID)
		}
	}
	return s
}
