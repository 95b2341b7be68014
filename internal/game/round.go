// internal/game/round.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/forty/internal/models"
)

// RoundState tracks one round from deal to conclusion.
type RoundState string

const (
	RoundDealt       RoundState = "dealt"
	RoundInProgress  RoundState = "inProgress"
	RoundElimination RoundState = "elimination"
	RoundConcluded   RoundState = "concluded"
)

// Round is the play sequence between one deal and the next elimination.
type Round struct {
	Number   int
	State    RoundState
	Total    int
	Current  int // seat index of the turn holder
	LastCard *models.Card

	Eliminated uuid.UUID // uuid.Nil until someone busts
	Winner     uuid.UUID // set when the elimination leaves a single player
	Exhausted  bool      // concluded because no active player held a card
}

// PlayOutcome describes a committed play.
type PlayOutcome struct {
	Actor      uuid.UUID
	Card       models.Card
	Total      int
	Next       uuid.UUID // uuid.Nil once the round has concluded
	Redirected bool
	Eliminated uuid.UUID
	Remaining  []uuid.UUID
	Winner     uuid.UUID
	Exhausted  bool
}

// NewRound starts a freshly dealt round with first holding the turn.
func NewRound(number, first int) Round {
	return Round{Number: number, State: RoundDealt, Current: first}
}

// Concluded reports whether the round no longer accepts plays.
func (r *Round) Concluded() bool {
	return r.State == RoundConcluded
}

// Play applies a card from actor to the running total. Every check runs before anything is
// changed, so a returned error leaves the round and the players untouched.
func (r *Round) Play(players []*models.Player, actor uuid.UUID, card models.Card, target *uuid.UUID) (PlayOutcome, error) {
	if r.State != RoundDealt && r.State != RoundInProgress {
		return PlayOutcome{}, ErrWrongPhase.With("round %d is over", r.Number)
	}
	if r.Current < 0 || r.Current >= len(players) || players[r.Current].Eliminated {
		return PlayOutcome{}, ErrCorruptState.With("turn pointer %d does not reference an active player", r.Current)
	}

	actorIdx := seatOf(players, actor)
	if actorIdx < 0 {
		return PlayOutcome{}, ErrPlayerNotFound
	}
	if actorIdx != r.Current {
		return PlayOutcome{}, ErrNotYourTurn
	}
	p := players[actorIdx]
	handIdx := p.HandIndex(card)
	if handIdx < 0 {
		return PlayOutcome{}, ErrCardNotHeld.With("you do not hold %s", card)
	}
	played := p.Hand[handIdx]

	// cards left per seat once this play is committed
	remainingCards := func(i int) int {
		if i == actorIdx {
			return len(players[i].Hand) - 1
		}
		return len(players[i].Hand)
	}

	out := PlayOutcome{Actor: actor, Card: played}
	newTotal := r.Total
	next := -1

	if played.IsJoker() {
		targets := playableTargets(actorIdx, players, remainingCards)
		switch {
		case target != nil:
			idx, err := RedirectTo(actorIdx, *target, players)
			if err != nil {
				return PlayOutcome{}, err
			}
			if remainingCards(idx) == 0 {
				return PlayOutcome{}, ErrInvalidRedirectTarget.With("%s has no cards left", players[idx].Name)
			}
			next = idx
			out.Redirected = true
		case len(targets) > 0:
			return PlayOutcome{}, ErrInvalidRedirectTarget.With("choose a player to take the next turn")
		}
		// with nobody to redirect to the joker passes like a zero card
	} else {
		newTotal += played.Value
	}

	eliminated := newTotal > Limit
	if !eliminated && next < 0 {
		var err error
		next, err = nextHolder(actorIdx, players, remainingCards)
		if err != nil {
			return PlayOutcome{}, err
		}
	}

	// commit
	hand := make([]models.Card, 0, len(p.Hand)-1)
	hand = append(hand, p.Hand[:handIdx]...)
	p.Hand = append(hand, p.Hand[handIdx+1:]...)
	r.Total = newTotal
	r.LastCard = &played
	r.State = RoundInProgress
	out.Total = newTotal

	switch {
	case eliminated:
		r.State = RoundElimination
		p.Eliminated = true
		r.Eliminated = p.ID
		out.Eliminated = p.ID
		for _, pl := range players {
			if pl.Active() {
				out.Remaining = append(out.Remaining, pl.ID)
			}
		}
		if len(out.Remaining) == 1 {
			r.Winner = out.Remaining[0]
			out.Winner = r.Winner
		}
		r.State = RoundConcluded
	case next < 0:
		r.Exhausted = true
		out.Exhausted = true
		r.State = RoundConcluded
	default:
		r.Current = next
		out.Next = players[next].ID
	}
	return out, nil
}

// nextHolder walks seating order from current and returns the first active player who still
// holds a card, or -1 when nobody does.
func nextHolder(current int, players []*models.Player, cards func(int) int) (int, error) {
	idx := current
	for range players {
		var err error
		idx, err = Advance(idx, players)
		if err != nil {
			return -1, err
		}
		if cards(idx) > 0 {
			return idx, nil
		}
	}
	return -1, nil
}

func playableTargets(current int, players []*models.Player, cards func(int) int) []uuid.UUID {
	var out []uuid.UUID
	for _, id := range RedirectTargets(current, players) {
		if cards(seatOf(players, id)) > 0 {
			out = append(out, id)
		}
	}
	return out
}

func seatOf(players []*models.Player, id uuid.UUID) int {
	for i, p := range players {
		if p.ID == id {
			return i
		}
	}
	return -1
}
