package models

import "github.com/google/uuid"

type Player struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Hand       []Card    `json:"-"`
	Eliminated bool      `json:"eliminated"`
	Connected  bool      `json:"connected"`
}

// HandIndex returns the position of the first card in the hand with the same identity, or -1.
func (p *Player) HandIndex(c Card) int {
	for i, h := range p.Hand {
		if h.Same(c) {
			return i
		}
	}
	return -1
}

// Active reports whether the player is still in the game.
func (p *Player) Active() bool {
	return !p.Eliminated
}
