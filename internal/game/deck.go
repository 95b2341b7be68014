// internal/game/deck.go
package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"

	"github.com/jason-s-yu/forty/internal/models"
)

// BuildDeck returns the ordered card set for a round: the 52 standard cards, suit by suit in
// rank order, followed by the configured number of jokers.
func BuildDeck(rules Rules) []models.Card {
	deck := make([]models.Card, 0, 52+rules.JokerCount)
	for _, suit := range models.StandardSuits {
		for _, rank := range models.StandardRanks {
			deck = append(deck, models.Card{Rank: rank, Suit: suit, Value: rules.ValueOf(rank)})
		}
	}
	for i := 0; i < rules.JokerCount; i++ {
		deck = append(deck, models.Card{Rank: models.RankJoker, Suit: models.SuitNone})
	}
	return deck
}

// Shuffle returns a uniformly random permutation of cards. The input is not modified.
func Shuffle(cards []models.Card, r *rand.Rand) []models.Card {
	out := make([]models.Card, len(cards))
	copy(out, cards)
	r.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Deal partitions cards round-robin into playerCount hands of equal size. The remainder
// (len(cards) mod playerCount) is left undealt.
func Deal(cards []models.Card, playerCount int) ([][]models.Card, error) {
	if playerCount < 1 || playerCount > len(cards) {
		return nil, ErrInsufficientCards.With("cannot deal %d cards to %d players", len(cards), playerCount)
	}
	perHand := len(cards) / playerCount
	hands := make([][]models.Card, playerCount)
	for i := range hands {
		hands[i] = make([]models.Card, 0, perHand)
	}
	for i := 0; i < perHand*playerCount; i++ {
		seat := i % playerCount
		hands[seat] = append(hands[seat], cards[i])
	}
	return hands, nil
}

// newRand seeds a per-session generator from the OS entropy source. A session's generator is
// only used under the session lock.
func newRand() *rand.Rand {
	var seed [8]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(seed[:]))))
}
