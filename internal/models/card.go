package models

import (
	"encoding/json"
	"strings"
)

// Suit is one of the four French suits, or none for a JOKER.
type Suit string

const (
	SuitHearts   Suit = "hearts"
	SuitDiamonds Suit = "diamonds"
	SuitClubs    Suit = "clubs"
	SuitSpades   Suit = "spades"
	SuitNone     Suit = "none"
)

// Rank is a card rank: A, 2-10, J, Q, K or JOKER.
type Rank string

const RankJoker Rank = "JOKER"

// StandardSuits lists the suits of a standard deck in build order.
var StandardSuits = []Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

// StandardRanks lists the ranks of a standard deck in build order.
var StandardRanks = []Rank{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// Card is an immutable value. Two cards are the same card when rank and suit match;
// Value is carried for display and is always derived from the game's value table.
type Card struct {
	Rank  Rank `json:"rank"`
	Suit  Suit `json:"suit"`
	Value int  `json:"value"`
}

// IsJoker reports whether the card triggers a redirect instead of adding to the total.
func (c Card) IsJoker() bool {
	return c.Rank == RankJoker
}

// Same compares card identity, ignoring Value.
func (c Card) Same(other Card) bool {
	return c.Rank == other.Rank && c.Suit == other.Suit
}

func (c Card) String() string {
	if c.IsJoker() {
		return string(RankJoker)
	}
	return string(c.Rank) + " of " + string(c.Suit)
}

// Valid reports whether rank and suit form a card that can exist in a deck.
func (c Card) Valid() bool {
	if c.IsJoker() {
		return c.Suit == SuitNone
	}
	return validRank(c.Rank) && validSuit(c.Suit)
}

type cardJSON struct {
	Rank    string `json:"rank"`
	Suit    string `json:"suit"`
	Value   int    `json:"value"`
	IsJoker bool   `json:"isJoker"`
}

// MarshalJSON adds the isJoker flag the web client keys its redirect dialog on.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardJSON{
		Rank:    string(c.Rank),
		Suit:    string(c.Suit),
		Value:   c.Value,
		IsJoker: c.IsJoker(),
	})
}

// UnmarshalJSON normalizes client input: ranks and suits are case-insensitive, "T" means 10,
// and a joker may arrive with suit "joker", "", or isJoker=true.
func (c *Card) UnmarshalJSON(data []byte) error {
	var raw cardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rank := strings.ToUpper(strings.TrimSpace(raw.Rank))
	if rank == "T" {
		rank = "10"
	}
	suit := Suit(strings.ToLower(strings.TrimSpace(raw.Suit)))
	if raw.IsJoker || rank == string(RankJoker) {
		rank = string(RankJoker)
		suit = SuitNone
	}
	*c = Card{Rank: Rank(rank), Suit: suit, Value: raw.Value}
	return nil
}

func validRank(r Rank) bool {
	for _, sr := range StandardRanks {
		if sr == r {
			return true
		}
	}
	return false
}

func validSuit(s Suit) bool {
	for _, ss := range StandardSuits {
		if ss == s {
			return true
		}
	}
	return false
}
