// internal/game/rules.go
package game

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/forty/internal/models"
)

const (
	// Limit is the highest total a play may leave behind without eliminating the player.
	Limit = 40

	MinPlayers = 2
	// MaxSeats is the hard ceiling on players per session.
	MaxSeats = 13

	MaxNameLength = 20
)

// Rules holds the per-game configuration. Server-wide defaults come from config; the host may
// override individual fields when creating a session.
type Rules struct {
	JokerCount      int                 `json:"jokerCount"`      // jokers added to the 52-card deck
	MaxPlayers      int                 `json:"maxPlayers"`      // seats available, at most MaxSeats
	UniqueNames     bool                `json:"uniqueNames"`     // reject joins that reuse a display name
	AdvanceHostOnly bool                `json:"advanceHostOnly"` // only the host may start the next round
	Values          map[models.Rank]int `json:"values"`          // value table for standard ranks
}

// DefaultValues is the stock value table: number cards count face value, jacks and queens pull
// the total down, kings are neutral.
func DefaultValues() map[models.Rank]int {
	return map[models.Rank]int{
		"A": 1, "2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8, "9": 9, "10": 10,
		"J": -10, "Q": -5, "K": 0,
	}
}

// DefaultRules returns the rules used when nothing is overridden.
func DefaultRules() Rules {
	return Rules{
		JokerCount:      2,
		MaxPlayers:      MaxSeats,
		UniqueNames:     false,
		AdvanceHostOnly: false,
		Values:          DefaultValues(),
	}
}

// ValueOf returns the configured value for a card. Jokers never move the total.
func (rules Rules) ValueOf(rank models.Rank) int {
	if rank == models.RankJoker {
		return 0
	}
	return rules.Values[rank]
}

// Clone returns a copy that does not share the value table.
func (rules Rules) Clone() Rules {
	out := rules
	out.Values = make(map[models.Rank]int, len(rules.Values))
	for k, v := range rules.Values {
		out.Values[k] = v
	}
	return out
}

// Validate checks that the rules describe a playable game.
func (rules Rules) Validate() error {
	if rules.JokerCount < 0 || rules.JokerCount > 8 {
		return ErrInvalidRules.With("jokerCount must be between 0 and 8")
	}
	if rules.MaxPlayers < MinPlayers || rules.MaxPlayers > MaxSeats {
		return ErrInvalidRules.With("maxPlayers must be between %d and %d", MinPlayers, MaxSeats)
	}
	for _, r := range models.StandardRanks {
		if _, ok := rules.Values[r]; !ok {
			return ErrInvalidRules.With("value table is missing rank %s", r)
		}
	}
	return nil
}

// Update applies the fields present in newRules. Missing keys keep their old value.
func (rules *Rules) Update(newRules map[string]interface{}) error {
	assignBool := func(field *bool, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
			*field = b
		}
		return nil
	}

	assignInt := func(field *int, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			n, ok := toInt(val)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
			*field = n
		}
		return nil
	}

	if err := assignInt(&rules.JokerCount, "jokerCount"); err != nil {
		return err
	}
	if err := assignInt(&rules.MaxPlayers, "maxPlayers"); err != nil {
		return err
	}
	if err := assignBool(&rules.UniqueNames, "uniqueNames"); err != nil {
		return err
	}
	if err := assignBool(&rules.AdvanceHostOnly, "advanceHostOnly"); err != nil {
		return err
	}

	if val, exists := newRules["values"]; exists && val != nil {
		table, ok := val.(map[string]interface{})
		if !ok {
			return fmt.Errorf("invalid type for values")
		}
		for k, v := range table {
			rank := models.Rank(strings.ToUpper(k))
			if !(models.Card{Rank: rank, Suit: models.SuitSpades}).Valid() {
				return fmt.Errorf("unknown rank %q in values", k)
			}
			n, ok := toInt(v)
			if !ok {
				return fmt.Errorf("invalid value for rank %s", k)
			}
			rules.Values[rank] = n
		}
	}
	return nil
}

// ParseRules overlays the given map on a copy of current and validates the result.
func ParseRules(newRules map[string]interface{}, current Rules) (Rules, error) {
	rules := current.Clone()
	if err := rules.Update(newRules); err != nil {
		return current, ErrInvalidRules.With("%v", err)
	}
	if err := rules.Validate(); err != nil {
		return current, err
	}
	return rules, nil
}

// JSON numbers decode as float64; accept ints too for callers building maps by hand.
func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
