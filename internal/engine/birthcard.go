package engine

import (
	"log/slog"

	"github.com/tartampluch/go-cardology/internal/config"
)

// BirthCard is the playing card assigned to a calendar date.
type BirthCard struct {
	// Card is the rank+suit symbol, e.g. "K♥".
	Card string `json:"card" yaml:"card"`

	// Name is the display name, e.g. "King of Hearts".
	Name string `json:"name" yaml:"name"`
}

// UnknownCard is returned for dates missing from the table.
// Every downstream lookup keyed on it resolves to an empty result.
var UnknownCard = BirthCard{Card: config.UnknownCardSymbol, Name: config.UnknownCardName}

// IsUnknown reports whether c is the lookup-miss sentinel.
func (c BirthCard) IsUnknown() bool {
	return c == UnknownCard
}

// BirthCardResolver maps "Month Day" keys to birth cards.
type BirthCardResolver struct {
	table map[string]BirthCard
}

// NewBirthCardResolver wraps a birthdate table. A nil table resolves everything to UnknownCard.
func NewBirthCardResolver(table map[string]BirthCard) *BirthCardResolver {
	return &BirthCardResolver{table: table}
}

// Resolve returns the birth card for an exact "Month Day" key, or UnknownCard.
func (r *BirthCardResolver) Resolve(dateKey string) BirthCard {
	card, ok := r.table[dateKey]
	if !ok {
		slog.Warn(config.MsgNoBirthCard,
			config.LogKeyComponent, config.CompEngine,
			config.LogKeyDateKey, dateKey)
		return UnknownCard
	}
	return card
}
