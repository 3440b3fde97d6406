package engine

import (
	"time"

	"github.com/tartampluch/go-cardology/internal/config"
)

// Reading combines every lookup for one birthdate at one point in time.
// It is the plain-data record handed to the presentation boundary and the chat responder.
type Reading struct {
	Name              string            `json:"name,omitempty"`
	BirthDate         string            `json:"birthDate"`
	DateKey           string            `json:"dateKey"`
	Age               int               `json:"age"`
	NextBirthday      string            `json:"nextBirthday"`
	DaysUntilBirthday int               `json:"daysUntilBirthday"`
	BirthCard         BirthCard         `json:"birthCard"`
	Forecast          Forecast          `json:"forecast"`
	Periods           []PlanetaryPeriod `json:"periods"`
	CurrentPeriod     *PlanetaryPeriod  `json:"currentPeriod,omitempty"`
	Activation        string            `json:"activation"`
}

// Reader wires the resolvers together.
type Reader struct {
	Clock       Clock
	BirthCards  *BirthCardResolver
	Forecasts   *ForecastResolver
	Periods     *PeriodResolver
	Activations *ActivationResolver
}

// NewReader builds a Reader over loaded tables.
func NewReader(t *Tables, clock Clock) *Reader {
	return &Reader{
		Clock:       clock,
		BirthCards:  NewBirthCardResolver(t.BirthCards),
		Forecasts:   NewForecastResolver(t.Forecasts),
		Periods:     NewPeriodResolver(t.Periods),
		Activations: NewActivationResolver(t.Activities),
	}
}

// Read resolves a reading for "now" as reported by the Reader's clock.
func (r *Reader) Read(name string, birth time.Time) Reading {
	return r.ReadAt(name, birth, r.Clock.Now())
}

// ReadAt resolves a reading for an explicit instant.
func (r *Reader) ReadAt(name string, birth, now time.Time) Reading {
	key := DateKey(birth)
	card := r.BirthCards.Resolve(key)
	age := AgeInYears(birth, now)
	periods := r.Periods.ResolveAll(key)

	reading := Reading{
		Name:              name,
		BirthDate:         birth.Format(config.DateFormatFullDash),
		DateKey:           key,
		Age:               age,
		NextBirthday:      NextBirthday(birth, now).Format(config.DateFormatFullDash),
		DaysUntilBirthday: DaysUntilBirthday(birth, now),
		BirthCard:         card,
		Forecast:          r.Forecasts.Resolve(card.Card, age),
		Periods:           periods,
		Activation:        r.Activations.Activation(card.Card),
	}
	if current, ok := ResolveCurrent(periods, now); ok {
		reading.CurrentPeriod = &current
	}
	return reading
}
