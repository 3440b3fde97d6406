package engine

import (
	"log/slog"
	"strconv"

	"github.com/tartampluch/go-cardology/internal/config"
)

// ForecastPosition is one named slot of a yearly spread.
type ForecastPosition struct {
	Type string `json:"type"`
	Card string `json:"card"`
}

// Forecast is a yearly spread in fixed position order.
type Forecast []ForecastPosition

// Card returns the card held by the given position type.
func (f Forecast) Card(positionType string) (string, bool) {
	for _, p := range f {
		if p.Type == positionType {
			return p.Card, true
		}
	}
	return "", false
}

// ForecastEntry is the raw table record for one (card, age) pair.
type ForecastEntry struct {
	Mercury     string `json:"mercury" yaml:"mercury"`
	Venus       string `json:"venus" yaml:"venus"`
	Mars        string `json:"mars" yaml:"mars"`
	Jupiter     string `json:"jupiter" yaml:"jupiter"`
	Saturn      string `json:"saturn" yaml:"saturn"`
	Uranus      string `json:"uranus" yaml:"uranus"`
	Neptune     string `json:"neptune" yaml:"neptune"`
	LongRange   string `json:"longRange" yaml:"longRange"`
	Pluto       string `json:"pluto" yaml:"pluto"`
	Result      string `json:"result" yaml:"result"`
	Support     string `json:"support" yaml:"support"`
	Development string `json:"development" yaml:"development"`
}

// positions lists the entry's cards in the canonical twelve-position order.
func (e ForecastEntry) positions() []ForecastPosition {
	return []ForecastPosition{
		{Type: config.PosMercury, Card: e.Mercury},
		{Type: config.PosVenus, Card: e.Venus},
		{Type: config.PosMars, Card: e.Mars},
		{Type: config.PosJupiter, Card: e.Jupiter},
		{Type: config.PosSaturn, Card: e.Saturn},
		{Type: config.PosUranus, Card: e.Uranus},
		{Type: config.PosNeptune, Card: e.Neptune},
		{Type: config.PosLongRange, Card: e.LongRange},
		{Type: config.PosPluto, Card: e.Pluto},
		{Type: config.PosResult, Card: e.Result},
		{Type: config.PosSupport, Card: e.Support},
		{Type: config.PosDevelopment, Card: e.Development},
	}
}

// ForecastTable is keyed by birth card, then by age as a decimal string.
type ForecastTable map[string]map[string]ForecastEntry

// ForecastResolver looks up yearly spreads.
type ForecastResolver struct {
	table ForecastTable
}

// NewForecastResolver wraps a forecast table.
func NewForecastResolver(table ForecastTable) *ForecastResolver {
	return &ForecastResolver{table: table}
}

// Resolve returns the spread for a card at an age.
// Unknown cards or ages yield an empty, non-nil Forecast. Empty and "None" slots are omitted.
func (r *ForecastResolver) Resolve(card string, age int) Forecast {
	entry, ok := r.table[card][strconv.Itoa(age)]
	if !ok {
		slog.Debug(config.MsgNoForecast,
			config.LogKeyComponent, config.CompEngine,
			config.LogKeyCard, card,
			config.LogKeyAge, age)
		return Forecast{}
	}

	out := make(Forecast, 0, 12)
	for _, p := range entry.positions() {
		if p.Card == "" || p.Card == config.CardNone {
			continue
		}
		out = append(out, p)
	}
	return out
}
