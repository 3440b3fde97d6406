package engine

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/go-cardology/internal/config"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PlanetaryPeriod is one of the seven ~52-day segments of a birthday-to-birthday cycle.
type PlanetaryPeriod struct {
	Planet    string `json:"planet"`
	Card      string `json:"card"`
	StartDate string `json:"startDate"` // M/D
	EndDate   string `json:"endDate"`   // M/D, start of the following period
}

// PeriodEntry is the raw table record for one birthdate.
type PeriodEntry struct {
	Card    string            `json:"card" yaml:"card"`
	Periods map[string]string `json:"periods" yaml:"periods"`
}

// PeriodResolver maps "Month Day" keys to the seven planetary periods.
type PeriodResolver struct {
	table map[string]PeriodEntry
}

// NewPeriodResolver wraps a planetary period table.
func NewPeriodResolver(table map[string]PeriodEntry) *PeriodResolver {
	return &PeriodResolver{table: table}
}

// ResolveAll returns the seven periods in Mercury..Neptune order, or an empty slice.
// Each period ends where the next one starts; Neptune ends at Mercury's start.
func (r *PeriodResolver) ResolveAll(dateKey string) []PlanetaryPeriod {
	entry, ok := r.table[dateKey]
	if !ok {
		slog.Debug(config.MsgNoPeriods,
			config.LogKeyComponent, config.CompEngine,
			config.LogKeyDateKey, dateKey)
		return []PlanetaryPeriod{}
	}

	// Casers are stateful; one per call.
	title := cases.Title(language.English)

	n := len(config.PlanetKeys)
	out := make([]PlanetaryPeriod, 0, n)
	for i, planet := range config.PlanetKeys {
		next := config.PlanetKeys[(i+1)%n]
		out = append(out, PlanetaryPeriod{
			Planet:    title.String(planet),
			Card:      entry.Card,
			StartDate: entry.Periods[planet],
			EndDate:   entry.Periods[next],
		})
	}
	return out
}

// ResolveCurrent returns the period containing today.
// Dates compare as month*31+day ordinals; a period whose start is after its end wraps the year.
func ResolveCurrent(periods []PlanetaryPeriod, today time.Time) (PlanetaryPeriod, bool) {
	t := int(today.Month())*config.DayOrdinalMonthFactor + today.Day()
	for _, p := range periods {
		if p.contains(t) {
			return p, true
		}
	}
	return PlanetaryPeriod{}, false
}

// contains applies the half-open [start, end) rule to a day ordinal.
func (p PlanetaryPeriod) contains(t int) bool {
	start, ok := dayOrdinal(p.StartDate)
	if !ok {
		return false
	}
	end, ok := dayOrdinal(p.EndDate)
	if !ok {
		return false
	}
	if start <= end {
		return start <= t && t < end
	}
	return t >= start || t < end
}

// dayOrdinal converts "M/D" to month*31+day.
func dayOrdinal(md string) (int, bool) {
	m, d, ok := parseMonthDay(md)
	if !ok {
		return 0, false
	}
	return int(m)*config.DayOrdinalMonthFactor + d, true
}

func parseMonthDay(md string) (time.Month, int, bool) {
	ms, ds, found := strings.Cut(md, "/")
	if !found {
		slog.Debug(config.MsgBadMonthDay, config.LogKeyComponent, config.CompEngine, config.LogKeyValue, md)
		return 0, 0, false
	}
	m, errM := strconv.Atoi(strings.TrimSpace(ms))
	d, errD := strconv.Atoi(strings.TrimSpace(ds))
	if errM != nil || errD != nil || m < 1 || m > 12 || d < 1 || d > 31 {
		slog.Debug(config.MsgBadMonthDay, config.LogKeyComponent, config.CompEngine, config.LogKeyValue, md)
		return 0, 0, false
	}
	return time.Month(m), d, true
}
