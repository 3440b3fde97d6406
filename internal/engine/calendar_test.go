package engine_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-cardology/internal/engine"
)

func exportSample(t *testing.T, exporter *engine.CalendarExporter, uid string) string {
	t.Helper()
	tables, err := engine.LoadEmbeddedTables()
	require.NoError(t, err)

	data, err := exporter.Export(engine.CalendarInput{
		UID:     uid,
		Name:    "Ada",
		Birth:   date(1991, 1, 1),
		Periods: engine.NewPeriodResolver(tables.Periods).ResolveAll("January 1"),
	})
	require.NoError(t, err)
	return string(data)
}

func TestCalendarExporter_Export(t *testing.T) {
	exporter := &engine.CalendarExporter{Clock: engine.FixedClock{At: date(2025, 6, 1)}}
	output := exportSample(t, exporter, "profile-1")

	assert.Contains(t, output, "BEGIN:VCALENDAR")
	assert.Contains(t, output, "VERSION:2.0")
	assert.Equal(t, 8, strings.Count(output, "BEGIN:VEVENT"), "seven periods and one birthday")

	// The cycle runs from the last birthday; Neptune ends on the next one.
	assert.Contains(t, output, "DTSTART;VALUE=DATE:20250101")
	assert.Contains(t, output, "DTEND;VALUE=DATE:20250222")
	assert.Contains(t, output, "DTSTART;VALUE=DATE:20251109")
	assert.Contains(t, output, "DTEND;VALUE=DATE:20260101")

	assert.Contains(t, output, "SUMMARY:Mercury period: K♠")
	assert.Contains(t, output, "SUMMARY:Birthday: Ada (35)")
	assert.Contains(t, output, "UID:profile-1-Mercury-2025@gocardology")
	assert.Contains(t, output, "UID:profile-1-birthday-2026@gocardology")
}

func TestCalendarExporter_Decodes(t *testing.T) {
	exporter := &engine.CalendarExporter{Clock: engine.FixedClock{At: date(2025, 6, 1)}}
	output := exportSample(t, exporter, "profile-1")

	cal, err := ical.NewDecoder(bytes.NewBufferString(output)).Decode()
	require.NoError(t, err)
	assert.Len(t, cal.Events(), 8)
}

func TestCalendarExporter_InjectedSummaries(t *testing.T) {
	exporter := &engine.CalendarExporter{
		Clock:          engine.FixedClock{At: date(2025, 6, 1)},
		FormatPeriod:   func(planet, card string) string { return fmt.Sprintf("Période %s : %s", planet, card) },
		FormatBirthday: func(name string, age int) string { return fmt.Sprintf("Anniversaire de %s", name) },
	}
	output := exportSample(t, exporter, "profile-1")

	assert.Contains(t, output, "Période Venus : K♠")
	assert.Contains(t, output, "Anniversaire de Ada")
}

func TestCalendarExporter_StableHashedUID(t *testing.T) {
	exporter := &engine.CalendarExporter{Clock: engine.FixedClock{At: date(2025, 6, 1)}}

	first := exportSample(t, exporter, "")
	second := exportSample(t, exporter, "")

	uidLine := func(s string) string {
		for _, line := range strings.Split(s, "\r\n") {
			if strings.HasPrefix(line, "UID:") {
				return line
			}
		}
		return ""
	}
	require.NotEmpty(t, uidLine(first))
	assert.Equal(t, uidLine(first), uidLine(second))
}

func TestCalendarExporter_NoPeriods(t *testing.T) {
	exporter := &engine.CalendarExporter{Clock: engine.FixedClock{At: date(2025, 6, 1)}}

	data, err := exporter.Export(engine.CalendarInput{UID: "x", Name: "Ghost", Birth: date(1991, 1, 1)})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "BEGIN:VEVENT"))
}
