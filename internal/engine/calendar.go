package engine

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-cardology/internal/config"
)

// CalendarInput is the data needed to render one person's planetary calendar.
type CalendarInput struct {
	// UID seeds stable event identifiers (typically the profile id).
	UID     string
	Name    string
	Birth   time.Time
	Periods []PlanetaryPeriod
}

// CalendarExporter renders the current planetary cycle and the next birthday as iCalendar.
type CalendarExporter struct {
	Clock Clock

	// FormatPeriod and FormatBirthday let callers inject localized summaries.
	FormatPeriod   func(planet, card string) string
	FormatBirthday func(name string, age int) string
}

// Export builds the calendar. The cycle starts on the most recent birthday; each period
// runs until the next one starts and Neptune ends where the following Mercury begins.
func (e *CalendarExporter) Export(in CalendarInput) ([]byte, error) {
	now := e.Clock.Now()

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	uidBase := in.UID
	if uidBase == "" {
		input := fmt.Sprintf(config.FormatUIDKey, in.Name, in.Birth.Format(config.DateFormatFullDash))
		hash := sha256.Sum256([]byte(input))
		uidBase = fmt.Sprintf("%x", hash[:config.UIDHashLength])
	}

	cycleStart := PreviousBirthday(in.Birth, now)
	for _, span := range periodSpans(in.Periods, cycleStart) {
		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, uidBase, span.period.Planet, span.start.Year(), config.ICalDomain))
		event.Props.SetText(config.PropSummary, e.periodSummary(span.period))
		event.Props.SetText(config.PropDescription, fmt.Sprintf("%s - %s", span.period.StartDate, span.period.EndDate))
		setDate(event, config.PropDTStart, span.start)
		setDate(event, config.PropDTEnd, span.end)
		event.Props.Set(dtStampProp)
		cal.Children = append(cal.Children, event.Component)
	}

	next := NextBirthday(in.Birth, now)
	bday := ical.NewEvent()
	bday.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, uidBase, config.UIDBirthday, next.Year(), config.ICalDomain))
	bday.Props.SetText(config.PropSummary, e.birthdaySummary(in.Name, next.Year()-in.Birth.Year()))
	setDate(bday, config.PropDTStart, next)
	bday.Props.Set(dtStampProp)
	cal.Children = append(cal.Children, bday.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	slog.Debug(config.MsgCalendarBuilt,
		config.LogKeyComponent, config.CompCalendar,
		config.LogKeyCount, len(cal.Children),
		config.LogKeySizeBytes, buf.Len())
	return buf.Bytes(), nil
}

func (e *CalendarExporter) periodSummary(p PlanetaryPeriod) string {
	if e.FormatPeriod != nil {
		return e.FormatPeriod(p.Planet, p.Card)
	}
	return fmt.Sprintf(config.FallbackPeriodSummary, p.Planet, p.Card)
}

func (e *CalendarExporter) birthdaySummary(name string, age int) string {
	if e.FormatBirthday != nil {
		return e.FormatBirthday(name, age)
	}
	return fmt.Sprintf(config.FallbackBirthdaySummary, name, age)
}

type periodSpan struct {
	period     PlanetaryPeriod
	start, end time.Time
}

// periodSpans places the M/D boundaries on concrete dates, walking forward from cycleStart.
// Periods with malformed dates are skipped.
func periodSpans(periods []PlanetaryPeriod, cycleStart time.Time) []periodSpan {
	var spans []periodSpan
	cursor := cycleStart
	for _, p := range periods {
		start, ok := onOrAfter(p.StartDate, cursor)
		if !ok {
			continue
		}
		end, ok := onOrAfter(p.EndDate, start.AddDate(0, 0, 1))
		if !ok {
			continue
		}
		spans = append(spans, periodSpan{period: p, start: start, end: end})
		cursor = end
	}
	return spans
}

// onOrAfter returns the first date matching "M/D" that is not before from.
func onOrAfter(md string, from time.Time) (time.Time, bool) {
	m, d, ok := parseMonthDay(md)
	if !ok {
		return time.Time{}, false
	}
	loc := from.Location()
	c := time.Date(from.Year(), m, d, 0, 0, 0, 0, loc)
	if c.Before(startOfDay(from)) {
		c = time.Date(from.Year()+1, m, d, 0, 0, 0, 0, loc)
	}
	return c, true
}

func setDate(event *ical.Event, name string, t time.Time) {
	prop := ical.NewProp(name)
	prop.SetDate(t)
	event.Props.Set(prop)
}
