package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tartampluch/go-cardology/internal/config"
)

const day = 24 * time.Hour

// AgeInYears returns the completed years between birth and now.
// The year difference is decremented when now's month/day comes before birth's.
func AgeInYears(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	monthDiff := int(now.Month()) - int(birth.Month())
	if monthDiff < 0 || (monthDiff == 0 && now.Day() < birth.Day()) {
		age--
	}
	return age
}

// NextBirthday returns midnight of the next birthday relative to now, in now's location.
// A birthday falling today is the next birthday.
func NextBirthday(birth, now time.Time) time.Time {
	loc := now.Location()
	year := now.Year()

	// time.Date normalizes Feb 29 to March 1st in non-leap years.
	candidate := time.Date(year, birth.Month(), birth.Day(), 0, 0, 0, 0, loc)
	if candidate.Before(startOfDay(now)) {
		candidate = time.Date(year+1, birth.Month(), birth.Day(), 0, 0, 0, 0, loc)
	}
	return candidate
}

// DaysUntilBirthday returns the whole days between today and the next birthday (0 on the day).
func DaysUntilBirthday(birth, now time.Time) int {
	next := NextBirthday(birth, now)

	// Count calendar days in UTC so DST transitions do not produce 23h or 25h days.
	from := civilUTC(now)
	to := civilUTC(next)
	diff := to.Sub(from)
	if diff < 0 {
		diff = -diff
	}
	return int(math.Ceil(float64(diff) / float64(day)))
}

// PreviousBirthday returns midnight of the most recent birthday on or before today.
func PreviousBirthday(birth, now time.Time) time.Time {
	next := NextBirthday(birth, now)
	if next.Equal(startOfDay(now)) {
		return next
	}
	return time.Date(next.Year()-1, birth.Month(), birth.Day(), 0, 0, 0, 0, now.Location())
}

// DateKey formats a date as the "Month Day" key of the lookup tables (e.g. "January 1").
func DateKey(t time.Time) string {
	return fmt.Sprintf(config.FormatDateKey, t.Month().String(), t.Day())
}

// ParseBirthDate parses a birthdate that must carry a year.
func ParseBirthDate(value string) (time.Time, error) {
	t, yearKnown, err := ParseDate(value)
	if err != nil {
		return time.Time{}, err
	}
	if !yearKnown {
		return time.Time{}, fmt.Errorf("%s: %q", config.ErrDateNoYear, value)
	}
	return t, nil
}

// ParseDate handles the date forms found in API input and vCard BDAY fields.
// The boolean reports whether the value carried a year.
func ParseDate(value string) (time.Time, bool, error) {
	formatsWithYear := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}
	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return t, true, nil
		}
	}

	// Truncated vCard dates (--MM-DD). Year 2000 keeps Feb 29 valid.
	formatsWithoutYear := []string{config.DateFormatNoYearD, config.DateFormatNoYearB}
	for _, f := range formatsWithoutYear {
		if t, err := time.Parse(f, value); err == nil {
			return time.Date(2000, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), false, nil
		}
	}

	return time.Time{}, false, errors.New(config.ErrDateParse)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func civilUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
