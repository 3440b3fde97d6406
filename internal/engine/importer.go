package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/go-cardology/internal/config"
)

// Contact is a name and birthdate extracted from an address book.
type Contact struct {
	Name      string
	BirthDate time.Time
}

// ImportStats summarizes a vCard scan.
type ImportStats struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

// ReadContacts decodes a vCard stream and returns every card with a full birthdate.
// Malformed cards, cards without BDAY and birthdays without a year are skipped:
// a reading needs the age, which needs the year.
func ReadContacts(ctx context.Context, r io.Reader) ([]Contact, ImportStats, error) {
	decoder := vcard.NewDecoder(r)
	var stats ImportStats
	var contacts []Contact

	for {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// The decoder cannot resynchronize after a syntax error.
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompImporter,
				config.LogKeyError, err)
			if stats.Processed == 0 {
				return nil, stats, fmt.Errorf("%s: %w", config.ErrVCardParse, err)
			}
			stats.Skipped++
			break
		}
		stats.Processed++

		bday := card.Get(config.VCardBDAY)
		if bday == nil || bday.Value == "" {
			stats.Skipped++
			continue
		}

		birth, yearKnown, err := ParseDate(bday.Value)
		if err != nil {
			slog.Debug(config.MsgSkippedDate,
				config.LogKeyComponent, config.CompImporter,
				config.LogKeyValue, bday.Value)
			stats.Skipped++
			continue
		}
		if !yearKnown {
			slog.Debug(config.MsgSkippedNoYear,
				config.LogKeyComponent, config.CompImporter,
				config.LogKeyValue, bday.Value)
			stats.Skipped++
			continue
		}

		// FN (formatted) > N (structured) > fallback
		name := config.FallbackName
		if fn := card.Get(config.VCardFN); fn != nil && fn.Value != "" {
			name = fn.Value
		} else if n := card.Name(); n != nil {
			name = joinName(n)
		}

		contacts = append(contacts, Contact{Name: name, BirthDate: birth})
	}

	slog.Info(config.MsgImportDone,
		config.LogKeyComponent, config.CompImporter,
		config.LogKeyCount, len(contacts),
		config.LogKeySkipped, stats.Skipped)
	return contacts, stats, nil
}

func joinName(n *vcard.Name) string {
	switch {
	case n.GivenName != "" && n.FamilyName != "":
		return n.GivenName + " " + n.FamilyName
	case n.GivenName != "":
		return n.GivenName
	case n.FamilyName != "":
		return n.FamilyName
	default:
		return config.FallbackName
	}
}
