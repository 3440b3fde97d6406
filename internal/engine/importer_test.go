package engine_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-cardology/internal/config"
	"github.com/tartampluch/go-cardology/internal/engine"
)

const addressBook = `BEGIN:VCARD
VERSION:3.0
FN:Ada Byron
BDAY:1991-01-01
END:VCARD
BEGIN:VCARD
VERSION:3.0
FN:No Year
BDAY:--10-25
END:VCARD
BEGIN:VCARD
VERSION:3.0
FN:No Birthday
END:VCARD
BEGIN:VCARD
VERSION:3.0
N:Lovelace;Ada;;;
BDAY:19901025
END:VCARD
BEGIN:VCARD
VERSION:3.0
FN:Bad Date
BDAY:someday
END:VCARD
`

func TestReadContacts(t *testing.T) {
	contacts, stats, err := engine.ReadContacts(context.Background(), strings.NewReader(addressBook))
	require.NoError(t, err)

	assert.Equal(t, engine.ImportStats{Processed: 5, Skipped: 3}, stats)
	require.Len(t, contacts, 2)

	assert.Equal(t, "Ada Byron", contacts[0].Name)
	assert.Equal(t, date(1991, 1, 1), contacts[0].BirthDate)

	assert.Equal(t, "Ada Lovelace", contacts[1].Name, "N is used when FN is missing")
	assert.Equal(t, date(1990, 10, 25), contacts[1].BirthDate)
}

func TestReadContacts_Empty(t *testing.T) {
	contacts, stats, err := engine.ReadContacts(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, contacts)
	assert.Zero(t, stats.Processed)
}

func TestReadContacts_Garbage(t *testing.T) {
	_, _, err := engine.ReadContacts(context.Background(), strings.NewReader("this is not a vcard"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrVCardParse)
}

func TestReadContacts_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := engine.ReadContacts(ctx, strings.NewReader(addressBook))
	assert.ErrorIs(t, err, context.Canceled)
}
