package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-cardology/internal/config"
)

// TestConstants_Integrity ensures critical constants are not empty or malformed.
func TestConstants_Integrity(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"AppName", config.AppName},
		{"AppID", config.AppID},
		{"Version", config.Version},
		{"UserAgent", config.UserAgent},
		{"ICalProdid", config.ICalProdid},
		{"StorageKeyProfiles", config.StorageKeyProfiles},
		{"StorageKeyConversations", config.StorageKeyConversations},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, tt.value, "Critical constant %s should not be empty", tt.name)
		})
	}
}

// TestStorageKeys_Distinct guards against both collections being written to the same key.
func TestStorageKeys_Distinct(t *testing.T) {
	assert.NotEqual(t, config.StorageKeyProfiles, config.StorageKeyConversations)
}

func TestPlanetKeys_Order(t *testing.T) {
	assert.Equal(t,
		[]string{"mercury", "venus", "mars", "jupiter", "saturn", "uranus", "neptune"},
		config.PlanetKeys)
}

// TestUserAgent_Format ensures the UA string follows the standard format.
func TestUserAgent_Format(t *testing.T) {
	assert.True(t, strings.HasPrefix(config.UserAgent, "Go-Cardology/"), "UserAgent must start with AppName/")
}

func TestTimeoutsAndLimits(t *testing.T) {
	t.Parallel()

	assert.Greater(t, config.HTTPTimeout, 0*time.Second)
	assert.Greater(t, config.ShutdownTimeout, 0*time.Second)
	assert.Greater(t, config.MaxHTTPResponseSize, 0)
	assert.Greater(t, config.MaxRequestBodySize, 0)
	assert.Equal(t, time.Second, config.DefaultReplyDelay)
}

// -----------------------------------------------------------------------------
// Settings
// -----------------------------------------------------------------------------

func validSettings() config.Settings {
	return config.Settings{
		Port:       config.DefaultPort,
		BindAddr:   config.DefaultBindAddr,
		StoreMode:  config.StoreModeMemory,
		TablesMode: config.TablesModeEmbedded,
		Language:   config.DefaultLanguage,
		ReplyDelay: config.DefaultReplyDelay,
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Settings)
		wantErr string
	}{
		{"Defaults", func(*config.Settings) {}, ""},
		{"EmptyPort", func(s *config.Settings) { s.Port = "" }, config.ErrPortRequired},
		{"NonNumericPort", func(s *config.Settings) { s.Port = "http" }, config.ErrPortNumber},
		{"PortOutOfRange", func(s *config.Settings) { s.Port = "70000" }, config.ErrPortRange},
		{"UnknownStore", func(s *config.Settings) { s.StoreMode = "redis" }, config.ErrStoreUnsupport},
		{"LocalTablesWithoutPath", func(s *config.Settings) { s.TablesMode = config.TablesModeLocal }, config.ErrLocalPathEmpty},
		{"WebTablesWithoutURL", func(s *config.Settings) { s.TablesMode = config.TablesModeWeb }, config.ErrWebURLEmpty},
		{"UnknownTables", func(s *config.Settings) { s.TablesMode = "s3" }, config.ErrModeUnsupport},
		{"UnknownLanguage", func(s *config.Settings) { s.Language = "de" }, config.ErrLanguageUnsupport},
		{"NegativeDelay", func(s *config.Settings) { s.ReplyDelay = -time.Second }, config.ErrReplyDelay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadSettings_FromEnvironment(t *testing.T) {
	t.Setenv("CARDOLOGY_PORT", "19000")
	t.Setenv("CARDOLOGY_STORE", config.StoreModeSQLite)
	t.Setenv("CARDOLOGY_DATA_DIR", t.TempDir())
	t.Setenv("CARDOLOGY_LANGUAGE", "fr")
	t.Setenv("CARDOLOGY_REPLY_DELAY", "250ms")

	s, err := config.LoadSettings()
	require.NoError(t, err)

	assert.Equal(t, "19000", s.Port)
	assert.Equal(t, config.StoreModeSQLite, s.StoreMode)
	assert.Equal(t, "fr", s.Language)
	assert.Equal(t, 250*time.Millisecond, s.ReplyDelay)
	assert.Equal(t, config.TablesModeEmbedded, s.TablesMode, "Tables default to the embedded copy")
}

func TestLoadSettings_Invalid(t *testing.T) {
	t.Setenv("CARDOLOGY_REPLY_DELAY", "soon")

	_, err := config.LoadSettings()
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrEnvParse)
}
