package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Settings holds the runtime configuration read from the environment.
type Settings struct {
	Port     string `env:"CARDOLOGY_PORT"      envDefault:"18081"`
	BindAddr string `env:"CARDOLOGY_BIND_ADDR" envDefault:"127.0.0.1"`

	// StoreMode selects the persistence adapter (file, sqlite or memory).
	StoreMode string `env:"CARDOLOGY_STORE"    envDefault:"file"`
	DataDir   string `env:"CARDOLOGY_DATA_DIR"`

	// TablesMode selects where lookup tables come from (embedded, local or web).
	TablesMode string `env:"CARDOLOGY_TABLES_SOURCE" envDefault:"embedded"`
	TablesPath string `env:"CARDOLOGY_TABLES_PATH"`
	TablesURL  string `env:"CARDOLOGY_TABLES_URL"`
	TablesUser string `env:"CARDOLOGY_TABLES_USER"`

	Language   string        `env:"CARDOLOGY_LANGUAGE"    envDefault:"en"`
	ReplyDelay time.Duration `env:"CARDOLOGY_REPLY_DELAY" envDefault:"1s"`
}

// LoadSettings reads an optional .env file and parses the environment into Settings.
// The returned settings are validated.
func LoadSettings() (Settings, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug(MsgEnvFileMissing, LogKeyComponent, CompConfig)
	}

	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("%s: %w", ErrEnvParse, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the settings for values the application cannot run with.
func (s Settings) Validate() error {
	if err := ValidatePort(s.Port); err != nil {
		return err
	}

	switch s.StoreMode {
	case StoreModeMemory:
	case StoreModeFile, StoreModeSQLite:
		// DataDir may be empty; the caller falls back to the user config dir.
	default:
		return fmt.Errorf("%s: %q", ErrStoreUnsupport, s.StoreMode)
	}

	switch s.TablesMode {
	case TablesModeEmbedded:
	case TablesModeLocal:
		if s.TablesPath == "" {
			return errors.New(ErrLocalPathEmpty)
		}
	case TablesModeWeb:
		if s.TablesURL == "" {
			return errors.New(ErrWebURLEmpty)
		}
	default:
		return fmt.Errorf("%s: %q", ErrModeUnsupport, s.TablesMode)
	}

	if !slices.Contains(SupportedLanguages, s.Language) {
		return fmt.Errorf("%s: %q", ErrLanguageUnsupport, s.Language)
	}
	if s.ReplyDelay < 0 {
		return errors.New(ErrReplyDelay)
	}
	return nil
}

// ValidatePort checks that a port string is a number within the TCP range.
func ValidatePort(port string) error {
	if port == "" {
		return errors.New(ErrPortRequired)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return errors.New(ErrPortNumber)
	}
	if n < MinPort || n > MaxPort {
		return errors.New(ErrPortRange)
	}
	return nil
}
