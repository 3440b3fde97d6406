package engine

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/tartampluch/go-cardology/internal/config"
	"gopkg.in/yaml.v3"
)

//go:embed tables/*.json
var embeddedTables embed.FS

// Tables holds the four static lookup tables. They are read-only after loading.
type Tables struct {
	BirthCards map[string]BirthCard
	Forecasts  ForecastTable
	Periods    map[string]PeriodEntry
	Activities map[string]ActivityEntry
}

// TableSource describes where lookup tables are read from.
type TableSource struct {
	Mode string // config.TablesMode*
	Path string // directory for config.TablesModeLocal
	URL  string // base URL for config.TablesModeWeb
	User string
	Pass string
}

// TableLoader reads and decodes the lookup tables.
type TableLoader struct {
	Fetcher TableFetcher // Required for config.TablesModeWeb only.
}

// LoadEmbeddedTables returns the tables bundled in the binary.
func LoadEmbeddedTables() (*Tables, error) {
	var l TableLoader
	return l.Load(context.Background(), TableSource{Mode: config.TablesModeEmbedded})
}

// Load reads all four tables from src. Any missing or undecodable table is an error.
func (l *TableLoader) Load(ctx context.Context, src TableSource) (*Tables, error) {
	start := time.Now()
	log := slog.With(config.LogKeyComponent, config.CompTables, config.LogKeyMode, src.Mode)
	log.InfoContext(ctx, config.MsgTablesLoading)

	t := &Tables{}
	targets := []struct {
		name string
		dst  any
	}{
		{config.TableBirthCards, &t.BirthCards},
		{config.TableForecasts, &t.Forecasts},
		{config.TablePeriods, &t.Periods},
		{config.TableActivities, &t.Activities},
	}

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := l.loadOne(ctx, src, target.name, target.dst); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
	}

	log.Info(config.MsgTablesLoaded,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyBirthCards, len(t.BirthCards)),
			slog.Int(config.LogKeyForecasts, len(t.Forecasts)),
			slog.Int(config.LogKeyPeriods, len(t.Periods)),
			slog.Int(config.LogKeyActivities, len(t.Activities)),
		),
		config.LogKeyDuration, time.Since(start).Milliseconds())
	return t, nil
}

func (l *TableLoader) loadOne(ctx context.Context, src TableSource, name string, dst any) error {
	rc, ext, err := l.open(ctx, src, name)
	if err != nil {
		return fmt.Errorf("%s %s: %w", config.ErrTableOpen, name, err)
	}
	defer func() { _ = rc.Close() }()

	slog.Debug(config.MsgTableOpened,
		config.LogKeyComponent, config.CompTables,
		config.LogKeyTable, name,
		config.LogKeyFile, name+ext)

	if err := decodeTable(rc, ext, dst); err != nil {
		return fmt.Errorf("%s %s: %w", config.ErrTableDecode, name, err)
	}
	return nil
}

// open returns a stream for the named table and the extension it was found with.
func (l *TableLoader) open(ctx context.Context, src TableSource, name string) (io.ReadCloser, string, error) {
	switch src.Mode {
	case config.TablesModeEmbedded, "":
		f, err := embeddedTables.Open(path.Join(config.TablesEmbedDir, name+config.ExtJSON))
		return f, config.ExtJSON, err

	case config.TablesModeLocal:
		if src.Path == "" {
			return nil, "", errors.New(config.ErrLocalPathEmpty)
		}
		for _, ext := range config.TableExtensions {
			f, err := os.Open(filepath.Join(src.Path, name+ext))
			if err == nil {
				return f, ext, nil
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, "", err
			}
		}
		return nil, "", fmt.Errorf("%s: %s", config.ErrTableMissing, filepath.Join(src.Path, name))

	case config.TablesModeWeb:
		if src.URL == "" {
			return nil, "", errors.New(config.ErrWebURLEmpty)
		}
		if l.Fetcher == nil {
			return nil, "", errors.New(config.ErrFetcherMissing)
		}
		u := strings.TrimSuffix(src.URL, config.URLPathSeparator) + config.URLPathSeparator + name + config.ExtJSON
		rc, err := l.Fetcher.Fetch(ctx, u, src.User, src.Pass)
		return rc, config.ExtJSON, err

	default:
		return nil, "", fmt.Errorf("%s: %q", config.ErrModeUnsupport, src.Mode)
	}
}

func decodeTable(r io.Reader, ext string, dst any) error {
	switch ext {
	case config.ExtYAML, config.ExtYML:
		return yaml.NewDecoder(r).Decode(dst)
	default:
		return json.NewDecoder(r).Decode(dst)
	}
}
