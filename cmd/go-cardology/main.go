package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tartampluch/go-cardology/internal/coach"
	"github.com/tartampluch/go-cardology/internal/config"
	"github.com/tartampluch/go-cardology/internal/core"
	"github.com/tartampluch/go-cardology/internal/engine"
	"github.com/tartampluch/go-cardology/internal/server"
	"github.com/tartampluch/go-cardology/internal/store"
	"github.com/zalando/go-keyring"
)

// main is the application entry point.
// It delegates execution to runMain so that deferred calls (like closing log files)
// run before the process terminates; os.Exit() does not run defers.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
func runMain() int {
	// Create a root context that cancels on SIGINT (Ctrl+C) or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}
	return config.ExitCodeSuccess
}

// cli carries the persistent flags and the resources opened for one invocation.
type cli struct {
	debug       bool
	showVersion bool
	logCloser   io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           config.CmdRoot,
		Short:         config.CmdDescRoot,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Command output owns stdout except for the long-running server.
			console := cmd.ErrOrStderr()
			if cmd.Name() == config.CmdServe {
				console = cmd.OutOrStdout()
			}
			c.logCloser = setupLogging(c.debug, console)
			logStartupInfo()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logCloser != nil {
				_ = c.logCloser.Close() // Best effort close
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.showVersion {
				printVersion(cmd.OutOrStdout())
				return nil
			}
			return cmd.Help()
		},
	}

	root.PersistentFlags().BoolVar(&c.debug, config.FlagDebug, false, config.FlagDescDebug)
	root.Flags().BoolVar(&c.showVersion, config.FlagVersion, false, config.FlagDescVersion)

	root.AddCommand(
		newServeCmd(),
		newReadingCmd(),
		newImportCmd(),
		newCredentialsCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdServe,
		Short: config.CmdDescServe,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			settings, err := config.LoadSettings()
			if err != nil {
				return err
			}

			svc, closeStore, err := openService(ctx, settings, engine.RealClock{})
			if err != nil {
				return err
			}
			defer closeStore()

			if err := server.New(svc, settings.BindAddr, settings.Port).Start(ctx); err != nil {
				return err
			}
			slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
			return nil
		},
	}
}

func newReadingCmd() *cobra.Command {
	var birthDate, name, today string

	cmd := &cobra.Command{
		Use:   config.CmdReading,
		Short: config.CmdDescReading,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.LoadSettings()
			if err != nil {
				return err
			}

			var clock engine.Clock = engine.RealClock{}
			if today != "" {
				at, err := engine.ParseBirthDate(today)
				if err != nil {
					return err
				}
				clock = engine.FixedClock{At: at}
			}

			birth, err := engine.ParseBirthDate(birthDate)
			if err != nil {
				return err
			}

			tables, err := loadTables(cmd.Context(), settings)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(engine.NewReader(tables, clock).Read(strings.TrimSpace(name), birth))
		},
	}

	cmd.Flags().StringVar(&birthDate, config.FlagBirthDate, "", config.FlagDescBirthDate)
	cmd.Flags().StringVar(&name, config.FlagName, "", config.FlagDescName)
	cmd.Flags().StringVar(&today, config.FlagToday, "", config.FlagDescToday)
	_ = cmd.MarkFlagRequired(config.FlagBirthDate)
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdImport,
		Short: config.CmdDescImport,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			settings, err := config.LoadSettings()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", config.ErrOpenInput, err)
			}
			defer func() { _ = f.Close() }()

			svc, closeStore, err := openService(ctx, settings, engine.RealClock{})
			if err != nil {
				return err
			}
			defer closeStore()

			res, err := svc.ImportProfiles(ctx, f)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), config.MsgImportOutput, res.Imported, res.Skipped)
			return err
		},
	}
}

func newCredentialsCmd() *cobra.Command {
	var user string

	set := &cobra.Command{
		Use:   config.CmdCredSet,
		Short: config.CmdDescCredSet,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprint(cmd.ErrOrStderr(), config.MsgPasswordPrompt)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("%s: %w", config.ErrReadPassword, err)
				}
				return errors.New(config.ErrPasswordEmpty)
			}
			pass := strings.TrimSpace(scanner.Text())
			if pass == "" {
				return errors.New(config.ErrPasswordEmpty)
			}

			if err := keyring.Set(config.KeyringService, user, pass); err != nil {
				return fmt.Errorf("%s: %w", config.ErrKeyringSet, err)
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), config.MsgCredSaved)
			return err
		},
	}
	set.Flags().StringVar(&user, config.FlagUser, "", config.FlagDescUser)
	_ = set.MarkFlagRequired(config.FlagUser)

	creds := &cobra.Command{
		Use:   config.CmdCredentials,
		Short: config.CmdDescCredentials,
	}
	creds.AddCommand(set)
	return creds
}

// -----------------------------------------------------------------------------
// Wiring
// -----------------------------------------------------------------------------

// openService wires tables, persistence, store, coach and calendar exporter.
// The returned func releases the persistence backend.
func openService(ctx context.Context, s config.Settings, clock engine.Clock) (*core.CardologyService, func(), error) {
	tables, err := loadTables(ctx, s)
	if err != nil {
		return nil, nil, err
	}

	p, closer, err := openPersistence(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if closer != nil {
			_ = closer.Close()
		}
	}

	responder := coach.NewResponder(coach.NewTranslator(s.Language))

	st := store.New(ctx, p, clock)
	st.DefaultTitle = responder.DefaultTitle

	exporter := &engine.CalendarExporter{
		Clock:          clock,
		FormatPeriod:   responder.PeriodSummary,
		FormatBirthday: responder.BirthdaySummary,
	}

	svc := core.NewCardologyService(engine.NewReader(tables, clock), st, responder, exporter, s.ReplyDelay)
	return svc, release, nil
}

// loadTables reads the lookup tables from the configured source. The web source
// password is read from the system keyring.
func loadTables(ctx context.Context, s config.Settings) (*engine.Tables, error) {
	src := engine.TableSource{
		Mode: s.TablesMode,
		Path: s.TablesPath,
		URL:  s.TablesURL,
		User: s.TablesUser,
	}

	if s.TablesMode == config.TablesModeWeb && s.TablesUser != "" {
		pass, err := keyring.Get(config.KeyringService, s.TablesUser)
		if err != nil {
			slog.Warn(config.MsgPassFail,
				config.LogKeyComponent, config.CompMain,
				config.LogKeyError, err,
			)
		}
		src.Pass = pass
	}

	loader := engine.TableLoader{Fetcher: engine.NewHTTPFetcher()}
	return loader.Load(ctx, src)
}

// openPersistence selects the storage backend. The returned closer may be nil.
func openPersistence(ctx context.Context, s config.Settings) (store.Persistence, io.Closer, error) {
	if s.StoreMode == config.StoreModeMemory {
		return store.NewMemoryPersistence(), nil, nil
	}

	dir, err := dataDir(s)
	if err != nil {
		return nil, nil, err
	}

	if s.StoreMode == config.StoreModeSQLite {
		db, err := store.OpenSQLite(ctx, filepath.Join(dir, config.SQLiteFileName))
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	}

	fp, err := store.NewFilePersistence(dir)
	if err != nil {
		return nil, nil, err
	}
	return fp, nil, nil
}

// dataDir resolves the persistence directory, defaulting to the user config dir.
func dataDir(s config.Settings) (string, error) {
	dir := s.DataDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("%s: %w", config.ErrConfigDir, err)
		}
		dir = filepath.Join(base, config.AppID)
	}
	if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}
	return dir, nil
}

// -----------------------------------------------------------------------------
// Logging & Build Info
// -----------------------------------------------------------------------------

// printVersion outputs the build information.
func printVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger to write JSON to console and,
// when possible, to a log file in the user's cache directory.
func setupLogging(debugMode bool, console io.Writer) io.Closer {
	writers := []io.Writer{console}
	var logFile *os.File

	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts)))

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)

	// Restricted permissions (700).
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}
