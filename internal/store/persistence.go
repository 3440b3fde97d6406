package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/tartampluch/go-cardology/internal/config"
)

// ErrNotFound is returned by Persistence.Load for keys that were never saved.
var ErrNotFound = errors.New(config.ErrPersistNotFound)

var errCorruptState = errors.New(config.ErrPersistLoad)

// Persistence is the storage port of the Store: opaque blobs under string keys.
type Persistence interface {
	Load(ctx context.Context, key string) ([]byte, error)

	// Save writes every key of blobs in one call.
	Save(ctx context.Context, blobs map[string][]byte) error
}

// MemoryPersistence keeps blobs in process memory.
type MemoryPersistence struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{blobs: make(map[string][]byte)}
}

func (m *MemoryPersistence) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryPersistence) Save(ctx context.Context, blobs map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range blobs {
		m.blobs[k] = append([]byte(nil), v...)
	}
	return nil
}

// FilePersistence keeps every key in one JSON envelope file in Dir.
// A save rewrites the whole envelope through a temporary sibling and a rename, so the
// keys of one Save reach the disk together or not at all. Blobs must be JSON.
type FilePersistence struct {
	Dir string

	mu sync.Mutex
}

func NewFilePersistence(dir string) (*FilePersistence, error) {
	if dir == "" {
		return nil, errors.New(config.ErrDataDirEmpty)
	}
	if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}
	return &FilePersistence{Dir: dir}, nil
}

func (f *FilePersistence) path() string {
	return filepath.Join(f.Dir, config.StateFileName)
}

// readEnvelope returns the stored keys. A missing file is an empty envelope.
func (f *FilePersistence) readEnvelope() (map[string]json.RawMessage, error) {
	b, err := os.ReadFile(f.path())
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}

	env := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptState, err)
	}
	return env, nil
}

func (f *FilePersistence) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	env, err := f.readEnvelope()
	if err != nil {
		return nil, err
	}
	b, ok := env[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (f *FilePersistence) Save(ctx context.Context, blobs map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	env, err := f.readEnvelope()
	switch {
	case errors.Is(err, errCorruptState):
		// The store already loaded this file as empty state.
		slog.Warn(config.MsgStateReset,
			config.LogKeyComponent, config.CompStore,
			config.LogKeyFile, f.path(),
			config.LogKeyError, err)
		env = map[string]json.RawMessage{}
	case err != nil:
		return err
	}

	for key, data := range blobs {
		if !json.Valid(data) {
			return fmt.Errorf("%s: %s", config.ErrPersistNotJSON, key)
		}
		env[key] = json.RawMessage(data)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrPersistEncode, err)
	}
	return writeFileAtomic(f.path(), data)
}

func writeFileAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+"*"+config.TempSuffix)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, config.FilePermUserRW); err != nil {
		return err
	}
	return os.Rename(tmpName, target)
}
