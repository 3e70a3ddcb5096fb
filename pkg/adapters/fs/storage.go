// Package fs implements core.Storage on a plain directory: every key is one
// file named <key><ext> holding the encoded collection.
//
// Writes are atomic (temp file + rename) and the directory can be watched for
// changes made by other processes, so a running library can reload.
package fs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/quire/pkg/core"
)

const (
	// DefaultExtension is used when Config.Extension is empty.
	DefaultExtension = ".json"

	filePerm = 0644
)

// Config holds the configuration for the filesystem storage.
type Config struct {
	Path         string
	MustExist    bool   // fail Initialize instead of creating Path
	ReadOnly     bool   // reject Set and Remove with core.ErrReadOnly
	Extension    string // file extension of every key, e.g. ".json" or ".yaml"
	Logger       *slog.Logger
	ErrorHandler func(error) // watcher errors; nil only logs them
}

// Storage is a directory-backed core.Storage.
type Storage struct {
	Path   string
	config Config

	mu            sync.RWMutex
	own           map[string]string // key -> digest of the last blob this process wrote
	watcherActive bool
	lastWrite     *time.Time
}

// New creates a filesystem storage. Call Initialize before use.
func New(config Config) *Storage {
	if config.Extension == "" {
		config.Extension = DefaultExtension
	}
	if !strings.HasPrefix(config.Extension, ".") {
		config.Extension = "." + config.Extension
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Storage{
		Path:   config.Path,
		config: config,
		own:    make(map[string]string),
	}
}

// Initialize makes sure the data directory exists.
func (s *Storage) Initialize(ctx context.Context) error {
	if s.config.MustExist || s.config.ReadOnly {
		info, err := os.Stat(s.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("data path does not exist: %s", s.Path)
		}
		if err != nil {
			return fmt.Errorf("failed to stat data path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("data path is not a directory: %s", s.Path)
		}
		return nil
	}

	if err := os.MkdirAll(s.Path, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// Get implements core.Storage.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.file(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, core.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Set implements core.Storage.
func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}
	path, err := s.file(key)
	if err != nil {
		return err
	}

	// Recorded before the rename so the watcher can never observe the new
	// content without knowing it is ours.
	s.remember(key, digest(value))
	if err := writeFileAtomic(path, value, filePerm); err != nil {
		return err
	}

	s.config.Logger.Debug("key written", "key", key, "bytes", len(value))
	return nil
}

// Remove implements core.Storage. Removing an absent key is a no-op.
func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}
	path, err := s.file(key)
	if err != nil {
		return err
	}

	s.remember(key, tombstone)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Keys lists the keys currently stored, sorted.
func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches, err := doublestar.Glob(os.DirFS(s.Path), "*"+s.config.Extension)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		if strings.HasPrefix(m, TempFilePrefix) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(m, s.config.Extension))
	}
	slices.Sort(keys)
	return keys, nil
}

// file maps a key to its path, rejecting keys that would escape the directory.
func (s *Storage) file(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.Path, key+s.config.Extension), nil
}

// keyOf is the inverse of file. It reports false for paths that are not keys
// of this storage (temp files, other extensions, nested paths).
func (s *Storage) keyOf(path string) (string, bool) {
	rel, err := filepath.Rel(s.Path, path)
	if err != nil || strings.ContainsRune(rel, filepath.Separator) {
		return "", false
	}
	if strings.HasPrefix(rel, TempFilePrefix) || !strings.HasSuffix(rel, s.config.Extension) {
		return "", false
	}
	key := strings.TrimSuffix(rel, s.config.Extension)
	if ValidateKey(key) != nil {
		return "", false
	}
	return key, true
}

// ValidateKey rejects keys that are empty, hidden or contain path elements.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty key", core.ErrInvalidInput)
	case strings.HasPrefix(key, "."):
		return fmt.Errorf("%w: key %q must not start with a dot", core.ErrInvalidInput, key)
	case strings.ContainsAny(key, `/\`), strings.Contains(key, ".."):
		return fmt.Errorf("%w: key %q must not contain path elements", core.ErrInvalidInput, key)
	}
	return nil
}

func (s *Storage) remember(key, sum string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.own[key] = sum
	now := time.Now()
	s.lastWrite = &now
}

// isOwnChange reports whether the file behind key holds exactly what this
// process last wrote (or removed).
func (s *Storage) isOwnChange(key, path string) bool {
	current, err := digestFile(path)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.own[key] == current
}

var _ core.Storage = (*Storage)(nil)
var _ core.Initializer = (*Storage)(nil)
var _ core.Watchable = (*Storage)(nil)
