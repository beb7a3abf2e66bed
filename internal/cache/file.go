package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leapstack-labs/assetlink/pkg/core"
)

// FileConfig configures a FileStore.
type FileConfig struct {
	// Dir is the directory holding one <key>.json file per dataset.
	Dir string
	// Now returns the current time (optional, defaults to time.Now).
	Now func() time.Time
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// FileStore is a core.CacheStore backed by JSON files.
type FileStore struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

var _ core.CacheStore = (*FileStore)(nil)

// NewFileStore creates a file-backed cache store. The directory is created
// lazily on the first save.
func NewFileStore(cfg FileConfig) *FileStore {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FileStore{dir: cfg.Dir, now: now, logger: logger}
}

// Path returns the file backing key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

// Load reads the entry for key. Missing files are absent; unreadable or
// malformed files are logged as corrupt and reported absent.
func (s *FileStore) Load(key string) (*core.CacheEntry, bool) {
	path := s.Path(key)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("no cache entry", "key", key, "path", path)
		return nil, false
	}
	if err != nil {
		s.warnCorrupt(key, path, err)
		return nil, false
	}

	entry, skipped, err := Decode(raw)
	if err != nil {
		s.warnCorrupt(key, path, err)
		return nil, false
	}
	if len(skipped) > 0 {
		s.logger.Warn("ignored malformed cache records",
			"key", key, "path", path, "skipped", len(skipped), "first_index", skipped[0])
	}

	s.logger.Debug("loaded cache entry", "key", key, "records", len(entry.Records),
		"captured_at", entry.CapturedAt.Format(time.RFC3339))
	return entry, true
}

func (s *FileStore) warnCorrupt(key, path string, err error) {
	s.logger.Warn("treating cache entry as absent",
		"path", path, "error", &core.CacheCorruptionError{Key: key, Err: err})
}

// IsValid reports whether an entry exists for key and is younger than maxAge.
func (s *FileStore) IsValid(key string, maxAge time.Duration) bool {
	entry, ok := s.Load(key)
	if !ok {
		return false
	}
	valid := entry.ValidAt(s.now(), maxAge)
	s.logger.Debug("checked cache validity", "key", key, "valid", valid,
		"age", entry.Age(s.now()).Round(time.Second).String())
	return valid
}

// Save atomically replaces the entry for key with records captured now.
// The stored timestamp never moves backwards for a key.
func (s *FileStore) Save(key string, records []core.AssetRecord) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("cache key is required")
	}

	capturedAt := s.now().UTC()
	if prev, ok := s.Load(key); ok && prev.CapturedAt.After(capturedAt) {
		capturedAt = prev.CapturedAt
	}

	raw, err := Encode(&core.CacheEntry{CapturedAt: capturedAt, Records: records})
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}

	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if err := writeFileAtomic(s.Path(key), raw); err != nil {
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}

	s.logger.Info("saved cache entry", "key", key, "records", len(records), "path", s.Path(key))
	return nil
}

// Clear removes the entry for key. Clearing a missing entry is not an error.
func (s *FileStore) Clear(key string) error {
	err := os.Remove(s.Path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear cache entry %s: %w", key, err)
	}
	if err == nil {
		s.logger.Info("cleared cache entry", "key", key)
	}
	return nil
}

// Status describes the entry for key without returning its records.
func (s *FileStore) Status(key string, maxAge time.Duration) core.CacheStatus {
	status := core.CacheStatus{Key: key}
	entry, ok := s.Load(key)
	if !ok {
		return status
	}
	now := s.now()
	status.Present = true
	status.AgeSeconds = entry.Age(now).Seconds()
	status.Valid = entry.ValidAt(now, maxAge)
	status.Records = len(entry.Records)
	return status
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
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
	return os.Rename(tmpName, path)
}

// sanitizeKey maps a dataset key onto a safe file name.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, key)
}
