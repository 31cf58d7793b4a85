// Package storage provides snapshot and override persistence with pluggable backends.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/interfaces"
	"github.com/bobmcallan/vire-recon/internal/models"
)

var errKeyNotFound = errors.New("key not found")

// FileStore provides file-based JSON storage rooted at a single directory.
type FileStore struct {
	basePath string
	logger   *common.Logger
}

// subdirectories defines the directory layout under basePath.
var subdirectories = []string{"snapshots", "overrides", "charts"}

// NewFileStore creates a new FileStore and ensures all subdirectories exist.
func NewFileStore(logger *common.Logger, basePath string) (*FileStore, error) {
	if basePath == "" {
		basePath = "data/snapshots"
	}
	fs := &FileStore{basePath: basePath, logger: logger}

	for _, sub := range subdirectories {
		dir := filepath.Join(fs.basePath, sub)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	logger.Debug().Str("path", basePath).Msg("FileStore opened")
	return fs, nil
}

// sanitizeKey makes a key safe for use as a filename.
// Replaces /, \, : with _ and collapses ".." to "_" to prevent path traversal.
// Single dots are kept, they are common in symbols like HISU.U.
func sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

func (fs *FileStore) filePath(dir, key string) string {
	return filepath.Join(dir, sanitizeKey(key)+".json")
}

// readJSON reads and unmarshals a JSON file. A missing file yields errKeyNotFound.
func (fs *FileStore) readJSON(dir, key string, dest any) error {
	path := fs.filePath(dir, key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("'%s': %w", key, errKeyNotFound)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("'%s' is empty", key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// writeJSON marshals data to indented JSON and writes it atomically.
func (fs *FileStore) writeJSON(dir, key string, data any) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')
	return writeAtomic(dir, fs.filePath(dir, key), jsonData)
}

func (fs *FileStore) deleteJSON(dir, key string) error {
	if err := os.Remove(fs.filePath(dir, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// listKeys returns all keys in a directory, skipping temp files.
func (fs *FileStore) listKeys(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".tmp-") {
			keys = append(keys, strings.TrimSuffix(name, ".json"))
		}
	}
	return keys, nil
}

// WriteRaw writes arbitrary binary data atomically using temp file + rename.
// The key is sanitized for safe filenames (e.g. "2025-06-30.png").
func (fs *FileStore) WriteRaw(subdir, key string, data []byte) (string, error) {
	dir := filepath.Join(fs.basePath, sanitizeKey(subdir))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	target := filepath.Join(dir, sanitizeKey(key))
	if err := writeAtomic(dir, target, data); err != nil {
		return "", err
	}
	return target, nil
}

// writeAtomic writes to a temp file in dir, then renames it over target
func writeAtomic(dir, target string, data []byte) error {
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// --- Snapshot Storage ---

type snapshotStorage struct {
	fs     *FileStore
	dir    string
	logger *common.Logger
}

func newSnapshotStorage(fs *FileStore, logger *common.Logger) *snapshotStorage {
	return &snapshotStorage{fs: fs, dir: filepath.Join(fs.basePath, "snapshots"), logger: logger}
}

func (s *snapshotStorage) SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	if snapshot == nil || snapshot.ID == "" {
		return fmt.Errorf("snapshot id is required")
	}
	if err := s.fs.writeJSON(s.dir, snapshot.ID, snapshot); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	s.logger.Debug().Str("id", snapshot.ID).Str("snapshot_ref", snapshot.SnapshotRef).Msg("Snapshot saved")
	return nil
}

func (s *snapshotStorage) GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	var snapshot models.Snapshot
	if err := s.fs.readJSON(s.dir, id, &snapshot); err != nil {
		if errors.Is(err, errKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrSnapshotNotFound, id)
		}
		return nil, err
	}
	return &snapshot, nil
}

func (s *snapshotStorage) ListSnapshots(ctx context.Context) ([]models.SnapshotSummary, error) {
	keys, err := s.fs.listKeys(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	summaries := make([]models.SnapshotSummary, 0, len(keys))
	for _, key := range keys {
		var snapshot models.Snapshot
		if err := s.fs.readJSON(s.dir, key, &snapshot); err != nil {
			s.logger.Warn().Str("key", key).Err(err).Msg("Skipping unreadable snapshot")
			continue
		}
		summaries = append(summaries, snapshot.Summary())
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].RunAt.Equal(summaries[j].RunAt) {
			return summaries[i].ID > summaries[j].ID
		}
		return summaries[i].RunAt.After(summaries[j].RunAt)
	})
	return summaries, nil
}

// --- Override Storage ---

// overrideStorage keeps every override in one document keyed by symbol
type overrideStorage struct {
	fs     *FileStore
	dir    string
	mu     sync.Mutex
	logger *common.Logger
}

const overridesKey = "classifications"

func newOverrideStorage(fs *FileStore, logger *common.Logger) *overrideStorage {
	return &overrideStorage{fs: fs, dir: filepath.Join(fs.basePath, "overrides"), logger: logger}
}

func (s *overrideStorage) load() (map[string]*models.ClassificationRecord, error) {
	overrides := make(map[string]*models.ClassificationRecord)
	if err := s.fs.readJSON(s.dir, overridesKey, &overrides); err != nil && !errors.Is(err, errKeyNotFound) {
		return nil, err
	}
	return overrides, nil
}

func (s *overrideStorage) SaveOverride(ctx context.Context, rec *models.ClassificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	overrides, err := s.load()
	if err != nil {
		return err
	}
	symbol := strings.ToUpper(rec.Symbol)
	stored := *rec
	stored.Symbol = symbol
	overrides[symbol] = &stored

	if err := s.fs.writeJSON(s.dir, overridesKey, overrides); err != nil {
		return fmt.Errorf("failed to save override: %w", err)
	}
	s.logger.Debug().Str("symbol", symbol).Msg("Override saved")
	return nil
}

func (s *overrideStorage) GetOverrides(ctx context.Context) (map[string]*models.ClassificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *overrideStorage) DeleteOverride(ctx context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	overrides, err := s.load()
	if err != nil {
		return err
	}
	symbol = strings.ToUpper(symbol)
	if _, ok := overrides[symbol]; !ok {
		return fmt.Errorf("override for %s: %w", symbol, interfaces.ErrNotFound)
	}
	delete(overrides, symbol)

	if err := s.fs.writeJSON(s.dir, overridesKey, overrides); err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	s.logger.Debug().Str("symbol", symbol).Msg("Override deleted")
	return nil
}

// Compile-time checks
var (
	_ interfaces.SnapshotStore = (*snapshotStorage)(nil)
	_ interfaces.OverrideStore = (*overrideStorage)(nil)
)
