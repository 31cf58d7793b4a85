package storage

import (
	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/interfaces"
)

// Manager implements interfaces.StorageManager on the local filesystem.
type Manager struct {
	fs        *FileStore
	snapshots *snapshotStorage
	overrides *overrideStorage
	logger    *common.Logger
}

// NewManager creates a file-backed StorageManager rooted at config.Storage.Path.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	fs, err := NewFileStore(logger, config.Storage.Path)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("path", fs.basePath).
		Msg("File storage manager initialized")

	return &Manager{
		fs:        fs,
		snapshots: newSnapshotStorage(fs, logger),
		overrides: newOverrideStorage(fs, logger),
		logger:    logger,
	}, nil
}

func (m *Manager) SnapshotStore() interfaces.SnapshotStore {
	return m.snapshots
}

func (m *Manager) OverrideStore() interfaces.OverrideStore {
	return m.overrides
}

func (m *Manager) WriteRaw(subdir, key string, data []byte) (string, error) {
	return m.fs.WriteRaw(subdir, key, data)
}

func (m *Manager) Close() error {
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
