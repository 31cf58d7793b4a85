// Package surrealdb implements the storage manager on SurrealDB.
package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/interfaces"
	"github.com/surrealdb/surrealdb.go"
)

// tables defined on startup (SurrealDB v3 errors on querying non-existent tables)
var tables = []string{"snapshot", "classification_override", "files"}

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	snapshotStore *SnapshotStore
	overrideStore *OverrideStore
	blobs         *BlobStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	m := &Manager{
		db:            db,
		logger:        logger,
		snapshotStore: NewSnapshotStore(db, logger),
		overrideStore: NewOverrideStore(db, logger),
		blobs:         NewBlobStore(db, logger),
	}

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

func (m *Manager) SnapshotStore() interfaces.SnapshotStore {
	return m.snapshotStore
}

func (m *Manager) OverrideStore() interfaces.OverrideStore {
	return m.overrideStore
}

// BlobStore returns the binary blob store used for charts.
func (m *Manager) BlobStore() *BlobStore {
	return m.blobs
}

// WriteRaw stores binary data (e.g. charts) in the files table.
// The returned path is the record id.
func (m *Manager) WriteRaw(subdir, key string, data []byte) (string, error) {
	if err := m.blobs.Save(context.Background(), subdir, key, data, contentType(key)); err != nil {
		return "", err
	}
	return "files:" + blobID(subdir, key), nil
}

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

func contentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// isNotFoundError reports whether a driver error means the record is absent.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
