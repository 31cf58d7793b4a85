package surrealdb

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// maxCBORDocBytes is the largest encoded document SurrealDB accepts over CBOR.
const maxCBORDocBytes = 10_000_000

// BlobStore keeps binary blobs such as rendered charts in the files table.
type BlobStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

type blobRecord struct {
	Kind        string    `json:"kind"`
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	Data        string    `json:"data"` // base64
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewBlobStore(db *surrealdb.DB, logger *common.Logger) *BlobStore {
	return &BlobStore{db: db, logger: logger}
}

// blobID flattens kind and key into a record id; dots and slashes become underscores.
func blobID(kind, key string) string {
	return strings.NewReplacer(".", "_", "/", "_").Replace(kind + "_" + key)
}

func (s *BlobStore) Save(ctx context.Context, kind, key string, data []byte, contentType string) error {
	if n := base64.StdEncoding.EncodedLen(len(data)); n > maxCBORDocBytes {
		return fmt.Errorf("blob %s/%s too large: %d bytes encoded (limit %d)", kind, key, n, maxCBORDocBytes)
	}

	sql := `UPSERT $rid SET kind = $kind, key = $key, content_type = $content_type,
		size = $size, data = $data, updated_at = $updated_at`
	vars := map[string]any{
		"rid":          surrealmodels.NewRecordID("files", blobID(kind, key)),
		"kind":         kind,
		"key":          key,
		"content_type": contentType,
		"size":         len(data),
		"data":         base64.StdEncoding.EncodeToString(data),
		"updated_at":   time.Now().UTC(),
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save blob %s/%s: %w", kind, key, err)
	}
	s.logger.Debug().Str("kind", kind).Str("key", key).Int("size", len(data)).Msg("Blob saved")
	return nil
}

// Get returns the blob data and content type
func (s *BlobStore) Get(ctx context.Context, kind, key string) ([]byte, string, error) {
	rec, err := surrealdb.Select[blobRecord](ctx, s.db, surrealmodels.NewRecordID("files", blobID(kind, key)))
	if err != nil && !isNotFoundError(err) {
		return nil, "", fmt.Errorf("failed to get blob %s/%s: %w", kind, key, err)
	}
	if rec == nil || rec.Data == "" {
		return nil, "", fmt.Errorf("blob not found: %s/%s", kind, key)
	}
	data, err := base64.StdEncoding.DecodeString(rec.Data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode blob %s/%s: %w", kind, key, err)
	}
	return data, rec.ContentType, nil
}
