package surrealdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-recon/internal/interfaces"
	"github.com/bobmcallan/vire-recon/internal/models"
)

func TestSnapshotStore_RoundTrip(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 30, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"first", "second"} {
		snap := &models.Snapshot{
			ID:          id,
			SnapshotRef: "2025-06-30",
			RunAt:       base.Add(time.Duration(i) * time.Minute),
			Total:       decimal.RequireFromString("11880.005"),
			Reconciliation: models.ReconciliationReport{
				Status: models.StatusMatched,
				Match:  true,
			},
		}
		require.NoError(t, m.SnapshotStore().SaveSnapshot(ctx, snap))
	}

	got, err := m.SnapshotStore().GetSnapshot(ctx, "first")
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("11880.005")), "no precision lost")

	list, err := m.SnapshotStore().ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].ID)
	assert.Equal(t, models.StatusMatched, list[0].Status)

	_, err = m.SnapshotStore().GetSnapshot(ctx, "missing")
	assert.True(t, errors.Is(err, interfaces.ErrSnapshotNotFound))
}

func TestOverrideStore_Lifecycle(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()
	store := m.OverrideStore()

	require.NoError(t, store.SaveOverride(ctx, &models.ClassificationRecord{
		Symbol: "hisu.u", Sector: "Cash & Equivalents", IssuerRegion: "Cash", Source: models.SourceManual, Confidence: 1,
	}))

	all, err := store.GetOverrides(ctx)
	require.NoError(t, err)
	require.Contains(t, all, "HISU.U")
	assert.Equal(t, "Cash", all["HISU.U"].IssuerRegion)

	require.NoError(t, store.DeleteOverride(ctx, "HISU.U"))
	assert.True(t, errors.Is(store.DeleteOverride(ctx, "HISU.U"), interfaces.ErrNotFound))
}

func TestWriteRaw_StoresBlob(t *testing.T) {
	m := testManager(t)

	path, err := m.WriteRaw("charts", "run-1.png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.Equal(t, "files:charts_run-1_png", path)

	data, ct, err := m.BlobStore().Get(context.Background(), "charts", "run-1.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)
}
