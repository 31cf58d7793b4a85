package common

import "time"

// Cache TTLs for served snapshots
const (
	FreshnessSnapshot     = 15 * time.Minute
	SnapshotCacheSweep    = 30 * time.Minute
	FreshnessSnapshotList = 1 * time.Minute
)
