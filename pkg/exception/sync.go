package exception

import "github.com/yanun0323/errors"

// Sync cycle errors
var (
	// ErrTotalSyncFailure marks a cycle where every source failed. The
	// store keeps its prior state; stale data beats empty data.
	ErrTotalSyncFailure = errors.New("sync: all sources failed")
	ErrNoAdapters       = errors.New("sync: no source adapters registered")
	ErrEngineStopped    = errors.New("sync: engine is shut down")
	ErrFeedStatus       = errors.New("sync: feed returned non-200 status")
)
