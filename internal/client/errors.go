package client

import "errors"

var (
	// ErrSyncInProgress is returned when a sync or download is triggered
	// while another one is running.
	ErrSyncInProgress = errors.New("sync already in progress")

	ErrSyncFailed     = errors.New("sync failed")
	ErrDownloadFailed = errors.New("download failed")

	// ErrLocalStore wraps failures of the local outbox, replica or cursor
	// table.
	ErrLocalStore = errors.New("local store error")
)
