package models

import "time"

// Sync engine states.
const (
	StatusIdle    = "idle"
	StatusSyncing = "syncing"
	StatusReady   = "ready"
	StatusError   = "error"
)

// SyncStatus is the human-readable digest of the client engine.
type SyncStatus struct {
	Status  string `json:"status"`
	Summary string `json:"summary"`
	Cursor  string `json:"cursor,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SyncResult is returned by a successful upload round trip.
type SyncResult struct {
	Envelope  Envelope   `json:"envelope"`
	Stored    int        `json:"stored"`
	Conflicts []Conflict `json:"conflicts"`
}

// DownloadResult is returned by a successful download round trip. Applied
// is the number of deltas the local merger reported as applied.
type DownloadResult struct {
	Cursor    string     `json:"cursor"`
	Deltas    []Delta    `json:"deltas"`
	Conflicts []Conflict `json:"conflicts"`
	Applied   int        `json:"applied"`
}

// SyncState mirrors one row of the client's sync_state table.
type SyncState struct {
	UserID           string    `json:"userId"`
	EntityName       string    `json:"entityName"`
	LastLocalChange  string    `json:"lastLocalChange"`
	LastRemoteCursor string    `json:"lastRemoteCursor"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
