package models

// UploadRequest is the body of POST /sync/upload.
type UploadRequest struct {
	Cursor           string  `json:"cursor,omitempty"`
	Deltas           []Delta `json:"deltas"`
	EncryptedPayload string  `json:"encryptedPayload,omitempty"`
	Signature        string  `json:"signature,omitempty"`
	JWTUsed          bool    `json:"jwtUsed,omitempty"`
}

// UploadResponse reports the outcome of an upload. Stored counts accepted
// deltas; every other delta of the request appears in Conflicts.
type UploadResponse struct {
	NextCursor    string     `json:"nextCursor"`
	Stored        int        `json:"stored"`
	EchoSignature string     `json:"echoSignature"`
	Conflicts     []Conflict `json:"conflicts"`
}

// DownloadResponse is the body returned by GET /sync/download.
type DownloadResponse struct {
	NextCursor string     `json:"nextCursor"`
	Deltas     []Delta    `json:"deltas"`
	Conflicts  []Conflict `json:"conflicts"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

// ErrorResponse is the JSON error body written by the HTTP layer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WatchEvent is pushed to /sync/watch subscribers after an upload committed
// at least one delta for the subscriber's owner.
type WatchEvent struct {
	Cursor string `json:"cursor"`
	Stored int    `json:"stored"`
}

// VersionResponse is the body returned by GET /version.
type VersionResponse struct {
	Version string `json:"version"`
	Date    string `json:"date"`
	Commit  string `json:"commit"`
}
