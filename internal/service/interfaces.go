package service

import (
	"context"

	"github.com/MKhiriev/go-delta-sync/models"
)

// AuthService issues and validates bearer tokens.
type AuthService interface {
	// CreateToken signs a token whose subject is owner.
	CreateToken(ctx context.Context, owner string) (models.Token, error)
	// ParseToken validates tokenString and returns its claims.
	// Any failure is reported as ErrTokenIsExpiredOrInvalid.
	ParseToken(ctx context.Context, tokenString string) (models.Token, error)
}

// SyncService validates deltas and drives the delta store.
type SyncService interface {
	// Upload stores the valid deltas of req for owner. Invalid deltas and
	// deltas losing against the stored version are reported as conflicts;
	// they never fail the request.
	Upload(ctx context.Context, owner string, req models.UploadRequest) (models.UploadResponse, error)
	// Download returns the deltas and conflicts of owner recorded at or
	// after since.
	Download(ctx context.Context, owner, since string) (models.DownloadResponse, error)
}

// HealthService reports liveness and the delta store mode.
type HealthService interface {
	Health(ctx context.Context) models.HealthResponse
}

// AppInfoService exposes the build information of the running binary.
type AppInfoService interface {
	GetAppVersion(ctx context.Context) models.VersionResponse
}

// ChangePublisher is told about every upload that stored deltas.
type ChangePublisher interface {
	Publish(owner string, ev models.WatchEvent) int
}

// SyncRecorder counts sync traffic.
type SyncRecorder interface {
	ObserveUpload(stored int, reasons []string)
	ObserveDownload(n int)
}
