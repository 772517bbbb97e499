// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the client's transport to the sync gateway.
//
// [ServerAdapter] decouples the sync engine from the protocol. The package
// ships an HTTP implementation on resty ([NewHTTPServerAdapter]) with a
// websocket subscription for change notifications.
//
// HTTP statuses are mapped to the sentinel errors in errors.go, so callers
// can use [errors.Is] (e.g. [ErrUnauthorized] for 401). Network failures are
// retried with exponential backoff and then surface as [ErrTransient].
package adapter

import (
	"context"

	"github.com/MKhiriev/go-delta-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/server_adapter_mock.go -package=mock

// ServerAdapter defines communication with the sync gateway.
type ServerAdapter interface {
	// SetToken stores the bearer token attached to every sync request.
	SetToken(token string)

	// Token returns the bearer token currently stored in the adapter, or an
	// empty string if no token has been set yet.
	Token() string

	// Upload posts env to /sync/upload and returns the gateway's verdict.
	Upload(ctx context.Context, env models.Envelope) (models.UploadResponse, error)

	// Download fetches everything stored at or after cursor. An empty cursor
	// asks for the full history.
	Download(ctx context.Context, cursor string) (models.DownloadResponse, error)

	// Health reports the gateway's status and storage mode. It needs no
	// token.
	Health(ctx context.Context) (models.HealthResponse, error)

	// Watch subscribes to change notifications and calls fn for each one
	// until ctx is done or the connection drops. A canceled ctx returns nil.
	Watch(ctx context.Context, fn func(models.WatchEvent)) error
}
