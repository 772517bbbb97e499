// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"

	"github.com/MKhiriev/go-delta-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// Store modes reported by [DeltaStore.Mode] and surfaced by GET /health.
const (
	ModeMemory   = "memory"
	ModePostgres = "postgres"
	ModeDegraded = "degraded"
)

// DeltaStore is the server-side authoritative copy of every owner's deltas.
//
// Records are keyed by (owner, entity, id) and hold the highest accepted
// version. Upload and Download for the same owner are serialized; different
// owners proceed in parallel.
type DeltaStore interface {
	// Upload resolves every delta against the stored record of its key and
	// persists the accepted ones under a freshly minted cursor, strictly
	// greater than since and every cursor issued before. Deltas of one batch
	// are applied in order, so a later item sees the effect of an earlier one
	// with the same key.
	Upload(ctx context.Context, owner, since string, deltas []models.Delta) (UploadResult, error)

	// Download returns every record of owner whose cursor is at or after
	// since, together with the conflicts recorded at or after since. A
	// foreign or empty since returns the full snapshot.
	Download(ctx context.Context, owner, since string) (DownloadResult, error)

	// Mode reports the backend currently serving requests.
	Mode() string

	// Ping checks that the backend can serve requests.
	Ping(ctx context.Context) error
}

// UploadResult is the outcome of [DeltaStore.Upload].
type UploadResult struct {
	// Cursor is the cursor minted for this upload.
	Cursor string
	// Stored is the number of accepted deltas.
	Stored int
	// Conflicts lists every rejected delta.
	Conflicts []models.Conflict
}

// DownloadResult is the outcome of [DeltaStore.Download].
type DownloadResult struct {
	// Cursor is freshly minted and greater than every cursor of Deltas.
	Cursor    string
	Deltas    []models.StoredDelta
	Conflicts []models.RecordedConflict
}
