// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MKhiriev/go-delta-sync/internal/crypto"
	"github.com/MKhiriev/go-delta-sync/internal/envelope"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/store"
	"github.com/MKhiriev/go-delta-sync/internal/utils"
	"github.com/MKhiriev/go-delta-sync/models"
)

// syncService is the concrete implementation of SyncService.
//
// Every delta of an upload is validated on its own: a malformed delta or a
// checksum mismatch becomes a conflict for that item while its siblings
// still reach the store.
type syncService struct {
	store     store.DeltaStore
	codec     *envelope.Codec
	publisher ChangePublisher
	recorder  SyncRecorder

	// verifySignatures rejects uploads whose signature does not verify
	// under the presented bearer token.
	verifySignatures bool
	// opener reads the payload of verified uploads.
	opener crypto.Sealer

	logger *logger.Logger
}

// SyncOption customises a SyncService.
type SyncOption func(*syncService)

// WithPublisher announces stored uploads to p.
func WithPublisher(p ChangePublisher) SyncOption {
	return func(s *syncService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithRecorder counts traffic on r.
func WithRecorder(r SyncRecorder) SyncOption {
	return func(s *syncService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithSignatureVerification turns signature checks on uploads on or off.
func WithSignatureVerification(enabled bool) SyncOption {
	return func(s *syncService) {
		s.verifySignatures = enabled
	}
}

// NewSyncService constructs a SyncService over deltaStore. Checksums are
// verified with codec.
func NewSyncService(deltaStore store.DeltaStore, codec *envelope.Codec, logger *logger.Logger, opts ...SyncOption) SyncService {
	s := &syncService{
		store:     deltaStore,
		codec:     codec,
		publisher: nopPublisher{},
		recorder:  nopRecorder{},
		opener:    crypto.NewHMACSealer(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload implements SyncService.
//
// The returned conflicts list the rejected deltas first, in request order,
// followed by the conflicts reported by the store.
func (s *syncService) Upload(ctx context.Context, owner string, req models.UploadRequest) (models.UploadResponse, error) {
	log := logger.FromContext(ctx)

	if owner == "" {
		return models.UploadResponse{}, ErrInvalidDataProvided
	}

	if s.verifySignatures && req.EncryptedPayload != "" {
		if err := s.verifyEnvelope(ctx, req); err != nil {
			log.Warn().Err(err).
				Str("func", "syncService.Upload").
				Str("owner", owner).
				Msg("rejecting upload with foreign signature")
			return models.UploadResponse{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
		}
	}

	valid := make([]models.Delta, 0, len(req.Deltas))
	conflicts := make([]models.Conflict, 0)
	for i, d := range req.Deltas {
		if err := s.codec.ValidateDelta(d); err != nil {
			log.Debug().Err(err).
				Str("func", "syncService.Upload").
				Int("index", i).
				Str("entity", d.Entity).
				Msg("delta rejected")
			conflicts = append(conflicts, models.Conflict{
				Entity: d.Entity,
				ID:     d.EntityID(),
				Reason: RejectionReason(err),
			})
			continue
		}
		valid = append(valid, d)
	}

	res, err := s.store.Upload(ctx, owner, req.Cursor, valid)
	if err != nil {
		log.Err(err).
			Str("func", "syncService.Upload").
			Str("owner", owner).
			Msg("delta store upload failed")
		return models.UploadResponse{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	conflicts = append(conflicts, res.Conflicts...)

	if res.Stored > 0 {
		s.publisher.Publish(owner, models.WatchEvent{Cursor: res.Cursor, Stored: res.Stored})
	}

	reasons := make([]string, len(conflicts))
	for i, c := range conflicts {
		reasons[i] = c.Reason
	}
	s.recorder.ObserveUpload(res.Stored, reasons)

	log.Info().
		Str("func", "syncService.Upload").
		Str("owner", owner).
		Int("received", len(req.Deltas)).
		Int("stored", res.Stored).
		Int("conflicts", len(conflicts)).
		Str("cursor", res.Cursor).
		Msg("upload processed")

	return models.UploadResponse{
		NextCursor:    res.Cursor,
		Stored:        res.Stored,
		EchoSignature: req.Signature,
		Conflicts:     conflicts,
	}, nil
}

// Download implements SyncService.
func (s *syncService) Download(ctx context.Context, owner, since string) (models.DownloadResponse, error) {
	log := logger.FromContext(ctx)

	if owner == "" {
		return models.DownloadResponse{}, ErrInvalidDataProvided
	}

	res, err := s.store.Download(ctx, owner, since)
	if err != nil {
		log.Err(err).
			Str("func", "syncService.Download").
			Str("owner", owner).
			Str("since", since).
			Msg("delta store download failed")
		return models.DownloadResponse{}, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	deltas := make([]models.Delta, len(res.Deltas))
	for i, rec := range res.Deltas {
		deltas[i] = rec.Delta
	}
	conflicts := make([]models.Conflict, len(res.Conflicts))
	for i, c := range res.Conflicts {
		conflicts[i] = c.Conflict
	}

	s.recorder.ObserveDownload(len(deltas))

	return models.DownloadResponse{
		NextCursor: res.Cursor,
		Deltas:     deltas,
		Conflicts:  conflicts,
	}, nil
}

// verifyEnvelope checks the signature of req under the bearer token, which
// covers the cursor and the cleartext deltas, then opens the payload. A
// readable payload must carry the cleartext deltas. A ciphertext payload the
// server holds no key for is covered by the signature alone.
func (s *syncService) verifyEnvelope(ctx context.Context, req models.UploadRequest) error {
	token, _ := utils.GetTokenFromContext(ctx)
	env := models.Envelope{
		Cursor:           req.Cursor,
		Deltas:           req.Deltas,
		EncryptedPayload: req.EncryptedPayload,
		Signature:        req.Signature,
	}

	opened, err := s.opener.Open(env, token)
	switch {
	case errors.Is(err, crypto.ErrMalformedPayload):
		return nil
	case err != nil:
		return err
	case !crypto.SameDeltas(opened, req.Deltas):
		return crypto.ErrPayloadMismatch
	}
	return nil
}

// RejectionReason maps a validation failure to the reason reported to the
// uploader.
func RejectionReason(err error) string {
	var verr *envelope.ValidationError
	switch {
	case errors.As(err, &verr):
		issues := make([]string, len(verr.Issues))
		for i, issue := range verr.Issues {
			issues[i] = issue.String()
		}
		return models.ReasonInvalidDelta + ": " + strings.Join(issues, "; ")
	case errors.Is(err, envelope.ErrIntegrity):
		return models.ReasonChecksumMismatch
	default:
		return models.ReasonInvalidDelta + ": " + err.Error()
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, models.WatchEvent) int { return 0 }

type nopRecorder struct{}

func (nopRecorder) ObserveUpload(int, []string) {}

func (nopRecorder) ObserveDownload(int) {}
