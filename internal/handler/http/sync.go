// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/MKhiriev/go-delta-sync/internal/envelope"
	"github.com/MKhiriev/go-delta-sync/internal/logger"
	"github.com/MKhiriev/go-delta-sync/internal/service"
	"github.com/MKhiriev/go-delta-sync/internal/utils"
	"github.com/MKhiriev/go-delta-sync/models"
)

// maxUploadBytes caps the decoded upload body.
const maxUploadBytes = 8 << 20

// uploadBody is the wire shape of POST /sync/upload. Deltas stay raw so
// that one malformed item is reported as a conflict instead of failing the
// whole batch.
type uploadBody struct {
	Cursor           string            `json:"cursor"`
	Deltas           []json.RawMessage `json:"deltas"`
	EncryptedPayload string            `json:"encryptedPayload"`
	Signature        string            `json:"signature"`
	JWTUsed          bool              `json:"jwtUsed"`
}

// upload handles POST /sync/upload.
//
// Items that do not decode as deltas are answered as conflicts ahead of the
// ones reported by the service; the rest of the batch is stored.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	owner, ok := utils.GetOwnerFromContext(ctx)
	if !ok {
		log.Error().Err(ErrNoOwnerInContext).Str("func", "Handler.upload").Send()
		utils.WriteError(w, unauthorizedMessage, http.StatusUnauthorized)
		return
	}

	var body uploadBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&body); err != nil {
		log.Warn().Err(err).Str("func", "Handler.upload").Msg("malformed upload body")
		h.writeServiceError(w, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}

	req := models.UploadRequest{
		Cursor:           body.Cursor,
		Deltas:           make([]models.Delta, 0, len(body.Deltas)),
		EncryptedPayload: body.EncryptedPayload,
		Signature:        body.Signature,
		JWTUsed:          body.JWTUsed,
	}

	var rejected []models.Conflict
	for _, raw := range body.Deltas {
		d, err := envelope.DecodeDelta(raw)
		if err != nil {
			rejected = append(rejected, models.Conflict{
				Entity: d.Entity,
				ID:     d.EntityID(),
				Reason: service.RejectionReason(err),
			})
			continue
		}
		req.Deltas = append(req.Deltas, d)
	}

	resp, err := h.services.SyncService.Upload(ctx, owner, req)
	if err != nil {
		log.Err(err).Str("func", "Handler.upload").Msg("upload failed")
		h.writeServiceError(w, err)
		return
	}

	if len(rejected) > 0 {
		resp.Conflicts = append(rejected, resp.Conflicts...)
	}

	if _, err = utils.WriteJSON(w, resp, http.StatusOK); err != nil {
		log.Err(err).Str("func", "Handler.upload").Msg("error writing response")
	}
}

// download handles GET /sync/download?cursor=...
func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	owner, ok := utils.GetOwnerFromContext(ctx)
	if !ok {
		log.Error().Err(ErrNoOwnerInContext).Str("func", "Handler.download").Send()
		utils.WriteError(w, unauthorizedMessage, http.StatusUnauthorized)
		return
	}

	resp, err := h.services.SyncService.Download(ctx, owner, r.URL.Query().Get("cursor"))
	if err != nil {
		log.Err(err).Str("func", "Handler.download").Msg("download failed")
		h.writeServiceError(w, err)
		return
	}

	if _, err = utils.WriteJSON(w, resp, http.StatusOK); err != nil {
		log.Err(err).Str("func", "Handler.download").Msg("error writing response")
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		utils.WriteError(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
		return
	}

	status := statusFromError(err)
	utils.WriteError(w, messageFromStatus(status, err), status)
}
