package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-delta-sync/internal/crypto"
	"github.com/MKhiriev/go-delta-sync/internal/envelope"
	"github.com/MKhiriev/go-delta-sync/internal/service"
	"github.com/MKhiriev/go-delta-sync/internal/store"
)

// errorStatusMap is checked in order; the first match wins, so more
// specific errors come first.
var errorStatusMap = []struct {
	err    error
	status int
}{
	{service.ErrTokenIsExpiredOrInvalid, http.StatusUnauthorized},
	{service.ErrInvalidSignature, http.StatusUnauthorized},
	{crypto.ErrSignatureMismatch, http.StatusUnauthorized},

	{service.ErrInvalidDataProvided, http.StatusBadRequest},
	{ErrInvalidJSON, http.StatusBadRequest},
	{envelope.ErrValidation, http.StatusBadRequest},
	{store.ErrEmptyOwner, http.StatusBadRequest},

	{store.ErrBackendUnavailable, http.StatusServiceUnavailable},

	{store.ErrBuildingSQLQuery, http.StatusInternalServerError},
	{store.ErrExecutingQuery, http.StatusInternalServerError},
	{store.ErrBeginningTransaction, http.StatusInternalServerError},
	{store.ErrCommitingTransaction, http.StatusInternalServerError},
	{store.ErrExecutingStatement, http.StatusInternalServerError},
	{store.ErrScanningRows, http.StatusInternalServerError},
}

func statusFromError(err error) int {
	for _, entry := range errorStatusMap {
		if errors.Is(err, entry.err) {
			return entry.status
		}
	}
	return http.StatusInternalServerError
}

// messageFromStatus keeps internal details out of error bodies.
func messageFromStatus(status int, err error) string {
	switch status {
	case http.StatusUnauthorized:
		return unauthorizedMessage
	case http.StatusBadRequest:
		return err.Error()
	default:
		return http.StatusText(status)
	}
}
