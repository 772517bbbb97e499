package crypto

import "errors"

var (
	// ErrSignatureMismatch is returned when an envelope signature does not
	// match its encrypted payload under the presented credential.
	ErrSignatureMismatch = errors.New("envelope signature mismatch")

	// ErrMalformedPayload is returned when encryptedPayload cannot be
	// decoded or decrypted.
	ErrMalformedPayload = errors.New("malformed encrypted payload")
	// ErrPayloadMismatch is returned when an opened payload carries other
	// deltas than the cleartext ones next to it.
	ErrPayloadMismatch = errors.New("encrypted payload does not match the deltas")
)
