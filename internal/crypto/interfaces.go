// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package crypto provides the confidentiality and authenticity layer of the
// sync envelope. The codec leaves encryptedPayload and signature empty; a
// Sealer fills them before upload and checks them on receipt.
//
// Both sealers sign the same way with [Sign]: signature =
// base64(HMAC-SHA256(credential, cursor, deltas, encryptedPayload)), where
// the deltas enter as their entity, version and checksum and credential is
// the bearer token, or "local-dev" when the client runs without one. This
// lets the server verify signatures with [VerifySignature] without knowing
// how the payload was encrypted, and binds the cleartext deltas stored by
// the server to the signature.
package crypto

import "github.com/MKhiriev/go-delta-sync/models"

// Sealer seals and opens envelopes.
type Sealer interface {
	// Seal returns env with EncryptedPayload, Signature and JWTUsed set.
	// credential is the bearer token presented to the server, or "".
	Seal(env models.Envelope, credential string) (models.Envelope, error)

	// Open verifies the signature of env and returns the deltas recovered
	// from EncryptedPayload. A wrong credential or tampered payload returns
	// an error matching ErrSignatureMismatch.
	Open(env models.Envelope, credential string) ([]models.Delta, error)
}
