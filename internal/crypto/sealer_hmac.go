package crypto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-delta-sync/models"
)

// HMACSealer provides authenticity only: encryptedPayload is the base64 JSON
// of the deltas, readable by anyone, and the signature binds it to the
// bearer token.
type HMACSealer struct{}

// NewHMACSealer returns the default sealer.
func NewHMACSealer() *HMACSealer {
	return &HMACSealer{}
}

// Seal implements [Sealer].
func (s *HMACSealer) Seal(env models.Envelope, credential string) (models.Envelope, error) {
	deltas := env.Deltas
	if deltas == nil {
		deltas = []models.Delta{}
	}

	plaintext, err := json.Marshal(deltas)
	if err != nil {
		return env, fmt.Errorf("marshal deltas: %w", err)
	}

	env.EncryptedPayload = base64.StdEncoding.EncodeToString(plaintext)
	return Sign(env, credential), nil
}

// Open implements [Sealer].
func (s *HMACSealer) Open(env models.Envelope, credential string) ([]models.Delta, error) {
	if err := VerifySignature(env, credential); err != nil {
		return nil, err
	}

	plaintext, err := base64.StdEncoding.DecodeString(env.EncryptedPayload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	var deltas []models.Delta
	if err = json.Unmarshal(plaintext, &deltas); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	return deltas, nil
}
