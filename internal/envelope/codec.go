// Package envelope implements the wire format shared by the sync client and
// server: per-delta checksums, envelope construction, validation and the
// human-readable status summary.
//
// Every function here is pure. The same Codec runs on the client before
// sending and after receiving, and on the server on receipt.
package envelope

import (
	"crypto/hmac"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-delta-sync/internal/utils"
	"github.com/MKhiriev/go-delta-sync/models"
)

const (
	// DefaultChecksumKey keys the checksum HMAC when none is configured.
	// Checksums are integrity digests, not secrets.
	DefaultChecksumKey = "sync-local"

	// DefaultCursor is sent by clients that have never completed a sync.
	DefaultCursor = "local-bootstrap"
)

// Codec computes and verifies delta checksums.
type Codec struct {
	hasher *utils.Hasher
}

// NewCodec returns a Codec keyed with checksumKey, or [DefaultChecksumKey]
// when checksumKey is empty.
func NewCodec(checksumKey string) *Codec {
	if checksumKey == "" {
		checksumKey = DefaultChecksumKey
	}
	return &Codec{hasher: utils.NewHasher(checksumKey)}
}

// Checksum returns base64(HMAC-SHA256(key, canonical(payload))). An empty
// payload is hashed as JSON null.
func (c *Codec) Checksum(payload json.RawMessage) (string, error) {
	sum, err := c.sum(payload)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sum), nil
}

func (c *Codec) sum(payload json.RawMessage) ([]byte, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	canonical, err := Canonicalize(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return c.hasher.Sum(canonical), nil
}

// Stamp returns d with its checksum recomputed from the payload.
func (c *Codec) Stamp(d models.Delta) (models.Delta, error) {
	sum, err := c.Checksum(d.Payload)
	if err != nil {
		return d, err
	}

	d.Checksum = sum
	return d, nil
}

// BuildEnvelope stamps the checksum of every delta, preserving order, and
// returns an envelope for cursor. EncryptedPayload and Signature are left
// for a sealer. An empty cursor is replaced by [DefaultCursor].
func (c *Codec) BuildEnvelope(cursor string, deltas []models.Delta) (models.Envelope, error) {
	if cursor == "" {
		cursor = DefaultCursor
	}

	stamped := make([]models.Delta, 0, len(deltas))
	for i, d := range deltas {
		s, err := c.Stamp(d)
		if err != nil {
			return models.Envelope{}, fmt.Errorf("deltas[%d]: %w", i, err)
		}
		stamped = append(stamped, s)
	}

	return models.Envelope{Cursor: cursor, Deltas: stamped}, nil
}

// ValidateDelta checks a single typed delta: entity and version must be set
// and the checksum must match the payload. Structural problems return a
// *ValidationError, a checksum mismatch returns an *IntegrityError with
// index 0.
func (c *Codec) ValidateDelta(d models.Delta) error {
	verr := &ValidationError{}
	checkDeltaFields(verr, "", d)
	if err := verr.orNil(); err != nil {
		return err
	}

	ok, err := c.verify(d)
	if err != nil {
		verr.add("payload", "%v", err)
		return verr
	}
	if !ok {
		return &IntegrityError{Indexes: []int{0}}
	}

	return nil
}

// Validate checks an already decoded envelope: non-empty cursor, well-formed
// deltas and matching checksums. Structural problems take precedence over
// integrity failures.
func (c *Codec) Validate(env models.Envelope) error {
	verr := &ValidationError{}
	if env.Cursor == "" {
		verr.add("cursor", "must not be empty")
	}
	for i, d := range env.Deltas {
		checkDeltaFields(verr, fmt.Sprintf("deltas[%d].", i), d)
	}
	if err := verr.orNil(); err != nil {
		return err
	}

	return c.verifyAll(env.Deltas)
}

func (c *Codec) verifyAll(deltas []models.Delta) error {
	verr := &ValidationError{}
	var bad []int
	for i, d := range deltas {
		ok, err := c.verify(d)
		if err != nil {
			verr.add(fmt.Sprintf("deltas[%d].payload", i), "%v", err)
			continue
		}
		if !ok {
			bad = append(bad, i)
		}
	}

	if err := verr.orNil(); err != nil {
		return err
	}
	if len(bad) > 0 {
		return &IntegrityError{Indexes: bad}
	}

	return nil
}

// verify reports whether d.Checksum matches its payload. A checksum that is
// not base64 is a mismatch, not a malformed delta.
func (c *Codec) verify(d models.Delta) (bool, error) {
	want, err := c.sum(d.Payload)
	if err != nil {
		return false, err
	}

	got, err := base64.StdEncoding.DecodeString(d.Checksum)
	if err != nil {
		return false, nil
	}

	return hmac.Equal(got, want), nil
}

func checkDeltaFields(verr *ValidationError, prefix string, d models.Delta) {
	if d.Entity == "" {
		verr.add(prefix+"entity", "must not be empty")
	}
	if d.Version == "" {
		verr.add(prefix+"version", "must not be empty")
	}
	if d.Checksum == "" {
		verr.add(prefix+"checksum", "must not be empty")
	}
}
