package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-delta-sync/models"
)

// JSON kinds reported in validation issues.
const (
	kindString  = "string"
	kindBool    = "boolean"
	kindArray   = "array"
	kindObject  = "object"
	kindNull    = "null"
	kindNumber  = "number"
	kindMissing = "missing"
)

// ValidateEnvelope decodes raw and enforces the envelope contract:
//   - cursor, deltas, encryptedPayload, signature and jwtUsed are present and
//     of the right JSON type;
//   - every delta has string entity, version and checksum fields and a
//     payload (a missing payload is treated as null);
//   - the cursor is non-empty;
//   - every checksum matches its payload.
//
// Structural problems are returned as a *ValidationError listing each issue.
// Only a structurally valid envelope is checked for integrity, so a tampered
// payload yields an *IntegrityError rather than a parse failure.
func (c *Codec) ValidateEnvelope(raw []byte) (models.Envelope, error) {
	verr := &ValidationError{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		verr.add("$", "expected a JSON object: %v", err)
		return models.Envelope{}, verr
	}

	var env models.Envelope

	if expectKind(verr, "cursor", fields["cursor"], kindString) {
		_ = json.Unmarshal(fields["cursor"], &env.Cursor)
		if env.Cursor == "" {
			verr.add("cursor", "must not be empty")
		}
	}
	if expectKind(verr, "encryptedPayload", fields["encryptedPayload"], kindString) {
		_ = json.Unmarshal(fields["encryptedPayload"], &env.EncryptedPayload)
	}
	if expectKind(verr, "signature", fields["signature"], kindString) {
		_ = json.Unmarshal(fields["signature"], &env.Signature)
	}
	if expectKind(verr, "jwtUsed", fields["jwtUsed"], kindBool) {
		_ = json.Unmarshal(fields["jwtUsed"], &env.JWTUsed)
	}

	if expectKind(verr, "deltas", fields["deltas"], kindArray) {
		var items []json.RawMessage
		_ = json.Unmarshal(fields["deltas"], &items)

		env.Deltas = make([]models.Delta, 0, len(items))
		for i, item := range items {
			env.Deltas = append(env.Deltas, decodeDelta(verr, fmt.Sprintf("deltas[%d]", i), item))
		}
	}

	if err := verr.orNil(); err != nil {
		return models.Envelope{}, err
	}

	if err := c.verifyAll(env.Deltas); err != nil {
		return env, err
	}

	return env, nil
}

// DecodeDelta decodes one delta of a batch with the same type checks as
// [Codec.ValidateEnvelope]. Issue paths are relative to the delta. The
// partially decoded delta is returned with the error so callers can still
// report its entity and id.
func DecodeDelta(raw json.RawMessage) (models.Delta, error) {
	verr := &ValidationError{}
	d := decodeDelta(verr, "", raw)
	return d, verr.orNil()
}

func decodeDelta(verr *ValidationError, path string, raw json.RawMessage) models.Delta {
	var d models.Delta
	objectPath := path
	if objectPath == "" {
		objectPath = "$"
	}
	if !expectKind(verr, objectPath, raw, kindObject) {
		return d
	}

	var fields map[string]json.RawMessage
	_ = json.Unmarshal(raw, &fields)

	prefix := path
	if prefix != "" {
		prefix += "."
	}

	if expectKind(verr, prefix+"entity", fields["entity"], kindString) {
		_ = json.Unmarshal(fields["entity"], &d.Entity)
	}
	if expectKind(verr, prefix+"version", fields["version"], kindString) {
		_ = json.Unmarshal(fields["version"], &d.Version)
	}
	if expectKind(verr, prefix+"checksum", fields["checksum"], kindString) {
		_ = json.Unmarshal(fields["checksum"], &d.Checksum)
	}

	if payload, ok := fields["payload"]; ok {
		d.Payload = append(json.RawMessage(nil), payload...)
	} else {
		d.Payload = json.RawMessage("null")
	}

	return d
}

func expectKind(verr *ValidationError, path string, raw json.RawMessage, want string) bool {
	got := jsonKind(raw)
	if got == want {
		return true
	}

	if got == kindMissing {
		verr.add(path, "is required")
	} else {
		verr.add(path, "expected %s, got %s", want, got)
	}
	return false
}

func jsonKind(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return kindMissing
	}

	switch trimmed[0] {
	case '"':
		return kindString
	case '{':
		return kindObject
	case '[':
		return kindArray
	case 't', 'f':
		return kindBool
	case 'n':
		return kindNull
	default:
		return kindNumber
	}
}
