package crypto

import (
	"bytes"

	"github.com/MKhiriev/go-delta-sync/internal/envelope"
	"github.com/MKhiriev/go-delta-sync/internal/utils"
	"github.com/MKhiriev/go-delta-sync/models"
)

// LocalDevCredential keys signatures of envelopes sent without a bearer token.
const LocalDevCredential = "local-dev"

func signingKey(credential string) string {
	if credential == "" {
		return LocalDevCredential
	}
	return credential
}

// signedContent is the message a signature covers: the cursor, then the
// entity, version and checksum of every cleartext delta in order, then the
// encrypted payload. The checksum stands in for the payload of its delta.
func signedContent(env models.Envelope) []byte {
	var buf bytes.Buffer
	buf.WriteString(env.Cursor)
	buf.WriteByte('\n')
	for _, d := range env.Deltas {
		buf.WriteString(d.Entity)
		buf.WriteByte(0x1f)
		buf.WriteString(d.Version)
		buf.WriteByte(0x1f)
		buf.WriteString(d.Checksum)
		buf.WriteByte('\n')
	}
	buf.WriteString(env.EncryptedPayload)
	return buf.Bytes()
}

// Sign sets env.Signature over the cursor, the deltas and the encrypted
// payload of env, keyed by credential, and records in JWTUsed whether a
// token was presented.
func Sign(env models.Envelope, credential string) models.Envelope {
	env.Signature = utils.Sign(signedContent(env), signingKey(credential))
	env.JWTUsed = credential != ""
	return env
}

// VerifySignature checks env.Signature against the cursor, the cleartext
// deltas and the encrypted payload of env using credential. It does not
// need to understand the payload encoding.
func VerifySignature(env models.Envelope, credential string) error {
	if env.Signature == "" || !utils.Verify(signedContent(env), signingKey(credential), env.Signature) {
		return ErrSignatureMismatch
	}
	return nil
}

// SameDeltas reports whether a and b carry the same deltas in the same
// order. Payloads are compared in canonical form.
func SameDeltas(a, b []models.Delta) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Entity != b[i].Entity || a[i].Version != b[i].Version || a[i].Checksum != b[i].Checksum {
			return false
		}
		if !samePayload(a[i].Payload, b[i].Payload) {
			return false
		}
	}
	return true
}

func samePayload(a, b []byte) bool {
	ca, err := envelope.Canonicalize(a)
	if err != nil {
		return false
	}
	cb, err := envelope.Canonicalize(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}
