// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/MKhiriev/go-delta-sync/models"
	"golang.org/x/crypto/argon2"
)

// AESGCMSealer encrypts the delta batch with AES-256-GCM under a key derived
// from a passphrase with Argon2id, then signs the ciphertext. Only clients
// that share the passphrase can read the payload; the server still verifies
// the signature.
type AESGCMSealer struct {
	aead cipher.AEAD
}

// Argon2id parameters recommended by OWASP (2024).
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4
	argonKeyLen  = 32 // 256 bits
)

// NewAESGCMSealer derives the payload key from passphrase and salt.
func NewAESGCMSealer(passphrase string, salt []byte) (*AESGCMSealer, error) {
	if passphrase == "" {
		return nil, errors.New("empty passphrase")
	}
	if len(salt) == 0 {
		return nil, errors.New("empty salt")
	}

	key := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return &AESGCMSealer{aead: gcm}, nil
}

// Seal implements [Sealer]. encryptedPayload is base64(nonce ‖ ciphertext).
func (s *AESGCMSealer) Seal(env models.Envelope, credential string) (models.Envelope, error) {
	deltas := env.Deltas
	if deltas == nil {
		deltas = []models.Delta{}
	}

	plaintext, err := json.Marshal(deltas)
	if err != nil {
		return env, fmt.Errorf("marshal deltas: %w", err)
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return env, fmt.Errorf("generate nonce: %w", err)
	}

	// the cursor is bound as additional data so a payload cannot be replayed
	// under another cursor
	blob := s.aead.Seal(nonce, nonce, plaintext, []byte(env.Cursor))
	env.EncryptedPayload = base64.StdEncoding.EncodeToString(blob)

	return Sign(env, credential), nil
}

// Open implements [Sealer].
func (s *AESGCMSealer) Open(env models.Envelope, credential string) ([]models.Delta, error) {
	if err := VerifySignature(env, credential); err != nil {
		return nil, err
	}

	blob, err := base64.StdEncoding.DecodeString(env.EncryptedPayload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	nonceSize := s.aead.NonceSize()
	if len(blob) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrMalformedPayload)
	}

	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, []byte(env.Cursor))
	if err != nil {
		return nil, fmt.Errorf("%w: decryption failed: %w", ErrMalformedPayload, err)
	}

	var deltas []models.Delta
	if err = json.Unmarshal(plaintext, &deltas); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	return deltas, nil
}
