// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Entity tags replicated by the finance client. The protocol treats the tag
// as opaque, so deltas with other tags are still accepted.
const (
	EntityTransaction = "transaction"
	EntityBudget      = "budget"
	EntityGoal        = "goal"
	EntityReminder    = "reminder"
	EntityReportCache = "report_cache"
	EntitySyncState   = "sync_state"
)

// Delta is one mutated entity record eligible for replication.
//
// The entity identity is embedded in Payload under the "id" key; see
// [Delta.EntityID]. Version is an opaque token that must grow with every
// accepted mutation of the same (entity, id) pair. Checksum is the integrity
// digest over Payload and is verified by the envelope codec.
type Delta struct {
	Entity   string          `json:"entity"`
	Version  string          `json:"version"`
	Checksum string          `json:"checksum"`
	Payload  json.RawMessage `json:"payload"`
}

// EntityID returns the identity stored under payload.id. String and number
// ids are supported; a missing, null or non-scalar id yields "".
func (d Delta) EntityID() string {
	if len(d.Payload) == 0 {
		return ""
	}

	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(d.Payload, &probe); err != nil || len(probe.ID) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(probe.ID, &s); err == nil {
		return s
	}

	dec := json.NewDecoder(bytes.NewReader(probe.ID))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err == nil {
		if _, convErr := strconv.ParseFloat(n.String(), 64); convErr == nil {
			return n.String()
		}
	}

	return ""
}

// Key returns the (entity, id) identity of the delta.
func (d Delta) Key() DeltaKey {
	return DeltaKey{Entity: d.Entity, ID: d.EntityID()}
}

// DeltaKey identifies one replicated entity instance.
type DeltaKey struct {
	Entity string
	ID     string
}

// StoredDelta is a delta retained by the server together with the cursor
// minted for the upload that accepted it.
type StoredDelta struct {
	Delta
	Cursor string `json:"cursor"`
}

// Envelope is the unit exchanged over the wire.
//
// EncryptedPayload and Signature are filled by a sealer; JWTUsed records
// whether bearer auth was presented and is never used for authorization.
type Envelope struct {
	Cursor           string  `json:"cursor"`
	Deltas           []Delta `json:"deltas"`
	EncryptedPayload string  `json:"encryptedPayload"`
	Signature        string  `json:"signature"`
	JWTUsed          bool    `json:"jwtUsed"`
}

// Conflict reasons reported back to the uploader.
const (
	ReasonStaleVersion     = "stale version"
	ReasonAmbiguousWrite   = "ambiguous concurrent write"
	ReasonChecksumMismatch = "checksum mismatch"
	ReasonInvalidDelta     = "invalid delta"
)

// Conflict is emitted when an uploaded delta was not stored.
type Conflict struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// RecordedConflict is a conflict retained by the server with the cursor of
// the upload that produced it.
type RecordedConflict struct {
	Conflict
	Cursor string `json:"cursor"`
}
