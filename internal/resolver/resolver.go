// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package resolver decides whether an incoming delta supersedes the record
// stored for the same (entity, id).
package resolver

import "github.com/MKhiriev/go-delta-sync/models"

// Outcome is the result of [Decide]. Reason is empty when Accepted is true.
type Outcome struct {
	Accepted bool
	Reason   string
}

// Accepted is the outcome for a delta that replaces (or creates) the record.
var Accepted = Outcome{Accepted: true}

// Conflict returns a rejecting outcome with reason.
func Conflict(reason string) Outcome {
	return Outcome{Reason: reason}
}

// Decide compares incoming with the stored record. stored is nil when the key
// has never been seen.
//
//   - no stored record: accepted
//   - incoming version greater: accepted
//   - incoming version lower: stale version
//   - equal versions, same checksum: stale version (a replay)
//   - equal versions, different checksum: ambiguous concurrent write
func Decide(stored *models.Delta, incoming models.Delta) Outcome {
	if stored == nil {
		return Accepted
	}

	switch c := CompareVersions(incoming.Version, stored.Version); {
	case c > 0:
		return Accepted
	case c < 0:
		return Conflict(models.ReasonStaleVersion)
	}

	if incoming.Checksum == stored.Checksum {
		return Conflict(models.ReasonStaleVersion)
	}
	return Conflict(models.ReasonAmbiguousWrite)
}

// ToConflict builds the wire conflict for a rejected delta.
func (o Outcome) ToConflict(d models.Delta) models.Conflict {
	return models.Conflict{Entity: d.Entity, ID: d.EntityID(), Reason: o.Reason}
}
