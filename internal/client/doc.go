// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the sync engine of the offline-first client.
//
// The [Engine] drains the local outbox into sealed envelopes, uploads them
// through a [adapter.ServerAdapter], downloads remote deltas into the local
// replica and tracks the cursor of the delta stream. At most one round trip
// runs at a time; a concurrent trigger is rejected, never queued.
package client
