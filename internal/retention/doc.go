// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

/*
Package retention persists retention policies in BadgerDB.

A policy maps an (event category, severity) pair to the number of days a
record is kept. The audit writer looks the policy up on every write to
compute the record's expiry; when no policy is stored the writer falls back
to the 180 day default.

Keys are laid out as

	policy:<category>:<severity>

with the policy stored as JSON. Values are small and read far more often
than written, so the store opens Badger with a modest memtable and relies on
its block cache for lookups.

# Usage

	store, err := retention.Open(retention.Config{Path: "/data/retention"})
	if err != nil {
		return err
	}
	defer store.Close()

	writer.SetPolicyStore(store)

Pass Config{InMemory: true} in tests to skip the filesystem entirely.
*/
package retention
