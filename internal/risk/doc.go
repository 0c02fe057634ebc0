// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

/*
Package risk scores individual audit actions for anomalous behavior.

The Engine combines four groups of additive factors and clamps the sum to
0..100:

  - Time: +10 outside business hours, +5 on weekends.
  - Event: +25 for high-risk event types, +15 for administrative types.
  - History: +20 new device, +30 suspicious IP, +25 rapid actions, +15 geo
    anomaly. Each check is one bounded read against the audit store.
  - Caller supplied: +10 per detected pattern in recent actions, +20 for a
    behavior score below 30.

A score above 60 is anomalous. Recommendations start at 40.

# Failure Handling

History reads run concurrently under a shared timeout and behind a circuit
breaker. If any of them fails, Score returns a zero assessment carrying the
single factor "risk evaluation error" instead of an error, so scoring never
blocks the audit write that requested it.

# Geolocation

GeoLocator is an explicit hook. NoopGeoLocator, the default, never reports an
anomaly.

# Usage

	engine := risk.NewEngine(store, risk.DefaultConfig())
	writer.SetRiskScorer(engine)
*/
package risk
