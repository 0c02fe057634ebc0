// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package risk

import "context"

// GeoLocator decides whether an action's origin is geographically unusual
// for the actor.
type GeoLocator interface {
	IsAnomalous(ctx context.Context, actorID, ip string) (bool, error)
}

// NoopGeoLocator never reports an anomaly. It keeps the geo factor slot in
// place until a real IP geolocation source is integrated.
type NoopGeoLocator struct{}

// IsAnomalous implements GeoLocator.
func (NoopGeoLocator) IsAnomalous(context.Context, string, string) (bool, error) {
	return false, nil
}
