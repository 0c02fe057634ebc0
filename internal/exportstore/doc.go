// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

// Package exportstore writes rendered audit exports to a local directory.
//
// FileSink implements audit.ExportSink. Each export lands in one file named
// after its job id, optionally gzip-compressed, written to a temporary file
// and renamed into place so readers never see a partial export. When
// MaxFiles is set the oldest exports are pruned after every write.
package exportstore
