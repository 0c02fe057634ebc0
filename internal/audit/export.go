// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/blake2b"
)

// ExportFormat is the rendered export encoding.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

// ParseExportFormat validates an export format. Empty means JSON.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExportJSON:
		return ExportJSON, nil
	case ExportCSV:
		return ExportCSV, nil
	}
	return "", invalidField("format", "must be json or csv")
}

// csvHeader lists the flattened columns of a CSV export.
var csvHeader = []string{
	"id", "timestamp", "expires_at",
	"actor_id", "actor_role", "actor_name",
	"event_type", "action", "category", "severity", "status",
	"resource_type", "resource_id", "resource_name", "resource_partner_id",
	"source_ip", "platform",
	"risk_score", "is_anomalous",
	"regulations", "retention_days", "is_personal_data", "archived",
}

// Render encodes records in the requested format.
func Render(format ExportFormat, records []Record) ([]byte, error) {
	switch format {
	case ExportJSON:
		if records == nil {
			records = []Record{}
		}
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to render JSON export: %w", err)
		}
		return data, nil
	case ExportCSV:
		return renderCSV(records)
	}
	return nil, invalidField("format", "must be json or csv")
}

func renderCSV(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := range records {
		if err := w.Write(csvRow(&records[i])); err != nil {
			return nil, fmt.Errorf("failed to write CSV row %s: %w", records[i].ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV export: %w", err)
	}
	return buf.Bytes(), nil
}

func csvRow(r *Record) []string {
	var resType, resID, resName, resPartner string
	if r.Resource != nil {
		resType, resID, resName, resPartner = r.Resource.Type, r.Resource.ID, r.Resource.Name, r.Resource.PartnerID
	}
	var score, anomalous string
	if r.RiskAssessment != nil {
		score = strconv.Itoa(r.RiskAssessment.Score)
		anomalous = strconv.FormatBool(r.RiskAssessment.IsAnomalous)
	}
	return []string{
		r.ID, strconv.FormatInt(r.Timestamp, 10), strconv.FormatInt(r.ExpiresAt, 10),
		r.Actor.ID, string(r.Actor.Role), r.Actor.Name,
		string(r.Event.Type), r.Event.Action, string(r.Event.Category), string(r.Event.Severity), string(r.Status),
		resType, resID, resName, resPartner,
		r.Source.IP, string(r.Source.Platform),
		score, anomalous,
		strings.Join(r.Compliance.Regulations, ";"),
		strconv.Itoa(r.Compliance.RetentionPeriodDays),
		strconv.FormatBool(r.Compliance.IsPersonalData),
		strconv.FormatBool(r.Metadata.Archived),
	}
}

// Checksum returns the hex BLAKE2b-256 digest of data.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
