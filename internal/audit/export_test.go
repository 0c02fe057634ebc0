// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package audit

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

func sampleRecords() []Record {
	return []Record{
		{
			ID:        "r1",
			Actor:     Actor{ID: "partner-1", Role: RolePartner, Name: "Acme, Ltd"},
			Event:     Event{Type: EventTypeAssetDelete, Action: "Asset delete: \"Chalet\"", Category: CategoryAssetManagement, Severity: SeverityHigh},
			Resource:  &Resource{Type: "assets", ID: "a1", Name: "Chalet", PartnerID: "partner-1"},
			Source:    Source{IP: "10.0.0.1", Platform: PlatformWeb},
			Status:    StatusSuccess,
			Timestamp: 1000,
			ExpiresAt: 2000,
			RiskAssessment: &RiskAssessment{
				Score:       65,
				Factors:     []string{"high-risk event"},
				IsAnomalous: true,
			},
			Compliance: Compliance{Regulations: []string{"LGPD", "ISO27001"}, RetentionPeriodDays: 180},
		},
		{
			ID:        "r2",
			Actor:     Actor{ID: "u1", Role: RoleUser, Name: "Ana"},
			Event:     Event{Type: EventTypeLogin, Action: "login", Category: CategoryAuthentication, Severity: SeverityLow},
			Source:    Source{IP: "10.0.0.2", Platform: PlatformMobile},
			Status:    StatusFailure,
			Timestamp: 1500,
			ExpiresAt: 2500,
		},
	}
}

func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ExportFormat
		wantErr bool
	}{
		{"", ExportJSON, false},
		{"json", ExportJSON, false},
		{" CSV ", ExportCSV, false},
		{"xlsx", "", true},
	}
	for _, tt := range tests {
		got, err := ParseExportFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseExportFormat(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseExportFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRender_JSON(t *testing.T) {
	data, err := Render(ExportJSON, sampleRecords())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	var decoded []Record
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[0].RiskAssessment == nil || decoded[0].RiskAssessment.Score != 65 {
		t.Errorf("decoded = %+v", decoded)
	}

	empty, err := Render(ExportJSON, nil)
	if err != nil {
		t.Fatalf("Render(nil) error = %v", err)
	}
	if string(empty) != "[]" {
		t.Errorf("empty export = %s, want []", empty)
	}
}

func TestRender_CSV(t *testing.T) {
	data, err := Render(ExportCSV, sampleRecords())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if len(rows[0]) != len(csvHeader) {
		t.Errorf("header width = %d", len(rows[0]))
	}

	col := func(name string) int {
		for i, h := range rows[0] {
			if h == name {
				return i
			}
		}
		t.Fatalf("missing column %s", name)
		return -1
	}
	if rows[1][col("actor_name")] != "Acme, Ltd" {
		t.Errorf("quoted field = %q", rows[1][col("actor_name")])
	}
	if rows[1][col("regulations")] != "LGPD;ISO27001" {
		t.Errorf("regulations = %q", rows[1][col("regulations")])
	}
	if rows[1][col("risk_score")] != "65" || rows[2][col("risk_score")] != "" {
		t.Errorf("risk score columns = %q / %q", rows[1][col("risk_score")], rows[2][col("risk_score")])
	}
	if rows[2][col("resource_type")] != "" {
		t.Errorf("resource-less row has resource_type %q", rows[2][col("resource_type")])
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	if _, err := Render("xml", nil); !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestChecksum(t *testing.T) {
	a := Checksum([]byte("audit"))
	if len(a) != 64 {
		t.Errorf("checksum length = %d, want 64 hex chars", len(a))
	}
	if a != Checksum([]byte("audit")) {
		t.Error("checksum is not deterministic")
	}
	if a == Checksum([]byte("audit!")) {
		t.Error("different input produced the same checksum")
	}
}
