// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/auditrail/internal/audit"
)

type manualEntry struct {
	Type     string `json:"type" validate:"required,audit_event_type"`
	Action   string `json:"action" validate:"required,max=500"`
	Severity string `json:"severity" validate:"omitempty,audit_severity"`
	Status   string `json:"status" validate:"omitempty,audit_status"`
	Category string `json:"category,omitempty" validate:"omitempty,audit_category"`
	Platform string `json:"platform" validate:"omitempty,audit_platform"`
	Role     string `json:"role" validate:"omitempty,audit_role"`
	IP       string `json:"ip" validate:"omitempty,ip"`
	Limit    int    `json:"limit" validate:"gte=0,lte=1000"`
	Internal string `json:"-" validate:"omitempty,min=2"`
	Note     string `validate:"omitempty,min=2"`
}

func validEntry() manualEntry {
	return manualEntry{
		Type:     string(audit.EventTypeLogin),
		Action:   "login",
		Severity: "low",
		Status:   "success",
		Category: string(audit.CategoryAuthentication),
		Platform: "web",
		Role:     "master",
		IP:       "10.0.0.1",
		Limit:    10,
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	e := validEntry()
	if err := ValidateStruct(&e); err != nil {
		t.Fatalf("ValidateStruct() = %v", err)
	}
}

func TestValidateStruct_Enums(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*manualEntry)
		field  string
		tag    string
	}{
		{"unknown event type", func(e *manualEntry) { e.Type = "teleport" }, "type", "audit_event_type"},
		{"missing event type", func(e *manualEntry) { e.Type = "" }, "type", "required"},
		{"bad severity", func(e *manualEntry) { e.Severity = "severe" }, "severity", "audit_severity"},
		{"bad status", func(e *manualEntry) { e.Status = "ok" }, "status", "audit_status"},
		{"bad category", func(e *manualEntry) { e.Category = "misc" }, "category", "audit_category"},
		{"bad platform", func(e *manualEntry) { e.Platform = "desktop" }, "platform", "audit_platform"},
		{"bad role", func(e *manualEntry) { e.Role = "root" }, "role", "audit_role"},
		{"bad ip", func(e *manualEntry) { e.IP = "not-an-ip" }, "ip", "ip"},
		{"limit too high", func(e *manualEntry) { e.Limit = 1001 }, "limit", "lte"},
		{"action too long", func(e *manualEntry) { e.Action = strings.Repeat("a", 501) }, "action", "max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntry()
			tt.mutate(&e)
			verr := ValidateStruct(&e)
			if verr == nil {
				t.Fatal("expected validation error")
			}
			if len(verr.Errors()) != 1 {
				t.Fatalf("errors = %v", verr.Errors())
			}
			got := verr.Errors()[0]
			if got.Field() != tt.field || got.Tag() != tt.tag {
				t.Errorf("field/tag = %s/%s, want %s/%s", got.Field(), got.Tag(), tt.field, tt.tag)
			}
			if !errors.Is(verr, audit.ErrValidation) {
				t.Error("RequestValidationError should unwrap to audit.ErrValidation")
			}
		})
	}
}

func TestValidateStruct_Messages(t *testing.T) {
	e := validEntry()
	e.Type = ""
	e.Limit = -1
	verr := ValidateStruct(&e)
	if verr == nil {
		t.Fatal("expected validation error")
	}

	msg := verr.Error()
	for _, want := range []string{"type is required", "limit must be greater than or equal to 0"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}

	details := verr.Details()
	fields, ok := details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Errorf("Details() = %v", details)
	}
}

func TestValidateStruct_SingleDetail(t *testing.T) {
	e := validEntry()
	e.Severity = "severe"
	details := ValidateStruct(&e).Details()
	if details["field"] != "severity" || details["value"] != "severe" {
		t.Errorf("Details() = %v", details)
	}
}

func TestValidateStruct_FieldNames(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*manualEntry)
		want   string
	}{
		{"json hidden field", func(e *manualEntry) { e.Internal = "x" }, "Internal"},
		{"untagged field", func(e *manualEntry) { e.Note = "x" }, "Note"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntry()
			tt.mutate(&e)
			verr := ValidateStruct(&e)
			if verr == nil {
				t.Fatal("expected validation error")
			}
			if got := verr.Errors()[0].Field(); got != tt.want {
				t.Errorf("Field() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateStruct_NotAStruct(t *testing.T) {
	verr := ValidateStruct("nope")
	if verr == nil || verr.Errors()[0].Field() != "request" {
		t.Errorf("ValidateStruct(string) = %v", verr)
	}
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator should return the same instance")
	}
}
