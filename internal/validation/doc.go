// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

// Package validation validates HTTP request structs with
// go-playground/validator v10.
//
// A single validator instance is built once and shared. Besides the
// built-in tags it registers the audit enumerations:
//
//	audit_event_type  one of audit.EventTypes()
//	audit_category    a known audit.Category
//	audit_severity    low, medium, high or critical
//	audit_status      success, failure, partial or pending
//	audit_platform    web, mobile, api, system or unknown
//	audit_role        master, partner, user, guest or system
//
// Field names in messages come from the json tag, so errors name the field
// the client actually sent:
//
//	type archiveRequest struct {
//	    OlderThanDays int `json:"olderThanDays" validate:"required,gte=1,lte=3650"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    // errors.Is(verr, audit.ErrValidation) == true
//	}
//
// RequestValidationError unwraps to audit.ErrValidation so the API layer maps
// it to 400 like every other validation failure.
package validation
