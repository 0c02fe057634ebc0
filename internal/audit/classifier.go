// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package audit

import (
	"sort"
	"strings"
)

// eventClass is the classifier entry for one event type.
type eventClass struct {
	category Category
	severity Severity
}

// eventClasses is the closed event-type table. It is never mutated after init.
var eventClasses = map[EventType]eventClass{
	EventTypeLogin:            {CategoryAuthentication, SeverityLow},
	EventTypeLogout:           {CategoryAuthentication, SeverityLow},
	EventTypeLoginFailed:      {CategoryAuthentication, SeverityMedium},
	EventTypePasswordChange:   {CategoryAuthentication, SeverityMedium},
	EventTypePasswordReset:    {CategoryAuthentication, SeverityMedium},
	EventTypeTwoFactorEnable:  {CategoryAuthentication, SeverityLow},
	EventTypeTwoFactorDisable: {CategoryAuthentication, SeverityHigh},
	EventTypeSessionExpired:   {CategoryAuthentication, SeverityLow},

	EventTypePermissionGrant:  {CategoryAuthorization, SeverityHigh},
	EventTypePermissionRevoke: {CategoryAuthorization, SeverityHigh},
	EventTypeRoleChange:       {CategoryAuthorization, SeverityCritical},
	EventTypeAccessDenied:     {CategoryAuthorization, SeverityMedium},

	EventTypeCreate:        {CategoryDataModification, SeverityLow},
	EventTypeUpdate:        {CategoryDataModification, SeverityLow},
	EventTypeDelete:        {CategoryDataModification, SeverityHigh},
	EventTypeBulkOperation: {CategoryDataModification, SeverityHigh},
	EventTypeDataImport:    {CategoryDataModification, SeverityMedium},

	EventTypeAssetCreate:      {CategoryAssetManagement, SeverityLow},
	EventTypeAssetUpdate:      {CategoryAssetManagement, SeverityLow},
	EventTypeAssetDelete:      {CategoryAssetManagement, SeverityHigh},
	EventTypeAssetPublish:     {CategoryAssetManagement, SeverityLow},
	EventTypeAssetUnpublish:   {CategoryAssetManagement, SeverityMedium},
	EventTypeAssetPriceChange: {CategoryAssetManagement, SeverityMedium},

	EventTypeBookingCreate:      {CategoryBookingManagement, SeverityLow},
	EventTypeBookingUpdate:      {CategoryBookingManagement, SeverityLow},
	EventTypeBookingCancel:      {CategoryBookingManagement, SeverityMedium},
	EventTypeBookingConfirm:     {CategoryBookingManagement, SeverityLow},
	EventTypeBookingComplete:    {CategoryBookingManagement, SeverityLow},
	EventTypeBookingAutoConfirm: {CategoryBookingManagement, SeverityLow},

	EventTypeProposalCreate: {CategoryBusinessOperations, SeverityLow},
	EventTypeProposalUpdate: {CategoryBusinessOperations, SeverityLow},
	EventTypeProposalSend:   {CategoryBusinessOperations, SeverityLow},
	EventTypeProposalAccept: {CategoryBusinessOperations, SeverityMedium},
	EventTypeProposalReject: {CategoryBusinessOperations, SeverityLow},

	EventTypeChatMessageSend:  {CategoryCommunication, SeverityLow},
	EventTypeEmailSend:        {CategoryCommunication, SeverityLow},
	EventTypeNotificationSend: {CategoryCommunication, SeverityLow},

	EventTypePaymentCreate: {CategoryFinancial, SeverityMedium},
	EventTypePaymentRefund: {CategoryFinancial, SeverityHigh},
	EventTypePayoutProcess: {CategoryFinancial, SeverityHigh},

	EventTypePartnerCreate:  {CategoryPartnerManagement, SeverityMedium},
	EventTypePartnerUpdate:  {CategoryPartnerManagement, SeverityLow},
	EventTypePartnerApprove: {CategoryPartnerManagement, SeverityMedium},
	EventTypePartnerSuspend: {CategoryPartnerManagement, SeverityHigh},

	EventTypeSystemConfigChange: {CategorySystemAdministration, SeverityCritical},
	EventTypeSystemBackup:       {CategorySystemAdministration, SeverityMedium},
	EventTypeSystemRestore:      {CategorySystemAdministration, SeverityCritical},
	EventTypeDataExport:         {CategorySystemAdministration, SeverityMedium},

	EventTypeRetentionPolicyUpdate: {CategoryCompliance, SeverityHigh},
	EventTypeAuditCleanup:          {CategoryCompliance, SeverityMedium},
	EventTypeAuditArchive:          {CategoryCompliance, SeverityLow},
	EventTypeAuditBulkDelete:       {CategoryCompliance, SeverityCritical},
	EventTypeManualEntry:           {CategoryCompliance, SeverityMedium},
}

// personalDataEvents carry personal data regardless of resource.
var personalDataEvents = map[EventType]struct{}{
	EventTypeLogin:           {},
	EventTypeLogout:          {},
	EventTypePasswordChange:  {},
	EventTypeCreate:          {},
	EventTypeUpdate:          {},
	EventTypeBookingCreate:   {},
	EventTypeBookingUpdate:   {},
	EventTypeChatMessageSend: {},
}

// personalDataResources are resource type fragments that imply personal data.
var personalDataResources = []string{"users", "bookings", "chat"}

// Classify returns the category of an event type. Unknown types map to
// CategoryOther.
func Classify(t EventType) Category {
	if c, ok := eventClasses[t]; ok {
		return c.category
	}
	return CategoryOther
}

// AssessSeverity returns the default severity of an event type. Unknown types
// map to SeverityLow.
func AssessSeverity(t EventType) Severity {
	if c, ok := eventClasses[t]; ok {
		return c.severity
	}
	return SeverityLow
}

// IsPersonalData reports whether an event of the given type, optionally
// targeting resourceType, involves personal data.
func IsPersonalData(t EventType, resourceType string) bool {
	if _, ok := personalDataEvents[t]; ok {
		return true
	}
	if resourceType == "" {
		return false
	}
	rt := strings.ToLower(resourceType)
	for _, fragment := range personalDataResources {
		if strings.Contains(rt, fragment) {
			return true
		}
	}
	return false
}

// EventTypes returns every known event type in lexical order.
func EventTypes() []EventType {
	types := make([]EventType, 0, len(eventClasses))
	for t := range eventClasses {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Valid reports whether t is in the closed enumeration.
func (t EventType) Valid() bool {
	_, ok := eventClasses[t]
	return ok
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryAuthentication, CategoryAuthorization, CategoryDataModification,
		CategoryAssetManagement, CategoryBookingManagement, CategoryBusinessOperations,
		CategoryCommunication, CategoryFinancial, CategoryPartnerManagement,
		CategorySystemAdministration, CategoryCompliance, CategoryOther:
		return true
	}
	return false
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusPartial, StatusPending:
		return true
	}
	return false
}

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformWeb, PlatformMobile, PlatformAPI, PlatformSystem, PlatformUnknown:
		return true
	}
	return false
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleMaster, RolePartner, RoleUser, RoleGuest, RoleSystem:
		return true
	}
	return false
}

// ParseEventType validates a caller-supplied event type string.
func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.TrimSpace(s))
	if !t.Valid() {
		return "", invalidField("type", "unknown event type %q", s)
	}
	return t, nil
}

// ParseCategory validates a caller-supplied category string.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if !c.Valid() {
		return "", invalidField("category", "unknown category %q", s)
	}
	return c, nil
}

// ParseSeverity validates a caller-supplied severity string.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.Valid() {
		return "", invalidField("severity", "unknown severity %q", s)
	}
	return sev, nil
}

// ParseStatus validates a caller-supplied status string.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", invalidField("status", "unknown status %q", s)
	}
	return st, nil
}

// ParseRole validates a caller-supplied role string.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", invalidField("role", "unknown role %q", s)
	}
	return r, nil
}
