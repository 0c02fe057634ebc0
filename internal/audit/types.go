// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package audit

import (
	"time"

	"github.com/goccy/go-json"
)

// MillisPerDay converts retention days into the epoch-millisecond timeline.
const MillisPerDay int64 = 86400000

// EventType identifies the specific business action being recorded.
type EventType string

const (
	// Authentication events
	EventTypeLogin            EventType = "login"
	EventTypeLogout           EventType = "logout"
	EventTypeLoginFailed      EventType = "login_failed"
	EventTypePasswordChange   EventType = "password_change"
	EventTypePasswordReset    EventType = "password_reset"
	EventTypeTwoFactorEnable  EventType = "two_factor_enable"
	EventTypeTwoFactorDisable EventType = "two_factor_disable"
	EventTypeSessionExpired   EventType = "session_expired"

	// Authorization events
	EventTypePermissionGrant  EventType = "permission_grant"
	EventTypePermissionRevoke EventType = "permission_revoke"
	EventTypeRoleChange       EventType = "role_change"
	EventTypeAccessDenied     EventType = "access_denied"

	// Generic data modification events
	EventTypeCreate        EventType = "create"
	EventTypeUpdate        EventType = "update"
	EventTypeDelete        EventType = "delete"
	EventTypeBulkOperation EventType = "bulk_operation"
	EventTypeDataImport    EventType = "data_import"

	// Asset management events
	EventTypeAssetCreate      EventType = "asset_create"
	EventTypeAssetUpdate      EventType = "asset_update"
	EventTypeAssetDelete      EventType = "asset_delete"
	EventTypeAssetPublish     EventType = "asset_publish"
	EventTypeAssetUnpublish   EventType = "asset_unpublish"
	EventTypeAssetPriceChange EventType = "asset_price_change"

	// Booking events
	EventTypeBookingCreate      EventType = "booking_create"
	EventTypeBookingUpdate      EventType = "booking_update"
	EventTypeBookingCancel      EventType = "booking_cancel"
	EventTypeBookingConfirm     EventType = "booking_confirm"
	EventTypeBookingComplete    EventType = "booking_complete"
	EventTypeBookingAutoConfirm EventType = "booking_auto_confirm"

	// Package proposal events
	EventTypeProposalCreate EventType = "package_proposal_create"
	EventTypeProposalUpdate EventType = "package_proposal_update"
	EventTypeProposalSend   EventType = "package_proposal_send"
	EventTypeProposalAccept EventType = "package_proposal_accept"
	EventTypeProposalReject EventType = "package_proposal_reject"

	// Communication events
	EventTypeChatMessageSend  EventType = "chat_message_send"
	EventTypeEmailSend        EventType = "email_send"
	EventTypeNotificationSend EventType = "notification_send"

	// Financial events
	EventTypePaymentCreate EventType = "payment_create"
	EventTypePaymentRefund EventType = "payment_refund"
	EventTypePayoutProcess EventType = "payout_process"

	// Partner management events
	EventTypePartnerCreate  EventType = "partner_create"
	EventTypePartnerUpdate  EventType = "partner_update"
	EventTypePartnerApprove EventType = "partner_approve"
	EventTypePartnerSuspend EventType = "partner_suspend"

	// System administration events
	EventTypeSystemConfigChange EventType = "system_config_change"
	EventTypeSystemBackup       EventType = "system_backup"
	EventTypeSystemRestore      EventType = "system_restore"
	EventTypeDataExport         EventType = "data_export"

	// Audit self-documentation events
	EventTypeRetentionPolicyUpdate EventType = "retention_policy_update"
	EventTypeAuditCleanup          EventType = "audit_cleanup"
	EventTypeAuditArchive          EventType = "audit_archive"
	EventTypeAuditBulkDelete       EventType = "audit_bulk_delete"
	EventTypeManualEntry           EventType = "manual_entry"
)

// Category is the coarse reporting group of an event type.
type Category string

const (
	CategoryAuthentication       Category = "authentication"
	CategoryAuthorization        Category = "authorization"
	CategoryDataModification     Category = "data_modification"
	CategoryAssetManagement      Category = "asset_management"
	CategoryBookingManagement    Category = "booking_management"
	CategoryBusinessOperations   Category = "business_operations"
	CategoryCommunication        Category = "communication"
	CategoryFinancial            Category = "financial"
	CategoryPartnerManagement    Category = "partner_management"
	CategorySystemAdministration Category = "system_administration"
	CategoryCompliance           Category = "compliance"
	CategoryOther                Category = "other"
)

// Severity is the risk weight attached to an event.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Status is the outcome of the recorded action.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusPartial Status = "partial"
	StatusPending Status = "pending"
)

// Platform is the client surface the action originated from.
type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformMobile  Platform = "mobile"
	PlatformAPI     Platform = "api"
	PlatformSystem  Platform = "system"
	PlatformUnknown Platform = "unknown"
)

// Role is the actor's role at the time of the action.
type Role string

const (
	RoleMaster  Role = "master"
	RolePartner Role = "partner"
	RoleUser    Role = "user"
	RoleGuest   Role = "guest"
	RoleSystem  Role = "system"
)

// Actor identifies who performed the action.
type Actor struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Event describes what happened.
type Event struct {
	Type     EventType `json:"type"`
	Action   string    `json:"action"`
	Category Category  `json:"category"`
	Severity Severity  `json:"severity"`
}

// Resource is the optional target of an action. OrganizationID and PartnerID
// carry ownership used for role scoping.
type Resource struct {
	Type           string `json:"type"`
	ID             string `json:"id"`
	Name           string `json:"name,omitempty"`
	OrganizationID string `json:"organizationId,omitempty"`
	PartnerID      string `json:"partnerId,omitempty"`
}

// Source captures where the action came from.
type Source struct {
	IP        string   `json:"ip"`
	UserAgent string   `json:"userAgent,omitempty"`
	Platform  Platform `json:"platform"`
	Location  string   `json:"location,omitempty"`
}

// Metadata holds per-family typed attributes plus an escape-hatch map.
//
// Reserved keys: before/after snapshots, batchId, error, amount/currency,
// count, reason, targetIds, archived/archivedAt. Anything else goes in Extra.
type Metadata struct {
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	BatchID    string          `json:"batchId,omitempty"`
	Error      string          `json:"error,omitempty"`
	Amount     *float64        `json:"amount,omitempty"`
	Currency   string          `json:"currency,omitempty"`
	Count      *int            `json:"count,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	TargetIDs  []string        `json:"targetIds,omitempty"`
	Archived   bool            `json:"archived,omitempty"`
	ArchivedAt int64           `json:"archivedAt,omitempty"`
	Extra      map[string]any  `json:"extra,omitempty"`
}

// RiskAssessment is the scoring result stored alongside a record.
type RiskAssessment struct {
	Score          int      `json:"score"`
	Factors        []string `json:"factors"`
	IsAnomalous    bool     `json:"isAnomalous"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// Compliance carries regulatory tags and the retention window.
type Compliance struct {
	Regulations         []string `json:"regulations"`
	RetentionPeriodDays int      `json:"retentionPeriodDays"`
	IsPersonalData      bool     `json:"isPersonalData"`
	DataClassification  string   `json:"dataClassification,omitempty"`
}

// Record is one immutable audit log entry.
type Record struct {
	ID             string          `json:"id"`
	CreatedAt      int64           `json:"createdAt"`
	Actor          Actor           `json:"actor"`
	Event          Event           `json:"event"`
	Resource       *Resource       `json:"resource,omitempty"`
	Source         Source          `json:"source"`
	Status         Status          `json:"status"`
	Metadata       Metadata        `json:"metadata"`
	RiskAssessment *RiskAssessment `json:"riskAssessment,omitempty"`
	Compliance     Compliance      `json:"compliance"`
	Timestamp      int64           `json:"timestamp"`
	ExpiresAt      int64           `json:"expiresAt"`
}

// RiskContext is the ephemeral input to a risk scorer.
type RiskContext struct {
	ActorID       string
	IP            string
	UserAgent     string
	Timestamp     time.Time
	EventType     EventType
	ResourceType  string
	RecentActions []EventType
	BehaviorScore *int
}

// RetentionPolicy maps a category and severity to a retention window.
type RetentionPolicy struct {
	Category      Category `json:"category"`
	Severity      Severity `json:"severity"`
	RetentionDays int      `json:"retentionDays"`
	AutoDelete    bool     `json:"autoDelete"`
	Reason        string   `json:"reason,omitempty"`
	UpdatedBy     string   `json:"updatedBy,omitempty"`
	UpdatedAt     int64    `json:"updatedAt"`
}

// Caller is the authenticated identity invoking an operation.
type Caller struct {
	ID    string
	Role  Role
	Name  string
	Email string
}

// SystemCaller is used by internal jobs such as the scheduled cleanup.
func SystemCaller() *Caller {
	return &Caller{
		ID:   "system",
		Role: RoleSystem,
		Name: "System",
	}
}

// ToMillis converts a time to epoch milliseconds.
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts epoch milliseconds to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
