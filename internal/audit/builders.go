// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package audit

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// The builders below map a structured operation onto a WriteInput and hand it
// to Writer.Write. None of them touches the store directly.

// AssetOp is an asset lifecycle operation.
type AssetOp string

const (
	AssetOpCreate      AssetOp = "create"
	AssetOpUpdate      AssetOp = "update"
	AssetOpDelete      AssetOp = "delete"
	AssetOpPublish     AssetOp = "publish"
	AssetOpUnpublish   AssetOp = "unpublish"
	AssetOpPriceChange AssetOp = "price_change"
)

var assetEventTypes = map[AssetOp]EventType{
	AssetOpCreate:      EventTypeAssetCreate,
	AssetOpUpdate:      EventTypeAssetUpdate,
	AssetOpDelete:      EventTypeAssetDelete,
	AssetOpPublish:     EventTypeAssetPublish,
	AssetOpUnpublish:   EventTypeAssetUnpublish,
	AssetOpPriceChange: EventTypeAssetPriceChange,
}

// AssetOperation describes a change to a partner-owned asset.
type AssetOperation struct {
	Op        AssetOp
	AssetID   string
	AssetName string
	PartnerID string
	Before    []byte
	After     []byte
	Extra     map[string]any
	Request   *RequestContext
}

// LogAssetOperation records an asset create/update/delete/publish event.
func (w *Writer) LogAssetOperation(ctx context.Context, caller *Caller, op AssetOperation) (string, error) {
	eventType, ok := assetEventTypes[op.Op]
	if !ok {
		return "", invalidField("op", "unknown asset operation %q", op.Op)
	}
	return w.Write(ctx, caller, WriteInput{
		Type:   eventType,
		Action: describe("Asset", op.Op, op.AssetName, op.AssetID),
		Resource: &Resource{
			Type:      "assets",
			ID:        op.AssetID,
			Name:      op.AssetName,
			PartnerID: op.PartnerID,
		},
		Metadata: Metadata{Before: op.Before, After: op.After, Extra: op.Extra},
		Request:  op.Request,
	})
}

// BookingOp is a booking state transition.
type BookingOp string

const (
	BookingOpCreate   BookingOp = "create"
	BookingOpUpdate   BookingOp = "update"
	BookingOpCancel   BookingOp = "cancel"
	BookingOpConfirm  BookingOp = "confirm"
	BookingOpComplete BookingOp = "complete"
)

var bookingEventTypes = map[BookingOp]EventType{
	BookingOpCreate:   EventTypeBookingCreate,
	BookingOpUpdate:   EventTypeBookingUpdate,
	BookingOpCancel:   EventTypeBookingCancel,
	BookingOpConfirm:  EventTypeBookingConfirm,
	BookingOpComplete: EventTypeBookingComplete,
}

// BookingOperation describes a booking transition.
type BookingOperation struct {
	Op        BookingOp
	BookingID string
	AssetName string
	PartnerID string
	Amount    *float64
	Currency  string
	Reason    string
	Extra     map[string]any
	Request   *RequestContext
}

// LogBookingOperation records a booking transition.
func (w *Writer) LogBookingOperation(ctx context.Context, caller *Caller, op BookingOperation) (string, error) {
	eventType, ok := bookingEventTypes[op.Op]
	if !ok {
		return "", invalidField("op", "unknown booking operation %q", op.Op)
	}
	return w.Write(ctx, caller, WriteInput{
		Type:   eventType,
		Action: describe("Booking", op.Op, op.AssetName, op.BookingID),
		Resource: &Resource{
			Type:      "bookings",
			ID:        op.BookingID,
			Name:      op.AssetName,
			PartnerID: op.PartnerID,
		},
		Metadata: Metadata{
			Amount:   op.Amount,
			Currency: op.Currency,
			Reason:   op.Reason,
			Extra:    op.Extra,
		},
		Request: op.Request,
	})
}

// PermissionOp is a change to a user's permissions.
type PermissionOp string

const (
	PermissionOpGrant      PermissionOp = "grant"
	PermissionOpRevoke     PermissionOp = "revoke"
	PermissionOpRoleChange PermissionOp = "role_change"
)

var permissionEventTypes = map[PermissionOp]EventType{
	PermissionOpGrant:      EventTypePermissionGrant,
	PermissionOpRevoke:     EventTypePermissionRevoke,
	PermissionOpRoleChange: EventTypeRoleChange,
}

// PermissionChange describes a grant, revoke or role change on a user.
type PermissionChange struct {
	Op           PermissionOp
	TargetUserID string
	TargetName   string
	Permission   string
	OldRole      Role
	NewRole      Role
	Reason       string
	Request      *RequestContext
}

// LogPermissionChange records a permission grant/revoke or role change.
// Permission changes are always risk-assessed.
func (w *Writer) LogPermissionChange(ctx context.Context, caller *Caller, change PermissionChange) (string, error) {
	eventType, ok := permissionEventTypes[change.Op]
	if !ok {
		return "", invalidField("op", "unknown permission operation %q", change.Op)
	}

	var action string
	meta := Metadata{Reason: change.Reason}
	switch change.Op {
	case PermissionOpRoleChange:
		action = fmt.Sprintf("Role of %s changed from %s to %s", targetLabel(change.TargetName, change.TargetUserID), change.OldRole, change.NewRole)
		meta.Before = jsonString(string(change.OldRole))
		meta.After = jsonString(string(change.NewRole))
	default:
		verb := "granted to"
		if change.Op == PermissionOpRevoke {
			verb = "revoked from"
		}
		action = fmt.Sprintf("Permission %q %s %s", change.Permission, verb, targetLabel(change.TargetName, change.TargetUserID))
		meta.Extra = map[string]any{"permission": change.Permission}
	}

	return w.Write(ctx, caller, WriteInput{
		Type:   eventType,
		Action: action,
		Resource: &Resource{
			Type: "users",
			ID:   change.TargetUserID,
			Name: change.TargetName,
		},
		Metadata:   meta,
		Request:    change.Request,
		AssessRisk: true,
	})
}

// ProposalOp is a package proposal transition.
type ProposalOp string

const (
	ProposalOpCreate ProposalOp = "create"
	ProposalOpUpdate ProposalOp = "update"
	ProposalOpSend   ProposalOp = "send"
	ProposalOpAccept ProposalOp = "accept"
	ProposalOpReject ProposalOp = "reject"
)

var proposalEventTypes = map[ProposalOp]EventType{
	ProposalOpCreate: EventTypeProposalCreate,
	ProposalOpUpdate: EventTypeProposalUpdate,
	ProposalOpSend:   EventTypeProposalSend,
	ProposalOpAccept: EventTypeProposalAccept,
	ProposalOpReject: EventTypeProposalReject,
}

// PackageProposal describes a package proposal transition.
type PackageProposal struct {
	Op         ProposalOp
	ProposalID string
	Title      string
	PartnerID  string
	ClientID   string
	Amount     *float64
	Currency   string
	Request    *RequestContext
}

// LogPackageProposal records a package proposal transition.
func (w *Writer) LogPackageProposal(ctx context.Context, caller *Caller, p PackageProposal) (string, error) {
	eventType, ok := proposalEventTypes[p.Op]
	if !ok {
		return "", invalidField("op", "unknown proposal operation %q", p.Op)
	}
	meta := Metadata{Amount: p.Amount, Currency: p.Currency}
	if p.ClientID != "" {
		meta.Extra = map[string]any{"clientId": p.ClientID}
	}
	return w.Write(ctx, caller, WriteInput{
		Type:   eventType,
		Action: describe("Package proposal", p.Op, p.Title, p.ProposalID),
		Resource: &Resource{
			Type:      "package_proposals",
			ID:        p.ProposalID,
			Name:      p.Title,
			PartnerID: p.PartnerID,
		},
		Metadata: meta,
		Request:  p.Request,
	})
}

// AutoConfirmation describes a booking confirmed without partner action.
type AutoConfirmation struct {
	BookingID string
	PartnerID string
	Rule      string
}

// LogAutoConfirmation records an automatic booking confirmation. The caller
// is normally SystemCaller().
func (w *Writer) LogAutoConfirmation(ctx context.Context, caller *Caller, c AutoConfirmation) (string, error) {
	return w.Write(ctx, caller, WriteInput{
		Type:   EventTypeBookingAutoConfirm,
		Action: fmt.Sprintf("Booking %s auto-confirmed", c.BookingID),
		Resource: &Resource{
			Type:      "bookings",
			ID:        c.BookingID,
			PartnerID: c.PartnerID,
		},
		Metadata: Metadata{Reason: c.Rule},
	})
}

// CommunicationChannel is the delivery channel of a message.
type CommunicationChannel string

const (
	ChannelChat         CommunicationChannel = "chat"
	ChannelEmail        CommunicationChannel = "email"
	ChannelNotification CommunicationChannel = "notification"
)

var communicationEvents = map[CommunicationChannel]struct {
	eventType    EventType
	resourceType string
}{
	ChannelChat:         {EventTypeChatMessageSend, "chat"},
	ChannelEmail:        {EventTypeEmailSend, "emails"},
	ChannelNotification: {EventTypeNotificationSend, "notifications"},
}

// Communication describes an outbound message.
type Communication struct {
	Channel     CommunicationChannel
	MessageID   string
	RecipientID string
	Subject     string
	PartnerID   string
	Failed      bool
	Error       string
	Request     *RequestContext
}

// LogCommunication records a chat message, email or notification send.
func (w *Writer) LogCommunication(ctx context.Context, caller *Caller, c Communication) (string, error) {
	ev, ok := communicationEvents[c.Channel]
	if !ok {
		return "", invalidField("channel", "unknown communication channel %q", c.Channel)
	}
	status := StatusSuccess
	if c.Failed {
		status = StatusFailure
	}
	meta := Metadata{Error: c.Error}
	if c.RecipientID != "" {
		meta.Extra = map[string]any{"recipientId": c.RecipientID}
	}
	return w.Write(ctx, caller, WriteInput{
		Type:   ev.eventType,
		Action: fmt.Sprintf("%s sent to %s", c.Channel, targetLabel("", c.RecipientID)),
		Resource: &Resource{
			Type:      ev.resourceType,
			ID:        c.MessageID,
			Name:      c.Subject,
			PartnerID: c.PartnerID,
		},
		Status:   status,
		Metadata: meta,
		Request:  c.Request,
	})
}

// BulkOperation describes an operation applied to many targets at once.
type BulkOperation struct {
	Operation    string
	ResourceType string
	TargetIDs    []string
	Succeeded    int
	Failed       int
	BatchID      string
	Request      *RequestContext
}

// LogBulkOperation records a bulk operation. Status is derived from the
// success and failure counts.
func (w *Writer) LogBulkOperation(ctx context.Context, caller *Caller, op BulkOperation) (string, error) {
	if op.Operation == "" {
		return "", invalidField("operation", "is required")
	}
	batchID := op.BatchID
	if batchID == "" {
		batchID = uuid.New().String()
	}
	total := op.Succeeded + op.Failed

	status := StatusSuccess
	switch {
	case op.Failed > 0 && op.Succeeded == 0:
		status = StatusFailure
	case op.Failed > 0:
		status = StatusPartial
	}

	return w.Write(ctx, caller, WriteInput{
		Type:   EventTypeBulkOperation,
		Action: fmt.Sprintf("Bulk %s on %d %s (%d succeeded, %d failed)", op.Operation, total, op.ResourceType, op.Succeeded, op.Failed),
		Resource: &Resource{
			Type: op.ResourceType,
			ID:   batchID,
		},
		Status: status,
		Metadata: Metadata{
			BatchID:   batchID,
			Count:     &total,
			TargetIDs: append([]string(nil), op.TargetIDs...),
		},
		Request:    op.Request,
		AssessRisk: true,
	})
}

func describe[T ~string](noun string, op T, name, id string) string {
	return fmt.Sprintf("%s %s: %s", noun, op, targetLabel(name, id))
}

func targetLabel(name, id string) string {
	if name != "" {
		return name
	}
	if id != "" {
		return id
	}
	return "unknown"
}

func jsonString(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}
