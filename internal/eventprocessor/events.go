// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package eventprocessor

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/auditrail/internal/audit"
)

// Metadata keys set on every published message.
const (
	MetadataKind     = "kind"
	MetadataCategory = "category"
	MetadataSeverity = "severity"
	MetadataActorID  = "actor_id"
)

// AuditEvent is the payload published for one notification.
type AuditEvent struct {
	EventID     string                 `json:"eventId"`
	Kind        audit.NotificationKind `json:"kind"`
	PublishedAt int64                  `json:"publishedAt"`
	Record      audit.Record           `json:"record"`
}

// NewMessage encodes the event as a Watermill message. The message UUID is
// derived from the record ID and kind, so a retried publish deduplicates.
func (e *AuditEvent) NewMessage() (*message.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode audit event: %w", err)
	}
	msg := message.NewMessage(e.EventID, data)
	msg.Metadata.Set(MetadataKind, string(e.Kind))
	msg.Metadata.Set(MetadataCategory, string(e.Record.Event.Category))
	msg.Metadata.Set(MetadataSeverity, string(e.Record.Event.Severity))
	msg.Metadata.Set(MetadataActorID, e.Record.Actor.ID)
	return msg, nil
}

// DecodeEvent parses a message payload.
func DecodeEvent(payload []byte) (*AuditEvent, error) {
	var e AuditEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("decode audit event: %w", err)
	}
	if e.Record.ID == "" {
		return nil, fmt.Errorf("decode audit event: missing record id")
	}
	return &e, nil
}

func eventID(kind audit.NotificationKind, recordID string) string {
	return string(kind) + ":" + recordID
}
