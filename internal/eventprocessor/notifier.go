// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package eventprocessor

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/auditrail/internal/audit"
)

// MessagePublisher is satisfied by *Publisher.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message) error
}

// Notifier implements audit.Notifier by publishing each notification to
// its topic.
type Notifier struct {
	publisher MessagePublisher
	prefix    string
	now       func() time.Time
}

var _ audit.Notifier = (*Notifier)(nil)

// NewNotifier publishes through pub under the given topic prefix.
func NewNotifier(pub MessagePublisher, prefix string) *Notifier {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &Notifier{publisher: pub, prefix: prefix, now: time.Now}
}

// Notify publishes n.
func (n *Notifier) Notify(ctx context.Context, note audit.Notification) error {
	event := &AuditEvent{
		EventID:     eventID(note.Kind, note.Record.ID),
		Kind:        note.Kind,
		PublishedAt: audit.ToMillis(n.now()),
		Record:      note.Record,
	}
	msg, err := event.NewMessage()
	if err != nil {
		return err
	}
	return n.publisher.Publish(ctx, Topic(n.prefix, note.Kind), msg)
}
