// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package websocket

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/auditrail/internal/eventprocessor"
	"github.com/tomtom215/auditrail/internal/logging"
)

// Forwarder bridges bus notifications to the hub.
type Forwarder struct {
	hub        *Hub
	subscriber message.Subscriber
	topics     []string
}

// NewForwarder subscribes to the anomaly and lifecycle topics under prefix.
func NewForwarder(hub *Hub, subscriber message.Subscriber, prefix string) *Forwarder {
	return &Forwarder{
		hub:        hub,
		subscriber: subscriber,
		topics:     eventprocessor.Topics(prefix),
	}
}

// String names the forwarder for the supervisor.
func (f *Forwarder) String() string { return "websocket-forwarder" }

// Serve forwards messages until ctx ends. A closed subscription returns an
// error so the supervisor restarts the forwarder.
func (f *Forwarder) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	merged := make(chan *message.Message)
	done := make(chan string, len(f.topics))

	for _, topic := range f.topics {
		messages, err := f.subscriber.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", topic, err)
		}
		go func(topic string, messages <-chan *message.Message) {
			defer func() { done <- topic }()
			for msg := range messages {
				select {
				case merged <- msg:
				case <-ctx.Done():
					msg.Nack()
					return
				}
			}
		}(topic, messages)
	}

	logging.Info().Strs("topics", f.topics).Msg("websocket forwarder started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case topic := <-done:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("subscription to %s closed", topic)
		case msg := <-merged:
			f.handle(msg)
		}
	}
}

// handle broadcasts one message. Undecodable payloads are acked so they are
// not redelivered.
func (f *Forwarder) handle(msg *message.Message) {
	defer msg.Ack()

	event, err := eventprocessor.DecodeEvent(msg.Payload)
	if err != nil {
		logging.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable audit notification")
		return
	}
	record := event.Record
	f.hub.BroadcastRecord(event.Kind, &record)
}
