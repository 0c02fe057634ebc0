// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/eventprocessor"
)

func TestForwarder_Serve(t *testing.T) {
	bus := eventprocessor.NewChannelBus(nil)
	defer bus.Close()

	hub, _, _ := startHub(t)
	watcher := testClient(hub, "m-1", Scope{All: true})
	hub.Register <- watcher

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fwd := NewForwarder(hub, bus.Subscriber, "audit")
	errCh := make(chan error, 1)
	go func() { errCh <- fwd.Serve(ctx) }()

	notifier := eventprocessor.NewNotifier(
		eventprocessor.NewPublisher(bus.Publisher, eventprocessor.DefaultBreakerConfig()),
		"audit",
	)

	// GoChannel drops messages published before a subscriber exists, so
	// retry until the forwarder has subscribed.
	rec := audit.Record{ID: "rec-1", Actor: audit.Actor{ID: "u-1", Role: audit.RoleUser}}
	var got Message
	deadline := time.Now().Add(3 * time.Second)
	for {
		if err := notifier.Notify(ctx, audit.Notification{Kind: audit.NotificationLifecycle, Record: rec}); err != nil {
			t.Fatalf("Notify: %v", err)
		}
		select {
		case got = <-watcher.send:
		case <-time.After(50 * time.Millisecond):
			if time.Now().After(deadline) {
				t.Fatal("forwarder never delivered")
			}
			continue
		}
		break
	}

	if got.Type != MessageTypeLifecycle {
		t.Errorf("Type = %q, want %q", got.Type, MessageTypeLifecycle)
	}
	if data := got.Data.(RecordData); data.Record.ID != "rec-1" {
		t.Errorf("record id = %q", data.Record.ID)
	}

	// Garbage payloads are acked and skipped.
	if err := bus.Publisher.Publish("audit.anomaly", message.NewMessage("bad", []byte("not json"))); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder did not stop")
	}
}

func TestForwarder_String(t *testing.T) {
	f := NewForwarder(NewHub(), nil, "")
	if f.String() != "websocket-forwarder" {
		t.Error("unexpected service name")
	}
	if len(f.topics) != 2 || f.topics[0] != "audit.anomaly" {
		t.Errorf("topics = %v", f.topics)
	}
}
