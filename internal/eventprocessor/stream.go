// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package eventprocessor

import (
	"context"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StreamManager is the subset of jetstream.JetStream used to provision the
// audit stream.
type StreamManager interface {
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// StreamConfigFor returns the audit stream definition. Subjects cover every
// topic under the prefix.
func StreamConfigFor(cfg BusConfig) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Description: "Audit anomaly and lifecycle notifications",
		Subjects:    []string{cfg.TopicPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      cfg.MaxAge,
		Duplicates:  cfg.DuplicateWindow,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		Replicas:    1,
	}
}

// EnsureStream creates or updates the audit stream. It is idempotent.
func EnsureStream(ctx context.Context, js StreamManager, cfg BusConfig) (jetstream.Stream, error) {
	stream, err := js.CreateOrUpdateStream(ctx, StreamConfigFor(cfg))
	if err != nil {
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.StreamName, err)
	}
	return stream, nil
}

// ensureStream opens a short-lived connection to provision the stream.
func ensureStream(ctx context.Context, cfg BusConfig) error {
	nc, err := natsgo.Connect(cfg.URL, natsgo.Name("auditrail-provisioner"))
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", cfg.URL, err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("open JetStream: %w", err)
	}
	_, err = EnsureStream(ctx, js, cfg)
	return err
}
