// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/auditrail/internal/retention"
)

type countingGC struct {
	runs atomic.Int32
	err  error
}

func (g *countingGC) RunGC() error {
	g.runs.Add(1)
	return g.err
}

func TestGCService_RunsOnInterval(t *testing.T) {
	gc := &countingGC{err: errors.New("value log busy")}
	svc := NewGCService(gc, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want deadline exceeded", err)
	}
	if gc.runs.Load() < 2 {
		t.Errorf("runs = %d, want at least 2", gc.runs.Load())
	}
}

func TestGCService_BadgerStore(t *testing.T) {
	store, err := retention.Open(retention.Config{InMemory: true})
	if err != nil {
		t.Fatalf("retention.Open: %v", err)
	}
	defer store.Close()

	svc := NewGCService(store, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v", err)
	}
}

func TestNewGCService_DefaultInterval(t *testing.T) {
	if got := NewGCService(&countingGC{}, 0).interval; got != 10*time.Minute {
		t.Errorf("interval = %v, want 10m", got)
	}
}
