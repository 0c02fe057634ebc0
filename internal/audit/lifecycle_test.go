// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestLifecycle(t *testing.T) (*Lifecycle, *Writer, *MemoryStore) {
	t.Helper()
	w, store := newTestWriter(t)
	l := NewLifecycle(w, nil, DefaultLifecycleConfig())
	l.now = func() time.Time { return fixedNow }
	return l, w, store
}

func seedExpired(t *testing.T, s Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		expires := fixedNow.Add(-time.Duration(i+1) * time.Hour).UnixMilli()
		seedRecord(t, s, func(r *Record) {
			r.Timestamp = expires - 180*MillisPerDay
			r.ExpiresAt = expires
		})
	}
}

func countType(t *testing.T, s Store, et EventType) int64 {
	t.Helper()
	n, err := s.Count(context.Background(), Filter{Types: []EventType{et}})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	return n
}

func TestLifecycle_CleanupExpired(t *testing.T) {
	l, _, store := newTestLifecycle(t)
	ctx := context.Background()
	seedExpired(t, store, 3)
	seedRecord(t, store, func(r *Record) { r.ExpiresAt = fixedNow.Add(time.Hour).UnixMilli() })

	res, err := l.CleanupExpired(ctx, masterCaller(), CleanupRequest{})
	if err != nil {
		t.Fatalf("CleanupExpired() error = %v", err)
	}
	if res.Candidates != 3 || res.DeletedCount != 3 || len(res.Errors) != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Samples) != 3 || res.SummaryID == "" {
		t.Errorf("samples = %d, summary = %q", len(res.Samples), res.SummaryID)
	}
	// One live record plus the cleanup summary.
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}

	summary, _ := store.Get(ctx, res.SummaryID)
	if summary.Event.Type != EventTypeAuditCleanup || summary.Metadata.Count == nil || *summary.Metadata.Count != 3 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestLifecycle_CleanupHonorsAutoDelete(t *testing.T) {
	l, w, store := newTestLifecycle(t)
	ctx := context.Background()
	w.SetPolicyStore(newMemoryPolicies())
	if _, err := l.UpdateRetentionPolicy(ctx, masterCaller(), RetentionPolicyUpdate{
		Category: CategoryAuthentication, Severity: SeverityLow, RetentionDays: 30, AutoDelete: false,
	}); err != nil {
		t.Fatalf("UpdateRetentionPolicy() error = %v", err)
	}
	seedExpired(t, store, 3)
	expires := fixedNow.Add(-time.Hour).UnixMilli()
	deletable := seedRecord(t, store, func(r *Record) {
		r.Event = Event{Type: EventTypeAssetUpdate, Action: "Asset update: Hut", Category: CategoryAssetManagement, Severity: SeverityMedium}
		r.Timestamp = expires - 180*MillisPerDay
		r.ExpiresAt = expires
	})

	dry, err := l.CleanupExpired(ctx, masterCaller(), CleanupRequest{DryRun: true})
	if err != nil {
		t.Fatalf("CleanupExpired(dry) error = %v", err)
	}
	if dry.Candidates != 1 || dry.Retained != 3 {
		t.Errorf("dry run = %+v, want 1 candidate and 3 retained", dry)
	}

	// A limit smaller than the retained backlog still reaches the deletable record.
	res, err := l.CleanupExpired(ctx, masterCaller(), CleanupRequest{Limit: 2})
	if err != nil {
		t.Fatalf("CleanupExpired() error = %v", err)
	}
	if res.DeletedCount != 1 || res.Retained != 3 || len(res.Errors) != 0 {
		t.Errorf("result = %+v", res)
	}
	if _, err := store.Get(ctx, deletable); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(deletable) = %v, want ErrNotFound", err)
	}
	if n := countType(t, store, EventTypeLogin); n != 3 {
		t.Errorf("login records = %d, want 3 kept", n)
	}

	policies := w.policyStore().(*memoryPolicies)
	policies.getErr = errors.New("policy store down")
	if _, err := l.CleanupExpired(ctx, masterCaller(), CleanupRequest{}); err == nil {
		t.Error("CleanupExpired() with failing policy store succeeded")
	}
	if n := countType(t, store, EventTypeLogin); n != 3 {
		t.Errorf("login records after failed lookup = %d, want 3", n)
	}
}

func TestLifecycle_CleanupIsIdempotent(t *testing.T) {
	l, _, store := newTestLifecycle(t)
	ctx := context.Background()
	seedExpired(t, store, 2)

	if _, err := l.CleanupExpired(ctx, masterCaller(), CleanupRequest{}); err != nil {
		t.Fatalf("first run error = %v", err)
	}
	before := store.Len()

	res, err := l.CleanupExpired(ctx, masterCaller(), CleanupRequest{})
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if res.DeletedCount != 0 || res.SummaryID != "" {
		t.Errorf("second run = %+v, want no-op", res)
	}
	if store.Len() != before {
		t.Errorf("record count changed from %d to %d", before, store.Len())
	}
}

func TestLifecycle_DryRunsNeverMutate(t *testing.T) {
	l, _, store := newTestLifecycle(t)
	ctx := context.Background()
	seedExpired(t, store, 4)
	seedRecord(t, store, func(r *Record) { r.Timestamp = fixedNow.Add(-400 * 24 * time.Hour).UnixMilli() })
	before := store.Len()

	cleanup, err := l.CleanupExpired(ctx, masterCaller(), CleanupRequest{DryRun: true})
	if err != nil {
		t.Fatalf("CleanupExpired(dry) error = %v", err)
	}
	if !cleanup.DryRun || cleanup.Candidates != 4 || cleanup.DeletedCount != 0 {
		t.Errorf("cleanup dry run = %+v", cleanup)
	}

	archive, err := l.Archive(ctx, masterCaller(), ArchiveRequest{OlderThanDays: 90, DryRun: true})
	if err != nil {
		t.Fatalf("Archive(dry) error = %v", err)
	}
	if !archive.DryRun || archive.Candidates != 5 || archive.ArchivedCount != 0 {
		t.Errorf("archive dry run = %+v", archive)
	}

	if store.Len() != before {
		t.Errorf("dry runs changed record count from %d to %d", before, store.Len())
	}
	unarchived, _ := store.Count(ctx, Filter{Archived: Bool(true)})
	if unarchived != 0 {
		t.Errorf("dry run archived %d records", unarchived)
	}
}

func TestLifecycle_CleanupSampleCap(t *testing.T) {
	l, _, store := newTestLifecycle(t)
	seedExpired(t, store, CleanupSampleSize+5)

	res, err := l.CleanupExpired(context.Background(), masterCaller(), CleanupRequest{DryRun: true})
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if len(res.Samples) != CleanupSampleSize {
		t.Errorf("samples = %d, want %d", len(res.Samples), CleanupSampleSize)
	}
	if res.Samples[0].ExpiresAt > res.Samples[1].ExpiresAt {
		t.Error("samples should be oldest-expiry first")
	}
}

func TestLifecycle_CleanupValidation(t *testing.T) {
	l, _, _ := newTestLifecycle(t)
	ctx := context.Background()

	if _, err := l.CleanupExpired(ctx, masterCaller(), CleanupRequest{Limit: MaxCleanupLimit + 1}); !errors.Is(err, ErrValidation) {
		t.Errorf("oversized limit error = %v", err)
	}
	if _, err := l.CleanupExpired(ctx, &Caller{ID: "p", Role: RolePartner}, CleanupRequest{}); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("partner cleanup error = %v", err)
	}
	if _, err := l.CleanupExpired(ctx, SystemCaller(), CleanupRequest{DryRun: true}); err != nil {
		t.Errorf("system cleanup error = %v", err)
	}
}

func TestLifecycle_Archive(t *testing.T) {
	l, _, store := newTestLifecycle(t)
	ctx := context.Background()
	old := fixedNow.Add(-100 * 24 * time.Hour).UnixMilli()
	for i := 0; i < ArchiveBatchCap+20; i++ {
		ts := old - int64(i)
		seedRecord(t, store, func(r *Record) { r.Timestamp = ts })
	}
	seedRecord(t, store, func(r *Record) { r.Timestamp = fixedNow.UnixMilli() })

	res, err := l.Archive(ctx, masterCaller(), ArchiveRequest{OlderThanDays: 90})
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if res.Candidates != int64(ArchiveBatchCap+20) {
		t.Errorf("candidates = %d", res.Candidates)
	}
	if res.ArchivedCount != ArchiveBatchCap {
		t.Errorf("archived = %d, want cap %d", res.ArchivedCount, ArchiveBatchCap)
	}

	archived, _ := store.Count(ctx, Filter{Archived: Bool(true)})
	if archived != int64(ArchiveBatchCap) {
		t.Errorf("archived in store = %d", archived)
	}

	second, err := l.Archive(ctx, masterCaller(), ArchiveRequest{OlderThanDays: 90})
	if err != nil {
		t.Fatalf("second Archive() error = %v", err)
	}
	if second.ArchivedCount != 20 {
		t.Errorf("second run archived %d, want 20", second.ArchivedCount)
	}

	if _, err := l.Archive(ctx, masterCaller(), ArchiveRequest{OlderThanDays: 0}); !errors.Is(err, ErrValidation) {
		t.Errorf("zero threshold error = %v", err)
	}
}

// archiveLeavesRecordIntact archives one old record through the lifecycle
// and checks that only the archive flags changed.
func archiveLeavesRecordIntact(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	w := NewWriter(store, DefaultWriterConfig())
	w.now = func() time.Time { return fixedNow }
	l := NewLifecycle(w, nil, DefaultLifecycleConfig())
	l.now = func() time.Time { return fixedNow }

	amount := 310.0
	id := seedRecord(t, store, func(r *Record) {
		r.Timestamp = fixedNow.Add(-100 * 24 * time.Hour).UnixMilli()
		r.Resource = &Resource{Type: "bookings", ID: "bk-3", Name: "Cabin", PartnerID: "partner-1"}
		r.Metadata = Metadata{Amount: &amount, Currency: "BRL", Before: []byte(`{"status":"pending"}`), Extra: map[string]any{"nights": float64(3)}}
		r.RiskAssessment = &RiskAssessment{Score: 55, Factors: []string{"unusual location"}, IsAnomalous: true}
	})

	before, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	res, err := l.Archive(ctx, masterCaller(), ArchiveRequest{OlderThanDays: 90})
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if res.ArchivedCount != 1 {
		t.Fatalf("archived = %d, want 1", res.ArchivedCount)
	}
	after, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !after.Metadata.Archived || after.Metadata.ArchivedAt != fixedNow.UnixMilli() {
		t.Errorf("archive flags = %v / %d", after.Metadata.Archived, after.Metadata.ArchivedAt)
	}
	if diff := unarchivedDiff(before, after); diff != "" {
		t.Errorf("Archive changed %s", diff)
	}
}

func TestLifecycle_ArchiveLeavesRecordIntact(t *testing.T) {
	archiveLeavesRecordIntact(t, NewMemoryStore())
}

func TestLifecycle_BulkDeletePartialFailure(t *testing.T) {
	l, w, store := newTestLifecycle(t)
	notifier := &recordingNotifier{}
	w.AddNotifier(notifier)
	ctx := context.Background()

	ids := []string{
		seedRecord(t, store, nil),
		seedRecord(t, store, nil),
		seedRecord(t, store, nil),
		"missing-1",
		"missing-2",
	}

	res, err := l.BulkDelete(ctx, masterCaller(), BulkDeleteRequest{IDs: ids, Reason: "GDPR erasure request"})
	if err != nil {
		t.Fatalf("BulkDelete() error = %v", err)
	}
	if res.DeletedCount != 3 {
		t.Errorf("deletedCount = %d, want 3", res.DeletedCount)
	}
	if len(res.Errors) != 2 {
		t.Errorf("errors = %v, want 2", res.Errors)
	}
	if res.Success {
		t.Error("success = true, want false")
	}
	for _, e := range res.Errors {
		if !strings.HasSuffix(e, ": not found") {
			t.Errorf("error message = %q", e)
		}
	}

	// Pending request plus completion summary, both tagged with the batch.
	summaries, _ := store.Query(ctx, Filter{Types: []EventType{EventTypeAuditBulkDelete}, Ascending: true})
	if len(summaries) != 2 {
		t.Fatalf("bulk delete summaries = %d, want 2", len(summaries))
	}
	if summaries[0].Status != StatusPending && summaries[1].Status != StatusPending {
		t.Error("expected a pending request record")
	}
	for _, s := range summaries {
		if s.Metadata.BatchID != res.BatchID {
			t.Errorf("summary batch = %q, want %q", s.Metadata.BatchID, res.BatchID)
		}
	}
	final, _ := store.Get(ctx, res.SummaryID)
	if final.Status != StatusPartial {
		t.Errorf("final status = %q, want partial", final.Status)
	}

	kinds := notifier.kinds()
	if len(kinds) != 2 || kinds[0] != NotificationLifecycle {
		t.Errorf("notifications = %v", kinds)
	}
}

func TestLifecycle_BulkDeleteValidation(t *testing.T) {
	l, _, store := newTestLifecycle(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		caller *Caller
		req    BulkDeleteRequest
		want   error
	}{
		{"no ids", masterCaller(), BulkDeleteRequest{Reason: "x"}, ErrValidation},
		{"blank ids", masterCaller(), BulkDeleteRequest{IDs: []string{" ", ""}, Reason: "x"}, ErrValidation},
		{"no reason", masterCaller(), BulkDeleteRequest{IDs: []string{"a"}}, ErrValidation},
		{"system denied", SystemCaller(), BulkDeleteRequest{IDs: []string{"a"}, Reason: "x"}, ErrAccessDenied},
		{"partner denied", partnerCaller(), BulkDeleteRequest{IDs: []string{"a"}, Reason: "x"}, ErrAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := l.BulkDelete(ctx, tt.caller, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
	if store.Len() != 0 {
		t.Errorf("rejected requests wrote %d records", store.Len())
	}
}

func TestLifecycle_BulkDeleteDedupes(t *testing.T) {
	l, _, store := newTestLifecycle(t)
	id := seedRecord(t, store, nil)

	res, err := l.BulkDelete(context.Background(), masterCaller(), BulkDeleteRequest{
		IDs:    []string{id, id, " " + id + " "},
		Reason: "duplicate import",
	})
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !res.Success || res.DeletedCount != 1 {
		t.Errorf("result = %+v, want one successful delete", res)
	}
}

func TestLifecycle_UpdateRetentionPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("range validation", func(t *testing.T) {
		l, _, _ := newTestLifecycle(t)
		for _, days := range []int{0, 29, 2556} {
			_, err := l.UpdateRetentionPolicy(ctx, masterCaller(), RetentionPolicyUpdate{
				Category: CategoryFinancial, Severity: SeverityHigh, RetentionDays: days,
			})
			if !errors.Is(err, ErrValidation) {
				t.Errorf("days=%d error = %v, want ErrValidation", days, err)
			}
		}
		for _, days := range []int{30, 2555} {
			if _, err := l.UpdateRetentionPolicy(ctx, masterCaller(), RetentionPolicyUpdate{
				Category: CategoryFinancial, Severity: SeverityHigh, RetentionDays: days,
			}); err != nil {
				t.Errorf("days=%d error = %v", days, err)
			}
		}
	})

	t.Run("without policy store logs only", func(t *testing.T) {
		l, _, store := newTestLifecycle(t)
		res, err := l.UpdateRetentionPolicy(ctx, masterCaller(), RetentionPolicyUpdate{
			Category: CategoryFinancial, Severity: SeverityHigh, RetentionDays: 365, Reason: "tax law",
		})
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if res.Persisted {
			t.Error("persisted without a policy store")
		}
		logged, _ := store.Get(ctx, res.LogID)
		if logged.Event.Type != EventTypeRetentionPolicyUpdate || logged.Metadata.Reason != "tax law" {
			t.Errorf("log record = %+v", logged)
		}
	})

	t.Run("persisted policy applies to later writes", func(t *testing.T) {
		l, w, store := newTestLifecycle(t)
		w.SetPolicyStore(newMemoryPolicies())

		res, err := l.UpdateRetentionPolicy(ctx, masterCaller(), RetentionPolicyUpdate{
			Category: CategoryFinancial, Severity: SeverityHigh, RetentionDays: 1825,
		})
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if !res.Persisted || res.Policy.UpdatedBy != "master-1" {
			t.Errorf("result = %+v", res)
		}

		id, err := w.Write(ctx, masterCaller(), WriteInput{Type: EventTypePaymentRefund})
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		r, _ := store.Get(ctx, id)
		if r.Compliance.RetentionPeriodDays != 1825 {
			t.Errorf("retention = %d, want 1825", r.Compliance.RetentionPeriodDays)
		}

		second, err := l.UpdateRetentionPolicy(ctx, masterCaller(), RetentionPolicyUpdate{
			Category: CategoryFinancial, Severity: SeverityHigh, RetentionDays: 730,
		})
		if err != nil {
			t.Fatalf("second update error = %v", err)
		}
		logged, _ := store.Get(ctx, second.LogID)
		if len(logged.Metadata.Before) == 0 {
			t.Error("expected previous policy in before snapshot")
		}

		policies, err := l.ListRetentionPolicies(ctx, masterCaller())
		if err != nil || len(policies) != 1 || policies[0].RetentionDays != 730 {
			t.Errorf("ListRetentionPolicies() = %+v, %v", policies, err)
		}
	})

	t.Run("partner denied", func(t *testing.T) {
		l, _, _ := newTestLifecycle(t)
		_, err := l.UpdateRetentionPolicy(ctx, partnerCaller(), RetentionPolicyUpdate{
			Category: CategoryFinancial, Severity: SeverityHigh, RetentionDays: 365,
		})
		if !errors.Is(err, ErrAccessDenied) {
			t.Errorf("error = %v, want ErrAccessDenied", err)
		}
	})
}

type memorySink struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memorySink) Put(_ context.Context, jobID string, format ExportFormat, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	key := jobID + "." + string(format)
	m.files[key] = data
	return "mem://" + key, nil
}

func TestLifecycle_Export(t *testing.T) {
	l, _, store := newTestLifecycle(t)
	sink := &memorySink{}
	l.SetExportSink(sink)
	ctx := context.Background()

	seedRecord(t, store, nil)
	seedRecord(t, store, func(r *Record) {
		r.Event = Event{Type: EventTypePaymentRefund, Category: CategoryFinancial, Severity: SeverityHigh}
	})

	res, err := l.Export(ctx, masterCaller(), ExportRequest{Format: ExportCSV, Categories: []Category{CategoryFinancial}})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.RecordCount != 1 || res.Format != ExportCSV {
		t.Errorf("result = %+v", res)
	}
	if res.Location != "mem://"+res.JobID+".csv" {
		t.Errorf("location = %q", res.Location)
	}
	data := sink.files[res.JobID+".csv"]
	if Checksum(data) != res.Checksum {
		t.Error("checksum does not match stored content")
	}

	logged, _ := store.Get(ctx, res.LogID)
	if logged.Event.Type != EventTypeDataExport || logged.Compliance.DataClassification != "confidential" {
		t.Errorf("export log = %+v", logged)
	}

	if _, err := l.Export(ctx, masterCaller(), ExportRequest{Format: "xml"}); !errors.Is(err, ErrValidation) {
		t.Errorf("bad format error = %v", err)
	}
}

func TestLifecycle_CreateManualEntry(t *testing.T) {
	l, _, store := newTestLifecycle(t)
	ctx := context.Background()

	id, err := l.CreateManualEntry(ctx, masterCaller(), ManualEntry{
		Action:   "Recorded offline contract signature",
		Severity: SeverityHigh,
		Reason:   "paper trail",
	})
	if err != nil {
		t.Fatalf("CreateManualEntry() error = %v", err)
	}
	r, _ := store.Get(ctx, id)
	if r.Event.Type != EventTypeManualEntry || r.Event.Severity != SeverityHigh || r.Event.Category != CategoryCompliance {
		t.Errorf("event = %+v", r.Event)
	}
	if r.Metadata.Extra["manual"] != true {
		t.Errorf("extra = %v", r.Metadata.Extra)
	}

	if _, err := l.CreateManualEntry(ctx, masterCaller(), ManualEntry{}); !errors.Is(err, ErrValidation) {
		t.Errorf("empty action error = %v", err)
	}
	if _, err := l.CreateManualEntry(ctx, partnerCaller(), ManualEntry{Action: "x"}); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("partner error = %v", err)
	}
}
