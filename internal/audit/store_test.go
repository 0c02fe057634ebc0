// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// seedRecord inserts a minimal record and returns its id.
func seedRecord(t *testing.T, s Store, mutate func(r *Record)) string {
	t.Helper()
	r := &Record{
		Actor:     Actor{ID: "user-1", Role: RoleUser, Name: "User One"},
		Event:     Event{Type: EventTypeLogin, Action: "login", Category: CategoryAuthentication, Severity: SeverityLow},
		Source:    Source{IP: "10.0.0.1", Platform: PlatformWeb},
		Status:    StatusSuccess,
		Timestamp: 1_700_000_000_000,
		ExpiresAt: 1_700_000_000_000 + 180*MillisPerDay,
		Compliance: Compliance{
			Regulations:         []string{"LGPD", "ISO27001"},
			RetentionPeriodDays: 180,
		},
	}
	if mutate != nil {
		mutate(r)
	}
	id, err := s.Insert(context.Background(), r)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	return id
}

func TestMemoryStore_InsertAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id := seedRecord(t, s, func(r *Record) {
		r.Resource = &Resource{Type: "assets", ID: "a1", PartnerID: "p1"}
	})
	if id == "" {
		t.Fatal("expected generated id")
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.CreatedAt == 0 {
		t.Error("expected CreatedAt to be assigned")
	}
	if got.Resource == nil || got.Resource.PartnerID != "p1" {
		t.Errorf("resource = %+v", got.Resource)
	}

	got.Resource.PartnerID = "mutated"
	again, _ := s.Get(ctx, id)
	if again.Resource.PartnerID != "p1" {
		t.Error("store state aliased through returned record")
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_DuplicateID(t *testing.T) {
	s := NewMemoryStore()
	seedRecord(t, s, func(r *Record) { r.ID = "fixed" })

	_, err := s.Insert(context.Background(), &Record{ID: "fixed"})
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestMemoryStore_QueryOrderingAndPaging(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		ts := int64(1000 + i)
		seedRecord(t, s, func(r *Record) { r.Timestamp = ts })
	}

	records, err := s.Query(ctx, Filter{Limit: 2})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(records) != 2 || records[0].Timestamp != 1004 || records[1].Timestamp != 1003 {
		t.Errorf("newest-first page = %v, %v", records[0].Timestamp, records[1].Timestamp)
	}

	records, _ = s.Query(ctx, Filter{Ascending: true, Offset: 3})
	if len(records) != 2 || records[0].Timestamp != 1003 {
		t.Errorf("ascending offset page = %d records", len(records))
	}

	records, _ = s.Query(ctx, Filter{Offset: 10})
	if len(records) != 0 {
		t.Errorf("expected empty page past end, got %d", len(records))
	}
}

func TestMemoryStore_Filters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	seedRecord(t, s, func(r *Record) {
		r.Actor = Actor{ID: "partner-1", Role: RolePartner, Name: "Acme Tours"}
		r.Event = Event{Type: EventTypeAssetUpdate, Action: "Asset update: Beach House", Category: CategoryAssetManagement, Severity: SeverityLow}
		r.Resource = &Resource{Type: "assets", ID: "asset-1", Name: "Beach House", PartnerID: "partner-1"}
		r.Timestamp = 2000
	})
	seedRecord(t, s, func(r *Record) {
		r.Actor = Actor{ID: "master-1", Role: RoleMaster, Name: "Admin"}
		r.Event = Event{Type: EventTypeAssetDelete, Action: "Asset delete: Chalet", Category: CategoryAssetManagement, Severity: SeverityHigh}
		r.Resource = &Resource{Type: "assets", ID: "asset-2", Name: "Chalet", PartnerID: "partner-1"}
		r.Status = StatusFailure
		r.Timestamp = 3000
		r.Compliance.IsPersonalData = true
	})
	seedRecord(t, s, func(r *Record) {
		r.Actor = Actor{ID: "partner-2", Role: RolePartner, Name: "Other"}
		r.Source.IP = "192.168.1.50"
		r.Timestamp = 4000
		r.Metadata.Archived = true
	})

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"no filter", Filter{}, 3},
		{"by type", Filter{Types: []EventType{EventTypeAssetDelete, EventTypeLogin}}, 2},
		{"by severity", Filter{Severities: []Severity{SeverityHigh}}, 1},
		{"by status", Filter{Statuses: []Status{StatusFailure}}, 1},
		{"by actor role", Filter{ActorRole: RolePartner}, 2},
		{"partner scope includes owned resources", Filter{PartnerScope: "partner-1"}, 2},
		{"partner scope excludes others", Filter{PartnerScope: "partner-2"}, 1},
		{"resource", Filter{ResourceType: "assets", ResourceID: "asset-2"}, 1},
		{"since inclusive", Filter{Since: 3000}, 2},
		{"until inclusive", Filter{Until: 3000}, 2},
		{"text on action", Filter{Text: "chalet"}, 1},
		{"text on actor name", Filter{Text: "ACME"}, 1},
		{"ip needs full text", Filter{Text: "192.168"}, 0},
		{"ip with full text", Filter{Text: "192.168", FullText: true}, 1},
		{"personal data", Filter{PersonalData: Bool(true)}, 1},
		{"unarchived", Filter{Archived: Bool(false)}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.Count(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if n != int64(tt.want) {
				t.Errorf("Count() = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestMemoryStore_ExpiresBeforeIsStrict(t *testing.T) {
	s := NewMemoryStore()
	seedRecord(t, s, func(r *Record) { r.ExpiresAt = 5000 })
	seedRecord(t, s, func(r *Record) { r.ExpiresAt = 4999 })

	n, _ := s.Count(context.Background(), Filter{ExpiresBefore: 5000})
	if n != 1 {
		t.Errorf("Count(ExpiresBefore=5000) = %d, want 1", n)
	}
}

func TestMemoryStore_CountBy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedRecord(t, s, nil)
	seedRecord(t, s, nil)
	seedRecord(t, s, func(r *Record) {
		r.Event = Event{Type: EventTypeRoleChange, Category: CategoryAuthorization, Severity: SeverityCritical}
	})

	byCategory, err := s.CountBy(ctx, Filter{}, GroupByCategory)
	if err != nil {
		t.Fatalf("CountBy() error = %v", err)
	}
	if byCategory["authentication"] != 2 || byCategory["authorization"] != 1 {
		t.Errorf("byCategory = %v", byCategory)
	}

	if _, err := s.CountBy(ctx, Filter{}, GroupField("actor")); err == nil {
		t.Error("expected error for unsupported group field")
	}
}

func TestMemoryStore_DeleteAndArchive(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	first := seedRecord(t, s, nil)
	second := seedRecord(t, s, nil)
	third := seedRecord(t, s, nil)

	if err := s.Delete(ctx, first); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, first); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() = %v, want ErrNotFound", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	// Index must stay consistent after the swap-remove.
	if _, err := s.Get(ctx, third); err != nil {
		t.Errorf("Get(third) after delete error = %v", err)
	}

	if err := s.SetArchived(ctx, second, 42); err != nil {
		t.Fatalf("SetArchived() error = %v", err)
	}
	got, _ := s.Get(ctx, second)
	if !got.Metadata.Archived || got.Metadata.ArchivedAt != 42 {
		t.Errorf("metadata = %+v", got.Metadata)
	}
	if err := s.SetArchived(ctx, "missing", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetArchived(missing) = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_ConcurrentInsert(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Insert(context.Background(), &Record{
				Actor:     Actor{ID: fmt.Sprintf("user-%d", i), Role: RoleUser},
				Timestamp: int64(i),
			})
			if err != nil {
				t.Errorf("Insert() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	if s.Len() != 20 {
		t.Errorf("Len() = %d, want 20", s.Len())
	}
}
