// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package audit

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// runStoreContract checks the behavior every Store implementation must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("round trip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		amount := 99.5

		id := seedRecord(t, s, func(r *Record) {
			r.Actor.Email = "one@example.test"
			r.Resource = &Resource{Type: "bookings", ID: "bk-1", Name: "Lodge", OrganizationID: "org-1", PartnerID: "partner-1"}
			r.Source.UserAgent = "Mozilla/5.0"
			r.Metadata = Metadata{Amount: &amount, Currency: "BRL", TargetIDs: []string{"x"}, Extra: map[string]any{"k": "v"}}
			r.RiskAssessment = &RiskAssessment{Score: 45, Factors: []string{"off-hours access"}, Recommendation: "review recommended — medium risk"}
			r.Compliance.IsPersonalData = true
			r.Compliance.DataClassification = "internal"
		})

		got, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Actor.Email != "one@example.test" || got.Resource == nil || got.Resource.OrganizationID != "org-1" {
			t.Errorf("actor/resource = %+v / %+v", got.Actor, got.Resource)
		}
		if got.Metadata.Amount == nil || *got.Metadata.Amount != 99.5 || got.Metadata.Extra["k"] != "v" {
			t.Errorf("metadata = %+v", got.Metadata)
		}
		if got.RiskAssessment == nil || got.RiskAssessment.Score != 45 || len(got.RiskAssessment.Factors) != 1 {
			t.Errorf("risk = %+v", got.RiskAssessment)
		}
		if len(got.Compliance.Regulations) != 2 || !got.Compliance.IsPersonalData || got.Compliance.DataClassification != "internal" {
			t.Errorf("compliance = %+v", got.Compliance)
		}
		if got.Timestamp != 1_700_000_000_000 || got.ExpiresAt != 1_700_000_000_000+180*MillisPerDay {
			t.Errorf("timestamps = %d / %d", got.Timestamp, got.ExpiresAt)
		}
	})

	t.Run("insert fills id and createdAt", func(t *testing.T) {
		s := newStore(t)
		r := &Record{
			Actor:     Actor{ID: "user-1", Role: RoleUser, Name: "User One"},
			Event:     Event{Type: EventTypeLogin, Action: "login", Category: CategoryAuthentication, Severity: SeverityLow},
			Status:    StatusSuccess,
			Timestamp: 1_700_000_000_000,
		}
		id, err := s.Insert(context.Background(), r)
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		got, err := s.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if r.ID != id || r.CreatedAt == 0 || r.CreatedAt != got.CreatedAt {
			t.Errorf("inserted record id/createdAt = %s/%d, stored %s/%d", r.ID, r.CreatedAt, got.ID, got.CreatedAt)
		}
	})

	t.Run("resource is optional", func(t *testing.T) {
		s := newStore(t)
		id := seedRecord(t, s, nil)
		got, err := s.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Resource != nil {
			t.Errorf("resource = %+v, want nil", got.Resource)
		}
	})

	t.Run("filters and grouping", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seedRecord(t, s, func(r *Record) {
			r.Actor = Actor{ID: "partner-1", Role: RolePartner, Name: "Acme"}
			r.Timestamp = 1000
			r.ExpiresAt = 5000
		})
		seedRecord(t, s, func(r *Record) {
			r.Event = Event{Type: EventTypeAssetDelete, Action: "Asset delete: Hut", Category: CategoryAssetManagement, Severity: SeverityHigh}
			r.Resource = &Resource{Type: "assets", ID: "a1", Name: "Hut", PartnerID: "partner-1"}
			r.Status = StatusFailure
			r.Timestamp = 2000
			r.ExpiresAt = 6000
		})
		seedRecord(t, s, func(r *Record) {
			r.Source.IP = "172.16.0.9"
			r.Timestamp = 3000
			r.ExpiresAt = 7000
		})

		checks := []struct {
			name   string
			filter Filter
			want   int64
		}{
			{"partner scope", Filter{PartnerScope: "partner-1"}, 2},
			{"type and status", Filter{Types: []EventType{EventTypeAssetDelete}, Statuses: []Status{StatusFailure}}, 1},
			{"time window", Filter{Since: 1500, Until: 3000}, 2},
			{"expires before", Filter{ExpiresBefore: 6000}, 1},
			{"text", Filter{Text: "hut"}, 1},
			{"full text ip", Filter{Text: "172.16", FullText: true}, 1},
			{"archived false", Filter{Archived: Bool(false)}, 3},
		}
		for _, c := range checks {
			n, err := s.Count(ctx, c.filter)
			if err != nil {
				t.Fatalf("%s: Count() error = %v", c.name, err)
			}
			if n != c.want {
				t.Errorf("%s: Count() = %d, want %d", c.name, n, c.want)
			}
		}

		page, err := s.Query(ctx, Filter{Limit: 1, Offset: 1})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(page) != 1 || page[0].Timestamp != 2000 {
			t.Errorf("second newest = %+v", page)
		}

		byStatus, err := s.CountBy(ctx, Filter{}, GroupByStatus)
		if err != nil {
			t.Fatalf("CountBy() error = %v", err)
		}
		if byStatus["success"] != 2 || byStatus["failure"] != 1 {
			t.Errorf("byStatus = %v", byStatus)
		}
	})

	t.Run("keyset paging", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		oldest := seedRecord(t, s, func(r *Record) { r.Timestamp = 1000 })
		tieA := seedRecord(t, s, func(r *Record) { r.Timestamp = 2000 })
		tieB := seedRecord(t, s, func(r *Record) { r.Timestamp = 2000 })
		newest := seedRecord(t, s, func(r *Record) { r.Timestamp = 3000 })

		hi, lo := tieA, tieB
		if lo > hi {
			hi, lo = lo, hi
		}

		desc, err := s.Query(ctx, Filter{After: &Keyset{Timestamp: 2000, ID: hi}})
		if err != nil {
			t.Fatalf("Query(desc) error = %v", err)
		}
		if got := recordIDs(desc); !reflect.DeepEqual(got, []string{lo, oldest}) {
			t.Errorf("descending after %s = %v, want [%s %s]", hi, got, lo, oldest)
		}

		asc, err := s.Query(ctx, Filter{After: &Keyset{Timestamp: 2000, ID: lo}, Ascending: true})
		if err != nil {
			t.Fatalf("Query(asc) error = %v", err)
		}
		if got := recordIDs(asc); !reflect.DeepEqual(got, []string{hi, newest}) {
			t.Errorf("ascending after %s = %v, want [%s %s]", lo, got, hi, newest)
		}

		n, err := s.Count(ctx, Filter{After: &Keyset{Timestamp: 3000, ID: newest}})
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 3 {
			t.Errorf("Count(after newest) = %d, want 3", n)
		}
	})

	t.Run("text wildcards match literally", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seedRecord(t, s, func(r *Record) {
			r.Event = Event{Type: EventTypeAssetUpdate, Action: "Asset update: lodge", Category: CategoryAssetManagement, Severity: SeverityMedium}
		})
		seedRecord(t, s, func(r *Record) {
			r.Event = Event{Type: EventTypeAssetUpdate, Action: "Asset update: lodge_a 100%", Category: CategoryAssetManagement, Severity: SeverityMedium}
		})
		seedRecord(t, s, func(r *Record) {
			r.Event = Event{Type: EventTypeAssetUpdate, Action: `Asset update: C:\cabins`, Category: CategoryAssetManagement, Severity: SeverityMedium}
		})

		checks := []struct {
			text string
			want int64
		}{
			{"_", 1},
			{"e_a", 1},
			{"%", 1},
			{"0%", 1},
			{"lodge", 2},
			{`\`, 1},
			{"update_", 0},
		}
		for _, c := range checks {
			for _, full := range []bool{false, true} {
				n, err := s.Count(ctx, Filter{Text: c.text, FullText: full})
				if err != nil {
					t.Fatalf("Count(%q) error = %v", c.text, err)
				}
				if n != c.want {
					t.Errorf("Count(Text=%q, FullText=%v) = %d, want %d", c.text, full, n, c.want)
				}
			}
		}
	})

	t.Run("archive only touches archive metadata", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		amount := 12.5
		id := seedRecord(t, s, func(r *Record) {
			r.Resource = &Resource{Type: "bookings", ID: "bk-9", Name: "Lodge", PartnerID: "partner-1"}
			r.Metadata = Metadata{Amount: &amount, Currency: "BRL", Reason: "checkout", TargetIDs: []string{"a", "b"}, Extra: map[string]any{"k": "v"}}
			r.RiskAssessment = &RiskAssessment{Score: 30, Factors: []string{"new device"}}
		})

		before, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if err := s.SetArchived(ctx, id, 4242); err != nil {
			t.Fatalf("SetArchived() error = %v", err)
		}
		after, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !after.Metadata.Archived || after.Metadata.ArchivedAt != 4242 {
			t.Fatalf("archive flags = %v / %d", after.Metadata.Archived, after.Metadata.ArchivedAt)
		}
		if diff := unarchivedDiff(before, after); diff != "" {
			t.Errorf("SetArchived changed %s", diff)
		}
	})

	t.Run("delete and archive", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id := seedRecord(t, s, nil)

		if err := s.SetArchived(ctx, id, 777); err != nil {
			t.Fatalf("SetArchived() error = %v", err)
		}
		got, _ := s.Get(ctx, id)
		if !got.Metadata.Archived || got.Metadata.ArchivedAt != 777 {
			t.Errorf("archived metadata = %+v", got.Metadata)
		}
		if n, _ := s.Count(ctx, Filter{Archived: Bool(true)}); n != 1 {
			t.Errorf("archived count = %d", n)
		}

		if err := s.Delete(ctx, id); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := s.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Delete(again) = %v, want ErrNotFound", err)
		}
		if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(deleted) = %v, want ErrNotFound", err)
		}
		if err := s.SetArchived(ctx, id, 1); !errors.Is(err, ErrNotFound) {
			t.Errorf("SetArchived(deleted) = %v, want ErrNotFound", err)
		}
	})
}

// unarchivedDiff names the first difference between two copies of a record
// once the archive flags are cleared, or returns "" when they match.
func unarchivedDiff(before, after *Record) string {
	a, b := *before, *after
	a.Metadata.Archived, a.Metadata.ArchivedAt = false, 0
	b.Metadata.Archived, b.Metadata.ArchivedAt = false, 0
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	for i := 0; i < va.NumField(); i++ {
		if !reflect.DeepEqual(va.Field(i).Interface(), vb.Field(i).Interface()) {
			return va.Type().Field(i).Name
		}
	}
	return ""
}

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}
