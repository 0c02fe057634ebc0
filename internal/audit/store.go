// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists audit records. Implementations assign ID and CreatedAt on
// insert and never rewrite a record except through SetArchived.
type Store interface {
	// Insert appends a record, fills its ID and CreatedAt, and returns the id.
	Insert(ctx context.Context, record *Record) (string, error)

	// Get returns a record by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Query returns records matching the filter, newest first unless Ascending.
	Query(ctx context.Context, filter Filter) ([]Record, error)

	// Count returns the number of records matching the filter, ignoring pagination.
	Count(ctx context.Context, filter Filter) (int64, error)

	// CountBy groups matching records by field, ignoring pagination.
	CountBy(ctx context.Context, filter Filter, field GroupField) (map[string]int64, error)

	// Delete removes one record, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// SetArchived flags one record as archived, or returns ErrNotFound.
	SetArchived(ctx context.Context, id string, archivedAt int64) error
}

// GroupField names a column that CountBy can aggregate on.
type GroupField string

const (
	GroupByType     GroupField = "type"
	GroupByCategory GroupField = "category"
	GroupBySeverity GroupField = "severity"
	GroupByStatus   GroupField = "status"
)

// Filter selects records. Zero values mean "no constraint".
type Filter struct {
	Types      []EventType
	Categories []Category
	Severities []Severity
	Statuses   []Status

	ActorID        string
	ActorRole      Role
	ActorUserAgent string
	SourceIP       string
	ResourceType   string
	ResourceID     string

	// PartnerScope restricts to records where the partner is the actor or
	// owns the resource.
	PartnerScope string

	// Since and Until bound Timestamp inclusively (epoch ms).
	Since int64
	Until int64

	// ExpiresBefore selects records with ExpiresAt strictly lower (epoch ms).
	ExpiresBefore int64

	// Text matches action and actor name; FullText adds resource name and IP.
	Text     string
	FullText bool

	PersonalData *bool
	Archived     *bool

	// After resumes strictly past this position in the requested order.
	After *Keyset

	Limit     int
	Offset    int
	Ascending bool
}

// Keyset is a position in the (Timestamp, ID) ordering every query uses.
type Keyset struct {
	Timestamp int64
	ID        string
}

// before reports whether r sorts before k in descending (Timestamp, ID) order.
func (k Keyset) before(r *Record) bool {
	if r.Timestamp != k.Timestamp {
		return r.Timestamp > k.Timestamp
	}
	return r.ID > k.ID
}

// Bool returns a pointer to b, for optional Filter fields.
func Bool(b bool) *bool {
	return &b
}

// MemoryStore is an in-memory Store used for tests and ephemeral deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	index   map[string]int
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index: make(map[string]int),
		now:   time.Now,
	}
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, record *Record) (string, error) {
	if record == nil {
		return "", fmt.Errorf("record cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneRecord(record)
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if _, exists := s.index[stored.ID]; exists {
		return "", fmt.Errorf("duplicate audit record id: %s", stored.ID)
	}
	stored.CreatedAt = ToMillis(s.now())

	s.index[stored.ID] = len(s.records)
	s.records = append(s.records, stored)
	record.ID, record.CreatedAt = stored.ID, stored.CreatedAt
	return stored.ID, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r := cloneRecord(&s.records[i])
	return &r, nil
}

// Query implements Store.
func (s *MemoryStore) Query(_ context.Context, filter Filter) ([]Record, error) {
	s.mu.RLock()
	matched := s.matching(filter)
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := &matched[i], &matched[j]
		if a.Timestamp != b.Timestamp {
			if filter.Ascending {
				return a.Timestamp < b.Timestamp
			}
			return a.Timestamp > b.Timestamp
		}
		if filter.Ascending {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []Record{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context, filter Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matching(filter))), nil
}

// CountBy implements Store.
func (s *MemoryStore) CountBy(_ context.Context, filter Filter, field GroupField) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]int64)
	for i := range s.records {
		r := &s.records[i]
		if !matchesFilter(r, filter) {
			continue
		}
		switch field {
		case GroupByType:
			result[string(r.Event.Type)]++
		case GroupByCategory:
			result[string(r.Event.Category)]++
		case GroupBySeverity:
			result[string(r.Event.Severity)]++
		case GroupByStatus:
			result[string(r.Status)]++
		default:
			return nil, fmt.Errorf("unsupported group field: %s", field)
		}
	}
	return result, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	last := len(s.records) - 1
	if i != last {
		s.records[i] = s.records[last]
		s.index[s.records[i].ID] = i
	}
	s.records = s.records[:last]
	delete(s.index, id)
	return nil
}

// SetArchived implements Store.
func (s *MemoryStore) SetArchived(_ context.Context, id string, archivedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.records[i].Metadata.Archived = true
	s.records[i].Metadata.ArchivedAt = archivedAt
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// matching returns clones of all records that satisfy the filter (mu held).
func (s *MemoryStore) matching(filter Filter) []Record {
	var out []Record
	for i := range s.records {
		if matchesFilter(&s.records[i], filter) {
			out = append(out, cloneRecord(&s.records[i]))
		}
	}
	return out
}

// matchesFilter checks if a record matches all filter criteria.
//
//nolint:gocyclo // Filter matching requires checking each criterion independently
func matchesFilter(r *Record, f Filter) bool {
	if len(f.Types) > 0 && !containsValue(f.Types, r.Event.Type) {
		return false
	}
	if len(f.Categories) > 0 && !containsValue(f.Categories, r.Event.Category) {
		return false
	}
	if len(f.Severities) > 0 && !containsValue(f.Severities, r.Event.Severity) {
		return false
	}
	if len(f.Statuses) > 0 && !containsValue(f.Statuses, r.Status) {
		return false
	}
	if f.ActorID != "" && r.Actor.ID != f.ActorID {
		return false
	}
	if f.ActorRole != "" && r.Actor.Role != f.ActorRole {
		return false
	}
	if f.ActorUserAgent != "" && r.Source.UserAgent != f.ActorUserAgent {
		return false
	}
	if f.SourceIP != "" && r.Source.IP != f.SourceIP {
		return false
	}
	if f.ResourceType != "" && (r.Resource == nil || r.Resource.Type != f.ResourceType) {
		return false
	}
	if f.ResourceID != "" && (r.Resource == nil || r.Resource.ID != f.ResourceID) {
		return false
	}
	if f.PartnerScope != "" && !InPartnerScope(r, f.PartnerScope) {
		return false
	}
	if f.Since > 0 && r.Timestamp < f.Since {
		return false
	}
	if f.Until > 0 && r.Timestamp > f.Until {
		return false
	}
	if f.ExpiresBefore > 0 && r.ExpiresAt >= f.ExpiresBefore {
		return false
	}
	if f.PersonalData != nil && r.Compliance.IsPersonalData != *f.PersonalData {
		return false
	}
	if f.Archived != nil && r.Metadata.Archived != *f.Archived {
		return false
	}
	if f.Text != "" && !matchesText(r, f.Text, f.FullText) {
		return false
	}
	if f.After != nil && !pastKeyset(r, *f.After, f.Ascending) {
		return false
	}
	return true
}

// pastKeyset reports whether r comes strictly after k in the query order.
func pastKeyset(r *Record, k Keyset, ascending bool) bool {
	if r.Timestamp == k.Timestamp && r.ID == k.ID {
		return false
	}
	if ascending {
		return k.before(r)
	}
	return !k.before(r)
}

// InPartnerScope reports whether the partner acted on or owns the record.
func InPartnerScope(r *Record, partnerID string) bool {
	if r.Actor.ID == partnerID {
		return true
	}
	return r.Resource != nil && r.Resource.PartnerID == partnerID
}

// matchesText performs a case-insensitive substring search.
func matchesText(r *Record, text string, full bool) bool {
	needle := strings.ToLower(text)
	fields := []string{r.Event.Action, r.Actor.Name}
	if full {
		fields = append(fields, r.Source.IP)
		if r.Resource != nil {
			fields = append(fields, r.Resource.Name)
		}
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func containsValue[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// cloneRecord deep-copies the mutable parts of a record so callers cannot
// alias store state.
func cloneRecord(r *Record) Record {
	c := *r
	if r.Resource != nil {
		res := *r.Resource
		c.Resource = &res
	}
	if r.RiskAssessment != nil {
		ra := *r.RiskAssessment
		ra.Factors = append([]string(nil), r.RiskAssessment.Factors...)
		c.RiskAssessment = &ra
	}
	c.Compliance.Regulations = append([]string(nil), r.Compliance.Regulations...)
	c.Metadata.TargetIDs = append([]string(nil), r.Metadata.TargetIDs...)
	if r.Metadata.Extra != nil {
		c.Metadata.Extra = make(map[string]any, len(r.Metadata.Extra))
		for k, v := range r.Metadata.Extra {
			c.Metadata.Extra[k] = v
		}
	}
	return c
}
