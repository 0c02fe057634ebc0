// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package audit

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/auditrail/internal/metrics"
)

// Authorization objects and actions checked by the query and lifecycle layers.
const (
	ObjectRecords    = "audit:records"
	ObjectOwn        = "audit:own"
	ObjectCompliance = "audit:compliance"
	ObjectAdmin      = "audit:admin"

	ActionReadAll    = "read_all"
	ActionReadScoped = "read_scoped"
	ActionRead       = "read"
)

// Authorizer decides whether a role may perform an action on an object.
type Authorizer interface {
	Enforce(subject, object, action string) (bool, error)
}

// StaticAuthorizer is the built-in role table used when no external policy
// engine is configured.
type StaticAuthorizer struct{}

// Enforce implements Authorizer.
func (StaticAuthorizer) Enforce(subject, object, action string) (bool, error) {
	switch Role(subject) {
	case RoleMaster:
		return true, nil
	case RolePartner:
		return (object == ObjectRecords && action == ActionReadScoped) || object == ObjectOwn, nil
	case RoleSystem:
		return object == ObjectOwn || (object == ObjectAdmin && (action == "cleanup" || action == "archive")), nil
	default:
		return object == ObjectOwn && action == ActionRead, nil
	}
}

// TimeRange is a relative window ending now.
type TimeRange string

const (
	Range1h  TimeRange = "1h"
	Range24h TimeRange = "24h"
	Range7d  TimeRange = "7d"
	Range30d TimeRange = "30d"
)

// ParseTimeRange validates a time range bucket. Empty means 24h.
func ParseTimeRange(s string) (TimeRange, error) {
	switch TimeRange(strings.TrimSpace(s)) {
	case "":
		return Range24h, nil
	case Range1h:
		return Range1h, nil
	case Range24h:
		return Range24h, nil
	case Range7d:
		return Range7d, nil
	case Range30d:
		return Range30d, nil
	}
	return "", invalidField("range", "must be one of 1h, 24h, 7d, 30d")
}

// Duration returns the window length.
func (r TimeRange) Duration() time.Duration {
	switch r {
	case Range1h:
		return time.Hour
	case Range7d:
		return 7 * 24 * time.Hour
	case Range30d:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Query defaults.
const (
	DefaultListLimit     = 50
	MaxListLimit         = 500
	DefaultResourceLimit = 50
	DefaultSearchLimit   = 100
	RecentEntries        = 10
)

// QueryService serves role-scoped reads.
type QueryService struct {
	store Store
	authz Authorizer
	now   func() time.Time
}

// NewQueryService creates a query service. A nil authorizer uses
// StaticAuthorizer.
func NewQueryService(store Store, authz Authorizer) *QueryService {
	if authz == nil {
		authz = StaticAuthorizer{}
	}
	return &QueryService{
		store: store,
		authz: authz,
		now:   time.Now,
	}
}

// scope returns the partner restriction for the caller, or ErrAccessDenied.
// An empty string means unrestricted.
func (q *QueryService) scope(caller *Caller) (string, error) {
	if err := requireCaller(caller); err != nil {
		return "", err
	}
	role := string(caller.Role)

	allowed, err := q.authz.Enforce(role, ObjectRecords, ActionReadAll)
	if err != nil {
		return "", fmt.Errorf("authorization check failed: %w", err)
	}
	if allowed {
		return "", nil
	}

	allowed, err = q.authz.Enforce(role, ObjectRecords, ActionReadScoped)
	if err != nil {
		return "", fmt.Errorf("authorization check failed: %w", err)
	}
	if allowed {
		return caller.ID, nil
	}
	return "", fmt.Errorf("%w: role %q cannot read audit records", ErrAccessDenied, caller.Role)
}

// require checks one object/action pair for the caller.
func (q *QueryService) require(caller *Caller, object, action string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	allowed, err := q.authz.Enforce(string(caller.Role), object, action)
	if err != nil {
		return fmt.Errorf("authorization check failed: %w", err)
	}
	if !allowed {
		return fmt.Errorf("%w: role %q cannot %s %s", ErrAccessDenied, caller.Role, action, object)
	}
	return nil
}

func requireCaller(caller *Caller) error {
	if caller == nil || strings.TrimSpace(caller.ID) == "" {
		return ErrUnauthenticated
	}
	return nil
}

// ListRequest holds list filters. Cursor is opaque and returned by List.
type ListRequest struct {
	Range     TimeRange
	Type      EventType
	ActorRole Role
	Search    string
	Cursor    string
	Limit     int
}

// ListStats summarizes the whole filtered scope, not just the page.
type ListStats struct {
	Total    int64 `json:"total"`
	Errors   int64 `json:"errors"`
	Warnings int64 `json:"warnings"`
	Today    int64 `json:"today"`
}

// ListResult is one page of records.
type ListResult struct {
	Records    []Record  `json:"records"`
	NextCursor string    `json:"nextCursor,omitempty"`
	HasMore    bool      `json:"hasMore"`
	Stats      ListStats `json:"stats"`
}

// List returns a page of records, newest first, scoped to the caller.
func (q *QueryService) List(ctx context.Context, caller *Caller, req ListRequest) (*ListResult, error) {
	defer observe("list", time.Now())

	partner, err := q.scope(caller)
	if err != nil {
		return nil, err
	}

	rng, err := ParseTimeRange(string(req.Range))
	if err != nil {
		return nil, err
	}
	if req.Type != "" && !req.Type.Valid() {
		return nil, invalidField("type", "unknown event type %q", req.Type)
	}
	if req.ActorRole != "" && !req.ActorRole.Valid() {
		return nil, invalidField("actorRole", "unknown role %q", req.ActorRole)
	}
	cursor, err := decodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}
	limit := clampLimit(req.Limit, DefaultListLimit, MaxListLimit)

	now := q.now()
	filter := Filter{
		PartnerScope: partner,
		ActorRole:    req.ActorRole,
		Since:        ToMillis(now.Add(-rng.Duration())),
		Text:         strings.TrimSpace(req.Search),
	}
	if req.Type != "" {
		filter.Types = []EventType{req.Type}
	}
	if cursor != nil && cursor.Since > 0 {
		filter.Since = cursor.Since
	}

	page := filter
	page.After = cursor.keyset()
	page.Limit = limit + 1
	records, err := q.store.Query(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}

	result := &ListResult{Records: records}
	if len(records) > limit {
		result.Records = records[:limit]
		result.HasMore = true
		result.NextCursor = encodeCursor(&result.Records[limit-1], filter.Since)
	}

	stats, err := q.listStats(ctx, filter, now)
	if err != nil {
		return nil, err
	}
	result.Stats = *stats
	return result, nil
}

func (q *QueryService) listStats(ctx context.Context, filter Filter, now time.Time) (*ListStats, error) {
	var stats ListStats
	var err error

	if stats.Total, err = q.store.Count(ctx, filter); err != nil {
		return nil, fmt.Errorf("failed to count audit records: %w", err)
	}

	failures := filter
	failures.Statuses = []Status{StatusFailure}
	if stats.Errors, err = q.store.Count(ctx, failures); err != nil {
		return nil, fmt.Errorf("failed to count failures: %w", err)
	}

	warnings := filter
	warnings.Severities = []Severity{SeverityMedium, SeverityHigh}
	if stats.Warnings, err = q.store.Count(ctx, warnings); err != nil {
		return nil, fmt.Errorf("failed to count warnings: %w", err)
	}

	today := filter
	if dayAgo := ToMillis(now.Add(-24 * time.Hour)); dayAgo > today.Since {
		today.Since = dayAgo
	}
	if stats.Today, err = q.store.Count(ctx, today); err != nil {
		return nil, fmt.Errorf("failed to count today's records: %w", err)
	}
	return &stats, nil
}

// RecentEntry is the compact row shown in dashboard activity lists.
type RecentEntry struct {
	ID        string   `json:"id"`
	Timestamp int64    `json:"timestamp"`
	Action    string   `json:"action"`
	ActorName string   `json:"actorName"`
	Severity  Severity `json:"severity"`
	Status    Status   `json:"status"`
}

// DashboardStats aggregates a time window for the dashboard.
type DashboardStats struct {
	Window     TimeRange        `json:"window"`
	Total      int64            `json:"total"`
	Failures   int64            `json:"failures"`
	Warnings   int64            `json:"warnings"`
	Critical   int64            `json:"critical"`
	Today      int64            `json:"today"`
	ByType     map[string]int64 `json:"byType"`
	ByCategory map[string]int64 `json:"byCategory"`
	Recent     []RecentEntry    `json:"recent"`
}

// Stats aggregates the caller's visible records over a window.
func (q *QueryService) Stats(ctx context.Context, caller *Caller, window TimeRange) (*DashboardStats, error) {
	defer observe("stats", time.Now())

	partner, err := q.scope(caller)
	if err != nil {
		return nil, err
	}
	window, err = ParseTimeRange(string(window))
	if err != nil {
		return nil, err
	}

	now := q.now()
	filter := Filter{
		PartnerScope: partner,
		Since:        ToMillis(now.Add(-window.Duration())),
	}

	base, err := q.listStats(ctx, filter, now)
	if err != nil {
		return nil, err
	}
	out := &DashboardStats{
		Window:   window,
		Total:    base.Total,
		Failures: base.Errors,
		Warnings: base.Warnings,
		Today:    base.Today,
	}

	critical := filter
	critical.Severities = []Severity{SeverityCritical}
	if out.Critical, err = q.store.Count(ctx, critical); err != nil {
		return nil, fmt.Errorf("failed to count critical records: %w", err)
	}
	if out.ByType, err = q.store.CountBy(ctx, filter, GroupByType); err != nil {
		return nil, err
	}
	if out.ByCategory, err = q.store.CountBy(ctx, filter, GroupByCategory); err != nil {
		return nil, err
	}

	recent := filter
	recent.Limit = RecentEntries
	records, err := q.store.Query(ctx, recent)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent records: %w", err)
	}
	out.Recent = make([]RecentEntry, 0, len(records))
	for i := range records {
		r := &records[i]
		out.Recent = append(out.Recent, RecentEntry{
			ID:        r.ID,
			Timestamp: r.Timestamp,
			Action:    r.Event.Action,
			ActorName: r.Actor.Name,
			Severity:  r.Event.Severity,
			Status:    r.Status,
		})
	}
	return out, nil
}

// GetByID returns one record, or (nil, nil) when it does not exist.
// Records outside the caller's scope yield ErrAccessDenied.
func (q *QueryService) GetByID(ctx context.Context, caller *Caller, id string) (*Record, error) {
	defer observe("get", time.Now())

	partner, err := q.scope(caller)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, invalidField("id", "is required")
	}

	record, err := q.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get audit record: %w", err)
	}
	if partner != "" && !InPartnerScope(record, partner) {
		return nil, fmt.Errorf("%w: record %s is outside caller scope", ErrAccessDenied, id)
	}
	return record, nil
}

// GetByResource returns the most recent records for one resource.
func (q *QueryService) GetByResource(ctx context.Context, caller *Caller, resourceType, resourceID string, limit int) ([]Record, error) {
	defer observe("by_resource", time.Now())

	partner, err := q.scope(caller)
	if err != nil {
		return nil, err
	}
	if resourceType == "" || resourceID == "" {
		return nil, invalidField("resource", "type and id are required")
	}

	records, err := q.store.Query(ctx, Filter{
		ResourceType: resourceType,
		ResourceID:   resourceID,
		PartnerScope: partner,
		Limit:        clampLimit(limit, DefaultResourceLimit, MaxListLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query resource history: %w", err)
	}
	return records, nil
}

// OwnActivityRequest pages through the caller's own records.
type OwnActivityRequest struct {
	Type   EventType
	Cursor string
	Limit  int
}

// OwnActivity returns records where the caller is the actor.
func (q *QueryService) OwnActivity(ctx context.Context, caller *Caller, req OwnActivityRequest) (*ListResult, error) {
	defer observe("own_activity", time.Now())

	if err := q.require(caller, ObjectOwn, ActionRead); err != nil {
		return nil, err
	}
	if req.Type != "" && !req.Type.Valid() {
		return nil, invalidField("type", "unknown event type %q", req.Type)
	}
	cursor, err := decodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}
	limit := clampLimit(req.Limit, DefaultListLimit, MaxListLimit)

	filter := Filter{ActorID: caller.ID}
	if req.Type != "" {
		filter.Types = []EventType{req.Type}
	}

	page := filter
	page.After = cursor.keyset()
	page.Limit = limit + 1
	records, err := q.store.Query(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("failed to query own activity: %w", err)
	}

	result := &ListResult{Records: records}
	if len(records) > limit {
		result.Records = records[:limit]
		result.HasMore = true
		result.NextCursor = encodeCursor(&result.Records[limit-1], 0)
	}

	if result.Stats.Total, err = q.store.Count(ctx, filter); err != nil {
		return nil, fmt.Errorf("failed to count own activity: %w", err)
	}
	return result, nil
}

// SearchRequest combines free text with structured filters.
type SearchRequest struct {
	Text       string
	Types      []EventType
	Categories []Category
	Severities []Severity
	Statuses   []Status
	Since      int64
	Until      int64
	Limit      int
}

// Search matches text against action, actor name, resource name and IP.
func (q *QueryService) Search(ctx context.Context, caller *Caller, req SearchRequest) ([]Record, error) {
	defer observe("search", time.Now())

	partner, err := q.scope(caller)
	if err != nil {
		return nil, err
	}
	if err := validateSearch(req); err != nil {
		return nil, err
	}

	records, err := q.store.Query(ctx, Filter{
		Types:        req.Types,
		Categories:   req.Categories,
		Severities:   req.Severities,
		Statuses:     req.Statuses,
		PartnerScope: partner,
		Since:        req.Since,
		Until:        req.Until,
		Text:         strings.TrimSpace(req.Text),
		FullText:     true,
		Limit:        clampLimit(req.Limit, DefaultSearchLimit, MaxListLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search audit records: %w", err)
	}
	return records, nil
}

func validateSearch(req SearchRequest) error {
	for _, t := range req.Types {
		if !t.Valid() {
			return invalidField("types", "unknown event type %q", t)
		}
	}
	for _, c := range req.Categories {
		if !c.Valid() {
			return invalidField("categories", "unknown category %q", c)
		}
	}
	for _, s := range req.Severities {
		if !s.Valid() {
			return invalidField("severities", "unknown severity %q", s)
		}
	}
	for _, s := range req.Statuses {
		if !s.Valid() {
			return invalidField("statuses", "unknown status %q", s)
		}
	}
	if req.Since > 0 && req.Until > 0 && req.Until < req.Since {
		return invalidField("until", "must not be before since")
	}
	return nil
}

// ComplianceMetrics counts the regulated event families.
type ComplianceMetrics struct {
	AuthenticationEvents   int64 `json:"authenticationEvents"`
	AuthorizationEvents    int64 `json:"authorizationEvents"`
	DataModificationEvents int64 `json:"dataModificationEvents"`
	SystemAdminEvents      int64 `json:"systemAdminEvents"`
}

// RiskMetrics counts risk-relevant outcomes.
type RiskMetrics struct {
	HighSeverityEvents int64 `json:"highSeverityEvents"`
	CriticalEvents     int64 `json:"criticalEvents"`
	FailedOperations   int64 `json:"failedOperations"`
}

// ComplianceSummary aggregates a date range for compliance reporting.
type ComplianceSummary struct {
	Since              int64             `json:"since"`
	Until              int64             `json:"until"`
	TotalEvents        int64             `json:"totalEvents"`
	ByCategory         map[string]int64  `json:"byCategory"`
	BySeverity         map[string]int64  `json:"bySeverity"`
	PersonalDataEvents int64             `json:"personalDataEvents"`
	Compliance         ComplianceMetrics `json:"complianceMetrics"`
	Risk               RiskMetrics       `json:"riskMetrics"`
}

// ComplianceSummary is master-only. since/until are epoch ms; zero until means now.
func (q *QueryService) ComplianceSummary(ctx context.Context, caller *Caller, since, until int64) (*ComplianceSummary, error) {
	defer observe("compliance_summary", time.Now())

	if err := q.require(caller, ObjectCompliance, ActionRead); err != nil {
		return nil, err
	}
	if until == 0 {
		until = ToMillis(q.now())
	}
	if since < 0 || until < since {
		return nil, invalidField("range", "until must not be before since")
	}

	filter := Filter{Since: since, Until: until}
	out := &ComplianceSummary{Since: since, Until: until}

	var err error
	if out.TotalEvents, err = q.store.Count(ctx, filter); err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	if out.ByCategory, err = q.store.CountBy(ctx, filter, GroupByCategory); err != nil {
		return nil, err
	}
	if out.BySeverity, err = q.store.CountBy(ctx, filter, GroupBySeverity); err != nil {
		return nil, err
	}

	personal := filter
	personal.PersonalData = Bool(true)
	if out.PersonalDataEvents, err = q.store.Count(ctx, personal); err != nil {
		return nil, fmt.Errorf("failed to count personal data events: %w", err)
	}

	out.Compliance = ComplianceMetrics{
		AuthenticationEvents:   out.ByCategory[string(CategoryAuthentication)],
		AuthorizationEvents:    out.ByCategory[string(CategoryAuthorization)],
		DataModificationEvents: out.ByCategory[string(CategoryDataModification)],
		SystemAdminEvents:      out.ByCategory[string(CategorySystemAdministration)],
	}

	failed := filter
	failed.Statuses = []Status{StatusFailure}
	failedCount, err := q.store.Count(ctx, failed)
	if err != nil {
		return nil, fmt.Errorf("failed to count failed operations: %w", err)
	}
	out.Risk = RiskMetrics{
		HighSeverityEvents: out.BySeverity[string(SeverityHigh)],
		CriticalEvents:     out.BySeverity[string(SeverityCritical)],
		FailedOperations:   failedCount,
	}
	return out, nil
}

func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// pageCursor is the keyset position of the last record on a page. Since
// pins a list window to the anchor of its first page.
type pageCursor struct {
	Timestamp int64  `json:"t"`
	ID        string `json:"id"`
	Since     int64  `json:"s,omitempty"`
}

func (c *pageCursor) keyset() *Keyset {
	if c == nil {
		return nil
	}
	return &Keyset{Timestamp: c.Timestamp, ID: c.ID}
}

func encodeCursor(last *Record, since int64) string {
	data, err := json.Marshal(pageCursor{Timestamp: last.Timestamp, ID: last.ID, Since: since})
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeCursor(cursor string) (*pageCursor, error) {
	if cursor == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, invalidField("cursor", "malformed cursor")
	}
	var c pageCursor
	if err := json.Unmarshal(raw, &c); err != nil || c.ID == "" || c.Timestamp <= 0 {
		return nil, invalidField("cursor", "malformed cursor")
	}
	return &c, nil
}

func observe(operation string, start time.Time) {
	metrics.ObserveQuery(operation, time.Since(start))
}
