// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tomtom215/auditrail/internal/logging"
	"github.com/tomtom215/auditrail/internal/metrics"
)

// Lifecycle defaults and bounds.
const (
	DefaultCleanupLimit = 1000
	CleanupSampleSize   = 10
	ArchiveBatchCap     = 100
	MinRetentionDays    = 30
	MaxRetentionDays    = 2555
	MaxExportRecords    = 100000
	MaxBulkDeleteIDs    = 1000
	MaxCleanupLimit     = 10000
)

// Admin actions checked against ObjectAdmin.
const (
	AdminCleanup     = "cleanup"
	AdminArchive     = "archive"
	AdminBulkDelete  = "bulk_delete"
	AdminRetention   = "retention"
	AdminExport      = "export"
	AdminManualEntry = "manual_entry"
)

// ExportSink stores rendered export content and returns its location.
type ExportSink interface {
	Put(ctx context.Context, jobID string, format ExportFormat, data []byte) (string, error)
}

// LifecycleConfig bounds lifecycle batches.
type LifecycleConfig struct {
	CleanupLimit int
	ArchiveCap   int

	// DeleteRate caps deletions per second; zero or less means unlimited.
	DeleteRate  float64
	DeleteBurst int
}

// DefaultLifecycleConfig returns the standard batch bounds.
func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		CleanupLimit: DefaultCleanupLimit,
		ArchiveCap:   ArchiveBatchCap,
		DeleteBurst:  50,
	}
}

// Lifecycle runs retention, archival and administrative operations. Every
// mutating operation writes a summary record through the Writer.
type Lifecycle struct {
	writer  *Writer
	store   Store
	authz   Authorizer
	sink    ExportSink
	limiter *rate.Limiter
	config  LifecycleConfig
	now     func() time.Time
}

// NewLifecycle creates a lifecycle manager sharing the writer's store.
func NewLifecycle(writer *Writer, authz Authorizer, config LifecycleConfig) *Lifecycle {
	if authz == nil {
		authz = StaticAuthorizer{}
	}
	if config.CleanupLimit <= 0 {
		config.CleanupLimit = DefaultCleanupLimit
	}
	if config.ArchiveCap <= 0 || config.ArchiveCap > ArchiveBatchCap {
		config.ArchiveCap = ArchiveBatchCap
	}
	if config.DeleteBurst <= 0 {
		config.DeleteBurst = 1
	}

	limit := rate.Inf
	if config.DeleteRate > 0 {
		limit = rate.Limit(config.DeleteRate)
	}

	return &Lifecycle{
		writer:  writer,
		store:   writer.Store(),
		authz:   authz,
		limiter: rate.NewLimiter(limit, config.DeleteBurst),
		config:  config,
		now:     time.Now,
	}
}

// SetExportSink installs where rendered exports are stored.
func (l *Lifecycle) SetExportSink(sink ExportSink) {
	l.sink = sink
}

func (l *Lifecycle) require(caller *Caller, action string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	allowed, err := l.authz.Enforce(string(caller.Role), ObjectAdmin, action)
	if err != nil {
		return fmt.Errorf("authorization check failed: %w", err)
	}
	if !allowed {
		return fmt.Errorf("%w: role %q cannot %s", ErrAccessDenied, caller.Role, strings.ReplaceAll(action, "_", " "))
	}
	return nil
}

// summarize writes a lifecycle summary record and notifies listeners. The
// write is detached from ctx cancellation so partial progress is still
// documented.
func (l *Lifecycle) summarize(ctx context.Context, caller *Caller, in WriteInput) (string, error) {
	record, err := l.writer.write(context.WithoutCancel(ctx), caller, in)
	if err != nil {
		return "", err
	}
	l.writer.notify(ctx, Notification{Kind: NotificationLifecycle, Record: *record})
	return record.ID, nil
}

// ExpiredSample is a compact description of a record eligible for deletion.
type ExpiredSample struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Action    string    `json:"action"`
	Timestamp int64     `json:"timestamp"`
	ExpiresAt int64     `json:"expiresAt"`
}

// CleanupRequest configures an expire-and-delete run.
type CleanupRequest struct {
	DryRun bool
	Limit  int
}

// CleanupResult reports an expire-and-delete run.
type CleanupResult struct {
	DryRun       bool            `json:"dryRun"`
	Candidates   int             `json:"candidates"`
	DeletedCount int             `json:"deletedCount"`
	Retained     int             `json:"retained"`
	Errors       []string        `json:"errors"`
	Samples      []ExpiredSample `json:"samples"`
	SummaryID    string          `json:"summaryId,omitempty"`
}

// CleanupExpired deletes records whose expiresAt has passed, except those
// whose retention policy disables AutoDelete. Re-running with nothing
// expired is a no-op that writes no summary.
func (l *Lifecycle) CleanupExpired(ctx context.Context, caller *Caller, req CleanupRequest) (*CleanupResult, error) {
	if err := l.require(caller, AdminCleanup); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = l.config.CleanupLimit
	}
	if limit > MaxCleanupLimit {
		return nil, invalidField("limit", "must not exceed %d", MaxCleanupLimit)
	}

	candidates, retained, err := l.expiredCandidates(ctx, ToMillis(l.now()), limit)
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{
		DryRun:     req.DryRun,
		Candidates: len(candidates),
		Retained:   retained,
		Errors:     []string{},
		Samples:    expiredSamples(candidates),
	}
	if req.DryRun || len(candidates) == 0 {
		return result, nil
	}

	log := logging.Ctx(ctx).With().Str("component", "lifecycle").Logger()
	log.Info().Int("candidates", len(candidates)).Msg("Starting expired audit record cleanup")

	for i := range candidates {
		if err := l.limiter.Wait(ctx); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("cleanup interrupted: %v", err))
			break
		}
		if err := l.store.Delete(ctx, candidates[i].ID); err != nil {
			log.Warn().Err(err).Str("id", candidates[i].ID).Msg("Failed to delete expired audit record")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", candidates[i].ID, err))
			continue
		}
		result.DeletedCount++
	}

	metrics.RecordLifecycle("cleanup", "deleted", result.DeletedCount)
	metrics.RecordLifecycle("cleanup", "failed", len(result.Errors))

	count := result.DeletedCount
	result.SummaryID, err = l.summarize(ctx, caller, WriteInput{
		Type:   EventTypeAuditCleanup,
		Action: fmt.Sprintf("Deleted %d expired audit records", result.DeletedCount),
		Resource: &Resource{
			Type: "audit_records",
			ID:   "expired",
		},
		Status: batchStatus(result.DeletedCount, len(result.Errors)),
		Metadata: Metadata{
			Count: &count,
			Error: strings.Join(result.Errors, "; "),
			Extra: map[string]any{"retained": result.Retained},
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to write cleanup summary")
	}

	log.Info().
		Int("deleted", result.DeletedCount).
		Int("retained", result.Retained).
		Int("failed", len(result.Errors)).
		Msg("Expired audit record cleanup complete")
	return result, nil
}

// expiredCandidates collects up to limit expired records, oldest first,
// skipping records whose retention policy has AutoDelete switched off. It
// returns the number of expired records it skipped.
func (l *Lifecycle) expiredCandidates(ctx context.Context, now int64, limit int) ([]Record, int, error) {
	policies := l.writer.policyStore()
	autoDelete := make(map[string]bool)
	deletable := func(r *Record) (bool, error) {
		if policies == nil {
			return true, nil
		}
		key := string(r.Event.Category) + ":" + string(r.Event.Severity)
		if ok, cached := autoDelete[key]; cached {
			return ok, nil
		}
		policy, err := policies.GetPolicy(ctx, r.Event.Category, r.Event.Severity)
		if err != nil {
			return false, fmt.Errorf("failed to read retention policy for %s: %w", key, err)
		}
		ok := policy == nil || policy.AutoDelete
		autoDelete[key] = ok
		return ok, nil
	}

	filter := Filter{ExpiresBefore: now, Limit: limit, Ascending: true}
	candidates := make([]Record, 0, limit)
	retained := 0
	for {
		batch, err := l.store.Query(ctx, filter)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to find expired records: %w", err)
		}
		for i := range batch {
			ok, err := deletable(&batch[i])
			if err != nil {
				return nil, 0, err
			}
			if !ok {
				retained++
				continue
			}
			candidates = append(candidates, batch[i])
			if len(candidates) == limit {
				return candidates, retained, nil
			}
		}
		if len(batch) < limit {
			return candidates, retained, nil
		}
		last := batch[len(batch)-1]
		filter.After = &Keyset{Timestamp: last.Timestamp, ID: last.ID}
	}
}

func expiredSamples(records []Record) []ExpiredSample {
	n := len(records)
	if n > CleanupSampleSize {
		n = CleanupSampleSize
	}
	samples := make([]ExpiredSample, 0, n)
	for i := 0; i < n; i++ {
		samples = append(samples, ExpiredSample{
			ID:        records[i].ID,
			Type:      records[i].Event.Type,
			Action:    records[i].Event.Action,
			Timestamp: records[i].Timestamp,
			ExpiresAt: records[i].ExpiresAt,
		})
	}
	return samples
}

// ArchiveRequest configures a soft-archive run.
type ArchiveRequest struct {
	OlderThanDays int
	DryRun        bool
}

// ArchiveResult reports a soft-archive run.
type ArchiveResult struct {
	DryRun        bool     `json:"dryRun"`
	Candidates    int64    `json:"candidates"`
	ArchivedCount int      `json:"archivedCount"`
	Errors        []string `json:"errors"`
	SummaryID     string   `json:"summaryId,omitempty"`
}

// Archive flags up to ArchiveBatchCap unarchived records older than the
// threshold. Dry runs only count candidates.
func (l *Lifecycle) Archive(ctx context.Context, caller *Caller, req ArchiveRequest) (*ArchiveResult, error) {
	if err := l.require(caller, AdminArchive); err != nil {
		return nil, err
	}
	if req.OlderThanDays < 1 {
		return nil, invalidField("olderThanDays", "must be at least 1")
	}

	now := l.now()
	filter := Filter{
		Until:    ToMillis(now) - int64(req.OlderThanDays)*MillisPerDay,
		Archived: Bool(false),
	}

	total, err := l.store.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count archive candidates: %w", err)
	}
	result := &ArchiveResult{DryRun: req.DryRun, Candidates: total, Errors: []string{}}
	if req.DryRun || total == 0 {
		return result, nil
	}

	filter.Limit = l.config.ArchiveCap
	filter.Ascending = true
	batch, err := l.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find archive candidates: %w", err)
	}

	archivedAt := ToMillis(now)
	for i := range batch {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("archive interrupted: %v", err))
			break
		}
		if err := l.store.SetArchived(ctx, batch[i].ID, archivedAt); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", batch[i].ID, err))
			continue
		}
		result.ArchivedCount++
	}

	metrics.RecordLifecycle("archive", "archived", result.ArchivedCount)
	metrics.RecordLifecycle("archive", "failed", len(result.Errors))

	count := result.ArchivedCount
	result.SummaryID, err = l.summarize(ctx, caller, WriteInput{
		Type:   EventTypeAuditArchive,
		Action: fmt.Sprintf("Archived %d audit records older than %d days", result.ArchivedCount, req.OlderThanDays),
		Resource: &Resource{
			Type: "audit_records",
			ID:   "archive",
		},
		Status: batchStatus(result.ArchivedCount, len(result.Errors)),
		Metadata: Metadata{
			Count: &count,
			Error: strings.Join(result.Errors, "; "),
			Extra: map[string]any{"olderThanDays": req.OlderThanDays, "remaining": total - int64(count)},
		},
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to write archive summary")
	}
	return result, nil
}

// BulkDeleteRequest names the records to remove and why.
type BulkDeleteRequest struct {
	IDs    []string
	Reason string
}

// BulkDeleteResult reports a bulk delete. Success is false whenever any
// target failed.
type BulkDeleteResult struct {
	Success      bool     `json:"success"`
	DeletedCount int      `json:"deletedCount"`
	Errors       []string `json:"errors"`
	BatchID      string   `json:"batchId"`
	SummaryID    string   `json:"summaryId,omitempty"`
}

// BulkDelete removes the given records, each attempted at most once.
func (l *Lifecycle) BulkDelete(ctx context.Context, caller *Caller, req BulkDeleteRequest) (*BulkDeleteResult, error) {
	if err := l.require(caller, AdminBulkDelete); err != nil {
		return nil, err
	}
	ids := dedupe(req.IDs)
	if len(ids) == 0 {
		return nil, invalidField("ids", "at least one id is required")
	}
	if len(ids) > MaxBulkDeleteIDs {
		return nil, invalidField("ids", "must not exceed %d", MaxBulkDeleteIDs)
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, invalidField("reason", "is required")
	}

	batchID := uuid.New().String()
	total := len(ids)

	if _, err := l.summarize(ctx, caller, WriteInput{
		Type:     EventTypeAuditBulkDelete,
		Action:   fmt.Sprintf("Bulk delete of %d audit records requested", total),
		Resource: &Resource{Type: "audit_records", ID: batchID},
		Status:   StatusPending,
		Metadata: Metadata{
			BatchID:   batchID,
			Count:     &total,
			Reason:    reason,
			TargetIDs: ids,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to record bulk delete request: %w", err)
	}

	result := &BulkDeleteResult{BatchID: batchID, Errors: []string{}}
	for _, id := range ids {
		if err := l.limiter.Wait(ctx); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		if err := l.store.Delete(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: not found", id))
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id, err))
			}
			continue
		}
		result.DeletedCount++
	}
	result.Success = len(result.Errors) == 0

	metrics.RecordLifecycle("bulk_delete", "deleted", result.DeletedCount)
	metrics.RecordLifecycle("bulk_delete", "failed", len(result.Errors))

	status := StatusSuccess
	if !result.Success {
		status = StatusPartial
	}
	deleted := result.DeletedCount
	summaryID, err := l.summarize(ctx, caller, WriteInput{
		Type:     EventTypeAuditBulkDelete,
		Action:   fmt.Sprintf("Bulk delete completed: %d of %d audit records deleted", result.DeletedCount, total),
		Resource: &Resource{Type: "audit_records", ID: batchID},
		Status:   status,
		Metadata: Metadata{
			BatchID:   batchID,
			Count:     &deleted,
			Reason:    reason,
			TargetIDs: ids,
			Error:     strings.Join(result.Errors, "; "),
		},
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("batch_id", batchID).Msg("Failed to write bulk delete summary")
	}
	result.SummaryID = summaryID

	logging.Ctx(ctx).Info().
		Str("batch_id", batchID).
		Str("actor_id", caller.ID).
		Int("deleted", result.DeletedCount).
		Int("failed", len(result.Errors)).
		Msg("Bulk audit delete complete")
	return result, nil
}

// RetentionPolicyUpdate is a requested change to one retention window.
type RetentionPolicyUpdate struct {
	Category      Category
	Severity      Severity
	RetentionDays int
	AutoDelete    bool
	Reason        string
}

// RetentionPolicyResult reports an applied retention policy change.
type RetentionPolicyResult struct {
	Policy    RetentionPolicy `json:"policy"`
	Persisted bool            `json:"persisted"`
	LogID     string          `json:"logId"`
}

// UpdateRetentionPolicy validates and records a retention policy change. The
// policy is persisted when the writer has a PolicyStore; the compliance log
// entry is written either way.
func (l *Lifecycle) UpdateRetentionPolicy(ctx context.Context, caller *Caller, upd RetentionPolicyUpdate) (*RetentionPolicyResult, error) {
	if err := l.require(caller, AdminRetention); err != nil {
		return nil, err
	}
	if !upd.Category.Valid() {
		return nil, invalidField("category", "unknown category %q", upd.Category)
	}
	if !upd.Severity.Valid() {
		return nil, invalidField("severity", "unknown severity %q", upd.Severity)
	}
	if upd.RetentionDays < MinRetentionDays || upd.RetentionDays > MaxRetentionDays {
		return nil, invalidField("retentionDays", "must be between %d and %d", MinRetentionDays, MaxRetentionDays)
	}

	policy := RetentionPolicy{
		Category:      upd.Category,
		Severity:      upd.Severity,
		RetentionDays: upd.RetentionDays,
		AutoDelete:    upd.AutoDelete,
		Reason:        strings.TrimSpace(upd.Reason),
		UpdatedBy:     caller.ID,
		UpdatedAt:     ToMillis(l.now()),
	}
	result := &RetentionPolicyResult{Policy: policy}

	meta := Metadata{Reason: policy.Reason}
	meta.After, _ = json.Marshal(policy)

	if store := l.writer.policyStore(); store != nil {
		previous, err := store.GetPolicy(ctx, upd.Category, upd.Severity)
		if err != nil {
			return nil, fmt.Errorf("failed to read retention policy: %w", err)
		}
		if previous != nil {
			meta.Before, _ = json.Marshal(previous)
		}
		if err := store.PutPolicy(ctx, &policy); err != nil {
			return nil, fmt.Errorf("failed to store retention policy: %w", err)
		}
		result.Persisted = true
	}

	id, err := l.summarize(ctx, caller, WriteInput{
		Type: EventTypeRetentionPolicyUpdate,
		Action: fmt.Sprintf("Retention for %s/%s set to %d days",
			upd.Category, upd.Severity, upd.RetentionDays),
		Resource: &Resource{
			Type: "retention_policies",
			ID:   string(upd.Category) + ":" + string(upd.Severity),
		},
		Metadata: meta,
	})
	if err != nil {
		return nil, err
	}
	result.LogID = id
	return result, nil
}

// ListRetentionPolicies returns every stored policy. Without a PolicyStore
// the list is empty.
func (l *Lifecycle) ListRetentionPolicies(ctx context.Context, caller *Caller) ([]RetentionPolicy, error) {
	if err := l.require(caller, AdminRetention); err != nil {
		return nil, err
	}
	store := l.writer.policyStore()
	if store == nil {
		return []RetentionPolicy{}, nil
	}
	policies, err := store.ListPolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list retention policies: %w", err)
	}
	return policies, nil
}

// ExportRequest selects the records to export.
type ExportRequest struct {
	Since      int64
	Until      int64
	Format     ExportFormat
	Categories []Category
}

// ExportResult describes a completed export job.
type ExportResult struct {
	JobID       string       `json:"jobId"`
	RecordCount int          `json:"recordCount"`
	Format      ExportFormat `json:"format"`
	Checksum    string       `json:"checksum"`
	Location    string       `json:"location,omitempty"`
	LogID       string       `json:"logId"`
}

// Export renders matching records and hands them to the export sink.
func (l *Lifecycle) Export(ctx context.Context, caller *Caller, req ExportRequest) (*ExportResult, error) {
	if err := l.require(caller, AdminExport); err != nil {
		return nil, err
	}
	format, err := ParseExportFormat(string(req.Format))
	if err != nil {
		return nil, err
	}
	for _, c := range req.Categories {
		if !c.Valid() {
			return nil, invalidField("categories", "unknown category %q", c)
		}
	}
	if req.Since > 0 && req.Until > 0 && req.Until < req.Since {
		return nil, invalidField("until", "must not be before since")
	}

	records, err := l.store.Query(ctx, Filter{
		Categories: req.Categories,
		Since:      req.Since,
		Until:      req.Until,
		Limit:      MaxExportRecords,
		Ascending:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query export records: %w", err)
	}

	data, err := Render(format, records)
	if err != nil {
		return nil, err
	}

	result := &ExportResult{
		JobID:       uuid.New().String(),
		RecordCount: len(records),
		Format:      format,
		Checksum:    Checksum(data),
	}
	if l.sink != nil {
		if result.Location, err = l.sink.Put(ctx, result.JobID, format, data); err != nil {
			return nil, fmt.Errorf("failed to store export %s: %w", result.JobID, err)
		}
	}

	count := result.RecordCount
	result.LogID, err = l.summarize(ctx, caller, WriteInput{
		Type:     EventTypeDataExport,
		Action:   fmt.Sprintf("Exported %d audit records as %s", count, format),
		Resource: &Resource{Type: "audit_exports", ID: result.JobID},
		Metadata: Metadata{
			Count: &count,
			Extra: map[string]any{
				"format":   string(format),
				"checksum": result.Checksum,
				"since":    req.Since,
				"until":    req.Until,
			},
		},
		DataClassification: "confidential",
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordLifecycle("export", "exported", count)
	return result, nil
}

// ManualEntry is an administrator-authored audit record.
type ManualEntry struct {
	Type     EventType
	Action   string
	Category Category
	Severity Severity
	Status   Status
	Resource *Resource
	Reason   string
	Request  *RequestContext
}

// CreateManualEntry writes an administrator-authored record.
func (l *Lifecycle) CreateManualEntry(ctx context.Context, caller *Caller, e ManualEntry) (string, error) {
	if err := l.require(caller, AdminManualEntry); err != nil {
		return "", err
	}
	if strings.TrimSpace(e.Action) == "" {
		return "", invalidField("action", "is required")
	}
	eventType := e.Type
	if eventType == "" {
		eventType = EventTypeManualEntry
	}
	return l.writer.Write(ctx, caller, WriteInput{
		Type:     eventType,
		Action:   e.Action,
		Category: e.Category,
		Severity: e.Severity,
		Status:   e.Status,
		Resource: e.Resource,
		Metadata: Metadata{
			Reason: e.Reason,
			Extra:  map[string]any{"manual": true},
		},
		Request: e.Request,
	})
}

// batchStatus derives a summary status from per-item counts.
func batchStatus(succeeded, failed int) Status {
	switch {
	case failed == 0:
		return StatusSuccess
	case succeeded == 0:
		return StatusFailure
	default:
		return StatusPartial
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
