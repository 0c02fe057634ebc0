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
	"sync"
	"time"

	"github.com/tomtom215/auditrail/internal/logging"
	"github.com/tomtom215/auditrail/internal/metrics"
)

// DefaultRetentionDays applies when no retention policy matches a record.
const DefaultRetentionDays = 180

// DefaultRegulations are attached to every record's compliance block.
var DefaultRegulations = []string{"LGPD", "ISO27001"}

// RiskScorer scores a single action. Implementations never return an error;
// failures are folded into the returned assessment.
type RiskScorer interface {
	Score(ctx context.Context, rc RiskContext) RiskAssessment
}

// PolicyStore persists retention policies keyed by category and severity.
// GetPolicy returns (nil, nil) when no policy exists.
type PolicyStore interface {
	GetPolicy(ctx context.Context, category Category, severity Severity) (*RetentionPolicy, error)
	PutPolicy(ctx context.Context, policy *RetentionPolicy) error
	ListPolicies(ctx context.Context) ([]RetentionPolicy, error)
}

// ActorResolver confirms that a caller identity still exists and returns its
// current profile. It returns ErrActorNotFound for deleted identities.
type ActorResolver interface {
	ResolveActor(ctx context.Context, id string) (*Actor, error)
}

// NotificationKind distinguishes notifications emitted by the audit package.
type NotificationKind string

const (
	// NotificationAnomaly is emitted for records whose risk assessment is anomalous.
	NotificationAnomaly NotificationKind = "anomaly"

	// NotificationLifecycle is emitted for lifecycle summary records.
	NotificationLifecycle NotificationKind = "lifecycle"
)

// Notification is delivered to registered notifiers after a record is stored.
type Notification struct {
	Kind   NotificationKind `json:"kind"`
	Record Record           `json:"record"`
}

// Notifier receives post-write notifications. Errors are logged and never
// affect the write that triggered them.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// WriterConfig holds the compliance defaults applied by the writer.
type WriterConfig struct {
	DefaultRetentionDays int
	Regulations          []string
}

// DefaultWriterConfig returns the standard compliance defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		DefaultRetentionDays: DefaultRetentionDays,
		Regulations:          append([]string(nil), DefaultRegulations...),
	}
}

// WriteInput describes one action to record. Category and Severity are
// derived from Type when empty.
type WriteInput struct {
	Type     EventType
	Action   string
	Category Category
	Severity Severity
	Resource *Resource
	Status   Status
	Metadata Metadata

	// Request carries transport details; nil means an internal call.
	Request *RequestContext

	// Platform overrides user-agent inference when set.
	Platform Platform

	DataClassification string

	// AssessRisk scores the action before insert.
	AssessRisk    bool
	RecentActions []EventType
	BehaviorScore *int
}

// Writer is the single append path for audit records.
type Writer struct {
	store  Store
	config WriterConfig
	now    func() time.Time

	mu        sync.RWMutex
	scorer    RiskScorer
	policies  PolicyStore
	resolver  ActorResolver
	notifiers []Notifier
}

// NewWriter creates a writer over the given store.
func NewWriter(store Store, config WriterConfig) *Writer {
	if config.DefaultRetentionDays <= 0 {
		config.DefaultRetentionDays = DefaultRetentionDays
	}
	if len(config.Regulations) == 0 {
		config.Regulations = append([]string(nil), DefaultRegulations...)
	}
	return &Writer{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

// SetRiskScorer installs the scorer used when WriteInput.AssessRisk is set.
func (w *Writer) SetRiskScorer(scorer RiskScorer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scorer = scorer
}

// SetPolicyStore installs the retention policy store consulted per write.
func (w *Writer) SetPolicyStore(policies PolicyStore) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.policies = policies
}

// SetActorResolver installs the identity check run before every write.
func (w *Writer) SetActorResolver(resolver ActorResolver) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resolver = resolver
}

// AddNotifier registers a post-write notifier.
func (w *Writer) AddNotifier(n Notifier) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notifiers = append(w.notifiers, n)
}

// Store returns the underlying record store.
func (w *Writer) Store() Store {
	return w.store
}

// Write records one action and returns the new record id.
func (w *Writer) Write(ctx context.Context, caller *Caller, in WriteInput) (string, error) {
	record, err := w.write(ctx, caller, in)
	if err != nil {
		return "", err
	}
	return record.ID, nil
}

// write appends one record and returns it with its store-assigned id.
func (w *Writer) write(ctx context.Context, caller *Caller, in WriteInput) (*Record, error) {
	record, err := w.buildRecord(ctx, caller, in)
	if err != nil {
		metrics.RecordWriteError(writeErrorReason(err))
		return nil, err
	}

	id, err := w.store.Insert(ctx, record)
	if err != nil {
		metrics.RecordWriteError("store")
		logging.Ctx(ctx).Error().Err(err).
			Str("event_type", string(record.Event.Type)).
			Str("actor_id", record.Actor.ID).
			Msg("Failed to write audit record")
		return nil, fmt.Errorf("failed to write audit record: %w", err)
	}
	record.ID = id
	if record.CreatedAt == 0 {
		record.CreatedAt = ToMillis(w.now())
	}

	metrics.RecordWrite(string(record.Event.Category), string(record.Event.Severity), string(record.Status))

	if record.RiskAssessment != nil && record.RiskAssessment.IsAnomalous {
		logging.Ctx(ctx).Warn().
			Str("id", id).
			Str("actor_id", record.Actor.ID).
			Int("risk_score", record.RiskAssessment.Score).
			Strs("factors", record.RiskAssessment.Factors).
			Msg("Anomalous audit event recorded")
		w.notify(ctx, Notification{Kind: NotificationAnomaly, Record: *record})
	}

	return record, nil
}

// buildRecord resolves identity, applies defaults and computes compliance
// metadata without touching the store.
func (w *Writer) buildRecord(ctx context.Context, caller *Caller, in WriteInput) (*Record, error) {
	actor, err := w.resolveActor(ctx, caller)
	if err != nil {
		return nil, err
	}

	if !in.Type.Valid() {
		return nil, invalidField("type", "unknown event type %q", in.Type)
	}
	category := in.Category
	if category == "" {
		category = Classify(in.Type)
	} else if !category.Valid() {
		return nil, invalidField("category", "unknown category %q", category)
	}
	severity := in.Severity
	if severity == "" {
		severity = AssessSeverity(in.Type)
	} else if !severity.Valid() {
		return nil, invalidField("severity", "unknown severity %q", severity)
	}
	status := in.Status
	if status == "" {
		status = StatusSuccess
	} else if !status.Valid() {
		return nil, invalidField("status", "unknown status %q", status)
	}
	if in.Platform != "" && !in.Platform.Valid() {
		return nil, invalidField("platform", "unknown platform %q", in.Platform)
	}

	action := strings.TrimSpace(in.Action)
	if action == "" {
		action = strings.ReplaceAll(string(in.Type), "_", " ")
	}

	source := buildSource(in.Request, actor.Role == RoleSystem)
	if in.Platform != "" {
		source.Platform = in.Platform
	}

	var resourceType string
	var resource *Resource
	if in.Resource != nil {
		res := *in.Resource
		resource = &res
		resourceType = res.Type
	}

	now := w.now()
	ts := ToMillis(now)
	retentionDays := w.retentionDays(ctx, category, severity)

	record := &Record{
		Actor: *actor,
		Event: Event{
			Type:     in.Type,
			Action:   action,
			Category: category,
			Severity: severity,
		},
		Resource: resource,
		Source:   source,
		Status:   status,
		Metadata: in.Metadata,
		Compliance: Compliance{
			Regulations:         append([]string(nil), w.config.Regulations...),
			RetentionPeriodDays: retentionDays,
			IsPersonalData:      IsPersonalData(in.Type, resourceType),
			DataClassification:  in.DataClassification,
		},
		Timestamp: ts,
		ExpiresAt: ts + int64(retentionDays)*MillisPerDay,
	}

	if in.AssessRisk {
		if scorer := w.riskScorer(); scorer != nil {
			assessment := scorer.Score(ctx, RiskContext{
				ActorID:       actor.ID,
				IP:            source.IP,
				UserAgent:     source.UserAgent,
				Timestamp:     now,
				EventType:     in.Type,
				ResourceType:  resourceType,
				RecentActions: in.RecentActions,
				BehaviorScore: in.BehaviorScore,
			})
			record.RiskAssessment = &assessment
		}
	}

	return record, nil
}

// resolveActor validates the caller and confirms it still exists.
func (w *Writer) resolveActor(ctx context.Context, caller *Caller) (*Actor, error) {
	if caller == nil || strings.TrimSpace(caller.ID) == "" {
		return nil, ErrUnauthenticated
	}
	if !caller.Role.Valid() {
		return nil, invalidField("actor.role", "unknown role %q", caller.Role)
	}

	actor := &Actor{
		ID:    caller.ID,
		Role:  caller.Role,
		Name:  caller.Name,
		Email: caller.Email,
	}

	w.mu.RLock()
	resolver := w.resolver
	w.mu.RUnlock()

	if resolver != nil && caller.Role != RoleSystem {
		resolved, err := resolver.ResolveActor(ctx, caller.ID)
		if err != nil {
			if errors.Is(err, ErrActorNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrActorNotFound, caller.ID)
			}
			return nil, fmt.Errorf("failed to resolve actor: %w", err)
		}
		if resolved.Name != "" {
			actor.Name = resolved.Name
		}
		if resolved.Email != "" {
			actor.Email = resolved.Email
		}
	}

	if actor.Name == "" {
		actor.Name = actor.ID
	}
	return actor, nil
}

// retentionDays returns the policy window for category and severity, falling
// back to the configured default when no policy applies or lookup fails.
func (w *Writer) retentionDays(ctx context.Context, category Category, severity Severity) int {
	w.mu.RLock()
	policies := w.policies
	w.mu.RUnlock()

	if policies == nil {
		return w.config.DefaultRetentionDays
	}
	policy, err := policies.GetPolicy(ctx, category, severity)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("category", string(category)).
			Str("severity", string(severity)).
			Msg("Retention policy lookup failed, using default")
		return w.config.DefaultRetentionDays
	}
	if policy == nil || policy.RetentionDays <= 0 {
		return w.config.DefaultRetentionDays
	}
	return policy.RetentionDays
}

func (w *Writer) riskScorer() RiskScorer {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.scorer
}

func (w *Writer) policyStore() PolicyStore {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.policies
}

// notify fans a notification out to every registered notifier.
func (w *Writer) notify(ctx context.Context, n Notification) {
	w.mu.RLock()
	notifiers := append([]Notifier(nil), w.notifiers...)
	w.mu.RUnlock()

	for _, notifier := range notifiers {
		if err := notifier.Notify(ctx, n); err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Str("kind", string(n.Kind)).
				Str("id", n.Record.ID).
				Msg("Audit notifier failed")
		}
	}
}

func writeErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrActorNotFound):
		return "actor_not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "other"
	}
}
