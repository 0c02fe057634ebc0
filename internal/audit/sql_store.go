// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/auditrail/internal/logging"
)

// Dialect selects placeholder syntax for the SQL store.
type Dialect string

const (
	// DialectDuckDB uses "?" placeholders (go-duckdb).
	DialectDuckDB Dialect = "duckdb"

	// DialectPostgres uses "$n" placeholders (pgx stdlib driver).
	DialectPostgres Dialect = "postgres"
)

// SQLStore implements Store on top of database/sql. The same schema runs on
// DuckDB and PostgreSQL; only placeholders differ.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewSQLStore creates a SQL-backed audit store.
// The caller is responsible for calling CreateTable once during startup.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	if dialect == "" {
		dialect = DialectDuckDB
	}
	return &SQLStore{
		db:      db,
		dialect: dialect,
		now:     time.Now,
	}
}

// groupColumns maps GroupField values to table columns.
var groupColumns = map[GroupField]string{
	GroupByType:     "event_type",
	GroupByCategory: "event_category",
	GroupBySeverity: "event_severity",
	GroupByStatus:   "status",
}

const selectColumns = `
	id, created_at, event_timestamp, expires_at,
	actor_id, actor_role, actor_name, actor_email,
	event_type, event_action, event_category, event_severity,
	resource_type, resource_id, resource_name, resource_org_id, resource_partner_id,
	source_ip, source_user_agent, source_platform, source_location,
	status, metadata, risk_assessment, regulations, retention_days,
	is_personal_data, data_classification, archived, archived_at`

// CreateTable creates the audit_records table and its indexes if missing.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS audit_records (
			id TEXT PRIMARY KEY,
			created_at BIGINT NOT NULL,
			event_timestamp BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,

			-- Actor
			actor_id TEXT NOT NULL,
			actor_role TEXT NOT NULL,
			actor_name TEXT NOT NULL,
			actor_email TEXT,

			-- Event
			event_type TEXT NOT NULL,
			event_action TEXT NOT NULL,
			event_category TEXT NOT NULL,
			event_severity TEXT NOT NULL,

			-- Resource (optional)
			resource_type TEXT,
			resource_id TEXT,
			resource_name TEXT,
			resource_org_id TEXT,
			resource_partner_id TEXT,

			-- Source
			source_ip TEXT NOT NULL,
			source_user_agent TEXT,
			source_platform TEXT NOT NULL,
			source_location TEXT,

			status TEXT NOT NULL,
			metadata TEXT,
			risk_assessment TEXT,

			-- Compliance
			regulations TEXT NOT NULL,
			retention_days INTEGER NOT NULL,
			is_personal_data BOOLEAN NOT NULL DEFAULT FALSE,
			data_classification TEXT,

			archived BOOLEAN NOT NULL DEFAULT FALSE,
			archived_at BIGINT NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_audit_records_ts ON audit_records(event_timestamp);
		CREATE INDEX IF NOT EXISTS idx_audit_records_expires ON audit_records(expires_at);
		CREATE INDEX IF NOT EXISTS idx_audit_records_actor ON audit_records(actor_id);
		CREATE INDEX IF NOT EXISTS idx_audit_records_type ON audit_records(event_type);
		CREATE INDEX IF NOT EXISTS idx_audit_records_category ON audit_records(event_category);
		CREATE INDEX IF NOT EXISTS idx_audit_records_severity ON audit_records(event_severity);
		CREATE INDEX IF NOT EXISTS idx_audit_records_resource ON audit_records(resource_type, resource_id);
		CREATE INDEX IF NOT EXISTS idx_audit_records_partner ON audit_records(resource_partner_id);
		CREATE INDEX IF NOT EXISTS idx_audit_records_ip ON audit_records(source_ip)
	`

	for _, stmt := range strings.Split(query, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	logging.Info().Str("dialect", string(s.dialect)).Msg("Audit records table created/verified")
	return nil
}

// Insert implements Store.
func (s *SQLStore) Insert(ctx context.Context, record *Record) (string, error) {
	if record == nil {
		return "", fmt.Errorf("record cannot be nil")
	}

	id := record.ID
	if id == "" {
		id = uuid.New().String()
	}

	createdAt := ToMillis(s.now())
	params, err := s.prepareRecordParams(id, createdAt, record)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO audit_records (` + selectColumns + `
		) VALUES (
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?, ?
		)`

	if _, err := s.db.ExecContext(ctx, s.rebind(query), params...); err != nil {
		return "", fmt.Errorf("failed to insert audit record: %w", err)
	}
	record.ID = id
	record.CreatedAt = createdAt
	return id, nil
}

// prepareRecordParams flattens a record into insert parameters.
func (s *SQLStore) prepareRecordParams(id string, createdAt int64, r *Record) ([]interface{}, error) {
	metadata, err := json.Marshal(r.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	regulations, err := json.Marshal(r.Compliance.Regulations)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal regulations: %w", err)
	}

	var risk *string
	if r.RiskAssessment != nil {
		data, err := json.Marshal(r.RiskAssessment)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal risk assessment: %w", err)
		}
		str := string(data)
		risk = &str
	}

	resType, resID, resName, resOrg, resPartner := extractResourceFields(r.Resource)

	return []interface{}{
		id, createdAt, r.Timestamp, r.ExpiresAt,
		r.Actor.ID, string(r.Actor.Role), r.Actor.Name, nullable(r.Actor.Email),
		string(r.Event.Type), r.Event.Action, string(r.Event.Category), string(r.Event.Severity),
		resType, resID, resName, resOrg, resPartner,
		r.Source.IP, nullable(r.Source.UserAgent), string(r.Source.Platform), nullable(r.Source.Location),
		string(r.Status), string(metadata), risk, string(regulations), r.Compliance.RetentionPeriodDays,
		r.Compliance.IsPersonalData, nullable(r.Compliance.DataClassification), r.Metadata.Archived, r.Metadata.ArchivedAt,
	}, nil
}

// extractResourceFields returns nullable resource columns.
func extractResourceFields(res *Resource) (typ, id, name, org, partner *string) {
	if res == nil {
		return nil, nil, nil, nil, nil
	}
	return &res.Type, &res.ID, nullable(res.Name), nullable(res.OrganizationID), nullable(res.PartnerID)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, id string) (*Record, error) {
	query := "SELECT " + selectColumns + " FROM audit_records WHERE id = ?"

	var row scannedRecord
	err := s.db.QueryRowContext(ctx, s.rebind(query), id).Scan(row.scanDestinations()...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get audit record: %w", err)
	}

	record, err := row.toRecord()
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Query implements Store.
func (s *SQLStore) Query(ctx context.Context, filter Filter) ([]Record, error) {
	conditions, args := buildFilterConditions(filter)

	query := "SELECT " + selectColumns + " FROM audit_records"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query = appendOrderAndLimit(query, filter)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var row scannedRecord
		if err := rows.Scan(row.scanDestinations()...); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		record, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit records: %w", err)
	}
	return records, nil
}

// Count implements Store.
func (s *SQLStore) Count(ctx context.Context, filter Filter) (int64, error) {
	conditions, args := buildFilterConditions(filter)

	query := "SELECT COUNT(*) FROM audit_records"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit records: %w", err)
	}
	return count, nil
}

// CountBy implements Store.
func (s *SQLStore) CountBy(ctx context.Context, filter Filter, field GroupField) (map[string]int64, error) {
	column, ok := groupColumns[field]
	if !ok {
		return nil, fmt.Errorf("unsupported group field: %s", field)
	}

	conditions, args := buildFilterConditions(filter)
	query := fmt.Sprintf("SELECT %s, COUNT(*) FROM audit_records", column)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " GROUP BY " + column

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s counts: %w", column, err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan %s count: %w", column, err)
		}
		result[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s counts: %w", column, err)
	}
	return result, nil
}

// Delete implements Store.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM audit_records WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete audit record: %w", err)
	}
	return requireAffected(result, id)
}

// SetArchived implements Store.
func (s *SQLStore) SetArchived(ctx context.Context, id string, archivedAt int64) error {
	query := "UPDATE audit_records SET archived = TRUE, archived_at = ? WHERE id = ?"
	result, err := s.db.ExecContext(ctx, s.rebind(query), archivedAt, id)
	if err != nil {
		return fmt.Errorf("failed to archive audit record: %w", err)
	}
	return requireAffected(result, id)
}

func requireAffected(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// buildSliceCondition creates a SQL IN condition for a slice of string values.
func buildSliceCondition[T ~string](column string, values []T, args *[]interface{}) string {
	if len(values) == 0 {
		return ""
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		*args = append(*args, string(v))
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ","))
}

// appendStringCondition adds a string equality condition if value is non-empty.
func appendStringCondition(conditions []string, args []interface{}, column, value string) ([]string, []interface{}) {
	if value != "" {
		conditions = append(conditions, column+" = ?")
		args = append(args, value)
	}
	return conditions, args
}

// buildFilterConditions builds WHERE clause conditions from a Filter.
func buildFilterConditions(filter Filter) ([]string, []interface{}) {
	var args []interface{}
	var conditions []string

	if cond := buildSliceCondition("event_type", filter.Types, &args); cond != "" {
		conditions = append(conditions, cond)
	}
	if cond := buildSliceCondition("event_category", filter.Categories, &args); cond != "" {
		conditions = append(conditions, cond)
	}
	if cond := buildSliceCondition("event_severity", filter.Severities, &args); cond != "" {
		conditions = append(conditions, cond)
	}
	if cond := buildSliceCondition("status", filter.Statuses, &args); cond != "" {
		conditions = append(conditions, cond)
	}

	conditions, args = appendStringCondition(conditions, args, "actor_id", filter.ActorID)
	conditions, args = appendStringCondition(conditions, args, "actor_role", string(filter.ActorRole))
	conditions, args = appendStringCondition(conditions, args, "source_user_agent", filter.ActorUserAgent)
	conditions, args = appendStringCondition(conditions, args, "source_ip", filter.SourceIP)
	conditions, args = appendStringCondition(conditions, args, "resource_type", filter.ResourceType)
	conditions, args = appendStringCondition(conditions, args, "resource_id", filter.ResourceID)

	if filter.PartnerScope != "" {
		conditions = append(conditions, "(actor_id = ? OR resource_partner_id = ?)")
		args = append(args, filter.PartnerScope, filter.PartnerScope)
	}

	if filter.Since > 0 {
		conditions = append(conditions, "event_timestamp >= ?")
		args = append(args, filter.Since)
	}
	if filter.Until > 0 {
		conditions = append(conditions, "event_timestamp <= ?")
		args = append(args, filter.Until)
	}
	if filter.ExpiresBefore > 0 {
		conditions = append(conditions, "expires_at < ?")
		args = append(args, filter.ExpiresBefore)
	}
	if filter.PersonalData != nil {
		conditions = append(conditions, "is_personal_data = ?")
		args = append(args, *filter.PersonalData)
	}
	if filter.Archived != nil {
		conditions = append(conditions, "archived = ?")
		args = append(args, *filter.Archived)
	}

	if filter.After != nil {
		op := "<"
		if filter.Ascending {
			op = ">"
		}
		conditions = append(conditions, fmt.Sprintf("(event_timestamp %[1]s ? OR (event_timestamp = ? AND id %[1]s ?))", op))
		args = append(args, filter.After.Timestamp, filter.After.Timestamp, filter.After.ID)
	}

	if filter.Text != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Text)) + "%"
		if filter.FullText {
			conditions = append(conditions, "(LOWER(event_action) LIKE ? ESCAPE '\\' OR LOWER(actor_name) LIKE ? ESCAPE '\\' "+
				"OR LOWER(COALESCE(resource_name, '')) LIKE ? ESCAPE '\\' OR LOWER(source_ip) LIKE ? ESCAPE '\\')")
			args = append(args, pattern, pattern, pattern, pattern)
		} else {
			conditions = append(conditions, "(LOWER(event_action) LIKE ? ESCAPE '\\' OR LOWER(actor_name) LIKE ? ESCAPE '\\')")
			args = append(args, pattern, pattern)
		}
	}

	return conditions, args
}

// likeEscaper makes LIKE wildcards match literally under ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// appendOrderAndLimit adds ORDER BY, LIMIT, and OFFSET clauses.
func appendOrderAndLimit(query string, filter Filter) string {
	if filter.Ascending {
		query += " ORDER BY event_timestamp ASC, id ASC"
	} else {
		query += " ORDER BY event_timestamp DESC, id DESC"
	}
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}
	return query
}

// scannedRecord holds raw column values before reassembly into a Record.
type scannedRecord struct {
	id                                          string
	createdAt, timestamp, expiresAt             int64
	actorID, actorRole, actorName               string
	actorEmail                                  sql.NullString
	eventType, eventAction, category, severity  string
	resType, resID, resName, resOrg, resPartner sql.NullString
	sourceIP                                    string
	userAgent                                   sql.NullString
	platform                                    string
	location                                    sql.NullString
	status                                      string
	metadata, risk                              sql.NullString
	regulations                                 string
	retentionDays                               int
	personalData                                bool
	classification                              sql.NullString
	archived                                    bool
	archivedAt                                  int64
}

func (r *scannedRecord) scanDestinations() []interface{} {
	return []interface{}{
		&r.id, &r.createdAt, &r.timestamp, &r.expiresAt,
		&r.actorID, &r.actorRole, &r.actorName, &r.actorEmail,
		&r.eventType, &r.eventAction, &r.category, &r.severity,
		&r.resType, &r.resID, &r.resName, &r.resOrg, &r.resPartner,
		&r.sourceIP, &r.userAgent, &r.platform, &r.location,
		&r.status, &r.metadata, &r.risk, &r.regulations, &r.retentionDays,
		&r.personalData, &r.classification, &r.archived, &r.archivedAt,
	}
}

func (r *scannedRecord) toRecord() (*Record, error) {
	record := &Record{
		ID:        r.id,
		CreatedAt: r.createdAt,
		Timestamp: r.timestamp,
		ExpiresAt: r.expiresAt,
		Actor: Actor{
			ID:    r.actorID,
			Role:  Role(r.actorRole),
			Name:  r.actorName,
			Email: r.actorEmail.String,
		},
		Event: Event{
			Type:     EventType(r.eventType),
			Action:   r.eventAction,
			Category: Category(r.category),
			Severity: Severity(r.severity),
		},
		Source: Source{
			IP:        r.sourceIP,
			UserAgent: r.userAgent.String,
			Platform:  Platform(r.platform),
			Location:  r.location.String,
		},
		Status: Status(r.status),
		Compliance: Compliance{
			RetentionPeriodDays: r.retentionDays,
			IsPersonalData:      r.personalData,
			DataClassification:  r.classification.String,
		},
	}

	if r.resType.Valid {
		record.Resource = &Resource{
			Type:           r.resType.String,
			ID:             r.resID.String,
			Name:           r.resName.String,
			OrganizationID: r.resOrg.String,
			PartnerID:      r.resPartner.String,
		}
	}

	if r.metadata.Valid && r.metadata.String != "" {
		if err := json.Unmarshal([]byte(r.metadata.String), &record.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", r.id, err)
		}
	}
	record.Metadata.Archived = r.archived
	record.Metadata.ArchivedAt = r.archivedAt

	if r.risk.Valid && r.risk.String != "" {
		var ra RiskAssessment
		if err := json.Unmarshal([]byte(r.risk.String), &ra); err != nil {
			return nil, fmt.Errorf("failed to decode risk assessment for %s: %w", r.id, err)
		}
		record.RiskAssessment = &ra
	}

	if err := json.Unmarshal([]byte(r.regulations), &record.Compliance.Regulations); err != nil {
		return nil, fmt.Errorf("failed to decode regulations for %s: %w", r.id, err)
	}

	return record, nil
}
