// Package postgres persists execution history in PostgreSQL through database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/davidbz/switchboard/internal/domain"
	"github.com/davidbz/switchboard/internal/history"
	"github.com/davidbz/switchboard/internal/observability"
)

const pingTimeout = 5 * time.Second

//nolint:gochecknoglobals // schema statements
var schema = []string{
	`CREATE TABLE IF NOT EXISTS executions (
		id               TEXT PRIMARY KEY,
		request_id       TEXT NOT NULL,
		provider_id      TEXT NOT NULL,
		model_id         TEXT,
		capability       TEXT,
		success          BOOLEAN NOT NULL,
		response_time_ms BIGINT NOT NULL,
		cost             DOUBLE PRECISION NOT NULL,
		user_rating      DOUBLE PRECISION,
		feedback         TEXT,
		executed_at      TIMESTAMPTZ NOT NULL,
		metadata         TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_provider_time ON executions (provider_id, executed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_capability ON executions (capability)`,
}

const selectColumns = `id, request_id, provider_id, model_id, capability, success,
	response_time_ms, cost, user_rating, feedback, executed_at, metadata`

// Store implements history.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects to dsn, verifies the connection and migrates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := NewStore(db)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	observability.FromContext(ctx).Info("history database connection established")

	return store, nil
}

// NewStore wraps an open connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the executions table and its indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate history schema: %w", err)
		}
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create appends one row.
func (s *Store) Create(ctx context.Context, row history.Row) error {
	query := `
		INSERT INTO executions (
			id, request_id, provider_id, model_id, capability, success,
			response_time_ms, cost, user_rating, feedback, executed_at, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.db.ExecContext(ctx, query,
		row.ID,
		row.RequestID,
		row.ProviderID,
		nullString(row.ModelID),
		nullString(string(row.Capability)),
		row.Success,
		row.ResponseTimeMs,
		row.Cost,
		row.UserRating,
		row.Feedback,
		row.Timestamp.UTC(),
		nullString(string(row.Metadata)),
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution: %w", err)
	}

	return nil
}

// Find returns matching rows ordered by timestamp.
func (s *Store) Find(ctx context.Context, filter history.Filter) ([]history.Row, error) {
	where, args := buildWhere(filter)

	order := "ASC"
	if filter.NewestFirst {
		order = "DESC"
	}

	query := "SELECT " + selectColumns + " FROM executions" + where + " ORDER BY executed_at " + order
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	result := make([]history.Row, 0)
	for rows.Next() {
		var (
			r          history.Row
			modelID    sql.NullString
			capability sql.NullString
			rating     sql.NullFloat64
			feedback   sql.NullString
			metadata   sql.NullString
		)

		if err := rows.Scan(
			&r.ID,
			&r.RequestID,
			&r.ProviderID,
			&modelID,
			&capability,
			&r.Success,
			&r.ResponseTimeMs,
			&r.Cost,
			&rating,
			&feedback,
			&r.Timestamp,
			&metadata,
		); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		r.ModelID = modelID.String
		r.Capability = domain.Capability(capability.String)
		if rating.Valid {
			value := rating.Float64
			r.UserRating = &value
		}
		if feedback.Valid {
			text := feedback.String
			r.Feedback = &text
		}
		if metadata.Valid {
			r.Metadata = []byte(metadata.String)
		}

		result = append(result, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate executions: %w", err)
	}

	return result, nil
}

// CostByProvider groups matching successful rows by provider.
func (s *Store) CostByProvider(ctx context.Context, filter history.Filter) ([]domain.CostSummary, error) {
	filter.SuccessOnly = true
	where, args := buildWhere(filter)

	query := "SELECT provider_id, COALESCE(SUM(cost), 0), COUNT(*) FROM executions" + where +
		" GROUP BY provider_id ORDER BY provider_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate costs: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.CostSummary, 0)
	for rows.Next() {
		var summary domain.CostSummary
		if err := rows.Scan(&summary.ProviderID, &summary.TotalCost, &summary.RequestCount); err != nil {
			return nil, fmt.Errorf("failed to scan cost summary: %w", err)
		}
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cost summaries: %w", err)
	}

	return summaries, nil
}

// AverageRating returns the mean of non-null ratings of matching rows.
func (s *Store) AverageRating(ctx context.Context, filter history.Filter) (float64, error) {
	where, args := buildWhere(filter)
	if where == "" {
		where = " WHERE user_rating IS NOT NULL"
	} else {
		where += " AND user_rating IS NOT NULL"
	}

	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, "SELECT AVG(user_rating) FROM executions"+where, args...).Scan(&avg); err != nil {
		return 0, fmt.Errorf("failed to average ratings: %w", err)
	}

	return avg.Float64, nil
}

// DistinctProviders returns every provider id with at least one row.
func (s *Store) DistinctProviders(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT provider_id FROM executions ORDER BY provider_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan provider id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate providers: %w", err)
	}

	return ids, nil
}

// UpdateFeedback sets the rating and optional feedback of one row.
func (s *Store) UpdateFeedback(ctx context.Context, executionID string, rating float64, feedback *string) error {
	query := "UPDATE executions SET user_rating = $1 WHERE id = $2"
	args := []interface{}{rating, executionID}
	if feedback != nil {
		query = "UPDATE executions SET user_rating = $1, feedback = $2 WHERE id = $3"
		args = []interface{}{rating, *feedback, executionID}
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrExecutionNotFound, executionID)
	}

	return nil
}

func buildWhere(filter history.Filter) (string, []interface{}) {
	clauses := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)

	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.ProviderID != "" {
		add("provider_id = $%d", filter.ProviderID)
	}
	if filter.Capability != "" {
		add("capability = $%d", string(filter.Capability))
	}
	if !filter.Since.IsZero() {
		add("executed_at >= $%d", filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		add("executed_at <= $%d", filter.Until.UTC())
	}
	if filter.SuccessOnly {
		clauses = append(clauses, "success = TRUE")
	}

	if len(clauses) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
