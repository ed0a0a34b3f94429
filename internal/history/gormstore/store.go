// Package gormstore persists execution history through gorm on an embedded SQLite database.
package gormstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/davidbz/switchboard/internal/domain"
	"github.com/davidbz/switchboard/internal/history"
)

// execution is the persisted row. Timestamp holds unix milliseconds.
type execution struct {
	ID             string   `gorm:"primaryKey"`
	RequestID      string   `gorm:"index"`
	ProviderID     string   `gorm:"index"`
	ModelID        string
	Capability     string   `gorm:"index"`
	Success        bool
	ResponseTimeMs int64
	Cost           float64
	UserRating     *float64
	Feedback       *string
	Timestamp      int64    `gorm:"index"`
	Metadata       string   `gorm:"type:text"`
}

func (execution) TableName() string {
	return "executions"
}

// Store implements history.Store on gorm.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite database at dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	return NewStore(db)
}

// NewStore wraps an existing gorm connection and migrates the schema.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("gorm db cannot be nil")
	}

	if err := db.AutoMigrate(&execution{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Create appends one row.
func (s *Store) Create(ctx context.Context, row history.Row) error {
	record := execution{
		ID:             row.ID,
		RequestID:      row.RequestID,
		ProviderID:     row.ProviderID,
		ModelID:        row.ModelID,
		Capability:     string(row.Capability),
		Success:        row.Success,
		ResponseTimeMs: row.ResponseTimeMs,
		Cost:           row.Cost,
		UserRating:     row.UserRating,
		Feedback:       row.Feedback,
		Timestamp:      row.Timestamp.UnixMilli(),
		Metadata:       string(row.Metadata),
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert execution: %w", err)
	}

	return nil
}

// Find returns matching rows ordered by timestamp.
func (s *Store) Find(ctx context.Context, filter history.Filter) ([]history.Row, error) {
	order := "timestamp ASC"
	if filter.NewestFirst {
		order = "timestamp DESC"
	}

	query := s.scope(ctx, filter).Order(order)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []execution
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	rows := make([]history.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, history.Row{
			ExecutionResult: domain.ExecutionResult{
				ID:             r.ID,
				RequestID:      r.RequestID,
				ProviderID:     r.ProviderID,
				ModelID:        r.ModelID,
				Capability:     domain.Capability(r.Capability),
				Success:        r.Success,
				ResponseTimeMs: r.ResponseTimeMs,
				Cost:           r.Cost,
				UserRating:     r.UserRating,
				Feedback:       r.Feedback,
				Timestamp:      time.UnixMilli(r.Timestamp).UTC(),
			},
			Metadata: []byte(r.Metadata),
		})
	}

	return rows, nil
}

// CostByProvider groups matching successful rows by provider.
func (s *Store) CostByProvider(ctx context.Context, filter history.Filter) ([]domain.CostSummary, error) {
	filter.SuccessOnly = true

	var groups []struct {
		ProviderID   string
		TotalCost    float64
		RequestCount int64
	}

	err := s.scope(ctx, filter).
		Select("provider_id, COALESCE(SUM(cost), 0) AS total_cost, COUNT(*) AS request_count").
		Group("provider_id").
		Order("provider_id").
		Scan(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate costs: %w", err)
	}

	summaries := make([]domain.CostSummary, 0, len(groups))
	for _, g := range groups {
		summaries = append(summaries, domain.CostSummary{
			ProviderID:   g.ProviderID,
			TotalCost:    g.TotalCost,
			RequestCount: g.RequestCount,
		})
	}

	return summaries, nil
}

// AverageRating returns the mean of non-null ratings of matching rows.
func (s *Store) AverageRating(ctx context.Context, filter history.Filter) (float64, error) {
	var avg sql.NullFloat64

	err := s.scope(ctx, filter).
		Select("AVG(user_rating)").
		Where("user_rating IS NOT NULL").
		Row().
		Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to average ratings: %w", err)
	}

	return avg.Float64, nil
}

// DistinctProviders returns every provider id with at least one row.
func (s *Store) DistinctProviders(ctx context.Context) ([]string, error) {
	var ids []string

	err := s.db.WithContext(ctx).
		Model(&execution{}).
		Distinct("provider_id").
		Order("provider_id").
		Pluck("provider_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	return ids, nil
}

// UpdateFeedback sets the rating and optional feedback of one row.
func (s *Store) UpdateFeedback(ctx context.Context, executionID string, rating float64, feedback *string) error {
	updates := map[string]interface{}{"user_rating": rating}
	if feedback != nil {
		updates["feedback"] = *feedback
	}

	result := s.db.WithContext(ctx).
		Model(&execution{}).
		Where("id = ?", executionID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update feedback: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrExecutionNotFound, executionID)
	}

	return nil
}

func (s *Store) scope(ctx context.Context, filter history.Filter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&execution{})

	if filter.ProviderID != "" {
		query = query.Where("provider_id = ?", filter.ProviderID)
	}
	if filter.Capability != "" {
		query = query.Where("capability = ?", string(filter.Capability))
	}
	if !filter.Since.IsZero() {
		query = query.Where("timestamp >= ?", filter.Since.UnixMilli())
	}
	if !filter.Until.IsZero() {
		query = query.Where("timestamp <= ?", filter.Until.UnixMilli())
	}
	if filter.SuccessOnly {
		query = query.Where("success = ?", true)
	}

	return query
}
