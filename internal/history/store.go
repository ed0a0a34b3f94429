// Package history persists execution results and derives provider analytics from them.
package history

import (
	"context"
	"time"

	"github.com/davidbz/switchboard/internal/domain"
)

// Row is one persisted execution. Metadata is the JSON blob written at record time;
// stores persist it verbatim and do not populate Error or TokensUsed.
type Row struct {
	domain.ExecutionResult
	Metadata []byte
}

// Filter narrows the rows a Store query reads. Zero values do not filter.
// Since and Until are inclusive.
type Filter struct {
	ProviderID  string
	Capability  domain.Capability
	Since       time.Time
	Until       time.Time
	SuccessOnly bool
	NewestFirst bool
	Limit       int
}

// Store is the persistence contract behind the Repository.
type Store interface {
	// Create appends one row.
	Create(ctx context.Context, row Row) error

	// Find returns matching rows ordered by timestamp, oldest first unless NewestFirst is set.
	Find(ctx context.Context, filter Filter) ([]Row, error)

	// CostByProvider groups matching successful rows by provider, ordered by provider id.
	CostByProvider(ctx context.Context, filter Filter) ([]domain.CostSummary, error)

	// AverageRating returns the mean of non-null ratings of matching rows, 0 when there are none.
	AverageRating(ctx context.Context, filter Filter) (float64, error)

	// DistinctProviders returns every provider id with at least one row, sorted.
	DistinctProviders(ctx context.Context) ([]string, error)

	// UpdateFeedback sets the rating and, when non-nil, the feedback of one row.
	// Returns domain.ErrExecutionNotFound for an unknown id.
	UpdateFeedback(ctx context.Context, executionID string, rating float64, feedback *string) error
}
