package history

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/davidbz/switchboard/internal/domain"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	rows []Row
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:   sync.RWMutex{},
		rows: make([]Row, 0),
	}
}

// Create appends one row.
func (s *MemoryStore) Create(_ context.Context, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row.Metadata = slices.Clone(row.Metadata)
	s.rows = append(s.rows, row)

	return nil
}

// Find returns matching rows ordered by timestamp.
func (s *MemoryStore) Find(_ context.Context, filter Filter) ([]Row, error) {
	s.mu.RLock()
	matched := make([]Row, 0)
	for _, row := range s.rows {
		if matches(row, filter) {
			matched = append(matched, row)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if filter.NewestFirst {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

// CostByProvider groups matching successful rows by provider.
func (s *MemoryStore) CostByProvider(ctx context.Context, filter Filter) ([]domain.CostSummary, error) {
	filter.SuccessOnly = true
	filter.Limit = 0

	rows, err := s.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	byProvider := make(map[string]*domain.CostSummary)
	for _, row := range rows {
		summary, exists := byProvider[row.ProviderID]
		if !exists {
			summary = &domain.CostSummary{ProviderID: row.ProviderID}
			byProvider[row.ProviderID] = summary
		}
		summary.TotalCost += row.Cost
		summary.RequestCount++
	}

	result := make([]domain.CostSummary, 0, len(byProvider))
	for _, summary := range byProvider {
		result = append(result, *summary)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ProviderID < result[j].ProviderID
	})

	return result, nil
}

// AverageRating returns the mean of non-null ratings of matching rows.
func (s *MemoryStore) AverageRating(ctx context.Context, filter Filter) (float64, error) {
	filter.Limit = 0

	rows, err := s.Find(ctx, filter)
	if err != nil {
		return 0, err
	}

	var sum float64
	var count int
	for _, row := range rows {
		if row.UserRating != nil {
			sum += *row.UserRating
			count++
		}
	}

	if count == 0 {
		return 0, nil
	}

	return sum / float64(count), nil
}

// DistinctProviders returns every provider id with at least one row.
func (s *MemoryStore) DistinctProviders(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, row := range s.rows {
		if _, exists := seen[row.ProviderID]; exists {
			continue
		}
		seen[row.ProviderID] = struct{}{}
		ids = append(ids, row.ProviderID)
	}
	sort.Strings(ids)

	return ids, nil
}

// UpdateFeedback sets the rating and optional feedback of one row.
func (s *MemoryStore) UpdateFeedback(_ context.Context, executionID string, rating float64, feedback *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rows {
		if s.rows[i].ID != executionID {
			continue
		}

		s.rows[i].UserRating = &rating
		if feedback != nil {
			text := *feedback
			s.rows[i].Feedback = &text
		}
		return nil
	}

	return fmt.Errorf("%w: %s", domain.ErrExecutionNotFound, executionID)
}

func matches(row Row, filter Filter) bool {
	if filter.ProviderID != "" && row.ProviderID != filter.ProviderID {
		return false
	}
	if filter.Capability != "" && row.Capability != filter.Capability {
		return false
	}
	if !filter.Since.IsZero() && row.Timestamp.Before(filter.Since) {
		return false
	}
	if !filter.Until.IsZero() && row.Timestamp.After(filter.Until) {
		return false
	}
	if filter.SuccessOnly && !row.Success {
		return false
	}
	return true
}
