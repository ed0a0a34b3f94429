package history

import (
	"math"
	"sort"
	"time"

	"github.com/davidbz/switchboard/internal/domain"
)

// Summarize derives provider metrics from rows. Response time and cost figures cover
// successful rows only; percentiles use floor indexes into the sorted response times.
func Summarize(providerID string, rows []Row, now time.Time) domain.ProviderMetrics {
	if len(rows) == 0 {
		return domain.NewProviderMetrics(providerID, now)
	}

	m := domain.ProviderMetrics{
		ProviderID:  providerID,
		LastUpdated: now,
	}

	responseTimes := make([]float64, 0, len(rows))
	var ratingSum float64
	var ratings int

	for _, row := range rows {
		m.TotalRequests++

		if row.UserRating != nil {
			ratingSum += *row.UserRating
			ratings++
		}

		if !row.Success {
			m.FailedRequests++
			continue
		}

		m.SuccessfulRequests++
		m.TotalCost += row.Cost
		responseTimes = append(responseTimes, float64(row.ResponseTimeMs))
	}

	sort.Float64s(responseTimes)

	if n := len(responseTimes); n > 0 {
		var sum float64
		for _, v := range responseTimes {
			sum += v
		}
		m.AverageResponseTimeMs = sum / float64(n)
		m.MedianResponseTimeMs = percentile(responseTimes, 0.5)
		m.P95ResponseTimeMs = percentile(responseTimes, 0.95)
		m.P99ResponseTimeMs = percentile(responseTimes, 0.99)
		m.AverageCost = m.TotalCost / float64(n)
	}

	if ratings > 0 {
		m.AverageUserRating = ratingSum / float64(ratings)
	}

	total := float64(m.TotalRequests)
	m.SuccessRate = float64(m.SuccessfulRequests) / total
	m.ErrorRate = float64(m.FailedRequests) / total

	return m
}

// percentile returns sorted[floor(n*p)].
func percentile(sorted []float64, p float64) float64 {
	idx := int(math.Floor(float64(len(sorted)) * p))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
