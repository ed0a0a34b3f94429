// Package metrics maintains live, per-provider running metrics used by the selector.
//
// Failures are counted alongside successes so that live success and error rates agree
// with the persisted execution history.
package metrics

import (
	"time"

	"github.com/davidbz/switchboard/internal/domain"
)

// ApplySuccess folds a successful call into m.
func ApplySuccess(m *domain.ProviderMetrics, responseTime time.Duration, cost float64, now time.Time) {
	m.TotalRequests++
	m.SuccessfulRequests++

	n := float64(m.SuccessfulRequests)
	m.AverageCost = (m.AverageCost*(n-1) + cost) / n
	m.TotalCost += cost
	m.AverageResponseTimeMs = (m.AverageResponseTimeMs*(n-1) + float64(responseTime.Milliseconds())) / n

	recomputeRates(m)
	m.LastUpdated = now
}

// ApplyFailure folds a failed call into m. Cost and response time averages cover
// successful calls only.
func ApplyFailure(m *domain.ProviderMetrics, _ time.Duration, now time.Time) {
	m.TotalRequests++
	m.FailedRequests++

	recomputeRates(m)
	m.LastUpdated = now
}

func recomputeRates(m *domain.ProviderMetrics) {
	if m.TotalRequests == 0 {
		m.SuccessRate = 1
		m.ErrorRate = 0
		return
	}

	total := float64(m.TotalRequests)
	m.SuccessRate = float64(m.SuccessfulRequests) / total
	m.ErrorRate = float64(m.FailedRequests) / total
}
