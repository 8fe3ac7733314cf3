// Package stats computes the dashboard summary counts.
package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/coastwatch-systems/coastwatch/internal/models"
	"github.com/coastwatch-systems/coastwatch/internal/repository"
)

// Aggregator derives DashboardStats from the report store. It never caches:
// every call recomputes from current state. The clock is injectable so tests
// can pin the today/this-week boundaries.
type Aggregator struct {
	store repository.ReportStore
	clock clockwork.Clock
	loc   *time.Location
}

func NewAggregator(store repository.ReportStore, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{
		store: store,
		clock: clockwork.NewRealClock(),
		loc:   loc,
	}
}

// SetClock swaps the time source. Pass nil to reset to real time.
func (a *Aggregator) SetClock(c clockwork.Clock) {
	if c == nil {
		a.clock = clockwork.NewRealClock()
		return
	}
	a.clock = c
}

// ComputeStats issues the five constituent counts concurrently. The counts
// come from independent reads, so tiny skew between them is possible; that
// relaxation is acceptable for this read path.
func (a *Aggregator) ComputeStats(ctx context.Context) (*models.DashboardStats, error) {
	now := a.clock.Now().In(a.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc)
	weekStart := startOfWeek(dayStart)

	unverified := false
	stats := &models.DashboardStats{Hotspots: []models.ReportCluster{}}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	count := func(dst *int, pred models.ReportPredicate) {
		defer wg.Done()
		n, err := a.store.CountReports(ctx, pred)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		*dst = n
	}

	wg.Add(5)
	go count(&stats.TotalReports, models.ReportPredicate{})
	go count(&stats.UnverifiedReports, models.ReportPredicate{Verified: &unverified})
	go count(&stats.ReportsToday, models.ReportPredicate{ObservedSince: &dayStart})
	go count(&stats.ReportsThisWeek, models.ReportPredicate{ObservedSince: &weekStart})
	go func() {
		defer wg.Done()
		byType, err := a.store.CountReportsByType(ctx)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		breakdown := make(map[string]int, len(byType))
		for typ, n := range byType {
			breakdown[string(typ)] = n
		}
		stats.EventTypeBreakdown = breakdown
	}()
	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", firstErr)
	}
	if stats.EventTypeBreakdown == nil {
		stats.EventTypeBreakdown = map[string]int{}
	}
	return stats, nil
}

// startOfWeek returns the Monday 00:00 of the week containing midnight,
// matching ISO week boundaries.
func startOfWeek(dayStart time.Time) time.Time {
	weekday := int(dayStart.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week that started 6 days earlier
	}
	return dayStart.AddDate(0, 0, -(weekday - 1))
}
