package stats

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coastwatch-systems/coastwatch/internal/models"
	"github.com/coastwatch-systems/coastwatch/internal/repository"
)

func addReport(t *testing.T, repo *repository.InMemoryRepository, id string, typ models.EventType, observed time.Time, verified bool) {
	t.Helper()
	report := &models.Report{
		ID:        id,
		UserID:    "user-1",
		EventType: typ,
		Longitude: 80,
		Latitude:  13,
		Timestamp: observed,
	}
	require.NoError(t, repo.CreateReport(context.Background(), report))
	if verified {
		_, err := repo.VerifyReport(context.Background(), id, "analyst-1")
		require.NoError(t, err)
	}
}

func TestComputeStats(t *testing.T) {
	repo := repository.NewInMemoryRepository()

	// Frozen at a Wednesday so the week boundary (Monday) is unambiguous.
	now := time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC)
	fake := clockwork.NewFakeClockAt(now)

	addReport(t, repo, "today-1", models.EventTsunami, now.Add(-2*time.Hour), true)
	addReport(t, repo, "today-2", models.EventHighWave, now.Add(-1*time.Hour), false)
	addReport(t, repo, "monday", models.EventHighWave, time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC), false)
	addReport(t, repo, "last-week", models.EventFlood, time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC), false)
	addReport(t, repo, "last-month", models.EventFlood, time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC), true)

	agg := NewAggregator(repo, time.UTC)
	agg.SetClock(fake)

	stats, err := agg.ComputeStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalReports)
	assert.Equal(t, 3, stats.UnverifiedReports)
	assert.Equal(t, 2, stats.ReportsToday)
	assert.Equal(t, 3, stats.ReportsThisWeek)
	assert.Equal(t, map[string]int{
		"tsunami":   1,
		"high_wave": 2,
		"flood":     2,
	}, stats.EventTypeBreakdown)
}

func TestComputeStatsBreakdownSumsToTotal(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	now := time.Now().UTC()

	for i := 0; i < 17; i++ {
		addReport(t, repo, string(rune('a'+i)), models.EventTypes[i%len(models.EventTypes)], now, i%3 == 0)
	}

	agg := NewAggregator(repo, time.UTC)
	stats, err := agg.ComputeStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 17, stats.TotalReports)
	sum := 0
	for _, n := range stats.EventTypeBreakdown {
		sum += n
	}
	assert.Equal(t, stats.TotalReports, sum)
}

func TestComputeStatsEmptyStore(t *testing.T) {
	agg := NewAggregator(repository.NewInMemoryRepository(), time.UTC)

	stats, err := agg.ComputeStats(context.Background())
	require.NoError(t, err)

	assert.Zero(t, stats.TotalReports)
	assert.Empty(t, stats.EventTypeBreakdown, "zero types are omitted, not present as zero entries")
}

func TestStartOfWeekSunday(t *testing.T) {
	// Sunday belongs to the week that started the previous Monday.
	sunday := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	got := startOfWeek(sunday)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.Monday, got.Weekday())
}
