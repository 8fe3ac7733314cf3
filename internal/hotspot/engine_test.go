package hotspot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coastwatch-systems/coastwatch/internal/models"
	"github.com/coastwatch-systems/coastwatch/internal/repository"
)

func seedReports(t *testing.T, repo *repository.InMemoryRepository, points []models.ReportPoint, observed time.Time) {
	t.Helper()
	for _, p := range points {
		err := repo.CreateReport(context.Background(), &models.Report{
			ID:        p.ID,
			UserID:    "user-1",
			EventType: p.EventType,
			Longitude: p.Longitude,
			Latitude:  p.Latitude,
			Timestamp: observed,
		})
		require.NoError(t, err)
	}
}

func TestComputeHotspotsTwoGeographicPairs(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	now := time.Now().UTC()

	// Two reports near Chennai, two near Kochi.
	seedReports(t, repo, []models.ReportPoint{
		{ID: "r1", EventType: models.EventHighWave, Longitude: 80.27, Latitude: 13.08},
		{ID: "r2", EventType: models.EventHighWave, Longitude: 80.29, Latitude: 13.10},
		{ID: "r3", EventType: models.EventFlood, Longitude: 76.27, Latitude: 9.93},
		{ID: "r4", EventType: models.EventFlood, Longitude: 76.25, Latitude: 9.95},
	}, now)

	engine := NewEngine(repo)
	clusters, err := engine.ComputeHotspots(context.Background(), 2, time.Time{})
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	for _, c := range clusters {
		assert.Equal(t, 2, c.ReportCount)
	}

	// One centroid near each pair; order is by size then longitude.
	assert.InDelta(t, 76.26, clusters[0].CenterLon, 0.05)
	assert.InDelta(t, 9.94, clusters[0].CenterLat, 0.05)
	assert.Equal(t, models.EventFlood, clusters[0].EventType)

	assert.InDelta(t, 80.28, clusters[1].CenterLon, 0.05)
	assert.InDelta(t, 13.09, clusters[1].CenterLat, 0.05)
	assert.Equal(t, models.EventHighWave, clusters[1].EventType)
}

func TestComputeHotspotsEmptyWindow(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	engine := NewEngine(repo)

	clusters, err := engine.ComputeHotspots(context.Background(), 5, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, clusters)
}

func TestComputeHotspotsInvalidCount(t *testing.T) {
	engine := NewEngine(repository.NewInMemoryRepository())

	_, err := engine.ComputeHotspots(context.Background(), 0, time.Time{})
	assert.ErrorIs(t, err, ErrInvalidClusterCount)

	_, err = engine.ComputeHotspots(context.Background(), -3, time.Time{})
	assert.ErrorIs(t, err, ErrInvalidClusterCount)
}

func TestComputeHotspotsMoreClustersThanReports(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	now := time.Now().UTC()
	seedReports(t, repo, []models.ReportPoint{
		{ID: "r1", EventType: models.EventTsunami, Longitude: 80, Latitude: 13},
		{ID: "r2", EventType: models.EventFlood, Longitude: 76, Latitude: 10},
	}, now)

	engine := NewEngine(repo)
	clusters, err := engine.ComputeHotspots(context.Background(), 10, time.Time{})
	require.NoError(t, err)

	// At most one cluster per distinct report, no empty clusters.
	require.Len(t, clusters, 2)
	for _, c := range clusters {
		assert.Equal(t, 1, c.ReportCount)
	}
}

func TestComputeHotspotsMemberCountsSumToWindowSize(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	now := time.Now().UTC()

	var points []models.ReportPoint
	types := []models.EventType{models.EventHighWave, models.EventFlood, models.EventOther}
	for i := 0; i < 23; i++ {
		points = append(points, models.ReportPoint{
			ID:        string(rune('a' + i)),
			EventType: types[i%len(types)],
			Longitude: float64(70 + i%7),
			Latitude:  float64(8 + i%5),
		})
	}
	seedReports(t, repo, points, now)

	engine := NewEngine(repo)
	for _, k := range []int{1, 2, 4, 7, 23, 50} {
		clusters, err := engine.ComputeHotspots(context.Background(), k, time.Time{})
		require.NoError(t, err)

		total := 0
		for _, c := range clusters {
			assert.GreaterOrEqual(t, c.ReportCount, 1)
			total += c.ReportCount
		}
		assert.Equal(t, 23, total, "cluster members must sum to window size for k=%d", k)
		assert.LessOrEqual(t, len(clusters), k)
	}
}

func TestComputeHotspotsTimeFilter(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	now := time.Now().UTC()

	seedReports(t, repo, []models.ReportPoint{
		{ID: "old", EventType: models.EventFlood, Longitude: 75, Latitude: 12},
	}, now.Add(-48*time.Hour))
	seedReports(t, repo, []models.ReportPoint{
		{ID: "new", EventType: models.EventTsunami, Longitude: 80, Latitude: 13},
	}, now)

	engine := NewEngine(repo)
	clusters, err := engine.ComputeHotspots(context.Background(), 5, now.Add(-time.Hour))
	require.NoError(t, err)

	require.Len(t, clusters, 1)
	assert.Equal(t, 1, clusters[0].ReportCount)
	assert.Equal(t, models.EventTsunami, clusters[0].EventType)
}

func TestComputeHotspotsDeterministic(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	now := time.Now().UTC()

	var points []models.ReportPoint
	for i := 0; i < 40; i++ {
		points = append(points, models.ReportPoint{
			ID:        string(rune('A' + i)),
			EventType: models.EventTypes[i%len(models.EventTypes)],
			Longitude: 70 + float64(i*13%29)*0.37,
			Latitude:  8 + float64(i*7%23)*0.41,
		})
	}
	seedReports(t, repo, points, now)

	engine := NewEngine(repo)
	first, err := engine.ComputeHotspots(context.Background(), 4, time.Time{})
	require.NoError(t, err)
	second, err := engine.ComputeHotspots(context.Background(), 4, time.Time{})
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ReportCount, second[i].ReportCount)
		assert.InDelta(t, first[i].CenterLat, second[i].CenterLat, 1e-9)
		assert.InDelta(t, first[i].CenterLon, second[i].CenterLon, 1e-9)
		assert.Equal(t, first[i].EventType, second[i].EventType)
	}
}

func TestDominantTypeTieBreak(t *testing.T) {
	counts := map[models.EventType]int{
		models.EventTsunami: 3,
		models.EventFlood:   3,
		models.EventOther:   1,
	}
	// flood < tsunami lexicographically.
	assert.Equal(t, models.EventFlood, dominantType(counts))
}
