package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coastwatch-systems/coastwatch/internal/models"
)

func seedReports(t *testing.T, repo *InMemoryRepository, n int) []*models.Report {
	t.Helper()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	out := make([]*models.Report, 0, n)
	for i := 0; i < n; i++ {
		report := &models.Report{
			ID:        fmt.Sprintf("r-%03d", i),
			UserID:    "u-1",
			EventType: models.EventTypes[i%len(models.EventTypes)],
			Longitude: 80 + float64(i)*0.01,
			Latitude:  13 + float64(i)*0.01,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, repo.CreateReport(context.Background(), report))
		out = append(out, report)
	}
	return out
}

func TestListReportsNewestFirst(t *testing.T) {
	repo := NewInMemoryRepository()
	seedReports(t, repo, 5)

	got, err := repo.ListReports(context.Background(), models.ReportFilters{})
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i-1].Timestamp.Before(got[i].Timestamp))
	}
}

func TestListReportsPagination(t *testing.T) {
	repo := NewInMemoryRepository()
	seedReports(t, repo, 10)

	page, err := repo.ListReports(context.Background(), models.ReportFilters{Limit: 3, Offset: 3})
	require.NoError(t, err)
	assert.Len(t, page, 3)

	past, err := repo.ListReports(context.Background(), models.ReportFilters{Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestListReportsBBoxFilter(t *testing.T) {
	repo := NewInMemoryRepository()
	seedReports(t, repo, 10)

	got, err := repo.ListReports(context.Background(), models.ReportFilters{
		BBox: &models.BoundingBox{MinLat: 13, MaxLat: 13.03, MinLon: 80, MaxLon: 80.03},
	})
	require.NoError(t, err)
	assert.Len(t, got, 4, "boundary points are inclusive")
}

func TestListReportsDateFilter(t *testing.T) {
	repo := NewInMemoryRepository()
	reports := seedReports(t, repo, 6)

	start := reports[2].Timestamp
	end := reports[4].Timestamp
	got, err := repo.ListReports(context.Background(), models.ReportFilters{
		StartDate: &start,
		EndDate:   &end,
	})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestVerifyReportImmutable(t *testing.T) {
	repo := NewInMemoryRepository()
	seedReports(t, repo, 1)

	verified, err := repo.VerifyReport(context.Background(), "r-000", "analyst-1")
	require.NoError(t, err)
	assert.True(t, verified.Verified)
	require.NotNil(t, verified.VerifiedAt)

	_, err = repo.VerifyReport(context.Background(), "r-000", "analyst-2")
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	got, err := repo.GetReportByID(context.Background(), "r-000")
	require.NoError(t, err)
	require.NotNil(t, got.VerifiedBy)
	assert.Equal(t, "analyst-1", *got.VerifiedBy, "first verifier wins")
}

func TestVerifyReportNotFound(t *testing.T) {
	repo := NewInMemoryRepository()
	_, err := repo.VerifyReport(context.Background(), "missing", "analyst-1")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestReadsReturnCopies(t *testing.T) {
	repo := NewInMemoryRepository()
	seedReports(t, repo, 1)

	first, err := repo.GetReportByID(context.Background(), "r-000")
	require.NoError(t, err)
	first.Description = "mutated by caller"

	second, err := repo.GetReportByID(context.Background(), "r-000")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated by caller", second.Description)
}

func TestReporterNameJoined(t *testing.T) {
	repo := NewInMemoryRepository()
	require.NoError(t, repo.CreateUser(context.Background(), &models.User{
		ID: "u-1", Name: "Asha", Email: "asha@example.com", Role: models.RoleCitizen,
	}))
	seedReports(t, repo, 1)

	got, err := repo.GetReportByID(context.Background(), "r-000")
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.ReporterName)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo := NewInMemoryRepository()
	user := &models.User{ID: "u-1", Email: "dup@example.com"}
	require.NoError(t, repo.CreateUser(context.Background(), user))

	err := repo.CreateUser(context.Background(), &models.User{ID: "u-2", Email: "dup@example.com"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestCountReportsPredicates(t *testing.T) {
	repo := NewInMemoryRepository()
	reports := seedReports(t, repo, 6)
	_, err := repo.VerifyReport(context.Background(), reports[0].ID, "a-1")
	require.NoError(t, err)

	total, err := repo.CountReports(context.Background(), models.ReportPredicate{})
	require.NoError(t, err)
	assert.Equal(t, 6, total)

	unverified := false
	n, err := repo.CountReports(context.Background(), models.ReportPredicate{Verified: &unverified})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	since := reports[3].Timestamp
	n, err = repo.CountReports(context.Background(), models.ReportPredicate{ObservedSince: &since})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestReportPositionsWindow(t *testing.T) {
	repo := NewInMemoryRepository()
	reports := seedReports(t, repo, 4)

	points, err := repo.ReportPositions(context.Background(), reports[2].Timestamp)
	require.NoError(t, err)
	assert.Len(t, points, 2)
}

func TestReportTimeSeriesOrdering(t *testing.T) {
	repo := NewInMemoryRepository()
	seedReports(t, repo, 30)

	series, err := repo.ReportTimeSeries(context.Background(), time.Time{})
	require.NoError(t, err)
	require.NotEmpty(t, series)
	for i := 1; i < len(series); i++ {
		assert.False(t, series[i].Date.Before(series[i-1].Date))
	}

	total := 0
	for _, b := range series {
		total += b.Count
	}
	assert.Equal(t, 30, total)
}
