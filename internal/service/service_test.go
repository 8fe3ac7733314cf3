package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coastwatch-systems/coastwatch/internal/hotspot"
	"github.com/coastwatch-systems/coastwatch/internal/models"
	"github.com/coastwatch-systems/coastwatch/internal/repository"
	"github.com/coastwatch-systems/coastwatch/internal/stats"
	"github.com/coastwatch-systems/coastwatch/pkg/tokens"
)

type fakeBroadcaster struct {
	newReports []*models.Report
	verified   []*models.Report
	dashboards []*models.DashboardStats
}

func (b *fakeBroadcaster) BroadcastNewReport(r *models.Report) {
	b.newReports = append(b.newReports, r)
}

func (b *fakeBroadcaster) BroadcastReportVerification(r *models.Report) {
	b.verified = append(b.verified, r)
}

func (b *fakeBroadcaster) BroadcastDashboardUpdate(stats *models.DashboardStats) {
	b.dashboards = append(b.dashboards, stats)
}

type fixture struct {
	repo      *repository.InMemoryRepository
	auth      *AuthService
	reports   *ReportService
	dashboard *DashboardService
	hub       *fakeBroadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := repository.NewInMemoryRepository()
	hub := &fakeBroadcaster{}
	agg := stats.NewAggregator(repo, time.UTC)
	engine := hotspot.NewEngine(repo)
	dashboard := NewDashboardService(repo, agg, engine, HotspotOptions{}, nil)

	return &fixture{
		repo:      repo,
		auth:      NewAuthService(repo, tokens.NewTokenGenerator("test-secret", time.Hour), nil),
		reports:   NewReportService(repo, hub, dashboard, nil, nil),
		dashboard: dashboard,
		hub:       hub,
	}
}

func (f *fixture) register(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()
	resp, err := f.auth.Register(context.Background(), &models.RegisterRequest{
		Name:     "Test User",
		Email:    email,
		Password: "hunter2hunter2",
		Role:     role,
	})
	require.NoError(t, err)
	user, err := f.repo.GetUserByID(context.Background(), resp.User.ID)
	require.NoError(t, err)
	return user
}

func validReport() *models.CreateReportRequest {
	return &models.CreateReportRequest{
		EventType:   models.EventHighWave,
		Description: "waves breaching the seawall",
		Longitude:   80.27,
		Latitude:    13.08,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	resp, err := f.auth.Register(context.Background(), &models.RegisterRequest{
		Name:     "Asha",
		Email:    "Asha@Example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.RoleCitizen, resp.User.Role, "role defaults to citizen")
	assert.Equal(t, "asha@example.com", resp.User.Email, "email is normalized")

	login, err := f.auth.Login(context.Background(), &models.LoginRequest{
		Email:    "asha@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@example.com", "")

	_, err := f.auth.Login(context.Background(), &models.LoginRequest{
		Email:    "a@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.Login(context.Background(), &models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown email and wrong password are indistinguishable")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "dup@example.com", "")

	_, err := f.auth.Register(context.Background(), &models.RegisterRequest{
		Name:     "Other",
		Email:    "dup@example.com",
		Password: "hunter2hunter2",
	})
	assert.ErrorIs(t, err, repository.ErrUserExists)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Register(context.Background(), &models.RegisterRequest{
		Name:     "Short",
		Email:    "s@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestResolveToken(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "r@example.com", models.RoleAnalyst)

	login, err := f.auth.Login(context.Background(), &models.LoginRequest{
		Email:    "r@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	resolved, err := f.auth.ResolveToken(context.Background(), login.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
	assert.Equal(t, models.RoleAnalyst, resolved.Role)

	_, err = f.auth.ResolveToken(context.Background(), "not-a-token")
	assert.Error(t, err)
}

func TestCreateReportBroadcasts(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "c@example.com", "")

	report, err := f.reports.Create(context.Background(), user.ID, validReport())
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, user.ID, report.UserID)
	assert.False(t, report.Verified)
	assert.NotNil(t, report.MediaURLs, "media URLs marshal as [] not null")

	require.Len(t, f.hub.newReports, 1)
	assert.Equal(t, report.ID, f.hub.newReports[0].ID)
}

func TestCreateReportValidation(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "v@example.com", "")

	req := validReport()
	req.Latitude = 91

	_, err := f.reports.Create(context.Background(), user.ID, req)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.hub.newReports, "invalid reports are never broadcast")
}

func TestVerifyReport(t *testing.T) {
	f := newFixture(t)
	citizen := f.register(t, "cit@example.com", "")
	analyst := f.register(t, "an@example.com", models.RoleAnalyst)

	report, err := f.reports.Create(context.Background(), citizen.ID, validReport())
	require.NoError(t, err)

	verified, err := f.reports.Verify(context.Background(), report.ID, analyst)
	require.NoError(t, err)
	assert.True(t, verified.Verified)
	require.NotNil(t, verified.VerifiedBy)
	assert.Equal(t, analyst.ID, *verified.VerifiedBy)
	assert.NotNil(t, verified.VerifiedAt)

	require.Len(t, f.hub.verified, 1)
	require.Len(t, f.hub.dashboards, 1, "verification pushes a dashboard refresh")

	// The pushed aggregate carries the freshly clustered hotspots, not just
	// the counts.
	pushed := f.hub.dashboards[0]
	assert.Equal(t, 1, pushed.TotalReports)
	require.NotEmpty(t, pushed.Hotspots)
	assert.Equal(t, 1, pushed.Hotspots[0].ReportCount)
}

func TestVerifyReportTwice(t *testing.T) {
	f := newFixture(t)
	citizen := f.register(t, "cit2@example.com", "")
	analyst := f.register(t, "an2@example.com", models.RoleAnalyst)

	report, err := f.reports.Create(context.Background(), citizen.ID, validReport())
	require.NoError(t, err)

	_, err = f.reports.Verify(context.Background(), report.ID, analyst)
	require.NoError(t, err)

	_, err = f.reports.Verify(context.Background(), report.ID, analyst)
	assert.ErrorIs(t, err, repository.ErrAlreadyVerified)
	assert.Len(t, f.hub.verified, 1, "the second attempt broadcasts nothing")
}

func TestVerifyReportRoleGate(t *testing.T) {
	f := newFixture(t)
	citizen := f.register(t, "cit3@example.com", "")

	report, err := f.reports.Create(context.Background(), citizen.ID, validReport())
	require.NoError(t, err)

	_, err = f.reports.Verify(context.Background(), report.ID, citizen)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteReportOwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	owner := f.register(t, "own@example.com", "")
	other := f.register(t, "oth@example.com", "")
	admin := f.register(t, "adm@example.com", models.RoleAdmin)

	r1, err := f.reports.Create(context.Background(), owner.ID, validReport())
	require.NoError(t, err)
	r2, err := f.reports.Create(context.Background(), owner.ID, validReport())
	require.NoError(t, err)

	assert.ErrorIs(t, f.reports.Delete(context.Background(), r1.ID, other), ErrForbidden)
	assert.NoError(t, f.reports.Delete(context.Background(), r1.ID, owner))
	assert.NoError(t, f.reports.Delete(context.Background(), r2.ID, admin))

	_, err = f.reports.Get(context.Background(), r1.ID)
	assert.ErrorIs(t, err, repository.ErrReportNotFound)
}

func TestListFiltersValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.reports.List(context.Background(), models.ReportFilters{
		BBox: &models.BoundingBox{MinLat: 20, MaxLat: 10},
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.reports.List(context.Background(), models.ReportFilters{EventType: "earthquake"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDashboardStatsIncludesHotspots(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "d@example.com", "")

	for i := 0; i < 4; i++ {
		_, err := f.reports.Create(context.Background(), user.ID, validReport())
		require.NoError(t, err)
	}

	got, err := f.dashboard.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, got.TotalReports)
	require.NotEmpty(t, got.Hotspots)

	total := 0
	for _, c := range got.Hotspots {
		total += c.ReportCount
	}
	assert.Equal(t, 4, total, "every recent report lands in exactly one cluster")
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "e@example.com", "")

	req := validReport()
	req.Description = `quoted "comma, description"`
	_, err := f.reports.Create(context.Background(), user.ID, req)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.dashboard.ExportCSV(context.Background(), &buf, models.ReportFilters{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,event_type,description"))
	assert.Contains(t, lines[1], `"quoted ""comma, description"""`)
}

func TestExportFilename(t *testing.T) {
	name := ExportFilename("csv")
	assert.True(t, strings.HasPrefix(name, "reports-"))
	assert.True(t, strings.HasSuffix(name, ".csv"))
}
