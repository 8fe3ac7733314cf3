package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coastwatch-systems/coastwatch/internal/models"
	"github.com/coastwatch-systems/coastwatch/pkg/geo"
)

// InMemoryRepository is a map-backed Repository used by tests and demo mode.
type InMemoryRepository struct {
	reports      map[string]*models.Report
	users        map[string]*models.User
	usersByEmail map[string]*models.User
	mu           sync.RWMutex
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		reports:      make(map[string]*models.Report),
		users:        make(map[string]*models.User),
		usersByEmail: make(map[string]*models.User),
	}
}

func (r *InMemoryRepository) CreateReport(ctx context.Context, report *models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *report
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	cp.UpdatedAt = cp.CreatedAt
	r.reports[report.ID] = &cp
	*report = cp
	return nil
}

func (r *InMemoryRepository) GetReportByID(ctx context.Context, id string) (*models.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, exists := r.reports[id]
	if !exists {
		return nil, ErrReportNotFound
	}
	cp := *report
	if u, ok := r.users[report.UserID]; ok {
		cp.ReporterName = u.Name
	}
	return &cp, nil
}

func (r *InMemoryRepository) ListReports(ctx context.Context, filters models.ReportFilters) ([]*models.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Report
	for _, report := range r.reports {
		if !matchesFilters(report, filters) {
			continue
		}
		cp := *report
		if u, ok := r.users[report.UserID]; ok {
			cp.ReporterName = u.Name
		}
		out = append(out, &cp)
	}

	// Newest observation first, ID as stable tie-break.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			return nil, nil
		}
		out = out[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(out) {
		out = out[:filters.Limit]
	}
	return out, nil
}

func matchesFilters(report *models.Report, f models.ReportFilters) bool {
	if f.BBox != nil && !geo.PointInBounds(report.Longitude, report.Latitude,
		f.BBox.MinLat, f.BBox.MaxLat, f.BBox.MinLon, f.BBox.MaxLon) {
		return false
	}
	if f.EventType != "" && report.EventType != f.EventType {
		return false
	}
	if f.Verified != nil && report.Verified != *f.Verified {
		return false
	}
	if f.StartDate != nil && report.Timestamp.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && report.Timestamp.After(*f.EndDate) {
		return false
	}
	return true
}

func (r *InMemoryRepository) ListReportsByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Report
	for _, report := range r.reports {
		if report.UserID == userID {
			cp := *report
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})

	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryRepository) VerifyReport(ctx context.Context, id, verifierID string) (*models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, exists := r.reports[id]
	if !exists {
		return nil, ErrReportNotFound
	}
	if report.Verified {
		return nil, ErrAlreadyVerified
	}

	now := time.Now().UTC()
	report.Verified = true
	report.VerifiedBy = &verifierID
	report.VerifiedAt = &now
	report.UpdatedAt = now

	cp := *report
	return &cp, nil
}

func (r *InMemoryRepository) DeleteReport(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reports[id]; !exists {
		return ErrReportNotFound
	}
	delete(r.reports, id)
	return nil
}

func (r *InMemoryRepository) CountReports(ctx context.Context, pred models.ReportPredicate) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, report := range r.reports {
		if pred.Verified != nil && report.Verified != *pred.Verified {
			continue
		}
		if pred.ObservedSince != nil && report.Timestamp.Before(*pred.ObservedSince) {
			continue
		}
		if pred.ObservedBefore != nil && !report.Timestamp.Before(*pred.ObservedBefore) {
			continue
		}
		count++
	}
	return count, nil
}

func (r *InMemoryRepository) CountReportsByType(ctx context.Context) (map[models.EventType]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[models.EventType]int)
	for _, report := range r.reports {
		out[report.EventType]++
	}
	return out, nil
}

func (r *InMemoryRepository) ReportPositions(ctx context.Context, since time.Time) ([]models.ReportPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.ReportPoint
	for _, report := range r.reports {
		if report.Timestamp.Before(since) {
			continue
		}
		out = append(out, models.ReportPoint{
			ID:        report.ID,
			EventType: report.EventType,
			Longitude: report.Longitude,
			Latitude:  report.Latitude,
		})
	}
	return out, nil
}

func (r *InMemoryRepository) ReportTimeSeries(ctx context.Context, since time.Time) ([]models.TimeSeriesBucket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type key struct {
		day time.Time
		typ models.EventType
	}
	counts := make(map[key]int)
	for _, report := range r.reports {
		if report.Timestamp.Before(since) {
			continue
		}
		day := report.Timestamp.UTC().Truncate(24 * time.Hour)
		counts[key{day, report.EventType}]++
	}

	out := make([]models.TimeSeriesBucket, 0, len(counts))
	for k, c := range counts {
		out = append(out, models.TimeSeriesBucket{Date: k.day, EventType: k.typ, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].EventType < out[j].EventType
	})
	return out, nil
}

func (r *InMemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.usersByEmail[user.Email]; exists {
		return ErrUserExists
	}
	cp := *user
	r.users[user.ID] = &cp
	r.usersByEmail[user.Email] = &cp
	return nil
}

func (r *InMemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *InMemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.usersByEmail[email]
	if !exists {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

// SetUserRole changes a user's role in place. Test and seeding helper; the
// HTTP surface never exposes role changes.
func (r *InMemoryRepository) SetUserRole(id string, role models.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[id]
	if !exists {
		return ErrUserNotFound
	}
	user.Role = role
	return nil
}

func (r *InMemoryRepository) Close() {}
