package repository

import (
	"context"
	"errors"
	"time"

	"github.com/coastwatch-systems/coastwatch/internal/models"
)

var (
	ErrReportNotFound  = errors.New("report not found")
	ErrAlreadyVerified = errors.New("report already verified")
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
)

// ReportStore is the single source of truth for hazard reports. The hotspot
// engine and stats aggregator only read through it and never cache results.
type ReportStore interface {
	CreateReport(ctx context.Context, report *models.Report) error
	GetReportByID(ctx context.Context, id string) (*models.Report, error)
	ListReports(ctx context.Context, filters models.ReportFilters) ([]*models.Report, error)
	ListReportsByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Report, error)
	// VerifyReport marks the report verified. Verification is immutable:
	// verifying an already-verified report returns ErrAlreadyVerified.
	VerifyReport(ctx context.Context, id, verifierID string) (*models.Report, error)
	DeleteReport(ctx context.Context, id string) error
	CountReports(ctx context.Context, pred models.ReportPredicate) (int, error)
	CountReportsByType(ctx context.Context) (map[models.EventType]int, error)
	// ReportPositions returns the clustering projection of every report whose
	// event timestamp is >= since.
	ReportPositions(ctx context.Context, since time.Time) ([]models.ReportPoint, error)
	// ReportTimeSeries returns per-day, per-type report counts since the
	// given instant, oldest day first.
	ReportTimeSeries(ctx context.Context, since time.Time) ([]models.TimeSeriesBucket, error)
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Repository combines the stores backed by one database.
type Repository interface {
	ReportStore
	UserStore
	Close()
}
