package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coastwatch-systems/coastwatch/internal/events"
	"github.com/coastwatch-systems/coastwatch/internal/logging"
	"github.com/coastwatch-systems/coastwatch/internal/metrics"
	"github.com/coastwatch-systems/coastwatch/internal/models"
	"github.com/coastwatch-systems/coastwatch/internal/repository"
)

// Broadcaster pushes lifecycle events to connected realtime clients.
type Broadcaster interface {
	BroadcastNewReport(report *models.Report)
	BroadcastReportVerification(report *models.Report)
	BroadcastDashboardUpdate(stats *models.DashboardStats)
}

// DashboardSource recomputes the full dashboard aggregate, hotspots
// included.
type DashboardSource interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

// ReportService owns the report lifecycle. Writes go to the store first;
// broadcasts and the event mirror fire only after a successful commit, so
// clients never see a report that was not persisted.
type ReportService struct {
	store     repository.ReportStore
	hub       Broadcaster
	dashboard DashboardSource
	publisher events.Publisher
	log       *logging.Logger
}

func NewReportService(store repository.ReportStore, hub Broadcaster, dashboard DashboardSource, publisher events.Publisher, log *logging.Logger) *ReportService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = logging.Default()
	}
	return &ReportService{
		store:     store,
		hub:       hub,
		dashboard: dashboard,
		publisher: publisher,
		log:       log,
	}
}

// Create validates and persists a new report, then fans it out.
func (s *ReportService) Create(ctx context.Context, userID string, req *models.CreateReportRequest) (*models.Report, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate report ID: %w", err)
	}

	observed := time.Now().UTC()
	if req.Timestamp != nil {
		observed = req.Timestamp.UTC()
	}

	media := req.MediaURLs
	if media == nil {
		media = []string{}
	}

	report := &models.Report{
		ID:           id.String(),
		UserID:       userID,
		EventType:    req.EventType,
		Description:  req.Description,
		Longitude:    req.Longitude,
		Latitude:     req.Latitude,
		LocationName: req.LocationName,
		MediaURLs:    media,
		Timestamp:    observed,
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, err
	}

	metrics.ReportsCreated.WithLabelValues(string(report.EventType)).Inc()
	s.log.InfoContext(ctx, "report created",
		logging.ReportID(report.ID), logging.UserID(userID), logging.EventType(string(report.EventType)))

	if s.hub != nil {
		s.hub.BroadcastNewReport(report)
	}
	s.publisher.ReportCreated(report)
	return report, nil
}

// Get returns one report by ID.
func (s *ReportService) Get(ctx context.Context, id string) (*models.Report, error) {
	return s.store.GetReportByID(ctx, id)
}

// List returns reports matching the filters, newest first.
func (s *ReportService) List(ctx context.Context, filters models.ReportFilters) ([]*models.Report, error) {
	if filters.BBox != nil {
		if err := filters.BBox.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrValidation, err)
		}
	}
	if filters.EventType != "" && !filters.EventType.Valid() {
		return nil, fmt.Errorf("%w: invalid event type %q", ErrValidation, filters.EventType)
	}
	return s.store.ListReports(ctx, filters)
}

// ListMine returns the requesting user's own reports, newest first.
func (s *ReportService) ListMine(ctx context.Context, userID string, limit, offset int) ([]*models.Report, error) {
	return s.store.ListReportsByUser(ctx, userID, limit, offset)
}

// Verify marks the report verified by the given analyst or admin, then
// notifies all authenticated clients and pushes refreshed dashboard stats to
// analysts and admins. Verification is immutable.
func (s *ReportService) Verify(ctx context.Context, reportID string, verifier *models.User) (*models.Report, error) {
	if verifier.Role != models.RoleAnalyst && verifier.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	report, err := s.store.VerifyReport(ctx, reportID, verifier.ID)
	if err != nil {
		return nil, err
	}

	metrics.ReportsVerified.Inc()
	s.log.InfoContext(ctx, "report verified",
		logging.ReportID(report.ID), logging.UserID(verifier.ID))

	if s.hub != nil {
		s.hub.BroadcastReportVerification(report)
		s.pushDashboard(ctx)
	}
	s.publisher.ReportVerified(report)
	return report, nil
}

// Delete removes a report. Only the reporter or an admin may delete it.
func (s *ReportService) Delete(ctx context.Context, reportID string, requester *models.User) error {
	report, err := s.store.GetReportByID(ctx, reportID)
	if err != nil {
		return err
	}
	if report.UserID != requester.ID && requester.Role != models.RoleAdmin {
		return ErrForbidden
	}
	if err := s.store.DeleteReport(ctx, reportID); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "report deleted",
		logging.ReportID(reportID), logging.UserID(requester.ID))
	return nil
}

// pushDashboard recomputes the full aggregate, hotspots included, and
// broadcasts it. Failures are logged and swallowed; the verification itself
// has already committed.
func (s *ReportService) pushDashboard(ctx context.Context) {
	stats, err := s.dashboard.Stats(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "failed to refresh dashboard after verification", logging.Error(err))
		return
	}
	s.hub.BroadcastDashboardUpdate(stats)
	s.publisher.DashboardUpdated(stats)
}
