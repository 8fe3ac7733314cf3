package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/coastwatch-systems/coastwatch/internal/hotspot"
	"github.com/coastwatch-systems/coastwatch/internal/logging"
	"github.com/coastwatch-systems/coastwatch/internal/metrics"
	"github.com/coastwatch-systems/coastwatch/internal/models"
	"github.com/coastwatch-systems/coastwatch/internal/repository"
)

// StatsProvider supplies the count-based portion of the dashboard aggregate.
type StatsProvider interface {
	ComputeStats(ctx context.Context) (*models.DashboardStats, error)
}

// HotspotOptions carries the clustering defaults from configuration.
type HotspotOptions struct {
	DefaultClusters   int
	DefaultWindowDays int
}

// DashboardService serves the analyst-facing aggregate surfaces: stats with
// hotspots, raw data export, and the analytics time series.
type DashboardService struct {
	store   repository.ReportStore
	stats   StatsProvider
	engine  *hotspot.Engine
	options HotspotOptions
	log     *logging.Logger
}

func NewDashboardService(store repository.ReportStore, stats StatsProvider, engine *hotspot.Engine, options HotspotOptions, log *logging.Logger) *DashboardService {
	if options.DefaultClusters <= 0 {
		options.DefaultClusters = 5
	}
	if options.DefaultWindowDays <= 0 {
		options.DefaultWindowDays = 30
	}
	if log == nil {
		log = logging.Default()
	}
	return &DashboardService{
		store:   store,
		stats:   stats,
		engine:  engine,
		options: options,
		log:     log,
	}
}

// Stats returns the dashboard aggregate including freshly computed hotspots.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	stats, err := s.stats.ComputeStats(ctx)
	if err != nil {
		return nil, err
	}

	hotspots, err := s.Hotspots(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	stats.Hotspots = hotspots
	return stats, nil
}

// Hotspots clusters recent reports. Zero clusterCount or windowDays fall back
// to the configured defaults.
func (s *DashboardService) Hotspots(ctx context.Context, clusterCount, windowDays int) ([]models.ReportCluster, error) {
	if clusterCount <= 0 {
		clusterCount = s.options.DefaultClusters
	}
	if windowDays <= 0 {
		windowDays = s.options.DefaultWindowDays
	}
	since := time.Now().UTC().AddDate(0, 0, -windowDays)

	start := time.Now()
	clusters, err := s.engine.ComputeHotspots(ctx, clusterCount, since)
	if err != nil {
		return nil, err
	}
	metrics.HotspotComputeDuration.Observe(time.Since(start).Seconds())
	return clusters, nil
}

// Analytics returns per-day, per-type report counts for the trailing window.
func (s *DashboardService) Analytics(ctx context.Context, windowDays int) ([]models.TimeSeriesBucket, error) {
	if windowDays <= 0 {
		windowDays = s.options.DefaultWindowDays
	}
	since := time.Now().UTC().AddDate(0, 0, -windowDays)
	return s.store.ReportTimeSeries(ctx, since)
}

var exportHeader = []string{
	"id", "event_type", "description", "latitude", "longitude",
	"location_name", "verified", "verified_by", "reporter_name",
	"timestamp", "created_at",
}

// ExportCSV streams all reports matching the filters as CSV.
func (s *DashboardService) ExportCSV(ctx context.Context, w io.Writer, filters models.ReportFilters) error {
	reports, err := s.store.ListReports(ctx, filters)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for _, r := range reports {
		verifiedBy := ""
		if r.VerifiedBy != nil {
			verifiedBy = *r.VerifiedBy
		}
		row := []string{
			r.ID,
			string(r.EventType),
			r.Description,
			strconv.FormatFloat(r.Latitude, 'f', -1, 64),
			strconv.FormatFloat(r.Longitude, 'f', -1, 64),
			r.LocationName,
			strconv.FormatBool(r.Verified),
			verifiedBy,
			r.ReporterName,
			r.Timestamp.UTC().Format(time.RFC3339),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportJSON returns all reports matching the filters for a JSON download.
func (s *DashboardService) ExportJSON(ctx context.Context, filters models.ReportFilters) ([]*models.Report, error) {
	return s.store.ListReports(ctx, filters)
}

// ExportFilename returns a dated attachment name like reports-2026-08-29.csv.
func ExportFilename(format string) string {
	return fmt.Sprintf("reports-%s.%s", time.Now().UTC().Format("2006-01-02"), format)
}
