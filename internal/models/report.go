package models

import (
	"time"
)

// EventType classifies an ocean hazard report.
type EventType string

const (
	EventHighWave    EventType = "high_wave"
	EventFlood       EventType = "flood"
	EventTsunami     EventType = "tsunami"
	EventUnusualTide EventType = "unusual_tide"
	EventOther       EventType = "other"
)

// EventTypes lists all valid event types.
var EventTypes = []EventType{EventHighWave, EventFlood, EventTsunami, EventUnusualTide, EventOther}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventHighWave, EventFlood, EventTsunami, EventUnusualTide, EventOther:
		return true
	}
	return false
}

// Report is a citizen-submitted ocean hazard observation.
// The verification fields are either all unset or all set together, and are
// immutable once set. Timestamp is when the hazard was observed, which is
// distinct from CreatedAt (when the record was written).
type Report struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	EventType    EventType  `json:"event_type"`
	Description  string     `json:"description"`
	Longitude    float64    `json:"longitude"`
	Latitude     float64    `json:"latitude"`
	LocationName string     `json:"location_name,omitempty"`
	MediaURLs    []string   `json:"media_urls"`
	Verified     bool       `json:"verified"`
	VerifiedBy   *string    `json:"verified_by,omitempty"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// ReporterName is populated on reads that join the users table.
	ReporterName string `json:"reporter_name,omitempty"`
}

// ReportCluster is a spatial grouping of reports produced by the hotspot
// engine. ClusterID is an ordinal within a single computation run and is not
// stable across runs.
type ReportCluster struct {
	ClusterID   int       `json:"cluster_id"`
	EventType   EventType `json:"event_type"`
	ReportCount int       `json:"report_count"`
	CenterLat   float64   `json:"center_lat"`
	CenterLon   float64   `json:"center_lon"`
}

// ReportPoint is the minimal projection of a report used for clustering.
type ReportPoint struct {
	ID        string
	EventType EventType
	Longitude float64
	Latitude  float64
}

// DashboardStats is the derived aggregate served to the dashboard and pushed
// to analyst/admin subscribers. Never persisted.
type DashboardStats struct {
	TotalReports       int             `json:"total_reports"`
	UnverifiedReports  int             `json:"unverified_reports"`
	ReportsToday       int             `json:"reports_today"`
	ReportsThisWeek    int             `json:"reports_this_week"`
	EventTypeBreakdown map[string]int  `json:"event_type_breakdown"`
	Hotspots           []ReportCluster `json:"hotspots"`
}

// BoundingBox is a rectangle in longitude/latitude space, used both as a
// query filter and as a realtime subscription key.
type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLon float64 `json:"minLon"`
	MaxLon float64 `json:"maxLon"`
}

// ReportFilters narrows ListReports results. Zero-value fields are ignored.
type ReportFilters struct {
	BBox      *BoundingBox
	EventType EventType
	Verified  *bool
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// ReportPredicate selects reports for counting. Zero-value fields are ignored.
type ReportPredicate struct {
	Verified       *bool
	ObservedSince  *time.Time
	ObservedBefore *time.Time
}

// TimeSeriesBucket is one day's report count for a single event type.
type TimeSeriesBucket struct {
	Date      time.Time `json:"date"`
	EventType EventType `json:"event_type"`
	Count     int       `json:"count"`
}
