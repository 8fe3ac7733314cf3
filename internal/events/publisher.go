// Package events mirrors hazard lifecycle events onto NATS subjects so
// downstream consumers (warning pipelines, archival jobs) can follow the
// report stream. The realtime hub stays authoritative for connected clients;
// this mirror is fire-and-forget and a publish failure never fails the
// triggering request.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/coastwatch-systems/coastwatch/internal/logging"
	"github.com/coastwatch-systems/coastwatch/internal/models"
)

// Subject names for the hazard event stream.
const (
	SubjectReportCreated    = "hazard.reports.created"
	SubjectReportVerified   = "hazard.reports.verified"
	SubjectDashboardUpdated = "hazard.dashboard.updated"
)

// Publisher is the event mirror interface consumed by the service layer.
type Publisher interface {
	ReportCreated(report *models.Report)
	ReportVerified(report *models.Report)
	DashboardUpdated(stats *models.DashboardStats)
	Close()
}

// NATSPublisher publishes events to a NATS server.
type NATSPublisher struct {
	conn *nats.Conn
	log  *logging.Logger
}

// NewNATSPublisher connects to the given NATS URL.
func NewNATSPublisher(url string, log *logging.Logger) (*NATSPublisher, error) {
	if log == nil {
		log = logging.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name("coastwatch"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, log: log}, nil
}

func (p *NATSPublisher) ReportCreated(report *models.Report) {
	p.publish(SubjectReportCreated, report)
}

func (p *NATSPublisher) ReportVerified(report *models.Report) {
	p.publish(SubjectReportVerified, report)
}

func (p *NATSPublisher) DashboardUpdated(stats *models.DashboardStats) {
	p.publish(SubjectDashboardUpdated, stats)
}

func (p *NATSPublisher) Close() {
	p.conn.Drain()
}

func (p *NATSPublisher) publish(subject string, data any) {
	bytes, err := json.Marshal(data)
	if err != nil {
		p.log.Warn("failed to marshal event", logging.Topic(subject), logging.Error(err))
		return
	}
	if err := p.conn.Publish(subject, bytes); err != nil {
		p.log.Warn("failed to publish event", logging.Topic(subject), logging.Error(err))
	}
}

// NopPublisher discards all events. Used when NATS is not configured.
type NopPublisher struct{}

func (NopPublisher) ReportCreated(*models.Report)            {}
func (NopPublisher) ReportVerified(*models.Report)           {}
func (NopPublisher) DashboardUpdated(*models.DashboardStats) {}
func (NopPublisher) Close()                                  {}
