package realtime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/coastwatch-systems/coastwatch/internal/models"
)

// Client-to-server events.
const (
	EventAuthenticate        = "authenticate"
	EventSubscribeLocation   = "subscribe_location"
	EventUnsubscribeLocation = "unsubscribe_location"
)

// Server-to-client events.
const (
	EventAuthenticated           = "authenticated"
	EventAuthError               = "auth_error"
	EventLocationSubscribed      = "location_subscribed"
	EventLocationUnsubscribed    = "location_unsubscribed"
	EventNewReport               = "new_report"
	EventVerificationQueueUpdate = "verification_queue_update"
	EventReportVerified          = "report_verified"
	EventDashboardUpdate         = "dashboard_update"
)

// Envelope is the wire format for every realtime message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type AuthenticatePayload struct {
	Token string `json:"token"`
}

type AuthenticatedPayload struct {
	User models.Profile `json:"user"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

type BBoxPayload struct {
	BBox models.BoundingBox `json:"bbox"`
}

type ReportPayload struct {
	Report *models.Report `json:"report"`
}

type QueueUpdatePayload struct {
	Action string         `json:"action"`
	Report *models.Report `json:"report"`
}

type StatsPayload struct {
	Stats *models.DashboardStats `json:"stats"`
}

// newEnvelope marshals payload into an Envelope. Payload types are all local
// and marshal cleanly; a failure here is a programming error.
func newEnvelope(event string, payload any) Envelope {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("realtime: marshal %s payload: %v", event, err))
	}
	return Envelope{Event: event, Data: data}
}

// Topic names. A connection joins "authenticated" and its role topic on a
// successful handshake, and any number of location topics afterwards.
const TopicAuthenticated = "authenticated"

func RoleTopic(role models.Role) string {
	return "role:" + string(role)
}

// LocationTopic keys a subscription by the exact bounding box values, so two
// subscriptions with identical bounds share one topic.
func LocationTopic(b models.BoundingBox) string {
	parts := []string{
		strconv.FormatFloat(b.MinLat, 'g', -1, 64),
		strconv.FormatFloat(b.MinLon, 'g', -1, 64),
		strconv.FormatFloat(b.MaxLat, 'g', -1, 64),
		strconv.FormatFloat(b.MaxLon, 'g', -1, 64),
	}
	return "location:" + strings.Join(parts, ",")
}
