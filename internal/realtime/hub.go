// Package realtime fans hazard-report lifecycle events out to live
// connections. Delivery is best-effort, in-memory and single-process: a
// disconnected client receives nothing and catches up over HTTP.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/coastwatch-systems/coastwatch/internal/logging"
	"github.com/coastwatch-systems/coastwatch/internal/metrics"
	"github.com/coastwatch-systems/coastwatch/internal/models"
	"github.com/coastwatch-systems/coastwatch/pkg/geo"
)

// Sender delivers envelopes to one connection. Send must not block; a sender
// with a full outbound queue reports the drop via its return value.
type Sender interface {
	Send(env Envelope) error
}

// UserResolver turns a bearer credential into a user. Resolution may hit the
// user store and is the only blocking call in the realtime layer.
type UserResolver interface {
	ResolveToken(ctx context.Context, token string) (*models.User, error)
}

type session struct {
	id     string
	user   *models.User
	sender Sender
	topics map[string]struct{}
}

// Hub exclusively owns the connection registry. All session and topic
// mutations happen under one mutex, synchronously with the triggering event,
// so broadcasts observe a consistent membership snapshot.
type Hub struct {
	resolver UserResolver
	log      *logging.Logger

	mu       sync.Mutex
	sessions map[string]*session
	// Bidirectional topic index: broadcast is O(topic size), leave is
	// O(connection's topic count).
	topics map[string]map[string]struct{}
	// Parsed bounds per location topic, for point-in-box matching at
	// new_report broadcast time.
	locationBounds map[string]models.BoundingBox
}

func NewHub(resolver UserResolver, log *logging.Logger) *Hub {
	if log == nil {
		log = logging.Default()
	}
	return &Hub{
		resolver:       resolver,
		log:            log,
		sessions:       make(map[string]*session),
		topics:         make(map[string]map[string]struct{}),
		locationBounds: make(map[string]models.BoundingBox),
	}
}

// Register adds a new unauthenticated connection and returns its session ID.
func (h *Hub) Register(sender Sender) string {
	id := uuid.New().String()

	h.mu.Lock()
	h.sessions[id] = &session{
		id:     id,
		sender: sender,
		topics: make(map[string]struct{}),
	}
	h.mu.Unlock()

	metrics.ConnectionsActive.Inc()
	h.log.Debug("realtime connection registered", logging.SessionID(id))
	return id
}

// Unregister discards all state for the connection. A reconnecting client
// must re-authenticate and re-subscribe from scratch.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	if ok {
		for topic := range s.topics {
			h.leaveTopicLocked(s, topic)
		}
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()

	if ok {
		metrics.ConnectionsActive.Dec()
		h.log.Debug("realtime connection discarded", logging.SessionID(sessionID))
	}
}

// HandleMessage processes one inbound client event in receipt order.
func (h *Hub) HandleMessage(ctx context.Context, sessionID string, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.sendTo(sessionID, newEnvelope(EventAuthError, ErrorPayload{Error: "malformed message"}))
		return
	}

	switch env.Event {
	case EventAuthenticate:
		h.handleAuthenticate(ctx, sessionID, env.Data)
	case EventSubscribeLocation:
		h.handleLocation(sessionID, env.Data, true)
	case EventUnsubscribeLocation:
		h.handleLocation(sessionID, env.Data, false)
	default:
		h.sendTo(sessionID, newEnvelope(EventAuthError, ErrorPayload{
			Error: fmt.Sprintf("unknown event %q", env.Event),
		}))
	}
}

func (h *Hub) handleAuthenticate(ctx context.Context, sessionID string, data json.RawMessage) {
	var payload AuthenticatePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Token == "" {
		h.sendTo(sessionID, newEnvelope(EventAuthError, ErrorPayload{Error: "token is required"}))
		return
	}

	// Token resolution may block on the user store; do it outside the lock.
	user, err := h.resolver.ResolveToken(ctx, payload.Token)
	if err != nil {
		h.sendTo(sessionID, newEnvelope(EventAuthError, ErrorPayload{Error: "invalid token"}))
		return
	}

	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	if ok {
		// Re-authentication replaces the identity; the old role topic must
		// not keep leaking role-gated events to the session.
		if s.user != nil && s.user.Role != user.Role {
			h.leaveTopicLocked(s, RoleTopic(s.user.Role))
		}
		s.user = user
		h.joinTopicLocked(s, TopicAuthenticated)
		h.joinTopicLocked(s, RoleTopic(user.Role))
	}
	h.mu.Unlock()

	if !ok {
		return // connection closed while the lookup was in flight
	}

	h.sendTo(sessionID, newEnvelope(EventAuthenticated, AuthenticatedPayload{User: user.Profile()}))
	h.log.Info("realtime connection authenticated",
		logging.SessionID(sessionID), logging.UserID(user.ID), logging.Role(string(user.Role)))
}

func (h *Hub) handleLocation(sessionID string, data json.RawMessage, subscribe bool) {
	var payload BBoxPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendTo(sessionID, newEnvelope(EventAuthError, ErrorPayload{Error: "malformed bounding box"}))
		return
	}
	if err := payload.BBox.Validate(); err != nil {
		h.sendTo(sessionID, newEnvelope(EventAuthError, ErrorPayload{Error: err.Error()}))
		return
	}

	topic := LocationTopic(payload.BBox)

	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	if ok {
		if s.user == nil {
			h.mu.Unlock()
			h.sendTo(sessionID, newEnvelope(EventAuthError, ErrorPayload{Error: "authentication required"}))
			return
		}
		if subscribe {
			h.joinTopicLocked(s, topic)
			h.locationBounds[topic] = payload.BBox
		} else {
			h.leaveTopicLocked(s, topic)
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	ack := EventLocationSubscribed
	if !subscribe {
		ack = EventLocationUnsubscribed
	}
	h.sendTo(sessionID, newEnvelope(ack, payload))
}

// joinTopicLocked and leaveTopicLocked keep both sides of the index in sync.
// Callers must hold h.mu.
func (h *Hub) joinTopicLocked(s *session, topic string) {
	members, ok := h.topics[topic]
	if !ok {
		members = make(map[string]struct{})
		h.topics[topic] = members
	}
	members[s.id] = struct{}{}
	s.topics[topic] = struct{}{}
}

func (h *Hub) leaveTopicLocked(s *session, topic string) {
	delete(s.topics, topic)
	if members, ok := h.topics[topic]; ok {
		delete(members, s.id)
		if len(members) == 0 {
			delete(h.topics, topic)
			delete(h.locationBounds, topic)
		}
	}
}

// BroadcastNewReport delivers a new report to every authenticated client, to
// analysts/admins as a verification-queue update, and to location subscribers
// whose box contains the report's position.
func (h *Hub) BroadcastNewReport(report *models.Report) {
	reportEnv := newEnvelope(EventNewReport, ReportPayload{Report: report})
	queueEnv := newEnvelope(EventVerificationQueueUpdate, QueueUpdatePayload{
		Action: EventNewReport,
		Report: report,
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	// Authenticated members plus matching location subscribers, deduplicated
	// so a session in several matching topics gets the report once.
	seen := make(map[string]struct{})
	for id := range h.topics[TopicAuthenticated] {
		seen[id] = struct{}{}
		h.deliverLocked(id, reportEnv)
	}
	for topic, bounds := range h.locationBounds {
		if !geo.PointInBounds(report.Longitude, report.Latitude,
			bounds.MinLat, bounds.MaxLat, bounds.MinLon, bounds.MaxLon) {
			continue
		}
		for id := range h.topics[topic] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			h.deliverLocked(id, reportEnv)
		}
	}

	for _, role := range []models.Role{models.RoleAnalyst, models.RoleAdmin} {
		for id := range h.topics[RoleTopic(role)] {
			h.deliverLocked(id, queueEnv)
		}
	}
}

// BroadcastReportVerification notifies every authenticated client.
func (h *Hub) BroadcastReportVerification(report *models.Report) {
	env := newEnvelope(EventReportVerified, ReportPayload{Report: report})

	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.topics[TopicAuthenticated] {
		h.deliverLocked(id, env)
	}
}

// BroadcastDashboardUpdate pushes fresh stats to analysts and admins only.
func (h *Hub) BroadcastDashboardUpdate(stats *models.DashboardStats) {
	env := newEnvelope(EventDashboardUpdate, StatsPayload{Stats: stats})

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, role := range []models.Role{models.RoleAnalyst, models.RoleAdmin} {
		for id := range h.topics[RoleTopic(role)] {
			h.deliverLocked(id, env)
		}
	}
}

// deliverLocked enqueues an envelope for one session. Each delivery is
// independent: a slow or failed connection never affects the others.
func (h *Hub) deliverLocked(sessionID string, env Envelope) {
	s, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	if err := s.sender.Send(env); err != nil {
		metrics.BroadcastsDropped.Inc()
		h.log.Warn("realtime delivery dropped",
			logging.SessionID(sessionID), slog.String("event", env.Event), logging.Error(err))
		return
	}
	metrics.BroadcastsSent.WithLabelValues(env.Event).Inc()
}

func (h *Hub) sendTo(sessionID string, env Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliverLocked(sessionID, env)
}

// ConnectedCount returns the number of live connections.
func (h *Hub) ConnectedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}
