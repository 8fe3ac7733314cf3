package logging

import "log/slog"

// Common field names for consistent logging across the service.
const (
	FieldUserID    = "user_id"
	FieldEmail     = "email"
	FieldRole      = "role"
	FieldReportID  = "report_id"
	FieldEventType = "event_type"
	FieldSessionID = "session_id"
	FieldTopic     = "topic"
	FieldIP        = "ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldError     = "error"
)

// UserID returns a slog attribute for the user ID.
func UserID(id string) slog.Attr {
	return slog.String(FieldUserID, id)
}

// Email returns a slog attribute for the user email.
func Email(email string) slog.Attr {
	return slog.String(FieldEmail, email)
}

// Role returns a slog attribute for the user role.
func Role(role string) slog.Attr {
	return slog.String(FieldRole, role)
}

// ReportID returns a slog attribute for the report ID.
func ReportID(id string) slog.Attr {
	return slog.String(FieldReportID, id)
}

// EventType returns a slog attribute for the hazard event type.
func EventType(t string) slog.Attr {
	return slog.String(FieldEventType, t)
}

// SessionID returns a slog attribute for a realtime session ID.
func SessionID(id string) slog.Attr {
	return slog.String(FieldSessionID, id)
}

// Topic returns a slog attribute for a realtime topic.
func Topic(topic string) slog.Attr {
	return slog.String(FieldTopic, topic)
}

// IP returns a slog attribute for the client IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
