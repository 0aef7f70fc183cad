package services

import "github.com/rs/zerolog"

// Audit event names.
const (
	EventUserRegistered  = "user.registered"
	EventUserUpdated     = "user.updated"
	EventUserDeleted     = "user.deleted"
	EventSuperAdminReset = "superadmin.reset"
)

// EventPublisher publishes audit events about user accounts.
type EventPublisher interface {
	PublishUserEvent(event string, payload map[string]interface{}) error
}

// publish sends an event when a publisher is configured. Failures are logged
// and never fail the request that triggered them.
func publish(p EventPublisher, log zerolog.Logger, event string, payload map[string]interface{}) {
	if p == nil {
		return
	}
	if err := p.PublishUserEvent(event, payload); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("failed to publish user event")
	}
}
