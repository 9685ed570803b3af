package service

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/pkg/jetstream"
)

const (
	SessionEventStarted = "started"
	SessionEventStopped = "stopped"
	SessionEventClaimed = "claimed"
)

type SessionEvent struct {
	Type           string    `json:"type"`
	ActivityID     string    `json:"activityId"`
	UserID         string    `json:"userId"`
	OrganizationID *string   `json:"organizationId,omitempty"`
	At             time.Time `json:"at"`
}

func newSessionEvent(typ string, a *model.Activity, userID string, at time.Time) *SessionEvent {
	return &SessionEvent{
		Type:           typ,
		ActivityID:     a.ActivityID,
		UserID:         userID,
		OrganizationID: a.OrganizationID,
		At:             at,
	}
}

// SessionEvents publishes session transitions to JetStream. Publishing happens
// after commit and failures are only logged.
type SessionEvents struct {
	js nats.JetStreamContext
}

func NewSessionEvents(js nats.JetStreamContext) *SessionEvents {
	return &SessionEvents{js: js}
}

func (p *SessionEvents) Publish(ctx context.Context, events ...*SessionEvent) {
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			log.Error().Err(err).Str("evt.name", "session.event.marshal.failed").Msg("failed to marshal session event")
			continue
		}

		subject := jetstream.Subject(constant.SessionEventSubject, ev.Type)
		msgID := jetstream.MessageID(ev.ActivityID, ev.Type, ev.At)
		if _, err := p.js.Publish(subject, data, jetstream.PublishOpts(msgID, nats.Context(ctx))...); err != nil {
			log.Warn().
				Err(err).
				Str("evt.name", "session.event.publish.failed").
				Str("subject", subject).
				Str("activityId", ev.ActivityID).
				Msg("failed to publish session event")
		}
	}
}
