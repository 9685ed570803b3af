package jetstream

import (
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Subject joins tokens into a NATS subject.
func Subject(tokens ...string) string {
	return strings.Join(tokens, ".")
}

// MessageID derives a deduplication id for a message describing an event of the
// given kind on an entity at a point in time. Redelivering the same event yields
// the same id, so JetStream drops the duplicate inside its dedup window.
func MessageID(entityID, kind string, at time.Time) string {
	return entityID + ":" + kind + ":" + strconv.FormatInt(at.UnixNano(), 10)
}

// PublishOpts are the options every session event publish carries.
func PublishOpts(msgID string, opts ...nats.PubOpt) []nats.PubOpt {
	return append([]nats.PubOpt{nats.MsgId(msgID)}, opts...)
}
