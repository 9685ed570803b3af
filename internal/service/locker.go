package service

import (
	"context"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/rs/zerolog/log"

	"actiapp.dev/backend/internal/app/appconfig"
	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/pkg/acterr"
	"actiapp.dev/backend/internal/pkg/observability"
)

// Locker is the redsync backed SessionLocker.
type Locker struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

func NewLocker(rs *redsync.Redsync, conf *appconfig.Config) *Locker {
	return &Locker{
		rs:     rs,
		expiry: conf.SessionLockExpiry,
	}
}

func (l *Locker) Lock(ctx context.Context, userID string) (func(), error) {
	key := constant.SessionLockKeyPrefix + userID
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(8),
		redsync.WithRetryDelay(time.Millisecond*100),
	)

	start := time.Now()
	if err := mutex.LockContext(ctx); err != nil {
		observability.SessionLockWait.WithLabelValues("busy").Observe(time.Since(start).Seconds())
		log.Warn().
			Err(err).
			Str("evt.name", "session.lock.failed").
			Str("key", key).
			Msg("failed to acquire session lock")
		return nil, acterr.ErrSessionBusy
	}
	observability.SessionLockWait.WithLabelValues("acquired").Observe(time.Since(start).Seconds())

	return func() {
		if _, err := mutex.UnlockContext(context.Background()); err != nil {
			log.Error().
				Err(err).
				Str("evt.name", "session.unlock.failed").
				Str("key", key).
				Msg("failed to release session lock")
		}
	}, nil
}
