package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ServiceName = "actiapp"
)

var (
	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "session", "transitions_total"),
		Help: "Number of activity session transitions",
	}, []string{"transition"})
	SessionLockWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    prometheus.BuildFQName(ServiceName, "session", "lock_wait_seconds"),
		Help:    "Time spent acquiring the per-user session lock in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"outcome"})
	SessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    prometheus.BuildFQName(ServiceName, "session", "duration_seconds"),
		Help:    "Duration of completed activity sessions in seconds",
		Buckets: prometheus.ExponentialBuckets(60, 2, 12),
	})
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "auth", "login_attempts_total"),
		Help: "Number of login attempts by result",
	}, []string{"result"})
)
