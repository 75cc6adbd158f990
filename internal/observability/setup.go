package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	// Logger backs HTTP request logging in the admin panel; bot handlers
	// log through logrus.
	Logger *zap.Logger

	ViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_violations_total",
			Help: "Messages removed for rule violations",
		},
		[]string{"kind"},
	)

	ChallengesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatekeeper_challenges_total",
			Help: "Join challenges issued and resolved",
		},
		[]string{"outcome"},
	)

	PointsAwardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progression_points_total",
			Help: "Point deltas applied to member profiles",
		},
		[]string{"direction"},
	)

	MessageProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "message_processing_duration_seconds",
			Help:    "Time spent processing inbound updates",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

func Init() error {
	var err error
	Logger, err = zap.NewProduction()
	if err != nil {
		return err
	}

	prometheus.MustRegister(
		ViolationsTotal,
		ChallengesTotal,
		PointsAwardedTotal,
		MessageProcessingDuration,
	)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	return nil
}
