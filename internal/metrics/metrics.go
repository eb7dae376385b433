package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huddle_sessions_active",
		Help: "Room sessions currently attached to a room.",
	})
	MessagesAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huddle_messages_appended_total",
		Help: "Messages accepted into a session view, by arrival path.",
	}, []string{"path"})
	MessagesDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huddle_messages_deduplicated_total",
		Help: "Append attempts ignored because the id was already present.",
	})
	FeedEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huddle_feed_events_dropped_total",
		Help: "Change feed events dropped on backlogged subscriptions.",
	})
	AIInvocations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huddle_ai_invocations_total",
		Help: "Inference calls triggered by mention messages.",
	})
	AIFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huddle_ai_failures_total",
		Help: "Inference calls that fell back to the apology reply.",
	})
)
