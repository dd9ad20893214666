package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hscode_ws_connections",
		Help: "Open realtime connections.",
	})

	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hscode_realtime_events_total",
		Help: "Realtime frames queued for delivery, by event type.",
	}, []string{"event"})

	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hscode_realtime_frames_dropped_total",
		Help: "Frames dropped because a connection's send buffer was full.",
	})

	LeadsModerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hscode_leads_moderated_total",
		Help: "Lead moderation transitions, by action.",
	}, []string{"action"})

	UnreadIncrements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hscode_unread_increments_total",
		Help: "Unread counters incremented, by counter kind.",
	}, []string{"kind"})
)
