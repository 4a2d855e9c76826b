// Package metrics provides Prometheus instrumentation for the hub chat
// client. It exposes counters for message and matchmaking throughput, gauges
// for tracked rooms, and a histogram for matchmaking request latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesRecorded counts chat messages folded into room history.
	MessagesRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hub_messages_recorded_total",
		Help: "Total number of chat messages recorded into room history",
	})

	// RoomsTracked tracks the current number of rooms with message history.
	RoomsTracked = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hub_rooms_tracked",
		Help: "Current number of rooms with recorded message history",
	})

	// MatchmakingPolls counts matchmaking requests issued, successful or not.
	MatchmakingPolls = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hub_matchmaking_polls_total",
		Help: "Total number of matchmaking requests issued",
	})

	// MatchesFound counts formed groups joined by this client.
	MatchesFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hub_matches_found_total",
		Help: "Total number of formed matchmaking groups joined",
	})

	// MatchRequestLatency records matchmaking request round-trip time.
	MatchRequestLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hub_match_request_latency_seconds",
		Help:    "Matchmaking request round-trip latency in seconds",
		Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})

	// ArchivedMessages counts messages persisted to the long-term archive.
	ArchivedMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hub_archived_messages_total",
		Help: "Total number of messages written to the PostgreSQL archive",
	})
)

func init() {
	prometheus.MustRegister(
		MessagesRecorded,
		RoomsTracked,
		MatchmakingPolls,
		MatchesFound,
		MatchRequestLatency,
		ArchivedMessages,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
