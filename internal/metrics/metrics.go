package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks request latency by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "path", "status"},
	)

	// BidsTotal counts bid requests by result kind.
	BidsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_bids_total",
			Help: "Bid placements by result",
		},
		[]string{"result"},
	)

	// BidAttempts records how many CAS attempts a placement needed.
	BidAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auction_bid_cas_attempts",
			Help:    "Compare-and-set attempts per bid placement",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		},
	)

	// BidConflicts counts lost compare-and-set races.
	BidConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_bid_cas_conflicts_total",
			Help: "Highest-bid swaps that lost to a concurrent bid",
		},
	)

	// NegotiationOutcomes counts terminal negotiation transitions.
	NegotiationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_negotiation_outcomes_total",
			Help: "Seller decisions and counter-offer responses by outcome",
		},
		[]string{"outcome"},
	)

	// RoomSubscribers tracks websocket subscribers across rooms.
	RoomSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "auction_room_subscribers",
			Help: "Current websocket subscribers across all auction rooms",
		},
	)

	// RoomEvents counts frames fanned out to rooms.
	RoomEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_room_events_total",
			Help: "Room frames by event and delivery result",
		},
		[]string{"event", "result"},
	)

	// WsMessages counts client frames by event and result kind.
	WsMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_ws_messages_total",
			Help: "Websocket client messages by event and result",
		},
		[]string{"event", "result"},
	)

	// NotificationsDropped counts side-channel failures that were swallowed.
	NotificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_notifications_dropped_total",
			Help: "Notifications that could not be recorded",
		},
		[]string{"type"},
	)
)

// PrometheusMiddleware records request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()

		HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
		).Observe(duration)
	}
}
