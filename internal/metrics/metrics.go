package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pesttracker_api_requests_total",
			Help: "Total number of API requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pesttracker_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Domain metrics
	CropsRegistered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pesttracker_crops_registered_total",
			Help: "Total number of crops registered",
		},
	)

	PestsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pesttracker_pests_recorded_total",
			Help: "Total number of pest entries created",
		},
	)

	ReportsFiled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pesttracker_reports_filed_total",
			Help: "Total number of pest reports filed by farmers",
		},
	)

	ReportsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pesttracker_reports_completed_total",
			Help: "Total number of reports completed by agents, by outcome",
		},
		[]string{"success"},
	)

	NotificationsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pesttracker_notifications_sent_total",
			Help: "Total number of websocket notifications delivered",
		},
	)

	WebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pesttracker_websocket_clients",
			Help: "Number of connected websocket clients",
		},
	)
)

func init() {
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(CropsRegistered)
	prometheus.MustRegister(PestsRecorded)
	prometheus.MustRegister(ReportsFiled)
	prometheus.MustRegister(ReportsCompleted)
	prometheus.MustRegister(NotificationsSent)
	prometheus.MustRegister(WebSocketClients)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
