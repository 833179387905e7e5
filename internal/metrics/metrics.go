package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "resalehub"

var (
	HTTPRequestsHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time taken to serve HTTP requests",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"route", "method", "status"},
	)

	ProviderRequestsHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_requests",
			Help:      "Time taken by calls to external providers",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30, 60},
		},
		[]string{"provider", "method", "error"},
	)

	BackgroundImagesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bgremoval",
			Name:      "images_total",
			Help:      "Images handled by the background-removal relay by outcome",
		},
		[]string{"outcome"},
	)

	KeyRemainingGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bgremoval",
			Name:      "key_remaining",
			Help:      "Images left this month on each background-removal key",
		}, []string{"key"},
	)

	JobsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Background jobs processed by type and result",
		},
		[]string{"type", "result"},
	)
)

func CollectHTTPRequest(route, method string, status int, start time.Time) {
	HTTPRequestsHistogram.
		WithLabelValues(route, method, strconv.Itoa(status)).
		Observe(time.Since(start).Seconds())
}

func CollectProviderRequest(provider, method string, err error, start time.Time) {
	ProviderRequestsHistogram.
		WithLabelValues(provider, method, errLabelValue(err)).
		Observe(time.Since(start).Seconds())
}

func CollectBackgroundImage(outcome string) {
	BackgroundImagesCounter.WithLabelValues(outcome).Inc()
}

func CollectKeyRemaining(key string, remaining int) {
	KeyRemainingGauge.WithLabelValues(key).Set(float64(remaining))
}

func CollectJob(jobType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	JobsCounter.WithLabelValues(jobType, result).Inc()
}

func errLabelValue(err error) string {
	if err != nil {
		return "true"
	}
	return "false"
}
