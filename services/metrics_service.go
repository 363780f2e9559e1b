package services

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"path"},
	)

	requestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "HTTP requests answered with status >= 400",
		},
		[]string{"path"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	processStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frp_process_starts_total",
			Help: "frpc spawn attempts by result",
		},
		[]string{"result"},
	)

	processExits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "frp_process_exits_total",
			Help: "frpc processes that exited on their own",
		},
	)

	runningProcesses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "frp_running_processes",
			Help: "frpc processes currently held by the registry",
		},
	)

	// prometheus不方便回读计数，健康检查使用本地计数器
	totalRequests atomic.Int64
	totalErrors   atomic.Int64
)

func init() {
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(requestErrors)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(processStarts)
	prometheus.MustRegister(processExits)
	prometheus.MustRegister(runningProcesses)
}

func IncrementRequestCount(path string) {
	requestCount.WithLabelValues(path).Inc()
	totalRequests.Add(1)
}

func IncrementErrorCount(path string) {
	requestErrors.WithLabelValues(path).Inc()
	totalErrors.Add(1)
}

func RecordRequestDuration(path string, seconds float64) {
	requestDuration.WithLabelValues(path).Observe(seconds)
}

func GetTotalRequestCount() int64 {
	return totalRequests.Load()
}

func GetTotalErrorCount() int64 {
	return totalErrors.Load()
}

func recordStart(ok bool) {
	if ok {
		processStarts.WithLabelValues("success").Inc()
	} else {
		processStarts.WithLabelValues("failure").Inc()
	}
}
