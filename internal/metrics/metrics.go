// Package metrics declares the Prometheus collectors of the blog.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PostsCreated counts successfully persisted posts.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blog_posts_created_total",
		Help: "Total number of posts created",
	})

	// PostCreateFailures counts submissions that failed after validation.
	PostCreateFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blog_post_create_failures_total",
		Help: "Total number of post submissions that failed to persist",
	})

	// LogSinkFailures counts remote log writes that were dropped, by step.
	LogSinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_log_sink_failures_total",
		Help: "Total number of remote log writes that failed",
	}, []string{"step"})

	// HTTPRequests counts handled requests by route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPLatency records request latency by route.
	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blog_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)
