package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreErrors tracks Redis operation errors
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postfeed_store_errors_total",
			Help: "Total number of store operation errors",
		},
		[]string{"operation"}, // "publish", "feed", "last_run", "clear"
	)

	// FeedBytes tracks the size of the last published feed
	FeedBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "postfeed_store_feed_bytes",
			Help: "Size in bytes of the last published feed",
		},
	)
)
