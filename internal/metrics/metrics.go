// Package metrics holds the catalog's business counters. HTTP request
// metrics live with the gin middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_uploads_total",
			Help: "Upload attempts by result",
		},
		[]string{"result"},
	)

	ViewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_view_increments_total",
			Help: "Successful view increments by lookup key",
		},
		[]string{"lookup"},
	)

	ReordersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reorders_total",
			Help: "Reorder batches by result",
		},
		[]string{"result"},
	)

	StreamBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_stream_bytes_total",
			Help: "Bytes written by the streaming endpoint",
		},
	)

	StreamResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_stream_responses_total",
			Help: "Streaming responses by status code",
		},
		[]string{"status"},
	)
)
