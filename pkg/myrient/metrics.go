// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package myrient

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "myrientdl",
		Name:      "http_requests_total",
		Help:      "HTTP download attempts issued by the downloader, by outcome.",
	}, []string{"status"})

	metBytesDownloaded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "myrientdl",
		Name:      "bytes_downloaded_total",
		Help:      "Total bytes written to disk across all downloads.",
	})

	metDownloadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "myrientdl",
		Name:      "download_duration_seconds",
		Help:      "Wall-clock duration of completed file downloads.",
		Buckets:   prometheus.DefBuckets,
	})

	metRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "myrientdl",
		Name:      "download_retries_total",
		Help:      "Total retry attempts across all downloads.",
	})

	metInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "myrientdl",
		Name:      "downloads_inflight",
		Help:      "Number of downloads currently in progress.",
	})

	metFilesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "myrientdl",
		Name:      "files_processed_total",
		Help:      "Files that finished downloading, by result.",
	}, []string{"result"})

	metOnce sync.Once
)

// InitMetrics registers the package's Prometheus collectors. Safe to
// call more than once; NewDownloader also calls it.
func InitMetrics() {
	initMetrics()
}

func initMetrics() {
	metOnce.Do(func() {
		prometheus.MustRegister(
			metRequests,
			metBytesDownloaded,
			metDownloadDuration,
			metRetries,
			metInflight,
			metFilesProcessed,
		)
	})
}

// serveMetrics starts an HTTP server exposing Prometheus metrics at
// /metrics on addr. It blocks until the server stops or errors.
func serveMetrics(addr string) error {
	initMetrics()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
