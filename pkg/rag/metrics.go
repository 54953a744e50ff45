// Copyright 2026 The open-persona Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rag

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors, registered on the default registry for the
// embedding application to expose.
var (
	promSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "persona",
		Subsystem: "rag",
		Name:      "searches_total",
		Help:      "Hybrid searches executed, by persona.",
	}, []string{"persona"})

	promSearchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "persona",
		Subsystem: "rag",
		Name:      "search_duration_seconds",
		Help:      "Hybrid search latency.",
		Buckets:   prometheus.DefBuckets,
	})

	promIndexedChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "persona",
		Subsystem: "rag",
		Name:      "indexed_chunks_total",
		Help:      "Chunks indexed, by index kind.",
	}, []string{"kind"})

	promRerankFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "persona",
		Subsystem: "rag",
		Name:      "rerank_failures_total",
		Help:      "Rerank calls that fell back to fused order.",
	})
)

// SearchMetrics tracks in-process search counters alongside the
// prometheus collectors. Thread-safe.
type SearchMetrics struct {
	totalSearches  int64
	successfulHits int64
	emptyResults   int64
	rerankUsed     int64
	rerankFailed   int64

	latencySum int64 // nanoseconds
	latencyMax int64
}

// NewSearchMetrics creates a search metrics tracker.
func NewSearchMetrics() *SearchMetrics {
	return &SearchMetrics{}
}

// RecordSearch records one search operation.
func (m *SearchMetrics) RecordSearch(persona string, latency time.Duration, resultCount int) {
	latencyNs := latency.Nanoseconds()

	atomic.AddInt64(&m.totalSearches, 1)
	atomic.AddInt64(&m.latencySum, latencyNs)

	if resultCount > 0 {
		atomic.AddInt64(&m.successfulHits, 1)
	} else {
		atomic.AddInt64(&m.emptyResults, 1)
	}

	// CAS loop for atomic max
	for {
		current := atomic.LoadInt64(&m.latencyMax)
		if latencyNs <= current {
			break
		}
		if atomic.CompareAndSwapInt64(&m.latencyMax, current, latencyNs) {
			break
		}
	}

	promSearches.WithLabelValues(persona).Inc()
	promSearchLatency.Observe(latency.Seconds())
}

// RecordRerank records a rerank attempt and whether it fell back.
func (m *SearchMetrics) RecordRerank(failed bool) {
	atomic.AddInt64(&m.rerankUsed, 1)
	if failed {
		atomic.AddInt64(&m.rerankFailed, 1)
		promRerankFailures.Inc()
	}
}

// RecordIndexed records chunks written to an index.
func (m *SearchMetrics) RecordIndexed(kind IndexKind, count int) {
	promIndexedChunks.WithLabelValues(string(kind)).Add(float64(count))
}

// Snapshot returns a point-in-time copy of the counters.
func (m *SearchMetrics) Snapshot() SearchMetricsSnapshot {
	total := atomic.LoadInt64(&m.totalSearches)
	latencySum := atomic.LoadInt64(&m.latencySum)

	var avgLatency time.Duration
	if total > 0 {
		avgLatency = time.Duration(latencySum / total)
	}

	return SearchMetricsSnapshot{
		TotalSearches:  total,
		SuccessfulHits: atomic.LoadInt64(&m.successfulHits),
		EmptyResults:   atomic.LoadInt64(&m.emptyResults),
		RerankUsed:     atomic.LoadInt64(&m.rerankUsed),
		RerankFailed:   atomic.LoadInt64(&m.rerankFailed),
		AvgLatency:     avgLatency,
		MaxLatency:     time.Duration(atomic.LoadInt64(&m.latencyMax)),
	}
}

// SearchMetricsSnapshot is a point-in-time copy of search metrics.
type SearchMetricsSnapshot struct {
	TotalSearches  int64         `json:"total_searches"`
	SuccessfulHits int64         `json:"successful_hits"`
	EmptyResults   int64         `json:"empty_results"`
	RerankUsed     int64         `json:"rerank_used"`
	RerankFailed   int64         `json:"rerank_failed"`
	AvgLatency     time.Duration `json:"avg_latency_ns"`
	MaxLatency     time.Duration `json:"max_latency_ns"`
}
