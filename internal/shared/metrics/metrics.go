package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	analysisStartedTotal   atomic.Uint64
	analysisCompletedTotal atomic.Uint64
	analysisPersistedTotal atomic.Uint64
	historySaveFailedTotal atomic.Uint64
	analysisCacheHitsTotal atomic.Uint64
	analysisFailedTotal    = newLabeledCounter()
	analysisDuration       = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted() {
	analysisStartedTotal.Add(1)
}

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted() {
	analysisCompletedTotal.Add(1)
}

// IncAnalysisFailed increments the failed counter for kind.
func IncAnalysisFailed(kind string) {
	analysisFailedTotal.Inc(kind)
}

// IncAnalysisPersisted increments the counter of results written to history.
func IncAnalysisPersisted() {
	analysisPersistedTotal.Add(1)
}

// IncHistorySaveFailed increments the counter of results returned without being saved.
func IncHistorySaveFailed() {
	historySaveFailedTotal.Add(1)
}

// IncCacheHit increments the result cache hit counter.
func IncCacheHit() {
	analysisCacheHitsTotal.Add(1)
}

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "analysis_started_total", "Total analyses started", analysisStartedTotal.Load())
	writeCounter(&buf, "analysis_completed_total", "Total analyses completed", analysisCompletedTotal.Load())
	writeLabeledCounter(&buf, "analysis_failed_total", "Total analyses failed by error kind", "kind", analysisFailedTotal.Snapshot())
	writeCounter(&buf, "analysis_persisted_total", "Total analyses saved to history", analysisPersistedTotal.Load())
	writeCounter(&buf, "analysis_history_save_failed_total", "Total analyses returned without a history record", historySaveFailedTotal.Load())
	writeCounter(&buf, "analysis_cache_hits_total", "Total analyses served from the result cache", analysisCacheHitsTotal.Load())
	writeHistogram(&buf, "analysis_duration_ms", "Analysis duration in milliseconds", analysisDuration.Snapshot())
	return buf.String()
}

type labeledCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{values: make(map[string]uint64)}
}

func (c *labeledCounter) Inc(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[label]++
}

func (c *labeledCounter) Snapshot() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	// Observe already counts each value in every bucket it fits, so counts are cumulative.
	for i, bound := range snap.buckets {
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), snap.counts[i])
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// SinceMillis returns the milliseconds elapsed since start.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
