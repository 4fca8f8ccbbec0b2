package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	submitStartedTotal   atomic.Uint64
	submitCompletedTotal atomic.Uint64
	submitFailedTotal    atomic.Uint64

	failuresMu     sync.Mutex
	failuresByKind = map[string]uint64{}

	submitDuration = newHistogram([]float64{500, 1000, 2500, 5000, 10000, 20000, 30000, 60000, 120000})
)

// IncSubmitStarted increments the started counter.
func IncSubmitStarted() {
	submitStartedTotal.Add(1)
}

// IncSubmitCompleted increments the completed counter.
func IncSubmitCompleted() {
	submitCompletedTotal.Add(1)
}

// IncSubmitFailed increments the failed counter for the given error kind.
func IncSubmitFailed(kind string) {
	submitFailedTotal.Add(1)
	failuresMu.Lock()
	failuresByKind[kind]++
	failuresMu.Unlock()
}

// ObserveSubmitDurationMs records a completion round trip in milliseconds.
func ObserveSubmitDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	submitDuration.Observe(value)
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
	writeCounter(&buf, "submit_started_total", "Total submits started", submitStartedTotal.Load())
	writeCounter(&buf, "submit_completed_total", "Total submits answered", submitCompletedTotal.Load())
	writeCounter(&buf, "submit_failed_total", "Total submits failed", submitFailedTotal.Load())
	writeKindCounter(&buf, "submit_failures_by_kind_total", "Failed submits by error kind")
	writeHistogram(&buf, "submit_duration_ms", "Completion round trip in milliseconds", submitDuration.Snapshot())
	return buf.String()
}

func writeKindCounter(buf *bytes.Buffer, name, help string) {
	failuresMu.Lock()
	kinds := make([]string, 0, len(failuresByKind))
	for k := range failuresByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	for _, k := range kinds {
		fmt.Fprintf(buf, "%s{kind=%q} %d\n", name, k, failuresByKind[k])
	}
	failuresMu.Unlock()
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
			break
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

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
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
