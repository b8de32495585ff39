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
	runsStartedTotal   atomic.Uint64
	runsCompletedTotal atomic.Uint64
	runsFailedTotal    atomic.Uint64
	runsCanceledTotal  atomic.Uint64

	inferenceCallsTotal  atomic.Uint64
	placeholderAnswers   atomic.Uint64
	transcriptionPolls   atomic.Uint64
	normalizedUploads    atomic.Uint64
	stagedDeleteFailures atomic.Uint64

	jobsReceived             atomic.Uint64
	jobsCompleted            atomic.Uint64
	jobsFailed               atomic.Uint64
	jobsDeletedUnrecoverable atomic.Uint64

	stageFailuresMu sync.Mutex
	stageFailures   = map[string]uint64{}

	runDuration  = newHistogram([]float64{1000, 5000, 15000, 30000, 60000, 120000, 300000, 600000, 1800000})
	httpDuration = newHistogram([]float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000})
)

// IncRunStarted increments the started counter.
func IncRunStarted() { runsStartedTotal.Add(1) }

// IncRunCompleted increments the completed counter.
func IncRunCompleted() { runsCompletedTotal.Add(1) }

// IncRunFailed records a failed run and the error kind that ended it.
func IncRunFailed(kind string) {
	runsFailedTotal.Add(1)
	if kind == "" {
		kind = "unknown"
	}
	stageFailuresMu.Lock()
	stageFailures[kind]++
	stageFailuresMu.Unlock()
}

// IncRunCanceled increments the canceled counter.
func IncRunCanceled() { runsCanceledTotal.Add(1) }

// IncInferenceCall counts one request to the inference endpoint.
func IncInferenceCall() { inferenceCallsTotal.Add(1) }

// IncPlaceholderAnswer counts a question answered with the error placeholder.
func IncPlaceholderAnswer() { placeholderAnswers.Add(1) }

// IncTranscriptionPoll counts one transcription status poll.
func IncTranscriptionPoll() { transcriptionPolls.Add(1) }

// IncNormalizedUpload counts audio that went through normalization.
func IncNormalizedUpload() { normalizedUploads.Add(1) }

// IncStagedDeleteFailure counts cleanup deletes that failed.
func IncStagedDeleteFailure() { stagedDeleteFailures.Add(1) }

// IncJobsReceived counts queue messages picked up by the worker.
func IncJobsReceived() { jobsReceived.Add(1) }

// IncJobsCompleted counts queue messages processed and deleted.
func IncJobsCompleted() { jobsCompleted.Add(1) }

// IncJobsFailed counts queue messages left for redelivery.
func IncJobsFailed() { jobsFailed.Add(1) }

// IncJobsDeletedUnrecoverable counts malformed messages dropped from the queue.
func IncJobsDeletedUnrecoverable() { jobsDeletedUnrecoverable.Add(1) }

// ObserveRunDurationMs records a pipeline run duration in milliseconds.
func ObserveRunDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	runDuration.Observe(value)
}

// ObserveHTTPDurationMs records a request latency in milliseconds.
func ObserveHTTPDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	httpDuration.Observe(value)
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
	writeCounter(&buf, "runs_started_total", "Pipeline runs started", runsStartedTotal.Load())
	writeCounter(&buf, "runs_completed_total", "Pipeline runs that reached done", runsCompletedTotal.Load())
	writeCounter(&buf, "runs_failed_total", "Pipeline runs that failed", runsFailedTotal.Load())
	writeCounter(&buf, "runs_canceled_total", "Pipeline runs canceled by the caller", runsCanceledTotal.Load())
	writeLabeledCounter(&buf, "run_failures_total", "Failed runs by error kind", "kind", snapshotFailures())
	writeCounter(&buf, "inference_calls_total", "Inference requests issued", inferenceCallsTotal.Load())
	writeCounter(&buf, "placeholder_answers_total", "Questions answered with the error placeholder", placeholderAnswers.Load())
	writeCounter(&buf, "transcription_polls_total", "Transcription status polls", transcriptionPolls.Load())
	writeCounter(&buf, "normalized_uploads_total", "Audio files normalized before transcription", normalizedUploads.Load())
	writeCounter(&buf, "staged_delete_failures_total", "Failed deletes of staged uploads", stagedDeleteFailures.Load())
	writeCounter(&buf, "worker_jobs_received_total", "Queue messages received by the worker", jobsReceived.Load())
	writeCounter(&buf, "worker_jobs_completed_total", "Queue messages processed successfully", jobsCompleted.Load())
	writeCounter(&buf, "worker_jobs_failed_total", "Queue messages that failed processing", jobsFailed.Load())
	writeCounter(&buf, "worker_jobs_deleted_unrecoverable_total", "Malformed queue messages deleted", jobsDeletedUnrecoverable.Load())
	writeHistogram(&buf, "run_duration_ms", "Pipeline run duration in milliseconds", runDuration.Snapshot())
	writeHistogram(&buf, "http_request_duration_ms", "HTTP request latency in milliseconds", httpDuration.Snapshot())
	return buf.String()
}

func snapshotFailures() map[string]uint64 {
	stageFailuresMu.Lock()
	defer stageFailuresMu.Unlock()
	out := make(map[string]uint64, len(stageFailures))
	for k, v := range stageFailures {
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

// SinceMillis returns the elapsed time since start in milliseconds.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
