// Package metrics provides Prometheus metrics for frame capture and encoder exports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "karaexport"

var (
	captureRenderSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "render_seconds",
		Help:      "Time spent rendering and converting a single frame",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	captureFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "frames_total",
		Help:      "Frames processed by the capture engine, by result",
	}, []string{"result"})

	exportsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "active",
		Help:      "Number of encoder processes currently running",
	})

	exportFramesWritten = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "frames_written",
		Help:      "Frames written to the encoder input",
	}, []string{"export_id"})

	exportBytesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "bytes_written_total",
		Help:      "Raw frame bytes flushed to the encoder input",
	}, []string{"export_id"})

	encoderFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "encoder",
		Name:      "fps",
		Help:      "Current encoder FPS",
	}, []string{"export_id"})

	encoderSpeed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "encoder",
		Name:      "processing_speed",
		Help:      "Encoder processing speed multiplier",
	}, []string{"export_id"})

	encoderDroppedFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "encoder",
		Name:      "dropped_frames_total",
		Help:      "Frames dropped by the encoder",
	}, []string{"export_id"})

	encoderDuplicateFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "encoder",
		Name:      "duplicate_frames_total",
		Help:      "Frames duplicated by the encoder",
	}, []string{"export_id"})

	exportFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "failures_total",
		Help:      "Failed exports by error category",
	}, []string{"category"})
)

// ObserveRender records a successful frame render.
func ObserveRender(d time.Duration) {
	captureRenderSeconds.Observe(d.Seconds())
	captureFrames.WithLabelValues("captured").Inc()
}

// IncDroppedFrame records a frame the capture engine failed to produce.
func IncDroppedFrame() {
	captureFrames.WithLabelValues("dropped").Inc()
}

// ExportStarted marks an encoder process as running.
func ExportStarted(exportID string) {
	exportsActive.Inc()
	exportFramesWritten.WithLabelValues(exportID).Set(0)
}

// ExportFinished marks an encoder process as stopped and removes its per-export series.
func ExportFinished(exportID string) {
	exportsActive.Dec()
	DeleteExportMetrics(exportID)
}

// SetFramesWritten sets the number of frames handed to the encoder.
func SetFramesWritten(exportID string, n uint64) {
	exportFramesWritten.WithLabelValues(exportID).Set(float64(n))
}

// AddBytesWritten adds flushed bytes for an export.
func AddBytesWritten(exportID string, n int) {
	exportBytesWritten.WithLabelValues(exportID).Add(float64(n))
}

// SetEncoderProgress publishes the latest encoder progress values.
func SetEncoderProgress(exportID string, fps, speed float64, dropped, duplicated int64) {
	encoderFPS.WithLabelValues(exportID).Set(fps)
	encoderSpeed.WithLabelValues(exportID).Set(speed)
	encoderDroppedFrames.WithLabelValues(exportID).Set(float64(dropped))
	encoderDuplicateFrames.WithLabelValues(exportID).Set(float64(duplicated))
}

// IncFailure counts a failed export.
func IncFailure(category string) {
	exportFailures.WithLabelValues(category).Inc()
}

// DeleteExportMetrics removes all per-export series.
func DeleteExportMetrics(exportID string) {
	exportFramesWritten.DeleteLabelValues(exportID)
	exportBytesWritten.DeleteLabelValues(exportID)
	encoderFPS.DeleteLabelValues(exportID)
	encoderSpeed.DeleteLabelValues(exportID)
	encoderDroppedFrames.DeleteLabelValues(exportID)
	encoderDuplicateFrames.DeleteLabelValues(exportID)
}

// HTTPHandler returns the Prometheus metrics HTTP handler.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}
