package operations

import (
	"log/slog"
)

// ProgressSink receives percentage-complete and free-text status keyed
// by run identifier. Sinks are fire-and-forget: their failures never
// block or fail core logic.
type ProgressSink interface {
	Publish(runID string, percent float64, status string)
}

// SlogSink reports progress through structured logging.
type SlogSink struct {
	Logger *slog.Logger
}

// Publish implements ProgressSink.
func (s SlogSink) Publish(runID string, percent float64, status string) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("run progress",
		slog.String("run_id", runID),
		slog.Float64("percent", percent),
		slog.String("status", status))
}

// MultiSink fans progress out to several sinks.
type MultiSink []ProgressSink

// Publish implements ProgressSink.
func (m MultiSink) Publish(runID string, percent float64, status string) {
	for _, sink := range m {
		sink.Publish(runID, percent, status)
	}
}

// NopSink discards progress updates.
type NopSink struct{}

// Publish implements ProgressSink.
func (NopSink) Publish(string, float64, string) {}
