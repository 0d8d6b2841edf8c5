package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/voxkey/voxkey/pkg/adapters/recognizer"
	"github.com/voxkey/voxkey/pkg/metrics"
	"github.com/voxkey/voxkey/pkg/recovery"
)

const (
	defaultMonitorInterval = 200 * time.Millisecond
	progressStep           = 0.05
)

// LoadMonitor polls the recognizer's asynchronous model-load progress and
// forwards coarse-grained notifications: progress on steps of at least 5%,
// then completion or failure. It runs independently of the session loop
// and tears itself down once loading finishes.
type LoadMonitor struct {
	rec      recognizer.Recognizer
	notifier *Notifier
	recovery *recovery.Manager
	obs      metrics.Observer
	logger   *slog.Logger
	interval time.Duration
}

func NewLoadMonitor(rec recognizer.Recognizer, notifier *Notifier, rm *recovery.Manager, obs metrics.Observer, logger *slog.Logger, interval time.Duration) *LoadMonitor {
	if interval <= 0 {
		interval = defaultMonitorInterval
	}
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LoadMonitor{
		rec:      rec,
		notifier: notifier,
		recovery: rm,
		obs:      obs,
		logger:   logger.With("component", "load_monitor"),
		interval: interval,
	}
}

// Run blocks until loading completes, fails, or ctx is cancelled.
func (m *LoadMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	lastReported := -1.0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if m.rec.IsModelLoaded() {
			m.notifier.PublishEvent(Event{
				Kind:     EventModelProgress,
				Progress: 1.0,
				Message:  "MODEL_LOADED",
			})
			m.record(1.0)
			m.logger.Info("model loaded")
			return
		}

		if !m.rec.IsLoading() {
			details := m.recovery.Handle(recovery.CategoryTranscription, recovery.CodeModelLoadError,
				m.rec.LastError(), nil, nil)
			m.notifier.PublishEvent(Event{Kind: EventError, Err: &details})
			return
		}

		progress := m.rec.LoadingProgress()
		if progress-lastReported >= progressStep {
			lastReported = progress
			m.notifier.PublishEvent(Event{
				Kind:     EventModelProgress,
				Progress: progress,
				Message:  "MODEL_LOADING",
			})
			m.record(progress)
			m.logger.Debug("model loading", "progress", progress)
		}
	}
}

func (m *LoadMonitor) record(progress float64) {
	m.obs.RecordEvent(metrics.MetricsEvent{
		Name:  metrics.EventModelProgress,
		Time:  time.Now(),
		Value: progress,
	})
}
