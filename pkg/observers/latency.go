package observers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/voxkey/voxkey/pkg/metrics"
)

// LatencyObserver measures frame-to-final latency per utterance: the time
// between the first frame of a speech segment and the final result that
// segment produced.
type LatencyObserver struct {
	mu     sync.Mutex
	traces map[string]*trace
	log    *slog.Logger
}

type trace struct {
	speechStart time.Time
	firstResult time.Time
}

func NewLatencyObserver(log *slog.Logger) *LatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LatencyObserver{
		traces: make(map[string]*trace),
		log:    log,
	}
}

func (o *LatencyObserver) RecordEvent(ev metrics.MetricsEvent) {
	sessionID := ""
	if ev.Tags != nil {
		sessionID = ev.Tags["session_id"]
	}
	if sessionID == "" {
		return
	}
	o.mu.Lock()
	t := o.traces[sessionID]
	if t == nil {
		t = &trace{}
		o.traces[sessionID] = t
	}
	switch ev.Name {
	case metrics.EventSpeechStart:
		t.speechStart = ev.Time
		t.firstResult = time.Time{}
	case metrics.EventResultPartial:
		if t.firstResult.IsZero() {
			t.firstResult = ev.Time
		}
	case metrics.EventResultFinal:
		if t.firstResult.IsZero() {
			t.firstResult = ev.Time
		}
		o.logLatencyLocked(sessionID, t, ev.Time)
		delete(o.traces, sessionID)
	}
	o.mu.Unlock()
}

func (o *LatencyObserver) logLatencyLocked(sessionID string, t *trace, final time.Time) {
	if t.speechStart.IsZero() {
		return
	}
	attrs := []any{
		"session_id", sessionID,
		"to_final_ms", final.Sub(t.speechStart).Milliseconds(),
	}
	if !t.firstResult.IsZero() {
		attrs = append(attrs, "to_first_result_ms", t.firstResult.Sub(t.speechStart).Milliseconds())
	}
	o.log.Info("utterance_latency", attrs...)
}
