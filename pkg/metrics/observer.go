package metrics

import "time"

type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

// Event names recorded by the session loop.
const (
	EventFrameIn         = "frame_in"
	EventFrameDropped    = "frame_dropped"
	EventSpeechStart     = "speech_start"
	EventSpeechEnd       = "speech_end"
	EventResultPartial   = "result_partial"
	EventResultFinal     = "result_final"
	EventOutputDispatch  = "output_dispatch"
	EventOutputRetry     = "output_retry"
	EventRecoveryAttempt = "recovery_attempt"
	EventLevelSample     = "level_sample"
	EventModelProgress   = "model_progress"
)

type Observer interface {
	RecordEvent(ev MetricsEvent)
}

type Flusher interface {
	Flush() error
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}
