package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusObserver exports session events as Prometheus metrics. Register
// it behind an AsyncObserver so scraping never touches the worker loop.
type PrometheusObserver struct {
	framesIn       prometheus.Counter
	framesDropped  prometheus.Counter
	speechSegments prometheus.Counter
	results        *prometheus.CounterVec
	outputs        *prometheus.CounterVec
	recoveries     prometheus.Counter
	audioLevel     prometheus.Gauge
	loadProgress   prometheus.Gauge
}

func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusObserver{
		framesIn: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxkey_frames_total",
			Help: "Total number of audio frames pulled from the source",
		}),
		framesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxkey_frames_dropped_total",
			Help: "Total number of frames dropped before processing",
		}),
		speechSegments: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxkey_speech_segments_total",
			Help: "Total number of detected speech segments",
		}),
		results: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voxkey_results_total",
			Help: "Total number of transcription results by kind",
		}, []string{"kind"}),
		outputs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voxkey_output_dispatch_total",
			Help: "Total number of output dispatch attempts by outcome",
		}, []string{"outcome"}),
		recoveries: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxkey_recovery_attempts_total",
			Help: "Total number of error recovery attempts",
		}),
		audioLevel: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voxkey_audio_level",
			Help: "Smoothed input level in the 0-1 range",
		}),
		loadProgress: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voxkey_model_load_progress",
			Help: "Recognizer model load progress in the 0-1 range",
		}),
	}
}

func (p *PrometheusObserver) RecordEvent(ev MetricsEvent) {
	switch ev.Name {
	case EventFrameIn:
		p.framesIn.Inc()
	case EventFrameDropped:
		p.framesDropped.Inc()
	case EventSpeechStart:
		p.speechSegments.Inc()
	case EventResultPartial:
		p.results.WithLabelValues("partial").Inc()
	case EventResultFinal:
		p.results.WithLabelValues("final").Inc()
	case EventOutputDispatch:
		outcome := ev.Tags["outcome"]
		if outcome == "" {
			outcome = "ok"
		}
		p.outputs.WithLabelValues(outcome).Inc()
	case EventOutputRetry:
		p.outputs.WithLabelValues("retry").Inc()
	case EventRecoveryAttempt:
		p.recoveries.Inc()
	case EventLevelSample:
		p.audioLevel.Set(ev.Value)
	case EventModelProgress:
		p.loadProgress.Set(ev.Value)
	}
}
