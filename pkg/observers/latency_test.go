package observers

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/voxkey/voxkey/pkg/metrics"
)

func TestLatencyObserverLogsPerUtterance(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	o := NewLatencyObserver(slog.New(slog.NewTextHandler(&buf, nil)))

	base := time.Now()
	tags := map[string]string{"session_id": "s-1"}
	o.RecordEvent(metrics.MetricsEvent{Name: metrics.EventSpeechStart, Time: base, Tags: tags})
	o.RecordEvent(metrics.MetricsEvent{Name: metrics.EventResultPartial, Time: base.Add(80 * time.Millisecond), Tags: tags})
	o.RecordEvent(metrics.MetricsEvent{Name: metrics.EventResultFinal, Time: base.Add(200 * time.Millisecond), Tags: tags})

	out := buf.String()
	if !strings.Contains(out, "utterance_latency") {
		t.Fatalf("no latency line: %q", out)
	}
	if !strings.Contains(out, "to_final_ms=200") || !strings.Contains(out, "to_first_result_ms=80") {
		t.Fatalf("latency values missing: %q", out)
	}
}

func TestLatencyObserverIgnoresUntaggedEvents(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	o := NewLatencyObserver(slog.New(slog.NewTextHandler(&buf, nil)))
	o.RecordEvent(metrics.MetricsEvent{Name: metrics.EventResultFinal, Time: time.Now()})
	if buf.Len() != 0 {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestMultiObserverFansOut(t *testing.T) {
	t.Parallel()

	a := metrics.NewMemoryObserver()
	b := metrics.NewMemoryObserver()
	m := NewMultiObserver(a, nil, b)
	m.RecordEvent(metrics.MetricsEvent{Name: metrics.EventFrameIn})
	if a.Count() != 1 || b.Count() != 1 {
		t.Fatalf("counts = %d, %d", a.Count(), b.Count())
	}
}
