package segment

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSegmenter(timeout time.Duration) (*Segmenter, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	seg := New(timeout)
	seg.SetClock(clk.now)
	return seg, clk
}

type captureListener struct {
	events []StateChange
}

func (c *captureListener) OnStateChange(e StateChange) {
	c.events = append(c.events, e)
}

func TestSegmenterSpeechStartsImmediately(t *testing.T) {
	t.Parallel()

	seg, _ := newTestSegmenter(300 * time.Millisecond)

	if got := seg.Observe(true, 30*time.Millisecond); got != StateSpeaking {
		t.Fatalf("state = %v, want SPEAKING", got)
	}
	if !seg.Active() {
		t.Fatal("segmenter should be active while speaking")
	}
}

func TestSegmenterStaysIdleOnSilence(t *testing.T) {
	t.Parallel()

	seg, clk := newTestSegmenter(300 * time.Millisecond)

	for i := 0; i < 50; i++ {
		clk.advance(30 * time.Millisecond)
		if got := seg.Observe(false, 30*time.Millisecond); got != StateIdle {
			t.Fatalf("frame %d: state = %v, want IDLE", i, got)
		}
	}
	if seg.Active() {
		t.Fatal("segmenter should not be active without speech")
	}
}

func TestSegmenterHangoverBridgesMicroSilence(t *testing.T) {
	t.Parallel()

	seg, clk := newTestSegmenter(300 * time.Millisecond)

	seg.Observe(true, 30*time.Millisecond)

	// Micro-silence shorter than the hangover timeout must keep the
	// segment open.
	for i := 0; i < 5; i++ {
		clk.advance(30 * time.Millisecond)
		if got := seg.Observe(false, 30*time.Millisecond); got != StateHangover {
			t.Fatalf("frame %d: state = %v, want HANGOVER", i, got)
		}
	}
	if !seg.Active() {
		t.Fatal("segmenter must stay active through micro-silence")
	}

	// Speech resumes, budget refills.
	clk.advance(30 * time.Millisecond)
	if got := seg.Observe(true, 30*time.Millisecond); got != StateSpeaking {
		t.Fatalf("state = %v, want SPEAKING after resume", got)
	}
}

func TestSegmenterEndsAfterSustainedSilence(t *testing.T) {
	t.Parallel()

	seg, clk := newTestSegmenter(300 * time.Millisecond)

	seg.Observe(true, 30*time.Millisecond)

	var last State
	for i := 0; i < 20; i++ {
		clk.advance(30 * time.Millisecond)
		last = seg.Observe(false, 30*time.Millisecond)
		if last == StateIdle {
			break
		}
	}
	if last != StateIdle {
		t.Fatalf("state = %v, want IDLE after sustained silence", last)
	}
}

func TestSegmenterRequiresBothTimersToExpire(t *testing.T) {
	t.Parallel()

	seg, clk := newTestSegmenter(300 * time.Millisecond)

	seg.Observe(true, 30*time.Millisecond)

	// Frame budget drains fully, but the wall clock has barely moved:
	// delivery was bursty. The segment must stay open.
	for i := 0; i < 15; i++ {
		clk.advance(1 * time.Millisecond)
		if got := seg.Observe(false, 30*time.Millisecond); got != StateHangover {
			t.Fatalf("frame %d: state = %v, want HANGOVER while wall clock lags", i, got)
		}
	}

	// Conversely, lots of wall time but tiny accounted frame durations:
	// still open until the budget also drains.
	seg.Observe(true, 30*time.Millisecond)
	clk.advance(time.Second)
	if got := seg.Observe(false, 1*time.Millisecond); got != StateHangover {
		t.Fatalf("state = %v, want HANGOVER while budget remains", got)
	}
}

func TestSegmenterReset(t *testing.T) {
	t.Parallel()

	seg, _ := newTestSegmenter(300 * time.Millisecond)

	seg.Observe(true, 30*time.Millisecond)
	seg.Reset()

	if seg.State() != StateIdle {
		t.Fatalf("state = %v, want IDLE after reset", seg.State())
	}
	if seg.Active() {
		t.Fatal("segmenter should not be active after reset")
	}
}

func TestSegmenterEmitsStateChanges(t *testing.T) {
	t.Parallel()

	seg, clk := newTestSegmenter(60 * time.Millisecond)
	cap := &captureListener{}
	seg.AddListener(cap)

	seg.Observe(true, 30*time.Millisecond)
	clk.advance(100 * time.Millisecond)
	seg.Observe(false, 30*time.Millisecond)
	clk.advance(100 * time.Millisecond)
	seg.Observe(false, 40*time.Millisecond)

	want := []struct{ from, to State }{
		{StateIdle, StateSpeaking},
		{StateSpeaking, StateHangover},
		{StateHangover, StateIdle},
	}
	if len(cap.events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(cap.events), len(want), cap.events)
	}
	for i, w := range want {
		if cap.events[i].FromState != w.from || cap.events[i].ToState != w.to {
			t.Fatalf("event %d = %v->%v, want %v->%v",
				i, cap.events[i].FromState, cap.events[i].ToState, w.from, w.to)
		}
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	cases := map[State]string{
		StateIdle:     "IDLE",
		StateSpeaking: "SPEAKING",
		StateHangover: "HANGOVER",
		State(99):     "UNKNOWN",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
