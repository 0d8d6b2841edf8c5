package level

import (
	"math"
	"testing"
	"time"
)

func constantFrame(amplitude float32, n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = amplitude
	}
	return samples
}

func TestEstimatorSilenceIsZero(t *testing.T) {
	t.Parallel()

	e := NewEstimator()
	level, peak := e.Update(make([]float32, 480))
	if level != 0 {
		t.Fatalf("level = %v, want 0 for silence", level)
	}
	if peak != 0 {
		t.Fatalf("peak = %v, want 0 for silence", peak)
	}
}

func TestEstimatorFullScaleIsOne(t *testing.T) {
	t.Parallel()

	e := NewEstimator()
	level, _ := e.Update(constantFrame(1.0, 480))
	if math.Abs(level-1.0) > 1e-9 {
		t.Fatalf("level = %v, want 1.0 for full scale", level)
	}
}

func TestEstimatorDBNormalization(t *testing.T) {
	t.Parallel()

	// amplitude 0.1 is -20dB, which normalizes to (−20+60)/60 ≈ 0.667.
	e := NewEstimator()
	level, _ := e.Update(constantFrame(0.1, 480))
	want := 40.0 / 60.0
	if math.Abs(level-want) > 1e-6 {
		t.Fatalf("level = %v, want %v", level, want)
	}
}

func TestEstimatorSmoothsOverBuffer(t *testing.T) {
	t.Parallel()

	e := NewEstimator()
	e.Update(constantFrame(1.0, 480))
	level, _ := e.Update(make([]float32, 480))

	// Buffer holds {1.0, 0.0}: mean 0.5.
	if math.Abs(level-0.5) > 1e-9 {
		t.Fatalf("level = %v, want 0.5", level)
	}
}

func TestEstimatorBufferWraps(t *testing.T) {
	t.Parallel()

	e := NewEstimator()
	for i := 0; i < 25; i++ {
		e.Update(constantFrame(1.0, 480))
	}
	// After wrapping, all slots hold 1.0.
	if got := e.Level(); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("level = %v, want 1.0 after wrap", got)
	}
}

func TestEstimatorPeakNeverBelowLevel(t *testing.T) {
	t.Parallel()

	clk := time.Unix(2000, 0)
	e := NewEstimator()
	e.SetClock(func() time.Time { return clk })

	amplitudes := []float32{0.05, 0.5, 1.0, 0.3, 0.0, 0.0, 0.8, 0.01}
	for _, a := range amplitudes {
		clk = clk.Add(50 * time.Millisecond)
		level, peak := e.Update(constantFrame(a, 480))
		if peak < level {
			t.Fatalf("peak %v fell below level %v", peak, level)
		}
	}
}

func TestEstimatorPeakHoldsThenDecays(t *testing.T) {
	t.Parallel()

	clk := time.Unix(2000, 0)
	e := NewEstimator()
	e.SetClock(func() time.Time { return clk })

	_, peak := e.Update(constantFrame(1.0, 480))
	initial := peak

	// Within the hold duration the peak must not move, even as the
	// smoothed level falls.
	clk = clk.Add(500 * time.Millisecond)
	_, peak = e.Update(make([]float32, 480))
	if peak != initial {
		t.Fatalf("peak = %v, want %v during hold window", peak, initial)
	}

	// After the hold duration elapses, the peak decays toward the level.
	clk = clk.Add(2 * time.Second)
	level, peak := e.Update(make([]float32, 480))
	if peak >= initial {
		t.Fatalf("peak = %v did not decay from %v", peak, initial)
	}
	if peak < level {
		t.Fatalf("peak %v decayed below level %v", peak, level)
	}
}

func TestEstimatorReset(t *testing.T) {
	t.Parallel()

	e := NewEstimator()
	e.Update(constantFrame(1.0, 480))
	e.Reset()

	if e.Level() != 0 {
		t.Fatalf("level = %v, want 0 after reset", e.Level())
	}
	if e.Peak() != 0 {
		t.Fatalf("peak = %v, want 0 after reset", e.Peak())
	}
}
