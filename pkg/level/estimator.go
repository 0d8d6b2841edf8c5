package level

import (
	"math"
	"time"
)

const (
	bufferSize = 10

	// Normalization window: -60dB maps to 0.0, full scale (0dB) to 1.0.
	silenceFloorDB = -60.0

	DefaultPeakHold  = time.Second
	DefaultDecayRate = 0.001 // level units per millisecond
)

// Estimator smooths raw audio samples into a stable loudness value in [0,1]
// with a peak-hold overlay for telemetry display.
//
// An Estimator has exactly one writer/reader pair (the monitoring path) and
// is not safe for concurrent use.
type Estimator struct {
	buffer   [bufferSize]float64
	writeIdx int
	filled   int

	peak       float64
	peakAt     time.Time
	peakHold   time.Duration
	decayRate  float64

	now func() time.Time
}

func NewEstimator() *Estimator {
	return &Estimator{
		peakHold:  DefaultPeakHold,
		decayRate: DefaultDecayRate,
		now:       time.Now,
	}
}

// Update folds one frame of samples into the estimator and returns the
// current smoothed level and held peak, both in [0,1].
func (e *Estimator) Update(samples []float32) (level, peak float64) {
	raw := normalize(rms(samples))

	e.buffer[e.writeIdx] = raw
	e.writeIdx = (e.writeIdx + 1) % bufferSize
	if e.filled < bufferSize {
		e.filled++
	}

	var sum float64
	for i := 0; i < e.filled; i++ {
		sum += e.buffer[i]
	}
	level = sum / float64(e.filled)

	nowT := e.now()
	if level > e.peak {
		e.peak = level
		e.peakAt = nowT
	} else if held := nowT.Sub(e.peakAt); held > e.peakHold {
		decayed := e.peak - e.decayRate*float64(held-e.peakHold)/float64(time.Millisecond)
		if decayed < level {
			decayed = level
		}
		e.peak = decayed
		e.peakAt = nowT.Add(-e.peakHold)
	}
	return level, e.peak
}

// Level returns the current smoothed level without folding in new samples.
func (e *Estimator) Level() float64 {
	if e.filled == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < e.filled; i++ {
		sum += e.buffer[i]
	}
	return sum / float64(e.filled)
}

// Peak returns the currently held peak value.
func (e *Estimator) Peak() float64 { return e.peak }

// Reset clears the buffer and the held peak, for session restarts.
func (e *Estimator) Reset() {
	e.buffer = [bufferSize]float64{}
	e.writeIdx = 0
	e.filled = 0
	e.peak = 0
	e.peakAt = time.Time{}
}

// SetClock overrides the wall clock, for tests.
func (e *Estimator) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func normalize(r float64) float64 {
	if r <= 0 {
		return 0
	}
	db := 20 * math.Log10(r)
	v := (db - silenceFloorDB) / -silenceFloorDB
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
