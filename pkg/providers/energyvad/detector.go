package energyvad

import (
	"math"

	"github.com/voxkey/voxkey/pkg/adapters/vad"
	"github.com/voxkey/voxkey/pkg/frames"
)

// Thresholds index by aggressiveness 0..3: higher settings demand more
// energy before a frame counts as speech.
var thresholds = [4]float64{0.005, 0.010, 0.020, 0.040}

// Detector classifies frames by RMS energy against a threshold chosen by
// the aggressiveness setting. It is a portable stand-in for codec-level
// voice activity detection and works well for close-mic dictation.
type Detector struct {
	aggressiveness int
	threshold      float64
}

func New(aggressiveness int) *Detector {
	if aggressiveness < 0 {
		aggressiveness = 0
	}
	if aggressiveness > 3 {
		aggressiveness = 3
	}
	return &Detector{
		aggressiveness: aggressiveness,
		threshold:      thresholds[aggressiveness],
	}
}

func (d *Detector) Name() string { return "energy_vad" }

func (d *Detector) Aggressiveness() int { return d.aggressiveness }

func (d *Detector) IsSpeech(frame *frames.AudioFrame) bool {
	if frame == nil || frame.Len() == 0 {
		return false
	}
	samples := frame.RawSamples()
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	return rms >= d.threshold
}

var _ vad.Detector = (*Detector)(nil)
