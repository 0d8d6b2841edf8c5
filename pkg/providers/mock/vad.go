package mock

import (
	"sync"

	"github.com/voxkey/voxkey/pkg/frames"
)

// Detector is a scripted voice-activity detector. Decisions are consumed
// in order; past the end it reports silence.
type Detector struct {
	mu        sync.Mutex
	decisions []bool
	next      int
	level     int
}

func NewDetector(decisions []bool, aggressiveness int) *Detector {
	return &Detector{decisions: decisions, level: aggressiveness}
}

func (d *Detector) Name() string { return "mock_vad" }

func (d *Detector) IsSpeech(_ *frames.AudioFrame) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.next >= len(d.decisions) {
		return false
	}
	v := d.decisions[d.next]
	d.next++
	return v
}

func (d *Detector) Aggressiveness() int { return d.level }
