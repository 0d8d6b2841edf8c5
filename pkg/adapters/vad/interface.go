package vad

import (
	"github.com/voxkey/voxkey/pkg/frames"
)

// Detector defines the contract for any voice-activity-detector
// implementation.
type Detector interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// IsSpeech classifies one frame.
	IsSpeech(frame *frames.AudioFrame) bool
	// Aggressiveness returns the configured filtering level.
	Aggressiveness() int
}
