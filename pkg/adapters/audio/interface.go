package audio

import (
	"time"

	"github.com/voxkey/voxkey/pkg/frames"
)

// Source defines the contract for any capture-device implementation.
type Source interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Start opens the capture stream. It returns false when the device
	// could not be opened; LastError holds the reason.
	Start() bool
	// Stop closes the capture stream. Safe to call when not started.
	Stop()
	// IsActive reports whether the stream is currently delivering frames.
	IsActive() bool
	// NextChunk blocks up to timeout for the next audio frame. It returns
	// nil when no frame arrived within the timeout.
	NextChunk(timeout time.Duration) *frames.AudioFrame
	// LastError returns the most recent device error message, empty when
	// none occurred.
	LastError() string
}

// Device describes one capture device as reported by enumeration.
type Device struct {
	ID                   int
	RawName              string
	Label                string
	IsDefault            bool
	SupportedSampleRates []int
}

// Enumerator lists capture devices and checks rate compatibility. This is
// a management surface, separate from the streaming Source contract.
type Enumerator interface {
	Devices() ([]Device, error)
	IsCompatible(deviceID, sampleRate int) bool
}

// Config contains vendor-agnostic capture configuration.
type Config struct {
	DeviceID        int
	SampleRate      int
	FramesPerBuffer int
}
