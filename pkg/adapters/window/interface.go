package window

// DeviceChange describes an audio-device topology change reported by the
// operating system.
type DeviceChange struct {
	DeviceID int
	Reason   string
}

// Observer defines the contract for desktop-environment observation.
type Observer interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// ForegroundWindowTitle returns the title of the currently focused
	// window, empty when unknown.
	ForegroundWindowTitle() string
	// OnDeviceChange registers a callback invoked asynchronously when the
	// audio-device topology changes.
	OnDeviceChange(fn func(DeviceChange))
}
