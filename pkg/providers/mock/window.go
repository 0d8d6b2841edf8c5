package mock

import (
	"sync"

	"github.com/voxkey/voxkey/pkg/adapters/window"
)

// WindowObserver reports a settable foreground title and lets tests fire
// device-change notifications by hand.
type WindowObserver struct {
	mu        sync.Mutex
	title     string
	callbacks []func(window.DeviceChange)
}

func NewWindowObserver(title string) *WindowObserver {
	return &WindowObserver{title: title}
}

func (w *WindowObserver) Name() string { return "mock_window" }

func (w *WindowObserver) ForegroundWindowTitle() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

func (w *WindowObserver) OnDeviceChange(fn func(window.DeviceChange)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, fn)
	w.mu.Unlock()
}

// SetTitle changes the reported foreground window.
func (w *WindowObserver) SetTitle(title string) {
	w.mu.Lock()
	w.title = title
	w.mu.Unlock()
}

// FireDeviceChange invokes all registered callbacks.
func (w *WindowObserver) FireDeviceChange(change window.DeviceChange) {
	w.mu.Lock()
	callbacks := append([]func(window.DeviceChange){}, w.callbacks...)
	w.mu.Unlock()
	for _, fn := range callbacks {
		fn(change)
	}
}
