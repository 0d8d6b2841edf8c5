package mock

import (
	"sync"
	"time"

	"github.com/voxkey/voxkey/pkg/frames"
)

// AudioConfig scripts the mock capture device.
type AudioConfig struct {
	// Frames are handed out one per NextChunk call, then nil.
	Frames []*frames.AudioFrame
	// FailStart makes Start return false with StartError.
	FailStart  bool
	StartError string
	// StopAfter deactivates the source after that many chunks, simulating
	// a device disappearing mid-session. Zero means never.
	StopAfter int
	// EOFOnDrain deactivates the source without an error once every frame
	// has been delivered, like a finite recording reaching its end.
	EOFOnDrain bool
}

// AudioSource is a scripted capture device.
type AudioSource struct {
	cfg AudioConfig

	mu      sync.Mutex
	active  bool
	next    int
	lastErr string
}

func NewAudioSource(cfg AudioConfig) *AudioSource {
	return &AudioSource{cfg: cfg}
}

func (a *AudioSource) Name() string { return "mock_audio" }

func (a *AudioSource) Start() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cfg.FailStart {
		a.lastErr = a.cfg.StartError
		if a.lastErr == "" {
			a.lastErr = "mock start failure"
		}
		return false
	}
	a.active = true
	a.next = 0
	return true
}

func (a *AudioSource) Stop() {
	a.mu.Lock()
	a.active = false
	a.mu.Unlock()
}

func (a *AudioSource) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

func (a *AudioSource) NextChunk(timeout time.Duration) *frames.AudioFrame {
	a.mu.Lock()
	if !a.active || a.next >= len(a.cfg.Frames) {
		a.mu.Unlock()
		// Behave like a blocking fetch that timed out.
		time.Sleep(timeout)
		return nil
	}
	defer a.mu.Unlock()
	f := a.cfg.Frames[a.next]
	a.next++
	if a.cfg.StopAfter > 0 && a.next >= a.cfg.StopAfter {
		a.active = false
		a.lastErr = "mock device lost"
	} else if a.cfg.EOFOnDrain && a.next >= len(a.cfg.Frames) {
		a.active = false
	}
	return f
}

func (a *AudioSource) LastError() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Delivered reports how many chunks have been handed out.
func (a *AudioSource) Delivered() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}
