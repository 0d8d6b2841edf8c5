package mock

import (
	"sync"

	"github.com/voxkey/voxkey/pkg/adapters/recognizer"
	"github.com/voxkey/voxkey/pkg/frames"
)

// RecognizerConfig scripts the mock speech-to-text engine.
type RecognizerConfig struct {
	// Results are returned one per transcribe call, then empty results.
	Results []recognizer.Result
	// Err, when set, is returned by every transcribe call.
	Err error
	// Loaded=false simulates a model still loading at Progress.
	Loaded   bool
	Loading  bool
	Progress float64
	LastErr  string
}

// Recognizer is a scripted speech-to-text engine.
type Recognizer struct {
	cfg RecognizerConfig

	mu         sync.Mutex
	next       int
	resets     int
	noiseCalls int
	vadCalls   int
}

func NewRecognizer(cfg RecognizerConfig) *Recognizer {
	return &Recognizer{cfg: cfg}
}

func (r *Recognizer) Name() string { return "mock_recognizer" }

func (r *Recognizer) TranscribeWithVAD(_ *frames.AudioFrame, _ bool) (recognizer.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vadCalls++
	return r.take()
}

func (r *Recognizer) TranscribeWithNoiseFiltering(_ *frames.AudioFrame, _ bool) (recognizer.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.noiseCalls++
	return r.take()
}

func (r *Recognizer) take() (recognizer.Result, error) {
	if r.cfg.Err != nil {
		return recognizer.Result{}, r.cfg.Err
	}
	if r.next >= len(r.cfg.Results) {
		return recognizer.Result{}, nil
	}
	res := r.cfg.Results[r.next]
	r.next++
	return res, nil
}

func (r *Recognizer) Reset() {
	r.mu.Lock()
	r.resets++
	r.mu.Unlock()
}

func (r *Recognizer) IsLoading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.Loading
}

func (r *Recognizer) LoadingProgress() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.Progress
}

func (r *Recognizer) IsModelLoaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.Loaded
}

func (r *Recognizer) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.LastErr
}

// SetProgress adjusts the scripted load state, for monitor tests.
func (r *Recognizer) SetProgress(loading bool, progress float64, loaded bool) {
	r.mu.Lock()
	r.cfg.Loading = loading
	r.cfg.Progress = progress
	r.cfg.Loaded = loaded
	r.mu.Unlock()
}

// Resets reports how many times Reset was called.
func (r *Recognizer) Resets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resets
}

// NoiseFilterCalls reports how many transcriptions used noise filtering.
func (r *Recognizer) NoiseFilterCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.noiseCalls
}

// VADCalls reports how many transcriptions used the plain path.
func (r *Recognizer) VADCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vadCalls
}
