package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/voxkey/voxkey/pkg/adapters/audio"
	"github.com/voxkey/voxkey/pkg/adapters/output"
	"github.com/voxkey/voxkey/pkg/adapters/recognizer"
	"github.com/voxkey/voxkey/pkg/adapters/vad"
	"github.com/voxkey/voxkey/pkg/adapters/window"
	"github.com/voxkey/voxkey/pkg/dictation"
	"github.com/voxkey/voxkey/pkg/errorsx"
	"github.com/voxkey/voxkey/pkg/level"
	"github.com/voxkey/voxkey/pkg/metrics"
	"github.com/voxkey/voxkey/pkg/recovery"
	"github.com/voxkey/voxkey/pkg/segment"
)

const defaultFrameTimeout = 10 * time.Millisecond

// Config holds per-session behavior knobs.
type Config struct {
	HangoverTimeout     time.Duration
	FrameTimeout        time.Duration
	KeypressDelay       time.Duration
	OutputMethod        output.Method
	NoiseFiltering      bool
	PauseOnWindowChange bool
}

// Deps are the collaborators a Controller drives. Window is optional;
// everything else is required.
type Deps struct {
	SourceFactory func(audio.Config) audio.Source
	VAD           vad.Detector
	Recognizer    recognizer.Recognizer
	Output        output.Sink
	Window        window.Observer
	Commands      *dictation.CommandSet
	Recovery      *recovery.Manager
	Notifier      *Notifier
	Metrics       metrics.Observer
	Logger        *slog.Logger
}

// Controller owns one dictation session at a time: it starts the capture
// device, schedules the transcription loop on a worker goroutine, and
// exposes idempotent start/stop/toggle. Session state is owned exclusively
// by the controller; outside code only requests transitions.
type Controller struct {
	cfg  Config
	deps Deps

	pipeline  *dictation.Pipeline
	segmenter *segment.Segmenter
	levels    *level.Estimator
	logger    *slog.Logger

	paused atomic.Bool

	mu        sync.Mutex
	active    bool
	sessionID string
	cancel    context.CancelFunc
	done      chan struct{}
	source    audio.Source
}

func NewController(deps Deps, cfg Config) *Controller {
	if cfg.FrameTimeout <= 0 {
		cfg.FrameTimeout = defaultFrameTimeout
	}
	if cfg.OutputMethod == "" {
		cfg.OutputMethod = output.MethodKeypresses
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NoopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	c := &Controller{
		cfg:       cfg,
		deps:      deps,
		pipeline:  dictation.NewPipeline(deps.Commands, deps.Logger),
		segmenter: segment.New(cfg.HangoverTimeout),
		levels:    level.NewEstimator(),
		logger:    deps.Logger.With("component", "session"),
	}

	if deps.Window != nil {
		deps.Window.OnDeviceChange(c.onDeviceChange)
	}
	return c
}

// Start begins a session on the given device. It is a no-op returning true
// when a session is already running. It returns false when the model is
// not ready or the device cannot be started even after recovery.
func (c *Controller) Start(device audio.Config) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		c.logger.Debug("start ignored, session already active")
		return true
	}

	if !c.deps.Recognizer.IsModelLoaded() {
		if c.deps.Recognizer.IsLoading() {
			c.deps.Notifier.PublishEvent(Event{
				Kind:     EventModelProgress,
				Progress: c.deps.Recognizer.LoadingProgress(),
				Message:  "MODEL_LOADING",
			})
			return false
		}
		details := c.deps.Recovery.Handle(recovery.CategoryTranscription, recovery.CodeModelLoadError,
			c.deps.Recognizer.LastError(), nil,
			errorsx.Wrap(errors.New("model not loaded"), errorsx.ReasonModelLoad))
		c.deps.Notifier.PublishEvent(Event{Kind: EventError, Err: &details})
		return false
	}

	src := c.deps.SourceFactory(device)
	if !src.Start() {
		details := c.deps.Recovery.Handle(recovery.CategoryAudioDevice, recovery.CodeStreamStartError,
			src.LastError(), map[string]any{"device": device.DeviceID},
			errorsx.Wrap(errors.New(src.LastError()), errorsx.ReasonAudioStreamStart))
		recovered := c.deps.Recovery.AttemptRecovery(details, func() error {
			if src.Start() {
				return nil
			}
			return errorsx.Wrap(errors.New(src.LastError()), errorsx.ReasonAudioStreamStart)
		})
		if !recovered {
			c.deps.Notifier.PublishEvent(Event{Kind: EventError, Err: &details})
			return false
		}
	}

	c.sessionID = uuid.NewString()
	c.segmenter.Reset()
	c.pipeline.Reset()
	c.levels.Reset()
	c.deps.Recognizer.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.source = src
	c.active = true

	c.deps.Notifier.PublishEvent(Event{Kind: EventSessionStarted, SessionID: c.sessionID})
	c.logger.Info("session started", "session_id", c.sessionID, "device", device.DeviceID)

	go c.runLoop(ctx, src, c.sessionID, c.done)
	return true
}

// Stop cancels the running session and waits briefly for the worker to
// observe the cancellation. Safe to call repeatedly and when idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	// active stays true until the worker's deferred cleanup runs, so a
	// concurrent second Stop must also check that cancel is still held.
	if !c.active || c.cancel == nil {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	done := c.done
	id := c.sessionID
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		c.logger.Warn("worker did not stop in time", "session_id", id)
	}
}

// Pause suspends transcription without tearing the session down: frames
// keep draining from the source but are discarded until Resume. Only the
// flag is touched here; the worker resets its own segmentation state when
// it observes the transition.
func (c *Controller) Pause() {
	c.paused.Store(true)
	c.logger.Info("session paused", "session_id", c.SessionID())
}

// Resume lifts a pause.
func (c *Controller) Resume() {
	c.paused.Store(false)
	c.logger.Info("session resumed", "session_id", c.SessionID())
}

// Paused reports whether transcription is suspended.
func (c *Controller) Paused() bool { return c.paused.Load() }

// Toggle flips between start and stop and reports the resulting state.
func (c *Controller) Toggle(device audio.Config) bool {
	if c.Active() {
		c.Stop()
		return false
	}
	return c.Start(device)
}

// Active reports whether a session is currently running.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SessionID returns the identifier of the current (or most recent) session.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Pipeline exposes the text pipeline for mode changes from management
// surfaces.
func (c *Controller) Pipeline() *dictation.Pipeline { return c.pipeline }

// WaitModelReady runs the load monitor until the model finishes loading,
// fails, or ctx is cancelled.
func (c *Controller) WaitModelReady(ctx context.Context, interval time.Duration) {
	m := NewLoadMonitor(c.deps.Recognizer, c.deps.Notifier, c.deps.Recovery,
		c.deps.Metrics, c.logger, interval)
	m.Run(ctx)
}

func (c *Controller) onDeviceChange(change window.DeviceChange) {
	details := c.deps.Recovery.Handle(recovery.CategoryAudioDevice, recovery.CodeDeviceChange,
		change.Reason, map[string]any{"device": change.DeviceID}, nil)
	c.deps.Notifier.PublishEvent(Event{
		Kind:         EventDeviceChange,
		SessionID:    c.SessionID(),
		Err:          &details,
		DeviceChange: &change,
	})
}
