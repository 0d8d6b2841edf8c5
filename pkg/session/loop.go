package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/voxkey/voxkey/pkg/adapters/audio"
	"github.com/voxkey/voxkey/pkg/adapters/output"
	"github.com/voxkey/voxkey/pkg/adapters/recognizer"
	"github.com/voxkey/voxkey/pkg/errorsx"
	"github.com/voxkey/voxkey/pkg/frames"
	"github.com/voxkey/voxkey/pkg/metrics"
	"github.com/voxkey/voxkey/pkg/recovery"
	"github.com/voxkey/voxkey/pkg/redact"
)

type loopState struct {
	src       audio.Source
	sessionID string
	appHint   string
	wasActive bool
	pauseSeen bool
}

// runLoop is the transcription worker. One iteration per frame; the only
// blocking point is the bounded frame fetch, so cancellation latency stays
// within one fetch timeout plus one iteration.
func (c *Controller) runLoop(ctx context.Context, src audio.Source, sessionID string, done chan struct{}) {
	defer func() {
		src.Stop()
		c.mu.Lock()
		c.active = false
		c.mu.Unlock()
		c.deps.Notifier.PublishEvent(Event{Kind: EventSessionStopped, SessionID: sessionID})
		c.logger.Info("session stopped", "session_id", sessionID)
		close(done)
	}()

	st := &loopState{src: src, sessionID: sessionID}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if end := c.iterate(st); end {
			return
		}
	}
}

// iterate runs one loop pass. A panic inside an iteration is caught here
// and routed through recovery; it ends the session only when the source is
// no longer active.
func (c *Controller) iterate(st *loopState) (end bool) {
	defer func() {
		if r := recover(); r != nil {
			details := c.deps.Recovery.Handle(recovery.CategoryTranscription, recovery.CodeTranscriptionError,
				fmt.Sprintf("iteration panic: %v", r), map[string]any{"session_id": st.sessionID}, nil)
			c.deps.Notifier.PublishEvent(Event{Kind: EventError, SessionID: st.sessionID, Err: &details})
			end = !st.src.IsActive()
		}
	}()

	if c.deps.Window != nil {
		if title := c.deps.Window.ForegroundWindowTitle(); title != st.appHint {
			prev := st.appHint
			st.appHint = title
			c.deps.Notifier.PublishEvent(Event{Kind: EventForegroundApp, SessionID: st.sessionID, App: title})
			if c.cfg.PauseOnWindowChange && prev != "" {
				c.logger.Debug("foreground changed, skipping frame", "app", title)
				return false
			}
		}
	}

	frame := st.src.NextChunk(c.cfg.FrameTimeout)
	if frame == nil {
		if !st.src.IsActive() {
			// End of stream without an error means the input simply
			// finished; only a reported failure counts as a device loss.
			if msg := st.src.LastError(); msg != "" {
				details := c.deps.Recovery.Handle(recovery.CategoryAudioDevice, recovery.CodeDeviceChange,
					msg, map[string]any{"session_id": st.sessionID},
					errorsx.Wrap(errors.New("audio source inactive"), errorsx.ReasonAudioStreamRead))
				c.deps.Notifier.PublishEvent(Event{Kind: EventError, SessionID: st.sessionID, Err: &details})
			}
			return true
		}
		return false
	}
	// Pooled frames go back once the iteration is done with them; nothing
	// below retains the frame past this call.
	defer frames.ReleaseAudioFrame(*frame)

	if c.paused.Load() {
		// The segmenter belongs to this goroutine, so the pause
		// transition is handled here rather than in Pause itself.
		if !st.pauseSeen {
			st.pauseSeen = true
			st.wasActive = false
			c.segmenter.Reset()
		}
		return false
	}
	st.pauseSeen = false

	c.deps.Metrics.RecordEvent(metrics.MetricsEvent{Name: metrics.EventFrameIn, Time: time.Now()})

	lvl, peak := c.levels.Update(frame.RawSamples())
	c.deps.Notifier.PublishResult(Event{Kind: EventLevel, SessionID: st.sessionID, Level: lvl, Peak: peak})
	c.deps.Metrics.RecordEvent(metrics.MetricsEvent{Name: metrics.EventLevelSample, Time: time.Now(), Value: lvl})

	isSpeech := c.deps.VAD.IsSpeech(frame)
	c.segmenter.Observe(isSpeech, frame.Duration())
	nowActive := c.segmenter.Active()
	switch {
	case nowActive && !st.wasActive:
		// Fresh utterance: clear any decoder state left from the last one.
		c.deps.Recognizer.Reset()
		c.deps.Metrics.RecordEvent(metrics.MetricsEvent{
			Name: metrics.EventSpeechStart, Time: time.Now(),
			Tags: map[string]string{"session_id": st.sessionID},
		})
	case !nowActive && st.wasActive:
		c.deps.Metrics.RecordEvent(metrics.MetricsEvent{
			Name: metrics.EventSpeechEnd, Time: time.Now(),
			Tags: map[string]string{"session_id": st.sessionID},
		})
	}
	st.wasActive = nowActive
	if !nowActive {
		return false
	}

	var res recognizer.Result
	var err error
	if c.cfg.NoiseFiltering {
		res, err = c.deps.Recognizer.TranscribeWithNoiseFiltering(frame, isSpeech)
	} else {
		res, err = c.deps.Recognizer.TranscribeWithVAD(frame, isSpeech)
	}
	if err != nil {
		details := c.deps.Recovery.Handle(recovery.CategoryTranscription, recovery.CodeTranscriptionError,
			err.Error(), map[string]any{"session_id": st.sessionID},
			errorsx.Wrap(err, errorsx.ReasonTranscribe))
		c.deps.Notifier.PublishEvent(Event{Kind: EventError, SessionID: st.sessionID, Err: &details})
		return !st.src.IsActive()
	}
	if res.Raw == "" {
		return false
	}

	res.Processed = c.pipeline.ProcessWithContext(res.Raw, st.appHint)
	c.deps.Notifier.PublishResult(Event{Kind: EventResult, SessionID: st.sessionID, Result: &res})

	name := metrics.EventResultPartial
	if res.Final {
		name = metrics.EventResultFinal
	}
	c.deps.Metrics.RecordEvent(metrics.MetricsEvent{
		Name: name, Time: time.Now(),
		Tags: map[string]string{"session_id": st.sessionID},
	})
	c.logger.Debug("result", "session_id", st.sessionID,
		"final", res.Final, "text", redact.Clip(res.Processed))

	if res.Final && res.Processed != "" {
		c.dispatchOutput(st.sessionID, res.Processed)
	}
	return false
}

// dispatchOutput sends processed text through the configured sink. On
// failure it consults recovery; a successful recovery earns exactly one
// retry, after which the error surfaces to the consumer.
func (c *Controller) dispatchOutput(sessionID, text string) {
	if c.emit(text) {
		c.recordDispatch("ok")
		return
	}
	c.recordDispatch("error")

	reason := errorsx.ReasonOutputKeypress
	if c.cfg.OutputMethod == output.MethodClipboard {
		reason = errorsx.ReasonOutputClipboard
	}
	details := c.deps.Recovery.Handle(recovery.CategoryOutput, recovery.CodeOutputError,
		"output dispatch failed",
		map[string]any{"method": string(c.cfg.OutputMethod), "session_id": sessionID},
		errorsx.Wrap(errors.New("output dispatch failed"), reason))

	if c.deps.Recovery.AttemptRecovery(details, func() error { return nil }) {
		c.deps.Metrics.RecordEvent(metrics.MetricsEvent{Name: metrics.EventOutputRetry, Time: time.Now()})
		if c.emit(text) {
			c.recordDispatch("retry_ok")
			return
		}
		c.recordDispatch("retry_error")
	}
	c.deps.Notifier.PublishEvent(Event{Kind: EventError, SessionID: sessionID, Err: &details})
}

func (c *Controller) emit(text string) bool {
	switch c.cfg.OutputMethod {
	case output.MethodClipboard:
		return c.deps.Output.SetClipboardText(text)
	default:
		return c.deps.Output.SimulateKeypresses(text, c.cfg.KeypressDelay)
	}
}

func (c *Controller) recordDispatch(outcome string) {
	c.deps.Metrics.RecordEvent(metrics.MetricsEvent{
		Name: metrics.EventOutputDispatch,
		Time: time.Now(),
		Tags: map[string]string{"outcome": outcome},
	})
}
