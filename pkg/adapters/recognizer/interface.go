package recognizer

import (
	"github.com/voxkey/voxkey/pkg/frames"
)

// Result is one transcription outcome for a frame.
type Result struct {
	// Raw is the text exactly as recognized.
	Raw string
	// Processed is the text after the dictation pipeline ran, filled in
	// by the session loop, not the recognizer.
	Processed string
	// Final marks an utterance-final result; non-final results are
	// partial hypotheses.
	Final bool
	// Confidence is the recognizer's score in [0,1], 0 when unknown.
	Confidence float64
	// TimestampMS is the capture timestamp of the triggering frame.
	TimestampMS int64
}

// Recognizer defines the contract for any speech-to-text engine
// implementation.
type Recognizer interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// TranscribeWithVAD feeds one frame with its voice-activity flag and
	// returns the current hypothesis. An empty Raw with Final=false means
	// nothing to report yet.
	TranscribeWithVAD(frame *frames.AudioFrame, isSpeech bool) (Result, error)
	// TranscribeWithNoiseFiltering is TranscribeWithVAD with the engine's
	// noise suppression enabled.
	TranscribeWithNoiseFiltering(frame *frames.AudioFrame, isSpeech bool) (Result, error)
	// Reset discards the in-flight utterance, for session restarts.
	Reset()

	// Model-load progress accessors; loading happens asynchronously.
	IsLoading() bool
	LoadingProgress() float64
	IsModelLoaded() bool
	// LastError returns the most recent engine error message, empty when
	// none occurred.
	LastError() string
}
