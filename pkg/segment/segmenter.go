package segment

import (
	"time"
)

// State is the speech segmentation state for a session.
type State int

const (
	StateIdle State = iota
	StateSpeaking
	StateHangover
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSpeaking:
		return "SPEAKING"
	case StateHangover:
		return "HANGOVER"
	default:
		return "UNKNOWN"
	}
}

// StateChange represents a state transition event.
type StateChange struct {
	FromState State
	ToState   State
	Timestamp time.Time
}

// StateListener observes segmentation state changes.
type StateListener interface {
	OnStateChange(event StateChange)
}

// Segmenter converts per-frame voice-activity decisions into
// speech/hangover/silence segments so that brief micro-silences inside an
// utterance do not truncate it.
//
// End-of-speech requires two conditions at once: the per-frame hangover
// budget must be exhausted AND the wall-clock gap since the last voiced
// frame must exceed the hangover timeout. Under irregular frame delivery
// the two can disagree; requiring both preserves the longer tail.
//
// A Segmenter is owned by a single session worker and is not safe for
// concurrent use.
type Segmenter struct {
	state           State
	hangoverTimeout time.Duration
	hangoverBudget  time.Duration
	lastSpeech      time.Time

	listeners []StateListener

	// now is replaceable in tests.
	now func() time.Time
}

const DefaultHangoverTimeout = 600 * time.Millisecond

func New(hangoverTimeout time.Duration) *Segmenter {
	if hangoverTimeout <= 0 {
		hangoverTimeout = DefaultHangoverTimeout
	}
	return &Segmenter{
		state:           StateIdle,
		hangoverTimeout: hangoverTimeout,
		now:             time.Now,
	}
}

// State returns the current state.
func (s *Segmenter) State() State { return s.state }

// Active reports whether frames should currently be fed to the recognizer.
func (s *Segmenter) Active() bool { return s.state != StateIdle }

// Observe feeds one frame-level VAD decision into the state machine and
// returns the resulting state. frameDuration is the frame's nominal length.
func (s *Segmenter) Observe(isSpeech bool, frameDuration time.Duration) State {
	prev := s.state
	nowT := s.now()

	if isSpeech {
		s.state = StateSpeaking
		s.hangoverBudget = s.hangoverTimeout
		s.lastSpeech = nowT
	} else if s.state != StateIdle {
		s.hangoverBudget -= frameDuration
		silence := nowT.Sub(s.lastSpeech)
		if s.hangoverBudget <= 0 && silence > s.hangoverTimeout {
			s.state = StateIdle
			s.hangoverBudget = 0
		} else {
			s.state = StateHangover
		}
	}

	if s.state != prev {
		s.emit(StateChange{FromState: prev, ToState: s.state, Timestamp: nowT})
	}
	return s.state
}

// Reset returns the segmenter to idle, for session restarts.
func (s *Segmenter) Reset() {
	prev := s.state
	s.state = StateIdle
	s.hangoverBudget = 0
	s.lastSpeech = time.Time{}
	if prev != StateIdle {
		s.emit(StateChange{FromState: prev, ToState: StateIdle, Timestamp: s.now()})
	}
}

// AddListener registers a listener for state change events.
func (s *Segmenter) AddListener(listener StateListener) {
	s.listeners = append(s.listeners, listener)
}

// SetClock overrides the wall clock, for tests.
func (s *Segmenter) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Segmenter) emit(event StateChange) {
	for _, l := range s.listeners {
		l.OnStateChange(event)
	}
}
