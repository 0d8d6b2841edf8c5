package mock

import (
	"sync"
	"time"
)

// Sink is a capturing text-output implementation.
type Sink struct {
	mu sync.Mutex

	// FailKeypresses / FailClipboard make the corresponding call fail.
	FailKeypresses bool
	FailClipboard  bool
	// FailFirst makes only the first keypress dispatch fail, for retry
	// tests.
	FailFirst bool

	typed     []string
	clipboard []string
	attempts  int
}

func NewSink() *Sink { return &Sink{} }

func (s *Sink) Name() string { return "mock_output" }

func (s *Sink) SimulateKeypresses(text string, _ time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.FailKeypresses || (s.FailFirst && s.attempts == 1) {
		return false
	}
	s.typed = append(s.typed, text)
	return true
}

func (s *Sink) SetClipboardText(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailClipboard {
		return false
	}
	s.clipboard = append(s.clipboard, text)
	return true
}

// Typed returns all successfully dispatched keypress texts.
func (s *Sink) Typed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.typed))
	copy(out, s.typed)
	return out
}

// Clipboard returns all clipboard writes.
func (s *Sink) Clipboard() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.clipboard))
	copy(out, s.clipboard)
	return out
}

// Attempts reports keypress dispatch attempts, failures included.
func (s *Sink) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}
