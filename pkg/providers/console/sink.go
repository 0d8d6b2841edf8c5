package console

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/voxkey/voxkey/pkg/adapters/output"
	"github.com/voxkey/voxkey/pkg/logging"
)

// Sink delivers dictated text to a writer, pacing characters the way a
// keypress injector would. The clipboard method holds the last text in
// memory for callers to read back.
type Sink struct {
	w      io.Writer
	logger *slog.Logger

	mu        sync.Mutex
	clipboard string
}

func NewSink(w io.Writer, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		w:      w,
		logger: logging.NewComponentLogger(logger, "console_output"),
	}
}

func (s *Sink) Name() string { return "console_output" }

func (s *Sink) SimulateKeypresses(text string, delay time.Duration) bool {
	if s.w == nil {
		return false
	}
	for _, r := range text {
		if _, err := io.WriteString(s.w, string(r)); err != nil {
			s.logger.Error("write failed", "error", err)
			return false
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	if _, err := io.WriteString(s.w, "\n"); err != nil {
		return false
	}
	return true
}

func (s *Sink) SetClipboardText(text string) bool {
	s.mu.Lock()
	s.clipboard = text
	s.mu.Unlock()
	return true
}

// ClipboardText returns the last text delivered via the clipboard method.
func (s *Sink) ClipboardText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clipboard
}

var _ output.Sink = (*Sink)(nil)
