package stdin

import (
	"encoding/binary"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/voxkey/voxkey/pkg/adapters/audio"
	"github.com/voxkey/voxkey/pkg/frames"
	"github.com/voxkey/voxkey/pkg/logging"
)

// Source reads signed 16-bit little-endian PCM from a reader and hands it
// out one capture buffer at a time. It pairs with external recorders:
//
//	arecord -f S16_LE -r 16000 -c 1 | voxkey
type Source struct {
	cfg    audio.Config
	r      io.Reader
	logger *slog.Logger

	frameDur time.Duration
	ch       chan *frames.AudioFrame
	pts      *frames.PTSGen

	mu      sync.Mutex
	active  bool
	lastErr string
	done    chan struct{}
}

func NewSource(r io.Reader, cfg audio.Config, logger *slog.Logger) *Source {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = 320
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		cfg:      cfg,
		r:        r,
		logger:   logging.NewComponentLogger(logger, "stdin_audio"),
		frameDur: time.Duration(cfg.FramesPerBuffer) * time.Second / time.Duration(cfg.SampleRate),
		ch:       make(chan *frames.AudioFrame, 8),
		pts:      frames.NewPTSGen(),
	}
}

func (s *Source) Name() string { return "stdin_pcm" }

func (s *Source) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return true
	}
	if s.r == nil {
		s.lastErr = "no input reader"
		return false
	}
	s.active = true
	s.done = make(chan struct{})
	go s.readLoop(s.done)
	return true
}

func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	close(s.done)
}

func (s *Source) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Source) NextChunk(timeout time.Duration) *frames.AudioFrame {
	select {
	case f, ok := <-s.ch:
		if !ok {
			return nil
		}
		return f
	case <-time.After(timeout):
		return nil
	}
}

func (s *Source) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Source) readLoop(done chan struct{}) {
	raw := make([]byte, s.cfg.FramesPerBuffer*2)
	scratch := make([]float32, s.cfg.FramesPerBuffer)
	meta := map[string]string{frames.MetaSource: s.Name()}
	for {
		select {
		case <-done:
			return
		default:
		}
		if _, err := io.ReadFull(s.r, raw); err != nil {
			s.mu.Lock()
			if s.active {
				s.active = false
				if err != io.EOF {
					s.lastErr = err.Error()
					s.logger.Error("input read failed", "error", err)
				}
			}
			s.mu.Unlock()
			return
		}
		for i := range scratch {
			scratch[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768.0
		}
		// Frames get pooled storage; the consumer releases each one when
		// it finishes an iteration.
		f := frames.NewAudioFrameFromPool("", s.pts.Next(""), scratch, s.cfg.SampleRate, s.frameDur, meta)
		select {
		case s.ch <- &f:
		case <-done:
			return
		}
	}
}

var _ audio.Source = (*Source)(nil)
