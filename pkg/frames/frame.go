package frames

import (
	"sync"
	"time"
)

// Meta keys attached to frames as they move through a session.
const (
	MetaSessionID = "session_id"
	MetaSource    = "source"
	MetaDevice    = "device"
)

// AudioFrame is a fixed-size block of normalized mono float samples.
// Frames are immutable once produced; Data returns a copy.
type AudioFrame struct {
	pts      int64
	samples  []float32
	rate     int
	duration time.Duration
	meta     map[string]string
	pooled   bool
}

func NewAudioFrame(sessionID string, pts int64, samples []float32, rate int, duration time.Duration, meta map[string]string) AudioFrame {
	return AudioFrame{
		pts:      pts,
		samples:  samples,
		rate:     rate,
		duration: duration,
		meta:     mergeMeta(sessionID, meta),
	}
}

// NewAudioFrameFromPool copies samples into a pooled buffer. Callers that
// finish with the frame should hand it to ReleaseAudioFrame.
func NewAudioFrameFromPool(sessionID string, pts int64, samples []float32, rate int, duration time.Duration, meta map[string]string) AudioFrame {
	buf := AcquireSampleBuf(len(samples))
	copy(buf, samples)
	return AudioFrame{
		pts:      pts,
		samples:  buf,
		rate:     rate,
		duration: duration,
		meta:     mergeMeta(sessionID, meta),
		pooled:   true,
	}
}

func (a AudioFrame) PTS() int64              { return a.pts }
func (a AudioFrame) Meta() map[string]string { return cloneMeta(a.meta) }
func (a AudioFrame) Data() []float32         { return append([]float32(nil), a.samples...) }
func (a AudioFrame) RawSamples() []float32   { return a.samples }
func (a AudioFrame) Rate() int               { return a.rate }
func (a AudioFrame) Duration() time.Duration { return a.duration }
func (a AudioFrame) Len() int                { return len(a.samples) }

func ReleaseAudioFrame(f AudioFrame) bool {
	if f.pooled {
		ReleaseSampleBuf(f.samples)
		return true
	}
	return false
}

// PTSGen hands out monotonically increasing presentation timestamps per
// session.
type PTSGen struct {
	mu    sync.Mutex
	value map[string]int64
}

func NewPTSGen() *PTSGen {
	return &PTSGen{value: make(map[string]int64)}
}

func (g *PTSGen) Next(sessionID string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	v := g.value[sessionID] + time.Millisecond.Nanoseconds()
	g.value[sessionID] = v
	return v
}

var sampleBufPool = sync.Pool{
	New: func() any {
		return make([]float32, 0, 1024)
	},
}

func AcquireSampleBuf(size int) []float32 {
	b := sampleBufPool.Get().([]float32)
	if cap(b) < size {
		return make([]float32, size)
	}
	return b[:size]
}

func ReleaseSampleBuf(b []float32) {
	sampleBufPool.Put(b[:0])
}

func mergeMeta(sessionID string, meta map[string]string) map[string]string {
	out := make(map[string]string, 2+len(meta))
	if sessionID != "" {
		out[MetaSessionID] = sessionID
	}
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func cloneMeta(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
