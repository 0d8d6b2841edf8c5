package stdin

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/voxkey/voxkey/pkg/adapters/audio"
	"github.com/voxkey/voxkey/pkg/frames"
)

func pcmBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestSourceDecodesPCMFrames(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 640)
	for i := range samples {
		samples[i] = 16384 // 0.5 full scale
	}
	src := NewSource(bytes.NewReader(pcmBytes(samples)), audio.Config{
		SampleRate:      16000,
		FramesPerBuffer: 320,
	}, nil)
	if !src.Start() {
		t.Fatal("Start returned false")
	}
	defer src.Stop()

	for i := 0; i < 2; i++ {
		f := src.NextChunk(time.Second)
		if f == nil {
			t.Fatalf("frame %d missing", i)
		}
		if f.Len() != 320 {
			t.Fatalf("frame %d length = %d", i, f.Len())
		}
		got := f.RawSamples()[0]
		if got < 0.49 || got > 0.51 {
			t.Fatalf("sample = %f, want ~0.5", got)
		}
		if f.Meta()[frames.MetaSource] != "stdin_pcm" {
			t.Fatalf("frame %d meta = %v", i, f.Meta())
		}
		// Frames carry pooled storage that consumers hand back.
		if !frames.ReleaseAudioFrame(*f) {
			t.Fatalf("frame %d is not pooled", i)
		}
	}
}

func TestSourceDeactivatesOnEOF(t *testing.T) {
	t.Parallel()

	src := NewSource(bytes.NewReader(nil), audio.Config{}, nil)
	if !src.Start() {
		t.Fatal("Start returned false")
	}
	deadline := time.Now().Add(2 * time.Second)
	for src.IsActive() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if src.IsActive() {
		t.Fatal("source stayed active after EOF")
	}
	if src.LastError() != "" {
		t.Fatalf("EOF should not set an error, got %q", src.LastError())
	}
}

func TestSourceRequiresReader(t *testing.T) {
	t.Parallel()

	src := NewSource(nil, audio.Config{}, nil)
	if src.Start() {
		t.Fatal("Start succeeded without a reader")
	}
	if src.LastError() == "" {
		t.Fatal("expected an error message")
	}
}

func TestSourceNextChunkTimesOut(t *testing.T) {
	t.Parallel()

	src := NewSource(bytes.NewReader(nil), audio.Config{}, nil)
	start := time.Now()
	if f := src.NextChunk(20 * time.Millisecond); f != nil {
		t.Fatal("expected nil frame")
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatal("NextChunk returned before the timeout")
	}
}
