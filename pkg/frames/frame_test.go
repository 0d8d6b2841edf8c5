package frames

import (
	"testing"
	"time"
)

func TestFrameDataIsACopy(t *testing.T) {
	t.Parallel()

	samples := []float32{0.1, 0.2, 0.3}
	f := NewAudioFrame("s-1", 1, samples, 16000, 20*time.Millisecond, nil)
	data := f.Data()
	data[0] = 9
	if f.RawSamples()[0] != 0.1 {
		t.Fatal("Data() aliased the backing buffer")
	}
	if f.Len() != 3 || f.Rate() != 16000 {
		t.Fatalf("len=%d rate=%d", f.Len(), f.Rate())
	}
}

func TestFrameMetaMergesSessionID(t *testing.T) {
	t.Parallel()

	f := NewAudioFrame("s-2", 1, nil, 16000, 0, map[string]string{MetaDevice: "3"})
	meta := f.Meta()
	if meta[MetaSessionID] != "s-2" || meta[MetaDevice] != "3" {
		t.Fatalf("meta = %v", meta)
	}
	meta[MetaDevice] = "mutated"
	if f.Meta()[MetaDevice] != "3" {
		t.Fatal("Meta() aliased the frame map")
	}
}

func TestPooledFrameRoundTrip(t *testing.T) {
	t.Parallel()

	samples := []float32{0.5, -0.5}
	f := NewAudioFrameFromPool("s-3", 1, samples, 16000, 0, nil)
	if f.RawSamples()[0] != 0.5 {
		t.Fatalf("pooled copy = %v", f.RawSamples())
	}
	if !ReleaseAudioFrame(f) {
		t.Fatal("pooled frame not released")
	}
	plain := NewAudioFrame("s-3", 1, samples, 16000, 0, nil)
	if ReleaseAudioFrame(plain) {
		t.Fatal("non-pooled frame reported released")
	}
}

func TestPTSGenMonotonicPerSession(t *testing.T) {
	t.Parallel()

	g := NewPTSGen()
	a1 := g.Next("a")
	a2 := g.Next("a")
	b1 := g.Next("b")
	if a2 <= a1 {
		t.Fatalf("pts not increasing: %d then %d", a1, a2)
	}
	if b1 != a1 {
		t.Fatalf("sessions share counters: %d vs %d", b1, a1)
	}
}
