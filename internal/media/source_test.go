package media

import (
	"bytes"
	"errors"
	"testing"
)

func TestOpenKinds(t *testing.T) {
	for _, kind := range []string{"tone", "silence"} {
		src, err := Open(kind)
		if err != nil {
			t.Fatalf("open %q: %v", kind, err)
		}
		frame, err := src.ReadFrame()
		if err != nil {
			t.Fatalf("read %q: %v", kind, err)
		}
		if len(frame) != FrameBytes {
			t.Fatalf("%q frame=%d bytes, want %d", kind, len(frame), FrameBytes)
		}
		if err := src.Close(); err != nil {
			t.Fatalf("close %q: %v", kind, err)
		}
		if _, err := src.ReadFrame(); err == nil {
			t.Fatalf("%q read after close should fail", kind)
		}
	}
}

func TestOpenUnknownIsMediaAccessError(t *testing.T) {
	_, err := Open("hologram")
	if !errors.Is(err, ErrMediaAccess) {
		t.Fatalf("err=%v, want ErrMediaAccess", err)
	}
}

func TestToneIsNotSilence(t *testing.T) {
	tone := NewToneSource(440)
	frame, err := tone.ReadFrame()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if bytes.Equal(frame, make([]byte, FrameBytes)) {
		t.Fatal("tone frame is all zeros")
	}
}

func TestMuLawDownsampleHalvesSampleCount(t *testing.T) {
	src := &SilenceSource{}
	frame, _ := src.ReadFrame()
	out := MuLawDownsample(frame)
	if len(out) != FrameSamples/2 {
		t.Fatalf("out=%d bytes, want %d", len(out), FrameSamples/2)
	}
	// mu-law encodes silence as 0xFF.
	for i, b := range out {
		if b != 0xFF {
			t.Fatalf("out[%d]=%#x, want 0xff for silence", i, b)
		}
	}
}
