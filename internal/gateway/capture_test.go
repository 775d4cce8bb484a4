package gateway

import (
	"context"
	"testing"

	"github.com/careloop/careloop/internal/audio"
)

func TestWSCapturer_PushConvertsFrames(t *testing.T) {
	capturer := newWSCapturer()
	frames, err := capturer.Start(context.Background())
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	pcm := audio.Int16ToPCMBytes([]int16{16384, -16384})
	capturer.Push(pcm)

	select {
	case frame := <-frames:
		if len(frame) != 2 {
			t.Fatalf("expected 2 samples, got %d", len(frame))
		}
		if frame[0] != 0.5 || frame[1] != -0.5 {
			t.Errorf("unexpected samples %v", frame)
		}
	default:
		t.Fatal("frame not delivered")
	}
}

func TestWSCapturer_PushBeforeStartIsDropped(t *testing.T) {
	capturer := newWSCapturer()
	capturer.Push(audio.Int16ToPCMBytes([]int16{1}))

	frames, err := capturer.Start(context.Background())
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	select {
	case <-frames:
		t.Error("frame pushed before start should not be delivered")
	default:
	}
}

func TestWSCapturer_PushDropsWhenFull(t *testing.T) {
	capturer := newWSCapturer()
	capturer.Start(context.Background())

	pcm := audio.Int16ToPCMBytes([]int16{1})
	for i := 0; i < captureBufferSize+10; i++ {
		capturer.Push(pcm)
	}
	// No deadlock and no panic is the assertion; the overflow is dropped.
}

func TestWSCapturer_StopIsIdempotent(t *testing.T) {
	capturer := newWSCapturer()
	frames, _ := capturer.Start(context.Background())

	if err := capturer.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := capturer.Stop(); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}

	if _, ok := <-frames; ok {
		t.Error("frame channel should be closed after stop")
	}

	// Pushes after stop are ignored.
	capturer.Push(audio.Int16ToPCMBytes([]int16{1}))
}

func TestWSCapturer_StartAfterStopFails(t *testing.T) {
	capturer := newWSCapturer()
	capturer.Stop()
	if _, err := capturer.Start(context.Background()); err == nil {
		t.Error("expected error starting a stopped capturer")
	}
}

func TestWSFrameSource_LatestFrameWins(t *testing.T) {
	source := newWSFrameSource()
	if source.Frame() != nil {
		t.Error("expected no frame initially")
	}

	source.Set([]byte{1})
	source.Set([]byte{2, 3})
	frame := source.Frame()
	if len(frame) != 2 || frame[0] != 2 {
		t.Errorf("expected latest frame, got %v", frame)
	}
}
