package livesession

import (
	"sync"
	"testing"
	"time"

	"github.com/careloop/careloop/internal/audio"
	"github.com/careloop/careloop/internal/channel"
)

type fakeFrameSource struct {
	mu    sync.Mutex
	frame []byte
}

func (f *fakeFrameSource) Frame() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame
}

func (f *fakeFrameSource) SetFrame(frame []byte) {
	f.mu.Lock()
	f.frame = frame
	f.mu.Unlock()
}

func TestFrameStreamer_SendsFramesAtInterval(t *testing.T) {
	source := &fakeFrameSource{frame: []byte{0xFF, 0xD8, 0xFF}}

	var mu sync.Mutex
	var sent []channel.MediaFrame
	streamer := newFrameStreamer(source, 5*time.Millisecond, func(frame channel.MediaFrame) {
		mu.Lock()
		sent = append(sent, frame)
		mu.Unlock()
	})

	streamer.Start()
	defer streamer.Stop()

	waitFor(t, "camera frames", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sent) >= 2
	})

	mu.Lock()
	first := sent[0]
	mu.Unlock()
	if first.MIMEType != audio.MIMEJPEG {
		t.Errorf("expected jpeg mime type, got %q", first.MIMEType)
	}
	if len(first.Data) != 3 {
		t.Errorf("unexpected frame payload %v", first.Data)
	}
}

func TestFrameStreamer_SkipsEmptyFrames(t *testing.T) {
	source := &fakeFrameSource{}

	var mu sync.Mutex
	count := 0
	streamer := newFrameStreamer(source, time.Millisecond, func(channel.MediaFrame) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	streamer.Start()
	time.Sleep(20 * time.Millisecond)
	streamer.Stop()

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("empty frames should not be sent, got %d sends", count)
	}
}

func TestFrameStreamer_StartStopIdempotent(t *testing.T) {
	source := &fakeFrameSource{frame: []byte{1}}
	streamer := newFrameStreamer(source, time.Millisecond, func(channel.MediaFrame) {})

	streamer.Start()
	streamer.Start()
	if !streamer.Running() {
		t.Error("expected streamer running after start")
	}

	streamer.Stop()
	streamer.Stop()
	if streamer.Running() {
		t.Error("expected streamer stopped after stop")
	}

	// Re-enable after a stop.
	streamer.Start()
	if !streamer.Running() {
		t.Error("streamer should restart after stop")
	}
	streamer.Stop()
}

func TestFrameStreamer_NilSourceNeverStarts(t *testing.T) {
	streamer := newFrameStreamer(nil, time.Millisecond, func(channel.MediaFrame) {})
	streamer.Start()
	if streamer.Running() {
		t.Error("streamer without a source must stay stopped")
	}
	streamer.Stop()
}
