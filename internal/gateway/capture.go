package gateway

import (
	"context"
	"sync"

	"github.com/careloop/careloop/internal/audio"
	"github.com/careloop/careloop/internal/shared"
)

const captureBufferSize = 32

// wsCapturer adapts microphone frames arriving over the websocket into
// the capture stream a live session consumes.
type wsCapturer struct {
	mu      sync.Mutex
	frames  chan []float32
	started bool
	stopped bool
}

func newWSCapturer() *wsCapturer {
	return &wsCapturer{
		frames: make(chan []float32, captureBufferSize),
	}
}

func (c *wsCapturer) Start(ctx context.Context) (<-chan []float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil, shared.ErrSessionClosed
	}
	c.started = true
	return c.frames, nil
}

// Push converts one PCM16 frame from the browser and hands it to the
// session. Frames are dropped rather than blocking the read pump.
func (c *wsCapturer) Push(pcm []byte) {
	c.mu.Lock()
	if c.stopped || !c.started {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	frame := audio.Int16ToFloat32(audio.PCMBytesToInt16(pcm))
	select {
	case c.frames <- frame:
	default:
	}
}

func (c *wsCapturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil
	}
	c.stopped = true
	close(c.frames)
	return nil
}

// wsFrameSource holds the latest camera frame pushed by the browser.
type wsFrameSource struct {
	mu    sync.Mutex
	frame []byte
}

func newWSFrameSource() *wsFrameSource {
	return &wsFrameSource{}
}

func (f *wsFrameSource) Set(frame []byte) {
	f.mu.Lock()
	f.frame = frame
	f.mu.Unlock()
}

func (f *wsFrameSource) Frame() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame
}
