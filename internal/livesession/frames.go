package livesession

import (
	"sync"
	"time"

	"github.com/careloop/careloop/internal/audio"
	"github.com/careloop/careloop/internal/channel"
)

const defaultFrameInterval = time.Second

// frameStreamer forwards one JPEG camera frame per interval while enabled.
// It runs on its own ticker, decoupled from the audio capture cadence.
type frameStreamer struct {
	source   channel.FrameSource
	send     func(channel.MediaFrame)
	interval time.Duration

	mu     sync.Mutex
	stopCh chan struct{}
}

func newFrameStreamer(source channel.FrameSource, interval time.Duration, send func(channel.MediaFrame)) *frameStreamer {
	if interval <= 0 {
		interval = defaultFrameInterval
	}
	return &frameStreamer{
		source:   source,
		send:     send,
		interval: interval,
	}
}

func (f *frameStreamer) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopCh != nil || f.source == nil {
		return
	}
	stopCh := make(chan struct{})
	f.stopCh = stopCh
	go f.run(stopCh)
}

func (f *frameStreamer) run(stopCh chan struct{}) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			frame := f.source.Frame()
			if len(frame) == 0 {
				continue
			}
			f.send(channel.MediaFrame{
				MIMEType: audio.MIMEJPEG,
				Data:     frame,
			})
		}
	}
}

func (f *frameStreamer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopCh == nil {
		return
	}
	close(f.stopCh)
	f.stopCh = nil
}

func (f *frameStreamer) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCh != nil
}
