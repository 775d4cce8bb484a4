package gateway

import (
	"sync"
	"time"

	"github.com/careloop/careloop/internal/audio"
	"github.com/careloop/careloop/internal/livesession"
)

// wsOutput realizes the playback clock for a browser peer. The clock is
// wall time since the connection opened; each buffer is delivered to the
// browser when its scheduled start arrives, tagged with its sample rate
// so the client can play it as it lands.
type wsOutput struct {
	epoch time.Time
	send  func(pcm []byte, sampleRate int)
}

func newWSOutput(send func(pcm []byte, sampleRate int)) *wsOutput {
	return &wsOutput{
		epoch: time.Now(),
		send:  send,
	}
}

func (o *wsOutput) Now() time.Duration {
	return time.Since(o.epoch)
}

func (o *wsOutput) Play(pcm []int16, sampleRate int, start time.Duration, onEnded func()) (livesession.Source, error) {
	delay := start - o.Now()
	if delay < 0 {
		delay = 0
	}
	duration := time.Duration(len(pcm)) * time.Second / time.Duration(sampleRate)

	src := &playbackSource{}
	src.startTimer = time.AfterFunc(delay, func() {
		src.mu.Lock()
		if src.stopped {
			src.mu.Unlock()
			return
		}
		src.endTimer = time.AfterFunc(duration, onEnded)
		src.mu.Unlock()

		o.send(audio.Int16ToPCMBytes(pcm), sampleRate)
	})
	return src, nil
}

type playbackSource struct {
	mu         sync.Mutex
	stopped    bool
	startTimer *time.Timer
	endTimer   *time.Timer
}

// Stop cancels delivery and the pending end notification. Safe to call
// at any point in the source's lifecycle.
func (s *playbackSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.startTimer != nil {
		s.startTimer.Stop()
	}
	if s.endTimer != nil {
		s.endTimer.Stop()
	}
}
