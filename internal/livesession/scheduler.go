package livesession

import (
	"sync"
	"time"

	"github.com/careloop/careloop/internal/audio"
)

// Output is the playback device a Scheduler drives. Now reports the
// current playback clock. Play starts pcm at the given clock offset and
// must invoke onEnded asynchronously once playback finishes; it must never
// call back into the scheduler synchronously.
type Output interface {
	Now() time.Duration
	Play(pcm []int16, sampleRate int, start time.Duration, onEnded func()) (Source, error)
}

// Source is an in-flight playback buffer. Stop must be safe to call after
// the source has already ended.
type Source interface {
	Stop()
}

// Scheduler assigns each decoded buffer a start time of
// max(nextStart, clock) and advances nextStart by the buffer's duration,
// so playback is gapless, non-overlapping, and strictly time-ordered even
// when buffers arrive with variable decode latency. The clock read and
// nextStart advance are one step under the mutex.
type Scheduler struct {
	out Output

	mu        sync.Mutex
	nextStart time.Duration
	active    map[uint64]Source
	seq       uint64
}

func NewScheduler(out Output) *Scheduler {
	return &Scheduler{
		out:    out,
		active: make(map[uint64]Source),
	}
}

func (s *Scheduler) Schedule(pcm []int16, sampleRate int) (time.Duration, error) {
	if sampleRate <= 0 {
		sampleRate = audio.PlaybackRate
	}
	duration := time.Duration(len(pcm)) * time.Second / time.Duration(sampleRate)

	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.out.Now()
	if s.nextStart > start {
		start = s.nextStart
	}

	id := s.seq
	s.seq++

	src, err := s.out.Play(pcm, sampleRate, start, func() {
		s.remove(id)
	})
	if err != nil {
		return 0, err
	}

	s.active[id] = src
	s.nextStart = start + duration
	return start, nil
}

func (s *Scheduler) remove(id uint64) {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
}

// Flush stops and discards every active source and resets the schedule
// clock to zero. Models barge-in: queued audio that has not started is
// never played.
func (s *Scheduler) Flush() int {
	s.mu.Lock()
	sources := make([]Source, 0, len(s.active))
	for _, src := range s.active {
		sources = append(sources, src)
	}
	s.active = make(map[uint64]Source)
	s.nextStart = 0
	s.mu.Unlock()

	for _, src := range sources {
		src.Stop()
	}
	return len(sources)
}

func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Scheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}
