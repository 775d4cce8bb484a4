package livesession

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/careloop/careloop/internal/audio"
	"github.com/careloop/careloop/internal/channel"
	"github.com/careloop/careloop/internal/shared"
)

type fakeCapturer struct {
	mu       sync.Mutex
	frames   chan []float32
	startErr error
	stops    int
}

func newFakeCapturer() *fakeCapturer {
	return &fakeCapturer{frames: make(chan []float32, 16)}
}

func (c *fakeCapturer) Start(ctx context.Context) (<-chan []float32, error) {
	if c.startErr != nil {
		return nil, c.startErr
	}
	return c.frames, nil
}

func (c *fakeCapturer) Stop() error {
	c.mu.Lock()
	c.stops++
	c.mu.Unlock()
	return nil
}

func (c *fakeCapturer) StopCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stops
}

type fakeChannel struct {
	mu          sync.Mutex
	events      chan channel.Event
	sent        []channel.MediaFrame
	sentTexts   []string
	toolResults []channel.ToolResult
	closed      bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan channel.Event, 32)}
}

func (c *fakeChannel) Send(ctx context.Context, frame channel.MediaFrame) error {
	c.mu.Lock()
	c.sent = append(c.sent, frame)
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) SendText(ctx context.Context, text string) error {
	c.mu.Lock()
	c.sentTexts = append(c.sentTexts, text)
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) SendToolResult(ctx context.Context, result channel.ToolResult) error {
	c.mu.Lock()
	c.toolResults = append(c.toolResults, result)
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) Events() <-chan channel.Event { return c.events }

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) Sent() []channel.MediaFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]channel.MediaFrame, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeChannel) ToolResults() []channel.ToolResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]channel.ToolResult, len(c.toolResults))
	copy(out, c.toolResults)
	return out
}

func (c *fakeChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeDialer struct {
	ch      *fakeChannel
	dialErr error
}

func (d *fakeDialer) Connect(ctx context.Context, cfg channel.SessionConfig) (channel.Channel, error) {
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return d.ch, nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestSession(t *testing.T, cb Callbacks) (*LiveSession, *fakeCapturer, *fakeChannel) {
	t.Helper()
	capturer := newFakeCapturer()
	ch := newFakeChannel()
	s, err := New(Config{
		Dialer:    &fakeDialer{ch: ch},
		Capturer:  capturer,
		Output:    &fakeOutput{},
		Callbacks: cb,
	}, nil)
	if err != nil {
		t.Fatalf("new session failed: %v", err)
	}
	return s, capturer, ch
}

func TestSession_ConnectTransitionsToActive(t *testing.T) {
	s, _, _ := newTestSession(t, Callbacks{})
	defer s.Stop()

	if s.State() != StateIdle {
		t.Fatalf("expected idle before connect, got %s", s.State())
	}
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if s.State() != StateActive {
		t.Errorf("expected active after connect, got %s", s.State())
	}
	if err := s.Connect(context.Background()); !errors.Is(err, shared.ErrConflict) {
		t.Errorf("expected conflict on double connect, got %v", err)
	}
}

func TestSession_CaptureFailureIsStartupError(t *testing.T) {
	capturer := newFakeCapturer()
	capturer.startErr = errors.New("permission denied")
	s, err := New(Config{
		Dialer:   &fakeDialer{ch: newFakeChannel()},
		Capturer: capturer,
		Output:   &fakeOutput{},
	}, nil)
	if err != nil {
		t.Fatalf("new session failed: %v", err)
	}

	err = s.Connect(context.Background())
	var startupErr *shared.StartupError
	if !errors.As(err, &startupErr) {
		t.Fatalf("expected StartupError, got %v", err)
	}
	if startupErr.Stage != "capture" {
		t.Errorf("expected capture stage, got %s", startupErr.Stage)
	}
	if s.State() != StateIdle {
		t.Errorf("expected idle after startup failure, got %s", s.State())
	}
}

func TestSession_DialFailureReleasesCapturer(t *testing.T) {
	capturer := newFakeCapturer()
	s, err := New(Config{
		Dialer:   &fakeDialer{ch: newFakeChannel(), dialErr: errors.New("unreachable")},
		Capturer: capturer,
		Output:   &fakeOutput{},
	}, nil)
	if err != nil {
		t.Fatalf("new session failed: %v", err)
	}

	err = s.Connect(context.Background())
	var startupErr *shared.StartupError
	if !errors.As(err, &startupErr) {
		t.Fatalf("expected StartupError, got %v", err)
	}
	if startupErr.Stage != "channel" {
		t.Errorf("expected channel stage, got %s", startupErr.Stage)
	}
	if capturer.StopCount() == 0 {
		t.Error("capturer not released after dial failure")
	}
	if s.State() != StateIdle {
		t.Errorf("expected idle so connect can be retried, got %s", s.State())
	}
}

func TestSession_CaptureFramesAreConvertedAndSent(t *testing.T) {
	s, capturer, ch := newTestSession(t, Callbacks{})
	defer s.Stop()
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	frame := make([]float32, audio.CaptureFrameSamples)
	frame[0] = 0.5
	capturer.frames <- frame

	waitFor(t, "capture frame send", func() bool { return len(ch.Sent()) > 0 })

	sent := ch.Sent()[0]
	if sent.MIMEType != "audio/pcm;rate=16000" {
		t.Errorf("unexpected mime type %q", sent.MIMEType)
	}
	if len(sent.Data) != audio.CaptureFrameSamples*2 {
		t.Errorf("expected %d bytes, got %d", audio.CaptureFrameSamples*2, len(sent.Data))
	}
	samples := audio.PCMBytesToInt16(sent.Data)
	if samples[0] != 16384 {
		t.Errorf("expected sample 16384, got %d", samples[0])
	}
}

func TestSession_TurnFinalization(t *testing.T) {
	var mu sync.Mutex
	var turns []channel.Turn
	s, _, ch := newTestSession(t, Callbacks{
		OnTurn: func(turn channel.Turn) {
			mu.Lock()
			turns = append(turns, turn)
			mu.Unlock()
		},
	})
	defer s.Stop()
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	ch.events <- channel.Event{Type: channel.EventInputTranscript, TextDelta: "how is "}
	ch.events <- channel.Event{Type: channel.EventInputTranscript, TextDelta: "my sleep"}
	ch.events <- channel.Event{Type: channel.EventOutputTranscript, TextDelta: "Your sleep "}
	ch.events <- channel.Event{Type: channel.EventOutputTranscript, TextDelta: "improved."}
	ch.events <- channel.Event{Type: channel.EventTurnComplete}

	waitFor(t, "turn finalization", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(turns) == 1
	})

	mu.Lock()
	turn := turns[0]
	mu.Unlock()
	if turn.UserText != "how is my sleep" {
		t.Errorf("unexpected user text %q", turn.UserText)
	}
	if turn.BotText != "Your sleep improved." {
		t.Errorf("unexpected bot text %q", turn.BotText)
	}

	if cur := s.acc.Current(); cur.UserText != "" || cur.BotText != "" {
		t.Errorf("accumulators not reset after turn complete: %+v", cur)
	}
	if len(s.Transcript()) != 1 {
		t.Errorf("expected 1 turn in transcript, got %d", len(s.Transcript()))
	}
}

func TestSession_InterruptFlushesPlayback(t *testing.T) {
	s, _, ch := newTestSession(t, Callbacks{})
	defer s.Stop()
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	pcm := audio.Int16ToPCMBytes(make([]int16, 2400))
	ch.events <- channel.Event{Type: channel.EventAudio, Audio: channel.AudioChunk{Data: pcm, SampleRate: 24000}}
	ch.events <- channel.Event{Type: channel.EventAudio, Audio: channel.AudioChunk{Data: pcm, SampleRate: 24000}}

	waitFor(t, "audio scheduled", func() bool { return s.scheduler.ActiveCount() == 2 })
	if s.scheduler.NextStart() == 0 {
		t.Fatal("nextStart should have advanced")
	}

	ch.events <- channel.Event{Type: channel.EventInterrupted}

	waitFor(t, "interrupt flush", func() bool { return s.scheduler.ActiveCount() == 0 })
	if s.scheduler.NextStart() != 0 {
		t.Errorf("nextStart should be 0 after interrupt, got %v", s.scheduler.NextStart())
	}
	if s.State() != StateActive {
		t.Errorf("session should stay active across interrupts, got %s", s.State())
	}
}

func TestSession_ToolCallWithResponse(t *testing.T) {
	s, _, ch := newTestSession(t, Callbacks{})
	defer s.Stop()

	s.cfg.Tools.Register(Tool{
		Name:            "remember_user_details",
		ExpectsResponse: true,
		Handle: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"status": "saved"}, nil
		},
	})

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	ch.events <- channel.Event{Type: channel.EventToolCall, Call: &channel.ToolCall{
		ID:   "call_42",
		Name: "remember_user_details",
		Args: map[string]any{"key": "allergy", "value": "peanuts"},
	}}

	waitFor(t, "tool result", func() bool { return len(ch.ToolResults()) == 1 })

	res := ch.ToolResults()[0]
	if res.ID != "call_42" {
		t.Errorf("result not correlated to call id, got %q", res.ID)
	}
	if res.Output["status"] != "saved" {
		t.Errorf("unexpected output %v", res.Output)
	}
	if calls := s.acc.Current().ToolCalls; len(calls) != 1 {
		t.Errorf("tool call not recorded on current turn: %v", calls)
	}
}

func TestSession_FireAndForgetToolAttachesArtifact(t *testing.T) {
	s, _, ch := newTestSession(t, Callbacks{})
	defer s.Stop()

	s.cfg.Tools.Register(Tool{
		Name:            "create_document",
		ExpectsResponse: false,
		Handle: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"document": "# Care Plan", "attachment_name": "plan.md"}, nil
		},
	})

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	ch.events <- channel.Event{Type: channel.EventToolCall, Call: &channel.ToolCall{
		ID:   "call_7",
		Name: "create_document",
	}}

	waitFor(t, "artifact attach", func() bool {
		return s.acc.Current().GeneratedDocument != ""
	})

	if len(ch.ToolResults()) != 0 {
		t.Error("fire-and-forget tool must not send a protocol response")
	}
	cur := s.acc.Current()
	if cur.GeneratedDocument != "# Care Plan" || cur.AttachmentName != "plan.md" {
		t.Errorf("artifact not attached: %+v", cur)
	}
}

func TestSession_ToolErrorIsNonFatal(t *testing.T) {
	var mu sync.Mutex
	var notices []string
	s, _, ch := newTestSession(t, Callbacks{
		OnNotice: func(text string) {
			mu.Lock()
			notices = append(notices, text)
			mu.Unlock()
		},
	})
	defer s.Stop()

	s.cfg.Tools.Register(Tool{
		Name:            "search_health_records",
		ExpectsResponse: true,
		Handle: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return nil, errors.New("index unavailable")
		},
	})

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	ch.events <- channel.Event{Type: channel.EventToolCall, Call: &channel.ToolCall{
		ID:   "call_9",
		Name: "search_health_records",
	}}

	waitFor(t, "tool failure notice", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(notices) == 1
	})

	mu.Lock()
	notice := notices[0]
	mu.Unlock()
	if !strings.Contains(notice, "search_health_records") {
		t.Errorf("notice should name the tool, got %q", notice)
	}
	if s.State() != StateActive {
		t.Errorf("tool failure must not close the session, got %s", s.State())
	}
}

func TestSession_TransportErrorClosesSession(t *testing.T) {
	var mu sync.Mutex
	var closedErr error
	closed := false
	s, capturer, ch := newTestSession(t, Callbacks{
		OnClosed: func(err error) {
			mu.Lock()
			closed = true
			closedErr = err
			mu.Unlock()
		},
	})
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	ch.events <- channel.Event{Type: channel.EventError, Err: errors.New("stream reset")}

	waitFor(t, "session close", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return closed
	})

	mu.Lock()
	err := closedErr
	mu.Unlock()
	var transportErr *shared.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if s.State() != StateClosed {
		t.Errorf("expected closed state, got %s", s.State())
	}
	if capturer.StopCount() == 0 {
		t.Error("capturer not released on transport failure")
	}
	if !ch.Closed() {
		t.Error("channel not closed on transport failure")
	}
	if err := s.SendText(context.Background(), "hi"); !errors.Is(err, shared.ErrSessionClosed) {
		t.Errorf("sends after close must fail, got %v", err)
	}
	if err := s.Connect(context.Background()); !errors.Is(err, shared.ErrSessionClosed) {
		t.Errorf("closed is terminal, got %v", err)
	}
}

func TestSession_StopIsIdempotent(t *testing.T) {
	s, capturer, ch := newTestSession(t, Callbacks{})
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	s.Stop()
	s.Stop()

	if s.State() != StateClosed {
		t.Errorf("expected closed, got %s", s.State())
	}
	if capturer.StopCount() == 0 {
		t.Error("capturer not stopped")
	}
	if !ch.Closed() {
		t.Error("channel not closed")
	}
}

func TestSession_StopOnUnconnectedSessionIsSafe(t *testing.T) {
	s, _, _ := newTestSession(t, Callbacks{})
	s.Stop()
	if s.State() != StateClosed {
		t.Errorf("expected closed, got %s", s.State())
	}
}

func TestSession_SendText(t *testing.T) {
	s, _, ch := newTestSession(t, Callbacks{})
	defer s.Stop()
	if err := s.SendText(context.Background(), "early"); !errors.Is(err, shared.ErrSessionClosed) {
		t.Errorf("send before connect should fail, got %v", err)
	}

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := s.SendText(context.Background(), "hello"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	ch.mu.Lock()
	texts := ch.sentTexts
	ch.mu.Unlock()
	if len(texts) != 1 || texts[0] != "hello" {
		t.Errorf("unexpected sent texts %v", texts)
	}
}

type slowDialer struct {
	ch      *fakeChannel
	release chan struct{}
}

func (d *slowDialer) Connect(ctx context.Context, cfg channel.SessionConfig) (channel.Channel, error) {
	<-d.release
	return d.ch, nil
}

func TestSession_StopDuringConnectStaysClosed(t *testing.T) {
	capturer := newFakeCapturer()
	ch := newFakeChannel()
	dialer := &slowDialer{ch: ch, release: make(chan struct{})}
	s, err := New(Config{
		Dialer:   dialer,
		Capturer: capturer,
		Output:   &fakeOutput{},
	}, nil)
	if err != nil {
		t.Fatalf("new session failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.Connect(context.Background()) }()
	waitFor(t, "dial in flight", func() bool { return s.State() == StateConnecting })

	s.Stop()
	close(dialer.release)

	if err := <-errCh; !errors.Is(err, shared.ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed from connect, got %v", err)
	}
	if s.State() != StateClosed {
		t.Errorf("closed is terminal, got %s", s.State())
	}
	waitFor(t, "channel release", func() bool { return ch.Closed() })
	if capturer.StopCount() == 0 {
		t.Error("capturer not released after stop")
	}
}

func TestSession_StopDiscardsPartialTurn(t *testing.T) {
	s, _, ch := newTestSession(t, Callbacks{})
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	ch.events <- channel.Event{Type: channel.EventInputTranscript, TextDelta: "how do I"}
	waitFor(t, "delta accumulation", func() bool { return s.acc.Current().UserText == "how do I" })

	s.Stop()
	if cur := s.acc.Current(); cur.UserText != "" {
		t.Errorf("partial turn should be discarded on stop, got %q", cur.UserText)
	}
	if got := len(s.Transcript()); got != 0 {
		t.Errorf("partial turn must never reach the log, got %d turns", got)
	}
}

func TestSession_TurnCapturesCameraFrame(t *testing.T) {
	capturer := newFakeCapturer()
	ch := newFakeChannel()
	frames := &fakeFrameSource{}
	frames.SetFrame([]byte{0xFF, 0xD8, 0x01})

	var mu sync.Mutex
	var turns []channel.Turn
	s, err := New(Config{
		Dialer:   &fakeDialer{ch: ch},
		Capturer: capturer,
		Frames:   frames,
		Output:   &fakeOutput{},
		Callbacks: Callbacks{OnTurn: func(turn channel.Turn) {
			mu.Lock()
			turns = append(turns, turn)
			mu.Unlock()
		}},
	}, nil)
	if err != nil {
		t.Fatalf("new session failed: %v", err)
	}
	defer s.Stop()
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	s.SetCameraEnabled(true)

	ch.events <- channel.Event{Type: channel.EventOutputTranscript, TextDelta: "noted"}
	ch.events <- channel.Event{Type: channel.EventTurnComplete}
	waitFor(t, "turn finalization", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(turns) == 1
	})

	mu.Lock()
	first := turns[0]
	mu.Unlock()
	if len(first.UserImageCapture) != 3 || first.UserImageCapture[2] != 0x01 {
		t.Errorf("expected the latest camera frame on the turn, got %v", first.UserImageCapture)
	}

	s.SetCameraEnabled(false)
	ch.events <- channel.Event{Type: channel.EventOutputTranscript, TextDelta: "again"}
	ch.events <- channel.Event{Type: channel.EventTurnComplete}
	waitFor(t, "second turn", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(turns) == 2
	})

	mu.Lock()
	second := turns[1]
	mu.Unlock()
	if second.UserImageCapture != nil {
		t.Error("camera disabled, turn should carry no image capture")
	}
}
