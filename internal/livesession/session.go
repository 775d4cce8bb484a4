package livesession

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/careloop/careloop/internal/audio"
	"github.com/careloop/careloop/internal/channel"
	"github.com/careloop/careloop/internal/shared"
	"github.com/google/uuid"
)

type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateActive     State = "active"
	StateClosed     State = "closed"
)

const outboundBufferSize = 64

// Callbacks deliver session output to the surrounding layer. All fields
// are optional. OnNotice carries non-fatal, toast-level messages (tool
// failures); OnClosed fires exactly once with the terminal error, nil on
// clean stop.
type Callbacks struct {
	OnInputDelta  func(delta string)
	OnOutputDelta func(delta string)
	OnTurn        func(turn channel.Turn)
	OnNotice      func(text string)
	OnClosed      func(err error)
}

type Config struct {
	Dialer        channel.Dialer
	Capturer      channel.Capturer
	Frames        channel.FrameSource
	Output        Output
	Tools         *ToolRegistry
	Session       channel.SessionConfig
	FrameInterval time.Duration
	Callbacks     Callbacks
}

// LiveSession owns one live audio/video conversation: microphone capture
// through playback scheduling, including tool-call round-tripping.
//
// State machine: Idle → Connecting → Active → Closed. A server interrupt
// flushes pending playback but stays Active. Closed is terminal: media
// devices and the channel are released and further sends fail.
type LiveSession struct {
	sessionID string
	cfg       Config
	log       *slog.Logger

	mu    sync.Mutex
	state State
	ch    channel.Channel

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	scheduler *Scheduler
	acc       *TurnAccumulator
	streamer  *frameStreamer
	outbound  chan channel.MediaFrame

	closeOnce sync.Once
}

func New(cfg Config, log *slog.Logger) (*LiveSession, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Dialer == nil {
		return nil, errors.New("livesession: dialer is required")
	}
	if cfg.Capturer == nil {
		return nil, errors.New("livesession: capturer is required")
	}
	if cfg.Output == nil {
		return nil, errors.New("livesession: output is required")
	}
	if cfg.Tools == nil {
		cfg.Tools = NewToolRegistry()
	}

	sessionID := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())

	s := &LiveSession{
		sessionID: sessionID,
		cfg:       cfg,
		log:       log.With("session_id", sessionID),
		state:     StateIdle,
		ctx:       ctx,
		cancel:    cancel,
		scheduler: NewScheduler(cfg.Output),
		acc:       NewTurnAccumulator(),
		outbound:  make(chan channel.MediaFrame, outboundBufferSize),
	}
	s.streamer = newFrameStreamer(cfg.Frames, cfg.FrameInterval, s.enqueue)
	return s, nil
}

func (s *LiveSession) SessionID() string {
	return s.sessionID
}

func (s *LiveSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns a copy of the finalized turn log.
func (s *LiveSession) Transcript() []channel.Turn {
	return s.acc.Log()
}

// Connect acquires the capture device and opens the remote channel. A
// failure at either stage is fatal to startup and is not retried; the
// session returns to Idle so the caller can invoke Connect again
// explicitly.
func (s *LiveSession) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return shared.ErrSessionClosed
	case StateConnecting, StateActive:
		s.mu.Unlock()
		return shared.ErrConflict
	}
	s.state = StateConnecting
	s.mu.Unlock()

	frames, err := s.cfg.Capturer.Start(s.ctx)
	if err != nil {
		s.returnToIdle()
		return &shared.StartupError{Stage: "capture", Err: err}
	}

	cfg := s.cfg.Session
	cfg.Tools = s.cfg.Tools.Declarations()
	ch, err := s.cfg.Dialer.Connect(ctx, cfg)
	if err != nil {
		if stopErr := s.cfg.Capturer.Stop(); stopErr != nil {
			s.log.Error("failed to stop capturer after dial failure", "error", stopErr)
		}
		s.returnToIdle()
		return &shared.StartupError{Stage: "channel", Err: err}
	}

	s.mu.Lock()
	if s.state == StateClosed {
		// Stop landed while the dial was in flight. Closed is terminal,
		// so release what the dial produced instead of going Active.
		s.mu.Unlock()
		if closeErr := ch.Close(); closeErr != nil {
			s.log.Error("failed to close channel dialed after stop", "error", closeErr)
		}
		if stopErr := s.cfg.Capturer.Stop(); stopErr != nil {
			s.log.Error("failed to stop capturer after stop", "error", stopErr)
		}
		return shared.ErrSessionClosed
	}
	s.ch = ch
	s.state = StateActive
	s.mu.Unlock()

	s.wg.Add(3)
	go s.captureLoop(frames)
	go s.sendLoop()
	go s.receiveLoop(ch)

	s.log.Info("live session connected", "tools", s.cfg.Tools.Len())
	return nil
}

// returnToIdle undoes a failed startup so Connect can be retried, unless
// the session was closed while starting up. Closed stays Closed.
func (s *LiveSession) returnToIdle() {
	s.mu.Lock()
	if s.state != StateClosed {
		s.state = StateIdle
	}
	s.mu.Unlock()
}

// captureLoop converts each capture frame to PCM16 and hands it to the
// send queue. It never blocks on the network: frames are fire-and-forget.
func (s *LiveSession) captureLoop(frames <-chan []float32) {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				s.fail(&shared.TransportError{Err: errors.New("capture stream ended")})
				return
			}
			pcm := audio.Float32ToInt16(frame)
			s.enqueue(channel.MediaFrame{
				MIMEType: audio.PCMMIMEType(audio.CaptureRate),
				Data:     audio.Int16ToPCMBytes(pcm),
			})
		}
	}
}

// enqueue drops the frame when the send queue is full so a slow network
// send never stalls the capture tick.
func (s *LiveSession) enqueue(frame channel.MediaFrame) {
	select {
	case s.outbound <- frame:
	default:
		s.log.Warn("outbound queue full, dropping frame", "mime_type", frame.MIMEType)
	}
}

func (s *LiveSession) sendLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case frame := <-s.outbound:
			s.mu.Lock()
			ch := s.ch
			s.mu.Unlock()
			if ch == nil {
				continue
			}
			if err := ch.Send(s.ctx, frame); err != nil {
				s.log.Error("failed to send media frame", "mime_type", frame.MIMEType, "error", err)
			}
		}
	}
}

func (s *LiveSession) receiveLoop(ch channel.Channel) {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case evt, ok := <-ch.Events():
			if !ok {
				s.fail(&shared.TransportError{Err: errors.New("channel closed unexpectedly")})
				return
			}
			if done := s.handleEvent(evt); done {
				return
			}
		}
	}
}

func (s *LiveSession) handleEvent(evt channel.Event) bool {
	switch evt.Type {
	case channel.EventInputTranscript:
		s.acc.AppendInput(evt.TextDelta)
		if s.cfg.Callbacks.OnInputDelta != nil {
			s.cfg.Callbacks.OnInputDelta(evt.TextDelta)
		}

	case channel.EventOutputTranscript:
		s.acc.AppendOutput(evt.TextDelta)
		if s.cfg.Callbacks.OnOutputDelta != nil {
			s.cfg.Callbacks.OnOutputDelta(evt.TextDelta)
		}

	case channel.EventAudio:
		pcm := audio.PCMBytesToInt16(evt.Audio.Data)
		if _, err := s.scheduler.Schedule(pcm, evt.Audio.SampleRate); err != nil {
			s.log.Error("failed to schedule playback", "error", err)
		}

	case channel.EventTurnComplete:
		if s.streamer.Running() && s.cfg.Frames != nil {
			if frame := s.cfg.Frames.Frame(); len(frame) > 0 {
				s.acc.SetUserImage(frame)
			}
		}
		turn := s.acc.Finalize()
		if s.cfg.Callbacks.OnTurn != nil {
			s.cfg.Callbacks.OnTurn(turn)
		}

	case channel.EventInterrupted:
		flushed := s.scheduler.Flush()
		s.log.Debug("playback interrupted", "flushed_sources", flushed)

	case channel.EventToolCall:
		if evt.Call != nil {
			call := *evt.Call
			s.acc.AddToolCall(call)
			go s.dispatchTool(call)
		}

	case channel.EventError:
		s.fail(&shared.TransportError{Err: evt.Err})
		return true

	case channel.EventClosed:
		if s.State() != StateClosed {
			s.fail(&shared.TransportError{Err: errors.New("remote closed the channel")})
		}
		return true
	}
	return false
}

// dispatchTool runs one tool handler. Handlers for distinct calls may run
// concurrently; each result is correlated back by its own call ID. Errors
// are caught per call and reported as notices, never fatal.
func (s *LiveSession) dispatchTool(call channel.ToolCall) {
	tool, ok := s.cfg.Tools.Lookup(call.Name)
	if !ok {
		s.log.Warn("unknown tool requested", "tool", call.Name, "call_id", call.ID)
		s.notify("requested tool is not available: " + call.Name)
		return
	}

	result, err := tool.Handle(s.ctx, call.Args)
	if err != nil {
		toolErr := &shared.ToolError{Tool: call.Name, Err: err}
		s.log.Error("tool handler failed", "tool", call.Name, "call_id", call.ID, "error", err)
		s.notify(toolErr.Error())
		return
	}

	if !tool.ExpectsResponse {
		s.attachArtifact(call.Name, result)
		return
	}

	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()
	if ch == nil {
		return
	}
	res := channel.ToolResult{ID: call.ID, Name: call.Name, Output: result}
	if err := ch.SendToolResult(s.ctx, res); err != nil {
		s.log.Error("failed to send tool result", "tool", call.Name, "call_id", call.ID, "error", err)
	}
}

// attachArtifact routes the output of a fire-and-forget tool onto the
// in-progress turn instead of the protocol.
func (s *LiveSession) attachArtifact(tool string, result map[string]any) {
	if result == nil {
		return
	}
	if url, ok := result["image_url"].(string); ok && url != "" {
		s.acc.AttachImageURL(url)
	}
	if doc, ok := result["document"].(string); ok && doc != "" {
		s.acc.AttachDocument(doc)
	}
	if name, ok := result["attachment_name"].(string); ok && name != "" {
		s.acc.SetAttachmentName(name)
	}
	s.log.Debug("tool artifact attached", "tool", tool)
}

func (s *LiveSession) notify(text string) {
	if s.cfg.Callbacks.OnNotice != nil {
		s.cfg.Callbacks.OnNotice(text)
	}
}

// SendText forwards a typed user message over the channel.
func (s *LiveSession) SendText(ctx context.Context, text string) error {
	s.mu.Lock()
	state := s.state
	ch := s.ch
	s.mu.Unlock()

	if state != StateActive || ch == nil {
		return shared.ErrSessionClosed
	}
	return ch.SendText(ctx, text)
}

// NoteAttachment records the name of a file the user attached so it
// appears on the finalized turn.
func (s *LiveSession) NoteAttachment(name string) {
	s.acc.SetAttachmentName(name)
}

// SetCameraEnabled toggles the 1 fps camera frame stream.
func (s *LiveSession) SetCameraEnabled(enabled bool) {
	if s.State() != StateActive {
		return
	}
	if enabled {
		s.streamer.Start()
	} else {
		s.streamer.Stop()
	}
}

func (s *LiveSession) CameraEnabled() bool {
	return s.streamer.Running()
}

// fail tears the session down after a transport-level fault. There is no
// automatic reconnect; the caller sees the error via OnClosed.
func (s *LiveSession) fail(err error) {
	s.shutdown(err)
}

// Stop closes the session cleanly. Idempotent and safe on a
// partially-initialized session.
func (s *LiveSession) Stop() {
	s.shutdown(nil)
	s.wg.Wait()
}

func (s *LiveSession) shutdown(cause error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		ch := s.ch
		s.ch = nil
		s.mu.Unlock()

		s.cancel()
		s.streamer.Stop()
		s.scheduler.Flush()
		// The in-progress turn never finalizes once the session closes.
		s.acc.ResetTurn()

		if err := s.cfg.Capturer.Stop(); err != nil {
			s.log.Error("failed to stop capturer", "error", err)
		}
		if ch != nil {
			if err := ch.Close(); err != nil {
				s.log.Error("failed to close channel", "error", err)
			}
		}

		if cause != nil {
			s.log.Error("live session closed", "error", cause)
		} else {
			s.log.Info("live session closed")
		}
		if s.cfg.Callbacks.OnClosed != nil {
			s.cfg.Callbacks.OnClosed(cause)
		}
	})
}
