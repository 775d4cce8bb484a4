package livesession

import (
	"sync"
	"time"

	"github.com/careloop/careloop/internal/channel"
)

// TurnAccumulator gathers one in-progress exchange: transcription deltas
// concatenated in arrival order plus any tool calls and generated
// artifacts. Finalize moves the accumulated turn into the append-only log
// as a single step, so partial text never appears in the log and the
// accumulators are exactly empty afterwards.
type TurnAccumulator struct {
	mu  sync.Mutex
	cur channel.Turn
	log []channel.Turn
}

func NewTurnAccumulator() *TurnAccumulator {
	return &TurnAccumulator{}
}

func (a *TurnAccumulator) AppendInput(delta string) {
	a.mu.Lock()
	a.cur.UserText += delta
	a.mu.Unlock()
}

func (a *TurnAccumulator) AppendOutput(delta string) {
	a.mu.Lock()
	a.cur.BotText += delta
	a.mu.Unlock()
}

func (a *TurnAccumulator) AddToolCall(call channel.ToolCall) {
	a.mu.Lock()
	a.cur.ToolCalls = append(a.cur.ToolCalls, call)
	a.mu.Unlock()
}

func (a *TurnAccumulator) SetUserImage(jpeg []byte) {
	a.mu.Lock()
	a.cur.UserImageCapture = jpeg
	a.mu.Unlock()
}

func (a *TurnAccumulator) SetAttachmentName(name string) {
	a.mu.Lock()
	a.cur.AttachmentName = name
	a.mu.Unlock()
}

func (a *TurnAccumulator) AttachImageURL(url string) {
	a.mu.Lock()
	a.cur.GeneratedImageURL = url
	a.mu.Unlock()
}

func (a *TurnAccumulator) AttachDocument(doc string) {
	a.mu.Lock()
	a.cur.GeneratedDocument = doc
	a.mu.Unlock()
}

// Finalize seals the current turn, appends it to the log, and resets all
// accumulators for the next turn.
func (a *TurnAccumulator) Finalize() channel.Turn {
	a.mu.Lock()
	defer a.mu.Unlock()

	turn := a.cur
	turn.CompletedAt = time.Now()
	a.log = append(a.log, turn)
	a.cur = channel.Turn{}
	return turn
}

func (a *TurnAccumulator) ResetTurn() {
	a.mu.Lock()
	a.cur = channel.Turn{}
	a.mu.Unlock()
}

// Current returns a snapshot of the in-progress turn.
func (a *TurnAccumulator) Current() channel.Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cur
}

// Log returns a copy of the finalized transcript log.
func (a *TurnAccumulator) Log() []channel.Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]channel.Turn, len(a.log))
	copy(out, a.log)
	return out
}
