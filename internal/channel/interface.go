package channel

import "context"

// Channel is one open bidirectional stream to the remote conversational
// endpoint. Events terminates with EventClosed (or EventError followed by
// EventClosed) when the remote side goes away.
type Channel interface {
	Send(ctx context.Context, frame MediaFrame) error
	SendText(ctx context.Context, text string) error
	SendToolResult(ctx context.Context, result ToolResult) error
	Events() <-chan Event
	Close() error
}

type Dialer interface {
	Connect(ctx context.Context, cfg SessionConfig) (Channel, error)
}

// Capturer is a microphone-like device producing fixed-size float32 sample
// frames at the capture rate. Start may fail with permission or
// device-not-found errors; those are fatal to session startup.
type Capturer interface {
	Start(ctx context.Context) (<-chan []float32, error)
	Stop() error
}

// FrameSource yields the most recent camera frame as encoded JPEG bytes.
// Returns nil when no frame is available yet.
type FrameSource interface {
	Frame() []byte
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
