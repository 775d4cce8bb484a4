package channel

import "time"

type EventType string

const (
	EventInputTranscript  EventType = "input_transcript"
	EventOutputTranscript EventType = "output_transcript"
	EventAudio            EventType = "audio"
	EventTurnComplete     EventType = "turn_complete"
	EventInterrupted      EventType = "interrupted"
	EventToolCall         EventType = "tool_call"
	EventError            EventType = "error"
	EventClosed           EventType = "closed"
)

// Event is one message received from the remote conversational endpoint.
// Exactly the fields relevant to Type are populated.
type Event struct {
	Type      EventType
	TextDelta string
	Audio     AudioChunk
	Call      *ToolCall
	Err       error
}

// AudioChunk is a decoded model audio payload. Data is raw little-endian
// PCM16; SampleRate comes from the chunk's MIME descriptor.
type AudioChunk struct {
	Data       []byte
	SampleRate int
}

// MediaFrame is an outbound capture frame: PCM16 audio tagged
// audio/pcm;rate=<n> or a JPEG camera frame tagged image/jpeg.
type MediaFrame struct {
	MIMEType string
	Data     []byte
}

type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

type ToolResult struct {
	ID     string
	Name   string
	Output map[string]any
}

type SessionConfig struct {
	SystemPrompt string
	Voice        string
	Tools        []ToolDecl
}

// ToolDecl describes one tool exposed to the model: its name, a short
// description, and its parameter names.
type ToolDecl struct {
	Name        string
	Description string
	Parameters  map[string]string
}

type Turn struct {
	UserText          string     `json:"user_text"`
	BotText           string     `json:"bot_text"`
	UserImageCapture  []byte     `json:"user_image_capture,omitempty"`
	AttachmentName    string     `json:"attachment_name,omitempty"`
	GeneratedImageURL string     `json:"generated_image_url,omitempty"`
	GeneratedDocument string     `json:"generated_document,omitempty"`
	ToolCalls         []ToolCall `json:"tool_calls,omitempty"`
	CompletedAt       time.Time  `json:"completed_at"`
}
