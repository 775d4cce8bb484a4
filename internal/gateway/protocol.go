package gateway

// Client message types accepted on the realtime websocket.
const (
	ClientTypeAudio      = "audio"
	ClientTypeText       = "text"
	ClientTypeCamera     = "camera"
	ClientTypeFrame      = "frame"
	ClientTypeAttachment = "attachment"
)

// Server message types emitted on the realtime websocket.
const (
	ServerTypeInputTranscript  = "transcript_input"
	ServerTypeOutputTranscript = "transcript_output"
	ServerTypeAudio            = "audio"
	ServerTypeNotice           = "notice"
	ServerTypeTurn             = "turn"
	ServerTypeClosed           = "closed"
)

// ClientMessage is one inbound JSON frame from the browser. Audio and
// camera frames carry base64 payloads: little-endian PCM16 at 16kHz for
// audio, JPEG for frames.
type ClientMessage struct {
	Type    string `json:"type"`
	Audio   string `json:"audio,omitempty"`
	Text    string `json:"text,omitempty"`
	Enabled bool   `json:"enabled,omitempty"`
	Frame   string `json:"frame,omitempty"`
	Name    string `json:"name,omitempty"`
}

// ServerMessage is one outbound JSON frame to the browser. Audio carries
// base64 PCM16 at the given sample rate, ready for scheduling.
type ServerMessage struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Audio      string `json:"audio,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Turn       any    `json:"turn,omitempty"`
	Error      string `json:"error,omitempty"`
}
