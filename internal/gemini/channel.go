package gemini

import (
	"context"
	"log/slog"
	"sync"

	"github.com/careloop/careloop/internal/audio"
	"github.com/careloop/careloop/internal/channel"
	"google.golang.org/genai"
)

const eventBufferSize = 256

// Dialer opens realtime audio sessions against the Gemini Live API and
// adapts its server messages to channel events.
type Dialer struct {
	client *genai.Client
	model  string
	log    *slog.Logger
}

func NewDialer(client *genai.Client, model string, log *slog.Logger) *Dialer {
	if model == "" {
		model = DefaultLiveModel
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dialer{
		client: client,
		model:  model,
		log:    log.With("component", "gemini_dialer"),
	}
}

func (d *Dialer) Connect(ctx context.Context, cfg channel.SessionConfig) (channel.Channel, error) {
	connectCfg := &genai.LiveConnectConfig{
		ResponseModalities:       []genai.Modality{genai.ModalityAudio},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
	if cfg.SystemPrompt != "" {
		connectCfg.SystemInstruction = genai.NewContentFromText(cfg.SystemPrompt, genai.RoleUser)
	}
	if cfg.Voice != "" {
		connectCfg.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	if len(cfg.Tools) > 0 {
		connectCfg.Tools = []*genai.Tool{{FunctionDeclarations: toFunctionDeclarations(cfg.Tools)}}
	}

	session, err := d.client.Live.Connect(ctx, d.model, connectCfg)
	if err != nil {
		return nil, err
	}

	ch := &liveChannel{
		session: session,
		events:  make(chan channel.Event, eventBufferSize),
		log:     d.log,
	}
	go ch.receive()
	return ch, nil
}

func toFunctionDeclarations(tools []channel.ToolDecl) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, tool := range tools {
		properties := make(map[string]*genai.Schema, len(tool.Parameters))
		for name, description := range tool.Parameters {
			properties[name] = &genai.Schema{
				Type:        genai.TypeString,
				Description: description,
			}
		}
		decl := &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
		}
		if len(properties) > 0 {
			decl.Parameters = &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
			}
		}
		decls[i] = decl
	}
	return decls
}

type liveChannel struct {
	session *genai.Session
	events  chan channel.Event
	log     *slog.Logger

	mu     sync.Mutex
	closed bool

	closeOnce sync.Once
}

func (c *liveChannel) Send(ctx context.Context, frame channel.MediaFrame) error {
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{
			MIMEType: frame.MIMEType,
			Data:     frame.Data,
		},
	})
}

func (c *liveChannel) SendText(ctx context.Context, text string) error {
	return c.session.SendClientContent(genai.LiveClientContentInput{
		Turns: []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
	})
}

func (c *liveChannel) SendToolResult(ctx context.Context, result channel.ToolResult) error {
	return c.session.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: []*genai.FunctionResponse{{
			ID:       result.ID,
			Name:     result.Name,
			Response: result.Output,
		}},
	})
}

func (c *liveChannel) Events() <-chan channel.Event {
	return c.events
}

func (c *liveChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		err = c.session.Close()
	})
	return err
}

func (c *liveChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// receive pumps server messages into the event channel until the session
// ends. A receive error after a local Close is a normal shutdown, not a
// transport failure.
func (c *liveChannel) receive() {
	defer close(c.events)

	for {
		msg, err := c.session.Receive()
		if err != nil {
			if c.isClosed() {
				c.emit(channel.Event{Type: channel.EventClosed})
				return
			}
			c.emit(channel.Event{Type: channel.EventError, Err: err})
			return
		}
		c.translate(msg)
	}
}

func (c *liveChannel) translate(msg *genai.LiveServerMessage) {
	if msg == nil {
		return
	}

	if content := msg.ServerContent; content != nil {
		if content.InputTranscription != nil && content.InputTranscription.Text != "" {
			c.emit(channel.Event{Type: channel.EventInputTranscript, TextDelta: content.InputTranscription.Text})
		}
		if content.OutputTranscription != nil && content.OutputTranscription.Text != "" {
			c.emit(channel.Event{Type: channel.EventOutputTranscript, TextDelta: content.OutputTranscription.Text})
		}
		if content.Interrupted {
			c.emit(channel.Event{Type: channel.EventInterrupted})
		}
		if content.ModelTurn != nil {
			for _, part := range content.ModelTurn.Parts {
				if part.InlineData == nil || len(part.InlineData.Data) == 0 {
					continue
				}
				c.emit(channel.Event{
					Type: channel.EventAudio,
					Audio: channel.AudioChunk{
						Data:       part.InlineData.Data,
						SampleRate: audio.ParsePCMRate(part.InlineData.MIMEType, audio.PlaybackRate),
					},
				})
			}
		}
		if content.TurnComplete {
			c.emit(channel.Event{Type: channel.EventTurnComplete})
		}
	}

	if toolCall := msg.ToolCall; toolCall != nil {
		for _, fc := range toolCall.FunctionCalls {
			if fc == nil {
				continue
			}
			c.emit(channel.Event{
				Type: channel.EventToolCall,
				Call: &channel.ToolCall{
					ID:   fc.ID,
					Name: fc.Name,
					Args: fc.Args,
				},
			})
		}
	}
}

// emit drops events when the consumer falls behind rather than stalling
// the receive pump.
func (c *liveChannel) emit(evt channel.Event) {
	select {
	case c.events <- evt:
	default:
		c.log.Warn("event buffer full, dropping event", "type", string(evt.Type))
	}
}
