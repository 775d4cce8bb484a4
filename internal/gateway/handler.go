package gateway

import (
	"context"
	"log/slog"

	"github.com/careloop/careloop/internal/audio"
	"github.com/careloop/careloop/internal/channel"
	"github.com/careloop/careloop/internal/conversation"
	"github.com/careloop/careloop/internal/livesession"
	"github.com/labstack/echo/v4"
)

// Handler owns the realtime websocket endpoint. Each connection gets its
// own live session wired to the browser's microphone, camera, and
// speaker streams.
type Handler struct {
	manager     *livesession.Manager
	dialer      channel.Dialer
	tools       *livesession.ToolRegistry
	transcripts *conversation.Store
	session     channel.SessionConfig
	logger      *slog.Logger
}

func NewHandler(
	manager *livesession.Manager,
	dialer channel.Dialer,
	tools *livesession.ToolRegistry,
	transcripts *conversation.Store,
	session channel.SessionConfig,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		manager:     manager,
		dialer:      dialer,
		tools:       tools,
		transcripts: transcripts,
		session:     session,
		logger:      logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/realtime", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(c echo.Context) error {
	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return err
	}

	conn := newWSConn(ws, h.logger)
	capturer := newWSCapturer()
	frames := newWSFrameSource()
	output := newWSOutput(func(pcm []byte, sampleRate int) {
		conn.Send(&ServerMessage{
			Type:       ServerTypeAudio,
			Audio:      audio.EncodeBase64(pcm),
			SampleRate: sampleRate,
		})
	})

	var sessionID string
	session, err := h.manager.Create(livesession.Config{
		Dialer:   h.dialer,
		Capturer: capturer,
		Frames:   frames,
		Output:   output,
		Tools:    h.tools,
		Session:  h.session,
		Callbacks: livesession.Callbacks{
			OnInputDelta: func(delta string) {
				conn.Send(&ServerMessage{Type: ServerTypeInputTranscript, Text: delta})
			},
			OnOutputDelta: func(delta string) {
				conn.Send(&ServerMessage{Type: ServerTypeOutputTranscript, Text: delta})
			},
			OnTurn: func(turn channel.Turn) {
				conn.Send(&ServerMessage{Type: ServerTypeTurn, Turn: turn})
				if h.transcripts != nil {
					if err := h.transcripts.AppendTurn(context.Background(), sessionID, turn); err != nil {
						h.logger.Error("failed to persist turn", "error", err, "session_id", sessionID)
					}
				}
			},
			OnNotice: func(text string) {
				conn.Send(&ServerMessage{Type: ServerTypeNotice, Text: text})
			},
			OnClosed: func(cause error) {
				msg := &ServerMessage{Type: ServerTypeClosed}
				if cause != nil {
					msg.Error = cause.Error()
				}
				conn.Send(msg)
				conn.Close()
			},
		},
	})
	if err != nil {
		h.logger.Error("failed to create live session", "error", err)
		_ = conn.Close()
		return nil
	}
	sessionID = session.SessionID()

	go conn.writePump()

	if err := session.Connect(c.Request().Context()); err != nil {
		h.logger.Error("live session connect failed", "error", err, "session_id", sessionID)
		conn.Send(&ServerMessage{Type: ServerTypeClosed, Error: err.Error()})
		h.manager.Remove(sessionID)
		_ = conn.Close()
		return nil
	}

	h.logger.Info("realtime client connected", "session_id", sessionID)

	conn.readPump(func(msg ClientMessage) {
		h.dispatch(c.Request().Context(), session, capturer, frames, msg)
	})

	h.manager.Remove(sessionID)
	h.logger.Info("realtime client disconnected", "session_id", sessionID)
	return nil
}

func (h *Handler) dispatch(
	ctx context.Context,
	session *livesession.LiveSession,
	capturer *wsCapturer,
	frames *wsFrameSource,
	msg ClientMessage,
) {
	switch msg.Type {
	case ClientTypeAudio:
		pcm, err := audio.DecodeBase64(msg.Audio)
		if err != nil {
			h.logger.Warn("bad audio payload", "error", err)
			return
		}
		capturer.Push(pcm)

	case ClientTypeText:
		if msg.Text == "" {
			return
		}
		if err := session.SendText(ctx, msg.Text); err != nil {
			h.logger.Warn("failed to forward text", "error", err)
		}

	case ClientTypeCamera:
		session.SetCameraEnabled(msg.Enabled)

	case ClientTypeFrame:
		frame, err := audio.DecodeBase64(msg.Frame)
		if err != nil {
			h.logger.Warn("bad camera frame payload", "error", err)
			return
		}
		frames.Set(frame)

	case ClientTypeAttachment:
		if msg.Name != "" {
			session.NoteAttachment(msg.Name)
		}

	default:
		h.logger.Warn("unknown client message type", "type", msg.Type)
	}
}
