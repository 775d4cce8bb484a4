package conversation

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/careloop/careloop/internal/dto"
	"github.com/careloop/careloop/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/:session_id", h.Get)
	g.DELETE("/:session_id", h.Delete)
}

// @Summary      Get a conversation transcript
// @Description  Returns the finalized turns of a live session
// @Tags         conversations
// @Produce      json
// @Param        session_id  path      string  true  "Session ID"
// @Success      200         {object}  dto.ConversationResponse
// @Failure      500         {object}  shared.APIError
// @Router       /conversations/{session_id} [get]
func (h *Handler) Get(c echo.Context) error {
	sessionID := c.Param("session_id")

	turns, err := h.store.List(c.Request().Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load transcript", "error", err, "session_id", sessionID)
		return shared.InternalError("get_failed", "failed to load transcript")
	}

	response := make([]dto.TurnResponse, len(turns))
	for i, turn := range turns {
		response[i] = dto.TurnResponse{
			UserText:          turn.UserText,
			BotText:           turn.BotText,
			AttachmentName:    turn.AttachmentName,
			GeneratedImageURL: turn.GeneratedImageURL,
			GeneratedDocument: turn.GeneratedDocument,
			ToolCallCount:     len(turn.ToolCalls),
			CompletedAt:       turn.CompletedAt.Format(time.RFC3339),
		}
	}

	return c.JSON(http.StatusOK, dto.ConversationResponse{
		SessionID: sessionID,
		Turns:     response,
	})
}

// @Summary      Delete a conversation transcript
// @Tags         conversations
// @Param        session_id  path  string  true  "Session ID"
// @Success      204
// @Failure      500  {object}  shared.APIError
// @Router       /conversations/{session_id} [delete]
func (h *Handler) Delete(c echo.Context) error {
	sessionID := c.Param("session_id")

	if err := h.store.Delete(c.Request().Context(), sessionID); err != nil {
		h.logger.Error("failed to delete transcript", "error", err, "session_id", sessionID)
		return shared.InternalError("delete_failed", "failed to delete transcript")
	}

	return c.NoContent(http.StatusNoContent)
}
