package knowledge

import (
	"log/slog"
	"net/http"

	"github.com/careloop/careloop/internal/dto"
	"github.com/careloop/careloop/internal/shared"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	index  *Index
	logger *slog.Logger
}

func NewHandler(index *Index, logger *slog.Logger) *Handler {
	return &Handler{
		index:  index,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/documents", h.Ingest)
	g.DELETE("/documents/:id", h.Delete)
	g.POST("/query", h.Query)
	g.GET("/stats", h.Stats)
}

// @Summary      Ingest a document
// @Description  Chunks and embeds a document into the owner's knowledge index
// @Tags         knowledge
// @Accept       json
// @Produce      json
// @Param        request  body      dto.IngestDocumentRequest  true  "Document to ingest"
// @Success      201      {object}  dto.IngestDocumentResponse
// @Failure      400      {object}  shared.APIError
// @Failure      500      {object}  shared.APIError
// @Router       /knowledge/documents [post]
func (h *Handler) Ingest(c echo.Context) error {
	var req dto.IngestDocumentRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if req.OwnerID == "" {
		return shared.BadRequest("missing_owner_id", "owner_id is required")
	}
	if req.Text == "" {
		return shared.BadRequest("missing_text", "text is required")
	}
	if req.DocumentID == "" {
		req.DocumentID = uuid.New().String()
	}

	chunks, err := h.index.AddDocument(c.Request().Context(), req.OwnerID, req.DocumentID, req.Text)
	if err != nil {
		h.logger.Error("failed to ingest document", "error", err, "document_id", req.DocumentID)
		return shared.InternalError("ingest_failed", "failed to ingest document")
	}

	return c.JSON(http.StatusCreated, dto.IngestDocumentResponse{
		DocumentID: req.DocumentID,
		Chunks:     chunks,
	})
}

// @Summary      Remove a document
// @Description  Deletes every chunk of the document from the owner's index
// @Tags         knowledge
// @Param        id        path   string  true  "Document ID"
// @Param        owner_id  query  string  true  "Owner ID"
// @Success      204
// @Failure      400  {object}  shared.APIError
// @Failure      500  {object}  shared.APIError
// @Router       /knowledge/documents/{id} [delete]
func (h *Handler) Delete(c echo.Context) error {
	documentID := c.Param("id")
	ownerID := c.QueryParam("owner_id")
	if ownerID == "" {
		return shared.BadRequest("missing_owner_id", "owner_id is required")
	}

	if err := h.index.RemoveDocument(c.Request().Context(), ownerID, documentID); err != nil {
		h.logger.Error("failed to remove document", "error", err, "document_id", documentID)
		return shared.InternalError("delete_failed", "failed to remove document")
	}

	return c.NoContent(http.StatusNoContent)
}

// @Summary      Knowledge index stats
// @Description  Returns how many chunks the owner has ingested
// @Tags         knowledge
// @Produce      json
// @Param        owner_id  query     string  true  "Owner ID"
// @Success      200       {object}  dto.KnowledgeStatsResponse
// @Failure      400       {object}  shared.APIError
// @Failure      500       {object}  shared.APIError
// @Router       /knowledge/stats [get]
func (h *Handler) Stats(c echo.Context) error {
	ownerID := c.QueryParam("owner_id")
	if ownerID == "" {
		return shared.BadRequest("missing_owner_id", "owner_id is required")
	}

	count, err := h.index.ChunkCount(c.Request().Context(), ownerID)
	if err != nil {
		h.logger.Error("failed to count chunks", "error", err, "owner_id", ownerID)
		return shared.InternalError("stats_failed", "failed to load index stats")
	}

	return c.JSON(http.StatusOK, dto.KnowledgeStatsResponse{
		OwnerID: ownerID,
		Chunks:  count,
	})
}

// @Summary      Query the knowledge index
// @Description  Returns the owner's chunks most similar to the query text
// @Tags         knowledge
// @Accept       json
// @Produce      json
// @Param        request  body      dto.KnowledgeQueryRequest  true  "Query"
// @Success      200      {object}  dto.KnowledgeQueryResponse
// @Failure      400      {object}  shared.APIError
// @Failure      500      {object}  shared.APIError
// @Router       /knowledge/query [post]
func (h *Handler) Query(c echo.Context) error {
	var req dto.KnowledgeQueryRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if req.OwnerID == "" {
		return shared.BadRequest("missing_owner_id", "owner_id is required")
	}
	if req.Query == "" {
		return shared.BadRequest("missing_query", "query is required")
	}

	matches, err := h.index.Query(c.Request().Context(), req.OwnerID, req.Query, req.Limit)
	if err != nil {
		h.logger.Error("knowledge query failed", "error", err, "owner_id", req.OwnerID)
		return shared.InternalError("query_failed", "failed to query knowledge index")
	}

	response := make([]dto.KnowledgeMatch, len(matches))
	for i, m := range matches {
		response[i] = dto.KnowledgeMatch{
			DocumentID: m.Chunk.DocumentID,
			Seq:        m.Chunk.Seq,
			Content:    m.Chunk.Content,
			Score:      m.Score,
		}
	}

	return c.JSON(http.StatusOK, dto.KnowledgeQueryResponse{Matches: response})
}
