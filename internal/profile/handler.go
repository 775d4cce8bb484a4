package profile

import (
	"errors"
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
	g.GET("/:user_id", h.Get)
	g.PUT("/:user_id/details", h.UpdateDetails)
	g.DELETE("/:user_id", h.Delete)
}

func profileToResponse(p *Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		ID:        p.ID,
		UserID:    p.UserID,
		Name:      p.Name,
		Details:   p.Details,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

// @Summary      Get a profile
// @Description  Returns the user's profile and remembered details
// @Tags         profiles
// @Produce      json
// @Param        user_id  path      string  true  "User ID"
// @Success      200      {object}  dto.ProfileResponse
// @Failure      404      {object}  shared.APIError
// @Router       /profiles/{user_id} [get]
func (h *Handler) Get(c echo.Context) error {
	userID := c.Param("user_id")

	p, err := h.store.GetByUserID(c.Request().Context(), userID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("profile_not_found", "profile not found")
	}
	if err != nil {
		h.logger.Error("failed to load profile", "error", err, "user_id", userID)
		return shared.InternalError("get_failed", "failed to load profile")
	}

	return c.JSON(http.StatusOK, profileToResponse(p))
}

// @Summary      Update profile details
// @Description  Merges the given details into the profile, creating it if needed
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Param        user_id  path      string                           true  "User ID"
// @Param        request  body      dto.UpdateProfileDetailsRequest  true  "Details to merge"
// @Success      200      {object}  dto.ProfileResponse
// @Failure      400      {object}  shared.APIError
// @Router       /profiles/{user_id}/details [put]
func (h *Handler) UpdateDetails(c echo.Context) error {
	userID := c.Param("user_id")

	var req dto.UpdateProfileDetailsRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if len(req.Details) == 0 {
		return shared.BadRequest("missing_details", "details are required")
	}

	p, err := h.store.ApplyDetails(c.Request().Context(), userID, req.Details)
	if err != nil {
		h.logger.Error("failed to update profile details", "error", err, "user_id", userID)
		return shared.InternalError("update_failed", "failed to update profile")
	}

	return c.JSON(http.StatusOK, profileToResponse(p))
}

// @Summary      Delete a profile
// @Tags         profiles
// @Param        user_id  path  string  true  "User ID"
// @Success      204
// @Failure      404  {object}  shared.APIError
// @Router       /profiles/{user_id} [delete]
func (h *Handler) Delete(c echo.Context) error {
	userID := c.Param("user_id")

	err := h.store.Delete(c.Request().Context(), userID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("profile_not_found", "profile not found")
	}
	if err != nil {
		h.logger.Error("failed to delete profile", "error", err, "user_id", userID)
		return shared.InternalError("delete_failed", "failed to delete profile")
	}

	return c.NoContent(http.StatusNoContent)
}
