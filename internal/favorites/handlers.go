package favorites

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
)

// Handlers provides HTTP handlers for favorites.
type Handlers struct {
	service *Service
}

// NewHandlers creates new favorites handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the favorites routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Add)
	g.GET("/refreshed", h.Refreshed)
	g.POST("/import", h.Import)
	g.GET("/:type/:id", h.Get)
	g.DELETE("/:type/:id", h.Remove)
	g.POST("/:type/:id/toggle", h.Toggle)
}

// AddRequest names a title to save.
type AddRequest struct {
	ID       int            `json:"id"`
	Type     tmdb.MediaType `json:"type"`
	Language string         `json:"language"`
}

// ToggleResponse reports the state after a toggle.
type ToggleResponse struct {
	Favorite bool `json:"favorite"`
}

// List returns all favorites.
// GET /api/v1/favorites
func (h *Handlers) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// Refreshed returns favorites re-fetched in the requested language.
// GET /api/v1/favorites/refreshed
func (h *Handlers) Refreshed(c echo.Context) error {
	items, err := h.service.Refreshed(c.Request().Context(), c.QueryParam("language"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// Add saves a title.
// POST /api/v1/favorites
func (h *Handlers) Add(c echo.Context) error {
	var req AddRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	item, added, err := h.service.Add(c.Request().Context(), req.Type, req.ID, req.Language)
	if err != nil {
		return mapError(err)
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	return c.JSON(status, item)
}

// Get returns one favorite.
// GET /api/v1/favorites/:type/:id
func (h *Handlers) Get(c echo.Context) error {
	contentType, id, err := parseKey(c)
	if err != nil {
		return err
	}
	item, err := h.service.Get(c.Request().Context(), contentType, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, item)
}

// Remove deletes a favorite.
// DELETE /api/v1/favorites/:type/:id
func (h *Handlers) Remove(c echo.Context) error {
	contentType, id, err := parseKey(c)
	if err != nil {
		return err
	}
	if err := h.service.Remove(c.Request().Context(), contentType, id); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Toggle flips a title's favorite state.
// POST /api/v1/favorites/:type/:id/toggle
func (h *Handlers) Toggle(c echo.Context) error {
	contentType, id, err := parseKey(c)
	if err != nil {
		return err
	}
	favorite, err := h.service.Toggle(c.Request().Context(), contentType, id, c.QueryParam("language"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, ToggleResponse{Favorite: favorite})
}

// Import replaces favorites with a legacy browser export.
// POST /api/v1/favorites/import
func (h *Handlers) Import(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	n, err := h.service.Import(c.Request().Context(), body)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"imported": n})
}

func parseKey(c echo.Context) (tmdb.MediaType, int, error) {
	contentType := tmdb.MediaType(c.Param("type"))
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 || !contentType.Valid() {
		return "", 0, echo.NewHTTPError(http.StatusBadRequest, "invalid content type or id")
	}
	return contentType, id, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidItem):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, tmdb.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, tmdb.ErrAPIKeyMissing):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
