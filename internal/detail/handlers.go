package detail

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
	"github.com/moviecinema/moviecinema/internal/sessions"
)

const waitTimeout = 30 * time.Second

// Handlers provides HTTP handlers for detail sessions.
type Handlers struct {
	service *Service
}

// NewHandlers creates new detail handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the detail routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("/:sid", h.Get)
	g.PUT("/:sid", h.Update)
	g.DELETE("/:sid", h.Delete)
	g.GET("/:type/:id/reviews", h.Reviews)
}

// LoadRequest names the content a session should show.
type LoadRequest struct {
	ID       int            `json:"id"`
	Type     tmdb.MediaType `json:"type"`
	Language string         `json:"language"`
}

// Create starts a new detail session.
// POST /api/v1/detail
func (h *Handlers) Create(c echo.Context) error {
	var req LoadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	session, err := h.service.Create(req.ID, req.Type, req.Language)
	if err != nil {
		return sessionError(err)
	}
	return respond(c, http.StatusCreated, session)
}

// Get returns a session snapshot.
// GET /api/v1/detail/:sid
func (h *Handlers) Get(c echo.Context) error {
	session, err := h.service.Get(c.Param("sid"))
	if err != nil {
		return sessionError(err)
	}
	return respond(c, http.StatusOK, session)
}

// Update reloads a session, typically after a language change.
// PUT /api/v1/detail/:sid
func (h *Handlers) Update(c echo.Context) error {
	var req LoadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	session, err := h.service.Update(c.Param("sid"), req.ID, req.Type, req.Language)
	if err != nil {
		return sessionError(err)
	}
	return respond(c, http.StatusOK, session)
}

// Delete closes a session.
// DELETE /api/v1/detail/:sid
func (h *Handlers) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Param("sid")); err != nil {
		return sessionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Reviews returns a page of user reviews.
// GET /api/v1/detail/:type/:id/reviews
func (h *Handlers) Reviews(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid content id")
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))

	reviews, err := h.service.Reviews(c.Request().Context(), tmdb.MediaType(c.Param("type")), id, page, c.QueryParam("language"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidContent):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, tmdb.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, tmdb.ErrAPIKeyMissing):
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, reviews)
}

func respond(c echo.Context, status int, session *Session) error {
	if c.QueryParam("wait") == "true" {
		ctx, cancel := context.WithTimeout(c.Request().Context(), waitTimeout)
		defer cancel()
		if err := session.Wait(ctx); err != nil {
			return echo.NewHTTPError(http.StatusGatewayTimeout, "timed out waiting for content detail")
		}
	}
	return c.JSON(status, session.Snapshot())
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "detail session not found")
	case errors.Is(err, ErrInvalidContent):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSessionClosed):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
