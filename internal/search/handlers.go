package search

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/moviecinema/moviecinema/internal/sessions"
)

const waitTimeout = 30 * time.Second

// Handlers provides HTTP handlers for search sessions.
type Handlers struct {
	service *Service
}

// NewHandlers creates new search handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the search routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/more/:category", h.LoadMore)
	g.PUT("/:id/tab", h.SetTab)
}

// QueryRequest starts or replaces a query.
type QueryRequest struct {
	Query    string `json:"query"`
	Language string `json:"language"`
}

// TabRequest switches the active tab.
type TabRequest struct {
	Category Category `json:"category"`
}

// LoadMoreResponse reports whether a further page was requested.
type LoadMoreResponse struct {
	Started  bool     `json:"started"`
	Reason   string   `json:"reason,omitempty"`
	Snapshot Snapshot `json:"snapshot"`
}

// Create starts a new search session.
// POST /api/v1/search
func (h *Handlers) Create(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	session := h.service.Create(req.Query, req.Language)
	return h.respond(c, http.StatusCreated, session)
}

// Get returns a session snapshot. With wait=true it blocks until in-flight fetches settle.
// GET /api/v1/search/:id
func (h *Handlers) Get(c echo.Context) error {
	session, err := h.service.Get(c.Param("id"))
	if err != nil {
		return sessionError(err)
	}
	return h.respond(c, http.StatusOK, session)
}

// Update replaces the session's query.
// PUT /api/v1/search/:id
func (h *Handlers) Update(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	session, err := h.service.Update(c.Param("id"), req.Query, req.Language)
	if err != nil {
		return sessionError(err)
	}
	return h.respond(c, http.StatusOK, session)
}

// Delete closes a session.
// DELETE /api/v1/search/:id
func (h *Handlers) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Param("id")); err != nil {
		return sessionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// LoadMore requests the next page of one category.
// POST /api/v1/search/:id/more/:category
func (h *Handlers) LoadMore(c echo.Context) error {
	session, err := h.service.Get(c.Param("id"))
	if err != nil {
		return sessionError(err)
	}

	err = session.LoadMore(Category(c.Param("category")))
	switch {
	case err == nil:
	case errors.Is(err, ErrUnknownCategory):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrLoadInFlight), errors.Is(err, ErrNoMorePages):
		return c.JSON(http.StatusOK, LoadMoreResponse{Reason: err.Error(), Snapshot: session.Snapshot()})
	case errors.Is(err, ErrSessionClosed):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := waitIfAsked(c, session); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, LoadMoreResponse{Started: true, Snapshot: session.Snapshot()})
}

// SetTab switches the active tab without fetching.
// PUT /api/v1/search/:id/tab
func (h *Handlers) SetTab(c echo.Context) error {
	var req TabRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	session, err := h.service.Get(c.Param("id"))
	if err != nil {
		return sessionError(err)
	}
	if err := session.SetActiveTab(req.Category); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, session.Snapshot())
}

func (h *Handlers) respond(c echo.Context, status int, session *Session) error {
	if err := waitIfAsked(c, session); err != nil {
		return err
	}
	return c.JSON(status, session.Snapshot())
}

func waitIfAsked(c echo.Context, session *Session) error {
	if c.QueryParam("wait") != "true" {
		return nil
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), waitTimeout)
	defer cancel()
	if err := session.Wait(ctx); err != nil {
		return echo.NewHTTPError(http.StatusGatewayTimeout, "timed out waiting for search results")
	}
	return nil
}

func sessionError(err error) error {
	if errors.Is(err, sessions.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "search session not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
