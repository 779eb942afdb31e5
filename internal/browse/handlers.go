package browse

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
)

// Handlers provides HTTP handlers for browsing.
type Handlers struct {
	service *Service
}

// NewHandlers creates new browse handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the browse routes on the API root group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/home", h.Home)
	g.GET("/lists/:type/:category", h.List)
	g.GET("/person/:id", h.Person)
}

// Home returns the landing feed.
// GET /api/v1/home
func (h *Handlers) Home(c echo.Context) error {
	home, err := h.service.Home(c.Request().Context(), HomeOptions{
		Popular:  tmdb.MediaType(c.QueryParam("popular")),
		TopRated: tmdb.MediaType(c.QueryParam("topRated")),
		Trending: c.QueryParam("trending"),
		Language: c.QueryParam("language"),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, home)
}

// List returns a page of a curated list.
// GET /api/v1/lists/:type/:category
func (h *Handlers) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	list := h.service.List(c.Request().Context(), c.Param("type"), c.Param("category"), page, c.QueryParam("language"))
	return c.JSON(http.StatusOK, list)
}

// Person returns a person's profile and credits.
// GET /api/v1/person/:id
func (h *Handlers) Person(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid person id")
	}

	person, err := h.service.Person(c.Request().Context(), id, c.QueryParam("language"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidOption):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, tmdb.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, tmdb.ErrAPIKeyMissing):
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, person)
}
