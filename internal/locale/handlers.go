package locale

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for the UI language.
type Handlers struct {
	provider *Provider
}

// NewHandlers creates new locale handlers.
func NewHandlers(provider *Provider) *Handlers {
	return &Handlers{provider: provider}
}

// RegisterRoutes registers the locale routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.Get)
	g.PUT("", h.Set)
	g.POST("/toggle", h.Toggle)
}

// Response describes the current language.
type Response struct {
	Language    Language `json:"language"`
	APILanguage string   `json:"apiLanguage"`
}

// SetRequest changes the language.
type SetRequest struct {
	Language string `json:"language"`
}

func respond(c echo.Context, l Language) error {
	return c.JSON(http.StatusOK, Response{Language: l, APILanguage: l.APILanguage()})
}

// Get returns the current language.
// GET /api/v1/locale
func (h *Handlers) Get(c echo.Context) error {
	return respond(c, h.provider.Language())
}

// Set changes the language.
// PUT /api/v1/locale
func (h *Handlers) Set(c echo.Context) error {
	var req SetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	l, err := h.provider.SetLanguage(c.Request().Context(), req.Language)
	if err != nil {
		if errors.Is(err, ErrUnsupportedLanguage) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, l)
}

// Toggle switches between English and Vietnamese.
// POST /api/v1/locale/toggle
func (h *Handlers) Toggle(c echo.Context) error {
	l, err := h.provider.Toggle(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return respond(c, l)
}
