package detail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
	"github.com/moviecinema/moviecinema/internal/sessions"
)

type staticLanguage string

func (l staticLanguage) APILanguage() string { return string(l) }

type fakeReviews struct {
	page     int
	language string
}

func (f *fakeReviews) Reviews(ctx context.Context, mediaType tmdb.MediaType, id, page int, language string) (*tmdb.ReviewPage, error) {
	if id == 404 {
		return nil, tmdb.ErrNotFound
	}
	f.page, f.language = page, language
	return &tmdb.ReviewPage{ID: id, Page: page, Results: []tmdb.Review{{ID: "r1", Author: "critic"}}, TotalPages: 1, TotalResults: 1}, nil
}

func newTestServer(t *testing.T) (*echo.Echo, *fakeReviews) {
	t.Helper()
	registry := sessions.NewRegistry[*Session]("detail", zerolog.Nop())
	t.Cleanup(registry.CloseAll)

	reviews := &fakeReviews{}
	svc := NewService(&fakeClient{}, reviews, registry, staticLanguage("vi-VN"), nil, zerolog.Nop())

	e := echo.New()
	NewHandlers(svc).RegisterRoutes(e.Group("/api/v1/detail"))
	return e, reviews
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_CreateGetUpdateDelete(t *testing.T) {
	e, _ := newTestServer(t)

	rec := do(e, http.MethodPost, "/api/v1/detail?wait=true", `{"id":603,"type":"movie"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "vi-VN", snap.Language)
	require.NotNil(t, snap.Detail)
	assert.Equal(t, "Movie vi-VN", snap.Detail.Title)

	rec = do(e, http.MethodPut, "/api/v1/detail/"+snap.ID+"?wait=true", `{"language":"en-US"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 603, snap.ContentID)
	assert.Equal(t, "Movie en-US", snap.Detail.Title)

	rec = do(e, http.MethodGet, "/api/v1/detail/"+snap.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodDelete, "/api/v1/detail/"+snap.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(e, http.MethodGet, "/api/v1/detail/"+snap.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_CreateRejectsInvalidContent(t *testing.T) {
	e, _ := newTestServer(t)

	rec := do(e, http.MethodPost, "/api/v1/detail", `{"id":603,"type":"person"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/api/v1/detail", `{"id":0,"type":"movie"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlers_Reviews(t *testing.T) {
	e, reviews := newTestServer(t)

	rec := do(e, http.MethodGet, "/api/v1/detail/movie/603/reviews", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, reviews.page)
	assert.Equal(t, "en-US", reviews.language)

	var page tmdb.ReviewPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Results, 1)
	assert.Equal(t, "critic", page.Results[0].Author)

	rec = do(e, http.MethodGet, "/api/v1/detail/tv/1399/reviews?page=2&language=vi-VN", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, reviews.page)
	assert.Equal(t, "vi-VN", reviews.language)

	rec = do(e, http.MethodGet, "/api/v1/detail/movie/404/reviews", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodGet, "/api/v1/detail/person/1/reviews", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
