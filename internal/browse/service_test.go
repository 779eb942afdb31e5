package browse

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviecinema/moviecinema/internal/metadata"
	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
)

type listCall struct {
	mediaType tmdb.MediaType
	list      string
	page      int
	language  string
}

type fakeClient struct {
	mu         sync.Mutex
	lists      []listCall
	windows    []string
	listPage   *tmdb.Page
	failLists  map[string]bool
	failTrend  bool
	failPerson bool
	failCredit bool
	credits    []tmdb.Item
}

func (f *fakeClient) List(ctx context.Context, mediaType tmdb.MediaType, list string, page int, language string) (*tmdb.Page, error) {
	f.mu.Lock()
	f.lists = append(f.lists, listCall{mediaType, list, page, language})
	f.mu.Unlock()
	if f.failLists[list] {
		return nil, errors.New("list down")
	}
	if f.listPage != nil {
		return f.listPage, nil
	}
	return &tmdb.Page{Page: page, Results: []tmdb.Item{{ID: 1, Title: string(mediaType) + "-" + list}}, TotalPages: 10}, nil
}

func (f *fakeClient) Trending(ctx context.Context, mediaType, window, language string) (*tmdb.Page, error) {
	f.mu.Lock()
	f.windows = append(f.windows, mediaType+"/"+window)
	f.mu.Unlock()
	if f.failTrend {
		return nil, errors.New("trending down")
	}
	return &tmdb.Page{Results: []tmdb.Item{{ID: 2, Name: "Show", MediaType: "tv"}, {ID: 3, Title: "Film", MediaType: "movie"}}}, nil
}

func (f *fakeClient) Person(ctx context.Context, id int, language string) (*tmdb.PersonDetails, error) {
	if f.failPerson {
		return nil, tmdb.ErrNotFound
	}
	return &tmdb.PersonDetails{ID: id, Name: "Keanu Reeves"}, nil
}

func (f *fakeClient) CombinedCredits(ctx context.Context, id int, language string) (*tmdb.CombinedCredits, error) {
	if f.failCredit {
		return nil, errors.New("credits down")
	}
	return &tmdb.CombinedCredits{ID: id, Cast: f.credits}, nil
}

type staticLanguage string

func (l staticLanguage) APILanguage() string { return string(l) }

func newTestService(client *fakeClient) *Service {
	return NewService(client, staticLanguage("vi-VN"), zerolog.Nop())
}

func TestHome_DefaultsAndTagging(t *testing.T) {
	client := &fakeClient{}
	home, err := newTestService(client).Home(context.Background(), HomeOptions{})
	require.NoError(t, err)

	assert.Equal(t, tmdb.MediaMovie, home.PopularType)
	assert.Equal(t, "day", home.TrendingWindow)
	assert.Equal(t, "vi-VN", home.Language)
	require.Len(t, home.Popular, 1)
	assert.Equal(t, "movie-popular", home.Popular[0].Title)
	require.Len(t, home.TopRated, 1)
	assert.Equal(t, "movie-top_rated", home.TopRated[0].Title)
	require.Len(t, home.Trending, 2)
	assert.Equal(t, metadata.KindTV, home.Trending[0].Kind)
	assert.Equal(t, metadata.KindMovie, home.Trending[1].Kind)
	assert.Equal(t, []string{"all/day"}, client.windows)
}

func TestHome_SectionFailureIsolated(t *testing.T) {
	client := &fakeClient{failLists: map[string]bool{"top_rated": true}, failTrend: true}
	home, err := newTestService(client).Home(context.Background(), HomeOptions{Popular: tmdb.MediaTV, Trending: "week"})
	require.NoError(t, err)

	assert.Len(t, home.Popular, 1)
	assert.Equal(t, metadata.KindTV, home.Popular[0].Kind)
	assert.NotNil(t, home.TopRated)
	assert.Empty(t, home.TopRated)
	assert.NotNil(t, home.Trending)
	assert.Empty(t, home.Trending)
}

func TestHome_RejectsBadOptions(t *testing.T) {
	svc := newTestService(&fakeClient{})
	_, err := svc.Home(context.Background(), HomeOptions{Trending: "month"})
	assert.ErrorIs(t, err, ErrInvalidOption)
	_, err = svc.Home(context.Background(), HomeOptions{Popular: "person"})
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestList_Routes(t *testing.T) {
	tests := []struct {
		typ, category string
		wantType      tmdb.MediaType
		wantList      string
		wantFallback  bool
	}{
		{"movie", "now-playing", tmdb.MediaMovie, "now_playing", false},
		{"movie", "upcoming", tmdb.MediaMovie, "upcoming", false},
		{"tv", "airing-today", tmdb.MediaTV, "airing_today", false},
		{"tv", "on-tv", tmdb.MediaTV, "on_the_air", false},
		{"tv", "top-rated", tmdb.MediaTV, "top_rated", false},
		{"anime", "best", tmdb.MediaMovie, "popular", true},
	}
	for _, tt := range tests {
		t.Run(tt.typ+"/"+tt.category, func(t *testing.T) {
			client := &fakeClient{}
			list := newTestService(client).List(context.Background(), tt.typ, tt.category, 2, "en-US")

			require.Len(t, client.lists, 1)
			assert.Equal(t, listCall{tt.wantType, tt.wantList, 2, "en-US"}, client.lists[0])
			assert.Equal(t, tt.wantFallback, list.Fallback)
			assert.Equal(t, 10, list.TotalPages)
			assert.Equal(t, 2, list.Page)
		})
	}
}

func TestList_PageClamp(t *testing.T) {
	client := &fakeClient{listPage: &tmdb.Page{Results: []tmdb.Item{{ID: 1, Title: "x"}}, TotalPages: 41000}}
	svc := newTestService(client)

	list := svc.List(context.Background(), "movie", "popular", 0, "")
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, MaxListPages, list.TotalPages)
	assert.Equal(t, "vi-VN", client.lists[0].language)

	list = svc.List(context.Background(), "movie", "popular", 9999, "")
	assert.Equal(t, MaxListPages, list.Page)
}

func TestClampPages(t *testing.T) {
	assert.Equal(t, 1, clampPages(0, 0))
	assert.Equal(t, MaxListPages, clampPages(0, 20), "bare array responses keep paging open")
	assert.Equal(t, 7, clampPages(7, 20))
	assert.Equal(t, MaxListPages, clampPages(501, 20))
}

func TestList_FailureIsEmpty(t *testing.T) {
	client := &fakeClient{failLists: map[string]bool{"upcoming": true}}
	list := newTestService(client).List(context.Background(), "movie", "upcoming", 3, "")

	assert.NotNil(t, list.Results)
	assert.Empty(t, list.Results)
	assert.Equal(t, 1, list.TotalPages)
}

func TestPerson_KnownForAndCredits(t *testing.T) {
	var cast []tmdb.Item
	for i := 1; i <= 10; i++ {
		cast = append(cast, tmdb.Item{ID: i, Title: "m", MediaType: "movie", Popularity: float64(i), ReleaseDate: "2000-01-0" + string(rune('0'+i%10))})
	}
	cast = append(cast, tmdb.Item{ID: 11, Name: "show", MediaType: "tv", FirstAirDate: "2020-05-05", Popularity: 0.5})

	client := &fakeClient{credits: cast}
	person, err := newTestService(client).Person(context.Background(), 6384, "")
	require.NoError(t, err)

	assert.Equal(t, "Keanu Reeves", person.Details.Name)
	require.Len(t, person.KnownFor, 8)
	assert.Equal(t, 10, person.KnownFor[0].ID)
	assert.Equal(t, 3, person.KnownFor[7].ID)

	require.Len(t, person.Credits, 11)
	assert.Equal(t, 11, person.Credits[0].ID, "tv first air date counts as release date")
	assert.Equal(t, 9, person.Credits[1].ID)
	assert.Equal(t, 10, person.Credits[10].ID, "2000-01-00 sorts last")
}

func TestPerson_Failures(t *testing.T) {
	person, err := newTestService(&fakeClient{failCredit: true}).Person(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Empty(t, person.KnownFor)
	assert.Empty(t, person.Credits)

	_, err = newTestService(&fakeClient{failPerson: true}).Person(context.Background(), 1, "")
	assert.ErrorIs(t, err, tmdb.ErrNotFound)

	_, err = newTestService(&fakeClient{}).Person(context.Background(), 0, "")
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestHandlers(t *testing.T) {
	e := echo.New()
	NewHandlers(newTestService(&fakeClient{failPerson: true})).RegisterRoutes(e.Group("/api/v1"))

	do := func(path string) int {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("/api/v1/home?popular=tv&trending=week"))
	assert.Equal(t, http.StatusBadRequest, do("/api/v1/home?trending=year"))
	assert.Equal(t, http.StatusOK, do("/api/v1/lists/tv/on-tv?page=3"))
	assert.Equal(t, http.StatusNotFound, do("/api/v1/person/6384"))
	assert.Equal(t, http.StatusBadRequest, do("/api/v1/person/keanu"))
}
