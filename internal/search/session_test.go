package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviecinema/moviecinema/internal/metadata"
	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
)

type searchCall struct {
	kind     tmdb.SearchKind
	query    string
	page     int
	language string
}

// fakeSearcher records calls and answers from respond. A call blocks while
// gate returns a non-nil channel that is still open.
type fakeSearcher struct {
	mu      sync.Mutex
	calls   []searchCall
	done    int
	respond func(c searchCall) (*tmdb.Page, error)
	gate    func(c searchCall) chan struct{}
}

func (f *fakeSearcher) Search(ctx context.Context, kind tmdb.SearchKind, query string, page int, language string) (*tmdb.Page, error) {
	c := searchCall{kind: kind, query: query, page: page, language: language}

	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.done++
		f.mu.Unlock()
	}()

	if f.gate != nil {
		if ch := f.gate(c); ch != nil {
			select {
			case <-ch:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return f.respond(c)
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSearcher) doneCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

func (f *fakeSearcher) callsFor(kind tmdb.SearchKind) []searchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []searchCall
	for _, c := range f.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// pagedResponder returns perPage items for every page up to totalPages.
func pagedResponder(perPage, totalPages int) func(c searchCall) (*tmdb.Page, error) {
	return func(c searchCall) (*tmdb.Page, error) {
		items := make([]tmdb.Item, perPage)
		for i := range items {
			id := c.page*1000 + i
			name := fmt.Sprintf("%s-%d", c.query, id)
			switch c.kind {
			case tmdb.SearchMovie:
				items[i] = tmdb.Item{ID: id, Title: name}
			case tmdb.SearchMulti:
				items[i] = tmdb.Item{ID: id, Title: name, MediaType: "movie"}
			default:
				items[i] = tmdb.Item{ID: id, Name: name}
			}
		}
		return &tmdb.Page{Page: c.page, Results: items, TotalPages: totalPages, TotalResults: perPage * totalPages}, nil
	}
}

func newTestSession(client Searcher, opts Options) *Session {
	return NewSession("test", client, opts, zerolog.Nop())
}

func waitIdle(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestStart_FansOutBeforeAnyResolves(t *testing.T) {
	release := make(chan struct{})
	client := &fakeSearcher{
		respond: pagedResponder(20, 3),
		gate:    func(searchCall) chan struct{} { return release },
	}
	s := newTestSession(client, Options{})

	s.Start("matrix", "en-US")

	snap := s.Snapshot()
	for _, cat := range Categories {
		assert.True(t, snap.Categories[cat].Loading, "category %s should be loading", cat)
	}

	require.Eventually(t, func() bool { return client.callCount() == len(Categories) }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, client.doneCount(), "no request may resolve before all are dispatched")

	kinds := map[tmdb.SearchKind]bool{}
	for _, c := range client.calls {
		kinds[c.kind] = true
		assert.Equal(t, 1, c.page)
		assert.Equal(t, "matrix", c.query)
		assert.Equal(t, "en-US", c.language)
	}
	assert.Len(t, kinds, 7)

	close(release)
	waitIdle(t, s)

	snap = s.Snapshot()
	for _, cat := range Categories {
		st := snap.Categories[cat]
		assert.False(t, st.Loading)
		assert.Len(t, st.Results, 20)
		assert.Equal(t, 1, st.Page)
		assert.Equal(t, 3, st.TotalPages)
		assert.Equal(t, 60, st.TotalResults)
	}
}

func TestStart_EmptyQuery(t *testing.T) {
	client := &fakeSearcher{respond: pagedResponder(20, 3)}
	s := newTestSession(client, Options{})

	s.Start("   ", "en-US")
	waitIdle(t, s)

	assert.Equal(t, 0, client.callCount())
	snap := s.Snapshot()
	require.Len(t, snap.Categories, 7)
	for _, cat := range Categories {
		assert.Equal(t, CategoryState{Results: []metadata.ResultItem{}, Page: 1}, snap.Categories[cat])
	}
}

func TestStart_EmptyQueryClearsPreviousResults(t *testing.T) {
	client := &fakeSearcher{respond: pagedResponder(5, 1)}
	s := newTestSession(client, Options{})

	s.Start("matrix", "en-US")
	waitIdle(t, s)
	s.Start("", "en-US")

	snap := s.Snapshot()
	assert.Empty(t, snap.Categories[CategoryMovies].Results)
	assert.Equal(t, 0, snap.Categories[CategoryMovies].TotalPages)
	assert.Equal(t, len(Categories), client.callCount())
}

func TestStart_CategoryFailureIsolated(t *testing.T) {
	ok := pagedResponder(10, 2)
	client := &fakeSearcher{respond: func(c searchCall) (*tmdb.Page, error) {
		if c.kind == tmdb.SearchPerson {
			return nil, errors.New("boom")
		}
		return ok(c)
	}}
	s := newTestSession(client, Options{})

	s.Start("matrix", "en-US")
	waitIdle(t, s)

	snap := s.Snapshot()
	people := snap.Categories[CategoryPeople]
	assert.Empty(t, people.Results)
	assert.Equal(t, 0, people.TotalPages)
	assert.Equal(t, 0, people.TotalResults)
	assert.False(t, people.Loading)

	assert.Len(t, snap.Categories[CategoryMovies].Results, 10)
	assert.Len(t, snap.Categories[CategoryKeywords].Results, 10)
}

func TestStart_StaleResponsesDropped(t *testing.T) {
	oldQuery := make(chan struct{})
	client := &fakeSearcher{
		respond: pagedResponder(4, 2),
		gate: func(c searchCall) chan struct{} {
			if c.query == "first" {
				return oldQuery
			}
			return nil
		},
	}
	s := newTestSession(client, Options{})

	s.Start("first", "en-US")
	require.Eventually(t, func() bool { return client.callCount() == 7 }, 2*time.Second, 5*time.Millisecond)

	s.Start("second", "en-US")
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		for _, cat := range Categories {
			if snap.Categories[cat].Loading {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond)

	// Let the superseded responses land after the new ones.
	close(oldQuery)
	waitIdle(t, s)

	snap := s.Snapshot()
	assert.Equal(t, "second", snap.Query)
	for _, cat := range Categories {
		for _, r := range snap.Categories[cat].Results {
			assert.Contains(t, r.Title, "second-", "category %s holds a stale result", cat)
		}
		assert.Len(t, snap.Categories[cat].Results, 4)
	}
}

func TestLoadMore_AppendsInOrder(t *testing.T) {
	client := &fakeSearcher{respond: pagedResponder(20, 3)}
	s := newTestSession(client, Options{})

	s.Start("matrix", "en-US")
	waitIdle(t, s)

	for i := 0; i < 2; i++ {
		require.NoError(t, s.LoadMore(CategoryMovies))
		waitIdle(t, s)
	}

	snap := s.Snapshot()
	movies := snap.Categories[CategoryMovies]
	assert.Equal(t, 3, movies.Page)
	require.Len(t, movies.Results, 60)
	assert.Equal(t, 1000, movies.Results[0].ID)
	assert.Equal(t, 2000, movies.Results[20].ID)
	assert.Equal(t, 3019, movies.Results[59].ID)

	// Other categories are untouched.
	assert.Len(t, snap.Categories[CategoryTVShows].Results, 20)
	assert.Equal(t, 1, snap.Categories[CategoryTVShows].Page)

	calls := client.callsFor(tmdb.SearchMovie)
	require.Len(t, calls, 3)
	for i, c := range calls {
		assert.Equal(t, i+1, c.page)
	}
}

func TestLoadMore_NoMorePages(t *testing.T) {
	client := &fakeSearcher{respond: pagedResponder(20, 1)}
	s := newTestSession(client, Options{})

	s.Start("matrix", "en-US")
	waitIdle(t, s)

	before := s.Snapshot()
	calls := client.callCount()

	assert.ErrorIs(t, s.LoadMore(CategoryMovies), ErrNoMorePages)
	assert.Equal(t, calls, client.callCount())
	assert.Equal(t, before, s.Snapshot())
}

func TestLoadMore_EmptySession(t *testing.T) {
	s := newTestSession(&fakeSearcher{respond: pagedResponder(1, 1)}, Options{})
	assert.ErrorIs(t, s.LoadMore(CategoryAll), ErrNoMorePages)
}

func TestLoadMore_InFlight(t *testing.T) {
	release := make(chan struct{})
	client := &fakeSearcher{
		respond: pagedResponder(10, 5),
		gate: func(c searchCall) chan struct{} {
			if c.page == 2 {
				return release
			}
			return nil
		},
	}
	s := newTestSession(client, Options{})

	s.Start("matrix", "en-US")
	waitIdle(t, s)

	require.NoError(t, s.LoadMore(CategoryPeople))
	assert.True(t, s.Snapshot().Categories[CategoryPeople].Loading)
	assert.ErrorIs(t, s.LoadMore(CategoryPeople), ErrLoadInFlight)

	close(release)
	waitIdle(t, s)

	people := s.Snapshot().Categories[CategoryPeople]
	assert.False(t, people.Loading)
	assert.Equal(t, 2, people.Page)
	assert.Len(t, people.Results, 20)
	assert.Len(t, client.callsFor(tmdb.SearchPerson), 2)
}

func TestLoadMore_FailureLeavesState(t *testing.T) {
	ok := pagedResponder(10, 5)
	client := &fakeSearcher{respond: func(c searchCall) (*tmdb.Page, error) {
		if c.page == 2 {
			return nil, errors.New("timeout")
		}
		return ok(c)
	}}
	s := newTestSession(client, Options{})

	s.Start("matrix", "en-US")
	waitIdle(t, s)

	require.NoError(t, s.LoadMore(CategoryCompanies))
	waitIdle(t, s)

	st := s.Snapshot().Categories[CategoryCompanies]
	assert.False(t, st.Loading)
	assert.Equal(t, 1, st.Page)
	assert.Len(t, st.Results, 10)
}

func TestLoadMore_UnknownCategory(t *testing.T) {
	s := newTestSession(&fakeSearcher{respond: pagedResponder(1, 1)}, Options{})
	assert.ErrorIs(t, s.LoadMore(Category("music")), ErrUnknownCategory)
}

func TestLoadMore_Dedupe(t *testing.T) {
	overlap := func(c searchCall) (*tmdb.Page, error) {
		// page 2 repeats the last item of page 1
		items := []tmdb.Item{{ID: c.page * 10, Title: "a"}, {ID: c.page*10 + 1, Title: "b"}}
		if c.page == 2 {
			items = append([]tmdb.Item{{ID: 11, Title: "b"}}, items...)
		}
		return &tmdb.Page{Page: c.page, Results: items, TotalPages: 2, TotalResults: 5}, nil
	}

	for _, tt := range []struct {
		name   string
		dedupe bool
		want   int
	}{
		{"append as returned", false, 5},
		{"dedupe by kind and id", true, 4},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(&fakeSearcher{respond: overlap}, Options{DedupeLoadMore: tt.dedupe})
			s.Start("q", "en-US")
			waitIdle(t, s)
			require.NoError(t, s.LoadMore(CategoryMovies))
			waitIdle(t, s)

			assert.Len(t, s.Snapshot().Categories[CategoryMovies].Results, tt.want)
		})
	}
}

func TestSetActiveTab_NeverFetches(t *testing.T) {
	client := &fakeSearcher{respond: pagedResponder(3, 3)}
	s := newTestSession(client, Options{})

	s.Start("matrix", "en-US")
	waitIdle(t, s)
	calls := client.callCount()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.SetActiveTab(CategoryPeople))
	}
	waitIdle(t, s)

	assert.Equal(t, calls, client.callCount())
	assert.Equal(t, CategoryPeople, s.Snapshot().ActiveTab)
	assert.ErrorIs(t, s.SetActiveTab(Category("nope")), ErrUnknownCategory)
}

func TestAllCategory_TagsItems(t *testing.T) {
	client := &fakeSearcher{respond: func(c searchCall) (*tmdb.Page, error) {
		if c.kind != tmdb.SearchMulti {
			return &tmdb.Page{Page: 1}, nil
		}
		return &tmdb.Page{Page: 1, TotalPages: 1, Results: []tmdb.Item{
			{ID: 1, MediaType: "movie", Title: "Movie"},
			{ID: 2, MediaType: "tv", Name: "Show", FirstAirDate: "2020-01-01"},
			{ID: 3, MediaType: "person", Name: "Actor"},
			{ID: 4, Name: "Untagged Show", FirstAirDate: "2019-01-01"},
		}}, nil
	}}
	s := newTestSession(client, Options{})

	s.Start("x", "en-US")
	waitIdle(t, s)

	all := s.Snapshot().Categories[CategoryAll].Results
	require.Len(t, all, 4)
	assert.Equal(t, metadata.KindMovie, all[0].Kind)
	assert.Equal(t, metadata.KindTV, all[1].Kind)
	assert.Equal(t, "Show", all[1].Title)
	assert.Equal(t, metadata.KindPerson, all[2].Kind)
	assert.Equal(t, metadata.KindTV, all[3].Kind)
}

func TestCollectionsCategory_TaggedByCategory(t *testing.T) {
	client := &fakeSearcher{respond: pagedResponder(2, 1)}
	s := newTestSession(client, Options{})

	s.Start("star wars", "en-US")
	waitIdle(t, s)

	for _, r := range s.Snapshot().Categories[CategoryCollections].Results {
		assert.Equal(t, metadata.KindCollection, r.Kind)
	}
}

func TestClose_StopsCommits(t *testing.T) {
	release := make(chan struct{})
	client := &fakeSearcher{
		respond: pagedResponder(2, 1),
		gate:    func(searchCall) chan struct{} { return release },
	}
	s := newTestSession(client, Options{})

	s.Start("matrix", "en-US")
	require.Eventually(t, func() bool { return client.callCount() == 7 }, 2*time.Second, 5*time.Millisecond)
	before := s.Snapshot()

	s.Close()
	close(release)
	waitIdle(t, s)

	assert.Equal(t, before, s.Snapshot())
	assert.ErrorIs(t, s.LoadMore(CategoryMovies), ErrSessionClosed)
}

func TestOnChange_RevisionIncreases(t *testing.T) {
	var mu sync.Mutex
	var revisions []uint64
	client := &fakeSearcher{respond: pagedResponder(1, 1)}
	s := newTestSession(client, Options{OnChange: func(snap Snapshot) {
		mu.Lock()
		revisions = append(revisions, snap.Revision)
		mu.Unlock()
	}})

	s.Start("matrix", "en-US")
	waitIdle(t, s)

	mu.Lock()
	defer mu.Unlock()
	// one loading commit plus one per category
	require.Len(t, revisions, 8)
	seen := map[uint64]bool{}
	for _, r := range revisions {
		assert.False(t, seen[r], "revision %d delivered twice", r)
		seen[r] = true
	}
}

func TestApplyLanguage_RestartsFollowingSession(t *testing.T) {
	client := &fakeSearcher{respond: pagedResponder(2, 1)}
	s := newTestSession(client, Options{})
	defer s.Close()

	s.setFollowsLanguage(true)
	s.Start("matrix", "en-US")
	waitIdle(t, s)
	before := client.callCount()

	assert.True(t, s.applyLanguage("vi-VN"))
	waitIdle(t, s)

	snap := s.Snapshot()
	assert.Equal(t, "vi-VN", snap.Language)
	assert.Equal(t, "matrix", snap.Query)
	calls := client.callsFor(tmdb.SearchMovie)
	require.NotEmpty(t, calls)
	assert.Equal(t, "vi-VN", calls[len(calls)-1].language)
	assert.Greater(t, client.callCount(), before)

	s.setFollowsLanguage(false)
	assert.False(t, s.applyLanguage("en-US"))
	assert.Equal(t, "vi-VN", s.Snapshot().Language)
}
