package detail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviecinema/moviecinema/internal/metadata"
	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
)

var errBoom = errors.New("boom")

// fakeClient serves canned records keyed by id. Movie calls block while
// gate returns an open channel for that id.
type fakeClient struct {
	mu          sync.Mutex
	videoCalls  int
	languages   []string
	failDetail  bool
	failCredits bool
	failSimilar bool
	zeroDetail  bool
	videos      []tmdb.Video
	gate        func(id int) chan struct{}
}

func (f *fakeClient) Movie(ctx context.Context, id int, language string) (*tmdb.MovieDetails, error) {
	f.mu.Lock()
	f.languages = append(f.languages, language)
	f.mu.Unlock()

	if f.gate != nil {
		if ch := f.gate(id); ch != nil {
			select {
			case <-ch:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if f.failDetail {
		return nil, errBoom
	}
	if f.zeroDetail {
		return &tmdb.MovieDetails{}, nil
	}
	return &tmdb.MovieDetails{ID: id, Title: "Movie " + language, ReleaseDate: "1999-03-31", Runtime: 136}, nil
}

func (f *fakeClient) TV(ctx context.Context, id int, language string) (*tmdb.TVDetails, error) {
	if f.failDetail {
		return nil, errBoom
	}
	return &tmdb.TVDetails{ID: id, Name: "Foo", FirstAirDate: "2020-01-01", EpisodeRunTime: []int{42, 50}}, nil
}

func (f *fakeClient) Videos(ctx context.Context, mediaType tmdb.MediaType, id int) ([]tmdb.Video, error) {
	f.mu.Lock()
	f.videoCalls++
	f.mu.Unlock()
	return f.videos, nil
}

func (f *fakeClient) Credits(ctx context.Context, mediaType tmdb.MediaType, id int) (*tmdb.Credits, error) {
	if f.failCredits {
		return nil, errBoom
	}
	return &tmdb.Credits{
		ID:   id,
		Cast: []tmdb.Item{{ID: 1, Name: "Keanu Reeves", Character: "Neo"}},
		Crew: []tmdb.Item{{ID: 2, Name: "Lana Wachowski", Job: "Director"}},
	}, nil
}

func (f *fakeClient) Similar(ctx context.Context, mediaType tmdb.MediaType, id, page int, language string) (*tmdb.Page, error) {
	if f.failSimilar {
		return nil, errBoom
	}
	return &tmdb.Page{Page: 1, Results: []tmdb.Item{{ID: 10, Name: "Similar"}}, TotalPages: 1}, nil
}

func (f *fakeClient) Recommendations(ctx context.Context, mediaType tmdb.MediaType, id, page int, language string) (*tmdb.Page, error) {
	return &tmdb.Page{Page: 1, Results: []tmdb.Item{{ID: 20, Title: "Rec"}, {ID: 21, Title: "Rec 2"}}, TotalPages: 1}, nil
}

func (f *fakeClient) videoCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.videoCalls
}

func waitIdle(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestLoad_AggregatesAllSources(t *testing.T) {
	client := &fakeClient{videos: []tmdb.Video{
		{Key: "teaser", Site: "YouTube", Type: "Teaser", Official: true},
		{Key: "trailer", Site: "YouTube", Type: "Trailer", Official: true},
	}}
	s := NewSession("d1", client, Options{}, zerolog.Nop())
	defer s.Close()

	require.NoError(t, s.Load(603, tmdb.MediaMovie, "en-US"))
	waitIdle(t, s)

	snap := s.Snapshot()
	require.NotNil(t, snap.Detail)
	assert.Equal(t, 603, snap.Detail.ID)
	assert.Equal(t, "Movie en-US", snap.Detail.Title)
	assert.Nil(t, snap.Error)
	assert.False(t, snap.Loading)
	require.NotNil(t, snap.TrailerKey)
	assert.Equal(t, "trailer", *snap.TrailerKey)
	assert.Len(t, snap.Credits.Cast, 1)
	assert.Equal(t, "Neo", snap.Credits.Cast[0].Character)
	assert.Len(t, snap.Credits.Crew, 1)

	require.Len(t, snap.Similar, 1)
	assert.Equal(t, metadata.KindMovie, snap.Similar[0].Kind)
	assert.Len(t, snap.Recommendations, 2)

	assert.False(t, snap.OfficialVideosLoading)
	assert.Len(t, snap.OfficialVideos, 2)
}

func TestLoad_TVNormalized(t *testing.T) {
	s := NewSession("d1", &fakeClient{}, Options{}, zerolog.Nop())
	defer s.Close()

	require.NoError(t, s.Load(1399, tmdb.MediaTV, "en-US"))
	waitIdle(t, s)

	snap := s.Snapshot()
	require.NotNil(t, snap.Detail)
	assert.Equal(t, "Foo", snap.Detail.Title)
	assert.Equal(t, "2020-01-01", snap.Detail.ReleaseDate)
	assert.Equal(t, 42, snap.Detail.Runtime)
	require.NotEmpty(t, snap.Similar)
	assert.Equal(t, metadata.KindTV, snap.Similar[0].Kind)
	assert.Nil(t, snap.Trailer, "no videos means no trailer")
	assert.Nil(t, snap.TrailerKey)
}

func TestLoad_RejectsInvalidContent(t *testing.T) {
	s := NewSession("d1", &fakeClient{}, Options{}, zerolog.Nop())
	defer s.Close()

	assert.ErrorIs(t, s.Load(0, tmdb.MediaMovie, "en-US"), ErrInvalidContent)
	assert.ErrorIs(t, s.Load(5, tmdb.MediaType("person"), "en-US"), ErrInvalidContent)
	assert.Equal(t, uint64(0), s.Snapshot().Generation)
}

func TestLoad_SecondaryFailuresDegrade(t *testing.T) {
	client := &fakeClient{failCredits: true, failSimilar: true}
	s := NewSession("d1", client, Options{}, zerolog.Nop())
	defer s.Close()

	require.NoError(t, s.Load(603, tmdb.MediaMovie, "en-US"))
	waitIdle(t, s)

	snap := s.Snapshot()
	assert.Nil(t, snap.Error)
	require.NotNil(t, snap.Detail)
	assert.NotNil(t, snap.Credits.Cast)
	assert.Empty(t, snap.Credits.Cast)
	assert.Empty(t, snap.Credits.Crew)
	assert.NotNil(t, snap.Similar)
	assert.Empty(t, snap.Similar)
	assert.Len(t, snap.Recommendations, 2)
}

func TestLoad_DetailFailureSetsError(t *testing.T) {
	s := NewSession("d1", &fakeClient{failDetail: true}, Options{}, zerolog.Nop())
	defer s.Close()

	require.NoError(t, s.Load(603, tmdb.MediaMovie, "en-US"))
	waitIdle(t, s)

	snap := s.Snapshot()
	assert.Nil(t, snap.Detail)
	require.NotNil(t, snap.Error)
	assert.Contains(t, *snap.Error, "boom")
	assert.False(t, snap.Loading)
	assert.Len(t, snap.Recommendations, 2, "other sources still commit")
}

func TestLoad_UnusableRecordSetsError(t *testing.T) {
	s := NewSession("d1", &fakeClient{zeroDetail: true}, Options{}, zerolog.Nop())
	defer s.Close()

	require.NoError(t, s.Load(603, tmdb.MediaMovie, "en-US"))
	waitIdle(t, s)

	snap := s.Snapshot()
	assert.Nil(t, snap.Detail)
	require.NotNil(t, snap.Error)
	assert.Equal(t, errNoRecord.Error(), *snap.Error)
}

func TestLoad_StaleResponseDropped(t *testing.T) {
	release := make(chan struct{})
	client := &fakeClient{gate: func(id int) chan struct{} {
		if id == 1 {
			return release
		}
		return nil
	}}
	s := NewSession("d1", client, Options{}, zerolog.Nop())
	defer s.Close()

	require.NoError(t, s.Load(1, tmdb.MediaMovie, "en-US"))
	require.NoError(t, s.Load(2, tmdb.MediaMovie, "en-US"))
	close(release)
	waitIdle(t, s)

	snap := s.Snapshot()
	require.NotNil(t, snap.Detail)
	assert.Equal(t, 2, snap.Detail.ID)
	assert.Equal(t, 2, snap.ContentID)
	assert.Equal(t, uint64(2), snap.Generation)
}

func TestLoad_LanguageChangeKeepsOfficialVideos(t *testing.T) {
	client := &fakeClient{videos: []tmdb.Video{{Key: "a", Site: "YouTube", Type: "Clip", Official: true}}}
	s := NewSession("d1", client, Options{}, zerolog.Nop())
	defer s.Close()

	require.NoError(t, s.Load(603, tmdb.MediaMovie, "en-US"))
	waitIdle(t, s)
	assert.Equal(t, 2, client.videoCallCount(), "trailer lookup plus official videos")

	require.NoError(t, s.Reload("vi-VN"))
	waitIdle(t, s)
	assert.Equal(t, 3, client.videoCallCount(), "only the trailer lookup repeats")

	snap := s.Snapshot()
	assert.Equal(t, "vi-VN", snap.Language)
	assert.Equal(t, "Movie vi-VN", snap.Detail.Title)
	assert.Len(t, snap.OfficialVideos, 1)

	require.NoError(t, s.Load(604, tmdb.MediaMovie, "vi-VN"))
	waitIdle(t, s)
	assert.Equal(t, 5, client.videoCallCount())
}

func TestClose_StopsCommits(t *testing.T) {
	release := make(chan struct{})
	client := &fakeClient{gate: func(int) chan struct{} { return release }}
	s := NewSession("d1", client, Options{}, zerolog.Nop())

	require.NoError(t, s.Load(603, tmdb.MediaMovie, "en-US"))
	s.Close()
	close(release)
	waitIdle(t, s)

	snap := s.Snapshot()
	assert.Nil(t, snap.Detail)
	assert.True(t, snap.Loading)
	assert.ErrorIs(t, s.Load(603, tmdb.MediaMovie, "en-US"), ErrSessionClosed)
}

func TestOnChange_ReceivesEveryCommit(t *testing.T) {
	var mu sync.Mutex
	var revisions []uint64
	s := NewSession("d1", &fakeClient{}, Options{OnChange: func(snap Snapshot) {
		mu.Lock()
		revisions = append(revisions, snap.Revision)
		mu.Unlock()
	}}, zerolog.Nop())
	defer s.Close()

	require.NoError(t, s.Load(603, tmdb.MediaMovie, "en-US"))
	waitIdle(t, s)

	mu.Lock()
	defer mu.Unlock()
	// loading, official videos, aggregate commit
	assert.Len(t, revisions, 3)
}

func TestApplyLanguage_OnlyFollowingSessionsReload(t *testing.T) {
	client := &fakeClient{}
	following := NewSession("d1", client, Options{}, zerolog.Nop())
	defer following.Close()
	pinned := NewSession("d2", client, Options{}, zerolog.Nop())
	defer pinned.Close()

	following.setFollowsLanguage(true)
	require.NoError(t, following.Load(603, tmdb.MediaMovie, "en-US"))
	require.NoError(t, pinned.Load(603, tmdb.MediaMovie, "en-US"))
	waitIdle(t, following)
	waitIdle(t, pinned)

	assert.True(t, following.applyLanguage("vi-VN"))
	assert.False(t, following.applyLanguage("vi-VN"), "already in that language")
	assert.False(t, pinned.applyLanguage("vi-VN"))
	waitIdle(t, following)

	assert.Equal(t, "Movie vi-VN", following.Snapshot().Detail.Title)
	assert.Equal(t, "Movie en-US", pinned.Snapshot().Detail.Title)

	idle := NewSession("d3", client, Options{}, zerolog.Nop())
	idle.setFollowsLanguage(true)
	assert.False(t, idle.applyLanguage("vi-VN"), "nothing loaded yet")
	idle.Close()
}
