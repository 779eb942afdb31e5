package search

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/moviecinema/moviecinema/internal/metadata"
	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
	"github.com/moviecinema/moviecinema/internal/sessions"
)

var (
	ErrUnknownCategory = errors.New("unknown search category")
	ErrNoMorePages     = errors.New("no more pages")
	ErrLoadInFlight    = errors.New("load already in flight for category")
	ErrSessionClosed   = errors.New("search session closed")
)

// Searcher runs a single category search against the media API.
type Searcher interface {
	Search(ctx context.Context, kind tmdb.SearchKind, query string, page int, language string) (*tmdb.Page, error)
}

// CategoryState is the result and pagination state of one category.
type CategoryState struct {
	Results      []metadata.ResultItem `json:"results"`
	Page         int                   `json:"page"`
	TotalPages   int                   `json:"totalPages"`
	TotalResults int                   `json:"totalResults"`
	Loading      bool                  `json:"loading"`
}

func emptyState(loading bool) CategoryState {
	return CategoryState{Results: []metadata.ResultItem{}, Page: 1, Loading: loading}
}

// Snapshot is a copy of a session's state safe to hand to renderers.
type Snapshot struct {
	ID         string                     `json:"id"`
	Query      string                     `json:"query"`
	Language   string                     `json:"language"`
	ActiveTab  Category                   `json:"activeTab"`
	Categories map[Category]CategoryState `json:"categories"`
	Generation uint64                     `json:"generation"`
	// Revision increases with every committed change so views can discard
	// snapshots delivered out of order.
	Revision uint64 `json:"revision"`
}

// Options configures a Session.
type Options struct {
	// DedupeLoadMore skips appended items whose kind and id are already listed.
	DedupeLoadMore bool
	// OnChange receives a snapshot after every committed state change.
	OnChange func(Snapshot)
}

// Session holds the state of one multi-category search. Every query change
// replaces all categories and bumps the generation; responses carrying an
// older generation are dropped when they arrive.
type Session struct {
	id     string
	client Searcher
	opts   Options
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	generation uint64
	query      string
	language   string
	activeTab  Category
	categories map[Category]CategoryState
	revision   uint64
	closed     bool
	// followsLanguage is set when no explicit language was requested, so a
	// display language change re-runs the query.
	followsLanguage bool

	inflight sessions.Inflight
}

// NewSession creates an idle session with every category empty.
func NewSession(id string, client Searcher, opts Options, logger zerolog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		id:         id,
		client:     client,
		opts:       opts,
		logger:     logger.With().Str("component", "search").Str("session", id).Logger(),
		ctx:        ctx,
		cancel:     cancel,
		activeTab:  CategoryAll,
		categories: resetCategories(false),
	}
}

func resetCategories(loading bool) map[Category]CategoryState {
	m := make(map[Category]CategoryState, len(Categories))
	for _, c := range Categories {
		m[c] = emptyState(loading)
	}
	return m
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Start replaces the session's query and fetches page 1 of every category
// concurrently. An empty (after trimming) query resets every category
// without touching the network. Start does not block on the fetches.
func (s *Session) Start(query, language string) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.generation++
	gen := s.generation
	s.query = query
	s.language = language

	if query == "" {
		s.categories = resetCategories(false)
		snap := s.changedLocked()
		s.mu.Unlock()
		s.notify(snap)
		return
	}

	s.categories = resetCategories(true)
	s.inflight.Add()
	snap := s.changedLocked()
	s.mu.Unlock()
	s.notify(snap)

	s.logger.Debug().Str("query", query).Str("language", language).Uint64("generation", gen).Msg("Starting search")

	go func() {
		defer s.inflight.Done()

		var wg conc.WaitGroup
		for _, cat := range Categories {
			wg.Go(func() {
				s.fetchFirstPage(gen, cat, query, language)
			})
		}
		wg.Wait()
	}()
}

func (s *Session) fetchFirstPage(gen uint64, cat Category, query, language string) {
	page, err := s.client.Search(s.ctx, cat.SearchKind(), query, 1, language)
	if err != nil {
		s.logger.Warn().Err(err).Str("category", string(cat)).Msg("Category search failed")
	}

	s.mu.Lock()
	if !s.currentLocked(gen) {
		s.mu.Unlock()
		s.logger.Debug().Str("category", string(cat)).Uint64("generation", gen).Msg("Dropping stale search response")
		return
	}

	st := emptyState(false)
	if err == nil && page != nil {
		st.Results = cat.tag(page.Results)
		st.TotalPages = page.TotalPages
		st.TotalResults = page.TotalResults
	}
	s.categories[cat] = st
	snap := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// LoadMore fetches the next page of one category and appends it. It returns
// ErrNoMorePages when the category is exhausted and ErrLoadInFlight when a
// fetch for it is already running; neither changes state.
func (s *Session) LoadMore(cat Category) error {
	if !cat.Valid() {
		return ErrUnknownCategory
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	st := s.categories[cat]
	if st.Loading {
		s.mu.Unlock()
		return ErrLoadInFlight
	}
	if s.query == "" || st.Page >= st.TotalPages {
		s.mu.Unlock()
		return ErrNoMorePages
	}

	gen := s.generation
	query, language := s.query, s.language
	next := st.Page + 1
	st.Loading = true
	s.categories[cat] = st
	s.inflight.Add()
	snap := s.changedLocked()
	s.mu.Unlock()
	s.notify(snap)

	go func() {
		defer s.inflight.Done()
		s.fetchNextPage(gen, cat, query, language, next)
	}()
	return nil
}

func (s *Session) fetchNextPage(gen uint64, cat Category, query, language string, next int) {
	page, err := s.client.Search(s.ctx, cat.SearchKind(), query, next, language)
	if err != nil {
		s.logger.Warn().Err(err).Str("category", string(cat)).Int("page", next).Msg("Load more failed")
	}

	s.mu.Lock()
	if !s.currentLocked(gen) {
		s.mu.Unlock()
		s.logger.Debug().Str("category", string(cat)).Uint64("generation", gen).Msg("Dropping stale page")
		return
	}

	st := s.categories[cat]
	st.Loading = false
	if err == nil && page != nil {
		st.Results = appendPage(st.Results, cat.tag(page.Results), s.opts.DedupeLoadMore)
		st.Page = next
	}
	s.categories[cat] = st
	snap := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func appendPage(existing, page []metadata.ResultItem, dedupe bool) []metadata.ResultItem {
	if !dedupe {
		return append(existing, page...)
	}

	seen := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		seen[r.Key()] = struct{}{}
	}
	for _, r := range page {
		if _, dup := seen[r.Key()]; dup {
			continue
		}
		seen[r.Key()] = struct{}{}
		existing = append(existing, r)
	}
	return existing
}

// SetActiveTab switches the category the view should render. It never fetches.
func (s *Session) SetActiveTab(cat Category) error {
	if !cat.Valid() {
		return ErrUnknownCategory
	}

	s.mu.Lock()
	if s.activeTab == cat {
		s.mu.Unlock()
		return nil
	}
	s.activeTab = cat
	snap := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

func (s *Session) setFollowsLanguage(follow bool) {
	s.mu.Lock()
	s.followsLanguage = follow
	s.mu.Unlock()
}

// applyLanguage re-runs the current query in language when the session
// follows the display language. It reports whether the session restarted.
func (s *Session) applyLanguage(language string) bool {
	s.mu.Lock()
	restart := s.followsLanguage && !s.closed && s.language != language
	query := s.query
	s.mu.Unlock()

	if !restart {
		return false
	}
	s.Start(query, language)
	return true
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Wait blocks until no fetch started by this session is outstanding, or ctx ends.
func (s *Session) Wait(ctx context.Context) error {
	return s.inflight.Wait(ctx)
}

// Close stops all further state commits and cancels outstanding requests.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

func (s *Session) currentLocked(gen uint64) bool {
	return !s.closed && gen == s.generation
}

func (s *Session) changedLocked() Snapshot {
	s.revision++
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	cats := make(map[Category]CategoryState, len(s.categories))
	for c, st := range s.categories {
		results := make([]metadata.ResultItem, len(st.Results))
		copy(results, st.Results)
		st.Results = results
		cats[c] = st
	}
	return Snapshot{
		ID:         s.id,
		Query:      s.query,
		Language:   s.language,
		ActiveTab:  s.activeTab,
		Categories: cats,
		Generation: s.generation,
		Revision:   s.revision,
	}
}

func (s *Session) notify(snap Snapshot) {
	if s.opts.OnChange != nil {
		s.opts.OnChange(snap)
	}
}
