package browse

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/moviecinema/moviecinema/internal/metadata"
	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
)

const (
	// MaxListPages is the deepest page TMDB serves for list endpoints.
	MaxListPages = 500
	knownForSize = 8
)

var ErrInvalidOption = errors.New("invalid browse option")

// Client is the subset of the TMDB client browsing needs.
type Client interface {
	List(ctx context.Context, mediaType tmdb.MediaType, list string, page int, language string) (*tmdb.Page, error)
	Trending(ctx context.Context, mediaType, window, language string) (*tmdb.Page, error)
	Person(ctx context.Context, id int, language string) (*tmdb.PersonDetails, error)
	CombinedCredits(ctx context.Context, id int, language string) (*tmdb.CombinedCredits, error)
}

// LanguageSource supplies the API language used when a request names none.
type LanguageSource interface {
	APILanguage() string
}

// HomeOptions selects what each home section shows.
type HomeOptions struct {
	Popular  tmdb.MediaType
	TopRated tmdb.MediaType
	Trending string
	Language string
}

// Home is the landing page feed.
type Home struct {
	Popular        []metadata.ResultItem `json:"popular"`
	PopularType    tmdb.MediaType        `json:"popularType"`
	Trending       []metadata.ResultItem `json:"trending"`
	TrendingWindow string                `json:"trendingWindow"`
	TopRated       []metadata.ResultItem `json:"topRated"`
	TopRatedType   tmdb.MediaType        `json:"topRatedType"`
	Language       string                `json:"language"`
}

// ContentList is one page of a curated list.
type ContentList struct {
	Type       tmdb.MediaType        `json:"type"`
	Category   string                `json:"category"`
	Results    []metadata.ResultItem `json:"results"`
	Page       int                   `json:"page"`
	TotalPages int                   `json:"totalPages"`
	Fallback   bool                  `json:"fallback,omitempty"`
}

// Person is a person's profile with their credits.
type Person struct {
	Details  *tmdb.PersonDetails   `json:"details"`
	KnownFor []metadata.ResultItem `json:"knownFor"`
	Credits  []metadata.ResultItem `json:"credits"`
}

type listRoute struct {
	mediaType tmdb.MediaType
	list      string
}

var listRoutes = map[string]listRoute{
	"movie/popular":     {tmdb.MediaMovie, "popular"},
	"movie/top-rated":   {tmdb.MediaMovie, "top_rated"},
	"movie/now-playing": {tmdb.MediaMovie, "now_playing"},
	"movie/upcoming":    {tmdb.MediaMovie, "upcoming"},
	"tv/popular":        {tmdb.MediaTV, "popular"},
	"tv/top-rated":      {tmdb.MediaTV, "top_rated"},
	"tv/airing-today":   {tmdb.MediaTV, "airing_today"},
	"tv/on-tv":          {tmdb.MediaTV, "on_the_air"},
}

var fallbackRoute = listRoute{tmdb.MediaMovie, "popular"}

// Service serves the browse pages.
type Service struct {
	client   Client
	language LanguageSource
	logger   zerolog.Logger
}

// NewService creates a browse service.
func NewService(client Client, language LanguageSource, logger zerolog.Logger) *Service {
	return &Service{
		client:   client,
		language: language,
		logger:   logger.With().Str("component", "browse").Logger(),
	}
}

// Home fetches the popular, trending and top rated sections concurrently.
// A section whose fetch fails is empty.
func (s *Service) Home(ctx context.Context, opts HomeOptions) (*Home, error) {
	opts, err := s.normalizeHome(opts)
	if err != nil {
		return nil, err
	}

	home := &Home{
		PopularType:    opts.Popular,
		TrendingWindow: opts.Trending,
		TopRatedType:   opts.TopRated,
		Language:       opts.Language,
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		page, err := s.client.List(ctx, opts.Popular, "popular", 1, opts.Language)
		home.Popular = s.section(page, err, metadata.Kind(opts.Popular), "popular")
	})
	wg.Go(func() {
		page, err := s.client.Trending(ctx, "all", opts.Trending, opts.Language)
		home.Trending = s.section(page, err, metadata.KindMovie, "trending")
	})
	wg.Go(func() {
		page, err := s.client.List(ctx, opts.TopRated, "top_rated", 1, opts.Language)
		home.TopRated = s.section(page, err, metadata.Kind(opts.TopRated), "top rated")
	})
	wg.Wait()

	return home, nil
}

func (s *Service) normalizeHome(opts HomeOptions) (HomeOptions, error) {
	if opts.Popular == "" {
		opts.Popular = tmdb.MediaMovie
	}
	if opts.TopRated == "" {
		opts.TopRated = tmdb.MediaMovie
	}
	if opts.Trending == "" {
		opts.Trending = "day"
	}
	if !opts.Popular.Valid() || !opts.TopRated.Valid() {
		return opts, fmt.Errorf("%w: content type must be movie or tv", ErrInvalidOption)
	}
	if opts.Trending != "day" && opts.Trending != "week" {
		return opts, fmt.Errorf("%w: trending window must be day or week", ErrInvalidOption)
	}
	opts.Language = s.resolveLanguage(opts.Language)
	return opts, nil
}

func (s *Service) section(page *tmdb.Page, err error, fallback metadata.Kind, name string) []metadata.ResultItem {
	if err != nil {
		s.logger.Warn().Err(err).Str("section", name).Msg("Home section fetch failed")
		return []metadata.ResultItem{}
	}
	return metadata.FromItems(page.Results, fallback)
}

// List returns one page of a curated list addressed as type/category, for
// example movie/now-playing. Unknown routes serve popular movies. A failed
// fetch yields an empty list with one page.
func (s *Service) List(ctx context.Context, contentType, category string, page int, language string) *ContentList {
	route, ok := listRoutes[contentType+"/"+category]
	if !ok {
		s.logger.Warn().Str("type", contentType).Str("category", category).Msg("Unknown list route, serving popular movies")
		route = fallbackRoute
	}
	page = min(max(page, 1), MaxListPages)

	out := &ContentList{
		Type:       route.mediaType,
		Category:   category,
		Results:    []metadata.ResultItem{},
		Page:       page,
		TotalPages: 1,
		Fallback:   !ok,
	}

	resp, err := s.client.List(ctx, route.mediaType, route.list, page, s.resolveLanguage(language))
	if err != nil {
		s.logger.Warn().Err(err).Str("list", route.list).Int("page", page).Msg("List fetch failed")
		return out
	}

	out.Results = metadata.FromItems(resp.Results, metadata.Kind(route.mediaType))
	out.TotalPages = clampPages(resp.TotalPages, len(resp.Results))
	return out
}

// clampPages caps TMDB's page count. A response without a count but with
// results gets the maximum so paging stays open.
func clampPages(total, results int) int {
	if total <= 0 {
		if results > 0 {
			return MaxListPages
		}
		return 1
	}
	return min(total, MaxListPages)
}

// Person fetches a person's details and combined credits concurrently.
// KnownFor holds the most popular cast credits; Credits lists every cast
// credit, newest first. A credits failure leaves both lists empty.
func (s *Service) Person(ctx context.Context, id int, language string) (*Person, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: person id %d", ErrInvalidOption, id)
	}
	language = s.resolveLanguage(language)

	var (
		details    *tmdb.PersonDetails
		detailsErr error
		credits    *tmdb.CombinedCredits
		creditsErr error
	)
	var wg conc.WaitGroup
	wg.Go(func() { details, detailsErr = s.client.Person(ctx, id, language) })
	wg.Go(func() { credits, creditsErr = s.client.CombinedCredits(ctx, id, language) })
	wg.Wait()

	if detailsErr != nil {
		return nil, fmt.Errorf("failed to load person %d: %w", id, detailsErr)
	}

	person := &Person{Details: details, KnownFor: []metadata.ResultItem{}, Credits: []metadata.ResultItem{}}
	if creditsErr != nil {
		s.logger.Warn().Err(creditsErr).Int("person", id).Msg("Combined credits fetch failed")
		return person, nil
	}

	cast := metadata.FromItems(credits.Cast, metadata.KindMovie)
	person.KnownFor = knownFor(cast)
	person.Credits = byReleaseDesc(cast)
	return person, nil
}

func knownFor(cast []metadata.ResultItem) []metadata.ResultItem {
	sorted := slices.Clone(cast)
	slices.SortStableFunc(sorted, func(a, b metadata.ResultItem) int {
		return cmp.Compare(b.Popularity, a.Popularity)
	})
	return sorted[:min(len(sorted), knownForSize)]
}

func byReleaseDesc(cast []metadata.ResultItem) []metadata.ResultItem {
	sorted := slices.Clone(cast)
	slices.SortStableFunc(sorted, func(a, b metadata.ResultItem) int {
		return cmp.Compare(b.ReleaseDate, a.ReleaseDate)
	})
	return sorted
}

func (s *Service) resolveLanguage(language string) string {
	if language == "" && s.language != nil {
		return s.language.APILanguage()
	}
	return language
}
