package metadata

import (
	"context"

	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
)

// DetailFetcher fetches raw movie and tv records.
type DetailFetcher interface {
	Movie(ctx context.Context, id int, language string) (*tmdb.MovieDetails, error)
	TV(ctx context.Context, id int, language string) (*tmdb.TVDetails, error)
}

// TMDBClient defines the TMDB operations the aggregators depend on.
// *tmdb.Client satisfies it; tests substitute fakes.
type TMDBClient interface {
	IsConfigured() bool
	Test(ctx context.Context) error
	Search(ctx context.Context, kind tmdb.SearchKind, query string, page int, language string) (*tmdb.Page, error)
	List(ctx context.Context, mediaType tmdb.MediaType, list string, page int, language string) (*tmdb.Page, error)
	Trending(ctx context.Context, mediaType, window, language string) (*tmdb.Page, error)
	DetailFetcher
	Videos(ctx context.Context, mediaType tmdb.MediaType, id int) ([]tmdb.Video, error)
	Credits(ctx context.Context, mediaType tmdb.MediaType, id int) (*tmdb.Credits, error)
	Similar(ctx context.Context, mediaType tmdb.MediaType, id, page int, language string) (*tmdb.Page, error)
	Recommendations(ctx context.Context, mediaType tmdb.MediaType, id, page int, language string) (*tmdb.Page, error)
	Reviews(ctx context.Context, mediaType tmdb.MediaType, id, page int, language string) (*tmdb.ReviewPage, error)
	Person(ctx context.Context, id int, language string) (*tmdb.PersonDetails, error)
	CombinedCredits(ctx context.Context, id int, language string) (*tmdb.CombinedCredits, error)
}

var _ TMDBClient = (*tmdb.Client)(nil)

// FetchDetail fetches and normalizes a movie or tv record.
func FetchDetail(ctx context.Context, client DetailFetcher, mediaType tmdb.MediaType, id int, language string) (*ContentDetail, error) {
	switch mediaType {
	case tmdb.MediaMovie:
		m, err := client.Movie(ctx, id, language)
		if err != nil {
			return nil, err
		}
		return NormalizeMovie(m), nil
	case tmdb.MediaTV:
		t, err := client.TV(ctx, id, language)
		if err != nil {
			return nil, err
		}
		return NormalizeTV(t), nil
	default:
		return nil, tmdb.ErrInvalidMediaType
	}
}
