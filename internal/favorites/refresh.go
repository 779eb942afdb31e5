package favorites

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/moviecinema/moviecinema/internal/metadata"
)

const defaultRefreshWorkers = 8

// Refresher re-fetches favorites in a given language.
type Refresher struct {
	client  metadata.DetailFetcher
	workers int
	now     func() time.Time
	logger  zerolog.Logger
}

// NewRefresher creates a refresher running at most workers fetches at once.
func NewRefresher(client metadata.DetailFetcher, workers int, logger zerolog.Logger) *Refresher {
	if workers <= 0 {
		workers = defaultRefreshWorkers
	}
	return &Refresher{
		client:  client,
		workers: workers,
		now:     time.Now,
		logger:  logger.With().Str("component", "favorites-refresh").Logger(),
	}
}

// Refresh returns items with freshly fetched records, in input order. An
// item whose fetch fails is returned unchanged. FavoritedAt is always kept,
// and stamped with the current time when missing.
func (r *Refresher) Refresh(ctx context.Context, items []Item, language string) []Item {
	out := make([]Item, len(items))
	if len(items) == 0 {
		return out
	}

	p := pool.New().WithMaxGoroutines(r.workers)
	for i, item := range items {
		p.Go(func() {
			out[i] = r.refreshOne(ctx, item, language)
		})
	}
	p.Wait()

	return out
}

func (r *Refresher) refreshOne(ctx context.Context, item Item, language string) Item {
	detail, err := metadata.FetchDetail(ctx, r.client, item.ContentType, item.ID, language)
	if err != nil || !detail.Usable() {
		r.logger.Warn().Err(err).
			Int("id", item.ID).
			Str("contentType", string(item.ContentType)).
			Msg("Keeping stale favorite")
		return item
	}

	fresh := item
	fresh.Record = *detail
	if fresh.FavoritedAt.IsZero() {
		fresh.FavoritedAt = r.now()
	}
	return fresh
}
