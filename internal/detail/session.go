package detail

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/moviecinema/moviecinema/internal/metadata"
	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
	"github.com/moviecinema/moviecinema/internal/sessions"
)

var (
	ErrInvalidContent = errors.New("invalid content id or type")
	ErrSessionClosed  = errors.New("detail session closed")
)

// errNoRecord is recorded when TMDB answers without a usable record.
var errNoRecord = errors.New("content not found")

// Client is the subset of the TMDB client a detail session uses.
type Client interface {
	metadata.DetailFetcher
	Videos(ctx context.Context, mediaType tmdb.MediaType, id int) ([]tmdb.Video, error)
	Credits(ctx context.Context, mediaType tmdb.MediaType, id int) (*tmdb.Credits, error)
	Similar(ctx context.Context, mediaType tmdb.MediaType, id, page int, language string) (*tmdb.Page, error)
	Recommendations(ctx context.Context, mediaType tmdb.MediaType, id, page int, language string) (*tmdb.Page, error)
}

// Snapshot is a copy of a detail session's state safe to hand to renderers.
type Snapshot struct {
	ID                    string                  `json:"id"`
	ContentID             int                     `json:"contentId"`
	ContentType           tmdb.MediaType          `json:"contentType"`
	Language              string                  `json:"language"`
	Detail                *metadata.ContentDetail `json:"detail"`
	Trailer               *tmdb.Video             `json:"trailer"`
	TrailerKey            *string                 `json:"trailerKey"`
	Credits               metadata.Credits        `json:"credits"`
	Similar               []metadata.ResultItem   `json:"similar"`
	Recommendations       []metadata.ResultItem   `json:"recommendations"`
	OfficialVideos        []tmdb.Video            `json:"officialVideos"`
	Loading               bool                    `json:"loading"`
	OfficialVideosLoading bool                    `json:"officialVideosLoading"`
	Error                 *string                 `json:"error"`
	Generation            uint64                  `json:"generation"`
	Revision              uint64                  `json:"revision"`
}

// Options configures a Session.
type Options struct {
	// OnChange receives a snapshot after every committed state change.
	OnChange func(Snapshot)
}

// Session aggregates everything one detail page needs. Reloading with a new
// id, type or language bumps the generation so late responses of earlier
// loads are dropped. Official videos are keyed by id and type only and have
// their own generation.
type Session struct {
	id     string
	client Client
	opts   Options
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu                    sync.Mutex
	generation            uint64
	videoGeneration       uint64
	revision              uint64
	contentID             int
	contentType           tmdb.MediaType
	language              string
	detail                *metadata.ContentDetail
	trailer               *tmdb.Video
	credits               metadata.Credits
	similar               []metadata.ResultItem
	recommendations       []metadata.ResultItem
	officialVideos        []tmdb.Video
	loading               bool
	officialVideosLoading bool
	err                   string
	closed                bool
	// followsLanguage is set when no explicit language was requested, so a
	// display language change reloads the page.
	followsLanguage bool

	inflight sessions.Inflight
}

// NewSession creates an empty detail session.
func NewSession(id string, client Client, opts Options, logger zerolog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     id,
		client: client,
		opts:   opts,
		logger: logger.With().Str("component", "detail").Str("session", id).Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
	s.resetLocked()
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) resetLocked() {
	s.detail = nil
	s.trailer = nil
	s.credits = metadata.EmptyCredits()
	s.similar = []metadata.ResultItem{}
	s.recommendations = []metadata.ResultItem{}
	s.officialVideos = []tmdb.Video{}
}

type loadResult struct {
	detail          *metadata.ContentDetail
	detailErr       error
	trailer         *tmdb.Video
	credits         metadata.Credits
	similar         []metadata.ResultItem
	recommendations []metadata.ResultItem
}

// Load fetches detail, trailer, credits, similar titles and recommendations
// concurrently and commits them together once all five have settled. When
// the id or type changes the official videos are fetched as well.
func (s *Session) Load(contentID int, contentType tmdb.MediaType, language string) error {
	if contentID <= 0 || !contentType.Valid() {
		return ErrInvalidContent
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}

	keyChanged := contentID != s.contentID || contentType != s.contentType
	s.generation++
	gen := s.generation
	s.contentID = contentID
	s.contentType = contentType
	s.language = language
	s.loading = true
	s.err = ""

	var videoGen uint64
	if keyChanged {
		s.resetLocked()
		s.videoGeneration++
		videoGen = s.videoGeneration
		s.officialVideosLoading = true
		s.inflight.Add()
	}
	s.inflight.Add()
	snap := s.changedLocked()
	s.mu.Unlock()
	s.notify(snap)

	s.logger.Debug().
		Int("contentId", contentID).
		Str("contentType", string(contentType)).
		Str("language", language).
		Uint64("generation", gen).
		Msg("Loading detail")

	go func() {
		defer s.inflight.Done()
		s.commitLoad(gen, s.fetchAll(contentID, contentType, language))
	}()

	if keyChanged {
		go func() {
			defer s.inflight.Done()
			s.loadOfficialVideos(videoGen, contentID, contentType)
		}()
	}
	return nil
}

func (s *Session) fetchAll(contentID int, contentType tmdb.MediaType, language string) loadResult {
	res := loadResult{
		credits:         metadata.EmptyCredits(),
		similar:         []metadata.ResultItem{},
		recommendations: []metadata.ResultItem{},
	}
	kind := metadata.Kind(contentType)
	log := s.logger.With().Int("contentId", contentID).Str("contentType", string(contentType)).Logger()

	var wg conc.WaitGroup
	wg.Go(func() {
		res.detail, res.detailErr = metadata.FetchDetail(s.ctx, s.client, contentType, contentID, language)
	})
	wg.Go(func() {
		videos, err := s.client.Videos(s.ctx, contentType, contentID)
		if err != nil {
			log.Warn().Err(err).Msg("Trailer lookup failed")
			return
		}
		res.trailer = SelectTrailer(videos)
	})
	wg.Go(func() {
		credits, err := s.client.Credits(s.ctx, contentType, contentID)
		if err != nil {
			log.Warn().Err(err).Msg("Credits fetch failed")
			return
		}
		res.credits = metadata.NormalizeCredits(credits)
	})
	wg.Go(func() {
		page, err := s.client.Similar(s.ctx, contentType, contentID, 1, language)
		if err != nil {
			log.Warn().Err(err).Msg("Similar titles fetch failed")
			return
		}
		res.similar = metadata.FromItems(page.Results, kind)
	})
	wg.Go(func() {
		page, err := s.client.Recommendations(s.ctx, contentType, contentID, 1, language)
		if err != nil {
			log.Warn().Err(err).Msg("Recommendations fetch failed")
			return
		}
		res.recommendations = metadata.FromItems(page.Results, kind)
	})
	wg.Wait()

	return res
}

func (s *Session) commitLoad(gen uint64, res loadResult) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug().Uint64("generation", gen).Msg("Dropping stale detail load")
		return
	}

	s.loading = false
	switch {
	case res.detailErr != nil:
		s.detail = nil
		s.err = fmt.Sprintf("failed to load %s details: %v", s.contentType, res.detailErr)
	case !res.detail.Usable():
		s.detail = nil
		s.err = errNoRecord.Error()
	default:
		s.detail = res.detail
	}
	if s.detail == nil {
		s.logger.Warn().Err(res.detailErr).Int("contentId", s.contentID).Msg("Detail unavailable")
	}

	s.trailer = res.trailer
	s.credits = res.credits
	s.similar = res.similar
	s.recommendations = res.recommendations
	snap := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Session) loadOfficialVideos(videoGen uint64, contentID int, contentType tmdb.MediaType) {
	official := []tmdb.Video{}
	videos, err := s.client.Videos(s.ctx, contentType, contentID)
	if err != nil {
		s.logger.Warn().Err(err).Int("contentId", contentID).Msg("Official videos fetch failed")
	} else {
		official = OfficialVideos(videos)
	}

	s.mu.Lock()
	if s.closed || videoGen != s.videoGeneration {
		s.mu.Unlock()
		return
	}
	s.officialVideos = official
	s.officialVideosLoading = false
	snap := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Reload repeats the current load with a new language. Official videos are
// not refetched.
func (s *Session) Reload(language string) error {
	s.mu.Lock()
	id, typ := s.contentID, s.contentType
	s.mu.Unlock()
	return s.Load(id, typ, language)
}

func (s *Session) setFollowsLanguage(follow bool) {
	s.mu.Lock()
	s.followsLanguage = follow
	s.mu.Unlock()
}

// applyLanguage reloads the current title in language when the session
// follows the display language. It reports whether a reload started.
func (s *Session) applyLanguage(language string) bool {
	s.mu.Lock()
	reload := s.followsLanguage && !s.closed && s.contentID > 0 && s.language != language
	s.mu.Unlock()

	if !reload {
		return false
	}
	return s.Reload(language) == nil
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Wait blocks until every fetch started by this session has settled, or ctx ends.
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

func (s *Session) changedLocked() Snapshot {
	s.revision++
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:                    s.id,
		ContentID:             s.contentID,
		ContentType:           s.contentType,
		Language:              s.language,
		Credits:               metadata.Credits{Cast: append([]metadata.CreditPerson{}, s.credits.Cast...), Crew: append([]metadata.CreditPerson{}, s.credits.Crew...)},
		Similar:               append([]metadata.ResultItem{}, s.similar...),
		Recommendations:       append([]metadata.ResultItem{}, s.recommendations...),
		OfficialVideos:        append([]tmdb.Video{}, s.officialVideos...),
		Loading:               s.loading,
		OfficialVideosLoading: s.officialVideosLoading,
		Generation:            s.generation,
		Revision:              s.revision,
	}
	if s.detail != nil {
		d := *s.detail
		snap.Detail = &d
	}
	if s.trailer != nil {
		v := *s.trailer
		snap.Trailer = &v
		key := v.Key
		snap.TrailerKey = &key
	}
	if s.err != "" {
		msg := s.err
		snap.Error = &msg
	}
	return snap
}

func (s *Session) notify(snap Snapshot) {
	if s.opts.OnChange != nil {
		s.opts.OnChange(snap)
	}
}
