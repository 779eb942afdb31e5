package detail

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
	"github.com/moviecinema/moviecinema/internal/sessions"
	"github.com/moviecinema/moviecinema/internal/websocket"
)

// ReviewClient fetches user reviews for a title.
type ReviewClient interface {
	Reviews(ctx context.Context, mediaType tmdb.MediaType, id, page int, language string) (*tmdb.ReviewPage, error)
}

// Publisher pushes session snapshots to connected views.
type Publisher interface {
	Publish(sessionID, msgType string, payload interface{}) error
}

// LanguageSource supplies the API language used when a request names none.
type LanguageSource interface {
	APILanguage() string
}

// Service owns the live detail sessions.
type Service struct {
	client    Client
	reviews   ReviewClient
	registry  *sessions.Registry[*Session]
	language  LanguageSource
	publisher Publisher
	logger    zerolog.Logger
}

// NewService creates a detail service. reviews and publisher may be nil.
func NewService(client Client, reviews ReviewClient, registry *sessions.Registry[*Session], language LanguageSource, publisher Publisher, logger zerolog.Logger) *Service {
	return &Service{
		client:    client,
		reviews:   reviews,
		registry:  registry,
		language:  language,
		publisher: publisher,
		logger:    logger.With().Str("component", "detail").Logger(),
	}
}

// Create validates the content key, registers a session and starts loading it.
func (s *Service) Create(contentID int, contentType tmdb.MediaType, language string) (*Session, error) {
	if contentID <= 0 || !contentType.Valid() {
		return nil, ErrInvalidContent
	}

	id := sessions.NewID()
	session := NewSession(id, s.client, Options{OnChange: s.publish}, s.logger)
	session.setFollowsLanguage(language == "")
	if err := session.Load(contentID, contentType, s.resolveLanguage(language)); err != nil {
		session.Close()
		return nil, err
	}
	s.registry.Add(id, session)
	return session, nil
}

// Get returns a live session.
func (s *Service) Get(id string) (*Session, error) {
	return s.registry.Get(id)
}

// Update points an existing session at new content or a new language. A zero
// contentID or empty contentType keeps the current value.
func (s *Service) Update(id string, contentID int, contentType tmdb.MediaType, language string) (*Session, error) {
	session, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}

	snap := session.Snapshot()
	if contentID == 0 {
		contentID = snap.ContentID
	}
	if contentType == "" {
		contentType = snap.ContentType
	}
	session.setFollowsLanguage(language == "")
	if err := session.Load(contentID, contentType, s.resolveLanguage(language)); err != nil {
		return nil, err
	}
	return session, nil
}

// ApplyLanguage reloads every session that follows the display language in
// the new API language and returns how many reloaded.
func (s *Service) ApplyLanguage(language string) int {
	n := 0
	s.registry.Each(func(session *Session) {
		if session.applyLanguage(language) {
			n++
		}
	})
	return n
}

// Delete closes and forgets a session.
func (s *Service) Delete(id string) error {
	return s.registry.Remove(id)
}

// Reviews returns one page of user reviews for a title.
func (s *Service) Reviews(ctx context.Context, contentType tmdb.MediaType, contentID, page int, language string) (*tmdb.ReviewPage, error) {
	if contentID <= 0 || !contentType.Valid() {
		return nil, ErrInvalidContent
	}
	if s.reviews == nil {
		return nil, fmt.Errorf("reviews: %w", tmdb.ErrAPIKeyMissing)
	}
	if page < 1 {
		page = 1
	}
	if language == "" {
		language = "en-US"
	}
	return s.reviews.Reviews(ctx, contentType, contentID, page, language)
}

func (s *Service) resolveLanguage(language string) string {
	if language == "" && s.language != nil {
		return s.language.APILanguage()
	}
	return language
}

func (s *Service) publish(snap Snapshot) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(snap.ID, websocket.TypeDetailUpdated, snap); err != nil {
		s.logger.Debug().Err(err).Str("session", snap.ID).Msg("Failed to publish detail snapshot")
	}
}
