package search

import (
	"github.com/rs/zerolog"

	"github.com/moviecinema/moviecinema/internal/config"
	"github.com/moviecinema/moviecinema/internal/sessions"
	"github.com/moviecinema/moviecinema/internal/websocket"
)

// Publisher pushes session snapshots to connected views.
type Publisher interface {
	Publish(sessionID, msgType string, payload interface{}) error
}

// LanguageSource supplies the API language used when a request names none.
type LanguageSource interface {
	APILanguage() string
}

// Service owns the live search sessions.
type Service struct {
	client    Searcher
	registry  *sessions.Registry[*Session]
	language  LanguageSource
	publisher Publisher
	cfg       config.SearchConfig
	logger    zerolog.Logger
}

// NewService creates a search service. publisher may be nil.
func NewService(client Searcher, registry *sessions.Registry[*Session], language LanguageSource, publisher Publisher, cfg config.SearchConfig, logger zerolog.Logger) *Service {
	return &Service{
		client:    client,
		registry:  registry,
		language:  language,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With().Str("component", "search").Logger(),
	}
}

// Create registers a new session and starts the query on it.
func (s *Service) Create(query, language string) *Session {
	id := sessions.NewID()
	session := NewSession(id, s.client, Options{
		DedupeLoadMore: s.cfg.DedupeLoadMore,
		OnChange:       s.publish,
	}, s.logger)
	session.setFollowsLanguage(language == "")
	s.registry.Add(id, session)

	session.Start(query, s.resolveLanguage(language))
	return session
}

// Get returns a live session.
func (s *Service) Get(id string) (*Session, error) {
	return s.registry.Get(id)
}

// Update replaces the query (and language) of an existing session.
func (s *Service) Update(id, query, language string) (*Session, error) {
	session, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	session.setFollowsLanguage(language == "")
	session.Start(query, s.resolveLanguage(language))
	return session, nil
}

// ApplyLanguage re-runs every session that follows the display language in
// the new API language and returns how many restarted.
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
	if err := s.publisher.Publish(snap.ID, websocket.TypeSearchUpdated, snap); err != nil {
		s.logger.Debug().Err(err).Str("session", snap.ID).Msg("Failed to publish search snapshot")
	}
}
