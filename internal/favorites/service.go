package favorites

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/moviecinema/moviecinema/internal/metadata"
	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
)

// LanguageSource supplies the API language used when a request names none.
type LanguageSource interface {
	APILanguage() string
}

// Service combines the favorites store with detail fetching.
type Service struct {
	store     *Store
	client    metadata.DetailFetcher
	refresher *Refresher
	language  LanguageSource
	logger    zerolog.Logger
}

// NewService creates a favorites service.
func NewService(store *Store, client metadata.DetailFetcher, refresher *Refresher, language LanguageSource, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		client:    client,
		refresher: refresher,
		language:  language,
		logger:    logger.With().Str("component", "favorites").Logger(),
	}
}

// List returns the stored favorites in insertion order.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	return s.store.List(ctx)
}

// Refreshed returns the favorites with records re-fetched in language.
func (s *Service) Refreshed(ctx context.Context, language string) ([]Item, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.refresher.Refresh(ctx, items, s.resolveLanguage(language)), nil
}

// Get returns one favorite.
func (s *Service) Get(ctx context.Context, contentType tmdb.MediaType, id int) (*Item, error) {
	return s.store.Get(ctx, contentType, id)
}

// Add fetches the title's record and saves it. Adding a saved title is a no-op.
func (s *Service) Add(ctx context.Context, contentType tmdb.MediaType, id int, language string) (*Item, bool, error) {
	item, err := s.fetch(ctx, contentType, id, language)
	if err != nil {
		return nil, false, err
	}
	added, err := s.store.Add(ctx, *item)
	if err != nil {
		return nil, false, err
	}
	if added {
		s.logger.Info().Int("id", id).Str("contentType", string(contentType)).Msg("Added favorite")
	}
	return item, added, nil
}

// Remove deletes a favorite.
func (s *Service) Remove(ctx context.Context, contentType tmdb.MediaType, id int) error {
	removed, err := s.store.Remove(ctx, contentType, id)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

// Toggle removes a saved title or fetches and saves an unsaved one. It
// returns whether the title is a favorite afterwards.
func (s *Service) Toggle(ctx context.Context, contentType tmdb.MediaType, id int, language string) (bool, error) {
	saved, err := s.store.IsFavorite(ctx, contentType, id)
	if err != nil {
		return false, err
	}
	if saved {
		if _, err := s.store.Remove(ctx, contentType, id); err != nil {
			return false, err
		}
		return false, nil
	}

	item, err := s.fetch(ctx, contentType, id, language)
	if err != nil {
		return false, err
	}
	return s.store.Toggle(ctx, *item)
}

// Import replaces the favorites with a legacy browser export.
func (s *Service) Import(ctx context.Context, data []byte) (int, error) {
	items, err := ParseLegacy(data, time.Now())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	n, err := s.store.ReplaceAll(ctx, items)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int("count", n).Msg("Imported legacy favorites")
	return n, nil
}

func (s *Service) fetch(ctx context.Context, contentType tmdb.MediaType, id int, language string) (*Item, error) {
	if id <= 0 || !contentType.Valid() {
		return nil, fmt.Errorf("%w: %s/%d", ErrInvalidItem, contentType, id)
	}
	detail, err := metadata.FetchDetail(ctx, s.client, contentType, id, s.resolveLanguage(language))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s %d: %w", contentType, id, err)
	}
	if !detail.Usable() {
		return nil, fmt.Errorf("%s %d: %w", contentType, id, tmdb.ErrNotFound)
	}
	return &Item{ID: id, ContentType: contentType, Record: *detail}, nil
}

func (s *Service) resolveLanguage(language string) string {
	if language == "" && s.language != nil {
		return s.language.APILanguage()
	}
	return language
}
