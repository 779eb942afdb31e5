package locale

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

const settingsKey = "language"

// ErrUnsupportedLanguage is returned for languages other than English and Vietnamese.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Language is a UI language tag.
type Language string

const (
	English    Language = "en"
	Vietnamese Language = "vi"
)

// APILanguage returns the region-qualified code sent to TMDB.
func (l Language) APILanguage() string {
	switch l {
	case Vietnamese:
		return "vi-VN"
	default:
		return "en-US"
	}
}

// Parse accepts any BCP 47 tag whose base language is English or Vietnamese,
// so "vi", "vi-VN" and "EN-us" all resolve.
func Parse(tag string) (Language, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, tag)
	}
	base, _ := t.Base()
	switch base.String() {
	case "en":
		return English, nil
	case "vi":
		return Vietnamese, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, tag)
}

// Provider holds the current UI language and persists changes.
type Provider struct {
	settings *Settings

	mu        sync.RWMutex
	lang      Language
	listeners []func(Language)

	logger zerolog.Logger
}

// NewProvider loads the saved language, falling back to fallback and then
// English when nothing valid is stored.
func NewProvider(ctx context.Context, settings *Settings, fallback string, logger zerolog.Logger) (*Provider, error) {
	p := &Provider{
		settings: settings,
		lang:     English,
		logger:   logger.With().Str("component", "locale").Logger(),
	}
	if l, err := Parse(fallback); err == nil {
		p.lang = l
	}

	saved, ok, err := settings.Get(ctx, settingsKey)
	if err != nil {
		return nil, err
	}
	if ok {
		if l, err := Parse(saved); err == nil {
			p.lang = l
		} else {
			p.logger.Warn().Str("saved", saved).Msg("Ignoring invalid saved language")
		}
	}
	return p, nil
}

// Language returns the current UI language.
func (p *Provider) Language() Language {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lang
}

// APILanguage returns the TMDB language code for the current UI language.
func (p *Provider) APILanguage() string {
	return p.Language().APILanguage()
}

// OnChange registers fn to be called after every language change.
func (p *Provider) OnChange(fn func(Language)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// SetLanguage parses, stores and applies tag.
func (p *Provider) SetLanguage(ctx context.Context, tag string) (Language, error) {
	l, err := Parse(tag)
	if err != nil {
		return p.Language(), err
	}
	return l, p.apply(ctx, l)
}

// Toggle switches between English and Vietnamese.
func (p *Provider) Toggle(ctx context.Context) (Language, error) {
	next := Vietnamese
	if p.Language() == Vietnamese {
		next = English
	}
	return next, p.apply(ctx, next)
}

func (p *Provider) apply(ctx context.Context, l Language) error {
	if err := p.settings.Set(ctx, settingsKey, string(l)); err != nil {
		return err
	}

	p.mu.Lock()
	changed := p.lang != l
	p.lang = l
	listeners := append([]func(Language){}, p.listeners...)
	p.mu.Unlock()

	if !changed {
		return nil
	}
	p.logger.Info().Str("language", string(l)).Msg("Language changed")
	for _, fn := range listeners {
		fn(l)
	}
	return nil
}
