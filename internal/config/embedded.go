package config

// EmbeddedTMDBKey is the fallback TMDB API key, injected at build time:
//
//	go build -ldflags "-X 'github.com/moviecinema/moviecinema/internal/config.EmbeddedTMDBKey=xxx'"
//
// Environment variables and the config file take precedence.
var EmbeddedTMDBKey string
