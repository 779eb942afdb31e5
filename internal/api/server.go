package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	apimw "github.com/moviecinema/moviecinema/internal/api/middleware"
	"github.com/moviecinema/moviecinema/internal/browse"
	"github.com/moviecinema/moviecinema/internal/config"
	"github.com/moviecinema/moviecinema/internal/detail"
	"github.com/moviecinema/moviecinema/internal/favorites"
	"github.com/moviecinema/moviecinema/internal/locale"
	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
	"github.com/moviecinema/moviecinema/internal/scheduler"
	"github.com/moviecinema/moviecinema/internal/scheduler/tasks"
	"github.com/moviecinema/moviecinema/internal/search"
	"github.com/moviecinema/moviecinema/internal/sessions"
	"github.com/moviecinema/moviecinema/internal/websocket"
)

// Server handles HTTP requests for the MovieCinema API.
type Server struct {
	echo      *echo.Echo
	hub       *websocket.Hub
	scheduler *scheduler.Scheduler
	logger    zerolog.Logger
	cfg       *config.Config
	logFile   string

	tmdbClient *tmdb.Client
	locale     *locale.Provider
	health     *tasks.TMDBHealthTask

	searchSessions *sessions.Registry[*search.Session]
	detailSessions *sessions.Registry[*detail.Session]

	searchService    *search.Service
	detailService    *detail.Service
	favoritesService *favorites.Service
	browseService    *browse.Service
}

// Deps are the long-lived collaborators owned by the caller.
type Deps struct {
	DB        *sql.DB
	Hub       *websocket.Hub
	Scheduler *scheduler.Scheduler
	Config    *config.Config
	Logger    zerolog.Logger
	// LogFile is the active log file served by /api/v1/logs/download.
	LogFile string
}

// NewServer creates a new API server instance and registers its scheduled tasks.
func NewServer(ctx context.Context, deps Deps) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	cfg := deps.Config
	logger := deps.Logger

	s := &Server{
		echo:      e,
		hub:       deps.Hub,
		scheduler: deps.Scheduler,
		logger:    logger,
		cfg:       cfg,
		logFile:   deps.LogFile,
	}

	s.tmdbClient = tmdb.NewClient(cfg.TMDB, logger)

	provider, err := locale.NewProvider(ctx, locale.NewSettings(deps.DB), cfg.Locale.Default, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load locale: %w", err)
	}
	s.locale = provider

	var publisher interface {
		Publish(sessionID, msgType string, payload interface{}) error
	}
	if s.hub != nil {
		publisher = s.hub
	}

	s.searchSessions = sessions.NewRegistry[*search.Session]("search", logger)
	s.searchService = search.NewService(s.tmdbClient, s.searchSessions, provider, publisher, cfg.Search, logger)

	s.detailSessions = sessions.NewRegistry[*detail.Session]("detail", logger)
	s.detailService = detail.NewService(s.tmdbClient, s.tmdbClient, s.detailSessions, provider, publisher, logger)

	refresher := favorites.NewRefresher(s.tmdbClient, cfg.Favorites.RefreshWorkers, logger)
	s.favoritesService = favorites.NewService(favorites.NewStore(deps.DB), s.tmdbClient, refresher, provider, logger)

	s.browseService = browse.NewService(s.tmdbClient, provider, logger)

	provider.OnChange(s.onLanguageChange)

	s.health = tasks.NewTMDBHealthTask(s.tmdbClient, logger)
	if s.scheduler != nil {
		if err := s.registerTasks(); err != nil {
			return nil, err
		}
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// onLanguageChange moves live sessions that follow the display language to
// the new API language and tells connected views.
func (s *Server) onLanguageChange(l locale.Language) {
	apiLanguage := l.APILanguage()
	searches := s.searchService.ApplyLanguage(apiLanguage)
	details := s.detailService.ApplyLanguage(apiLanguage)
	s.logger.Info().
		Str("apiLanguage", apiLanguage).
		Int("searchSessions", searches).
		Int("detailSessions", details).
		Msg("Reloading sessions for new language")

	if s.hub == nil {
		return
	}
	payload := locale.Response{Language: l, APILanguage: apiLanguage}
	if err := s.hub.Broadcast(websocket.TypeLocaleChanged, payload); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to broadcast locale change")
	}
}

func (s *Server) registerTasks() error {
	registries := map[string]tasks.Reaper{
		"search": s.searchSessions,
		"detail": s.detailSessions,
	}
	if err := tasks.RegisterSessionReaperTask(s.scheduler, registries, s.cfg.Sessions, s.logger); err != nil {
		return fmt.Errorf("failed to register session reaper: %w", err)
	}
	if err := tasks.RegisterTMDBHealthTask(s.scheduler, s.health, s.cfg.TMDB.HealthCron); err != nil {
		return fmt.Errorf("failed to register TMDB health check: %w", err)
	}
	return nil
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(apimw.SecurityHeaders("/api"))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Debug().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if s.hub != nil {
		s.echo.GET("/ws", s.hub.HandleWebSocket)
	}

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.getStatus)

	search.NewHandlers(s.searchService).RegisterRoutes(api.Group("/search"))
	detail.NewHandlers(s.detailService).RegisterRoutes(api.Group("/detail"))
	favorites.NewHandlers(s.favoritesService).RegisterRoutes(api.Group("/favorites"))
	locale.NewHandlers(s.locale).RegisterRoutes(api.Group("/locale"))
	browse.NewHandlers(s.browseService).RegisterRoutes(api)

	if s.scheduler != nil {
		scheduler.NewHandlers(s.scheduler).RegisterRoutes(api.Group("/tasks"))
	}

	NewLogsHandlers(s).RegisterRoutes(api.Group("/logs"))
}

// healthCheck reports liveness plus the last TMDB probe result.
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"tmdb":   s.health.Status(),
	})
}

// StatusResponse describes the running server.
type StatusResponse struct {
	Version        string             `json:"version"`
	Language       locale.Language    `json:"language"`
	APILanguage    string             `json:"apiLanguage"`
	TMDB           tasks.HealthStatus `json:"tmdb"`
	SearchSessions int                `json:"searchSessions"`
	DetailSessions int                `json:"detailSessions"`
	Clients        int                `json:"clients"`
}

func (s *Server) getStatus(c echo.Context) error {
	status := StatusResponse{
		Version:        config.Version,
		Language:       s.locale.Language(),
		APILanguage:    s.locale.APILanguage(),
		TMDB:           s.health.Status(),
		SearchSessions: s.searchSessions.Len(),
		DetailSessions: s.detailSessions.Len(),
	}
	if s.hub != nil {
		status.Clients = s.hub.ClientCount()
	}
	return c.JSON(http.StatusOK, status)
}

// LogFilePath returns the active log file, empty when file logging is off.
func (s *Server) LogFilePath() string {
	return s.logFile
}

// TMDB returns the shared TMDB client.
func (s *Server) TMDB() *tmdb.Client {
	return s.tmdbClient
}

// Start starts the HTTP server.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown closes every live session and gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	s.searchSessions.CloseAll()
	s.detailSessions.CloseAll()
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
