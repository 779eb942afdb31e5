package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/moviecinema/moviecinema/internal/config"
	"github.com/moviecinema/moviecinema/internal/startup"
)

var (
	ErrAPIKeyMissing    = errors.New("TMDB API key is not configured")
	ErrNotFound         = errors.New("TMDB resource not found")
	ErrAPIError         = errors.New("TMDB API error")
	ErrRateLimited      = errors.New("TMDB API rate limited")
	ErrInvalidMediaType = errors.New("invalid media type")

	// errServerSide marks 5xx responses as worth retrying.
	errServerSide = errors.New("server side failure")
)

// TrailerLanguage is the fixed language used for every videos request.
const TrailerLanguage = "en-US"

// Client is a TMDB v3 API client.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	limiter    *rate.Limiter
	retryDelay time.Duration
	logger     zerolog.Logger
}

// NewClient creates a new TMDB client.
func NewClient(cfg config.TMDBConfig, logger zerolog.Logger) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config:     cfg,
		limiter:    rate.NewLimiter(limit, burst),
		retryDelay: 500 * time.Millisecond,
		logger:     logger.With().Str("component", "tmdb").Logger(),
	}
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Test verifies connectivity to the TMDB API by making a configuration request.
func (c *Client) Test(ctx context.Context) error {
	var result struct {
		Images struct {
			SecureBaseURL string `json:"secure_base_url"`
		} `json:"images"`
	}
	return c.doRequest(ctx, "configuration", "/configuration", nil, &result)
}

// Search runs one of the /search endpoints. Adult results are always excluded.
func (c *Client) Search(ctx context.Context, kind SearchKind, query string, page int, language string) (*Page, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("include_adult", "false")
	setLanguage(params, language)

	var result Page
	if err := c.doRequest(ctx, "search", "/search/"+string(kind), params, &result); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("kind", string(kind)).
		Str("query", query).
		Int("page", page).
		Int("results", len(result.Results)).
		Msg("Search completed")

	return &result, nil
}

// List fetches a curated list such as /movie/popular or /tv/on_the_air.
func (c *Client) List(ctx context.Context, mediaType MediaType, list string, page int, language string) (*Page, error) {
	if !mediaType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMediaType, mediaType)
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	setLanguage(params, language)

	var result Page
	if err := c.doRequest(ctx, "list", fmt.Sprintf("/%s/%s", mediaType, list), params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Trending fetches /trending/{mediaType}/{window}. mediaType may be "all".
func (c *Client) Trending(ctx context.Context, mediaType, window, language string) (*Page, error) {
	params := url.Values{}
	setLanguage(params, language)

	var result Page
	if err := c.doRequest(ctx, "trending", fmt.Sprintf("/trending/%s/%s", mediaType, window), params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Movie gets movie details by TMDB ID.
func (c *Client) Movie(ctx context.Context, id int, language string) (*MovieDetails, error) {
	params := url.Values{}
	setLanguage(params, language)

	var details MovieDetails
	if err := c.doRequest(ctx, "details", fmt.Sprintf("/movie/%d", id), params, &details); err != nil {
		return nil, err
	}

	c.logger.Debug().Int("id", id).Str("title", details.Title).Msg("Got movie details")
	return &details, nil
}

// TV gets tv show details by TMDB ID.
func (c *Client) TV(ctx context.Context, id int, language string) (*TVDetails, error) {
	params := url.Values{}
	setLanguage(params, language)

	var details TVDetails
	if err := c.doRequest(ctx, "details", fmt.Sprintf("/tv/%d", id), params, &details); err != nil {
		return nil, err
	}

	c.logger.Debug().Int("id", id).Str("name", details.Name).Msg("Got tv details")
	return &details, nil
}

// Videos lists the videos attached to a title, always in TrailerLanguage.
func (c *Client) Videos(ctx context.Context, mediaType MediaType, id int) ([]Video, error) {
	if !mediaType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMediaType, mediaType)
	}

	params := url.Values{}
	setLanguage(params, TrailerLanguage)

	var result VideosResponse
	if err := c.doRequest(ctx, "videos", fmt.Sprintf("/%s/%d/videos", mediaType, id), params, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// Credits gets cast and crew. TMDB credits are not localized.
func (c *Client) Credits(ctx context.Context, mediaType MediaType, id int) (*Credits, error) {
	if !mediaType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMediaType, mediaType)
	}

	var result Credits
	if err := c.doRequest(ctx, "credits", fmt.Sprintf("/%s/%d/credits", mediaType, id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Similar gets titles similar to the given one.
func (c *Client) Similar(ctx context.Context, mediaType MediaType, id, page int, language string) (*Page, error) {
	return c.related(ctx, "similar", mediaType, id, page, language)
}

// Recommendations gets titles recommended for the given one.
func (c *Client) Recommendations(ctx context.Context, mediaType MediaType, id, page int, language string) (*Page, error) {
	return c.related(ctx, "recommendations", mediaType, id, page, language)
}

func (c *Client) related(ctx context.Context, kind string, mediaType MediaType, id, page int, language string) (*Page, error) {
	if !mediaType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMediaType, mediaType)
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	setLanguage(params, language)

	var result Page
	if err := c.doRequest(ctx, kind, fmt.Sprintf("/%s/%d/%s", mediaType, id, kind), params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reviews gets a page of user reviews.
func (c *Client) Reviews(ctx context.Context, mediaType MediaType, id, page int, language string) (*ReviewPage, error) {
	if !mediaType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMediaType, mediaType)
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	setLanguage(params, language)

	var result ReviewPage
	if err := c.doRequest(ctx, "reviews", fmt.Sprintf("/%s/%d/reviews", mediaType, id), params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Person gets person details.
func (c *Client) Person(ctx context.Context, id int, language string) (*PersonDetails, error) {
	params := url.Values{}
	setLanguage(params, language)

	var result PersonDetails
	if err := c.doRequest(ctx, "person", fmt.Sprintf("/person/%d", id), params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CombinedCredits gets movie and tv credits of a person.
func (c *Client) CombinedCredits(ctx context.Context, id int, language string) (*CombinedCredits, error) {
	params := url.Values{}
	setLanguage(params, language)

	var result CombinedCredits
	if err := c.doRequest(ctx, "person", fmt.Sprintf("/person/%d/combined_credits", id), params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetImageURL constructs a full image URL from a TMDB path.
func (c *Client) GetImageURL(path, size string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", c.config.ImageBaseURL, size, path)
}

func setLanguage(params url.Values, language string) {
	if language != "" {
		params.Set("language", language)
	}
}

// doRequest performs a rate limited GET with retries on 429, 5xx and
// network failures, and decodes the JSON body into result.
func (c *Client) doRequest(ctx context.Context, family, path string, params url.Values, result interface{}) error {
	if !c.IsConfigured() {
		return ErrAPIKeyMissing
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.config.APIKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.config.BaseURL, path, params.Encode())

	attempts := c.config.RetryAttempts
	if attempts == 0 {
		attempts = 1
	}

	start := time.Now()
	err := retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			return c.attempt(ctx, reqURL, path, result)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			retriesTotal.WithLabelValues(family).Inc()
			c.logger.Warn().Err(err).Str("path", path).Uint("attempt", n+1).Msg("Retrying TMDB request")
		}),
	)
	requestDuration.WithLabelValues(family).Observe(time.Since(start).Seconds())
	requestsTotal.WithLabelValues(family, outcome(err)).Inc()

	return err
}

func (c *Client) attempt(ctx context.Context, reqURL, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("message", errResp.StatusMessage).
				Str("path", path).
				Msg("TMDB API error")
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case resp.StatusCode == http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API key", ErrAPIError)
		case resp.StatusCode == http.StatusTooManyRequests:
			return ErrRateLimited
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: status %d: %w", ErrAPIError, resp.StatusCode, errServerSide)
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return retry.Unrecoverable(fmt.Errorf("failed to decode response: %w", err))
	}

	return nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, errServerSide) ||
		startup.IsNetworkError(err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "error"
	}
}
