package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/moviecinema/moviecinema/internal/scheduler"
)

// Prober checks that TMDB is reachable with the configured key.
type Prober interface {
	IsConfigured() bool
	Test(ctx context.Context) error
}

// HealthStatus is the result of the latest TMDB probe.
type HealthStatus struct {
	Configured bool       `json:"configured"`
	Healthy    bool       `json:"healthy"`
	Error      string     `json:"error,omitempty"`
	CheckedAt  *time.Time `json:"checkedAt,omitempty"`
}

// TMDBHealthTask probes TMDB periodically and remembers the outcome.
type TMDBHealthTask struct {
	client Prober
	now    func() time.Time
	logger zerolog.Logger

	mu     sync.RWMutex
	status HealthStatus
}

// NewTMDBHealthTask creates a health probe.
func NewTMDBHealthTask(client Prober, logger zerolog.Logger) *TMDBHealthTask {
	return &TMDBHealthTask{
		client: client,
		now:    time.Now,
		logger: logger.With().Str("task", "tmdb-health").Logger(),
		status: HealthStatus{Configured: client.IsConfigured()},
	}
}

// Run probes TMDB once.
func (t *TMDBHealthTask) Run(ctx context.Context) error {
	checked := t.now()
	status := HealthStatus{Configured: t.client.IsConfigured(), CheckedAt: &checked}

	var err error
	if status.Configured {
		err = t.client.Test(ctx)
		status.Healthy = err == nil
		if err != nil {
			status.Error = err.Error()
		}
	}

	t.mu.Lock()
	wasHealthy := t.status.Healthy
	t.status = status
	t.mu.Unlock()

	switch {
	case !status.Configured:
		t.logger.Warn().Msg("TMDB API key is not configured")
	case err != nil:
		t.logger.Warn().Err(err).Msg("TMDB probe failed")
	case !wasHealthy:
		t.logger.Info().Msg("TMDB reachable")
	}
	return err
}

// Status returns the latest probe result.
func (t *TMDBHealthTask) Status() HealthStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// RegisterTMDBHealthTask schedules the probe and runs it at startup.
func RegisterTMDBHealthTask(sched *scheduler.Scheduler, task *TMDBHealthTask, cron string) error {
	if cron == "" {
		cron = "*/15 * * * *"
	}
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          "tmdb-health",
		Name:        "TMDB Health Check",
		Description: "Verifies the TMDB API is reachable with the configured key",
		Cron:        cron,
		RunOnStart:  true,
		Func:        task.Run,
	})
}
