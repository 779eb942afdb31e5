package tasks

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/moviecinema/moviecinema/internal/config"
	"github.com/moviecinema/moviecinema/internal/scheduler"
)

// Reaper is a session registry that can expire idle sessions.
type Reaper interface {
	Reap(ttl time.Duration) int
	Len() int
}

// SessionReaperTask closes search and detail sessions nobody has touched
// for longer than the idle TTL.
type SessionReaperTask struct {
	registries map[string]Reaper
	ttl        time.Duration
	logger     zerolog.Logger
}

// NewSessionReaperTask creates a reaper over the named registries.
func NewSessionReaperTask(registries map[string]Reaper, ttl time.Duration, logger zerolog.Logger) *SessionReaperTask {
	return &SessionReaperTask{
		registries: registries,
		ttl:        ttl,
		logger:     logger.With().Str("task", "session-reaper").Logger(),
	}
}

// Run reaps every registry once.
func (t *SessionReaperTask) Run(ctx context.Context) error {
	for name, r := range t.registries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if n := r.Reap(t.ttl); n > 0 {
			t.logger.Info().Str("registry", name).Int("closed", n).Int("remaining", r.Len()).Msg("Reaped idle sessions")
		}
	}
	return nil
}

// RegisterSessionReaperTask schedules the reaper from the sessions config.
func RegisterSessionReaperTask(sched *scheduler.Scheduler, registries map[string]Reaper, cfg config.SessionsConfig, logger zerolog.Logger) error {
	ttl := time.Duration(cfg.IdleTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	cron := cfg.ReaperCron
	if cron == "" {
		cron = "*/5 * * * *"
	}

	task := NewSessionReaperTask(registries, ttl, logger)
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          "session-reaper",
		Name:        "Session Reaper",
		Description: "Closes search and detail sessions idle longer than the configured TTL",
		Cron:        cron,
		Func:        task.Run,
	})
}
