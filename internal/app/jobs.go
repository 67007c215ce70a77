package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// jobTimeout bounds each background job run so a stuck dependency can't
// pin a cron goroutine forever.
const jobTimeout = 2 * time.Minute

// StartJobs schedules the background maintenance jobs and starts the cron
// scheduler. Returns the scheduler so the caller can stop it on shutdown.
func (a *App) StartJobs() *cron.Cron {
	c := cron.New()

	// Refresh sessions whose access tokens are about to expire, so
	// signed-in users don't get bounced to the login page between
	// requests. Skipped entirely when auto-refresh is disabled.
	if a.Config.Auth.AutoRefreshToken {
		c.AddFunc("@every 5m", func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()

			refreshed, err := a.Auth.RefreshExpiring(ctx)
			if err != nil {
				slog.Error("session refresh sweep failed", slog.Any("error", err))
				return
			}
			if refreshed > 0 {
				slog.Info("refreshed expiring sessions", slog.Int("count", refreshed))
			}
		})
	}

	// Prune auth events past the retention window.
	c.AddFunc("@daily", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		cutoff := time.Now().Add(-a.Config.Events.Retention)
		deleted, err := a.Events.DeleteBefore(ctx, cutoff)
		if err != nil {
			slog.Error("auth event retention sweep failed", slog.Any("error", err))
			return
		}
		if deleted > 0 {
			slog.Info("pruned auth events",
				slog.Int64("count", deleted),
				slog.Time("cutoff", cutoff),
			)
		}
	})

	c.Start()
	return c
}
