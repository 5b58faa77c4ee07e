package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/goalmateapp/goalmate-server/internal/config"
	"github.com/goalmateapp/goalmate-server/internal/logger"
	"github.com/goalmateapp/goalmate-server/internal/service"
)

// StatusSweepJob periodically recomputes derived goal fields so dormant
// goals cross their status and stage boundaries without being read.
type StatusSweepJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *StatusSweepJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideStatusSweepJob provides the periodic goal status sweep job.
func ProvideStatusSweepJob(i do.Injector) (*StatusSweepJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	goalService := do.MustInvoke[*service.GoalService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(cfg.Sweep.Interval)
		defer ticker.Stop()

		// Initial sweep on startup
		if count, err := goalService.RefreshAllGoals(ctx); err != nil {
			log.Warn("Initial goal status sweep failed", "error", err)
		} else if count > 0 {
			log.Info("Initial goal status sweep completed", "updated", count)
		}

		for {
			select {
			case <-ticker.C:
				if _, err := goalService.RefreshAllGoals(ctx); err != nil {
					log.Warn("Goal status sweep failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Goal status sweep job started", "interval", cfg.Sweep.Interval)

	return &StatusSweepJob{cancel: cancel}, nil
}
