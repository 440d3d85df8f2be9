package scheduler

import (
	"context"
	"errors"

	"github.com/slakit-io/slakit/internal/models"
	"github.com/slakit-io/slakit/internal/services/escalation"
)

// Job slugs and handler names.
const (
	JobEscalationCycle = "escalation.cycle"
	JobDispatch        = "notifications.dispatch"
)

type cycleRunner interface {
	RunCycle(ctx context.Context) (*models.CycleResult, error)
}

type pendingDispatcher interface {
	DispatchPending(ctx context.Context, limit int) (sent, failed int, err error)
}

// DefaultJobs builds the standard job set from cron expressions.
func DefaultJobs(escalationSchedule, dispatchSchedule string, cycleTimeout int) []*models.ScheduledJob {
	return []*models.ScheduledJob{
		{
			Name:           "Escalation cycle",
			Slug:           JobEscalationCycle,
			Handler:        JobEscalationCycle,
			Schedule:       escalationSchedule,
			TimeoutSeconds: cycleTimeout,
			RunOnStartup:   true,
		},
		{
			Name:     "Notification dispatch",
			Slug:     JobDispatch,
			Handler:  JobDispatch,
			Schedule: dispatchSchedule,
		},
	}
}

func (s *Service) registerBuiltinHandlers(opts options) {
	if opts.Engine != nil {
		engine := opts.Engine
		s.RegisterHandler(JobEscalationCycle, func(ctx context.Context, _ *models.ScheduledJob) error {
			result, err := engine.RunCycle(ctx)
			if err != nil {
				// A concurrent run holding the lock is a skip, not a failure.
				if errors.Is(err, escalation.ErrCycleRunning) {
					s.logger.Printf("scheduler: escalation cycle skipped, already running")
					return nil
				}
				return err
			}
			if result.Executed > 0 {
				s.logger.Printf("scheduler: escalation cycle %s fired %d rules across %d tickets",
					result.RunID, result.Executed, len(result.Results))
			}
			return nil
		})
	}

	if opts.Dispatcher != nil {
		dispatcher := opts.Dispatcher
		s.RegisterHandler(JobDispatch, func(ctx context.Context, job *models.ScheduledJob) error {
			limit := intFromConfig(job.Config, "limit", 100)
			sent, failed, err := dispatcher.DispatchPending(ctx, limit)
			if err != nil {
				return err
			}
			if sent > 0 || failed > 0 {
				s.logger.Printf("scheduler: dispatched %d notifications, %d failed", sent, failed)
			}
			return nil
		})
	}
}

func intFromConfig(cfg map[string]any, key string, fallback int) int {
	if cfg == nil {
		return fallback
	}
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}
