package scheduler

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/slakit-io/slakit/internal/models"
)

type options struct {
	Logger     *log.Logger
	Cron       *cron.Cron
	Parser     cron.Parser
	Jobs       []*models.ScheduledJob
	Location   *time.Location
	Engine     cycleRunner
	Dispatcher pendingDispatcher
}

// Option applies configuration to the scheduler service.
type Option func(*options)

func defaultOptions() options {
	return options{Logger: log.Default(), Location: time.UTC}
}

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithCron supplies a preconfigured cron scheduler instance.
func WithCron(c *cron.Cron) Option {
	return func(o *options) {
		o.Cron = c
	}
}

// WithCronParser allows replacing the cron expression parser.
func WithCronParser(p cron.Parser) Option {
	return func(o *options) {
		o.Parser = p
	}
}

// WithJobs sets the job definitions to schedule.
func WithJobs(jobs ...*models.ScheduledJob) Option {
	return func(o *options) {
		o.Jobs = jobs
	}
}

// WithLocation sets the timezone cron schedules run in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.Location = loc
	}
}

// WithEscalationEngine wires the engine behind the escalation.cycle job.
func WithEscalationEngine(engine cycleRunner) Option {
	return func(o *options) {
		o.Engine = engine
	}
}

// WithDispatcher wires the dispatcher behind the notifications.dispatch job.
func WithDispatcher(d pendingDispatcher) Option {
	return func(o *options) {
		o.Dispatcher = d
	}
}
