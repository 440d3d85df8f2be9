// Package escalation implements the scheduled rule engine: it scans
// open tickets, evaluates active rules, executes their actions, and
// appends an audit log row for every firing.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slakit-io/slakit/internal/models"
	"github.com/slakit-io/slakit/internal/repository"
)

// ErrCycleRunning means another cycle holds the run lock; the caller
// should treat the cycle as skipped, not failed.
var ErrCycleRunning = errors.New("escalation cycle already running")

// Locker serializes cycles across service instances. Nil disables the
// cross-instance lease; the in-process mutex still applies.
type Locker interface {
	// TryAcquire returns false without blocking when another holder has
	// the lease.
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Deps are the collaborators the engine consumes.
type Deps struct {
	Tickets       repository.TicketStore
	Rules         repository.RuleStore
	Logs          repository.EscalationLogStore
	Comments      repository.CommentStore
	Notifications repository.NotificationStore
	Users         repository.UserStore
}

// Options tune one engine instance.
type Options struct {
	// OpenStatuses is the ticket status set scanned each cycle.
	OpenStatuses []string
	// BatchSize caps tickets examined per cycle.
	BatchSize int
	// SystemUserID authors automated comments; 0 falls back to the
	// user store's designated system actor.
	SystemUserID int
	// Locker optionally serializes cycles across instances.
	Locker Locker
	Logger *log.Logger
}

// Engine evaluates escalation rules against open tickets.
type Engine struct {
	tickets       repository.TicketStore
	rules         repository.RuleStore
	logs          repository.EscalationLogStore
	comments      repository.CommentStore
	notifications repository.NotificationStore
	users         repository.UserStore

	openStatuses []string
	batchSize    int
	systemUserID int
	locker       Locker
	logger       *log.Logger
	now          func() time.Time

	running sync.Mutex
}

// NewEngine creates an escalation engine.
func NewEngine(deps Deps, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if len(opts.OpenStatuses) == 0 {
		opts.OpenStatuses = []string{"new", "open", "pending"}
	}
	return &Engine{
		tickets:       deps.Tickets,
		rules:         deps.Rules,
		logs:          deps.Logs,
		comments:      deps.Comments,
		notifications: deps.Notifications,
		users:         deps.Users,
		openStatuses:  opts.OpenStatuses,
		batchSize:     opts.BatchSize,
		systemUserID:  opts.SystemUserID,
		locker:        opts.Locker,
		logger:        opts.Logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// RunCycle executes one escalation pass: the oldest open tickets up to
// the batch cap, crossed with all active rules in evaluation order. A
// ticket may fire several rules in one cycle. Every firing appends a
// log row whether or not its actions succeeded. Only one cycle runs at
// a time; a second caller gets ErrCycleRunning.
func (e *Engine) RunCycle(ctx context.Context) (*models.CycleResult, error) {
	if !e.running.TryLock() {
		cyclesTotal.WithLabelValues("skipped").Inc()
		return nil, ErrCycleRunning
	}
	defer e.running.Unlock()

	if e.locker != nil {
		ok, err := e.locker.TryAcquire(ctx)
		if err != nil {
			cyclesTotal.WithLabelValues("failed").Inc()
			return nil, fmt.Errorf("acquire cycle lease: %w", err)
		}
		if !ok {
			cyclesTotal.WithLabelValues("skipped").Inc()
			return nil, ErrCycleRunning
		}
		defer func() {
			if err := e.locker.Release(context.WithoutCancel(ctx)); err != nil {
				e.logger.Printf("escalation: release cycle lease: %v", err)
			}
		}()
	}

	started := e.now()
	result := &models.CycleResult{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Results:   []models.TicketEscalationResult{},
	}

	tickets, err := e.tickets.ListOpen(ctx, e.openStatuses, e.batchSize)
	if err != nil {
		cyclesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("list open tickets: %w", err)
	}
	rules, err := e.rules.ListActive(ctx)
	if err != nil {
		cyclesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("list active rules: %w", err)
	}

	for _, ticket := range tickets {
		if err := ctx.Err(); err != nil {
			e.logger.Printf("escalation: cycle %s cut short after %d tickets: %v", result.RunID, result.Processed, err)
			break
		}
		result.Processed++

		fired := e.processTicket(ctx, ticket, rules)
		if len(fired) > 0 {
			result.Executed += len(fired)
			result.Results = append(result.Results, models.TicketEscalationResult{
				TicketID:    ticket.ID,
				TicketTitle: ticket.Title,
				RulesFired:  fired,
			})
		}
	}

	cyclesTotal.WithLabelValues("completed").Inc()
	cycleDuration.Observe(e.now().Sub(started).Seconds())
	e.logger.Printf("escalation: cycle %s processed %d tickets, %d rule firings",
		result.RunID, result.Processed, result.Executed)
	return result, nil
}

// processTicket evaluates every rule against one ticket and returns the
// names of the rules that fired.
func (e *Engine) processTicket(ctx context.Context, ticket *models.Ticket, rules []*models.EscalationRule) []string {
	now := e.now()
	var fired []string

	for _, rule := range rules {
		ok, elapsed := evaluate(rule, ticket, now)
		if !ok {
			continue
		}

		if rule.FireOnce {
			done, err := e.logs.HasFired(ctx, ticket.ID, rule.ID)
			if err != nil {
				e.logger.Printf("escalation: fire-once check rule %d ticket %d: %v", rule.ID, ticket.ID, err)
				continue
			}
			if done {
				continue
			}
		}

		outcomes, success := e.executeActions(ctx, ticket, rule)
		entry := &models.EscalationLog{
			RuleID:          rule.ID,
			TicketID:        ticket.ID,
			EscalationType:  string(rule.TimeCondition),
			TimeElapsed:     elapsed,
			ConditionsMet:   models.Snapshot(rule.Conditions),
			ActionsExecuted: models.Snapshot(outcomes),
			Success:         success,
			TriggeredAt:     now,
		}
		if err := e.logs.Append(ctx, entry); err != nil {
			e.logger.Printf("escalation: append log rule %d ticket %d: %v", rule.ID, ticket.ID, err)
		}

		rulesFired.WithLabelValues(rule.Name).Inc()
		fired = append(fired, rule.Name)
	}
	return fired
}
