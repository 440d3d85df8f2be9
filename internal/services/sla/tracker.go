// Package sla owns per-ticket SLA tracking records: lazy creation,
// lifecycle events, and the derived status view.
package sla

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/slakit-io/slakit/internal/models"
	"github.com/slakit-io/slakit/internal/repository"
	"github.com/slakit-io/slakit/internal/services/calendar"
)

var (
	// ErrNoConfiguration means no active SLA configuration matches the
	// ticket's priority and category. Callers surface this as an
	// informational "no SLA configured" result, not a failure.
	ErrNoConfiguration = errors.New("no sla configuration applies")
	// ErrNotPaused is returned by a resume with no pause in progress.
	ErrNotPaused = errors.New("sla clock is not paused")
	// ErrUnknownAction is returned for an unrecognized event action.
	ErrUnknownAction = errors.New("unknown sla action")
)

// Action is an SLA lifecycle event accepted by RecordEvent.
type Action string

const (
	ActionFirstResponse Action = "first_response"
	ActionResolved      Action = "resolved"
	ActionPause         Action = "pause"
	ActionResume        Action = "resume"
)

// Valid reports whether the action is one RecordEvent accepts.
func (a Action) Valid() bool {
	switch a {
	case ActionFirstResponse, ActionResolved, ActionPause, ActionResume:
		return true
	}
	return false
}

// TrackingView bundles a ticket's tracking record with its configuration
// and the current derived status.
type TrackingView struct {
	Configuration *models.SLAConfiguration `json:"configuration"`
	Tracking      *models.TicketSLA        `json:"tracking"`
	Status        *models.SLAStatusReport  `json:"status"`
}

// Tracker implements the SLA tracking operations on top of the ticket
// and SLA stores.
type Tracker struct {
	tickets repository.TicketStore
	slas    repository.SLAStore
	logger  *log.Logger
	now     func() time.Time
}

// NewTracker creates an SLA tracker. A nil logger falls back to the
// standard logger.
func NewTracker(tickets repository.TicketStore, slas repository.SLAStore, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.Default()
	}
	return &Tracker{
		tickets: tickets,
		slas:    slas,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreate returns the ticket's tracking record, creating it on first
// access. Targets are computed from the ticket's creation time with the
// configuration's calendar. Concurrent first access converges on a
// single row via the store's upsert; the existing row always wins.
func (t *Tracker) GetOrCreate(ctx context.Context, ticketID int) (*models.TicketSLA, *models.SLAConfiguration, error) {
	ticket, err := t.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, fmt.Errorf("load ticket %d: %w", ticketID, err)
	}
	return t.ensure(ctx, ticket)
}

func (t *Tracker) ensure(ctx context.Context, ticket *models.Ticket) (*models.TicketSLA, *models.SLAConfiguration, error) {
	cfg, err := t.slas.FindConfiguration(ctx, ticket.Priority, ticket.CategoryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNoConfiguration
		}
		return nil, nil, fmt.Errorf("find sla configuration: %w", err)
	}

	business, err := calendar.Compile(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("sla configuration %d: %w", cfg.ID, err)
	}

	tracking, err := t.slas.UpsertTracking(ctx, &models.TicketSLA{
		TicketID:            ticket.ID,
		SLAConfigurationID:  cfg.ID,
		FirstResponseTarget: business.TargetDate(ticket.CreatedAt, cfg.FirstResponseTime),
		ResolutionTarget:    business.TargetDate(ticket.CreatedAt, cfg.ResolutionTime),
		FirstResponseStatus: models.MetricPending,
		ResolutionStatus:    models.MetricPending,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("upsert sla tracking for ticket %d: %w", ticket.ID, err)
	}

	// The winning row may have been created earlier against a different
	// configuration; report the one it actually tracks.
	if tracking.SLAConfigurationID != cfg.ID {
		cfg, err = t.slas.GetConfiguration(ctx, tracking.SLAConfigurationID)
		if err != nil {
			return nil, nil, fmt.Errorf("load sla configuration %d: %w", tracking.SLAConfigurationID, err)
		}
	}
	return tracking, cfg, nil
}

// RecordEvent applies one lifecycle event to the ticket's tracking
// record. A nil timestamp means now. The mutation runs under the
// store's per-ticket lock so pause/resume cannot race a resolution
// write.
//
// first_response is first-write-wins; resolved always overwrites the
// mark and recomputes its status. Terminal statuses compare the event
// timestamp against the precomputed target; a late event appends one
// breach row with the wall-clock overrun rounded up to whole minutes,
// at most once per metric.
func (t *Tracker) RecordEvent(ctx context.Context, ticketID int, action Action, timestamp *time.Time, actorID int) (*models.TicketSLA, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	at := t.now()
	if timestamp != nil {
		at = timestamp.UTC()
	}

	var breach *models.SLABreach
	var pause *models.SLAPauseHistory

	tracking, err := t.slas.MutateTracking(ctx, ticketID, func(rec *models.TicketSLA) error {
		switch action {
		case ActionFirstResponse:
			if rec.FirstResponseAt != nil {
				return nil
			}
			ts := at
			rec.FirstResponseAt = &ts
			rec.FirstResponseStatus, breach = settleMetric(rec, models.BreachFirstResponse, rec.FirstResponseTarget, at, rec.FirstResponseStatus)

		case ActionResolved:
			ts := at
			rec.ResolvedAt = &ts
			rec.ResolutionStatus, breach = settleMetric(rec, models.BreachResolution, rec.ResolutionTarget, at, rec.ResolutionStatus)

		case ActionPause:
			if rec.Paused() {
				return nil
			}
			ts := at
			rec.PausedAt = &ts

		case ActionResume:
			if !rec.Paused() {
				return ErrNotPaused
			}
			delta := int(at.Sub(*rec.PausedAt) / time.Minute)
			if delta < 0 {
				return fmt.Errorf("resume at %s precedes pause at %s", at, rec.PausedAt)
			}
			pause = &models.SLAPauseHistory{
				TicketSLAID:     rec.ID,
				PausedAt:        *rec.PausedAt,
				ResumedAt:       at,
				DurationMinutes: delta,
				PausedBy:        actorID,
			}
			rec.TotalPausedTime += delta
			rec.PausedAt = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if breach != nil {
		if err := t.slas.AppendBreach(ctx, breach); err != nil {
			return nil, fmt.Errorf("append breach for ticket %d: %w", ticketID, err)
		}
		t.logger.Printf("sla: ticket %d %s breached target %s by %d minutes",
			ticketID, breach.BreachType, breach.TargetTime.Format(time.RFC3339), breach.BreachMinutes)
	}
	if pause != nil {
		if err := t.slas.AppendPauseHistory(ctx, pause); err != nil {
			return nil, fmt.Errorf("append pause history for ticket %d: %w", ticketID, err)
		}
	}
	return tracking, nil
}

// settleMetric classifies a terminal event against its target and, when
// the metric turns breached for the first time, produces the breach row
// to append.
func settleMetric(rec *models.TicketSLA, breachType string, target, actual time.Time, previous models.MetricStatus) (models.MetricStatus, *models.SLABreach) {
	if !actual.After(target) {
		return models.MetricMet, nil
	}
	if previous == models.MetricBreached {
		return models.MetricBreached, nil
	}
	return models.MetricBreached, &models.SLABreach{
		TicketID:           rec.TicketID,
		SLAConfigurationID: rec.SLAConfigurationID,
		BreachType:         breachType,
		TargetTime:         target,
		ActualTime:         actual,
		BreachMinutes:      ceilMinutes(actual.Sub(target)),
	}
}

// Status returns the full tracking view for a ticket, lazily creating
// the tracking record like GetOrCreate.
func (t *Tracker) Status(ctx context.Context, ticketID int) (*TrackingView, error) {
	ticket, err := t.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("load ticket %d: %w", ticketID, err)
	}
	tracking, cfg, err := t.ensure(ctx, ticket)
	if err != nil {
		return nil, err
	}
	business, err := calendar.Compile(cfg)
	if err != nil {
		return nil, fmt.Errorf("sla configuration %d: %w", cfg.ID, err)
	}
	report := ComputeStatus(ticket, tracking, cfg, business, t.now())
	return &TrackingView{Configuration: cfg, Tracking: tracking, Status: &report}, nil
}

// ComputeStatus derives the read-time status view for both metrics. It
// is pure: at_risk exists only in its output, never in storage. Elapsed
// minutes run on the configuration's calendar from the ticket's
// creation, net of banked pause time and any pause currently in
// progress.
func ComputeStatus(ticket *models.Ticket, tracking *models.TicketSLA, cfg *models.SLAConfiguration, business *calendar.Business, now time.Time) models.SLAStatusReport {
	return models.SLAStatusReport{
		FirstResponse: metricReport(ticket, tracking, cfg, business, now,
			tracking.FirstResponseTarget, cfg.FirstResponseTime, tracking.FirstResponseAt, tracking.FirstResponseStatus),
		Resolution: metricReport(ticket, tracking, cfg, business, now,
			tracking.ResolutionTarget, cfg.ResolutionTime, tracking.ResolvedAt, tracking.ResolutionStatus),
	}
}

func metricReport(ticket *models.Ticket, tracking *models.TicketSLA, cfg *models.SLAConfiguration, business *calendar.Business, now time.Time, target time.Time, budget int, terminalAt *time.Time, stored models.MetricStatus) models.MetricReport {
	end := now
	if terminalAt != nil {
		end = *terminalAt
	}

	elapsed := business.MinutesBetween(ticket.CreatedAt, end) - tracking.TotalPausedTime
	if tracking.Paused() && end.After(*tracking.PausedAt) {
		elapsed -= int(end.Sub(*tracking.PausedAt) / time.Minute)
	}
	if elapsed < 0 {
		elapsed = 0
	}

	percentage := 100.0
	if budget > 0 {
		percentage = float64(elapsed) / float64(budget) * 100
		if percentage > 100 {
			percentage = 100
		}
	}
	remaining := budget - elapsed
	if remaining < 0 {
		remaining = 0
	}

	status := stored
	if !stored.Terminal() {
		status = models.MetricPending
		if percentage >= float64(cfg.AlertPercentage) {
			status = models.MetricAtRisk
		}
	}

	return models.MetricReport{
		Target:           target,
		Status:           status,
		Percentage:       percentage,
		RemainingMinutes: remaining,
		ElapsedMinutes:   elapsed,
	}
}

// ceilMinutes rounds a positive duration up to whole minutes.
func ceilMinutes(d time.Duration) int {
	return int((d + time.Minute - 1) / time.Minute)
}
