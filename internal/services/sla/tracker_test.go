package sla

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slakit-io/slakit/internal/models"
	"github.com/slakit-io/slakit/internal/repository"
	"github.com/slakit-io/slakit/internal/services/calendar"
)

type trackerFixture struct {
	tracker *Tracker
	tickets *repository.MemoryTicketRepository
	slas    *repository.MemorySLARepository
	ticket  *models.Ticket
	created time.Time
}

func newTrackerFixture(t *testing.T) *trackerFixture {
	t.Helper()

	tickets := repository.NewMemoryTicketRepository()
	slas := repository.NewMemorySLARepository()

	err := slas.CreateConfiguration(context.Background(), &models.SLAConfiguration{
		Name:              "high wall-clock",
		Priority:          models.PriorityHigh,
		FirstResponseTime: 30,
		ResolutionTime:    240,
		AlertPercentage:   80,
		IsActive:          true,
	})
	require.NoError(t, err)

	created := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	ticket := tickets.Add(&models.Ticket{
		Title:     "printer on fire",
		Status:    "open",
		Priority:  models.PriorityHigh,
		CreatedAt: created,
		UpdatedAt: created,
	})

	return &trackerFixture{
		tracker: NewTracker(tickets, slas, nil),
		tickets: tickets,
		slas:    slas,
		ticket:  ticket,
		created: created,
	}
}

func TestGetOrCreateComputesTargets(t *testing.T) {
	f := newTrackerFixture(t)

	tracking, cfg, err := f.tracker.GetOrCreate(context.Background(), f.ticket.ID)
	require.NoError(t, err)

	assert.Equal(t, "high wall-clock", cfg.Name)
	assert.Equal(t, f.created.Add(30*time.Minute), tracking.FirstResponseTarget)
	assert.Equal(t, f.created.Add(240*time.Minute), tracking.ResolutionTarget)
	assert.Equal(t, models.MetricPending, tracking.FirstResponseStatus)
	assert.Equal(t, models.MetricPending, tracking.ResolutionStatus)

	// Second call returns the same row, not a new one.
	again, _, err := f.tracker.GetOrCreate(context.Background(), f.ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, tracking.ID, again.ID)
}

func TestGetOrCreateWithoutConfiguration(t *testing.T) {
	f := newTrackerFixture(t)
	low := f.tickets.Add(&models.Ticket{
		Title:     "minor nit",
		Status:    "open",
		Priority:  models.PriorityLow,
		CreatedAt: f.created,
		UpdatedAt: f.created,
	})

	_, _, err := f.tracker.GetOrCreate(context.Background(), low.ID)
	assert.ErrorIs(t, err, ErrNoConfiguration)
}

func TestFirstResponseBreach(t *testing.T) {
	f := newTrackerFixture(t)
	_, _, err := f.tracker.GetOrCreate(context.Background(), f.ticket.ID)
	require.NoError(t, err)

	// Responded 45 minutes in against a 30 minute budget.
	at := f.created.Add(45 * time.Minute)
	tracking, err := f.tracker.RecordEvent(context.Background(), f.ticket.ID, ActionFirstResponse, &at, 1)
	require.NoError(t, err)

	assert.Equal(t, models.MetricBreached, tracking.FirstResponseStatus)
	require.NotNil(t, tracking.FirstResponseAt)
	assert.Equal(t, at, *tracking.FirstResponseAt)

	breaches, err := f.slas.ListBreaches(context.Background(), f.ticket.ID)
	require.NoError(t, err)
	require.Len(t, breaches, 1)
	assert.Equal(t, models.BreachFirstResponse, breaches[0].BreachType)
	assert.Equal(t, 15, breaches[0].BreachMinutes)
}

func TestFirstResponseIdempotent(t *testing.T) {
	f := newTrackerFixture(t)
	_, _, err := f.tracker.GetOrCreate(context.Background(), f.ticket.ID)
	require.NoError(t, err)

	first := f.created.Add(10 * time.Minute)
	tracking, err := f.tracker.RecordEvent(context.Background(), f.ticket.ID, ActionFirstResponse, &first, 1)
	require.NoError(t, err)
	assert.Equal(t, models.MetricMet, tracking.FirstResponseStatus)

	// A later duplicate changes nothing: first write wins.
	later := f.created.Add(90 * time.Minute)
	tracking, err = f.tracker.RecordEvent(context.Background(), f.ticket.ID, ActionFirstResponse, &later, 1)
	require.NoError(t, err)
	assert.Equal(t, models.MetricMet, tracking.FirstResponseStatus)
	assert.Equal(t, first, *tracking.FirstResponseAt)

	breaches, err := f.slas.ListBreaches(context.Background(), f.ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, breaches)
}

func TestResolvedOverwritesAndBreachesOnce(t *testing.T) {
	f := newTrackerFixture(t)
	_, _, err := f.tracker.GetOrCreate(context.Background(), f.ticket.ID)
	require.NoError(t, err)

	late := f.created.Add(250 * time.Minute)
	tracking, err := f.tracker.RecordEvent(context.Background(), f.ticket.ID, ActionResolved, &late, 1)
	require.NoError(t, err)
	assert.Equal(t, models.MetricBreached, tracking.ResolutionStatus)

	// Re-resolution moves the mark but does not duplicate the breach row.
	later := f.created.Add(300 * time.Minute)
	tracking, err = f.tracker.RecordEvent(context.Background(), f.ticket.ID, ActionResolved, &later, 1)
	require.NoError(t, err)
	assert.Equal(t, models.MetricBreached, tracking.ResolutionStatus)
	assert.Equal(t, later, *tracking.ResolvedAt)

	breaches, err := f.slas.ListBreaches(context.Background(), f.ticket.ID)
	require.NoError(t, err)
	require.Len(t, breaches, 1)
	assert.Equal(t, 10, breaches[0].BreachMinutes)
}

func TestPauseResumeConservation(t *testing.T) {
	f := newTrackerFixture(t)
	created, _, err := f.tracker.GetOrCreate(context.Background(), f.ticket.ID)
	require.NoError(t, err)

	t1 := f.created.Add(20 * time.Minute)
	tracking, err := f.tracker.RecordEvent(context.Background(), f.ticket.ID, ActionPause, &t1, 7)
	require.NoError(t, err)
	require.True(t, tracking.Paused())

	// Pausing again while paused is a no-op.
	t1b := f.created.Add(25 * time.Minute)
	tracking, err = f.tracker.RecordEvent(context.Background(), f.ticket.ID, ActionPause, &t1b, 7)
	require.NoError(t, err)
	assert.Equal(t, t1, *tracking.PausedAt)

	t2 := f.created.Add(55 * time.Minute)
	tracking, err = f.tracker.RecordEvent(context.Background(), f.ticket.ID, ActionResume, &t2, 7)
	require.NoError(t, err)
	assert.False(t, tracking.Paused())
	assert.Equal(t, 35, tracking.TotalPausedTime)

	history, err := f.slas.ListPauseHistory(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 35, history[0].DurationMinutes)
	assert.Equal(t, 7, history[0].PausedBy)
}

func TestResumeWithoutPause(t *testing.T) {
	f := newTrackerFixture(t)
	_, _, err := f.tracker.GetOrCreate(context.Background(), f.ticket.ID)
	require.NoError(t, err)

	at := f.created.Add(10 * time.Minute)
	_, err = f.tracker.RecordEvent(context.Background(), f.ticket.ID, ActionResume, &at, 1)
	assert.ErrorIs(t, err, ErrNotPaused)
}

func TestRecordEventUnknownAction(t *testing.T) {
	f := newTrackerFixture(t)
	_, err := f.tracker.RecordEvent(context.Background(), f.ticket.ID, Action("reopen"), nil, 1)
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestComputeStatusProjection(t *testing.T) {
	cfg := &models.SLAConfiguration{
		FirstResponseTime: 30,
		ResolutionTime:    240,
		AlertPercentage:   80,
	}
	business, err := calendar.Compile(cfg)
	require.NoError(t, err)

	created := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	ticket := &models.Ticket{ID: 1, CreatedAt: created, UpdatedAt: created}
	tracking := &models.TicketSLA{
		TicketID:            1,
		FirstResponseTarget: created.Add(30 * time.Minute),
		ResolutionTarget:    created.Add(240 * time.Minute),
		FirstResponseStatus: models.MetricPending,
		ResolutionStatus:    models.MetricPending,
	}

	// 10 minutes in: both metrics pending.
	report := ComputeStatus(ticket, tracking, cfg, business, created.Add(10*time.Minute))
	assert.Equal(t, models.MetricPending, report.FirstResponse.Status)
	assert.Equal(t, 10, report.FirstResponse.ElapsedMinutes)
	assert.Equal(t, 20, report.FirstResponse.RemainingMinutes)

	// 25 of 30 minutes used crosses the 80% alert line.
	report = ComputeStatus(ticket, tracking, cfg, business, created.Add(25*time.Minute))
	assert.Equal(t, models.MetricAtRisk, report.FirstResponse.Status)
	assert.Equal(t, models.MetricPending, report.Resolution.Status)

	// Past the target the percentage caps at 100 and remaining at 0,
	// but without a terminal event the status stays a projection.
	report = ComputeStatus(ticket, tracking, cfg, business, created.Add(60*time.Minute))
	assert.Equal(t, models.MetricAtRisk, report.FirstResponse.Status)
	assert.Equal(t, 100.0, report.FirstResponse.Percentage)
	assert.Equal(t, 0, report.FirstResponse.RemainingMinutes)

	// A recorded terminal status is reported as-is.
	at := created.Add(20 * time.Minute)
	tracking.FirstResponseAt = &at
	tracking.FirstResponseStatus = models.MetricMet
	report = ComputeStatus(ticket, tracking, cfg, business, created.Add(60*time.Minute))
	assert.Equal(t, models.MetricMet, report.FirstResponse.Status)
	assert.Equal(t, 20, report.FirstResponse.ElapsedMinutes)
}

func TestComputeStatusExcludesPausedTime(t *testing.T) {
	cfg := &models.SLAConfiguration{
		FirstResponseTime: 30,
		ResolutionTime:    240,
		AlertPercentage:   90,
	}
	business, err := calendar.Compile(cfg)
	require.NoError(t, err)

	created := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	ticket := &models.Ticket{ID: 1, CreatedAt: created, UpdatedAt: created}
	pausedAt := created.Add(10 * time.Minute)
	tracking := &models.TicketSLA{
		TicketID:            1,
		FirstResponseTarget: created.Add(30 * time.Minute),
		ResolutionTarget:    created.Add(240 * time.Minute),
		FirstResponseStatus: models.MetricPending,
		ResolutionStatus:    models.MetricPending,
		TotalPausedTime:     15,
		PausedAt:            &pausedAt,
	}

	// 60 wall minutes, 15 banked and 50 in the open pause: the clock
	// reads zero rather than going negative.
	report := ComputeStatus(ticket, tracking, cfg, business, created.Add(60*time.Minute))
	assert.Equal(t, 0, report.FirstResponse.ElapsedMinutes)

	// Without the open pause only the bank is subtracted.
	tracking.PausedAt = nil
	report = ComputeStatus(ticket, tracking, cfg, business, created.Add(60*time.Minute))
	assert.Equal(t, 45, report.FirstResponse.ElapsedMinutes)
	assert.Equal(t, models.MetricAtRisk, report.FirstResponse.Status)
}
