package escalation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slakit-io/slakit/internal/models"
	"github.com/slakit-io/slakit/internal/repository"
)

type engineFixture struct {
	engine        *Engine
	tickets       *repository.MemoryTicketRepository
	escalations   *repository.MemoryEscalationRepository
	comments      *repository.MemoryCommentRepository
	notifications *repository.MemoryNotificationRepository
	users         *repository.MemoryUserRepository
	now           time.Time
}

func newEngineFixture(t *testing.T, opts Options) *engineFixture {
	t.Helper()

	f := &engineFixture{
		tickets:       repository.NewMemoryTicketRepository(),
		escalations:   repository.NewMemoryEscalationRepository(),
		comments:      repository.NewMemoryCommentRepository(),
		notifications: repository.NewMemoryNotificationRepository(),
		users:         repository.NewMemoryUserRepository(),
		now:           time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC),
	}
	f.users.Add(&models.User{ID: 1, Login: "system", Email: "system@example.com", IsSystem: true})

	f.engine = NewEngine(Deps{
		Tickets:       f.tickets,
		Rules:         f.escalations,
		Logs:          f.escalations,
		Comments:      f.comments,
		Notifications: f.notifications,
		Users:         f.users,
	}, opts)
	f.engine.now = func() time.Time { return f.now }
	return f
}

func (f *engineFixture) addTicket(t *testing.T, age time.Duration, assignedTo *int, priority models.Priority) *models.Ticket {
	t.Helper()
	created := f.now.Add(-age)
	return f.tickets.Add(&models.Ticket{
		Title:      "stuck ticket",
		Status:     "open",
		Priority:   priority,
		AssignedTo: assignedTo,
		CreatedAt:  created,
		UpdatedAt:  created,
	})
}

func (f *engineFixture) addRule(t *testing.T, rule *models.EscalationRule) *models.EscalationRule {
	t.Helper()
	rule.IsActive = true
	require.NoError(t, f.escalations.Create(context.Background(), rule))
	return rule
}

func boolPtr(b bool) *bool { return &b }

func TestEvaluateUnassignedTime(t *testing.T) {
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	rule := &models.EscalationRule{
		TimeCondition: models.TimeConditionUnassigned,
		TimeThreshold: 60,
		Conditions: models.RuleConditions{
			Status:     []string{"new", "open"},
			AssignedTo: boolPtr(false),
		},
	}
	unassigned := &models.Ticket{
		Status:    "open",
		Priority:  models.PriorityMedium,
		CreatedAt: now.Add(-61 * time.Minute),
		UpdatedAt: now.Add(-61 * time.Minute),
	}

	ok, elapsed := evaluate(rule, unassigned, now)
	assert.True(t, ok)
	assert.Equal(t, 61, elapsed)

	owner := 9
	assigned := *unassigned
	assigned.AssignedTo = &owner
	ok, _ = evaluate(rule, &assigned, now)
	assert.False(t, ok)

	young := *unassigned
	young.CreatedAt = now.Add(-59 * time.Minute)
	ok, _ = evaluate(rule, &young, now)
	assert.False(t, ok)
}

func TestEvaluateNoResponseUsesUpdatedAt(t *testing.T) {
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	rule := &models.EscalationRule{
		TimeCondition: models.TimeConditionNoResponse,
		TimeThreshold: 30,
	}
	ticket := &models.Ticket{
		Status:    "open",
		CreatedAt: now.Add(-5 * time.Hour),
		UpdatedAt: now.Add(-10 * time.Minute), // touched recently
	}

	ok, elapsed := evaluate(rule, ticket, now)
	assert.False(t, ok)
	assert.Equal(t, 10, elapsed)
}

func TestRunCycleFiresActions(t *testing.T) {
	f := newEngineFixture(t, Options{SystemUserID: 1})
	ticket := f.addTicket(t, 2*time.Hour, nil, models.PriorityMedium)
	f.addRule(t, &models.EscalationRule{
		Name:          "stale unassigned",
		Priority:      1,
		TimeCondition: models.TimeConditionUnassigned,
		TimeThreshold: 60,
		Conditions:    models.RuleConditions{AssignedTo: boolPtr(false)},
		Actions: models.RuleActions{
			AddComment:            "Escalated: unassigned for over an hour.",
			IncreasePriority:      true,
			SendEmailNotification: true,
			NotifyRecipients:      []int{5},
		},
	})

	result, err := f.engine.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Executed)
	require.Len(t, result.Results, 1)
	assert.Equal(t, []string{"stale unassigned"}, result.Results[0].RulesFired)

	comments := f.comments.ByTicket(ticket.ID)
	require.Len(t, comments, 1)
	assert.Equal(t, 1, comments[0].AuthorID)
	assert.True(t, comments[0].Internal)

	updated, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.Equal(t, f.now, updated.UpdatedAt)

	queued, err := f.notifications.ListUnread(context.Background(), models.NotificationEscalationEmail, 10)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, 5, queued[0].UserID)

	logs, err := f.escalations.ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Success)
	assert.Equal(t, string(models.TimeConditionUnassigned), logs[0].EscalationType)
	assert.Equal(t, 120, logs[0].TimeElapsed)
}

func TestPriorityCeiling(t *testing.T) {
	f := newEngineFixture(t, Options{SystemUserID: 1})
	ticket := f.addTicket(t, 2*time.Hour, nil, models.PriorityCritical)
	f.addRule(t, &models.EscalationRule{
		Name:          "bump",
		Priority:      1,
		TimeCondition: models.TimeConditionUnassigned,
		TimeThreshold: 60,
		Actions:       models.RuleActions{IncreasePriority: true},
	})

	result, err := f.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Executed)

	updated, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityCritical, updated.Priority)
}

// failingCommentStore rejects every insert.
type failingCommentStore struct{}

func (failingCommentStore) Insert(context.Context, *models.Comment) error {
	return errors.New("comment store down")
}

func TestActionFaultIsolation(t *testing.T) {
	f := newEngineFixture(t, Options{SystemUserID: 1})
	f.engine.comments = failingCommentStore{}

	ticket := f.addTicket(t, 2*time.Hour, nil, models.PriorityMedium)
	f.addRule(t, &models.EscalationRule{
		Name:          "noisy",
		Priority:      1,
		TimeCondition: models.TimeConditionUnassigned,
		TimeThreshold: 60,
		Actions: models.RuleActions{
			AddComment:            "will fail",
			SendEmailNotification: true,
			NotifyRecipients:      []int{5},
		},
	})

	result, err := f.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Executed)

	// The notification after the failing comment still went out.
	queued, err := f.notifications.ListUnread(context.Background(), models.NotificationEscalationEmail, 10)
	require.NoError(t, err)
	assert.Len(t, queued, 1)

	// The log row records the partial failure.
	logs, err := f.escalations.ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Success)
	assert.Contains(t, logs[0].ActionsExecuted, "comment store down")
}

func TestRuleRefiresEachCycleUnlessFireOnce(t *testing.T) {
	f := newEngineFixture(t, Options{SystemUserID: 1})
	refire := f.addTicket(t, 2*time.Hour, nil, models.PriorityMedium)
	f.addRule(t, &models.EscalationRule{
		Name:          "reminder",
		Priority:      1,
		TimeCondition: models.TimeConditionUnassigned,
		TimeThreshold: 60,
		Actions:       models.RuleActions{SendEmailNotification: true, NotifyRecipients: []int{5}},
	})
	f.addRule(t, &models.EscalationRule{
		Name:          "one shot",
		Priority:      2,
		TimeCondition: models.TimeConditionUnassigned,
		TimeThreshold: 60,
		FireOnce:      true,
		Actions:       models.RuleActions{SendEmailNotification: true, NotifyRecipients: []int{6}},
	})

	for i := 0; i < 2; i++ {
		_, err := f.engine.RunCycle(context.Background())
		require.NoError(t, err)
	}

	logs, err := f.escalations.ListByTicket(context.Background(), refire.ID)
	require.NoError(t, err)

	counts := map[int]int{}
	for _, entry := range logs {
		counts[entry.RuleID]++
	}
	assert.Equal(t, 2, counts[1], "default rule fires every cycle")
	assert.Equal(t, 1, counts[2], "fire-once rule fires a single time")
}

func TestBatchCapLimitsWork(t *testing.T) {
	f := newEngineFixture(t, Options{SystemUserID: 1, BatchSize: 3})
	for i := 0; i < 5; i++ {
		f.addTicket(t, time.Duration(2+i)*time.Hour, nil, models.PriorityMedium)
	}
	f.addRule(t, &models.EscalationRule{
		Name:          "sweep",
		Priority:      1,
		TimeCondition: models.TimeConditionUnassigned,
		TimeThreshold: 60,
	})

	result, err := f.engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
}

func TestRunCycleHonorsCancellation(t *testing.T) {
	f := newEngineFixture(t, Options{SystemUserID: 1})
	f.addTicket(t, 2*time.Hour, nil, models.PriorityMedium)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.engine.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
}
