package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slakit-io/slakit/internal/models"
	"github.com/slakit-io/slakit/internal/services/escalation"
)

func TestExecuteJobRecordsOutcome(t *testing.T) {
	s := NewService(WithJobs(&models.ScheduledJob{
		Name:     "probe",
		Slug:     "probe",
		Handler:  "probe",
		Schedule: "* * * * *",
	}))

	called := 0
	s.RegisterHandler("probe", func(context.Context, *models.ScheduledJob) error {
		called++
		return nil
	})

	s.executeJob("probe", 0)
	require.Equal(t, 1, called)

	job := s.jobSnapshot("probe")
	require.NotNil(t, job)
	assert.Equal(t, statusSuccess, job.LastStatus)
	assert.NotNil(t, job.LastRunAt)
	assert.Nil(t, job.ErrorMessage)
}

func TestExecuteJobRecoversPanic(t *testing.T) {
	s := NewService(WithJobs(&models.ScheduledJob{
		Name:     "boom",
		Slug:     "boom",
		Handler:  "boom",
		Schedule: "* * * * *",
	}))
	s.RegisterHandler("boom", func(context.Context, *models.ScheduledJob) error {
		panic("kaboom")
	})

	s.executeJob("boom", 0)

	job := s.jobSnapshot("boom")
	require.NotNil(t, job)
	assert.Equal(t, statusFailed, job.LastStatus)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "kaboom")
}

func TestExecuteJobMissingHandler(t *testing.T) {
	s := NewService(WithJobs(&models.ScheduledJob{
		Name:     "ghost",
		Slug:     "ghost",
		Handler:  "nobody",
		Schedule: "* * * * *",
	}))

	s.executeJob("ghost", 0)

	job := s.jobSnapshot("ghost")
	require.NotNil(t, job)
	assert.Equal(t, statusFailed, job.LastStatus)
}

type stubEngine struct {
	result *models.CycleResult
	err    error
}

func (e *stubEngine) RunCycle(context.Context) (*models.CycleResult, error) {
	return e.result, e.err
}

func TestEscalationHandlerTreatsBusyAsSkip(t *testing.T) {
	engine := &stubEngine{err: escalation.ErrCycleRunning}
	s := NewService(
		WithEscalationEngine(engine),
		WithJobs(DefaultJobs("*/5 * * * *", "* * * * *", 120)...),
	)

	handler := s.getHandler(JobEscalationCycle)
	require.NotNil(t, handler)
	assert.NoError(t, handler(context.Background(), s.jobSnapshot(JobEscalationCycle)))

	engine.err = errors.New("database down")
	assert.Error(t, handler(context.Background(), s.jobSnapshot(JobEscalationCycle)))
}

func TestDefaultJobs(t *testing.T) {
	jobs := DefaultJobs("*/5 * * * *", "* * * * *", 120)
	require.Len(t, jobs, 2)
	assert.Equal(t, JobEscalationCycle, jobs[0].Slug)
	assert.True(t, jobs[0].RunOnStartup)
	assert.Equal(t, 120, jobs[0].TimeoutSeconds)
	assert.Equal(t, JobDispatch, jobs[1].Slug)
}
