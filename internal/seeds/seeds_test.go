package seeds

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slakit-io/slakit/internal/models"
	"github.com/slakit-io/slakit/internal/repository"
)

const seedYAML = `
sla_configurations:
  - name: critical around the clock
    priority: critical
    first_response_time: 15
    resolution_time: 120
    alert_percentage: 75
  - name: high business hours
    priority: high
    first_response_time: 60
    resolution_time: 480
    business_hours_only: true
    business_hours_start: "08:00"
    business_hours_end: "18:00"
    working_days: [1, 2, 3, 4, 5]
    alert_percentage: 80

escalation_rules:
  - name: stale unassigned
    priority: 1
    time_condition: unassigned_time
    time_threshold: 60
    status: [new, open]
    assigned_to: false
    add_comment: "Escalated automatically: unassigned for over an hour."
    increase_priority: true
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestApplySeedsOnce(t *testing.T) {
	slas := repository.NewMemorySLARepository()
	rules := repository.NewMemoryEscalationRepository()
	path := writeSeed(t, seedYAML)

	ctx := context.Background()
	require.NoError(t, Apply(ctx, path, slas, rules, 1, nil))

	configs, err := slas.ListConfigurations(ctx, true)
	require.NoError(t, err)
	require.Len(t, configs, 2)

	loaded, err := rules.List(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	rule := loaded[0]
	assert.Equal(t, models.TimeConditionUnassigned, rule.TimeCondition)
	require.NotNil(t, rule.Conditions.AssignedTo)
	assert.False(t, *rule.Conditions.AssignedTo)
	assert.True(t, rule.Actions.IncreasePriority)

	// A second apply with the same file changes nothing.
	require.NoError(t, Apply(ctx, path, slas, rules, 1, nil))
	configs, err = slas.ListConfigurations(ctx, true)
	require.NoError(t, err)
	assert.Len(t, configs, 2)
	loaded, err = rules.List(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestApplyRejectsMalformedSeed(t *testing.T) {
	slas := repository.NewMemorySLARepository()
	rules := repository.NewMemoryEscalationRepository()

	bad := writeSeed(t, `
sla_configurations:
  - name: broken hours
    priority: high
    first_response_time: 30
    resolution_time: 240
    business_hours_only: true
    business_hours_start: "18:00"
    business_hours_end: "08:00"
    working_days: [1]
`)
	err := Apply(context.Background(), bad, slas, rules, 1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken hours")
}
