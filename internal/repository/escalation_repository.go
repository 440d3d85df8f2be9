package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/slakit-io/slakit/internal/database"
	"github.com/slakit-io/slakit/internal/models"
)

// EscalationRepository stores escalation rules and cycle logs. Rules
// keep their condition and action documents as JSON columns and are
// scanned through sqlx struct tags.
type EscalationRepository struct {
	db *sqlx.DB
}

// NewEscalationRepository wraps an existing connection with sqlx.
func NewEscalationRepository(db *sql.DB) *EscalationRepository {
	driver := "postgres"
	if database.IsMySQL() {
		driver = "mysql"
	}
	return &EscalationRepository{db: sqlx.NewDb(db, driver)}
}

type ruleRow struct {
	ID            int       `db:"id"`
	Name          string    `db:"name"`
	Priority      int       `db:"priority"`
	IsActive      bool      `db:"is_active"`
	Conditions    string    `db:"conditions"`
	TimeCondition string    `db:"time_condition"`
	TimeThreshold int       `db:"time_threshold"`
	Actions       string    `db:"actions"`
	FireOnce      bool      `db:"fire_once"`
	CreateTime    time.Time `db:"create_time"`
	ChangeTime    time.Time `db:"change_time"`
}

func (row *ruleRow) toModel() (*models.EscalationRule, error) {
	rule := &models.EscalationRule{
		ID:            row.ID,
		Name:          row.Name,
		Priority:      row.Priority,
		IsActive:      row.IsActive,
		TimeCondition: models.TimeCondition(row.TimeCondition),
		TimeThreshold: row.TimeThreshold,
		FireOnce:      row.FireOnce,
		CreateTime:    row.CreateTime,
		ChangeTime:    row.ChangeTime,
	}
	if err := json.Unmarshal([]byte(row.Conditions), &rule.Conditions); err != nil {
		return nil, fmt.Errorf("rule %d has malformed conditions: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Actions), &rule.Actions); err != nil {
		return nil, fmt.Errorf("rule %d has malformed actions: %w", row.ID, err)
	}
	if !rule.TimeCondition.Valid() {
		return nil, fmt.Errorf("rule %d has unknown time condition %q", row.ID, row.TimeCondition)
	}
	return rule, nil
}

const ruleColumns = `id, name, priority, is_active, conditions, time_condition, time_threshold, actions, fire_once, create_time, change_time`

// ListActive returns active rules in ascending evaluation priority.
func (r *EscalationRepository) ListActive(ctx context.Context) ([]*models.EscalationRule, error) {
	return r.list(ctx, `SELECT `+ruleColumns+` FROM escalation_rule WHERE is_active = TRUE ORDER BY priority, id`)
}

// List returns all rules.
func (r *EscalationRepository) List(ctx context.Context) ([]*models.EscalationRule, error) {
	return r.list(ctx, `SELECT `+ruleColumns+` FROM escalation_rule ORDER BY priority, id`)
}

func (r *EscalationRepository) list(ctx context.Context, query string) ([]*models.EscalationRule, error) {
	var rows []ruleRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	rules := make([]*models.EscalationRule, 0, len(rows))
	for i := range rows {
		rule, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// GetByID retrieves one rule.
func (r *EscalationRepository) GetByID(ctx context.Context, id int) (*models.EscalationRule, error) {
	var row ruleRow
	query := r.db.Rebind(`SELECT ` + ruleColumns + ` FROM escalation_rule WHERE id = ?`)
	err := r.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toModel()
}

// Create inserts a rule and backfills its ID.
func (r *EscalationRepository) Create(ctx context.Context, rule *models.EscalationRule) error {
	now := time.Now().UTC()
	rule.CreateTime, rule.ChangeTime = now, now
	id, err := database.InsertWithID(ctx, r.db.DB, `
		INSERT INTO escalation_rule
			(name, priority, is_active, conditions, time_condition, time_threshold, actions, fire_once, create_time, change_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		rule.Name, rule.Priority, rule.IsActive, models.Snapshot(rule.Conditions),
		string(rule.TimeCondition), rule.TimeThreshold, models.Snapshot(rule.Actions),
		rule.FireOnce, rule.CreateTime, rule.ChangeTime)
	if err != nil {
		return err
	}
	rule.ID = int(id)
	return nil
}

// Update rewrites a rule.
func (r *EscalationRepository) Update(ctx context.Context, rule *models.EscalationRule) error {
	rule.ChangeTime = time.Now().UTC()
	query := r.db.Rebind(`
		UPDATE escalation_rule SET
			name = ?, priority = ?, is_active = ?, conditions = ?,
			time_condition = ?, time_threshold = ?, actions = ?, fire_once = ?, change_time = ?
		WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query,
		rule.Name, rule.Priority, rule.IsActive, models.Snapshot(rule.Conditions),
		string(rule.TimeCondition), rule.TimeThreshold, models.Snapshot(rule.Actions),
		rule.FireOnce, rule.ChangeTime, rule.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a rule.
func (r *EscalationRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM escalation_rule WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Append writes one cycle outcome row.
func (r *EscalationRepository) Append(ctx context.Context, entry *models.EscalationLog) error {
	query := r.db.Rebind(`
		INSERT INTO escalation_log
			(rule_id, ticket_id, escalation_type, time_elapsed, conditions_met, actions_executed, success, triggered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		entry.RuleID, entry.TicketID, entry.EscalationType, entry.TimeElapsed,
		entry.ConditionsMet, entry.ActionsExecuted, entry.Success, entry.TriggeredAt)
	return err
}

// HasFired reports whether the (ticket, rule) pair already has a
// successful log row. Backs the per-rule fire-once guard.
func (r *EscalationRepository) HasFired(ctx context.Context, ticketID, ruleID int) (bool, error) {
	var exists int
	query := r.db.Rebind(`
		SELECT 1 FROM escalation_log
		WHERE ticket_id = ? AND rule_id = ? AND success = TRUE
		LIMIT 1`)
	err := r.db.GetContext(ctx, &exists, query, ticketID, ruleID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByTicket returns a ticket's escalation log, newest last.
func (r *EscalationRepository) ListByTicket(ctx context.Context, ticketID int) ([]*models.EscalationLog, error) {
	var entries []*models.EscalationLog
	query := r.db.Rebind(`
		SELECT id, rule_id, ticket_id, escalation_type, time_elapsed, conditions_met, actions_executed, success, triggered_at
		FROM escalation_log WHERE ticket_id = ? ORDER BY id`)
	if err := r.db.SelectContext(ctx, &entries, query, ticketID); err != nil {
		return nil, err
	}
	return entries, nil
}
