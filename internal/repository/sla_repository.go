package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/slakit-io/slakit/internal/database"
	"github.com/slakit-io/slakit/internal/models"
)

// SLARepository is the SQL implementation of SLAStore.
type SLARepository struct {
	db *sql.DB
}

// NewSLARepository creates a new SLA repository.
func NewSLARepository(db *sql.DB) *SLARepository {
	return &SLARepository{db: db}
}

const slaConfigColumns = `id, name, category_id, priority, first_response_time, resolution_time,
	business_hours_only, business_hours_start, business_hours_end, working_days,
	alert_percentage, is_active, create_time, create_by, change_time, change_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfiguration(row rowScanner) (*models.SLAConfiguration, error) {
	var cfg models.SLAConfiguration
	var categoryID sql.NullInt64
	var priority, workingDays string
	err := row.Scan(
		&cfg.ID, &cfg.Name, &categoryID, &priority,
		&cfg.FirstResponseTime, &cfg.ResolutionTime,
		&cfg.BusinessHoursOnly, &cfg.BusinessHoursStart, &cfg.BusinessHoursEnd, &workingDays,
		&cfg.AlertPercentage, &cfg.IsActive,
		&cfg.CreateTime, &cfg.CreateBy, &cfg.ChangeTime, &cfg.ChangeBy,
	)
	if err != nil {
		return nil, err
	}
	if categoryID.Valid {
		id := int(categoryID.Int64)
		cfg.CategoryID = &id
	}
	p, ok := models.ParsePriority(priority)
	if !ok {
		return nil, fmt.Errorf("configuration %d has unknown priority %q", cfg.ID, priority)
	}
	cfg.Priority = p
	cfg.WorkingDays = splitDays(workingDays)
	return &cfg, nil
}

// FindConfiguration prefers an exact category match over a
// category-agnostic configuration.
func (r *SLARepository) FindConfiguration(ctx context.Context, priority models.Priority, categoryID *int) (*models.SLAConfiguration, error) {
	query := database.ConvertPlaceholders(`
		SELECT ` + slaConfigColumns + `
		FROM sla_configuration
		WHERE is_active = TRUE AND priority = $1 AND (category_id = $2 OR category_id IS NULL)
		ORDER BY CASE WHEN category_id IS NULL THEN 1 ELSE 0 END, id
		LIMIT 1`)

	var cat sql.NullInt64
	if categoryID != nil {
		cat = sql.NullInt64{Int64: int64(*categoryID), Valid: true}
	}
	cfg, err := scanConfiguration(r.db.QueryRowContext(ctx, query, priority.String(), cat))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return cfg, err
}

// GetConfiguration retrieves a configuration by ID.
func (r *SLARepository) GetConfiguration(ctx context.Context, id int) (*models.SLAConfiguration, error) {
	query := database.ConvertPlaceholders(`
		SELECT ` + slaConfigColumns + `
		FROM sla_configuration WHERE id = $1`)
	cfg, err := scanConfiguration(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return cfg, err
}

// ListConfigurations returns configurations, optionally active only.
func (r *SLARepository) ListConfigurations(ctx context.Context, activeOnly bool) ([]*models.SLAConfiguration, error) {
	query := `SELECT ` + slaConfigColumns + ` FROM sla_configuration`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, database.ConvertPlaceholders(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*models.SLAConfiguration
	for rows.Next() {
		cfg, err := scanConfiguration(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// CreateConfiguration inserts a configuration and backfills its ID.
func (r *SLARepository) CreateConfiguration(ctx context.Context, cfg *models.SLAConfiguration) error {
	now := time.Now().UTC()
	cfg.CreateTime, cfg.ChangeTime = now, now
	id, err := database.InsertWithID(ctx, r.db, `
		INSERT INTO sla_configuration
			(name, category_id, priority, first_response_time, resolution_time,
			 business_hours_only, business_hours_start, business_hours_end, working_days,
			 alert_percentage, is_active, create_time, create_by, change_time, change_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		cfg.Name, nullableInt(cfg.CategoryID), cfg.Priority.String(),
		cfg.FirstResponseTime, cfg.ResolutionTime,
		cfg.BusinessHoursOnly, cfg.BusinessHoursStart, cfg.BusinessHoursEnd, joinDays(cfg.WorkingDays),
		cfg.AlertPercentage, cfg.IsActive, cfg.CreateTime, cfg.CreateBy, cfg.ChangeTime, cfg.ChangeBy,
	)
	if err != nil {
		return err
	}
	cfg.ID = int(id)
	return nil
}

// UpdateConfiguration rewrites an existing configuration.
func (r *SLARepository) UpdateConfiguration(ctx context.Context, cfg *models.SLAConfiguration) error {
	cfg.ChangeTime = time.Now().UTC()
	query := database.ConvertPlaceholders(`
		UPDATE sla_configuration SET
			name = $1, category_id = $2, priority = $3, first_response_time = $4,
			resolution_time = $5, business_hours_only = $6, business_hours_start = $7,
			business_hours_end = $8, working_days = $9, alert_percentage = $10,
			is_active = $11, change_time = $12, change_by = $13
		WHERE id = $14`)
	res, err := r.db.ExecContext(ctx, query,
		cfg.Name, nullableInt(cfg.CategoryID), cfg.Priority.String(), cfg.FirstResponseTime,
		cfg.ResolutionTime, cfg.BusinessHoursOnly, cfg.BusinessHoursStart,
		cfg.BusinessHoursEnd, joinDays(cfg.WorkingDays), cfg.AlertPercentage,
		cfg.IsActive, cfg.ChangeTime, cfg.ChangeBy, cfg.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteConfiguration removes a configuration.
func (r *SLARepository) DeleteConfiguration(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx,
		database.ConvertPlaceholders(`DELETE FROM sla_configuration WHERE id = $1`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const trackingColumns = `id, ticket_id, sla_configuration_id, first_response_target, resolution_target,
	first_response_at, resolved_at, first_response_status, resolution_status,
	paused_at, total_paused_time, created_at, updated_at`

func scanTracking(row rowScanner) (*models.TicketSLA, error) {
	var t models.TicketSLA
	var frStatus, resStatus string
	err := row.Scan(
		&t.ID, &t.TicketID, &t.SLAConfigurationID,
		&t.FirstResponseTarget, &t.ResolutionTarget,
		&t.FirstResponseAt, &t.ResolvedAt, &frStatus, &resStatus,
		&t.PausedAt, &t.TotalPausedTime, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.FirstResponseStatus = models.MetricStatus(frStatus)
	t.ResolutionStatus = models.MetricStatus(resStatus)
	return &t, nil
}

// GetTracking retrieves a ticket's tracking record.
func (r *SLARepository) GetTracking(ctx context.Context, ticketID int) (*models.TicketSLA, error) {
	query := database.ConvertPlaceholders(`
		SELECT ` + trackingColumns + ` FROM ticket_sla WHERE ticket_id = $1`)
	t, err := scanTracking(r.db.QueryRowContext(ctx, query, ticketID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return t, err
}

// UpsertTracking creates the record if absent. The unique constraint on
// ticket_id plus insert-on-conflict makes concurrent creation converge
// on a single row; the winner is re-read and returned.
func (r *SLARepository) UpsertTracking(ctx context.Context, tracking *models.TicketSLA) (*models.TicketSLA, error) {
	insert := `INSERT INTO ticket_sla
		(ticket_id, sla_configuration_id, first_response_target, resolution_target,
		 first_response_status, resolution_status, total_paused_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $7)`
	query := database.ConvertPlaceholders(database.UpsertIgnore(insert, "ticket_id"))
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query,
		tracking.TicketID, tracking.SLAConfigurationID,
		tracking.FirstResponseTarget, tracking.ResolutionTarget,
		string(models.MetricPending), string(models.MetricPending), now)
	if err != nil {
		return nil, fmt.Errorf("upsert tracking for ticket %d: %w", tracking.TicketID, err)
	}
	return r.GetTracking(ctx, tracking.TicketID)
}

// MutateTracking serializes per-ticket updates with a row lock so
// pause/resume cannot race a resolution write into a lost update.
func (r *SLARepository) MutateTracking(ctx context.Context, ticketID int, fn func(*models.TicketSLA) error) (*models.TicketSLA, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := database.ConvertPlaceholders(`
		SELECT ` + trackingColumns + ` FROM ticket_sla WHERE ticket_id = $1 FOR UPDATE`)
	t, err := scanTracking(tx.QueryRowContext(ctx, query, ticketID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := fn(t); err != nil {
		return nil, err
	}
	t.UpdatedAt = time.Now().UTC()

	update := database.ConvertPlaceholders(`
		UPDATE ticket_sla SET
			first_response_at = $1, resolved_at = $2,
			first_response_status = $3, resolution_status = $4,
			paused_at = $5, total_paused_time = $6, updated_at = $7
		WHERE id = $8`)
	if _, err := tx.ExecContext(ctx, update,
		t.FirstResponseAt, t.ResolvedAt,
		string(t.FirstResponseStatus), string(t.ResolutionStatus),
		t.PausedAt, t.TotalPausedTime, t.UpdatedAt, t.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

// AppendPauseHistory records one completed pause interval.
func (r *SLARepository) AppendPauseHistory(ctx context.Context, entry *models.SLAPauseHistory) error {
	query := database.ConvertPlaceholders(`
		INSERT INTO sla_pause_history (ticket_sla_id, paused_at, resumed_at, duration_minutes, paused_by)
		VALUES ($1, $2, $3, $4, $5)`)
	_, err := r.db.ExecContext(ctx, query,
		entry.TicketSLAID, entry.PausedAt, entry.ResumedAt, entry.DurationMinutes, entry.PausedBy)
	return err
}

// ListPauseHistory returns the pause intervals for a tracking record.
func (r *SLARepository) ListPauseHistory(ctx context.Context, ticketSLAID int) ([]*models.SLAPauseHistory, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, ticket_sla_id, paused_at, resumed_at, duration_minutes, paused_by
		FROM sla_pause_history WHERE ticket_sla_id = $1 ORDER BY id`)
	rows, err := r.db.QueryContext(ctx, query, ticketSLAID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.SLAPauseHistory
	for rows.Next() {
		var e models.SLAPauseHistory
		if err := rows.Scan(&e.ID, &e.TicketSLAID, &e.PausedAt, &e.ResumedAt, &e.DurationMinutes, &e.PausedBy); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// AppendBreach records a missed target.
func (r *SLARepository) AppendBreach(ctx context.Context, breach *models.SLABreach) error {
	query := database.ConvertPlaceholders(`
		INSERT INTO sla_breach (ticket_id, sla_configuration_id, breach_type, target_time, actual_time, breach_minutes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	_, err := r.db.ExecContext(ctx, query,
		breach.TicketID, breach.SLAConfigurationID, breach.BreachType,
		breach.TargetTime, breach.ActualTime, breach.BreachMinutes, time.Now().UTC())
	return err
}

// ListBreaches returns the breach rows for a ticket.
func (r *SLARepository) ListBreaches(ctx context.Context, ticketID int) ([]*models.SLABreach, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, ticket_id, sla_configuration_id, breach_type, target_time, actual_time, breach_minutes, created_at
		FROM sla_breach WHERE ticket_id = $1 ORDER BY id`)
	rows, err := r.db.QueryContext(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var breaches []*models.SLABreach
	for rows.Next() {
		var b models.SLABreach
		if err := rows.Scan(&b.ID, &b.TicketID, &b.SLAConfigurationID, &b.BreachType,
			&b.TargetTime, &b.ActualTime, &b.BreachMinutes, &b.CreatedAt); err != nil {
			return nil, err
		}
		breaches = append(breaches, &b)
	}
	return breaches, rows.Err()
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func joinDays(days []int) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(d))
	}
	return strings.Join(parts, ",")
}

func splitDays(csv string) []int {
	if csv == "" {
		return nil
	}
	var days []int
	for _, part := range strings.Split(csv, ",") {
		if d, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			days = append(days, d)
		}
	}
	return days
}
