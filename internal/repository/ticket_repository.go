package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/slakit-io/slakit/internal/database"
	"github.com/slakit-io/slakit/internal/models"
)

// TicketRepository reads the collaborator ticket table and writes the
// two columns escalation owns: priority and updated_at.
type TicketRepository struct {
	db *sql.DB
}

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketColumns = `id, title, status, priority, category_id, assigned_to, created_at, updated_at`

func scanTicket(row rowScanner) (*models.Ticket, error) {
	var t models.Ticket
	var priority string
	var categoryID, assignedTo sql.NullInt64
	err := row.Scan(&t.ID, &t.Title, &t.Status, &priority, &categoryID, &assignedTo, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p, ok := models.ParsePriority(priority)
	if !ok {
		return nil, fmt.Errorf("ticket %d has unknown priority %q", t.ID, priority)
	}
	t.Priority = p
	if categoryID.Valid {
		id := int(categoryID.Int64)
		t.CategoryID = &id
	}
	if assignedTo.Valid {
		id := int(assignedTo.Int64)
		t.AssignedTo = &id
	}
	return &t, nil
}

// GetByID retrieves a ticket.
func (r *TicketRepository) GetByID(ctx context.Context, id int) (*models.Ticket, error) {
	query := database.ConvertPlaceholders(`SELECT ` + ticketColumns + ` FROM ticket WHERE id = $1`)
	t, err := scanTicket(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return t, err
}

// ListOpen returns tickets in the given statuses, oldest first.
func (r *TicketRepository) ListOpen(ctx context.Context, statuses []string, limit int) ([]*models.Ticket, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, 0, len(statuses)+1)
	for i, s := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, s)
	}
	args = append(args, limit)

	query := database.ConvertPlaceholders(fmt.Sprintf(`
		SELECT `+ticketColumns+` FROM ticket
		WHERE status IN (%s)
		ORDER BY created_at ASC
		LIMIT $%d`, strings.Join(placeholders, ", "), len(statuses)+1))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// UpdatePriority writes the new priority and touches updated_at, which
// feeds the no_response_time escalation clock.
func (r *TicketRepository) UpdatePriority(ctx context.Context, id int, priority models.Priority, now time.Time) error {
	query := database.ConvertPlaceholders(`
		UPDATE ticket SET priority = $1, updated_at = $2 WHERE id = $3`)
	res, err := r.db.ExecContext(ctx, query, priority.String(), now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
