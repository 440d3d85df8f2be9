package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/slakit-io/slakit/internal/database"
	"github.com/slakit-io/slakit/internal/models"
)

// NotificationRepository queues notification rows for the dispatcher.
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Insert queues one notification.
func (r *NotificationRepository) Insert(ctx context.Context, n *models.Notification) error {
	n.CreatedAt = time.Now().UTC()
	id, err := database.InsertWithID(ctx, r.db, `
		INSERT INTO notification (user_id, ticket_id, type, subject, body, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
		RETURNING id`,
		n.UserID, n.TicketID, n.Type, n.Subject, n.Body, n.CreatedAt)
	if err != nil {
		return err
	}
	n.ID = int(id)
	return nil
}

// ListUnread returns undelivered notifications of the given type.
func (r *NotificationRepository) ListUnread(ctx context.Context, ntype string, limit int) ([]*models.Notification, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, user_id, ticket_id, type, subject, body, is_read, created_at
		FROM notification
		WHERE type = $1 AND is_read = FALSE
		ORDER BY id
		LIMIT $2`)
	rows, err := r.db.QueryContext(ctx, query, ntype, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.TicketID, &n.Type, &n.Subject, &n.Body, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkRead flags a notification as delivered.
func (r *NotificationRepository) MarkRead(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx,
		database.ConvertPlaceholders(`UPDATE notification SET is_read = TRUE WHERE id = $1`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
