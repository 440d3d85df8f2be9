package repository

import (
	"context"
	"sync"
	"time"

	"github.com/slakit-io/slakit/internal/models"
)

// MemoryNotificationRepository is an in-memory implementation of NotificationStore.
type MemoryNotificationRepository struct {
	mu            sync.Mutex
	notifications []*models.Notification
	nextID        int
}

// NewMemoryNotificationRepository creates a new in-memory notification repository.
func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{nextID: 1}
}

// Insert stores a notification.
func (r *MemoryNotificationRepository) Insert(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = r.nextID
	r.nextID++
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	copied := *n
	r.notifications = append(r.notifications, &copied)
	return nil
}

// ListUnread returns unread notifications of the given type, oldest first.
func (r *MemoryNotificationRepository) ListUnread(_ context.Context, notifType string, limit int) ([]*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Notification
	for _, n := range r.notifications {
		if n.Type != notifType || n.IsRead {
			continue
		}
		copied := *n
		out = append(out, &copied)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MarkRead flags a notification as read.
func (r *MemoryNotificationRepository) MarkRead(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.ID == id {
			n.IsRead = true
			return nil
		}
	}
	return ErrNotFound
}
