package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slakit-io/slakit/internal/models"
	"github.com/slakit-io/slakit/internal/repository"
)

type recordingSender struct {
	sent   []string
	failTo string
}

func (s *recordingSender) Send(_ context.Context, to, _, _ string) error {
	if to == s.failTo {
		return errors.New("relay refused")
	}
	s.sent = append(s.sent, to)
	return nil
}

func TestDispatchPending(t *testing.T) {
	store := repository.NewMemoryNotificationRepository()
	users := repository.NewMemoryUserRepository()
	users.Add(&models.User{ID: 5, Login: "alice", Email: "alice@example.com"})
	users.Add(&models.User{ID: 6, Login: "bob", Email: "bob@example.com"})

	ctx := context.Background()
	for _, userID := range []int{5, 6} {
		require.NoError(t, store.Insert(ctx, &models.Notification{
			UserID:   userID,
			TicketID: 1,
			Type:     models.NotificationEscalationEmail,
			Subject:  "escalated",
		}))
	}

	sender := &recordingSender{failTo: "bob@example.com"}
	d := NewDispatcher(store, users, sender, nil)

	sent, failed, err := d.DispatchPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"alice@example.com"}, sender.sent)

	// The failure stays unread for the next pass; the success does not.
	unread, err := store.ListUnread(ctx, models.NotificationEscalationEmail, 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, 6, unread[0].UserID)

	// Retry after the relay recovers drains the queue.
	sender.failTo = ""
	sent, failed, err = d.DispatchPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 0, failed)

	unread, err = store.ListUnread(ctx, models.NotificationEscalationEmail, 10)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestDispatchUnknownRecipient(t *testing.T) {
	store := repository.NewMemoryNotificationRepository()
	users := repository.NewMemoryUserRepository()

	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, &models.Notification{
		UserID:  42,
		Type:    models.NotificationEscalationEmail,
		Subject: "orphaned",
	}))

	sender := &recordingSender{}
	d := NewDispatcher(store, users, sender, nil)

	sent, failed, err := d.DispatchPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 1, failed)
	assert.Empty(t, sender.sent)
}
