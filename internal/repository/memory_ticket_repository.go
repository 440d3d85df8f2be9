package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/slakit-io/slakit/internal/models"
)

// MemoryTicketRepository is an in-memory implementation of TicketStore.
type MemoryTicketRepository struct {
	mu      sync.Mutex
	tickets map[int]*models.Ticket
	nextID  int
}

// NewMemoryTicketRepository creates a new in-memory ticket repository.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{tickets: make(map[int]*models.Ticket), nextID: 1}
}

func copyTicket(t *models.Ticket) *models.Ticket {
	copied := *t
	if t.CategoryID != nil {
		id := *t.CategoryID
		copied.CategoryID = &id
	}
	if t.AssignedTo != nil {
		id := *t.AssignedTo
		copied.AssignedTo = &id
	}
	return &copied
}

// Add seeds a ticket, assigning an ID if it has none.
func (r *MemoryTicketRepository) Add(t *models.Ticket) *models.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == 0 {
		t.ID = r.nextID
		r.nextID++
	} else if t.ID >= r.nextID {
		r.nextID = t.ID + 1
	}
	r.tickets[t.ID] = copyTicket(t)
	return copyTicket(t)
}

// GetByID retrieves a ticket by ID.
func (r *MemoryTicketRepository) GetByID(_ context.Context, id int) (*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tickets[id]; ok {
		return copyTicket(t), nil
	}
	return nil, ErrNotFound
}

// ListOpen returns tickets in any of the given statuses, oldest first.
func (r *MemoryTicketRepository) ListOpen(_ context.Context, statuses []string, limit int) ([]*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allowed := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	var tickets []*models.Ticket
	for _, t := range r.tickets {
		if allowed[t.Status] {
			tickets = append(tickets, copyTicket(t))
		}
	}
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].ID < tickets[j].ID
		}
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})
	if limit > 0 && len(tickets) > limit {
		tickets = tickets[:limit]
	}
	return tickets, nil
}

// UpdatePriority sets the ticket's priority and touches updated_at.
func (r *MemoryTicketRepository) UpdatePriority(_ context.Context, id int, priority models.Priority, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return ErrNotFound
	}
	t.Priority = priority
	t.UpdatedAt = now
	return nil
}

// MemoryCommentRepository is an in-memory implementation of CommentStore.
type MemoryCommentRepository struct {
	mu       sync.Mutex
	comments []*models.Comment
	nextID   int
}

// NewMemoryCommentRepository creates a new in-memory comment repository.
func NewMemoryCommentRepository() *MemoryCommentRepository {
	return &MemoryCommentRepository{nextID: 1}
}

// Insert stores a comment.
func (r *MemoryCommentRepository) Insert(_ context.Context, comment *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	comment.ID = r.nextID
	r.nextID++
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	copied := *comment
	r.comments = append(r.comments, &copied)
	return nil
}

// ByTicket returns the stored comments for a ticket.
func (r *MemoryCommentRepository) ByTicket(ticketID int) []*models.Comment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var comments []*models.Comment
	for _, c := range r.comments {
		if c.TicketID == ticketID {
			copied := *c
			comments = append(comments, &copied)
		}
	}
	return comments
}

// MemoryUserRepository is an in-memory implementation of UserStore.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[int]*models.User
}

// NewMemoryUserRepository creates a new in-memory user repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[int]*models.User)}
}

// Add seeds a user.
func (r *MemoryUserRepository) Add(u *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *u
	r.users[u.ID] = &copied
}

// GetByID retrieves a user by ID.
func (r *MemoryUserRepository) GetByID(_ context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, ErrNotFound
}

// SystemActor returns the lowest-ID system user.
func (r *MemoryUserRepository) SystemActor(_ context.Context) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *models.User
	for _, u := range r.users {
		if !u.IsSystem {
			continue
		}
		if found == nil || u.ID < found.ID {
			found = u
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	copied := *found
	return &copied, nil
}
