package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/slakit-io/slakit/internal/database"
	"github.com/slakit-io/slakit/internal/models"
)

// CommentRepository inserts internal notes on tickets.
type CommentRepository struct {
	db *sql.DB
}

// NewCommentRepository creates a new comment repository.
func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Insert writes one internal comment.
func (r *CommentRepository) Insert(ctx context.Context, comment *models.Comment) error {
	comment.CreatedAt = time.Now().UTC()
	id, err := database.InsertWithID(ctx, r.db, `
		INSERT INTO ticket_comment (ticket_id, author_id, body, internal, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		comment.TicketID, comment.AuthorID, comment.Body, comment.Internal, comment.CreatedAt)
	if err != nil {
		return err
	}
	comment.ID = int(id)
	return nil
}

// UserRepository resolves identities from the collaborator user table.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, login, email, is_system FROM users WHERE id = $1`)
	var u models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Login, &u.Email, &u.IsSystem)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SystemActor returns the identity automated comments are written as.
func (r *UserRepository) SystemActor(ctx context.Context) (*models.User, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, login, email, is_system FROM users WHERE is_system = TRUE ORDER BY id LIMIT 1`)
	var u models.User
	err := r.db.QueryRowContext(ctx, query).Scan(&u.ID, &u.Login, &u.Email, &u.IsSystem)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
