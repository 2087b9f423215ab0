package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asktracker/asktracker-go/internal/model"
)

var ErrFeedbackNotFound = errors.New("feedback not found")

// FeedbackRepository handles feedback persistence operations.
type FeedbackRepository struct {
	db *sql.DB
}

// NewFeedbackRepository creates a new FeedbackRepository.
func NewFeedbackRepository(db *sql.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

const feedbackColumns = `id, user_id, title, message, created_at, last_modified`

// Create inserts a feedback row and sets its generated ID.
func (r *FeedbackRepository) Create(ctx context.Context, f *model.Feedback) error {
	query := `INSERT INTO feedback (user_id, title, message, created_at, last_modified) VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, f.UserID, f.Title, f.Message, f.CreatedAt, f.LastModified)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	f.ID = id
	return nil
}

// GetByID retrieves a feedback row owned by userID.
func (r *FeedbackRepository) GetByID(ctx context.Context, userID, id int64) (*model.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE id = ? AND user_id = ?`

	f := &model.Feedback{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&f.ID, &f.UserID, &f.Title, &f.Message, &f.CreatedAt, &f.LastModified,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return f, nil
}

// ListByUser retrieves all feedback owned by userID, oldest first.
func (r *FeedbackRepository) ListByUser(ctx context.Context, userID int64) ([]model.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE user_id = ? ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []model.Feedback
	for rows.Next() {
		var f model.Feedback
		if err := rows.Scan(&f.ID, &f.UserID, &f.Title, &f.Message, &f.CreatedAt, &f.LastModified); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return items, nil
}

// Update writes title, message and last_modified of an owned row.
func (r *FeedbackRepository) Update(ctx context.Context, f *model.Feedback) error {
	query := `UPDATE feedback SET title = ?, message = ?, last_modified = ? WHERE id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query, f.Title, f.Message, f.LastModified, f.ID, f.UserID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return requireAffected(result)
}

// Delete removes an owned feedback row.
func (r *FeedbackRepository) Delete(ctx context.Context, userID, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM feedback WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrFeedbackNotFound
	}
	return nil
}
