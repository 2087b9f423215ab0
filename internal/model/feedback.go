package model

import "time"

// Feedback represents a feedback row in the database.
type Feedback struct {
	ID           int64
	UserID       int64
	Title        string
	Message      string
	CreatedAt    time.Time
	LastModified time.Time
}

// CreateFeedbackRequest represents a feedback creation request.
type CreateFeedbackRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// UpdateFeedbackRequest represents a partial update. Nil fields are left unchanged.
type UpdateFeedbackRequest struct {
	Title   *string `json:"title"`
	Message *string `json:"message"`
}

// FeedbackResponse represents feedback data returned by the API.
type FeedbackResponse struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

// ToResponse converts the row into its API representation.
func (f *Feedback) ToResponse() FeedbackResponse {
	return FeedbackResponse{
		ID:           f.ID,
		UserID:       f.UserID,
		Title:        f.Title,
		Message:      f.Message,
		CreatedAt:    f.CreatedAt,
		LastModified: f.LastModified,
	}
}
