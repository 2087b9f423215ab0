package service

import (
	"context"
	"errors"
	"time"

	"github.com/asktracker/asktracker-go/internal/model"
	"github.com/asktracker/asktracker-go/internal/repository"
)

var (
	ErrTitleRequired    = errors.New("title is required")
	ErrMessageRequired  = errors.New("message is required")
	ErrFeedbackNotFound = errors.New("feedback not found")
)

// FeedbackStore persists feedback rows scoped to their owner.
type FeedbackStore interface {
	Create(ctx context.Context, f *model.Feedback) error
	GetByID(ctx context.Context, userID, id int64) (*model.Feedback, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Feedback, error)
	Update(ctx context.Context, f *model.Feedback) error
	Delete(ctx context.Context, userID, id int64) error
}

// FeedbackService handles feedback CRUD for the authenticated user.
type FeedbackService struct {
	store FeedbackStore
	now   func() time.Time
}

// NewFeedbackService creates a new FeedbackService.
func NewFeedbackService(store FeedbackStore) *FeedbackService {
	return &FeedbackService{store: store, now: time.Now}
}

// Create stores a new feedback entry for userID.
func (s *FeedbackService) Create(ctx context.Context, userID int64, req model.CreateFeedbackRequest) (model.FeedbackResponse, error) {
	if req.Title == "" {
		return model.FeedbackResponse{}, ErrTitleRequired
	}
	if req.Message == "" {
		return model.FeedbackResponse{}, ErrMessageRequired
	}

	now := s.now().UTC()
	f := &model.Feedback{
		UserID:       userID,
		Title:        req.Title,
		Message:      req.Message,
		CreatedAt:    now,
		LastModified: now,
	}

	if err := s.store.Create(ctx, f); err != nil {
		return model.FeedbackResponse{}, storageError(err)
	}

	return f.ToResponse(), nil
}

// Get returns one feedback entry owned by userID.
func (s *FeedbackService) Get(ctx context.Context, userID, id int64) (model.FeedbackResponse, error) {
	f, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return model.FeedbackResponse{}, feedbackError(err)
	}
	return f.ToResponse(), nil
}

// List returns all feedback owned by userID.
func (s *FeedbackService) List(ctx context.Context, userID int64) ([]model.FeedbackResponse, error) {
	items, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageError(err)
	}

	result := make([]model.FeedbackResponse, len(items))
	for i := range items {
		result[i] = items[i].ToResponse()
	}
	return result, nil
}

// Update applies the non-nil fields of req. last_modified only moves when
// at least one field is supplied.
func (s *FeedbackService) Update(ctx context.Context, userID, id int64, req model.UpdateFeedbackRequest) (model.FeedbackResponse, error) {
	f, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return model.FeedbackResponse{}, feedbackError(err)
	}

	if req.Title == nil && req.Message == nil {
		return f.ToResponse(), nil
	}
	if req.Title != nil {
		if *req.Title == "" {
			return model.FeedbackResponse{}, ErrTitleRequired
		}
		f.Title = *req.Title
	}
	if req.Message != nil {
		if *req.Message == "" {
			return model.FeedbackResponse{}, ErrMessageRequired
		}
		f.Message = *req.Message
	}
	f.LastModified = s.now().UTC()

	if err := s.store.Update(ctx, f); err != nil {
		return model.FeedbackResponse{}, feedbackError(err)
	}

	return f.ToResponse(), nil
}

// Delete removes a feedback entry owned by userID.
func (s *FeedbackService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return feedbackError(err)
	}
	return nil
}

func feedbackError(err error) error {
	if errors.Is(err, repository.ErrFeedbackNotFound) {
		return ErrFeedbackNotFound
	}
	return storageError(err)
}
