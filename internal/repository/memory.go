package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/asktracker/asktracker-go/internal/model"
)

// MemoryUserRepository is an in-process credential store. Create performs
// the uniqueness check and the insert under one lock.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]model.User
	byEmail map[string]int64
}

// NewMemoryUserRepository creates an empty MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[int64]model.User),
		byEmail: make(map[string]int64),
	}
}

// Create inserts user, assigning the next ID, or fails with ErrDuplicateEmail.
func (r *MemoryUserRepository) Create(ctx context.Context, user *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return ErrDuplicateEmail
	}

	r.nextID++
	user.ID = r.nextID
	r.byID[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}

// GetByEmail retrieves a user by exact email match.
func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := r.byID[id]
	return &u, nil
}

// GetByID retrieves a user by ID.
func (r *MemoryUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// Count returns the number of stored users.
func (r *MemoryUserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// MemoryFeedbackRepository is an in-process feedback store.
type MemoryFeedbackRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]model.Feedback
}

// NewMemoryFeedbackRepository creates an empty MemoryFeedbackRepository.
func NewMemoryFeedbackRepository() *MemoryFeedbackRepository {
	return &MemoryFeedbackRepository{items: make(map[int64]model.Feedback)}
}

// Create inserts f and assigns the next ID.
func (r *MemoryFeedbackRepository) Create(ctx context.Context, f *model.Feedback) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	f.ID = r.nextID
	r.items[f.ID] = *f
	return nil
}

// GetByID retrieves a feedback entry owned by userID.
func (r *MemoryFeedbackRepository) GetByID(ctx context.Context, userID, id int64) (*model.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.items[id]
	if !ok || f.UserID != userID {
		return nil, ErrFeedbackNotFound
	}
	return &f, nil
}

// ListByUser returns the feedback owned by userID ordered by ID.
func (r *MemoryFeedbackRepository) ListByUser(ctx context.Context, userID int64) ([]model.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.Feedback
	for _, f := range r.items {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update overwrites title, message and last_modified of an owned entry.
func (r *MemoryFeedbackRepository) Update(ctx context.Context, f *model.Feedback) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[f.ID]
	if !ok || existing.UserID != f.UserID {
		return ErrFeedbackNotFound
	}
	existing.Title = f.Title
	existing.Message = f.Message
	existing.LastModified = f.LastModified
	r.items[f.ID] = existing
	return nil
}

// Delete removes a feedback entry owned by userID.
func (r *MemoryFeedbackRepository) Delete(ctx context.Context, userID, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.items[id]
	if !ok || f.UserID != userID {
		return ErrFeedbackNotFound
	}
	delete(r.items, id)
	return nil
}
