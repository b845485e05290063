package repository

import (
	"context"
	"time"

	"actionitems-backend/internal/schedule/domain"
)

// MutateFunc edits a schedule in place inside an atomic read-modify-write.
// Returning an error aborts the write.
type MutateFunc func(s *domain.ScheduledEmail) error

// ScheduleRepository defines the interface for scheduled email data access
type ScheduleRepository interface {
	// Create stores a new schedule. The caller assigns ID and timestamps.
	Create(ctx context.Context, s *domain.ScheduledEmail) error

	// FindByID returns the schedule, or nil if it does not exist
	FindByID(ctx context.Context, id string) (*domain.ScheduledEmail, error)

	// FindByUserID returns a user's schedules in insertion order
	FindByUserID(ctx context.Context, userID string) ([]*domain.ScheduledEmail, error)

	// Update loads the schedule, applies fn and writes the result back as one
	// atomic step. Returns nil if the schedule does not exist.
	Update(ctx context.Context, id string, fn MutateFunc) (*domain.ScheduledEmail, error)

	// Delete removes the schedule and reports whether it existed
	Delete(ctx context.Context, id string) (bool, error)

	// FindDue returns active schedules with next_run <= now, earliest first
	FindDue(ctx context.Context, now time.Time) ([]*domain.ScheduledEmail, error)
}
