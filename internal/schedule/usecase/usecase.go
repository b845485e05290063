package usecase

import (
	"context"
	"time"

	"actionitems-backend/internal/schedule/domain"

	"gorm.io/datatypes"
)

// ScheduleUsecase defines the business logic for recurring action-item emails
type ScheduleUsecase interface {
	// CreateSchedule stores a new schedule with its first next run
	CreateSchedule(ctx context.Context, input ScheduleInput) (*domain.ScheduledEmail, error)

	// GetSchedule returns a schedule or domain.ErrScheduleNotFound
	GetSchedule(ctx context.Context, id string) (*domain.ScheduledEmail, error)

	// ListSchedules returns the user's schedules in insertion order
	ListSchedules(ctx context.Context, userID string) ([]*domain.ScheduledEmail, error)

	// UpdateSchedule merges a partial update and recomputes the next run
	UpdateSchedule(ctx context.Context, id string, update ScheduleUpdate) (*domain.ScheduledEmail, error)

	// ToggleSchedule enables or disables a schedule without touching its timing
	ToggleSchedule(ctx context.Context, id string, isActive bool) (*domain.ScheduledEmail, error)

	// DeleteSchedule removes a schedule and reports whether it existed
	DeleteSchedule(ctx context.Context, id string) (bool, error)

	// ListDueSchedules returns active schedules whose next run has arrived
	ListDueSchedules(ctx context.Context) ([]*domain.ScheduledEmail, error)

	// MarkScheduleSent records a send and advances the next run past it
	MarkScheduleSent(ctx context.Context, id string, sentAt time.Time) (*domain.ScheduledEmail, error)
}

// ScheduleInput is the full payload for a new schedule
type ScheduleInput struct {
	UserID      string
	RoleContext domain.RoleContext
	Frequency   domain.Frequency
	DayOfWeek   *int
	DayOfMonth  *int
	SendTime    string
	Timezone    string
	Subject     string
	Message     *string
	Recipients  []string
	IsActive    *bool // nil means active
}

// ScheduleUpdate represents the fields that can be updated. Nil pointers and
// unset Nullable fields are left alone; a Nullable sent as null clears the field.
type ScheduleUpdate struct {
	RoleContext *domain.RoleContext     `json:"role_context,omitempty" binding:"omitempty,oneof=owner gm chef"`
	Frequency   *domain.Frequency       `json:"frequency,omitempty" binding:"omitempty,oneof=daily weekly monthly"`
	DayOfWeek   domain.Nullable[int]    `json:"day_of_week"`
	DayOfMonth  domain.Nullable[int]    `json:"day_of_month"`
	SendTime    *string                 `json:"send_time,omitempty"`
	Timezone    *string                 `json:"timezone,omitempty"`
	Subject     *string                 `json:"subject,omitempty" binding:"omitempty,min=1"`
	Message     domain.Nullable[string] `json:"message"`
	Recipients  []string                `json:"recipients,omitempty" binding:"omitempty,dive,email"`
	IsActive    *bool                   `json:"is_active,omitempty"`
}

func (p ScheduleUpdate) applyTo(s *domain.ScheduledEmail) {
	if p.RoleContext != nil {
		s.RoleContext = *p.RoleContext
	}
	if p.Frequency != nil {
		s.Frequency = *p.Frequency
	}
	p.DayOfWeek.Apply(&s.DayOfWeek)
	p.DayOfMonth.Apply(&s.DayOfMonth)
	if p.SendTime != nil {
		s.SendTime = *p.SendTime
	}
	if p.Timezone != nil {
		s.Timezone = *p.Timezone
	}
	if p.Subject != nil {
		s.Subject = *p.Subject
	}
	p.Message.Apply(&s.Message)
	if p.Recipients != nil {
		s.Recipients = append(datatypes.JSONSlice[string]{}, p.Recipients...)
	}
	if p.IsActive != nil {
		s.IsActive = *p.IsActive
	}
}

// Option configures a schedule usecase
type Option func(*scheduleUsecase)

// WithClock replaces the wall clock used as the reference instant
func WithClock(now func() time.Time) Option {
	return func(u *scheduleUsecase) {
		u.now = now
	}
}
