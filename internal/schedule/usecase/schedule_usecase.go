package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"actionitems-backend/internal/schedule/domain"
	"actionitems-backend/internal/schedule/recurrence"
	"actionitems-backend/internal/schedule/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

// scheduleUsecase implements ScheduleUsecase interface
type scheduleUsecase struct {
	repo   repository.ScheduleRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewScheduleUsecase creates a new instance of scheduleUsecase
func NewScheduleUsecase(repo repository.ScheduleRepository, logger zerolog.Logger, opts ...Option) ScheduleUsecase {
	u := &scheduleUsecase{
		repo:   repo,
		logger: logger.With().Str("component", "schedule_usecase").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// clock returns the reference instant in UTC at the precision Postgres keeps.
func (u *scheduleUsecase) clock() time.Time {
	return u.now().UTC().Truncate(time.Microsecond)
}

func (u *scheduleUsecase) CreateSchedule(ctx context.Context, input ScheduleInput) (*domain.ScheduledEmail, error) {
	now := u.clock()
	s := &domain.ScheduledEmail{
		ID:          uuid.New().String(),
		UserID:      input.UserID,
		RoleContext: input.RoleContext,
		Frequency:   input.Frequency,
		DayOfWeek:   input.DayOfWeek,
		DayOfMonth:  input.DayOfMonth,
		SendTime:    input.SendTime,
		Timezone:    input.Timezone,
		Subject:     input.Subject,
		Message:     input.Message,
		Recipients:  append(datatypes.JSONSlice[string]{}, input.Recipients...),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.IsActive != nil {
		s.IsActive = *input.IsActive
	}
	if err := reschedule(s, now); err != nil {
		return nil, err
	}

	if err := u.repo.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}
	u.logger.Info().
		Str("schedule_id", s.ID).
		Str("user_id", s.UserID).
		Str("frequency", string(s.Frequency)).
		Time("next_run", s.NextRun).
		Msg("schedule created")
	return s, nil
}

func (u *scheduleUsecase) GetSchedule(ctx context.Context, id string) (*domain.ScheduledEmail, error) {
	s, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	if s == nil {
		return nil, domain.ErrScheduleNotFound
	}
	return s, nil
}

func (u *scheduleUsecase) ListSchedules(ctx context.Context, userID string) ([]*domain.ScheduledEmail, error) {
	schedules, err := u.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

func (u *scheduleUsecase) UpdateSchedule(ctx context.Context, id string, update ScheduleUpdate) (*domain.ScheduledEmail, error) {
	now := u.clock()
	s, err := u.repo.Update(ctx, id, func(s *domain.ScheduledEmail) error {
		update.applyTo(s)
		if err := reschedule(s, now); err != nil {
			return err
		}
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update schedule %s: %w", id, err)
	}
	if s == nil {
		return nil, domain.ErrScheduleNotFound
	}
	u.logger.Info().Str("schedule_id", id).Time("next_run", s.NextRun).Msg("schedule updated")
	return s, nil
}

func (u *scheduleUsecase) ToggleSchedule(ctx context.Context, id string, isActive bool) (*domain.ScheduledEmail, error) {
	now := u.clock()
	s, err := u.repo.Update(ctx, id, func(s *domain.ScheduledEmail) error {
		s.IsActive = isActive
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to toggle schedule %s: %w", id, err)
	}
	if s == nil {
		return nil, domain.ErrScheduleNotFound
	}
	u.logger.Info().Str("schedule_id", id).Bool("is_active", isActive).Msg("schedule toggled")
	return s, nil
}

func (u *scheduleUsecase) DeleteSchedule(ctx context.Context, id string) (bool, error) {
	deleted, err := u.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete schedule %s: %w", id, err)
	}
	if deleted {
		u.logger.Info().Str("schedule_id", id).Msg("schedule deleted")
	}
	return deleted, nil
}

func (u *scheduleUsecase) ListDueSchedules(ctx context.Context) ([]*domain.ScheduledEmail, error) {
	due, err := u.repo.FindDue(ctx, u.clock())
	if err != nil {
		return nil, fmt.Errorf("failed to list due schedules: %w", err)
	}
	return due, nil
}

func (u *scheduleUsecase) MarkScheduleSent(ctx context.Context, id string, sentAt time.Time) (*domain.ScheduledEmail, error) {
	now := u.clock()
	if sentAt.IsZero() {
		sentAt = now
	}
	sentAt = sentAt.UTC()
	ref := now
	if sentAt.After(ref) {
		ref = sentAt
	}

	s, err := u.repo.Update(ctx, id, func(s *domain.ScheduledEmail) error {
		next, err := recurrence.NextRun(recurrence.RuleOf(s), ref)
		if err != nil {
			return err
		}
		s.LastRun = &sentAt
		s.NextRun = next
		s.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark schedule %s sent: %w", id, err)
	}
	if s == nil {
		return nil, domain.ErrScheduleNotFound
	}
	u.logger.Info().
		Str("schedule_id", id).
		Time("last_run", sentAt).
		Time("next_run", s.NextRun).
		Msg("schedule sent")
	return s, nil
}

// reschedule normalizes s, checks its content fields and recomputes NextRun
// from ref.
func reschedule(s *domain.ScheduledEmail, ref time.Time) error {
	s.Normalize()
	if err := validateContent(s); err != nil {
		return err
	}
	next, err := recurrence.NextRun(recurrence.RuleOf(s), ref)
	if err != nil {
		return err
	}
	s.NextRun = next
	return nil
}

func validateContent(s *domain.ScheduledEmail) error {
	switch {
	case strings.TrimSpace(s.UserID) == "":
		return fmt.Errorf("%w: user_id is required", domain.ErrInvalidScheduleConfig)
	case !s.RoleContext.IsValid():
		return fmt.Errorf("%w: unknown role context %q", domain.ErrInvalidScheduleConfig, s.RoleContext)
	case strings.TrimSpace(s.Subject) == "":
		return fmt.Errorf("%w: subject is required", domain.ErrInvalidScheduleConfig)
	case len(s.Recipients) == 0:
		return fmt.Errorf("%w: at least one recipient is required", domain.ErrInvalidScheduleConfig)
	}
	return nil
}
