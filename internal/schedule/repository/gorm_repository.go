package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"actionitems-backend/internal/schedule/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormScheduleRepository implements ScheduleRepository using GORM
type gormScheduleRepository struct {
	db *gorm.DB
}

// NewGormScheduleRepository creates a new GORM-based ScheduleRepository
func NewGormScheduleRepository(db *gorm.DB) (ScheduleRepository, error) {
	if err := db.AutoMigrate(&domain.ScheduledEmail{}); err != nil {
		return nil, fmt.Errorf("migrate scheduled emails: %w", err)
	}
	return &gormScheduleRepository{db: db}, nil
}

func (r *gormScheduleRepository) Create(ctx context.Context, s *domain.ScheduledEmail) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *gormScheduleRepository) FindByID(ctx context.Context, id string) (*domain.ScheduledEmail, error) {
	var s domain.ScheduledEmail
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return normalizeTimes(&s), nil
}

func (r *gormScheduleRepository) FindByUserID(ctx context.Context, userID string) ([]*domain.ScheduledEmail, error) {
	schedules := []*domain.ScheduledEmail{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	for _, s := range schedules {
		normalizeTimes(s)
	}
	return schedules, nil
}

func (r *gormScheduleRepository) Update(ctx context.Context, id string, fn MutateFunc) (*domain.ScheduledEmail, error) {
	var updated *domain.ScheduledEmail
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s domain.ScheduledEmail
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&s).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		normalizeTimes(&s)
		if err := fn(&s); err != nil {
			return err
		}
		if err := tx.Save(&s).Error; err != nil {
			return err
		}
		updated = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *gormScheduleRepository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&domain.ScheduledEmail{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormScheduleRepository) FindDue(ctx context.Context, now time.Time) ([]*domain.ScheduledEmail, error) {
	schedules := []*domain.ScheduledEmail{}
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND next_run <= ?", true, now.UTC()).
		Order("next_run ASC, id ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	for _, s := range schedules {
		normalizeTimes(s)
	}
	return schedules, nil
}

// normalizeTimes converts timestamps read from the driver to UTC.
func normalizeTimes(s *domain.ScheduledEmail) *domain.ScheduledEmail {
	s.NextRun = s.NextRun.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	if s.LastRun != nil {
		t := s.LastRun.UTC()
		s.LastRun = &t
	}
	return s
}
