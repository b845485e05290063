package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"actionitems-backend/internal/schedule/domain"
)

// memoryScheduleRepository keeps schedules in process memory
type memoryScheduleRepository struct {
	mu        sync.RWMutex
	schedules map[string]*domain.ScheduledEmail
	order     []string
}

// NewMemoryScheduleRepository creates an empty in-memory ScheduleRepository
func NewMemoryScheduleRepository() ScheduleRepository {
	return &memoryScheduleRepository{
		schedules: make(map[string]*domain.ScheduledEmail),
	}
}

func (r *memoryScheduleRepository) Create(_ context.Context, s *domain.ScheduledEmail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schedules[s.ID]; exists {
		return fmt.Errorf("schedule %s already exists", s.ID)
	}
	r.schedules[s.ID] = s.Clone()
	r.order = append(r.order, s.ID)
	return nil
}

func (r *memoryScheduleRepository) FindByID(_ context.Context, id string) (*domain.ScheduledEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schedules[id].Clone(), nil
}

func (r *memoryScheduleRepository) FindByUserID(_ context.Context, userID string) ([]*domain.ScheduledEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*domain.ScheduledEmail{}
	for _, id := range r.order {
		if s := r.schedules[id]; s.UserID == userID {
			result = append(result, s.Clone())
		}
	}
	return result, nil
}

func (r *memoryScheduleRepository) Update(_ context.Context, id string, fn MutateFunc) (*domain.ScheduledEmail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.schedules[id]
	if !ok {
		return nil, nil
	}
	working := existing.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	r.schedules[id] = working
	return working.Clone(), nil
}

func (r *memoryScheduleRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schedules[id]; !ok {
		return false, nil
	}
	delete(r.schedules, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	return true, nil
}

func (r *memoryScheduleRepository) FindDue(_ context.Context, now time.Time) ([]*domain.ScheduledEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*domain.ScheduledEmail{}
	for _, id := range r.order {
		s := r.schedules[id]
		if s.IsActive && !s.NextRun.After(now) {
			result = append(result, s.Clone())
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].NextRun.Before(result[j].NextRun) })
	return result, nil
}
