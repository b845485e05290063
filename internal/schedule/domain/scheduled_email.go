package domain

import (
	"errors"
	"time"

	"gorm.io/datatypes"
)

var (
	// ErrInvalidScheduleConfig is returned when the recurrence fields of a
	// schedule cannot produce a next run (bad send time, unknown timezone,
	// missing day for the frequency).
	ErrInvalidScheduleConfig = errors.New("invalid schedule config")

	// ErrScheduleNotFound is returned when an operation targets an unknown id.
	ErrScheduleNotFound = errors.New("schedule not found")
)

// RoleContext selects the audience and content template of an action-item email
type RoleContext string

const (
	RoleOwner RoleContext = "owner"
	RoleGM    RoleContext = "gm"
	RoleChef  RoleContext = "chef"
)

func (r RoleContext) IsValid() bool {
	switch r {
	case RoleOwner, RoleGM, RoleChef:
		return true
	}
	return false
}

// Frequency is how often a schedule fires
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// ScheduledEmail is a recurring action-item email
type ScheduledEmail struct {
	ID          string                      `json:"id" gorm:"primaryKey"`
	UserID      string                      `json:"user_id" gorm:"index;not null"`
	RoleContext RoleContext                 `json:"role_context" gorm:"not null"`
	Frequency   Frequency                   `json:"frequency" gorm:"not null"`
	DayOfWeek   *int                        `json:"day_of_week"`               // 0 = Sunday, weekly only
	DayOfMonth  *int                        `json:"day_of_month"`              // 1-31, monthly only
	SendTime    string                      `json:"send_time" gorm:"not null"` // HH:MM in Timezone
	Timezone    string                      `json:"timezone" gorm:"not null"`
	Subject     string                      `json:"subject" gorm:"not null"`
	Message     *string                     `json:"message"`
	Recipients  datatypes.JSONSlice[string] `json:"recipients" gorm:"type:jsonb;not null"`
	IsActive    bool                        `json:"is_active" gorm:"not null"`
	LastRun     *time.Time                  `json:"last_run"`
	NextRun     time.Time                   `json:"next_run" gorm:"index"`
	CreatedAt   time.Time                   `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt   time.Time                   `json:"updated_at" gorm:"autoUpdateTime:false"`
}

func (ScheduledEmail) TableName() string {
	return "scheduled_action_item_emails"
}

// Normalize clears the day fields that the frequency does not use.
func (s *ScheduledEmail) Normalize() {
	if s.Frequency != FrequencyWeekly {
		s.DayOfWeek = nil
	}
	if s.Frequency != FrequencyMonthly {
		s.DayOfMonth = nil
	}
}

// Clone returns a deep copy so stored records never share memory with callers.
func (s *ScheduledEmail) Clone() *ScheduledEmail {
	if s == nil {
		return nil
	}
	cp := *s
	cp.DayOfWeek = clonePtr(s.DayOfWeek)
	cp.DayOfMonth = clonePtr(s.DayOfMonth)
	cp.Message = clonePtr(s.Message)
	cp.LastRun = clonePtr(s.LastRun)
	if s.Recipients != nil {
		cp.Recipients = append(datatypes.JSONSlice[string]{}, s.Recipients...)
	}
	return &cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
