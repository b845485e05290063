package delivery

import (
	"errors"
	"io"
	"net/http"
	"time"

	"actionitems-backend/internal/schedule/domain"
	"actionitems-backend/internal/schedule/usecase"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// DefaultUserID is used when a list request carries no user_id.
const DefaultUserID = "default-user"

// ScheduleHandler handles schedule-related HTTP requests
type ScheduleHandler struct {
	scheduleUsecase usecase.ScheduleUsecase
	logger          zerolog.Logger
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(scheduleUsecase usecase.ScheduleUsecase, logger zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleUsecase: scheduleUsecase,
		logger:          logger.With().Str("component", "schedule_handler").Logger(),
	}
}

// CreateScheduleRequest represents the request body for creating a schedule
type CreateScheduleRequest struct {
	UserID      string   `json:"user_id"`
	RoleContext string   `json:"role_context" binding:"required,oneof=owner gm chef"`
	Frequency   string   `json:"frequency" binding:"required,oneof=daily weekly monthly"`
	DayOfWeek   *int     `json:"day_of_week" binding:"omitempty,min=0,max=6"`
	DayOfMonth  *int     `json:"day_of_month" binding:"omitempty,min=1,max=31"`
	SendTime    string   `json:"send_time" binding:"required"`
	Timezone    string   `json:"timezone" binding:"required"`
	Subject     string   `json:"subject" binding:"required"`
	Message     *string  `json:"message"`
	Recipients  []string `json:"recipients" binding:"required,min=1,dive,email"`
	IsActive    *bool    `json:"is_active"`
}

// ToggleScheduleRequest represents the request body for enabling or disabling a schedule
type ToggleScheduleRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// MarkSentRequest represents the optional request body for recording a send
type MarkSentRequest struct {
	SentAt *time.Time `json:"sent_at"`
}

// ListSchedules returns the schedules of a user
// GET /api/action-items/schedules?user_id=
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	userID := c.DefaultQuery("user_id", DefaultUserID)

	schedules, err := h.scheduleUsecase.ListSchedules(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedules)
}

// ListDueSchedules returns active schedules whose next run has arrived
// GET /api/action-items/schedules/due
func (h *ScheduleHandler) ListDueSchedules(c *gin.Context) {
	schedules, err := h.scheduleUsecase.ListDueSchedules(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedules)
}

// GetSchedule returns a specific schedule
// GET /api/action-items/schedules/:id
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	schedule, err := h.scheduleUsecase.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// CreateSchedule creates a new schedule
// POST /api/action-items/schedules
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	var req CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == "" {
		req.UserID = DefaultUserID
	}

	schedule, err := h.scheduleUsecase.CreateSchedule(c.Request.Context(), usecase.ScheduleInput{
		UserID:      req.UserID,
		RoleContext: domain.RoleContext(req.RoleContext),
		Frequency:   domain.Frequency(req.Frequency),
		DayOfWeek:   req.DayOfWeek,
		DayOfMonth:  req.DayOfMonth,
		SendTime:    req.SendTime,
		Timezone:    req.Timezone,
		Subject:     req.Subject,
		Message:     req.Message,
		Recipients:  req.Recipients,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, schedule)
}

// UpdateSchedule merges a partial update into a schedule
// PATCH /api/action-items/schedules/:id
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	var updates usecase.ScheduleUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule, err := h.scheduleUsecase.UpdateSchedule(c.Request.Context(), c.Param("id"), updates)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// ToggleSchedule enables or disables a schedule
// POST /api/action-items/schedules/:id/toggle
func (h *ScheduleHandler) ToggleSchedule(c *gin.Context) {
	var req ToggleScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule, err := h.scheduleUsecase.ToggleSchedule(c.Request.Context(), c.Param("id"), *req.IsActive)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// MarkScheduleSent records a send and advances the next run
// POST /api/action-items/schedules/:id/sent
func (h *ScheduleHandler) MarkScheduleSent(c *gin.Context) {
	var req MarkSentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var sentAt time.Time
	if req.SentAt != nil {
		sentAt = *req.SentAt
	}

	schedule, err := h.scheduleUsecase.MarkScheduleSent(c.Request.Context(), c.Param("id"), sentAt)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// DeleteSchedule deletes a schedule
// DELETE /api/action-items/schedules/:id
func (h *ScheduleHandler) DeleteSchedule(c *gin.Context) {
	deleted, err := h.scheduleUsecase.DeleteSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ScheduleHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrScheduleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
	case errors.Is(err, domain.ErrInvalidScheduleConfig):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("schedule request failed")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
