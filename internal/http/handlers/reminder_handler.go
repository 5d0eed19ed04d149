// Reminder HTTP handlers.
//
// This file exposes the REST endpoints for reminder resources:
//   - POST   /reminders                  (create)
//   - GET    /reminders                  (list, filtered + paginated)
//   - GET    /reminders/due              (currently due, priority-ordered)
//   - GET    /reminders/templates        (built-in template catalog)
//   - POST   /reminders/from-template    (instantiate a template)
//   - GET    /reminders/{id}             (fetch one)
//   - PATCH  /reminders/{id}             (partial update)
//   - DELETE /reminders/{id}             (delete)
//   - POST   /reminders/{id}/snooze      (push back the trigger)
//   - POST   /reminders/{id}/complete    (acknowledge)
//   - POST   /reminders/{id}/trigger     (fire manually)
//   - POST   /reminders/scan             (run a due-scan pass now)
//
// Handlers are transport-thin: they validate input, call the reminder
// service, and translate service errors into HTTP responses.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-assistant-backend/internal/domain"
	"github.com/tbourn/go-assistant-backend/internal/services"
	"github.com/tbourn/go-assistant-backend/internal/utils"
)

//
// DTOs
//

// CreateReminderRequest is the JSON payload for creating a reminder.
type CreateReminderRequest struct {
	Title             string         `json:"title" binding:"required" example:"Take medication"`
	Message           string         `json:"message" example:"Morning dose"`
	Type              string         `json:"type" example:"time_based"`
	TriggerTime       *time.Time     `json:"trigger_time" example:"2025-06-01T08:00:00Z"`
	RecurrencePattern string         `json:"recurrence_pattern" example:"daily"`
	RecurrenceDays    []string       `json:"recurrence_days"`
	Priority          string         `json:"priority" example:"medium"`
	Categories        []string       `json:"categories"`
	LinkedItemID      *int64         `json:"linked_item_id"`
	LinkedItemType    string         `json:"linked_item_type"`
	TriggerConditions map[string]any `json:"trigger_conditions"`
	Enabled           *bool          `json:"enabled"`
}

// UpdateReminderRequest is the JSON payload for partial reminder updates.
// Only fields present in the payload are written.
type UpdateReminderRequest struct {
	Title             *string        `json:"title"`
	Message           *string        `json:"message"`
	Type              *string        `json:"type"`
	TriggerTime       *time.Time     `json:"trigger_time"`
	RecurrencePattern *string        `json:"recurrence_pattern"`
	RecurrenceDays    []string       `json:"recurrence_days"`
	Priority          *string        `json:"priority"`
	Categories        []string       `json:"categories"`
	LinkedItemID      *int64         `json:"linked_item_id"`
	LinkedItemType    *string        `json:"linked_item_type"`
	TriggerConditions map[string]any `json:"trigger_conditions"`
	Enabled           *bool          `json:"enabled"`
	Completed         *bool          `json:"completed"`
	Snoozed           *bool          `json:"snoozed"`
}

// SnoozeReminderRequest selects a snooze duration. Duration is one of
// 5min, 15min, 30min, 1hr, 2hr or custom; custom requires CustomMinutes.
type SnoozeReminderRequest struct {
	Duration      string `json:"duration" example:"15min"`
	CustomMinutes int    `json:"custom_minutes" example:"45"`
}

// FromTemplateRequest instantiates one of the built-in reminder templates.
type FromTemplateRequest struct {
	TemplateID    string     `json:"template_id" binding:"required" example:"daily_medication"`
	TriggerTime   *time.Time `json:"trigger_time" example:"2025-06-01T08:00:00Z"`
	CustomMessage string     `json:"custom_message"`
}

// ReminderListResponse is the paginated list envelope.
type ReminderListResponse struct {
	Items    []domain.Reminder `json:"items"`
	Total    int64             `json:"total" example:"42"`
	Page     int               `json:"page" example:"1"`
	PageSize int               `json:"page_size" example:"20"`
}

// ScanResponse reports the outcome of a manual due-scan pass.
type ScanResponse struct {
	Triggered []domain.Reminder `json:"triggered"`
	Count     int               `json:"count" example:"3"`
}

//
// Endpoints
//

// CreateReminder godoc
// @ID          createReminder
// @Summary     Create a reminder
// @Description Creates a reminder owned by the caller. Trigger time defaults to now; type and priority default to time_based and medium.
// @Tags        Reminders
// @Accept      json
// @Produce     json
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Param       body body handlers.CreateReminderRequest true "Reminder payload"
// @Success     201 {object} domain.Reminder
// @Failure     400 {object} handlers.ErrorResponse "Invalid payload"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /reminders [post]
func (h *Handlers) CreateReminder(c *gin.Context) {
	var req CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	r, err := h.remSvc.Create(c.Request.Context(), userID(c), services.CreateReminderInput{
		Title:             req.Title,
		Message:           req.Message,
		Type:              domain.ReminderType(req.Type),
		TriggerTime:       req.TriggerTime,
		RecurrencePattern: domain.RecurrencePattern(req.RecurrencePattern),
		RecurrenceDays:    req.RecurrenceDays,
		Priority:          domain.Priority(req.Priority),
		Categories:        req.Categories,
		LinkedItemID:      req.LinkedItemID,
		LinkedItemType:    req.LinkedItemType,
		TriggerConditions: req.TriggerConditions,
		Enabled:           req.Enabled,
	})
	if err != nil {
		if errors.Is(err, services.ErrEmptyTitle) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title is required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}

	h.wake()
	ok(c, http.StatusCreated, r)
}

// ListReminders godoc
// @ID          listReminders
// @Summary     List reminders
// @Description Returns the caller's reminders, optionally filtered and paginated.
// @Tags        Reminders
// @Produce     json
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Param       enabled_only      query bool   false "Only enabled reminders"
// @Param       upcoming          query bool   false "Only enabled, uncompleted reminders already due"
// @Param       include_completed query bool   false "Include completed reminders"
// @Param       category          query string false "Filter by category"
// @Param       priority          query string false "Filter by priority"
// @Param       page              query int    false "Page number (1-based)"
// @Param       page_size         query int    false "Page size (0 disables pagination)"
// @Success     200 {object} handlers.ReminderListResponse
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /reminders [get]
func (h *Handlers) ListReminders(c *gin.Context) {
	opts := services.ListOptions{
		EnabledOnly:      c.Query("enabled_only") == "true",
		Upcoming:         c.Query("upcoming") == "true",
		IncludeCompleted: c.Query("include_completed") == "true",
		Category:         c.Query("category"),
		Priority:         c.Query("priority"),
		Page:             utils.AtoiDefault(c.Query("page"), 1),
		PageSize:         utils.AtoiDefault(c.Query("page_size"), 0),
	}

	items, total, err := h.remSvc.List(c.Request.Context(), userID(c), opts)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, ReminderListResponse{
		Items:    items,
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.PageSize,
	})
}

// DueReminders godoc
// @ID          dueReminders
// @Summary     List currently due reminders
// @Description Returns reminders whose trigger time has passed, highest priority first, excluding active snoozes.
// @Tags        Reminders
// @Produce     json
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Success     200 {array} domain.Reminder
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /reminders/due [get]
func (h *Handlers) DueReminders(c *gin.Context) {
	items, err := h.remSvc.Due(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.Reminder{}
	}
	ok(c, http.StatusOK, items)
}

// ListTemplates godoc
// @ID          listReminderTemplates
// @Summary     List built-in reminder templates
// @Tags        Reminders
// @Produce     json
// @Success     200 {array} services.ReminderTemplate
// @Router      /reminders/templates [get]
func (h *Handlers) ListTemplates(c *gin.Context) {
	ok(c, http.StatusOK, services.Templates())
}

// CreateFromTemplate godoc
// @ID          createReminderFromTemplate
// @Summary     Create a reminder from a template
// @Description Instantiates a built-in template. Trigger time defaults to now; custom_message overrides the template body.
// @Tags        Reminders
// @Accept      json
// @Produce     json
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Param       body body handlers.FromTemplateRequest true "Template selection"
// @Success     201 {object} domain.Reminder
// @Failure     400 {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404 {object} handlers.ErrorResponse "Unknown template"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /reminders/from-template [post]
func (h *Handlers) CreateFromTemplate(c *gin.Context) {
	var req FromTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "template_id is required")
		return
	}

	when := time.Time{}
	if req.TriggerTime != nil {
		when = *req.TriggerTime
	}

	r, err := h.remSvc.CreateFromTemplate(c.Request.Context(), userID(c), req.TemplateID, when, req.CustomMessage)
	if err != nil {
		if errors.Is(err, services.ErrTemplateNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown template")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}

	h.wake()
	ok(c, http.StatusCreated, r)
}

// GetReminder godoc
// @ID          getReminder
// @Summary     Fetch one reminder
// @Tags        Reminders
// @Produce     json
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Param       id path int true "Reminder ID" example(7)
// @Success     200 {object} domain.Reminder
// @Failure     400 {object} handlers.ErrorResponse "Invalid ID"
// @Failure     404 {object} handlers.ErrorResponse "Reminder not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /reminders/{id} [get]
func (h *Handlers) GetReminder(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}

	r, err := h.remSvc.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		failReminderErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// UpdateReminder godoc
// @ID          updateReminder
// @Summary     Update a reminder
// @Description Applies a partial update. Fields absent from the payload are left unchanged.
// @Tags        Reminders
// @Accept      json
// @Produce     json
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Param       id path int true "Reminder ID" example(7)
// @Param       body body handlers.UpdateReminderRequest true "Fields to update"
// @Success     200 {object} domain.Reminder
// @Failure     400 {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404 {object} handlers.ErrorResponse "Reminder not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /reminders/{id} [patch]
func (h *Handlers) UpdateReminder(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}

	var req UpdateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	in := services.UpdateReminderInput{
		Title:             req.Title,
		Message:           req.Message,
		TriggerTime:       req.TriggerTime,
		RecurrenceDays:    req.RecurrenceDays,
		Categories:        req.Categories,
		LinkedItemID:      req.LinkedItemID,
		LinkedItemType:    req.LinkedItemType,
		TriggerConditions: req.TriggerConditions,
		Enabled:           req.Enabled,
		Completed:         req.Completed,
		Snoozed:           req.Snoozed,
	}
	if req.Type != nil {
		t := domain.ReminderType(*req.Type)
		in.Type = &t
	}
	if req.RecurrencePattern != nil {
		p := domain.RecurrencePattern(*req.RecurrencePattern)
		in.RecurrencePattern = &p
	}
	if req.Priority != nil {
		p := domain.Priority(*req.Priority)
		in.Priority = &p
	}

	r, err := h.remSvc.Update(c.Request.Context(), userID(c), id, in)
	if err != nil {
		failReminderErr(c, err)
		return
	}

	h.wake()
	ok(c, http.StatusOK, r)
}

// DeleteReminder godoc
// @ID          deleteReminder
// @Summary     Delete a reminder
// @Tags        Reminders
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Param       id path int true "Reminder ID" example(7)
// @Success     204 {string} string "No Content"
// @Failure     400 {object} handlers.ErrorResponse "Invalid ID"
// @Failure     404 {object} handlers.ErrorResponse "Reminder not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /reminders/{id} [delete]
func (h *Handlers) DeleteReminder(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}

	if err := h.remSvc.Delete(c.Request.Context(), userID(c), id); err != nil {
		failReminderErr(c, err)
		return
	}
	noContent(c)
}

// SnoozeReminder godoc
// @ID          snoozeReminder
// @Summary     Snooze a reminder
// @Description Pushes a due reminder back by a named duration (5min, 15min, 30min, 1hr, 2hr, custom). Unknown names fall back to 15 minutes.
// @Tags        Reminders
// @Accept      json
// @Produce     json
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Param       id path int true "Reminder ID" example(7)
// @Param       body body handlers.SnoozeReminderRequest true "Snooze duration"
// @Success     200 {object} domain.Reminder
// @Failure     400 {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404 {object} handlers.ErrorResponse "Reminder not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /reminders/{id}/snooze [post]
func (h *Handlers) SnoozeReminder(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}

	var req SnoozeReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	r, err := h.remSvc.Snooze(c.Request.Context(), userID(c), id, req.Duration, req.CustomMinutes)
	if err != nil {
		failReminderErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// CompleteReminder godoc
// @ID          completeReminder
// @Summary     Complete a reminder
// @Description Acknowledges a reminder. One-shot reminders become terminal; recurring reminders stay scheduled.
// @Tags        Reminders
// @Produce     json
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Param       id path int true "Reminder ID" example(7)
// @Success     200 {object} domain.Reminder
// @Failure     400 {object} handlers.ErrorResponse "Invalid ID"
// @Failure     404 {object} handlers.ErrorResponse "Reminder not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /reminders/{id}/complete [post]
func (h *Handlers) CompleteReminder(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}

	r, err := h.remSvc.Complete(c.Request.Context(), userID(c), id)
	if err != nil {
		failReminderErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// TriggerReminder godoc
// @ID          triggerReminder
// @Summary     Trigger a reminder manually
// @Description Fires the reminder now, recording the trigger and fanning out reminder.triggered to subscribed webhooks. The schedule is not advanced.
// @Tags        Reminders
// @Produce     json
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Param       id path int true "Reminder ID" example(7)
// @Success     200 {object} domain.Reminder
// @Failure     400 {object} handlers.ErrorResponse "Invalid ID"
// @Failure     404 {object} handlers.ErrorResponse "Reminder not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /reminders/{id}/trigger [post]
func (h *Handlers) TriggerReminder(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}

	r, err := h.remSvc.Trigger(c.Request.Context(), userID(c), id)
	if err != nil {
		failReminderErr(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// ScanDueReminders godoc
// @ID          scanDueReminders
// @Summary     Run a due-scan pass now
// @Description Fires every due reminder, advances recurring schedules, and returns what was triggered.
// @Tags        Reminders
// @Produce     json
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Success     200 {object} handlers.ScanResponse
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /reminders/scan [post]
func (h *Handlers) ScanDueReminders(c *gin.Context) {
	fired, err := h.remSvc.CheckAndTriggerDue(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeTriggerFailed, err.Error())
		return
	}
	if fired == nil {
		fired = []domain.Reminder{}
	}
	ok(c, http.StatusOK, ScanResponse{Triggered: fired, Count: len(fired)})
}

// pathID parses the :id path parameter, writing a 400 and returning
// ok=false when it is not a positive integer.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// failReminderErr maps reminder service errors to HTTP responses.
func failReminderErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrReminderNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "reminder not found")
	case errors.Is(err, services.ErrEmptyTitle):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title is required")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
