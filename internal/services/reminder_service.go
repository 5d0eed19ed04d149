// Package services – ReminderService
//
// This file implements the ReminderService, the engine orchestrating the
// reminder lifecycle: creation (direct or from a template), partial
// updates, snooze, completion, manual firing, and the due-scan that finds
// and fires overdue reminders.
//
// Recurrence advance happens in exactly one place: the due-scan. After a
// due recurring reminder fires, its trigger time is moved forward via the
// recurrence calculator. Complete() only acknowledges the current
// occurrence (bookkeeping for recurring reminders, terminal completion
// for one-shot ones); it never recomputes the schedule, so a completion
// racing a scan cannot double-advance it.
//
// Every mutating operation emits a lifecycle event into the configured
// EventSink. Emission is best-effort and never fails the operation.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-assistant-backend/internal/domain"
	"github.com/tbourn/go-assistant-backend/internal/observability"
	"github.com/tbourn/go-assistant-backend/internal/recurrence"
)

// ReminderRepo defines the repository contract required by ReminderService.
type ReminderRepo interface {
	Create(ctx context.Context, db *gorm.DB, r *domain.Reminder) error
	Get(ctx context.Context, db *gorm.DB, id, userID int64) (*domain.Reminder, error)
	List(ctx context.Context, db *gorm.DB, userID int64, enabledOnly bool) ([]domain.Reminder, error)
	ListDue(ctx context.Context, db *gorm.DB, userID int64, now time.Time) ([]domain.Reminder, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id, userID int64, fields map[string]any) error
	MarkTriggered(ctx context.Context, db *gorm.DB, id int64, at time.Time) error
	SetSnooze(ctx context.Context, db *gorm.DB, id int64, until time.Time) error
	ClearSnooze(ctx context.Context, db *gorm.DB, id int64) error
	AdvanceTrigger(ctx context.Context, db *gorm.DB, id int64, next time.Time) error
	MarkCompleted(ctx context.Context, db *gorm.DB, id int64, at time.Time) error
	Delete(ctx context.Context, db *gorm.DB, id, userID int64) error
}

// ReminderService provides reminder lifecycle operations.
type ReminderService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the reminder repository used by this service.
	Repo ReminderRepo
	// Events receives lifecycle events (never nil; use NopSink).
	Events EventSink

	Log zerolog.Logger

	// Now is a clock seam for tests; defaults to time.Now.
	Now func() time.Time
}

// NewReminderService constructs a ReminderService with a real clock.
func NewReminderService(db *gorm.DB, repo ReminderRepo, sink EventSink, log zerolog.Logger) *ReminderService {
	if sink == nil {
		sink = NopSink{}
	}
	return &ReminderService{
		DB:     db,
		Repo:   repo,
		Events: sink,
		Log:    log,
		Now:    time.Now,
	}
}

// CreateReminderInput carries the fields accepted at creation. A nil
// TriggerTime defaults to "now"; zero-valued Type and Priority default to
// time_based and medium respectively.
type CreateReminderInput struct {
	Title             string
	Message           string
	Type              domain.ReminderType
	TriggerTime       *time.Time
	RecurrencePattern domain.RecurrencePattern
	RecurrenceDays    []string
	Priority          domain.Priority
	Categories        []string
	LinkedItemID      *int64
	LinkedItemType    string
	TriggerConditions map[string]any
	Enabled           *bool
}

// Create inserts a new reminder owned by userID and emits
// reminder.created.
func (s *ReminderService) Create(ctx context.Context, userID int64, in CreateReminderInput) (*domain.Reminder, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, ErrEmptyTitle
	}

	now := s.Now()
	trigger := now
	if in.TriggerTime != nil {
		trigger = *in.TriggerTime
	}
	typ := in.Type
	if typ == "" {
		typ = domain.TypeTimeBased
	}
	prio := in.Priority
	if prio == "" {
		prio = domain.PriorityMedium
	}
	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}

	r := &domain.Reminder{
		UserID:            userID,
		Title:             strings.TrimSpace(in.Title),
		Message:           in.Message,
		Type:              typ,
		TriggerTime:       trigger,
		RecurrencePattern: in.RecurrencePattern,
		RecurrenceDays:    in.RecurrenceDays,
		Enabled:           enabled,
		Priority:          prio,
		Categories:        in.Categories,
		LinkedItemID:      in.LinkedItemID,
		LinkedItemType:    in.LinkedItemType,
		TriggerConditions: in.TriggerConditions,
	}
	if err := s.Repo.Create(ctx, s.DB, r); err != nil {
		return nil, err
	}

	s.Events.Emit(ctx, domain.EventReminderCreated, s.eventData(r), userID)
	return r, nil
}

// Get fetches a single reminder, or ErrReminderNotFound.
func (s *ReminderService) Get(ctx context.Context, userID, id int64) (*domain.Reminder, error) {
	r, err := s.Repo.Get(ctx, s.DB, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReminderNotFound
	}
	return r, err
}

// ListOptions filters List results. Upcoming keeps only enabled,
// uncompleted reminders whose trigger time has passed. Category and
// Priority filter by classification. Page/PageSize paginate the filtered
// set (PageSize <= 0 disables pagination).
type ListOptions struct {
	EnabledOnly      bool
	Upcoming         bool
	IncludeCompleted bool
	Category         string
	Priority         string
	Page             int
	PageSize         int
}

// List returns the user's reminders after applying opts. Total is the
// size of the filtered set before pagination.
func (s *ReminderService) List(ctx context.Context, userID int64, opts ListOptions) ([]domain.Reminder, int64, error) {
	all, err := s.Repo.List(ctx, s.DB, userID, opts.EnabledOnly)
	if err != nil {
		return nil, 0, err
	}

	now := s.Now()
	filtered := all[:0:0]
	for _, r := range all {
		if opts.Upcoming && !(r.Enabled && !r.Completed && !r.TriggerTime.After(now)) {
			continue
		}
		if !opts.IncludeCompleted && r.Completed {
			continue
		}
		if opts.Category != "" && !hasCategory(r.Categories, opts.Category) {
			continue
		}
		if opts.Priority != "" && !strings.EqualFold(string(r.Priority), opts.Priority) {
			continue
		}
		filtered = append(filtered, r)
	}

	total := int64(len(filtered))
	if opts.PageSize > 0 {
		page := opts.Page
		if page < 1 {
			page = 1
		}
		lo := (page - 1) * opts.PageSize
		if lo >= len(filtered) {
			return []domain.Reminder{}, total, nil
		}
		hi := lo + opts.PageSize
		if hi > len(filtered) {
			hi = len(filtered)
		}
		filtered = filtered[lo:hi]
	}
	return filtered, total, nil
}

// Due returns the reminders eligible to fire right now, urgent-first then
// soonest-first. Snoozed reminders whose window has not elapsed are
// excluded.
func (s *ReminderService) Due(ctx context.Context, userID int64) ([]domain.Reminder, error) {
	now := s.Now()
	due, err := s.Repo.ListDue(ctx, s.DB, userID, now)
	if err != nil {
		return nil, err
	}
	out := due[:0:0]
	for _, r := range due {
		if r.Snoozed && r.SnoozeUntil != nil && r.SnoozeUntil.After(now) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// UpdateReminderInput carries optional fields for partial updates. Only
// non-nil fields are written.
type UpdateReminderInput struct {
	Title             *string
	Message           *string
	Type              *domain.ReminderType
	TriggerTime       *time.Time
	RecurrencePattern *domain.RecurrencePattern
	RecurrenceDays    []string
	Priority          *domain.Priority
	Categories        []string
	LinkedItemID      *int64
	LinkedItemType    *string
	TriggerConditions map[string]any
	Enabled           *bool
	Completed         *bool
	Snoozed           *bool
}

// Update applies a partial update and emits reminder.updated. An empty
// input is a no-op returning the current state.
func (s *ReminderService) Update(ctx context.Context, userID, id int64, in UpdateReminderInput) (*domain.Reminder, error) {
	fields := map[string]any{}
	if in.Title != nil {
		fields["title"] = *in.Title
	}
	if in.Message != nil {
		fields["message"] = *in.Message
	}
	if in.Type != nil {
		fields["type"] = *in.Type
	}
	if in.TriggerTime != nil {
		fields["trigger_time"] = *in.TriggerTime
	}
	if in.RecurrencePattern != nil {
		fields["recurrence_pattern"] = *in.RecurrencePattern
	}
	if in.RecurrenceDays != nil {
		fields["recurrence_days"] = in.RecurrenceDays
	}
	if in.Priority != nil {
		fields["priority"] = *in.Priority
	}
	if in.Categories != nil {
		fields["categories"] = in.Categories
	}
	if in.LinkedItemID != nil {
		fields["linked_item_id"] = *in.LinkedItemID
	}
	if in.LinkedItemType != nil {
		fields["linked_item_type"] = *in.LinkedItemType
	}
	if in.TriggerConditions != nil {
		fields["trigger_conditions"] = in.TriggerConditions
	}
	if in.Enabled != nil {
		fields["enabled"] = *in.Enabled
	}
	if in.Completed != nil {
		fields["completed"] = *in.Completed
	}
	if in.Snoozed != nil {
		fields["snoozed"] = *in.Snoozed
	}

	if len(fields) == 0 {
		return s.Get(ctx, userID, id)
	}

	if err := s.Repo.UpdateFields(ctx, s.DB, id, userID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderNotFound
		}
		return nil, err
	}

	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.Events.Emit(ctx, domain.EventReminderUpdated, s.eventData(r), userID)
	return r, nil
}

// Delete hard-deletes a reminder, emitting reminder.deleted with the
// pre-deletion state so the event payload is populated.
func (s *ReminderService) Delete(ctx context.Context, userID, id int64) error {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, s.DB, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReminderNotFound
		}
		return err
	}
	s.Events.Emit(ctx, domain.EventReminderDeleted, s.eventData(r), userID)
	return nil
}

// snoozeMinutes maps named snooze durations to minutes. Unknown names and
// "custom" without minutes fall back to 15.
func snoozeMinutes(duration string, customMinutes int) int {
	switch duration {
	case "5min":
		return 5
	case "15min":
		return 15
	case "30min":
		return 30
	case "1hr":
		return 60
	case "2hr":
		return 120
	case "custom":
		if customMinutes > 0 {
			return customMinutes
		}
		return 15
	default:
		return 15
	}
}

// Snooze defers the reminder by a named duration (or custom minutes)
// without touching its trigger time, and emits reminder.snoozed.
func (s *ReminderService) Snooze(ctx context.Context, userID, id int64, duration string, customMinutes int) (*domain.Reminder, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	until := s.Now().Add(time.Duration(snoozeMinutes(duration, customMinutes)) * time.Minute)
	if err := s.Repo.SetSnooze(ctx, s.DB, id, until); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderNotFound
		}
		return nil, err
	}

	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.Events.Emit(ctx, domain.EventReminderSnoozed, s.eventData(r), userID)
	return r, nil
}

// Complete acknowledges the current occurrence. For a recurring reminder
// this bumps the trigger bookkeeping and leaves it eligible for its next
// occurrence (the due-scan owns schedule advancement). For a one-shot
// reminder completion is terminal. Emits reminder.completed.
func (s *ReminderService) Complete(ctx context.Context, userID, id int64) (*domain.Reminder, error) {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	if r.IsRecurring() {
		err = s.Repo.MarkTriggered(ctx, s.DB, id, now)
	} else {
		err = s.Repo.MarkCompleted(ctx, s.DB, id, now)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderNotFound
		}
		return nil, err
	}

	r, err = s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.Events.Emit(ctx, domain.EventReminderCompleted, s.eventData(r), userID)
	return r, nil
}

// Trigger fires a reminder manually: bookkeeping only (last trigger time
// and count); completed/snoozed flags are untouched. Emits
// reminder.triggered.
func (s *ReminderService) Trigger(ctx context.Context, userID, id int64) (*domain.Reminder, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	if err := s.Repo.MarkTriggered(ctx, s.DB, id, s.Now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderNotFound
		}
		return nil, err
	}
	observability.RecordReminderTriggered()

	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.Events.Emit(ctx, domain.EventReminderTrigger, s.eventData(r), userID)
	return r, nil
}

// CheckAndTriggerDue is the due-scan: it fires every due reminder and
// advances recurring schedules. Snoozed reminders whose window has not
// elapsed are skipped; elapsed snoozes are lifted before firing. Failures
// local to one reminder are logged and never abort the scan. Returns the
// reminders fired in this pass.
func (s *ReminderService) CheckAndTriggerDue(ctx context.Context, userID int64) ([]domain.Reminder, error) {
	now := s.Now()
	due, err := s.Repo.ListDue(ctx, s.DB, userID, now)
	if err != nil {
		return nil, err
	}

	fired := make([]domain.Reminder, 0, len(due))
	for _, r := range due {
		if r.Snoozed {
			if r.SnoozeUntil != nil && r.SnoozeUntil.After(now) {
				continue
			}
			if err := s.Repo.ClearSnooze(ctx, s.DB, r.ID); err != nil {
				s.Log.Error().Err(err).Int64("reminder_id", r.ID).Msg("clearing snooze failed")
				continue
			}
		}

		if err := s.Repo.MarkTriggered(ctx, s.DB, r.ID, now); err != nil {
			s.Log.Error().Err(err).Int64("reminder_id", r.ID).Msg("marking reminder triggered failed")
			continue
		}
		observability.RecordReminderTriggered()
		s.Events.Emit(ctx, domain.EventReminderTrigger, s.eventData(&r), userID)

		if r.IsRecurring() {
			if next, ok := recurrence.Next(r.TriggerTime, r.RecurrencePattern, r.RecurrenceDays); ok {
				if err := s.Repo.AdvanceTrigger(ctx, s.DB, r.ID, next); err != nil {
					s.Log.Error().Err(err).Int64("reminder_id", r.ID).Msg("advancing recurrence failed")
				}
			}
			// An unrecognized pattern leaves the reminder non-recurring
			// for this cycle.
		}

		fired = append(fired, r)
		s.Log.Info().Int64("reminder_id", r.ID).Str("title", r.Title).Msg("reminder fired")
	}
	return fired, nil
}

// CreateFromTemplate stamps a reminder from a named preset, with the
// caller's trigger time (zero means now) and optional message override.
func (s *ReminderService) CreateFromTemplate(ctx context.Context, userID int64, templateID string, triggerTime time.Time, customMessage string) (*domain.Reminder, error) {
	t, ok := templateByID(templateID)
	if !ok {
		return nil, ErrTemplateNotFound
	}

	msg := t.Message
	if customMessage != "" {
		msg = customMessage
	}
	when := triggerTime
	if when.IsZero() {
		when = s.Now()
	}
	return s.Create(ctx, userID, CreateReminderInput{
		Title:             t.Title,
		Message:           msg,
		Type:              domain.TypeRecurring,
		TriggerTime:       &when,
		RecurrencePattern: t.Pattern,
		Priority:          t.Priority,
		Categories:        []string{t.Category},
	})
}

// eventData builds the lifecycle event payload for a reminder.
func (s *ReminderService) eventData(r *domain.Reminder) map[string]any {
	return map[string]any{
		"reminder_id":        r.ID,
		"title":              r.Title,
		"message":            r.Message,
		"type":               r.Type,
		"priority":           r.Priority,
		"trigger_time":       r.TriggerTime.UTC().Format(time.RFC3339Nano),
		"recurrence_pattern": r.RecurrencePattern,
		"completed":          r.Completed,
		"snoozed":            r.Snoozed,
		"triggered_at":       s.Now().UTC().Format(time.RFC3339Nano),
	}
}

func hasCategory(categories []string, want string) bool {
	for _, c := range categories {
		if strings.EqualFold(c, want) {
			return true
		}
	}
	return false
}
