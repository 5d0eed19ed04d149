// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Reminder
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making
// them safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a reminder is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// This repository is designed to be wrapped by a higher-level service
// (see services.ReminderService) which enforces the snooze, completion,
// and recurrence rules.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-assistant-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// priorityRank orders string priorities urgent-first in SQL. Unknown
// values sort last, matching domain.Priority.Rank.
const priorityRank = `CASE priority
	WHEN 'urgent' THEN 3
	WHEN 'high'   THEN 2
	WHEN 'medium' THEN 1
	WHEN 'low'    THEN 0
	ELSE -1 END`

// CreateReminder inserts r and backfills its generated ID and timestamps.
func CreateReminder(ctx context.Context, db *gorm.DB, r *domain.Reminder) error {
	return db.WithContext(ctx).Create(r).Error
}

// GetReminder fetches a single reminder by its ID and owner. If the record
// does not exist, it returns ErrNotFound.
func GetReminder(ctx context.Context, db *gorm.DB, id, userID int64) (*domain.Reminder, error) {
	var r domain.Reminder
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReminders returns all reminders belonging to userID, newest trigger
// first. When enabledOnly is set, disabled reminders are excluded.
func ListReminders(ctx context.Context, db *gorm.DB, userID int64, enabledOnly bool) ([]domain.Reminder, error) {
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if enabledOnly {
		q = q.Where("enabled = ?", true)
	}
	var out []domain.Reminder
	err := q.Order("trigger_time asc").Find(&out).Error
	return out, err
}

// ListDueReminders returns reminders that are enabled, not completed, and
// whose trigger time is at or before now, ordered by priority descending
// (urgent first) then trigger time ascending (soonest first). Snoozed
// reminders ARE included; the due-scan in the service layer decides
// whether their snooze window has elapsed.
func ListDueReminders(ctx context.Context, db *gorm.DB, userID int64, now time.Time) ([]domain.Reminder, error) {
	var out []domain.Reminder
	err := db.WithContext(ctx).
		Where("user_id = ? AND enabled = ? AND completed = ? AND trigger_time <= ?",
			userID, true, false, now).
		Order(priorityRank + " DESC, trigger_time ASC").
		Find(&out).Error
	return out, err
}

// UpdateReminderFields applies a partial update to the reminder identified
// by id and owned by userID. The fields map uses column names. Returns
// ErrNotFound when no row matched.
func UpdateReminderFields(ctx context.Context, db *gorm.DB, id, userID int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := encodeJSONColumns(fields, "recurrence_days", "categories", "trigger_conditions"); err != nil {
		return err
	}
	res := db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkReminderTriggered records a firing: it stamps last_triggered_at and
// increments trigger_count. Completed/snoozed flags are untouched.
func MarkReminderTriggered(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_triggered_at": at,
			"trigger_count":     gorm.Expr("trigger_count + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetReminderSnooze defers the reminder until the given time.
func SetReminderSnooze(ctx context.Context, db *gorm.DB, id int64, until time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("id = ?", id).
		Updates(map[string]any{"snoozed": true, "snooze_until": until})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearReminderSnooze atomically lifts the snooze flags.
func ClearReminderSnooze(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("id = ?", id).
		Updates(map[string]any{"snoozed": false, "snooze_until": nil}).Error
}

// AdvanceReminderTrigger writes the next occurrence's trigger time,
// renewing a recurring reminder.
func AdvanceReminderTrigger(ctx context.Context, db *gorm.DB, id int64, next time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("id = ?", id).
		Update("trigger_time", next).Error
}

// MarkReminderCompleted terminally completes a non-recurring reminder.
func MarkReminderCompleted(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Reminder{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"completed":         true,
			"last_triggered_at": at,
			"trigger_count":     gorm.Expr("trigger_count + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteReminder hard-deletes a reminder. Returns ErrNotFound when the
// reminder does not exist or is not owned by userID.
func DeleteReminder(ctx context.Context, db *gorm.DB, id, userID int64) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Reminder{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
