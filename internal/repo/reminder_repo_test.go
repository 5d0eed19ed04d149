package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-assistant-backend/internal/domain"
)

// newTestDB opens a migrated SQLite database in a per-test temp dir.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

func mkReminder(t *testing.T, db *gorm.DB, r domain.Reminder) *domain.Reminder {
	t.Helper()
	if r.UserID == 0 {
		r.UserID = 1
	}
	if r.Title == "" {
		r.Title = "test reminder"
	}
	if r.TriggerTime.IsZero() {
		r.TriggerTime = time.Now().UTC()
	}
	if err := CreateReminder(context.Background(), db, &r); err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	return &r
}

func TestReminderCRUDRoundtrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	linked := int64(99)
	created := mkReminder(t, db, domain.Reminder{
		Title:             "Water plants",
		Message:           "The ferns too",
		Type:              domain.TypeRecurring,
		TriggerTime:       time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		RecurrencePattern: domain.RecurCustom,
		RecurrenceDays:    []string{"3"},
		Enabled:           true,
		Priority:          domain.PriorityHigh,
		Categories:        []string{"home", "plants"},
		LinkedItemID:      &linked,
		LinkedItemType:    "note",
		TriggerConditions: map[string]any{"location": "home"},
	})
	if created.ID == 0 {
		t.Fatal("ID not backfilled on insert")
	}

	got, err := GetReminder(ctx, db, created.ID, 1)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	if got.Title != "Water plants" || got.RecurrencePattern != domain.RecurCustom {
		t.Fatalf("got = %+v", got)
	}
	// JSON-serialized columns round-trip.
	if len(got.RecurrenceDays) != 1 || got.RecurrenceDays[0] != "3" {
		t.Fatalf("recurrence_days = %v", got.RecurrenceDays)
	}
	if len(got.Categories) != 2 || got.Categories[0] != "home" {
		t.Fatalf("categories = %v", got.Categories)
	}
	if got.TriggerConditions["location"] != "home" {
		t.Fatalf("trigger_conditions = %v", got.TriggerConditions)
	}
	if got.LinkedItemID == nil || *got.LinkedItemID != 99 || got.LinkedItemType != "note" {
		t.Fatalf("linked item = %v/%q", got.LinkedItemID, got.LinkedItemType)
	}

	if err := DeleteReminder(ctx, db, created.ID, 1); err != nil {
		t.Fatalf("DeleteReminder: %v", err)
	}
	if _, err := GetReminder(ctx, db, created.ID, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete: err = %v, want ErrNotFound", err)
	}
}

func TestGetReminderScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	r := mkReminder(t, db, domain.Reminder{UserID: 1})

	if _, err := GetReminder(context.Background(), db, r.ID, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-owner get: err = %v, want ErrNotFound", err)
	}
	if err := DeleteReminder(context.Background(), db, r.ID, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-owner delete: err = %v, want ErrNotFound", err)
	}
}

func TestListDueRemindersOrdering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Insert shuffled; expect urgent first, then high, with ties broken by
	// the earlier trigger time.
	mkReminder(t, db, domain.Reminder{Title: "low", Priority: domain.PriorityLow, Enabled: true, TriggerTime: now.Add(-3 * time.Hour)})
	mkReminder(t, db, domain.Reminder{Title: "urgent-late", Priority: domain.PriorityUrgent, Enabled: true, TriggerTime: now.Add(-1 * time.Hour)})
	mkReminder(t, db, domain.Reminder{Title: "high", Priority: domain.PriorityHigh, Enabled: true, TriggerTime: now.Add(-2 * time.Hour)})
	mkReminder(t, db, domain.Reminder{Title: "urgent-early", Priority: domain.PriorityUrgent, Enabled: true, TriggerTime: now.Add(-2 * time.Hour)})

	// Excluded rows: future, disabled, completed.
	mkReminder(t, db, domain.Reminder{Title: "future", Priority: domain.PriorityUrgent, Enabled: true, TriggerTime: now.Add(time.Hour)})
	disabled := mkReminder(t, db, domain.Reminder{Title: "disabled", Enabled: false, TriggerTime: now.Add(-time.Hour)})
	mkReminder(t, db, domain.Reminder{Title: "done", Enabled: true, Completed: true, TriggerTime: now.Add(-time.Hour)})

	// Explicit false on insert must survive; column defaults must not
	// flip it back to enabled.
	stored, err := GetReminder(ctx, db, disabled.ID, 1)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	if stored.Enabled {
		t.Fatal("reminder created with enabled=false stored as enabled")
	}

	due, err := ListDueReminders(ctx, db, 1, now)
	if err != nil {
		t.Fatalf("ListDueReminders: %v", err)
	}

	want := []string{"urgent-early", "urgent-late", "high", "low"}
	if len(due) != len(want) {
		t.Fatalf("due = %d rows, want %d", len(due), len(want))
	}
	for i, title := range want {
		if due[i].Title != title {
			t.Fatalf("due[%d] = %q, want %q (full order %v)", i, due[i].Title, title, titles(due))
		}
	}
}

func TestListDueIncludesSnoozed(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()
	r := mkReminder(t, db, domain.Reminder{Enabled: true, TriggerTime: now.Add(-time.Hour)})
	if err := SetReminderSnooze(context.Background(), db, r.ID, now.Add(time.Hour)); err != nil {
		t.Fatalf("SetReminderSnooze: %v", err)
	}

	due, err := ListDueReminders(context.Background(), db, 1, now)
	if err != nil {
		t.Fatalf("ListDueReminders: %v", err)
	}
	// Snooze filtering is the service's job, not the store's.
	if len(due) != 1 || !due[0].Snoozed {
		t.Fatalf("due = %+v, want the snoozed row included", due)
	}
}

func TestMarkTriggeredIncrementsCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	r := mkReminder(t, db, domain.Reminder{Enabled: true})

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := MarkReminderTriggered(ctx, db, r.ID, at); err != nil {
			t.Fatalf("MarkReminderTriggered: %v", err)
		}
	}

	got, err := GetReminder(ctx, db, r.ID, 1)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	if got.TriggerCount != 3 {
		t.Fatalf("trigger_count = %d, want 3", got.TriggerCount)
	}
	if got.LastTriggeredAt == nil || !got.LastTriggeredAt.Equal(at) {
		t.Fatalf("last_triggered_at = %v", got.LastTriggeredAt)
	}
	if got.Completed {
		t.Fatal("trigger completed the reminder")
	}

	if err := MarkReminderTriggered(ctx, db, 404, at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing reminder: err = %v", err)
	}
}

func TestSnoozeSetAndClear(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	r := mkReminder(t, db, domain.Reminder{Enabled: true})

	until := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	if err := SetReminderSnooze(ctx, db, r.ID, until); err != nil {
		t.Fatalf("SetReminderSnooze: %v", err)
	}
	got, _ := GetReminder(ctx, db, r.ID, 1)
	if !got.Snoozed || got.SnoozeUntil == nil || !got.SnoozeUntil.Equal(until) {
		t.Fatalf("after snooze: %+v", got)
	}

	if err := ClearReminderSnooze(ctx, db, r.ID); err != nil {
		t.Fatalf("ClearReminderSnooze: %v", err)
	}
	got, _ = GetReminder(ctx, db, r.ID, 1)
	if got.Snoozed || got.SnoozeUntil != nil {
		t.Fatalf("after clear: %+v", got)
	}
}

func TestAdvanceReminderTrigger(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	r := mkReminder(t, db, domain.Reminder{Enabled: true, TriggerTime: start})

	next := start.AddDate(0, 0, 1)
	if err := AdvanceReminderTrigger(ctx, db, r.ID, next); err != nil {
		t.Fatalf("AdvanceReminderTrigger: %v", err)
	}
	got, _ := GetReminder(ctx, db, r.ID, 1)
	if !got.TriggerTime.Equal(next) {
		t.Fatalf("trigger_time = %v, want %v", got.TriggerTime, next)
	}
}

func TestUpdateReminderFields(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	r := mkReminder(t, db, domain.Reminder{Title: "before", Enabled: true})

	err := UpdateReminderFields(ctx, db, r.ID, 1, map[string]any{
		"title":              "after",
		"enabled":            false,
		"categories":         []string{"health", "daily"},
		"recurrence_days":    []string{"3"},
		"trigger_conditions": map[string]any{"location": "home"},
	})
	if err != nil {
		t.Fatalf("UpdateReminderFields: %v", err)
	}
	got, err := GetReminder(ctx, db, r.ID, 1)
	if err != nil {
		t.Fatalf("GetReminder after update: %v", err)
	}
	if got.Title != "after" || got.Enabled {
		t.Fatalf("after update: %+v", got)
	}
	if len(got.Categories) != 2 || got.Categories[0] != "health" {
		t.Fatalf("categories = %v", got.Categories)
	}
	if len(got.RecurrenceDays) != 1 || got.RecurrenceDays[0] != "3" {
		t.Fatalf("recurrence_days = %v", got.RecurrenceDays)
	}
	if got.TriggerConditions["location"] != "home" {
		t.Fatalf("trigger_conditions = %v", got.TriggerConditions)
	}

	// No row matched: wrong owner.
	err = UpdateReminderFields(ctx, db, r.ID, 2, map[string]any{"title": "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-owner update: err = %v", err)
	}

	// Empty field map is a no-op.
	if err := UpdateReminderFields(ctx, db, r.ID, 1, nil); err != nil {
		t.Fatalf("empty update: %v", err)
	}
}

func titles(rs []domain.Reminder) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Title
	}
	return out
}
