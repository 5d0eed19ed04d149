package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-assistant-backend/internal/domain"
)

func mkWebhook(t *testing.T, db *gorm.DB, w domain.Webhook) *domain.Webhook {
	t.Helper()
	if w.UserID == 0 {
		w.UserID = 1
	}
	if w.Name == "" {
		w.Name = "test hook"
	}
	if w.URL == "" {
		w.URL = "https://example.com/hook"
	}
	if err := CreateWebhook(context.Background(), db, &w); err != nil {
		t.Fatalf("CreateWebhook: %v", err)
	}
	return &w
}

func TestWebhookCRUDRoundtrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created := mkWebhook(t, db, domain.Webhook{
		Name:          "Ops alerts",
		URL:           "https://ops.example.com/hooks/assistant",
		SecretKey:     "abc123",
		Events:        []string{domain.EventReminderTrigger, domain.EventWeatherAlert},
		Enabled:       true,
		RetryAttempts: 5,
		Timeout:       10,
	})
	if created.ID == 0 {
		t.Fatal("ID not backfilled on insert")
	}

	got, err := GetWebhook(ctx, db, created.ID, 1)
	if err != nil {
		t.Fatalf("GetWebhook: %v", err)
	}
	if got.Name != "Ops alerts" || got.SecretKey != "abc123" {
		t.Fatalf("got = %+v", got)
	}
	if len(got.Events) != 2 || got.Events[0] != domain.EventReminderTrigger {
		t.Fatalf("events = %v", got.Events)
	}
	if got.RetryAttempts != 5 || got.Timeout != 10 {
		t.Fatalf("policy = %d/%d", got.RetryAttempts, got.Timeout)
	}

	if err := DeleteWebhook(ctx, db, created.ID, 1); err != nil {
		t.Fatalf("DeleteWebhook: %v", err)
	}
	if _, err := GetWebhook(ctx, db, created.ID, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete: err = %v", err)
	}
}

func TestListWebhooksEnabledFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	mkWebhook(t, db, domain.Webhook{Name: "on", Enabled: true})
	off := mkWebhook(t, db, domain.Webhook{Name: "off", Enabled: false})
	mkWebhook(t, db, domain.Webhook{Name: "other-user", UserID: 2, Enabled: true})

	// Disabled at creation must come back disabled; a column default must
	// not overwrite an explicit false on insert.
	stored, err := GetWebhook(ctx, db, off.ID, 1)
	if err != nil {
		t.Fatalf("GetWebhook: %v", err)
	}
	if stored.Enabled {
		t.Fatal("webhook created with enabled=false stored as enabled")
	}

	all, err := ListWebhooks(ctx, db, 1, false)
	if err != nil {
		t.Fatalf("ListWebhooks: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}

	on, _ := ListWebhooks(ctx, db, 1, true)
	if len(on) != 1 || on[0].Name != "on" {
		t.Fatalf("enabled only = %+v", on)
	}

	total, _ := CountWebhooks(ctx, db, 1, false)
	if total != 2 {
		t.Fatalf("count = %d, want 2", total)
	}
}

func TestUpdateWebhookFields(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	w := mkWebhook(t, db, domain.Webhook{Name: "before", Enabled: true})

	err := UpdateWebhookFields(ctx, db, w.ID, 1, map[string]any{
		"name":    "after",
		"events":  []string{domain.EventCustom},
		"enabled": false,
	})
	if err != nil {
		t.Fatalf("UpdateWebhookFields: %v", err)
	}

	got, err := GetWebhook(ctx, db, w.ID, 1)
	if err != nil {
		t.Fatalf("GetWebhook after update: %v", err)
	}
	if got.Name != "after" || got.Enabled {
		t.Fatalf("after update: %+v", got)
	}
	if len(got.Events) != 1 || got.Events[0] != domain.EventCustom {
		t.Fatalf("events = %v", got.Events)
	}

	if err := UpdateWebhookFields(ctx, db, w.ID, 2, map[string]any{"name": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-owner update: err = %v", err)
	}
}

func TestTouchWebhookTriggered(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	w := mkWebhook(t, db, domain.Webhook{Enabled: true})

	if got, _ := GetWebhook(ctx, db, w.ID, 1); got.LastTriggeredAt != nil {
		t.Fatalf("fresh webhook has last_triggered_at = %v", got.LastTriggeredAt)
	}

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := TouchWebhookTriggered(ctx, db, w.ID, at); err != nil {
		t.Fatalf("TouchWebhookTriggered: %v", err)
	}

	got, _ := GetWebhook(ctx, db, w.ID, 1)
	if got.LastTriggeredAt == nil || !got.LastTriggeredAt.Equal(at) {
		t.Fatalf("last_triggered_at = %v, want %v", got.LastTriggeredAt, at)
	}
}

func TestListWebhooksPage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c", "d"} {
		mkWebhook(t, db, domain.Webhook{Name: name, Enabled: true})
	}

	page, err := ListWebhooksPage(ctx, db, 1, false, 1, 2)
	if err != nil {
		t.Fatalf("ListWebhooksPage: %v", err)
	}
	if len(page) != 2 || page[0].Name != "b" || page[1].Name != "c" {
		t.Fatalf("page = %+v", page)
	}
}
