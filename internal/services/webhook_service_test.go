package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-assistant-backend/internal/domain"
)

// fakeWebhookRepo is an in-memory WebhookRepo.
type fakeWebhookRepo struct {
	nextID   int64
	webhooks map[int64]*domain.Webhook
}

func newFakeWebhookRepo() *fakeWebhookRepo {
	return &fakeWebhookRepo{nextID: 1, webhooks: map[int64]*domain.Webhook{}}
}

func (f *fakeWebhookRepo) Create(ctx context.Context, db *gorm.DB, w *domain.Webhook) error {
	w.ID = f.nextID
	f.nextID++
	cp := *w
	f.webhooks[w.ID] = &cp
	return nil
}

func (f *fakeWebhookRepo) Get(ctx context.Context, db *gorm.DB, id, userID int64) (*domain.Webhook, error) {
	w, ok := f.webhooks[id]
	if !ok || w.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWebhookRepo) List(ctx context.Context, db *gorm.DB, userID int64, enabledOnly bool) ([]domain.Webhook, error) {
	var out []domain.Webhook
	for id := int64(1); id < f.nextID; id++ {
		w, ok := f.webhooks[id]
		if !ok || w.UserID != userID {
			continue
		}
		if enabledOnly && !w.Enabled {
			continue
		}
		out = append(out, *w)
	}
	return out, nil
}

func (f *fakeWebhookRepo) Count(ctx context.Context, db *gorm.DB, userID int64, enabledOnly bool) (int64, error) {
	all, _ := f.List(ctx, db, userID, enabledOnly)
	return int64(len(all)), nil
}

func (f *fakeWebhookRepo) ListPage(ctx context.Context, db *gorm.DB, userID int64, enabledOnly bool, offset, limit int) ([]domain.Webhook, error) {
	all, _ := f.List(ctx, db, userID, enabledOnly)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeWebhookRepo) UpdateFields(ctx context.Context, db *gorm.DB, id, userID int64, fields map[string]any) error {
	w, ok := f.webhooks[id]
	if !ok || w.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			w.Name = v.(string)
		case "url":
			w.URL = v.(string)
		case "events":
			w.Events = v.([]string)
		case "enabled":
			w.Enabled = v.(bool)
		case "retry_attempts":
			w.RetryAttempts = v.(int)
		case "timeout":
			w.Timeout = v.(int)
		}
	}
	return nil
}

func (f *fakeWebhookRepo) Delete(ctx context.Context, db *gorm.DB, id, userID int64) error {
	w, ok := f.webhooks[id]
	if !ok || w.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	delete(f.webhooks, id)
	return nil
}

func newTestWebhookService() (*WebhookService, *fakeWebhookRepo) {
	repo := newFakeWebhookRepo()
	return NewWebhookService(nil, repo), repo
}

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://example.com/hook",
		"http://localhost:9000/x",
	}
	invalid := []string{
		"",
		"example.com/hook",
		"ftp://example.com/hook",
		"https://",
		"not a url",
	}
	for _, u := range valid {
		if !ValidateURL(u) {
			t.Fatalf("ValidateURL(%q) = false, want true", u)
		}
	}
	for _, u := range invalid {
		if ValidateURL(u) {
			t.Fatalf("ValidateURL(%q) = true, want false", u)
		}
	}
}

func TestCreateWebhookGeneratesSecret(t *testing.T) {
	svc, _ := newTestWebhookService()

	w, err := svc.Create(context.Background(), 1, CreateWebhookInput{
		Name:   "ops",
		URL:    "https://example.com/hook",
		Events: []string{domain.EventReminderTrigger},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(w.SecretKey) != 64 {
		t.Fatalf("secret length = %d, want 64 hex chars", len(w.SecretKey))
	}
	if !w.Enabled {
		t.Fatal("new subscription not enabled")
	}
	if w.RetryAttempts != 3 || w.Timeout != 30 {
		t.Fatalf("policy defaults = %d/%d, want 3/30", w.RetryAttempts, w.Timeout)
	}
}

func TestCreateWebhookKeepsSuppliedSecret(t *testing.T) {
	svc, _ := newTestWebhookService()

	w, err := svc.Create(context.Background(), 1, CreateWebhookInput{
		Name:      "ops",
		URL:       "https://example.com/hook",
		Events:    []string{domain.EventCustom},
		SecretKey: "preshared",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if w.SecretKey != "preshared" {
		t.Fatalf("secret = %q, want the supplied one", w.SecretKey)
	}
}

func TestCreateWebhookRejectsBadURL(t *testing.T) {
	svc, _ := newTestWebhookService()

	_, err := svc.Create(context.Background(), 1, CreateWebhookInput{
		Name:   "bad",
		URL:    "ftp://example.com",
		Events: []string{domain.EventReminderTrigger},
	})
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("err = %v, want ErrInvalidURL", err)
	}
}

func TestCreateWebhookRejectsUnknownEvents(t *testing.T) {
	svc, _ := newTestWebhookService()

	_, err := svc.Create(context.Background(), 1, CreateWebhookInput{
		Name:   "bad",
		URL:    "https://example.com/hook",
		Events: []string{domain.EventReminderTrigger, "reminder.created", "nope"},
	})
	if !errors.Is(err, ErrUnsupportedEvents) {
		t.Fatalf("err = %v, want ErrUnsupportedEvents", err)
	}
	// The message names every offender.
	for _, bad := range []string{"reminder.created", "nope"} {
		if !strings.Contains(err.Error(), bad) {
			t.Fatalf("error %q does not name offender %q", err.Error(), bad)
		}
	}
}

func TestUpdateWebhook(t *testing.T) {
	svc, _ := newTestWebhookService()
	w, _ := svc.Create(context.Background(), 1, CreateWebhookInput{
		Name:   "ops",
		URL:    "https://example.com/hook",
		Events: []string{domain.EventReminderTrigger},
	})

	enabled := false
	name := "ops-v2"
	got, err := svc.Update(context.Background(), 1, w.ID, UpdateWebhookInput{Name: &name, Enabled: &enabled})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Name != "ops-v2" || got.Enabled {
		t.Fatalf("updated = %q/%v", got.Name, got.Enabled)
	}

	// Supplied URL is re-validated.
	badURL := "nope"
	if _, err := svc.Update(context.Background(), 1, w.ID, UpdateWebhookInput{URL: &badURL}); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("bad url update: err = %v", err)
	}

	// Supplied events are re-validated.
	if _, err := svc.Update(context.Background(), 1, w.ID, UpdateWebhookInput{Events: []string{"bogus"}}); !errors.Is(err, ErrUnsupportedEvents) {
		t.Fatalf("bad events update: err = %v", err)
	}

	// Empty input is rejected.
	if _, err := svc.Update(context.Background(), 1, w.ID, UpdateWebhookInput{}); !errors.Is(err, ErrNoUpdates) {
		t.Fatalf("empty update: err = %v", err)
	}

	// Missing subscription.
	if _, err := svc.Update(context.Background(), 1, 404, UpdateWebhookInput{Name: &name}); !errors.Is(err, ErrWebhookNotFound) {
		t.Fatalf("missing update: err = %v", err)
	}
}

func TestDeleteWebhook(t *testing.T) {
	svc, _ := newTestWebhookService()
	w, _ := svc.Create(context.Background(), 1, CreateWebhookInput{
		Name:   "ops",
		URL:    "https://example.com/hook",
		Events: []string{domain.EventReminderTrigger},
	})

	if err := svc.Delete(context.Background(), 1, w.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(context.Background(), 1, w.ID); !errors.Is(err, ErrWebhookNotFound) {
		t.Fatalf("second delete: err = %v", err)
	}
}

func TestListWebhooksEnabledOnly(t *testing.T) {
	svc, _ := newTestWebhookService()
	off := false
	svc.Create(context.Background(), 1, CreateWebhookInput{
		Name: "on", URL: "https://a.example.com", Events: []string{domain.EventCustom},
	})
	svc.Create(context.Background(), 1, CreateWebhookInput{
		Name: "off", URL: "https://b.example.com", Events: []string{domain.EventCustom}, Enabled: &off,
	})

	all, err := svc.List(context.Background(), 1, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}

	on, _ := svc.List(context.Background(), 1, true)
	if len(on) != 1 || on[0].Name != "on" {
		t.Fatalf("enabled only = %+v", on)
	}
}

func TestListWebhooksPaged(t *testing.T) {
	svc, _ := newTestWebhookService()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		svc.Create(context.Background(), 1, CreateWebhookInput{
			Name: name, URL: "https://" + name + ".example.com", Events: []string{domain.EventCustom},
		})
	}

	items, total, err := svc.ListPage(context.Background(), 1, false, 2, 2)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(items) != 2 || items[0].Name != "c" || items[1].Name != "d" {
		t.Fatalf("page 2 = %+v", items)
	}

	// Page size 0 returns everything.
	items, total, _ = svc.ListPage(context.Background(), 1, false, 1, 0)
	if total != 5 || len(items) != 5 {
		t.Fatalf("unpaginated = %d/%d", len(items), total)
	}

	// Overflowing page is empty but keeps the total.
	items, total, _ = svc.ListPage(context.Background(), 1, false, 9, 2)
	if total != 5 || len(items) != 0 {
		t.Fatalf("overflow = %d/%d", len(items), total)
	}
}

func TestWebhookStatsOmitsSecret(t *testing.T) {
	svc, repo := newTestWebhookService()
	w, _ := svc.Create(context.Background(), 1, CreateWebhookInput{
		Name:   "ops",
		URL:    "https://example.com/hook",
		Events: []string{domain.EventReminderTrigger},
	})

	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	repo.webhooks[w.ID].LastTriggeredAt = &at

	stats, err := svc.Stats(context.Background(), 1, w.ID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.WebhookID != w.ID || stats.Name != "ops" || stats.URL != w.URL {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.LastTriggeredAt == nil || !stats.LastTriggeredAt.Equal(at) {
		t.Fatalf("last_triggered_at = %v", stats.LastTriggeredAt)
	}
	if len(stats.ConfiguredEvents) != 1 || stats.ConfiguredEvents[0] != domain.EventReminderTrigger {
		t.Fatalf("configured events = %v", stats.ConfiguredEvents)
	}
}
