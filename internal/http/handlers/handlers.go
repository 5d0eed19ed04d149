// Handler wiring.
//
// This file declares the service contracts the HTTP layer consumes and the
// Handlers aggregate that binds them. Handlers are transport-thin: they
// validate input, call application services, and translate domain errors
// into HTTP results. All contracts are context-aware and implementations
// must be safe for concurrent use.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-assistant-backend/internal/domain"
	"github.com/tbourn/go-assistant-backend/internal/services"
	"github.com/tbourn/go-assistant-backend/internal/utils"
	"github.com/tbourn/go-assistant-backend/internal/webhook"
)

// ReminderService defines the reminder lifecycle operations consumed by
// HTTP handlers.
type ReminderService interface {
	Create(ctx context.Context, userID int64, in services.CreateReminderInput) (*domain.Reminder, error)
	Get(ctx context.Context, userID, id int64) (*domain.Reminder, error)
	List(ctx context.Context, userID int64, opts services.ListOptions) ([]domain.Reminder, int64, error)
	Due(ctx context.Context, userID int64) ([]domain.Reminder, error)
	Update(ctx context.Context, userID, id int64, in services.UpdateReminderInput) (*domain.Reminder, error)
	Delete(ctx context.Context, userID, id int64) error
	Snooze(ctx context.Context, userID, id int64, duration string, customMinutes int) (*domain.Reminder, error)
	Complete(ctx context.Context, userID, id int64) (*domain.Reminder, error)
	Trigger(ctx context.Context, userID, id int64) (*domain.Reminder, error)
	CheckAndTriggerDue(ctx context.Context, userID int64) ([]domain.Reminder, error)
	CreateFromTemplate(ctx context.Context, userID int64, templateID string, triggerTime time.Time, customMessage string) (*domain.Reminder, error)
}

// WebhookService defines the subscription registry operations consumed by
// HTTP handlers.
type WebhookService interface {
	Create(ctx context.Context, userID int64, in services.CreateWebhookInput) (*domain.Webhook, error)
	Get(ctx context.Context, userID, id int64) (*domain.Webhook, error)
	ListPage(ctx context.Context, userID int64, enabledOnly bool, page, pageSize int) ([]domain.Webhook, int64, error)
	Update(ctx context.Context, userID, id int64, in services.UpdateWebhookInput) (*domain.Webhook, error)
	Delete(ctx context.Context, userID, id int64) error
	Stats(ctx context.Context, userID, id int64) (*services.WebhookStats, error)
}

// Deliverer is the slice of the delivery pipeline exposed over HTTP:
// synthetic test pushes for one subscription or one event type.
type Deliverer interface {
	TestWebhook(ctx context.Context, id, userID int64) (*webhook.TestResult, error)
	TestEvent(ctx context.Context, eventType string, data map[string]any, userID int64) (*webhook.EventTestSummary, error)
}

// Waker wakes the background scheduler so freshly written reminders are
// scanned without waiting for the next tick. May be nil.
type Waker interface {
	Notify()
}

// Handlers groups the HTTP endpoints for reminders and webhook
// subscriptions.
type Handlers struct {
	remSvc ReminderService
	whSvc  WebhookService
	deliv  Deliverer
	waker  Waker
}

// New constructs a Handlers instance bound to the given services. waker
// may be nil when no background scheduler is running.
func New(remSvc ReminderService, whSvc WebhookService, deliv Deliverer, waker Waker) *Handlers {
	return &Handlers{remSvc: remSvc, whSvc: whSvc, deliv: deliv, waker: waker}
}

// wake nudges the scheduler after a mutating write, when one is attached.
func (h *Handlers) wake() {
	if h.waker != nil {
		h.waker.Notify()
	}
}

// userID extracts the caller identity from the X-User-ID header. The
// service is single-tenant-per-deployment by default, so an absent or
// malformed header falls back to owner 1.
func userID(c *gin.Context) int64 {
	if c == nil || c.Request == nil {
		return 1
	}
	return utils.ParseInt64Default(strings.TrimSpace(c.GetHeader("X-User-ID")), 1)
}
