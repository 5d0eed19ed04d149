// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns
// such as tracing, correlation IDs, logging, panic recovery, metrics,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-assistant-backend/internal/config"
	"github.com/tbourn/go-assistant-backend/internal/domain"
	"github.com/tbourn/go-assistant-backend/internal/http/handlers"
	"github.com/tbourn/go-assistant-backend/internal/http/middleware"
	"github.com/tbourn/go-assistant-backend/internal/repo"
	"github.com/tbourn/go-assistant-backend/internal/scheduler"
	"github.com/tbourn/go-assistant-backend/internal/services"
	"github.com/tbourn/go-assistant-backend/internal/webhook"
)

// reminderRepoShim adapts the repository free functions to the
// services.ReminderRepo interface. This keeps services decoupled from the
// concrete repo package while reusing existing functions.
type reminderRepoShim struct{}

func (reminderRepoShim) Create(ctx context.Context, db *gorm.DB, r *domain.Reminder) error {
	return repo.CreateReminder(ctx, db, r)
}

func (reminderRepoShim) Get(ctx context.Context, db *gorm.DB, id, userID int64) (*domain.Reminder, error) {
	return repo.GetReminder(ctx, db, id, userID)
}

func (reminderRepoShim) List(ctx context.Context, db *gorm.DB, userID int64, enabledOnly bool) ([]domain.Reminder, error) {
	return repo.ListReminders(ctx, db, userID, enabledOnly)
}

func (reminderRepoShim) ListDue(ctx context.Context, db *gorm.DB, userID int64, now time.Time) ([]domain.Reminder, error) {
	return repo.ListDueReminders(ctx, db, userID, now)
}

func (reminderRepoShim) UpdateFields(ctx context.Context, db *gorm.DB, id, userID int64, fields map[string]any) error {
	return repo.UpdateReminderFields(ctx, db, id, userID, fields)
}

func (reminderRepoShim) MarkTriggered(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	return repo.MarkReminderTriggered(ctx, db, id, at)
}

func (reminderRepoShim) SetSnooze(ctx context.Context, db *gorm.DB, id int64, until time.Time) error {
	return repo.SetReminderSnooze(ctx, db, id, until)
}

func (reminderRepoShim) ClearSnooze(ctx context.Context, db *gorm.DB, id int64) error {
	return repo.ClearReminderSnooze(ctx, db, id)
}

func (reminderRepoShim) AdvanceTrigger(ctx context.Context, db *gorm.DB, id int64, next time.Time) error {
	return repo.AdvanceReminderTrigger(ctx, db, id, next)
}

func (reminderRepoShim) MarkCompleted(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	return repo.MarkReminderCompleted(ctx, db, id, at)
}

func (reminderRepoShim) Delete(ctx context.Context, db *gorm.DB, id, userID int64) error {
	return repo.DeleteReminder(ctx, db, id, userID)
}

// webhookRepoShim adapts the repository free functions to the
// services.WebhookRepo interface.
type webhookRepoShim struct{}

func (webhookRepoShim) Create(ctx context.Context, db *gorm.DB, w *domain.Webhook) error {
	return repo.CreateWebhook(ctx, db, w)
}

func (webhookRepoShim) Get(ctx context.Context, db *gorm.DB, id, userID int64) (*domain.Webhook, error) {
	return repo.GetWebhook(ctx, db, id, userID)
}

func (webhookRepoShim) List(ctx context.Context, db *gorm.DB, userID int64, enabledOnly bool) ([]domain.Webhook, error) {
	return repo.ListWebhooks(ctx, db, userID, enabledOnly)
}

func (webhookRepoShim) Count(ctx context.Context, db *gorm.DB, userID int64, enabledOnly bool) (int64, error) {
	return repo.CountWebhooks(ctx, db, userID, enabledOnly)
}

func (webhookRepoShim) ListPage(ctx context.Context, db *gorm.DB, userID int64, enabledOnly bool, offset, limit int) ([]domain.Webhook, error) {
	return repo.ListWebhooksPage(ctx, db, userID, enabledOnly, offset, limit)
}

func (webhookRepoShim) UpdateFields(ctx context.Context, db *gorm.DB, id, userID int64, fields map[string]any) error {
	return repo.UpdateWebhookFields(ctx, db, id, userID, fields)
}

func (webhookRepoShim) Delete(ctx context.Context, db *gorm.DB, id, userID int64) error {
	return repo.DeleteWebhook(ctx, db, id, userID)
}

// subscriptionSource adapts the webhook repository to the dispatcher's
// SubscriptionSource contract. Not-found lookups are translated to the
// service-level sentinel so the HTTP layer can answer 404.
type subscriptionSource struct {
	db *gorm.DB
}

func (s subscriptionSource) ListEnabled(ctx context.Context, userID int64) ([]domain.Webhook, error) {
	return repo.ListWebhooks(ctx, s.db, userID, true)
}

func (s subscriptionSource) Get(ctx context.Context, id, userID int64) (*domain.Webhook, error) {
	w, err := repo.GetWebhook(ctx, s.db, id, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, services.ErrWebhookNotFound
	}
	return w, err
}

func (s subscriptionSource) TouchTriggered(ctx context.Context, id int64, at time.Time) error {
	return repo.TouchWebhookTriggered(ctx, s.db, id, at)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given
// Gin engine, builds the service graph on top of db, and mounts the
// versioned public API under cfg.APIBasePath.
//
// It returns the background scheduler (nil when disabled in cfg) so the
// caller can run it for the lifetime of the process.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) *scheduler.Scheduler {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: dispatcher + services ← repo/db
	limiter := webhook.NewURLLimiter(cfg.Webhook.RateLimitWindow, cfg.Webhook.RateLimitMax)
	dispatcher := webhook.NewDispatcher(subscriptionSource{db: db}, limiter, log.With().Str("component", "webhook").Logger())
	dispatcher.SourceName = cfg.Webhook.Source

	whSvc := services.NewWebhookService(db, webhookRepoShim{})
	whSvc.DefaultRetryAttempts = cfg.Webhook.RetryAttempts
	whSvc.DefaultTimeout = int(cfg.Webhook.Timeout.Seconds())

	remSvc := services.NewReminderService(db, reminderRepoShim{}, dispatcher,
		log.With().Str("component", "reminders").Logger())

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(remSvc, cfg.Scheduler.DefaultUserID, cfg.Scheduler.Interval,
			log.With().Str("component", "scheduler").Logger())
	}

	var waker handlers.Waker
	if sched != nil {
		waker = sched
	}
	h := handlers.New(remSvc, whSvc, dispatcher, waker)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Reminders
		api.POST("/reminders", h.CreateReminder)
		api.GET("/reminders", h.ListReminders)
		api.GET("/reminders/due", h.DueReminders)
		api.GET("/reminders/templates", h.ListTemplates)
		api.POST("/reminders/from-template", h.CreateFromTemplate)
		api.POST("/reminders/scan", h.ScanDueReminders)
		api.GET("/reminders/:id", h.GetReminder)
		api.PATCH("/reminders/:id", h.UpdateReminder)
		api.DELETE("/reminders/:id", h.DeleteReminder)
		api.POST("/reminders/:id/snooze", h.SnoozeReminder)
		api.POST("/reminders/:id/complete", h.CompleteReminder)
		api.POST("/reminders/:id/trigger", h.TriggerReminder)

		// Webhook subscriptions
		api.POST("/webhooks", h.CreateWebhook)
		api.GET("/webhooks", h.ListWebhooks)
		api.GET("/webhooks/:id", h.GetWebhook)
		api.PATCH("/webhooks/:id", h.UpdateWebhook)
		api.DELETE("/webhooks/:id", h.DeleteWebhook)
		api.POST("/webhooks/:id/test", h.TestWebhook)
		api.GET("/webhooks/:id/stats", h.WebhookStats)
		api.POST("/webhooks/events/:type/test", h.TestEvent)

		// Supported event catalog
		api.GET("/webhook-events", h.SupportedEvents)
	}

	return sched
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader. Requests exceeding the cap cause downstream body
// reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
