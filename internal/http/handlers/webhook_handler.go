// Webhook subscription HTTP handlers.
//
// This file exposes the REST endpoints for webhook subscriptions and the
// delivery test surface:
//   - POST   /webhooks                    (register)
//   - GET    /webhooks                    (list)
//   - GET    /webhooks/{id}               (fetch one)
//   - PATCH  /webhooks/{id}               (partial update)
//   - DELETE /webhooks/{id}               (delete)
//   - POST   /webhooks/{id}/test          (synthetic delivery to one subscription)
//   - GET    /webhooks/{id}/stats         (delivery summary, secret omitted)
//   - GET    /webhook-events              (supported event types)
//   - POST   /webhooks/events/{type}/test (synthetic fan-out for one event type)
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-assistant-backend/internal/domain"
	"github.com/tbourn/go-assistant-backend/internal/services"
	"github.com/tbourn/go-assistant-backend/internal/utils"
)

//
// DTOs
//

// CreateWebhookRequest is the JSON payload for registering a subscription.
// An empty secret_key triggers auto-generation; zero retry_attempts and
// timeout take the service defaults.
type CreateWebhookRequest struct {
	Name          string   `json:"name" binding:"required" example:"Ops alerts"`
	URL           string   `json:"url" binding:"required" example:"https://ops.example.com/hooks/assistant"`
	Events        []string `json:"events" binding:"required" example:"reminder.triggered"`
	Enabled       *bool    `json:"enabled"`
	SecretKey     string   `json:"secret_key"`
	RetryAttempts int      `json:"retry_attempts" example:"3"`
	Timeout       int      `json:"timeout" example:"30"`
}

// UpdateWebhookRequest is the JSON payload for partial subscription
// updates. URL and events are re-validated when supplied.
type UpdateWebhookRequest struct {
	Name          *string  `json:"name"`
	URL           *string  `json:"url"`
	Events        []string `json:"events"`
	Enabled       *bool    `json:"enabled"`
	RetryAttempts *int     `json:"retry_attempts"`
	Timeout       *int     `json:"timeout"`
}

// TestEventRequest optionally overrides the synthetic payload used by the
// per-event-type test endpoint.
type TestEventRequest struct {
	Data map[string]any `json:"data"`
}

// WebhookListItem is one subscription as rendered in list responses. The
// signing secret is omitted; it is only returned on create and single get.
type WebhookListItem struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	Name            string     `json:"name"`
	URL             string     `json:"url"`
	Events          []string   `json:"events"`
	Enabled         bool       `json:"enabled"`
	RetryAttempts   int        `json:"retry_attempts"`
	Timeout         int        `json:"timeout"`
	CreatedAt       time.Time  `json:"created_at"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
}

func listItem(w domain.Webhook) WebhookListItem {
	return WebhookListItem{
		ID:              w.ID,
		UserID:          w.UserID,
		Name:            w.Name,
		URL:             w.URL,
		Events:          w.Events,
		Enabled:         w.Enabled,
		RetryAttempts:   w.RetryAttempts,
		Timeout:         w.Timeout,
		CreatedAt:       w.CreatedAt,
		LastTriggeredAt: w.LastTriggeredAt,
	}
}

// WebhookListResponse is the paginated list envelope.
type WebhookListResponse struct {
	Items    []WebhookListItem `json:"items"`
	Total    int64             `json:"total" example:"4"`
	Page     int               `json:"page" example:"1"`
	PageSize int               `json:"page_size" example:"20"`
}

//
// Endpoints
//

// CreateWebhook godoc
// @ID          createWebhook
// @Summary     Register a webhook subscription
// @Description Registers an endpoint for event delivery. URL must be http(s); events must come from the supported set ("custom" subscribes to everything).
// @Tags        Webhooks
// @Accept      json
// @Produce     json
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Param       body body handlers.CreateWebhookRequest true "Subscription payload"
// @Success     201 {object} domain.Webhook
// @Failure     400 {object} handlers.ErrorResponse "Invalid URL or events"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /webhooks [post]
func (h *Handlers) CreateWebhook(c *gin.Context) {
	var req CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, url and events are required")
		return
	}

	w, err := h.whSvc.Create(c.Request.Context(), userID(c), services.CreateWebhookInput{
		Name:          req.Name,
		URL:           req.URL,
		Events:        req.Events,
		Enabled:       req.Enabled,
		SecretKey:     req.SecretKey,
		RetryAttempts: req.RetryAttempts,
		Timeout:       req.Timeout,
	})
	if err != nil {
		failWebhookErr(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, w)
}

// ListWebhooks godoc
// @ID          listWebhooks
// @Summary     List webhook subscriptions
// @Tags        Webhooks
// @Produce     json
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Param       enabled_only query bool false "Only enabled subscriptions"
// @Param       page      query int false "Page number (1-based)"
// @Param       page_size query int false "Page size (0 disables pagination)"
// @Success     200 {object} handlers.WebhookListResponse
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /webhooks [get]
func (h *Handlers) ListWebhooks(c *gin.Context) {
	page := utils.AtoiDefault(c.Query("page"), 1)
	pageSize := utils.AtoiDefault(c.Query("page_size"), 0)

	items, total, err := h.whSvc.ListPage(c.Request.Context(), userID(c),
		c.Query("enabled_only") == "true", page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	out := make([]WebhookListItem, 0, len(items))
	for _, w := range items {
		out = append(out, listItem(w))
	}
	ok(c, http.StatusOK, WebhookListResponse{Items: out, Total: total, Page: page, PageSize: pageSize})
}

// GetWebhook godoc
// @ID          getWebhook
// @Summary     Fetch one webhook subscription
// @Tags        Webhooks
// @Produce     json
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Param       id path int true "Webhook ID" example(3)
// @Success     200 {object} domain.Webhook
// @Failure     400 {object} handlers.ErrorResponse "Invalid ID"
// @Failure     404 {object} handlers.ErrorResponse "Webhook not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /webhooks/{id} [get]
func (h *Handlers) GetWebhook(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}

	w, err := h.whSvc.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		failWebhookErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, w)
}

// UpdateWebhook godoc
// @ID          updateWebhook
// @Summary     Update a webhook subscription
// @Description Applies a partial update. Supplied URL and events are re-validated; an empty payload is rejected.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Param       id path int true "Webhook ID" example(3)
// @Param       body body handlers.UpdateWebhookRequest true "Fields to update"
// @Success     200 {object} domain.Webhook
// @Failure     400 {object} handlers.ErrorResponse "Invalid payload"
// @Failure     404 {object} handlers.ErrorResponse "Webhook not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /webhooks/{id} [patch]
func (h *Handlers) UpdateWebhook(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}

	var req UpdateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	w, err := h.whSvc.Update(c.Request.Context(), userID(c), id, services.UpdateWebhookInput{
		Name:          req.Name,
		URL:           req.URL,
		Events:        req.Events,
		Enabled:       req.Enabled,
		RetryAttempts: req.RetryAttempts,
		Timeout:       req.Timeout,
	})
	if err != nil {
		failWebhookErr(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, w)
}

// DeleteWebhook godoc
// @ID          deleteWebhook
// @Summary     Delete a webhook subscription
// @Tags        Webhooks
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Param       id path int true "Webhook ID" example(3)
// @Success     204 {string} string "No Content"
// @Failure     400 {object} handlers.ErrorResponse "Invalid ID"
// @Failure     404 {object} handlers.ErrorResponse "Webhook not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /webhooks/{id} [delete]
func (h *Handlers) DeleteWebhook(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}

	if err := h.whSvc.Delete(c.Request.Context(), userID(c), id); err != nil {
		failWebhookErr(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}

// TestWebhook godoc
// @ID          testWebhook
// @Summary     Send a test delivery to one subscription
// @Description Pushes a synthetic payload through the full delivery pipeline (signing, rate limiting, retries) for one subscription.
// @Tags        Webhooks
// @Produce     json
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Param       id path int true "Webhook ID" example(3)
// @Success     200 {object} webhook.TestResult
// @Failure     400 {object} handlers.ErrorResponse "Invalid ID"
// @Failure     404 {object} handlers.ErrorResponse "Webhook not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /webhooks/{id}/test [post]
func (h *Handlers) TestWebhook(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}

	res, err := h.deliv.TestWebhook(c.Request.Context(), id, userID(c))
	if err != nil {
		failWebhookErr(c, err, ErrCodeDeliveryFailed)
		return
	}
	ok(c, http.StatusOK, res)
}

// WebhookStats godoc
// @ID          webhookStats
// @Summary     Delivery summary for one subscription
// @Description Returns name, URL, configured events and last delivery time. The signing secret is never included.
// @Tags        Webhooks
// @Produce     json
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Param       id path int true "Webhook ID" example(3)
// @Success     200 {object} services.WebhookStats
// @Failure     400 {object} handlers.ErrorResponse "Invalid ID"
// @Failure     404 {object} handlers.ErrorResponse "Webhook not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /webhooks/{id}/stats [get]
func (h *Handlers) WebhookStats(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		return
	}

	stats, err := h.whSvc.Stats(c.Request.Context(), userID(c), id)
	if err != nil {
		failWebhookErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, stats)
}

// SupportedEvents godoc
// @ID          supportedWebhookEvents
// @Summary     List supported event types
// @Tags        Webhooks
// @Produce     json
// @Success     200 {array} string
// @Router      /webhook-events [get]
func (h *Handlers) SupportedEvents(c *gin.Context) {
	ok(c, http.StatusOK, domain.SupportedEvents())
}

// TestEvent godoc
// @ID          testWebhookEvent
// @Summary     Fan out a test delivery for one event type
// @Description Sends a synthetic payload for the event type to every enabled subscription that matches it, and reports per-subscription outcomes.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
// @Param       X-User-ID header string false "User ID (demo header)" example(1)
// @Param       type path string true "Event type" example(reminder.triggered)
// @Param       body body handlers.TestEventRequest false "Optional payload override"
// @Success     200 {object} webhook.EventTestSummary
// @Failure     400 {object} handlers.ErrorResponse "Unsupported event type"
// @Failure     500 {object} handlers.ErrorResponse "Internal server error"
// @Router      /webhooks/events/{type}/test [post]
func (h *Handlers) TestEvent(c *gin.Context) {
	eventType := c.Param("type")
	if !domain.IsSupportedEvent(eventType) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unsupported event type")
		return
	}

	var req TestEventRequest
	// Body is optional; ignore binding errors for an empty body.
	_ = c.ShouldBindJSON(&req)

	summary, err := h.deliv.TestEvent(c.Request.Context(), eventType, req.Data, userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeDeliveryFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, summary)
}

// failWebhookErr maps webhook service errors to HTTP responses; fallback
// is the code used for unclassified errors.
func failWebhookErr(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrWebhookNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "webhook not found")
	case errors.Is(err, services.ErrInvalidURL):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "url must be a valid http(s) URL")
	case errors.Is(err, services.ErrUnsupportedEvents):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrNoUpdates):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no fields to update")
	default:
		fail(c, http.StatusInternalServerError, fallback, err.Error())
	}
}
