// Package services – WebhookService
//
// This file implements the webhook subscription registry: CRUD with URL
// and event-list validation, secret provisioning, and read-only delivery
// stats. The registry never performs deliveries itself; that is the
// dispatcher's job.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-assistant-backend/internal/domain"
	"github.com/tbourn/go-assistant-backend/internal/webhook"
)

// WebhookRepo defines the repository contract required by WebhookService.
type WebhookRepo interface {
	Create(ctx context.Context, db *gorm.DB, w *domain.Webhook) error
	Get(ctx context.Context, db *gorm.DB, id, userID int64) (*domain.Webhook, error)
	List(ctx context.Context, db *gorm.DB, userID int64, enabledOnly bool) ([]domain.Webhook, error)
	Count(ctx context.Context, db *gorm.DB, userID int64, enabledOnly bool) (int64, error)
	ListPage(ctx context.Context, db *gorm.DB, userID int64, enabledOnly bool, offset, limit int) ([]domain.Webhook, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id, userID int64, fields map[string]any) error
	Delete(ctx context.Context, db *gorm.DB, id, userID int64) error
}

// WebhookService manages webhook subscriptions.
type WebhookService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the webhook repository used by this service.
	Repo WebhookRepo

	// Policy defaults applied when a subscription omits them.
	DefaultRetryAttempts int
	DefaultTimeout       int // seconds
}

// NewWebhookService constructs a WebhookService with the stock delivery
// policy defaults (3 retries, 30s timeout).
func NewWebhookService(db *gorm.DB, repo WebhookRepo) *WebhookService {
	return &WebhookService{
		DB:                   db,
		Repo:                 repo,
		DefaultRetryAttempts: webhook.DefaultRetryAttempts,
		DefaultTimeout:       webhook.DefaultTimeout,
	}
}

// ValidateURL reports whether raw is an absolute http/https URL with a
// non-empty host.
func ValidateURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// validateEvents checks every entry against the closed enumeration and
// returns the offenders.
func validateEvents(events []string) []string {
	var invalid []string
	for _, e := range events {
		if !domain.IsSupportedEvent(e) {
			invalid = append(invalid, e)
		}
	}
	return invalid
}

// CreateWebhookInput carries the fields accepted at creation. An empty
// SecretKey triggers auto-generation; zero RetryAttempts/Timeout take the
// service defaults.
type CreateWebhookInput struct {
	Name          string
	URL           string
	Events        []string
	Enabled       *bool
	SecretKey     string
	RetryAttempts int
	Timeout       int
}

// Create validates and inserts a new subscription. URL and events are
// validated up front; a fresh 32-byte hex secret is provisioned when none
// is supplied.
func (s *WebhookService) Create(ctx context.Context, userID int64, in CreateWebhookInput) (*domain.Webhook, error) {
	if !ValidateURL(in.URL) {
		return nil, ErrInvalidURL
	}
	if invalid := validateEvents(in.Events); len(invalid) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvents, strings.Join(invalid, ", "))
	}

	secret := in.SecretKey
	if secret == "" {
		var err error
		if secret, err = webhook.GenerateSecret(); err != nil {
			return nil, err
		}
	}
	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}
	retries := in.RetryAttempts
	if retries <= 0 {
		retries = s.DefaultRetryAttempts
	}
	timeout := in.Timeout
	if timeout <= 0 {
		timeout = s.DefaultTimeout
	}

	w := &domain.Webhook{
		UserID:        userID,
		Name:          in.Name,
		URL:           in.URL,
		SecretKey:     secret,
		Events:        in.Events,
		Enabled:       enabled,
		RetryAttempts: retries,
		Timeout:       timeout,
	}
	if err := s.Repo.Create(ctx, s.DB, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Get fetches a single subscription, or ErrWebhookNotFound.
func (s *WebhookService) Get(ctx context.Context, userID, id int64) (*domain.Webhook, error) {
	w, err := s.Repo.Get(ctx, s.DB, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWebhookNotFound
	}
	return w, err
}

// List returns the user's subscriptions, optionally only enabled ones.
func (s *WebhookService) List(ctx context.Context, userID int64, enabledOnly bool) ([]domain.Webhook, error) {
	return s.Repo.List(ctx, s.DB, userID, enabledOnly)
}

// ListPage returns one page of the user's subscriptions plus the total
// matching count. A non-positive pageSize disables pagination and returns
// the full set.
func (s *WebhookService) ListPage(ctx context.Context, userID int64, enabledOnly bool, page, pageSize int) ([]domain.Webhook, int64, error) {
	total, err := s.Repo.Count(ctx, s.DB, userID, enabledOnly)
	if err != nil {
		return nil, 0, err
	}
	if pageSize <= 0 {
		items, err := s.Repo.List(ctx, s.DB, userID, enabledOnly)
		return items, total, err
	}
	if page < 1 {
		page = 1
	}
	items, err := s.Repo.ListPage(ctx, s.DB, userID, enabledOnly, (page-1)*pageSize, pageSize)
	return items, total, err
}

// UpdateWebhookInput carries optional fields for partial updates. URL and
// Events are re-validated only when supplied.
type UpdateWebhookInput struct {
	Name          *string
	URL           *string
	Events        []string
	Enabled       *bool
	RetryAttempts *int
	Timeout       *int
}

// Update applies a partial update after re-validating any supplied URL or
// event list. An empty input returns ErrNoUpdates.
func (s *WebhookService) Update(ctx context.Context, userID, id int64, in UpdateWebhookInput) (*domain.Webhook, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.URL != nil {
		if !ValidateURL(*in.URL) {
			return nil, ErrInvalidURL
		}
		fields["url"] = *in.URL
	}
	if in.Events != nil {
		if invalid := validateEvents(in.Events); len(invalid) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvents, strings.Join(invalid, ", "))
		}
		fields["events"] = in.Events
	}
	if in.Enabled != nil {
		fields["enabled"] = *in.Enabled
	}
	if in.RetryAttempts != nil {
		fields["retry_attempts"] = *in.RetryAttempts
	}
	if in.Timeout != nil {
		fields["timeout"] = *in.Timeout
	}
	if len(fields) == 0 {
		return nil, ErrNoUpdates
	}

	if err := s.Repo.UpdateFields(ctx, s.DB, id, userID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWebhookNotFound
		}
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// Delete removes a subscription.
func (s *WebhookService) Delete(ctx context.Context, userID, id int64) error {
	err := s.Repo.Delete(ctx, s.DB, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrWebhookNotFound
	}
	return err
}

// WebhookStats is the read-only delivery summary for one subscription.
// It intentionally omits the secret.
type WebhookStats struct {
	WebhookID        int64      `json:"webhook_id"`
	Name             string     `json:"name"`
	URL              string     `json:"url"`
	Enabled          bool       `json:"enabled"`
	ConfiguredEvents []string   `json:"configured_events"`
	LastTriggeredAt  *time.Time `json:"last_triggered_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Stats returns the delivery summary for one subscription.
func (s *WebhookService) Stats(ctx context.Context, userID, id int64) (*WebhookStats, error) {
	w, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return &WebhookStats{
		WebhookID:        w.ID,
		Name:             w.Name,
		URL:              w.URL,
		Enabled:          w.Enabled,
		ConfiguredEvents: w.Events,
		LastTriggeredAt:  w.LastTriggeredAt,
		CreatedAt:        w.CreatedAt,
	}, nil
}
