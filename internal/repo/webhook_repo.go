// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Webhook
// model (subscription registry).
//
// Events are persisted JSON-encoded via the GORM json serializer and come
// back deserialized on every read; callers never see the raw column text.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-assistant-backend/internal/domain"
)

// CreateWebhook inserts w and backfills its generated ID and CreatedAt.
func CreateWebhook(ctx context.Context, db *gorm.DB, w *domain.Webhook) error {
	return db.WithContext(ctx).Create(w).Error
}

// GetWebhook fetches a single webhook by ID and owner, or ErrNotFound.
func GetWebhook(ctx context.Context, db *gorm.DB, id, userID int64) (*domain.Webhook, error) {
	var w domain.Webhook
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWebhooks returns all webhooks belonging to userID, oldest first.
// When enabledOnly is set, disabled subscriptions are excluded.
func ListWebhooks(ctx context.Context, db *gorm.DB, userID int64, enabledOnly bool) ([]domain.Webhook, error) {
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if enabledOnly {
		q = q.Where("enabled = ?", true)
	}
	var out []domain.Webhook
	err := q.Order("id asc").Find(&out).Error
	return out, err
}

// CountWebhooks returns the total number of webhooks owned by userID.
func CountWebhooks(ctx context.Context, db *gorm.DB, userID int64, enabledOnly bool) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Webhook{}).Where("user_id = ?", userID)
	if enabledOnly {
		q = q.Where("enabled = ?", true)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// ListWebhooksPage returns a paginated slice of webhooks for userID.
func ListWebhooksPage(ctx context.Context, db *gorm.DB, userID int64, enabledOnly bool, offset, limit int) ([]domain.Webhook, error) {
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if enabledOnly {
		q = q.Where("enabled = ?", true)
	}
	var out []domain.Webhook
	err := q.Order("id asc").Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}

// UpdateWebhookFields applies a partial update to the webhook identified
// by id and owned by userID. The fields map uses column names. Returns
// ErrNotFound when no row matched.
func UpdateWebhookFields(ctx context.Context, db *gorm.DB, id, userID int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := encodeJSONColumns(fields, "events"); err != nil {
		return err
	}
	res := db.WithContext(ctx).
		Model(&domain.Webhook{}).
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

// TouchWebhookTriggered stamps last_triggered_at after a successful
// delivery. Failed deliveries must never call this.
func TouchWebhookTriggered(ctx context.Context, db *gorm.DB, id int64, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Webhook{}).
		Where("id = ?", id).
		Update("last_triggered_at", at).Error
}

// DeleteWebhook hard-deletes a webhook. Returns ErrNotFound when the
// webhook does not exist or is not owned by userID.
func DeleteWebhook(ctx context.Context, db *gorm.DB, id, userID int64) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Webhook{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
