// Package domain defines the persistence models for reminders and webhook
// subscriptions. These types are mapped with GORM and form the core data
// layer of the assistant backend.
package domain

import "time"

// RecurrencePattern describes how a reminder's trigger time advances after
// each occurrence. An empty pattern means the reminder is one-shot.
type RecurrencePattern string

// Recurrence patterns supported by the recurrence calculator.
const (
	RecurNone     RecurrencePattern = ""
	RecurDaily    RecurrencePattern = "daily"
	RecurWeekly   RecurrencePattern = "weekly"
	RecurMonthly  RecurrencePattern = "monthly"
	RecurYearly   RecurrencePattern = "yearly"
	RecurCustom   RecurrencePattern = "custom_days"
	RecurWeekdays RecurrencePattern = "weekdays"
	RecurWeekends RecurrencePattern = "weekends"
)

// Priority is the urgency classification of a reminder.
type Priority string

// Priority levels, lowest to highest.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank maps a priority to a sortable integer (urgent highest). Unknown
// values rank below low so malformed rows sort last rather than first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 0
	default:
		return -1
	}
}

// ReminderType is the coarse classification of how a reminder is expected
// to fire. Only time-based evaluation happens in this service; the other
// types are carried for producers that evaluate their own conditions.
type ReminderType string

// Reminder types.
const (
	TypeTimeBased     ReminderType = "time_based"
	TypeRecurring     ReminderType = "recurring"
	TypeLocationBased ReminderType = "location_based"
	TypeEventBased    ReminderType = "event_based"
	TypeCustom        ReminderType = "custom"
	TypeWeather       ReminderType = "weather"
)

// Reminder is a scheduled notification owned by a user. A reminder becomes
// "due" once enabled, not completed, not snoozed, and past its trigger time.
//
// Recurring reminders never terminate on completion: the due-scan advances
// TriggerTime via the recurrence calculator, renewing the occurrence.
// Snoozing defers due evaluation until SnoozeUntil without touching
// TriggerTime.
//
// LinkedItemID/LinkedItemType form a weak reference to another entity
// (note, alarm, calendar event). It is lookup-only; deleting the target
// never cascades here.
type Reminder struct {
	ID     int64 `json:"id"      gorm:"primaryKey;autoIncrement"`
	UserID int64 `json:"user_id" gorm:"not null;index:idx_user_reminders"`

	Title   string       `json:"title"   gorm:"type:varchar(255);not null"`
	Message string       `json:"message" gorm:"type:text"`
	Type    ReminderType `json:"type"    gorm:"type:varchar(32);not null;default:'time_based'"`

	TriggerTime       time.Time         `json:"trigger_time"     gorm:"index"`
	RecurrencePattern RecurrencePattern `json:"recurrence_pattern,omitempty" gorm:"type:varchar(32)"`
	RecurrenceDays    []string          `json:"recurrence_days"  gorm:"serializer:json"`

	Enabled     bool       `json:"enabled"   gorm:"not null"`
	Completed   bool       `json:"completed" gorm:"not null;default:false"`
	Snoozed     bool       `json:"snoozed"   gorm:"not null;default:false"`
	SnoozeUntil *time.Time `json:"snooze_until,omitempty"`

	Priority   Priority `json:"priority"   gorm:"type:varchar(16);not null;default:'medium'"`
	Categories []string `json:"categories" gorm:"serializer:json"`

	LinkedItemID   *int64 `json:"linked_item_id,omitempty"`
	LinkedItemType string `json:"linked_item_type,omitempty" gorm:"type:varchar(32)"`

	TriggerConditions map[string]any `json:"trigger_conditions" gorm:"serializer:json"`

	TriggerCount    int        `json:"trigger_count" gorm:"not null;default:0"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Reminder.
func (Reminder) TableName() string { return "reminders" }

// IsRecurring reports whether the reminder carries a recurrence pattern.
func (r *Reminder) IsRecurring() bool { return r.RecurrencePattern != RecurNone }

// Webhook is a subscriber endpoint registered to receive event
// notifications. Delivery is attempted only while Enabled is true and the
// fired event type is listed in Events (or Events contains the "custom"
// wildcard).
//
// SecretKey is the HMAC-SHA256 signing key provisioned at creation; it is
// returned once on create/get for subscriber setup and must never appear
// in logs. LastTriggeredAt records the most recent successful (sub-400)
// delivery only; failures never update it.
type Webhook struct {
	ID     int64  `json:"id"      gorm:"primaryKey;autoIncrement"`
	UserID int64  `json:"user_id" gorm:"not null;index:idx_user_webhooks"`
	Name   string `json:"name"    gorm:"type:varchar(255);not null"`

	URL       string   `json:"url"        gorm:"type:text;not null"`
	SecretKey string   `json:"secret_key" gorm:"type:varchar(128)"`
	Events    []string `json:"events"     gorm:"serializer:json"`

	Enabled       bool `json:"enabled"        gorm:"not null"`
	RetryAttempts int  `json:"retry_attempts" gorm:"not null;default:3"`
	Timeout       int  `json:"timeout"        gorm:"not null;default:30"` // seconds

	CreatedAt       time.Time  `json:"created_at"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
}

// TableName returns the database table name for Webhook.
func (Webhook) TableName() string { return "webhooks" }

// Subscribes reports whether the webhook should receive eventType, either
// because it is listed explicitly or via the "custom" wildcard.
func (w *Webhook) Subscribes(eventType string) bool {
	for _, e := range w.Events {
		if e == eventType || e == EventCustom {
			return true
		}
	}
	return false
}
