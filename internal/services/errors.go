// Package services defines the business logic for reminders and webhook
// subscriptions. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes is performed
// at the handler layer.
package services

import "errors"

// Reminder-related errors.
var (
	// ErrReminderNotFound indicates that the requested reminder does not
	// exist or is not accessible to the current user.
	ErrReminderNotFound = errors.New("reminder not found")

	// ErrTemplateNotFound is returned when instantiating an unknown
	// reminder template.
	ErrTemplateNotFound = errors.New("reminder template not found")

	// ErrEmptyTitle is returned when a reminder is created without a title.
	ErrEmptyTitle = errors.New("title is empty")
)

// Webhook-related errors.
var (
	// ErrWebhookNotFound indicates that the requested webhook does not
	// exist or is not accessible to the current user.
	ErrWebhookNotFound = errors.New("webhook not found")

	// ErrInvalidURL is returned when a webhook URL is not a valid
	// http/https URL with a host.
	ErrInvalidURL = errors.New("invalid URL format, must be HTTP or HTTPS")

	// ErrUnsupportedEvents is returned when a subscription lists event
	// types outside the closed enumeration. The wrapping error names the
	// offending entries.
	ErrUnsupportedEvents = errors.New("unsupported event types")

	// ErrNoUpdates is returned when an update request carries no fields.
	ErrNoUpdates = errors.New("no fields to update")
)
