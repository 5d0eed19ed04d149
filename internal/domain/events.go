// Event type enumeration shared by producers, the webhook registry, and
// the delivery pipeline.
package domain

// Event types deliverable to webhook subscribers. The set is closed:
// subscription validation rejects anything outside it, and the fan-out
// drops unknown event types with a logged warning.
//
// EventCustom doubles as a wildcard on the subscription side (a webhook
// subscribed to "custom" receives every event) and as the channel used by
// diagnostic test deliveries.
const (
	EventAlarmTriggered   = "alarm.triggered"
	EventReminderTrigger  = "reminder.triggered"
	EventCalendarStarting = "calendar.event.starting"
	EventChatMessage      = "chat.message.received"
	EventWeatherAlert     = "weather.alert"
	EventNoteCreated      = "note.created"
	EventNoteUpdated      = "note.updated"
	EventFlashcardReview  = "flashcard.reviewed"
	EventCustom           = "custom"
)

// Reminder lifecycle event names emitted by the reminder engine. Only
// EventReminderTrigger is part of the deliverable enumeration above; the
// rest are best-effort instrumentation that the fan-out discards.
const (
	EventReminderCreated   = "reminder.created"
	EventReminderUpdated   = "reminder.updated"
	EventReminderDeleted   = "reminder.deleted"
	EventReminderSnoozed   = "reminder.snoozed"
	EventReminderCompleted = "reminder.completed"
)

// supportedEvents is the closed set used for validation and fan-out checks.
var supportedEvents = map[string]struct{}{
	EventAlarmTriggered:   {},
	EventReminderTrigger:  {},
	EventCalendarStarting: {},
	EventChatMessage:      {},
	EventWeatherAlert:     {},
	EventNoteCreated:      {},
	EventNoteUpdated:      {},
	EventFlashcardReview:  {},
	EventCustom:           {},
}

// IsSupportedEvent reports whether eventType belongs to the closed
// enumeration of deliverable event types.
func IsSupportedEvent(eventType string) bool {
	_, ok := supportedEvents[eventType]
	return ok
}

// SupportedEvents returns the deliverable event types in a stable order.
func SupportedEvents() []string {
	return []string{
		EventAlarmTriggered,
		EventReminderTrigger,
		EventCalendarStarting,
		EventChatMessage,
		EventWeatherAlert,
		EventNoteCreated,
		EventNoteUpdated,
		EventFlashcardReview,
		EventCustom,
	}
}
