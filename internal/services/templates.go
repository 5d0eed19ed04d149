package services

import "github.com/tbourn/go-assistant-backend/internal/domain"

// ReminderTemplate is a named preset from which a reminder can be stamped
// with a caller-supplied trigger time and optional message override.
type ReminderTemplate struct {
	ID       string                   `json:"id"`
	Name     string                   `json:"name"`
	Title    string                   `json:"title"`
	Message  string                   `json:"message"`
	Pattern  domain.RecurrencePattern `json:"recurrence_pattern"`
	Priority domain.Priority          `json:"priority"`
	Category string                   `json:"category"`
}

// reminderTemplates is the fixed catalog of presets.
var reminderTemplates = []ReminderTemplate{
	{
		ID: "daily_medication", Name: "Daily Medication",
		Title: "Take Medication", Message: "Don't forget to take your medication!",
		Pattern: domain.RecurWeekdays, Priority: domain.PriorityHigh, Category: "health",
	},
	{
		ID: "weekly_exercise", Name: "Weekly Exercise",
		Title: "Exercise Time", Message: "Time for your weekly workout!",
		Pattern: domain.RecurWeekly, Priority: domain.PriorityMedium, Category: "fitness",
	},
	{
		ID: "birthday_reminder", Name: "Birthday Reminder",
		Title: "Birthday", Message: "Wish them a happy birthday!",
		Pattern: domain.RecurYearly, Priority: domain.PriorityHigh, Category: "personal",
	},
	{
		ID: "bill_payment", Name: "Bill Payment",
		Title: "Pay Bill", Message: "Reminder to pay your bill",
		Pattern: domain.RecurMonthly, Priority: domain.PriorityHigh, Category: "finance",
	},
	{
		ID: "daily_standup", Name: "Daily Standup",
		Title: "Team Standup", Message: "Time for daily standup meeting!",
		Pattern: domain.RecurWeekdays, Priority: domain.PriorityMedium, Category: "work",
	},
	{
		ID: "water_reminder", Name: "Drink Water",
		Title: "Hydration Reminder", Message: "Time to drink some water!",
		Pattern: domain.RecurDaily, Priority: domain.PriorityLow, Category: "health",
	},
	{
		ID: "study_session", Name: "Study Session",
		Title: "Study Time", Message: "Time to study!",
		Pattern: domain.RecurCustom, Priority: domain.PriorityMedium, Category: "education",
	},
	{
		ID: "sleep_reminder", Name: "Bedtime Reminder",
		Title: "Bedtime", Message: "Time to get some rest!",
		Pattern: domain.RecurDaily, Priority: domain.PriorityMedium, Category: "health",
	},
}

// Templates returns the preset catalog.
func Templates() []ReminderTemplate {
	out := make([]ReminderTemplate, len(reminderTemplates))
	copy(out, reminderTemplates)
	return out
}

// templateByID finds a preset by its identifier.
func templateByID(id string) (ReminderTemplate, bool) {
	for _, t := range reminderTemplates {
		if t.ID == id {
			return t, true
		}
	}
	return ReminderTemplate{}, false
}
