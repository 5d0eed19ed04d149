// Package recurrence computes the next trigger time for recurring
// reminders. It is pure calendar arithmetic: no I/O, no clock reads, fully
// unit-testable by feeding fixed input timestamps.
//
// The monthly and yearly patterns are deliberately approximate rather than
// calendar-exact: when the same day does not exist in the target month
// (e.g. the 31st in a 30-day month) the pattern falls back to a flat +30
// days, and an invalid target date for yearly (Feb 29 on a non-leap year)
// falls back to +365 days. Callers relying on exact month-end semantics
// should anchor reminders on days 1-28.
package recurrence

import (
	"strconv"
	"time"

	"github.com/tbourn/go-assistant-backend/internal/domain"
)

// Next returns the trigger time that follows current for the given
// pattern. auxDays is only consulted for the custom-interval pattern,
// where its first element is the interval in days (default 1 when absent
// or unparseable). The second return value is false when the pattern is
// empty or unrecognized; callers treat such reminders as non-recurring.
func Next(current time.Time, pattern domain.RecurrencePattern, auxDays []string) (time.Time, bool) {
	switch pattern {
	case domain.RecurDaily:
		return current.AddDate(0, 0, 1), true

	case domain.RecurWeekly:
		return current.AddDate(0, 0, 7), true

	case domain.RecurMonthly:
		return nextMonth(current), true

	case domain.RecurYearly:
		return nextYear(current), true

	case domain.RecurCustom:
		return current.AddDate(0, 0, customInterval(auxDays)), true

	case domain.RecurWeekdays:
		next := current.AddDate(0, 0, 1)
		for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
			next = next.AddDate(0, 0, 1)
		}
		return next, true

	case domain.RecurWeekends:
		next := current.AddDate(0, 0, 1)
		for next.Weekday() != time.Saturday && next.Weekday() != time.Sunday {
			next = next.AddDate(0, 0, 1)
		}
		return next, true

	default:
		return time.Time{}, false
	}
}

// nextMonth moves current to the same day of the following month. Go's
// time.Date normalizes day overflow (Jan 31 + 1 month would become Mar 3),
// so the candidate is only accepted when the day survives; otherwise the
// documented +30 day fallback applies.
func nextMonth(current time.Time) time.Time {
	y, m, d := current.Date()
	candidate := time.Date(y, m+1, d,
		current.Hour(), current.Minute(), current.Second(), current.Nanosecond(),
		current.Location())
	if candidate.Day() != d {
		return current.AddDate(0, 0, 30)
	}
	return candidate
}

// nextYear moves current to the same date next year, falling back to +365
// days when the date does not exist (leap day).
func nextYear(current time.Time) time.Time {
	y, m, d := current.Date()
	candidate := time.Date(y+1, m, d,
		current.Hour(), current.Minute(), current.Second(), current.Nanosecond(),
		current.Location())
	if candidate.Day() != d || candidate.Month() != m {
		return current.AddDate(0, 0, 365)
	}
	return candidate
}

// customInterval extracts the day interval from the auxiliary list.
func customInterval(auxDays []string) int {
	if len(auxDays) == 0 {
		return 1
	}
	n, err := strconv.Atoi(auxDays[0])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
