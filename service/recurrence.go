package service

import (
	"time"

	"profitpulse/domain"
)

// NextDueDate applies one step of the recurrence rule to current. Rules that
// do not repeat, including unknown values, leave the date unchanged.
func NextDueDate(current time.Time, recurrence domain.Recurrence) time.Time {
	switch recurrence {
	case domain.RecurrenceDaily:
		return current.AddDate(0, 0, 1)
	case domain.RecurrenceWeekly:
		return current.AddDate(0, 0, 7)
	case domain.RecurrenceFourWeek:
		return current.AddDate(0, 0, 28)
	case domain.RecurrenceMonthly:
		return addMonths(current, 1)
	default:
		return current
	}
}

// MaterializeDue returns a new instance for every recurring transaction whose
// next due date falls on today's calendar day. The instance is a copy of its
// template dated today, with the due date advanced one step and a fresh id
// from newID. The input slice is not modified.
func MaterializeDue(
	transactions []domain.Transaction,
	today time.Time,
	newID func() string,
) []domain.Transaction {

	created := []domain.Transaction{}
	for _, tx := range transactions {
		if !tx.IsRecurring || tx.NextDueDate == nil {
			continue
		}
		if !sameDay(*tx.NextDueDate, today) {
			continue
		}

		next := NextDueDate(today, tx.Recurrence)
		paid := today

		instance := tx
		instance.ID = newID()
		instance.Date = today
		instance.NextDueDate = &next
		instance.LastPaidDate = &paid
		created = append(created, instance)
	}
	return created
}

// sameDay compares calendar dates in b's location.
func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// addMonths moves t forward n calendar months. When the target month is
// shorter, the day is clamped to its last day (Jan 31 + 1 month = Feb 28/29)
// instead of overflowing into the following month.
func addMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	firstOfTarget := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	lastDay := daysIn(firstOfTarget.Year(), firstOfTarget.Month(), t.Location())
	if day > lastDay {
		day = lastDay
	}

	return time.Date(
		firstOfTarget.Year(), firstOfTarget.Month(), day,
		hour, minute, sec, t.Nanosecond(), t.Location(),
	)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
