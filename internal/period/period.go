// Package period implements the date arithmetic behind recurring payments:
// advancing a billing anchor by whole calendar months and deciding whether a
// calendar day is a payment occurrence.
package period

import (
	"time"

	"github.com/subtrack-app/subtrack-backend/pkg/db/models"
	"github.com/subtrack-app/subtrack-backend/pkg/enums"
)

// DateOnly truncates a timestamp to its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddMonths advances a date by whole calendar months, clamping to the last
// valid day when the target month is shorter (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, months int) time.Time {
	t = DateOnly(t)
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextOccurrenceAfter returns the first date of the progression
// start, start+period, start+2*period, ... strictly after reference. A
// reference that lands exactly on a progression point is stepped over: the
// next payment is always after the reference, even on a billing day. A start
// in the future is returned as-is (the first payment).
//
// Each candidate is computed from the anchor, so a clamped short-month
// occurrence does not shift later occurrences off the anchor day.
func NextOccurrenceAfter(start time.Time, p enums.PaymentPeriod, reference time.Time) time.Time {
	start = DateOnly(start)
	reference = DateOnly(reference)

	step := p.Months()
	candidate := start
	for k := 1; !candidate.After(reference); k++ {
		candidate = AddMonths(start, k*step)
	}
	return candidate
}

// MonthsBetween returns the signed number of whole calendar months from a
// to b, by year/month fields only.
func MonthsBetween(a, b time.Time) int {
	a, b = DateOnly(a), DateOnly(b)
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// OccursOn reports whether date is a payment occurrence for the
// subscription. Dates before the subscription's start never match.
//
// Matching is by day-of-month against the cached next payment date; short
// months are not special-cased, so a day-31 billing anchor never matches
// February. That asymmetry is inherited behavior and is kept as-is.
func OccursOn(sub models.Subscription, date time.Time) bool {
	date = DateOnly(date)
	start := DateOnly(sub.StartDate)
	if date.Before(start) {
		return false
	}

	next := DateOnly(sub.NextPaymentDate)
	switch sub.PaymentPeriod {
	case enums.PaymentPeriodQuarterly:
		if date.Day() != next.Day() {
			return false
		}
		elapsed := MonthsBetween(start, date)
		return elapsed >= 0 && elapsed%3 == 0
	case enums.PaymentPeriodYearly:
		return date.Month() == next.Month() &&
			date.Day() == next.Day() &&
			date.Year() >= start.Year()
	default:
		return date.Day() == next.Day()
	}
}
