package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrack-app/subtrack-backend/internal/ledger"
	"github.com/subtrack-app/subtrack-backend/internal/period"
	"github.com/subtrack-app/subtrack-backend/pkg/db/models"
)

// MonthTotal is one point of the spending trend: the calendar month (first
// day, UTC) and the summed plan prices effective at that month's end.
type MonthTotal struct {
	Month time.Time       `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// PaymentsOn returns the active subscriptions with a payment occurrence on
// the given calendar date.
func PaymentsOn(subs []models.Subscription, date time.Time) []models.Subscription {
	var out []models.Subscription
	for _, sub := range subs {
		if !sub.IsActive {
			continue
		}
		if period.OccursOn(sub, date) {
			out = append(out, sub)
		}
	}
	return out
}

// MonthlyTotal sums the current price of every active subscription. Prices
// are summed as stored: quarterly and yearly subscriptions contribute their
// full period price, not a per-month share.
func MonthlyTotal(subs []models.Subscription) decimal.Decimal {
	total := decimal.Zero
	for _, sub := range subs {
		if !sub.IsActive {
			continue
		}
		total = total.Add(sub.Price)
	}
	return total
}

// Upcoming returns the active subscription with the earliest next payment
// date, or nil when there is none.
func Upcoming(subs []models.Subscription) *models.Subscription {
	var best *models.Subscription
	for i := range subs {
		if !subs[i].IsActive {
			continue
		}
		if best == nil || subs[i].NextPaymentDate.Before(best.NextPaymentDate) {
			best = &subs[i]
		}
	}
	if best == nil {
		return nil
	}
	clone := *best
	return &clone
}

// MonthlyTrend computes the spending total for each of the trailing
// monthsBack calendar months ending with the reference month, oldest first.
// A subscription contributes the price of the plan effective on the last
// day of each month; ledgers not yet started by then contribute nothing.
func MonthlyTrend(ledgers map[string][]models.PlanHistoryEntry, reference time.Time, monthsBack int) []MonthTotal {
	if monthsBack <= 0 {
		return nil
	}

	ref := period.DateOnly(reference)
	out := make([]MonthTotal, 0, monthsBack)
	for i := monthsBack - 1; i >= 0; i-- {
		monthStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		monthEnd := monthStart.AddDate(0, 1, -1)

		total := decimal.Zero
		for _, entries := range ledgers {
			if entry := ledger.EffectivePlanAt(entries, monthEnd); entry != nil {
				total = total.Add(entry.Price)
			}
		}
		out = append(out, MonthTotal{Month: monthStart, Total: total})
	}
	return out
}
