// Package ledger holds the plan-history rules for a subscription: an ordered,
// non-overlapping sequence of plan segments where only the last segment may
// be open-ended.
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrack-app/subtrack-backend/internal/period"
	"github.com/subtrack-app/subtrack-backend/pkg/db/models"
	pkgerrors "github.com/subtrack-app/subtrack-backend/pkg/errors"
)

// approxDaysPerMonth is the fixed day count used by spend aggregation.
// Whole calendar months are deliberately not used; see TotalSpend.
const approxDaysPerMonth = 30

// Sort returns the entries ordered by start date, oldest first. The input
// slice is not modified.
func Sort(entries []models.PlanHistoryEntry) []models.PlanHistoryEntry {
	sorted := make([]models.PlanHistoryEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartDate.Before(sorted[j].StartDate)
	})
	return sorted
}

// OpenEntry returns the current (open-ended) segment, or nil if every
// segment is closed.
func OpenEntry(entries []models.PlanHistoryEntry) *models.PlanHistoryEntry {
	for i := range entries {
		if entries[i].IsOpen() {
			return &entries[i]
		}
	}
	return nil
}

// EffectivePlanAt returns the segment in effect on the given date: the last
// entry in start order whose interval [start, end) contains it. Dates before
// the first segment yield nil.
func EffectivePlanAt(entries []models.PlanHistoryEntry, date time.Time) *models.PlanHistoryEntry {
	date = period.DateOnly(date)
	sorted := Sort(entries)
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].Contains(date) {
			entry := sorted[i]
			return &entry
		}
	}
	return nil
}

// TotalSpend sums the amount charged across all segments up to asOf, using a
// fixed 30-day month: each segment is charged once at its start and once per
// further 30 elapsed days, capped at the segment end. This approximation
// drifts from true calendar months over long segments and is kept because
// the billing history was always accounted this way.
func TotalSpend(entries []models.PlanHistoryEntry, asOf time.Time) decimal.Decimal {
	asOf = period.DateOnly(asOf)

	total := decimal.Zero
	for _, entry := range entries {
		start := period.DateOnly(entry.StartDate)
		if start.After(asOf) {
			continue
		}

		end := asOf
		if entry.EndDate != nil {
			if closed := period.DateOnly(*entry.EndDate); closed.Before(end) {
				end = closed
			}
		}

		months := period.DaysBetween(start, end) / approxDaysPerMonth
		if months < 1 {
			months = 1
		}
		total = total.Add(entry.Price.Mul(decimal.NewFromInt(int64(months))))
	}
	return total
}

// ValidateUpgrade checks that an upgrade effective date may close the current
// open segment: it must be strictly after that segment's start, so history
// stays totally ordered and a repeated upgrade with the same effective date
// is rejected.
func ValidateUpgrade(current *models.PlanHistoryEntry, effective time.Time) error {
	if current == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "subscription has no open plan segment")
	}
	if !period.DateOnly(effective).After(period.DateOnly(current.StartDate)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "upgrade date must be after the current plan start")
	}
	return nil
}
