package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlanHistoryEntry is one plan segment of a subscription: the interval
// [StartDate, EndDate) during which the plan and price were constant.
// A nil EndDate marks the current (open) segment.
type PlanHistoryEntry struct {
	ID        string
	Plan      string
	Price     decimal.Decimal
	StartDate time.Time
	EndDate   *time.Time
}

// IsOpen reports whether the entry is the current segment.
func (e PlanHistoryEntry) IsOpen() bool {
	return e.EndDate == nil
}

// Contains reports whether date falls inside the segment interval,
// start-inclusive and end-exclusive.
func (e PlanHistoryEntry) Contains(date time.Time) bool {
	if date.Before(e.StartDate) {
		return false
	}
	return e.EndDate == nil || date.Before(*e.EndDate)
}
