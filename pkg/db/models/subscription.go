package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrack-app/subtrack-backend/pkg/enums"
)

// Subscription is a user's recurring payment. Plan, Price and StartDate
// mirror the open plan-history entry; NextPaymentDate is derived from
// StartDate and PaymentPeriod and is recomputed on load and after mutation,
// never treated as a source of truth.
type Subscription struct {
	ID              string
	UserID          string
	Name            string
	Plan            string
	Price           decimal.Decimal
	Category        enums.Category
	PaymentPeriod   enums.PaymentPeriod
	StartDate       time.Time
	NextPaymentDate time.Time
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
