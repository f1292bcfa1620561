package subscriptions

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrack-app/subtrack-backend/pkg/enums"
)

// CreateInput captures the data required to register a subscription.
type CreateInput struct {
	Name          string
	Plan          string
	Price         decimal.Decimal
	Category      enums.Category
	PaymentPeriod enums.PaymentPeriod
	StartDate     time.Time
}

// EditInput is a cosmetic patch. Nil fields are left untouched; plan and
// price never change here, that is what Upgrade is for.
type EditInput struct {
	Name          *string
	Category      *enums.Category
	PaymentPeriod *enums.PaymentPeriod
	IsActive      *bool
}

// UpgradeInput switches the subscription to a new plan segment starting at
// EffectiveDate.
type UpgradeInput struct {
	Plan          string
	Price         decimal.Decimal
	EffectiveDate time.Time
}
