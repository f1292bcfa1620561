package enums

import "fmt"

// PaymentPeriod defines the billing cadence for a subscription.
type PaymentPeriod string

const (
	PaymentPeriodMonthly   PaymentPeriod = "MONTHLY"
	PaymentPeriodQuarterly PaymentPeriod = "QUARTERLY"
	PaymentPeriodYearly    PaymentPeriod = "YEARLY"
)

var validPaymentPeriods = []PaymentPeriod{
	PaymentPeriodMonthly,
	PaymentPeriodQuarterly,
	PaymentPeriodYearly,
}

// String implements fmt.Stringer.
func (p PaymentPeriod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentPeriod.
func (p PaymentPeriod) IsValid() bool {
	for _, candidate := range validPaymentPeriods {
		if candidate == p {
			return true
		}
	}
	return false
}

// Months returns the fixed calendar-month step between occurrences.
func (p PaymentPeriod) Months() int {
	switch p {
	case PaymentPeriodQuarterly:
		return 3
	case PaymentPeriodYearly:
		return 12
	default:
		return 1
	}
}

// ParsePaymentPeriod converts raw input into a PaymentPeriod.
func ParsePaymentPeriod(value string) (PaymentPeriod, error) {
	for _, candidate := range validPaymentPeriods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment period %q", value)
}
