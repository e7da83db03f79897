package billing

import "strings"

// BillingCycle is the buyer-selected renewal period.
type BillingCycle string

const (
	CycleMonthly   BillingCycle = "monthly"
	CycleQuarterly BillingCycle = "quarterly"
	CycleYearly    BillingCycle = "yearly"
)

// Cycle multipliers in basis points of the monthly base price.
const (
	bpsScale         = 10000
	monthlyBps       = 10000  // 1 month
	quarterlyBps     = 28500  // 3 months at 5% off
	yearlyBps        = 102000 // 12 months at 15% off
	quarterlyUnits   = 3
	intervalMonth    = "month"
	intervalYear     = "year"
	quarterlyMonths  = 3
	defaultIntervals = 1
)

// ParseBillingCycle accepts the cycle names case-insensitively.
func ParseBillingCycle(raw string) (BillingCycle, error) {
	switch c := BillingCycle(strings.ToLower(strings.TrimSpace(raw))); c {
	case CycleMonthly, CycleQuarterly, CycleYearly:
		return c, nil
	default:
		return "", ErrInvalidBillingCycle
	}
}

// Quote is the priced line item for a billing cycle.
type Quote struct {
	Cycle         BillingCycle
	UnitAmount    int64
	Quantity      int64
	Interval      string
	IntervalCount int64
}

// Total is the amount charged per renewal.
func (q Quote) Total() int64 {
	return q.UnitAmount * q.Quantity
}

// QuoteFor prices a cycle against a monthly base price in cents. Amounts are
// rounded half up to whole cents.
func QuoteFor(cycle BillingCycle, baseCents int64) (Quote, error) {
	q := Quote{Cycle: cycle, Quantity: 1, Interval: intervalMonth, IntervalCount: defaultIntervals}
	var mult int64
	switch cycle {
	case CycleMonthly:
		mult = monthlyBps
	case CycleQuarterly:
		mult = quarterlyBps
		q.Quantity = quarterlyUnits
		q.IntervalCount = quarterlyMonths
	case CycleYearly:
		mult = yearlyBps
		q.Interval = intervalYear
	default:
		return Quote{}, ErrInvalidBillingCycle
	}

	d := int64(bpsScale) * q.Quantity
	q.UnitAmount = (baseCents*mult + d/2) / d
	return q, nil
}
