package billing

import (
	"errors"
	"testing"
)

func TestParseBillingCycle(t *testing.T) {
	tests := []struct {
		in      string
		want    BillingCycle
		wantErr bool
	}{
		{in: "monthly", want: CycleMonthly},
		{in: "Quarterly", want: CycleQuarterly},
		{in: " YEARLY ", want: CycleYearly},
		{in: "weekly", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseBillingCycle(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidBillingCycle) {
				t.Fatalf("ParseBillingCycle(%q) error = %v, want ErrInvalidBillingCycle", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseBillingCycle(%q) = %q, %v, want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestQuoteFor(t *testing.T) {
	tests := []struct {
		cycle         BillingCycle
		base          int64
		unit          int64
		quantity      int64
		interval      string
		intervalCount int64
	}{
		{cycle: CycleMonthly, base: 1000, unit: 1000, quantity: 1, interval: "month", intervalCount: 1},
		{cycle: CycleQuarterly, base: 1000, unit: 950, quantity: 3, interval: "month", intervalCount: 3},
		{cycle: CycleYearly, base: 1000, unit: 10200, quantity: 1, interval: "year", intervalCount: 1},
		{cycle: CycleQuarterly, base: 999, unit: 949, quantity: 3, interval: "month", intervalCount: 3},
		{cycle: CycleYearly, base: 999, unit: 10190, quantity: 1, interval: "year", intervalCount: 1},
	}

	for _, tt := range tests {
		q, err := QuoteFor(tt.cycle, tt.base)
		if err != nil {
			t.Fatalf("QuoteFor(%s, %d) error: %v", tt.cycle, tt.base, err)
		}
		if q.UnitAmount != tt.unit || q.Quantity != tt.quantity || q.Interval != tt.interval || q.IntervalCount != tt.intervalCount {
			t.Fatalf("QuoteFor(%s, %d) = %+v", tt.cycle, tt.base, q)
		}
	}
}

func TestQuoteTotalsMatchDiscounts(t *testing.T) {
	for _, base := range []int64{500, 1000, 2000, 4900} {
		yearly, _ := QuoteFor(CycleYearly, base)
		if want := base * 12 * 85 / 100; yearly.Total() != want {
			t.Fatalf("yearly total for %d = %d, want %d", base, yearly.Total(), want)
		}
		quarterly, _ := QuoteFor(CycleQuarterly, base)
		if want := base * 3 * 95 / 100; quarterly.Total() != want {
			t.Fatalf("quarterly total for %d = %d, want %d", base, quarterly.Total(), want)
		}
	}
}

func TestQuoteForRejectsUnknownCycle(t *testing.T) {
	if _, err := QuoteFor(BillingCycle("daily"), 1000); !errors.Is(err, ErrInvalidBillingCycle) {
		t.Fatalf("expected ErrInvalidBillingCycle, got %v", err)
	}
}
