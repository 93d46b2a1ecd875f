package models

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// ReferralRewardRate is the referrer's cut of a referred user's completed
// payment.
const ReferralRewardRate = 0.10

// Plan is a named subscription tier with a fixed price and duration.
// Renewal pricing is the base price less the tier's renewal discount.
type Plan struct {
	Key             string
	Name            string
	PriceSOL        float64
	DurationDays    int
	RenewalDiscount float64 // fraction off PriceSOL when renewing
	Badge           string
}

// Duration returns the subscription window the plan buys.
func (p Plan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// RenewalPriceSOL is the discounted price for an existing subscriber.
func (p Plan) RenewalPriceSOL() float64 {
	return p.PriceSOL * (1 - p.RenewalDiscount)
}

// PriceLamports converts the SOL price to lamports for ledger comparison.
func (p Plan) PriceLamports() uint64 {
	return SOLToLamports(p.PriceSOL)
}

// SOLToLamports rounds a SOL amount to the nearest lamport.
func SOLToLamports(sol float64) uint64 {
	return uint64(math.Round(sol * LamportsPerSOL))
}

// LamportsToSOL converts lamports back to SOL for display and rewards.
func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSOL
}

// The plan catalog. Lifetime uses a 100-year duration rather than a special
// case in the activation path.
var planCatalog = map[string]Plan{
	"trial": {
		Key:             "trial",
		Name:            "Trial Plan",
		PriceSOL:        0.1,
		DurationDays:    1,
		RenewalDiscount: 0,
		Badge:           "NEW",
	},
	"monthly": {
		Key:             "monthly",
		Name:            "Monthly Plan",
		PriceSOL:        1,
		DurationDays:    30,
		RenewalDiscount: 0.10,
	},
	"six_month": {
		Key:             "six_month",
		Name:            "6-Month Plan",
		PriceSOL:        4.5,
		DurationDays:    180,
		RenewalDiscount: 0.10,
		Badge:           "POPULAR",
	},
	"yearly": {
		Key:             "yearly",
		Name:            "Yearly Plan",
		PriceSOL:        8,
		DurationDays:    365,
		RenewalDiscount: 0.10,
		Badge:           "BEST VALUE",
	},
	"lifetime": {
		Key:             "lifetime",
		Name:            "Lifetime Plan",
		PriceSOL:        10,
		DurationDays:    36500,
		RenewalDiscount: 0,
	},
}

// GetPlan looks a plan up by its catalog key.
func GetPlan(key string) (Plan, error) {
	p, ok := planCatalog[key]
	if !ok {
		return Plan{}, fmt.Errorf("unknown plan %q", key)
	}
	return p, nil
}

// AllPlans returns the catalog ordered by price.
func AllPlans() []Plan {
	plans := make([]Plan, 0, len(planCatalog))
	for _, p := range planCatalog {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].PriceSOL < plans[j].PriceSOL })
	return plans
}
