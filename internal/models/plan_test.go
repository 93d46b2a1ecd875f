package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlan(t *testing.T) {
	p, err := GetPlan("monthly")
	require.NoError(t, err)
	assert.Equal(t, "Monthly Plan", p.Name)
	assert.Equal(t, 1.0, p.PriceSOL)
	assert.Equal(t, 30, p.DurationDays)

	_, err = GetPlan("weekly")
	assert.Error(t, err)
}

func TestAllPlansOrderedByPrice(t *testing.T) {
	plans := AllPlans()
	require.Len(t, plans, 5)
	for i := 1; i < len(plans); i++ {
		assert.LessOrEqual(t, plans[i-1].PriceSOL, plans[i].PriceSOL)
	}
	assert.Equal(t, "trial", plans[0].Key)
	assert.Equal(t, "lifetime", plans[len(plans)-1].Key)
}

func TestRenewalPrice(t *testing.T) {
	p, err := GetPlan("yearly")
	require.NoError(t, err)
	assert.InDelta(t, 7.2, p.RenewalPriceSOL(), 1e-9)

	trial, err := GetPlan("trial")
	require.NoError(t, err)
	assert.Equal(t, trial.PriceSOL, trial.RenewalPriceSOL())
}

func TestLamportsConversion(t *testing.T) {
	tests := []struct {
		sol      float64
		lamports uint64
	}{
		{1, 1_000_000_000},
		{0.1, 100_000_000},
		{4.5, 4_500_000_000},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.lamports, SOLToLamports(tt.sol))
		assert.InDelta(t, tt.sol, LamportsToSOL(tt.lamports), 1e-12)
	}
}

func TestPlanPriceLamports(t *testing.T) {
	p, err := GetPlan("six_month")
	require.NoError(t, err)
	assert.Equal(t, uint64(4_500_000_000), p.PriceLamports())
}
