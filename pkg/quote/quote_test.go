package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Initial pump.fun curve: 1.073B tokens (6 decimals) against 30 SOL.
var initialCurve = Reserves{Base: 1_073_000_000_000_000, Quote: 30_000_000_000}

func TestCurveSellNoFee(t *testing.T) {
	q := CurveSell(initialCurve, 10_000_000_000_000, 0, 0)
	// 1e13 * 3e10 / (1.073e15 + 1e13)
	assert.Equal(t, uint64(277_008_310), q.ExpectedOut)
	assert.Equal(t, q.ExpectedOut, q.MinOut)
}

func TestCurveSellFeeAndSlippage(t *testing.T) {
	gross := CurveSell(initialCurve, 10_000_000_000_000, 0, 0).ExpectedOut
	q := CurveSell(initialCurve, 10_000_000_000_000, 100, 500)

	assert.Less(t, q.ExpectedOut, gross)
	assert.InDelta(t, float64(gross)*0.99, float64(q.ExpectedOut), 2)
	assert.Equal(t, ApplySlippage(q.ExpectedOut, 500), q.MinOut)
	assert.Greater(t, q.PriceImpactBps, uint64(0))
}

func TestAmmSellZeroInputs(t *testing.T) {
	assert.Equal(t, Result{}, AmmSell(Reserves{}, 100, 25, 100))
	assert.Equal(t, Result{}, AmmSell(Reserves{Base: 10, Quote: 10}, 0, 25, 100))
}

func TestApplySlippage(t *testing.T) {
	tests := []struct {
		amount, bps, want uint64
	}{
		{1_000_000, 0, 1_000_000},
		{1_000_000, 100, 990_000},
		{1_000_000, 10_000, 0},
		{1_000_000, 20_000, 0},
		{^uint64(0), 1, 18_444_899_399_302_180_659},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ApplySlippage(tt.amount, tt.bps))
	}
}

func TestDeductFeeRoundsUp(t *testing.T) {
	assert.Equal(t, uint64(98), deductFee(99, 1))
	assert.Equal(t, uint64(0), deductFee(5, 10_000))
	assert.Equal(t, uint64(5), deductFee(5, 0))
}
