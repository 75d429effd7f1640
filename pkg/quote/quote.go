// Package quote prices sells against pump.fun bonding curves and pump AMM
// pools from decoded reserves.
//
// Quotes are estimates: fees follow the basis points recorded on chain at
// fetch time and the price may move before the sell lands, which is what the
// slippage bound on MinOut is for.
//
// Example usage:
//
//	q := quote.CurveSell(quote.Reserves{Base: vToken, Quote: vSol}, tokens, 100, 500)
//	fmt.Printf("Expected SOL: %d (min %d)\n", q.ExpectedOut, q.MinOut)
package quote

import (
	"math/big"
)

// BasisPoints is the denominator of every fee and slippage value.
const BasisPoints = 10_000

// Reserves of a constant-product market. Base is the token, Quote is SOL.
type Reserves struct {
	Base  uint64
	Quote uint64
}

// Result contains the result of a price quote.
type Result struct {
	// ExpectedOut is the estimated lamports received, after fees.
	ExpectedOut uint64

	// MinOut is ExpectedOut with slippage applied.
	MinOut uint64

	// PriceImpactBps is how far the execution price falls below spot.
	PriceImpactBps uint64

	// SpotPrice is the current price (lamports per base unit, scaled by 1e9).
	SpotPrice uint64

	// ExecutionPrice is the effective price of this trade (scaled by 1e9).
	ExecutionPrice uint64
}

// CurveSell quotes selling tokenIn on a bonding curve with the given virtual
// reserves. feeBps is the protocol plus creator fee taken from the SOL out.
func CurveSell(virtual Reserves, tokenIn, feeBps, slippageBps uint64) Result {
	return sell(virtual, tokenIn, feeBps, slippageBps)
}

// AmmSell quotes selling baseIn into a pool holding reserves. feeBps is the
// sum of the LP, protocol and coin creator fees.
func AmmSell(reserves Reserves, baseIn, feeBps, slippageBps uint64) Result {
	return sell(reserves, baseIn, feeBps, slippageBps)
}

func sell(r Reserves, baseIn, feeBps, slippageBps uint64) Result {
	if baseIn == 0 || r.Base == 0 || r.Quote == 0 {
		return Result{}
	}
	gross := constantProductOut(baseIn, r.Base, r.Quote)
	out := deductFee(gross, feeBps)

	spot, exec, impact := priceMetrics(r, out, baseIn)
	return Result{
		ExpectedOut:    out,
		MinOut:         ApplySlippage(out, slippageBps),
		PriceImpactBps: impact,
		SpotPrice:      spot,
		ExecutionPrice: exec,
	}
}

// constantProductOut returns in*outReserve/(inReserve+in).
func constantProductOut(in, inReserve, outReserve uint64) uint64 {
	num := new(big.Int).Mul(new(big.Int).SetUint64(in), new(big.Int).SetUint64(outReserve))
	den := new(big.Int).Add(new(big.Int).SetUint64(inReserve), new(big.Int).SetUint64(in))
	return num.Div(num, den).Uint64()
}

// deductFee removes feeBps from amount, rounding the fee up as the programs do.
func deductFee(amount, feeBps uint64) uint64 {
	if feeBps == 0 {
		return amount
	}
	if feeBps >= BasisPoints {
		return 0
	}
	fee := new(big.Int).Mul(new(big.Int).SetUint64(amount), new(big.Int).SetUint64(feeBps))
	fee.Add(fee, big.NewInt(BasisPoints-1))
	fee.Div(fee, big.NewInt(BasisPoints))
	if fee.Uint64() >= amount {
		return 0
	}
	return amount - fee.Uint64()
}

// ApplySlippage lowers amount by slippageBps.
func ApplySlippage(amount, slippageBps uint64) uint64 {
	if slippageBps >= BasisPoints {
		return 0
	}
	v := new(big.Int).Mul(new(big.Int).SetUint64(amount), new(big.Int).SetUint64(BasisPoints-slippageBps))
	return v.Div(v, big.NewInt(BasisPoints)).Uint64()
}

func priceMetrics(r Reserves, quoteAmount, baseAmount uint64) (spotPrice, execPrice, impactBps uint64) {
	if r.Base == 0 || baseAmount == 0 {
		return 0, 0, 0
	}

	spot := new(big.Int).SetUint64(r.Quote)
	spot.Mul(spot, big.NewInt(1e9))
	spot.Div(spot, new(big.Int).SetUint64(r.Base))
	spotPrice = spot.Uint64()

	exec := new(big.Int).SetUint64(quoteAmount)
	exec.Mul(exec, big.NewInt(1e9))
	exec.Div(exec, new(big.Int).SetUint64(baseAmount))
	execPrice = exec.Uint64()

	if spotPrice == 0 || execPrice >= spotPrice {
		return spotPrice, execPrice, 0
	}
	diff := new(big.Int).SetUint64(spotPrice - execPrice)
	diff.Mul(diff, big.NewInt(BasisPoints))
	diff.Div(diff, new(big.Int).SetUint64(spotPrice))
	return spotPrice, execPrice, diff.Uint64()
}
