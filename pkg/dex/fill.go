package dex

import "math/big"

// MatchedFillResults is the outcome of matching orderA against orderB.
type MatchedFillResults struct {
	// SellFilledA is the amount of orderA's sell asset moved to
	// orderB's owner.
	SellFilledA *big.Int
	// SellFilledB is the amount of orderB's sell asset moved to
	// orderA's owner.
	SellFilledB *big.Int
	// FeeA and FeeB are the volume fees owed by each side, in the
	// side's sell asset, on top of the traded amount.
	FeeA *big.Int
	FeeB *big.Int
}

// ProfitableSpread reports whether a's price is at least as good for b
// as b demands: a.sell * b.sell >= a.buy * b.buy.
func ProfitableSpread(a, b *Order) bool {
	l := new(big.Int).Mul(a.SellAmount, b.SellAmount)
	r := new(big.Int).Mul(a.BuyAmount, b.BuyAmount)
	return l.Cmp(r) >= 0
}

// mulDiv returns x * y / z truncated toward zero.
func mulDiv(x, y, z *big.Int) *big.Int {
	r := new(big.Int).Mul(x, y)
	return r.Quo(r, z)
}

// CalculateFill computes how much each side of a match transfers. The
// trade executes at a's rate (a.sell / a.buy); any spread left by b's
// limit accrues to b.
//
// a and b must be sanitized, trade the same pair and have nonzero
// amounts; filledA and filledB are their current ledger fills.
func CalculateFill(a, b *Order, filledA, filledB *big.Int) MatchedFillResults {
	remainingBuyA := new(big.Int).Sub(a.BuyAmount, filledA)
	remainingSellA := mulDiv(a.SellAmount, remainingBuyA, a.BuyAmount)
	remainingBuyB := new(big.Int).Sub(b.BuyAmount, filledB)
	remainingSellB := mulDiv(b.SellAmount, remainingBuyB, b.BuyAmount)

	var r MatchedFillResults
	if remainingSellB.Cmp(remainingBuyA) >= 0 {
		// a is filled completely
		r.SellFilledA = remainingSellA
		r.SellFilledB = remainingBuyA
	} else {
		r.SellFilledB = remainingSellB
		r.SellFilledA = mulDiv(remainingSellB, a.SellAmount, a.BuyAmount)
	}

	r.FeeA = mulDiv(a.MakerVolumeFee, r.SellFilledA, a.SellAmount)
	r.FeeB = mulDiv(b.TakerVolumeFee, r.SellFilledB, b.SellAmount)
	return r
}
