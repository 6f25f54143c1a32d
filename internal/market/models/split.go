package models

import (
	"math/bits"

	dErrors "museion/pkg/domain-errors"
)

// FeePct is the marketplace fee routed to the platform treasury on every
// settlement.
const FeePct = 2

// Split is the three-way division of a sale price. By construction
// Royalty + Fee + Proceeds == Price exactly: both percentage cuts round down
// and the remainder accrues to the seller, never lost, never double-counted.
type Split struct {
	Royalty  int64 `json:"royalty"`
	Fee      int64 `json:"fee"`
	Proceeds int64 `json:"proceeds"`
}

// ComputeSplit divides price between creator royalty, marketplace fee, and
// seller proceeds. Returns settlement_failed when the royalty terms leave the
// seller with negative proceeds (royalty + fee over 100%): such terms cannot
// settle atomically and the sale is unexecutable.
func ComputeSplit(price int64, royaltyPct int) (Split, error) {
	if price <= 0 {
		return Split{}, dErrors.New(dErrors.CodeInvalidPrice, "price must be positive")
	}
	if royaltyPct < 0 || royaltyPct > 100 {
		return Split{}, dErrors.New(dErrors.CodeInvalidRoyalty, "royalty percentage must be between 0 and 100")
	}

	royalty := pctFloor(price, royaltyPct)
	fee := pctFloor(price, FeePct)
	proceeds := price - royalty - fee
	if proceeds < 0 {
		return Split{}, dErrors.New(dErrors.CodeSettlementFailed, "royalty and fee exceed the sale price")
	}
	return Split{Royalty: royalty, Fee: fee, Proceeds: proceeds}, nil
}

// pctFloor computes floor(price * pct / 100) through a 128-bit intermediate,
// so price can use the full int64 range without overflow. The divisor always
// exceeds the product's high word (price < 2^63, pct <= 100, so the high word
// is below 64), which Div64 requires.
func pctFloor(price int64, pct int) int64 {
	hi, lo := bits.Mul64(uint64(price), uint64(pct))
	quo, _ := bits.Div64(hi, lo, 100)
	return int64(quo)
}
