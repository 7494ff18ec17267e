package jackpot

import (
	"math/big"

	"github.com/holiman/uint256"
)

const bpsDenominator = 10_000

// Escalate returns the price required for the next bid after bidCount bids
// have been accepted in the round. With no bids the price is unchanged. Any
// result is strictly greater than previousPrice; results that do not fit in
// 256 bits fail with ErrPriceOverflow instead of wrapping.
func Escalate(previousPrice *big.Int, bidCount uint64, growth PriceGrowth) (*big.Int, error) {
	current := cloneBigInt(previousPrice)
	if current.Sign() < 0 {
		return nil, ErrPriceOverflow
	}
	prev, overflow := uint256.FromBig(current)
	if overflow {
		return nil, ErrPriceOverflow
	}
	if bidCount == 0 {
		return prev.ToBig(), nil
	}

	next := new(uint256.Int).Set(prev)
	if growth.FactorBps > 0 {
		scaled, overflow := new(uint256.Int).MulOverflow(prev, uint256.NewInt(uint64(growth.FactorBps)))
		if overflow {
			return nil, ErrPriceOverflow
		}
		next = scaled.Div(scaled, uint256.NewInt(bpsDenominator))
	}
	if growth.Step != nil && growth.Step.Sign() > 0 {
		step, overflow := uint256.FromBig(growth.Step)
		if overflow {
			return nil, ErrPriceOverflow
		}
		if _, overflow := next.AddOverflow(next, step); overflow {
			return nil, ErrPriceOverflow
		}
	}
	if next.Cmp(prev) <= 0 {
		bumped, overflow := new(uint256.Int).AddOverflow(prev, uint256.NewInt(1))
		if overflow {
			return nil, ErrPriceOverflow
		}
		next = bumped
	}
	return next.ToBig(), nil
}

// validateGrowth rejects laws that shrink the price or could never raise a
// price of one unit, which would otherwise only advance through the +1 floor.
func validateGrowth(growth PriceGrowth) error {
	if growth.Step != nil && growth.Step.Sign() < 0 {
		return invalidConfig("growth step must not be negative")
	}
	if _, overflow := uint256.FromBig(cloneBigInt(growth.Step)); overflow {
		return invalidConfig("growth step exceeds 256 bits")
	}
	if growth.FactorBps > 0 && growth.FactorBps < bpsDenominator {
		return invalidConfig("growth factor %d bps would shrink the price", growth.FactorBps)
	}
	hasStep := growth.Step != nil && growth.Step.Sign() > 0
	if !hasStep && growth.FactorBps <= bpsDenominator {
		return invalidConfig("growth needs a positive step or a factor above %d bps", bpsDenominator)
	}
	return nil
}
