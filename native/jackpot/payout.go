package jackpot

import "math/big"

// Split is the division of a settled pot.
type Split struct {
	CharityCut   *big.Int
	WinnerPayout *big.Int
	NextSeed     *big.Int
}

// SplitPot divides pot between charity, winner and the next round's seed.
// The three parts always sum to pot; rounding remainders stay in the seed.
func SplitPot(pot *big.Int, charityBps uint32) Split {
	total := cloneBigInt(pot)
	if total.Sign() <= 0 {
		return Split{CharityCut: big.NewInt(0), WinnerPayout: big.NewInt(0), NextSeed: big.NewInt(0)}
	}
	charity := mulBps(total, charityBps)
	remainder := new(big.Int).Sub(total, charity)
	winner := new(big.Int).Rsh(remainder, 1)
	seed := new(big.Int).Sub(remainder, winner)
	return Split{CharityCut: charity, WinnerPayout: winner, NextSeed: seed}
}

// CharityAmount is floor(pot * charityBps / 10000).
func CharityAmount(pot *big.Int, charityBps uint32) *big.Int {
	return mulBps(cloneBigInt(pot), charityBps)
}

// SplitDonation returns the pot share and reserve share of a donation.
func SplitDonation(amount *big.Int, potBps uint32) (toPot, toReserve *big.Int) {
	total := cloneBigInt(amount)
	toPot = mulBps(total, potBps)
	toReserve = new(big.Int).Sub(total, toPot)
	return toPot, toReserve
}

// RewardFor returns the reward-token amount minted for a charge.
func RewardFor(charge *big.Int, rewardBps uint32) *big.Int {
	return mulBps(cloneBigInt(charge), rewardBps)
}

func mulBps(v *big.Int, bps uint32) *big.Int {
	if v.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(v, big.NewInt(int64(bps)))
	return out.Quo(out, big.NewInt(bpsDenominator))
}
