package jackpot

import (
	"errors"
	"math"
	"math/big"
	"testing"
	"time"
)

func TestEscalateStrictlyIncreases(t *testing.T) {
	laws := []PriceGrowth{
		{Step: big.NewInt(100)},
		{FactorBps: 10_100},
		{FactorBps: 10_001},
		{Step: big.NewInt(1), FactorBps: 9_000},
	}
	for _, law := range laws {
		price := big.NewInt(1)
		for bid := uint64(1); bid <= 200; bid++ {
			next, err := Escalate(price, bid, law)
			if err != nil {
				t.Fatalf("escalate: %v", err)
			}
			if next.Cmp(price) <= 0 {
				t.Fatalf("law %+v: price %s did not increase at bid %d", law, price, bid)
			}
			price = next
		}
	}
}

func TestEscalateZeroBidsIsIdentity(t *testing.T) {
	next, err := Escalate(big.NewInt(42), 0, PriceGrowth{Step: big.NewInt(5)})
	if err != nil || next.Int64() != 42 {
		t.Fatalf("expected 42, got %v %v", next, err)
	}
}

func TestEscalateFailsInsteadOfWrapping(t *testing.T) {
	maxWord := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	if _, err := Escalate(maxWord, 1, PriceGrowth{Step: big.NewInt(1)}); !errors.Is(err, ErrPriceOverflow) {
		t.Fatalf("expected ErrPriceOverflow, got %v", err)
	}
	half := new(big.Int).Rsh(maxWord, 1)
	if _, err := Escalate(half, 1, PriceGrowth{FactorBps: 30_000}); !errors.Is(err, ErrPriceOverflow) {
		t.Fatalf("expected ErrPriceOverflow, got %v", err)
	}
	if _, err := Escalate(big.NewInt(-1), 1, PriceGrowth{Step: big.NewInt(1)}); !errors.Is(err, ErrPriceOverflow) {
		t.Fatalf("expected ErrPriceOverflow for negative price, got %v", err)
	}
}

func TestExtendRules(t *testing.T) {
	base, ext := 86400*time.Second, time.Hour
	if got := Extend(0, 100, 0, base, ext); got != 0 {
		t.Fatalf("no bids should leave deadline unset, got %d", got)
	}
	if got := Extend(0, 100, 1, base, ext); got != 86500 {
		t.Fatalf("first bid: got %d", got)
	}
	// Later bids are additive to the deadline, not to now.
	if got := Extend(86500, 86000, 2, base, ext); got != 90100 {
		t.Fatalf("second bid: got %d", got)
	}
	if got := Extend(math.MaxInt64-10, 0, 5, base, ext); got != math.MaxInt64 {
		t.Fatalf("expected saturation, got %d", got)
	}
}

func TestExtendNeverMovesBackward(t *testing.T) {
	deadline := int64(0)
	now := int64(0)
	for bid := uint64(1); bid <= 50; bid++ {
		next := Extend(deadline, now, bid, time.Minute, time.Second)
		if next < deadline {
			t.Fatalf("deadline moved backward at bid %d", bid)
		}
		deadline = next
		now += 7
	}
}

func TestTimeUntilWithdrawal(t *testing.T) {
	if got := TimeUntilWithdrawal(0, 10); got != 0 {
		t.Fatalf("unset deadline: %s", got)
	}
	if got := TimeUntilWithdrawal(100, 100); got != 0 {
		t.Fatalf("at deadline: %s", got)
	}
	if got := TimeUntilWithdrawal(100, 40); got != time.Minute {
		t.Fatalf("expected one minute, got %s", got)
	}
	if got := TimeUntilWithdrawal(math.MaxInt64, 0); got != time.Duration(math.MaxInt64) {
		t.Fatalf("expected capped duration, got %s", got)
	}
}

func TestSplitPotSumsToPot(t *testing.T) {
	for _, tc := range []struct {
		pot                   int64
		bps                   uint32
		charity, winner, seed int64
	}{
		{pot: 2100, bps: 1000, charity: 210, winner: 945, seed: 945},
		{pot: 101, bps: 1000, charity: 10, winner: 45, seed: 46},
		{pot: 7, bps: 0, charity: 0, winner: 3, seed: 4},
		{pot: 9, bps: 10_000, charity: 9, winner: 0, seed: 0},
		{pot: 0, bps: 2500, charity: 0, winner: 0, seed: 0},
	} {
		split := SplitPot(big.NewInt(tc.pot), tc.bps)
		if split.CharityCut.Int64() != tc.charity || split.WinnerPayout.Int64() != tc.winner || split.NextSeed.Int64() != tc.seed {
			t.Fatalf("pot %d bps %d: got %s/%s/%s", tc.pot, tc.bps, split.CharityCut, split.WinnerPayout, split.NextSeed)
		}
		sum := new(big.Int).Add(split.CharityCut, split.WinnerPayout)
		sum.Add(sum, split.NextSeed)
		if sum.Int64() != tc.pot {
			t.Fatalf("split does not sum to pot %d", tc.pot)
		}
	}
}

func TestSplitDonation(t *testing.T) {
	toPot, toReserve := SplitDonation(big.NewInt(10), 5000)
	if toPot.Int64() != 5 || toReserve.Int64() != 5 {
		t.Fatalf("unexpected split %s/%s", toPot, toReserve)
	}
	toPot, toReserve = SplitDonation(big.NewInt(3), 5000)
	if toPot.Int64() != 1 || toReserve.Int64() != 2 {
		t.Fatalf("unexpected rounding %s/%s", toPot, toReserve)
	}
}

func TestKindOf(t *testing.T) {
	wrapped := wrapCollaborator(ErrPayoutFailed, errors.New("boom"))
	if KindOf(wrapped) != KindCollaborator {
		t.Fatalf("wrapped payout failure kind %s", KindOf(wrapped))
	}
	if KindOf(ErrTooEarly) != KindValidation || KindOf(ErrUnauthorized) != KindConfiguration {
		t.Fatalf("unexpected kinds")
	}
	if KindOf(errors.New("other")) != KindInternal || KindOf(nil) != KindNone {
		t.Fatalf("unexpected kinds for foreign errors")
	}
	if KindOf(invalidConfig("x")) != KindConfiguration {
		t.Fatalf("invalid config should be configuration kind")
	}
}
