package jackpot

import (
	"math/big"
	"time"
)

// Phase is the derived lifecycle position of a round. Only Idle and Active are
// ever stored implicitly; Claimable is computed from the clock.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseActive
	PhaseClaimable
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseActive:
		return "active"
	case PhaseClaimable:
		return "claimable"
	default:
		return "unknown"
	}
}

// Round is the single live auction record. Deadline is zero until the first
// bid of the round lands.
type Round struct {
	ID           uint64
	StartTime    int64
	Deadline     int64
	LastBidder   [20]byte
	HasBidder    bool
	LastBidTime  int64
	BidCount     uint64
	CurrentPrice *big.Int
	Pot          *big.Int
}

// Clone returns a deep copy of the round.
func (r *Round) Clone() *Round {
	if r == nil {
		return nil
	}
	clone := *r
	clone.CurrentPrice = cloneBigInt(r.CurrentPrice)
	clone.Pot = cloneBigInt(r.Pot)
	return &clone
}

// PhaseAt derives the phase at the supplied unix time. The deadline
// comparison is inclusive: a round is claimable at exactly its deadline.
func (r *Round) PhaseAt(now int64) Phase {
	if r == nil || !r.HasBidder || r.BidCount == 0 {
		return PhaseIdle
	}
	if now >= r.Deadline {
		return PhaseClaimable
	}
	return PhaseActive
}

// PriceGrowth parameterises the escalation law. The next price is
// prev*FactorBps/10000 + Step, or prev + Step when FactorBps is zero, bumped
// by one unit when that would not exceed the previous price.
type PriceGrowth struct {
	Step      *big.Int
	FactorBps uint32
}

// Config is the global configuration written once at initialisation. The
// collaborator endpoints may be rebound by the owner until the first bid of
// the system's lifetime.
type Config struct {
	Owner             [20]byte
	BasePrice         *big.Int
	Growth            PriceGrowth
	BaseDuration      time.Duration
	ExtensionDuration time.Duration
	CharityBps        uint32
	DonationPotBps    uint32
	RewardBps         uint32
	Reserve           [20]byte
	Token             [20]byte
	Trophy            [20]byte
	Charity           [20]byte
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.BasePrice = cloneBigInt(c.BasePrice)
	clone.Growth.Step = cloneBigInt(c.Growth.Step)
	return &clone
}

// Stats tracks lifetime counters. LifetimeBids gates endpoint rebinding.
type Stats struct {
	LifetimeBids  uint64
	RoundsSettled uint64
	TotalDonated  *big.Int
	TotalCharity  *big.Int
	TotalPaidOut  *big.Int
}

// Clone returns a deep copy of the counters.
func (s *Stats) Clone() *Stats {
	if s == nil {
		return nil
	}
	clone := *s
	clone.TotalDonated = cloneBigInt(s.TotalDonated)
	clone.TotalCharity = cloneBigInt(s.TotalCharity)
	clone.TotalPaidOut = cloneBigInt(s.TotalPaidOut)
	return &clone
}

// NewStats returns zeroed counters.
func NewStats() *Stats {
	return &Stats{TotalDonated: big.NewInt(0), TotalCharity: big.NewInt(0), TotalPaidOut: big.NewInt(0)}
}

// Settlement records how a finished round's pot was divided.
type Settlement struct {
	RoundID      uint64
	Winner       [20]byte
	BidCount     uint64
	Pot          *big.Int
	CharityCut   *big.Int
	WinnerPayout *big.Int
	NextSeed     *big.Int
	ClaimedAt    int64
}

// Clone returns a deep copy of the settlement.
func (s *Settlement) Clone() *Settlement {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Pot = cloneBigInt(s.Pot)
	clone.CharityCut = cloneBigInt(s.CharityCut)
	clone.WinnerPayout = cloneBigInt(s.WinnerPayout)
	clone.NextSeed = cloneBigInt(s.NextSeed)
	return &clone
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func isZeroAddress(addr [20]byte) bool {
	return addr == [20]byte{}
}
