package jackpot

import (
	"math/big"
	"time"

	"jackpotchain/core/events"
	"jackpotchain/core/types"
)

// Endpoint names one of the three collaborator bindings.
type Endpoint uint8

const (
	EndpointToken Endpoint = iota + 1
	EndpointTrophy
	EndpointCharity
)

func (e Endpoint) String() string {
	switch e {
	case EndpointToken:
		return "token"
	case EndpointTrophy:
		return "trophy"
	case EndpointCharity:
		return "charity"
	default:
		return "unknown"
	}
}

type engineState interface {
	JackpotRoundGet() (*Round, bool, error)
	JackpotRoundPut(round *Round) error
	JackpotConfigGet() (*Config, bool, error)
	JackpotConfigPut(cfg *Config) error
	JackpotStatsGet() (*Stats, bool, error)
	JackpotStatsPut(stats *Stats) error
	JackpotSettlementGet(roundID uint64) (*Settlement, bool, error)
	JackpotSettlementPut(settlement *Settlement) error
	Snapshot() int
	RevertToSnapshot(id int)
}

// markedEmitter is implemented by emitters shared with collaborators, so
// events raised by a reverted transition can be dropped with it.
type markedEmitter interface {
	events.Emitter
	Mark() int
	Truncate(mark int)
}

// Engine runs the jackpot round state machine. Every mutating call is a
// single all-or-nothing transition: internal records are written before any
// outbound call, and the state snapshot taken on entry is restored if any
// step fails.
type Engine struct {
	state   engineState
	gateway *Gateway
	emitter events.Emitter
	nowFn   func() int64
}

// BidReceipt reports the outcome of an accepted bid.
type BidReceipt struct {
	Round    *Round
	Charged  *big.Int
	Refunded *big.Int
	Reward   *big.Int
}

// DonationReceipt reports the outcome of an accepted donation.
type DonationReceipt struct {
	RoundID   uint64
	ToPot     *big.Int
	ToReserve *big.Int
	Reward    *big.Int
}

// ClaimReceipt reports the outcome of a successful claim.
type ClaimReceipt struct {
	Settlement *Settlement
	TrophyID   uint64
	NextRound  *Round
}

// NewEngine constructs an engine with a no-op emitter and the wall clock.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetGateway configures the collaborator gateway.
func (e *Engine) SetGateway(gateway *Gateway) { e.gateway = gateway }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// atomic runs fn against a state snapshot. Events raised by fn are only
// forwarded when fn succeeds.
func (e *Engine) atomic(fn func(raise func(*types.Event)) error) error {
	if e == nil || e.state == nil || e.gateway == nil {
		return errNilState
	}
	snap := e.state.Snapshot()
	mark := -1
	marker, canMark := e.emitter.(markedEmitter)
	if canMark {
		mark = marker.Mark()
	}
	var raised []*types.Event
	raise := func(evt *types.Event) { raised = append(raised, evt) }
	if err := fn(raise); err != nil {
		e.state.RevertToSnapshot(snap)
		if canMark {
			marker.Truncate(mark)
		}
		return err
	}
	for _, evt := range raised {
		e.emitter.Emit(WrapEvent(evt))
	}
	return nil
}

func (e *Engine) load() (*Config, *Round, *Stats, error) {
	if e == nil || e.state == nil {
		return nil, nil, nil, errNilState
	}
	cfg, ok, err := e.state.JackpotConfigGet()
	if err != nil {
		return nil, nil, nil, err
	}
	if !ok || cfg == nil {
		return nil, nil, nil, ErrNotConfigured
	}
	round, ok, err := e.state.JackpotRoundGet()
	if err != nil {
		return nil, nil, nil, err
	}
	if !ok || round == nil {
		return nil, nil, nil, ErrNotConfigured
	}
	stats, ok, err := e.state.JackpotStatsGet()
	if err != nil {
		return nil, nil, nil, err
	}
	if !ok || stats == nil {
		stats = NewStats()
	}
	return cfg, round, stats, nil
}

// ValidateConfig checks the invariants a configuration must satisfy before it
// can be written.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return invalidConfig("config required")
	}
	if isZeroAddress(cfg.Owner) {
		return invalidConfig("owner required")
	}
	if cfg.BasePrice == nil || cfg.BasePrice.Sign() <= 0 {
		return invalidConfig("base price must be positive")
	}
	if err := validateGrowth(cfg.Growth); err != nil {
		return err
	}
	for name, d := range map[string]time.Duration{"base duration": cfg.BaseDuration, "extension duration": cfg.ExtensionDuration} {
		if d < time.Second {
			return invalidConfig("%s must be at least one second", name)
		}
		if d%time.Second != 0 {
			return invalidConfig("%s must be whole seconds", name)
		}
	}
	if cfg.CharityBps > bpsDenominator {
		return invalidConfig("charity bps out of range: %d", cfg.CharityBps)
	}
	if cfg.DonationPotBps > bpsDenominator {
		return invalidConfig("donation pot bps out of range: %d", cfg.DonationPotBps)
	}
	if cfg.RewardBps > bpsDenominator {
		return invalidConfig("reward bps out of range: %d", cfg.RewardBps)
	}
	if cfg.DonationPotBps < bpsDenominator && isZeroAddress(cfg.Reserve) {
		return invalidConfig("reserve required when donations are split")
	}
	return nil
}

// Initialize writes the global configuration and opens the first round. It
// succeeds once for the lifetime of the state.
func (e *Engine) Initialize(cfg *Config) (*Round, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	var opened *Round
	err := e.atomic(func(raise func(*types.Event)) error {
		if _, ok, err := e.state.JackpotConfigGet(); err != nil {
			return err
		} else if ok {
			return ErrAlreadyInitialized
		}
		if err := e.state.JackpotConfigPut(cfg.Clone()); err != nil {
			return err
		}
		if err := e.state.JackpotStatsPut(NewStats()); err != nil {
			return err
		}
		opened = &Round{
			ID:           1,
			StartTime:    e.now(),
			CurrentPrice: cloneBigInt(cfg.BasePrice),
			Pot:          big.NewInt(0),
		}
		if err := e.state.JackpotRoundPut(opened); err != nil {
			return err
		}
		raise(RoundOpenedEvent(opened))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return opened.Clone(), nil
}

// Bid offers value for the current round. The charge is exactly the current
// price; any excess is refunded within the same transition.
func (e *Engine) Bid(caller [20]byte, value *big.Int) (*BidReceipt, error) {
	offered := cloneBigInt(value)
	var receipt *BidReceipt
	err := e.atomic(func(raise func(*types.Event)) error {
		cfg, round, stats, err := e.load()
		if err != nil {
			return err
		}
		if isZeroAddress(cfg.Charity) || isZeroAddress(cfg.Trophy) {
			return ErrNotConfigured
		}
		now := e.now()
		if round.PhaseAt(now) == PhaseClaimable {
			return ErrRoundClaimable
		}
		price := cloneBigInt(round.CurrentPrice)
		if offered.Cmp(price) < 0 {
			return ErrInsufficientBid
		}
		if err := e.gateway.Collect(caller, offered); err != nil {
			return err
		}

		bidCount := round.BidCount + 1
		nextPrice, err := Escalate(price, bidCount, cfg.Growth)
		if err != nil {
			return err
		}
		round.Pot = new(big.Int).Add(round.Pot, price)
		round.LastBidder = caller
		round.HasBidder = true
		round.LastBidTime = now
		round.BidCount = bidCount
		round.CurrentPrice = nextPrice
		round.Deadline = Extend(round.Deadline, now, bidCount, cfg.BaseDuration, cfg.ExtensionDuration)
		stats.LifetimeBids++
		if err := e.state.JackpotRoundPut(round); err != nil {
			return err
		}
		if err := e.state.JackpotStatsPut(stats); err != nil {
			return err
		}

		refund := new(big.Int).Sub(offered, price)
		if err := e.gateway.Refund(caller, refund); err != nil {
			return err
		}
		reward := RewardFor(price, cfg.RewardBps)
		if err := e.gateway.MintReward(cfg, caller, reward); err != nil {
			return err
		}

		raise(BidPlacedEvent(round, caller, price, refund))
		// Refund and reward hooks may have re-entered; report the stored round.
		latest, ok, err := e.state.JackpotRoundGet()
		if err != nil {
			return err
		}
		if !ok || latest == nil {
			return ErrNotConfigured
		}
		receipt = &BidReceipt{Round: latest, Charged: price, Refunded: refund, Reward: reward}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// Donate adds value to the jackpot without bidding. The pot share is credited
// to the current round; the rest is forwarded to the reward reserve.
func (e *Engine) Donate(caller [20]byte, value *big.Int) (*DonationReceipt, error) {
	amount := cloneBigInt(value)
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	var receipt *DonationReceipt
	err := e.atomic(func(raise func(*types.Event)) error {
		cfg, round, stats, err := e.load()
		if err != nil {
			return err
		}
		if err := e.gateway.Collect(caller, amount); err != nil {
			return err
		}
		toPot, toReserve := SplitDonation(amount, cfg.DonationPotBps)
		round.Pot = new(big.Int).Add(round.Pot, toPot)
		stats.TotalDonated = new(big.Int).Add(stats.TotalDonated, amount)
		if err := e.state.JackpotRoundPut(round); err != nil {
			return err
		}
		if err := e.state.JackpotStatsPut(stats); err != nil {
			return err
		}

		if err := e.gateway.FundReserve(cfg, toReserve); err != nil {
			return err
		}
		reward := RewardFor(amount, cfg.RewardBps)
		if err := e.gateway.MintReward(cfg, caller, reward); err != nil {
			return err
		}

		raise(DonationReceivedEvent(round.ID, caller, amount, toPot, toReserve))
		receipt = &DonationReceipt{RoundID: round.ID, ToPot: toPot, ToReserve: toReserve, Reward: reward}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// Claim settles a lapsed round for its last bidder and opens the next round.
func (e *Engine) Claim(caller [20]byte) (*ClaimReceipt, error) {
	var receipt *ClaimReceipt
	err := e.atomic(func(raise func(*types.Event)) error {
		cfg, round, stats, err := e.load()
		if err != nil {
			return err
		}
		if !round.HasBidder || round.LastBidder != caller {
			return ErrNotWinner
		}
		now := e.now()
		if now < round.Deadline {
			return ErrTooEarly
		}

		split := SplitPot(round.Pot, cfg.CharityBps)
		settlement := &Settlement{
			RoundID:      round.ID,
			Winner:       caller,
			BidCount:     round.BidCount,
			Pot:          cloneBigInt(round.Pot),
			CharityCut:   split.CharityCut,
			WinnerPayout: split.WinnerPayout,
			NextSeed:     split.NextSeed,
			ClaimedAt:    now,
		}
		next := &Round{
			ID:           round.ID + 1,
			StartTime:    now,
			CurrentPrice: cloneBigInt(cfg.BasePrice),
			Pot:          cloneBigInt(split.NextSeed),
		}
		stats.RoundsSettled++
		stats.TotalCharity = new(big.Int).Add(stats.TotalCharity, split.CharityCut)
		stats.TotalPaidOut = new(big.Int).Add(stats.TotalPaidOut, split.WinnerPayout)
		if err := e.state.JackpotSettlementPut(settlement); err != nil {
			return err
		}
		if err := e.state.JackpotRoundPut(next); err != nil {
			return err
		}
		if err := e.state.JackpotStatsPut(stats); err != nil {
			return err
		}

		if err := e.gateway.ForwardCharity(cfg, split.CharityCut); err != nil {
			return err
		}
		if err := e.gateway.PayWinner(caller, split.WinnerPayout); err != nil {
			return err
		}
		trophyID, err := e.gateway.MintTrophy(cfg, caller, settlement.RoundID)
		if err != nil {
			return err
		}

		raise(RoundSettledEvent(settlement, trophyID))
		raise(RoundOpenedEvent(next))
		receipt = &ClaimReceipt{Settlement: settlement.Clone(), TrophyID: trophyID, NextRound: next.Clone()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// SetEndpoint rebinds one collaborator endpoint. Only the owner may call it
// and only before the first bid of the system's lifetime.
func (e *Engine) SetEndpoint(caller [20]byte, endpoint Endpoint, addr [20]byte) error {
	return e.atomic(func(raise func(*types.Event)) error {
		cfg, _, stats, err := e.load()
		if err != nil {
			return err
		}
		if caller != cfg.Owner {
			return ErrUnauthorized
		}
		if stats.LifetimeBids > 0 {
			return ErrConfigLocked
		}
		if isZeroAddress(addr) {
			return ErrInvalidEndpoint
		}
		switch endpoint {
		case EndpointToken:
			cfg.Token = addr
		case EndpointTrophy:
			cfg.Trophy = addr
		case EndpointCharity:
			cfg.Charity = addr
		default:
			return ErrInvalidEndpoint
		}
		if err := e.state.JackpotConfigPut(cfg); err != nil {
			return err
		}
		raise(EndpointBoundEvent(endpoint, addr))
		return nil
	})
}

// SetTokenContract binds the reward token endpoint.
func (e *Engine) SetTokenContract(caller, addr [20]byte) error {
	return e.SetEndpoint(caller, EndpointToken, addr)
}

// SetNftContract binds the trophy issuer endpoint.
func (e *Engine) SetNftContract(caller, addr [20]byte) error {
	return e.SetEndpoint(caller, EndpointTrophy, addr)
}

// SetCharity binds the charity wallet.
func (e *Engine) SetCharity(caller, addr [20]byte) error {
	return e.SetEndpoint(caller, EndpointCharity, addr)
}
