package jackpot

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"jackpotchain/core/events"
)

type mockSnapshot struct {
	round       *Round
	cfg         *Config
	stats       *Stats
	settlements map[uint64]*Settlement
	balances    map[[20]byte]*big.Int
}

// mockState keeps jackpot records and bank balances side by side so a revert
// restores both.
type mockState struct {
	round       *Round
	cfg         *Config
	stats       *Stats
	settlements map[uint64]*Settlement
	balances    map[[20]byte]*big.Int
	hooks       map[[20]byte]func(from [20]byte, amount *big.Int) error
	snapshots   []mockSnapshot
}

func newMockState() *mockState {
	return &mockState{
		settlements: make(map[uint64]*Settlement),
		balances:    make(map[[20]byte]*big.Int),
		hooks:       make(map[[20]byte]func([20]byte, *big.Int) error),
	}
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func (m *mockState) JackpotRoundGet() (*Round, bool, error) {
	if m.round == nil {
		return nil, false, nil
	}
	return m.round.Clone(), true, nil
}

func (m *mockState) JackpotRoundPut(round *Round) error {
	m.round = round.Clone()
	return nil
}

func (m *mockState) JackpotConfigGet() (*Config, bool, error) {
	if m.cfg == nil {
		return nil, false, nil
	}
	return m.cfg.Clone(), true, nil
}

func (m *mockState) JackpotConfigPut(cfg *Config) error {
	m.cfg = cfg.Clone()
	return nil
}

func (m *mockState) JackpotStatsGet() (*Stats, bool, error) {
	if m.stats == nil {
		return nil, false, nil
	}
	return m.stats.Clone(), true, nil
}

func (m *mockState) JackpotStatsPut(stats *Stats) error {
	m.stats = stats.Clone()
	return nil
}

func (m *mockState) JackpotSettlementGet(roundID uint64) (*Settlement, bool, error) {
	s, ok := m.settlements[roundID]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

func (m *mockState) JackpotSettlementPut(s *Settlement) error {
	m.settlements[s.RoundID] = s.Clone()
	return nil
}

func (m *mockState) Snapshot() int {
	snap := mockSnapshot{
		round:       m.round.Clone(),
		cfg:         m.cfg.Clone(),
		stats:       m.stats.Clone(),
		settlements: make(map[uint64]*Settlement, len(m.settlements)),
		balances:    make(map[[20]byte]*big.Int, len(m.balances)),
	}
	for id, s := range m.settlements {
		snap.settlements[id] = s.Clone()
	}
	for addr, bal := range m.balances {
		snap.balances[addr] = new(big.Int).Set(bal)
	}
	m.snapshots = append(m.snapshots, snap)
	return len(m.snapshots) - 1
}

func (m *mockState) RevertToSnapshot(id int) {
	snap := m.snapshots[id]
	m.round = snap.round
	m.cfg = snap.cfg
	m.stats = snap.stats
	m.settlements = snap.settlements
	m.balances = snap.balances
	m.snapshots = m.snapshots[:id]
}

func (m *mockState) balance(addr [20]byte) *big.Int {
	if bal, ok := m.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

func (m *mockState) credit(addr [20]byte, amount int64) {
	m.balances[addr] = new(big.Int).Add(m.balance(addr), big.NewInt(amount))
}

// Transfer and Balance make the mock double as the bank.
func (m *mockState) Transfer(from, to [20]byte, amount *big.Int) error {
	if m.balance(from).Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance")
	}
	m.balances[from] = new(big.Int).Sub(m.balance(from), amount)
	m.balances[to] = new(big.Int).Add(m.balance(to), amount)
	if hook := m.hooks[to]; hook != nil {
		return hook(from, amount)
	}
	return nil
}

func (m *mockState) Balance(addr [20]byte) (*big.Int, error) {
	return m.balance(addr), nil
}

type mockToken struct {
	minted map[[20]byte]*big.Int
	fail   error
	hook   func()
}

func (t *mockToken) MintReward(_ [20]byte, recipient [20]byte, amount *big.Int) error {
	if t.hook != nil {
		t.hook()
	}
	if t.fail != nil {
		return t.fail
	}
	if t.minted == nil {
		t.minted = make(map[[20]byte]*big.Int)
	}
	cur := t.minted[recipient]
	if cur == nil {
		cur = big.NewInt(0)
	}
	t.minted[recipient] = new(big.Int).Add(cur, amount)
	return nil
}

type mockTrophy struct {
	next   uint64
	owners map[uint64][20]byte
	fail   error
}

func (t *mockTrophy) MintTrophy(_ [20]byte, recipient [20]byte, _ uint64) (uint64, error) {
	if t.fail != nil {
		return 0, t.fail
	}
	if t.owners == nil {
		t.owners = make(map[uint64][20]byte)
	}
	t.next++
	t.owners[t.next] = recipient
	return t.next, nil
}

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) { r.events = append(r.events, evt) }

type fixture struct {
	engine  *Engine
	state   *mockState
	token   *mockToken
	trophy  *mockTrophy
	emitter *recordingEmitter
	now     int64
	owner   [20]byte
	vault   [20]byte
	charity [20]byte
	reserve [20]byte
}

func testConfig() *Config {
	return &Config{
		Owner:             newTestAddress(0x01),
		BasePrice:         big.NewInt(1000),
		Growth:            PriceGrowth{Step: big.NewInt(100)},
		BaseDuration:      86400 * time.Second,
		ExtensionDuration: 3600 * time.Second,
		CharityBps:        1000,
		DonationPotBps:    5000,
		RewardBps:         100,
		Reserve:           newTestAddress(0x0E),
		Token:             newTestAddress(0x70),
		Trophy:            newTestAddress(0x71),
		Charity:           newTestAddress(0xC0),
	}
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	f := &fixture{
		state:   newMockState(),
		token:   &mockToken{},
		trophy:  &mockTrophy{},
		emitter: &recordingEmitter{},
		vault:   newTestAddress(0xAA),
	}
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	f.owner = cfg.Owner
	f.charity = cfg.Charity
	f.reserve = cfg.Reserve
	dir := NewStaticDirectory()
	dir.RegisterRewardToken(cfg.Token, f.token)
	dir.RegisterTrophyIssuer(cfg.Trophy, f.trophy)

	f.engine = NewEngine()
	f.engine.SetState(f.state)
	f.engine.SetGateway(NewGateway(f.state, dir, f.vault))
	f.engine.SetEmitter(f.emitter)
	f.engine.SetNowFunc(func() int64 { return f.now })
	if _, err := f.engine.Initialize(cfg); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	f.emitter.events = nil
	return f
}

func (f *fixture) eventTypes() []string {
	out := make([]string, 0, len(f.emitter.events))
	for _, evt := range f.emitter.events {
		out = append(out, evt.EventType())
	}
	return out
}

func mustRound(t *testing.T, e *Engine) *Round {
	t.Helper()
	round, err := e.Round()
	if err != nil {
		t.Fatalf("round: %v", err)
	}
	return round
}

func TestInitializeOpensFirstRound(t *testing.T) {
	f := newFixture(t, nil)
	round := mustRound(t, f.engine)
	if round.ID != 1 || round.BidCount != 0 || round.HasBidder || round.Deadline != 0 {
		t.Fatalf("unexpected first round: %+v", round)
	}
	if round.CurrentPrice.Cmp(big.NewInt(1000)) != 0 || round.Pot.Sign() != 0 {
		t.Fatalf("unexpected price or pot: %s %s", round.CurrentPrice, round.Pot)
	}
	if _, err := f.engine.Initialize(testConfig()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestInitializeRejectsInvalidConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"no owner":         func(c *Config) { c.Owner = [20]byte{} },
		"zero price":       func(c *Config) { c.BasePrice = big.NewInt(0) },
		"flat growth":      func(c *Config) { c.Growth = PriceGrowth{FactorBps: 10_000} },
		"shrinking factor": func(c *Config) { c.Growth = PriceGrowth{Step: big.NewInt(100), FactorBps: 9_000} },
		"sub-second":       func(c *Config) { c.ExtensionDuration = 1500 * time.Millisecond },
		"charity too big":  func(c *Config) { c.CharityBps = 10_001 },
		"no reserve":       func(c *Config) { c.Reserve = [20]byte{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(cfg)
			engine := NewEngine()
			engine.SetState(newMockState())
			engine.SetGateway(NewGateway(newMockState(), NewStaticDirectory(), newTestAddress(0xAA)))
			if _, err := engine.Initialize(cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestBidDeadlineScenario(t *testing.T) {
	f := newFixture(t, nil)
	alice := newTestAddress(0xA1)
	f.state.credit(alice, 10_000)

	if _, err := f.engine.Bid(alice, big.NewInt(1000)); err != nil {
		t.Fatalf("first bid: %v", err)
	}
	round := mustRound(t, f.engine)
	if round.Deadline != 86400 {
		t.Fatalf("expected deadline 86400, got %d", round.Deadline)
	}
	price, _ := f.engine.BidPrice()
	if _, err := f.engine.Bid(alice, price); err != nil {
		t.Fatalf("second bid: %v", err)
	}
	round = mustRound(t, f.engine)
	if round.Deadline != 90000 {
		t.Fatalf("expected deadline 90000, got %d", round.Deadline)
	}
	if round.Pot.Cmp(big.NewInt(2100)) != 0 {
		t.Fatalf("expected pot 2100, got %s", round.Pot)
	}

	f.now = 90001
	receipt, err := f.engine.Claim(alice)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	s := receipt.Settlement
	if s.CharityCut.Int64() != 210 || s.WinnerPayout.Int64() != 945 || s.NextSeed.Int64() != 945 {
		t.Fatalf("unexpected split: %s %s %s", s.CharityCut, s.WinnerPayout, s.NextSeed)
	}
	next := mustRound(t, f.engine)
	if next.ID != 2 || next.BidCount != 0 || next.HasBidder || next.Deadline != 0 {
		t.Fatalf("round not reset: %+v", next)
	}
	if next.Pot.Int64() != 945 || next.CurrentPrice.Int64() != 1000 {
		t.Fatalf("unexpected seed or price: %s %s", next.Pot, next.CurrentPrice)
	}
	if got := f.state.balance(f.charity); got.Int64() != 210 {
		t.Fatalf("charity balance %s", got)
	}
	if got := f.state.balance(alice); got.Int64() != 10_000-2100+945 {
		t.Fatalf("winner balance %s", got)
	}
	if owner := f.trophy.owners[receipt.TrophyID]; owner != alice {
		t.Fatalf("trophy not minted to winner")
	}
	if err := f.engine.CheckSolvency(); err != nil {
		t.Fatalf("solvency: %v", err)
	}
	if _, err := f.engine.Claim(alice); !errors.Is(err, ErrNotWinner) {
		t.Fatalf("expected ErrNotWinner on repeat claim, got %v", err)
	}
	stored, ok, err := f.engine.Settlement(1)
	if err != nil || !ok || stored.Winner != alice {
		t.Fatalf("settlement not recorded: %v %v", ok, err)
	}
}

func TestBidBelowPriceLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	alice := newTestAddress(0xA1)
	f.state.credit(alice, 10_000)
	if _, err := f.engine.Bid(alice, big.NewInt(1000)); err != nil {
		t.Fatalf("bid: %v", err)
	}
	before := mustRound(t, f.engine)
	f.emitter.events = nil

	bob := newTestAddress(0xB0)
	f.state.credit(bob, 10_000)
	short := new(big.Int).Sub(before.CurrentPrice, big.NewInt(1))
	if _, err := f.engine.Bid(bob, short); !errors.Is(err, ErrInsufficientBid) {
		t.Fatalf("expected ErrInsufficientBid, got %v", err)
	}
	after := mustRound(t, f.engine)
	if after.Pot.Cmp(before.Pot) != 0 || after.CurrentPrice.Cmp(before.CurrentPrice) != 0 || after.Deadline != before.Deadline {
		t.Fatalf("state changed on rejected bid")
	}
	if f.state.balance(bob).Int64() != 10_000 {
		t.Fatalf("bidder charged on rejected bid")
	}
	if len(f.emitter.events) != 0 {
		t.Fatalf("unexpected events: %v", f.eventTypes())
	}
}

func TestBidRefundsExcess(t *testing.T) {
	f := newFixture(t, nil)
	alice := newTestAddress(0xA1)
	f.state.credit(alice, 5000)
	receipt, err := f.engine.Bid(alice, big.NewInt(1500))
	if err != nil {
		t.Fatalf("bid: %v", err)
	}
	if receipt.Charged.Int64() != 1000 || receipt.Refunded.Int64() != 500 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if f.state.balance(alice).Int64() != 4000 {
		t.Fatalf("expected balance 4000, got %s", f.state.balance(alice))
	}
	if f.token.minted[alice].Int64() != 10 {
		t.Fatalf("expected reward 10, got %v", f.token.minted[alice])
	}
	if got := f.eventTypes(); len(got) != 1 || got[0] != EventTypeBidPlaced {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestBidRefundFailureIsAtomic(t *testing.T) {
	f := newFixture(t, nil)
	alice := newTestAddress(0xA1)
	f.state.credit(alice, 5000)
	hookErr := errors.New("receiver rejected")
	f.state.hooks[alice] = func([20]byte, *big.Int) error { return hookErr }

	if _, err := f.engine.Bid(alice, big.NewInt(1200)); !errors.Is(err, ErrRefundFailed) || !errors.Is(err, hookErr) {
		t.Fatalf("expected ErrRefundFailed wrapping hook error, got %v", err)
	}
	if KindOf(ErrRefundFailed) != KindCollaborator {
		t.Fatalf("refund failure must classify as collaborator")
	}
	round := mustRound(t, f.engine)
	if round.BidCount != 0 || round.Pot.Sign() != 0 || round.HasBidder {
		t.Fatalf("round mutated: %+v", round)
	}
	if f.state.balance(alice).Int64() != 5000 {
		t.Fatalf("charge not reverted")
	}
	stats, _ := f.engine.Stats()
	if stats.LifetimeBids != 0 {
		t.Fatalf("lifetime bids counted on failure")
	}
}

func TestBidMintFailureIsAtomic(t *testing.T) {
	f := newFixture(t, nil)
	alice := newTestAddress(0xA1)
	f.state.credit(alice, 5000)
	f.token.fail = errors.New("minter paused")
	if _, err := f.engine.Bid(alice, big.NewInt(1000)); !errors.Is(err, ErrMintFailed) {
		t.Fatalf("expected ErrMintFailed, got %v", err)
	}
	if round := mustRound(t, f.engine); round.BidCount != 0 {
		t.Fatalf("bid recorded despite mint failure")
	}
	if f.state.balance(alice).Int64() != 5000 {
		t.Fatalf("charge not reverted")
	}
}

func TestBidWithoutTokenSkipsReward(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Token = [20]byte{} })
	alice := newTestAddress(0xA1)
	f.state.credit(alice, 5000)
	receipt, err := f.engine.Bid(alice, big.NewInt(1000))
	if err != nil {
		t.Fatalf("bid: %v", err)
	}
	if receipt.Reward.Int64() != 10 || len(f.token.minted) != 0 {
		t.Fatalf("reward should not be minted without a token endpoint")
	}
}

func TestBidRequiresCharityAndTrophy(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Trophy = [20]byte{} })
	alice := newTestAddress(0xA1)
	f.state.credit(alice, 5000)
	if _, err := f.engine.Bid(alice, big.NewInt(1000)); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestReentrantBidSeesUpdatedState(t *testing.T) {
	f := newFixture(t, nil)
	alice := newTestAddress(0xA1)
	f.state.credit(alice, 10_000)
	var nested *BidReceipt
	var nestedErr error
	f.state.hooks[alice] = func([20]byte, *big.Int) error {
		delete(f.state.hooks, alice)
		nested, nestedErr = f.engine.Bid(alice, big.NewInt(1100))
		return nestedErr
	}
	outer, err := f.engine.Bid(alice, big.NewInt(1050))
	if err != nil {
		t.Fatalf("outer bid: %v", err)
	}
	if nestedErr != nil {
		t.Fatalf("nested bid: %v", nestedErr)
	}
	if nested.Charged.Int64() != 1100 {
		t.Fatalf("nested bid charged stale price %s", nested.Charged)
	}
	round := mustRound(t, f.engine)
	if round.BidCount != 2 || round.Pot.Int64() != 2100 || round.Deadline != 86400+3600 {
		t.Fatalf("unexpected round after reentrancy: %+v", round)
	}
	if outer.Round.BidCount != 2 || outer.Round.Pot.Int64() != 2100 || outer.Round.Deadline != round.Deadline {
		t.Fatalf("outer receipt reports stale round: %+v", outer.Round)
	}
	if err := f.engine.CheckSolvency(); err != nil {
		t.Fatalf("solvency: %v", err)
	}
}

func TestReentrantClaimDuringPayoutFails(t *testing.T) {
	f := newFixture(t, nil)
	alice := newTestAddress(0xA1)
	f.state.credit(alice, 10_000)
	if _, err := f.engine.Bid(alice, big.NewInt(1000)); err != nil {
		t.Fatalf("bid: %v", err)
	}
	var nestedErr error
	f.state.hooks[alice] = func([20]byte, *big.Int) error {
		_, nestedErr = f.engine.Claim(alice)
		return nil
	}
	f.now = 86400
	if _, err := f.engine.Claim(alice); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !errors.Is(nestedErr, ErrNotWinner) {
		t.Fatalf("expected nested claim to fail with ErrNotWinner, got %v", nestedErr)
	}
	if f.state.balance(alice).Int64() != 10_000-1000+450 {
		t.Fatalf("winner paid more than once: %s", f.state.balance(alice))
	}
}

func TestClaimPreconditions(t *testing.T) {
	f := newFixture(t, nil)
	alice := newTestAddress(0xA1)
	bob := newTestAddress(0xB0)
	if _, err := f.engine.Claim(alice); !errors.Is(err, ErrNotWinner) {
		t.Fatalf("expected ErrNotWinner on idle round, got %v", err)
	}
	f.state.credit(alice, 5000)
	if _, err := f.engine.Bid(alice, big.NewInt(1000)); err != nil {
		t.Fatalf("bid: %v", err)
	}
	f.now = 86399
	if _, err := f.engine.Claim(alice); !errors.Is(err, ErrTooEarly) {
		t.Fatalf("expected ErrTooEarly, got %v", err)
	}
	f.now = 1 << 40
	if _, err := f.engine.Claim(bob); !errors.Is(err, ErrNotWinner) {
		t.Fatalf("expected ErrNotWinner regardless of time, got %v", err)
	}
	f.now = 86400
	if phase, _ := f.engine.Phase(); phase != PhaseClaimable {
		t.Fatalf("expected claimable at deadline, got %s", phase)
	}
	if _, err := f.engine.Claim(alice); err != nil {
		t.Fatalf("claim at deadline: %v", err)
	}
}

func TestBidRejectedWhileRoundClaimable(t *testing.T) {
	f := newFixture(t, nil)
	alice := newTestAddress(0xA1)
	bob := newTestAddress(0xB0)
	f.state.credit(alice, 5000)
	f.state.credit(bob, 5000)
	if _, err := f.engine.Bid(alice, big.NewInt(1000)); err != nil {
		t.Fatalf("bid: %v", err)
	}

	for _, now := range []int64{86400, 1_000_000} {
		f.now = now
		if _, err := f.engine.Bid(bob, big.NewInt(1100)); !errors.Is(err, ErrRoundClaimable) {
			t.Fatalf("now=%d: expected ErrRoundClaimable, got %v", now, err)
		}
		if KindOf(ErrRoundClaimable) != KindValidation {
			t.Fatalf("unexpected kind %s", KindOf(ErrRoundClaimable))
		}
		round := mustRound(t, f.engine)
		if round.LastBidder != alice || round.BidCount != 1 || round.Deadline != 86400 {
			t.Fatalf("now=%d: round changed by rejected bid: %+v", now, round)
		}
		if phase, _ := f.engine.Phase(); phase != PhaseClaimable {
			t.Fatalf("now=%d: expected claimable, got %s", now, phase)
		}
		if got := f.state.balance(bob); got.Int64() != 5000 {
			t.Fatalf("now=%d: rejected bidder charged, balance %s", now, got)
		}
	}

	if _, err := f.engine.Claim(alice); err != nil {
		t.Fatalf("claim after long lull: %v", err)
	}
	if _, err := f.engine.Bid(bob, big.NewInt(1000)); err != nil {
		t.Fatalf("bid in next round: %v", err)
	}
	round := mustRound(t, f.engine)
	if round.Deadline != 1_000_000+86400 {
		t.Fatalf("expected fresh base deadline, got %d", round.Deadline)
	}
	if _, err := f.engine.Claim(bob); !errors.Is(err, ErrTooEarly) {
		t.Fatalf("expected ErrTooEarly right after opening bid, got %v", err)
	}
}

func TestClaimCollaboratorFailureKeepsRoundClaimable(t *testing.T) {
	f := newFixture(t, nil)
	alice := newTestAddress(0xA1)
	f.state.credit(alice, 5000)
	if _, err := f.engine.Bid(alice, big.NewInt(1000)); err != nil {
		t.Fatalf("bid: %v", err)
	}
	f.now = 90000
	f.trophy.fail = errors.New("issuer offline")
	if _, err := f.engine.Claim(alice); !errors.Is(err, ErrTrophyMintFailed) {
		t.Fatalf("expected ErrTrophyMintFailed, got %v", err)
	}
	if f.state.balance(f.charity).Sign() != 0 {
		t.Fatalf("charity paid on failed claim")
	}
	if phase, _ := f.engine.Phase(); phase != PhaseClaimable {
		t.Fatalf("round no longer claimable: %s", phase)
	}

	f.trophy.fail = nil
	charityErr := errors.New("charity wallet reverted")
	f.state.hooks[f.charity] = func([20]byte, *big.Int) error { return charityErr }
	if _, err := f.engine.Claim(alice); !errors.Is(err, ErrCharityTransferFailed) {
		t.Fatalf("expected ErrCharityTransferFailed, got %v", err)
	}

	delete(f.state.hooks, f.charity)
	f.emitter.events = nil
	if _, err := f.engine.Claim(alice); err != nil {
		t.Fatalf("retry claim: %v", err)
	}
	if got := f.eventTypes(); len(got) != 2 || got[0] != EventTypeRoundSettled || got[1] != EventTypeRoundOpened {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestDonateSplitsIntoPot(t *testing.T) {
	f := newFixture(t, nil)
	donor := newTestAddress(0xD0)
	f.state.credit(donor, 100)
	receipt, err := f.engine.Donate(donor, big.NewInt(10))
	if err != nil {
		t.Fatalf("donate: %v", err)
	}
	pot, _ := f.engine.CurrentPot()
	if pot.Int64() != 5 {
		t.Fatalf("expected pot 5, got %s", pot)
	}
	if receipt.ToReserve.Int64() != 5 || f.state.balance(f.reserve).Int64() != 5 {
		t.Fatalf("reserve not funded")
	}
	round := mustRound(t, f.engine)
	if round.HasBidder || round.Deadline != 0 || round.CurrentPrice.Int64() != 1000 {
		t.Fatalf("donation affected bidding state: %+v", round)
	}
	if _, err := f.engine.Donate(donor, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := f.engine.Donate(donor, big.NewInt(1000)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestEndpointSettersLockAfterFirstBid(t *testing.T) {
	f := newFixture(t, nil)
	stranger := newTestAddress(0x99)
	newCharity := newTestAddress(0xC1)
	if err := f.engine.SetCharity(stranger, newCharity); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := f.engine.SetCharity(f.owner, [20]byte{}); !errors.Is(err, ErrInvalidEndpoint) {
		t.Fatalf("expected ErrInvalidEndpoint, got %v", err)
	}
	if err := f.engine.SetCharity(f.owner, newCharity); err != nil {
		t.Fatalf("set charity: %v", err)
	}
	cfg, _ := f.engine.Config()
	if cfg.Charity != newCharity {
		t.Fatalf("charity not rebound")
	}

	alice := newTestAddress(0xA1)
	f.state.credit(alice, 5000)
	if _, err := f.engine.Bid(alice, big.NewInt(1000)); err != nil {
		t.Fatalf("bid: %v", err)
	}
	for name, set := range map[string]func() error{
		"token":   func() error { return f.engine.SetTokenContract(f.owner, newTestAddress(0x72)) },
		"trophy":  func() error { return f.engine.SetNftContract(f.owner, newTestAddress(0x73)) },
		"charity": func() error { return f.engine.SetCharity(f.owner, newTestAddress(0xC2)) },
	} {
		if err := set(); !errors.Is(err, ErrConfigLocked) {
			t.Fatalf("%s: expected ErrConfigLocked, got %v", name, err)
		}
	}
	if KindOf(ErrConfigLocked) != KindConfiguration {
		t.Fatalf("config lock must classify as configuration")
	}
}

func TestQueriesBeforeInitialize(t *testing.T) {
	engine := NewEngine()
	engine.SetState(newMockState())
	if _, err := engine.BidPrice(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestCountdownAndCharityQueries(t *testing.T) {
	f := newFixture(t, nil)
	if left, _ := f.engine.TimeUntilWithdrawal(); left != 0 {
		t.Fatalf("idle round countdown %s", left)
	}
	alice := newTestAddress(0xA1)
	f.state.credit(alice, 5000)
	if _, err := f.engine.Bid(alice, big.NewInt(1000)); err != nil {
		t.Fatalf("bid: %v", err)
	}
	f.now = 400
	if left, _ := f.engine.TimeUntilWithdrawal(); left != 86000*time.Second {
		t.Fatalf("unexpected countdown %s", left)
	}
	if charity, _ := f.engine.CurrentCharityAmount(); charity.Int64() != 100 {
		t.Fatalf("unexpected charity amount %s", charity)
	}
	base, _ := f.engine.BaseDuration()
	ext, _ := f.engine.ExtensionDuration()
	if base != 86400*time.Second || ext != time.Hour {
		t.Fatalf("unexpected durations %s %s", base, ext)
	}
}
