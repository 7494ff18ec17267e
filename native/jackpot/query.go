package jackpot

import (
	"fmt"
	"math/big"
	"time"
)

// Round returns a copy of the current round.
func (e *Engine) Round() (*Round, error) {
	_, round, _, err := e.load()
	if err != nil {
		return nil, err
	}
	return round.Clone(), nil
}

// Config returns a copy of the global configuration.
func (e *Engine) Config() (*Config, error) {
	cfg, _, _, err := e.load()
	if err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}

// Stats returns the lifetime counters.
func (e *Engine) Stats() (*Stats, error) {
	_, _, stats, err := e.load()
	if err != nil {
		return nil, err
	}
	return stats.Clone(), nil
}

// BidPrice returns the amount the next bid must offer.
func (e *Engine) BidPrice() (*big.Int, error) {
	_, round, _, err := e.load()
	if err != nil {
		return nil, err
	}
	return cloneBigInt(round.CurrentPrice), nil
}

// TimeUntilWithdrawal returns how long until the current round can be
// claimed, or zero when the deadline is unset or has passed.
func (e *Engine) TimeUntilWithdrawal() (time.Duration, error) {
	_, round, _, err := e.load()
	if err != nil {
		return 0, err
	}
	return TimeUntilWithdrawal(round.Deadline, e.now()), nil
}

// CurrentPot returns the pot of the current round.
func (e *Engine) CurrentPot() (*big.Int, error) {
	_, round, _, err := e.load()
	if err != nil {
		return nil, err
	}
	return cloneBigInt(round.Pot), nil
}

// CurrentCharityAmount returns the charity cut a claim would pay right now.
func (e *Engine) CurrentCharityAmount() (*big.Int, error) {
	cfg, round, _, err := e.load()
	if err != nil {
		return nil, err
	}
	return CharityAmount(round.Pot, cfg.CharityBps), nil
}

// BaseDuration returns the countdown opened by the first bid of a round.
func (e *Engine) BaseDuration() (time.Duration, error) {
	cfg, _, _, err := e.load()
	if err != nil {
		return 0, err
	}
	return cfg.BaseDuration, nil
}

// ExtensionDuration returns the amount each later bid adds to the deadline.
func (e *Engine) ExtensionDuration() (time.Duration, error) {
	cfg, _, _, err := e.load()
	if err != nil {
		return 0, err
	}
	return cfg.ExtensionDuration, nil
}

// Phase derives the lifecycle phase of the current round at the engine clock.
func (e *Engine) Phase() (Phase, error) {
	_, round, _, err := e.load()
	if err != nil {
		return PhaseIdle, err
	}
	return round.PhaseAt(e.now()), nil
}

// Settlement returns the settlement record of a finished round.
func (e *Engine) Settlement(roundID uint64) (*Settlement, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	settlement, ok, err := e.state.JackpotSettlementGet(roundID)
	if err != nil || !ok {
		return nil, ok, err
	}
	return settlement.Clone(), true, nil
}

// CheckSolvency verifies that the vault holds at least the current pot.
func (e *Engine) CheckSolvency() error {
	_, round, _, err := e.load()
	if err != nil {
		return err
	}
	if e.gateway == nil {
		return errNilState
	}
	held, err := e.gateway.bank.Balance(e.gateway.vault)
	if err != nil {
		return err
	}
	if held.Cmp(round.Pot) < 0 {
		return fmt.Errorf("%w: held %s, pot %s", ErrInsolvent, held, round.Pot)
	}
	return nil
}
