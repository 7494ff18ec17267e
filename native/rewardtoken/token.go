package rewardtoken

import (
	"errors"
	"fmt"
	"math/big"

	"jackpotchain/core/events"
)

var (
	ErrUnauthorizedMinter = errors.New("rewardtoken: caller is not the minter")
	ErrInvalidAmount      = errors.New("rewardtoken: amount must be positive")
	errNilState           = errors.New("rewardtoken: state not configured")
)

type tokenState interface {
	RewardBalance(addr [20]byte) (*big.Int, error)
	SetRewardBalance(addr [20]byte, amount *big.Int) error
	RewardSupply() (*big.Int, error)
	SetRewardSupply(amount *big.Int) error
}

// Token is the fungible reward token. Only the configured minter may create
// new balance; there is no cap or vesting.
type Token struct {
	state   tokenState
	minter  [20]byte
	emitter events.Emitter
}

// NewToken binds the token to its state backend and minter.
func NewToken(state tokenState, minter [20]byte) *Token {
	return &Token{state: state, minter: minter, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used by the token.
func (t *Token) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		t.emitter = events.NoopEmitter{}
		return
	}
	t.emitter = emitter
}

// Minter returns the only address allowed to mint.
func (t *Token) Minter() [20]byte { return t.minter }

// MintReward credits amount to recipient and grows the supply.
func (t *Token) MintReward(minter, recipient [20]byte, amount *big.Int) error {
	if t == nil || t.state == nil {
		return errNilState
	}
	if minter != t.minter {
		return ErrUnauthorizedMinter
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := t.state.RewardBalance(recipient)
	if err != nil {
		return fmt.Errorf("rewardtoken: load balance: %w", err)
	}
	supply, err := t.state.RewardSupply()
	if err != nil {
		return fmt.Errorf("rewardtoken: load supply: %w", err)
	}
	balance = new(big.Int).Add(balance, amount)
	supply = new(big.Int).Add(supply, amount)
	if err := t.state.SetRewardBalance(recipient, balance); err != nil {
		return err
	}
	if err := t.state.SetRewardSupply(supply); err != nil {
		return err
	}
	t.emitter.Emit(events.RewardMinted{Recipient: recipient, Amount: new(big.Int).Set(amount), Supply: supply})
	return nil
}

// BalanceOf returns the reward balance held by addr.
func (t *Token) BalanceOf(addr [20]byte) (*big.Int, error) {
	if t == nil || t.state == nil {
		return nil, errNilState
	}
	return t.state.RewardBalance(addr)
}

// TotalSupply returns the amount minted so far.
func (t *Token) TotalSupply() (*big.Int, error) {
	if t == nil || t.state == nil {
		return nil, errNilState
	}
	return t.state.RewardSupply()
}
