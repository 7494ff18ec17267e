package state

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"jackpotchain/native/trophy"
)

var (
	rewardBalancePrefix = []byte("reward/balance/")
	rewardSupplyKey     = kvKey([]byte("reward/supply"))
	trophyPrefix        = []byte("trophy/id/")
	trophyRoundPrefix   = []byte("trophy/round/")
	trophyLastIDKey     = kvKey([]byte("trophy/last-id"))
)

func uint64Key(prefix []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return prefixedKey(prefix, buf[:])
}

type storedTrophy struct {
	ID       uint64
	RoundID  uint64
	Owner    [20]byte
	MintedAt uint64
}

// RewardBalance returns the reward-token balance of addr.
func (m *Manager) RewardBalance(addr [20]byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.getRLP(prefixedKey(rewardBalancePrefix, addr[:]), amount)
	if err != nil {
		return nil, fmt.Errorf("state: decode reward balance: %w", err)
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// SetRewardBalance stores the reward-token balance of addr.
func (m *Manager) SetRewardBalance(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: invalid reward balance")
	}
	return m.putRLP(prefixedKey(rewardBalancePrefix, addr[:]), amount)
}

// RewardSupply returns the total reward-token supply.
func (m *Manager) RewardSupply() (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.getRLP(rewardSupplyKey, amount)
	if err != nil {
		return nil, fmt.Errorf("state: decode reward supply: %w", err)
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// SetRewardSupply stores the total reward-token supply.
func (m *Manager) SetRewardSupply(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: invalid reward supply")
	}
	return m.putRLP(rewardSupplyKey, amount)
}

// TrophyGet returns the trophy with the given id.
func (m *Manager) TrophyGet(id uint64) (*trophy.Trophy, bool, error) {
	var stored storedTrophy
	ok, err := m.getRLP(uint64Key(trophyPrefix, id), &stored)
	if err != nil {
		return nil, false, fmt.Errorf("state: decode trophy %d: %w", id, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &trophy.Trophy{ID: stored.ID, RoundID: stored.RoundID, Owner: stored.Owner, MintedAt: int64(stored.MintedAt)}, true, nil
}

// TrophyPut stores a trophy, indexes it by round and advances the sequence.
func (m *Manager) TrophyPut(t *trophy.Trophy) error {
	if t == nil || t.ID == 0 {
		return fmt.Errorf("state: trophy id required")
	}
	if err := m.putRLP(uint64Key(trophyPrefix, t.ID), &storedTrophy{
		ID:       t.ID,
		RoundID:  t.RoundID,
		Owner:    t.Owner,
		MintedAt: encodeUnix(t.MintedAt),
	}); err != nil {
		return err
	}
	if err := m.putRLP(uint64Key(trophyRoundPrefix, t.RoundID), t.ID); err != nil {
		return err
	}
	last, err := m.TrophyLastID()
	if err != nil {
		return err
	}
	if t.ID > last {
		return m.putRLP(trophyLastIDKey, t.ID)
	}
	return nil
}

// TrophyByRound returns the id of the trophy issued for roundID.
func (m *Manager) TrophyByRound(roundID uint64) (uint64, bool, error) {
	var id uint64
	ok, err := m.getRLP(uint64Key(trophyRoundPrefix, roundID), &id)
	if err != nil {
		return 0, false, fmt.Errorf("state: decode trophy index: %w", err)
	}
	return id, ok, nil
}

// TrophyLastID returns the highest trophy id issued so far.
func (m *Manager) TrophyLastID() (uint64, error) {
	var id uint64
	if _, err := m.getRLP(trophyLastIDKey, &id); err != nil {
		return 0, fmt.Errorf("state: decode trophy sequence: %w", err)
	}
	return id, nil
}
