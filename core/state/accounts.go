package state

import (
	"fmt"
	"math/big"

	"jackpotchain/core/types"
)

var accountPrefix = []byte("account:")

func accountKey(addr [20]byte) []byte {
	return prefixedKey(accountPrefix, addr[:])
}

// GetAccount returns the account stored under addr, or an empty account when
// none exists.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	account := types.NewAccount()
	ok, err := m.getRLP(accountKey(addr), account)
	if err != nil {
		return nil, fmt.Errorf("state: decode account %x: %w", addr, err)
	}
	if !ok || account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	return account, nil
}

// PutAccount stores account under addr.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	stored := account.Clone()
	if stored.Balance.Sign() < 0 {
		return fmt.Errorf("state: negative balance for %x", addr)
	}
	return m.putRLP(accountKey(addr), stored)
}
