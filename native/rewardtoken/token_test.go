package rewardtoken

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"jackpotchain/core/state"
	"jackpotchain/storage"
)

func TestMintRewardOnlyByMinter(t *testing.T) {
	minter := [20]byte{0xAA}
	alice := [20]byte{0xA1}
	token := NewToken(state.NewManager(storage.NewMemDB()), minter)

	require.ErrorIs(t, token.MintReward(alice, alice, big.NewInt(5)), ErrUnauthorizedMinter)
	require.ErrorIs(t, token.MintReward(minter, alice, big.NewInt(0)), ErrInvalidAmount)

	require.NoError(t, token.MintReward(minter, alice, big.NewInt(5)))
	require.NoError(t, token.MintReward(minter, alice, big.NewInt(7)))
	bal, err := token.BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, int64(12), bal.Int64())
	supply, err := token.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, int64(12), supply.Int64())
}
