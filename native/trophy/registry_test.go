package trophy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"jackpotchain/core/state"
	"jackpotchain/native/trophy"
	"jackpotchain/storage"
)

func TestMintTrophyOncePerRound(t *testing.T) {
	minter := [20]byte{0xAA}
	alice := [20]byte{0xA1}
	registry := trophy.NewRegistry(state.NewManager(storage.NewMemDB()), minter)
	registry.SetNowFunc(func() int64 { return 1234 })

	_, err := registry.MintTrophy(alice, alice, 1)
	require.ErrorIs(t, err, trophy.ErrUnauthorizedMinter)
	_, err = registry.MintTrophy(minter, alice, 0)
	require.ErrorIs(t, err, trophy.ErrInvalidRound)

	id, err := registry.MintTrophy(minter, alice, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
	_, err = registry.MintTrophy(minter, alice, 1)
	require.ErrorIs(t, err, trophy.ErrAlreadyMinted)

	id, err = registry.MintTrophy(minter, alice, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), id)

	got, ok, err := registry.Trophy(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(2), got.RoundID)
	require.Equal(t, int64(1234), got.MintedAt)
}
