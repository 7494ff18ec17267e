package state

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jackpotchain/core/types"
	"jackpotchain/native/jackpot"
	"jackpotchain/native/trophy"
	"jackpotchain/storage"
)

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestManagerSnapshotRevert(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	mgr := NewManager(db)
	alice := testAddr(0xA1)

	require.NoError(t, mgr.PutAccount(alice, &types.Account{Nonce: 1, Balance: big.NewInt(100)}))
	snap := mgr.Snapshot()
	require.NoError(t, mgr.PutAccount(alice, &types.Account{Nonce: 2, Balance: big.NewInt(50)}))
	inner := mgr.Snapshot()
	require.NoError(t, mgr.PutAccount(alice, &types.Account{Nonce: 3, Balance: big.NewInt(10)}))

	mgr.RevertToSnapshot(inner)
	acc, err := mgr.GetAccount(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(2), acc.Nonce)

	mgr.RevertToSnapshot(snap)
	acc, err = mgr.GetAccount(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1), acc.Nonce)
	require.Equal(t, int64(100), acc.Balance.Int64())
}

func TestManagerCommitAndDiscard(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	mgr := NewManager(db)
	alice := testAddr(0xA1)

	require.NoError(t, mgr.PutAccount(alice, &types.Account{Balance: big.NewInt(7)}))
	require.Empty(t, db.Keys(), "writes must stay staged until commit")
	require.NoError(t, mgr.Commit())
	require.Zero(t, mgr.Pending())
	require.Len(t, db.Keys(), 1)

	require.NoError(t, mgr.PutAccount(alice, &types.Account{Balance: big.NewInt(9)}))
	mgr.Discard()
	acc, err := NewManager(db).GetAccount(alice)
	require.NoError(t, err)
	require.Equal(t, int64(7), acc.Balance.Int64())
}

func TestManagerKVDelete(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	key := []byte("kv/test")
	require.NoError(t, mgr.KVPut(key, uint64(42)))
	require.NoError(t, mgr.Commit())

	var out uint64
	ok, err := mgr.KVGet(key, &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), out)

	require.NoError(t, mgr.KVDelete(key))
	ok, err = mgr.KVGet(key, &out)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = mgr.KVGet(nil, &out)
	require.Error(t, err)
}

func TestJackpotRecordsPersistAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	mgr := NewManager(db)

	cfg := &jackpot.Config{
		Owner:             testAddr(0x01),
		BasePrice:         big.NewInt(1000),
		Growth:            jackpot.PriceGrowth{Step: big.NewInt(10), FactorBps: 10_100},
		BaseDuration:      24 * time.Hour,
		ExtensionDuration: time.Hour,
		CharityBps:        1000,
		DonationPotBps:    5000,
		RewardBps:         25,
		Reserve:           testAddr(0x0E),
		Charity:           testAddr(0xC0),
	}
	round := &jackpot.Round{
		ID:           3,
		StartTime:    1700000000,
		Deadline:     1700086400,
		LastBidder:   testAddr(0xA1),
		HasBidder:    true,
		LastBidTime:  1700000000,
		BidCount:     4,
		CurrentPrice: big.NewInt(1234),
		Pot:          big.NewInt(5678),
	}
	settlement := &jackpot.Settlement{
		RoundID:      2,
		Winner:       testAddr(0xB0),
		BidCount:     9,
		Pot:          big.NewInt(100),
		CharityCut:   big.NewInt(10),
		WinnerPayout: big.NewInt(45),
		NextSeed:     big.NewInt(45),
		ClaimedAt:    1699999999,
	}
	stats := jackpot.NewStats()
	stats.LifetimeBids = 13

	require.NoError(t, mgr.JackpotConfigPut(cfg))
	require.NoError(t, mgr.JackpotRoundPut(round))
	require.NoError(t, mgr.JackpotSettlementPut(settlement))
	require.NoError(t, mgr.JackpotStatsPut(stats))
	require.NoError(t, mgr.Commit())
	require.NoError(t, db.Close())

	db, err = storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer db.Close()
	reopened := NewManager(db)

	gotCfg, ok, err := reopened.JackpotConfigGet()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, cfg.BaseDuration, gotCfg.BaseDuration)
	require.Equal(t, cfg.Growth.FactorBps, gotCfg.Growth.FactorBps)
	require.Equal(t, 0, cfg.Growth.Step.Cmp(gotCfg.Growth.Step))
	require.Equal(t, cfg.Charity, gotCfg.Charity)
	require.Equal(t, [20]byte{}, gotCfg.Token)

	gotRound, ok, err := reopened.JackpotRoundGet()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, round.Deadline, gotRound.Deadline)
	require.Equal(t, round.LastBidder, gotRound.LastBidder)
	require.Equal(t, 0, round.Pot.Cmp(gotRound.Pot))

	gotSettlement, ok, err := reopened.JackpotSettlementGet(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, settlement.Winner, gotSettlement.Winner)
	require.Equal(t, int64(45), gotSettlement.NextSeed.Int64())

	_, ok, err = reopened.JackpotSettlementGet(99)
	require.NoError(t, err)
	require.False(t, ok)

	gotStats, ok, err := reopened.JackpotStatsGet()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(13), gotStats.LifetimeBids)
}

func TestCollectibleAccessors(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	alice := testAddr(0xA1)

	bal, err := mgr.RewardBalance(alice)
	require.NoError(t, err)
	require.Zero(t, bal.Sign())
	require.NoError(t, mgr.SetRewardBalance(alice, big.NewInt(30)))
	require.NoError(t, mgr.SetRewardSupply(big.NewInt(30)))
	supply, err := mgr.RewardSupply()
	require.NoError(t, err)
	require.Equal(t, int64(30), supply.Int64())
	require.Error(t, mgr.SetRewardBalance(alice, big.NewInt(-1)))

	last, err := mgr.TrophyLastID()
	require.NoError(t, err)
	require.Zero(t, last)
	require.NoError(t, mgr.TrophyPut(&trophy.Trophy{ID: 1, RoundID: 4, Owner: alice, MintedAt: 10}))
	id, ok, err := mgr.TrophyByRound(4)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), id)
	last, err = mgr.TrophyLastID()
	require.NoError(t, err)
	require.Equal(t, uint64(1), last)
	got, ok, err := mgr.TrophyGet(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, alice, got.Owner)
}
