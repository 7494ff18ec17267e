package state

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"time"

	"jackpotchain/native/jackpot"
)

var (
	jackpotRoundKey         = kvKey([]byte("jackpot/round"))
	jackpotConfigKey        = kvKey([]byte("jackpot/config"))
	jackpotStatsKey         = kvKey([]byte("jackpot/stats"))
	jackpotSettlementPrefix = []byte("jackpot/settlement/")
)

func jackpotSettlementKey(roundID uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], roundID)
	return prefixedKey(jackpotSettlementPrefix, buf[:])
}

// RLP has no signed integers; timestamps before the epoch are clamped.
func encodeUnix(ts int64) uint64 {
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

type storedRound struct {
	ID           uint64
	StartTime    uint64
	Deadline     uint64
	LastBidder   [20]byte
	HasBidder    bool
	LastBidTime  uint64
	BidCount     uint64
	CurrentPrice *big.Int
	Pot          *big.Int
}

type storedConfig struct {
	Owner            [20]byte
	BasePrice        *big.Int
	GrowthStep       *big.Int
	GrowthFactorBps  uint32
	BaseSeconds      uint64
	ExtensionSeconds uint64
	CharityBps       uint32
	DonationPotBps   uint32
	RewardBps        uint32
	Reserve          [20]byte
	Token            [20]byte
	Trophy           [20]byte
	Charity          [20]byte
}

type storedStats struct {
	LifetimeBids  uint64
	RoundsSettled uint64
	TotalDonated  *big.Int
	TotalCharity  *big.Int
	TotalPaidOut  *big.Int
}

type storedSettlement struct {
	RoundID      uint64
	Winner       [20]byte
	BidCount     uint64
	Pot          *big.Int
	CharityCut   *big.Int
	WinnerPayout *big.Int
	NextSeed     *big.Int
	ClaimedAt    uint64
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// JackpotRoundGet returns the live round.
func (m *Manager) JackpotRoundGet() (*jackpot.Round, bool, error) {
	var stored storedRound
	ok, err := m.getRLP(jackpotRoundKey, &stored)
	if err != nil {
		return nil, false, fmt.Errorf("state: decode jackpot round: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &jackpot.Round{
		ID:           stored.ID,
		StartTime:    int64(stored.StartTime),
		Deadline:     int64(stored.Deadline),
		LastBidder:   stored.LastBidder,
		HasBidder:    stored.HasBidder,
		LastBidTime:  int64(stored.LastBidTime),
		BidCount:     stored.BidCount,
		CurrentPrice: nonNil(stored.CurrentPrice),
		Pot:          nonNil(stored.Pot),
	}, true, nil
}

// JackpotRoundPut replaces the live round.
func (m *Manager) JackpotRoundPut(round *jackpot.Round) error {
	if round == nil {
		return fmt.Errorf("state: nil jackpot round")
	}
	return m.putRLP(jackpotRoundKey, &storedRound{
		ID:           round.ID,
		StartTime:    encodeUnix(round.StartTime),
		Deadline:     encodeUnix(round.Deadline),
		LastBidder:   round.LastBidder,
		HasBidder:    round.HasBidder,
		LastBidTime:  encodeUnix(round.LastBidTime),
		BidCount:     round.BidCount,
		CurrentPrice: nonNil(round.CurrentPrice),
		Pot:          nonNil(round.Pot),
	})
}

// JackpotConfigGet returns the global jackpot configuration.
func (m *Manager) JackpotConfigGet() (*jackpot.Config, bool, error) {
	var stored storedConfig
	ok, err := m.getRLP(jackpotConfigKey, &stored)
	if err != nil {
		return nil, false, fmt.Errorf("state: decode jackpot config: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &jackpot.Config{
		Owner:             stored.Owner,
		BasePrice:         nonNil(stored.BasePrice),
		Growth:            jackpot.PriceGrowth{Step: nonNil(stored.GrowthStep), FactorBps: stored.GrowthFactorBps},
		BaseDuration:      time.Duration(stored.BaseSeconds) * time.Second,
		ExtensionDuration: time.Duration(stored.ExtensionSeconds) * time.Second,
		CharityBps:        stored.CharityBps,
		DonationPotBps:    stored.DonationPotBps,
		RewardBps:         stored.RewardBps,
		Reserve:           stored.Reserve,
		Token:             stored.Token,
		Trophy:            stored.Trophy,
		Charity:           stored.Charity,
	}, true, nil
}

// JackpotConfigPut replaces the global jackpot configuration.
func (m *Manager) JackpotConfigPut(cfg *jackpot.Config) error {
	if cfg == nil {
		return fmt.Errorf("state: nil jackpot config")
	}
	return m.putRLP(jackpotConfigKey, &storedConfig{
		Owner:            cfg.Owner,
		BasePrice:        nonNil(cfg.BasePrice),
		GrowthStep:       nonNil(cfg.Growth.Step),
		GrowthFactorBps:  cfg.Growth.FactorBps,
		BaseSeconds:      uint64(cfg.BaseDuration / time.Second),
		ExtensionSeconds: uint64(cfg.ExtensionDuration / time.Second),
		CharityBps:       cfg.CharityBps,
		DonationPotBps:   cfg.DonationPotBps,
		RewardBps:        cfg.RewardBps,
		Reserve:          cfg.Reserve,
		Token:            cfg.Token,
		Trophy:           cfg.Trophy,
		Charity:          cfg.Charity,
	})
}

// JackpotStatsGet returns the lifetime counters.
func (m *Manager) JackpotStatsGet() (*jackpot.Stats, bool, error) {
	var stored storedStats
	ok, err := m.getRLP(jackpotStatsKey, &stored)
	if err != nil {
		return nil, false, fmt.Errorf("state: decode jackpot stats: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &jackpot.Stats{
		LifetimeBids:  stored.LifetimeBids,
		RoundsSettled: stored.RoundsSettled,
		TotalDonated:  nonNil(stored.TotalDonated),
		TotalCharity:  nonNil(stored.TotalCharity),
		TotalPaidOut:  nonNil(stored.TotalPaidOut),
	}, true, nil
}

// JackpotStatsPut replaces the lifetime counters.
func (m *Manager) JackpotStatsPut(stats *jackpot.Stats) error {
	if stats == nil {
		return fmt.Errorf("state: nil jackpot stats")
	}
	return m.putRLP(jackpotStatsKey, &storedStats{
		LifetimeBids:  stats.LifetimeBids,
		RoundsSettled: stats.RoundsSettled,
		TotalDonated:  nonNil(stats.TotalDonated),
		TotalCharity:  nonNil(stats.TotalCharity),
		TotalPaidOut:  nonNil(stats.TotalPaidOut),
	})
}

// JackpotSettlementGet returns the settlement of a finished round.
func (m *Manager) JackpotSettlementGet(roundID uint64) (*jackpot.Settlement, bool, error) {
	var stored storedSettlement
	ok, err := m.getRLP(jackpotSettlementKey(roundID), &stored)
	if err != nil {
		return nil, false, fmt.Errorf("state: decode settlement %d: %w", roundID, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &jackpot.Settlement{
		RoundID:      stored.RoundID,
		Winner:       stored.Winner,
		BidCount:     stored.BidCount,
		Pot:          nonNil(stored.Pot),
		CharityCut:   nonNil(stored.CharityCut),
		WinnerPayout: nonNil(stored.WinnerPayout),
		NextSeed:     nonNil(stored.NextSeed),
		ClaimedAt:    int64(stored.ClaimedAt),
	}, true, nil
}

// JackpotSettlementPut records the settlement of a finished round.
func (m *Manager) JackpotSettlementPut(s *jackpot.Settlement) error {
	if s == nil {
		return fmt.Errorf("state: nil settlement")
	}
	return m.putRLP(jackpotSettlementKey(s.RoundID), &storedSettlement{
		RoundID:      s.RoundID,
		Winner:       s.Winner,
		BidCount:     s.BidCount,
		Pot:          nonNil(s.Pot),
		CharityCut:   nonNil(s.CharityCut),
		WinnerPayout: nonNil(s.WinnerPayout),
		NextSeed:     nonNil(s.NextSeed),
		ClaimedAt:    encodeUnix(s.ClaimedAt),
	})
}
