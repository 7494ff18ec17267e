package events

import (
	"math/big"

	"jackpotchain/core/types"
	"jackpotchain/crypto"
)

const (
	// TypeRewardMinted is emitted when the reward token credits a recipient.
	TypeRewardMinted = "reward.minted"
	// TypeTrophyMinted is emitted when a round trophy is issued.
	TypeTrophyMinted = "trophy.minted"
)

type RewardMinted struct {
	Recipient [20]byte
	Amount    *big.Int
	Supply    *big.Int
}

func (RewardMinted) EventType() string { return TypeRewardMinted }

func (e RewardMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardMinted,
		Attributes: map[string]string{
			"recipient": crypto.FormatAddress(e.Recipient),
			"amount":    formatAmount(e.Amount),
			"supply":    formatAmount(e.Supply),
		},
	}
}

type TrophyMinted struct {
	TrophyID uint64
	RoundID  uint64
	Owner    [20]byte
}

func (TrophyMinted) EventType() string { return TypeTrophyMinted }

func (e TrophyMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeTrophyMinted,
		Attributes: map[string]string{
			"trophyId": formatUint(e.TrophyID),
			"round":    formatUint(e.RoundID),
			"owner":    crypto.FormatAddress(e.Owner),
		},
	}
}
