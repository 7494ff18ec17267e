package events

import (
	"math/big"

	"jackpotchain/core/types"
	"jackpotchain/crypto"
)

const (
	// TypeTransfer is emitted for native balance movements.
	TypeTransfer = "transfer.native"
)

type Transfer struct {
	From   [20]byte
	To     [20]byte
	Amount *big.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	return &types.Event{
		Type: TypeTransfer,
		Attributes: map[string]string{
			"from":   crypto.FormatAddress(e.From),
			"to":     crypto.FormatAddress(e.To),
			"amount": formatAmount(e.Amount),
		},
	}
}
