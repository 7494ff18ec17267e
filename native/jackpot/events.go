package jackpot

import (
	"math/big"
	"strconv"

	"jackpotchain/core/events"
	"jackpotchain/core/types"
	"jackpotchain/crypto"
)

const (
	// EventTypeBidPlaced is emitted when a bid is accepted.
	EventTypeBidPlaced = "jackpot.bid.placed"
	// EventTypeDonationReceived is emitted when a donation is split into the pot.
	EventTypeDonationReceived = "jackpot.donation.received"
	// EventTypeRoundSettled is emitted when the last bidder claims the pot.
	EventTypeRoundSettled = "jackpot.round.settled"
	// EventTypeRoundOpened is emitted when a new round begins.
	EventTypeRoundOpened = "jackpot.round.opened"
	// EventTypeEndpointBound is emitted when the owner binds a collaborator endpoint.
	EventTypeEndpointBound = "jackpot.endpoint.bound"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

// BidPlacedEvent describes an accepted bid.
func BidPlacedEvent(round *Round, bidder [20]byte, charged, refunded *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeBidPlaced,
		Attributes: map[string]string{
			"round":     formatUint(round.ID),
			"bidder":    crypto.FormatAddress(bidder),
			"charged":   cloneBigInt(charged).String(),
			"refunded":  cloneBigInt(refunded).String(),
			"bidCount":  formatUint(round.BidCount),
			"nextPrice": cloneBigInt(round.CurrentPrice).String(),
			"deadline":  strconv.FormatInt(round.Deadline, 10),
			"pot":       cloneBigInt(round.Pot).String(),
		},
	}
}

// DonationReceivedEvent describes a donation and how it was split.
func DonationReceivedEvent(roundID uint64, donor [20]byte, amount, toPot, toReserve *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeDonationReceived,
		Attributes: map[string]string{
			"round":     formatUint(roundID),
			"donor":     crypto.FormatAddress(donor),
			"amount":    cloneBigInt(amount).String(),
			"toPot":     cloneBigInt(toPot).String(),
			"toReserve": cloneBigInt(toReserve).String(),
		},
	}
}

// RoundSettledEvent describes a successful claim.
func RoundSettledEvent(s *Settlement, trophyID uint64) *types.Event {
	return &types.Event{
		Type: EventTypeRoundSettled,
		Attributes: map[string]string{
			"round":        formatUint(s.RoundID),
			"winner":       crypto.FormatAddress(s.Winner),
			"pot":          cloneBigInt(s.Pot).String(),
			"charityCut":   cloneBigInt(s.CharityCut).String(),
			"winnerPayout": cloneBigInt(s.WinnerPayout).String(),
			"nextSeed":     cloneBigInt(s.NextSeed).String(),
			"trophyId":     formatUint(trophyID),
		},
	}
}

// RoundOpenedEvent describes a freshly reset round.
func RoundOpenedEvent(round *Round) *types.Event {
	return &types.Event{
		Type: EventTypeRoundOpened,
		Attributes: map[string]string{
			"round": formatUint(round.ID),
			"seed":  cloneBigInt(round.Pot).String(),
			"price": cloneBigInt(round.CurrentPrice).String(),
		},
	}
}

// EndpointBoundEvent describes an owner rebinding a collaborator endpoint.
func EndpointBoundEvent(endpoint Endpoint, addr [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeEndpointBound,
		Attributes: map[string]string{
			"endpoint": endpoint.String(),
			"address":  crypto.FormatAddress(addr),
		},
	}
}

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }
