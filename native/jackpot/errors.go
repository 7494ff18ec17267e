package jackpot

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected operation. Every kind is a full rejection: the
// operation never took effect.
type Kind uint8

const (
	KindNone Kind = iota
	KindValidation
	KindCollaborator
	KindConfiguration
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindCollaborator:
		return "collaborator"
	case KindConfiguration:
		return "configuration"
	default:
		return "internal"
	}
}

type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func newError(kind Kind, msg string) error { return &kindError{kind: kind, msg: msg} }

var (
	ErrInsufficientBid   = newError(KindValidation, "jackpot: bid below current price")
	ErrInsufficientFunds = newError(KindValidation, "jackpot: insufficient balance")
	ErrInvalidAmount     = newError(KindValidation, "jackpot: amount must be positive")
	ErrNotWinner         = newError(KindValidation, "jackpot: only the last bidder can claim")
	ErrTooEarly          = newError(KindValidation, "jackpot: deadline has not elapsed")
	ErrRoundClaimable    = newError(KindValidation, "jackpot: round awaits claim by last bidder")
	ErrInvalidEndpoint   = newError(KindValidation, "jackpot: endpoint address required")

	ErrRefundFailed          = newError(KindCollaborator, "jackpot: refund delivery failed")
	ErrMintFailed            = newError(KindCollaborator, "jackpot: reward mint failed")
	ErrTrophyMintFailed      = newError(KindCollaborator, "jackpot: trophy mint failed")
	ErrCharityTransferFailed = newError(KindCollaborator, "jackpot: charity transfer failed")
	ErrPayoutFailed          = newError(KindCollaborator, "jackpot: winner payout failed")
	ErrReserveTransferFailed = newError(KindCollaborator, "jackpot: reserve transfer failed")

	ErrConfigLocked       = newError(KindConfiguration, "jackpot: endpoints locked after first bid")
	ErrUnauthorized       = newError(KindConfiguration, "jackpot: caller is not the owner")
	ErrNotConfigured      = newError(KindConfiguration, "jackpot: not configured")
	ErrAlreadyInitialized = newError(KindConfiguration, "jackpot: already initialized")
	ErrInvalidConfig      = newError(KindConfiguration, "jackpot: invalid configuration")

	ErrPriceOverflow = newError(KindInternal, "jackpot: price escalation overflow")
	ErrInsolvent     = newError(KindInternal, "jackpot: vault balance below pot")
	errNilState      = newError(KindInternal, "jackpot engine: state not configured")
)

// collaboratorError wraps the cause of a failed outbound call so callers can
// match both the jackpot sentinel and the underlying error.
type collaboratorError struct {
	sentinel error
	cause    error
}

func (e *collaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.sentinel.Error(), e.cause)
}

func (e *collaboratorError) Unwrap() []error { return []error{e.sentinel, e.cause} }

func wrapCollaborator(sentinel, cause error) error {
	if cause == nil {
		return nil
	}
	return &collaboratorError{sentinel: sentinel, cause: cause}
}

// KindOf reports the classification of err. Errors that did not originate
// in this package are reported as KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var collab *collaboratorError
	if errors.As(err, &collab) {
		return KindOf(collab.sentinel)
	}
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindInternal
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
