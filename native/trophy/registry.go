package trophy

import (
	"errors"
	"fmt"
	"time"

	"jackpotchain/core/events"
)

var (
	ErrUnauthorizedMinter = errors.New("trophy: caller is not the minter")
	ErrAlreadyMinted      = errors.New("trophy: round already has a trophy")
	ErrInvalidRound       = errors.New("trophy: round id required")
	errNilState           = errors.New("trophy: state not configured")
)

// Trophy is the non-fungible token issued to the winner of a round.
type Trophy struct {
	ID       uint64
	RoundID  uint64
	Owner    [20]byte
	MintedAt int64
}

type registryState interface {
	TrophyGet(id uint64) (*Trophy, bool, error)
	TrophyPut(trophy *Trophy) error
	TrophyByRound(roundID uint64) (uint64, bool, error)
	TrophyLastID() (uint64, error)
}

// Registry issues sequential trophy ids, at most one per round.
type Registry struct {
	state   registryState
	minter  [20]byte
	emitter events.Emitter
	nowFn   func() int64
}

// NewRegistry binds the registry to its state backend and minter.
func NewRegistry(state registryState, minter [20]byte) *Registry {
	return &Registry{
		state:   state,
		minter:  minter,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetEmitter configures the event emitter used by the registry.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetNowFunc overrides the clock used to stamp trophies.
func (r *Registry) SetNowFunc(now func() int64) {
	if now != nil {
		r.nowFn = now
	}
}

// MintTrophy issues the trophy for roundID to recipient and returns its id.
func (r *Registry) MintTrophy(minter, recipient [20]byte, roundID uint64) (uint64, error) {
	if r == nil || r.state == nil {
		return 0, errNilState
	}
	if minter != r.minter {
		return 0, ErrUnauthorizedMinter
	}
	if roundID == 0 {
		return 0, ErrInvalidRound
	}
	if _, exists, err := r.state.TrophyByRound(roundID); err != nil {
		return 0, err
	} else if exists {
		return 0, ErrAlreadyMinted
	}
	last, err := r.state.TrophyLastID()
	if err != nil {
		return 0, fmt.Errorf("trophy: load sequence: %w", err)
	}
	t := &Trophy{ID: last + 1, RoundID: roundID, Owner: recipient, MintedAt: r.nowFn()}
	if err := r.state.TrophyPut(t); err != nil {
		return 0, err
	}
	r.emitter.Emit(events.TrophyMinted{TrophyID: t.ID, RoundID: roundID, Owner: recipient})
	return t.ID, nil
}

// Trophy returns the trophy with the given id.
func (r *Registry) Trophy(id uint64) (*Trophy, bool, error) {
	if r == nil || r.state == nil {
		return nil, false, errNilState
	}
	return r.state.TrophyGet(id)
}
