package bank

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"jackpotchain/core/events"
	"jackpotchain/core/types"
)

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrInvalidAmount       = errors.New("bank: amount must not be negative")
	ErrSelfTransfer        = errors.New("bank: sender and recipient must differ")
	errNilState            = errors.New("bank: state not configured")
)

type ledgerState interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// Receiver is invoked after value lands in a hooked account. Returning an
// error aborts the surrounding operation; a receiver may also call back into
// any public operation before it returns.
type Receiver interface {
	OnReceive(from [20]byte, amount *big.Int) error
}

// ReceiverFunc adapts a function to the Receiver interface.
type ReceiverFunc func(from [20]byte, amount *big.Int) error

func (f ReceiverFunc) OnReceive(from [20]byte, amount *big.Int) error {
	if f == nil {
		return nil
	}
	return f(from, amount)
}

// Ledger moves native value between accounts held in state.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter

	mu        sync.RWMutex
	receivers map[[20]byte]Receiver
}

// NewLedger constructs a ledger over the supplied state.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{
		state:     state,
		emitter:   events.NoopEmitter{},
		receivers: make(map[[20]byte]Receiver),
	}
}

// SetEmitter configures the event emitter used by the ledger.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// RegisterReceiver attaches a receive hook to addr. A nil receiver removes it.
func (l *Ledger) RegisterReceiver(addr [20]byte, receiver Receiver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if receiver == nil {
		delete(l.receivers, addr)
		return
	}
	l.receivers[addr] = receiver
}

func (l *Ledger) receiver(addr [20]byte) Receiver {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.receivers[addr]
}

// Balance returns the native balance of addr.
func (l *Ledger) Balance(addr [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	account, err := l.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(account.Balance), nil
}

// Credit adds amount to addr without a sender. It is used for genesis
// allocations only.
func (l *Ledger) Credit(addr [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	account, err := l.state.GetAccount(addr)
	if err != nil {
		return err
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return l.state.PutAccount(addr, account)
}

// Transfer moves amount from one account to another and then runs the
// recipient's receive hook, if any. Balances are written before the hook
// runs; callers revert state when Transfer returns an error.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if from == to {
		return ErrSelfTransfer
	}
	sender, err := l.state.GetAccount(from)
	if err != nil {
		return err
	}
	if sender.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, sender.Balance, amount)
	}
	recipient, err := l.state.GetAccount(to)
	if err != nil {
		return err
	}
	sender.Balance = new(big.Int).Sub(sender.Balance, amount)
	recipient.Balance = new(big.Int).Add(recipient.Balance, amount)
	if err := l.state.PutAccount(from, sender); err != nil {
		return err
	}
	if err := l.state.PutAccount(to, recipient); err != nil {
		return err
	}
	l.emitter.Emit(events.Transfer{From: from, To: to, Amount: new(big.Int).Set(amount)})

	if hook := l.receiver(to); hook != nil {
		return hook.OnReceive(from, new(big.Int).Set(amount))
	}
	return nil
}
