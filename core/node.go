package core

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"jackpotchain/core/events"
	"jackpotchain/core/state"
	"jackpotchain/core/types"
	"jackpotchain/crypto"
	"jackpotchain/native/bank"
	"jackpotchain/native/jackpot"
	"jackpotchain/native/rewardtoken"
	"jackpotchain/native/trophy"
	"jackpotchain/observability"
	telemetry "jackpotchain/observability/otel"
	"jackpotchain/storage"
)

var (
	ErrChainIDMismatch = errors.New("node: chain id mismatch")
	ErrNonceMismatch   = errors.New("node: nonce mismatch")
	ErrInvalidTx       = errors.New("node: invalid transaction")
)

// Well-known system accounts. They have no private key.
var (
	VaultAddress       = systemAddress("jackpot/vault")
	RewardTokenAddress = systemAddress("jackpot/reward-token")
	TrophyAddress      = systemAddress("jackpot/trophy")
)

func systemAddress(label string) [20]byte {
	var out [20]byte
	copy(out[:], ethcrypto.Keccak256([]byte(label))[12:])
	return out
}

// Allocation credits a genesis balance.
type Allocation struct {
	Address [20]byte
	Balance *big.Int
}

// Config wires a node.
type Config struct {
	ChainID string
	Jackpot *jackpot.Config
	Genesis []Allocation
	Logger  *slog.Logger
	// Now overrides the unix-seconds clock; nil uses the wall clock.
	Now func() int64
}

// Receipt describes an applied transaction.
type Receipt struct {
	ID        string         `json:"id"`
	TxHash    string         `json:"txHash"`
	Type      string         `json:"type"`
	Sender    string         `json:"sender"`
	Nonce     uint64         `json:"nonce"`
	AppliedAt int64          `json:"appliedAt"`
	Events    []*types.Event `json:"events"`
}

// RoundView is a consistent read of the live round and derived values.
type RoundView struct {
	Round               *jackpot.Round
	Phase               jackpot.Phase
	CharityAmount       *big.Int
	TimeUntilWithdrawal time.Duration
	BaseDuration        time.Duration
	ExtensionDuration   time.Duration
	Now                 int64
}

// AccountView is a read of one account.
type AccountView struct {
	Address       [20]byte
	Nonce         uint64
	Balance       *big.Int
	RewardBalance *big.Int
}

// Node is the central controller, wiring all components together. Every
// call is serialised by stateMu, which makes each transaction one atomic
// transition over the staged state.
type Node struct {
	db       storage.Database
	state    *state.Manager
	ledger   *bank.Ledger
	engine   *jackpot.Engine
	token    *rewardtoken.Token
	trophies *trophy.Registry
	buffer   *events.Buffer
	sink     events.Emitter
	chainID  string
	nowFn    func() int64
	logger   *slog.Logger
	metrics  *observability.JackpotMetrics
	stateMu  sync.Mutex
}

// NewNode opens the node over db. On an empty database the genesis
// allocations are credited and the jackpot is initialised in one commit.
func NewNode(db storage.Database, cfg Config) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("node: database required")
	}
	if cfg.ChainID == "" {
		return nil, fmt.Errorf("node: chain id required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}

	n := &Node{
		db:      db,
		state:   state.NewManager(db),
		buffer:  &events.Buffer{},
		sink:    events.NoopEmitter{},
		chainID: cfg.ChainID,
		nowFn:   now,
		logger:  logger.With("component", "node"),
		metrics: observability.Jackpot(),
	}
	n.ledger = bank.NewLedger(n.state)
	n.ledger.SetEmitter(n.buffer)
	n.token = rewardtoken.NewToken(n.state, VaultAddress)
	n.token.SetEmitter(n.buffer)
	n.trophies = trophy.NewRegistry(n.state, VaultAddress)
	n.trophies.SetEmitter(n.buffer)
	n.trophies.SetNowFunc(now)

	directory := jackpot.NewStaticDirectory()
	directory.RegisterRewardToken(RewardTokenAddress, n.token)
	directory.RegisterTrophyIssuer(TrophyAddress, n.trophies)

	n.engine = jackpot.NewEngine()
	n.engine.SetState(n.state)
	n.engine.SetGateway(jackpot.NewGateway(n.ledger, directory, VaultAddress))
	n.engine.SetEmitter(n.buffer)
	n.engine.SetNowFunc(now)

	if err := n.initGenesis(cfg); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Node) initGenesis(cfg Config) error {
	if _, initialised, err := n.state.JackpotConfigGet(); err != nil {
		return err
	} else if initialised {
		n.logger.Info("resuming from existing state")
		return nil
	}
	if cfg.Jackpot == nil {
		return fmt.Errorf("node: jackpot config required for genesis")
	}
	for _, alloc := range cfg.Genesis {
		if err := n.ledger.Credit(alloc.Address, alloc.Balance); err != nil {
			n.state.Discard()
			return fmt.Errorf("node: genesis allocation %s: %w", crypto.FormatAddress(alloc.Address), err)
		}
	}
	round, err := n.engine.Initialize(cfg.Jackpot)
	if err != nil {
		n.state.Discard()
		n.buffer.Reset()
		return fmt.Errorf("node: initialise jackpot: %w", err)
	}
	if err := n.state.Commit(); err != nil {
		return err
	}
	n.buffer.Reset()
	n.logger.Info("genesis applied", "allocations", len(cfg.Genesis), "round", round.ID)
	n.observeRound()
	return nil
}

// SetEventSink receives the events of every committed transaction.
func (n *Node) SetEventSink(sink events.Emitter) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if sink == nil {
		sink = events.NoopEmitter{}
	}
	n.sink = sink
}

// RegisterReceiver attaches a receive hook to a contract-like account.
func (n *Node) RegisterReceiver(addr [20]byte, receiver bank.Receiver) {
	n.ledger.RegisterReceiver(addr, receiver)
}

// Engine exposes the jackpot engine so receive hooks can call back into it
// while a transaction is being applied. It must not be used outside a hook.
func (n *Node) Engine() *jackpot.Engine { return n.engine }

func (n *Node) ChainID() string { return n.chainID }

// ErrorKind classifies err for callers that map failures to responses.
func ErrorKind(err error) jackpot.Kind {
	if kind := jackpot.KindOf(err); kind != jackpot.KindInternal {
		return kind
	}
	switch {
	case errors.Is(err, ErrChainIDMismatch), errors.Is(err, ErrNonceMismatch), errors.Is(err, ErrInvalidTx),
		errors.Is(err, bank.ErrInsufficientBalance), errors.Is(err, bank.ErrSelfTransfer), errors.Is(err, bank.ErrInvalidAmount):
		return jackpot.KindValidation
	}
	return jackpot.KindInternal
}

// ApplyTransaction verifies and applies a signed transaction. Either every
// effect of the transaction is committed or none is.
func (n *Node) ApplyTransaction(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: nil transaction", ErrInvalidTx)
	}
	op := tx.Type.String()
	_, span := telemetry.Tracer().Start(ctx, "node.apply")
	span.SetAttributes(attribute.String("tx.type", op), attribute.Int64("tx.nonce", int64(tx.Nonce)))
	defer span.End()

	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	started := time.Now()
	receipt, err := n.apply(tx)
	if err != nil {
		n.state.Discard()
		n.buffer.Reset()
		kind := ErrorKind(err)
		n.metrics.RecordRejected(op, kind.String())
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())
		n.logger.Warn("transaction rejected", "type", op, "nonce", tx.Nonce, "kind", kind.String(), "error", err)
		return nil, err
	}
	n.metrics.RecordApplied(op, time.Since(started))
	n.observeRound()
	n.logger.Info("transaction applied", "type", op, "sender", receipt.Sender, "nonce", receipt.Nonce, "receipt", receipt.ID)
	return receipt, nil
}

func (n *Node) apply(tx *types.Transaction) (*Receipt, error) {
	if !tx.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type 0x%02x", ErrInvalidTx, byte(tx.Type))
	}
	if tx.ChainID != n.chainID {
		return nil, fmt.Errorf("%w: got %q", ErrChainIDMismatch, tx.ChainID)
	}
	sender, err := tx.Sender()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	account, err := n.state.GetAccount(sender)
	if err != nil {
		return nil, err
	}
	if tx.Nonce != account.Nonce {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrNonceMismatch, account.Nonce, tx.Nonce)
	}

	if err := n.dispatch(tx, sender); err != nil {
		return nil, err
	}

	// Reload: the dispatched operation may have moved this account's balance.
	account, err = n.state.GetAccount(sender)
	if err != nil {
		return nil, err
	}
	account.Nonce++
	if err := n.state.PutAccount(sender, account); err != nil {
		return nil, err
	}
	if err := n.state.Commit(); err != nil {
		return nil, err
	}

	flushed := n.buffer.Flush(n.sink)
	receipt := &Receipt{
		ID:        uuid.NewString(),
		TxHash:    "0x" + hex.EncodeToString(hash),
		Type:      tx.Type.String(),
		Sender:    crypto.FormatAddress(sender),
		Nonce:     tx.Nonce,
		AppliedAt: n.nowFn(),
		Events:    make([]*types.Event, 0, len(flushed)),
	}
	for _, evt := range flushed {
		if payload, ok := evt.(events.Payload); ok {
			receipt.Events = append(receipt.Events, payload.Event())
		}
		if evt.EventType() == jackpot.EventTypeRoundSettled {
			n.recordSettlement(evt)
		}
	}
	return receipt, nil
}

func (n *Node) dispatch(tx *types.Transaction, sender [20]byte) error {
	switch tx.Type {
	case types.TxTypeTransfer:
		to, err := tx.Recipient()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTx, err)
		}
		amount := tx.Amount()
		if amount.Sign() <= 0 {
			return fmt.Errorf("%w: transfer amount must be positive", ErrInvalidTx)
		}
		return n.ledger.Transfer(sender, to, amount)
	case types.TxTypeBid:
		_, err := n.engine.Bid(sender, tx.Amount())
		return err
	case types.TxTypeDonate:
		_, err := n.engine.Donate(sender, tx.Amount())
		return err
	case types.TxTypeClaim:
		_, err := n.engine.Claim(sender)
		return err
	case types.TxTypeSetToken, types.TxTypeSetTrophy, types.TxTypeSetCharity:
		to, err := tx.Recipient()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTx, err)
		}
		return n.engine.SetEndpoint(sender, endpointFor(tx.Type), to)
	default:
		return fmt.Errorf("%w: unsupported type %s", ErrInvalidTx, tx.Type)
	}
}

func endpointFor(t types.TxType) jackpot.Endpoint {
	switch t {
	case types.TxTypeSetToken:
		return jackpot.EndpointToken
	case types.TxTypeSetTrophy:
		return jackpot.EndpointTrophy
	default:
		return jackpot.EndpointCharity
	}
}

func (n *Node) recordSettlement(evt events.Event) {
	payload, ok := evt.(events.Payload)
	if !ok || payload.Event() == nil {
		return
	}
	attrs := payload.Event().Attributes
	charity, _ := new(big.Int).SetString(attrs["charityCut"], 10)
	winner, _ := new(big.Int).SetString(attrs["winnerPayout"], 10)
	n.metrics.RecordSettlement(charity, winner)
}

func (n *Node) observeRound() {
	round, err := n.engine.Round()
	if err != nil {
		return
	}
	n.metrics.ObserveRound(round.ID, round.Pot, round.CurrentPrice, round.Deadline)
}

// Round returns a consistent view of the live round.
func (n *Node) Round() (*RoundView, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	round, err := n.engine.Round()
	if err != nil {
		return nil, err
	}
	cfg, err := n.engine.Config()
	if err != nil {
		return nil, err
	}
	now := n.nowFn()
	return &RoundView{
		Round:               round,
		Phase:               round.PhaseAt(now),
		CharityAmount:       jackpot.CharityAmount(round.Pot, cfg.CharityBps),
		TimeUntilWithdrawal: jackpot.TimeUntilWithdrawal(round.Deadline, now),
		BaseDuration:        cfg.BaseDuration,
		ExtensionDuration:   cfg.ExtensionDuration,
		Now:                 now,
	}, nil
}

// BidPrice returns the amount the next bid must offer.
func (n *Node) BidPrice() (*big.Int, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.BidPrice()
}

// CurrentPot returns the pot of the live round.
func (n *Node) CurrentPot() (*big.Int, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.CurrentPot()
}

// CurrentCharityAmount returns the charity cut a claim would pay now.
func (n *Node) CurrentCharityAmount() (*big.Int, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.CurrentCharityAmount()
}

// TimeUntilWithdrawal returns the remaining countdown of the live round.
func (n *Node) TimeUntilWithdrawal() (time.Duration, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.TimeUntilWithdrawal()
}

// Config returns the jackpot configuration.
func (n *Node) Config() (*jackpot.Config, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.Config()
}

// Stats returns the lifetime counters.
func (n *Node) Stats() (*jackpot.Stats, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.Stats()
}

// Settlement returns the settlement of a finished round.
func (n *Node) Settlement(roundID uint64) (*jackpot.Settlement, bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.Settlement(roundID)
}

// Trophy returns an issued trophy.
func (n *Node) Trophy(id uint64) (*trophy.Trophy, bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.trophies.Trophy(id)
}

// Account returns the native and reward balances of addr.
func (n *Node) Account(addr [20]byte) (*AccountView, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	account, err := n.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	reward, err := n.token.BalanceOf(addr)
	if err != nil {
		return nil, err
	}
	return &AccountView{Address: addr, Nonce: account.Nonce, Balance: account.Balance, RewardBalance: reward}, nil
}

// CheckSolvency verifies the vault holds at least the live pot.
func (n *Node) CheckSolvency() error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.CheckSolvency()
}

// VaultBalance returns the native balance of the vault.
func (n *Node) VaultBalance() (*big.Int, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.ledger.Balance(VaultAddress)
}

// Close releases the underlying database.
func (n *Node) Close() error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	n.state.Discard()
	if err := n.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
