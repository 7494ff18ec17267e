package jackpot

import (
	"fmt"
	"math/big"
	"sync"
)

// Bank moves native value between accounts. Transfers to recipients with a
// receive hook run untrusted code and may fail or re-enter the engine.
type Bank interface {
	Transfer(from, to [20]byte, amount *big.Int) error
	Balance(addr [20]byte) (*big.Int, error)
}

// RewardMinter is the call contract of the fungible reward token.
type RewardMinter interface {
	MintReward(minter, recipient [20]byte, amount *big.Int) error
}

// TrophyMinter is the call contract of the non-fungible trophy issuer.
type TrophyMinter interface {
	MintTrophy(minter, recipient [20]byte, roundID uint64) (uint64, error)
}

// Directory resolves collaborator endpoint addresses to implementations.
type Directory interface {
	RewardToken(addr [20]byte) (RewardMinter, bool)
	TrophyIssuer(addr [20]byte) (TrophyMinter, bool)
}

// StaticDirectory is an in-process Directory keyed by endpoint address.
type StaticDirectory struct {
	mu       sync.RWMutex
	tokens   map[[20]byte]RewardMinter
	trophies map[[20]byte]TrophyMinter
}

// NewStaticDirectory returns an empty directory.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{
		tokens:   make(map[[20]byte]RewardMinter),
		trophies: make(map[[20]byte]TrophyMinter),
	}
}

// RegisterRewardToken binds addr to a reward token implementation.
func (d *StaticDirectory) RegisterRewardToken(addr [20]byte, token RewardMinter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokens[addr] = token
}

// RegisterTrophyIssuer binds addr to a trophy issuer implementation.
func (d *StaticDirectory) RegisterTrophyIssuer(addr [20]byte, issuer TrophyMinter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.trophies[addr] = issuer
}

func (d *StaticDirectory) RewardToken(addr [20]byte) (RewardMinter, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	token, ok := d.tokens[addr]
	return token, ok
}

func (d *StaticDirectory) TrophyIssuer(addr [20]byte) (TrophyMinter, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	issuer, ok := d.trophies[addr]
	return issuer, ok
}

// Gateway issues every outbound call the engine makes: value pushes from the
// vault and mint requests to the token and trophy collaborators. Each failure
// is reported under the matching collaborator sentinel.
type Gateway struct {
	bank      Bank
	directory Directory
	vault     [20]byte
}

// NewGateway wires the gateway to its bank and directory. vault is the
// account holding the pot; it is also the minter identity presented to
// collaborators.
func NewGateway(bank Bank, directory Directory, vault [20]byte) *Gateway {
	return &Gateway{bank: bank, directory: directory, vault: vault}
}

// Vault returns the account that holds the pot.
func (g *Gateway) Vault() [20]byte { return g.vault }

// Collect pulls the value attached to a call into the vault.
func (g *Gateway) Collect(from [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if err := g.bank.Transfer(from, g.vault, amount); err != nil {
		return wrapCollaborator(ErrInsufficientFunds, err)
	}
	return nil
}

// Refund returns overpayment to a bidder.
func (g *Gateway) Refund(to [20]byte, amount *big.Int) error {
	return g.push(ErrRefundFailed, to, amount)
}

// PayWinner delivers the winner's share of a settled pot.
func (g *Gateway) PayWinner(to [20]byte, amount *big.Int) error {
	return g.push(ErrPayoutFailed, to, amount)
}

// ForwardCharity pushes the charity cut to the configured charity wallet.
func (g *Gateway) ForwardCharity(cfg *Config, amount *big.Int) error {
	if cfg == nil || isZeroAddress(cfg.Charity) {
		return ErrNotConfigured
	}
	return g.push(ErrCharityTransferFailed, cfg.Charity, amount)
}

// FundReserve routes the non-pot share of a donation to the reward reserve.
func (g *Gateway) FundReserve(cfg *Config, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if cfg == nil || isZeroAddress(cfg.Reserve) {
		return ErrNotConfigured
	}
	return g.push(ErrReserveTransferFailed, cfg.Reserve, amount)
}

// MintReward asks the reward token to mint amount to recipient. Minting is
// skipped when no token is bound or the amount rounds to zero.
func (g *Gateway) MintReward(cfg *Config, recipient [20]byte, amount *big.Int) error {
	if cfg == nil || isZeroAddress(cfg.Token) || amount == nil || amount.Sign() == 0 {
		return nil
	}
	token, ok := g.directory.RewardToken(cfg.Token)
	if !ok {
		return wrapCollaborator(ErrMintFailed, fmt.Errorf("no reward token at endpoint %x", cfg.Token))
	}
	if err := token.MintReward(g.vault, recipient, new(big.Int).Set(amount)); err != nil {
		return wrapCollaborator(ErrMintFailed, err)
	}
	return nil
}

// MintTrophy asks the trophy issuer to mint the round's trophy to recipient.
func (g *Gateway) MintTrophy(cfg *Config, recipient [20]byte, roundID uint64) (uint64, error) {
	if cfg == nil || isZeroAddress(cfg.Trophy) {
		return 0, ErrNotConfigured
	}
	issuer, ok := g.directory.TrophyIssuer(cfg.Trophy)
	if !ok {
		return 0, wrapCollaborator(ErrTrophyMintFailed, fmt.Errorf("no trophy issuer at endpoint %x", cfg.Trophy))
	}
	id, err := issuer.MintTrophy(g.vault, recipient, roundID)
	if err != nil {
		return 0, wrapCollaborator(ErrTrophyMintFailed, err)
	}
	return id, nil
}

func (g *Gateway) push(sentinel error, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if err := g.bank.Transfer(g.vault, to, new(big.Int).Set(amount)); err != nil {
		return wrapCollaborator(sentinel, err)
	}
	return nil
}
