package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	"jackpotchain/cmd/internal/passphrase"
	"jackpotchain/core/types"
	"jackpotchain/crypto"
)

const (
	rpcURLEnv     = "JACKPOT_RPC_URL"
	adminTokenEnv = "JACKPOT_ADMIN_TOKEN"
	keyPassEnv    = "JACKPOT_KEY_PASS"

	defaultRPCURL = "http://127.0.0.1:8080"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type cli struct {
	client *apiClient
	stdout io.Writer
	pass   *passphrase.Source
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("jackpot-cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	rpcURL := fs.String("rpc", envOr(rpcURLEnv, defaultRPCURL), "API base URL (overrides "+rpcURLEnv+")")
	token := fs.String("token", os.Getenv(adminTokenEnv), "admin bearer token (overrides "+adminTokenEnv+")")
	light := fs.Bool("light", false, "generate-key: use cheap scrypt parameters (devnet only)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(stderr, err)
		printUsage(stderr)
		return 2
	}
	positional := fs.Args()
	if len(positional) == 0 {
		printUsage(stderr)
		return 2
	}

	c := &cli{
		client: newAPIClient(*rpcURL, *token),
		stdout: stdout,
		pass:   passphrase.NewSource(keyPassEnv, "key"),
	}
	command, rest := positional[0], positional[1:]

	var err error
	switch command {
	case "generate-key":
		err = c.generateKey(rest, *light)
	case "address":
		err = c.address(rest)
	case "status":
		err = c.status()
	case "balance":
		err = c.balance(rest)
	case "bid":
		err = c.bid(rest)
	case "donate":
		err = c.valueTx(rest, types.TxTypeDonate, "donate <keystore> <amount>")
	case "claim":
		err = c.claim(rest)
	case "transfer":
		err = c.transfer(rest)
	case "set-token":
		err = c.setEndpoint(rest, types.TxTypeSetToken)
	case "set-trophy":
		err = c.setEndpoint(rest, types.TxTypeSetTrophy)
	case "set-charity":
		err = c.setEndpoint(rest, types.TxTypeSetCharity)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", command)
		printUsage(stderr)
		return 2
	}
	if err != nil {
		var usage usageError
		if errors.As(err, &usage) {
			fmt.Fprintf(stderr, "Usage: jackpot-cli %s\n", string(usage))
			return 2
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: jackpot-cli [--rpc <url>] [--token <jwt>] <command> [args]

Commands:
  generate-key <keystore>            create a new encrypted key (use --light for devnets)
  address <keystore>                 print the address of a key
  status                             show the live round
  balance <address>                  show native and reward balances
  bid <keystore> [amount]            bid; defaults to the current price
  donate <keystore> <amount>         add to the pot without bidding
  claim <keystore>                   claim the lapsed round as its last bidder
  transfer <keystore> <to> <amount>  send native funds
  set-token <keystore> <address>     owner: bind the reward token (admin token required)
  set-trophy <keystore> <address>    owner: bind the trophy issuer
  set-charity <keystore> <address>   owner: bind the charity wallet`)
}

type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be a positive integer")
	}
	return amount, nil
}

func (c *cli) loadKey(path string) (*crypto.PrivateKey, error) {
	pass, err := c.pass.Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("loading key: %w", err)
	}
	return key, nil
}

func (c *cli) generateKey(args []string, light bool) error {
	if len(args) != 1 {
		return usageError("generate-key <keystore>")
	}
	pass, err := passphrase.NewSource(keyPassEnv, "new key").WithConfirmation().Get()
	if err != nil {
		return err
	}
	strength := crypto.KeystoreStandard
	if light {
		strength = crypto.KeystoreLight
	}
	key, err := crypto.CreateKeystore(args[0], pass, strength)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Address: %s\n", crypto.FormatAddress(key.PubKey().Address().Array()))
	fmt.Fprintf(c.stdout, "Keystore: %s\n", args[0])
	return nil
}

func (c *cli) address(args []string) error {
	if len(args) != 1 {
		return usageError("address <keystore>")
	}
	key, err := c.loadKey(args[0])
	if err != nil {
		return err
	}
	addr := key.PubKey().Address()
	fmt.Fprintf(c.stdout, "%s\n%s\n", addr.String(), addr.Hex())
	return nil
}

func (c *cli) status() error {
	round, err := c.client.round()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Round:          %d (%s)\n", round.ID, round.Phase)
	fmt.Fprintf(c.stdout, "Pot:            %s\n", round.Pot)
	fmt.Fprintf(c.stdout, "Next bid price: %s\n", round.CurrentPrice)
	fmt.Fprintf(c.stdout, "Charity cut:    %s\n", round.CharityAmount)
	fmt.Fprintf(c.stdout, "Bids:           %d\n", round.BidCount)
	if round.LastBidder != "" {
		fmt.Fprintf(c.stdout, "Last bidder:    %s\n", round.LastBidder)
		fmt.Fprintf(c.stdout, "Deadline:       %s (in %s)\n",
			time.Unix(round.Deadline, 0).UTC().Format(time.RFC3339),
			time.Duration(round.TimeUntilWithdrawalSeconds)*time.Second)
	}
	return nil
}

func (c *cli) balance(args []string) error {
	if len(args) != 1 {
		return usageError("balance <address>")
	}
	account, err := c.client.account(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Address: %s\nBalance: %s\nRewards: %s\nNonce:   %d\n",
		account.Address, account.Balance, account.RewardBalance, account.Nonce)
	return nil
}

func (c *cli) bid(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usageError("bid <keystore> [amount]")
	}
	var amount *big.Int
	if len(args) == 2 {
		parsed, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		amount = parsed
	} else {
		round, err := c.client.round()
		if err != nil {
			return err
		}
		if amount, err = parseAmount(round.CurrentPrice); err != nil {
			return fmt.Errorf("node reported price %q: %w", round.CurrentPrice, err)
		}
	}
	return c.sign(args[0], types.TxTypeBid, nil, amount)
}

func (c *cli) valueTx(args []string, typ types.TxType, usage string) error {
	if len(args) != 2 {
		return usageError(usage)
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	return c.sign(args[0], typ, nil, amount)
}

func (c *cli) claim(args []string) error {
	if len(args) != 1 {
		return usageError("claim <keystore>")
	}
	return c.sign(args[0], types.TxTypeClaim, nil, nil)
}

func (c *cli) transfer(args []string) error {
	if len(args) != 3 {
		return usageError("transfer <keystore> <to> <amount>")
	}
	to, err := crypto.ParseAddress(args[1])
	if err != nil {
		return err
	}
	amount, err := parseAmount(args[2])
	if err != nil {
		return err
	}
	return c.sign(args[0], types.TxTypeTransfer, to[:], amount)
}

func (c *cli) setEndpoint(args []string, typ types.TxType) error {
	if len(args) != 2 {
		return usageError(strings.ReplaceAll(typ.String(), "_", "-") + " <keystore> <address>")
	}
	addr, err := crypto.ParseAddress(args[1])
	if err != nil {
		return err
	}
	return c.sign(args[0], typ, addr[:], nil)
}

// sign builds, signs and submits a transaction using the account's current
// nonce and the node's chain id.
func (c *cli) sign(keystore string, typ types.TxType, to []byte, value *big.Int) error {
	key, err := c.loadKey(keystore)
	if err != nil {
		return err
	}
	chainID, err := c.client.chainID()
	if err != nil {
		return fmt.Errorf("fetching chain id: %w", err)
	}
	sender := crypto.FormatAddress(key.PubKey().Address().Array())
	account, err := c.client.account(sender)
	if err != nil {
		return fmt.Errorf("fetching account: %w", err)
	}
	tx := &types.Transaction{
		ChainID: chainID,
		Type:    typ,
		Nonce:   account.Nonce,
		To:      to,
		Value:   value,
	}
	if err := tx.Sign(key.PrivateKey); err != nil {
		return fmt.Errorf("signing transaction: %w", err)
	}
	receipt, err := c.client.submit(tx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Applied %s %s\n", receipt.Type, receipt.TxHash)
	for _, evt := range receipt.Events {
		if evt == nil {
			continue
		}
		fmt.Fprintf(c.stdout, "  %s\n", evt.Type)
	}
	return nil
}
