package config

import (
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"jackpotchain/core"
	"jackpotchain/crypto"
	"jackpotchain/native/jackpot"
	telemetry "jackpotchain/observability/otel"
)

const (
	EnvEnvironment = "JACKPOT_ENV"
	EnvAPISecret   = "JACKPOT_API_SECRET"

	defaultGenesisBalance = "1000000000000000000000"
)

type Config struct {
	Node      Node         `toml:"node"`
	Jackpot   Jackpot      `toml:"jackpot"`
	API       API          `toml:"api"`
	Telemetry Telemetry    `toml:"telemetry"`
	Genesis   []Allocation `toml:"genesis"`
}

type loadOptions struct {
	passphrase func() (string, error)
	strength   crypto.KeystoreStrength
}

// LoadOption tunes how Load bootstraps a missing configuration.
type LoadOption func(*loadOptions)

// WithKeystorePassphrase encrypts the generated owner key with passphrase.
func WithKeystorePassphrase(passphrase string) LoadOption {
	return func(o *loadOptions) {
		o.passphrase = func() (string, error) { return passphrase, nil }
	}
}

// WithKeystorePassphraseSource resolves the owner key passphrase lazily, only
// when a default configuration has to be generated.
func WithKeystorePassphraseSource(source func() (string, error)) LoadOption {
	return func(o *loadOptions) { o.passphrase = source }
}

// WithKeystoreStrength selects the scrypt cost of the generated owner key.
func WithKeystoreStrength(strength crypto.KeystoreStrength) LoadOption {
	return func(o *loadOptions) { o.strength = strength }
}

// Load loads the configuration from the given path. A missing file is
// replaced by a devnet default whose owner key is written next to it.
// Environment overrides are applied last.
func Load(path string, opts ...LoadOption) (*Config, error) {
	options := loadOptions{strength: crypto.KeystoreStandard}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	var cfg *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err = createDefault(path, options)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		cfg = &Config{}
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config: unknown key %s in %s", undecoded[0], path)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Node.ListenAddress) == "" {
		c.Node.ListenAddress = ":8080"
	}
	if strings.TrimSpace(c.Node.DataDir) == "" {
		c.Node.DataDir = "./jackpot-data"
	}
	if strings.TrimSpace(c.Node.ChainID) == "" {
		c.Node.ChainID = "jackpot-local"
	}
	if strings.TrimSpace(c.Node.Environment) == "" {
		c.Node.Environment = "dev"
	}
	if c.Node.ReadTimeoutSeconds <= 0 {
		c.Node.ReadTimeoutSeconds = 15
	}
	if c.Node.WriteTimeoutSeconds <= 0 {
		c.Node.WriteTimeoutSeconds = 15
	}
	if c.API.RateLimitPerSecond == 0 {
		c.API.RateLimitPerSecond = 20
	}
	if c.API.RateLimitBurst == 0 {
		c.API.RateLimitBurst = 40
	}
	if c.Genesis == nil {
		c.Genesis = []Allocation{}
	}
}

func (c *Config) applyEnv() {
	if env := strings.TrimSpace(os.Getenv(EnvEnvironment)); env != "" {
		c.Node.Environment = env
	}
	if secret := strings.TrimSpace(os.Getenv(EnvAPISecret)); secret != "" {
		c.API.JWTSecret = secret
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string, options loadOptions) (*Config, error) {
	keystorePath := defaultKeystorePath(path)
	passphrase := ""
	if options.passphrase != nil {
		var err error
		if passphrase, err = options.passphrase(); err != nil {
			return nil, fmt.Errorf("config: owner keystore passphrase: %w", err)
		}
	}
	key, err := crypto.CreateKeystore(keystorePath, passphrase, options.strength)
	if err != nil {
		return nil, err
	}
	owner := crypto.FormatAddress(key.PubKey().Address().Array())

	cfg := &Config{
		Node: Node{
			ListenAddress:       ":8080",
			DataDir:             "./jackpot-data",
			ChainID:             "jackpot-local",
			Environment:         "dev",
			LogLevel:            "info",
			OwnerKeystorePath:   keystorePath,
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 15,
		},
		Jackpot: Jackpot{
			Owner:             owner,
			BasePrice:         "1000000000000000",
			GrowthStep:        "0",
			GrowthFactorBps:   10_100,
			BaseDuration:      "24h",
			ExtensionDuration: "1h",
			CharityBps:        1000,
			DonationPotBps:    5000,
			RewardBps:         100,
			Reserve:           owner,
			Charity:           owner,
		},
		API: API{
			JWTIssuer:          "jackpotd",
			JWTAudience:        "jackpot-admin",
			RateLimitPerSecond: 20,
			RateLimitBurst:     40,
		},
		Telemetry: Telemetry{Traces: true, Metrics: true, SampleRatio: 1},
		Genesis:   []Allocation{{Address: owner, Balance: defaultGenesisBalance}},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "owner.keystore")
}

func parseAmount(field, raw string, allowZero bool) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		if allowZero {
			return big.NewInt(0), nil
		}
		return nil, fmt.Errorf("%s required", field)
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%s: invalid amount %q", field, raw)
	}
	if value.Sign() < 0 || (!allowZero && value.Sign() == 0) {
		return nil, fmt.Errorf("%s must be positive", field)
	}
	return value, nil
}

func parseOptionalAddress(field, raw string, fallback [20]byte) ([20]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return addr, fmt.Errorf("%s: %w", field, err)
	}
	return addr, nil
}

// JackpotConfig converts the jackpot section into the engine configuration.
func (c *Config) JackpotConfig() (*jackpot.Config, error) {
	j := c.Jackpot
	owner, err := crypto.ParseAddress(j.Owner)
	if err != nil {
		return nil, fmt.Errorf("jackpot.Owner: %w", err)
	}
	basePrice, err := parseAmount("jackpot.BasePrice", j.BasePrice, false)
	if err != nil {
		return nil, err
	}
	step, err := parseAmount("jackpot.GrowthStep", j.GrowthStep, true)
	if err != nil {
		return nil, err
	}
	base, err := time.ParseDuration(strings.TrimSpace(j.BaseDuration))
	if err != nil {
		return nil, fmt.Errorf("jackpot.BaseDuration: %w", err)
	}
	ext, err := time.ParseDuration(strings.TrimSpace(j.ExtensionDuration))
	if err != nil {
		return nil, fmt.Errorf("jackpot.ExtensionDuration: %w", err)
	}
	reserve, err := parseOptionalAddress("jackpot.Reserve", j.Reserve, [20]byte{})
	if err != nil {
		return nil, err
	}
	charity, err := parseOptionalAddress("jackpot.Charity", j.Charity, [20]byte{})
	if err != nil {
		return nil, err
	}
	token, err := parseOptionalAddress("jackpot.Token", j.Token, core.RewardTokenAddress)
	if err != nil {
		return nil, err
	}
	trophy, err := parseOptionalAddress("jackpot.Trophy", j.Trophy, core.TrophyAddress)
	if err != nil {
		return nil, err
	}
	return &jackpot.Config{
		Owner:             owner,
		BasePrice:         basePrice,
		Growth:            jackpot.PriceGrowth{Step: step, FactorBps: j.GrowthFactorBps},
		BaseDuration:      base,
		ExtensionDuration: ext,
		CharityBps:        j.CharityBps,
		DonationPotBps:    j.DonationPotBps,
		RewardBps:         j.RewardBps,
		Reserve:           reserve,
		Token:             token,
		Trophy:            trophy,
		Charity:           charity,
	}, nil
}

// GenesisAllocations parses the genesis section.
func (c *Config) GenesisAllocations() ([]core.Allocation, error) {
	out := make([]core.Allocation, 0, len(c.Genesis))
	for i, alloc := range c.Genesis {
		addr, err := crypto.ParseAddress(alloc.Address)
		if err != nil {
			return nil, fmt.Errorf("genesis[%d].Address: %w", i, err)
		}
		balance, err := parseAmount(fmt.Sprintf("genesis[%d].Balance", i), alloc.Balance, false)
		if err != nil {
			return nil, err
		}
		out = append(out, core.Allocation{Address: addr, Balance: balance})
	}
	return out, nil
}

// NodeConfig assembles the node wiring from the file.
func (c *Config) NodeConfig(logger *slog.Logger) (core.Config, error) {
	jp, err := c.JackpotConfig()
	if err != nil {
		return core.Config{}, err
	}
	genesis, err := c.GenesisAllocations()
	if err != nil {
		return core.Config{}, err
	}
	return core.Config{
		ChainID: c.Node.ChainID,
		Jackpot: jp,
		Genesis: genesis,
		Logger:  logger,
	}, nil
}

// TelemetryConfig returns the exporter settings with OTEL_* overrides.
func (c *Config) TelemetryConfig(service string) telemetry.Config {
	return telemetry.FromEnv(telemetry.Config{
		ServiceName: service,
		Environment: c.Node.Environment,
		Endpoint:    c.Telemetry.OTLPEndpoint,
		Insecure:    c.Telemetry.Insecure,
		Traces:      c.Telemetry.Traces,
		Metrics:     c.Telemetry.Metrics,
		SampleRatio: c.Telemetry.SampleRatio,
	})
}
