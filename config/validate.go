package config

import (
	"fmt"
	"strings"

	"jackpotchain/native/jackpot"
)

// Validate rejects configurations the daemon cannot start with. The jackpot
// section is checked with the same rules the engine applies at genesis.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Node.ListenAddress) == "" {
		return fmt.Errorf("node: ListenAddress required")
	}
	if strings.TrimSpace(c.Node.DataDir) == "" {
		return fmt.Errorf("node: DataDir required")
	}
	if strings.TrimSpace(c.Node.ChainID) == "" {
		return fmt.Errorf("node: ChainID required")
	}
	jp, err := c.JackpotConfig()
	if err != nil {
		return err
	}
	if err := jackpot.ValidateConfig(jp); err != nil {
		return err
	}
	if _, err := c.GenesisAllocations(); err != nil {
		return err
	}
	if c.API.RateLimitPerSecond < 0 || c.API.RateLimitBurst < 0 {
		return fmt.Errorf("api: rate limit must not be negative")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0, 1]")
	}
	return nil
}
