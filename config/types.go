package config

// Node controls where the daemon listens and stores its data.
type Node struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	ChainID       string `toml:"ChainID"`
	Environment   string `toml:"Environment"`
	LogFile       string `toml:"LogFile,omitempty"`
	LogLevel      string `toml:"LogLevel,omitempty"`
	// OwnerKeystorePath holds the key generated for a fresh devnet.
	OwnerKeystorePath   string `toml:"OwnerKeystorePath,omitempty"`
	ReadTimeoutSeconds  int    `toml:"ReadTimeoutSeconds"`
	WriteTimeoutSeconds int    `toml:"WriteTimeoutSeconds"`
}

// Jackpot is the genesis configuration of the auction. Amounts are decimal
// strings in base units; durations use Go duration syntax ("24h", "90s").
// Token and Trophy default to the built-in system contracts when empty.
type Jackpot struct {
	Owner             string `toml:"Owner"`
	BasePrice         string `toml:"BasePrice"`
	GrowthStep        string `toml:"GrowthStep"`
	GrowthFactorBps   uint32 `toml:"GrowthFactorBps"`
	BaseDuration      string `toml:"BaseDuration"`
	ExtensionDuration string `toml:"ExtensionDuration"`
	CharityBps        uint32 `toml:"CharityBps"`
	DonationPotBps    uint32 `toml:"DonationPotBps"`
	RewardBps         uint32 `toml:"RewardBps"`
	Reserve           string `toml:"Reserve,omitempty"`
	Charity           string `toml:"Charity"`
	Token             string `toml:"Token,omitempty"`
	Trophy            string `toml:"Trophy,omitempty"`
}

// API configures the HTTP surface.
type API struct {
	JWTSecret          string  `toml:"JWTSecret,omitempty"`
	JWTIssuer          string  `toml:"JWTIssuer,omitempty"`
	JWTAudience        string  `toml:"JWTAudience,omitempty"`
	RateLimitPerSecond float64 `toml:"RateLimitPerSecond"`
	RateLimitBurst     int     `toml:"RateLimitBurst"`
	TrustProxyHeaders  bool    `toml:"TrustProxyHeaders"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	OTLPEndpoint string  `toml:"OTLPEndpoint,omitempty"`
	Insecure     bool    `toml:"Insecure"`
	Traces       bool    `toml:"Traces"`
	Metrics      bool    `toml:"Metrics"`
	SampleRatio  float64 `toml:"SampleRatio"`
}

// Allocation credits a native balance at genesis.
type Allocation struct {
	Address string `toml:"Address"`
	Balance string `toml:"Balance"`
}
