package config

import "github.com/caarlos0/env/v11"

// X402Config holds the payment rail the entry route accepts authorizations for.
type X402Config struct {
	Enabled             bool   `env:"X402_ENABLED" envDefault:"true"`
	Network             string `env:"X402_NETWORK" envDefault:"base-sepolia"`
	ChainID             int64  `env:"X402_CHAIN_ID" envDefault:"84532"`
	TokenAddress        string `env:"X402_TOKEN_ADDRESS,required,notEmpty"`
	SettlementAddress   string `env:"X402_SETTLEMENT_ADDRESS,required,notEmpty"`
	TokenDecimals       int    `env:"X402_TOKEN_DECIMALS" envDefault:"6"`
	DomainName          string `env:"X402_EIP3009_DOMAIN_NAME" envDefault:"USD Coin"`
	DomainVersion       string `env:"X402_EIP3009_DOMAIN_VERSION" envDefault:"2"`
	NonceTTLSeconds     int    `env:"X402_NONCE_TTL_SECONDS" envDefault:"300"`
	PaymentHeader       string `env:"X402_PAYMENT_HEADER" envDefault:"X-PAYMENT"`
	DefaultEntryFeeUSDC string `env:"X402_DEFAULT_ENTRY_FEE_USDC" envDefault:"5.000000"`
}

func LoadX402() (X402Config, error) {
	var cfg X402Config
	err := env.Parse(&cfg)
	return cfg, err
}
