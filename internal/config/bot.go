package config

import "github.com/caarlos0/env/v11"

type BotConfig struct {
	BaseURL       string `env:"BOT_BASE_URL" envDefault:"http://localhost:8080"`
	TournamentID  string `env:"BOT_TOURNAMENT_ID,required,notEmpty"`
	AgentID       string `env:"AGENT_ID" envDefault:"bot"`
	PrivateKeyHex string `env:"BOT_PRIVATE_KEY,required,notEmpty"`
	ValidSeconds  int64  `env:"BOT_AUTHORIZATION_VALID_SECONDS" envDefault:"600"`

	// Used only when the server's challenge omits the signing domain.
	DomainName    string `env:"BOT_EIP3009_DOMAIN_NAME" envDefault:"USD Coin"`
	DomainVersion string `env:"BOT_EIP3009_DOMAIN_VERSION" envDefault:"2"`
	TokenDecimals int    `env:"BOT_TOKEN_DECIMALS" envDefault:"6"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
