package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type TournamentConfig struct {
	JudgeFeePerCompletedMatchUSDC string        `env:"TOURNAMENT_JUDGE_FEE_USDC_PER_COMPLETED_MATCH" envDefault:"0.250000"`
	SystemRetentionRate           string        `env:"TOURNAMENT_SYSTEM_RETENTION_RATE" envDefault:"0.050000"`
	SweepInterval                 time.Duration `env:"SETTLEMENT_SWEEP_INTERVAL" envDefault:"1m"`
}

func LoadTournament() (TournamentConfig, error) {
	var cfg TournamentConfig
	err := env.Parse(&cfg)
	return cfg, err
}
