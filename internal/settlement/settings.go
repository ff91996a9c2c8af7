package settlement

import (
	"fmt"
	"strings"

	"tournament-settlement/internal/config"
	"tournament-settlement/internal/usdc"

	"github.com/shopspring/decimal"
)

// Settings are fixed at construction; the service never reads config itself.
type Settings struct {
	JudgeFeePerCompletedMatch decimal.Decimal
	SystemRetentionRate       decimal.Decimal
}

func NewSettings(judgeFeePerMatch, retentionRate decimal.Decimal) (Settings, error) {
	if judgeFeePerMatch.Sign() < 0 {
		return Settings{}, fmt.Errorf("%w: judge fee per completed match must be non-negative", ErrInvalidSettings)
	}
	return Settings{
		JudgeFeePerCompletedMatch: judgeFeePerMatch,
		SystemRetentionRate:       usdc.Clamp01(retentionRate),
	}, nil
}

func SettingsFromConfig(cfg config.TournamentConfig) (Settings, error) {
	fee, err := usdc.Parse(strings.TrimSpace(cfg.JudgeFeePerCompletedMatchUSDC))
	if err != nil {
		return Settings{}, fmt.Errorf("%w: TOURNAMENT_JUDGE_FEE_USDC_PER_COMPLETED_MATCH: %v", ErrInvalidSettings, err)
	}
	rate, err := usdc.Parse(strings.TrimSpace(cfg.SystemRetentionRate))
	if err != nil {
		return Settings{}, fmt.Errorf("%w: TOURNAMENT_SYSTEM_RETENTION_RATE: %v", ErrInvalidSettings, err)
	}
	return NewSettings(fee, rate)
}

// requestedJudgeFee is fee × completed matches; a negative count counts as zero.
func (s Settings) requestedJudgeFee(matchesCompleted int) decimal.Decimal {
	if matchesCompleted < 0 {
		matchesCompleted = 0
	}
	return s.JudgeFeePerCompletedMatch.Mul(decimal.NewFromInt(int64(matchesCompleted)))
}
