package x402

import (
	"fmt"
	"strings"
	"time"

	"tournament-settlement/internal/config"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Settings is the immutable payment configuration handed to the verifier and
// recorder at construction.
type Settings struct {
	Enabled           bool
	Network           string
	ChainID           int64
	TokenAddress      common.Address
	SettlementAddress common.Address
	TokenDecimals     int
	DomainName        string
	DomainVersion     string
	NonceTTL          time.Duration
	PaymentHeader     string
	DefaultEntryFee   decimal.Decimal
}

func SettingsFromConfig(cfg config.X402Config) (Settings, error) {
	token, err := normalizeAddress(cfg.TokenAddress, "X402_TOKEN_ADDRESS")
	if err != nil {
		return Settings{}, fmt.Errorf("x402 config: %w", err)
	}
	settlement, err := normalizeAddress(cfg.SettlementAddress, "X402_SETTLEMENT_ADDRESS")
	if err != nil {
		return Settings{}, fmt.Errorf("x402 config: %w", err)
	}
	if cfg.TokenDecimals < 0 {
		return Settings{}, fmt.Errorf("x402 config: X402_TOKEN_DECIMALS must be non-negative")
	}
	fee, err := decimal.NewFromString(strings.TrimSpace(cfg.DefaultEntryFeeUSDC))
	if err != nil {
		return Settings{}, fmt.Errorf("x402 config: X402_DEFAULT_ENTRY_FEE_USDC: %w", err)
	}
	header := strings.TrimSpace(cfg.PaymentHeader)
	if header == "" {
		header = "X-PAYMENT"
	}
	return Settings{
		Enabled:           cfg.Enabled,
		Network:           cfg.Network,
		ChainID:           cfg.ChainID,
		TokenAddress:      token,
		SettlementAddress: settlement,
		TokenDecimals:     cfg.TokenDecimals,
		DomainName:        cfg.DomainName,
		DomainVersion:     cfg.DomainVersion,
		NonceTTL:          time.Duration(cfg.NonceTTLSeconds) * time.Second,
		PaymentHeader:     header,
		DefaultEntryFee:   fee,
	}, nil
}

// ChallengeTTL is the nonce TTL with a one second floor.
func (s Settings) ChallengeTTL() time.Duration {
	if s.NonceTTL < time.Second {
		return time.Second
	}
	return s.NonceTTL
}

// HexAddress renders an address the way it is stored: lower-case with 0x.
func HexAddress(a common.Address) string {
	return strings.ToLower(a.Hex())
}
