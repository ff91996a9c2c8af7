package x402

import (
	"encoding/json"
	"time"

	"tournament-settlement/internal/usdc"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const challengeScheme = "x402"

// Challenge is the 402 Payment Required body telling a client what to sign.
type Challenge struct {
	Scheme             string      `json:"scheme"`
	Network            string      `json:"network"`
	ChainID            int64       `json:"chainId"`
	TokenAddress       string      `json:"tokenAddress"`
	TokenDecimals      int         `json:"tokenDecimals"`
	DomainName         string      `json:"domainName"`
	DomainVersion      string      `json:"domainVersion"`
	PriceUSDC          json.Number `json:"priceUsdc"`
	Recipient          string      `json:"recipient"`
	PaymentHeader      string      `json:"paymentHeader"`
	Nonce              string      `json:"nonce"`
	ChallengeExpiresAt time.Time   `json:"challengeExpiresAt"`
}

func (s Settings) NewChallenge(price decimal.Decimal, now time.Time) Challenge {
	return Challenge{
		Scheme:             challengeScheme,
		Network:            s.Network,
		ChainID:            s.ChainID,
		TokenAddress:       HexAddress(s.TokenAddress),
		TokenDecimals:      s.TokenDecimals,
		DomainName:         s.DomainName,
		DomainVersion:      s.DomainVersion,
		PriceUSDC:          json.Number(usdc.Round(price).String()),
		Recipient:          HexAddress(s.SettlementAddress),
		PaymentHeader:      s.PaymentHeader,
		Nonce:              uuid.NewString(),
		ChallengeExpiresAt: now.Add(s.ChallengeTTL()).UTC(),
	}
}
