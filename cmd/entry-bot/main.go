package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tournament-settlement/internal/config"
	"tournament-settlement/internal/logging"
	"tournament-settlement/internal/usdc"
	"tournament-settlement/internal/x402"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type challenge struct {
	ChainID       int64           `json:"chainId"`
	TokenAddress  string          `json:"tokenAddress"`
	TokenDecimals int             `json:"tokenDecimals"`
	DomainName    string          `json:"domainName"`
	DomainVersion string          `json:"domainVersion"`
	PriceUSDC     decimal.Decimal `json:"priceUsdc"`
	Recipient     string          `json:"recipient"`
	PaymentHeader string          `json:"paymentHeader"`
	Nonce         string          `json:"nonce"`
}

type entryRequest struct {
	AgentID       string `json:"agent_id"`
	WalletAddress string `json:"wallet_address"`
}

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(logCfg); err != nil {
		panic(err)
	}
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid BOT_PRIVATE_KEY")
	}
	wallet := crypto.PubkeyToAddress(key.PublicKey)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client := &http.Client{Timeout: 10 * time.Second}
	url := fmt.Sprintf("%s/api/tournaments/%s/entries", strings.TrimRight(cfg.BaseURL, "/"), cfg.TournamentID)
	body := entryRequest{AgentID: cfg.AgentID, WalletAddress: wallet.Hex()}

	status, raw, err := post(ctx, client, url, body, "", "")
	if err != nil {
		log.Fatal().Err(err).Msg("request challenge")
	}
	if status != http.StatusPaymentRequired {
		log.Info().Int("status", status).RawJSON("body", raw).Msg("entry accepted without payment")
		return
	}
	var ch challenge
	if err := json.Unmarshal(raw, &ch); err != nil {
		log.Fatal().Err(err).Msg("decode challenge")
	}
	domain, decimals := signingDomain(ch, cfg)
	value, err := usdc.ToBaseUnits(ch.PriceUSDC, decimals)
	if err != nil {
		log.Fatal().Err(err).Msg("price not representable")
	}

	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		log.Fatal().Err(err).Msg("authorization nonce")
	}
	now := time.Now().Unix()
	auth := x402.TransferWithAuthorization{
		From:        wallet,
		To:          common.HexToAddress(ch.Recipient),
		Value:       value,
		ValidAfter:  now - 5,
		ValidBefore: now + cfg.ValidSeconds,
		Nonce:       nonce,
	}
	sig, err := x402.SignTransferWithAuthorization(x402.Secp256k1{}, key, domain, auth)
	if err != nil {
		log.Fatal().Err(err).Msg("sign authorization")
	}
	claim, err := x402.BuildClaim(ch.Nonce, uuid.NewString(), domain, auth, sig)
	if err != nil {
		log.Fatal().Err(err).Msg("build claim")
	}

	status, raw, err = post(ctx, client, url, body, ch.PaymentHeader, claim)
	if err != nil {
		log.Fatal().Err(err).Msg("submit entry")
	}
	if status >= 300 {
		log.Fatal().Int("status", status).RawJSON("body", raw).Msg("entry rejected")
	}
	log.Info().
		Int("status", status).
		Str("wallet", wallet.Hex()).
		Str("price_usdc", usdc.String(ch.PriceUSDC)).
		RawJSON("body", raw).
		Msg("entry confirmed")
}

// signingDomain prefers the domain advertised in the challenge and falls
// back to the bot's configured defaults for older servers.
func signingDomain(ch challenge, cfg config.BotConfig) (x402.Domain, int) {
	domain := x402.Domain{
		Name:              cfg.DomainName,
		Version:           cfg.DomainVersion,
		ChainID:           ch.ChainID,
		VerifyingContract: common.HexToAddress(ch.TokenAddress),
	}
	if ch.DomainName != "" {
		domain.Name = ch.DomainName
	}
	if ch.DomainVersion != "" {
		domain.Version = ch.DomainVersion
	}
	decimals := cfg.TokenDecimals
	if ch.TokenDecimals > 0 {
		decimals = ch.TokenDecimals
	}
	return domain, decimals
}

func post(ctx context.Context, client *http.Client, url string, body any, header, value string) (int, []byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if header != "" {
		req.Header.Set(header, value)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	return resp.StatusCode, raw, err
}
