package main

import (
	"encoding/json"
	"testing"

	"tournament-settlement/internal/config"

	"github.com/ethereum/go-ethereum/common"
)

func TestSigningDomainPrefersChallenge(t *testing.T) {
	cfg := config.BotConfig{DomainName: "USD Coin", DomainVersion: "2", TokenDecimals: 6}

	var ch challenge
	raw := `{"chainId":8453,"tokenAddress":"0x0000000000000000000000000000000000000a11","tokenDecimals":18,"domainName":"Bridged USDC","domainVersion":"1","priceUsdc":5}`
	if err := json.Unmarshal([]byte(raw), &ch); err != nil {
		t.Fatalf("decode challenge: %v", err)
	}
	domain, decimals := signingDomain(ch, cfg)
	if domain.Name != "Bridged USDC" || domain.Version != "1" || decimals != 18 {
		t.Fatalf("domain = %+v decimals = %d", domain, decimals)
	}
	if domain.ChainID != 8453 || domain.VerifyingContract != common.HexToAddress("0x0000000000000000000000000000000000000a11") {
		t.Fatalf("domain = %+v", domain)
	}
}

func TestSigningDomainFallsBackToConfig(t *testing.T) {
	cfg := config.BotConfig{DomainName: "USD Coin", DomainVersion: "2", TokenDecimals: 6}

	domain, decimals := signingDomain(challenge{ChainID: 84532}, cfg)
	if domain.Name != "USD Coin" || domain.Version != "2" || decimals != 6 {
		t.Fatalf("domain = %+v decimals = %d", domain, decimals)
	}
}
