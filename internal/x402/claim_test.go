package x402

import (
	"errors"
	"strings"
	"testing"
)

func TestParseClaimReadsTopLevelThenPayload(t *testing.T) {
	raw := `{
		"requestNonce": "req-1",
		"payload": {
			"idempotencyKey": "idem-1",
			"authorizationNonce": "0xabc",
			"amount": 5.25,
			"chainId": "84532",
			"recipient": "0x0000000000000000000000000000000000000b22"
		},
		"chainId": 8453
	}`
	claim, err := ParseClaim(raw)
	if err != nil {
		t.Fatalf("ParseClaim() error = %v", err)
	}
	if claim.RequestNonce != "req-1" || claim.IdempotencyKey != "idem-1" {
		t.Fatalf("unexpected keys: %+v", claim)
	}
	if claim.AuthorizationNonce != "0xabc" {
		t.Fatalf("AuthorizationNonce = %q", claim.AuthorizationNonce)
	}
	if claim.Amount == nil || claim.Amount.String() != "5.25" {
		t.Fatalf("Amount = %v, want 5.25", claim.Amount)
	}
	if claim.ChainID == nil || *claim.ChainID != 8453 {
		t.Fatalf("ChainID = %v, want top-level 8453", claim.ChainID)
	}
	if claim.Recipient != "0x0000000000000000000000000000000000000b22" {
		t.Fatalf("Recipient = %q", claim.Recipient)
	}
	if claim.Root["payload"] == nil {
		t.Fatal("expected raw tree to be kept")
	}
}

func TestParseClaimAcceptsAmountAsString(t *testing.T) {
	claim, err := ParseClaim(`{"requestNonce":"r","idempotencyKey":"i","amountUsdc":"5.000000"}`)
	if err != nil {
		t.Fatalf("ParseClaim() error = %v", err)
	}
	if claim.Amount == nil || claim.Amount.StringFixed(6) != "5.000000" {
		t.Fatalf("Amount = %v", claim.Amount)
	}
	if claim.ChainID != nil {
		t.Fatalf("ChainID = %v, want nil", *claim.ChainID)
	}
}

func TestParseClaimMalformed(t *testing.T) {
	long := strings.Repeat("x", maxFieldLength+1)
	tests := []struct {
		name string
		raw  string
	}{
		{name: "blank", raw: "   "},
		{name: "not json", raw: "{"},
		{name: "trailing data", raw: `{"requestNonce":"r","idempotencyKey":"i"} {}`},
		{name: "array root", raw: `[1,2]`},
		{name: "payload not object", raw: `{"requestNonce":"r","idempotencyKey":"i","payload":"x"}`},
		{name: "missing request nonce", raw: `{"idempotencyKey":"i"}`},
		{name: "blank idempotency key", raw: `{"requestNonce":"r","idempotencyKey":"  "}`},
		{name: "numeric request nonce", raw: `{"requestNonce":7,"idempotencyKey":"i"}`},
		{name: "request nonce too long", raw: `{"requestNonce":"` + long + `","idempotencyKey":"i"}`},
		{name: "idempotency key too long", raw: `{"requestNonce":"r","idempotencyKey":"` + long + `"}`},
		{name: "bad amount", raw: `{"requestNonce":"r","idempotencyKey":"i","amount":"five"}`},
		{name: "negative amount", raw: `{"requestNonce":"r","idempotencyKey":"i","amount":-1}`},
		{name: "bool amount", raw: `{"requestNonce":"r","idempotencyKey":"i","amount":true}`},
		{name: "amount above column range", raw: `{"requestNonce":"r","idempotencyKey":"i","amountUsdc":"1e30"}`},
		{name: "amount just above column range", raw: `{"requestNonce":"r","idempotencyKey":"i","amountUsdc":"1000000000000"}`},
		{name: "amount with seven decimals", raw: `{"requestNonce":"r","idempotencyKey":"i","amountUsdc":"5.0000001"}`},
		{name: "fractional chain", raw: `{"requestNonce":"r","idempotencyKey":"i","chainId":1.5}`},
		{name: "text chain", raw: `{"requestNonce":"r","idempotencyKey":"i","payload":{"chainId":"base"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseClaim(tt.raw)
			if !errors.Is(err, ErrMalformedInput) {
				t.Fatalf("expected malformed input, got %v", err)
			}
			var xerr *Error
			if !errors.As(err, &xerr) || xerr.Code() != "x402_malformed_payment_header" || xerr.HTTPStatus() != 400 {
				t.Fatalf("unexpected error shape: %#v", err)
			}
		})
	}
}

func TestParseClaimLengthLimitCountsCharacters(t *testing.T) {
	nonce := strings.Repeat("é", maxFieldLength)
	if _, err := ParseClaim(`{"requestNonce":"` + nonce + `","idempotencyKey":"i"}`); err != nil {
		t.Fatalf("ParseClaim() error = %v", err)
	}
}

func TestParseClaimAmountBounds(t *testing.T) {
	for _, raw := range []string{`"999999999999.999999"`, `"5.0000000"`, `0`} {
		claim, err := ParseClaim(`{"requestNonce":"r","idempotencyKey":"i","amountUsdc":` + raw + `}`)
		if err != nil {
			t.Fatalf("amount %s: ParseClaim() error = %v", raw, err)
		}
		if claim.Amount == nil {
			t.Fatalf("amount %s: not parsed", raw)
		}
	}
}
