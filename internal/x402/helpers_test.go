package x402

import (
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"tournament-settlement/internal/usdc"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const testPrivateKeyHex = "59c6995e998f97a5a0044976f4f3e6f7f2ee8f87f3d4f3f9127b8fcdab8f5b7d"

var (
	testTokenAddress      = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	testSettlementAddress = common.HexToAddress("0x0000000000000000000000000000000000000b22")
	testNow               = time.Unix(1_800_000_000, 0)
)

func testSettings() Settings {
	return Settings{
		Enabled:           true,
		Network:           "base-sepolia",
		ChainID:           84532,
		TokenAddress:      testTokenAddress,
		SettlementAddress: testSettlementAddress,
		TokenDecimals:     6,
		DomainName:        "USD Coin",
		DomainVersion:     "2",
		NonceTTL:          5 * time.Minute,
		PaymentHeader:     "X-PAYMENT",
		DefaultEntryFee:   usdc.MustParse("5.000000"),
	}
}

func testKey(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.HexToECDSA(testPrivateKeyHex)
	if err != nil {
		t.Fatalf("load key: %v", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

type fixture struct {
	domain Domain
	auth   TransferWithAuthorization
}

func newFixture(from common.Address, nonceByte byte) fixture {
	var nonce [32]byte
	for i := range nonce {
		nonce[i] = nonceByte
	}
	return fixture{
		domain: Domain{
			Name:              "USD Coin",
			Version:           "2",
			ChainID:           84532,
			VerifyingContract: testTokenAddress,
		},
		auth: TransferWithAuthorization{
			From:        from,
			To:          testSettlementAddress,
			Value:       big.NewInt(5_000_000),
			ValidAfter:  testNow.Unix() - 60,
			ValidBefore: testNow.Unix() + 600,
			Nonce:       nonce,
		},
	}
}

// typedDataDigest hashes the fixture with go-ethereum's generic EIP-712
// encoder, independent of SigningDigest.
func typedDataDigest(t *testing.T, f fixture) []byte {
	t.Helper()
	typed := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"TransferWithAuthorization": {
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "validAfter", Type: "uint256"},
				{Name: "validBefore", Type: "uint256"},
				{Name: "nonce", Type: "bytes32"},
			},
		},
		PrimaryType: "TransferWithAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              f.domain.Name,
			Version:           f.domain.Version,
			ChainId:           math.NewHexOrDecimal256(f.domain.ChainID),
			VerifyingContract: f.domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"from":        f.auth.From.Hex(),
			"to":          f.auth.To.Hex(),
			"value":       f.auth.Value.String(),
			"validAfter":  big.NewInt(f.auth.ValidAfter).String(),
			"validBefore": big.NewInt(f.auth.ValidBefore).String(),
			"nonce":       hexutil.Encode(f.auth.Nonce[:]),
		},
	}
	digest, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		t.Fatalf("typed data hash: %v", err)
	}
	return digest
}

// signFixture signs with crypto.Sign directly, leaving v as 0/1.
func signFixture(t *testing.T, key *ecdsa.PrivateKey, f fixture) []byte {
	t.Helper()
	sig, err := crypto.Sign(typedDataDigest(t, f), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return sig
}

func buildRawClaim(t *testing.T, requestNonce, idempotencyKey string, f fixture, sig []byte) string {
	t.Helper()
	raw, err := BuildClaim(requestNonce, idempotencyKey, f.domain, f.auth, sig)
	if err != nil {
		t.Fatalf("build claim: %v", err)
	}
	return raw
}

// editClaim decodes raw, applies edit and re-encodes it.
func editClaim(t *testing.T, raw string, edit func(root map[string]any)) string {
	t.Helper()
	var root map[string]any
	if err := json.Unmarshal([]byte(raw), &root); err != nil {
		t.Fatalf("decode claim: %v", err)
	}
	edit(root)
	b, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("encode claim: %v", err)
	}
	return string(b)
}

func mustParseClaim(t *testing.T, raw string) *Claim {
	t.Helper()
	claim, err := ParseClaim(raw)
	if err != nil {
		t.Fatalf("ParseClaim() error = %v", err)
	}
	return claim
}
