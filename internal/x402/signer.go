package x402

import (
	"crypto/ecdsa"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SignTransferWithAuthorization produces the 65-byte wallet signature over
// the EIP-712 digest of auth.
func SignTransferWithAuthorization(c Curve, key *ecdsa.PrivateKey, d Domain, auth TransferWithAuthorization) ([]byte, error) {
	return c.Sign(SigningDigest(c, d, auth), key)
}

type wireAuthorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  int64  `json:"validAfter"`
	ValidBefore int64  `json:"validBefore"`
	Nonce       string `json:"nonce"`
	Signature   string `json:"signature"`
}

type wireDomain struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	ChainID           int64  `json:"chainId"`
	VerifyingContract string `json:"verifyingContract"`
}

type wirePayload struct {
	AuthorizationNonce string            `json:"authorizationNonce"`
	Domain             wireDomain        `json:"domain"`
	Authorization      wireAuthorization `json:"authorization"`
}

type wireClaim struct {
	RequestNonce   string      `json:"requestNonce"`
	IdempotencyKey string      `json:"idempotencyKey"`
	Payload        wirePayload `json:"payload"`
}

// BuildClaim renders a signed authorization in the payment header wire format.
func BuildClaim(requestNonce, idempotencyKey string, d Domain, auth TransferWithAuthorization, sig []byte) (string, error) {
	value := auth.Value
	if value == nil {
		value = new(big.Int)
	}
	nonce := hexutil.Encode(auth.Nonce[:])
	b, err := json.Marshal(wireClaim{
		RequestNonce:   requestNonce,
		IdempotencyKey: idempotencyKey,
		Payload: wirePayload{
			AuthorizationNonce: nonce,
			Domain: wireDomain{
				Name:              d.Name,
				Version:           d.Version,
				ChainID:           d.ChainID,
				VerifyingContract: HexAddress(d.VerifyingContract),
			},
			Authorization: wireAuthorization{
				From:        HexAddress(auth.From),
				To:          HexAddress(auth.To),
				Value:       value.String(),
				ValidAfter:  auth.ValidAfter,
				ValidBefore: auth.ValidBefore,
				Nonce:       nonce,
				Signature:   hexutil.Encode(sig),
			},
		},
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
