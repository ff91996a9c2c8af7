package x402

import (
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Curve is the elliptic-curve capability the verifier depends on.
// Signatures are 65 bytes r||s||v with v in {27, 28}.
type Curve interface {
	Keccak256(data ...[]byte) []byte
	Sign(digest []byte, key *ecdsa.PrivateKey) ([]byte, error)
	Recover(digest, sig []byte) (common.Address, error)
}

var errSignatureLength = errors.New("signature must be 65 bytes")

// Secp256k1 implements Curve with go-ethereum's crypto package.
type Secp256k1 struct{}

func (Secp256k1) Keccak256(data ...[]byte) []byte {
	return crypto.Keccak256(data...)
}

func (Secp256k1) Sign(digest []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

func (Secp256k1) Recover(digest, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, errSignatureLength
	}
	raw := make([]byte, 65)
	copy(raw, sig)
	if raw[64] >= 27 {
		raw[64] -= 27
	}
	pub, err := crypto.SigToPub(digest, raw)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
