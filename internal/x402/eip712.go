package x402

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

const (
	eip712DomainType              = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"
	transferWithAuthorizationType = "TransferWithAuthorization(address from,address to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)"
)

// Domain is the EIP-712 domain of the token contract.
type Domain struct {
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract common.Address
}

// TransferWithAuthorization is the EIP-3009 message a wallet signs.
type TransferWithAuthorization struct {
	From        common.Address
	To          common.Address
	Value       *big.Int
	ValidAfter  int64
	ValidBefore int64
	Nonce       [32]byte
}

func domainSeparator(c Curve, d Domain) []byte {
	return c.Keccak256(
		c.Keccak256([]byte(eip712DomainType)),
		c.Keccak256([]byte(d.Name)),
		c.Keccak256([]byte(d.Version)),
		encodeUint256(big.NewInt(d.ChainID)),
		encodeAddress(d.VerifyingContract),
	)
}

func transferStructHash(c Curve, a TransferWithAuthorization) []byte {
	return c.Keccak256(
		c.Keccak256([]byte(transferWithAuthorizationType)),
		encodeAddress(a.From),
		encodeAddress(a.To),
		encodeUint256(a.Value),
		encodeUint256(big.NewInt(a.ValidAfter)),
		encodeUint256(big.NewInt(a.ValidBefore)),
		a.Nonce[:],
	)
}

// SigningDigest is keccak256(0x19 0x01 || domainSeparator || structHash).
func SigningDigest(c Curve, d Domain, a TransferWithAuthorization) []byte {
	return c.Keccak256(
		[]byte{0x19, 0x01},
		domainSeparator(c, d),
		transferStructHash(c, a),
	)
}

func encodeUint256(v *big.Int) []byte {
	return math.U256Bytes(new(big.Int).Set(v))
}

func encodeAddress(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}
