package x402

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	hex40  = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)
	hex64  = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
	hex130 = regexp.MustCompile(`^[0-9a-fA-F]{130}$`)

	maxEpochSeconds = big.NewInt(1<<63 - 1)
)

// authorizationShape is one accepted location of the TransferWithAuthorization
// object inside a claim.
type authorizationShape struct {
	name    string
	extract func(root, payload node) node
}

// authorizationShapes are tried in order; the first candidate that looks like
// an authorization wins.
var authorizationShapes = []authorizationShape{
	{name: "payload.authorization", extract: func(_, p node) node { return p.child("authorization") }},
	{name: "payload.transferWithAuthorization", extract: func(_, p node) node { return p.child("transferWithAuthorization") }},
	{name: "authorization", extract: func(r, _ node) node { return r.child("authorization") }},
	{name: "transferWithAuthorization", extract: func(r, _ node) node { return r.child("transferWithAuthorization") }},
	{name: "payload", extract: func(_, p node) node { return p }},
	{name: "root", extract: func(r, _ node) node { return r }},
}

func resolveAuthorization(root, payload node) (node, error) {
	for _, shape := range authorizationShapes {
		candidate := shape.extract(root, payload)
		if candidate == nil {
			continue
		}
		ok, err := hasAuthorizationShape(candidate)
		if err != nil {
			return nil, err
		}
		if ok {
			return candidate, nil
		}
	}
	return nil, malformed("X-PAYMENT payload must include TransferWithAuthorization fields")
}

func hasAuthorizationShape(n node) (bool, error) {
	for _, fields := range [][]string{{"from"}, {"value", "amount"}, {"signature"}} {
		v, err := n.scalar(fields...)
		if err != nil {
			return false, err
		}
		if v != "" {
			return true, nil
		}
	}
	return false, nil
}

func resolveDomain(root, payload node) node {
	if d := payload.child("domain"); d != nil {
		return d
	}
	if d := root.child("domain"); d != nil {
		return d
	}
	return node{}
}

func requiredScalar(n node, fieldNames ...string) (string, error) {
	v, err := n.scalar(fieldNames...)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", malformed("X-PAYMENT.%s is required", fieldNames[0])
	}
	return v, nil
}

func normalizeAddress(raw, field string) (common.Address, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(raw), "0x"), "0X")
	if clean == "" {
		return common.Address{}, malformed("%s is required", field)
	}
	if !hex40.MatchString(clean) {
		return common.Address{}, malformed("%s must be a 20-byte hex address", field)
	}
	return common.HexToAddress(clean), nil
}

func requiredAddress(n node, fieldNames ...string) (common.Address, error) {
	raw, err := requiredScalar(n, fieldNames...)
	if err != nil {
		return common.Address{}, err
	}
	return normalizeAddress(raw, "X-PAYMENT."+fieldNames[0])
}

func optionalAddress(n node, fieldNames ...string) (*common.Address, error) {
	raw, err := n.scalar(fieldNames...)
	if err != nil || raw == "" {
		return nil, err
	}
	addr, err := normalizeAddress(raw, "X-PAYMENT."+fieldNames[0])
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func requiredUnsigned(n node, fieldNames ...string) (*big.Int, error) {
	raw, err := requiredScalar(n, fieldNames...)
	if err != nil {
		return nil, err
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, malformed("X-PAYMENT.%s must be an unsigned integer", fieldNames[0])
	}
	if v.Sign() < 0 {
		return nil, malformed("X-PAYMENT.%s must be non-negative", fieldNames[0])
	}
	return v, nil
}

func requiredEpochSeconds(n node, field string) (int64, error) {
	v, err := requiredUnsigned(n, field)
	if err != nil {
		return 0, err
	}
	if v.Cmp(maxEpochSeconds) > 0 {
		return 0, malformed("X-PAYMENT.%s is too large", field)
	}
	return v.Int64(), nil
}

func requiredBytes32(n node, fieldNames ...string) ([32]byte, error) {
	var out [32]byte
	raw, err := requiredScalar(n, fieldNames...)
	if err != nil {
		return out, err
	}
	clean := strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if !hex64.MatchString(clean) {
		return out, malformed("X-PAYMENT.%s must be a 32-byte hex value", fieldNames[0])
	}
	copy(out[:], hexutil.MustDecode("0x"+clean))
	return out, nil
}

// requiredSignature searches the authorization, then the payload, then the
// root for a 65-byte signature and normalises v to 27/28.
func requiredSignature(nodes ...node) ([]byte, error) {
	raw, err := firstScalar(nodes, "signature")
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, malformed("X-PAYMENT signature is required")
	}
	clean := strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if !hex130.MatchString(clean) {
		return nil, malformed("X-PAYMENT.signature must be a 65-byte hex string")
	}
	sig := hexutil.MustDecode("0x" + clean)
	if sig[64] < 27 {
		sig[64] += 27
	}
	if sig[64] != 27 && sig[64] != 28 {
		return nil, malformed("X-PAYMENT.signature recovery id must be 27/28 or 0/1")
	}
	return sig, nil
}
