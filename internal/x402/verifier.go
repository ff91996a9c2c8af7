package x402

import (
	"math/big"
	"strconv"
	"time"

	"tournament-settlement/internal/usdc"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// VerifiedAuthorization is a TransferWithAuthorization whose signature and
// every cross-checked field have been proven against configuration.
type VerifiedAuthorization struct {
	From              common.Address  `json:"from"`
	To                common.Address  `json:"to"`
	Value             *big.Int        `json:"value"`
	Amount            decimal.Decimal `json:"amount_usdc"`
	ValidAfter        int64           `json:"valid_after"`
	ValidBefore       int64           `json:"valid_before"`
	Nonce             string          `json:"nonce"`
	ChainID           int64           `json:"chain_id"`
	VerifyingContract common.Address  `json:"verifying_contract"`
	DomainName        string          `json:"domain_name"`
	DomainVersion     string          `json:"domain_version"`
	RecoveredSigner   common.Address  `json:"recovered_signer"`
}

// Verifier checks EIP-3009 authorizations. It holds no mutable state and is
// safe for concurrent use.
type Verifier struct {
	settings Settings
	curve    Curve
	now      func() time.Time
}

type VerifierOption func(*Verifier)

func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

func NewVerifier(settings Settings, curve Curve, opts ...VerifierOption) *Verifier {
	v := &Verifier{settings: settings, curve: curve, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Verifier) Verify(claim *Claim, expectedWallet string, expectedAmount decimal.Decimal) (*VerifiedAuthorization, error) {
	if claim == nil || claim.Root == nil {
		return nil, malformed("X-PAYMENT header JSON object is required")
	}
	root := claim.root()
	payload := claim.payload()

	auth, err := resolveAuthorization(root, payload)
	if err != nil {
		return nil, err
	}
	domainNode := resolveDomain(root, payload)

	from, err := requiredAddress(auth, "from")
	if err != nil {
		return nil, err
	}
	to, err := requiredAddress(auth, "to", "recipient")
	if err != nil {
		return nil, err
	}
	value, err := requiredUnsigned(auth, "value", "amount")
	if err != nil {
		return nil, err
	}
	validAfter, err := requiredEpochSeconds(auth, "validAfter")
	if err != nil {
		return nil, err
	}
	validBefore, err := requiredEpochSeconds(auth, "validBefore")
	if err != nil {
		return nil, err
	}
	nonce, err := requiredBytes32(auth, "nonce", "authorizationNonce")
	if err != nil {
		return nil, err
	}
	sig, err := requiredSignature(auth, payload, root)
	if err != nil {
		return nil, err
	}

	domain, err := v.resolveDomainFields(domainNode, payload, root)
	if err != nil {
		return nil, err
	}
	expectedSigner, err := normalizeAddress(expectedWallet, "walletAddress")
	if err != nil {
		return nil, err
	}

	if from != expectedSigner {
		return nil, verificationFailed("EIP-3009 signer does not match agent wallet")
	}
	if to != v.settings.SettlementAddress {
		return nil, verificationFailed("EIP-3009 recipient does not match configured settlement address")
	}
	if domain.ChainID != v.settings.ChainID {
		return nil, verificationFailed("EIP-3009 chainId does not match configured chain")
	}
	if domain.VerifyingContract != v.settings.TokenAddress {
		return nil, verificationFailed("EIP-3009 verifying contract does not match configured token address")
	}
	expectedValue, err := usdc.ToBaseUnits(expectedAmount, v.settings.TokenDecimals)
	if err != nil {
		return nil, verificationFailed("configured tournament fee cannot be represented in token base units")
	}
	if value.Cmp(expectedValue) != 0 {
		return nil, verificationFailed("EIP-3009 transfer value does not match tournament entry fee")
	}
	if validBefore <= validAfter {
		return nil, verificationFailed("EIP-3009 validity window is invalid")
	}
	now := v.now().Unix()
	if now <= validAfter {
		return nil, verificationFailed("EIP-3009 authorization is not yet valid")
	}
	if now >= validBefore {
		return nil, verificationFailed("EIP-3009 authorization has expired")
	}

	message := TransferWithAuthorization{
		From:        from,
		To:          to,
		Value:       value,
		ValidAfter:  validAfter,
		ValidBefore: validBefore,
		Nonce:       nonce,
	}
	digest := SigningDigest(v.curve, domain, message)
	recovered, err := v.curve.Recover(digest, sig)
	if err != nil {
		return nil, verificationFailed("invalid EIP-3009 signature")
	}
	if recovered != from {
		return nil, verificationFailed("EIP-3009 signature recovery failed")
	}

	return &VerifiedAuthorization{
		From:              from,
		To:                to,
		Value:             value,
		Amount:            usdc.FromBaseUnits(value, v.settings.TokenDecimals),
		ValidAfter:        validAfter,
		ValidBefore:       validBefore,
		Nonce:             hexutil.Encode(nonce[:]),
		ChainID:           domain.ChainID,
		VerifyingContract: domain.VerifyingContract,
		DomainName:        domain.Name,
		DomainVersion:     domain.Version,
		RecoveredSigner:   recovered,
	}, nil
}

// resolveDomainFields reads the domain from the claim, falling back to the
// payload, the root and finally configuration for each field.
func (v *Verifier) resolveDomainFields(domain, payload, root node) (Domain, error) {
	out := Domain{
		Name:              v.settings.DomainName,
		Version:           v.settings.DomainVersion,
		ChainID:           v.settings.ChainID,
		VerifyingContract: v.settings.TokenAddress,
	}
	name, err := domain.scalar("name")
	if err != nil {
		return Domain{}, err
	}
	if name != "" {
		out.Name = name
	}
	version, err := domain.scalar("version")
	if err != nil {
		return Domain{}, err
	}
	if version != "" {
		out.Version = version
	}

	for _, n := range []node{domain, payload, root} {
		raw, err := n.scalar("chainId")
		if err != nil {
			return Domain{}, err
		}
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Domain{}, malformed("X-PAYMENT.chainId must be an integer")
		}
		out.ChainID = id
		break
	}

	contractFields := [][]string{{"verifyingContract", "tokenAddress"}, {"tokenAddress"}, {"tokenAddress"}}
	for i, n := range []node{domain, payload, root} {
		addr, err := optionalAddress(n, contractFields[i]...)
		if err != nil {
			return Domain{}, err
		}
		if addr != nil {
			out.VerifyingContract = *addr
			break
		}
	}
	return out, nil
}
