package x402

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const maxFieldLength = 128

// maxAmountUSDC is the largest value a numeric(18,6) column holds.
var maxAmountUSDC = decimal.RequireFromString("999999999999.999999")

// Claim is a parsed payment header. Root keeps the whole tree because the
// verifier resolves authorization and domain objects the parser does not own.
type Claim struct {
	Raw                json.RawMessage
	Root               map[string]any
	RequestNonce       string
	IdempotencyKey     string
	AuthorizationNonce string
	Amount             *decimal.Decimal
	ChainID            *int64
	Recipient          string
}

func (c *Claim) root() node {
	return node(c.Root)
}

func (c *Claim) payload() node {
	return c.root().child("payload")
}

func ParseClaim(raw string) (*Claim, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, malformed("X-PAYMENT header is required")
	}
	root, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	var payload node
	if v, ok := root.present("payload"); ok {
		if payload = asNode(v); payload == nil {
			return nil, malformed("X-PAYMENT payload must be a JSON object")
		}
	}
	levels := []node{root, payload}

	requestNonce, err := requiredText(levels, "requestNonce")
	if err != nil {
		return nil, err
	}
	idempotencyKey, err := requiredText(levels, "idempotencyKey")
	if err != nil {
		return nil, err
	}
	authorizationNonce, err := optionalText(levels, "authorizationNonce")
	if err != nil {
		return nil, err
	}
	if err := checkLength("authorizationNonce", authorizationNonce); err != nil {
		return nil, err
	}
	amount, err := optionalAmount(levels)
	if err != nil {
		return nil, err
	}
	chainID, err := optionalInt64(levels, "chainId")
	if err != nil {
		return nil, err
	}
	recipient, err := optionalText(levels, "recipient")
	if err != nil {
		return nil, err
	}

	return &Claim{
		Raw:                json.RawMessage(raw),
		Root:               root,
		RequestNonce:       requestNonce,
		IdempotencyKey:     idempotencyKey,
		AuthorizationNonce: authorizationNonce,
		Amount:             amount,
		ChainID:            chainID,
		Recipient:          recipient,
	}, nil
}

func decodeObject(raw string) (node, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, malformed("X-PAYMENT header must be valid JSON")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, malformed("X-PAYMENT header must be valid JSON")
	}
	root := asNode(v)
	if root == nil {
		return nil, malformed("X-PAYMENT header must be a JSON object")
	}
	return root, nil
}

// first returns the first level that carries field, top level first.
func first(levels []node, field string) (any, bool) {
	for _, n := range levels {
		if v, ok := n.present(field); ok {
			return v, true
		}
	}
	return nil, false
}

func optionalText(levels []node, field string) (string, error) {
	for _, n := range levels {
		v, ok := n.present(field)
		if !ok {
			continue
		}
		s, isString := v.(string)
		if !isString {
			return "", malformed("X-PAYMENT.%s must be a string", field)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, nil
		}
	}
	return "", nil
}

func requiredText(levels []node, field string) (string, error) {
	v, err := optionalText(levels, field)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", malformed("X-PAYMENT.%s is required", field)
	}
	if err := checkLength(field, v); err != nil {
		return "", err
	}
	return v, nil
}

func checkLength(field, v string) error {
	if len([]rune(v)) > maxFieldLength {
		return malformed("X-PAYMENT.%s exceeds max length of %d", field, maxFieldLength)
	}
	return nil
}

func optionalAmount(levels []node) (*decimal.Decimal, error) {
	var (
		v  any
		ok bool
	)
	for _, name := range []string{"amountUsdc", "amount"} {
		if v, ok = first(levels, name); ok {
			break
		}
	}
	if !ok {
		return nil, nil
	}
	var raw string
	switch t := v.(type) {
	case json.Number:
		raw = t.String()
	case string:
		raw = strings.TrimSpace(t)
	default:
		return nil, malformed("X-PAYMENT.amountUsdc must be numeric")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, malformed("X-PAYMENT.amountUsdc must be numeric")
	}
	if d.Sign() < 0 {
		return nil, malformed("X-PAYMENT.amountUsdc must be non-negative")
	}
	if !d.Equal(d.Round(6)) {
		return nil, malformed("X-PAYMENT.amountUsdc must have at most 6 decimal places")
	}
	if d.GreaterThan(maxAmountUSDC) {
		return nil, malformed("X-PAYMENT.amountUsdc exceeds %s", maxAmountUSDC.String())
	}
	return &d, nil
}

func optionalInt64(levels []node, field string) (*int64, error) {
	v, ok := first(levels, field)
	if !ok {
		return nil, nil
	}
	var raw string
	switch t := v.(type) {
	case json.Number:
		raw = t.String()
	case string:
		raw = strings.TrimSpace(t)
	default:
		return nil, malformed("X-PAYMENT.%s must be an integer", field)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, malformed("X-PAYMENT.%s must be an integer", field)
	}
	return &n, nil
}

// compactRaw normalises whitespace for storage in a jsonb column.
func compactRaw(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
