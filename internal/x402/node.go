package x402

import (
	"encoding/json"
	"strings"
)

// node is a decoded JSON object. Numbers are kept as json.Number so integer
// fields never pass through float64.
type node map[string]any

func asNode(v any) node {
	switch t := v.(type) {
	case map[string]any:
		return node(t)
	case node:
		return t
	default:
		return nil
	}
}

func (n node) child(field string) node {
	if n == nil {
		return nil
	}
	return asNode(n[field])
}

// present reports whether field exists with a non-null value.
func (n node) present(field string) (any, bool) {
	if n == nil {
		return nil, false
	}
	v, ok := n[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// scalar returns the first non-blank string or number among fieldNames.
// Any other JSON type is a malformed field.
func (n node) scalar(fieldNames ...string) (string, error) {
	for _, name := range fieldNames {
		v, ok := n.present(name)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s, nil
			}
		case json.Number:
			return t.String(), nil
		default:
			return "", malformed("X-PAYMENT.%s must be a string or number", name)
		}
	}
	return "", nil
}

func firstScalar(nodes []node, fieldNames ...string) (string, error) {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		v, err := n.scalar(fieldNames...)
		if err != nil || v != "" {
			return v, err
		}
	}
	return "", nil
}
