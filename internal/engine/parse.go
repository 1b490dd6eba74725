package engine

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// absentLiterals are string values treated the same as a missing field.
var absentLiterals = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"none": {},
	"null": {},
}

// ParseOptionalDecimal coerces a loosely-typed record value into an optional
// number. Nil, missing-value literals and unparseable input all collapse to
// nil; this function never fails.
func ParseOptionalDecimal(v any) *decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		d := decimal.NewFromFloat(x)
		return &d
	case float32:
		d := decimal.NewFromFloat32(x)
		return &d
	case int:
		d := decimal.NewFromInt(int64(x))
		return &d
	case int64:
		d := decimal.NewFromInt(x)
		return &d
	case json.Number:
		return parseDecimalString(x.String())
	case string:
		return parseDecimalString(x)
	default:
		return nil
	}
}

func parseDecimalString(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if _, absent := absentLiterals[strings.ToLower(s)]; absent {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// ParseOptionalFloat is ParseOptionalDecimal for fields that are scores or
// counts rather than prices.
func ParseOptionalFloat(v any) *float64 {
	d := ParseOptionalDecimal(v)
	if d == nil {
		return nil
	}
	f, _ := d.Float64()
	return &f
}

// stringField reads a trimmed string from a record, tolerating non-string
// scalar values.
func stringField(record map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := record[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			if t := strings.TrimSpace(s); t != "" {
				return t
			}
			continue
		}
		if n, ok := v.(json.Number); ok {
			return n.String()
		}
	}
	return ""
}
