package models

import "strings"

// Field identifies one of the quoted price fields.
type Field string

const (
	FieldBuyCash     Field = "buy_cash"
	FieldBuyTransfer Field = "buy_transfer"
	FieldSell        Field = "sell"
)

// AllFields returns the price fields in their canonical order.
func AllFields() []Field {
	return []Field{FieldBuyCash, FieldBuyTransfer, FieldSell}
}

// IsValidField returns true if f is a supported price field.
func IsValidField(f Field) bool {
	switch f {
	case FieldBuyCash, FieldBuyTransfer, FieldSell:
		return true
	default:
		return false
	}
}

// DefaultField returns the default query field.
func DefaultField() Field { return FieldSell }

// NormalizeField converts a raw string to a valid field (or default).
func NormalizeField(s string) Field {
	if s == "" {
		return DefaultField()
	}
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if IsValidField(f) {
		return f
	}
	return DefaultField()
}

// ParseFields parses a comma-separated field list. Empty input or "all"
// selects every price field; unknown names are dropped.
func ParseFields(s string) []Field {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return AllFields()
	}
	out := make([]Field, 0, 3)
	seen := make(map[Field]bool, 3)
	for _, part := range strings.Split(s, ",") {
		f := Field(strings.TrimSpace(part))
		if IsValidField(f) && !seen[f] {
			out = append(out, f)
			seen[f] = true
		}
	}
	if len(out) == 0 {
		return AllFields()
	}
	return out
}
