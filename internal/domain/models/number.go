package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Number accepts a JSON number, a numeric string, null, the empty string,
// or the "-" no-quote sentinel. Parsing is deferred to Float so the
// normalizer can distinguish "no quote" from "garbage" per record.
type Number struct {
	raw     string
	present bool
}

// NumberOf wraps a concrete value.
func NumberOf(v float64) Number {
	return Number{raw: strconv.FormatFloat(v, 'f', -1, 64), present: true}
}

// NumberText wraps raw text as received; Float applies the no-quote rules.
func NumberText(s string) Number {
	return Number{raw: s, present: true}
}

// NumberPtr wraps an optional value; nil stays "no quote".
func NumberPtr(v *float64) Number {
	if v == nil {
		return Number{}
	}
	return NumberOf(*v)
}

func (n *Number) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*n = Number{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*n = Number{raw: str, present: true}
		return nil
	}
	*n = Number{raw: s, present: true}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.present {
		return []byte("null"), nil
	}
	v, err := n.Float()
	if err != nil {
		// unparseable text survives the round trip verbatim
		return json.Marshal(n.raw)
	}
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*v)
}

// Float coerces to a value-or-nil. Null, absent, "" and "-" mean no quote;
// anything else must parse as a number. A literal 0 is a real value.
func (n Number) Float() (*float64, error) {
	if !n.present {
		return nil, nil
	}
	s := strings.TrimSpace(n.raw)
	if s == "" || s == "-" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", n.raw)
	}
	return &v, nil
}
