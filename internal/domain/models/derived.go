package models

import (
	"encoding/json"
	"time"
)

// DailyOHLC summarizes one field's intraday series for a civil day.
// Open/close come from the day's first/last snapshots, high/low from the
// min/max over the day; any of the four may be nil when no data exists.
type DailyOHLC struct {
	Date  string   `json:"date"`
	Field Field    `json:"field"`
	Open  *float64 `json:"open"`
	High  *float64 `json:"high"`
	Low   *float64 `json:"low"`
	Close *float64 `json:"close"`
}

// HistoryPoint is one day's close values for a requested subset of fields.
type HistoryPoint struct {
	Date   string
	Values map[Field]*float64
}

// MarshalJSON flattens the point to {date, <field>: value, ...}.
func (p HistoryPoint) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Values)+1)
	m["date"] = p.Date
	for f, v := range p.Values {
		m[string(f)] = v
	}
	return json.Marshal(m)
}

// BestQuote is the winning bank for one field on a day, with the latest
// in-window timestamp at which the winning value was observed.
type BestQuote struct {
	Bank  string     `json:"bank"`
	Value float64    `json:"value"`
	At    *time.Time `json:"at"`
}

// BestOfDay ranks banks across one day: cheapest sell, highest buy rates.
// A field with no non-null observations has a nil entry.
type BestOfDay struct {
	Code            string     `json:"code"`
	Date            string     `json:"date"`
	BestSell        *BestQuote `json:"best_sell"`
	BestBuyCash     *BestQuote `json:"best_buy_cash"`
	BestBuyTransfer *BestQuote `json:"best_buy_transfer"`
}

// RefValue is a value with the timestamp it was observed at.
type RefValue struct {
	At    *time.Time `json:"at"`
	Value *float64   `json:"value"`
}

// LatestComparison is the latest value of one field next to yesterday's
// close, with the derived change. Pct is nil when the close is nil or zero.
type LatestComparison struct {
	Bank           string    `json:"bank"`
	Code           string    `json:"code"`
	Field          Field     `json:"field"`
	At             time.Time `json:"observed_at"`
	Value          *float64  `json:"value"`
	YesterdayClose RefValue  `json:"yesterday_close"`
	Change         *float64  `json:"change"`
	Pct            *float64  `json:"pct"`
	Snapshot       *Snapshot `json:"snapshot,omitempty"`
}

// BankLatest is one bank's newest snapshot in a cross-bank view.
type BankLatest struct {
	Bank       string    `json:"bank"`
	ObservedAt time.Time `json:"observed_at"`
	Name       *string   `json:"name,omitempty"`
	Source     string    `json:"source,omitempty"`
	Values     FieldSet  `json:"values"`
}

// LatestAcrossBanks fans out one code to the newest snapshot per bank.
// AsOf is the maximum observed_at across the set, nil when empty.
type LatestAcrossBanks struct {
	Code  string       `json:"code"`
	AsOf  *time.Time   `json:"as_of"`
	Banks []BankLatest `json:"banks"`
}

// Trend direction of a delta.
const (
	TrendUp   = "up"
	TrendDown = "down"
	TrendFlat = "flat"
)

// Delta compares a field's latest value with the nearest snapshot at or
// before the 24h lookback. All members are nil when either side is null.
type Delta struct {
	PrevValue *float64 `json:"prev_value"`
	Change    *float64 `json:"change"`
	Pct       *float64 `json:"pct"`
	Trend     *string  `json:"trend"`
}

// PairView is one currency pair's latest snapshot for a bank, with per
// field 24h deltas.
type PairView struct {
	Code       string          `json:"code"`
	Name       *string         `json:"name"`
	ObservedAt time.Time       `json:"observed_at"`
	Source     string          `json:"source,omitempty"`
	Values     FieldSet        `json:"values"`
	Deltas     map[Field]Delta `json:"deltas"`
}

// PairsView is the cross-code latest view for one bank.
type PairsView struct {
	Bank  string     `json:"bank"`
	AsOf  *time.Time `json:"as_of"`
	Items []PairView `json:"items"`
}

// FieldSet is a subset of price fields keyed by field name.
type FieldSet map[Field]*float64

// FieldSetOf projects the requested fields out of a snapshot.
func FieldSetOf(s *Snapshot, fields []Field) FieldSet {
	out := make(FieldSet, len(fields))
	for _, f := range fields {
		out[f] = s.Value(f)
	}
	return out
}
