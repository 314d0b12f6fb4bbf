package models

import "time"

// Snapshot is one stored observation of a bank's quoted rates for a
// currency code at a given hour bucket. The storage uniqueness key is
// (Bank, Code, ObservedAt); a later upsert on the same key replaces the
// whole value tuple.
type Snapshot struct {
	Bank        string    `json:"bank"`
	Code        string    `json:"code"`
	Name        *string   `json:"name,omitempty"`
	BuyCash     *float64  `json:"buy_cash"`
	BuyTransfer *float64  `json:"buy_transfer"`
	Sell        *float64  `json:"sell"`
	ObservedAt  time.Time `json:"observed_at"`
	Source      string    `json:"source,omitempty"`
	RecordedAt  time.Time `json:"recorded_at,omitempty"`
}

// Value returns the price for the given field, nil when not quoted.
func (s *Snapshot) Value(f Field) *float64 {
	switch f {
	case FieldBuyCash:
		return s.BuyCash
	case FieldBuyTransfer:
		return s.BuyTransfer
	case FieldSell:
		return s.Sell
	default:
		return nil
	}
}

// HasQuote reports whether at least one price field is present.
func (s *Snapshot) HasQuote() bool {
	return s.BuyCash != nil || s.BuyTransfer != nil || s.Sell != nil
}

// RawObservation is an unvalidated observation as produced by the
// acquisition layer or the admin API. Prices may arrive as numbers,
// numeric strings, null, or the "-" no-quote sentinel.
type RawObservation struct {
	Bank        string `json:"bank"`
	Code        string `json:"code"`
	Name        string `json:"name,omitempty"`
	BuyCash     Number `json:"buy_cash"`
	BuyTransfer Number `json:"buy_transfer"`
	Sell        Number `json:"sell"`
	ObservedAt  string `json:"observed_at,omitempty"`
	Source      string `json:"source,omitempty"`
}

// ObservationBatch is the transport envelope for a scrape run. At is the
// instant captured once at batch start so the whole run lands in a single
// hour bucket regardless of how it travels.
type ObservationBatch struct {
	At    time.Time        `json:"at"`
	Items []RawObservation `json:"items"`
}

// UpsertResult reports the outcome of a bulk upsert. The batch is not
// transactional: Failed counts records whose individual upsert errored.
type UpsertResult struct {
	Upserted int `json:"upserted"`
	Updated  int `json:"updated"`
	Matched  int `json:"matched"`
	Failed   int `json:"failed,omitempty"`
}

// IngestResult reports an ingestion run: normalization counts plus the
// store's upsert counts.
type IngestResult struct {
	Accepted  int          `json:"accepted"`
	Rejected  int          `json:"rejected"`
	Persisted UpsertResult `json:"persisted"`
}
