package models

// Requests for rate HTTP endpoints. Defined in domain for consistency and reuse.

type LatestRequest struct {
	Bank  string `query:"bank" json:"bank" validate:"required"`
	Code  string `query:"code" json:"code" validate:"required"`
	Field string `query:"field" json:"field" default:"sell" validate:"oneof=sell buy_cash buy_transfer"`
}

type CompareRequest struct {
	Bank  string `query:"bank" json:"bank" validate:"required"`
	Code  string `query:"code" json:"code" validate:"required"`
	Field string `query:"field" json:"field" default:"sell" validate:"oneof=sell buy_cash buy_transfer"`
}

type HistoryRequest struct {
	Bank   string `query:"bank" json:"bank" validate:"required"`
	Code   string `query:"code" json:"code" validate:"required"`
	Range  string `query:"range" json:"range" default:"1m" validate:"oneof=1w 1m 3m 1y"`
	Fields string `query:"fields" json:"fields" default:"all"`
}

type DailyOHLCRequest struct {
	Bank  string `query:"bank" json:"bank" validate:"required"`
	Code  string `query:"code" json:"code" validate:"required"`
	Date  string `query:"date" json:"date" validate:"omitempty,datetime=2006-01-02"`
	Field string `query:"field" json:"field" default:"sell" validate:"oneof=sell buy_cash buy_transfer"`
}

type BestTodayRequest struct {
	Code string `query:"code" json:"code" validate:"required"`
	Date string `query:"date" json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type LatestAllRequest struct {
	Code   string `query:"code" json:"code" validate:"required"`
	Fields string `query:"fields" json:"fields" default:"all"`
}

type PairsRequest struct {
	Bank   string `query:"bank" json:"bank" validate:"required"`
	Fields string `query:"fields" json:"fields" default:"all"`
}

type SnapshotsRequest struct {
	Items []RawObservation `json:"items" validate:"required,min=1"`
}
