package model

import (
	"time"

	"github.com/guregu/null/v5"
)

// Epoch is the watermark sentinel for securities with no stored history.
var Epoch = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// PriceObservation is one trading day of a security's price series.
// LastDivAnnual is the most recent non-zero dividend carried forward and
// annualized; it is null until the first dividend appears in the window.
type PriceObservation struct {
	Date          time.Time  `json:"date"`
	AdjClose      float64    `json:"adjClose"`
	LastDivAnnual null.Float `json:"lastDivAnnual"`
	DivYield      null.Float `json:"divYield"`
}

// DividendObservation is one actual dividend payment.
type DividendObservation struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"dividend"`
}

// MergedSeries is the result of joining quote, dividend and split history
// for one security over a fetch window. Both slices are ordered by date
// ascending.
type MergedSeries struct {
	Ticker    string
	Prices    []PriceObservation
	Dividends []DividendObservation
}
