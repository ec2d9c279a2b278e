package model

import (
	"time"

	"github.com/guregu/null/v5"
)

// Security is one company from the dividend roster together with the derived
// snapshot the analytics engine maintains on it. Roster fields come from the
// ingested sheet; snapshot fields are recomputed after every sync.
type Security struct {
	Ticker      string     `json:"ticker"`
	Name        string     `json:"name"`
	Industry    string     `json:"industry"`
	DivRaiseYrs int        `json:"divRaiseYrs"`
	Divg1y      null.Float `json:"divg1y"`
	Divg3y      null.Float `json:"divg3y"`
	Divg5y      null.Float `json:"divg5y"`
	Divg10y     null.Float `json:"divg10y"`
	EPS         null.Float `json:"EPS"`
	Category    string     `json:"category"`
	Downloaded  time.Time  `json:"downloaded"`

	AnnualDividend null.Float         `json:"annualDividend"`
	Payout         null.Float         `json:"payout"`
	DivYield       null.Float         `json:"divYield"`
	YieldDist      *YieldDistribution `json:"yieldDist"`
	LastDataUsed   time.Time          `json:"lastDataUsed"`
	LastUpdated    time.Time          `json:"lastUpdated"`
}

// YieldDistribution summarizes dividend yield over a trailing window.
// Std is the population standard deviation.
type YieldDistribution struct {
	Interval int     `json:"interval"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
}

// ProfileSnapshot is the derived data written back onto a security profile
// in one atomic update after an analytics refresh.
type ProfileSnapshot struct {
	AnnualDividend null.Float
	Payout         null.Float
	DivYield       null.Float
	YieldDist      *YieldDistribution
	LastDataUsed   time.Time
	LastUpdated    time.Time
}
