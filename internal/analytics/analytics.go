package analytics

import (
	"fmt"
	"log"
	"time"

	"github.com/guregu/null/v5"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/somiandras/dividend-data/internal/model"
	"github.com/somiandras/dividend-data/internal/store"
)

// Engine derives profile metrics from a security's stored history and writes
// them back as one snapshot.
type Engine struct {
	Store    store.Store
	Interval int // yield distribution window in years

	now func() time.Time
}

// New creates an analytics engine with the default 10 year yield window.
func New(st store.Store) *Engine {
	return &Engine{
		Store:    st,
		Interval: 10,
		now:      time.Now,
	}
}

// RefreshProfile recomputes the derived snapshot for one security. When the
// latest stored observation was already used for the current snapshot the
// refresh is skipped and reported as success.
func (e *Engine) RefreshProfile(ticker string) error {
	sec, err := e.Store.Security(ticker)
	if err != nil {
		return fmt.Errorf("read profile %s: %w", ticker, err)
	}
	h, err := e.Store.History(ticker)
	if err != nil {
		return fmt.Errorf("read history %s: %w", ticker, err)
	}
	if h == nil || len(h.Prices) == 0 {
		return fmt.Errorf("no stored history for %s", ticker)
	}

	latest := h.Prices[0]
	for _, p := range h.Prices[1:] {
		if p.Date.After(latest.Date) {
			latest = p
		}
	}

	if !sec.LastDataUsed.IsZero() && sec.LastDataUsed.Equal(latest.Date) {
		log.Printf("[INFO] no new data for %s, skipping profile refresh", ticker)
		return nil
	}

	snap := model.ProfileSnapshot{
		AnnualDividend: latest.LastDivAnnual,
		Payout:         PayoutRatio(latest.LastDivAnnual, sec.EPS),
		DivYield:       latest.DivYield,
		YieldDist:      YieldDistribution(h.Prices, e.Interval),
		LastDataUsed:   latest.Date,
		LastUpdated:    e.now(),
	}

	if err := e.Store.UpdateProfile(ticker, snap); err != nil {
		return fmt.Errorf("update profile %s: %w", ticker, err)
	}
	log.Printf("[INFO] %s profile updated", ticker)
	return nil
}

// PayoutRatio is the annualized dividend over earnings per share as a
// percentage. It is undefined unless EPS is present and positive.
func PayoutRatio(annualDividend, eps null.Float) null.Float {
	if !annualDividend.Valid || !eps.Valid || eps.Float64 <= 0 {
		return null.Float{}
	}
	return null.FloatFrom(annualDividend.Float64 / eps.Float64 * 100)
}

// YieldDistribution summarizes the defined yields inside the trailing
// interval ending at the latest observation. It returns nil rather than
// aggregates over an empty set.
func YieldDistribution(prices []model.PriceObservation, interval int) *model.YieldDistribution {
	if len(prices) == 0 {
		return nil
	}
	maxDate := prices[0].Date
	for _, p := range prices[1:] {
		if p.Date.After(maxDate) {
			maxDate = p.Date
		}
	}
	start := maxDate.AddDate(-interval, 0, 0)

	var yields []float64
	for _, p := range prices {
		if p.Date.After(start) && p.DivYield.Valid {
			yields = append(yields, p.DivYield.Float64)
		}
	}
	if len(yields) == 0 {
		return nil
	}
	return &model.YieldDistribution{
		Interval: interval,
		Min:      floats.Min(yields),
		Max:      floats.Max(yields),
		Mean:     stat.Mean(yields, nil),
		Std:      stat.PopStdDev(yields, nil),
	}
}

// Categorize maps consecutive dividend-raise years to a roster category.
func Categorize(years int) string {
	switch {
	case years > 24:
		return "champion"
	case years > 9:
		return "contender"
	default:
		return "challenger"
	}
}
