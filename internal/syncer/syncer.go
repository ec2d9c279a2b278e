package syncer

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/somiandras/dividend-data/internal/model"
	"github.com/somiandras/dividend-data/internal/source"
	"github.com/somiandras/dividend-data/internal/store"
)

// Engine keeps a security's stored history in step with the upstream source.
// It computes the watermark from stored data, fetches only a window that
// covers the gap, and appends strictly newer observations, which makes
// repeated runs idempotent.
type Engine struct {
	Fetcher  source.Fetcher
	Store    store.Store
	MaxYears int

	now func() time.Time
}

// New creates a sync engine with the default 20 year maximum look-back.
func New(fetcher source.Fetcher, st store.Store) *Engine {
	return &Engine{
		Fetcher:  fetcher,
		Store:    st,
		MaxYears: 20,
		now:      time.Now,
	}
}

// Sync brings one security's stored series up to date and returns the number
// of observations appended. Zero with a nil error means the store already
// held everything the upstream window contained.
func (e *Engine) Sync(ticker string) (int, error) {
	watermark, err := e.watermark(ticker)
	if err != nil {
		return 0, err
	}

	years := e.MaxYears
	if !watermark.Equal(model.Epoch) {
		days := e.now().Sub(watermark).Hours() / 24
		years = int(math.Ceil(days/365)) + 1
		if years > e.MaxYears {
			years = e.MaxYears
		}
	}

	series, err := e.Fetcher.Fetch(ticker, years)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", ticker, err)
	}

	var prices []model.PriceObservation
	for _, p := range series.Prices {
		if p.Date.After(watermark) {
			prices = append(prices, p)
		}
	}
	var dividends []model.DividendObservation
	for _, d := range series.Dividends {
		if d.Date.After(watermark) {
			dividends = append(dividends, d)
		}
	}

	if len(prices) == 0 && len(dividends) == 0 {
		log.Printf("[INFO] no new data for %s", ticker)
		return 0, nil
	}

	if err := e.Store.AppendHistory(ticker, prices, dividends); err != nil {
		return 0, fmt.Errorf("append history %s: %w", ticker, err)
	}

	added := len(prices) + len(dividends)
	log.Printf("[INFO] %s history updated with %d values", ticker, added)
	return added, nil
}

// watermark returns the latest stored price date for the ticker, or the
// epoch sentinel when no history exists yet.
func (e *Engine) watermark(ticker string) (time.Time, error) {
	h, err := e.Store.History(ticker)
	if err != nil {
		return time.Time{}, fmt.Errorf("read history %s: %w", ticker, err)
	}
	if h == nil || len(h.Prices) == 0 {
		return model.Epoch, nil
	}
	max := h.Prices[0].Date
	for _, p := range h.Prices[1:] {
		if p.Date.After(max) {
			max = p.Date
		}
	}
	return max, nil
}
