package syncer

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/guregu/null/v5"

	"github.com/somiandras/dividend-data/internal/model"
	"github.com/somiandras/dividend-data/internal/store"
)

type stubFetcher struct {
	series *model.MergedSeries
	err    error
	calls  []int
}

func (s *stubFetcher) Fetch(ticker string, years int) (*model.MergedSeries, error) {
	s.calls = append(s.calls, years)
	if s.err != nil {
		return nil, s.err
	}
	if s.series != nil {
		return s.series, nil
	}
	return &model.MergedSeries{Ticker: ticker}, nil
}

func day(d int) time.Time {
	return time.Date(2020, 1, d, 0, 0, 0, 0, time.UTC)
}

func newEngine(f *stubFetcher, st store.Store) *Engine {
	e := New(f, st)
	e.now = func() time.Time { return time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC) }
	return e
}

func exampleSeries() *model.MergedSeries {
	return &model.MergedSeries{
		Ticker: "AAA",
		Prices: []model.PriceObservation{
			{Date: day(1), AdjClose: 100},
			{
				Date:          day(2),
				AdjClose:      102,
				LastDivAnnual: null.FloatFrom(4.00),
				DivYield:      null.FloatFrom(4.00 / 102 * 100),
			},
		},
		Dividends: []model.DividendObservation{
			{Date: day(2), Amount: 1.00},
		},
	}
}

func TestSync_FirstSyncUsesMaxLookback(t *testing.T) {
	st := store.NewMemoryStore()
	f := &stubFetcher{series: exampleSeries()}
	e := newEngine(f, st)

	added, err := e.Sync("AAA")
	if err != nil {
		t.Fatalf("unexpected sync error: %v", err)
	}
	if added != 3 {
		t.Errorf("expected 3 appended observations, got %d", added)
	}
	if len(f.calls) != 1 || f.calls[0] != 20 {
		t.Errorf("expected maximum 20 year look-back for unknown security, got %v", f.calls)
	}

	h, err := st.History("AAA")
	if err != nil || h == nil {
		t.Fatalf("expected stored history, got %v, %v", h, err)
	}
	if len(h.Prices) != 2 || len(h.Dividends) != 1 {
		t.Fatalf("unexpected stored series sizes: %d prices, %d dividends", len(h.Prices), len(h.Dividends))
	}

	second := h.Prices[1]
	if !second.LastDivAnnual.Valid || second.LastDivAnnual.Float64 != 4.00 {
		t.Errorf("expected stored lastDivAnnual 4.00, got %+v", second.LastDivAnnual)
	}
	if !second.DivYield.Valid || math.Abs(second.DivYield.Float64-3.9215686274509802) > 1e-9 {
		t.Errorf("expected stored divYield ~3.92, got %+v", second.DivYield)
	}
	if h.Dividends[0].Amount != 1.00 || !h.Dividends[0].Date.Equal(day(2)) {
		t.Errorf("unexpected dividend observation: %+v", h.Dividends[0])
	}
}

func TestSync_IdempotentOnUnchangedUpstream(t *testing.T) {
	st := store.NewMemoryStore()
	f := &stubFetcher{series: exampleSeries()}
	e := newEngine(f, st)

	if _, err := e.Sync("AAA"); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	added, err := e.Sync("AAA")
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if added != 0 {
		t.Errorf("expected zero new observations on unchanged upstream, got %d", added)
	}

	h, _ := st.History("AAA")
	if len(h.Prices) != 2 || len(h.Dividends) != 1 {
		t.Errorf("repeated sync changed stored sizes: %d prices, %d dividends", len(h.Prices), len(h.Dividends))
	}
}

func TestSync_AppendsOnlyNewObservations(t *testing.T) {
	st := store.NewMemoryStore()
	f := &stubFetcher{series: exampleSeries()}
	e := newEngine(f, st)

	if _, err := e.Sync("AAA"); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	before, _ := e.watermark("AAA")

	// Upstream window now includes one newer trading day.
	extended := exampleSeries()
	extended.Prices = append(extended.Prices, model.PriceObservation{
		Date:          day(3),
		AdjClose:      105,
		LastDivAnnual: null.FloatFrom(4.00),
		DivYield:      null.FloatFrom(4.00 / 105 * 100),
	})
	f.series = extended

	added, err := e.Sync("AAA")
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if added != 1 {
		t.Errorf("expected 1 new observation, got %d", added)
	}

	h, _ := st.History("AAA")
	seen := map[time.Time]bool{}
	for _, p := range h.Prices {
		if seen[p.Date] {
			t.Fatalf("duplicate price date %s in stored series", p.Date.Format("2006-01-02"))
		}
		seen[p.Date] = true
	}

	after, _ := e.watermark("AAA")
	if after.Before(before) {
		t.Errorf("watermark moved backwards: %s -> %s", before, after)
	}

	// Watermark of 2020-01-02 against a June 2020 clock needs a 2 year window.
	if f.calls[1] != 2 {
		t.Errorf("expected 2 year look-back for recent watermark, got %d", f.calls[1])
	}
}

func TestSync_FetchErrorLeavesStoreUntouched(t *testing.T) {
	st := store.NewMemoryStore()
	f := &stubFetcher{err: errors.New("upstream down")}
	e := newEngine(f, st)

	if _, err := e.Sync("AAA"); err == nil {
		t.Fatal("expected sync error when fetch fails")
	}
	h, _ := st.History("AAA")
	if h != nil {
		t.Errorf("expected no history record after failed fetch, got %+v", h)
	}
}

func TestSync_EmptySeriesIsSuccess(t *testing.T) {
	st := store.NewMemoryStore()
	f := &stubFetcher{}
	e := newEngine(f, st)

	added, err := e.Sync("AAA")
	if err != nil {
		t.Fatalf("expected empty series to be a successful no-op, got %v", err)
	}
	if added != 0 {
		t.Errorf("expected zero observations, got %d", added)
	}
}
