package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guregu/null/v5"

	"github.com/somiandras/dividend-data/internal/analytics"
	"github.com/somiandras/dividend-data/internal/model"
	"github.com/somiandras/dividend-data/internal/store"
	"github.com/somiandras/dividend-data/internal/syncer"
)

type mapFetcher struct {
	series map[string]*model.MergedSeries
	errs   map[string]error
}

func (m *mapFetcher) Fetch(ticker string, _ int) (*model.MergedSeries, error) {
	if err, ok := m.errs[ticker]; ok {
		return nil, err
	}
	if s, ok := m.series[ticker]; ok {
		return s, nil
	}
	return &model.MergedSeries{Ticker: ticker}, nil
}

func seriesFor(ticker string) *model.MergedSeries {
	return &model.MergedSeries{
		Ticker: ticker,
		Prices: []model.PriceObservation{
			{
				Date:          time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
				AdjClose:      100,
				LastDivAnnual: null.FloatFrom(4),
				DivYield:      null.FloatFrom(4),
			},
		},
		Dividends: []model.DividendObservation{
			{Date: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), Amount: 1},
		},
	}
}

func TestRun_ContainsPerSecurityFailures(t *testing.T) {
	st := store.NewMemoryStore()
	for _, ticker := range []string{"AAA", "BBB"} {
		if err := st.SaveSecurity(&model.Security{Ticker: ticker, EPS: null.FloatFrom(2)}); err != nil {
			t.Fatalf("seed %s: %v", ticker, err)
		}
	}

	f := &mapFetcher{
		series: map[string]*model.MergedSeries{"AAA": seriesFor("AAA")},
		errs:   map[string]error{"BBB": errors.New("upstream down")},
	}
	p := New(st, syncer.New(f, st), analytics.New(st), "")

	report := p.Run()
	if len(report.Results) != 2 {
		t.Fatalf("expected both securities processed, got %d results", len(report.Results))
	}
	if report.Failed() != 1 {
		t.Errorf("expected 1 failed security, got %d", report.Failed())
	}

	var aaa, bbb model.TickerResult
	for _, res := range report.Results {
		switch res.Ticker {
		case "AAA":
			aaa = res
		case "BBB":
			bbb = res
		}
	}
	if !aaa.Synced || !aaa.Refreshed || aaa.Err != "" {
		t.Errorf("expected AAA to fully succeed, got %+v", aaa)
	}
	if bbb.Synced || bbb.Err == "" {
		t.Errorf("expected BBB to fail at sync, got %+v", bbb)
	}

	sec, err := st.Security("AAA")
	if err != nil {
		t.Fatalf("read AAA profile: %v", err)
	}
	if !sec.AnnualDividend.Valid || sec.AnnualDividend.Float64 != 4 {
		t.Errorf("expected AAA snapshot written despite BBB failure, got %+v", sec.AnnualDividend)
	}
}

func TestRun_IngestsRosterOnFirstRun(t *testing.T) {
	csv := "name,ticker,industry,divRaiseYrs,divg1y,divg3y,divg5y,divg10y,EPS\n" +
		"Triple A Corp,AAA,Widgets,26,5.5,6.1,5.9,6.4,3.21\n" +
		"Beta Inc,BBB,Gadgets,12,n/a,4.0,4.2,n/a,0.95\n"
	path := filepath.Join(t.TempDir(), "roster.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}

	st := store.NewMemoryStore()
	f := &mapFetcher{series: map[string]*model.MergedSeries{
		"AAA": seriesFor("AAA"),
		"BBB": seriesFor("BBB"),
	}}
	p := New(st, syncer.New(f, st), analytics.New(st), path)

	report := p.Run()
	if report.Failed() != 0 {
		t.Fatalf("expected clean run, got %d failures: %+v", report.Failed(), report.Results)
	}

	secs, err := st.Securities()
	if err != nil {
		t.Fatalf("list securities: %v", err)
	}
	if len(secs) != 2 {
		t.Fatalf("expected 2 ingested securities, got %d", len(secs))
	}
	if secs[0].Category != "champion" || secs[1].Category != "contender" {
		t.Errorf("expected categories assigned at ingestion, got %q/%q", secs[0].Category, secs[1].Category)
	}

	h, err := st.History("AAA")
	if err != nil || h == nil {
		t.Fatalf("expected synced history for AAA, got %v, %v", h, err)
	}
}
