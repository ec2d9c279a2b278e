package roster

import (
	"strings"
	"testing"
	"time"

	"github.com/somiandras/dividend-data/internal/model"
)

const sampleCSV = `name,ticker,industry,divRaiseYrs,divg1y,divg3y,divg5y,divg10y,EPS
Triple A Corp,aaa,Widgets,26,5.5,6.1,5.9,6.4,3.21
Beta Inc,BBB,Gadgets,12,n/a,4.0,4.2,n/a,0.95
,,,0,,,,,
`

func TestParse_Roster(t *testing.T) {
	now := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	secs, err := Parse(strings.NewReader(sampleCSV), now)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if len(secs) != 2 {
		t.Fatalf("expected 2 securities (empty row skipped), got %d", len(secs))
	}

	aaa := secs[0]
	if aaa.Ticker != "AAA" {
		t.Errorf("expected upper-cased ticker AAA, got %q", aaa.Ticker)
	}
	if aaa.Category != "champion" {
		t.Errorf("expected champion for 26 years, got %q", aaa.Category)
	}
	if !aaa.EPS.Valid || aaa.EPS.Float64 != 3.21 {
		t.Errorf("expected EPS 3.21, got %+v", aaa.EPS)
	}
	if !aaa.Downloaded.Equal(now) {
		t.Errorf("expected ingestion stamp %s, got %s", now, aaa.Downloaded)
	}

	bbb := secs[1]
	if bbb.Category != "contender" {
		t.Errorf("expected contender for 12 years, got %q", bbb.Category)
	}
	if bbb.Divg1y.Valid || bbb.Divg10y.Valid {
		t.Errorf(`expected "n/a" growth rates to be absent, got %+v / %+v`, bbb.Divg1y, bbb.Divg10y)
	}
	if !bbb.Divg3y.Valid || bbb.Divg3y.Float64 != 4.0 {
		t.Errorf("expected divg3y 4.0, got %+v", bbb.Divg3y)
	}
}

func TestParse_MissingColumn(t *testing.T) {
	csv := "name,ticker,industry\nTriple A Corp,AAA,Widgets\n"
	if _, err := Parse(strings.NewReader(csv), time.Now()); err == nil {
		t.Fatal("expected error for roster missing required columns")
	}
}

func TestUpToDate(t *testing.T) {
	now := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	sameMonth := []model.Security{{Ticker: "AAA", Downloaded: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)}}
	lastMonth := []model.Security{{Ticker: "AAA", Downloaded: time.Date(2019, 12, 30, 0, 0, 0, 0, time.UTC)}}
	lastYear := []model.Security{{Ticker: "AAA", Downloaded: time.Date(2019, 1, 20, 0, 0, 0, 0, time.UTC)}}

	if !UpToDate(sameMonth, now) {
		t.Error("expected same-month roster to be up to date")
	}
	if UpToDate(lastMonth, now) {
		t.Error("expected last-month roster to be stale")
	}
	if UpToDate(lastYear, now) {
		t.Error("expected same-month-last-year roster to be stale")
	}
	if UpToDate(nil, now) {
		t.Error("expected empty roster to be stale")
	}
}
