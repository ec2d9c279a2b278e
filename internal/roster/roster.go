package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v5"

	"github.com/somiandras/dividend-data/internal/analytics"
	"github.com/somiandras/dividend-data/internal/model"
)

// The roster file is a pre-shaped CSV whose columns were already renamed by
// the producing collaborator; "n/a" marks an absent value.
var requiredColumns = []string{"name", "ticker", "industry", "divRaiseYrs", "divg1y", "divg3y", "divg5y", "divg10y", "EPS"}

// Load reads the roster CSV at path and returns the securities it defines,
// each stamped with its category and the ingestion time.
func Load(path string, now time.Time) ([]model.Security, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	return Parse(f, now)
}

// Parse reads roster rows from r. Rows without a ticker are skipped.
func Parse(r io.Reader, now time.Time) ([]model.Security, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read roster header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("roster is missing column %q", col)
		}
	}

	var secs []model.Security
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster row: %w", err)
		}

		ticker := strings.ToUpper(strings.TrimSpace(rec[idx["ticker"]]))
		if ticker == "" {
			continue
		}

		years := parseYears(rec[idx["divRaiseYrs"]])
		secs = append(secs, model.Security{
			Ticker:      ticker,
			Name:        strings.TrimSpace(rec[idx["name"]]),
			Industry:    strings.TrimSpace(rec[idx["industry"]]),
			DivRaiseYrs: years,
			Divg1y:      parseFloat(rec[idx["divg1y"]]),
			Divg3y:      parseFloat(rec[idx["divg3y"]]),
			Divg5y:      parseFloat(rec[idx["divg5y"]]),
			Divg10y:     parseFloat(rec[idx["divg10y"]]),
			EPS:         parseFloat(rec[idx["EPS"]]),
			Category:    analytics.Categorize(years),
			Downloaded:  now,
		})
	}
	return secs, nil
}

// UpToDate reports whether the stored roster was already ingested this
// calendar month, in which case re-ingestion is skipped.
func UpToDate(secs []model.Security, now time.Time) bool {
	var max time.Time
	for _, sec := range secs {
		if sec.Downloaded.After(max) {
			max = sec.Downloaded
		}
	}
	return !max.IsZero() && max.Year() == now.Year() && max.Month() == now.Month()
}

func parseFloat(s string) null.Float {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "n/a") {
		return null.Float{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

func parseYears(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}
