package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v5"

	"github.com/somiandras/dividend-data/internal/model"
)

// ErrPermanentAuth means the authorization retry budget is exhausted.
var ErrPermanentAuth = errors.New("giving up after repeated auth failures against quote source")

// maxAuthAttempts caps download attempts. The counter is shared across the
// three resource types and resets only on a successful download, matching
// the upstream API's observed auth-expiry behavior.
const maxAuthAttempts = 10

const dateLayout = "2006-01-02"

// Resource types offered by the download endpoint.
const (
	eventHistory  = "history"
	eventDividend = "div"
	eventSplit    = "split"
)

// YahooFetcher downloads quote, dividend and split CSV history for a ticker
// and merges them into a single per-date series with derived yield fields.
type YahooFetcher struct {
	DownloadURL string
	Creds       CredentialProvider
	Client      *http.Client

	attempts int
	now      func() time.Time
}

// NewYahooFetcher creates a fetcher with optional proxy support.
func NewYahooFetcher(downloadURL string, creds CredentialProvider, proxyURL string) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		DownloadURL: strings.TrimRight(downloadURL, "/"),
		Creds:       creds,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		now: time.Now,
	}
}

// Fetch retrieves and merges the three history resources for the given
// ticker. The look-back window is clamped to at least one year.
func (f *YahooFetcher) Fetch(ticker string, lookbackYears int) (*model.MergedSeries, error) {
	if lookbackYears < 1 {
		lookbackYears = 1
	}
	end := f.now()
	start := end.AddDate(-lookbackYears, 0, 0)

	quotes, err := f.download(ticker, eventHistory, start, end)
	if err != nil {
		return nil, err
	}
	divs, err := f.download(ticker, eventDividend, start, end)
	if err != nil {
		return nil, err
	}
	splits, err := f.download(ticker, eventSplit, start, end)
	if err != nil {
		return nil, err
	}

	return mergeSeries(ticker, quotes, divs, splits)
}

// download fetches one CSV resource, renewing credentials on auth expiry.
func (f *YahooFetcher) download(ticker, event string, start, end time.Time) ([][]string, error) {
	for {
		creds, err := f.Creds.Acquire()
		if err != nil {
			return nil, fmt.Errorf("acquire credentials: %w", err)
		}

		f.attempts++

		u := fmt.Sprintf("%s/%s", f.DownloadURL, url.PathEscape(ticker))
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("download request: %w", err)
		}
		q := req.URL.Query()
		q.Set("period1", strconv.FormatInt(start.Unix(), 10))
		q.Set("period2", strconv.FormatInt(end.Unix(), 10))
		q.Set("interval", "1d")
		q.Set("events", event)
		q.Set("crumb", creds.Crumb)
		req.URL.RawQuery = q.Encode()
		req.Header.Set("User-Agent", "Mozilla/5.0")
		if creds.Cookie != "" {
			req.Header.Set("Cookie", creds.Cookie)
		}

		resp, err := f.Client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("download %s %s: %w", ticker, event, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("download %s %s: read body: %w", ticker, event, err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			f.attempts = 0
			records, err := csv.NewReader(strings.NewReader(string(body))).ReadAll()
			if err != nil {
				return nil, fmt.Errorf("download %s %s: parse csv: %w", ticker, event, err)
			}
			return records, nil
		case http.StatusUnauthorized:
			f.Creds.Invalidate()
			if f.attempts < maxAuthAttempts {
				log.Printf("[WARN] quote source auth expired for %s %s, renewing (attempt %d)", ticker, event, f.attempts)
				continue
			}
			return nil, ErrPermanentAuth
		default:
			return nil, fmt.Errorf("download %s %s: status %d", ticker, event, resp.StatusCode)
		}
	}
}

// mergeSeries outer-joins the three resources by date, fills gaps, derives
// annualized dividend and yield, and splits the result back into typed
// price and dividend streams.
func mergeSeries(ticker string, quotes, divs, splits [][]string) (*model.MergedSeries, error) {
	adjByDate, err := columnByDate(quotes, "Adj Close")
	if err != nil {
		return nil, fmt.Errorf("quote history for %s: %w", ticker, err)
	}
	divRaw, err := columnByDate(divs, "Dividends")
	if err != nil {
		return nil, fmt.Errorf("dividend history for %s: %w", ticker, err)
	}
	splitRaw, err := columnByDate(splits, "Stock Splits")
	if err != nil {
		return nil, fmt.Errorf("split history for %s: %w", ticker, err)
	}

	divByDate := make(map[string]float64, len(divRaw))
	for d, v := range divRaw {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		divByDate[d] = amount
	}

	// Split ratios are validated but not carried into the output series;
	// adjusted close already accounts for them.
	for d, v := range splitRaw {
		if _, err := parseSplitRatio(v); err != nil {
			return nil, fmt.Errorf("split history for %s on %s: %w", ticker, d, err)
		}
	}

	dates := make([]string, 0, len(adjByDate)+len(divByDate))
	seen := make(map[string]bool, len(adjByDate)+len(divByDate))
	for _, m := range []map[string]string{adjByDate, divRaw, splitRaw} {
		for d := range m {
			if !seen[d] {
				seen[d] = true
				dates = append(dates, d)
			}
		}
	}
	sort.Strings(dates)

	series := &model.MergedSeries{Ticker: ticker}
	var lastDivAnnual null.Float
	for _, d := range dates {
		raw, ok := adjByDate[d]
		if !ok {
			continue
		}
		adjClose, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			// Upstream series occasionally contain literal "null" cells.
			continue
		}
		date, err := time.Parse(dateLayout, d)
		if err != nil {
			continue
		}

		amount := divByDate[d]
		if amount != 0 {
			lastDivAnnual = null.FloatFrom(amount * 4)
			series.Dividends = append(series.Dividends, model.DividendObservation{
				Date:   date,
				Amount: amount,
			})
		}

		var divYield null.Float
		if lastDivAnnual.Valid && adjClose != 0 {
			divYield = null.FloatFrom(lastDivAnnual.Float64 / adjClose * 100)
		}

		series.Prices = append(series.Prices, model.PriceObservation{
			Date:          date,
			AdjClose:      adjClose,
			LastDivAnnual: lastDivAnnual,
			DivYield:      divYield,
		})
	}

	return series, nil
}

// columnByDate extracts a single named column keyed by the Date column.
func columnByDate(records [][]string, column string) (map[string]string, error) {
	if len(records) == 0 {
		return map[string]string{}, nil
	}
	header := records[0]
	dateIdx, valueIdx := -1, -1
	for i, name := range header {
		switch name {
		case "Date":
			dateIdx = i
		case column:
			valueIdx = i
		}
	}
	if dateIdx < 0 || valueIdx < 0 {
		return nil, fmt.Errorf("missing %q or Date column in csv header", column)
	}
	m := make(map[string]string, len(records)-1)
	for _, rec := range records[1:] {
		m[rec[dateIdx]] = rec[valueIdx]
	}
	return m, nil
}

// parseSplitRatio converts an "a/b" split to a numeric ratio. The literal
// "1" is the upstream no-split sentinel and passes through unchanged.
func parseSplitRatio(s string) (float64, error) {
	if s == "1" {
		return 1, nil
	}
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed split ratio %q", s)
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, fmt.Errorf("malformed split ratio %q", s)
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || b == 0 {
		return 0, fmt.Errorf("malformed split ratio %q", s)
	}
	return float64(a) / float64(b), nil
}
