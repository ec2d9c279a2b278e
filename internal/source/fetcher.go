package source

import "github.com/somiandras/dividend-data/internal/model"

// Fetcher retrieves the merged price and dividend history for one security
// over the requested look-back window.
type Fetcher interface {
	Fetch(ticker string, lookbackYears int) (*model.MergedSeries, error)
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Series map[string]*model.MergedSeries
	Err    error
}

func (m *MockFetcher) Fetch(ticker string, _ int) (*model.MergedSeries, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if s, ok := m.Series[ticker]; ok {
		return s, nil
	}
	return &model.MergedSeries{Ticker: ticker}, nil
}
