package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/somiandras/dividend-data/internal/model"
)

// MemoryStore is an in-memory Store for tests and development. It enforces
// the same per-date uniqueness the SQLite backend gets from its primary keys.
type MemoryStore struct {
	mu        sync.Mutex
	secs      map[string]model.Security
	histories map[string]*History
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		secs:      make(map[string]model.Security),
		histories: make(map[string]*History),
	}
}

func (s *MemoryStore) Security(ticker string) (*model.Security, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, ok := s.secs[ticker]
	if !ok {
		return nil, ErrNotFound
	}
	return &sec, nil
}

func (s *MemoryStore) Securities() ([]model.Security, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	secs := make([]model.Security, 0, len(s.secs))
	for _, sec := range s.secs {
		secs = append(secs, sec)
	}
	sort.Slice(secs, func(i, j int) bool { return secs[i].Ticker < secs[j].Ticker })
	return secs, nil
}

func (s *MemoryStore) SaveSecurity(sec *model.Security) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.secs[sec.Ticker]
	if !ok {
		s.secs[sec.Ticker] = *sec
		return nil
	}
	// Roster fields only; the derived snapshot survives re-ingestion.
	stored.Name = sec.Name
	stored.Industry = sec.Industry
	stored.DivRaiseYrs = sec.DivRaiseYrs
	stored.Divg1y = sec.Divg1y
	stored.Divg3y = sec.Divg3y
	stored.Divg5y = sec.Divg5y
	stored.Divg10y = sec.Divg10y
	stored.EPS = sec.EPS
	stored.Category = sec.Category
	stored.Downloaded = sec.Downloaded
	s.secs[sec.Ticker] = stored
	return nil
}

func (s *MemoryStore) History(ticker string) (*History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.histories[ticker]
	if !ok {
		return nil, nil
	}
	out := &History{Ticker: ticker, LastSynced: h.LastSynced}
	out.Prices = append(out.Prices, h.Prices...)
	out.Dividends = append(out.Dividends, h.Dividends...)
	return out, nil
}

func (s *MemoryStore) AppendHistory(ticker string, prices []model.PriceObservation, dividends []model.DividendObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.histories[ticker]
	if !ok {
		h = &History{Ticker: ticker}
	}

	priceDates := make(map[time.Time]bool, len(h.Prices))
	for _, p := range h.Prices {
		priceDates[p.Date] = true
	}
	divDates := make(map[time.Time]bool, len(h.Dividends))
	for _, d := range h.Dividends {
		divDates[d.Date] = true
	}
	for _, p := range prices {
		if priceDates[p.Date] {
			return fmt.Errorf("duplicate price date %s for %s", p.Date.Format("2006-01-02"), ticker)
		}
	}
	for _, d := range dividends {
		if divDates[d.Date] {
			return fmt.Errorf("duplicate dividend date %s for %s", d.Date.Format("2006-01-02"), ticker)
		}
	}

	h.Prices = append(h.Prices, prices...)
	h.Dividends = append(h.Dividends, dividends...)
	sort.Slice(h.Prices, func(i, j int) bool { return h.Prices[i].Date.Before(h.Prices[j].Date) })
	sort.Slice(h.Dividends, func(i, j int) bool { return h.Dividends[i].Date.Before(h.Dividends[j].Date) })
	h.LastSynced = time.Now().UTC()
	s.histories[ticker] = h
	return nil
}

func (s *MemoryStore) UpdateProfile(ticker string, snap model.ProfileSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sec, ok := s.secs[ticker]
	if !ok {
		return ErrNotFound
	}
	sec.AnnualDividend = snap.AnnualDividend
	sec.Payout = snap.Payout
	sec.DivYield = snap.DivYield
	sec.YieldDist = snap.YieldDist
	sec.LastDataUsed = snap.LastDataUsed
	sec.LastUpdated = snap.LastUpdated
	s.secs[ticker] = sec
	return nil
}

func (s *MemoryStore) Close() error { return nil }
