package store

import (
	"errors"
	"time"

	"github.com/somiandras/dividend-data/internal/model"
)

// ErrNotFound is returned for lookups on unknown securities.
var ErrNotFound = errors.New("security not found")

// History is the stored per-security series pair. Both slices are ordered by
// date ascending and contain no duplicate dates.
type History struct {
	Ticker     string                      `json:"ticker"`
	Prices     []model.PriceObservation    `json:"price"`
	Dividends  []model.DividendObservation `json:"dividend"`
	LastSynced time.Time                   `json:"lastUpdated"`
}

// Store is the persistence surface for security profiles and their series.
// It deliberately mirrors document-store primitives: point lookup by ticker,
// set-if-absent-else-append on the history arrays, field updates on the
// profile, and listing all securities.
type Store interface {
	// Security returns one profile, or ErrNotFound.
	Security(ticker string) (*model.Security, error)
	// Securities lists all profiles.
	Securities() ([]model.Security, error)
	// SaveSecurity inserts or updates the roster-owned profile fields,
	// leaving any derived snapshot untouched.
	SaveSecurity(sec *model.Security) error
	// History returns the stored series, or nil when the security has no
	// history record yet.
	History(ticker string) (*History, error)
	// AppendHistory creates the history record if absent and appends the
	// given observations to its arrays in one all-or-nothing call.
	AppendHistory(ticker string, prices []model.PriceObservation, dividends []model.DividendObservation) error
	// UpdateProfile writes a derived snapshot onto an existing profile.
	UpdateProfile(ticker string, snap model.ProfileSnapshot) error
	Close() error
}
