package store

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/guregu/null/v5"
	_ "modernc.org/sqlite"

	"github.com/somiandras/dividend-data/internal/model"
)

// SQLiteStore persists securities and their series to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the read-only API can serve while the pipeline writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS securities (
			ticker          TEXT PRIMARY KEY,
			name            TEXT,
			industry        TEXT,
			div_raise_yrs   INTEGER,
			divg1y          REAL,
			divg3y          REAL,
			divg5y          REAL,
			divg10y         REAL,
			eps             REAL,
			category        TEXT,
			downloaded      INTEGER,
			annual_dividend REAL,
			payout          REAL,
			div_yield       REAL,
			yield_interval  INTEGER,
			yield_min       REAL,
			yield_max       REAL,
			yield_mean      REAL,
			yield_std       REAL,
			last_data_used  TEXT,
			last_updated    INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS history (
			ticker      TEXT PRIMARY KEY,
			last_synced INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS price_history (
			ticker          TEXT NOT NULL,
			date            TEXT NOT NULL,
			adj_close       REAL NOT NULL,
			last_div_annual REAL,
			div_yield       REAL,
			PRIMARY KEY (ticker, date)
		)`,

		`CREATE TABLE IF NOT EXISTS dividend_history (
			ticker TEXT NOT NULL,
			date   TEXT NOT NULL,
			amount REAL NOT NULL,
			PRIMARY KEY (ticker, date)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) Security(ticker string) (*model.Security, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`SELECT `+securityColumns+` FROM securities WHERE ticker = ?`, ticker)
	sec, err := scanSecurity(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query security %s: %w", ticker, err)
	}
	return sec, nil
}

func (s *SQLiteStore) Securities() ([]model.Security, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT ` + securityColumns + ` FROM securities ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("query securities: %w", err)
	}
	defer rows.Close()

	var secs []model.Security
	for rows.Next() {
		sec, err := scanSecurity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan security: %w", err)
		}
		secs = append(secs, *sec)
	}
	return secs, rows.Err()
}

func (s *SQLiteStore) SaveSecurity(sec *model.Security) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO securities
		(ticker, name, industry, div_raise_yrs, divg1y, divg3y, divg5y, divg10y, eps, category, downloaded)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(ticker) DO UPDATE SET
			name = excluded.name,
			industry = excluded.industry,
			div_raise_yrs = excluded.div_raise_yrs,
			divg1y = excluded.divg1y,
			divg3y = excluded.divg3y,
			divg5y = excluded.divg5y,
			divg10y = excluded.divg10y,
			eps = excluded.eps,
			category = excluded.category,
			downloaded = excluded.downloaded`,
		sec.Ticker, sec.Name, sec.Industry, sec.DivRaiseYrs,
		nullArg(sec.Divg1y), nullArg(sec.Divg3y), nullArg(sec.Divg5y), nullArg(sec.Divg10y),
		nullArg(sec.EPS), sec.Category, sec.Downloaded.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save security %s: %w", sec.Ticker, err)
	}
	return nil
}

func (s *SQLiteStore) History(ticker string) (*History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastSynced int64
	err := s.db.QueryRow(`SELECT last_synced FROM history WHERE ticker = ?`, ticker).Scan(&lastSynced)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query history %s: %w", ticker, err)
	}

	h := &History{Ticker: ticker, LastSynced: time.Unix(lastSynced, 0).UTC()}

	rows, err := s.db.Query(`SELECT date, adj_close, last_div_annual, div_yield
		FROM price_history WHERE ticker = ? ORDER BY date`, ticker)
	if err != nil {
		return nil, fmt.Errorf("query price history %s: %w", ticker, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			date     string
			adjClose float64
			lastDiv  sql.NullFloat64
			divYield sql.NullFloat64
		)
		if err := rows.Scan(&date, &adjClose, &lastDiv, &divYield); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("stored price date %q: %w", date, err)
		}
		h.Prices = append(h.Prices, model.PriceObservation{
			Date:          d,
			AdjClose:      adjClose,
			LastDivAnnual: null.NewFloat(lastDiv.Float64, lastDiv.Valid),
			DivYield:      null.NewFloat(divYield.Float64, divYield.Valid),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	divRows, err := s.db.Query(`SELECT date, amount
		FROM dividend_history WHERE ticker = ? ORDER BY date`, ticker)
	if err != nil {
		return nil, fmt.Errorf("query dividend history %s: %w", ticker, err)
	}
	defer divRows.Close()
	for divRows.Next() {
		var (
			date   string
			amount float64
		)
		if err := divRows.Scan(&date, &amount); err != nil {
			return nil, fmt.Errorf("scan dividend row: %w", err)
		}
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("stored dividend date %q: %w", date, err)
		}
		h.Dividends = append(h.Dividends, model.DividendObservation{Date: d, Amount: amount})
	}
	return h, divRows.Err()
}

func (s *SQLiteStore) AppendHistory(ticker string, prices []model.PriceObservation, dividends []model.DividendObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin append %s: %w", ticker, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO history (ticker, last_synced) VALUES (?,?)
		ON CONFLICT(ticker) DO UPDATE SET last_synced = excluded.last_synced`,
		ticker, time.Now().Unix()); err != nil {
		return fmt.Errorf("upsert history %s: %w", ticker, err)
	}

	for _, p := range prices {
		if _, err := tx.Exec(`INSERT INTO price_history
			(ticker, date, adj_close, last_div_annual, div_yield) VALUES (?,?,?,?,?)`,
			ticker, p.Date.Format(dateLayout), p.AdjClose,
			nullArg(p.LastDivAnnual), nullArg(p.DivYield)); err != nil {
			return fmt.Errorf("append price %s %s: %w", ticker, p.Date.Format(dateLayout), err)
		}
	}
	for _, d := range dividends {
		if _, err := tx.Exec(`INSERT INTO dividend_history (ticker, date, amount) VALUES (?,?,?)`,
			ticker, d.Date.Format(dateLayout), d.Amount); err != nil {
			return fmt.Errorf("append dividend %s %s: %w", ticker, d.Date.Format(dateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append %s: %w", ticker, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateProfile(ticker string, snap model.ProfileSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		interval, min, max, mean, std interface{}
	)
	if snap.YieldDist != nil {
		interval = snap.YieldDist.Interval
		min = snap.YieldDist.Min
		max = snap.YieldDist.Max
		mean = snap.YieldDist.Mean
		std = snap.YieldDist.Std
	}

	res, err := s.db.Exec(`UPDATE securities SET
			annual_dividend = ?,
			payout = ?,
			div_yield = ?,
			yield_interval = ?,
			yield_min = ?,
			yield_max = ?,
			yield_mean = ?,
			yield_std = ?,
			last_data_used = ?,
			last_updated = ?
		WHERE ticker = ?`,
		nullArg(snap.AnnualDividend), nullArg(snap.Payout), nullArg(snap.DivYield),
		interval, min, max, mean, std,
		snap.LastDataUsed.Format(dateLayout), snap.LastUpdated.Unix(), ticker,
	)
	if err != nil {
		return fmt.Errorf("update profile %s: %w", ticker, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	log.Println("[INFO] closing sqlite store")
	return s.db.Close()
}

const dateLayout = "2006-01-02"

const securityColumns = `ticker, name, industry, div_raise_yrs,
	divg1y, divg3y, divg5y, divg10y, eps, category, downloaded,
	annual_dividend, payout, div_yield,
	yield_interval, yield_min, yield_max, yield_mean, yield_std,
	last_data_used, last_updated`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSecurity(row rowScanner) (*model.Security, error) {
	var (
		sec                              model.Security
		divg1y, divg3y, divg5y, divg10y  sql.NullFloat64
		eps, annualDividend, payout      sql.NullFloat64
		divYield                         sql.NullFloat64
		yieldInterval                    sql.NullInt64
		yieldMin, yieldMax               sql.NullFloat64
		yieldMean, yieldStd              sql.NullFloat64
		downloaded, lastUpdated          sql.NullInt64
		lastDataUsed                     sql.NullString
	)
	err := row.Scan(&sec.Ticker, &sec.Name, &sec.Industry, &sec.DivRaiseYrs,
		&divg1y, &divg3y, &divg5y, &divg10y, &eps, &sec.Category, &downloaded,
		&annualDividend, &payout, &divYield,
		&yieldInterval, &yieldMin, &yieldMax, &yieldMean, &yieldStd,
		&lastDataUsed, &lastUpdated)
	if err != nil {
		return nil, err
	}

	sec.Divg1y = null.NewFloat(divg1y.Float64, divg1y.Valid)
	sec.Divg3y = null.NewFloat(divg3y.Float64, divg3y.Valid)
	sec.Divg5y = null.NewFloat(divg5y.Float64, divg5y.Valid)
	sec.Divg10y = null.NewFloat(divg10y.Float64, divg10y.Valid)
	sec.EPS = null.NewFloat(eps.Float64, eps.Valid)
	sec.AnnualDividend = null.NewFloat(annualDividend.Float64, annualDividend.Valid)
	sec.Payout = null.NewFloat(payout.Float64, payout.Valid)
	sec.DivYield = null.NewFloat(divYield.Float64, divYield.Valid)
	if downloaded.Valid {
		sec.Downloaded = time.Unix(downloaded.Int64, 0).UTC()
	}
	if lastUpdated.Valid {
		sec.LastUpdated = time.Unix(lastUpdated.Int64, 0).UTC()
	}
	if yieldInterval.Valid {
		sec.YieldDist = &model.YieldDistribution{
			Interval: int(yieldInterval.Int64),
			Min:      yieldMin.Float64,
			Max:      yieldMax.Float64,
			Mean:     yieldMean.Float64,
			Std:      yieldStd.Float64,
		}
	}
	if lastDataUsed.Valid && lastDataUsed.String != "" {
		d, err := time.Parse(dateLayout, lastDataUsed.String)
		if err != nil {
			return nil, fmt.Errorf("stored last_data_used %q: %w", lastDataUsed.String, err)
		}
		sec.LastDataUsed = d
	}
	return &sec, nil
}

func nullArg(f null.Float) interface{} {
	if f.Valid {
		return f.Float64
	}
	return nil
}
