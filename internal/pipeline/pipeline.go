package pipeline

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/somiandras/dividend-data/internal/analytics"
	"github.com/somiandras/dividend-data/internal/model"
	"github.com/somiandras/dividend-data/internal/roster"
	"github.com/somiandras/dividend-data/internal/store"
	"github.com/somiandras/dividend-data/internal/syncer"
)

// Pipeline runs roster ingestion, history sync and profile refresh for every
// security in roster order. Failures stay contained to the security they
// occur on; the run always processes the full list and reports an aggregate
// result.
type Pipeline struct {
	Store      store.Store
	Syncer     *syncer.Engine
	Analytics  *analytics.Engine
	RosterPath string

	now func() time.Time
}

func New(st store.Store, sync *syncer.Engine, an *analytics.Engine, rosterPath string) *Pipeline {
	return &Pipeline{
		Store:      st,
		Syncer:     sync,
		Analytics:  an,
		RosterPath: rosterPath,
		now:        time.Now,
	}
}

// Run executes one full pipeline pass and returns the aggregate report.
func (p *Pipeline) Run() *model.RunReport {
	report := &model.RunReport{ID: uuid.New(), StartedAt: p.now()}
	log.Printf("[INFO] pipeline run %s starting", report.ID)

	secs, err := p.refreshRoster()
	if err != nil {
		log.Printf("[ERROR] roster refresh: %v", err)
		report.FinishedAt = p.now()
		return report
	}

	for _, sec := range secs {
		res := model.TickerResult{Ticker: sec.Ticker}

		added, err := p.Syncer.Sync(sec.Ticker)
		if err != nil {
			log.Printf("[ERROR] sync %s: %v", sec.Ticker, err)
			res.Err = err.Error()
			report.Results = append(report.Results, res)
			continue
		}
		res.Synced = true
		res.NewRows = added

		if err := p.Analytics.RefreshProfile(sec.Ticker); err != nil {
			log.Printf("[ERROR] refresh profile %s: %v", sec.Ticker, err)
			res.Err = err.Error()
		} else {
			res.Refreshed = true
		}
		report.Results = append(report.Results, res)
	}

	report.FinishedAt = p.now()
	log.Printf("[INFO] pipeline run %s finished: %d securities, %d failed",
		report.ID, len(report.Results), report.Failed())
	return report
}

// refreshRoster re-ingests the roster file unless the stored list was
// already ingested this month, then returns the working list.
func (p *Pipeline) refreshRoster() ([]model.Security, error) {
	stored, err := p.Store.Securities()
	if err != nil {
		return nil, fmt.Errorf("list securities: %w", err)
	}

	if p.RosterPath == "" || roster.UpToDate(stored, p.now()) {
		log.Printf("[INFO] roster is up to date, skipping ingestion")
		return stored, nil
	}

	secs, err := roster.Load(p.RosterPath, p.now())
	if err != nil {
		if len(stored) == 0 {
			return nil, fmt.Errorf("load roster: %w", err)
		}
		log.Printf("[WARN] roster load failed, using stored list: %v", err)
		return stored, nil
	}

	for i := range secs {
		if err := p.Store.SaveSecurity(&secs[i]); err != nil {
			log.Printf("[ERROR] save %s to roster: %v", secs[i].Ticker, err)
		}
	}
	log.Printf("[INFO] roster ingested: %d securities", len(secs))
	return p.Store.Securities()
}
