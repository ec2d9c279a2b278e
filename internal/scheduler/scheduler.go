package scheduler

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/somiandras/dividend-data/internal/pipeline"
)

// Scheduler runs the pipeline on a cron schedule.
type Scheduler struct {
	Cron     *cron.Cron
	Pipeline *pipeline.Pipeline
}

// NewScheduler creates a scheduler around the given pipeline.
func NewScheduler(p *pipeline.Pipeline) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Pipeline: p,
	}
}

// Register adds the pipeline run under the given cron expression.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("register pipeline task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes the pipeline immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.run()
}

func (s *Scheduler) run() {
	report := s.Pipeline.Run()
	if failed := report.Failed(); failed > 0 {
		log.Printf("[WARN] pipeline run %s had %d failed securities", report.ID, failed)
	}
}
