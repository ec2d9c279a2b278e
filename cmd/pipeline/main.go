package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/somiandras/dividend-data/internal/analytics"
	"github.com/somiandras/dividend-data/internal/config"
	"github.com/somiandras/dividend-data/internal/pipeline"
	"github.com/somiandras/dividend-data/internal/scheduler"
	"github.com/somiandras/dividend-data/internal/source"
	"github.com/somiandras/dividend-data/internal/store"
	"github.com/somiandras/dividend-data/internal/syncer"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] dividend-data pipeline starting...")

	if err := godotenv.Load(); err != nil {
		log.Printf("[INFO] .env not loaded: %v", err)
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init store
	st, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatalf("[FATAL] init sqlite store: %v", err)
	}
	defer st.Close()

	// Init fetcher with its credential provider
	creds := source.NewLandingProvider(cfg.Source.LandingURL, cfg.Proxy)
	fetcher := source.NewYahooFetcher(cfg.Source.DownloadURL, creds, cfg.Proxy)

	// Init engines and pipeline
	sync := syncer.New(fetcher, st)
	sync.MaxYears = cfg.Source.MaxYears
	an := analytics.New(st)
	p := pipeline.New(st, sync, an, cfg.Roster.CSVPath)

	// One-shot mode for cron-external invocation
	if os.Getenv("RUN_ONCE") == "true" {
		report := p.Run()
		if report.Failed() > 0 {
			os.Exit(1)
		}
		return
	}

	// Init scheduler
	sched := scheduler.NewScheduler(p)
	if err := sched.Register(cfg.Schedule.PipelineCron); err != nil {
		log.Fatalf("[FATAL] register cron task: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing pipeline now")
		go sched.RunNow()
	}

	log.Println("[INFO] dividend-data pipeline is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
}
