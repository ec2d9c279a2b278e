package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Source struct {
		LandingURL  string `yaml:"landing_url"`
		DownloadURL string `yaml:"download_url"`
		MaxYears    int    `yaml:"max_years"`
	} `yaml:"source"`
	Roster struct {
		CSVPath string `yaml:"csv_path"`
	} `yaml:"roster"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		PipelineCron string `yaml:"pipeline_cron"`
	} `yaml:"schedule"`
	Server struct {
		Addr         string   `yaml:"addr"`
		AllowOrigins []string `yaml:"allow_origins"`
	} `yaml:"server"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SOURCE_LANDING_URL"); v != "" {
		cfg.Source.LandingURL = v
	}
	if v := os.Getenv("SOURCE_DOWNLOAD_URL"); v != "" {
		cfg.Source.DownloadURL = v
	}
	if v := os.Getenv("ROSTER_CSV_PATH"); v != "" {
		cfg.Roster.CSVPath = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("PIPELINE_CRON"); v != "" {
		cfg.Schedule.PipelineCron = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Source.LandingURL == "" {
		cfg.Source.LandingURL = "https://finance.yahoo.com/quote/%5EGSPC"
	}
	if cfg.Source.DownloadURL == "" {
		cfg.Source.DownloadURL = "https://query1.finance.yahoo.com/v7/finance/download"
	}
	if cfg.Source.MaxYears == 0 {
		cfg.Source.MaxYears = 20
	}
	if cfg.Schedule.PipelineCron == "" {
		// Weekday mornings after market data settles
		cfg.Schedule.PipelineCron = "0 0 6 * * 2-6"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/dividend_data.db"
	}
	if cfg.Roster.CSVPath == "" {
		cfg.Roster.CSVPath = "data/roster.csv"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Source.LandingURL == "" {
		return fmt.Errorf("source.landing_url is required")
	}
	if c.Source.DownloadURL == "" {
		return fmt.Errorf("source.download_url is required")
	}
	if c.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required")
	}
	if c.Source.MaxYears < 1 {
		return fmt.Errorf("source.max_years must be positive")
	}
	return nil
}
