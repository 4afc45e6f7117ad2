package config

import (
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Server struct {
		Port string `env:"SERVER_PORT" envDefault:"5260"`
	}

	// Data locations
	Data struct {
		// Directory holding one DVF file per 2-digit region code,
		// "<code>.csv.gz" or "<code>.csv"
		DatasetDir string `env:"DVF_DATASET_DIR" envDefault:"data/dvf"`

		// Directory where rendered trend charts are written
		ChartDir string `env:"CHART_OUTPUT_DIR" envDefault:"data/charts"`

		// SQLite database for prospects and report history
		DatabasePath string `env:"DATABASE_PATH" envDefault:"data/immoval.db"`
	}

	// Report generation tuning
	Reports struct {
		// Number of concurrent report workers
		WorkerCount int `env:"REPORT_WORKER_COUNT" envDefault:"2"`

		// Buffered job queue size
		QueueSize int `env:"REPORT_QUEUE_SIZE" envDefault:"32"`

		// Minutes a finished job stays retrievable before eviction
		JobTTLMinutes int `env:"REPORT_JOB_TTL_MINUTES" envDefault:"60"`
	}
}

func LoadConfig() (*Config, error) {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
