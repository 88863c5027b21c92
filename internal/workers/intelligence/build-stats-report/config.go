// internal/workers/intelligence/build-stats-report/config.go
package buildstatsreport

import "time"

type Config struct {
	Timeout       time.Duration
	MaxPopulation int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       60 * time.Second,
		MaxPopulation: 100000,
	}
}
