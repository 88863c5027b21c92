// internal/workers/intelligence/match-businesses/config.go
package matchbusinesses

import "time"

type Config struct {
	Timeout time.Duration
	// MaxPopulation caps the records loaded per job; 0 loads everything the query selects.
	MaxPopulation int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       30 * time.Second,
		MaxPopulation: 50000,
	}
}
