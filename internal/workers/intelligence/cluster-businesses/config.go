// internal/workers/intelligence/cluster-businesses/config.go
package clusterbusinesses

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
