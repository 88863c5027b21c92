// internal/workers/intelligence/score-business/config.go
package scorebusiness

import "time"

type Config struct {
	Timeout time.Duration
	// PersistSnapshots stores every computed score for later trend analysis.
	PersistSnapshots bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          10 * time.Second,
		PersistSnapshots: true,
	}
}
