// internal/workers/intelligence/notify-opportunities/config.go
package notifyopportunities

import "time"

type Config struct {
	Enabled    bool
	TopicARN   string
	FromEmail  string
	Recipients []string
	// MinLeads suppresses digests with fewer high-potential leads.
	MinLeads int
	Timeout  time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MinLeads: 1,
		Timeout:  30 * time.Second,
	}
}
