// internal/workers/intelligence/notify-opportunities/models.go
package notifyopportunities

import (
	"iluma-intelligence/internal/intelligence/stats"
	"iluma-intelligence/internal/models"
	"iluma-intelligence/internal/repository"
)

// Input carries a report built by an earlier task, or the query and filter to
// build one.
type Input struct {
	Report *models.StatsReport `json:"report,omitempty"`
	Query  repository.Query    `json:"query"`
	Filter stats.Filter        `json:"filter"`
	TopN   int                 `json:"topN,omitempty"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"`
	Channels       []string `json:"channels"`
	LeadCount      int      `json:"leadCount"`
	Opportunities  int      `json:"opportunities"`
	SentAt         string   `json:"sentAt"` // ISO 8601
}

// Statuses
const (
	StatusSent     = "sent"
	StatusSkipped  = "skipped"
	StatusDisabled = "disabled"
)

// Channels
const (
	ChannelSNS   = "sns"
	ChannelEmail = "email"
)
