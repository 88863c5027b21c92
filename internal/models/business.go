// internal/models/business.go
package models

import (
	"strings"
	"time"
)

type Potential string

const (
	PotentialLow    Potential = "low"
	PotentialMedium Potential = "medium"
	PotentialHigh   Potential = "high"
)

type Status string

const (
	StatusProspect  Status = "prospect"
	StatusContacted Status = "contacted"
	StatusClient    Status = "client"
	StatusPartner   Status = "partner"
	StatusInactive  Status = "inactive"
)

type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// Score warnings attached to a CompositeScore computed from incomplete data.
const (
	WarningNoPreviousScore = "NO_PREVIOUS_SCORE"
	WarningMissingMetrics  = "MISSING_METRICS"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinates fall inside the WGS84 ranges.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// CompositeScore is an immutable snapshot of a business's aggregated quality.
type CompositeScore struct {
	Overall         int            `json:"overall"`
	Breakdown       MetricSet      `json:"breakdown"`
	TrendDirection  TrendDirection `json:"trendDirection"`
	TrendPercentage float64        `json:"trendPercentage"`
	Recommendations []string       `json:"recommendations"`
	Warnings        []string       `json:"warnings,omitempty"`
	ComputedAt      time.Time      `json:"computedAt"`
}

// PartialData reports whether the score was computed with any warning.
func (s CompositeScore) PartialData() bool {
	return len(s.Warnings) > 0
}

type BusinessProfile struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	Sector      string         `json:"sector"`
	City        string         `json:"city"`
	Coordinates Coordinates    `json:"coordinates"`
	Metrics     MetricSet      `json:"metrics"`
	Score       CompositeScore `json:"score"`
	Potential   Potential      `json:"potential"`
	Status      Status         `json:"status"`
}

// SameSector compares sectors ignoring case and surrounding space.
func (p BusinessProfile) SameSector(other BusinessProfile) bool {
	return strings.EqualFold(strings.TrimSpace(p.Sector), strings.TrimSpace(other.Sector))
}

// BusinessRecord is a profile as delivered by ingestion, before its metrics
// have been normalized and scored.
type BusinessRecord struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name,omitempty"`
	Sector      string                 `json:"sector"`
	City        string                 `json:"city"`
	Coordinates Coordinates            `json:"coordinates"`
	Metrics     map[string]interface{} `json:"metrics"`
	Potential   Potential              `json:"potential"`
	Status      Status                 `json:"status"`
}

// Profile converts the record into an unscored profile carrying metrics.
func (r BusinessRecord) Profile(metrics MetricSet) BusinessProfile {
	return BusinessProfile{
		ID:          r.ID,
		Name:        r.Name,
		Sector:      r.Sector,
		City:        r.City,
		Coordinates: r.Coordinates,
		Metrics:     metrics,
		Potential:   r.Potential,
		Status:      r.Status,
	}
}
