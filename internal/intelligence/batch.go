// internal/intelligence/batch.go
package intelligence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/intelligence/normalizer"
	"iluma-intelligence/internal/models"
)

// PreviousLookup returns the last persisted score of a business, or nil when
// none exists.
type PreviousLookup func(ctx context.Context, businessID string) (*models.CompositeScore, error)

// RecordReport lists the problems found in one input record. A rejected
// record is absent from the batch's profiles.
type RecordReport struct {
	ID       string                     `json:"id"`
	Rejected bool                       `json:"rejected"`
	Errors   []*apperrors.StandardError `json:"errors,omitempty"`
	Warnings []string                   `json:"warnings,omitempty"`
}

type BatchResult struct {
	BatchID  string                   `json:"batchId"`
	Profiles []models.BusinessProfile `json:"profiles"`
	Reports  []RecordReport           `json:"reports,omitempty"`
}

// Rejected counts records that were dropped from the batch.
func (b BatchResult) Rejected() int {
	n := 0
	for _, r := range b.Reports {
		if r.Rejected {
			n++
		}
	}
	return n
}

const batchCtxCheckEvery = 256

// ScorePopulation normalizes and scores every record. Problems in one record
// never abort the batch: malformed fields are dropped and reported, records
// with a missing or duplicate id or out-of-range coordinates are rejected.
// Only cancellation of ctx aborts, returning no partial result. Reports of
// rejected records come first, followed by those of scored records.
func (e *Engine) ScorePopulation(ctx context.Context, records []models.BusinessRecord, previous PreviousLookup) (BatchResult, error) {
	ctx, span := e.tracer.Start(ctx, "intelligence.score_population", trace.WithAttributes(
		attribute.Int("records", len(records)),
	))
	defer span.End()

	start := time.Now()
	result := BatchResult{
		BatchID:  uuid.New().String(),
		Profiles: make([]models.BusinessProfile, 0, len(records)),
	}

	cancelled := func(err error) (BatchResult, error) {
		cerr := apperrors.NewCancelledError(OpScorePopulation, err)
		e.finish(span, OpScorePopulation, start, cerr, map[string]interface{}{"records": len(records)})
		return BatchResult{}, cerr
	}

	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	seen := make(map[string]struct{}, len(records))
	accepted := make([]models.BusinessRecord, 0, len(records))
	raw := make([]normalizer.Record, 0, len(records))
	for _, rec := range records {
		if reason := rejectReason(rec, seen); reason != nil {
			e.recorder.AddValidationError(reason.Field())
			result.Reports = append(result.Reports, RecordReport{ID: rec.ID, Rejected: true, Errors: []*apperrors.StandardError{reason}})
			continue
		}
		seen[rec.ID] = struct{}{}
		accepted = append(accepted, rec)
		raw = append(raw, normalizer.Record{ID: rec.ID, Metrics: rec.Metrics})
	}

	normalized := e.normalizer.NormalizeBatch(raw)
	for i, rec := range accepted {
		if i%batchCtxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return cancelled(err)
			}
		}

		report := RecordReport{ID: rec.ID}
		var prev *models.CompositeScore
		if previous != nil {
			p, err := previous(ctx, rec.ID)
			if err != nil {
				report.Warnings = append(report.Warnings, fmt.Sprintf("previous score unavailable: %v", err))
			} else {
				prev = p
			}
		}

		norm := normalized[rec.ID]
		profile := rec.Profile(norm.Metrics)
		profile.Score = e.scoreNormalized(norm, prev, time.Now())
		result.Profiles = append(result.Profiles, profile)

		report.Errors = append(report.Errors, norm.Errors...)
		report.Warnings = append(report.Warnings, norm.Warnings...)
		if len(report.Errors) > 0 || len(report.Warnings) > 0 {
			result.Reports = append(result.Reports, report)
		}
	}

	e.finish(span, OpScorePopulation, start, nil, map[string]interface{}{
		"batchId":  result.BatchID,
		"records":  len(records),
		"scored":   len(result.Profiles),
		"rejected": result.Rejected(),
	})
	return result, nil
}

func rejectReason(rec models.BusinessRecord, seen map[string]struct{}) *apperrors.StandardError {
	if strings.TrimSpace(rec.ID) == "" {
		return apperrors.NewValidationError("id", "record has no id")
	}
	if _, dup := seen[rec.ID]; dup {
		return apperrors.NewValidationError("id", fmt.Sprintf("duplicate id %q", rec.ID))
	}
	if !rec.Coordinates.Valid() {
		return apperrors.NewValidationError("coordinates", fmt.Sprintf("lat %g lng %g out of range", rec.Coordinates.Lat, rec.Coordinates.Lng))
	}
	return nil
}
