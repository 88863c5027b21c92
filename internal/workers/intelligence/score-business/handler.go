// internal/workers/intelligence/score-business/handler.go
package scorebusiness

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/common/logger"
	"iluma-intelligence/internal/common/metrics"
	"iluma-intelligence/internal/intelligence"
	"iluma-intelligence/internal/repository"
)

const (
	TaskType = "score-business"
)

type Handler struct {
	config       *Config
	engine       *intelligence.Engine
	snapshots    repository.SnapshotStore
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewHandler creates a score-business handler. snapshots may be nil, which
// disables previous-score lookups and persistence.
func NewHandler(config *Config, engine *intelligence.Engine, snapshots repository.SnapshotStore, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		engine:       engine,
		snapshots:    snapshots,
		logger:       l,
		errorHandler: apperrors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := metrics.TrackJob(TaskType)
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		done(string(apperrors.ErrCodeInvalidInput))
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		done(string(apperrors.CodeOf(err)))
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	done("")
	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.BusinessID) == "" {
		return nil, apperrors.NewValidationError("businessId", "businessId is required")
	}

	var warnings []string
	previous := input.PreviousScore
	if previous == nil && h.snapshots != nil {
		p, err := h.snapshots.Latest(ctx, input.BusinessID)
		if err != nil {
			h.logger.Warn("previous score lookup failed", map[string]interface{}{
				"businessId": input.BusinessID,
				"error":      err.Error(),
			})
			warnings = append(warnings, "previous score unavailable")
		} else {
			previous = p
		}
	}

	score, norm := h.engine.ScoreMetrics(input.Metrics, previous)

	output := &Output{
		BusinessID:  input.BusinessID,
		Score:       score,
		PartialData: score.PartialData() || !norm.Valid(),
		Warnings:    append(warnings, norm.Warnings...),
	}
	for _, fe := range norm.Errors {
		output.ValidationErrors = append(output.ValidationErrors, FieldError{Field: fe.Field(), Message: fe.Details})
	}

	if h.config.PersistSnapshots && h.snapshots != nil {
		if err := h.snapshots.Save(ctx, input.BusinessID, score); err != nil {
			return nil, err
		}
		output.Persisted = true
	}

	h.logger.Info("business scored", map[string]interface{}{
		"businessId":  input.BusinessID,
		"overall":     score.Overall,
		"trend":       string(score.TrendDirection),
		"partialData": output.PartialData,
	})
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(ctx)
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
