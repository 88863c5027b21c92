// internal/workers/intelligence/build-stats-report/handler.go
package buildstatsreport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/common/logger"
	"iluma-intelligence/internal/common/metrics"
	"iluma-intelligence/internal/intelligence"
	"iluma-intelligence/internal/repository"
)

const (
	TaskType = "build-stats-report"
)

type Handler struct {
	config       *Config
	engine       *intelligence.Engine
	loader       *repository.PopulationLoader
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, engine *intelligence.Engine, loader *repository.PopulationLoader, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		engine:       engine,
		loader:       loader,
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
	if input.TopN < 0 {
		return nil, apperrors.NewValidationError("topN", fmt.Sprintf("must be >= 0, got %d", input.TopN))
	}
	if f := input.Filter; f.MinScore != nil && f.MaxScore != nil && *f.MinScore > *f.MaxScore {
		return nil, apperrors.NewValidationError("filter", fmt.Sprintf("minScore %d above maxScore %d", *f.MinScore, *f.MaxScore))
	}

	q := input.Query
	if q.Limit == 0 || (h.config.MaxPopulation > 0 && q.Limit > h.config.MaxPopulation) {
		q.Limit = h.config.MaxPopulation
	}

	batch, err := h.loader.Load(ctx, q)
	if err != nil {
		return nil, err
	}

	report, err := h.engine.Stats(ctx, batch.Profiles, input.Filter, input.TopN)
	if err != nil {
		return nil, err
	}

	output := &Output{
		Report:         report,
		PopulationSize: len(batch.Profiles),
		BatchID:        batch.BatchID,
		Rejected:       batch.Rejected(),
		GeneratedAt:    time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Info("stats report built", map[string]interface{}{
		"population":    output.PopulationSize,
		"total":         report.Total,
		"averageScore":  report.AverageScore,
		"opportunities": report.ConversionOpportunities,
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
