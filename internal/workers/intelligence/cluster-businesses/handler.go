// internal/workers/intelligence/cluster-businesses/handler.go
package clusterbusinesses

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/common/logger"
	"iluma-intelligence/internal/common/metrics"
	"iluma-intelligence/internal/intelligence"
	"iluma-intelligence/internal/repository"
)

const (
	TaskType = "cluster-businesses"
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
	radius := h.engine.DefaultRadius()
	switch {
	case input.Unbounded:
		radius = math.Inf(1)
	case input.RadiusMeters != nil:
		if *input.RadiusMeters < 0 {
			return nil, apperrors.NewValidationError("radiusMeters", fmt.Sprintf("must be >= 0, got %g", *input.RadiusMeters))
		}
		radius = *input.RadiusMeters
	}

	q := input.Query
	if q.Limit == 0 || (h.config.MaxPopulation > 0 && q.Limit > h.config.MaxPopulation) {
		q.Limit = h.config.MaxPopulation
	}

	batch, err := h.loader.Load(ctx, q)
	if err != nil {
		return nil, err
	}

	clusters, err := h.engine.Cluster(ctx, batch.Profiles, radius)
	if err != nil {
		return nil, err
	}

	output := &Output{
		Clusters:       clusters,
		ClusterCount:   len(clusters),
		PopulationSize: len(batch.Profiles),
		Unbounded:      math.IsInf(radius, 1),
		BatchID:        batch.BatchID,
		Rejected:       batch.Rejected(),
	}
	if !output.Unbounded {
		output.RadiusMeters = &radius
	}

	h.logger.Info("clustering completed", map[string]interface{}{
		"population": output.PopulationSize,
		"clusters":   output.ClusterCount,
		"unbounded":  output.Unbounded,
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
