// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"iluma-intelligence/internal/common/config"
	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/common/logger"
	"iluma-intelligence/internal/common/validation"
)

// JobObserver receives per-job measurements.
type JobObserver interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

// InputValidator checks job variables before a handler sees them.
type InputValidator interface {
	ValidateInput(taskType, variables string) (*validation.ValidationResult, error)
}

// Workers tracks the job workers opened by the process.
type Workers struct {
	client    zbc.Client
	logger    *zap.Logger
	observer  JobObserver
	validator InputValidator

	mu      sync.Mutex
	workers map[string]worker.JobWorker
}

func NewWorkers(client zbc.Client, observer JobObserver, logger *zap.Logger) *Workers {
	return &Workers{
		client:   client,
		logger:   logger,
		observer: observer,
		workers:  make(map[string]worker.JobWorker),
	}
}

// WithValidator rejects jobs whose variables fail validation before they
// reach their handler.
func (w *Workers) WithValidator(v InputValidator) *Workers {
	w.validator = v
	return w
}

// Start opens a job worker for taskType unless it is disabled in wcfg.
func (w *Workers) Start(taskType string, wcfg config.WorkerConfig, handler worker.JobHandler) {
	if !wcfg.Enabled {
		w.logger.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	jobWorker := w.client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, ValidateInput(taskType, handler, w.validator, w.logger), w.observer, w.logger)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	w.mu.Lock()
	w.workers[taskType] = jobWorker
	w.mu.Unlock()

	w.logger.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}

// TaskTypes lists the running workers.
func (w *Workers) TaskTypes() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.workers))
	for t := range w.workers {
		out = append(out, t)
	}
	return out
}

// Stop closes every worker and waits for in-flight jobs.
func (w *Workers) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for taskType, jw := range w.workers {
		w.logger.Info("stopping worker", zap.String("taskType", taskType))
		jw.Close()
		jw.AwaitClose()
	}
	w.workers = make(map[string]worker.JobWorker)
}

// Instrument wraps a handler with duration reporting and panic recovery. A
// panicking handler fails the job so the broker can retry it.
func Instrument(taskType string, handler worker.JobHandler, observer JobObserver, logger *zap.Logger) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		status := "handled"
		defer func() {
			if r := recover(); r != nil {
				status = "panic"
				logger.Error("handler panicked",
					zap.String("taskType", taskType),
					zap.Int64("jobKey", job.Key),
					zap.Any("panic", r),
				)
				failPanickedJob(client, job, r, logger)
			}
			if observer != nil {
				ctx := context.Background()
				observer.RecordJobProcessed(ctx, taskType, status)
				observer.RecordJobDuration(ctx, taskType, time.Since(start), status)
			}
		}()
		handler(client, job)
	}
}

func failPanickedJob(client worker.JobClient, job entities.Job, r interface{}, logger *zap.Logger) {
	retries := job.Retries - 1
	if retries < 0 {
		retries = 0
	}
	_, err := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(fmt.Sprintf("handler panic: %v", r)).
		Send(context.Background())
	if err != nil {
		logger.Error("failed to fail panicked job", zap.Error(err), zap.Int64("jobKey", job.Key))
	}
}

// ValidateInput wraps a handler so that jobs with invalid variables are
// rejected with an INVALID_INPUT error. A nil validator returns handler as is.
func ValidateInput(taskType string, handler worker.JobHandler, validator InputValidator, log *zap.Logger) worker.JobHandler {
	if validator == nil {
		return handler
	}
	errorHandler := apperrors.NewErrorHandler(logger.NewZapAdapter(log))
	return func(client worker.JobClient, job entities.Job) {
		res, err := validator.ValidateInput(taskType, job.Variables)
		if err == nil && res.Valid {
			handler(client, job)
			return
		}

		details := "variables are not valid JSON"
		if err == nil {
			details = strings.Join(res.GetErrorMessages(), "; ")
		}
		log.Warn("job input rejected",
			zap.String("taskType", taskType),
			zap.Int64("jobKey", job.Key),
			zap.String("details", details),
		)
		errorHandler.HandleJobError(context.Background(), client, job, apperrors.NewInvalidInputError(details))
	}
}
