// internal/workers/intelligence/notify-opportunities/handler.go
package notifyopportunities

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"iluma-intelligence/internal/common/aws"
	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/common/logger"
	"iluma-intelligence/internal/common/metrics"
	"iluma-intelligence/internal/intelligence"
	"iluma-intelligence/internal/models"
	"iluma-intelligence/internal/repository"
)

const (
	TaskType = "notify-opportunities"
)

type Handler struct {
	config       *Config
	engine       *intelligence.Engine
	loader       *repository.PopulationLoader
	sesClient    aws.SESService
	snsClient    aws.SNSService
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewHandler creates a notify-opportunities handler. Either AWS client may be
// nil when its channel is not configured.
func NewHandler(config *Config, engine *intelligence.Engine, loader *repository.PopulationLoader, sesClient aws.SESService, snsClient aws.SNSService, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		engine:       engine,
		loader:       loader,
		sesClient:    sesClient,
		snsClient:    snsClient,
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
	output := &Output{
		NotificationID: uuid.New().String(),
		Channels:       []string{},
		SentAt:         time.Now().UTC().Format(time.RFC3339),
	}

	if !h.config.Enabled {
		output.Status = StatusDisabled
		return output, nil
	}

	report, err := h.report(ctx, input)
	if err != nil {
		return nil, err
	}
	output.LeadCount = len(report.HighPotentialLeads)
	output.Opportunities = report.ConversionOpportunities

	if output.LeadCount == 0 || output.LeadCount < h.config.MinLeads {
		h.logger.Info("digest skipped", map[string]interface{}{
			"leadCount": output.LeadCount,
			"minLeads":  h.config.MinLeads,
		})
		output.Status = StatusSkipped
		return output, nil
	}

	subject := fmt.Sprintf("%d conversion opportunities, %d leads", report.ConversionOpportunities, output.LeadCount)
	text, html, err := renderDigest(report)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("render digest: %w", err))
	}

	if h.snsClient != nil && h.config.TopicARN != "" {
		msg := aws.TopicMessage(h.config.TopicARN, subject, text, map[string]string{
			"eventType":      "opportunity_digest",
			"notificationId": output.NotificationID,
			"leadCount":      strconv.Itoa(output.LeadCount),
		})
		if _, err := h.snsClient.Publish(ctx, msg); err != nil {
			h.logger.Error("SNS publish failed", map[string]interface{}{
				"error":    err,
				"topicArn": h.config.TopicARN,
			})
			return nil, apperrors.NewNotificationSendFailedError(ChannelSNS, err)
		}
		output.Channels = append(output.Channels, ChannelSNS)
	}

	if h.sesClient != nil && h.config.FromEmail != "" && len(h.config.Recipients) > 0 {
		email := aws.EmailInput(h.config.FromEmail, h.config.Recipients, subject, text, html)
		if _, err := h.sesClient.SendEmail(ctx, email); err != nil {
			h.logger.Error("email send failed", map[string]interface{}{
				"error":      err,
				"recipients": len(h.config.Recipients),
			})
			return nil, apperrors.NewNotificationSendFailedError(ChannelEmail, err)
		}
		output.Channels = append(output.Channels, ChannelEmail)
	}

	output.Status = StatusDisabled
	if len(output.Channels) > 0 {
		output.Status = StatusSent
	}

	h.logger.Info("digest delivered", map[string]interface{}{
		"notificationId": output.NotificationID,
		"channels":       output.Channels,
		"leadCount":      output.LeadCount,
	})
	return output, nil
}

func (h *Handler) report(ctx context.Context, input *Input) (models.StatsReport, error) {
	if input.Report != nil {
		return *input.Report, nil
	}
	if h.loader == nil {
		return models.StatsReport{}, apperrors.NewInvalidInputError("report is required when no profile source is configured")
	}
	batch, err := h.loader.Load(ctx, input.Query)
	if err != nil {
		return models.StatsReport{}, err
	}
	return h.engine.Stats(ctx, batch.Profiles, input.Filter, input.TopN)
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
