package deliverinquiry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"storefront-services/internal/common/errors"
	"storefront-services/internal/common/logger"
	"storefront-services/internal/inquiry"
	"storefront-services/internal/models"
)

const TaskType = "deliver-inquiry"

type Submitter interface {
	Submit(ctx context.Context, kind models.InquiryKind, fields map[string]interface{}) (*inquiry.Receipt, error)
}

type Handler struct {
	config    *Config
	submitter Submitter
	logger    logger.Logger
	failures  *errors.ErrorHandler
}

func NewHandler(config *Config, submitter Submitter, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		submitter: submitter,
		logger:    log,
		failures:  errors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failures.HandleJobError(ctx, client, job, errors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failures.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	switch input.Kind {
	case models.InquiryContact, models.InquiryQuote:
	default:
		return nil, errors.NewInvalidRequestError(fmt.Sprintf("unknown inquiry kind %q", input.Kind))
	}

	receipt, err := h.submitter.Submit(ctx, input.Kind, input.Fields)
	if err != nil {
		return nil, err
	}

	h.logger.Info("inquiry delivered", map[string]interface{}{
		"inquiryId": receipt.ID,
		"kind":      string(input.Kind),
		"status":    string(receipt.Status),
	})
	return &Output{InquiryID: receipt.ID, Status: receipt.Status}, nil
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
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
