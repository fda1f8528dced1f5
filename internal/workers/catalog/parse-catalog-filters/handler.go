package parsecatalogfilters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"storefront-services/internal/catalog/params"
	"storefront-services/internal/common/errors"
	"storefront-services/internal/common/logger"
)

const TaskType = "parse-catalog-filters"

type Handler struct {
	config   *Config
	logger   logger.Logger
	failures *errors.ErrorHandler
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		logger:   log,
		failures: errors.NewErrorHandler(log),
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

// execute never fails on filter content: malformed values fall back to
// their defaults exactly as on the website.
func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	opts := params.CatalogRoot(h.config.PageSize)
	if input.Category != "" {
		opts = params.CategoryListing(input.Category, h.config.PageSize)
	}

	spec := params.Normalize(params.FromMap(input.RawFilters), opts)

	h.logger.Info("filters parsed successfully", map[string]interface{}{
		"search":      spec.Search,
		"category":    spec.Category,
		"voltages":    spec.Voltages,
		"frequencies": spec.Frequencies,
		"protocols":   spec.Protocols,
		"sort":        string(spec.Sort),
		"page":        spec.Page,
	})

	return &Output{QuerySpec: spec, Query: spec.Values().Encode()}, nil
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
