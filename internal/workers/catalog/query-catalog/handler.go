package querycatalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"storefront-services/internal/catalog/params"
	"storefront-services/internal/catalog/query"
	"storefront-services/internal/common/errors"
	"storefront-services/internal/common/logger"
)

const TaskType = "query-catalog"

type Pager interface {
	Page(ctx context.Context, spec params.QuerySpec) (*query.Result, error)
}

type Handler struct {
	config   *Config
	catalog  Pager
	logger   logger.Logger
	failures *errors.ErrorHandler
}

func NewHandler(config *Config, catalog Pager, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		catalog:  catalog,
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

// execute runs the page query. Backend failures are returned so the job is
// retried; the website shows the empty failed page instead.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	spec := specFor(input, h.config.PageSize)

	result, err := h.catalog.Page(ctx, spec)
	if err != nil {
		return nil, err
	}

	h.logger.Info("catalog page served", map[string]interface{}{
		"page":       result.Page,
		"totalPages": result.TotalPages,
		"total":      result.Total,
	})

	return &Output{Catalog: result, Query: spec.Values().Encode()}, nil
}

// specFor prefers the upstream QuerySpec. Its page size is replaced by the
// configured one and its values pass through Normalize again, so a
// hand-edited variable cannot widen the window.
func specFor(input *Input, pageSize int) params.QuerySpec {
	if input.QuerySpec != nil {
		opts := input.QuerySpec.Options()
		opts.PageSize = pageSize
		return params.Normalize(input.QuerySpec.Values(), opts)
	}

	opts := params.CatalogRoot(pageSize)
	if input.Category != "" {
		opts = params.CategoryListing(input.Category, pageSize)
	}
	return params.Normalize(params.FromMap(input.RawFilters), opts)
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
