package geocodestores

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"storefront-services/internal/common/errors"
	"storefront-services/internal/common/logger"
	"storefront-services/internal/locator/geocode"
	"storefront-services/internal/locator/stores"
)

const TaskType = "geocode-stores"

type Handler struct {
	config   *Config
	pipeline *stores.Pipeline
	logger   logger.Logger
	failures *errors.ErrorHandler
}

func NewHandler(config *Config, resolver geocode.Resolver, writer stores.CoordinateWriter, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	opts := []stores.PipelineOption{stores.WithDelay(config.RequestDelay)}
	if writer != nil {
		opts = append(opts, stores.WithWriter(writer))
	}
	return &Handler{
		config:   config,
		pipeline: stores.NewPipeline(resolver, log, opts...),
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

// execute geocodes the stores that arrive without coordinates. A store
// that no provider can place is reported as unresolved, not as a failure;
// only running out of job time fails the job.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	final, err := h.pipeline.Run(ctx, input.Stores, func([]stores.StoreWithCoords) {})
	if err != nil {
		return nil, errors.NewTimeoutError("geocoder", fmt.Errorf("geocoding %d stores: %w", len(input.Stores), err))
	}

	out := &Output{Stores: final}
	for _, s := range final {
		if s.Coords == nil {
			out.Unresolved++
			continue
		}
		out.Resolved++
	}

	h.logger.Info("stores geocoded", map[string]interface{}{
		"stores":     len(final),
		"resolved":   out.Resolved,
		"unresolved": out.Unresolved,
	})
	return out, nil
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
