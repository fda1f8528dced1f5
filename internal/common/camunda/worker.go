package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"storefront-services/internal/common/metrics"
)

type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job) error
}

// HandlerFunc adapts a function to JobHandler.
type HandlerFunc func(client worker.JobClient, job entities.Job) error

func (f HandlerFunc) Handle(client worker.JobClient, job entities.Job) error {
	return f(client, job)
}

type Worker struct {
	worker   worker.JobWorker
	logger   *zap.Logger
	taskType string
}

type WorkerOptions struct {
	MaxJobsActive int
	Timeout       time.Duration
}

func NewWorker(client zbc.Client, taskType string, opts WorkerOptions, handler JobHandler, logger *zap.Logger) *Worker {
	builder := client.NewJobWorker().
		JobType(taskType).
		Handler(func(jc worker.JobClient, job entities.Job) {
			start := time.Now()
			err := handler.Handle(jc, job)
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
			if err != nil {
				logger.Error("handler returned error",
					zap.Error(err),
					zap.String("taskType", taskType),
					zap.Int64("jobKey", job.Key),
				)
				return
			}
			metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		}).
		MaxJobsActive(opts.MaxJobsActive)
	if opts.Timeout > 0 {
		builder = builder.Timeout(opts.Timeout)
	}

	w := &Worker{
		worker:   builder.Open(),
		logger:   logger,
		taskType: taskType,
	}
	logger.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", opts.MaxJobsActive),
	)
	return w
}

func (w *Worker) TaskType() string {
	return w.taskType
}

func (w *Worker) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		w.worker.Close()
		w.worker.AwaitClose()
		close(done)
	}()
	select {
	case <-done:
		w.logger.Info("worker stopped", zap.String("taskType", w.taskType))
	case <-ctx.Done():
		w.logger.Warn("worker stop timed out", zap.String("taskType", w.taskType))
	}
}
