package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront-services/internal/api"
	"storefront-services/internal/common/camunda"
	"storefront-services/internal/common/config"

	pcf "storefront-services/internal/workers/catalog/parse-catalog-filters"
	qc "storefront-services/internal/workers/catalog/query-catalog"
	di "storefront-services/internal/workers/communication/deliver-inquiry"
	gs "storefront-services/internal/workers/locator/geocode-stores"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Zeebe job workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runWorkers(ctx)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

// jobHandler is the shape every worker package exposes.
type jobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

func adapt(h jobHandler) camunda.JobHandler {
	return camunda.HandlerFunc(func(client worker.JobClient, job entities.Job) error {
		h.Handle(client, job)
		return nil
	})
}

func runWorkers(ctx context.Context) error {
	zapLog.Info("Starting worker manager...")

	svc, err := connect(ctx, cfg, zapLog, log)
	if err != nil {
		return err
	}
	shutdownTimeout := config.GetDuration(cfg.Server.ShutdownTimeout)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		svc.Close(closeCtx)
	}()

	var zeebe *camunda.Client
	err = retryWithBackoff(ctx, func() error {
		var err error
		zeebe, err = camunda.NewClient(ctx, camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		return err
	}
	defer func() {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}()
	svc.checks["zeebe"] = zeebe.HealthCheck
	zapLog.Info("Zeebe client connected successfully")

	catalog, err := svc.catalog()
	if err != nil {
		return err
	}
	resolver, _ := svc.geocoder()
	_, writer, err := svc.storeSource()
	if err != nil {
		return err
	}
	forms, err := svc.forms()
	if err != nil {
		return err
	}
	deliverer, err := svc.deliverer(ctx, forms)
	if err != nil {
		return err
	}

	handlers := map[string]jobHandler{
		pcf.TaskType: pcf.NewHandler(pcf.LoadConfig(cfg), log),
		qc.TaskType:  qc.NewHandler(qc.LoadConfig(cfg), catalog, log),
		gs.TaskType:  gs.NewHandler(gs.LoadConfig(cfg), resolver, writer, log),
		di.TaskType:  di.NewHandler(di.LoadConfig(cfg), deliverer, log),
	}

	var workers []*camunda.Worker
	for taskType, h := range handlers {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if !wcfg.Enabled {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			continue
		}
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), taskType, camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
		}, adapt(h), zapLog))
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	health := api.NewHandler(api.Dependencies{Checks: svc.checks}, log)
	mux := chi.NewRouter()
	mux.Get("/health", health.HandleHealth)
	mux.Get("/ready", health.HandleReady)
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: cfg.Server.Addr(), Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, w := range workers {
		w.Stop(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("Health/Metrics server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
	return nil
}
