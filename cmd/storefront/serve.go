package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storefront-services/internal/api"
	"storefront-services/internal/common/config"
	"storefront-services/internal/locator/stores"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the storefront HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	zapLog.Info("Starting storefront API...")

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

	catalog, err := svc.catalog()
	if err != nil {
		return err
	}

	resolver, open := svc.geocoder()

	source, writer, err := svc.storeSource()
	if err != nil {
		return err
	}
	locator := stores.NewLocator(source, svc.pipeline(resolver, writer),
		stores.Ranker{Radius: cfg.Locator.EarthRadiusMi}, log)
	defer locator.Stop()

	// A failed first load leaves the locator empty; the API still serves
	// the catalog and inquiries.
	if err := locator.Refresh(ctx); err != nil {
		zapLog.Warn("initial store load failed", zap.Error(err))
	}

	forms, err := svc.forms()
	if err != nil {
		return err
	}
	deliverer, err := svc.deliverer(ctx, forms)
	if err != nil {
		return err
	}

	handler := api.NewHandler(api.Dependencies{
		Catalog:   catalog,
		PageSize:  cfg.Catalog.PageSize,
		Stores:    locator,
		Geocoder:  resolver,
		Reverse:   open,
		Forms:     forms,
		Inquiries: deliverer,
		Checks:    svc.checks,
	}, log)

	server := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: api.NewRouter(handler, api.RouterConfig{
			RequestTimeout: config.GetDuration(cfg.Server.RequestTimeout),
		}, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLog.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("Shutdown signal received, draining HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	zapLog.Info("Storefront API stopped gracefully")
	return nil
}
