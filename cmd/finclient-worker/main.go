package main

import (
	"context"
	"os"
	"time"

	"finclient/internal/backend"
	"finclient/internal/cli"
	"finclient/internal/log"
	"finclient/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	logger.Info("Starting finclient-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	initCtx, cancelInit := context.WithTimeout(context.Background(), 2*cfg.APITimeout)
	res, err := backend.NewFactory(logger).Create(initCtx, bcfg)
	cancelInit()
	if err != nil {
		logger.Error("Failed to initialize client", log.FieldError, err)
		os.Exit(1)
	}

	if !res.Session.IsAuthenticated() {
		logger.Warn("No stored session; backend reads will fail until 'finclient login' is run")
	}

	opts := []worker.Option{
		worker.WithLogger(logger),
		worker.WithPolling(cfg.DashboardPeriod, cfg.DashboardPollInterval),
		worker.WithExport(cfg.ExportInterval),
	}
	if res.Bus != nil {
		opts = append(opts, worker.WithConsumer(res.Bus))
	} else {
		logger.Info("AMQP disabled - remote invalidations will not be received")
	}
	w := worker.New(res.Finance, res.Reports, opts...)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Cleanup failed", log.FieldError, err)
		}
	})

	if err := w.Run(ctx); err != nil {
		logger.Error("Worker failed", log.FieldError, err)
		if cerr := res.Cleanup(); cerr != nil {
			logger.Warn("Cleanup failed", log.FieldError, cerr)
		}
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
