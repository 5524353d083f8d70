package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/fakturnik/fakturnik/internal/app"
	"github.com/fakturnik/fakturnik/internal/fx"
	"github.com/fakturnik/fakturnik/internal/invoice"
	"github.com/fakturnik/fakturnik/internal/mail"
	"github.com/fakturnik/fakturnik/internal/masterdata"
	"github.com/fakturnik/fakturnik/internal/platform/cache"
	"github.com/fakturnik/fakturnik/internal/platform/db"
	"github.com/fakturnik/fakturnik/internal/platform/storage"
	"github.com/fakturnik/fakturnik/jobs"
	"github.com/fakturnik/fakturnik/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	pdfStore, err := storage.NewFSStore(cfg.PDFDir)
	if err != nil {
		logger.Error("init pdf store", slog.Any("error", err))
		os.Exit(1)
	}

	pdfClient := report.NewClient(cfg.GotenbergURL)
	if err := pdfClient.Ping(ctx); err != nil {
		logger.Warn("gotenberg unreachable, renders will retry", slog.Any("error", err))
	}

	nbsClient := fx.NewNBSClient(cfg.NBSBaseURL, fx.NBSCredentials{
		Username:  cfg.NBSUsername,
		Password:  cfg.NBSPassword,
		LicenceID: cfg.NBSLicenceID,
	}, cfg.NBSTimeout)
	rateService := fx.NewService(fx.NewStore(redisClient, cfg.RateTTL), nbsClient, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	taskClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Warn("task client close", slog.Any("error", err))
		}
	}()

	invoiceRepo := invoice.NewSQLRepository(pool)
	invoiceTasks := &jobs.InvoiceTasks{
		Invoices: invoiceRepo,
		Refs:     masterdata.NewRepository(pool),
		Recorder: invoiceRepo,
		Renderer: pdfClient,
		Store:    pdfStore,
		Sender:   mail.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom),
		Chain:    taskClient,
		Logger:   logger,
	}
	fxTasks := &jobs.FXTasks{Rates: rateService, Logger: logger}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeRenderInvoicePDF, Handler: invoiceTasks.HandleRenderInvoicePDF},
			{Type: jobs.TaskTypeSendInvoiceEmail, Handler: invoiceTasks.HandleSendInvoiceEmail},
			{Type: jobs.TaskTypeRefreshRates, Handler: fxTasks.HandleRefreshRates},
		},
		Cron: []jobs.CronRegistration{
			// NBS publishes the daily list in the morning.
			{Spec: "15 8 * * *", Task: jobs.NewRefreshRatesTask(), Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
