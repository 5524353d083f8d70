package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/fakturnik/fakturnik/cmd/fakturnik/cli"
	"github.com/fakturnik/fakturnik/internal/app"
	"github.com/fakturnik/fakturnik/internal/fx"
	"github.com/fakturnik/fakturnik/internal/invoice"
	"github.com/fakturnik/fakturnik/internal/kpo"
	"github.com/fakturnik/fakturnik/internal/limit"
	"github.com/fakturnik/fakturnik/internal/masterdata"
	"github.com/fakturnik/fakturnik/internal/platform/cache"
	"github.com/fakturnik/fakturnik/internal/platform/db"
	"github.com/fakturnik/fakturnik/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	nbsClient := fx.NewNBSClient(cfg.NBSBaseURL, fx.NBSCredentials{
		Username:  cfg.NBSUsername,
		Password:  cfg.NBSPassword,
		LicenceID: cfg.NBSLicenceID,
	}, cfg.NBSTimeout)
	rateStore := fx.NewStore(redisClient, cfg.RateTTL)
	rateService := fx.NewService(rateStore, nbsClient, logger)

	// fakturnik fx-warm --from ... --to ... [--apply] [--json]
	if len(os.Args) > 1 && os.Args[1] == "fx-warm" {
		os.Exit(runFXWarm(ctx, rateService, os.Args[2:]))
	}

	refs := masterdata.NewRepository(pool)

	kpoService := kpo.NewService(kpo.NewSQLRepository(pool), logger)

	taskClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Warn("task client close", slog.Any("error", err))
		}
	}()

	invoiceRepo := invoice.NewSQLRepository(pool)
	invoiceService := invoice.NewService(invoiceRepo, refs, rateService, kpoService, taskClient, logger)

	thresholds := limit.Thresholds{
		RollingRSD: decimal.NewFromInt(cfg.RollingLimitRSD),
		YearlyRSD:  decimal.NewFromInt(cfg.YearlyLimitRSD),
	}
	limitService := limit.NewService(limit.NewSQLRepository(pool), thresholds, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		InvoiceHandler: invoice.NewHandler(logger, invoiceService),
		LimitHandler:   limit.NewHandler(logger, limitService),
		RatesHandler:   fx.NewHandler(logger, rateService),
		KPOHandler:     kpo.NewHandler(logger, kpoService),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
	logger.Info("server stopped")
}

func runFXWarm(ctx context.Context, rates cli.RateRefresher, args []string) int {
	fs := flag.NewFlagSet("fx-warm", flag.ContinueOnError)
	from := fs.String("from", "", "first day to warm (YYYY-MM-DD)")
	to := fs.String("to", "", "last day to warm (YYYY-MM-DD)")
	apply := fs.Bool("apply", false, "fetch and cache rates instead of a dry run")
	jsonOut := fs.Bool("json", false, "emit a JSON summary")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	mode := cli.WarmModeDry
	if *apply {
		mode = cli.WarmModeApply
	}
	return cli.NewFXWarmCLI(rates).WarmCommand(ctx, cli.WarmOptions{
		From:       *from,
		To:         *to,
		Mode:       mode,
		JSONOutput: *jsonOut,
	})
}
