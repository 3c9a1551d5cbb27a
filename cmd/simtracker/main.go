package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Badr133ne/sim-charge-guardian/internal/amqp"
	"github.com/Badr133ne/sim-charge-guardian/internal/backend"
	"github.com/Badr133ne/sim-charge-guardian/internal/cache"
	"github.com/Badr133ne/sim-charge-guardian/internal/cli"
	apphttp "github.com/Badr133ne/sim-charge-guardian/internal/http"
	"github.com/Badr133ne/sim-charge-guardian/internal/log"
	"github.com/Badr133ne/sim-charge-guardian/internal/metrics"
	"github.com/Badr133ne/sim-charge-guardian/internal/services"
	"github.com/Badr133ne/sim-charge-guardian/internal/sheets"
	"github.com/Badr133ne/sim-charge-guardian/internal/sheets/google"
	"github.com/Badr133ne/sim-charge-guardian/internal/smsparser"
	"github.com/Badr133ne/sim-charge-guardian/internal/store"
	"github.com/Badr133ne/sim-charge-guardian/internal/worker"
)

const (
	shutdownTimeout    = 30 * time.Second
	cacheSweepInterval = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "simtracker:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := cli.LoadEnvFile(); err != nil {
		return err
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg)

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	m := metrics.New()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	be, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", backendCfg.Type, err)
	}
	defer func() {
		if be.Cleanup == nil {
			return
		}
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	st := store.New(ctx, be.Persister,
		store.WithLogger(logger),
		store.WithPersistErrorHook(func(error) { m.PersistFailed() }),
	)
	m.SetSimCards(len(st.SimCards()))
	unsubscribe := st.Subscribe(func(s store.State) { m.SetSimCards(len(s.SimCards)) })
	defer unsubscribe()

	parser := smsparser.New(smsparser.Options{DecimalSeparator: cfg.DecimalSeparator()})
	importer := services.NewRechargeImporter(st, parser, services.ImporterConfig{
		DedupeSize: cfg.SMSDedupeSize,
		DedupeTTL:  cfg.SMSDedupeTTL,
		Location:   time.Local,
	}, logger, m)
	scheduler := services.NewScanScheduler(importer, st, logger, m)
	defer scheduler.Stop()

	caches := cache.NewManager(logger)
	caches.Register(importer.Fingerprints())

	var writer sheets.RechargeWriter
	if cfg.SheetsEnabled() {
		client, err := google.New(ctx, google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			return fmt.Errorf("google sheets: %w", err)
		}
		logger.Info("Google Sheets export enabled", "sheet", client.SheetName())
		writer = client
	}

	var queue *amqp.Client
	if cfg.AMQPEnabled() {
		queue, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return fmt.Errorf("amqp: %w", err)
		}
		defer queue.Close()
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:              st,
		Parser:             parser,
		Importer:           importer,
		Scheduler:          scheduler,
		Sheets:             writer,
		Metrics:            m,
		Logger:             logger,
		Ready:              be.Ready,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Location:           time.Local,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			log.FieldBackend, backendCfg.Type.String(),
			"amqp", cfg.AMQPEnabled(),
			"sheets", cfg.SheetsEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return caches.Run(gctx, cacheSweepInterval)
	})

	if queue != nil {
		smsWorker := worker.NewSmsWorker(importer, logger)
		g.Go(func() error {
			return smsWorker.Run(gctx, queue)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		return err
	}
	logger.Info("Server stopped")
	return nil
}
