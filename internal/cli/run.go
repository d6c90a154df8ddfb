package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/navikt/dp-datalaster-inntekt/internal/dlq"
	"github.com/navikt/dp-datalaster-inntekt/internal/enrichment"
	"github.com/navikt/dp-datalaster-inntekt/internal/handlers"
	"github.com/navikt/dp-datalaster-inntekt/internal/server"
	"github.com/navikt/dp-datalaster-inntekt/internal/toggle"
	"github.com/navikt/dp-datalaster-inntekt/internal/topology"
	"github.com/navikt/dp-datalaster-inntekt/internal/tracing"
)

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the enrichment stage",
		Long: `Consume every partition of the behov topic, attach income records to eligible
packets and republish them. Serves /isAlive, /isReady, /healthz and /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runService(ctx, opts)
		},
	}
}

func runService(ctx context.Context, opts *options) error {
	cfg := opts.cfg
	logger := opts.logger

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("Starting datalaster",
		slog.String("profile", string(cfg.Profile)),
		slog.String("cluster", cfg.Cluster),
		slog.String("topic", cfg.Topic.Name),
		slog.Int("partitions", cfg.Topic.Partitions),
		slog.String("inntekt_url", cfg.Inntekt.URL),
		slog.Int("port", cfg.Server.Port),
	)

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		logger.Warn("tracing disabled", slog.String("error", err.Error()))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	js, err := connectJetStream(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = js.Drain() }()

	log, err := openLog(ctx, js, cfg)
	if err != nil {
		return fmt.Errorf("open behov topic: %w", err)
	}

	var (
		dead     topology.DeadLetters
		dlqStats handlers.DLQStats
	)
	if cfg.DLQ.Enabled {
		q, err := dlq.NewJetStreamQueue(ctx, js)
		if err != nil {
			return err
		}
		dead, dlqStats = q, q
	} else {
		logger.Info("Dead letter stream disabled")
	}

	var toggles toggle.Checker
	if cfg.Toggles.Enabled {
		store, closeStore, err := newToggleStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		toggles = store
	} else {
		logger.Info("Feature toggles disabled, stage always on")
	}

	chain := newFilterChain(cfg)
	logger.Info("Eligibility filters", slog.Any("filters", chain.Names()))

	stage := enrichment.New(newInntektClient(cfg), chain, logger)
	top := topology.New(log, stage, dead, toggles, topology.Config{
		Toggle:     toggle.EnabledToggle,
		PauseDelay: cfg.Topic.PauseDelay,
	}, logger)

	health := handlers.NewHealthHandler(enrichment.StageName, js, top, dlqStats)
	srv := server.New(server.Config{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, server.NewRouter(health, logger.Logger), logger.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return top.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })

	err = g.Wait()
	logger.Info("datalaster stopped")
	return err
}
