package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/navikt/dp-datalaster-inntekt/common/messaging/nats"
	"github.com/navikt/dp-datalaster-inntekt/internal/config"
	"github.com/navikt/dp-datalaster-inntekt/internal/filter"
	"github.com/navikt/dp-datalaster-inntekt/internal/inntektclient"
	"github.com/navikt/dp-datalaster-inntekt/internal/sts"
	"github.com/navikt/dp-datalaster-inntekt/internal/toggle"
)

func connectJetStream(cfg *config.Config) (*nats.JetStreamClient, error) {
	natsCfg := nats.DefaultConfig()
	natsCfg.URL = cfg.NATS.URL
	if cfg.NATS.Name != "" {
		natsCfg.Name = cfg.NATS.Name
	}
	natsCfg.Username = cfg.NATS.Username
	natsCfg.Password = cfg.NATS.Password
	natsCfg.Token = cfg.NATS.Token

	js, err := nats.NewJetStreamClient(natsCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", cfg.NATS.URL, err)
	}
	return js, nil
}

func openLog(ctx context.Context, js *nats.JetStreamClient, cfg *config.Config) (*nats.PartitionedLog, error) {
	return nats.NewPartitionedLog(ctx, js, nats.PartitionedLogConfig{
		Stream:        cfg.Topic.Stream,
		Topic:         cfg.Topic.Name,
		Partitions:    cfg.Topic.Partitions,
		DurablePrefix: cfg.Topic.DurablePrefix,
		AckWait:       cfg.Topic.AckWait,
		NakDelay:      cfg.Topic.NakDelay,
	})
}

func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.Toggles.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func newToggleStore(ctx context.Context, cfg *config.Config) (*toggle.RedisStore, func(), error) {
	client, err := connectRedis(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store := toggle.NewRedisStore(client, cfg.Cluster, cfg.Toggles.DefaultEnabled)
	return store, func() { _ = client.Close() }, nil
}

func newInntektClient(cfg *config.Config) *inntektclient.Client {
	var tokens sts.TokenSource
	if cfg.STS.Enabled {
		tokens = sts.New(cfg.STS.URL, cfg.STS.Username, cfg.STS.Password, cfg.STS.Timeout)
	}
	return inntektclient.New(inntektclient.Config{
		BaseURL: cfg.Inntekt.URL,
		APIKey:  cfg.Inntekt.APIKey,
		Timeout: cfg.Inntekt.Timeout,
		Tokens:  tokens,
	})
}

func newFilterChain(cfg *config.Config) *filter.Chain {
	chain := filter.Default()
	if cfg.Topic.RequiredTask != "" {
		chain = chain.With(filter.HasTask(cfg.Topic.RequiredTask))
	}
	return chain
}
