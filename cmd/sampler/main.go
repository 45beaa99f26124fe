package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"pubgstats/internal/collector"
	"pubgstats/internal/config"
	"pubgstats/internal/discord"
	"pubgstats/internal/logging"
	"pubgstats/internal/metrics"
	"pubgstats/internal/pubg"
	"pubgstats/internal/status"
	"pubgstats/internal/store"
)

func main() {
	envPath := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, closeLog := logging.MustCreateLogger(logging.Level(cfg.LogLevel), cfg.LogFile)
	defer closeLog()

	if envPath != "" {
		log.Info("Loaded .env", slog.String("path", envPath))
	} else {
		log.Info("No .env file found, using environment variables")
	}

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Sampler stopped", logging.ErrAttr(err))
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := collector.SetupSignalHandler(context.Background(), log, nil)
	defer cancel()

	connectCtx, connectCancel := context.WithTimeout(ctx, 30*time.Second)
	matches, err := store.Open(connectCtx, cfg.StoreURL, cfg.StoreDatabase)
	connectCancel()
	if err != nil {
		return fmt.Errorf("failed to open store %s: %w", store.Redact(cfg.StoreURL), err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := matches.Close(closeCtx); err != nil {
			log.Warn("Failed to close store", logging.ErrAttr(err))
		}
	}()
	log.Info("Connected to store", slog.String("url", store.Redact(cfg.StoreURL)))

	client, err := pubg.NewClient(cfg.APIKey, cfg.Shard,
		pubg.WithBaseURL(cfg.APIURL),
		pubg.WithTimeout(cfg.HTTPTimeout),
		pubg.WithSampleRate(cfg.SampleRPM),
		pubg.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("failed to create PUBG client: %w", err)
	}

	opts := collector.DefaultOptions()
	opts.Logger = log
	opts.Renderer = status.NewLine(os.Stdout)

	var ingestor *collector.Ingestor
	if cfg.DiscordWebhookURL != "" {
		webhook := discord.NewWebhookClient(cfg.DiscordWebhookURL)
		started := time.Now()
		opts.Notify = func(ctx context.Context, message string) error {
			return webhook.SendKeyRejected(ctx, discord.KeyRejected{
				Reason:  message,
				Shard:   client.Shard(),
				APIKey:  cfg.APIKey,
				Tracked: ingestor.Aggregator().Total(),
				Runtime: time.Since(started),
				At:      time.Now(),
			})
		}
	}
	ingestor = collector.NewIngestor(client, matches, opts)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, log); err != nil {
				log.Error("Metrics server failed", logging.ErrAttr(err))
			}
		}()
	}

	if err := ingestor.Replay(ctx); err != nil {
		return err
	}
	metrics.TrackedMatches.Set(float64(ingestor.Aggregator().Total()))

	err = ingestor.Run(ctx)
	fmt.Fprintln(os.Stdout)
	return err
}
