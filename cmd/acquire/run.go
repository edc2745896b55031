package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/monokrome/foiacquire-sub003/internal/config"
	"github.com/monokrome/foiacquire-sub003/internal/contentstore"
	"github.com/monokrome/foiacquire-sub003/internal/crawlstore"
	"github.com/monokrome/foiacquire-sub003/internal/document"
	"github.com/monokrome/foiacquire-sub003/internal/downloader"
	"github.com/monokrome/foiacquire-sub003/internal/events"
	"github.com/monokrome/foiacquire-sub003/internal/httpclient"
	"github.com/monokrome/foiacquire-sub003/internal/metrics"
	"github.com/monokrome/foiacquire-sub003/internal/ratelimit"
)

// watchdogAge bounds how long a URL may sit in Fetching before the startup
// reconciliation sweep assumes its worker crashed and resets it to
// Pending, per spec.md §5's crash-recovery requirement.
const watchdogAge = 10 * time.Minute

// refreshSweepInterval is how often the refresh ticker re-arms Fetched
// URLs older than cfg.RefreshTTLDays, per SPEC_FULL.md §8's per-source
// refresh scheduling supplement.
const refreshSweepInterval = time.Hour

func run(ctx context.Context, cfg config.Config, sourceID string) error {
	log := slog.Default()

	crawlStore, err := crawlstore.OpenSQLiteStore(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open crawl store: %w", err)
	}

	rateLimitBackend, err := ratelimit.OpenSQLiteBackend(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open rate limit backend: %w", err)
	}

	documentStore, err := document.OpenSQLiteStore(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}

	contentIndex, err := contentstore.OpenSQLiteIndex(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open content index: %w", err)
	}
	content := contentstore.New(contentIndex, cfg.DocumentsDir())

	rateLimiter := ratelimit.NewRateLimiter(rateLimitBackend, ratelimit.Config{
		BaseDelay:          cfg.BaseDelay(),
		MinDelay:           cfg.MinDelay(),
		MaxDelay:           cfg.MaxDelay(),
		BackoffMultiplier:  cfg.BackoffMultiplier(),
		RecoveryMultiplier: cfg.RecoveryMultiplier(),
		RecoveryThreshold:  cfg.RecoveryThreshold(),
	}, nil, log)

	client, herr := httpclient.New(httpclient.Config{
		SourceID:     sourceID,
		UserAgent:    cfg.UserAgent(),
		PrivacyMode:  cfg.PrivacyMode(),
		ProxyURL:     cfg.ProxyURL(),
		ViaMappings:  cfg.ViaMappings(),
		ViaMode:      cfg.ViaMode(),
		Timeout:      cfg.RequestTimeout(),
		RequestDelay: cfg.RequestDelay(),
		Log:          log,
	}, rateLimiter, crawlStore)
	if herr != nil {
		return fmt.Errorf("construct http client: %w", herr)
	}

	reg := metrics.New(prometheus.DefaultRegisterer)
	sink := events.NewMultiSink(events.NewSlogSink(log), events.NewPrometheusSink(reg))

	pool := downloader.New(crawlStore, documentStore, content, client, cfg.RetryMax(), 0, log)

	if n, rerr := crawlStore.ReconcileStaleFetching(ctx, watchdogAge); rerr != nil {
		log.Warn("startup reconciliation failed", "error", rerr.Error())
	} else if n > 0 {
		log.Info("startup reconciliation reset stale fetching URLs", "count", n)
	}

	for _, seed := range cfg.SeedURLs() {
		if _, _, aerr := crawlStore.AddURL(ctx, sourceID, seed.String(), 0, crawlstore.DiscoveryManualImport, ""); aerr != nil {
			log.Warn("failed to seed URL", "url", seed.String(), "error", aerr.Error())
		}
	}

	stopRefresh := startRefreshTicker(ctx, crawlStore, sourceID, cfg.RefreshTTLDays(), log)
	defer stopRefresh()

	result, derr := pool.Download(ctx, sourceID, cfg.Workers(), 0, sink)
	if derr != nil {
		return fmt.Errorf("download: %w", derr)
	}

	log.Info("download pool finished",
		"downloaded", result.Downloaded,
		"deduplicated", result.Deduplicated,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"remaining_pending", result.RemainingPending,
	)
	return nil
}

// startRefreshTicker re-arms Fetched URLs older than refreshTTLDays on a
// fixed interval, so a long-running process keeps picking up documents
// whose source may have changed without a fresh run being started
// manually. Returns a function that stops the ticker.
func startRefreshTicker(ctx context.Context, store crawlstore.Store, sourceID string, refreshTTLDays int, log *slog.Logger) func() {
	ticker := time.NewTicker(refreshSweepInterval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		ttl := time.Duration(refreshTTLDays) * 24 * time.Hour
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				n, err := store.MarkStaleForRefresh(ctx, sourceID, ttl)
				if err != nil {
					log.Warn("refresh sweep failed", "error", err.Error())
					continue
				}
				if n > 0 {
					log.Info("refresh sweep re-armed stale URLs", "count", n)
				}
			}
		}
	}()

	return func() { close(done) }
}
