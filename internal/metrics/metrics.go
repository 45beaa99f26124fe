package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"pubgstats/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Cycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubgstats_cycles_total",
			Help: "The total number of ingestion cycles, by outcome",
		},
		[]string{"outcome"},
	)
	MatchesSampled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pubgstats_matches_sampled_total",
		Help: "The total number of match references returned by samples",
	})
	MatchesUnseen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pubgstats_matches_unseen_total",
		Help: "The total number of sampled matches that survived deduplication",
	})
	MatchesPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pubgstats_matches_persisted_total",
		Help: "The total number of match records written to the store",
	})
	FetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubgstats_fetch_failures_total",
			Help: "The total number of failed per-match requests",
		},
		[]string{"stage"},
	)
	UnresolvedRegions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pubgstats_unresolved_regions_total",
		Help: "Matches dropped because telemetry carried no PC region",
	})
	TrackedMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pubgstats_tracked_matches",
		Help: "Matches currently counted by the aggregator",
	})
	RateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pubgstats_ratelimit_remaining",
		Help: "Last x-ratelimit-remaining value seen on a sample response",
	})
	NextDelaySeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pubgstats_next_delay_seconds",
		Help: "Delay scheduled before the next sample request",
	})
)

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shutdown metrics server", logging.ErrAttr(err))
		}
	}()

	log.Info("Serving metrics", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
