package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"pubgstats/internal/logging"
	"pubgstats/internal/metrics"
	"pubgstats/internal/pubg"
	"pubgstats/internal/stats"
	"pubgstats/internal/store"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize bounds in-flight detail and telemetry requests, and the
// size of every store write
const DefaultChunkSize = 15

// API is the subset of the PUBG client the loop needs
type API interface {
	Sample(ctx context.Context, createdAfter time.Time) (*pubg.SampleResponse, error)
	GetMatch(ctx context.Context, matchID string) (*pubg.MatchDetail, error)
	ResolveRegion(ctx context.Context, telemetryURL string) (pubg.Region, bool, error)
}

// Renderer receives presentation updates from the loop
type Renderer interface {
	Render(rows []stats.RegionBreakdown, total int)
	Waiting(d time.Duration)
}

// NotifyFunc is called to send notifications (e.g., Discord webhook)
type NotifyFunc func(ctx context.Context, message string) error

// Phase is where the loop currently is within a cycle
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSampling
	PhaseDeduplicating
	PhaseFetching
	PhaseResolvingTelemetry
	PhasePersisting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseSampling:
		return "SAMPLING"
	case PhaseDeduplicating:
		return "DEDUPLICATING"
	case PhaseFetching:
		return "FETCHING"
	case PhaseResolvingTelemetry:
		return "RESOLVING_TELEMETRY"
	case PhasePersisting:
		return "PERSISTING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(p))
	}
}

// Options holds configuration for the ingestor
type Options struct {
	// ChunkSize caps concurrent requests and records per write (default: 15)
	ChunkSize int
	// Clock drives the wait between cycles (default: wall clock)
	Clock clock.Clock
	// Rand picks sample instants (default: seeded from the clock)
	Rand     *rand.Rand
	Logger   *slog.Logger
	Renderer Renderer
	// Notify is called once when the API rejects the key
	Notify NotifyFunc
}

// DefaultOptions returns options with sensible defaults
func DefaultOptions() Options {
	return Options{
		ChunkSize: DefaultChunkSize,
		Clock:     clock.New(),
		Logger:    slog.Default(),
	}
}

// Ingestor runs the sample, dedup, fetch, resolve, persist cycle
type Ingestor struct {
	api   API
	store store.MatchStore
	dedup *Deduplicator
	seen  *SeenSet
	agg   *stats.Aggregator

	chunkSize int
	clock     clock.Clock
	rng       *rand.Rand
	log       *slog.Logger
	renderer  Renderer
	notify    NotifyFunc

	// Set after a key rejection alert, cleared after a good cycle
	alerted bool

	mu    sync.Mutex
	phase Phase
}

// NewIngestor creates an ingestor over the given API and store
func NewIngestor(api API, s store.MatchStore, opts Options) *Ingestor {
	if opts.ChunkSize <= 0 || opts.ChunkSize > DefaultChunkSize {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(opts.Clock.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	seen := NewSeenSet()
	return &Ingestor{
		api:       api,
		store:     s,
		dedup:     NewDeduplicator(s, seen),
		seen:      seen,
		agg:       stats.NewAggregator(),
		chunkSize: opts.ChunkSize,
		clock:     opts.Clock,
		rng:       opts.Rand,
		log:       opts.Logger,
		renderer:  opts.Renderer,
		notify:    opts.Notify,
	}
}

// Aggregator exposes the running counters
func (in *Ingestor) Aggregator() *stats.Aggregator {
	return in.agg
}

// Seen exposes the in-process seen set
func (in *Ingestor) Seen() *SeenSet {
	return in.seen
}

// Phase returns the current phase
func (in *Ingestor) Phase() Phase {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.phase
}

func (in *Ingestor) setPhase(p Phase) {
	in.mu.Lock()
	from := in.phase
	in.phase = p
	in.mu.Unlock()

	if from != p {
		in.log.Debug("Phase transition", slog.String("from", from.String()), slog.String("to", p.String()))
	}
}

// Replay streams every stored record into the seen set and aggregator.
// Running it again over the same store changes nothing.
func (in *Ingestor) Replay(ctx context.Context) error {
	start := in.clock.Now()
	replayed := 0

	err := in.store.All(ctx, func(rec store.MatchRecord) error {
		if in.absorb(rec) {
			replayed++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replay stored matches: %w", err)
	}

	in.log.Info("Replayed match history",
		slog.Int("records", replayed),
		slog.Int("tracked", in.agg.Total()),
		slog.Duration("took", in.clock.Since(start)))
	in.render()
	return nil
}

// absorb marks a stored record seen and counts it. Records already seen are
// ignored so the same match never counts twice in one run.
func (in *Ingestor) absorb(rec store.MatchRecord) bool {
	if !in.seen.MarkSeen(rec.MatchID) {
		return false
	}
	in.agg.Inc(observation(rec))
	return true
}

// RunCycle performs one full cycle and returns the rate limit signals from
// the sample response. The rate limit is nil when no usable signal arrived.
func (in *Ingestor) RunCycle(ctx context.Context) (*pubg.RateLimit, error) {
	defer in.setPhase(PhaseIdle)

	in.setPhase(PhaseSampling)
	at := pubg.RandomSampleTime(in.clock.Now(), in.rng)
	sample, err := in.api.Sample(ctx, at)
	if err != nil {
		// A 429 still tells us when the window resets
		var statusErr *pubg.StatusError
		if errors.As(err, &statusErr) && statusErr.RateLimit.Reset != nil {
			rl := statusErr.RateLimit
			return &rl, fmt.Errorf("failed to fetch sample: %w", err)
		}
		return nil, fmt.Errorf("failed to fetch sample: %w", err)
	}

	rl := sample.RateLimit
	if rl.Remaining != nil {
		metrics.RateLimitRemaining.Set(float64(*rl.Remaining))
	}

	ids := sample.MatchIDs()
	metrics.MatchesSampled.Add(float64(len(ids)))

	in.setPhase(PhaseDeduplicating)
	res, err := in.dedup.FilterUnseen(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Records another writer stored since our replay
	absorbed := 0
	for _, rec := range res.Foreign {
		if in.absorb(rec) {
			absorbed++
		}
	}
	if absorbed > 0 {
		in.log.Info("Absorbed externally stored matches", slog.Int("count", absorbed))
		in.render()
	}

	metrics.MatchesUnseen.Add(float64(len(res.Unseen)))
	in.log.Debug("Sample filtered",
		slog.Time("created_after", at),
		slog.Int("sampled", len(ids)),
		slog.Int("unseen", len(res.Unseen)))

	for start := 0; start < len(res.Unseen); start += in.chunkSize {
		end := min(start+in.chunkSize, len(res.Unseen))
		if err := in.processChunk(ctx, res.Unseen[start:end]); err != nil {
			return nil, err
		}
	}

	return &rl, nil
}

// telemetryJob is a fetched match waiting for its region
type telemetryJob struct {
	matchID string
	url     string
	attrs   pubg.MatchAttributes
	raw     []byte
}

// processChunk fetches, resolves and persists one chunk of ids. Both fan-outs
// are joined before anything is written or counted.
func (in *Ingestor) processChunk(ctx context.Context, ids []string) error {
	in.setPhase(PhaseFetching)
	details, err := in.fetchDetails(ctx, ids)
	if err != nil {
		return err
	}

	jobs := make([]telemetryJob, 0, len(details))
	for i, detail := range details {
		if detail == nil {
			continue
		}
		attrs, err := detail.Attributes()
		if err != nil {
			metrics.FetchFailures.WithLabelValues("match").Inc()
			in.log.Warn("Dropping match with malformed attributes",
				slog.String("match_id", ids[i]), logging.ErrAttr(err))
			continue
		}
		if !pubg.IsKnownMode(attrs.GameMode) {
			in.log.Debug("Unrecognised game mode",
				slog.String("match_id", ids[i]), slog.String("game_mode", attrs.GameMode))
		}

		in.seen.MarkSeen(ids[i])

		u, ok := detail.TelemetryURL()
		if !ok {
			in.log.Debug("Match has no telemetry asset", slog.String("match_id", ids[i]))
			continue
		}
		jobs = append(jobs, telemetryJob{
			matchID: ids[i],
			url:     u,
			attrs:   attrs,
			raw:     detail.Data.Attributes,
		})
	}
	if len(jobs) == 0 {
		return nil
	}

	in.setPhase(PhaseResolvingTelemetry)
	records, err := in.resolveRegions(ctx, jobs)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	in.setPhase(PhasePersisting)
	if err := in.store.InsertMany(ctx, records); err != nil {
		return fmt.Errorf("failed to persist %d matches: %w", len(records), err)
	}
	metrics.MatchesPersisted.Add(float64(len(records)))

	changed := false
	for _, rec := range records {
		if in.agg.Inc(observation(rec)) {
			changed = true
		}
	}
	if changed {
		metrics.TrackedMatches.Set(float64(in.agg.Total()))
		in.render()
	}
	return nil
}

// fetchDetails returns one slot per id; failed fetches leave a nil slot.
// A single failed match never aborts its siblings, only cancellation of ctx
// is returned.
func (in *Ingestor) fetchDetails(ctx context.Context, ids []string) ([]*pubg.MatchDetail, error) {
	details := make([]*pubg.MatchDetail, len(ids))

	var g errgroup.Group
	g.SetLimit(in.chunkSize)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			detail, err := in.api.GetMatch(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				metrics.FetchFailures.WithLabelValues("match").Inc()
				in.log.Warn("Failed to fetch match", slog.String("match_id", id), logging.ErrAttr(err))
				return nil
			}
			details[i] = detail
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return details, nil
}

// resolveRegions returns records for jobs whose telemetry named a PC region,
// in job order. Like fetchDetails, only cancellation of ctx is returned.
func (in *Ingestor) resolveRegions(ctx context.Context, jobs []telemetryJob) ([]store.MatchRecord, error) {
	resolved := make([]*store.MatchRecord, len(jobs))

	var g errgroup.Group
	g.SetLimit(in.chunkSize)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			region, ok, err := in.api.ResolveRegion(ctx, job.url)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				metrics.FetchFailures.WithLabelValues("telemetry").Inc()
				in.log.Warn("Failed to resolve telemetry",
					slog.String("match_id", job.matchID), logging.ErrAttr(err))
				return nil
			}
			if !ok {
				metrics.UnresolvedRegions.Inc()
				in.log.Debug("Telemetry has no PC region", slog.String("match_id", job.matchID))
				return nil
			}
			resolved[i] = &store.MatchRecord{
				MatchID:       job.matchID,
				Region:        region,
				GameMode:      job.attrs.GameMode,
				IsCustomMatch: job.attrs.IsCustomMatch,
				RawAttributes: job.raw,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]store.MatchRecord, 0, len(resolved))
	for _, rec := range resolved {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records, nil
}

// Run loops over cycles until ctx is cancelled. Cycle errors never stop it.
func (in *Ingestor) Run(ctx context.Context) error {
	in.log.Info("Ingestion loop starting", slog.Int("chunk_size", in.chunkSize))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rl, err := in.RunCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.Cycles.WithLabelValues("error").Inc()
			in.log.Error("Ingestion cycle failed", logging.ErrAttr(err))
			in.alertOnKeyRejection(ctx, err)
		} else {
			metrics.Cycles.WithLabelValues("ok").Inc()
			in.alerted = false
		}

		delay := NextDelay(rl, in.clock.Now())
		metrics.NextDelaySeconds.Set(delay.Seconds())
		if delay <= 0 {
			continue
		}

		if in.renderer != nil {
			in.renderer.Waiting(delay)
		}
		in.log.Debug("Waiting before next sample", slog.Duration("delay", delay))

		timer := in.clock.Timer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		in.render()
	}
}

func (in *Ingestor) alertOnKeyRejection(ctx context.Context, err error) {
	if !errors.Is(err, pubg.ErrUnauthorized) || in.alerted || in.notify == nil {
		return
	}
	in.alerted = true

	msg := fmt.Sprintf("PUBG API rejected the API key: %v", err)
	if nerr := in.notify(ctx, msg); nerr != nil {
		in.log.Warn("Failed to send key rejection alert", logging.ErrAttr(nerr))
	}
}

func (in *Ingestor) render() {
	if in.renderer == nil {
		return
	}
	in.renderer.Render(in.agg.Breakdown(), in.agg.Total())
}

func observation(rec store.MatchRecord) stats.Observation {
	return stats.Observation{
		Region:        rec.Region,
		GameMode:      rec.GameMode,
		IsCustomMatch: rec.IsCustomMatch,
	}
}
