package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"valavatar/internal/downloader"
	"valavatar/internal/scheduler"
	"valavatar/pkg/chains"
	"valavatar/pkg/config"
	"valavatar/pkg/harvest"
	"valavatar/pkg/httpclient"
	"valavatar/pkg/keybase"
	"valavatar/pkg/logger"
	"valavatar/pkg/ratelimit"
	"valavatar/pkg/storage"
)

// Outcome is the settled value of one identity task
type Outcome struct {
	Identity string
	Resolved keybase.Result
	Download downloader.Result
	// Unresolved is set when the identity has no downloadable avatar
	Unresolved error
}

// Failure is a resolved identity whose download did not complete
type Failure struct {
	Identity string
	URL      string
	Err      error
}

// Report summarizes a run
type Report struct {
	RunID      string
	Walks      []harvest.WalkResult
	Identities []string
	Downloaded []downloader.Result
	Unresolved []string
	Failed     []Failure
	Duration   time.Duration
}

// AbortedWalks counts endpoints whose walk ended early
func (r *Report) AbortedWalks() int {
	n := 0
	for _, w := range r.Walks {
		if w.Err != nil {
			n++
		}
	}
	return n
}

// Components are the collaborators of a Pipeline
type Components struct {
	Source     EndpointSource
	Harvester  IdentityHarvester
	Resolver   IdentityResolver
	Downloader ImageDownloader
}

// Pipeline runs harvest and fetch phases
type Pipeline struct {
	source      EndpointSource
	harvester   IdentityHarvester
	resolver    IdentityResolver
	downloader  ImageDownloader
	concurrency int
	taskTimeout time.Duration
	logger      logger.Logger
}

// New wires a Pipeline from configuration
func New(cfg *config.Config, log logger.Logger) (*Pipeline, error) {
	log = logger.OrNop(log)

	store, err := storage.NewManager(cfg.Download.OutputDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	resolver := keybase.NewResolver(httpclient.New(cfg.Keybase.RequestTimeout, log), keybase.Options{
		BaseURL:   cfg.Keybase.BaseURL,
		OutputDir: cfg.Download.OutputDirectory,
		Limiter:   ratelimit.NewTokenBucket(cfg.Keybase.RequestsPerMinute, cfg.Keybase.Burst),
	}, log)

	c := harvestComponents(cfg, log)
	c.Resolver = resolver
	c.Downloader = downloader.New(httpclient.New(cfg.Download.Timeout, log), store, log)

	return NewWithComponents(c, cfg.Download.Concurrency, cfg.Download.TaskTimeout, log), nil
}

// NewHarvestOnly wires a Pipeline that can only Harvest. It touches nothing
// on disk.
func NewHarvestOnly(cfg *config.Config, log logger.Logger) *Pipeline {
	log = logger.OrNop(log)
	return NewWithComponents(harvestComponents(cfg, log), cfg.Download.Concurrency, 0, log)
}

func harvestComponents(cfg *config.Config, log logger.Logger) Components {
	source := chains.NewSource(httpclient.New(cfg.Directory.Timeout, log), chains.Options{
		DirectoryURL: cfg.Directory.URL,
		Network:      cfg.Directory.Network,
		SkipChains:   cfg.Directory.SkipChains,
		OffsetLCDs:   cfg.Directory.OffsetLCDs,
		OffsetChains: cfg.Directory.OffsetChains,
	}, log)

	walker := harvest.NewWalker(
		httpclient.New(cfg.Harvest.RequestTimeout, log),
		cfg.Harvest.PageSize,
		cfg.Harvest.MaxPages,
		log,
	)

	return Components{
		Source:    source,
		Harvester: harvest.NewHarvester(walker, log),
	}
}

// NewWithComponents builds a Pipeline from explicit collaborators
func NewWithComponents(c Components, concurrency int, taskTimeout time.Duration, log logger.Logger) *Pipeline {
	return &Pipeline{
		source:      c.Source,
		harvester:   c.Harvester,
		resolver:    c.Resolver,
		downloader:  c.Downloader,
		concurrency: concurrency,
		taskTimeout: taskTimeout,
		logger:      logger.OrNop(log),
	}
}

// Run harvests identities and fetches every avatar. The returned error is
// non-nil only when the endpoint directory is unavailable or ctx ends the run.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report, err := p.Harvest(ctx)
	if err != nil {
		return report, err
	}

	err = p.fetch(ctx, report)
	report.Duration = time.Since(start)

	p.logger.InfoWithFields("run finished", map[string]interface{}{
		"run_id":     report.RunID,
		"identities": len(report.Identities),
		"downloaded": len(report.Downloaded),
		"unresolved": len(report.Unresolved),
		"failed":     len(report.Failed),
		"duration":   report.Duration,
	})
	return report, err
}

// Harvest runs only the first phase and reports the identity set
func (p *Pipeline) Harvest(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString()}
	log := p.logger.WithField("run_id", report.RunID)

	endpoints, err := p.source.Endpoints(ctx)
	if err != nil {
		report.Duration = time.Since(start)
		return report, fmt.Errorf("failed to fetch endpoint directory: %w", err)
	}

	logger.LogComponentStart(log, "harvest", map[string]interface{}{
		"endpoints": len(endpoints),
	})

	set, walks := p.harvester.Harvest(ctx, endpoints)
	report.Walks = walks
	report.Identities = set.Freeze()
	report.Duration = time.Since(start)

	logger.LogComponentStop(log, "harvest", fmt.Sprintf("%d unique identities", len(report.Identities)))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// Fetch resolves and downloads the given identities
func (p *Pipeline) Fetch(ctx context.Context, identities []string) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString(), Identities: harvest.Dedupe(identities)}
	err := p.fetch(ctx, report)
	report.Duration = time.Since(start)
	return report, err
}

func (p *Pipeline) fetch(ctx context.Context, report *Report) error {
	log := p.logger.WithField("run_id", report.RunID)
	sched := scheduler.New[Outcome](p.concurrency, log, scheduler.WithTaskTimeout(p.taskTimeout))

	logger.LogComponentStart(log, "fetch", map[string]interface{}{
		"identities":   len(report.Identities),
		"concurrency":  sched.Limit(),
		"task_timeout": p.taskTimeout,
	})

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, identity := range report.Identities {
		identity := identity
		future := scheduler.SubmitArg(sched, ctx, p.process, identity)

		g.Go(func() error {
			out, err := future.Wait(gctx)
			if gctx.Err() != nil && errors.Is(err, gctx.Err()) {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed = append(report.Failed, Failure{
					Identity: identity,
					URL:      out.Resolved.ImageURL,
					Err:      err,
				})
			case out.Unresolved != nil:
				report.Unresolved = append(report.Unresolved, identity)
			default:
				report.Downloaded = append(report.Downloaded, out.Download)
			}
			return nil
		})
	}

	err := g.Wait()
	sched.Wait()

	sort.Strings(report.Unresolved)
	sort.Slice(report.Downloaded, func(i, j int) bool { return report.Downloaded[i].Path < report.Downloaded[j].Path })
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].Identity < report.Failed[j].Identity })

	logger.LogComponentStop(log, "fetch", fmt.Sprintf("peak %d tasks in flight", sched.Peak()))

	if err != nil {
		return err
	}
	return ctx.Err()
}

// process resolves identity and downloads its image. An unresolvable
// identity is an outcome, not an error.
func (p *Pipeline) process(ctx context.Context, identity string) (Outcome, error) {
	out := Outcome{Identity: identity}

	res, err := p.resolver.Resolve(ctx, identity)
	if err != nil {
		if errors.Is(err, keybase.ErrUnresolvable) {
			out.Unresolved = err
			return out, nil
		}
		return out, err
	}
	out.Resolved = res

	out.Download, err = p.downloader.Download(ctx, res.ImageURL, res.Path)
	if err != nil {
		return out, err
	}
	return out, nil
}
