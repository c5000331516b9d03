package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"news-extractor/internal/checksum"
	"news-extractor/internal/config"
	"news-extractor/internal/observability"
	"news-extractor/internal/scraper"
	"news-extractor/internal/storage"
)

// ArticleScraper is the part of scraper.ContentScraper the orchestrator uses.
type ArticleScraper interface {
	Scrape(ctx context.Context, urls []string) []scraper.Result
}

// Publisher pushes a stored or fresh record downstream.
type Publisher interface {
	Publish(ctx context.Context, rec *scraper.Record) error
}

// LinkCollector returns the article URLs of one run.
type LinkCollector func(ctx context.Context) ([]string, error)

// Deps are the run's collaborators. Only Scraper is required.
type Deps struct {
	Links     LinkCollector
	Scraper   ArticleScraper
	Repo      storage.Repository
	Publisher Publisher
	Output    io.Writer
}

type Orchestrator struct {
	site      *config.Site
	skipKnown bool
	logger    *observability.Logger
	deps      Deps
	hasher    *checksum.Generator
	now       func() time.Time

	outMu sync.Mutex
}

func NewOrchestrator(site *config.Site, cfg *config.Config, logger *observability.Logger, deps Deps) (*Orchestrator, error) {
	if deps.Scraper == nil {
		return nil, errors.New("scraper is required")
	}
	if cfg.Scrape.SkipKnown && deps.Repo == nil {
		return nil, errors.New("skip_known needs a storage repository")
	}
	return &Orchestrator{
		site:      site,
		skipKnown: cfg.Scrape.SkipKnown,
		logger:    logger.With("medium", site.Medium),
		deps:      deps,
		hasher:    checksum.NewGenerator(),
		now:       time.Now,
	}, nil
}

type RunStats struct {
	RunID      uuid.UUID
	URLs       int
	Skipped    int
	Succeeded  int
	Failed     int
	New        int
	Updated    int
	Unchanged  int
	SinkErrors int
	Duration   time.Duration
}

// Run collects article URLs, scrapes them and hands every successful
// record to the configured sinks. Per-URL failures are counted, not
// returned; an error means the run could not start or was cancelled.
func (o *Orchestrator) Run(ctx context.Context) (*RunStats, error) {
	started := o.now()
	stats := &RunStats{RunID: uuid.New()}
	logger := o.logger.With("run_id", stats.RunID.String())

	urls, err := o.collectURLs(ctx, logger)
	if err != nil {
		logger.Error("Link collection failed", "error", err.Error())
		return stats, err
	}

	if o.skipKnown {
		urls = o.dropKnown(ctx, logger, urls, stats)
	}
	stats.URLs = len(urls)

	logger.Info("Starting run",
		"urls", len(urls),
		"skipped", stats.Skipped,
	)

	for _, res := range o.deps.Scraper.Scrape(ctx, urls) {
		if !res.OK() {
			stats.Failed++
			logger.Error("URL failed",
				"index", res.Index,
				"url", res.URL,
				"error", res.Err.Error(),
			)
			continue
		}
		stats.Succeeded++
		if failed := res.Record.Failed(); len(failed) > 0 {
			logger.Warn("Record has failed fields",
				"url", res.URL,
				"fields", failed,
			)
		}
		o.sink(ctx, logger, res.Record, stats)
	}

	stats.Duration = o.now().Sub(started)
	logger.Info("Run finished",
		"urls", stats.URLs,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"new", stats.New,
		"updated", stats.Updated,
		"unchanged", stats.Unchanged,
		"skipped", stats.Skipped,
		"sink_errors", stats.SinkErrors,
		"duration_ms", stats.Duration.Milliseconds(),
	)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// collectURLs returns the site's static URLs followed by collected links,
// deduplicated. A collection failure is fatal only when there is nothing
// else to scrape.
func (o *Orchestrator) collectURLs(ctx context.Context, logger *observability.Logger) ([]string, error) {
	urls := append([]string(nil), o.site.URLs...)
	if o.deps.Links == nil {
		if len(urls) == 0 {
			return nil, scraper.ErrNoLinks
		}
		return dedup(urls), nil
	}

	links, err := o.deps.Links(ctx)
	if err != nil {
		if len(urls) == 0 || IsConfigError(err) {
			return nil, err
		}
		logger.Warn("Link collection failed, using static URLs",
			"static_urls", len(urls),
			"error", err.Error(),
		)
	}
	logger.Info("Links collected",
		"static_urls", len(urls),
		"collected", len(links),
	)
	return dedup(append(urls, links...)), nil
}

func (o *Orchestrator) dropKnown(ctx context.Context, logger *observability.Logger, urls []string, stats *RunStats) []string {
	fresh := urls[:0:0]
	for _, u := range urls {
		exists, err := o.deps.Repo.ExistsByURL(ctx, u)
		if err != nil {
			logger.Warn("Known URL check failed", "url", u, "error", err.Error())
			fresh = append(fresh, u)
			continue
		}
		if exists {
			stats.Skipped++
			logger.Debug("Skipping known URL", "url", u)
			continue
		}
		fresh = append(fresh, u)
	}
	return fresh
}

// sink stores, publishes and writes one record. With a repository,
// unchanged records are not published again.
func (o *Orchestrator) sink(ctx context.Context, logger *observability.Logger, rec *scraper.Record, stats *RunStats) {
	hash := o.hasher.RecordHash(rec)
	publish := true

	if o.deps.Repo != nil {
		article, err := storage.NewArticle(rec, hash, stats.RunID, o.now())
		if err == nil {
			var isNew, isUpdated bool
			isNew, isUpdated, err = o.deps.Repo.UpsertArticle(ctx, article)
			switch {
			case err != nil:
			case isNew:
				stats.New++
			case isUpdated:
				stats.Updated++
			default:
				stats.Unchanged++
				publish = false
			}
		}
		if err != nil {
			stats.SinkErrors++
			logger.Error("Failed to store article", "url", rec.URL, "error", err.Error())
		}
	}

	if publish && o.deps.Publisher != nil {
		if err := o.deps.Publisher.Publish(ctx, rec); err != nil {
			stats.SinkErrors++
			logger.Error("Failed to publish record", "url", rec.URL, "error", err.Error())
		}
	}

	if o.deps.Output != nil {
		if err := o.writeLine(rec, hash); err != nil {
			stats.SinkErrors++
			logger.Error("Failed to write record", "url", rec.URL, "error", err.Error())
		}
	}
}

type outputLine struct {
	Record   *scraper.Record `json:"record"`
	CheckSum string          `json:"checksum"`
}

func (o *Orchestrator) writeLine(rec *scraper.Record, hash string) error {
	data, err := json.Marshal(outputLine{Record: rec, CheckSum: hash})
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	o.outMu.Lock()
	defer o.outMu.Unlock()
	_, err = o.deps.Output.Write(append(data, '\n'))
	return err
}

func dedup(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
