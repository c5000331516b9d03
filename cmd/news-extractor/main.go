package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"news-extractor/internal/app"
	"news-extractor/internal/config"
	"news-extractor/internal/fetcher"
	"news-extractor/internal/observability"
	"news-extractor/internal/publish"
	"news-extractor/internal/scraper"
	"news-extractor/internal/storage"
	"news-extractor/internal/storage/mssql"
	"news-extractor/internal/storage/sqlite"
	"news-extractor/internal/transform"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	if err := config.LoadEnvFiles(*envFile); err != nil {
		log.Fatalf("Failed to load env: %v", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogPath, cfg.Observability.LogLevel)
	defer logger.Close()

	if err := run(cfg, logger); err != nil {
		logger.Error("Run failed", "error", err.Error())
		logger.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	site, err := config.LoadSite(cfg.SiteFile)
	if err != nil {
		return err
	}

	reg := transform.NewRegistry(transform.NewNormalizer(transform.NormalizeOptions{
		StripBlocks:     cfg.Normalize.StripBlocks,
		TrimNBSP:        cfg.Normalize.TrimNBSP,
		CollapseSpaces:  cfg.Normalize.CollapseSpaces,
		MaxPreviewChars: cfg.Normalize.MaxPreviewChars,
	}))
	fetchCfg, err := site.FetchConfig(reg)
	if err != nil {
		return err
	}

	backend, err := fetcher.NewBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	var driver scraper.Driver = backend
	if fetchCfg.Mode == scraper.ModeFrontend {
		frontend := fetcher.NewFrontend(cfg, fetchCfg.Headed, backend, logger)
		defer func() {
			if err := frontend.Close(); err != nil {
				logger.Error("Failed to close browser", "error", err.Error())
			}
		}()
		driver = frontend
	}

	opts := scraper.Options{
		Workers:      cfg.Scrape.Workers,
		FetchTimeout: cfg.GetFetchTimeout(),
		HookTimeout:  cfg.GetHookTimeout(),
		Logger:       logger,
	}
	content, err := scraper.NewContentScraper(fetchCfg, driver, opts)
	if err != nil {
		return err
	}

	deps := app.Deps{Scraper: content}
	if site.Links != nil {
		linkHooks, err := site.Links.LinkHooks()
		if err != nil {
			return err
		}
		deps.Links = app.SiteLinks(site, scraper.NewLinkScraper(driver, linkHooks, opts), backend)
	}

	repo, err := openRepository(cfg, logger)
	if err != nil {
		return err
	}
	if repo != nil {
		defer repo.Close()
		deps.Repo = repo
	}

	if cfg.NATS.URL != "" {
		nc, err := publish.Connect(cfg.NATS.URL, cfg.NATS.Name, cfg.NATS.MaxReconnects, logger)
		if err != nil {
			return err
		}
		pub := publish.NewPublisher(nc, cfg.NATS.Subject, logger)
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Error("Failed to drain NATS connection", "error", err.Error())
			}
		}()
		deps.Publisher = pub
	}

	out, err := openOutput(cfg.Output.Path)
	if err != nil {
		return err
	}
	if out != nil {
		defer out.Close()
		deps.Output = out
	}

	orch, err := app.NewOrchestrator(site, cfg, logger, deps)
	if err != nil {
		return err
	}
	sched, err := app.NewScheduler(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := app.GracefulShutdown(logger, 0)
	defer cancel()

	logger.Info("Starting news extractor",
		"medium", site.Medium,
		"mode", fetchCfg.Mode.String(),
		"fields", len(fetchCfg.Fields),
		"workers", cfg.Scrape.Workers,
		"storage", cfg.Storage.Driver,
		"scheduler", cfg.Scheduler.Mode,
	)

	return sched.Run(ctx, func(ctx context.Context) error {
		_, err := orch.Run(ctx)
		return err
	})
}

func openRepository(cfg *config.Config, logger *observability.Logger) (storage.Repository, error) {
	switch cfg.Storage.Driver {
	case "":
		return nil, nil
	case "mssql":
		return mssql.NewRepository(cfg.Storage.DSN, cfg.Storage.CommandTimeoutMS, logger)
	case "sqlite":
		return sqlite.NewRepository(cfg.Storage.DSN, cfg.Storage.CommandTimeoutMS, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// openOutput opens the JSONL sink. "-" is stdout; the file is appended to.
func openOutput(path string) (io.WriteCloser, error) {
	switch path {
	case "":
		return nil, nil
	case "-":
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output %s: %w", path, err)
	}
	return f, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
