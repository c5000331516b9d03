package scraper

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"news-extractor/internal/dom"
	"news-extractor/internal/observability"
)

// Driver produces pages for URLs. Navigate may be called concurrently; each
// call yields a page the caller owns and must close. Close releases the
// driver's sessions.
type Driver interface {
	Navigate(ctx context.Context, url string) (dom.Page, error)
	Close() error
}

// Mode selects the fetch strategy.
type Mode int

const (
	ModeBackend Mode = iota
	ModeFrontend
)

func (m Mode) String() string {
	if m == ModeFrontend {
		return "frontend"
	}
	return "backend"
}

// ParseMode accepts "frontend" or "backend" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "backend", "":
		return ModeBackend, nil
	case "frontend":
		return ModeFrontend, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

var reservedFields = map[string]bool{"url": true, "medium": true}

// FetchConfig is the per-site extraction setup. Headed only matters under
// ModeFrontend. Strict fails a URL when any of its fields failed.
type FetchConfig struct {
	Mode   Mode
	Headed bool
	Medium string
	Hooks  []Hook
	Fields map[string]Selector
	Strict bool
}

// Validate reports the first problem as *ConfigError.
func (c FetchConfig) Validate() error {
	if c.Mode != ModeBackend && c.Mode != ModeFrontend {
		return configErrorf("invalid mode %d", int(c.Mode))
	}
	if len(c.Fields) == 0 {
		return configErrorf("fields must not be empty")
	}
	for name, sel := range c.Fields {
		if strings.TrimSpace(name) == "" {
			return configErrorf("field name must not be empty")
		}
		if reservedFields[name] {
			return configErrorf("field name %q is reserved", name)
		}
		if err := sel.validate(name); err != nil {
			return err
		}
	}
	for i, h := range c.Hooks {
		if h.Fn == nil {
			return configErrorf("hook %d has no function", i)
		}
	}
	return nil
}

// Options tune a scraper. Zero values mean sequential processing and no
// timeouts beyond the driver's own.
type Options struct {
	Workers      int
	FetchTimeout time.Duration
	HookTimeout  time.Duration
	Logger       *observability.Logger
}

// ContentScraper turns article URLs into records.
type ContentScraper struct {
	cfg    FetchConfig
	driver Driver
	opts   Options
	fields []string
	logger *observability.Logger
	tracer trace.Tracer
}

// NewContentScraper validates cfg once; a *ConfigError here means nothing
// will be fetched.
func NewContentScraper(cfg FetchConfig, driver Driver, opts Options) (*ContentScraper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, configErrorf("driver is required")
	}

	fields := make([]string, 0, len(cfg.Fields))
	for name := range cfg.Fields {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	return &ContentScraper{
		cfg:    cfg,
		driver: driver,
		opts:   opts,
		fields: fields,
		logger: opts.Logger.With("medium", cfg.Medium, "mode", cfg.Mode.String()),
		tracer: otel.Tracer("news-extractor/scraper"),
	}, nil
}

// Scrape processes every URL and returns one Result per input URL, in input
// order. Failures never shorten the slice. With Workers > 1 URLs run on a
// bounded pool, each with its own page.
func (s *ContentScraper) Scrape(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))

	workers := s.opts.Workers
	if workers <= 1 {
		for i, r := range s.All(ctx, urls) {
			results[i] = r
		}
		return results
	}
	if workers > len(urls) {
		workers = len(urls)
	}

	jobs := make(chan int)
	out := make(chan Result)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out <- s.scrapeOne(ctx, i, urls[i])
			}
		}()
	}

	go func() {
		for i := range urls {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
		close(out)
	}()

	for r := range out {
		results[r.Index] = r
	}
	return results
}

// All yields results one URL at a time. Each URL's page is closed before
// the next one is fetched. Stopping the iteration early leaves the remaining
// URLs untouched.
func (s *ContentScraper) All(ctx context.Context, urls []string) iter.Seq2[int, Result] {
	return func(yield func(int, Result) bool) {
		for i, u := range urls {
			if !yield(i, s.scrapeOne(ctx, i, u)) {
				return
			}
		}
	}
}

func (s *ContentScraper) scrapeOne(ctx context.Context, index int, url string) Result {
	res := Result{Index: index, URL: url}
	if err := ctx.Err(); err != nil {
		res.Err = fmt.Errorf("not processed: %w", err)
		return res
	}

	ctx, span := s.tracer.Start(ctx, "scraper.article",
		trace.WithAttributes(
			attribute.String("url.full", url),
			attribute.Int("scraper.index", index),
			attribute.String("scraper.medium", s.cfg.Medium),
		))
	defer span.End()

	start := time.Now()
	s.logger.Debug("Processing article", "index", index, "url", url)

	page, err := s.fetch(ctx, url)
	if err != nil {
		s.fail(span, &res, err, "Fetch failed")
		return res
	}
	defer func() {
		if err := page.Close(); err != nil {
			s.logger.Warn("Failed to close page", "url", url, "error", err.Error())
		}
	}()

	if err := RunHooks(ctx, page, s.cfg.Hooks, s.opts.HookTimeout); err != nil {
		s.fail(span, &res, err, "Hook failed")
		return res
	}

	record, fieldErrs := s.extract(ctx, page, url)
	if len(fieldErrs) > 0 && s.cfg.Strict {
		s.fail(span, &res, &StrictError{Errs: fieldErrs}, "Strict extraction failed")
		return res
	}
	for _, fe := range fieldErrs {
		s.logger.Warn("Field extraction failed", "url", url, "field", fe.Field, "error", fe.Err.Error())
	}

	res.Record = record
	s.logger.Info("Article extracted",
		"index", index,
		"url", url,
		"fields", len(record.Fields),
		"failed_fields", len(fieldErrs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func (s *ContentScraper) fetch(ctx context.Context, url string) (dom.Page, error) {
	if s.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()
	}
	page, err := s.driver.Navigate(ctx, url)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, errors.New("driver returned no page")
	}
	return page, nil
}

func (s *ContentScraper) extract(ctx context.Context, page dom.Page, url string) (*Record, []*FieldExtractionError) {
	record := &Record{
		URL:    url,
		Medium: s.cfg.Medium,
		Fields: make(map[string]Field, len(s.fields)),
	}

	var failed []*FieldExtractionError
	for _, name := range s.fields {
		value, err := Evaluate(ctx, page, name, s.cfg.Fields[name])
		if err != nil {
			var fe *FieldExtractionError
			if !errors.As(err, &fe) {
				fe = &FieldExtractionError{Field: name, Err: err}
			}
			failed = append(failed, fe)
			record.Fields[name] = Field{Err: fe}
			continue
		}
		record.Fields[name] = Field{Value: value}
	}
	return record, failed
}

func (s *ContentScraper) fail(span trace.Span, res *Result, err error, msg string) {
	res.Err = err
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	s.logger.Warn(msg, "index", res.Index, "url", res.URL, "error", err.Error())
}
