package config

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"news-extractor/internal/hooks"
	"news-extractor/internal/scraper"
	"news-extractor/internal/transform"
)

// Link sources.
const (
	SourceListing = "listing"
	SourceFeed    = "feed"
	SourceJSON    = "json"
)

// Site is the declarative description of one news site: how to find its
// article URLs and which fields to read from each article.
type Site struct {
	Medium string               `yaml:"medium"`
	Mode   string               `yaml:"mode"`
	Headed bool                 `yaml:"headed"`
	Strict bool                 `yaml:"strict"`
	URLs   []string             `yaml:"urls"`
	Links  *LinksConfig         `yaml:"links"`
	Hooks  []hooks.Spec         `yaml:"hooks"`
	Fields map[string]FieldSpec `yaml:"fields"`
}

// LinksConfig tells where article URLs come from. Source defaults to
// listing pages walked with LinkLocator and NextLocator.
type LinksConfig struct {
	Source      string       `yaml:"source"`
	StartURLs   []string     `yaml:"start_urls"`
	LinkLocator string       `yaml:"link_locator"`
	NextLocator string       `yaml:"next_locator"`
	MaxPages    int          `yaml:"max_pages"`
	Hooks       []hooks.Spec `yaml:"hooks"`
	FeedURL     string       `yaml:"feed_url"`
	APIURLs     []string     `yaml:"api_urls"`
	JSONPath    string       `yaml:"json_path"`
}

type FieldSpec struct {
	Locator      string   `yaml:"locator"`
	Multiplicity string   `yaml:"multiplicity"`
	Transform    string   `yaml:"transform"`
	Args         []string `yaml:"args"`
	Required     bool     `yaml:"required"`
}

// LoadSite reads and validates a site file.
func LoadSite(filePath string) (*Site, error) {
	if filePath == "" {
		return nil, fmt.Errorf("site file path is empty")
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open site file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("Warning: failed to close site file: %v", closeErr)
		}
	}()

	var site Site
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&site); err != nil {
		return nil, fmt.Errorf("failed to parse site YAML: %w", err)
	}

	if err := site.Validate(); err != nil {
		return nil, err
	}
	return &site, nil
}

// Validate checks the parts that do not need a transform registry.
func (s *Site) Validate() error {
	if strings.TrimSpace(s.Medium) == "" {
		return siteErrorf("medium is required")
	}
	if _, err := scraper.ParseMode(s.Mode); err != nil {
		return siteErrorf("%v", err)
	}
	if len(s.Fields) == 0 {
		return siteErrorf("fields must not be empty")
	}
	if len(s.URLs) == 0 && s.Links == nil {
		return siteErrorf("either urls or links is required")
	}
	if s.Links != nil {
		if err := s.Links.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (l *LinksConfig) validate() error {
	switch l.SourceKind() {
	case SourceListing:
		if len(l.StartURLs) == 0 {
			return siteErrorf("links.start_urls is required")
		}
		if strings.TrimSpace(l.LinkLocator) == "" {
			return siteErrorf("links.link_locator is required")
		}
		if l.MaxPages < 0 {
			return siteErrorf("links.max_pages must be >= 0")
		}
	case SourceFeed:
		if l.FeedURL == "" {
			return siteErrorf("links.feed_url is required for feed source")
		}
	case SourceJSON:
		if len(l.APIURLs) == 0 || l.JSONPath == "" {
			return siteErrorf("links.api_urls and links.json_path are required for json source")
		}
	default:
		return siteErrorf("links.source must be 'listing', 'feed' or 'json'")
	}
	return nil
}

// SourceKind returns the link source, listing when unset.
func (l *LinksConfig) SourceKind() string {
	if l.Source == "" {
		return SourceListing
	}
	return strings.ToLower(l.Source)
}

// Query returns the pagination settings for listing sources.
func (l *LinksConfig) Query() scraper.LinkQuery {
	return scraper.LinkQuery{
		LinkLocator: l.LinkLocator,
		NextLocator: l.NextLocator,
		MaxPages:    l.MaxPages,
	}
}

// LinkHooks builds the hooks run on listing pages.
func (l *LinksConfig) LinkHooks() ([]scraper.Hook, error) {
	hs, err := hooks.BuildAll(l.Hooks)
	if err != nil {
		return nil, siteErrorf("links.%v", err)
	}
	return hs, nil
}

// FetchConfig compiles the site into a scraper.FetchConfig, resolving
// transforms through reg.
func (s *Site) FetchConfig(reg *transform.Registry) (scraper.FetchConfig, error) {
	mode, err := scraper.ParseMode(s.Mode)
	if err != nil {
		return scraper.FetchConfig{}, siteErrorf("%v", err)
	}

	hs, err := hooks.BuildAll(s.Hooks)
	if err != nil {
		return scraper.FetchConfig{}, siteErrorf("%v", err)
	}

	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make(map[string]scraper.Selector, len(s.Fields))
	for _, name := range names {
		spec := s.Fields[name]
		multiplicity, err := scraper.ParseMultiplicity(spec.Multiplicity)
		if err != nil {
			return scraper.FetchConfig{}, siteErrorf("field %q: %v", name, err)
		}
		t, err := reg.Build(spec.Transform, spec.Args, spec.Required)
		if err != nil {
			return scraper.FetchConfig{}, siteErrorf("field %q: %v", name, err)
		}
		fields[name] = scraper.Selector{
			Locator:      spec.Locator,
			Multiplicity: multiplicity,
			Transform:    t,
		}
	}

	cfg := scraper.FetchConfig{
		Mode:   mode,
		Headed: s.Headed,
		Medium: s.Medium,
		Hooks:  hs,
		Fields: fields,
		Strict: s.Strict,
	}
	if err := cfg.Validate(); err != nil {
		return scraper.FetchConfig{}, err
	}
	return cfg, nil
}

func siteErrorf(format string, args ...any) *scraper.ConfigError {
	return &scraper.ConfigError{Reason: "site: " + fmt.Sprintf(format, args...)}
}
