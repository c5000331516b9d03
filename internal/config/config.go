package config

import (
	"fmt"
	"time"
)

type Config struct {
	Rod           RodConfig           `yaml:"rod"`
	HTTP          HttpConfig          `yaml:"http"`
	Backoff       BackoffConfig       `yaml:"backoff"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Robots        RobotsConfig        `yaml:"robots"`
	Scrape        ScrapeConfig        `yaml:"scrape"`
	SiteFile      string              `yaml:"site_file"`
	Normalize     NormalizeConfig     `yaml:"normalize"`
	Storage       StorageConfig       `yaml:"storage"`
	NATS          NATSConfig          `yaml:"nats"`
	Output        OutputConfig        `yaml:"output"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type RodConfig struct {
	ChromePath     string `yaml:"chrome_path"`
	Proxy          string `yaml:"proxy"`
	WindowWidth    int    `yaml:"window_width"`
	WindowHeight   int    `yaml:"window_height"`
	PageTimeoutS   int    `yaml:"page_timeout_s"`
	SettleDelayMS  int    `yaml:"settle_delay_ms"`
	NoSandbox      bool   `yaml:"no_sandbox"`
	UserDataDir    string `yaml:"user_data_dir"`
	TracePageLoads bool   `yaml:"trace_page_loads"`
}

type HttpConfig struct {
	UserAgent                 string `yaml:"user_agent"`
	AcceptLanguage            string `yaml:"accept_language"`
	Proxy                     string `yaml:"proxy"`
	ConnectTimeoutMS          int    `yaml:"connect_timeout_ms"`
	TotalTimeoutMS            int    `yaml:"total_timeout_ms"`
	MaxRetries                int    `yaml:"max_retries"`
	MaxBodyBytes              int64  `yaml:"max_body_bytes"`
	MaxIdleConnections        int    `yaml:"max_idle_connections"`
	MaxIdleConnectionsPerHost int    `yaml:"max_idle_connections_per_host"`
	IdleConnectionTimeoutS    int    `yaml:"idle_connection_timeout_s"`
}

type BackoffConfig struct {
	MinMS     int `yaml:"min_ms"`
	MaxMS     int `yaml:"max_ms"`
	JitterPct int `yaml:"jitter_pct"`
}

type RateLimitConfig struct {
	MaxConcurrentPerHost int `yaml:"max_concurrent_per_host"`
	RPM                  int `yaml:"rpm"`
}

type RobotsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	CacheTTLHours int    `yaml:"cache_ttl_hours"`
	UserAgent     string `yaml:"user_agent"`
}

type ScrapeConfig struct {
	Workers        int  `yaml:"workers"`
	FetchTimeoutMS int  `yaml:"fetch_timeout_ms"`
	HookTimeoutMS  int  `yaml:"hook_timeout_ms"`
	SkipKnown      bool `yaml:"skip_known"`
}

type NormalizeConfig struct {
	StripBlocks     []string `yaml:"strip_blocks"`
	TrimNBSP        bool     `yaml:"trim_nbsp"`
	CollapseSpaces  bool     `yaml:"collapse_spaces"`
	MaxPreviewChars int      `yaml:"max_preview_chars"`
}

type StorageConfig struct {
	Driver           string `yaml:"driver"`
	DSN              string `yaml:"dsn"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	Subject       string `yaml:"subject"`
	Name          string `yaml:"name"`
	MaxReconnects int    `yaml:"max_reconnects"`
}

type OutputConfig struct {
	Path string `yaml:"path"`
}

type SchedulerConfig struct {
	Mode      string `yaml:"mode"`
	IntervalS int    `yaml:"interval_s"`
	CronExpr  string `yaml:"cron_expr"`
}

type ObservabilityConfig struct {
	LogPath  string `yaml:"log_path"`
	LogLevel string `yaml:"log_level"`
}

// Defaults fills optional settings that were left at zero.
func (c *Config) Defaults() {
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = "news-extractor/1.0"
	}
	if c.HTTP.ConnectTimeoutMS == 0 {
		c.HTTP.ConnectTimeoutMS = 10000
	}
	if c.HTTP.TotalTimeoutMS == 0 {
		c.HTTP.TotalTimeoutMS = 30000
	}
	if c.HTTP.MaxBodyBytes == 0 {
		c.HTTP.MaxBodyBytes = 10 << 20
	}
	if c.HTTP.MaxIdleConnections == 0 {
		c.HTTP.MaxIdleConnections = 100
	}
	if c.HTTP.MaxIdleConnectionsPerHost == 0 {
		c.HTTP.MaxIdleConnectionsPerHost = 10
	}
	if c.HTTP.IdleConnectionTimeoutS == 0 {
		c.HTTP.IdleConnectionTimeoutS = 90
	}
	if c.Backoff.MinMS == 0 {
		c.Backoff.MinMS = 250
	}
	if c.Backoff.MaxMS == 0 {
		c.Backoff.MaxMS = 4000
	}
	if c.RateLimit.MaxConcurrentPerHost == 0 {
		c.RateLimit.MaxConcurrentPerHost = 2
	}
	if c.RateLimit.RPM == 0 {
		c.RateLimit.RPM = 60
	}
	if c.Robots.CacheTTLHours == 0 {
		c.Robots.CacheTTLHours = 12
	}
	if c.Rod.WindowWidth == 0 {
		c.Rod.WindowWidth = 1920
	}
	if c.Rod.WindowHeight == 0 {
		c.Rod.WindowHeight = 1080
	}
	if c.Rod.PageTimeoutS == 0 {
		c.Rod.PageTimeoutS = 60
	}
	if c.Storage.CommandTimeoutMS == 0 {
		c.Storage.CommandTimeoutMS = 5000
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = "news.articles"
	}
	if c.NATS.Name == "" {
		c.NATS.Name = "news-extractor"
	}
	if c.Scheduler.Mode == "" {
		c.Scheduler.Mode = "oneshot"
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
}

// Validation
func (c *Config) Validate() error {
	if c.SiteFile == "" {
		return fmt.Errorf("site_file is required")
	}
	if c.HTTP.ConnectTimeoutMS <= 0 {
		return fmt.Errorf("http.connect_timeout_ms must be > 0")
	}
	if c.HTTP.TotalTimeoutMS <= 0 {
		return fmt.Errorf("http.total_timeout_ms must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("http.max_body_bytes must be >= 0")
	}
	if c.RateLimit.MaxConcurrentPerHost <= 0 {
		return fmt.Errorf("rate_limit.max_concurrent_per_host must be > 0")
	}
	if c.RateLimit.RPM <= 0 {
		return fmt.Errorf("rate_limit.rpm must be > 0")
	}
	if c.Backoff.MinMS <= 0 {
		return fmt.Errorf("backoff.min_ms must be > 0")
	}
	if c.Backoff.MaxMS <= 0 {
		return fmt.Errorf("backoff.max_ms must be > 0")
	}
	if c.Backoff.MinMS > c.Backoff.MaxMS {
		return fmt.Errorf("backoff.min_ms must be <= backoff.max_ms")
	}
	if c.Backoff.JitterPct < 0 || c.Backoff.JitterPct > 100 {
		return fmt.Errorf("backoff.jitter_pct must be between 0 and 100")
	}
	if c.Robots.Enabled && c.Robots.CacheTTLHours <= 0 {
		return fmt.Errorf("robots.cache_ttl_hours must be > 0")
	}
	if c.Scrape.Workers < 0 {
		return fmt.Errorf("scrape.workers must be >= 0")
	}
	if c.Scrape.FetchTimeoutMS < 0 || c.Scrape.HookTimeoutMS < 0 {
		return fmt.Errorf("scrape timeouts must be >= 0")
	}
	if c.Rod.WindowWidth <= 0 || c.Rod.WindowHeight <= 0 {
		return fmt.Errorf("rod window size must be > 0")
	}
	if c.Rod.PageTimeoutS <= 0 {
		return fmt.Errorf("rod.page_timeout_s must be > 0")
	}
	if c.Rod.SettleDelayMS < 0 {
		return fmt.Errorf("rod.settle_delay_ms must be >= 0")
	}
	if c.Normalize.MaxPreviewChars < 0 {
		return fmt.Errorf("normalize.max_preview_chars must be >= 0")
	}
	switch c.Storage.Driver {
	case "":
	case "mssql", "sqlite":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required when storage.driver is set")
		}
		if c.Storage.CommandTimeoutMS <= 0 {
			return fmt.Errorf("storage.command_timeout_ms must be > 0")
		}
	default:
		return fmt.Errorf("storage.driver must be 'mssql' or 'sqlite'")
	}
	if c.Scrape.SkipKnown && c.Storage.Driver == "" {
		return fmt.Errorf("scrape.skip_known needs a storage driver")
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject is required when nats.url is set")
	}
	if c.Scheduler.Mode != "interval" && c.Scheduler.Mode != "cron" && c.Scheduler.Mode != "oneshot" {
		return fmt.Errorf("scheduler.mode must be 'interval', 'cron' or 'oneshot'")
	}
	if c.Scheduler.Mode == "interval" && c.Scheduler.IntervalS <= 0 {
		return fmt.Errorf("scheduler.interval_s must be > 0 when mode is 'interval'")
	}
	if c.Scheduler.Mode == "cron" && c.Scheduler.CronExpr == "" {
		return fmt.Errorf("scheduler.cron_expr must be set when mode is 'cron'")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("observability.log_level is required")
	}
	return nil
}

// Getters
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.HTTP.ConnectTimeoutMS) * time.Millisecond
}

func (c *Config) GetTotalTimeout() time.Duration {
	return time.Duration(c.HTTP.TotalTimeoutMS) * time.Millisecond
}

func (c *Config) GetIdleConnectionTimeout() time.Duration {
	return time.Duration(c.HTTP.IdleConnectionTimeoutS) * time.Second
}

func (c *Config) GetBackoffMin() time.Duration {
	return time.Duration(c.Backoff.MinMS) * time.Millisecond
}

func (c *Config) GetBackoffMax() time.Duration {
	return time.Duration(c.Backoff.MaxMS) * time.Millisecond
}

func (c *Config) GetRobotsCacheTTL() time.Duration {
	return time.Duration(c.Robots.CacheTTLHours) * time.Hour
}

func (c *Config) GetFetchTimeout() time.Duration {
	return time.Duration(c.Scrape.FetchTimeoutMS) * time.Millisecond
}

func (c *Config) GetHookTimeout() time.Duration {
	return time.Duration(c.Scrape.HookTimeoutMS) * time.Millisecond
}

func (c *Config) GetSchedulerInterval() time.Duration {
	return time.Duration(c.Scheduler.IntervalS) * time.Second
}

func (c *Config) GetRodPageTimeout() time.Duration {
	return time.Duration(c.Rod.PageTimeoutS) * time.Second
}

func (c *Config) GetRodSettleDelay() time.Duration {
	return time.Duration(c.Rod.SettleDelayMS) * time.Millisecond
}
