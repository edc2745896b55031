package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"
)

// PrivacyMode selects how outbound HTTP connections are routed.
type PrivacyMode string

const (
	PrivacyDirect         PrivacyMode = "direct"
	PrivacyExternalProxy  PrivacyMode = "external_proxy"
	PrivacyTorObfuscated  PrivacyMode = "tor_obfuscated"
	PrivacyTorDirect      PrivacyMode = "tor_direct"
)

// ViaMode controls how a caching-proxy URL rewrite interacts with retries.
type ViaMode string

const (
	ViaStrict   ViaMode = "strict"
	ViaFallback ViaMode = "fallback"
	ViaPriority ViaMode = "priority"
)

type Config struct {
	//===============
	// Crawl scope
	//===============
	seedURLs []url.URL

	//===============
	// Rate limiter
	//===============
	// Starting per-domain delay.
	baseDelay time.Duration
	// Bounds on the adaptive delay.
	minDelay time.Duration
	maxDelay time.Duration
	// Applied on a definite rate limit (429/503, or qualifying 403).
	backoffMultiplier float64
	// Applied after recoveryThreshold consecutive successes while in backoff.
	recoveryMultiplier float64
	// Successes required before a recovery step is taken.
	recoveryThreshold int

	//===============
	// Fetch
	//===============
	// Per-request transport timeout.
	requestTimeout time.Duration
	// Per-worker politeness sleep applied after every request, independent
	// of the adaptive per-domain delay.
	requestDelay time.Duration
	// Literal user agent, or the sentinel "impersonate".
	userAgent string

	//===============
	// Privacy / via
	//===============
	privacyMode  PrivacyMode
	proxyURL     string
	viaMappings  map[string]string
	viaMode      ViaMode

	//===============
	// Worker pool
	//===============
	workers int
	// Re-arm Fetched URLs older than this many days.
	refreshTTLDays int
	// retry_count ceiling before Failed becomes terminal.
	retryMax int

	//===============
	// Storage
	//===============
	documentsDir string
	dbPath       string
	dryRun       bool
}

type configDTO struct {
	SeedURLs           []url.URL         `json:"seedUrls"`
	BaseDelay          time.Duration     `json:"baseDelay,omitempty"`
	MinDelay           time.Duration     `json:"minDelay,omitempty"`
	MaxDelay           time.Duration     `json:"maxDelay,omitempty"`
	BackoffMultiplier  float64           `json:"backoffMultiplier,omitempty"`
	RecoveryMultiplier float64           `json:"recoveryMultiplier,omitempty"`
	RecoveryThreshold  int               `json:"recoveryThreshold,omitempty"`
	RequestTimeout     time.Duration     `json:"requestTimeout,omitempty"`
	RequestDelay       time.Duration     `json:"requestDelay,omitempty"`
	UserAgent          string            `json:"userAgent,omitempty"`
	PrivacyMode        PrivacyMode       `json:"privacyMode,omitempty"`
	ProxyURL           string            `json:"proxyUrl,omitempty"`
	ViaMappings        map[string]string `json:"via,omitempty"`
	ViaMode            ViaMode           `json:"viaMode,omitempty"`
	Workers            int               `json:"workers,omitempty"`
	RefreshTTLDays     int               `json:"refreshTtlDays,omitempty"`
	RetryMax           int               `json:"retryMax,omitempty"`
	DocumentsDir       string            `json:"documentsDir,omitempty"`
	DBPath             string            `json:"dbPath,omitempty"`
	DryRun             bool              `json:"dryRun,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	cfg, err := WithDefault(dto.SeedURLs).Build()
	if err != nil {
		return Config{}, err
	}

	if dto.BaseDelay != 0 {
		cfg.baseDelay = dto.BaseDelay
	}
	if dto.MinDelay != 0 {
		cfg.minDelay = dto.MinDelay
	}
	if dto.MaxDelay != 0 {
		cfg.maxDelay = dto.MaxDelay
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.RecoveryMultiplier != 0 {
		cfg.recoveryMultiplier = dto.RecoveryMultiplier
	}
	if dto.RecoveryThreshold != 0 {
		cfg.recoveryThreshold = dto.RecoveryThreshold
	}
	if dto.RequestTimeout != 0 {
		cfg.requestTimeout = dto.RequestTimeout
	}
	if dto.RequestDelay != 0 {
		cfg.requestDelay = dto.RequestDelay
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.PrivacyMode != "" {
		cfg.privacyMode = dto.PrivacyMode
	}
	if dto.ProxyURL != "" {
		cfg.proxyURL = dto.ProxyURL
	}
	if len(dto.ViaMappings) > 0 {
		cfg.viaMappings = dto.ViaMappings
	}
	if dto.ViaMode != "" {
		cfg.viaMode = dto.ViaMode
	}
	if dto.Workers != 0 {
		cfg.workers = dto.Workers
	}
	if dto.RefreshTTLDays != 0 {
		cfg.refreshTTLDays = dto.RefreshTTLDays
	}
	if dto.RetryMax != 0 {
		cfg.retryMax = dto.RetryMax
	}
	if dto.DocumentsDir != "" {
		cfg.documentsDir = dto.DocumentsDir
	}
	if dto.DBPath != "" {
		cfg.dbPath = dto.DBPath
	}
	cfg.dryRun = dto.DryRun

	return cfg, nil
}

func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	cfg, err := newConfigFromDTO(cfgDTO)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithDefault creates a new Config with the provided seed URLs and default
// values for everything else. seedUrls must not be empty - Build returns an
// error otherwise.
func WithDefault(seedUrls []url.URL) *Config {
	defaultConfig := Config{
		seedURLs:           seedUrls,
		baseDelay:          time.Second,
		minDelay:           250 * time.Millisecond,
		maxDelay:           30 * time.Second,
		backoffMultiplier:  2.0,
		recoveryMultiplier: 0.5,
		recoveryThreshold:  3,
		requestTimeout:     15 * time.Second,
		requestDelay:       0,
		userAgent:          "foiacquire/1.0",
		privacyMode:        PrivacyDirect,
		viaMappings:        map[string]string{},
		viaMode:            ViaFallback,
		workers:            4,
		refreshTTLDays:     30,
		retryMax:           5,
		documentsDir:       "documents",
		dbPath:             "foiacquire.db",
		dryRun:             false,
	}
	return &defaultConfig
}

func (c *Config) WithSeedUrls(urls []url.URL) *Config {
	c.seedURLs = urls
	return c
}

func (c *Config) WithBaseDelay(d time.Duration) *Config {
	c.baseDelay = d
	return c
}

func (c *Config) WithMinDelay(d time.Duration) *Config {
	c.minDelay = d
	return c
}

func (c *Config) WithMaxDelay(d time.Duration) *Config {
	c.maxDelay = d
	return c
}

func (c *Config) WithBackoffMultiplier(m float64) *Config {
	c.backoffMultiplier = m
	return c
}

func (c *Config) WithRecoveryMultiplier(m float64) *Config {
	c.recoveryMultiplier = m
	return c
}

func (c *Config) WithRecoveryThreshold(n int) *Config {
	c.recoveryThreshold = n
	return c
}

func (c *Config) WithRequestTimeout(d time.Duration) *Config {
	c.requestTimeout = d
	return c
}

func (c *Config) WithRequestDelay(d time.Duration) *Config {
	c.requestDelay = d
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithPrivacyMode(mode PrivacyMode, proxyURL string) *Config {
	c.privacyMode = mode
	c.proxyURL = proxyURL
	return c
}

func (c *Config) WithVia(mappings map[string]string, mode ViaMode) *Config {
	c.viaMappings = mappings
	c.viaMode = mode
	return c
}

func (c *Config) WithWorkers(n int) *Config {
	c.workers = n
	return c
}

func (c *Config) WithRefreshTTLDays(days int) *Config {
	c.refreshTTLDays = days
	return c
}

func (c *Config) WithRetryMax(n int) *Config {
	c.retryMax = n
	return c
}

func (c *Config) WithDocumentsDir(dir string) *Config {
	c.documentsDir = dir
	return c
}

func (c *Config) WithDBPath(path string) *Config {
	c.dbPath = path
	return c
}

func (c *Config) WithDryRun(dryRun bool) *Config {
	c.dryRun = dryRun
	return c
}

func (c *Config) Build() (Config, error) {
	if len(c.seedURLs) == 0 {
		return Config{}, fmt.Errorf("%w: seedUrls cannot be empty", ErrInvalidConfig)
	}
	if c.minDelay > c.maxDelay {
		return Config{}, fmt.Errorf("%w: minDelay cannot exceed maxDelay", ErrInvalidConfig)
	}
	if c.backoffMultiplier < 1 {
		return Config{}, fmt.Errorf("%w: backoffMultiplier must be >= 1", ErrInvalidConfig)
	}
	if c.recoveryMultiplier > 1 {
		return Config{}, fmt.Errorf("%w: recoveryMultiplier must be <= 1", ErrInvalidConfig)
	}
	if c.privacyMode == PrivacyExternalProxy && c.proxyURL == "" {
		return Config{}, fmt.Errorf("%w: external_proxy privacy mode requires a proxy URL", ErrInvalidConfig)
	}
	return *c, nil
}

func (c Config) SeedURLs() []url.URL {
	urls := make([]url.URL, len(c.seedURLs))
	copy(urls, c.seedURLs)
	return urls
}

func (c Config) BaseDelay() time.Duration          { return c.baseDelay }
func (c Config) MinDelay() time.Duration           { return c.minDelay }
func (c Config) MaxDelay() time.Duration           { return c.maxDelay }
func (c Config) BackoffMultiplier() float64        { return c.backoffMultiplier }
func (c Config) RecoveryMultiplier() float64       { return c.recoveryMultiplier }
func (c Config) RecoveryThreshold() int            { return c.recoveryThreshold }
func (c Config) RequestTimeout() time.Duration     { return c.requestTimeout }
func (c Config) RequestDelay() time.Duration       { return c.requestDelay }
func (c Config) UserAgent() string                 { return c.userAgent }
func (c Config) PrivacyMode() PrivacyMode          { return c.privacyMode }
func (c Config) ProxyURL() string                  { return c.proxyURL }
func (c Config) ViaMode() ViaMode                  { return c.viaMode }
func (c Config) Workers() int                      { return c.workers }
func (c Config) RefreshTTLDays() int               { return c.refreshTTLDays }
func (c Config) RetryMax() int                     { return c.retryMax }
func (c Config) DocumentsDir() string              { return c.documentsDir }
func (c Config) DBPath() string                    { return c.dbPath }
func (c Config) DryRun() bool                      { return c.dryRun }

func (c Config) ViaMappings() map[string]string {
	m := make(map[string]string, len(c.viaMappings))
	for k, v := range c.viaMappings {
		m[k] = v
	}
	return m
}
