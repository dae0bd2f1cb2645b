// Package config builds the run configuration once at startup. The returned
// value is shared by reference with every component and never modified.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/blueturn/epicmirror/internal/layout"
	"gopkg.in/yaml.v3"
)

const (
	CollectionNatural  = "natural"
	CollectionEnhanced = "enhanced"

	baseURL    = "https://epic.gsfc.nasa.gov"
	prodBucket = "content.blueturn.earth"
	devBucket  = "blueturn-content-dev"

	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// Environment variables read by Load. A .env file is loaded before Load runs.
const (
	EnvMirrorEnv       = "EPIC_MIRROR_ENV"
	EnvStore           = "EPIC_MIRROR_STORE"
	EnvBucket          = "EPIC_MIRROR_BUCKET"
	EnvAPIURL          = "EPIC_MIRROR_API_URL"
	EnvArchiveURL      = "EPIC_MIRROR_ARCHIVE_URL"
	EnvRoot            = "EPIC_MIRROR_ROOT"
	EnvRetries         = "EPIC_MIRROR_RETRIES"
	EnvRetryBackoff    = "EPIC_MIRROR_RETRY_BACKOFF"
	EnvCDNDistribution = "EPIC_MIRROR_CDN_DISTRIBUTION"
	EnvAWSRegion       = "EPIC_MIRROR_AWS_REGION"
	EnvPushgateway     = "EPIC_MIRROR_PUSHGATEWAY"
	EnvAuditDir        = "EPIC_MIRROR_AUDIT_DIR"
)

type Config struct {
	Collection string `yaml:"collection"`
	Bucket     string `yaml:"bucket"`
	// Store addresses the mirror: gs://bucket, s3://bucket or mem://
	Store      string `yaml:"store"`
	APIURL     string `yaml:"api_url"`
	ArchiveURL string `yaml:"archive_url"`
	Root       string `yaml:"root"`

	Retries     int           `yaml:"retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	// RetryBackoff is fixed (retry_delay between attempts) or exponential
	// (retry_delay doubling up to retry_max_delay).
	RetryBackoff  string        `yaml:"retry_backoff"`
	RetryMaxDelay time.Duration `yaml:"retry_max_delay"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`

	Resolutions []int `yaml:"resolutions"`
	Dimension   int   `yaml:"dimension"`
	Threshold   uint8 `yaml:"threshold"`
	JPEGQuality int   `yaml:"jpeg_quality"`

	DebugURLBase    string `yaml:"debug_url_base"`
	CDNDistribution string `yaml:"cdn_distribution"`
	AWSRegion       string `yaml:"aws_region"`
	Pushgateway     string `yaml:"pushgateway"`
	AuditDir        string `yaml:"audit_dir"`
	AuditFormat     string `yaml:"audit_format"`
}

// Options are the command line switches that shape the defaults.
type Options struct {
	Dev      bool
	Enhanced bool
	// File is an optional YAML file applied over the defaults.
	File string
	// AuditDir and Pushgateway override every other source when set.
	AuditDir    string
	Pushgateway string
}

// Load returns the configuration: collection defaults, then the YAML file,
// then environment overrides, then the command line.
func Load(opts Options) (*Config, error) {
	if strings.EqualFold(os.Getenv(EnvMirrorEnv), "dev") {
		opts.Dev = true
	}
	cfg := Defaults(opts)

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", opts.File, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if opts.AuditDir != "" {
		cfg.AuditDir = opts.AuditDir
	}
	if opts.Pushgateway != "" {
		cfg.Pushgateway = opts.Pushgateway
	}
	cfg.finalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the configuration the mirror has always run with.
func Defaults(opts Options) *Config {
	cfg := &Config{
		Collection:  CollectionNatural,
		Bucket:      prodBucket,
		APIURL:      baseURL + "/api/natural",
		ArchiveURL:  baseURL + "/archive/natural",
		Root:        "images",
		Retries:     5,
		RetryDelay:    time.Second,
		RetryBackoff:  BackoffFixed,
		RetryMaxDelay: 30 * time.Second,
		HTTPTimeout:   60 * time.Second,
		Resolutions:   []int{2048, 1024, 512, 256, 120},
		Dimension:     2048,
		Threshold:     10,
		JPEGQuality:   92,
		AWSRegion:     "us-east-1",
		AuditDir:      os.TempDir(),
		AuditFormat:   "csv",
	}
	if opts.Dev {
		cfg.Bucket = devBucket
	}
	if opts.Enhanced {
		cfg.Collection = CollectionEnhanced
		cfg.APIURL = baseURL + "/api/enhanced"
		cfg.ArchiveURL = baseURL + "/archive/enhanced"
		cfg.Root = "enhanced_images"
	}
	return cfg
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		EnvStore:           &cfg.Store,
		EnvBucket:          &cfg.Bucket,
		EnvAPIURL:          &cfg.APIURL,
		EnvArchiveURL:      &cfg.ArchiveURL,
		EnvRoot:            &cfg.Root,
		EnvCDNDistribution: &cfg.CDNDistribution,
		EnvAWSRegion:       &cfg.AWSRegion,
		EnvPushgateway:     &cfg.Pushgateway,
		EnvAuditDir:        &cfg.AuditDir,
		EnvRetryBackoff:    &cfg.RetryBackoff,
	}
	for name, field := range strs {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*field = v
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvRetries)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRetries, err)
		}
		cfg.Retries = n
	}
	return nil
}

func (c *Config) finalize() {
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	c.ArchiveURL = strings.TrimRight(c.ArchiveURL, "/")
	c.Root = strings.Trim(c.Root, "/")
	if c.Store == "" {
		c.Store = "gs://" + c.Bucket
	}
	if c.DebugURLBase == "" {
		c.DebugURLBase = fmt.Sprintf("https://storage.cloud.google.com/%s/%s/debug", c.Bucket, c.Root)
	}
	c.DebugURLBase = strings.TrimRight(c.DebugURLBase, "/")
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{"api_url": c.APIURL, "archive_url": c.ArchiveURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s: %q", name, raw)
		}
	}
	if c.Root == "" {
		return fmt.Errorf("root folder is required")
	}
	if c.Retries < 1 {
		return fmt.Errorf("retries must be at least 1, got %d", c.Retries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must not be negative")
	}
	switch c.RetryBackoff {
	case BackoffFixed:
	case BackoffExponential:
		if c.RetryMaxDelay < c.RetryDelay {
			return fmt.Errorf("retry_max_delay %s is below retry_delay %s", c.RetryMaxDelay, c.RetryDelay)
		}
	default:
		return fmt.Errorf("unsupported retry_backoff: %s (supported: fixed, exponential)", c.RetryBackoff)
	}
	if len(c.Resolutions) == 0 {
		return fmt.Errorf("at least one resolution is required")
	}
	for _, r := range c.Resolutions {
		if r <= 0 {
			return fmt.Errorf("invalid resolution %d", r)
		}
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", c.Dimension)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be within 1-100, got %d", c.JPEGQuality)
	}
	switch c.AuditFormat {
	case "csv", "parquet":
	default:
		return fmt.Errorf("unsupported audit_format: %s (supported: csv, parquet)", c.AuditFormat)
	}
	u, err := url.Parse(c.Store)
	if err != nil {
		return fmt.Errorf("invalid store %q: %w", c.Store, err)
	}
	switch u.Scheme {
	case "gs", "s3":
		if u.Host == "" {
			return fmt.Errorf("store %q has no bucket", c.Store)
		}
	case "mem":
	default:
		return fmt.Errorf("unsupported store scheme %q (supported: gs, s3, mem)", u.Scheme)
	}
	return nil
}

// Layout returns the key layout under the configured root.
func (c *Config) Layout() layout.Layout {
	return layout.Layout{Root: c.Root}
}

// DebugURL is the public address of an image's debug overlay.
func (c *Config) DebugURL(imageID string) string {
	return c.DebugURLBase + "/" + imageID + ".png"
}
