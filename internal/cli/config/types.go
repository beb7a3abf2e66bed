// Package config provides configuration management for the assetlink CLI.
//
// Configuration is layered with koanf: built-in defaults, then assetlink.yaml
// (searched upward from the working directory), then ASSETLINK_ environment
// variables, then explicitly set command-line flags.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	Platform     PlatformConfig           `koanf:"platform"`
	Cache        CacheConfig              `koanf:"cache"`
	Datasets     map[string]DatasetConfig `koanf:"datasets"`
	Links        []LinkConfig             `koanf:"links"`
	Bucket       BucketConfig             `koanf:"bucket"`
	Metrics      MetricsConfig            `koanf:"metrics"`
	LogLevel     string                   `koanf:"log_level"`
	LogFormat    string                   `koanf:"log_format"`
	Verbose      bool                     `koanf:"verbose"`
	OutputFormat string                   `koanf:"output"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// PlatformConfig configures the metadata platform client.
type PlatformConfig struct {
	BaseURL    string `koanf:"base_url"`
	APIToken   string `koanf:"api_token"`
	PageSize   int    `koanf:"page_size"`
	Connection string `koanf:"connection"`
}

// CacheConfig configures discovery snapshots and run history.
type CacheConfig struct {
	Backend     string  `koanf:"backend"`
	Dir         string  `koanf:"dir"`
	StatePath   string  `koanf:"state_path"`
	MaxAgeHours float64 `koanf:"max_age_hours"`
}

// MaxAge returns the freshness window as a duration.
func (c CacheConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours * float64(time.Hour))
}

// DatasetConfig describes one dataset.
type DatasetConfig struct {
	Prefix string `koanf:"prefix"`
	Source string `koanf:"source"`
}

// LinkConfig describes one lineage hop.
type LinkConfig struct {
	Source  string `koanf:"source"`
	Target  string `koanf:"target"`
	Columns bool   `koanf:"columns"`
}

// BucketConfig configures the object-store listing.
type BucketConfig struct {
	Name      string `koanf:"name"`
	Prefix    string `koanf:"prefix"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Anonymous bool   `koanf:"anonymous"`
	PathStyle bool   `koanf:"path_style"`

	// Owner and ComplianceTags are recorded on registered objects.
	Owner          string   `koanf:"owner"`
	ComplianceTags []string `koanf:"compliance_tags"`
}

// MetricsConfig configures run metrics export.
type MetricsConfig struct {
	PushgatewayURL string `koanf:"pushgateway_url"`
	Job            string `koanf:"job"`
	Textfile       string `koanf:"textfile"`
}

// Cache backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Default configuration values.
const (
	DefaultBackend     = BackendFile
	DefaultCacheDir    = ".assetlink/cache"
	DefaultStateFile   = ".assetlink/state.db"
	DefaultMaxAgeHours = 24
	DefaultPageSize    = 100
	DefaultRegion      = "us-east-1"
	DefaultMetricsJob  = "assetlink"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// Config file names, in lookup order.
var configFileNames = []string{"assetlink.yaml", "assetlink.yml"}

// Default returns the built-in configuration, with paths relative to the
// working directory.
func Default() *Config {
	return &Config{
		Platform:     PlatformConfig{PageSize: DefaultPageSize},
		Cache:        CacheConfig{Backend: DefaultBackend, Dir: DefaultCacheDir, StatePath: DefaultStateFile, MaxAgeHours: DefaultMaxAgeHours},
		Bucket:       BucketConfig{Region: DefaultRegion},
		Metrics:      MetricsConfig{Job: DefaultMetricsJob},
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		OutputFormat: DefaultOutput,
	}
}
