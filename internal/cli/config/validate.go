package config

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/assetlink/internal/cli/output"
)

// Validate checks the configuration for internal consistency. Settings that
// only some commands need (platform URL, bucket name) are checked by
// RequirePlatform and RequireBucket instead.
func (c *Config) Validate() error {
	var errs []error

	if c.Cache.MaxAgeHours <= 0 {
		errs = append(errs, fmt.Errorf("cache.max_age_hours must be positive, got %v", c.Cache.MaxAgeHours))
	}
	switch c.Cache.Backend {
	case BackendFile, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be %q or %q, got %q", BackendFile, BackendSQLite, c.Cache.Backend))
	}
	if c.Platform.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("platform.page_size must be positive, got %d", c.Platform.PageSize))
	}

	for _, key := range c.DatasetKeys() {
		ds := c.Datasets[key]
		if strings.TrimSpace(ds.Prefix) == "" {
			errs = append(errs, fmt.Errorf("datasets.%s.prefix is required", key))
		}
		switch ds.Source {
		case "", "platform", "bucket":
		default:
			errs = append(errs, fmt.Errorf("datasets.%s.source must be platform or bucket, got %q", key, ds.Source))
		}
	}

	for i, l := range c.Links {
		if _, ok := c.Datasets[l.Source]; !ok {
			errs = append(errs, fmt.Errorf("links[%d].source: unknown dataset %q", i, l.Source))
		}
		if _, ok := c.Datasets[l.Target]; !ok {
			errs = append(errs, fmt.Errorf("links[%d].target: unknown dataset %q", i, l.Target))
		}
		if l.Source == l.Target && l.Source != "" {
			errs = append(errs, fmt.Errorf("links[%d]: source and target are both %q", i, l.Source))
		}
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// RequirePlatform checks the settings needed to talk to the platform.
func (c *Config) RequirePlatform() error {
	if c.Platform.BaseURL == "" {
		return errors.New("platform.base_url is required\nHint: set it in assetlink.yaml or ASSETLINK_PLATFORM__BASE_URL")
	}
	if c.Platform.APIToken == "" || strings.HasPrefix(c.Platform.APIToken, "${") {
		return errors.New("platform.api_token is required\nHint: set ASSETLINK_PLATFORM__API_TOKEN or reference an environment variable with ${VAR}")
	}
	return nil
}

// RequireBucket checks the settings needed to list the bucket.
func (c *Config) RequireBucket() error {
	if c.Bucket.Name == "" {
		return errors.New("bucket.name is required")
	}
	return nil
}

// DatasetKeys returns the configured dataset keys in sorted order.
func (c *Config) DatasetKeys() []string {
	keys := make([]string, 0, len(c.Datasets))
	for k := range c.Datasets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}
