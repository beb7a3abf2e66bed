package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/assetlink/internal/cache"
	"github.com/leapstack-labs/assetlink/internal/cli/config"
	"github.com/leapstack-labs/assetlink/internal/cli/output"
	"github.com/leapstack-labs/assetlink/internal/discovery"
	"github.com/leapstack-labs/assetlink/internal/objectstore"
	"github.com/leapstack-labs/assetlink/internal/platform"
	"github.com/leapstack-labs/assetlink/internal/state"
	"github.com/leapstack-labs/assetlink/pkg/core"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands. Stores and
// clients are opened on first use and released by Close.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer

	cmd     *cobra.Command
	state   *state.SQLiteStore
	client  *platform.Client
	lister  objectstore.Lister
	closers []func() error
}

// NewCommandContext creates a CommandContext from the command's context.
// The caller must call Close (typically via defer).
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig(cmd)
	logger := config.GetLogger(cmd.Context())
	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		mode = output.ModeAuto
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
		cmd:      cmd,
	}
}

// Close releases everything opened through the context.
func (c *CommandContext) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Logger.Warn("failed to close resource", "error", err)
		}
	}
	c.closers = nil
}

// getConfig returns the configuration loaded by the root command, or the
// built-in defaults when the command runs standalone.
func getConfig(cmd *cobra.Command) *config.Config {
	if cfg := config.GetConfig(cmd.Context()); cfg != nil {
		return cfg
	}
	return config.Default()
}

// State opens the SQLite state database, creating its directory and schema.
func (c *CommandContext) State() (*state.SQLiteStore, error) {
	if c.state != nil {
		return c.state, nil
	}

	path := c.Cfg.Cache.StatePath
	stateDir := filepath.Dir(path)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(state.Config{Logger: c.Logger.With("component", "state")})
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	c.state = store
	c.closers = append(c.closers, store.Close)
	return store, nil
}

// CacheStore returns the configured discovery cache backend.
func (c *CommandContext) CacheStore() (core.CacheStore, error) {
	if c.Cfg.Cache.Backend == config.BackendSQLite {
		return c.State()
	}
	return cache.NewFileStore(cache.FileConfig{
		Dir:    c.Cfg.Cache.Dir,
		Logger: c.Logger.With("component", "cache"),
	}), nil
}

// Platform returns the metadata platform client.
func (c *CommandContext) Platform() (*platform.Client, error) {
	if c.client != nil {
		return c.client, nil
	}
	if err := c.Cfg.RequirePlatform(); err != nil {
		return nil, err
	}
	client, err := platform.New(platform.Config{
		BaseURL:    c.Cfg.Platform.BaseURL,
		APIToken:   c.Cfg.Platform.APIToken,
		PageSize:   c.Cfg.Platform.PageSize,
		Connection: c.Cfg.Platform.Connection,
		Logger:     c.Logger.With("component", "platform"),
	})
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

// Lister returns the object-store lister for the configured bucket.
func (c *CommandContext) Lister() (objectstore.Lister, error) {
	if c.lister != nil {
		return c.lister, nil
	}
	lister, err := c.newLister(0)
	if err != nil {
		return nil, err
	}
	c.lister = lister
	return lister, nil
}

// newLister builds an S3 lister for the configured bucket. A zero pageSize
// uses the service default.
func (c *CommandContext) newLister(pageSize int32) (objectstore.Lister, error) {
	if err := c.Cfg.RequireBucket(); err != nil {
		return nil, err
	}
	b := c.Cfg.Bucket
	lister, err := objectstore.NewS3Lister(c.cmd.Context(), objectstore.Config{
		Region:    b.Region,
		Endpoint:  b.Endpoint,
		AccessKey: b.AccessKey,
		SecretKey: b.SecretKey,
		Anonymous: b.Anonymous,
		PathStyle: b.PathStyle,
		PageSize:  pageSize,
		Logger:    c.Logger.With("component", "objectstore"),
	})
	if err != nil {
		return nil, err
	}
	return lister, nil
}

// BucketSource adapts the configured bucket into an asset source.
func (c *CommandContext) BucketSource() (*objectstore.Source, error) {
	lister, err := c.Lister()
	if err != nil {
		return nil, err
	}
	return objectstore.NewSource(lister, c.Cfg.Platform.Connection, c.Cfg.Bucket.Name, c.Cfg.Bucket.Prefix), nil
}

// Discoverer builds a discoverer over the configured datasets. Only the
// sources the datasets reference are set up; a dataset whose source is not
// configured can still be served from a valid cache entry.
func (c *CommandContext) Discoverer() (*discovery.Discoverer, error) {
	store, err := c.CacheStore()
	if err != nil {
		return nil, err
	}

	var datasets []discovery.Dataset
	needs := map[string]bool{}
	for _, key := range c.Cfg.DatasetKeys() {
		ds := c.Cfg.Datasets[key]
		source := ds.Source
		if source == "" {
			source = discovery.SourcePlatform
		}
		needs[source] = true
		datasets = append(datasets, discovery.Dataset{Key: key, Prefix: ds.Prefix, Source: source})
	}

	sources := map[string]core.AssetSource{}
	if needs[discovery.SourcePlatform] {
		if client, err := c.Platform(); err == nil {
			sources[discovery.SourcePlatform] = client
		} else {
			c.Logger.Debug("platform source unavailable", "error", err)
		}
	}
	if needs[discovery.SourceBucket] {
		if src, err := c.BucketSource(); err == nil {
			sources[discovery.SourceBucket] = src
		} else {
			c.Logger.Debug("bucket source unavailable", "error", err)
		}
	}

	return discovery.New(nil, store, discovery.Config{
		Datasets: datasets,
		MaxAge:   c.Cfg.Cache.MaxAge(),
		Sources:  sources,
		Logger:   c.Logger.With("component", "discovery"),
	}), nil
}

func assetOutputs(records []core.AssetRecord) []output.AssetOutput {
	out := make([]output.AssetOutput, len(records))
	for i, r := range records {
		out[i] = output.AssetOutput{QualifiedName: r.QualifiedName, Name: r.Name, Kind: string(r.Kind)}
	}
	return out
}

func kindCounts(records []core.AssetRecord) map[string]int {
	counts := map[string]int{}
	for _, r := range records {
		counts[string(r.Kind)]++
	}
	return counts
}
