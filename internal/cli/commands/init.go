package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/assetlink/internal/cli/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const configFileName = "assetlink.yaml"

const starterHeader = `# assetlink configuration
#
# Values may reference environment variables with ${VAR}. Every key can also be
# set with ASSETLINK_<SECTION>__<KEY>, e.g. ASSETLINK_PLATFORM__API_TOKEN.
`

// starterConfig is the document written by init. Field order is the order
// keys appear in the file.
type starterConfig struct {
	Platform struct {
		BaseURL    string `yaml:"base_url"`
		APIToken   string `yaml:"api_token"`
		PageSize   int    `yaml:"page_size"`
		Connection string `yaml:"connection"`
	} `yaml:"platform"`
	Cache struct {
		Backend     string  `yaml:"backend"`
		Dir         string  `yaml:"dir"`
		StatePath   string  `yaml:"state_path"`
		MaxAgeHours float64 `yaml:"max_age_hours"`
	} `yaml:"cache"`
	Datasets map[string]starterDataset `yaml:"datasets"`
	Links    []starterLink             `yaml:"links"`
	Bucket   struct {
		Name      string `yaml:"name"`
		Prefix    string `yaml:"prefix"`
		Region    string `yaml:"region"`
		Anonymous bool   `yaml:"anonymous"`
	} `yaml:"bucket"`
	Metrics struct {
		PushgatewayURL string `yaml:"pushgateway_url"`
		Job            string `yaml:"job"`
	} `yaml:"metrics"`
	LogLevel string `yaml:"log_level"`
	Output   string `yaml:"output"`
}

type starterDataset struct {
	Prefix string `yaml:"prefix"`
	Source string `yaml:"source,omitempty"`
}

type starterLink struct {
	Source  string `yaml:"source"`
	Target  string `yaml:"target"`
	Columns bool   `yaml:"columns"`
}

func newStarterConfig() starterConfig {
	var s starterConfig
	s.Platform.BaseURL = "https://tenant.example.com"
	s.Platform.APIToken = "${ATLAN_API_TOKEN}"
	s.Platform.PageSize = config.DefaultPageSize
	s.Platform.Connection = "default/s3/1700000000"
	s.Cache.Backend = config.DefaultBackend
	s.Cache.Dir = config.DefaultCacheDir
	s.Cache.StatePath = config.DefaultStateFile
	s.Cache.MaxAgeHours = config.DefaultMaxAgeHours
	s.Datasets = map[string]starterDataset{
		"postgres":  {Prefix: "default/postgres/1700000001"},
		"staging":   {Prefix: "default/s3/1700000000", Source: "bucket"},
		"snowflake": {Prefix: "default/snowflake/1700000002"},
	}
	s.Links = []starterLink{
		{Source: "postgres", Target: "staging"},
		{Source: "staging", Target: "snowflake", Columns: true},
	}
	s.Bucket.Name = "my-staging-bucket"
	s.Bucket.Region = config.DefaultRegion
	s.Bucket.Anonymous = true
	s.Metrics.Job = config.DefaultMetricsJob
	s.LogLevel = config.DefaultLogLevel
	s.Output = config.DefaultOutput
	return s
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a starter assetlink.yaml",
		Long: `Write a starter assetlink.yaml with example datasets and links.

Edit the platform URL, connection and dataset prefixes, then export the API
token referenced by platform.api_token.`,
		Example: `  # Initialize in current directory
  assetlink init

  # Initialize in a new directory
  assetlink init lineage-sync

  # Overwrite an existing config
  assetlink init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cc := NewCommandContext(cmd)
			defer cc.Close()
			return runInit(cc, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(cc *CommandContext, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, configFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configFileName)
	}

	var buf bytes.Buffer
	buf.WriteString(starterHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(newStarterConfig()); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(configPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	r := cc.Renderer
	r.StatusLine(configPath, "success", "")
	r.Println("")
	r.Success("assetlink project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Set platform.base_url and platform.connection")
	r.Println("  2. Export ATLAN_API_TOKEN")
	r.Println("  3. Run 'assetlink sync --dry-run' to preview matches")
	r.Println("  4. Run 'assetlink sync' to create lineage")

	return nil
}
