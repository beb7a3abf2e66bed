package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/assetlink/internal/cli/config"
	"github.com/leapstack-labs/assetlink/internal/cli/output"
	"github.com/leapstack-labs/assetlink/internal/objectstore"
	"github.com/spf13/cobra"
)

// Health check statuses.
const (
	checkPass  = "pass"
	checkWarn  = "warn"
	checkError = "error"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, connectivity and local storage",
		Long: `Check that a sync can run before starting one.

The doctor command verifies:
- Configuration: datasets and links are defined
- Platform: a single-result search succeeds with the configured token
- Bucket: one key can be listed from the staging bucket
- Storage: the cache directory and state database are writable

Unconfigured platform or bucket settings are reported as warnings. Any
failed check makes the command exit non-zero.`,
		Example: `  # Run all checks
  assetlink doctor

  # Output as JSON
  assetlink doctor -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	ConfigFile      string        `json:"config_file,omitempty"`
	HealthChecks    []HealthCheck `json:"health_checks"`
	Score           int           `json:"score"`
	Recommendations []string      `json:"recommendations"`
	IssueCount      int           `json:"issue_count"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	CheckID string   `json:"check_id"`
	Name    string   `json:"name"`
	Group   string   `json:"group"`
	Status  string   `json:"status"` // "pass", "warn", "error"
	Details []string `json:"details,omitempty"`
}

// pinger is the platform call used by the connectivity check.
type pinger interface {
	Ping(ctx context.Context) (int, error)
}

func runDoctor(cmd *cobra.Command) error {
	cc := NewCommandContext(cmd)
	defer cc.Close()

	ctx := cmd.Context()
	checks := []HealthCheck{checkConfig(cc.Cfg)}

	if err := cc.Cfg.RequirePlatform(); err != nil {
		checks = append(checks, notConfigured("PL01", "platform-reachable", err))
	} else if client, err := cc.Platform(); err != nil {
		checks = append(checks, failed("PL01", "platform-reachable", "connectivity", err))
	} else {
		checks = append(checks, checkPlatform(ctx, client))
	}

	if err := cc.Cfg.RequireBucket(); err != nil {
		checks = append(checks, notConfigured("BK01", "bucket-listable", err))
	} else if lister, err := cc.checkLister(); err != nil {
		checks = append(checks, failed("BK01", "bucket-listable", "connectivity", err))
	} else {
		checks = append(checks, checkBucket(ctx, lister, cc.Cfg.Bucket.Name, cc.Cfg.Bucket.Prefix))
	}

	checks = append(checks, checkCacheDir(cc.Cfg))
	if _, err := cc.State(); err != nil {
		checks = append(checks, failed("ST02", "state-writable", "storage", err))
	} else {
		checks = append(checks, HealthCheck{
			CheckID: "ST02", Name: "state-writable", Group: "storage", Status: checkPass,
			Details: []string{cc.Cfg.Cache.StatePath},
		})
	}

	out := buildDoctorOutput(checks)
	out.ConfigFile = config.GetConfigFileUsed()

	r := cc.Renderer
	var err error
	switch r.EffectiveMode() {
	case output.ModeJSON:
		err = r.JSON(out)
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}
	if err != nil {
		return err
	}

	if n := countStatus(checks, checkError); n > 0 {
		return fmt.Errorf("%d health checks failed", n)
	}
	return nil
}

// checkLister returns a lister that fetches at most one key per page.
func (c *CommandContext) checkLister() (objectstore.Lister, error) {
	if c.lister != nil {
		return c.lister, nil
	}
	return c.newLister(1)
}

func checkConfig(cfg *config.Config) HealthCheck {
	check := HealthCheck{CheckID: "CF01", Name: "datasets-and-links", Group: "configuration", Status: checkPass}
	switch {
	case len(cfg.Datasets) == 0:
		check.Status = checkError
		check.Details = []string{"no datasets configured"}
	case len(cfg.Links) == 0:
		check.Status = checkWarn
		check.Details = []string{fmt.Sprintf("%d datasets, no links configured", len(cfg.Datasets))}
	default:
		check.Details = []string{fmt.Sprintf("%d datasets, %d links", len(cfg.Datasets), len(cfg.Links))}
	}
	return check
}

func checkPlatform(ctx context.Context, p pinger) HealthCheck {
	count, err := p.Ping(ctx)
	if err != nil {
		return failed("PL01", "platform-reachable", "connectivity", err)
	}
	return HealthCheck{
		CheckID: "PL01", Name: "platform-reachable", Group: "connectivity", Status: checkPass,
		Details: []string{fmt.Sprintf("%d assets visible", count)},
	}
}

func checkBucket(ctx context.Context, lister objectstore.Lister, bucket, prefix string) HealthCheck {
	page, err := lister.ListObjects(ctx, bucket, prefix, "")
	if err != nil {
		return failed("BK01", "bucket-listable", "connectivity", err)
	}
	check := HealthCheck{CheckID: "BK01", Name: "bucket-listable", Group: "connectivity", Status: checkPass}
	if len(page.Objects) == 0 {
		check.Status = checkWarn
		check.Details = []string{fmt.Sprintf("s3://%s/%s is empty", bucket, prefix)}
		return check
	}
	check.Details = []string{"first key: " + page.Objects[0].Key}
	return check
}

// checkCacheDir writes and removes a scratch file in the snapshot directory.
func checkCacheDir(cfg *config.Config) HealthCheck {
	check := HealthCheck{CheckID: "ST01", Name: "cache-writable", Group: "storage", Status: checkPass}
	if cfg.Cache.Backend == config.BackendSQLite {
		check.Details = []string{"sqlite backend, snapshots live in the state database"}
		return check
	}

	dir := cfg.Cache.Dir
	if err := os.MkdirAll(dir, 0750); err != nil {
		return failed(check.CheckID, check.Name, check.Group, err)
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return failed(check.CheckID, check.Name, check.Group, err)
	}
	name := f.Name()
	_ = f.Close()
	if err := os.Remove(name); err != nil {
		return failed(check.CheckID, check.Name, check.Group, err)
	}
	check.Details = []string{filepath.Clean(dir)}
	return check
}

func failed(id, name, group string, err error) HealthCheck {
	return HealthCheck{CheckID: id, Name: name, Group: group, Status: checkError, Details: errorLines(err)}
}

func notConfigured(id, name string, err error) HealthCheck {
	return HealthCheck{
		CheckID: id,
		Name:    name,
		Group:   "connectivity",
		Status:  checkWarn,
		Details: append([]string{"not configured"}, errorLines(err)...),
	}
}

// errorLines splits multi-line errors, such as those carrying a hint.
func errorLines(err error) []string {
	return strings.Split(err.Error(), "\n")
}

func buildDoctorOutput(checks []HealthCheck) *DoctorOutput {
	return &DoctorOutput{
		HealthChecks:    checks,
		Score:           calculateHealthScore(checks),
		Recommendations: generateRecommendations(checks),
		IssueCount:      countStatus(checks, checkWarn) + countStatus(checks, checkError),
	}
}

func countStatus(checks []HealthCheck, status string) int {
	n := 0
	for _, c := range checks {
		if c.Status == status {
			n++
		}
	}
	return n
}

// calculateHealthScore computes a health score from 0-100. A failed check
// costs 40 points and a warning 10.
func calculateHealthScore(checks []HealthCheck) int {
	score := 100 - 40*countStatus(checks, checkError) - 10*countStatus(checks, checkWarn)
	return max(score, 0)
}

// generateRecommendations creates actionable recommendations based on findings.
func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	for _, check := range checks {
		if check.Status == checkPass {
			continue
		}
		if rec := getRecommendation(check.CheckID); rec != "" {
			recommendations = append(recommendations, rec)
		}
	}
	return recommendations
}

// getRecommendation returns a recommendation for a specific check.
func getRecommendation(checkID string) string {
	switch checkID {
	case "CF01":
		return "Define datasets and links in assetlink.yaml (run 'assetlink init' for a starter file)"
	case "PL01":
		return "Check platform.base_url and the API token; the token needs search permission"
	case "BK01":
		return "Check bucket.name, bucket.region and credentials (set bucket.anonymous for public buckets)"
	case "ST01":
		return "Make cache.dir writable or point --cache-dir elsewhere"
	case "ST02":
		return "Make cache.state_path writable or point --state elsewhere"
	default:
		return ""
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	r.Println(styles.Header.Render("assetlink Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	if out.ConfigFile != "" {
		r.Println(styles.Muted.Render("Config: " + out.ConfigFile))
	}
	r.Println("")

	currentGroup := ""
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + currentGroup))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.Success.Render("✓")
		switch check.Status {
		case checkWarn:
			icon = styles.Warning.Render("!")
		case checkError:
			icon = styles.Error.Render("✗")
		}
		r.Printf("   %s %s: %s\n", icon, check.CheckID, check.Name)
		for _, detail := range check.Details {
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))

	if len(out.Recommendations) > 0 {
		r.Println("")
		r.Println(styles.Header.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
	}
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println(output.FormatHeader(1, "assetlink Health Report"))
	r.Println("")
	if out.ConfigFile != "" {
		r.Println(output.FormatKeyValue("Config", out.ConfigFile))
		r.Println("")
	}

	r.Println(output.FormatHeader(2, "Health Checks"))
	r.Println("")
	for _, check := range out.HealthChecks {
		r.Printf("- **[%s]** %s: %s\n", strings.ToUpper(check.Status), check.CheckID, check.Name)
		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println(output.FormatHeader(2, "Health Score"))
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)

	if len(out.Recommendations) > 0 {
		r.Println("")
		r.Println(output.FormatHeader(2, "Recommendations"))
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
	}
}
