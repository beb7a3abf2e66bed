package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/assetlink/internal/cli/output"
	"github.com/leapstack-labs/assetlink/internal/objectstore"
	"github.com/leapstack-labs/assetlink/internal/staging"
	"github.com/spf13/cobra"
)

// NewObjectsCommand creates the objects command group.
func NewObjectsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "objects",
		Short: "List and register staging bucket objects",
		Long: `Work with the object-store bucket that backs the staging layer.

The bucket is configured under bucket: in assetlink.yaml. Anonymous access,
static keys and S3-compatible endpoints are supported.`,
	}

	cmd.AddCommand(newObjectsListCommand())
	cmd.AddCommand(newObjectsRegisterCommand())

	return cmd
}

func newObjectsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the objects in the bucket",
		Example: `  assetlink objects list
  assetlink objects list -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runObjectsList(cmd)
		},
	}
}

func newObjectsRegisterCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register bucket objects missing from the platform",
		Long: `Create an S3Object asset for every bucket object the platform does not know yet.

Objects are registered under platform.connection and the bucket's qualified
name. Objects that are already registered are skipped, so the command can be
rerun safely.`,
		Example: `  # Show what would be registered
  assetlink objects register --dry-run

  # Register missing objects
  assetlink objects register`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runObjectsRegister(cmd, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only report the objects that would be registered")

	return cmd
}

func runObjectsList(cmd *cobra.Command) error {
	cc := NewCommandContext(cmd)
	defer cc.Close()

	lister, err := cc.Lister()
	if err != nil {
		return err
	}
	objects, err := objectstore.ListAll(cmd.Context(), lister, cc.Cfg.Bucket.Name, cc.Cfg.Bucket.Prefix)
	if err != nil {
		return err
	}

	out := make([]output.ObjectOutput, len(objects))
	rows := make([][]string, len(objects))
	var total int64
	for i, o := range objects {
		out[i] = output.ObjectOutput{Key: o.Key, Size: o.Size, LastModified: o.LastModified}
		rows[i] = []string{o.Key, strconv.FormatInt(o.Size, 10), o.LastModified.UTC().Format(time.RFC3339)}
		total += o.Size
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Objects in "+cc.Cfg.Bucket.Name))
		r.Println("")
		r.Println(output.FormatKeyValue("Objects", strconv.Itoa(len(objects))))
		r.Println(output.FormatKeyValue("Total Bytes", strconv.FormatInt(total, 10)))
		r.Println("")
		r.Table([]string{"Key", "Size", "Last Modified"}, rows)
	default:
		if len(objects) == 0 {
			r.Muted(fmt.Sprintf("No objects in %s", cc.Cfg.Bucket.Name))
			return nil
		}
		r.Table([]string{"Key", "Size", "Last Modified"}, rows)
		r.Muted(fmt.Sprintf("%d objects, %d bytes", len(objects), total))
	}
	return nil
}

func runObjectsRegister(cmd *cobra.Command, dryRun bool) error {
	cc := NewCommandContext(cmd)
	defer cc.Close()

	if cc.Cfg.Platform.Connection == "" {
		return fmt.Errorf("platform.connection is required to register objects")
	}
	lister, err := cc.Lister()
	if err != nil {
		return err
	}
	client, err := cc.Platform()
	if err != nil {
		return err
	}

	reg := staging.NewRegistrar(lister, client, client, staging.Config{
		Connection:     cc.Cfg.Platform.Connection,
		Bucket:         cc.Cfg.Bucket.Name,
		Prefix:         cc.Cfg.Bucket.Prefix,
		Owner:          cc.Cfg.Bucket.Owner,
		ComplianceTags: cc.Cfg.Bucket.ComplianceTags,
		Logger:         cc.Logger.With("component", "staging"),
	})

	var res *staging.Result
	if dryRun {
		res, _, err = reg.Plan(cmd.Context())
	} else {
		res, err = reg.Register(cmd.Context())
	}
	if err != nil {
		return err
	}

	out := output.RegisterOutput{
		Listed:     res.Listed,
		Existing:   res.Existing,
		Registered: res.Registered,
		DryRun:     dryRun,
	}
	for _, m := range res.Missing {
		out.Missing = append(out.Missing, m.QualifiedName)
		if class := res.Classes[m.QualifiedName]; class.HasPII() {
			if out.PII == nil {
				out.PII = make(map[string][]string)
			}
			out.PII[m.QualifiedName] = class.PIIStrings()
		}
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Object Registration"))
		r.Println("")
		r.Println(output.FormatKeyValue("Listed", strconv.Itoa(out.Listed)))
		r.Println(output.FormatKeyValue("Existing", strconv.Itoa(out.Existing)))
		r.Println(output.FormatKeyValue("Registered", strconv.Itoa(out.Registered)))
		if dryRun && len(out.Missing) > 0 {
			r.Println("")
			r.Println(output.FormatHeader(2, "Missing"))
			for _, qn := range out.Missing {
				if pii := out.PII[qn]; len(pii) > 0 {
					r.Printf("- %s (PII: %s)\n", qn, strings.Join(pii, ", "))
					continue
				}
				r.Printf("- %s\n", qn)
			}
		}
	default:
		if dryRun {
			for _, qn := range out.Missing {
				detail := "not registered"
				if pii := out.PII[qn]; len(pii) > 0 {
					detail += ", PII: " + strings.Join(pii, ", ")
				}
				r.StatusLine(qn, "warning", detail)
			}
			r.Success(fmt.Sprintf("%d of %d objects would be registered", len(out.Missing), out.Listed))
			return nil
		}
		r.Success(fmt.Sprintf("Registered %d objects (%d already present)", out.Registered, out.Existing))
	}
	return nil
}
