package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cryexport/cryexport/pkg/archive"
	"github.com/cryexport/cryexport/pkg/deploy"
	"github.com/cryexport/cryexport/pkg/engine"
	"github.com/cryexport/cryexport/pkg/logger"
	"github.com/cryexport/cryexport/pkg/notifier"
	"github.com/cryexport/cryexport/pkg/quirks"
	"github.com/cryexport/cryexport/pkg/types"
	"github.com/cryexport/cryexport/pkg/utils"
)

func (c *CLI) newExportCmd() *cobra.Command {
	var output string
	var dryRun bool
	var archiver string

	cmd := &cobra.Command{
		Use:   "export [project]",
		Short: "Export a project into a standalone build",
		Long: `Resolve the project's engine and rebuild the deployment directory from scratch.

The destination defaults to <exportRoot>/<project name> and is deleted before
every run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if archiver != "" {
				c.settings.Archiver = archiver
				if err := c.settings.Validate(); err != nil {
					return err
				}
			}
			if dryRun {
				return c.runPlan(cmd, args, output, FormatText)
			}
			_, err := c.runExport(cmd, args, output)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "deployment directory (overrides exportRoot)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without writing anything")
	cmd.Flags().StringVar(&archiver, "archiver", "", "archive backend: auto, builtin or 7z")

	return cmd
}

func (c *CLI) runExport(cmd *cobra.Command, args []string, output string) (*deploy.Result, error) {
	p, err := c.loadProject(args)
	if err != nil {
		return nil, err
	}

	notify := notifier.New(notifier.Config{Enabled: c.settings.Notify, Sound: true}, c.logger)

	orch, err := c.newOrchestrator(p, output)
	if err != nil {
		return nil, err
	}

	c.console.Info(fmt.Sprintf("Exporting %s (engine %s)", p.Name, p.EngineTag))
	result, err := orch.Run(cmd.Context(), p)
	if err != nil {
		notify.NotifyExportFailure(p.Name, err)
		return nil, err
	}

	notify.NotifyExportSuccess(p.Name, result.DestRoot, result.Duration)
	c.console.Success(fmt.Sprintf("Exported %s to %s in %s",
		p.Name, result.DestRoot, result.Duration.Round(time.Millisecond)))
	c.printf("  Engine:      %s %s (%s)\n", result.Engine.Name, result.Engine.Version, result.Engine.Path)
	c.printf("  Entry:       %s\n", result.EntryBinary)
	c.printf("  Binaries:    %s\n", strings.Join(result.Binaries, ", "))
	c.printf("  Asset units: %d\n", len(result.Units))
	c.printf("  Level files: %d\n", result.LevelFiles)
	c.printf("  Operations:  %d\n", len(result.Operations))
	c.printf("  Size:        %s\n", utils.FormatBytes(result.BytesCopied))
	return result, nil
}

func (c *CLI) newPlanCmd() *cobra.Command {
	var output string
	var format string

	cmd := &cobra.Command{
		Use:   "plan [project]",
		Short: "Show what an export would do",
		Long:  `Resolve the engine and enumerate engine archives, asset units and quirks without touching the destination.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlan(cmd, args, output, format)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "deployment directory (overrides exportRoot)")
	cmd.Flags().StringVarP(&format, "format", "f", FormatText, "output format: text, json, yaml or toml")

	return cmd
}

func (c *CLI) runPlan(cmd *cobra.Command, args []string, output, format string) error {
	if err := validFormat(format); err != nil {
		return err
	}

	p, err := c.loadProject(args)
	if err != nil {
		return err
	}
	orch, err := c.newOrchestrator(p, output)
	if err != nil {
		return err
	}
	plan, err := orch.Plan(cmd.Context(), p)
	if err != nil {
		return err
	}

	if format != FormatText {
		return encode(c.output, format, plan)
	}

	bold := color.New(color.Bold)
	c.printf("%s %s\n", bold.Sprint("Project:"), p.Name)
	c.printf("%s %s %s (%s)\n", bold.Sprint("Engine: "), plan.Engine.Name, plan.Engine.Version, plan.Engine.Path)
	c.printf("%s %s\n", bold.Sprint("Dest:   "), plan.DestRoot)
	c.printf("%s %s\n", bold.Sprint("Entry:  "), plan.EntryBinary)
	if len(plan.Binaries) > 1 {
		c.printf("%s %s\n", bold.Sprint("Plugins:"), strings.Join(plan.Binaries[1:], ", "))
	}

	c.printf("\nEngine archives (%d):\n", len(plan.EngineAssets))
	for _, a := range plan.EngineAssets {
		c.printf("  %s\n", a)
	}

	c.printf("\nAsset units (%d):\n", len(plan.Units))
	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	for _, u := range plan.Units {
		action := "archive"
		if u.IsFile {
			action = "copy"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", u.Name, action, u.OutputName(".pak"))
	}
	w.Flush()

	if len(plan.Quirks) > 0 {
		c.printf("\nQuirks: %s\n", strings.Join(plan.Quirks, ", "))
	}
	return nil
}

func (c *CLI) newResolveCmd() *cobra.Command {
	var tag string
	var format string

	cmd := &cobra.Command{
		Use:   "resolve [project]",
		Short: "Resolve an engine tag to an installation",
		Long: `Resolve the engine a project requires, or an explicit --tag, through the
registry files and then the legacy install registry.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			if tag == "" {
				p, err := c.loadProject(args)
				if err != nil {
					return err
				}
				tag = p.EngineTag
			}

			meta, err := c.newResolver().Resolve(cmd.Context(), tag)
			if err != nil {
				var nf *engine.NotFoundError
				if errors.As(err, &nf) {
					for _, a := range nf.Tried {
						c.console.Warn(fmt.Sprintf("%s: %s", a.Strategy, a.Reason))
					}
				}
				return err
			}

			if format != FormatText {
				return encode(c.output, format, meta)
			}
			c.printf("%s\t%s\t%s\t%s\n", meta.Tag, meta.Name, meta.Version, meta.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "engine tag to resolve instead of the project's")
	cmd.Flags().StringVarP(&format, "format", "f", FormatText, "output format: text, json, yaml or toml")

	return cmd
}

// engineListing is the machine-readable form of the engines command
type engineListing struct {
	Registered []types.EngineMetadata `json:"registered" yaml:"registered" toml:"registered"`
	Legacy     map[string]string      `json:"legacy" yaml:"legacy" toml:"legacy"`
}

func (c *CLI) newEnginesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "engines",
		Short: "List known engine installations",
		Long:  `List engines registered in the registry files and legacy installs known to the install registry.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}

			files := c.settings.RegistryFiles
			if len(files) == 0 {
				files = engine.DefaultRegistryFiles()
			}
			listing := engineListing{
				Registered: engine.NewRegistryFileStrategy(files, c.logger).Entries(),
			}

			keys, versions, err := engine.SortedVersions(c.settings.InstallRegistry())
			if err != nil {
				c.logger.Warn("Install registry unavailable", logger.WithField("error", err))
			}
			listing.Legacy = versions

			if format != FormatText {
				return encode(c.output, format, listing)
			}

			if len(listing.Registered) == 0 && len(keys) == 0 {
				c.console.Warn("No engines found")
				return nil
			}

			w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TAG\tNAME\tVERSION\tPATH")
			for _, e := range listing.Registered {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Tag, e.Name, e.Version, e.Path)
			}
			for _, key := range keys {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", "engine-"+key, "CRYENGINE "+key, key, versions[key])
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", FormatText, "output format: text, json, yaml or toml")

	return cmd
}

func (c *CLI) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [project]",
		Short: "Check that a project can be exported",
		Long: `Parse the project file, resolve its engine and check for engine archives and
an entry binary without writing anything.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.loadProject(args)
			if err != nil {
				c.console.Error(fmt.Sprintf("Invalid project: %v", err))
				return err
			}
			c.console.Info(fmt.Sprintf("Project %s requires %s", p.Name, p.EngineTag))

			orch, err := c.newOrchestrator(p, "")
			if err != nil {
				return err
			}
			plan, err := orch.Plan(cmd.Context(), p)
			if err != nil {
				c.console.Error(err.Error())
				return err
			}

			for _, name := range plan.Quirks {
				if name != (quirks.CopyProjectFile{}).Name() {
					continue
				}
				manifest := filepath.Join(p.Root, c.settings.PluginManifest)
				if !utils.FileExists(manifest) {
					c.console.Warn(fmt.Sprintf("%s not found; engine %s expects it next to the project",
						c.settings.PluginManifest, plan.Engine.Version))
				}
			}

			c.console.Success(fmt.Sprintf("%s is ready to export with %s (%d asset units, entry %s)",
				p.Name, plan.Engine.Name, len(plan.Units), plan.EntryBinary))
			return nil
		},
	}
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.printf("📦 cryexport v%s\n", c.config.Version)
			c.printf("   archive backends: %s, %s, %s\n",
				archive.BackendAuto, archive.BackendBuiltin, archive.BackendSevenZip)
			return nil
		},
	}
}
