package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cryexport/cryexport/pkg/logger"
	"github.com/cryexport/cryexport/pkg/watch"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	var output string
	var skipInitial bool

	cmd := &cobra.Command{
		Use:   "watch [project]",
		Short: "Re-export whenever project files change",
		Long: `Export once, then watch the project's assets, binaries and project file and
export again after changes settle for watchDebounce.

Press Ctrl+C to stop.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd, args, output, skipInitial)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "deployment directory (overrides exportRoot)")
	cmd.Flags().BoolVar(&skipInitial, "skip-initial", false, "wait for the first change before exporting")

	return cmd
}

func (c *CLI) runWatch(cmd *cobra.Command, args []string, output string, skipInitial bool) error {
	ctx := cmd.Context()

	p, err := c.loadProject(args)
	if err != nil {
		return err
	}
	dest := output
	if dest == "" {
		if dest, err = c.settings.ExportDir(p.Name); err != nil {
			return err
		}
	}

	w, err := watch.New([]string{p.AssetRoot(), p.BinaryDir(), p.Root}, c.settings.WatchDebounce, c.logger)
	if err != nil {
		return err
	}
	defer w.Close()
	w.Ignore(dest)
	// Sources only matter once built into BinaryDir, which is watched
	if code := p.CodeRoot(); code != "" {
		w.Ignore(code)
	}

	export := func(ctx context.Context) {
		if _, err := c.runExport(cmd, args, dest); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.console.Error(fmt.Sprintf("Export failed: %v", err))
		}
	}

	if !skipInitial {
		export(ctx)
	}

	c.console.Info(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", p.Name))
	err = w.Run(ctx, func(ctx context.Context, changed []string) {
		c.logger.Debug("Changed files", logger.WithField("paths", changed))
		export(ctx)
	})
	c.console.Info("Stopped watching")
	return err
}
