// Package cli provides the command-line interface for cryexport
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cryexport/cryexport/pkg/archive"
	"github.com/cryexport/cryexport/pkg/config"
	"github.com/cryexport/cryexport/pkg/deploy"
	"github.com/cryexport/cryexport/pkg/engine"
	"github.com/cryexport/cryexport/pkg/logger"
	"github.com/cryexport/cryexport/pkg/project"
	"github.com/cryexport/cryexport/pkg/types"
)

// CLI wires commands to one set of flags, settings and writers
type CLI struct {
	config   *Config
	rootCmd  *cobra.Command
	settings *config.Settings
	logger   logger.Logger
	console  *logger.ConsoleLogger
	output   io.Writer
	errorOut io.Writer
	// logOutput replaces stderr and the log file when set
	logOutput io.Writer
}

// NewCLI creates a new CLI instance with the given configuration
func NewCLI(cfg *Config) *CLI {
	if cfg == nil {
		cfg = NewConfig()
	}

	c := &CLI{
		config:   cfg,
		output:   os.Stdout,
		errorOut: os.Stderr,
	}
	c.setupCommands()
	return c
}

// NewCLIWithOutput creates a CLI with custom output writers (for testing)
func NewCLIWithOutput(cfg *Config, output, errorOut io.Writer) *CLI {
	c := NewCLI(cfg)
	c.output = output
	c.errorOut = errorOut
	c.logOutput = errorOut
	c.rootCmd.SetOut(output)
	c.rootCmd.SetErr(errorOut)
	return c
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	return c.ExecuteContext(context.Background(), args)
}

// ExecuteContext runs the CLI with context support; cancelling ctx aborts a running export
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "cryexport",
		Short: "Package a CRYENGINE project into a standalone build",
		Long: `📦 cryexport - export a game project together with the matching engine runtime

cryexport resolves the engine a project was made with, copies the runtime
binaries and engine archives, packs the project's assets into .pak archives
and writes the system.cfg the launcher reads.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.initializeConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	c.setupFlags()

	c.rootCmd.Version = c.config.Version
	c.rootCmd.SetVersionTemplate("📦 cryexport v{{.Version}}\n")

	c.rootCmd.AddCommand(c.newExportCmd())
	c.rootCmd.AddCommand(c.newPlanCmd())
	c.rootCmd.AddCommand(c.newResolveCmd())
	c.rootCmd.AddCommand(c.newEnginesCmd())
	c.rootCmd.AddCommand(c.newValidateCmd())
	c.rootCmd.AddCommand(c.newWatchCmd())
	c.rootCmd.AddCommand(c.newVersionCmd())
}

func (c *CLI) setupFlags() {
	flags := c.rootCmd.PersistentFlags()

	flags.StringVar(&c.config.ConfigFile, "config", "", "settings file (default: cryexport.{yaml,json,toml} next to the project or in ~/.cryexport)")
	flags.StringVarP(&c.config.ProjectPath, "project", "p", c.config.ProjectPath, "project file or directory")
	flags.StringVarP(&c.config.Verbosity, "verbosity", "v", c.config.Verbosity, "log level (debug, info, warn, error); overrides logLevel")
}

func (c *CLI) initializeConfig(cmd *cobra.Command, args []string) error {
	projectDir := c.projectPath(args)
	if info, err := os.Stat(projectDir); err == nil && !info.IsDir() {
		projectDir = filepath.Dir(projectDir)
	}

	settings, used, err := config.Load(config.LoadOptions{
		ConfigFile: c.config.ConfigFile,
		SearchDirs: config.DefaultSearchDirs(projectDir),
	})
	if err != nil {
		return err
	}
	c.settings = settings

	level := settings.LogLevel
	if c.config.Verbosity != "" {
		level = c.config.Verbosity
	}
	if c.logOutput != nil {
		c.logger = logger.CreateLoggerWithOutput(level, c.logOutput)
	} else {
		c.logger = logger.CreateLogger(settings.LogFile, level)
	}
	c.console = logger.NewConsoleLogger(c.output, c.errorOut)

	if used != "" {
		c.logger.Debug("Using settings file", logger.WithField("file", used))
	}
	return nil
}

// projectPath returns the positional project argument or the --project flag
func (c *CLI) projectPath(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return c.config.ProjectPath
}

func (c *CLI) loadProject(args []string) (*types.ProjectDescriptor, error) {
	return project.Load(c.projectPath(args))
}

func (c *CLI) newResolver() *engine.Resolver {
	return engine.NewDefaultResolver(c.logger, c.settings.RegistryFiles, c.settings.InstallRegistry())
}

// newOrchestrator builds the export pipeline; dest overrides the configured export root
func (c *CLI) newOrchestrator(p *types.ProjectDescriptor, dest string) (*deploy.Orchestrator, error) {
	builder, err := archive.Select(c.settings.ArchiveOptions(), c.logger)
	if err != nil {
		return nil, err
	}

	if dest == "" {
		if dest, err = c.settings.ExportDir(p.Name); err != nil {
			return nil, err
		}
	}

	return deploy.New(c.newResolver(), builder, c.logger, deploy.Options{
		DestRoot:       dest,
		Parallelism:    c.settings.Parallelism,
		PluginManifest: c.settings.PluginManifest,
	}), nil
}

func (c *CLI) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.output, format, args...)
}
