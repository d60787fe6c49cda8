// Package cli provides the command-line interface for distill
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/poltergeist/distill/pkg/config"
	"github.com/poltergeist/distill/pkg/distill"
	"github.com/poltergeist/distill/pkg/logger"
	"github.com/poltergeist/distill/pkg/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CLI wires cobra commands to the distillation engine
type CLI struct {
	config   *Config
	rootCmd  *cobra.Command
	viper    *viper.Viper
	settings *config.Settings
	logger   logger.Logger
	fs       *utils.FileSystem
	output   io.Writer
	errorOut io.Writer
}

// NewCLI creates a new CLI instance with the given configuration
func NewCLI(cfg *Config) *CLI {
	if cfg == nil {
		cfg = NewConfig()
	}

	c := &CLI{
		config:   cfg,
		fs:       utils.NewOSFileSystem(),
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
	c.rootCmd.SetOut(output)
	c.rootCmd.SetErr(errorOut)
	return c
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.Execute()
}

// ExecuteContext runs the CLI with context support
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "distill",
		Short: "Stage a filtered, platform-legal copy of a build tree",
		Long: `distill copies the redistributable subset of a source tree into a staging
tree. Restricted folders and folders of platforms outside the legal set are
skipped, debug symbols can be routed to a separate tree, and every copied
file gets the same timestamp so staged output is reproducible.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.initializeConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	c.setupFlags()

	c.rootCmd.Version = c.config.Version
	c.rootCmd.SetVersionTemplate("distill v{{.Version}}\n")

	c.rootCmd.AddCommand(c.newRunCmd())
	c.rootCmd.AddCommand(c.newWatchCmd())
	c.rootCmd.AddCommand(c.newCheckCmd())
	c.rootCmd.AddCommand(c.newPlatformsCmd())
	c.rootCmd.AddCommand(c.newVersionCmd())
}

func (c *CLI) setupFlags() {
	flags := c.rootCmd.PersistentFlags()

	flags.StringVar(&c.config.ConfigFile, "config", c.config.ConfigFile, "config file (default: distill.yaml in the working directory)")
	flags.String(config.KeySource, "", "source root")
	flags.String(config.KeyDest, "", "destination root")
	flags.String(config.KeySymbols, "", "destination root for debug symbols (disabled when empty)")
	flags.String(config.KeyTimestamp, "", "timestamp stamped on copied files (RFC3339 or Unix seconds, default epoch)")
	flags.StringSlice("platform", nil, "legal platform (repeatable, default all)")
	flags.Bool(config.KeyAllowNoRedist, false, "allow NoRedist content")
	flags.StringP(config.KeyVerbosity, "v", "info", "log level (debug, info, warn, error)")
	flags.String(config.KeyLogFile, "", "also write logs to this file")
}

func (c *CLI) initializeConfig(cmd *cobra.Command, args []string) error {
	c.viper = config.NewViper(c.config.ConfigFile, c.config.WorkDir)

	flags := c.rootCmd.PersistentFlags()
	bindings := map[string]string{
		config.KeySource:        config.KeySource,
		config.KeyDest:          config.KeyDest,
		config.KeySymbols:       config.KeySymbols,
		config.KeyTimestamp:     config.KeyTimestamp,
		config.KeyPlatforms:     "platform",
		config.KeyAllowNoRedist: config.KeyAllowNoRedist,
		config.KeyVerbosity:     config.KeyVerbosity,
		config.KeyLogFile:       config.KeyLogFile,
	}
	for key, flag := range bindings {
		if err := c.viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}

	if err := config.ReadConfig(c.viper); err != nil {
		return err
	}

	settings, err := config.Load(c.viper)
	if err != nil {
		return err
	}
	c.settings = settings
	c.logger = logger.CreateLogger(settings.LogFile, settings.Verbosity)

	if used := c.viper.ConfigFileUsed(); used != "" {
		c.logger.Debug("Using config file", logger.WithField("path", used))
	}
	return nil
}

// newEngine builds a fresh session from the resolved settings
func (c *CLI) newEngine() (*distill.Engine, error) {
	opts, err := c.settings.Options()
	if err != nil {
		return nil, err
	}
	ctx, err := distill.NewContext(opts)
	if err != nil {
		return nil, err
	}
	return distill.NewEngine(ctx, c.fs, c.logger), nil
}

// resolvePattern anchors relative patterns at the source root
func (c *CLI) resolvePattern(pattern string) string {
	if filepath.IsAbs(pattern) {
		return pattern
	}
	return filepath.Join(c.settings.SourceRoot, pattern)
}

func (c *CLI) printSuccess(message string) {
	fmt.Fprintf(c.errorOut, "%s %s\n", color.GreenString("[distill]"), message)
}

func (c *CLI) printError(message string) {
	fmt.Fprintf(c.errorOut, "%s %s\n", color.RedString("[distill]"), message)
}

func (c *CLI) printInfo(message string) {
	fmt.Fprintf(c.errorOut, "%s %s\n", color.CyanString("[distill]"), message)
}
