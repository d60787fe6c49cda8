package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/poltergeist/distill/pkg/distill"
	"github.com/poltergeist/distill/pkg/paths"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// selectionFlags are shared by run and watch
type selectionFlags struct {
	recursive     bool
	allowMissing  bool
	noMoveSymbols bool
	exclusions    []string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.recursive, "recursive", "r", false, "descend into subdirectories")
	cmd.Flags().BoolVar(&f.allowMissing, "allow-missing", false, "succeed when nothing matches")
	cmd.Flags().BoolVar(&f.noMoveSymbols, "no-move-symbols", false, "keep debug symbols in the destination root")
	cmd.Flags().StringArrayVarP(&f.exclusions, "exclude", "x", nil, "file wildcard or literal sub-path to skip (repeatable)")
}

func (c *CLI) selections(patterns []string, f selectionFlags) []distill.Selection {
	out := make([]distill.Selection, 0, len(patterns))
	for _, pattern := range patterns {
		sel := distill.NewSelection(c.resolvePattern(pattern))
		sel.Recursive = f.recursive
		sel.AllowMissing = f.allowMissing
		sel.MoveSymbols = !f.noMoveSymbols
		sel.Exclusions = f.exclusions
		out = append(out, sel)
	}
	return out
}

func (c *CLI) newRunCmd() *cobra.Command {
	var flags selectionFlags
	var format string

	cmd := &cobra.Command{
		Use:   "run PATTERN...",
		Short: "Distill files matching each pattern",
		Long: `Copy every file matching PATTERN (a directory plus a file name wildcard,
relative to the source root unless absolute) into the destination root.

Exclusions without a path separator are file wildcards; exclusions with one
are literal sub-paths such as "Saved/Logs".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDistill(args, flags, format)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "output", "o", "text", "manifest format (text, yaml, json)")

	return cmd
}

func (c *CLI) runDistill(patterns []string, flags selectionFlags, format string) error {
	engine, err := c.newEngine()
	if err != nil {
		return err
	}

	started := time.Now()
	manifest, err := engine.DistillAll(c.selections(patterns, flags)...)
	if err != nil {
		c.printError(fmt.Sprintf("distillation stopped after %d files; destination is partially populated", manifest.Len()))
		return err
	}

	if err := c.writeManifest(manifest, format); err != nil {
		return err
	}
	c.printSuccess(fmt.Sprintf("Distilled %d files in %s", manifest.Len(), time.Since(started).Round(time.Millisecond)))
	return nil
}

func (c *CLI) writeManifest(manifest *distill.Manifest, format string) error {
	switch strings.ToLower(format) {
	case "", "text":
		for _, p := range manifest.Paths() {
			fmt.Fprintln(c.output, p)
		}
		return nil
	case "yaml", "yml":
		data, err := yaml.Marshal(manifest)
		if err != nil {
			return fmt.Errorf("failed to encode manifest: %w", err)
		}
		_, err = c.output.Write(data)
		return err
	case "json":
		data, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode manifest: %w", err)
		}
		_, err = fmt.Fprintln(c.output, string(data))
		return err
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func (c *CLI) newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check PATH...",
		Short: "Show whether paths would be distilled",
		Long:  `Evaluate the reject rules and symbol routing for each PATH without copying anything.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(args)
		},
	}
}

func (c *CLI) runCheck(args []string) error {
	engine, err := c.newEngine()
	if err != nil {
		return err
	}
	ctx := engine.Context()

	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tDECISION\tREASON")
	for _, arg := range args {
		relative := paths.RelativeSlash(c.resolvePattern(arg), ctx.SourceRoot())

		if pattern, rejected := ctx.Rules().MatchingPattern(relative); rejected {
			fmt.Fprintf(w, "%s\t%s\t%s\n", arg, color.RedString("reject"), "restricted folder "+pattern)
			continue
		}

		reason := "destination root"
		if ctx.DestSymbolsRoot() != "" && ctx.IsSymbolFile(relative) {
			reason = "symbols root"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", arg, color.GreenString("keep"), reason)
	}
	return w.Flush()
}

func (c *CLI) newPlatformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List known platforms and their debug extensions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlatforms()
		},
	}
}

func (c *CLI) runPlatforms() error {
	registry := c.settings.Registry()
	legal, err := registry.Resolve(c.settings.Platforms)
	if err != nil {
		return err
	}
	isLegal := make(map[string]bool, len(legal))
	for _, name := range legal {
		isLegal[name] = true
	}

	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tLEGAL\tDEBUG EXTENSIONS")
	for _, p := range registry.Platforms() {
		status := "yes"
		if len(legal) > 0 && !isLegal[p.Name()] {
			status = "no"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name(), status, strings.Join(p.DebugFileExtensions(), " "))
	}
	return w.Flush()
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of distill",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.output, "distill v%s\n", c.config.Version)
		},
	}
}
