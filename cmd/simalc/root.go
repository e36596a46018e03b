package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/simal-lang/simal/ast"
	"github.com/simal-lang/simal/parser"
	"github.com/simal-lang/simal/simaljson"
)

var (
	flagJSON      bool
	flagSimple    bool
	flagMaxSimple bool
	flagMerge     bool
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "simalc [flags] <file|glob> ...",
	Short: "Parse SiMAL schema files and convert them to JSON",
	Long: `simalc parses .simal/.siml schema files and emits JSON next to each
input: <name>.json (full, round-trippable) and <name>_simple.json
(flattened). Glob patterns such as 'schemas/**/*.simal' are accepted.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().BoolVar(&flagJSON, "json", false, "emit only the full JSON (<name>.json)")
	rootCmd.Flags().BoolVar(&flagSimple, "simple", false, "emit only the simple JSON (<name>_simple.json)")
	rootCmd.Flags().BoolVar(&flagMaxSimple, "max-simple", false, "emit only the max-simple JSON (<name>_max_simple.json)")
	rootCmd.Flags().BoolVar(&flagMerge, "merge-duplicate-attrs", false, "merge duplicate attribute keys instead of failing")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.MarkFlagsMutuallyExclusive("json", "simple", "max-simple")
}

func run(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	paths, err := expandArgs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no input files matched")
	}

	var g errgroup.Group
	for _, path := range paths {
		path := path
		g.Go(func() error {
			outputs, err := convertFile(path)
			if err != nil {
				logger.Error("conversion failed", "file", path, "err", err)
				return err
			}
			logger.Info("converted", "file", path, "outputs", strings.Join(outputs, ", "))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("one or more files failed to convert")
	}
	return nil
}

// expandArgs resolves glob patterns to file paths; a plain path is
// passed through untouched.
func expandArgs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			paths = append(paths, arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

// convertFile parses one SiMAL file and writes the JSON outputs
// selected by the flags. It returns the paths written.
func convertFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var opts []parser.Option
	if flagMerge {
		opts = append(opts, parser.MergeDuplicateKeys())
	}
	sys, err := parser.Parse(path, data, opts...)
	if err != nil {
		return nil, err
	}

	anyFlag := flagJSON || flagSimple || flagMaxSimple
	var outputs []string
	write := func(suffix string, render func(*ast.System) ([]byte, error)) error {
		out, err := render(sys)
		if err != nil {
			return err
		}
		target := outputPath(path, suffix)
		if err := os.WriteFile(target, out, 0o644); err != nil {
			return err
		}
		outputs = append(outputs, target)
		return nil
	}

	if flagJSON || !anyFlag {
		if err := write(".json", simaljson.Full); err != nil {
			return nil, err
		}
	}
	if flagSimple || !anyFlag {
		if err := write("_simple.json", simaljson.Simple); err != nil {
			return nil, err
		}
	}
	if flagMaxSimple {
		if err := write("_max_simple.json", simaljson.MaxSimple); err != nil {
			return nil, err
		}
	}
	return outputs, nil
}

// outputPath replaces the input extension (.simal, .siml, or anything
// else) with the given suffix.
func outputPath(path, suffix string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + suffix
}
