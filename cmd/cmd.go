// Package cmd provides CLI command implementations for CodeAtlas.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/codeatlas/codeatlas/internal/index"
	"github.com/codeatlas/codeatlas/internal/rules"
	"github.com/codeatlas/codeatlas/internal/scan"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ScanCmd scans a directory tree and writes the code index.
type ScanCmd struct {
	Path        string `arg:"" optional:"" default:"." help:"Path to scan"`
	Output      string `short:"o" default:"code_index.json" help:"Index output path"`
	Incremental bool   `help:"Reuse records for unchanged files"`
	Deep        bool   `help:"Enable deep analysis (call graphs, type coverage)"`
	Jobs        int    `short:"j" help:"Extraction workers (default: number of CPUs)"`
}

// Run executes the scan command.
func (c *ScanCmd) Run(cli *CLI) error {
	root, err := filepath.Abs(c.Path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("accessing %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	if !cli.Quiet {
		color.Green("Scanning %s", root)
	}

	scanner := scan.New(root)
	result, err := scanner.ScanDirectory(c.options(cli))
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}

	if !cli.Quiet && cli.Verbose {
		fmt.Println() // Newline after progress
	}

	if err := result.Index.Save(c.Output); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}

	if !cli.Quiet {
		color.Green("\n✓ Scan complete")
		fmt.Printf("  Files:     %d\n", result.Index.TotalFiles)
		fmt.Printf("  Scanned:   %d\n", result.Scanned)
		fmt.Printf("  Skipped:   %d\n", result.Skipped)
		fmt.Printf("  Symbols:   %d\n", len(result.Index.SymbolIndex))
		fmt.Printf("  Duration:  %.2fs\n", result.Duration.Seconds())
		fmt.Printf("  Index:     %s\n", c.Output)
	}

	return nil
}

func (c *ScanCmd) options(cli *CLI) scan.Options {
	opts := scan.Options{
		Incremental: c.Incremental,
		Deep:        c.Deep,
		IndexPath:   c.Output,
		Workers:     c.Jobs,
	}
	if cli.Verbose && !cli.Quiet {
		opts.Progress = func(path string, current, total int) {
			fmt.Printf("\r\033[K[%d/%d] %s", current, total, path)
		}
	}
	return opts
}

// CheckCmd evaluates quality rules against an existing index.
type CheckCmd struct {
	Rules  string `short:"r" default:"rules.yaml" help:"Rules config path"`
	Index  string `short:"i" default:"code_index.json" help:"Index path"`
	Output string `short:"o" help:"Write violations JSON to a file instead of stdout"`
}

// Run executes the check command.
func (c *CheckCmd) Run(cli *CLI) error {
	engine, err := rules.Load(c.Rules)
	if err != nil {
		return err
	}

	ix, err := index.Load(c.Index)
	if err != nil {
		return fmt.Errorf("loading index %s: run 'codeatlas scan' first: %w", c.Index, err)
	}

	violations := engine.EvaluateAll(ix.Files)

	if c.Output != "" {
		data, err := json.MarshalIndent(violations, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding violations: %w", err)
		}
		data = append(data, '\n')
		if err := os.WriteFile(c.Output, data, 0o644); err != nil {
			return fmt.Errorf("writing violations: %w", err)
		}
	}

	if len(violations) == 0 {
		if !cli.Quiet {
			color.Green("✓ No violations")
		}
		return nil
	}

	if !cli.Quiet {
		color.Red("Found %d violation(s)", len(violations))
		for _, v := range violations {
			fmt.Printf("  [%s] %s: %s", v.ID, v.File, v.Message)
			if v.Action != "" {
				fmt.Printf(" (%s)", v.Action)
			}
			fmt.Println()
		}
	}

	return nil
}

// WatchCmd rescans on file changes until interrupted.
type WatchCmd struct {
	Path        string        `arg:"" optional:"" default:"." help:"Path to watch"`
	Output      string        `short:"o" default:"code_index.json" help:"Index output path"`
	Debounce    time.Duration `default:"500ms" help:"Quiet period before a rescan"`
	Incremental bool          `default:"true" negatable:"" help:"Reuse records for unchanged files"`
	Deep        bool          `help:"Enable deep analysis on each rescan"`
}

// Run executes the watch command.
func (c *WatchCmd) Run(cli *CLI) error {
	root, err := filepath.Abs(c.Path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	scanner := scan.New(root)
	rescan := func() error {
		result, err := scanner.ScanDirectory(scan.Options{
			Incremental: c.Incremental,
			Deep:        c.Deep,
			IndexPath:   c.Output,
		})
		if err != nil {
			return err
		}
		if err := result.Index.Save(c.Output); err != nil {
			return err
		}
		if !cli.Quiet {
			fmt.Printf("Rescanned: %d files (%d reused) in %.2fs\n",
				result.Index.TotalFiles, result.Skipped, result.Duration.Seconds())
		}
		return nil
	}

	// Initial scan so the index exists before the first change arrives.
	if err := rescan(); err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}

	if !cli.Quiet {
		fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n", root)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-osSignalChannel()
		if !cli.Quiet {
			fmt.Println("\nStopping watch mode...")
		}
		cancel()
	}()

	err = scan.Watch(ctx, root, c.Debounce, rescan)
	if err != nil && err != context.Canceled {
		return fmt.Errorf("watch error: %w", err)
	}

	if !cli.Quiet {
		fmt.Println("Watch mode stopped.")
	}
	return nil
}

// StatusCmd shows index status for the current directory.
type StatusCmd struct {
	Index string `short:"i" default:"code_index.json" help:"Index path"`
}

// Run executes the status command.
func (c *StatusCmd) Run() error {
	ix, err := index.Load(c.Index)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no index found at %s. Run 'codeatlas scan' first", c.Index)
		}
		return fmt.Errorf("reading index: %w", err)
	}

	errored := 0
	tested := 0
	for _, f := range ix.Files {
		if f.Error != "" {
			errored++
		}
		if f.HasTests {
			tested++
		}
	}

	fmt.Printf("Index status for %s\n", ix.ScannedRoot)
	fmt.Printf("  Version:       %s\n", ix.Version)
	fmt.Printf("  Scanned at:    %s\n", ix.ScannedAt)
	fmt.Printf("  Files:         %d\n", ix.TotalFiles)
	fmt.Printf("  Symbols:       %d\n", len(ix.SymbolIndex))
	fmt.Printf("  With tests:    %d\n", tested)
	if errored > 0 {
		color.Yellow("  Parse errors:  %d", errored)
	}

	return nil
}

// CleanCmd deletes the index and change cache for a directory.
type CleanCmd struct {
	Path  string `arg:"" optional:"" default:"." help:"Path whose index to remove"`
	Index string `short:"i" default:"code_index.json" help:"Index path"`
	Force bool   `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run() error {
	root, err := filepath.Abs(c.Path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	atlasDir := filepath.Join(root, ".atlas")
	_, indexErr := os.Stat(c.Index)
	_, dirErr := os.Stat(atlasDir)
	if os.IsNotExist(indexErr) && os.IsNotExist(dirErr) {
		return fmt.Errorf("no index found at %s. Nothing to clean", root)
	}

	if !c.Force {
		fmt.Printf("Delete index and cache at %s? [y/N] ", root)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	if indexErr == nil {
		if err := os.Remove(c.Index); err != nil {
			return fmt.Errorf("deleting index: %w", err)
		}
	}
	if dirErr == nil {
		if err := os.RemoveAll(atlasDir); err != nil {
			return fmt.Errorf("deleting cache: %w", err)
		}
	}

	color.Green("Deleted index for %s", root)
	return nil
}

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

// CLI is the root Kong command structure.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information"`
	Verbose bool             `short:"v" help:"Enable verbose output"`
	Quiet   bool             `short:"q" help:"Suppress non-essential output"`

	// Commands
	Scan   ScanCmd   `cmd:"" help:"Scan a directory and write the code index"`
	Check  CheckCmd  `cmd:"" help:"Evaluate quality rules against the index"`
	Watch  WatchCmd  `cmd:"" help:"Rescan on file changes"`
	Status StatusCmd `cmd:"" help:"Show index status"`
	Clean  CleanCmd  `cmd:"" help:"Delete the index and change cache"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	kongCtx := kong.Parse(c,
		kong.Name("codeatlas"),
		kong.Description("Structural code scanner and quality rule engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
		kong.Bind(c),
	)

	return kongCtx.Run()
}
