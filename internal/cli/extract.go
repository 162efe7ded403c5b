package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/pymap/internal/batch"
	"github.com/mvp-joe/pymap/internal/config"
	"github.com/mvp-joe/pymap/internal/symbol"
	"github.com/mvp-joe/pymap/internal/watcher"
)

var (
	extractOutput  string
	extractQuiet   bool
	extractWatch   bool
	extractWorkers int
	extractBudget  int
	extractPretty  bool
)

// extractCmd runs the extraction pipeline over a directory tree.
var extractCmd = &cobra.Command{
	Use:   "extract [path]",
	Short: "Extract symbol trees from Python sources under a directory",
	Long: `Extract discovers Python source files under the given path (default:
current directory), parses each into a symbol tree, and writes the
collected trees plus diagnostics as JSON.

With --watch, extract stays running and re-extracts whenever watched
files change, rewriting the output after each pass.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "write JSON to file instead of stdout")
	extractCmd.Flags().BoolVarP(&extractQuiet, "quiet", "q", false, "suppress progress output")
	extractCmd.Flags().BoolVarP(&extractWatch, "watch", "w", false, "stay running and re-extract on file changes")
	extractCmd.Flags().IntVar(&extractWorkers, "workers", 0, "concurrent extraction workers (0 = NumCPU)")
	extractCmd.Flags().IntVar(&extractBudget, "budget", 0, "per-file step budget override (0 = config value)")
	extractCmd.Flags().BoolVar(&extractPretty, "pretty", false, "indent the JSON output")
}

func runExtract(cmd *cobra.Command, args []string) error {
	rootDir := "."
	if len(args) == 1 {
		rootDir = args[0]
	}
	rootDir, err := filepath.Abs(rootDir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return err
	}
	if extractWorkers > 0 {
		cfg.Extract.Workers = extractWorkers
	}
	if extractBudget > 0 {
		cfg.Extract.Budget = extractBudget
	}

	// Progress goes to stderr; writing JSON to stdout stays clean.
	quiet := extractQuiet || (extractOutput == "" && !extractWatch)
	reporter := NewProgressReporter(quiet)

	runner, err := batch.NewRunner(cfg, reporter)
	if err != nil {
		return err
	}
	defer runner.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	results, _, err := runner.Run(ctx, rootDir)
	if err != nil {
		return err
	}
	if err := writeResults(results); err != nil {
		return err
	}
	if verbose {
		if digest := summarizeDiagnostics(results); digest != "" {
			fmt.Fprintln(os.Stderr, digest)
		}
	}

	if !extractWatch {
		return nil
	}
	return watchLoop(ctx, runner, rootDir, cfg)
}

// watchLoop re-runs extraction when watched files change. The content
// cache inside the runner keeps unchanged files cheap, so each pass only
// pays for the files that actually changed.
func watchLoop(ctx context.Context, runner *batch.Runner, rootDir string, cfg *config.Config) error {
	debounce := time.Duration(cfg.Watch.DebounceMs) * time.Millisecond
	fw, err := watcher.New([]string{rootDir}, cfg.SourceExtensions(), debounce)
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer fw.Stop()

	changed := make(chan []string, 1)
	err = fw.Start(ctx, func(files []string) {
		select {
		case changed <- files:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}

	log.Printf("Watching %s for changes (Ctrl-C to stop)", rootDir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case files := <-changed:
			sort.Strings(files)
			log.Printf("%d file(s) changed, re-extracting", len(files))
			results, _, err := runner.Run(ctx, rootDir)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Printf("Extraction failed: %v", err)
				continue
			}
			if err := writeResults(results); err != nil {
				log.Printf("Failed to write output: %v", err)
			}
		}
	}
}

// writeResults serializes the batch output as a JSON array of per-file
// results, to stdout or the --output file.
func writeResults(results []*symbol.Result) error {
	var out io.Writer = os.Stdout
	if extractOutput != "" {
		f, err := os.Create(extractOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	if extractPretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

// summarizeDiagnostics renders a short, stable diagnostic digest for
// verbose logging.
func summarizeDiagnostics(results []*symbol.Result) string {
	var lines []string
	for _, res := range results {
		for _, d := range res.Diagnostics {
			lines = append(lines, res.FileID+": "+d.String())
		}
	}
	return strings.Join(lines, "\n")
}
