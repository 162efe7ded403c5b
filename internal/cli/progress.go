package cli

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/pymap/internal/batch"
)

// ProgressReporter implements batch.Reporter with a progress bar on
// stderr. The per-file callback may arrive from multiple worker
// goroutines; progressbar's Add is safe for that.
type ProgressReporter struct {
	quiet   bool
	fileBar *progressbar.ProgressBar
}

// NewProgressReporter creates a new progress reporter. A quiet reporter
// suppresses everything.
func NewProgressReporter(quiet bool) *ProgressReporter {
	return &ProgressReporter{quiet: quiet}
}

func (p *ProgressReporter) OnDiscoveryStart() {
	if p.quiet {
		return
	}
	log.Println("Discovering source files...")
}

func (p *ProgressReporter) OnDiscoveryComplete(files int) {
	if p.quiet {
		return
	}
	log.Printf("Found %d source files\n", files)
}

func (p *ProgressReporter) OnExtractionStart(totalFiles int) {
	if p.quiet || totalFiles == 0 {
		return
	}
	p.fileBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Extracting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

func (p *ProgressReporter) OnFileExtracted(fileID string, complete bool) {
	if p.quiet || p.fileBar == nil {
		return
	}
	p.fileBar.Add(1)
}

func (p *ProgressReporter) OnComplete(stats *batch.Stats) {
	if p.quiet {
		return
	}
	log.Printf("Extracted %d files (%d cached, %d failed, %d incomplete) in %s: %d symbols, %d diagnostics",
		stats.Extracted, stats.CacheHits, stats.Failed, stats.Incomplete,
		stats.Duration.Round(time.Millisecond), stats.Symbols, stats.Diagnostics)
}
