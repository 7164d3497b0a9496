// Package progress renders translation-job progress on the terminal.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/ziadkadry99/epub-reader/internal/engine"
)

// Reporter provides progress feedback while a translation job runs.
type Reporter interface {
	Start(total int)
	Update(st engine.JobStatus)
	Finish()
}

// NewReporter returns a TerminalReporter if running in an interactive
// terminal, or a CIReporter if the CI environment variable is set.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{}
	}
	return &TerminalReporter{}
}

// TerminalReporter displays a progress bar in the terminal.
type TerminalReporter struct {
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Translating"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(st engine.JobStatus) {
	if r.bar == nil {
		return
	}
	// The section count is only known once the engine has unpacked the
	// document, so the bar's bound may arrive after Start.
	if st.TotalSections > 0 && st.TotalSections != r.bar.GetMax() {
		r.bar.ChangeMax(st.TotalSections)
	}
	if st.CurrentSection != "" {
		r.bar.Describe(fmt.Sprintf("Translating %s", st.CurrentSection))
	}
	_ = r.bar.Set(st.CompletedSections)
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// CIReporter prints line-by-line progress suitable for CI logs.
type CIReporter struct {
	total int
}

func (r *CIReporter) Start(total int) {
	r.total = total
	fmt.Fprintf(os.Stderr, "Starting translation of %d sections\n", total)
}

func (r *CIReporter) Update(st engine.JobStatus) {
	total := st.TotalSections
	if total == 0 {
		total = r.total
	}
	fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", st.CompletedSections, total, st.CurrentSection)
}

func (r *CIReporter) Finish() {
	fmt.Fprintln(os.Stderr, "Translation complete")
}
