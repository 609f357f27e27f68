package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/pnl-categorizer/internal/batch"
)

// BatchProgress renders a progress bar fed by batch results. The number of
// transactions is not known up front, so the bar counts without a total.
type BatchProgress struct {
	bar    *progressbar.ProgressBar
	failed int
	mu     sync.Mutex
}

// NewBatchProgress creates a progress bar writing to w.
func NewBatchProgress(w io.Writer) *BatchProgress {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("txn"),
		progressbar.OptionSetDescription("[cyan][bold]Categorizing transactions...[reset]"),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return &BatchProgress{bar: bar}
}

// Observe advances the bar by one result. It is safe to pass as a batch.WithProgress callback.
func (p *BatchProgress) Observe(res batch.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if res.Err != nil {
		p.failed++
	}
	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Finish completes the bar.
func (p *BatchProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}

// Failed returns how many observed results carried an error.
func (p *BatchProgress) Failed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}
