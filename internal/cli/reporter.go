package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mausctl/maus/internal/progressbus"
	"github.com/mausctl/maus/internal/util"
)

// Reporter implements progressbus.Sink for terminal output. It displays a
// single status line that gets overwritten as new events arrive.
type Reporter struct {
	mu            sync.Mutex
	status        string
	quiet         bool
	cancelled     atomic.Bool
	lastLine      int
	progressStart time.Time
}

// NewReporter creates a new CLI progress reporter. If quiet is true, only
// errors are printed.
func NewReporter(quiet bool) *Reporter {
	return &Reporter{quiet: quiet}
}

// Emit implements progressbus.Sink.
func (r *Reporter) Emit(e progressbus.Event) {
	switch e.Kind {
	case progressbus.EntryStart:
		r.println(fmt.Sprintf("%s ...", e.EntryPath))
	case progressbus.EntryDone:
		r.println(fmt.Sprintf("%s done", e.EntryPath))
	case progressbus.HeaderWritten:
		r.setStatus("header written")
	case progressbus.PayloadChunk:
		r.reportProgress(e.BytesDone, e.BytesTotal)
	case progressbus.HMACComputed:
		r.setStatus("integrity tag computed")
	case progressbus.SignatureVerified:
		r.println(fmt.Sprintf("signature verified: %s", e.Info))
	case progressbus.ManifestWritten:
		r.println(fmt.Sprintf("manifest written (%d entries)", e.BytesTotal))
	}
}

// reportProgress renders done/total bytes as a size, speed, and ETA status
// line. total < 0 means the total size isn't known yet (a streaming write);
// only the transferred size is shown in that case.
func (r *Reporter) reportProgress(done, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progressStart.IsZero() {
		r.progressStart = time.Now()
	}
	if total <= 0 {
		r.status = fmt.Sprintf("%s transferred", util.Sizeify(done))
		r.render()
		return
	}
	progress, speed, eta := util.Statify(done, total, r.progressStart)
	r.status = fmt.Sprintf("%s / %s (%.0f%%, %.2f MiB/s, ETA %s)",
		util.Sizeify(done), util.Sizeify(total), progress*100, speed, eta)
	r.render()
}

func (r *Reporter) setStatus(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = text
	r.render()
}

func (r *Reporter) println(line string) {
	if r.quiet {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(os.Stderr, line)
	r.lastLine = 0
}

// render repaints the current status on a single overwritten line. Caller
// must hold r.mu.
func (r *Reporter) render() {
	if r.quiet {
		return
	}
	line := fmt.Sprintf("\r%s", r.status)
	if len(line) < r.lastLine {
		line += strings.Repeat(" ", r.lastLine-len(line))
	}
	r.lastLine = len(line)
	fmt.Fprint(os.Stderr, line)
}

// IsCancelled checks if the operation was cancelled.
func (r *Reporter) IsCancelled() bool {
	return r.cancelled.Load()
}

// Cancel marks the operation as cancelled.
func (r *Reporter) Cancel() {
	r.cancelled.Store(true)
}

// Finish prints a trailing newline to move past the status line.
func (r *Reporter) Finish() {
	if !r.quiet && r.lastLine > 0 {
		fmt.Fprintln(os.Stderr)
	}
}

// PrintError prints an error message. Always printed, even in quiet mode.
func (r *Reporter) PrintError(format string, args ...any) {
	if !r.quiet && r.lastLine > 0 {
		fmt.Fprintln(os.Stderr)
	}
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// PrintSuccess prints a success message, suppressed in quiet mode.
func (r *Reporter) PrintSuccess(format string, args ...any) {
	if r.quiet {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
