// Package progress renders scan and download progress. Reporters are purely
// observational: nothing in the pipeline depends on what they do.
package progress

import (
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Reporter receives progress signals from the scanner and the fetcher.
type Reporter interface {
	// SetTotal announces the expected total; -1 means unknown.
	SetTotal(total int64)
	// Describe sets the label of the item currently being worked on.
	Describe(label string)
	// Add advances the position by n.
	Add(n int64)
	// Finish completes the current bar.
	Finish()
}

// Options configures a Bar.
type Options struct {
	// Writer defaults to os.Stderr.
	Writer io.Writer
	// Description is shown before the bar.
	Description string
	// Bytes renders position and total as byte sizes.
	Bytes bool
	// Throttle limits redraws. Zero redraws on every update.
	Throttle time.Duration
}

// Bar is a Reporter backed by a terminal progress bar.
type Bar struct {
	opts Options
	bar  *progressbar.ProgressBar
}

// NewBar creates a Bar with an unknown total.
func NewBar(opts Options) *Bar {
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}
	b := &Bar{opts: opts}
	b.bar = b.newBar(-1)
	return b
}

func (b *Bar) newBar(total int64) *progressbar.ProgressBar {
	options := []progressbar.Option{
		progressbar.OptionSetWriter(b.opts.Writer),
		progressbar.OptionSetDescription(b.opts.Description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(b.opts.Throttle),
		progressbar.OptionOnCompletion(func() {
			_, _ = io.WriteString(b.opts.Writer, "\n")
		}),
	}
	if b.opts.Bytes {
		options = append(options, progressbar.OptionShowBytes(true))
	}
	return progressbar.NewOptions64(total, options...)
}

// SetTotal replaces the bar's maximum.
func (b *Bar) SetTotal(total int64) {
	b.bar.ChangeMax64(total)
}

// Describe shows label next to the bar.
func (b *Bar) Describe(label string) {
	if b.opts.Description != "" && label != "" {
		label = b.opts.Description + " " + label
	} else if label == "" {
		label = b.opts.Description
	}
	b.bar.Describe(label)
}

// Add advances the bar.
func (b *Bar) Add(n int64) {
	_ = b.bar.Add64(n)
}

// Finish fills the bar and ends the line.
func (b *Bar) Finish() {
	_ = b.bar.Finish()
}

type nop struct{}

// Nop returns a Reporter that does nothing.
func Nop() Reporter {
	return nop{}
}

func (nop) SetTotal(int64)  {}
func (nop) Describe(string) {}
func (nop) Add(int64)       {}
func (nop) Finish()         {}
