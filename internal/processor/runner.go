package processor

import (
	"context"
	"image"
	"io"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/log"

	"tint/pkg/imgutil"
)

// codec loads and saves images.
type codec interface {
	Decode(path string) (image.Image, error)
	Encode(img image.Image, path string, format imgutil.Format) error
}

// colorizer is the colorization engine. It calls progress synchronously, on
// the calling goroutine, with percentages in [0, 100].
type colorizer interface {
	Colorize(ctx context.Context, img image.Image, progress func(percent float64)) (image.Image, error)
}

// Config tunes a Runner.
type Config struct {
	ProgressStep int
	MinDimension int // smaller images get a quality warning
	MaxDimension int // larger images get a cost warning; 0 disables it
	// Reclaim is called between files to release the previous file's memory.
	// It defaults to debug.FreeOSMemory.
	Reclaim func()
}

// Runner processes batches of images one file at a time.
type Runner struct {
	codec     codec
	colorizer colorizer
	listener  Listener
	logger    *log.Logger
	cfg       Config
}

func NewRunner(c codec, eng colorizer, cfg Config, listener Listener, logger *log.Logger) *Runner {
	if listener == nil {
		listener = NopListener{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if cfg.Reclaim == nil {
		cfg.Reclaim = debug.FreeOSMemory
	}
	return &Runner{codec: c, colorizer: eng, listener: listener, logger: logger, cfg: cfg}
}

// Run processes jobs strictly in order. A failed job never stops or reorders
// the others: the summary holds exactly one result per job, in job order.
// The status file, if any, is removed once the summary is built.
func (r *Runner) Run(ctx context.Context, jobs []Job, opts Options) Summary {
	status := NewStatusFile(opts.StatusFile, r.logger)
	defer status.Remove()

	started := time.Now()
	results := make([]Result, 0, len(jobs))

	for i, job := range jobs {
		if i > 0 {
			// Decoded and colorized images can be large; make sure nothing of
			// the previous file is still held when the next one loads.
			r.cfg.Reclaim()
		}

		output := job.Output
		if output == "" {
			output = ResolveOutputPath(job.Input, opts.OutputDir)
		}

		r.listener.FileStarted(i+1, len(jobs), job.Input, output)
		res := r.process(ctx, job.Input, output, status)
		r.listener.FileFinished(i+1, len(jobs), res)

		results = append(results, res)
	}

	summary := Summary{Results: results, Elapsed: time.Since(started)}
	for _, res := range results {
		if res.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	r.logger.Debug("batch finished",
		"total", len(results),
		"successful", summary.Successful,
		"failed", summary.Failed,
		"elapsed", summary.Elapsed.Round(time.Millisecond),
	)
	return summary
}
