package processor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"tint/internal/colorize"
	"tint/pkg/imgutil"
)

const supportedFormats = "bmp, emf, exif, gif, ico, jpeg, png, tiff, wmf"

// Process runs the full pipeline for one file. It never fails: every problem,
// including a panic, ends up in the returned Result.
func (r *Runner) Process(ctx context.Context, input, output string, opts Options) Result {
	return r.process(ctx, input, output, NewStatusFile(opts.StatusFile, r.logger))
}

func (r *Runner) process(ctx context.Context, input, output string, status *StatusFile) (res Result) {
	res = Result{Input: input, Output: output}
	started := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("recovered panic", "input", input, "panic", rec)
			r.logger.Debug("panic stack", "stack", string(debug.Stack()))
			res.Success = false
			res.Err = fileError(UnexpectedError, fmt.Errorf("panic: %v", rec), "unexpected error: %v", rec)
		}
		if res.Elapsed == 0 {
			res.Elapsed = time.Since(started)
		}
		if res.Err != nil {
			r.logger.Debug("file failed", "input", input, "kind", res.Err.Kind, "err", res.Err.Message)
		}
	}()

	if ferr := r.pipeline(ctx, &res, status, started); ferr != nil {
		res.Err = ferr
		return res
	}
	res.Success = true
	return res
}

// pipeline checks and converts one file. The checks run in a fixed order and
// the first failing one decides the error category.
func (r *Runner) pipeline(ctx context.Context, res *Result, status *StatusFile, started time.Time) *FileError {
	input, output := res.Input, res.Output
	r.enterStage(status, StageLoading, input)

	if err := checkReadable(input); err != nil {
		return fileError(NotFound, err, "file not found: %s", input)
	}
	if filepath.Ext(input) == "" {
		return fileError(UnsupportedFormat, nil, "cannot determine image format of %s: file has no extension", input)
	}
	format, ok := imgutil.FormatFromPath(output)
	if !ok {
		return fileError(UnsupportedFormat, nil, "unsupported output format %q for %s (supported: %s)",
			filepath.Ext(output), output, supportedFormats)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fileError(IOError, err, "cannot create output directory %s: %v", filepath.Dir(output), err)
	}

	colorized, ferr := r.render(ctx, res, status)
	if ferr != nil {
		return ferr
	}

	r.enterStage(status, StageSaving, input)
	if err := r.codec.Encode(colorized, output, format); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fileError(IOError, err, "permission denied writing %s", output)
		}
		return fileError(IOError, err, "failed to save %s: %v", output, err)
	}
	res.Elapsed = time.Since(started)

	r.enterStage(status, StageComplete, input)
	return nil
}

// render decodes and colorizes the input. The decoded image never leaves this
// function, so it is unreachable as soon as colorization returns.
func (r *Runner) render(ctx context.Context, res *Result, status *StatusFile) (image.Image, *FileError) {
	img, err := r.codec.Decode(res.Input)
	if err != nil {
		if errors.Is(err, imgutil.ErrTooLarge) {
			return nil, fileError(ResourceExhausted, err, "not enough memory to load %s: %v", res.Input, err)
		}
		return nil, fileError(InvalidImage, err, "invalid or corrupt image %s: %v", res.Input, err)
	}

	b := img.Bounds()
	res.Width, res.Height = b.Dx(), b.Dy()
	for _, msg := range r.advisories(res.Width, res.Height) {
		res.Advisories = append(res.Advisories, msg)
		r.listener.Advisory(msg)
		r.logger.Debug("dimension advisory", "input", res.Input, "msg", msg)
	}

	r.enterStage(status, StageProcessing, res.Input)
	bridge := newProgressBridge(r.cfg.ProgressStep, status, r.listener)
	colorized, err := r.colorizer.Colorize(ctx, img, bridge.update)
	if err != nil {
		if errors.Is(err, colorize.ErrOutOfMemory) {
			return nil, fileError(ResourceExhausted, err, "out of memory while colorizing %s", res.Input)
		}
		return nil, fileError(UnexpectedError, err, "colorizing %s failed: %v", res.Input, err)
	}
	return colorized, nil
}

func (r *Runner) advisories(width, height int) []string {
	var msgs []string
	if width < r.cfg.MinDimension || height < r.cfg.MinDimension {
		msgs = append(msgs, fmt.Sprintf("image is very small (%dx%d); colorization quality may be poor", width, height))
	}
	if r.cfg.MaxDimension > 0 && (width > r.cfg.MaxDimension || height > r.cfg.MaxDimension) {
		msgs = append(msgs, fmt.Sprintf("image is very large (%dx%d); colorization may be slow and memory-intensive", width, height))
	}
	return msgs
}

func (r *Runner) enterStage(status *StatusFile, stage Stage, input string) {
	status.Write(string(stage))
	r.listener.StageChanged(stage)
	r.logger.Debug("stage", "input", input, "stage", stage)
}

// checkReadable reports whether path is an existing regular file that can be opened.
func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
