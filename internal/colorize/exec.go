package colorize

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// Exec drives an external colorization program. The image is written to its
// stdin as PNG and the colorized image is read back from stdout. Lines on
// stderr of the form "progress <n>", "<n>%" or a bare number are progress
// reports; anything else is kept for the error message.
type Exec struct {
	Command string
	Args    []string
}

const (
	keptDiagnostics = 5
	maxStderrLine   = 1 << 20
)

func (e *Exec) Colorize(ctx context.Context, img image.Image, progress func(float64)) (image.Image, error) {
	cmd := exec.CommandContext(ctx, e.Command, e.Args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", e.Command, err)
	}

	writeErr := make(chan error, 1)
	go func() {
		err := png.Encode(stdin, img)
		if closeErr := stdin.Close(); err == nil {
			err = closeErr
		}
		writeErr <- err
	}()

	var (
		oom   bool
		diags []string
	)
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStderrLine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if pct, ok := parseProgress(line); ok {
			report(progress, pct)
			continue
		}
		if isOutOfMemory(line) {
			oom = true
		}
		diags = append(diags, line)
		if len(diags) > keptDiagnostics {
			diags = diags[1:]
		}
	}

	if err := scanner.Err(); err != nil {
		// Keep the pipe drained so the engine never blocks writing to it.
		diags = append(diags, fmt.Sprintf("stderr: %v", err))
		_, _ = io.Copy(io.Discard, stderr)
	}

	waitErr := cmd.Wait()
	inputErr := <-writeErr

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if oom || killedByOOM(waitErr) {
		return nil, fmt.Errorf("%w: %s", ErrOutOfMemory, strings.Join(diags, "; "))
	}
	if waitErr != nil {
		if len(diags) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", e.Command, waitErr, strings.Join(diags, "; "))
		}
		return nil, fmt.Errorf("%s: %w", e.Command, waitErr)
	}
	if inputErr != nil {
		return nil, fmt.Errorf("send image to %s: %w", e.Command, inputErr)
	}

	out, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("read %s output: %w", e.Command, err)
	}
	return out, nil
}

func parseProgress(line string) (float64, bool) {
	s := strings.ToLower(line)
	s = strings.TrimPrefix(s, "progress")
	s = strings.TrimLeft(s, ": \t")
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isOutOfMemory(line string) bool {
	s := strings.ToLower(line)
	return strings.Contains(s, "out of memory") ||
		strings.Contains(s, "memoryerror") ||
		strings.Contains(s, "cannot allocate memory")
}

func killedByOOM(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	if exitErr.ExitCode() == 137 {
		return true
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	return ok && status.Signaled() && status.Signal() == syscall.SIGKILL
}
