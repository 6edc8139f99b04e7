// Package colorize provides the colorization engines the batch runner drives.
// Every engine reports progress synchronously, on the calling goroutine, as
// percentages in [0, 100].
package colorize

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// ErrOutOfMemory reports that an engine could not obtain the memory needed
// for an image.
var ErrOutOfMemory = errors.New("colorizer ran out of memory")

// Engine converts a grayscale or monochrome image into a color image.
type Engine interface {
	Colorize(ctx context.Context, img image.Image, progress func(percent float64)) (image.Image, error)
}

const (
	KindGradient = "gradient"
	KindExec     = "exec"
)

// Settings selects and configures an engine.
type Settings struct {
	Kind    string
	Command string
	Args    []string
	Palette []string
	// MaxPixels bounds the images an in-process engine will allocate for.
	MaxPixels int64
}

// New builds the engine described by s.
func New(s Settings) (Engine, error) {
	switch s.Kind {
	case "", KindGradient:
		return NewGradient(s.Palette, s.MaxPixels)
	case KindExec:
		if s.Command == "" {
			return nil, fmt.Errorf("engine.command is required for the %q engine", KindExec)
		}
		return &Exec{Command: s.Command, Args: s.Args}, nil
	default:
		return nil, fmt.Errorf("unknown engine kind %q", s.Kind)
	}
}

func report(progress func(float64), percent float64) {
	if progress == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	progress(percent)
}
