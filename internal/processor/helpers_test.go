package processor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"tint/pkg/imgutil"
)

type stubCodec struct {
	size      image.Rectangle
	decodeErr error
	encodeErr error
	decoded   []string
	encoded   []string
}

func (c *stubCodec) Decode(path string) (image.Image, error) {
	c.decoded = append(c.decoded, path)
	if c.decodeErr != nil {
		return nil, c.decodeErr
	}
	size := c.size
	if size.Empty() {
		size = image.Rect(0, 0, 64, 48)
	}
	return image.NewGray(size), nil
}

func (c *stubCodec) Encode(_ image.Image, path string, _ imgutil.Format) error {
	c.encoded = append(c.encoded, path)
	if c.encodeErr != nil {
		return c.encodeErr
	}
	return os.WriteFile(path, []byte("colorized"), 0o644)
}

type stubEngine struct {
	steps     []float64
	err       error
	panicWith any
	calls     int
}

func (e *stubEngine) Colorize(_ context.Context, img image.Image, progress func(float64)) (image.Image, error) {
	e.calls++
	if e.panicWith != nil {
		panic(e.panicWith)
	}
	for _, s := range e.steps {
		progress(s)
	}
	if e.err != nil {
		return nil, e.err
	}
	return img, nil
}

type recordingListener struct {
	events   []string
	stages   []Stage
	progress []int
	notes    []string
}

func (l *recordingListener) FileStarted(index, total int, input, output string) {
	l.events = append(l.events, fmt.Sprintf("start %d/%d %s -> %s", index, total, filepath.Base(input), filepath.Base(output)))
}

func (l *recordingListener) StageChanged(stage Stage) {
	l.stages = append(l.stages, stage)
}

func (l *recordingListener) Progress(percent int) {
	l.progress = append(l.progress, percent)
}

func (l *recordingListener) Advisory(message string) {
	l.notes = append(l.notes, message)
}

func (l *recordingListener) FileFinished(index, total int, res Result) {
	l.events = append(l.events, fmt.Sprintf("done %d/%d %s ok=%t", index, total, filepath.Base(res.Input), res.Success))
}

// touch creates an empty file; the stub codec never reads it.
func touch(t *testing.T, path string) string {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("touch %s: %v", path, err)
	}
	return path
}

func writeJPEG(t *testing.T, path string, w, h int) string {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) % 256)})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}
