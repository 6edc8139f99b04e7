package processor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tint/internal/colorize"
	"tint/pkg/imgutil"
)

func newTestRunner(c *stubCodec, e *stubEngine, l Listener) *Runner {
	return NewRunner(c, e, Config{ProgressStep: 10, MinDimension: 10, MaxDimension: 4096, Reclaim: func() {}}, l, nil)
}

func TestProcessFailureCategories(t *testing.T) {
	dir := t.TempDir()
	input := touch(t, filepath.Join(dir, "in.jpg"))
	blocker := touch(t, filepath.Join(dir, "blocker"))

	cases := []struct {
		name        string
		input       string
		output      string
		codec       *stubCodec
		engine      *stubEngine
		want        ErrorKind
		wantMessage string
		wantDecode  bool
	}{
		{
			name:   "missing input",
			input:  filepath.Join(dir, "absent.jpg"),
			output: filepath.Join(dir, "out.jpg"),
			want:   NotFound,
		},
		{
			name:   "directory input",
			input:  dir,
			output: filepath.Join(dir, "out.jpg"),
			want:   NotFound,
		},
		{
			name:        "input without extension",
			input:       touch(t, filepath.Join(dir, "photo")),
			output:      filepath.Join(dir, "photo-colorized.png"),
			want:        UnsupportedFormat,
			wantMessage: "no extension",
		},
		{
			name:        "unsupported output extension",
			input:       input,
			output:      filepath.Join(dir, "out.webp"),
			want:        UnsupportedFormat,
			wantMessage: ".webp",
		},
		{
			name:   "output directory cannot be created",
			input:  input,
			output: filepath.Join(blocker, "nested", "out.png"),
			want:   IOError,
		},
		{
			name:       "corrupt input",
			input:      input,
			output:     filepath.Join(dir, "out.png"),
			codec:      &stubCodec{decodeErr: fmt.Errorf("%w: truncated", imgutil.ErrInvalidImage)},
			want:       InvalidImage,
			wantDecode: true,
		},
		{
			name:       "input too large to load",
			input:      input,
			output:     filepath.Join(dir, "out.png"),
			codec:      &stubCodec{decodeErr: fmt.Errorf("%w: 90000x90000", imgutil.ErrTooLarge)},
			want:       ResourceExhausted,
			wantDecode: true,
		},
		{
			name:       "engine out of memory",
			input:      input,
			output:     filepath.Join(dir, "out.png"),
			engine:     &stubEngine{err: colorize.ErrOutOfMemory},
			want:       ResourceExhausted,
			wantDecode: true,
		},
		{
			name:        "engine failure",
			input:       input,
			output:      filepath.Join(dir, "out.png"),
			engine:      &stubEngine{err: errors.New("model weights missing")},
			want:        UnexpectedError,
			wantMessage: "model weights missing",
			wantDecode:  true,
		},
		{
			name:        "save permission denied",
			input:       input,
			output:      filepath.Join(dir, "out.png"),
			codec:       &stubCodec{encodeErr: &fs.PathError{Op: "open", Path: "out.png", Err: fs.ErrPermission}},
			want:        IOError,
			wantMessage: "permission denied",
			wantDecode:  true,
		},
		{
			name:       "save failure",
			input:      input,
			output:     filepath.Join(dir, "out.png"),
			codec:      &stubCodec{encodeErr: errors.New("disk full")},
			want:       IOError,
			wantDecode: true,
		},
		{
			name:        "engine panic",
			input:       input,
			output:      filepath.Join(dir, "out.png"),
			engine:      &stubEngine{panicWith: "index out of range"},
			want:        UnexpectedError,
			wantMessage: "index out of range",
			wantDecode:  true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.codec
			if c == nil {
				c = &stubCodec{}
			}
			e := tc.engine
			if e == nil {
				e = &stubEngine{}
			}

			res := newTestRunner(c, e, nil).Process(context.Background(), tc.input, tc.output, Options{})

			require.False(t, res.Success)
			require.NotNil(t, res.Err)
			require.Equal(t, tc.want, res.Err.Kind, res.Err.Message)
			require.Equal(t, tc.input, res.Input)
			require.Equal(t, tc.output, res.Output)
			if tc.wantMessage != "" {
				require.Contains(t, res.Err.Message, tc.wantMessage)
			}
			if tc.wantDecode {
				require.Len(t, c.decoded, 1)
			} else {
				require.Empty(t, c.decoded, "codec must not be invoked")
			}
		})
	}
}

func TestProcessWrapsUnderlyingErrors(t *testing.T) {
	dir := t.TempDir()
	input := touch(t, filepath.Join(dir, "in.jpg"))

	c := &stubCodec{decodeErr: fmt.Errorf("%w: bad huffman table", imgutil.ErrInvalidImage)}
	res := newTestRunner(c, &stubEngine{}, nil).Process(context.Background(), input, filepath.Join(dir, "out.jpg"), Options{})

	require.ErrorIs(t, res.Err, imgutil.ErrInvalidImage)
	var ferr *FileError
	require.ErrorAs(t, error(res.Err), &ferr)
	require.Equal(t, InvalidImage, ferr.Kind)
}

func TestProcessSuccess(t *testing.T) {
	dir := t.TempDir()
	input := touch(t, filepath.Join(dir, "in.jpg"))
	output := filepath.Join(dir, "nested", "deeper", "out.png")
	statusPath := filepath.Join(dir, "status")

	c := &stubCodec{size: image.Rect(0, 0, 640, 480)}
	e := &stubEngine{steps: []float64{0, 33.3, 50, 66.6, 100}}
	listener := &recordingListener{}

	res := newTestRunner(c, e, listener).Process(context.Background(), input, output, Options{StatusFile: statusPath})

	require.True(t, res.Success, "%+v", res.Err)
	require.Nil(t, res.Err)
	require.Equal(t, 640, res.Width)
	require.Equal(t, 480, res.Height)
	require.Positive(t, res.Elapsed)
	require.Empty(t, res.Advisories)
	require.FileExists(t, output)

	require.Equal(t, []Stage{StageLoading, StageProcessing, StageSaving, StageComplete}, listener.stages)
	require.Equal(t, []int{0, 50, 100}, listener.progress)

	data, err := os.ReadFile(statusPath)
	require.NoError(t, err)
	require.Equal(t, "complete", string(data))
}

func TestProcessDimensionAdvisoriesDoNotFail(t *testing.T) {
	dir := t.TempDir()
	input := touch(t, filepath.Join(dir, "in.jpg"))

	cases := map[string]image.Rectangle{
		"small": image.Rect(0, 0, 8, 200),
		"large": image.Rect(0, 0, 5000, 20),
	}
	for name, size := range cases {
		t.Run(name, func(t *testing.T) {
			listener := &recordingListener{}
			res := newTestRunner(&stubCodec{size: size}, &stubEngine{}, listener).
				Process(context.Background(), input, filepath.Join(dir, name+".png"), Options{})

			require.True(t, res.Success)
			require.Len(t, res.Advisories, 1)
			require.Contains(t, res.Advisories[0], "very "+name)
			require.Equal(t, res.Advisories, listener.notes)
		})
	}
}

func TestProcessDecodeFailureKeepsZeroDimensions(t *testing.T) {
	dir := t.TempDir()
	input := touch(t, filepath.Join(dir, "in.jpg"))

	res := newTestRunner(&stubCodec{decodeErr: imgutil.ErrInvalidImage}, &stubEngine{}, nil).
		Process(context.Background(), input, filepath.Join(dir, "out.png"), Options{})

	require.Zero(t, res.Width)
	require.Zero(t, res.Height)
	_, err := os.Stat(filepath.Join(dir, "out.png"))
	require.True(t, os.IsNotExist(err))
}
