package processor

import (
	"fmt"
	"time"
)

// Options are the command-line switches of a run. They are built once and
// never modified afterwards.
type Options struct {
	Quiet      bool
	JSON       bool // implies Quiet
	StatusFile string
	OutputDir  string
}

// Job is one input of a batch. Output is set only when the user named the
// output file explicitly, which is possible for single-file runs.
type Job struct {
	Input  string
	Output string
}

// ErrorKind is the category of a per-file failure.
type ErrorKind int

const (
	NotFound ErrorKind = iota + 1
	UnsupportedFormat
	IOError
	InvalidImage
	ResourceExhausted
	UnexpectedError
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case UnsupportedFormat:
		return "UnsupportedFormat"
	case IOError:
		return "IOError"
	case InvalidImage:
		return "InvalidImage"
	case ResourceExhausted:
		return "ResourceExhausted"
	case UnexpectedError:
		return "UnexpectedError"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// FileError is the failure of a single file. Message is what users see.
type FileError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *FileError) Error() string {
	return e.Message
}

func (e *FileError) Unwrap() error {
	return e.Err
}

func fileError(kind ErrorKind, err error, format string, args ...any) *FileError {
	return &FileError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Result describes how one job went. Width and Height are those of the input
// image and are zero when it could not be decoded.
type Result struct {
	Input      string
	Output     string
	Success    bool
	Err        *FileError
	Width      int
	Height     int
	Elapsed    time.Duration
	Advisories []string
}

// Summary is the outcome of a batch. Results are in job order.
type Summary struct {
	Results    []Result
	Elapsed    time.Duration
	Successful int
	Failed     int
}

// ExitCode is 0 when every job succeeded and 1 otherwise.
func (s Summary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}

// Stage is a coarse step of the per-file pipeline, as published to the
// status file.
type Stage string

const (
	StageLoading    Stage = "loading"
	StageProcessing Stage = "processing"
	StageSaving     Stage = "saving"
	StageComplete   Stage = "complete"
)

// Listener receives the events of a batch as they happen. All methods are
// called on the goroutine running the batch.
type Listener interface {
	FileStarted(index, total int, input, output string)
	StageChanged(stage Stage)
	Progress(percent int)
	Advisory(message string)
	FileFinished(index, total int, res Result)
}

// NopListener ignores every event.
type NopListener struct{}

func (NopListener) FileStarted(int, int, string, string) {}
func (NopListener) StageChanged(Stage)                  {}
func (NopListener) Progress(int)                        {}
func (NopListener) Advisory(string)                     {}
func (NopListener) FileFinished(int, int, Result)       {}
