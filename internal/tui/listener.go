package tui

import (
	"fmt"
	"io"
	"time"

	"tint/internal/processor"
)

// UpdateKind says which listener event an Update carries.
type UpdateKind int

const (
	UpdateFileStarted UpdateKind = iota
	UpdateStage
	UpdateProgress
	UpdateAdvisory
	UpdateFileFinished
)

// Update is one listener event, forwarded to the interactive Model.
type Update struct {
	Kind    UpdateKind
	Index   int
	Total   int
	Input   string
	Output  string
	Stage   processor.Stage
	Percent int
	Message string
	Result  processor.Result
}

// ChannelListener forwards events to a Model. The runner blocks while the
// channel is full, until done is closed; after that events are dropped.
type ChannelListener struct {
	updates chan<- Update
	done    <-chan struct{}
}

// NewChannelListener returns a listener feeding updates. done is closed when
// the view stops reading.
func NewChannelListener(updates chan<- Update, done <-chan struct{}) *ChannelListener {
	return &ChannelListener{updates: updates, done: done}
}

func (l *ChannelListener) send(u Update) {
	select {
	case l.updates <- u:
	case <-l.done:
	}
}

func (l *ChannelListener) FileStarted(index, total int, input, output string) {
	l.send(Update{Kind: UpdateFileStarted, Index: index, Total: total, Input: input, Output: output})
}

func (l *ChannelListener) StageChanged(stage processor.Stage) {
	l.send(Update{Kind: UpdateStage, Stage: stage})
}

func (l *ChannelListener) Progress(percent int) {
	l.send(Update{Kind: UpdateProgress, Percent: percent})
}

func (l *ChannelListener) Advisory(message string) {
	l.send(Update{Kind: UpdateAdvisory, Message: message})
}

func (l *ChannelListener) FileFinished(index, total int, res processor.Result) {
	l.send(Update{Kind: UpdateFileFinished, Index: index, Total: total, Result: res})
}

// LineListener prints plain progress lines for non-interactive human output.
// The progress counter is rewritten in place with a carriage return.
type LineListener struct {
	out        io.Writer
	errOut     io.Writer
	inProgress bool
}

func NewLineListener(out, errOut io.Writer) *LineListener {
	return &LineListener{out: out, errOut: errOut}
}

func (l *LineListener) FileStarted(index, total int, input, output string) {
	fmt.Fprintf(l.out, "%s %s -> %s\n", dimStyle.Render(fmt.Sprintf("[%d/%d]", index, total)), input, output)
}

func (l *LineListener) StageChanged(processor.Stage) {}

func (l *LineListener) Progress(percent int) {
	fmt.Fprintf(l.out, "\r  colorizing %3d%%", percent)
	l.inProgress = true
}

func (l *LineListener) Advisory(message string) {
	l.endProgress()
	fmt.Fprintf(l.out, "  %s %s\n", warnStyle.Render("Warning:"), message)
}

func (l *LineListener) FileFinished(_, _ int, res processor.Result) {
	l.endProgress()
	if res.Success {
		fmt.Fprintf(l.out, "  %s %s %s\n", successStyle.Render("Saved:"), res.Output,
			dimStyle.Render(fmt.Sprintf("(%s)", res.Elapsed.Round(time.Millisecond))))
		return
	}
	fmt.Fprintf(l.errOut, "  %s %s\n", errorStyle.Render("Error:"), res.Err.Message)
}

func (l *LineListener) endProgress() {
	if l.inProgress {
		fmt.Fprintln(l.out)
		l.inProgress = false
	}
}

// QuietListener prints one line per finished file and nothing else.
type QuietListener struct {
	processor.NopListener
	out    io.Writer
	errOut io.Writer
}

func NewQuietListener(out, errOut io.Writer) *QuietListener {
	return &QuietListener{out: out, errOut: errOut}
}

func (l *QuietListener) FileFinished(_, _ int, res processor.Result) {
	if res.Success {
		fmt.Fprintf(l.out, "%s -> %s\n", res.Input, res.Output)
		return
	}
	fmt.Fprintf(l.errOut, "%s: %s\n", res.Input, res.Err.Message)
}
