// Package report renders the outcome of a batch.
package report

import (
	"fmt"
	"io"
	"math"
	"time"

	json "github.com/goccy/go-json"

	"tint/internal/processor"
	"tint/internal/tui"
)

type batchJSON struct {
	Success               bool         `json:"success"`
	Total                 int          `json:"total"`
	Successful            int          `json:"successful"`
	Failed                int          `json:"failed"`
	ProcessingTimeSeconds float64      `json:"processing_time_seconds"`
	Results               []resultJSON `json:"results"`
}

type resultJSON struct {
	Input                 string   `json:"input"`
	Output                string   `json:"output"`
	Success               bool     `json:"success"`
	Width                 int      `json:"width,omitempty"`
	Height                int      `json:"height,omitempty"`
	ProcessingTimeSeconds *float64 `json:"processing_time_seconds,omitempty"`
	Error                 string   `json:"error,omitempty"`
}

// Render writes the batch outcome in the mode opts asks for. Quiet mode
// writes nothing: per-file lines were already printed while processing.
func Render(w io.Writer, s processor.Summary, opts processor.Options) error {
	switch {
	case opts.JSON:
		return JSON(w, s)
	case opts.Quiet:
		return nil
	default:
		return Human(w, s)
	}
}

// JSON writes s as one line of JSON.
func JSON(w io.Writer, s processor.Summary) error {
	out := batchJSON{
		Success:               s.Failed == 0,
		Total:                 len(s.Results),
		Successful:            s.Successful,
		Failed:                s.Failed,
		ProcessingTimeSeconds: seconds(s.Elapsed),
		Results:               make([]resultJSON, 0, len(s.Results)),
	}
	for _, res := range s.Results {
		r := resultJSON{
			Input:   res.Input,
			Output:  res.Output,
			Success: res.Success,
			Width:   res.Width,
			Height:  res.Height,
		}
		if res.Success {
			elapsed := seconds(res.Elapsed)
			r.ProcessingTimeSeconds = &elapsed
		} else if res.Err != nil {
			r.Error = res.Err.Message
		}
		out.Results = append(out.Results, r)
	}
	return encode(w, out)
}

// Error writes a fatal error as a single {"error": ...} object.
func Error(w io.Writer, message string) error {
	return encode(w, struct {
		Error string `json:"error"`
	}{message})
}

// Human writes the summary banner followed by the failed files, if any.
func Human(w io.Writer, s processor.Summary) error {
	failedTone := tui.ToneNormal
	if s.Failed > 0 {
		failedTone = tui.ToneBad
	}
	rows := []tui.SummaryRow{
		{Label: "Files processed", Value: fmt.Sprintf("%d", len(s.Results))},
		{Label: "Successful", Value: fmt.Sprintf("%d", s.Successful), Tone: tui.ToneGood},
		{Label: "Failed", Value: fmt.Sprintf("%d", s.Failed), Tone: failedTone},
		{Label: "Total time", Value: FormatDuration(s.Elapsed)},
	}
	if _, err := fmt.Fprintln(w, tui.RenderSummary("tint", rows)); err != nil {
		return err
	}

	for _, res := range s.Results {
		if res.Success || res.Err == nil {
			continue
		}
		if _, err := fmt.Fprintln(w, tui.FailureLine(res.Input, res.Err.Message)); err != nil {
			return err
		}
	}
	return nil
}

// FormatDuration renders d as HH:MM:SS, truncated to whole seconds.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total/60%60, total%60)
}

func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
