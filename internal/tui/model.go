package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tint/internal/processor"
)

// Model is the interactive progress view. It reads listener events from a
// channel and quits once the channel is closed.
type Model struct {
	updates   <-chan Update
	started   time.Time
	width     int
	index     int
	total     int
	input     string
	output    string
	stage     processor.Stage
	percent   int
	succeeded int
	failed    int
	quitting  bool
}

type doneMsg struct{}

type updateMsg Update

func NewModel(updates <-chan Update) Model {
	return Model{updates: updates, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		next := listenForUpdates(m.updates)
		switch msg.Kind {
		case UpdateFileStarted:
			m.index, m.total = msg.Index, msg.Total
			m.input, m.output = msg.Input, msg.Output
			m.stage, m.percent = "", 0
		case UpdateStage:
			m.stage = msg.Stage
		case UpdateProgress:
			m.percent = msg.Percent
		case UpdateAdvisory:
			return m, tea.Batch(tea.Println(warnStyle.Render("! ")+msg.Message), next)
		case UpdateFileFinished:
			line := m.finished(msg.Result)
			return m, tea.Batch(tea.Println(line), next)
		}
		return m, next
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) finished(res processor.Result) string {
	if res.Success {
		m.succeeded++
		return successStyle.Render("✓ ") + fmt.Sprintf("%s -> %s", res.Input, res.Output) +
			dimStyle.Render(fmt.Sprintf("  %s", res.Elapsed.Round(time.Millisecond)))
	}
	m.failed++
	return FailureLine(res.Input, res.Err.Message)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	stage := string(m.stage)
	if stage == "" {
		stage = "waiting"
	}
	elapsed := time.Since(m.started).Round(time.Second)

	lines := []string{
		titleStyle.Render("tint"),
		labelStyle.Render(fmt.Sprintf("File %d/%d: %s", m.index, m.total, m.input)),
		dimStyle.Render(fmt.Sprintf("%s  %3d%%", stage, m.percent)),
		barStyle.Render(renderBar(barWidth, float64(m.percent)/100)),
		dimStyle.Render(fmt.Sprintf("ok:%d  failed:%d  elapsed:%s", m.succeeded, m.failed, elapsed)),
	}

	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan Update) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}
