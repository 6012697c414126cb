package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"
)

const maxLogLines = 200

// LogPanel is the scrolling log view. It implements io.Writer so it can be a
// zap sink, and accepts writes from any goroutine before and after the UI runs.
type LogPanel struct {
	view *tview.TextView
}

// NewLogPanel creates an empty log panel.
func NewLogPanel() *LogPanel {
	view := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(maxLogLines)
	view.SetBorder(true)
	view.SetTitle("Logs")
	view.ScrollToEnd()
	return &LogPanel{view: view}
}

// Add appends a coloured, timestamped line.
func (p *LogPanel) Add(message, level string) {
	var color string
	switch level {
	case "error":
		color = "[red]"
	case "warning":
		color = "[yellow]"
	case "command":
		color = "[cyan]"
		message = "> " + message
	default:
		color = "[white]"
	}

	fmt.Fprintf(p.view, "%s[%s] %s[white]\n", color, time.Now().Format("15:04:05"), message)
}

// Write adds one encoded log entry.
func (p *LogPanel) Write(b []byte) (int, error) {
	message := strings.TrimSpace(string(b))
	if message != "" {
		p.Add(tview.Escape(message), levelOf(message))
	}
	return len(b), nil
}

// Text returns the panel contents without colour tags.
func (p *LogPanel) Text() string {
	return p.view.GetText(true)
}

// levelOf guesses the line colour from an encoded zap entry.
func levelOf(line string) string {
	switch {
	case strings.Contains(line, `"level":"error"`), strings.Contains(line, "\tERROR\t"):
		return "error"
	case strings.Contains(line, `"level":"warn"`), strings.Contains(line, "\tWARN\t"):
		return "warning"
	default:
		return "info"
	}
}
