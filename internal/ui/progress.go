package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/desertthunder/spx/internal/tasks"
)

const barWidth = 20

// Bar renders a fixed-width progress bar for step of total.
func Bar(step, total int) string {
	if total <= 0 {
		return "[" + strings.Repeat("·", barWidth) + "]"
	}
	filled := min(barWidth, max(0, step*barWidth/total))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("·", barWidth-filled) + "]"
}

// RenderProgress formats one update as a single line.
func RenderProgress(u tasks.ProgressUpdate) string {
	if u.Total > 0 {
		return fmt.Sprintf("%s %s %s", Bar(u.Step, u.Total), Styles.Help("%s", u.Phase), u.Message)
	}
	return fmt.Sprintf("→ %s %s", Styles.Help("%s", u.Phase), u.Message)
}

// PrintProgress writes every update received on progress to w until the channel is closed.
//
// The returned channel is closed once all updates have been written.
func PrintProgress(w io.Writer, progress <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			fmt.Fprintln(w, RenderProgress(u))
		}
	}()
	return done
}
